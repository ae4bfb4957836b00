package testsupport

import (
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

const (
	gitExecutableConstant     = "git"
	fixtureBranchConstant     = "main"
	fixtureAuthorNameConstant = "Partial Fixture"
	fixtureAuthorMailConstant = "fixture@example.com"
)

// RequireGit skips the test when the git executable is unavailable.
func RequireGit(testInstance *testing.T) {
	testInstance.Helper()
	if _, lookupError := exec.LookPath(gitExecutableConstant); lookupError != nil {
		testInstance.Skip("git executable not available")
	}
}

// RunGit executes git in directory with an isolated configuration and returns trimmed standard output.
func RunGit(testInstance *testing.T, directory string, arguments ...string) string {
	testInstance.Helper()
	command := exec.Command(gitExecutableConstant, arguments...)
	command.Dir = directory
	command.Env = append(os.Environ(),
		"GIT_CONFIG_NOSYSTEM=1",
		"GIT_CONFIG_GLOBAL="+os.DevNull,
		"GIT_AUTHOR_NAME="+fixtureAuthorNameConstant,
		"GIT_AUTHOR_EMAIL="+fixtureAuthorMailConstant,
		"GIT_COMMITTER_NAME="+fixtureAuthorNameConstant,
		"GIT_COMMITTER_EMAIL="+fixtureAuthorMailConstant,
		"GIT_TERMINAL_PROMPT=0",
	)
	output, runError := command.CombinedOutput()
	require.NoError(testInstance, runError, "git %s: %s", strings.Join(arguments, " "), string(output))
	return strings.TrimSpace(string(output))
}

// IsolateGitConfiguration points git at empty global and system configuration for the duration of the test.
func IsolateGitConfiguration(testInstance *testing.T) {
	testInstance.Helper()
	testInstance.Setenv("GIT_CONFIG_NOSYSTEM", "1")
	testInstance.Setenv("GIT_CONFIG_GLOBAL", os.DevNull)
	testInstance.Setenv("GIT_AUTHOR_NAME", fixtureAuthorNameConstant)
	testInstance.Setenv("GIT_AUTHOR_EMAIL", fixtureAuthorMailConstant)
	testInstance.Setenv("GIT_COMMITTER_NAME", fixtureAuthorNameConstant)
	testInstance.Setenv("GIT_COMMITTER_EMAIL", fixtureAuthorMailConstant)
}

// NewOriginRepository creates a repository on branch main containing files and returns its path.
func NewOriginRepository(testInstance *testing.T, files map[string]string) string {
	testInstance.Helper()
	originPath := filepath.Join(testInstance.TempDir(), "origin")
	require.NoError(testInstance, os.MkdirAll(originPath, 0o755))
	RunGit(testInstance, originPath, "init", "--quiet")
	RunGit(testInstance, originPath, "symbolic-ref", "HEAD", "refs/heads/"+fixtureBranchConstant)
	CommitFiles(testInstance, originPath, files, "initial commit")
	return originPath
}

// CommitFiles writes files into repositoryPath, commits them, and returns the new HEAD.
func CommitFiles(testInstance *testing.T, repositoryPath string, files map[string]string, message string) string {
	testInstance.Helper()
	for relativePath, contents := range files {
		absolutePath := filepath.Join(repositoryPath, filepath.FromSlash(relativePath))
		require.NoError(testInstance, os.MkdirAll(filepath.Dir(absolutePath), 0o755))
		require.NoError(testInstance, os.WriteFile(absolutePath, []byte(contents), 0o644))
	}
	RunGit(testInstance, repositoryPath, "add", "--all")
	RunGit(testInstance, repositoryPath, "commit", "--quiet", "-m", message)
	return RunGit(testInstance, repositoryPath, "rev-parse", "HEAD")
}

// FixtureBranch names the branch created by NewOriginRepository.
func FixtureBranch() string {
	return fixtureBranchConstant
}
