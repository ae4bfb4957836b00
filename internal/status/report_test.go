package status_test

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/temirov/gitpartial/internal/gitgateway"
	"github.com/temirov/gitpartial/internal/gitrepo"
	"github.com/temirov/gitpartial/internal/metadata"
	"github.com/temirov/gitpartial/internal/status"
)

func TestDescribeBranchPosition(testInstance *testing.T) {
	testCases := []struct {
		name        string
		report      status.Report
		expectation string
	}{
		{
			name:        "NoUpstream",
			report:      status.Report{Branch: "feature", Upstream: "origin/feature"},
			expectation: "No remote-tracking branch origin/feature",
		},
		{
			name:        "UpToDate",
			report:      status.Report{Branch: "main", Upstream: "origin/main", UpstreamAvailable: true},
			expectation: "Up-to-date with origin/main",
		},
		{
			name:        "Behind",
			report:      status.Report{Branch: "main", Upstream: "origin/main", UpstreamAvailable: true, Divergence: gitgateway.AheadBehind{Behind: 3}},
			expectation: "Behind origin/main by 3 commit(s)",
		},
		{
			name:        "Ahead",
			report:      status.Report{Branch: "main", Upstream: "origin/main", UpstreamAvailable: true, Divergence: gitgateway.AheadBehind{Ahead: 1}},
			expectation: "Ahead of origin/main by 1 commit(s)",
		},
		{
			name:        "Diverged",
			report:      status.Report{Branch: "main", Upstream: "origin/main", UpstreamAvailable: true, Divergence: gitgateway.AheadBehind{Ahead: 2, Behind: 5}},
			expectation: "Diverged from origin/main: ahead 2, behind 5",
		},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			require.Equal(testInstance, testCase.expectation, status.DescribeBranchPosition(testCase.report))
		})
	}
}

func TestWriteReportLayout(testInstance *testing.T) {
	report := status.Report{
		RepositoryRoot: "/work/monorepo",
		Metadata: metadata.PartialCloneMetadata{
			RemoteURL:        testRemoteURLConstant,
			Paths:            []string{"docs/**", "*.md"},
			LastSyncedCommit: testCommitConstant,
		},
		RemoteName:        "origin",
		Remote:            gitrepo.RemoteDescription{Protocol: gitrepo.RemoteProtocolHTTPS, Host: "github.com", Path: "/example/monorepo.git"},
		RemoteDescribed:   true,
		Branch:            "main",
		Upstream:          "origin/main",
		UpstreamAvailable: true,
		Changes:           []string{" M docs/guide.md", "?? notes.txt"},
		InScopeChanges:    []string{" M docs/guide.md"},
		OutOfScopeChanges: []string{"?? notes.txt"},
	}

	outputBuffer := &bytes.Buffer{}
	require.NoError(testInstance, status.WriteReport(outputBuffer, report))

	expectedOutput := "Git Partial Status\n" +
		"==================\n\n" +
		"Repository: /work/monorepo\n" +
		"Branch: main (Up-to-date with origin/main)\n" +
		"Last Synced Commit: " + testCommitConstant + "\n" +
		"Remote URL: " + testRemoteURLConstant + "\n" +
		"Remote: github.com/example/monorepo.git (https)\n" +
		"\nSparse checkout paths:\n" +
		"  - docs/**\n" +
		"  - *.md\n" +
		"\nLocal changes:\n" +
		"   M docs/guide.md\n" +
		"\nChanges outside the sparse checkout paths:\n" +
		"  ?? notes.txt\n"
	require.Equal(testInstance, expectedOutput, outputBuffer.String())
}

func TestWriteReportEdgeCases(testInstance *testing.T) {
	baseMetadata := metadata.PartialCloneMetadata{RemoteURL: "/srv/git/monorepo", Paths: []string{"docs/**"}, LastSyncedCommit: testCommitConstant}

	testCases := []struct {
		name             string
		report           status.Report
		expectedContains []string
		expectedMissing  []string
	}{
		{
			name:             "CleanDetached",
			report:           status.Report{Metadata: baseMetadata, RemoteName: "origin"},
			expectedContains: []string{"Branch: (detached HEAD)\n", "Local changes:\n  No changes\n"},
			expectedMissing:  []string{"Remote: ", "Warning:", "outside the sparse checkout"},
		},
		{
			name: "OnlyOutOfScopeChanges",
			report: status.Report{
				Metadata:          baseMetadata,
				Branch:            "main",
				Upstream:          "origin/main",
				Changes:           []string{"?? notes.txt"},
				InScopeChanges:    []string{},
				OutOfScopeChanges: []string{"?? notes.txt"},
			},
			expectedContains: []string{"No changes within the sparse checkout paths\n", "Changes outside the sparse checkout paths:\n  ?? notes.txt\n"},
		},
		{
			name: "FetchWarning",
			report: status.Report{
				Metadata:   baseMetadata,
				RemoteName: "origin",
				Branch:     "main",
				Upstream:   "origin/main",
				FetchError: errors.New("network unreachable"),
			},
			expectedContains: []string{"Warning: fetch from origin failed; remote state may be stale: network unreachable\n"},
		},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			outputBuffer := &bytes.Buffer{}
			require.NoError(testInstance, status.WriteReport(outputBuffer, testCase.report))
			for _, expected := range testCase.expectedContains {
				require.Contains(testInstance, outputBuffer.String(), expected)
			}
			for _, missing := range testCase.expectedMissing {
				require.NotContains(testInstance, outputBuffer.String(), missing)
			}
		})
	}
}
