package status

import (
	"fmt"
	"io"
)

const (
	reportTitleConstant                 = "Git Partial Status\n"
	reportUnderlineConstant             = "==================\n\n"
	reportRepositoryTemplateConstant    = "Repository: %s\n"
	reportBranchTemplateConstant        = "Branch: %s (%s)\n"
	reportDetachedBranchConstant        = "Branch: (detached HEAD)\n"
	reportLastSyncedTemplateConstant    = "Last Synced Commit: %s\n"
	reportRemoteTemplateConstant        = "Remote URL: %s\n"
	reportDescribedRemoteTemplate       = "Remote: %s\n"
	reportFetchWarningTemplateConstant  = "Warning: fetch from %s failed; remote state may be stale: %v\n"
	reportPatternsHeaderConstant        = "\nSparse checkout paths:\n"
	reportPatternTemplateConstant       = "  - %s\n"
	reportChangesHeaderConstant         = "\nLocal changes:\n"
	reportNoChangesConstant             = "  No changes\n"
	reportChangeTemplateConstant        = "  %s\n"
	reportNoScopedChangesConstant       = "  No changes within the sparse checkout paths\n"
	reportOutOfScopeHeaderConstant      = "\nChanges outside the sparse checkout paths:\n"
	upToDateDescriptionTemplate         = "Up-to-date with %s"
	behindDescriptionTemplateConstant   = "Behind %s by %d commit(s)"
	aheadDescriptionTemplateConstant    = "Ahead of %s by %d commit(s)"
	divergedDescriptionTemplateConstant = "Diverged from %s: ahead %d, behind %d"
	noUpstreamDescriptionTemplate       = "No remote-tracking branch %s"
)

// DescribeBranchPosition summarizes the branch relative to its remote-tracking branch.
func DescribeBranchPosition(report Report) string {
	if !report.UpstreamAvailable {
		return fmt.Sprintf(noUpstreamDescriptionTemplate, report.Upstream)
	}
	divergence := report.Divergence
	switch {
	case divergence.Ahead == 0 && divergence.Behind == 0:
		return fmt.Sprintf(upToDateDescriptionTemplate, report.Upstream)
	case divergence.Ahead == 0:
		return fmt.Sprintf(behindDescriptionTemplateConstant, report.Upstream, divergence.Behind)
	case divergence.Behind == 0:
		return fmt.Sprintf(aheadDescriptionTemplateConstant, report.Upstream, divergence.Ahead)
	default:
		return fmt.Sprintf(divergedDescriptionTemplateConstant, report.Upstream, divergence.Ahead, divergence.Behind)
	}
}

// WriteReport renders report in the human-readable status layout.
func WriteReport(writer io.Writer, report Report) error {
	renderer := &reportRenderer{writer: writer}

	renderer.printf(reportTitleConstant)
	renderer.printf(reportUnderlineConstant)
	renderer.printf(reportRepositoryTemplateConstant, report.RepositoryRoot)
	if report.Detached() {
		renderer.printf(reportDetachedBranchConstant)
	} else {
		renderer.printf(reportBranchTemplateConstant, report.Branch, DescribeBranchPosition(report))
	}
	renderer.printf(reportLastSyncedTemplateConstant, report.Metadata.LastSyncedCommit)
	renderer.printf(reportRemoteTemplateConstant, report.Metadata.RemoteURL)
	if report.RemoteDescribed {
		renderer.printf(reportDescribedRemoteTemplate, report.Remote.String())
	}
	if report.FetchError != nil {
		renderer.printf(reportFetchWarningTemplateConstant, report.RemoteName, report.FetchError)
	}

	renderer.printf(reportPatternsHeaderConstant)
	for _, pattern := range report.Metadata.Paths {
		renderer.printf(reportPatternTemplateConstant, pattern)
	}

	renderer.printf(reportChangesHeaderConstant)
	if len(report.Changes) == 0 {
		renderer.printf(reportNoChangesConstant)
		return renderer.err
	}
	if len(report.InScopeChanges) == 0 {
		renderer.printf(reportNoScopedChangesConstant)
	}
	for _, change := range report.InScopeChanges {
		renderer.printf(reportChangeTemplateConstant, change)
	}
	if len(report.OutOfScopeChanges) > 0 {
		renderer.printf(reportOutOfScopeHeaderConstant)
		for _, change := range report.OutOfScopeChanges {
			renderer.printf(reportChangeTemplateConstant, change)
		}
	}
	return renderer.err
}

type reportRenderer struct {
	writer io.Writer
	err    error
}

func (renderer *reportRenderer) printf(format string, arguments ...any) {
	if renderer.err != nil {
		return
	}
	_, renderer.err = fmt.Fprintf(renderer.writer, format, arguments...)
}
