package extract

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/ericfisherdev/covlens/internal/contract"
	"github.com/ericfisherdev/covlens/internal/domain/model"
)

// Coverage summary messages.
const (
	msgAllLinesCovered    = "all modified lines are covered by tests"
	msgNoCoverableChanges = "no modified lines are coverable"
)

var comparisonMessages = map[model.ComparisonKind]string{
	model.ComparisonKindFirstPullRequest:  "no comparison is available because this is the first pull request",
	model.ComparisonKindMissingBaseCommit: "unable to compare commits because the base commit was not found",
	model.ComparisonKindMissingBaseReport: "unable to compare commits because the base commit has no coverage report",
	model.ComparisonKindMissingComparison: "there was an error computing the comparison",
	model.ComparisonKindMissingHeadCommit: "unable to compare commits because the head commit was not found",
	model.ComparisonKindMissingHeadReport: "unable to compare commits because the head commit has no coverage report",
}

var bundleMessages = map[model.ComparisonKind]string{
	model.ComparisonKindFirstPullRequest:  "bundle comparison is not available for the first pull request",
	model.ComparisonKindMissingBaseCommit: "unable to compare bundles because the base commit was not found",
	model.ComparisonKindMissingBaseReport: "unable to compare bundles because the base commit has no bundle report",
	model.ComparisonKindMissingComparison: "bundle comparison is not available",
	model.ComparisonKindMissingHeadCommit: "unable to compare bundles because the head commit was not found",
	model.ComparisonKindMissingHeadReport: "unable to compare bundles because the head commit has no bundle report",
}

const (
	msgBundleNoChange      = "bundle size has no change"
	msgBundleReportMissing = "no bundle report was uploaded for this commit"
)

// CommitPage flattens the CommitPageData success variant.
func CommitPage(isCurrentUserPartOfOrg bool, repo *contract.CommitPageRepository) *model.CommitPage {
	if repo == nil {
		return nil
	}

	page := &model.CommitPage{
		IsCurrentUserPartOfOrg: isCurrentUserPartOfOrg,
		Private:                repo.Private,
		BundleAnalysisEnabled:  repo.BundleAnalysisEnabled,
		CoverageEnabled:        repo.CoverageEnabled,
	}
	if repo.Commit != nil {
		page.Commit = &model.CommitSummary{
			CommitID: repo.Commit.CommitID,
			Coverage: CoverageSummary(repo.Commit.CompareWithParent),
			Bundle:   BundleSummary(repo.Commit.BundleAnalysis),
		}
	}
	return page
}

// CoverageSummary describes the patch coverage of a commit. A null
// comparison is reported as MissingComparison.
func CoverageSummary(cmp contract.ComparisonVariant) model.CoverageSummary {
	c, ok := cmp.(*contract.Comparison)
	if !ok {
		kind := comparisonKind(cmp)
		return model.CoverageSummary{Kind: kind, Message: comparisonMessages[kind]}
	}

	summary := model.CoverageSummary{Kind: model.ComparisonKindComparison}
	if c.PatchTotals == nil {
		summary.Message = msgNoCoverableChanges
		return summary
	}

	summary.MissesCount = intOrZero(c.PatchTotals.MissesCount)
	summary.PartialsCount = intOrZero(c.PatchTotals.PartialsCount)
	if p := c.PatchTotals.PercentCovered; p != nil {
		v := Finite(p)
		summary.PatchCoverage = &v
	}
	summary.Message = missingLinesMessage(summary.MissesCount + summary.PartialsCount)
	return summary
}

func missingLinesMessage(lines int) string {
	switch {
	case lines <= 0:
		return msgAllLinesCovered
	case lines == 1:
		return "1 line in your changes is missing coverage"
	default:
		return fmt.Sprintf("%d lines in your changes are missing coverage", lines)
	}
}

// BundleSummary describes the bundle size change of a commit. A null report
// is the same as a MissingHeadReport variant; a null comparison is reported
// as MissingComparison. Only a computed comparison carries a SizeDelta.
func BundleSummary(bundle *contract.BundleAnalysis) model.BundleSummary {
	var report contract.BundleReportVariant
	var cmp contract.ComparisonVariant
	if bundle != nil {
		report = bundle.Report
		cmp = bundle.CompareWithParent
	}

	summary := model.BundleSummary{Report: model.BundleReportMissing}
	if r, ok := report.(*contract.BundleReport); ok {
		summary.Report = model.BundleReportReady
		summary.IsCached = r.IsCached
	}

	c, ok := cmp.(*contract.BundleAnalysisComparison)
	if !ok {
		summary.Comparison = comparisonKind(cmp)
		summary.Message = bundleMessages[summary.Comparison]
		if summary.Report == model.BundleReportMissing && cmp == nil {
			summary.Message = msgBundleReportMissing
		}
		return summary
	}

	delta := c.BundleChange.Size.Uncompress
	summary.Comparison = model.ComparisonKindComparison
	summary.SizeDelta = &delta
	summary.Message = bundleDeltaMessage(delta)
	return summary
}

func bundleDeltaMessage(delta int64) string {
	switch {
	case delta > 0:
		return "changes will increase total bundle size by " + FormatSize(delta)
	case delta < 0:
		return "changes will decrease total bundle size by " + FormatSize(-delta)
	default:
		return msgBundleNoChange
	}
}

// FormatSize renders a byte count with decimal units and no space, e.g.
// 10000 -> "10kB". Negative sizes are formatted by magnitude.
func FormatSize(n int64) string {
	mag := uint64(n)
	if n < 0 {
		// -(n+1) cannot overflow, unlike -n for math.MinInt64.
		mag = uint64(-(n + 1)) + 1
	}
	return strings.ReplaceAll(humanize.Bytes(mag), " ", "")
}

// comparisonKind maps an unavailable variant to its kind; nil becomes
// MissingComparison.
func comparisonKind(cmp contract.ComparisonVariant) model.ComparisonKind {
	if cmp == nil {
		return model.ComparisonKindMissingComparison
	}
	return model.ComparisonKind(contract.ComparisonTypename(cmp))
}

func intOrZero(v *int) int {
	if v == nil {
		return 0
	}
	return *v
}
