package model

// CoverageMark is the per-line classification reported by a coverage tool.
type CoverageMark string

const (
	CoverageMarkHit     CoverageMark = "H"
	CoverageMarkMiss    CoverageMark = "M"
	CoverageMarkPartial CoverageMark = "P"
)

// ComparisonKind names the state of a diff between a commit and its parent.
// The values match the upstream union tags so they can be logged verbatim.
type ComparisonKind string

const (
	ComparisonKindComparison        ComparisonKind = "Comparison"
	ComparisonKindFirstPullRequest  ComparisonKind = "FirstPullRequest"
	ComparisonKindMissingBaseCommit ComparisonKind = "MissingBaseCommit"
	ComparisonKindMissingBaseReport ComparisonKind = "MissingBaseReport"
	ComparisonKindMissingComparison ComparisonKind = "MissingComparison"
	ComparisonKindMissingHeadCommit ComparisonKind = "MissingHeadCommit"
	ComparisonKindMissingHeadReport ComparisonKind = "MissingHeadReport"
)

// BundleReportStatus says whether a bundle analysis report exists for a commit.
type BundleReportStatus string

const (
	BundleReportReady   BundleReportStatus = "ready"
	BundleReportMissing BundleReportStatus = "missing"
)

// PathStatus is the outcome of a directory listing request.
type PathStatus string

const (
	PathStatusOK                PathStatus = "ok"
	PathStatusMissingCoverage   PathStatus = "missing_coverage"
	PathStatusUnknownPath       PathStatus = "unknown_path"
	PathStatusMissingHeadReport PathStatus = "missing_head_report"
)

// EntryKind distinguishes directories from files in a path listing.
type EntryKind string

const (
	EntryKindDir  EntryKind = "dir"
	EntryKindFile EntryKind = "file"
)
