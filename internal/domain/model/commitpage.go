package model

// CommitPage is the flattened header data shown above every commit view.
type CommitPage struct {
	IsCurrentUserPartOfOrg bool
	Private                bool
	BundleAnalysisEnabled  bool
	CoverageEnabled        bool
	Commit                 *CommitSummary // nil when the commit has no data yet.
}

// CommitSummary carries the coverage and bundle dropdown summaries of a commit.
type CommitSummary struct {
	CommitID string
	Coverage CoverageSummary
	Bundle   BundleSummary
}

// CoverageSummary describes the patch coverage of a commit against its parent.
// MissesCount and PartialsCount are only meaningful for ComparisonKindComparison.
type CoverageSummary struct {
	Kind          ComparisonKind
	MissesCount   int
	PartialsCount int
	PatchCoverage *float64
	Message       string
}

// BundleSummary describes the bundle size change of a commit against its parent.
// SizeDelta is nil unless Comparison is a computed comparison.
type BundleSummary struct {
	Report     BundleReportStatus
	IsCached   bool
	Comparison ComparisonKind
	SizeDelta  *int64
	Message    string
}

// HasSizeDelta reports whether a numeric size change can be formatted.
func (b BundleSummary) HasSizeDelta() bool {
	return b.SizeDelta != nil
}
