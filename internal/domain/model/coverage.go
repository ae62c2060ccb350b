package model

// CoverageFileRecord is the canonical per-file coverage view, identical whether
// the file was loaded through a commit, a branch head or a pull request head.
type CoverageFileRecord struct {
	Content        *string // nil means the file content is not available.
	Coverage       map[int]CoverageMark
	Totals         float64 // Always finite; 0 when the source had no percentage.
	FlagNames      []string
	ComponentNames []string
	HashedPath     *string // Only set when the source carried one.
}

// LineCount returns the number of lines that carry a coverage mark.
func (r CoverageFileRecord) LineCount() int {
	return len(r.Coverage)
}
