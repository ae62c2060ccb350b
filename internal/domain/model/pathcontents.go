package model

// PathContents is a directory listing of coverage totals at a branch head.
type PathContents struct {
	Status  PathStatus
	Message string
	Entries []PathEntry
}

// PathEntry is a single file or directory within a PathContents listing.
type PathEntry struct {
	Kind           EntryKind
	Name           string
	Path           string
	Hits           int
	Misses         int
	Partials       int
	Lines          int
	PercentCovered float64
	IsCriticalFile bool
}
