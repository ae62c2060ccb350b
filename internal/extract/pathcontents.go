package extract

import (
	"github.com/ericfisherdev/covlens/internal/contract"
	"github.com/ericfisherdev/covlens/internal/domain/model"
)

var pathStatuses = map[string]model.PathStatus{
	contract.TypeMissingCoverage:   model.PathStatusMissingCoverage,
	contract.TypeUnknownPath:       model.PathStatusUnknownPath,
	contract.TypeMissingHeadReport: model.PathStatusMissingHeadReport,
}

// PathContents flattens a directory listing. It returns nil when the branch,
// its head or the listing is absent.
func PathContents(repo *contract.PathContentsRepository) *model.PathContents {
	if repo == nil || repo.Branch == nil || repo.Branch.Head == nil {
		return nil
	}

	switch v := repo.Branch.Head.PathContents.(type) {
	case *contract.PathListing:
		entries := make([]model.PathEntry, 0, len(v.Results))
		for _, r := range v.Results {
			entries = append(entries, pathEntry(r))
		}
		return &model.PathContents{Status: model.PathStatusOK, Entries: entries}
	case *contract.PathUnavailable:
		status, ok := pathStatuses[v.Typename]
		if !ok {
			status = model.PathStatusUnknownPath
		}
		return &model.PathContents{Status: status, Message: v.Message, Entries: []model.PathEntry{}}
	default:
		return nil
	}
}

func pathEntry(r contract.PathEntry) model.PathEntry {
	kind := model.EntryKindDir
	if r.Typename == contract.TypePathContentFile {
		kind = model.EntryKindFile
	}
	return model.PathEntry{
		Kind:           kind,
		Name:           r.Name,
		Path:           r.Path,
		Hits:           r.Hits,
		Misses:         r.Misses,
		Partials:       r.Partials,
		Lines:          r.Lines,
		PercentCovered: Finite(r.PercentCovered),
		IsCriticalFile: kind == model.EntryKindFile && r.IsCriticalFile,
	}
}
