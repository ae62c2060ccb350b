// Package extract flattens decoded, deeply nested responses into the small
// view-models served to the UI. Every function here is pure: the same input
// always yields an equal output and inputs are never modified.
//
// Null propagation lives only in this package. A nil result means "no data
// for this ref", which is a legitimate state and not an error.
package extract

import (
	"math"

	"github.com/ericfisherdev/covlens/internal/contract"
	"github.com/ericfisherdev/covlens/internal/domain/model"
)

// CoverageFile normalizes the coverage of one file, whichever container it
// was loaded through (commit, branch head or pull head). It returns nil when
// the container, its coverage analytics or the file itself is absent.
func CoverageFile(repo *contract.FileRepository) *model.CoverageFileRecord {
	if repo == nil {
		return nil
	}

	container := selectContainer(repo)
	if container == nil || container.CoverageAnalytics == nil {
		return nil
	}
	analytics := container.CoverageAnalytics
	file := analytics.CoverageFile
	if file == nil {
		return nil
	}

	coverage := make(map[int]model.CoverageMark, len(file.Coverage))
	for _, lc := range file.Coverage {
		if lc.Line == nil || lc.Coverage == nil {
			continue
		}
		coverage[*lc.Line] = model.CoverageMark(*lc.Coverage)
	}

	var totals *float64
	if file.Totals != nil {
		totals = file.Totals.PercentCovered
	}

	flagNames := make([]string, 0, len(analytics.FlagNames))
	flagNames = append(flagNames, analytics.FlagNames...)

	componentNames := make([]string, 0, len(analytics.Components))
	for _, c := range analytics.Components {
		componentNames = append(componentNames, c.Name)
	}

	return &model.CoverageFileRecord{
		Content:        copyString(file.Content),
		Coverage:       coverage,
		Totals:         Finite(totals),
		FlagNames:      flagNames,
		ComponentNames: componentNames,
		HashedPath:     copyString(file.HashedPath),
	}
}

// selectContainer picks the commit a file response was loaded through. The
// documents select exactly one of these, so the order only matters for
// malformed input.
func selectContainer(repo *contract.FileRepository) *contract.FileContainer {
	switch {
	case repo.Commit != nil:
		return repo.Commit
	case repo.Branch != nil:
		return repo.Branch.Head
	case repo.Pull != nil:
		return repo.Pull.Head
	default:
		return nil
	}
}

// Finite returns *v, or 0 when v is nil, NaN or infinite.
func Finite(v *float64) float64 {
	if v == nil || math.IsNaN(*v) || math.IsInf(*v, 0) {
		return 0
	}
	return *v
}

func copyString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}
