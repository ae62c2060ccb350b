package httphandler

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/ericfisherdev/covlens/internal/application"
	"github.com/ericfisherdev/covlens/internal/domain/model"
	"github.com/ericfisherdev/covlens/internal/extract"
)

// writeJSON marshals v to JSON and writes it to the response with the given
// status code. If marshaling fails, a 500 error is written instead.
func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"internal server error"}`))
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}

// writeError writes a JSON error response with the given status code and message.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

// errorResponse is the standard error response body. Classified errors also
// carry their kind so the UI can pick a treatment without reading messages.
type errorResponse struct {
	Error      string `json:"error"`
	Kind       string `json:"kind,omitempty"`
	Status     int    `json:"status,omitempty"`
	Detail     string `json:"detail,omitempty"`
	DetailHTML string `json:"detail_html,omitempty"`
	ActionURL  string `json:"action_url,omitempty"`
}

func toErrorResponse(ce *model.ClassifiedError) errorResponse {
	return errorResponse{
		Error:      string(ce.Kind),
		Kind:       string(ce.Kind),
		Status:     ce.Status,
		Detail:     ce.Detail,
		DetailHTML: RenderMarkdown(ce.Detail),
		ActionURL:  ce.ActionURL,
	}
}

// CommitPageResponse is the JSON representation of a commit page header.
type CommitPageResponse struct {
	IsCurrentUserPartOfOrg bool                   `json:"is_current_user_part_of_org"`
	Private                bool                   `json:"private"`
	BundleAnalysisEnabled  bool                   `json:"bundle_analysis_enabled"`
	CoverageEnabled        bool                   `json:"coverage_enabled"`
	Commit                 *CommitSummaryResponse `json:"commit"`
}

// CommitSummaryResponse carries the coverage and bundle summaries of a commit.
type CommitSummaryResponse struct {
	CommitID string                  `json:"commit_id"`
	Coverage CoverageSummaryResponse `json:"coverage"`
	Bundle   BundleSummaryResponse   `json:"bundle"`
}

// CoverageSummaryResponse is the patch coverage summary of a commit.
type CoverageSummaryResponse struct {
	Kind          string   `json:"kind"`
	MissesCount   int      `json:"misses_count"`
	PartialsCount int      `json:"partials_count"`
	PatchCoverage *float64 `json:"patch_coverage"`
	Message       string   `json:"message"`
}

// BundleSummaryResponse is the bundle size summary of a commit.
type BundleSummaryResponse struct {
	Report     string `json:"report"`
	IsCached   bool   `json:"is_cached"`
	Comparison string `json:"comparison"`
	SizeDelta  *int64 `json:"size_delta"`
	SizeHuman  string `json:"size_human,omitempty"`
	Message    string `json:"message"`
}

// CoverageFileResponse is the per-file coverage view. Coverage maps line
// numbers to "H", "M" or "P".
type CoverageFileResponse struct {
	Content        *string           `json:"content"`
	Coverage       map[string]string `json:"coverage"`
	Totals         float64           `json:"totals"`
	FlagNames      []string          `json:"flag_names"`
	ComponentNames []string          `json:"component_names"`
	HashedPath     *string           `json:"hashed_path,omitempty"`
}

// PathContentsResponse is a directory listing with coverage totals.
type PathContentsResponse struct {
	Status  string              `json:"status"`
	Message string              `json:"message,omitempty"`
	Entries []PathEntryResponse `json:"entries"`
}

// PathEntryResponse is one directory or file of a listing.
type PathEntryResponse struct {
	Kind           string  `json:"kind"`
	Name           string  `json:"name"`
	Path           string  `json:"path"`
	Hits           int     `json:"hits"`
	Misses         int     `json:"misses"`
	Partials       int     `json:"partials"`
	Lines          int     `json:"lines"`
	PercentCovered float64 `json:"percent_covered"`
	IsCriticalFile bool    `json:"is_critical_file"`
}

// QueryTargetRequest is the JSON body addressing one query, used by the
// prefetch and watch endpoints.
type QueryTargetRequest struct {
	Kind       string   `json:"kind"`
	Provider   string   `json:"provider"`
	Owner      string   `json:"owner"`
	Repo       string   `json:"repo"`
	Ref        string   `json:"ref"`
	Path       string   `json:"path"`
	Flags      []string `json:"flags"`
	Components []string `json:"components"`
}

// PrefetchResponse reports the cache key a prefetch warmed.
type PrefetchResponse struct {
	Key   string              `json:"key"`
	Entry *CacheEntryResponse `json:"entry,omitempty"`
}

// CacheEntryResponse is the {data, error, is_loading} triple of a cache key.
type CacheEntryResponse struct {
	Key       string         `json:"key"`
	Data      any            `json:"data"`
	HasData   bool           `json:"has_data"`
	Error     *errorResponse `json:"error"`
	IsLoading bool           `json:"is_loading"`
	UpdatedAt string         `json:"updated_at,omitempty"`
}

// CacheKeysResponse lists every cached key.
type CacheKeysResponse struct {
	Keys []string `json:"keys"`
}

// WatchResponse is the JSON representation of a watched query target.
type WatchResponse struct {
	ID      int64              `json:"id"`
	Target  QueryTargetRequest `json:"target"`
	Key     string             `json:"key"`
	AddedAt string             `json:"added_at"`
}

// WarmResponse summarizes a manual warm cycle.
type WarmResponse struct {
	Targets    int   `json:"targets"`
	Failed     int   `json:"failed"`
	DurationMS int64 `json:"duration_ms"`
}

// HealthResponse is the JSON representation of the health check endpoint.
type HealthResponse struct {
	Status string `json:"status"`
	Time   string `json:"time"`
}

func toCommitPageResponse(p *model.CommitPage) *CommitPageResponse {
	if p == nil {
		return nil
	}

	resp := &CommitPageResponse{
		IsCurrentUserPartOfOrg: p.IsCurrentUserPartOfOrg,
		Private:                p.Private,
		BundleAnalysisEnabled:  p.BundleAnalysisEnabled,
		CoverageEnabled:        p.CoverageEnabled,
	}
	if c := p.Commit; c != nil {
		bundle := BundleSummaryResponse{
			Report:     string(c.Bundle.Report),
			IsCached:   c.Bundle.IsCached,
			Comparison: string(c.Bundle.Comparison),
			SizeDelta:  c.Bundle.SizeDelta,
			Message:    c.Bundle.Message,
		}
		if c.Bundle.HasSizeDelta() {
			bundle.SizeHuman = extract.FormatSize(*c.Bundle.SizeDelta)
		}

		resp.Commit = &CommitSummaryResponse{
			CommitID: c.CommitID,
			Coverage: CoverageSummaryResponse{
				Kind:          string(c.Coverage.Kind),
				MissesCount:   c.Coverage.MissesCount,
				PartialsCount: c.Coverage.PartialsCount,
				PatchCoverage: c.Coverage.PatchCoverage,
				Message:       c.Coverage.Message,
			},
			Bundle: bundle,
		}
	}
	return resp
}

func toCoverageFileResponse(r *model.CoverageFileRecord) *CoverageFileResponse {
	if r == nil {
		return nil
	}

	coverage := make(map[string]string, len(r.Coverage))
	for line, mark := range r.Coverage {
		coverage[strconv.Itoa(line)] = string(mark)
	}

	return &CoverageFileResponse{
		Content:        r.Content,
		Coverage:       coverage,
		Totals:         r.Totals,
		FlagNames:      r.FlagNames,
		ComponentNames: r.ComponentNames,
		HashedPath:     r.HashedPath,
	}
}

func toPathContentsResponse(p *model.PathContents) *PathContentsResponse {
	if p == nil {
		return nil
	}

	entries := make([]PathEntryResponse, 0, len(p.Entries))
	for _, e := range p.Entries {
		entries = append(entries, PathEntryResponse{
			Kind:           string(e.Kind),
			Name:           e.Name,
			Path:           e.Path,
			Hits:           e.Hits,
			Misses:         e.Misses,
			Partials:       e.Partials,
			Lines:          e.Lines,
			PercentCovered: e.PercentCovered,
			IsCriticalFile: e.IsCriticalFile,
		})
	}

	return &PathContentsResponse{
		Status:  string(p.Status),
		Message: p.Message,
		Entries: entries,
	}
}

// toDataResponse converts a cached view-model to its JSON representation.
func toDataResponse(v any) any {
	switch d := v.(type) {
	case *model.CommitPage:
		return toCommitPageResponse(d)
	case *model.CoverageFileRecord:
		return toCoverageFileResponse(d)
	case *model.PathContents:
		return toPathContentsResponse(d)
	default:
		return d
	}
}

func toCacheEntryResponse(key string, e model.CacheEntry) CacheEntryResponse {
	resp := CacheEntryResponse{
		Key:       key,
		Data:      toDataResponse(e.Data),
		HasData:   e.HasData,
		IsLoading: e.IsLoading,
	}
	if ce, ok := model.AsClassified(e.Err); ok {
		body := toErrorResponse(ce)
		resp.Error = &body
	}
	if !e.UpdatedAt.IsZero() {
		resp.UpdatedAt = e.UpdatedAt.UTC().Format(time.RFC3339)
	}
	return resp
}

func (r QueryTargetRequest) toTarget() model.QueryTarget {
	return model.QueryTarget{
		Kind:       model.QueryKind(r.Kind),
		RepoRef:    model.RepoRef{Provider: r.Provider, Owner: r.Owner, Repo: r.Repo},
		Ref:        r.Ref,
		Path:       r.Path,
		Flags:      r.Flags,
		Components: r.Components,
	}
}

func toQueryTargetRequest(t model.QueryTarget) QueryTargetRequest {
	flags := t.Flags
	if flags == nil {
		flags = []string{}
	}
	components := t.Components
	if components == nil {
		components = []string{}
	}

	return QueryTargetRequest{
		Kind:       string(t.Kind),
		Provider:   t.Provider,
		Owner:      t.Owner,
		Repo:       t.Repo,
		Ref:        t.Ref,
		Path:       t.Path,
		Flags:      flags,
		Components: components,
	}
}

func toWarmResponse(r application.WarmResult) WarmResponse {
	return WarmResponse{
		Targets:    r.Targets,
		Failed:     r.Failed,
		DurationMS: r.Duration.Milliseconds(),
	}
}
