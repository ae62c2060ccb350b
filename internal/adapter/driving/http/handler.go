// Package httphandler is the HTTP driving adapter serving the JSON API.
package httphandler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/ericfisherdev/covlens/internal/application"
	"github.com/ericfisherdev/covlens/internal/domain/model"
	"github.com/ericfisherdev/covlens/internal/domain/port/driven"
	"github.com/ericfisherdev/covlens/internal/query"
)

// Handler is the HTTP driving adapter that serves the REST API.
type Handler struct {
	queries *application.QueryService
	warmer  *application.WarmService
	logger  *slog.Logger
}

// NewHandler creates a Handler with all required dependencies.
func NewHandler(queries *application.QueryService, warmer *application.WarmService, logger *slog.Logger) *Handler {
	return &Handler{
		queries: queries,
		warmer:  warmer,
		logger:  logger,
	}
}

// NewServeMux creates an http.Handler with all routes registered and wrapped
// with request ID, logging, recovery and cross-origin middleware.
func NewServeMux(h *Handler, logger *slog.Logger) http.Handler {
	mux := http.NewServeMux()

	const repo = "/api/v1/repos/{provider}/{owner}/{repo}"
	mux.HandleFunc("GET "+repo+"/commit/{commitid}", h.GetCommitPage)
	mux.HandleFunc("GET "+repo+"/commit/{commitid}/file/{path...}", h.GetCommitFile)
	mux.HandleFunc("GET "+repo+"/branch/{branch}/file/{path...}", h.GetBranchFile)
	mux.HandleFunc("GET "+repo+"/pull/{pullid}/file/{path...}", h.GetPullFile)
	mux.HandleFunc("GET "+repo+"/branch/{branch}/tree", h.GetPathContents)
	mux.HandleFunc("GET "+repo+"/branch/{branch}/tree/{path...}", h.GetPathContents)

	mux.HandleFunc("POST /api/v1/prefetch", h.Prefetch)
	mux.HandleFunc("GET /api/v1/cache", h.GetCacheEntry)
	mux.HandleFunc("DELETE /api/v1/cache", h.InvalidateCacheEntry)

	mux.HandleFunc("GET /api/v1/watches", h.ListWatches)
	mux.HandleFunc("POST /api/v1/watches", h.AddWatch)
	mux.HandleFunc("DELETE /api/v1/watches/{id}", h.RemoveWatch)
	mux.HandleFunc("POST /api/v1/watches/refresh", h.RefreshWatches)

	mux.HandleFunc("GET /api/v1/contracts", h.ListContracts)
	mux.HandleFunc("GET /api/v1/contracts/{name}", h.GetContract)
	mux.HandleFunc("GET /api/v1/views/{name}", h.GetViewSchema)
	mux.HandleFunc("GET /api/v1/health", h.Health)

	// Recovery innermost so panics are caught before logging.
	wrapped := recoveryMiddleware(logger, crossOriginMiddleware(mux))
	wrapped = loggingMiddleware(logger, wrapped)
	wrapped = requestIDMiddleware(wrapped)

	return wrapped
}

func repoRef(r *http.Request) model.RepoRef {
	return model.RepoRef{
		Provider: r.PathValue("provider"),
		Owner:    r.PathValue("owner"),
		Repo:     r.PathValue("repo"),
	}
}

// filters reads repeated ?flags= and ?components= parameters in order.
func filters(r *http.Request) (flags, components []string) {
	q := r.URL.Query()
	return q["flags"], q["components"]
}

// GetCommitPage returns the header data of a commit page.
func (h *Handler) GetCommitPage(w http.ResponseWriter, r *http.Request) {
	page, err := h.queries.CommitPage(r.Context(), repoRef(r), r.PathValue("commitid"))
	if err != nil {
		h.writeQueryError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, toCommitPageResponse(page))
}

// GetCommitFile returns the coverage of a file at a commit. The body is null
// when the commit has no coverage for the file.
func (h *Handler) GetCommitFile(w http.ResponseWriter, r *http.Request) {
	flags, components := filters(r)
	rec, err := h.queries.CommitFile(r.Context(), repoRef(r), r.PathValue("commitid"), r.PathValue("path"), flags, components)
	if err != nil {
		h.writeQueryError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, toCoverageFileResponse(rec))
}

// GetBranchFile returns the coverage of a file at a branch head.
func (h *Handler) GetBranchFile(w http.ResponseWriter, r *http.Request) {
	flags, components := filters(r)
	rec, err := h.queries.BranchFile(r.Context(), repoRef(r), r.PathValue("branch"), r.PathValue("path"), flags, components)
	if err != nil {
		h.writeQueryError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, toCoverageFileResponse(rec))
}

// GetPullFile returns the coverage of a file at a pull request head.
func (h *Handler) GetPullFile(w http.ResponseWriter, r *http.Request) {
	pullID, err := strconv.Atoi(r.PathValue("pullid"))
	if err != nil || pullID <= 0 {
		writeError(w, http.StatusBadRequest, "invalid pull request id")
		return
	}

	flags, components := filters(r)
	rec, err := h.queries.PullFile(r.Context(), repoRef(r), pullID, r.PathValue("path"), flags, components)
	if err != nil {
		h.writeQueryError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, toCoverageFileResponse(rec))
}

// GetPathContents returns the directory listing under a path at a branch head.
func (h *Handler) GetPathContents(w http.ResponseWriter, r *http.Request) {
	flags, components := filters(r)
	contents, err := h.queries.PathContents(r.Context(), repoRef(r), r.PathValue("branch"), r.PathValue("path"), flags, components)
	if err != nil {
		h.writeQueryError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, toPathContentsResponse(contents))
}

// Health returns the service health status.
func (h *Handler) Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status: "ok",
		Time:   time.Now().UTC().Format(time.RFC3339),
	})
}

// writeQueryError maps a query failure to a response. Classified errors use
// their own status; transport failures are reported as a bad gateway.
func (h *Handler) writeQueryError(w http.ResponseWriter, r *http.Request, err error) {
	if ce, ok := model.AsClassified(err); ok {
		writeJSON(w, ce.Status, toErrorResponse(ce))
		return
	}

	switch {
	case errors.Is(err, query.ErrInvalidTarget):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, driven.ErrTransport):
		h.logger.Error("upstream request failed", "path", r.URL.Path, "error", err)
		writeError(w, http.StatusBadGateway, "upstream request failed")
	case errors.Is(err, context.DeadlineExceeded):
		writeError(w, http.StatusGatewayTimeout, "upstream request timed out")
	case errors.Is(err, context.Canceled):
		// The client went away; nobody reads this response.
		writeError(w, http.StatusServiceUnavailable, "request canceled")
	default:
		h.logger.Error("query failed", "path", r.URL.Path, "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}
