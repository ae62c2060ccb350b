package httphandler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/ericfisherdev/covlens/internal/domain/model"
	"github.com/ericfisherdev/covlens/internal/schema"
)

// maxBodyBytes limits JSON request bodies.
const maxBodyBytes = 64 << 10

// Prefetch warms the cache entry of a query target. By default the fetch runs
// in the background and 202 is returned immediately; with ?wait=true the
// handler waits and returns the resulting entry.
func (h *Handler) Prefetch(w http.ResponseWriter, r *http.Request) {
	var req QueryTargetRequest
	if !decodeBody(w, r, &req) {
		return
	}

	target := req.toTarget()
	key, err := h.queries.Key(target)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	wait, _ := strconv.ParseBool(r.URL.Query().Get("wait"))
	if !wait {
		ctx := context.WithoutCancel(r.Context())
		go func() {
			if _, err := h.queries.Prefetch(ctx, target); err != nil {
				h.logger.Debug("prefetch failed", "key", key, "error", err)
			}
		}()
		writeJSON(w, http.StatusAccepted, PrefetchResponse{Key: key})
		return
	}

	// Classified rejections are stored on the entry and reported there.
	if _, err := h.queries.Prefetch(r.Context(), target); err != nil {
		if _, ok := model.AsClassified(err); !ok {
			h.writeQueryError(w, r, err)
			return
		}
	}

	entry := toCacheEntryResponse(key, h.queries.Entry(key))
	writeJSON(w, http.StatusOK, PrefetchResponse{Key: key, Entry: &entry})
}

// GetCacheEntry returns the entry for ?key=, or every cached key when no key
// is given.
func (h *Handler) GetCacheEntry(w http.ResponseWriter, r *http.Request) {
	key := r.URL.Query().Get("key")
	if key == "" {
		keys := h.queries.Keys()
		if keys == nil {
			keys = []string{}
		}
		writeJSON(w, http.StatusOK, CacheKeysResponse{Keys: keys})
		return
	}

	writeJSON(w, http.StatusOK, toCacheEntryResponse(key, h.queries.Entry(key)))
}

// InvalidateCacheEntry drops the entry for ?key=.
func (h *Handler) InvalidateCacheEntry(w http.ResponseWriter, r *http.Request) {
	key := r.URL.Query().Get("key")
	if key == "" {
		writeError(w, http.StatusBadRequest, "key is required")
		return
	}

	if !h.queries.Invalidate(key) {
		writeError(w, http.StatusNotFound, "cache entry not found")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ListContracts returns the names of every response contract.
func (h *Handler) ListContracts(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, schema.Labels())
}

// GetContract returns the JSON Schema of a response contract.
func (h *Handler) GetContract(w http.ResponseWriter, r *http.Request) {
	doc, err := schema.Document(r.PathValue("name"))
	if errors.Is(err, schema.ErrUnknownContract) {
		writeError(w, http.StatusNotFound, "contract not found")
		return
	}
	if err != nil {
		h.logger.Error("failed to render contract", "name", r.PathValue("name"), "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	writeRawJSON(w, doc)
}

// viewModels maps view names to the response types they describe.
var viewModels = map[string]any{
	"commit_page":   CommitPageResponse{},
	"coverage_file": CoverageFileResponse{},
	"path_contents": PathContentsResponse{},
	"cache_entry":   CacheEntryResponse{},
	"error":         errorResponse{},
}

// GetViewSchema returns the JSON Schema of a view-model response.
func (h *Handler) GetViewSchema(w http.ResponseWriter, r *http.Request) {
	v, ok := viewModels[r.PathValue("name")]
	if !ok {
		writeError(w, http.StatusNotFound, "view not found")
		return
	}

	doc, err := schema.Reflect(v)
	if err != nil {
		h.logger.Error("failed to reflect view schema", "name", r.PathValue("name"), "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	writeRawJSON(w, doc)
}

func writeRawJSON(w http.ResponseWriter, doc string) {
	w.Header().Set("Content-Type", "application/schema+json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(doc))
}

// decodeBody decodes a JSON request body into v, writing a 4xx on failure.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if !isJSONRequest(r) {
		writeError(w, http.StatusUnsupportedMediaType, "content type must be application/json")
		return false
	}

	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}
