package httphandler

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/ericfisherdev/covlens/internal/domain/model"
	"github.com/ericfisherdev/covlens/internal/domain/port/driven"
	"github.com/ericfisherdev/covlens/internal/query"
)

// ListWatches returns every watched query target.
func (h *Handler) ListWatches(w http.ResponseWriter, r *http.Request) {
	watches, err := h.warmer.ListWatches(r.Context())
	if err != nil {
		h.logger.Error("failed to list watches", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	resp := make([]WatchResponse, 0, len(watches))
	for _, wt := range watches {
		resp = append(resp, toWatchResponse(wt))
	}

	writeJSON(w, http.StatusOK, resp)
}

// AddWatch adds a query target to the watchlist.
func (h *Handler) AddWatch(w http.ResponseWriter, r *http.Request) {
	var req QueryTargetRequest
	if !decodeBody(w, r, &req) {
		return
	}

	wt, err := h.warmer.AddWatch(r.Context(), req.toTarget())
	if err != nil {
		switch {
		case errors.Is(err, query.ErrInvalidTarget):
			writeError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, driven.ErrWatchAlreadyExists):
			writeError(w, http.StatusConflict, "target is already watched")
		default:
			h.logger.Error("failed to add watch", "error", err)
			writeError(w, http.StatusInternalServerError, "internal server error")
		}
		return
	}

	writeJSON(w, http.StatusCreated, toWatchResponse(wt))
}

// RemoveWatch removes a watch by ID.
func (h *Handler) RemoveWatch(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid watch id")
		return
	}

	if err := h.warmer.RemoveWatch(r.Context(), id); err != nil {
		if errors.Is(err, driven.ErrWatchNotFound) {
			writeError(w, http.StatusNotFound, "watch not found")
			return
		}
		h.logger.Error("failed to remove watch", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// RefreshWatches prefetches every watch now and reports the outcome.
func (h *Handler) RefreshWatches(w http.ResponseWriter, r *http.Request) {
	result, err := h.warmer.Refresh(r.Context())
	if err != nil {
		h.logger.Error("manual warm failed", "error", err)
		writeError(w, http.StatusInternalServerError, "refresh failed")
		return
	}

	writeJSON(w, http.StatusOK, toWarmResponse(result))
}

func toWatchResponse(wt model.Watch) WatchResponse {
	return WatchResponse{
		ID:      wt.ID,
		Target:  toQueryTargetRequest(wt.Target),
		Key:     watchKey(wt.Target),
		AddedAt: wt.AddedAt.UTC().Format(time.RFC3339),
	}
}

// watchKey is the cache key a watch warms. Rows stored before targets were
// canonicalized are keyed through Canonical as well.
func watchKey(t model.QueryTarget) string {
	if c, err := query.Canonical(t); err == nil {
		t = c
	}
	return query.Key(t)
}
