package application

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ericfisherdev/covlens/internal/domain/model"
	"github.com/ericfisherdev/covlens/internal/domain/port/driven"
	"github.com/ericfisherdev/covlens/internal/query"
)

// warmConcurrency bounds the prefetches in flight during one warm cycle.
const warmConcurrency = 4

// WarmResult summarizes a warm cycle.
type WarmResult struct {
	Targets  int
	Failed   int
	Duration time.Duration
}

// refreshRequest represents a manual warm trigger.
type refreshRequest struct {
	done chan refreshResult
}

type refreshResult struct {
	result WarmResult
	err    error
}

// WarmService keeps every watched target prefetched. It warms all watches on
// start, then on every interval tick and on manual refresh.
type WarmService struct {
	watches   driven.WatchStore
	queries   *QueryService
	interval  time.Duration
	refreshCh chan refreshRequest
}

// NewWarmService creates a new WarmService with the required dependencies.
func NewWarmService(watches driven.WatchStore, queries *QueryService, interval time.Duration) *WarmService {
	return &WarmService{
		watches:   watches,
		queries:   queries,
		interval:  interval,
		refreshCh: make(chan refreshRequest),
	}
}

// Start runs the warm loop. It blocks until the context is canceled.
func (s *WarmService) Start(ctx context.Context) {
	if _, err := s.warmAll(ctx); err != nil {
		slog.Error("initial warm failed", "error", err)
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("warm service stopped")
			return
		case <-ticker.C:
			if _, err := s.warmAll(ctx); err != nil {
				slog.Error("warm cycle failed", "error", err)
			}
		case req := <-s.refreshCh:
			result, err := s.warmAll(ctx)
			req.done <- refreshResult{result: result, err: err}
		}
	}
}

// Refresh triggers a warm cycle outside the interval. It blocks until the
// cycle completes or the context is canceled.
func (s *WarmService) Refresh(ctx context.Context) (WarmResult, error) {
	req := refreshRequest{done: make(chan refreshResult, 1)}

	select {
	case s.refreshCh <- req:
	case <-ctx.Done():
		return WarmResult{}, ctx.Err()
	}

	select {
	case res := <-req.done:
		return res.result, res.err
	case <-ctx.Done():
		return WarmResult{}, ctx.Err()
	}
}

// AddWatch validates a target and persists its canonical form, so targets
// that warm the same cache entry share one watch.
func (s *WarmService) AddWatch(ctx context.Context, t model.QueryTarget) (model.Watch, error) {
	t, err := query.Canonical(t)
	if err != nil {
		return model.Watch{}, err
	}
	w, err := s.watches.Add(ctx, t)
	if err != nil {
		return model.Watch{}, err
	}
	slog.Info("watch added", "id", w.ID, "kind", t.Kind, "repo", t.FullName(), "ref", t.Ref)
	return w, nil
}

// RemoveWatch deletes a watch by ID.
func (s *WarmService) RemoveWatch(ctx context.Context, id int64) error {
	if err := s.watches.Remove(ctx, id); err != nil {
		return err
	}
	slog.Info("watch removed", "id", id)
	return nil
}

// ListWatches returns every persisted watch.
func (s *WarmService) ListWatches(ctx context.Context) ([]model.Watch, error) {
	return s.watches.List(ctx)
}

// warmAll prefetches every watch. A failing target is logged and counted; it
// never stops the others.
func (s *WarmService) warmAll(ctx context.Context) (WarmResult, error) {
	start := time.Now()

	watches, err := s.watches.List(ctx)
	if err != nil {
		return WarmResult{}, fmt.Errorf("listing watches: %w", err)
	}

	var failed atomic.Int64
	var g errgroup.Group
	g.SetLimit(warmConcurrency)

	for _, w := range watches {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if _, err := s.queries.Prefetch(ctx, w.Target); err != nil {
				failed.Add(1)
				slog.Warn("warm target failed",
					"watch_id", w.ID,
					"kind", w.Target.Kind,
					"repo", w.Target.FullName(),
					"error", err,
				)
			}
			return nil
		})
	}
	_ = g.Wait()

	result := WarmResult{
		Targets:  len(watches),
		Failed:   int(failed.Load()),
		Duration: time.Since(start).Round(time.Millisecond),
	}
	if ctx.Err() != nil {
		return result, ctx.Err()
	}

	slog.Info("warm cycle complete",
		"targets", result.Targets,
		"failed", result.Failed,
		"duration", result.Duration,
	)
	return result, nil
}
