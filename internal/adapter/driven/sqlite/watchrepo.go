package sqlite

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/ericfisherdev/covlens/internal/domain/model"
	"github.com/ericfisherdev/covlens/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.WatchStore = (*WatchRepo)(nil)

// WatchRepo is the SQLite implementation of the WatchStore port interface.
type WatchRepo struct {
	db *DB
}

// NewWatchRepo creates a new WatchRepo backed by the given DB.
func NewWatchRepo(db *DB) *WatchRepo {
	return &WatchRepo{db: db}
}

// Add persists target. Path is stored normalized and filters are stored as
// JSON arrays so the unique constraint matches the cache key identity.
func (r *WatchRepo) Add(ctx context.Context, target model.QueryTarget) (model.Watch, error) {
	const query = `INSERT INTO watches (kind, provider, owner, repo, ref, path, flags, components, added_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`

	flags, err := encodeFilter(target.Flags)
	if err != nil {
		return model.Watch{}, fmt.Errorf("encode flags: %w", err)
	}
	components, err := encodeFilter(target.Components)
	if err != nil {
		return model.Watch{}, fmt.Errorf("encode components: %w", err)
	}

	target.Path = target.NormalizedPath()
	addedAt := time.Now().UTC().Truncate(time.Second)

	result, err := r.db.Writer.ExecContext(ctx, query,
		string(target.Kind), target.Provider, target.Owner, target.Repo,
		target.Ref, target.Path, flags, components, addedAt.Format(time.RFC3339),
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint") {
			return model.Watch{}, fmt.Errorf("add watch %s %s: %w", target.Kind, target.FullName(), driven.ErrWatchAlreadyExists)
		}
		return model.Watch{}, fmt.Errorf("add watch %s %s: %w", target.Kind, target.FullName(), err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return model.Watch{}, fmt.Errorf("read watch id: %w", err)
	}

	return model.Watch{ID: id, Target: target, AddedAt: addedAt}, nil
}

// Remove deletes a watch by ID.
func (r *WatchRepo) Remove(ctx context.Context, id int64) error {
	const query = `DELETE FROM watches WHERE id = ?`

	result, err := r.db.Writer.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("remove watch %d: %w", id, err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check rows affected: %w", err)
	}

	if rows == 0 {
		return fmt.Errorf("remove watch %d: %w", id, driven.ErrWatchNotFound)
	}

	return nil
}

// List returns all watches in insertion order.
func (r *WatchRepo) List(ctx context.Context) ([]model.Watch, error) {
	const query = `SELECT id, kind, provider, owner, repo, ref, path, flags, components, added_at
		FROM watches ORDER BY id`

	rows, err := r.db.Reader.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list watches: %w", err)
	}
	defer rows.Close()

	watches := []model.Watch{}
	for rows.Next() {
		w, err := scanWatch(rows)
		if err != nil {
			return nil, fmt.Errorf("scan watch: %w", err)
		}
		watches = append(watches, w)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate watches: %w", err)
	}

	return watches, nil
}

// scanner is satisfied by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanWatch(s scanner) (model.Watch, error) {
	var (
		w          model.Watch
		kind       string
		flags      string
		components string
		addedAt    string
	)

	err := s.Scan(&w.ID, &kind, &w.Target.Provider, &w.Target.Owner, &w.Target.Repo,
		&w.Target.Ref, &w.Target.Path, &flags, &components, &addedAt)
	if err != nil {
		return model.Watch{}, err
	}
	w.Target.Kind = model.QueryKind(kind)

	if err := json.Unmarshal([]byte(flags), &w.Target.Flags); err != nil {
		return model.Watch{}, fmt.Errorf("decode flags: %w", err)
	}
	if err := json.Unmarshal([]byte(components), &w.Target.Components); err != nil {
		return model.Watch{}, fmt.Errorf("decode components: %w", err)
	}

	w.AddedAt, err = parseTime(addedAt)
	if err != nil {
		return model.Watch{}, fmt.Errorf("parse added_at: %w", err)
	}

	return w, nil
}

func encodeFilter(values []string) (string, error) {
	if values == nil {
		values = []string{}
	}
	b, err := json.Marshal(values)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// parseTime tries multiple SQLite datetime formats.
func parseTime(s string) (time.Time, error) {
	formats := []string{
		"2006-01-02T15:04:05Z",
		"2006-01-02 15:04:05",
		"2006-01-02T15:04:05",
		"2006-01-02 15:04:05.000",
		"2006-01-02 15:04:05 -0700 MST",
		"2006-01-02 15:04:05.999999999 -0700 MST",
		time.RFC3339,
		time.RFC3339Nano,
	}

	for _, format := range formats {
		if t, err := time.Parse(format, s); err == nil {
			return t, nil
		}
	}

	return time.Time{}, fmt.Errorf("unrecognized time format: %s", s)
}
