package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/swxsoc/swxingest/internal/annotation"
)

// AnnotationStore is a local annotation.Sink with the same overwrite
// semantics as the Grafana sink.
type AnnotationStore struct {
	db *sql.DB
}

// NewAnnotationStore wraps an open database.
func NewAnnotationStore(db *sql.DB) *AnnotationStore {
	return &AnnotationStore{db: db}
}

// Create inserts a, deleting same-identity rows first when overwrite is set.
func (s *AnnotationStore) Create(ctx context.Context, a annotation.Annotation, overwrite bool) error {
	tags, err := json.Marshal(a.Tags)
	if err != nil {
		return fmt.Errorf("encode tags: %w", err)
	}
	start := a.Start.UnixMilli()
	end := a.EndOrStart().UnixMilli()
	key := tagsKey(a.Tags)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if overwrite {
		if _, err := tx.ExecContext(ctx, `
DELETE FROM annotations
WHERE dashboard = ? AND panel = ? AND start_ms = ? AND end_ms = ? AND tags_key = ?;`,
			a.Dashboard, a.Panel, start, end, key); err != nil {
			return fmt.Errorf("delete existing annotation: %w", err)
		}
	}

	if _, err := tx.ExecContext(ctx, `
INSERT INTO annotations(mission, dashboard, panel, start_ms, end_ms, tags_key, tags, text, created_at)
VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?);`,
		a.Mission, a.Dashboard, a.Panel, start, end, key, string(tags), a.Text,
		time.Now().UTC().Format(time.RFC3339Nano)); err != nil {
		return fmt.Errorf("insert annotation: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// List returns stored annotations for a dashboard panel ordered by start.
func (s *AnnotationStore) List(ctx context.Context, dashboard, panel string) ([]annotation.Annotation, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT mission, start_ms, end_ms, tags, text FROM annotations
WHERE dashboard = ? AND panel = ?
ORDER BY start_ms, id;`, dashboard, panel)
	if err != nil {
		return nil, fmt.Errorf("query annotations: %w", err)
	}
	defer rows.Close()

	var out []annotation.Annotation
	for rows.Next() {
		var (
			a          annotation.Annotation
			start, end int64
			tags       string
		)
		if err := rows.Scan(&a.Mission, &start, &end, &tags, &a.Text); err != nil {
			return nil, fmt.Errorf("scan annotation: %w", err)
		}
		if err := json.Unmarshal([]byte(tags), &a.Tags); err != nil {
			return nil, fmt.Errorf("decode tags: %w", err)
		}
		a.Dashboard = dashboard
		a.Panel = panel
		a.Start = time.UnixMilli(start).UTC()
		if end != start {
			a.End = time.UnixMilli(end).UTC()
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// tagsKey is an order-independent encoding of a tag set.
func tagsKey(tags []string) string {
	sorted := slices.Clone(tags)
	slices.Sort(sorted)
	return strings.Join(sorted, "\x1f")
}
