package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alanyoungcy/polyportfolio/internal/domain"
)

// LabelStore implements domain.LabelStore over the sector_labels table.
type LabelStore struct {
	pool *pgxpool.Pool
}

// NewLabelStore creates a LabelStore backed by the given connection pool.
func NewLabelStore(pool *pgxpool.Pool) *LabelStore {
	return &LabelStore{pool: pool}
}

// Load returns every stored slug and label.
func (s *LabelStore) Load(ctx context.Context) (map[string]string, error) {
	rows, err := s.pool.Query(ctx, `SELECT slug, label FROM sector_labels`)
	if err != nil {
		return nil, fmt.Errorf("postgres: load labels: %w", err)
	}
	defer rows.Close()

	labels := make(map[string]string)
	for rows.Next() {
		var slug, label string
		if err := rows.Scan(&slug, &label); err != nil {
			return nil, fmt.Errorf("postgres: scan label: %w", err)
		}
		labels[slug] = label
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: load labels: %w", err)
	}
	return labels, nil
}

// Save replaces the table contents with labels in one transaction.
func (s *LabelStore) Save(ctx context.Context, labels map[string]string) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("postgres: begin save labels: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `DELETE FROM sector_labels`); err != nil {
		return fmt.Errorf("postgres: clear labels: %w", err)
	}

	rows := make([][]any, 0, len(labels))
	for slug, label := range labels {
		rows = append(rows, []any{slug, label})
	}
	if _, err := tx.CopyFrom(ctx,
		pgx.Identifier{"sector_labels"},
		[]string{"slug", "label"},
		pgx.CopyFromRows(rows),
	); err != nil {
		return fmt.Errorf("postgres: copy %d labels: %w", len(rows), err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("postgres: commit labels: %w", err)
	}
	return nil
}

var _ domain.LabelStore = (*LabelStore)(nil)
