package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/samirrijal/routeguide/internal/core/domain"
)

// FeatureRepo implements ports.CatalogStore on the features table.
type FeatureRepo struct {
	db *DB
}

func NewFeatureRepo(db *DB) *FeatureRepo {
	return &FeatureRepo{db: db}
}

// Load returns the whole catalog in its stored order.
func (r *FeatureRepo) Load(ctx context.Context) ([]domain.Feature, error) {
	rows, err := r.db.Pool.Query(ctx, `
		SELECT name, latitude, longitude
		FROM features ORDER BY position
	`)
	if err != nil {
		return nil, fmt.Errorf("query features: %w", err)
	}
	defer rows.Close()

	var features []domain.Feature
	for rows.Next() {
		var f domain.Feature
		if err := rows.Scan(&f.Name, &f.Location.Latitude, &f.Location.Longitude); err != nil {
			return nil, fmt.Errorf("scan feature: %w", err)
		}
		features = append(features, f)
	}
	return features, rows.Err()
}

// Replace swaps the stored catalog for features in one transaction.
func (r *FeatureRepo) Replace(ctx context.Context, features []domain.Feature) error {
	tx, err := r.db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `DELETE FROM features`); err != nil {
		return fmt.Errorf("clear features: %w", err)
	}

	_, err = tx.CopyFrom(ctx,
		pgx.Identifier{"features"},
		[]string{"position", "name", "latitude", "longitude"},
		pgx.CopyFromSlice(len(features), func(i int) ([]any, error) {
			f := features[i]
			return []any{i, f.Name, f.Location.Latitude, f.Location.Longitude}, nil
		}),
	)
	if err != nil {
		return fmt.Errorf("copy features: %w", err)
	}

	return tx.Commit(ctx)
}
