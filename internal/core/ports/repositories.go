package ports

import (
	"context"

	"github.com/samirrijal/routeguide/internal/core/domain"
)

// CatalogSource loads the feature catalog once at startup.
type CatalogSource interface {
	Load(ctx context.Context) ([]domain.Feature, error)
}

// CatalogStore is a CatalogSource that can also be (re)written, used by the
// seed command.
type CatalogStore interface {
	CatalogSource
	Replace(ctx context.Context, features []domain.Feature) error
}
