package valkey

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/valkey-io/valkey-go"

	"github.com/samirrijal/routeguide/internal/core/domain"
)

// CatalogStore implements ports.CatalogStore by keeping the catalog as one
// JSON document under a single key.
type CatalogStore struct {
	client valkey.Client
	key    string
}

// New connects to addr and stores the catalog under key.
func New(addr, key string) (*CatalogStore, error) {
	client, err := valkey.NewClient(valkey.ClientOption{
		InitAddress: []string{addr},
	})
	if err != nil {
		return nil, fmt.Errorf("valkey connect: %w", err)
	}
	return NewWithClient(client, key), nil
}

// NewWithClient wraps an existing client.
func NewWithClient(client valkey.Client, key string) *CatalogStore {
	return &CatalogStore{client: client, key: key}
}

// Load reads the catalog. A missing key is an error: the catalog has not
// been seeded.
func (s *CatalogStore) Load(ctx context.Context) ([]domain.Feature, error) {
	b, err := s.client.Do(ctx, s.client.B().Get().Key(s.key).Build()).AsBytes()
	if valkey.IsValkeyNil(err) {
		return nil, fmt.Errorf("catalog key %q not found", s.key)
	}
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", s.key, err)
	}

	var features []domain.Feature
	if err := json.Unmarshal(b, &features); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}
	return features, nil
}

// Replace overwrites the stored catalog.
func (s *CatalogStore) Replace(ctx context.Context, features []domain.Feature) error {
	if features == nil {
		features = []domain.Feature{}
	}
	b, err := json.Marshal(features)
	if err != nil {
		return fmt.Errorf("encode catalog: %w", err)
	}
	cmd := s.client.B().Set().Key(s.key).Value(valkey.BinaryString(b)).Build()
	return s.client.Do(ctx, cmd).Error()
}

// Ping checks connectivity.
func (s *CatalogStore) Ping(ctx context.Context) error {
	return s.client.Do(ctx, s.client.B().Ping().Build()).Error()
}

// Close releases the client.
func (s *CatalogStore) Close() {
	s.client.Close()
}
