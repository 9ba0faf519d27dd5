// Package catalog serves the dependent category → role → location option
// lists. Lookups never fail: when the configured source errors, the
// bundled static table answers instead.
package catalog

import (
	"context"

	"internship-intake/internal/common/platform"
	"internship-intake/internal/models"
)

// Source is a backing store for the option lists.
type Source interface {
	Categories(ctx context.Context) ([]models.Option, error)
	Roles(ctx context.Context, category string) ([]models.Option, error)
	Locations(ctx context.Context, category, role string) ([]models.Option, error)
}

// HTTPSource reads the lists from the platform API.
type HTTPSource struct {
	client *platform.Client
}

func NewHTTPSource(client *platform.Client) *HTTPSource {
	return &HTTPSource{client: client}
}

func (s *HTTPSource) Categories(ctx context.Context) ([]models.Option, error) {
	return s.client.Sectors(ctx)
}

func (s *HTTPSource) Roles(ctx context.Context, category string) ([]models.Option, error) {
	return s.client.Roles(ctx, category)
}

func (s *HTTPSource) Locations(ctx context.Context, category, role string) ([]models.Option, error) {
	return s.client.Locations(ctx, category, role)
}
