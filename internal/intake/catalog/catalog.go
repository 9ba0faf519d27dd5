package catalog

import (
	"context"

	"internship-intake/internal/common/logger"
	"internship-intake/internal/common/metrics"
	"internship-intake/internal/models"
)

// Catalog answers option lookups from its primary source and falls back to
// the static table on any error. Callers cannot tell which one answered.
type Catalog struct {
	primary  Source
	fallback Source
	logger   logger.Logger
}

// New builds a catalog over primary. A nil primary serves the bundled
// table only.
func New(primary Source, log logger.Logger) *Catalog {
	return NewWithFallback(primary, Bundled(), log)
}

func NewWithFallback(primary Source, fallback Source, log logger.Logger) *Catalog {
	return &Catalog{
		primary:  primary,
		fallback: fallback,
		logger:   logger.ForComponent(log, "catalog"),
	}
}

func (c *Catalog) Categories(ctx context.Context) []models.Option {
	return c.lookup(ctx, "categories", func(s Source) ([]models.Option, error) {
		return s.Categories(ctx)
	})
}

// Roles is empty for an empty or unknown category.
func (c *Catalog) Roles(ctx context.Context, category string) []models.Option {
	if category == "" {
		return []models.Option{}
	}
	return c.lookup(ctx, "roles", func(s Source) ([]models.Option, error) {
		return s.Roles(ctx, category)
	})
}

// Locations is empty unless both category and role resolve.
func (c *Catalog) Locations(ctx context.Context, category, role string) []models.Option {
	if category == "" || role == "" {
		return []models.Option{}
	}
	return c.lookup(ctx, "locations", func(s Source) ([]models.Option, error) {
		return s.Locations(ctx, category, role)
	})
}

func (c *Catalog) lookup(ctx context.Context, name string, fn func(Source) ([]models.Option, error)) []models.Option {
	if c.primary != nil {
		opts, err := fn(c.primary)
		if err == nil {
			if opts == nil {
				opts = []models.Option{}
			}
			return opts
		}
		c.logger.Warn("catalog source failed, using static table", map[string]interface{}{
			"lookup": name,
			"error":  err.Error(),
		})
		metrics.CatalogFallbacks.WithLabelValues(name).Inc()
	}

	opts, err := fn(c.fallback)
	if err != nil || opts == nil {
		return []models.Option{}
	}
	return opts
}
