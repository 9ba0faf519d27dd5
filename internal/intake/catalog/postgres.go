package catalog

import (
	"context"

	"internship-intake/internal/common/database"
	"internship-intake/internal/common/errors"
	"internship-intake/internal/models"
)

const (
	sectorsQuery = `
		SELECT DISTINCT s.sector_name
		FROM sectors s
		JOIN organization_sectors os ON s.sector_id = os.sector_id
		JOIN opportunities o ON os.org_sector_id = o.org_sector_id
		ORDER BY s.sector_name`

	rolesQuery = `
		SELECT DISTINCT o.role
		FROM opportunities o
		JOIN organization_sectors os ON o.org_sector_id = os.org_sector_id
		JOIN sectors s ON os.sector_id = s.sector_id
		WHERE s.sector_name = $1
		ORDER BY o.role`

	locationsQuery = `
		SELECT DISTINCT o.location
		FROM opportunities o
		JOIN organization_sectors os ON o.org_sector_id = os.org_sector_id
		JOIN sectors s ON os.sector_id = s.sector_id
		WHERE s.sector_name = $1 AND o.role = $2
		ORDER BY o.location`
)

// PostgresSource reads the lists straight from the opportunities tables.
type PostgresSource struct {
	db *database.PostgresClient
}

func NewPostgresSource(db *database.PostgresClient) *PostgresSource {
	return &PostgresSource{db: db}
}

func (s *PostgresSource) Categories(ctx context.Context) ([]models.Option, error) {
	return s.options(ctx, "sectors", sectorsQuery)
}

func (s *PostgresSource) Roles(ctx context.Context, category string) ([]models.Option, error) {
	return s.options(ctx, "roles", rolesQuery, category)
}

func (s *PostgresSource) Locations(ctx context.Context, category, role string) ([]models.Option, error) {
	return s.options(ctx, "locations", locationsQuery, category, role)
}

func (s *PostgresSource) options(ctx context.Context, name, query string, args ...interface{}) ([]models.Option, error) {
	values, err := s.db.QueryStrings(ctx, query, args...)
	if err != nil {
		return nil, errors.NewQueryExecutionError(name, err)
	}
	return models.OptionsFromValues(values), nil
}

// ExportTable walks every sector and role into a static Table.
func (s *PostgresSource) ExportTable(ctx context.Context) (*Table, error) {
	sectors, err := s.Categories(ctx)
	if err != nil {
		return nil, err
	}

	t := &Table{}
	for _, sec := range sectors {
		entry := SectorEntry{Name: sec.Value, Roles: []RoleEntry{}}
		roles, err := s.Roles(ctx, sec.Value)
		if err != nil {
			return nil, err
		}
		for _, r := range roles {
			locs, err := s.Locations(ctx, sec.Value, r.Value)
			if err != nil {
				return nil, err
			}
			values := make([]string, 0, len(locs))
			for _, l := range locs {
				values = append(values, l.Value)
			}
			entry.Roles = append(entry.Roles, RoleEntry{Name: r.Value, Locations: values})
		}
		t.Sectors = append(t.Sectors, entry)
	}
	return t, nil
}
