package catalog

import (
	"context"
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"

	"internship-intake/internal/models"
)

//go:embed static_table.yaml
var bundledTable []byte

// Table is the on-disk shape of a static catalog. Order is preserved.
type Table struct {
	Sectors []SectorEntry `yaml:"sectors"`
}

type SectorEntry struct {
	Name  string      `yaml:"name"`
	Roles []RoleEntry `yaml:"roles"`
}

type RoleEntry struct {
	Name      string   `yaml:"name"`
	Locations []string `yaml:"locations"`
}

func ParseTable(data []byte) (*Table, error) {
	var t Table
	if err := yaml.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("failed to parse catalog table: %w", err)
	}
	return &t, nil
}

func (t *Table) Marshal() ([]byte, error) {
	return yaml.Marshal(t)
}

// StaticTable serves a Table. It implements Source and never errors.
type StaticTable struct {
	table *Table
}

func NewStaticTable(t *Table) *StaticTable {
	if t == nil {
		t = &Table{}
	}
	return &StaticTable{table: t}
}

// Bundled returns the table compiled into the binary.
func Bundled() *StaticTable {
	t, err := ParseTable(bundledTable)
	if err != nil {
		panic(err)
	}
	return NewStaticTable(t)
}

func (s *StaticTable) Categories(_ context.Context) ([]models.Option, error) {
	out := make([]models.Option, 0, len(s.table.Sectors))
	for _, sec := range s.table.Sectors {
		out = append(out, models.NewOption(sec.Name))
	}
	return out, nil
}

func (s *StaticTable) Roles(_ context.Context, category string) ([]models.Option, error) {
	sec := s.sector(category)
	if sec == nil {
		return []models.Option{}, nil
	}
	out := make([]models.Option, 0, len(sec.Roles))
	for _, r := range sec.Roles {
		out = append(out, models.NewOption(r.Name))
	}
	return out, nil
}

func (s *StaticTable) Locations(_ context.Context, category, role string) ([]models.Option, error) {
	sec := s.sector(category)
	if sec == nil {
		return []models.Option{}, nil
	}
	for _, r := range sec.Roles {
		if r.Name == role {
			return models.OptionsFromValues(r.Locations), nil
		}
	}
	return []models.Option{}, nil
}

func (s *StaticTable) sector(name string) *SectorEntry {
	for i := range s.table.Sectors {
		if s.table.Sectors[i].Name == name {
			return &s.table.Sectors[i]
		}
	}
	return nil
}
