package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"internship-intake/internal/common/database"
	"internship-intake/internal/intake/catalog"
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write the Postgres catalog as a static YAML table",
	RunE:  runExport,
}

var (
	exportOutputFile string
	exportTimeout    time.Duration
)

func init() {
	exportCmd.Flags().StringVarP(&exportOutputFile, "out", "o", "", "Path to the output YAML file (required)")
	exportCmd.Flags().DurationVar(&exportTimeout, "timeout", 2*time.Minute, "Overall export timeout")

	if err := exportCmd.MarkFlagRequired("out"); err != nil {
		panic(fmt.Sprintf("failed to mark out flag as required: %v", err))
	}

	rootCmd.AddCommand(exportCmd)
}

// tableExporter is satisfied by *catalog.PostgresSource.
type tableExporter interface {
	ExportTable(ctx context.Context) (*catalog.Table, error)
}

func runExport(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	pg, err := database.NewPostgres(cfg.Database.Postgres)
	if err != nil {
		return err
	}
	defer pg.Close()

	ctx, cancel := context.WithTimeout(cmd.Context(), exportTimeout)
	defer cancel()

	t, err := writeTable(ctx, catalog.NewPostgresSource(pg), exportOutputFile)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "wrote %d sectors, %d roles to %s\n", len(t.Sectors), countRoles(t), exportOutputFile)
	return nil
}

func writeTable(ctx context.Context, src tableExporter, path string) (*catalog.Table, error) {
	t, err := src.ExportTable(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to export catalog: %w", err)
	}
	if len(t.Sectors) == 0 {
		return nil, fmt.Errorf("catalog is empty; refusing to write %s", path)
	}

	data, err := t.Marshal()
	if err != nil {
		return nil, fmt.Errorf("failed to encode table: %w", err)
	}
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create output directory: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return nil, fmt.Errorf("failed to write %s: %w", path, err)
	}
	return t, nil
}

func countRoles(t *catalog.Table) int {
	n := 0
	for _, s := range t.Sectors {
		n += len(s.Roles)
	}
	return n
}
