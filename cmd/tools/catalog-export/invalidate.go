package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"internship-intake/internal/common/database"
	"internship-intake/internal/common/logger"
	"internship-intake/internal/intake/catalog"
)

var invalidateCmd = &cobra.Command{
	Use:   "invalidate-cache",
	Short: "Drop the cached catalog lists from Redis",
	RunE:  runInvalidate,
}

func init() {
	rootCmd.AddCommand(invalidateCmd)
}

func runInvalidate(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	rdb, err := database.NewRedis(cfg.Database.Redis)
	if err != nil {
		return err
	}
	defer rdb.Close()

	cache := catalog.NewCachedSource(nil, rdb.Client, 0, logger.NewNoOpLogger())
	if err := cache.Invalidate(cmd.Context()); err != nil {
		return fmt.Errorf("failed to invalidate catalog cache: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), "catalog cache cleared")
	return nil
}
