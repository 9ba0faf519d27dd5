// Package main implements catalog-export, which snapshots the opportunity
// catalog into the static YAML table bundled with the intake service.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"internship-intake/internal/common/config"
)

var configFile string

var rootCmd = &cobra.Command{
	Use:   "catalog-export",
	Short: "Opportunity catalog maintenance",
	Long:  "Exports the Postgres opportunity catalog as a static YAML table, checks table files, and clears the Redis catalog cache.",
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "Path to a config file (defaults to configs/config.yaml)")
}

func loadConfig() (*config.Config, error) {
	if configFile != "" {
		return config.LoadFromFile(configFile)
	}
	return config.Load()
}

func main() {
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
