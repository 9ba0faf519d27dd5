package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"internship-intake/internal/intake/catalog"
)

var checkCmd = &cobra.Command{
	Use:   "check <table.yaml>",
	Short: "Parse a static table and report problems",
	Args:  cobra.ExactArgs(1),
	RunE:  runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)
}

func runCheck(cmd *cobra.Command, args []string) error {
	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("failed to read table: %w", err)
	}
	t, err := catalog.ParseTable(data)
	if err != nil {
		return err
	}
	problems := checkTable(t)
	for _, p := range problems {
		fmt.Fprintln(cmd.OutOrStdout(), p)
	}
	if len(problems) > 0 {
		return fmt.Errorf("%d problem(s) in %s", len(problems), args[0])
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s: %d sectors, %d roles\n", args[0], len(t.Sectors), countRoles(t))
	return nil
}

// checkTable reports blank names, duplicate sectors or roles, and roles
// without locations.
func checkTable(t *catalog.Table) []string {
	var problems []string
	sectors := make(map[string]bool)
	for i, s := range t.Sectors {
		if s.Name == "" {
			problems = append(problems, fmt.Sprintf("sector #%d has no name", i+1))
			continue
		}
		if sectors[s.Name] {
			problems = append(problems, fmt.Sprintf("sector %q is listed twice", s.Name))
		}
		sectors[s.Name] = true

		roles := make(map[string]bool)
		for _, r := range s.Roles {
			switch {
			case r.Name == "":
				problems = append(problems, fmt.Sprintf("sector %q has a role with no name", s.Name))
			case roles[r.Name]:
				problems = append(problems, fmt.Sprintf("role %q is listed twice under %q", r.Name, s.Name))
			case len(r.Locations) == 0:
				problems = append(problems, fmt.Sprintf("role %q under %q has no locations", r.Name, s.Name))
			}
			roles[r.Name] = true
		}
	}
	return problems
}
