package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/chrolicious/hoolgg-roster/internal/migrate"
)

var (
	migrateDryRun bool
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Upgrade the roster document to the current schema",
	Long: `Load the document, apply key renames, backfills and repairs, and write it
back. With --dry-run the file is left untouched and only the report is printed.`,
	Args: cobra.NoArgs,
	RunE: runMigrate,
}

func init() {
	migrateCmd.Flags().BoolVar(&migrateDryRun, "dry-run", false, "Report changes without writing")
	rootCmd.AddCommand(migrateCmd)
}

func runMigrate(cmd *cobra.Command, _ []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	if !migrateDryRun {
		report, err := a.store.Migrate(cmd.Context())
		if err != nil {
			return err
		}
		return printReport(cmd, report)
	}

	data, err := a.store.ReadRaw(cmd.Context())
	if err != nil {
		return err
	}
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("failed to parse %s: %w", a.store.Path(), err)
	}
	_, report, err := migrate.Migrate(raw)
	if err != nil {
		return err
	}
	return printReport(cmd, report)
}

func printReport(cmd *cobra.Command, report migrate.Report) error {
	if p, ok := textOutput(cmd); ok {
		p.PrintMigrationReport(report)
		return nil
	}
	return printJSON(cmd, report)
}
