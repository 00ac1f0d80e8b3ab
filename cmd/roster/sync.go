package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

var (
	syncAll bool
)

var syncCmd = &cobra.Command{
	Use:   "sync [character-id]",
	Short: "Sync characters from the provider API",
	Long: `Pull equipment, profile, avatar and stats for one character, or for every
character with --all (or when no id is given).`,
	Args: cobra.MaximumNArgs(1),
	RunE: runSync,
}

func init() {
	syncCmd.Flags().BoolVar(&syncAll, "all", false, "Sync every character")
	rootCmd.AddCommand(syncCmd)
}

func runSync(cmd *cobra.Command, args []string) error {
	if syncAll && len(args) > 0 {
		return fmt.Errorf("--all cannot be combined with a character id")
	}

	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	if len(args) == 0 {
		report, err := a.service.SyncAll(cmd.Context())
		if err != nil {
			return err
		}
		if p, ok := textOutput(cmd); ok {
			p.PrintSyncReport(report)
			return nil
		}
		return printJSON(cmd, report)
	}

	id, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("invalid character id %q", args[0])
	}
	_, outcome, err := a.service.SyncCharacter(cmd.Context(), id)
	if err != nil {
		return err
	}
	if p, ok := textOutput(cmd); ok {
		p.PrintSyncOutcome(outcome)
		return nil
	}
	return printJSON(cmd, outcome)
}
