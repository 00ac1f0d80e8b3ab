package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/chrolicious/hoolgg-roster/internal/types"
)

var weekCmd = &cobra.Command{
	Use:   "week <n>",
	Short: "Set the current season week",
	Long:  `Set meta.current_week. Advancing seeds an empty progress entry for the new week on every character.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runWeek,
}

var resetDailyCmd = &cobra.Command{
	Use:   "reset-daily",
	Short: "Clear every character's daily tasks",
	Args:  cobra.NoArgs,
	RunE:  runResetDaily,
}

func init() {
	rootCmd.AddCommand(weekCmd)
	rootCmd.AddCommand(resetDailyCmd)
}

func runWeek(cmd *cobra.Command, args []string) error {
	week, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("invalid week %q", args[0])
	}

	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	meta, err := a.service.SetWeek(cmd.Context(), types.WeekRequest{CurrentWeek: &week})
	if err != nil {
		return err
	}
	return printJSON(cmd, meta)
}

func runResetDaily(cmd *cobra.Command, _ []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	if err := a.service.ResetDaily(cmd.Context()); err != nil {
		return err
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), "Daily tasks cleared")
	return err
}
