package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

var showCmd = &cobra.Command{
	Use:   "show [character-id]",
	Short: "Print the roster document or one character",
	Long:  `Print the document with derived fields, or a single character when an id is given.`,
	Args:  cobra.MaximumNArgs(1),
	RunE:  runShow,
}

func init() {
	rootCmd.AddCommand(showCmd)
}

func runShow(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	if len(args) == 0 {
		view, err := a.service.Document(cmd.Context())
		if err != nil {
			return err
		}
		if p, ok := textOutput(cmd); ok {
			p.PrintRoster(view)
			return nil
		}
		return printJSON(cmd, view)
	}

	id, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("invalid character id %q", args[0])
	}
	c, err := a.service.Character(cmd.Context(), id)
	if err != nil {
		return err
	}
	return printJSON(cmd, c)
}
