package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/chrolicious/hoolgg-roster/internal/schemas"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the roster document against the JSON schema",
	Long: `Check the document file as stored, without migrating it. Legacy documents
that still need migration may fail; run "roster migrate" first.`,
	Args: cobra.NoArgs,
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, _ []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	if err := schemas.ValidateDocumentFile(a.store.Path()); err != nil {
		return err
	}
	_, err = fmt.Fprintf(cmd.OutOrStdout(), "%s is valid\n", a.store.Path())
	return err
}
