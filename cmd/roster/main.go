// Package main provides the entry point for the roster CLI and HTTP API server.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var (
	verbose   bool
	dataFile  string
	logLevel  string
	logFormat string
	output    string
)

var rootCmd = &cobra.Command{
	Use:   "roster",
	Short: "Character roster tracker",
	Long: "roster keeps a single-file record of characters, their gear, weekly progress and wishlists, " +
		"and syncs equipment from the game provider API.",
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVar(&dataFile, "data-file", "", "Path to the roster document (overrides ROSTER_DATA_FILE)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn, error")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "Log format: json or console")
	rootCmd.PersistentFlags().StringVarP(&output, "output", "o", "json", "Output format: json or text")
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
