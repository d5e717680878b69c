// Package main provides the scry CLI entry point.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

// Version is set at build time via ldflags
var Version = "dev"

// jsonOutput controls whether to emit JSON instead of human-readable text
var jsonOutput bool

// verbose enables debug logging on stderr
var verbose bool

func main() {
	// A local .env is optional.
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		// Print the error since we have SilenceErrors: true
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(ExitError)
	}
}

var rootCmd = &cobra.Command{
	Use:   "scry",
	Short: "Personalized paper recommendations from your reading library",
	Long: `scry recommends recently published papers by combining two signals
computed against your personal reading library:

  - citation proximity: how close a candidate sits to your library
    in the citation graph
  - semantic similarity: how close its title and abstract are to
    papers you already collected

Credentials and settings come from ~/.config/scry/config.yml, the
environment, or a local .env file. Run 'scry init' once to build the
library caches, then 'scry recommend' whenever you want new papers.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output JSON instead of human-readable text")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.Version = Version
}
