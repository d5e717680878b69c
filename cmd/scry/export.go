package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/matsen/scry/internal/export"
)

var (
	exportOutput string
	exportFormat string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Run a recommendation pass and export the results",
	Long: `Score recent papers with the same flags as 'scry recommend' and
write the results to a file instead of the terminal. BibTeX entries
carry the combined score in their note field so reference managers
preserve the ranking.`,
	RunE: runExport,
}

func init() {
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "Output file (default stdout)")
	exportCmd.Flags().StringVar(&exportFormat, "format", "bibtex", "Output format: bibtex or json")
	addScoringFlags(exportCmd)
	rootCmd.AddCommand(exportCmd)
}

func runExport(cmd *cobra.Command, args []string) error {
	if exportFormat != "bibtex" && exportFormat != "json" {
		exitWithError(ExitConfigError, "unknown format %q (expected bibtex or json)", exportFormat)
	}

	a := mustApp()
	ctx := cmd.Context()
	a.checkProvider(ctx)

	opts, err := buildRecommendOptions(ctx, a)
	if err != nil {
		exitWithError(ExitConfigError, "%s", err)
	}

	out, err := a.engine.Recommend(ctx, opts)
	if err != nil {
		exitWithError(exitCodeFor(err), "%s", err)
	}

	w := os.Stdout
	if exportOutput != "" {
		f, err := os.Create(exportOutput)
		if err != nil {
			exitWithError(ExitError, "creating %s: %s", exportOutput, err)
		}
		defer f.Close()
		w = f
	}

	switch exportFormat {
	case "bibtex":
		err = export.BibTeX(w, out.Records)
	case "json":
		err = export.JSON(w, out)
	}
	if err != nil {
		exitWithError(ExitError, "writing export: %s", err)
	}

	if exportOutput != "" && !jsonOutput {
		fmt.Fprintf(os.Stderr, "Wrote %d entries to %s\n", len(out.Records), exportOutput)
	}
	return nil
}
