package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/matsen/scry/internal/recommend"
)

var (
	initCollection string
	initDeep       bool
	initForce      bool
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Build the library caches (embeddings and citation graph)",
	Long: `Fetch your library, embed every paper with text, and expand the
citation graph around it. Subsequent 'scry recommend' runs reuse these
caches and only pay for new candidates.`,
	RunE: runInit,
}

func init() {
	initCmd.Flags().StringVar(&initCollection, "collection", "", "Restrict to a single collection ID")
	initCmd.Flags().BoolVar(&initDeep, "deep", false, "Expand the citation graph to depth 2")
	initCmd.Flags().BoolVar(&initForce, "force", false, "Rebuild caches even if current")
	rootCmd.AddCommand(initCmd)
}

func runInit(cmd *cobra.Command, args []string) error {
	a := mustApp()
	ctx := cmd.Context()
	a.checkProvider(ctx)

	if !jsonOutput {
		fmt.Println("Building library caches (this can take a while on first run)...")
	}

	report, err := a.engine.Init(ctx, recommend.InitOptions{
		CollectionID: a.collectionID(initCollection),
		Deep:         initDeep,
		Force:        initForce,
	})
	if err != nil {
		exitWithError(exitCodeFor(err), "init failed: %s", err)
	}

	if jsonOutput {
		return outputJSON(report)
	}

	fmt.Printf("Library: %d papers, %d matched in index\n", report.LibrarySize, report.SeedCount)
	fmt.Printf("Embeddings: %d cached\n", report.EmbeddedCount)
	fmt.Printf("Citation graph: %d nodes, %d edges\n", report.GraphNodes, report.GraphEdges)
	if report.GraphPartial {
		fmt.Printf("Warning: graph is partial, %d seed(s) failed: %v\n", len(report.FailedSeeds), report.FailedSeeds)
	}
	return nil
}
