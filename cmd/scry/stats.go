package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/matsen/scry/internal/recommend"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show cache statistics",
	RunE:  runStats,
}

func init() {
	rootCmd.AddCommand(statsCmd)
}

func runStats(cmd *cobra.Command, args []string) error {
	a := mustApp()
	stats := a.engine.CacheStats()

	reviewedCount := 0
	if reviews, err := a.openReviews(); err == nil {
		if n, err := reviews.Count(cmd.Context()); err == nil {
			reviewedCount = n
		}
		reviews.Close()
	}

	if jsonOutput {
		return outputJSON(struct {
			CacheDir string `json:"cache_dir"`
			recommend.Stats
			Reviewed int `json:"reviewed"`
		}{a.cacheDir, stats, reviewedCount})
	}

	fmt.Printf("Cache directory: %s\n", a.cacheDir)
	fmt.Printf("Embeddings: %d (model %s)\n", stats.Embeddings, a.provider.ModelName())
	fmt.Printf("Journal lookups: %d\n", stats.JournalEntries)
	fmt.Printf("Reviewed papers: %d\n", reviewedCount)
	if !stats.GraphBuilt {
		fmt.Println("Citation graph: not built (run 'scry init')")
		return nil
	}
	fmt.Printf("Citation graph: %d seeds, %d nodes, %d edges, depth %d (built %s)\n",
		stats.GraphSeeds, stats.GraphNodes, stats.GraphEdges, stats.GraphDepth,
		stats.GraphBuiltAt.Format("2006-01-02 15:04"))
	if stats.GraphPartial {
		fmt.Printf("Warning: graph is partial, %d seed(s) failed: %v\n", len(stats.FailedSeeds), stats.FailedSeeds)
	}
	return nil
}
