package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/matsen/scry/internal/cache"
	"github.com/matsen/scry/internal/config"
)

var (
	cacheClearAll bool
	cacheClearYes bool
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Manage the local caches",
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete cached embeddings, the citation graph, and journal lookups",
	Long: `Delete the embedding cache, the citation graph, and cached journal
lookups. Reviewed-paper history is kept unless --all is given.`,
	RunE: runCacheClear,
}

func init() {
	cacheClearCmd.Flags().BoolVar(&cacheClearAll, "all", false, "Also clear reviewed-paper history")
	cacheClearCmd.Flags().BoolVarP(&cacheClearYes, "yes", "y", false, "Skip the confirmation prompt")
	cacheCmd.AddCommand(cacheClearCmd)
	rootCmd.AddCommand(cacheCmd)
}

func runCacheClear(cmd *cobra.Command, args []string) error {
	a := mustApp()

	if !cacheClearYes && !jsonOutput {
		fmt.Printf("This deletes cached data under %s. Continue? [y/N] ", a.cacheDir)
		var answer string
		fmt.Scanln(&answer)
		if answer != "y" && answer != "Y" && answer != "yes" {
			fmt.Println("Aborted.")
			return nil
		}
	}

	if err := a.store.InvalidateAll(); err != nil {
		exitWithError(ExitError, "clearing embeddings: %s", err)
	}
	if err := cache.RemoveGraph(config.GraphPath(a.cacheDir)); err != nil {
		exitWithError(ExitError, "removing citation graph: %s", err)
	}
	if err := a.resolver.Clear(); err != nil {
		exitWithError(ExitError, "clearing journal cache: %s", err)
	}

	cleared := []string{"embeddings", "citation graph", "journal lookups"}
	if cacheClearAll {
		reviews, err := a.openReviews()
		if err != nil {
			exitWithError(ExitError, "opening reviewed store: %s", err)
		}
		defer reviews.Close()
		if err := reviews.Clear(cmd.Context()); err != nil {
			exitWithError(ExitError, "clearing reviewed history: %s", err)
		}
		cleared = append(cleared, "reviewed history")
	}

	if jsonOutput {
		return outputJSON(struct {
			Cleared []string `json:"cleared"`
		}{cleared})
	}
	for _, name := range cleared {
		fmt.Printf("Cleared %s.\n", name)
	}
	return nil
}
