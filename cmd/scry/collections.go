package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var collectionsCmd = &cobra.Command{
	Use:   "collections",
	Short: "List collections in your library",
	RunE:  runCollections,
}

func init() {
	rootCmd.AddCommand(collectionsCmd)
}

func runCollections(cmd *cobra.Command, args []string) error {
	a := mustApp()
	cols, err := a.library.ListCollections(cmd.Context())
	if err != nil {
		exitWithError(ExitLibraryError, "listing collections: %s", err)
	}

	if jsonOutput {
		return outputJSON(cols)
	}

	if len(cols) == 0 {
		fmt.Println("No collections found.")
		return nil
	}
	for _, c := range cols {
		fmt.Printf("%-12s %s\n", c.ID, c.Name)
	}
	return nil
}
