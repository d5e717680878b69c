package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/matsen/scry/internal/journal"
	"github.com/matsen/scry/internal/recommend"
)

var (
	recCollection      string
	recDays            int
	recTop             int
	recCitationWeight  float64
	recSimWeight       float64
	recMinCitation     float64
	recMinSimilarity   float64
	recJournals        []string
	recJournalsFile    string
	recLibraryJournals bool
	recExtendedList    bool
	recNoJournalFilter bool
	recDeep            bool
	recForce           bool
	recSkipReviewed    bool
)

var recommendCmd = &cobra.Command{
	Use:   "recommend",
	Short: "Score and rank recently published papers",
	Long: `Search the bibliographic index for papers published in the last
--days days, score each against your library by citation proximity and
semantic similarity, and print the top results with explanations.`,
	RunE: runRecommend,
}

// addScoringFlags registers the shared scoring flags on cmd. Both
// 'recommend' and 'export' expose the same controls.
func addScoringFlags(cmd *cobra.Command) {
	defaults := recommend.DefaultOptions()
	cmd.Flags().StringVar(&recCollection, "collection", "", "Restrict the library to a single collection ID")
	cmd.Flags().IntVar(&recDays, "days", defaults.Days, "Look-back window in days")
	cmd.Flags().IntVar(&recTop, "top", defaults.Limit, "Maximum number of recommendations")
	cmd.Flags().Float64Var(&recCitationWeight, "citation-weight", defaults.CitationWeight, "Weight of the citation score")
	cmd.Flags().Float64Var(&recSimWeight, "similarity-weight", defaults.SimilarityWeight, "Weight of the similarity score")
	cmd.Flags().Float64Var(&recMinCitation, "min-citation", defaults.MinCitationScore, "Minimum citation score to pass the filter")
	cmd.Flags().Float64Var(&recMinSimilarity, "min-similarity", defaults.MinSimilarityScore, "Minimum similarity score to pass the filter")
	cmd.Flags().StringSliceVar(&recJournals, "journals", nil, "Restrict the search to these journal names")
	cmd.Flags().StringVar(&recJournalsFile, "journals-file", "", "Read journal names from a file (one per line, # comments)")
	cmd.Flags().BoolVar(&recLibraryJournals, "library-journals", false, "Restrict the search to journals already in your library")
	cmd.Flags().BoolVar(&recExtendedList, "extended-journals", false, "Use the broader curated journal list")
	cmd.Flags().BoolVar(&recNoJournalFilter, "no-journal-filter", false, "Search all journals")
	cmd.Flags().BoolVar(&recDeep, "deep", false, "Use a depth-2 citation graph")
	cmd.Flags().BoolVar(&recForce, "force", false, "Rebuild the citation graph before scoring")
	cmd.Flags().BoolVar(&recSkipReviewed, "skip-reviewed", false, "Exclude papers already marked as reviewed")
}

func init() {
	addScoringFlags(recommendCmd)
	rootCmd.AddCommand(recommendCmd)
}

// buildRecommendOptions translates flags into engine options.
func buildRecommendOptions(ctx context.Context, a *app) (recommend.Options, error) {
	opts := recommend.DefaultOptions()
	opts.CollectionID = a.collectionID(recCollection)
	opts.Days = recDays
	opts.Limit = recTop
	opts.CitationWeight = recCitationWeight
	opts.SimilarityWeight = recSimWeight
	opts.MinCitationScore = recMinCitation
	opts.MinSimilarityScore = recMinSimilarity
	opts.Deep = recDeep
	opts.Force = recForce

	switch {
	case recNoJournalFilter:
		opts.JournalMode = recommend.JournalFilterDisabled
	case recJournalsFile != "":
		names, err := journal.LoadFile(recJournalsFile)
		if err != nil {
			return opts, err
		}
		opts.JournalMode = recommend.JournalCustomList
		opts.Journals = names
	case len(recJournals) > 0:
		opts.JournalMode = recommend.JournalCustomList
		opts.Journals = recJournals
	case recLibraryJournals:
		opts.JournalMode = recommend.JournalLibraryList
	case recExtendedList:
		opts.JournalMode = recommend.JournalExtendedList
	}

	if recSkipReviewed {
		reviews, err := a.openReviews()
		if err != nil {
			return opts, err
		}
		defer reviews.Close()
		ids, err := reviews.ReviewedIDs(ctx)
		if err != nil {
			return opts, err
		}
		opts.Exclude = ids
	}
	return opts, nil
}

func runRecommend(cmd *cobra.Command, args []string) error {
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

	if jsonOutput {
		return outputJSON(out)
	}
	printOutcomeHuman(out)
	return nil
}
