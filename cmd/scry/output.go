package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/matsen/scry/internal/recommend"
)

// Output formatting constants
const (
	TitleMaxLen     = 78
	AuthorsMaxCount = 3
)

// outputJSON marshals v to indented JSON on stdout.
func outputJSON(v interface{}) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

// ErrorResponse is the JSON error envelope.
type ErrorResponse struct {
	Error string `json:"error"`
}

// exitWithError prints an error in the active output format and exits.
func exitWithError(code int, format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	if jsonOutput {
		outputJSON(ErrorResponse{Error: msg})
	} else {
		fmt.Fprintf(os.Stderr, "error: %s\n", msg)
	}
	os.Exit(code)
}

// exitCodeFor maps engine errors to exit codes.
func exitCodeFor(err error) int {
	switch {
	case errors.Is(err, recommend.ErrConfig):
		return ExitConfigError
	case errors.Is(err, recommend.ErrLibraryUnavailable):
		return ExitLibraryError
	case errors.Is(err, recommend.ErrIndexUnavailable):
		return ExitIndexError
	default:
		return ExitError
	}
}

// truncateString shortens s to maxLen runes, appending "..." when truncated.
func truncateString(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return string(runes[:maxLen])
	}
	return string(runes[:maxLen-3]) + "..."
}

// formatAuthors renders up to maxCount author names, then "et al."
func formatAuthors(authors []string, maxCount int) string {
	if len(authors) == 0 {
		return ""
	}
	if len(authors) <= maxCount {
		return strings.Join(authors, ", ")
	}
	return strings.Join(authors[:maxCount], ", ") + ", et al."
}

// printOutcomeHuman renders a scored recommendation run for terminals.
func printOutcomeHuman(out *recommend.Outcome) {
	if out.GraphPartial {
		fmt.Fprintf(os.Stderr, "warning: citation graph is partial (%d seed(s) failed); citation scores may be underestimated\n",
			len(out.FailedSeeds))
	}
	for _, name := range out.UnresolvedJournals {
		fmt.Fprintf(os.Stderr, "warning: journal not found in index: %s\n", name)
	}

	if len(out.Records) == 0 {
		fmt.Println("No recommendations matched. Try a longer --days window or looser thresholds.")
		return
	}

	fmt.Printf("Found %d papers published %s to %s (%d passed filters):\n\n",
		out.CandidateCount,
		out.From.Format("2006-01-02"), out.To.Format("2006-01-02"),
		out.FilteredCount)

	for i, rec := range out.Records {
		fmt.Printf("%2d. [%.3f] %s\n", i+1, rec.CombinedScore, truncateString(rec.Paper.Title, TitleMaxLen))
		if authors := formatAuthors(rec.Paper.Authors, AuthorsMaxCount); authors != "" {
			fmt.Printf("    %s\n", authors)
		}
		meta := rec.Paper.Journal
		if rec.Paper.PublicationDate != "" {
			if meta != "" {
				meta += ", "
			}
			meta += rec.Paper.PublicationDate
		}
		if meta != "" {
			fmt.Printf("    %s\n", meta)
		}
		fmt.Printf("    citation %.3f | similarity %.3f\n", rec.CitationScore, rec.SimilarityScore)
		if rec.Explanation.MostSimilarTitle != "" {
			fmt.Printf("    closest in library: %s\n", truncateString(rec.Explanation.MostSimilarTitle, TitleMaxLen-24))
		}
		if rec.Paper.URL != "" {
			fmt.Printf("    %s\n", rec.Paper.URL)
		} else if rec.Paper.DOI != "" {
			fmt.Printf("    https://doi.org/%s\n", rec.Paper.DOI)
		}
		fmt.Println()
	}
}
