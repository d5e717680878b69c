package export

import (
	"strings"
	"testing"
	"time"

	"github.com/matsen/scry/internal/paper"
	"github.com/matsen/scry/internal/recommend"
)

func sampleRecords() []recommend.ScoreRecord {
	return []recommend.ScoreRecord{
		{
			Paper: paper.Paper{
				ID:              "W1",
				Title:           "Clonal dynamics of B cells",
				Authors:         []string{"Ada Lovelace", "Charles Babbage"},
				PublicationYear: 2026,
				Journal:         "Immunity",
				DOI:             "10.1/abc",
				URL:             "https://example.org/w1",
				Abstract:        "We study clonal {dynamics}.",
			},
			CitationScore:   1.0,
			SimilarityScore: 0.8,
			CombinedScore:   0.86,
		},
		{
			Paper: paper.Paper{
				ID:    "W2",
				Title: "Untitled preprint",
			},
			CombinedScore: 0.5,
		},
	}
}

func TestBibTeX(t *testing.T) {
	var buf strings.Builder
	if err := BibTeX(&buf, sampleRecords()); err != nil {
		t.Fatalf("BibTeX failed: %v", err)
	}
	got := buf.String()

	for _, want := range []string{
		"@article{Lovelace2026_1,",
		"title = {Clonal dynamics of B cells},",
		"author = {Ada Lovelace and Charles Babbage},",
		"year = {2026},",
		"journal = {Immunity},",
		"doi = {10.1/abc},",
		"url = {https://example.org/w1},",
		"abstract = {We study clonal \\{dynamics\\}.},",
		"note = {Recommended - Score: 0.860}",
		"@article{UnknownXXXX_2,",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("output missing %q\n%s", want, got)
		}
	}

	// Optional fields stay out of sparse entries.
	second := got[strings.Index(got, "UnknownXXXX_2"):]
	for _, absent := range []string{"author =", "doi =", "abstract ="} {
		if strings.Contains(second, absent) {
			t.Errorf("sparse entry should not contain %q", absent)
		}
	}
}

func TestBibTeX_Empty(t *testing.T) {
	var buf strings.Builder
	if err := BibTeX(&buf, nil); err != nil {
		t.Fatalf("BibTeX failed: %v", err)
	}
	if buf.Len() != 0 {
		t.Errorf("expected no output for empty records, got %q", buf.String())
	}
}

func TestJSON(t *testing.T) {
	outcome := &recommend.Outcome{
		Records:     sampleRecords(),
		LibrarySize: 10,
		SeedCount:   9,
		From:        time.Date(2026, 7, 25, 0, 0, 0, 0, time.UTC),
		To:          time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC),
	}

	var buf strings.Builder
	if err := JSON(&buf, outcome); err != nil {
		t.Fatalf("JSON failed: %v", err)
	}
	got := buf.String()
	for _, want := range []string{`"library_size": 10`, `"Clonal dynamics of B cells"`, `"combined_score": 0.86`} {
		if !strings.Contains(got, want) {
			t.Errorf("output missing %q", want)
		}
	}
}
