// Package export renders recommendation runs as BibTeX or JSON for import
// into reference managers and downstream tooling.
package export

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/matsen/scry/internal/recommend"
)

// BibTeX writes the recommended papers as @article entries, one per record,
// in ranked order. The citation key is the first author's last name, the
// publication year, and the rank.
func BibTeX(w io.Writer, records []recommend.ScoreRecord) error {
	for i, r := range records {
		p := r.Paper

		lastName := "Unknown"
		if len(p.Authors) > 0 {
			if parts := strings.Fields(p.Authors[0]); len(parts) > 0 {
				lastName = parts[len(parts)-1]
			}
		}
		year := "XXXX"
		if p.PublicationYear > 0 {
			year = fmt.Sprint(p.PublicationYear)
		}
		key := fmt.Sprintf("%s%s_%d", lastName, year, i+1)

		if _, err := fmt.Fprintf(w, "@article{%s,\n", key); err != nil {
			return err
		}
		fmt.Fprintf(w, "  title = {%s},\n", escape(p.Title))
		if len(p.Authors) > 0 {
			fmt.Fprintf(w, "  author = {%s},\n", escape(strings.Join(p.Authors, " and ")))
		}
		if p.PublicationYear > 0 {
			fmt.Fprintf(w, "  year = {%d},\n", p.PublicationYear)
		}
		if p.Journal != "" {
			fmt.Fprintf(w, "  journal = {%s},\n", escape(p.Journal))
		}
		if p.DOI != "" {
			fmt.Fprintf(w, "  doi = {%s},\n", escape(p.DOI))
		}
		if p.URL != "" {
			fmt.Fprintf(w, "  url = {%s},\n", escape(p.URL))
		}
		if p.Abstract != "" {
			fmt.Fprintf(w, "  abstract = {%s},\n", escape(p.Abstract))
		}
		fmt.Fprintf(w, "  note = {Recommended - Score: %.3f}\n", r.CombinedScore)
		if _, err := fmt.Fprint(w, "}\n\n"); err != nil {
			return err
		}
	}
	return nil
}

// JSON writes the full outcome of a run, indented for readability.
func JSON(w io.Writer, outcome *recommend.Outcome) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(outcome)
}

// escape neutralizes braces, which delimit values in BibTeX.
func escape(s string) string {
	s = strings.ReplaceAll(s, "{", "\\{")
	return strings.ReplaceAll(s, "}", "\\}")
}
