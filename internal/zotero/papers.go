package zotero

import (
	"context"

	"github.com/matsen/scry/internal/paper"
)

// ToPaper converts a library item into a paper record. The index identifier
// stays empty until the item is matched against the bibliographic index.
func ToPaper(item Item) paper.Paper {
	return paper.Paper{
		DOI:             item.DOI,
		Title:           item.Title,
		Abstract:        item.Abstract,
		Authors:         item.Authors,
		Journal:         item.Journal,
		URL:             item.URL,
		PublicationYear: item.Year,
	}
}

// FetchPapers fetches the library and converts each item to a paper record.
func (c *Client) FetchPapers(ctx context.Context, collectionID string) ([]paper.Paper, error) {
	items, err := c.FetchLibrary(ctx, collectionID)
	if err != nil {
		return nil, err
	}
	papers := make([]paper.Paper, 0, len(items))
	for _, item := range items {
		papers = append(papers, ToPaper(item))
	}
	return papers, nil
}
