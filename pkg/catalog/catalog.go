package catalog

import (
	"context"
	"errors"
)

// NoImage is the poster value metadata providers use when a title has no artwork.
const NoImage = "N/A"

// ErrNotFound is returned when the provider itself reports that it has no data for a lookup.
var ErrNotFound = errors.New("not found")

// SearchQuery holds the parameters of a free text search.
type SearchQuery struct {
	// Term is the search text, sent as `s`.
	Term string `json:"term"`
	// Year optionally restricts results to a release year, sent as `y`.
	Year string `json:"year,omitempty"`
	// Type optionally restricts results to movie, series or episode, sent as `type`.
	Type string `json:"type,omitempty"`
}

// Item is a single entry of a search result list.
type Item struct {
	Title  string `json:"title"`
	Year   string `json:"year"`
	IMDbID string `json:"imdbID"`
	Type   string `json:"type"`
	Poster string `json:"poster"`
}

// Detail is the full metadata of a single title.
type Detail struct {
	IMDbID  string `json:"imdbID"`
	Title   string `json:"title"`
	Year    string `json:"year"`
	Rating  string `json:"rating"`
	Runtime string `json:"runtime"`
	Genre   string `json:"genre"`
	Plot    string `json:"plot"`
	Actors  string `json:"actors"`
	Poster  string `json:"poster"`
}

// Catalog defines the lookups a metadata provider must support.
type Catalog interface {
	// Search runs a free text search. It returns ErrNotFound when the provider has no results.
	Search(ctx context.Context, query SearchQuery) ([]Item, error)
	// Title looks up a single title by its exact name.
	Title(ctx context.Context, title string) (*Detail, error)
	// Detail looks up a single title by its identifier, optionally with the full plot.
	Detail(ctx context.Context, id string, fullPlot bool) (*Detail, error)
}

// PosterOrPlaceholder returns placeholder when poster is the NoImage sentinel, and poster otherwise.
func PosterOrPlaceholder(poster, placeholder string) string {
	if poster == NoImage {
		return placeholder
	}
	return poster
}
