package internal

import (
	"context"
	"fmt"
	"sync"

	"github.com/ogero/movie-catalog/pkg/catalog"
)

const testPlaceholder = "https://via.placeholder.com/300x450/10161d/ffffff?text=No+Image"

// fakeCatalog is a catalog.Catalog driven by function fields. It records every call it receives.
type fakeCatalog struct {
	search func(query catalog.SearchQuery) ([]catalog.Item, error)
	title  func(title string) (*catalog.Detail, error)
	detail func(id string, fullPlot bool) (*catalog.Detail, error)

	mu    sync.Mutex
	calls []string
}

func (f *fakeCatalog) record(call string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call)
}

func (f *fakeCatalog) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *fakeCatalog) Search(_ context.Context, query catalog.SearchQuery) ([]catalog.Item, error) {
	f.record(fmt.Sprintf("search:%s|%s|%s", query.Term, query.Year, query.Type))
	if f.search == nil {
		return nil, fmt.Errorf("%w: Movie not found!", catalog.ErrNotFound)
	}
	return f.search(query)
}

func (f *fakeCatalog) Title(_ context.Context, title string) (*catalog.Detail, error) {
	f.record("title:" + title)
	if f.title == nil {
		return nil, fmt.Errorf("%w: Movie not found!", catalog.ErrNotFound)
	}
	return f.title(title)
}

func (f *fakeCatalog) Detail(_ context.Context, id string, fullPlot bool) (*catalog.Detail, error) {
	f.record(fmt.Sprintf("detail:%s:%t", id, fullPlot))
	if f.detail == nil {
		return nil, fmt.Errorf("%w: Incorrect IMDb ID.", catalog.ErrNotFound)
	}
	return f.detail(id, fullPlot)
}

func matrixItems() []catalog.Item {
	return []catalog.Item{
		{Title: "The Matrix", Year: "1999", IMDbID: "tt0133093", Poster: "N/A"},
		{Title: "The Matrix Reloaded", Year: "2003", IMDbID: "tt0234215", Poster: "http://x/p.jpg"},
	}
}
