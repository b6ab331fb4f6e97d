package internal

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/ogero/movie-catalog/internal/cache"
	"github.com/ogero/movie-catalog/internal/common"
	"github.com/ogero/movie-catalog/internal/config"
	"github.com/ogero/movie-catalog/pkg/catalog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type transition struct {
	route Route
	state State
}

func newTestService(c catalog.Catalog, opts Options) (CatalogService, *[]transition) {
	var transitions []transition
	opts.PlaceholderPosterURL = testPlaceholder
	opts.Observer = func(_ context.Context, route Route, state State) {
		transitions = append(transitions, transition{route, state})
	}
	return NewCatalogService(c, nil, opts), &transitions
}

func TestSearch(t *testing.T) {
	fake := &fakeCatalog{search: func(query catalog.SearchQuery) ([]catalog.Item, error) {
		return matrixItems(), nil
	}}
	svc, transitions := newTestService(fake, Options{})

	page := svc.Search(context.Background(), catalog.SearchQuery{Term: "Matrix"})

	assert.Equal(t, StateRendered, page.State)
	assert.Empty(t, page.Message)
	require.Len(t, page.Cards, 2)
	assert.Equal(t, Card{
		Title:     "The Matrix",
		Year:      "1999",
		IMDbID:    "tt0133093",
		PosterURL: testPlaceholder,
		DetailURL: "/detail?id=tt0133093",
	}, page.Cards[0])
	assert.Equal(t, "The Matrix Reloaded", page.Cards[1].Title)
	assert.Equal(t, "http://x/p.jpg", page.Cards[1].PosterURL)

	assert.Equal(t, []string{"search:Matrix||"}, fake.Calls())
	assert.Equal(t, []transition{{RouteSearch, StateLoading}, {RouteSearch, StateRendered}}, *transitions)
}

func TestSearchPreservesOrderAndCount(t *testing.T) {
	items := make([]catalog.Item, 0, 10)
	for i := 0; i < 10; i++ {
		items = append(items, catalog.Item{Title: fmt.Sprintf("Movie %d", i), IMDbID: fmt.Sprintf("tt%07d", i), Poster: "N/A"})
	}
	fake := &fakeCatalog{search: func(catalog.SearchQuery) ([]catalog.Item, error) { return items, nil }}
	svc, _ := newTestService(fake, Options{})

	page := svc.Search(context.Background(), catalog.SearchQuery{Term: "Movie"})

	require.Len(t, page.Cards, len(items))
	for i, card := range page.Cards {
		assert.Equal(t, items[i].Title, card.Title)
		assert.NotEqual(t, catalog.NoImage, card.PosterURL)
	}
}

func TestSearchForwardsFilters(t *testing.T) {
	fake := &fakeCatalog{search: func(catalog.SearchQuery) ([]catalog.Item, error) { return matrixItems(), nil }}
	svc, _ := newTestService(fake, Options{})

	svc.Search(context.Background(), catalog.SearchQuery{Term: "  Matrix ", Year: "1999", Type: "movie"})

	assert.Equal(t, []string{"search:Matrix|1999|movie"}, fake.Calls())
}

func TestSearchEmptyQueryIsNoOp(t *testing.T) {
	for _, term := range []string{"", "   "} {
		fake := &fakeCatalog{}
		svc, transitions := newTestService(fake, Options{})

		page := svc.Search(context.Background(), catalog.SearchQuery{Term: term})

		assert.Equal(t, StateIdle, page.State)
		assert.Empty(t, page.Cards)
		assert.Empty(t, page.Message)
		assert.Empty(t, fake.Calls())
		assert.Empty(t, *transitions)
	}
}

func TestSearchNotFound(t *testing.T) {
	fake := &fakeCatalog{}
	svc, transitions := newTestService(fake, Options{})

	page := svc.Search(context.Background(), catalog.SearchQuery{Term: "zzzz"})

	assert.Equal(t, StateEmptyResult, page.State)
	assert.Equal(t, common.MsgSearchEmpty, page.Message)
	assert.Empty(t, page.Cards)
	assert.Equal(t, []transition{{RouteSearch, StateLoading}, {RouteSearch, StateEmptyResult}}, *transitions)
}

func TestSearchTransportFailure(t *testing.T) {
	fake := &fakeCatalog{search: func(catalog.SearchQuery) ([]catalog.Item, error) {
		return nil, errors.New("failed to http.Client.Do: connection refused")
	}}
	svc, _ := newTestService(fake, Options{})

	page := svc.Search(context.Background(), catalog.SearchQuery{Term: "Matrix"})

	assert.Equal(t, StateError, page.State)
	assert.Equal(t, common.MsgSearchError, page.Message)
	assert.Empty(t, page.Cards)
	assert.Len(t, fake.Calls(), 1, "errors are never retried")
}

func TestTimeline(t *testing.T) {
	fake := &fakeCatalog{search: func(query catalog.SearchQuery) ([]catalog.Item, error) {
		switch query.Term {
		case "2024":
			return matrixItems(), nil
		case "Action":
			return nil, errors.New("boom")
		case "Drama":
			return []catalog.Item{{Title: "Drama 2024", IMDbID: "tt1", Poster: "N/A"}}, nil
		}
		return nil, fmt.Errorf("unexpected term %s", query.Term)
	}}
	svc, transitions := newTestService(fake, Options{
		Timeline: []config.LabeledQuery{
			{Label: "Hoy", Term: "2024"},
			{Label: "Ayer", Term: "Action"},
			{Label: "Esta semana", Term: "Drama"},
		},
		TimelineYear: "2024",
		TimelineType: "movie",
	})

	page := svc.Timeline(context.Background())

	assert.Equal(t, StateRendered, page.State)
	require.Len(t, page.Rows, 2)
	assert.Equal(t, "Hoy", page.Rows[0].Label)
	assert.Len(t, page.Rows[0].Cards, 2)
	assert.Equal(t, "Esta semana", page.Rows[1].Label)
	assert.Equal(t, testPlaceholder, page.Rows[1].Cards[0].PosterURL)

	assert.Equal(t, []string{
		"search:2024|2024|movie",
		"search:Action|2024|movie",
		"search:Drama|2024|movie",
	}, fake.Calls())
	assert.Equal(t, []transition{{RouteTimeline, StateLoading}, {RouteTimeline, StateRendered}}, *transitions)
}

func TestTimelineAllFailing(t *testing.T) {
	fake := &fakeCatalog{}
	svc, _ := newTestService(fake, Options{
		Timeline: []config.LabeledQuery{{Label: "Hoy", Term: "2024"}, {Label: "Ayer", Term: "Action"}},
	})

	page := svc.Timeline(context.Background())

	assert.Equal(t, StateEmptyResult, page.State)
	assert.Equal(t, common.MsgTimelineEmpty, page.Message)
	assert.Empty(t, page.Rows)
	assert.Len(t, fake.Calls(), 2)
}

func TestPopularRanksSkipFailures(t *testing.T) {
	fake := &fakeCatalog{title: func(title string) (*catalog.Detail, error) {
		switch title {
		case "Inception":
			return nil, fmt.Errorf("%w: Movie not found!", catalog.ErrNotFound)
		case "Avatar":
			return nil, errors.New("failed to json.Unmarshal")
		}
		return &catalog.Detail{Title: title, Year: "2000", Rating: "8.0", IMDbID: "tt-" + title, Poster: "N/A"}, nil
	}}
	svc, transitions := newTestService(fake, Options{
		PopularTitles: []string{"The Dark Knight", "Inception", "Interstellar", "Avatar", "The Matrix"},
	})

	page := svc.Popular(context.Background())

	assert.Equal(t, StateRendered, page.State)
	require.Len(t, page.Entries, 3)
	for i, entry := range page.Entries {
		assert.Equal(t, i+1, entry.Rank)
		assert.NotEqual(t, "Inception", entry.Title)
		assert.NotEqual(t, "Avatar", entry.Title)
		assert.Equal(t, testPlaceholder, entry.PosterURL)
	}
	assert.Equal(t, []string{"The Dark Knight", "Interstellar", "The Matrix"},
		[]string{page.Entries[0].Title, page.Entries[1].Title, page.Entries[2].Title})
	assert.Equal(t, "8.0", page.Entries[0].Rating)
	assert.Len(t, fake.Calls(), 5)
	assert.Equal(t, []transition{{RoutePopular, StateLoading}, {RoutePopular, StateRendered}}, *transitions)
}

func TestPopularExactlyOneFailure(t *testing.T) {
	fake := &fakeCatalog{title: func(title string) (*catalog.Detail, error) {
		if title == "B" {
			return nil, fmt.Errorf("%w: Movie not found!", catalog.ErrNotFound)
		}
		return &catalog.Detail{Title: title, IMDbID: "tt" + title, Poster: "http://x/" + title}, nil
	}}
	svc, _ := newTestService(fake, Options{PopularTitles: []string{"A", "B", "C"}})

	page := svc.Popular(context.Background())

	require.Len(t, page.Entries, 2)
	assert.Equal(t, 1, page.Entries[0].Rank)
	assert.Equal(t, "A", page.Entries[0].Title)
	assert.Equal(t, 2, page.Entries[1].Rank)
	assert.Equal(t, "C", page.Entries[1].Title)
}

func TestPopularNothingResolves(t *testing.T) {
	svc, _ := newTestService(&fakeCatalog{}, Options{PopularTitles: []string{"A"}})

	page := svc.Popular(context.Background())

	assert.Equal(t, StateEmptyResult, page.State)
	assert.Equal(t, common.MsgPopularEmpty, page.Message)
}

func TestDetail(t *testing.T) {
	fake := &fakeCatalog{detail: func(id string, fullPlot bool) (*catalog.Detail, error) {
		return &catalog.Detail{
			IMDbID: id, Title: "The Matrix", Year: "1999", Rating: "8.7", Runtime: "136 min",
			Genre: "Action, Sci-Fi", Plot: "A hacker learns the truth.", Actors: "Keanu Reeves", Poster: "N/A",
		}, nil
	}}
	svc, transitions := newTestService(fake, Options{StreamingProviders: []string{"Netflix", "Amazon", "Disney+"}})

	page := svc.Detail(context.Background(), "tt0133093")

	assert.Equal(t, StateRendered, page.State)
	require.NotNil(t, page.Detail)
	assert.Equal(t, DetailRecord{
		Title: "The Matrix", Year: "1999", Rating: "8.7", Runtime: "136 min",
		Genre: "Action, Sci-Fi", Plot: "A hacker learns the truth.", Actors: "Keanu Reeves", PosterURL: testPlaceholder,
	}, *page.Detail)
	assert.Equal(t, []string{"Netflix", "Amazon", "Disney+"}, page.Providers)
	assert.Equal(t, []string{"detail:tt0133093:true"}, fake.Calls())
	assert.Equal(t, []transition{{RouteDetail, StateLoading}, {RouteDetail, StateRendered}}, *transitions)
}

func TestDetailMissingIdentifier(t *testing.T) {
	fake := &fakeCatalog{}
	svc, _ := newTestService(fake, Options{})

	page := svc.Detail(context.Background(), "")

	assert.Equal(t, StateEmptyResult, page.State)
	assert.Equal(t, common.MsgDetailUnspecified, page.Message)
	assert.Nil(t, page.Detail)
	assert.Empty(t, fake.Calls())
}

func TestDetailFailures(t *testing.T) {
	tests := []struct {
		name        string
		err         error
		wantState   State
		wantMessage string
	}{
		{"not found", fmt.Errorf("%w: Incorrect IMDb ID.", catalog.ErrNotFound), StateEmptyResult, common.MsgDetailNotFound},
		{"transport", errors.New("failed to http.Client.Do: timeout"), StateError, common.MsgDetailError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := &fakeCatalog{detail: func(string, bool) (*catalog.Detail, error) { return nil, tt.err }}
			svc, _ := newTestService(fake, Options{})

			page := svc.Detail(context.Background(), "tt0000000")

			assert.Equal(t, tt.wantState, page.State)
			assert.Equal(t, tt.wantMessage, page.Message)
			assert.Nil(t, page.Detail)
			assert.Empty(t, page.Providers)
		})
	}
}

func TestServiceMemoizesLookups(t *testing.T) {
	c, err := cache.Open("")
	require.NoError(t, err)
	defer c.Close()

	fake := &fakeCatalog{search: func(query catalog.SearchQuery) ([]catalog.Item, error) {
		if query.Term == "Nothing" {
			return nil, fmt.Errorf("%w: Movie not found!", catalog.ErrNotFound)
		}
		return matrixItems(), nil
	}}
	svc := NewCatalogService(fake, c, Options{PlaceholderPosterURL: testPlaceholder, CacheTTL: time.Hour})

	first := svc.Search(context.Background(), catalog.SearchQuery{Term: "Matrix"})
	second := svc.Search(context.Background(), catalog.SearchQuery{Term: "Matrix"})

	assert.Equal(t, first.Cards, second.Cards)
	assert.Equal(t, []string{"search:Matrix||"}, fake.Calls())

	// Not found answers are not cached.
	svc.Search(context.Background(), catalog.SearchQuery{Term: "Nothing"})
	svc.Search(context.Background(), catalog.SearchQuery{Term: "Nothing"})
	assert.Len(t, fake.Calls(), 3)
}
