package imdb

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/StalkR/imdb"
	"github.com/ogero/movie-catalog/internal/common"
	"github.com/ogero/movie-catalog/pkg/catalog"
	"github.com/ogero/movie-catalog/pkg/transport"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/trace"
)

type stalkrIMDB struct {
	httpClient  *http.Client
	getTitle    func(c *http.Client, id string) (*imdb.Title, error)
	searchTitle func(c *http.Client, title string) ([]imdb.Title, error)
}

// NewStalkrIMDB creates a catalog.Catalog that scrapes IMDb through the Stalkr client.
func NewStalkrIMDB(timeout time.Duration) catalog.Catalog {

	t := http.DefaultTransport.(*http.Transport).Clone()
	t.MaxIdleConns = 100
	t.MaxConnsPerHost = 100
	t.MaxIdleConnsPerHost = 100

	rt := transport.NewModifyHeadersRoundTripper(t,
		transport.WithAcceptLanguage("en"), // avoid IP-based language detection
		transport.WithUserAgent("Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/107.0.0.0 Safari/537.36"),
	)

	return &stalkrIMDB{
		httpClient: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(rt),
		},
		getTitle:    imdb.NewTitle,
		searchTitle: imdb.SearchTitle,
	}
}

// Search runs a title search and applies the year and type filters locally.
func (c *stalkrIMDB) Search(ctx context.Context, query catalog.SearchQuery) ([]catalog.Item, error) {

	_, span := trace.SpanFromContext(ctx).TracerProvider().Tracer("").Start(ctx, "imdb.IMDB.Search")
	defer span.End()

	results, err := c.searchTitle(c.httpClient, query.Term)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to stalkrIMDB.searchTitle: %w", err)
	}

	items := make([]catalog.Item, 0, len(results))
	for _, r := range results {
		if query.Year != "" && strconv.Itoa(r.Year) != query.Year {
			continue
		}
		kind := normalizeType(r.Type)
		if query.Type != "" && kind != query.Type {
			continue
		}
		items = append(items, catalog.Item{
			Title:  r.Name,
			Year:   yearString(r.Year),
			IMDbID: r.ID,
			Type:   kind,
			Poster: poster(r.Poster.ContentURL),
		})
	}
	if len(items) == 0 {
		return nil, fmt.Errorf("%w: no titles match %q", catalog.ErrNotFound, query.Term)
	}

	return items, nil
}

// Title searches by name and resolves the best match, preferring a case-insensitive exact name.
func (c *stalkrIMDB) Title(ctx context.Context, title string) (*catalog.Detail, error) {

	ctx, span := trace.SpanFromContext(ctx).TracerProvider().Tracer("").Start(ctx, "imdb.IMDB.Title")
	defer span.End()

	results, err := c.searchTitle(c.httpClient, title)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to stalkrIMDB.searchTitle: %w", err)
	}
	if len(results) == 0 {
		return nil, fmt.Errorf("%w: no titles match %q", catalog.ErrNotFound, title)
	}

	id := results[0].ID
	for _, r := range results {
		if strings.EqualFold(r.Name, title) {
			id = r.ID
			break
		}
	}

	return c.Detail(ctx, id, true)
}

// Detail gets a title by its ID. IMDb pages always carry the full description so fullPlot is ignored.
func (c *stalkrIMDB) Detail(ctx context.Context, id string, _ bool) (*catalog.Detail, error) {

	_, span := trace.SpanFromContext(ctx).TracerProvider().Tracer("").Start(ctx, "imdb.IMDB.Detail")
	defer span.End()

	if err := common.ValidateIMDBTitleID(id); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", catalog.ErrNotFound, id, err)
	}

	t, err := c.getTitle(c.httpClient, id)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to stalkrIMDB.getTitle: %w", err)
	}
	if t == nil || t.ID == "" {
		return nil, fmt.Errorf("%w: unknown title %s", catalog.ErrNotFound, id)
	}

	actors := make([]string, 0, len(t.Actors))
	for _, a := range t.Actors {
		actors = append(actors, a.FullName)
	}

	return &catalog.Detail{
		IMDbID:  t.ID,
		Title:   t.Name,
		Year:    yearString(t.Year),
		Rating:  orNA(fmt.Sprint(t.Rating)),
		Runtime: orNA(fmt.Sprint(t.Duration)),
		Genre:   orNA(strings.Join(t.Genres, ", ")),
		Plot:    orNA(t.Description),
		Actors:  orNA(strings.Join(actors, ", ")),
		Poster:  poster(t.Poster.ContentURL),
	}, nil
}

// normalizeType maps IMDb kinds (Movie, TVSeries, TVEpisode) onto the OMDb vocabulary.
func normalizeType(t string) string {
	t = strings.ToLower(t)
	return strings.TrimPrefix(t, "tv")
}

func yearString(y int) string {
	if y == 0 {
		return "N/A"
	}
	return strconv.Itoa(y)
}

func orNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}

// poster returns the NoImage sentinel for titles without artwork so callers apply one placeholder rule.
func poster(u string) string {
	if u == "" {
		return catalog.NoImage
	}
	return u
}
