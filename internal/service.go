package internal

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/ogero/movie-catalog/internal/cache"
	"github.com/ogero/movie-catalog/internal/common"
	"github.com/ogero/movie-catalog/internal/config"
	"github.com/ogero/movie-catalog/pkg/catalog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// Card is a rendered search result: poster, title and year, linking to the detail page.
type Card struct {
	Title     string `json:"title"`
	Year      string `json:"year"`
	IMDbID    string `json:"imdbID"`
	PosterURL string `json:"posterUrl"`
	DetailURL string `json:"detailUrl"`
}

// RankedCard is a Card with its position in the popular list.
type RankedCard struct {
	Card
	Rank   int    `json:"rank"`
	Rating string `json:"rating"`
}

// TimelineRow is one captioned row of the new releases timeline.
type TimelineRow struct {
	Label string `json:"label"`
	Cards []Card `json:"cards"`
}

// DetailRecord holds everything the detail layout shows about a title.
type DetailRecord struct {
	Title     string `json:"title"`
	Year      string `json:"year"`
	Rating    string `json:"rating"`
	Runtime   string `json:"runtime"`
	Genre     string `json:"genre"`
	Plot      string `json:"plot"`
	Actors    string `json:"actors"`
	PosterURL string `json:"posterUrl"`
}

// SearchPage is the outcome of a search render pass.
type SearchPage struct {
	State   State               `json:"state"`
	Query   catalog.SearchQuery `json:"query"`
	Cards   []Card              `json:"cards"`
	Message string              `json:"message,omitempty"`
}

// TimelinePage is the outcome of a timeline render pass.
type TimelinePage struct {
	State   State         `json:"state"`
	Rows    []TimelineRow `json:"rows"`
	Message string        `json:"message,omitempty"`
}

// PopularPage is the outcome of a popular list render pass.
type PopularPage struct {
	State   State        `json:"state"`
	Entries []RankedCard `json:"entries"`
	Message string       `json:"message,omitempty"`
}

// DetailPage is the outcome of a detail render pass.
type DetailPage struct {
	State     State         `json:"state"`
	ID        string        `json:"id"`
	Detail    *DetailRecord `json:"detail,omitempty"`
	Providers []string      `json:"providers,omitempty"`
	Message   string        `json:"message,omitempty"`
}

// CatalogService defines the four page controllers. Every method runs one full render pass and never fails:
// problems are reported through the returned page State and Message.
type CatalogService interface {
	// Search runs a single search. An empty term is a no-op that returns an idle page.
	Search(ctx context.Context, query catalog.SearchQuery) *SearchPage
	// Timeline runs the configured labeled queries, one row per successful query.
	Timeline(ctx context.Context) *TimelinePage
	// Popular looks up the curated titles in order, ranking the ones that resolve.
	Popular(ctx context.Context) *PopularPage
	// Detail looks up a single identifier with its full plot.
	Detail(ctx context.Context, id string) *DetailPage
}

// Options configures a CatalogService.
type Options struct {
	PlaceholderPosterURL string
	Timeline             []config.LabeledQuery
	TimelineYear         string
	TimelineType         string
	PopularTitles        []string
	StreamingProviders   []string
	// CacheTTL is how long successful lookups are memoized. Ignored when no cache is given.
	CacheTTL time.Duration
	// Observer, when set, sees every state transition.
	Observer StateObserver
}

type catalogService struct {
	catalog catalog.Catalog
	cache   *cache.Cache
	opts    Options
}

// NewCatalogService creates a new CatalogService over the given provider. A nil cache disables memoization.
func NewCatalogService(c catalog.Catalog, lookupCache *cache.Cache, opts Options) CatalogService {
	return &catalogService{
		catalog: c,
		cache:   lookupCache,
		opts:    opts,
	}
}

// Search runs a single search against the provider.
func (s *catalogService) Search(ctx context.Context, query catalog.SearchQuery) *SearchPage {

	page := &SearchPage{State: StateIdle, Query: query, Cards: []Card{}}

	query.Term = strings.TrimSpace(query.Term)
	if query.Term == "" {
		return page
	}
	page.Query = query

	ctx, span := trace.SpanFromContext(ctx).TracerProvider().Tracer("").Start(ctx, "internal.CatalogService.Search")
	defer span.End()
	span.SetAttributes(attribute.String("search.term", query.Term))

	p := newPass(RouteSearch, s.opts.Observer)
	p.advance(ctx, StateLoading)

	items, err := s.search(ctx, query)
	switch {
	case errors.Is(err, catalog.ErrNotFound):
		common.Log.InfoContext(ctx, "No search results", "term", query.Term, "err", err)
		page.Message = common.MsgSearchEmpty
		p.advance(ctx, StateEmptyResult)
	case err != nil:
		common.Log.ErrorContext(ctx, "Failed to search catalog", "term", query.Term, "err", err)
		span.RecordError(err)
		page.Message = common.MsgSearchError
		p.advance(ctx, StateError)
	default:
		page.Cards = s.cards(items)
		p.advance(ctx, StateRendered)
	}
	span.SetAttributes(attribute.Int("search.cards", len(page.Cards)))

	page.State = p.state
	return page
}

// Timeline runs the labeled queries sequentially. A failing query is logged and contributes no row.
func (s *catalogService) Timeline(ctx context.Context) *TimelinePage {

	ctx, span := trace.SpanFromContext(ctx).TracerProvider().Tracer("").Start(ctx, "internal.CatalogService.Timeline")
	defer span.End()

	page := &TimelinePage{Rows: []TimelineRow{}}

	p := newPass(RouteTimeline, s.opts.Observer)
	p.advance(ctx, StateLoading)

	for _, q := range s.opts.Timeline {
		items, err := s.search(ctx, catalog.SearchQuery{
			Term: q.Term,
			Year: s.opts.TimelineYear,
			Type: s.opts.TimelineType,
		})
		if errors.Is(err, catalog.ErrNotFound) {
			common.Log.InfoContext(ctx, "Timeline query returned no results", "label", q.Label, "term", q.Term)
			continue
		}
		if err != nil {
			common.Log.ErrorContext(ctx, "Failed to load timeline row", "label", q.Label, "term", q.Term, "err", err)
			span.RecordError(err)
			continue
		}
		if len(items) == 0 {
			continue
		}
		page.Rows = append(page.Rows, TimelineRow{Label: q.Label, Cards: s.cards(items)})
	}
	span.SetAttributes(attribute.Int("timeline.rows", len(page.Rows)))

	if len(page.Rows) == 0 {
		page.Message = common.MsgTimelineEmpty
		p.advance(ctx, StateEmptyResult)
	} else {
		p.advance(ctx, StateRendered)
	}

	page.State = p.state
	return page
}

// Popular looks up every curated title in list order. Ranks are only consumed by successful lookups.
func (s *catalogService) Popular(ctx context.Context) *PopularPage {

	ctx, span := trace.SpanFromContext(ctx).TracerProvider().Tracer("").Start(ctx, "internal.CatalogService.Popular")
	defer span.End()

	page := &PopularPage{Entries: []RankedCard{}}

	p := newPass(RoutePopular, s.opts.Observer)
	p.advance(ctx, StateLoading)

	rank := 1
	for _, title := range s.opts.PopularTitles {
		detail, err := s.title(ctx, title)
		if err != nil {
			common.Log.WarnContext(ctx, "Failed to load popular title", "title", title, "err", err)
			continue
		}
		page.Entries = append(page.Entries, RankedCard{
			Card: Card{
				Title:     detail.Title,
				Year:      detail.Year,
				IMDbID:    detail.IMDbID,
				PosterURL: catalog.PosterOrPlaceholder(detail.Poster, s.opts.PlaceholderPosterURL),
				DetailURL: DetailURL(detail.IMDbID),
			},
			Rank:   rank,
			Rating: detail.Rating,
		})
		rank++
	}
	span.SetAttributes(attribute.Int("popular.entries", len(page.Entries)))

	if len(page.Entries) == 0 {
		page.Message = common.MsgPopularEmpty
		p.advance(ctx, StateEmptyResult)
	} else {
		p.advance(ctx, StateRendered)
	}

	page.State = p.state
	return page
}

// Detail looks up a single identifier. A missing identifier never reaches the provider.
func (s *catalogService) Detail(ctx context.Context, id string) *DetailPage {

	ctx, span := trace.SpanFromContext(ctx).TracerProvider().Tracer("").Start(ctx, "internal.CatalogService.Detail")
	defer span.End()
	span.SetAttributes(attribute.String("detail.id", id))

	page := &DetailPage{ID: id}

	p := newPass(RouteDetail, s.opts.Observer)
	p.advance(ctx, StateLoading)

	if id == "" {
		page.Message = common.MsgDetailUnspecified
		p.advance(ctx, StateEmptyResult)
		page.State = p.state
		return page
	}

	detail, err := s.detail(ctx, id)
	switch {
	case errors.Is(err, catalog.ErrNotFound):
		common.Log.InfoContext(ctx, "Title not found", "id", id, "err", err)
		page.Message = common.MsgDetailNotFound
		p.advance(ctx, StateEmptyResult)
	case err != nil:
		common.Log.ErrorContext(ctx, "Failed to load title detail", "id", id, "err", err)
		span.RecordError(err)
		page.Message = common.MsgDetailError
		p.advance(ctx, StateError)
	default:
		page.Detail = &DetailRecord{
			Title:     detail.Title,
			Year:      detail.Year,
			Rating:    detail.Rating,
			Runtime:   detail.Runtime,
			Genre:     detail.Genre,
			Plot:      detail.Plot,
			Actors:    detail.Actors,
			PosterURL: catalog.PosterOrPlaceholder(detail.Poster, s.opts.PlaceholderPosterURL),
		}
		page.Providers = s.opts.StreamingProviders
		p.advance(ctx, StateRendered)
	}

	page.State = p.state
	return page
}

func (s *catalogService) cards(items []catalog.Item) []Card {
	cards := make([]Card, 0, len(items))
	for _, item := range items {
		cards = append(cards, Card{
			Title:     item.Title,
			Year:      item.Year,
			IMDbID:    item.IMDbID,
			PosterURL: catalog.PosterOrPlaceholder(item.Poster, s.opts.PlaceholderPosterURL),
			DetailURL: DetailURL(item.IMDbID),
		})
	}
	return cards
}

func (s *catalogService) search(ctx context.Context, query catalog.SearchQuery) ([]catalog.Item, error) {
	key := query.Term + "|" + query.Year + "|" + query.Type
	items, err := memoize(ctx, s, "catalog.search", key, func() (*[]catalog.Item, error) {
		items, err := s.catalog.Search(ctx, query)
		recordLookup(ctx, "search", err)
		if err != nil {
			return nil, err
		}
		return &items, nil
	})
	if err != nil {
		return nil, err
	}
	return *items, nil
}

func (s *catalogService) title(ctx context.Context, title string) (*catalog.Detail, error) {
	return memoize(ctx, s, "catalog.title", title, func() (*catalog.Detail, error) {
		detail, err := s.catalog.Title(ctx, title)
		recordLookup(ctx, "title", err)
		return detail, err
	})
}

func (s *catalogService) detail(ctx context.Context, id string) (*catalog.Detail, error) {
	return memoize(ctx, s, "catalog.detail", id, func() (*catalog.Detail, error) {
		detail, err := s.catalog.Detail(ctx, id, true)
		recordLookup(ctx, "detail", err)
		return detail, err
	})
}

// memoize runs fn through the lookup cache when there is one, recording the cache result on the span and metrics.
func memoize[V any](ctx context.Context, s *catalogService, keyPrefix, key string, fn func() (*V, error)) (*V, error) {
	if s.cache == nil {
		return fn()
	}

	value, hit, err := cache.Memoize[V](s.cache, keyPrefix+" : "+key, s.opts.CacheTTL, fn)

	cacheResult := "miss"
	if hit {
		cacheResult = "hit"
	}
	trace.SpanFromContext(ctx).SetAttributes(attribute.String("cache."+keyPrefix+".result", cacheResult))
	common.CacheGetsTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("key.prefix", keyPrefix),
		attribute.String("result", cacheResult),
	))

	return value, err
}

func recordLookup(ctx context.Context, operation string, err error) {
	outcome := "ok"
	if errors.Is(err, catalog.ErrNotFound) {
		outcome = "not_found"
	} else if err != nil {
		outcome = "error"
	}
	common.CatalogLookupsTotal.Add(ctx, 1, common.LookupAttributes(operation, outcome))
}
