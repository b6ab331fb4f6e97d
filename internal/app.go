package internal

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/ogero/movie-catalog/internal/common"
	"github.com/ogero/movie-catalog/pkg/catalog"
	slogchi "github.com/samber/slog-chi"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// App represents the main application structure that holds the catalog service and its collaborators.
type App struct {
	CatalogService CatalogService
	Stats          StatsBroadcaster
	Messages       *common.Messages

	views *views
}

/*
NewApp creates a new instance of the App struct.

Parameters:
  - catalogService: The service running the page controllers.
  - stats: The live stats broadcaster, or nil to disable the websocket endpoint.
  - messages: The language negotiator used to translate page messages.

Returns:
  - A pointer to the newly created App instance, or an error if the page templates fail to parse.
*/
func NewApp(catalogService CatalogService, stats StatsBroadcaster, messages *common.Messages) (*App, error) {
	v, err := newViews()
	if err != nil {
		return nil, err
	}

	return &App{
		CatalogService: catalogService,
		Stats:          stats,
		Messages:       messages,
		views:          v,
	}, nil
}

// Routes mounts exactly one handler per Route, plus the shared search box redirect, static assets and the stats websocket.
func (a *App) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(slogchi.NewWithConfig(common.Log, slogchi.Config{
		WithSpanID:  true,
		WithTraceID: true,
	}))
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET"},
		AllowedHeaders: []string{
			"Content-Type",
			"X-Requested-With",
			"Accept",
			"Accept-Language",
			"Accept-Encoding",
			"Content-Language",
			"Origin",
		},
		MaxAge: 300,
	}))

	for _, route := range pageRoutes {
		r.Get(route.Path(), a.pageHandler(route))
	}
	r.Get("/search", a.SearchRedirectHandler)
	r.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.FS(staticFiles()))))
	if a.Stats != nil {
		r.HandleFunc("/connection/websocket", a.WebsocketHandler)
	}

	return otelhttp.NewHandler(r, "movie-catalog")
}

// pageHandler returns the controller handler mounted on route.
func (a *App) pageHandler(route Route) http.HandlerFunc {
	switch route {
	case RouteSearch:
		return a.SearchHandler
	case RouteTimeline:
		return a.TimelineHandler
	case RoutePopular:
		return a.PopularHandler
	case RouteDetail:
		return a.DetailHandler
	}
	panic(fmt.Sprintf("no handler for route %s", route))
}

/*
SearchHandler serves the main search page.

An incoming `search` query parameter pre-populates the search box and runs the search right away.
Optional `y` and `type` parameters filter the results.
*/
func (a *App) SearchHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	span := trace.SpanFromContext(ctx)

	common.Log.InfoContext(ctx, "SearchHandler")

	q := r.URL.Query()
	query := catalog.SearchQuery{
		Term: q.Get("search"),
		Year: q.Get("y"),
		Type: q.Get("type"),
	}
	if err := common.ValidateYear(query.Year); err != nil {
		common.Log.WarnContext(ctx, "Failed to common.ValidateYear", "err", err)
		span.RecordError(err)
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	if err := common.ValidateSearchType(query.Type); err != nil {
		common.Log.WarnContext(ctx, "Failed to common.ValidateSearchType", "err", err)
		span.RecordError(err)
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	span.SetAttributes(attribute.String("params.search", query.Term))

	page := a.CatalogService.Search(ctx, query)

	a.render(w, r, RouteSearch, page, statusFor(page.State, page.Message))
}

/*
SearchRedirectHandler backs the search box of the pages that have no results grid.

It redirects to the main page carrying the query in the `search` parameter. An empty query is a no-op
answered with 204 so the browser stays on the current page.
*/
func (a *App) SearchRedirectHandler(w http.ResponseWriter, r *http.Request) {
	term := strings.TrimSpace(r.URL.Query().Get("search"))
	if term == "" {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	http.Redirect(w, r, RouteSearch.Path()+"?"+url.Values{"search": {term}}.Encode(), http.StatusSeeOther)
}

// TimelineHandler serves the new releases timeline.
func (a *App) TimelineHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	common.Log.DebugContext(ctx, "TimelineHandler")

	page := a.CatalogService.Timeline(ctx)

	a.render(w, r, RouteTimeline, page, statusFor(page.State, page.Message))
}

// PopularHandler serves the ranked popular list.
func (a *App) PopularHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	common.Log.DebugContext(ctx, "PopularHandler")

	page := a.CatalogService.Popular(ctx)

	a.render(w, r, RoutePopular, page, statusFor(page.State, page.Message))
}

/*
DetailHandler serves the detail page of the title named by the `id` query parameter.

A missing identifier renders the "not specified" message without any upstream call.
*/
func (a *App) DetailHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	span := trace.SpanFromContext(ctx)

	common.Log.InfoContext(ctx, "DetailHandler")

	id := r.URL.Query().Get("id")
	if id != "" {
		if err := common.ValidateIdentifier(id); err != nil {
			common.Log.WarnContext(ctx, "Failed to common.ValidateIdentifier", "err", err)
			span.RecordError(err)
			w.WriteHeader(http.StatusBadRequest)
			return
		}
	}
	span.SetAttributes(attribute.String("param.id", id))

	page := a.CatalogService.Detail(ctx, id)

	if page.State == StateRendered && a.Stats != nil {
		title := page.Detail.Title
		go func() {
			err := a.Stats.BroadcastStats(func(data *Stats) error {
				data.TitleInstant = title
				return nil
			})
			if err != nil {
				common.Log.WarnContext(ctx, "Failed to internal.StatsBroadcaster.BroadcastStats", "err", err)
			}
		}()
	}

	a.render(w, r, RouteDetail, page, statusFor(page.State, page.Message))
}

// WebsocketHandler handles WebSocket connections
func (a *App) WebsocketHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	common.Log.DebugContext(ctx, "WebsocketHandler")

	a.Stats.ServeHTTP(w, r)
}

// render writes page as JSON when the client asks for it, and as the route's HTML page otherwise.
func (a *App) render(w http.ResponseWriter, r *http.Request, route Route, page any, status int) {
	ctx := r.Context()
	span := trace.SpanFromContext(ctx)

	if strings.Contains(r.Header.Get("Accept"), "application/json") {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		if err := json.NewEncoder(w).Encode(page); err != nil {
			common.Log.ErrorContext(ctx, "Failed to write response", "err", err)
			span.RecordError(err)
		}
		return
	}

	acceptLanguage := r.Header.Get("Accept-Language")
	tag := a.Messages.Negotiate(acceptLanguage)
	printer := a.Messages.Printer(acceptLanguage)

	body, err := a.views.render(route, printer, tag.String(), page)
	if err != nil {
		common.Log.ErrorContext(ctx, "Failed to render page", "route", route, "err", err)
		span.RecordError(err)
		http.Error(w, printer.Sprintf(common.MsgPageError), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Content-Language", tag.String())
	w.WriteHeader(status)
	if _, err = w.Write(body); err != nil {
		common.Log.ErrorContext(ctx, "Failed to write response", "err", err)
		span.RecordError(err)
	}
}

// statusFor maps the terminal state of a render pass onto an HTTP status.
func statusFor(state State, message string) int {
	switch {
	case state == StateError:
		return http.StatusBadGateway
	case message == common.MsgDetailNotFound:
		return http.StatusNotFound
	default:
		return http.StatusOK
	}
}

