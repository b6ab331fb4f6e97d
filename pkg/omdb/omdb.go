package omdb

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
	"unicode/utf8"

	"github.com/ogero/movie-catalog/pkg/catalog"
	"github.com/ogero/movie-catalog/pkg/transport"
	"github.com/wlynxg/chardet"
	"github.com/wlynxg/chardet/consts"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"
)

// DefaultBaseURL is the public OMDb endpoint.
const DefaultBaseURL = "https://www.omdbapi.com"

// NewOMDb creates a new OMDb backed catalog.Catalog.
func NewOMDb(apiKey, baseURL string, timeout time.Duration) catalog.Catalog {
	t := http.DefaultTransport.(*http.Transport).Clone()
	t.MaxIdleConns = 100
	t.MaxConnsPerHost = 100
	t.MaxIdleConnsPerHost = 100

	rt := transport.NewModifyQueryRoundTripper(t, transport.WithAPIKey(apiKey))
	rt = transport.NewModifyHeadersRoundTripper(rt,
		transport.WithUserAgent("movie-catalog/1.0 (+https://github.com/ogero/movie-catalog)"),
	)

	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	return &omdb{
		httpClient: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(rt),
		},
		baseURL: baseURL,
	}
}

type omdb struct {
	httpClient *http.Client
	baseURL    string
}

// envelope holds the fields shared by every OMDb response.
type envelope struct {
	Response string `json:"Response"`
	Error    string `json:"Error"`
}

type searchResponse struct {
	envelope
	TotalResults string `json:"totalResults"`
	Search       []struct {
		Title  string `json:"Title"`
		Year   string `json:"Year"`
		IMDbID string `json:"imdbID"`
		Type   string `json:"Type"`
		Poster string `json:"Poster"`
	} `json:"Search"`
}

type titleResponse struct {
	envelope
	Title      string `json:"Title"`
	Year       string `json:"Year"`
	Runtime    string `json:"Runtime"`
	Genre      string `json:"Genre"`
	Actors     string `json:"Actors"`
	Plot       string `json:"Plot"`
	Poster     string `json:"Poster"`
	IMDbRating string `json:"imdbRating"`
	IMDbID     string `json:"imdbID"`
}

func (r *titleResponse) detail() *catalog.Detail {
	return &catalog.Detail{
		IMDbID:  r.IMDbID,
		Title:   r.Title,
		Year:    r.Year,
		Rating:  r.IMDbRating,
		Runtime: r.Runtime,
		Genre:   r.Genre,
		Plot:    r.Plot,
		Actors:  r.Actors,
		Poster:  r.Poster,
	}
}

// Search runs an `s` search, optionally filtered by `y` and `type`.
func (c *omdb) Search(ctx context.Context, query catalog.SearchQuery) ([]catalog.Item, error) {

	ctx, span := trace.SpanFromContext(ctx).TracerProvider().Tracer("").Start(ctx, "omdb.OMDb.Search")
	defer span.End()
	span.SetAttributes(attribute.String("omdb.s", query.Term))

	params := url.Values{}
	params.Set("s", query.Term)
	if query.Year != "" {
		params.Set("y", query.Year)
	}
	if query.Type != "" {
		params.Set("type", query.Type)
	}

	var res searchResponse
	if err := c.get(ctx, params, &res); err != nil {
		span.RecordError(err)
		return nil, err
	}
	if err := res.check(); err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.Int("omdb.results", len(res.Search)))

	items := make([]catalog.Item, 0, len(res.Search))
	for _, s := range res.Search {
		items = append(items, catalog.Item{
			Title:  s.Title,
			Year:   s.Year,
			IMDbID: s.IMDbID,
			Type:   s.Type,
			Poster: s.Poster,
		})
	}

	return items, nil
}

// Title runs an exact `t` lookup.
func (c *omdb) Title(ctx context.Context, title string) (*catalog.Detail, error) {

	ctx, span := trace.SpanFromContext(ctx).TracerProvider().Tracer("").Start(ctx, "omdb.OMDb.Title")
	defer span.End()
	span.SetAttributes(attribute.String("omdb.t", title))

	params := url.Values{}
	params.Set("t", title)

	var res titleResponse
	if err := c.get(ctx, params, &res); err != nil {
		span.RecordError(err)
		return nil, err
	}
	if err := res.check(); err != nil {
		return nil, err
	}

	return res.detail(), nil
}

// Detail runs an `i` lookup, asking for the full plot when fullPlot is set.
func (c *omdb) Detail(ctx context.Context, id string, fullPlot bool) (*catalog.Detail, error) {

	ctx, span := trace.SpanFromContext(ctx).TracerProvider().Tracer("").Start(ctx, "omdb.OMDb.Detail")
	defer span.End()
	span.SetAttributes(attribute.String("omdb.i", id))

	params := url.Values{}
	params.Set("i", id)
	if fullPlot {
		params.Set("plot", "full")
	}

	var res titleResponse
	if err := c.get(ctx, params, &res); err != nil {
		span.RecordError(err)
		return nil, err
	}
	if err := res.check(); err != nil {
		return nil, err
	}

	return res.detail(), nil
}

// check maps a `"Response":"False"` envelope to catalog.ErrNotFound.
func (e *envelope) check() error {
	if e.Response == "True" {
		return nil
	}
	reason := e.Error
	if reason == "" {
		reason = fmt.Sprintf("unexpected Response value %q", e.Response)
	}
	return fmt.Errorf("%w: %s", catalog.ErrNotFound, reason)
}

func (c *omdb) get(ctx context.Context, params url.Values, out any) error {
	u := c.baseURL + "/?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("failed to http.NewRequestWithContext: %w", err)
	}

	res, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to http.Client.Do: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return fmt.Errorf("invalid status code: %d", res.StatusCode)
	}

	body, err := io.ReadAll(transport.LimitBody(res.Body))
	if err != nil {
		return fmt.Errorf("failed to io.ReadAll: %w", err)
	}

	body, err = toUTF8(body)
	if err != nil {
		return fmt.Errorf("failed to convert body to UTF-8: %w", err)
	}

	if err = json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to json.Unmarshal: %w", err)
	}

	return nil
}

// toUTF8 re-encodes Latin-1 payloads, which some OMDb mirrors still serve, as UTF-8. Valid UTF-8 is returned as is.
func toUTF8(data []byte) ([]byte, error) {
	if utf8.Valid(data) {
		return data, nil
	}

	decoder := charmap.ISO8859_1.NewDecoder()
	if chardet.Detect(data).Encoding == consts.Windows1252 {
		decoder = charmap.Windows1252.NewDecoder()
	}
	return io.ReadAll(transform.NewReader(bytes.NewReader(data), decoder))
}
