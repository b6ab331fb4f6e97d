package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// Provider names a metadata backend.
type Provider string

const (
	// ProviderOMDb queries the OMDb JSON API. It needs an API key.
	ProviderOMDb Provider = "omdb"
	// ProviderIMDb scrapes IMDb title pages.
	ProviderIMDb Provider = "imdb"
)

// LabeledQuery pairs a timeline row caption with the search term that fills it.
type LabeledQuery struct {
	Label string
	Term  string
}

// Config holds every setting of the service, read from the environment.
type Config struct {
	// ServerListenAddr specifies the network address that the HTTP server will listen on.
	ServerListenAddr string `env:"SERVER_LISTEN_ADDR" envDefault:":3593"`
	// PublicHost is the public (external) base URL where the catalog is accessible.
	PublicHost string `env:"PUBLIC_HOST" envDefault:"http://127.0.0.1:3593"`

	Provider          Provider      `env:"CATALOG_PROVIDER" envDefault:"omdb"`
	OMDbAPIKey        string        `env:"OMDB_API_KEY"`
	OMDbBaseURL       string        `env:"OMDB_BASE_URL" envDefault:"https://www.omdbapi.com"`
	HTTPClientTimeout time.Duration `env:"HTTP_CLIENT_TIMEOUT" envDefault:"10s"`

	PlaceholderPosterURL string `env:"PLACEHOLDER_POSTER_URL" envDefault:"https://via.placeholder.com/300x450/10161d/ffffff?text=No+Image"`
	// TimelineQueries is a list of `label=term` pairs, one timeline row each.
	TimelineQueries    []string `env:"TIMELINE_QUERIES" envSeparator:"|" envDefault:"Hoy=2024|Ayer=Action|Esta semana=Drama"`
	TimelineYear       string   `env:"TIMELINE_YEAR" envDefault:"2024"`
	TimelineType       string   `env:"TIMELINE_TYPE" envDefault:"movie"`
	PopularTitles      []string `env:"POPULAR_TITLES" envSeparator:"|" envDefault:"The Dark Knight|Inception|Interstellar|Avengers: Endgame|Avatar|The Matrix|Pulp Fiction|Fight Club"`
	StreamingProviders []string `env:"STREAMING_PROVIDERS" envSeparator:"|" envDefault:"Netflix|Amazon|Disney+"`
	DefaultLanguage    string   `env:"DEFAULT_LANGUAGE" envDefault:"es"`

	// CachePath is the badger directory. Empty keeps the cache in memory.
	CachePath string        `env:"CACHE_PATH"`
	CacheTTL  time.Duration `env:"CACHE_TTL" envDefault:"24h"`

	ServiceEnvironment   string        `env:"SERVICE_ENVIRONMENT" envDefault:"lcl"`
	OTelExporterEndpoint string        `env:"OTEL_EXPORTER_ENDPOINT"`
	LokiHost             string        `env:"LOKI_HOST"`
	StatsPollInterval    time.Duration `env:"STATS_POLL_INTERVAL" envDefault:"5m"`
	StatsChannel         string        `env:"STATS_CHANNEL" envDefault:"stats"`
}

// Load parses the process environment into a Config and validates it.
func Load() (*Config, error) {
	return LoadFrom(nil)
}

// LoadFrom parses environ instead of the process environment when it is not nil.
func LoadFrom(environ map[string]string) (*Config, error) {
	cfg := &Config{}

	opts := env.Options{}
	if environ != nil {
		opts.Environment = environ
	}
	if err := env.ParseWithOptions(cfg, opts); err != nil {
		return nil, fmt.Errorf("failed to env.Parse: %w", err)
	}

	u, err := url.Parse(cfg.PublicHost)
	if err != nil {
		return nil, fmt.Errorf("failed to parse PUBLIC_HOST: %w", err)
	}
	cfg.PublicHost = fmt.Sprintf("%s://%s", u.Scheme, u.Host)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks that the configuration contains usable values.
func (c *Config) Validate() error {
	switch c.Provider {
	case ProviderOMDb:
		if c.OMDbAPIKey == "" {
			return errors.New("OMDB_API_KEY is required when CATALOG_PROVIDER is omdb")
		}
	case ProviderIMDb:
	default:
		return fmt.Errorf("invalid CATALOG_PROVIDER %q: must be one of omdb, imdb", c.Provider)
	}

	if _, err := c.Timeline(); err != nil {
		return err
	}

	if c.CacheTTL <= 0 {
		return errors.New("CACHE_TTL must be positive")
	}

	return nil
}

// Timeline parses TimelineQueries into labeled queries, keeping their order.
func (c *Config) Timeline() ([]LabeledQuery, error) {
	queries := make([]LabeledQuery, 0, len(c.TimelineQueries))
	for _, pair := range c.TimelineQueries {
		label, term, ok := strings.Cut(pair, "=")
		label, term = strings.TrimSpace(label), strings.TrimSpace(term)
		if !ok || label == "" || term == "" {
			return nil, fmt.Errorf("invalid TIMELINE_QUERIES entry %q: expected label=term", pair)
		}
		queries = append(queries, LabeledQuery{Label: label, Term: term})
	}

	return queries, nil
}
