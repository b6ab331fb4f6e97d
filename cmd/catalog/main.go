package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ogero/movie-catalog/internal"
	"github.com/ogero/movie-catalog/internal/cache"
	"github.com/ogero/movie-catalog/internal/common"
	"github.com/ogero/movie-catalog/internal/config"
	"github.com/ogero/movie-catalog/internal/loki"
	"github.com/ogero/movie-catalog/pkg/catalog"
	"github.com/ogero/movie-catalog/pkg/imdb"
	"github.com/ogero/movie-catalog/pkg/omdb"
)

const (
	serviceName    = "movie-catalog"
	serviceVersion = "0.1.0"
)

func main() {

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to config.Load: ", err)
	}

	logShutdown, err := common.InitLogger(serviceName, serviceVersion, cfg.ServiceEnvironment, cfg.OTelExporterEndpoint)
	if err != nil {
		log.Fatal("Failed to common.InitLogger: ", err)
	}

	instrumentationShutdown := func(context.Context) {}
	if cfg.OTelExporterEndpoint != "" {
		instrumentationShutdown, err = common.InitInstrumentation(serviceName, serviceVersion, cfg.ServiceEnvironment, cfg.OTelExporterEndpoint)
		if err != nil {
			common.Log.Error("Failed to common.InitInstrumentation", "err", err)
			os.Exit(1)
		}
	}

	lookupCache, err := cache.Open(cfg.CachePath)
	if err != nil {
		common.Log.Error("Failed to cache.Open", "err", err)
		os.Exit(1)
	}

	var provider catalog.Catalog
	switch cfg.Provider {
	case config.ProviderIMDb:
		provider = imdb.NewStalkrIMDB(cfg.HTTPClientTimeout)
	default:
		provider = omdb.NewOMDb(cfg.OMDbAPIKey, cfg.OMDbBaseURL, cfg.HTTPClientTimeout)
	}

	timeline, err := cfg.Timeline()
	if err != nil {
		common.Log.Error("Failed to config.Config.Timeline", "err", err)
		os.Exit(1)
	}

	catalogService := internal.NewCatalogService(provider, lookupCache, internal.Options{
		PlaceholderPosterURL: cfg.PlaceholderPosterURL,
		Timeline:             timeline,
		TimelineYear:         cfg.TimelineYear,
		TimelineType:         cfg.TimelineType,
		PopularTitles:        cfg.PopularTitles,
		StreamingProviders:   cfg.StreamingProviders,
		CacheTTL:             cfg.CacheTTL,
	})

	var lokiClient loki.Loki
	if cfg.LokiHost != "" {
		lokiClient = loki.NewLoki(cfg.LokiHost, serviceName)
	}
	stats, err := internal.NewStatsBroadcaster(cfg.StatsChannel, lokiClient)
	if err != nil {
		common.Log.Error("Failed to internal.NewStatsBroadcaster", "err", err)
		os.Exit(1)
	}

	messages, err := common.NewMessages(cfg.DefaultLanguage)
	if err != nil {
		common.Log.Error("Failed to common.NewMessages", "err", err)
		os.Exit(1)
	}

	app, err := internal.NewApp(catalogService, stats, messages)
	if err != nil {
		common.Log.Error("Failed to internal.NewApp", "err", err)
		os.Exit(1)
	}

	pollCtx, stopPolling := context.WithCancel(context.Background())
	go stats.StartPollingStats(pollCtx, cfg.StatsPollInterval)

	// Listen
	srv := &http.Server{
		Addr:    cfg.ServerListenAddr,
		Handler: app.Routes(),
	}
	go func() {
		common.Log.Info("Listening", "addr", cfg.ServerListenAddr, "provider", cfg.Provider)
		common.Log.Info("Browse at", "url", cfg.PublicHost)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			common.Log.Error("Failed to http.Server.ListenAndServe", "err", err)
			quit <- syscall.SIGTERM
		}
	}()

	<-quit

	stopPolling()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		common.Log.Error("Failed to http server shutdown", "err", err)
	}

	if err := stats.Shutdown(ctx); err != nil {
		common.Log.Error("Failed to internal.StatsBroadcaster.Shutdown", "err", err)
	}

	if err := lookupCache.Close(); err != nil {
		common.Log.Error("Failed to cache.Close", "err", err)
	}

	instrumentationShutdown(ctx)

	common.Log.Info("Bye!")

	if err := logShutdown(ctx); err != nil {
		log.Println("Failed to shutdown logger:", err)
	}
}
