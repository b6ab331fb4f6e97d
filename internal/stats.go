package internal

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/centrifugal/centrifuge"
	"github.com/ogero/movie-catalog/internal/common"
	"github.com/ogero/movie-catalog/internal/loki"
)

// Stats represents statistical data including search and detail view counts in the last 24 hours and instant title information.
type Stats struct {
	// SearchesCount24 represents the number of searches performed in the last 24 hours.
	SearchesCount24 int `json:"searchesCount24"`
	// DetailViewsCount24 represents the number of detail pages served within the last 24 hours.
	DetailViewsCount24 int `json:"detailViewsCount24"`
	// TitleInstant holds the title most recently shown on a detail page.
	TitleInstant string `json:"titleInstant"`
}

// StatsBroadcaster publishes Stats to websocket subscribers.
type StatsBroadcaster interface {
	// Handler serves the websocket connections of stats subscribers.
	http.Handler
	// BroadcastStats updates and publishes statistical data to the websocket channel.
	// Accepts a function to modify stats and returns an error if updating or publishing fails.
	BroadcastStats(statsUpdater func(stats *Stats) error) error
	// StartPollingStats begins the periodic fetching and broadcasting of statistical data at the specified interval.
	// It returns when ctx is done.
	StartPollingStats(ctx context.Context, interval time.Duration)
	// Shutdown stops the underlying node.
	Shutdown(ctx context.Context) error
}

type statsBroadcaster struct {
	channel string
	loki    loki.Loki

	node             *centrifuge.Node
	websocketHandler *centrifuge.WebsocketHandler
	statsMutex       sync.Mutex
	stats            Stats
}

// NewStatsBroadcaster starts a centrifuge node serving the given channel. lokiClient may be nil, in which case
// StartPollingStats returns immediately and only TitleInstant is ever published.
func NewStatsBroadcaster(channel string, lokiClient loki.Loki) (StatsBroadcaster, error) {
	b := &statsBroadcaster{
		channel: channel,
		loki:    lokiClient,
	}

	node, err := centrifuge.New(centrifuge.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to centrifuge.New: %w", err)
	}
	b.node = node

	node.OnConnecting(func(ctx context.Context, e centrifuge.ConnectEvent) (centrifuge.ConnectReply, error) {
		return centrifuge.ConnectReply{}, nil
	})

	node.OnConnect(func(client *centrifuge.Client) {
		client.OnSubscribe(func(e centrifuge.SubscribeEvent, cb centrifuge.SubscribeCallback) {
			if e.Channel != channel {
				cb(centrifuge.SubscribeReply{}, centrifuge.ErrorPermissionDenied)
				return
			}

			data, err := b.snapshot()
			if err != nil {
				common.Log.Warn("Failed to internal.statsBroadcaster.snapshot", "err", err)
			}

			// The subscriber gets the current stats in its subscribe reply, later updates come as publications.
			cb(centrifuge.SubscribeReply{
				Options: centrifuge.SubscribeOptions{Data: data},
			}, nil)
		})
	})

	if err := node.Run(); err != nil {
		return nil, fmt.Errorf("failed to centrifuge.Node.Run: %w", err)
	}

	b.websocketHandler = centrifuge.NewWebsocketHandler(node, centrifuge.WebsocketConfig{
		ReadBufferSize:     1024,
		UseWriteBufferPool: true,
	})

	return b, nil
}

// BroadcastStats updates and publishes statistical data to the websocket channel.
func (b *statsBroadcaster) BroadcastStats(statsUpdater func(stats *Stats) error) error {
	stats, err := func() (Stats, error) {
		b.statsMutex.Lock()
		defer b.statsMutex.Unlock()
		err := statsUpdater(&b.stats)
		if err != nil {
			return Stats{}, err
		}
		return b.stats, nil
	}()
	if err != nil {
		return fmt.Errorf("failed to statsUpdater: %w", err)
	}

	data, err := json.Marshal(stats)
	if err != nil {
		return fmt.Errorf("failed to json.Marshal: %w", err)
	}

	_, err = b.node.Publish(b.channel, data)
	if err != nil {
		return fmt.Errorf("failed to centrifuge.Node.Publish: %w", err)
	}

	return nil
}

// snapshot returns the current stats encoded as they are published.
func (b *statsBroadcaster) snapshot() ([]byte, error) {
	b.statsMutex.Lock()
	stats := b.stats
	b.statsMutex.Unlock()

	data, err := json.Marshal(stats)
	if err != nil {
		return nil, fmt.Errorf("failed to json.Marshal: %w", err)
	}
	return data, nil
}

// StartPollingStats refreshes the 24h counters from Loki every interval until ctx is done.
func (b *statsBroadcaster) StartPollingStats(ctx context.Context, interval time.Duration) {
	if b.loki == nil {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		b.pollStats(ctx)
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (b *statsBroadcaster) pollStats(ctx context.Context) {
	searches, searchesErr := b.loki.GetSearches24(ctx)
	if searchesErr != nil {
		common.Log.ErrorContext(ctx, "Failed to loki.Loki.GetSearches24", "err", searchesErr)
	}
	detailViews, detailViewsErr := b.loki.GetDetailViews24(ctx)
	if detailViewsErr != nil {
		common.Log.ErrorContext(ctx, "Failed to loki.Loki.GetDetailViews24", "err", detailViewsErr)
	}
	err := b.BroadcastStats(func(stats *Stats) error {
		if searchesErr == nil {
			stats.SearchesCount24 = searches
		}
		if detailViewsErr == nil {
			stats.DetailViewsCount24 = detailViews
		}
		return nil
	})
	if err != nil {
		common.Log.WarnContext(ctx, "Failed to internal.StatsBroadcaster.BroadcastStats", "err", err)
	}
}

// ServeHTTP handles incoming HTTP requests via a websocket handler
func (b *statsBroadcaster) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	newCtx := centrifuge.SetCredentials(ctx, &centrifuge.Credentials{})
	r = r.WithContext(newCtx)

	b.websocketHandler.ServeHTTP(w, r)
}

// Shutdown stops the centrifuge node.
func (b *statsBroadcaster) Shutdown(ctx context.Context) error {
	return b.node.Shutdown(ctx)
}
