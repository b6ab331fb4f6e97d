package loki

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"
)

// Loki represents an interface for retrieving search and detail view statistics.
type Loki interface {
	// GetSearches24 retrieves the total number of searches performed in the last 24 hours.
	GetSearches24(ctx context.Context) (int, error)
	// GetDetailViews24 retrieves the total number of detail pages served in the last 24 hours.
	GetDetailViews24(ctx context.Context) (int, error)
}

type movieCatalogLoki struct {
	httpClient  *http.Client
	lokiHost    string
	serviceName string
}

// NewLoki creates a Loki client counting the log lines of serviceName.
func NewLoki(lokiHost, serviceName string) Loki {
	return &movieCatalogLoki{
		httpClient: &http.Client{
			Timeout: time.Second * 30,
		},
		lokiHost:    lokiHost,
		serviceName: serviceName,
	}
}

// GetSearches24 retrieves the total number of searches performed in the last 24 hours.
func (s *movieCatalogLoki) GetSearches24(ctx context.Context) (int, error) {
	return s.countLokiLogs(ctx, "SearchHandler")
}

// GetDetailViews24 retrieves the total number of detail pages served in the last 24 hours.
func (s *movieCatalogLoki) GetDetailViews24(ctx context.Context) (int, error) {
	return s.countLokiLogs(ctx, "DetailHandler")
}

func (s *movieCatalogLoki) countLokiLogs(ctx context.Context, search string) (int, error) {
	url := s.lokiHost + "/loki/api/v1/query"
	query := fmt.Sprintf("count(rate({service_name=%q} |= `%s` [24h]))", s.serviceName, search)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to http.NewRequestWithContext: %w", err)
	}

	q := req.URL.Query()
	q.Add("query", query)
	req.URL.RawQuery = q.Encode()

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("failed to http.Client.Do: %w", err)
	}
	defer resp.Body.Close()

	var lokiResp Response
	if err := json.NewDecoder(resp.Body).Decode(&lokiResp); err != nil {
		return 0, fmt.Errorf("failed to json.Decoder.Decode: %w", err)
	}

	if lokiResp.Status != "success" {
		return 0, fmt.Errorf("loki response status: %s", lokiResp.Status)
	}

	if lokiResp.Data.ResultType != "vector" {
		return 0, fmt.Errorf("loki response data result type: %s", lokiResp.Data.ResultType)
	}

	// An empty vector means no matching log lines at all.
	if len(lokiResp.Data.Result) == 0 {
		return 0, nil
	}

	if len(lokiResp.Data.Result) != 1 {
		return 0, fmt.Errorf("loki response data result length: %d", len(lokiResp.Data.Result))
	}

	if len(lokiResp.Data.Result[0].Value) != 2 {
		return 0, fmt.Errorf("loki response data result value length: %d", len(lokiResp.Data.Result[0].Value))
	}

	value, ok := (lokiResp.Data.Result[0].Value[1]).(string)
	if !ok {
		return 0, fmt.Errorf("failed to assert value to string: %v", lokiResp.Data.Result[0].Value[1])
	}

	i, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("failed to strconv.Atoi: %w", err)
	}

	return i, nil
}

// Response is the subset of a Loki instant query response this client reads.
type Response struct {
	Status string `json:"status"`
	Data   struct {
		ResultType string `json:"resultType"`
		Result     []struct {
			Metric struct {
			} `json:"metric"`
			Value []interface{} `json:"value"`
		} `json:"result"`
	} `json:"data"`
}
