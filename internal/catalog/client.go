package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/tcbarzyk/reading-list-backend/internal/observability"
)

// ErrUnavailable means the catalog could not produce usable data for a
// key: transport failure, non-2xx status, or an unreadable body. The
// caller degrades the single request, not the process.
var ErrUnavailable = errors.New("catalog entity unavailable")

type Client struct {
	baseURL    string
	httpClient *http.Client
	log        *slog.Logger
	metrics    *observability.Prom
}

// metrics may be nil (tests).
func NewClient(baseURL string, log *slog.Logger, metrics *observability.Prom) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		log:     log,
		metrics: metrics,
	}
}

func (c *Client) recordFetch(outcome string) {
	if c.metrics != nil {
		c.metrics.CatalogFetches.WithLabelValues(outcome).Inc()
	}
}

// FetchEntity fetches the raw catalog document for a key such as
// "/works/OL27448W" or "/authors/OL26320A". The lookup URL is
// {base}{key}.json.
func (c *Client) FetchEntity(ctx context.Context, key string) (json.RawMessage, error) {
	url := c.baseURL + key + ".json"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.log.Warn("catalog fetch failed", "key", key, "err", err)
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.log.Warn("catalog fetch non-ok status", "key", key, "status", resp.StatusCode)
		return nil, fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %v", ErrUnavailable, err)
	}

	return json.RawMessage(body), nil
}

// Enrich runs the full metadata workflow for a book key: fetch the work
// document, resolve its first author, fetch the author document, and
// normalize both into canonical metadata.
func (c *Client) Enrich(ctx context.Context, key string) (Metadata, error) {
	workRaw, err := c.FetchEntity(ctx, key)
	if err != nil {
		c.recordFetch("unavailable")
		return Metadata{}, err
	}

	authorKey, err := AuthorKey(workRaw)
	if err != nil {
		c.recordFetch("no_author")
		return Metadata{}, err
	}

	authorRaw, err := c.FetchEntity(ctx, authorKey)
	if err != nil {
		c.recordFetch("unavailable")
		return Metadata{}, err
	}

	meta, err := Normalize(workRaw, authorRaw)
	if err != nil {
		c.recordFetch("unavailable")
		return Metadata{}, err
	}

	c.recordFetch("ok")
	return meta, nil
}
