package usgs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/couchcryptid/quake-map/internal/domain"
	"github.com/couchcryptid/quake-map/internal/observability"
	"github.com/twpayne/go-geom/encoding/geojson"
)

// ErrNotFeatureCollection is returned when the feed body is JSON but not a
// GeoJSON FeatureCollection.
var ErrNotFeatureCollection = errors.New("feed is not a FeatureCollection")

// Client fetches a USGS GeoJSON summary feed.
type Client struct {
	url        string
	httpClient *http.Client
	metrics    *observability.Metrics
	logger     *slog.Logger
}

// NewClient creates a feed client for url. Each fetch is bounded by timeout.
func NewClient(url string, timeout time.Duration, metrics *observability.Metrics, logger *slog.Logger) *Client {
	return &Client{
		url: url,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		metrics: metrics,
		logger:  logger,
	}
}

// FetchFeatures performs a single GET of the feed and decodes it. There is no
// retry; callers log the error and wait for the next pass.
func (c *Client) FetchFeatures(ctx context.Context) (domain.Feed, error) {
	start := time.Now()
	defer func() {
		c.metrics.FetchDuration.Observe(time.Since(start).Seconds())
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return domain.Feed{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/geo+json, application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return domain.Feed{}, fmt.Errorf("feed request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return domain.Feed{}, fmt.Errorf("usgs feed error: status %d: %s", resp.StatusCode, body)
	}

	feed, err := Decode(resp.Body)
	if err != nil {
		return domain.Feed{}, err
	}

	c.logger.Debug("feed fetched",
		"url", c.url,
		"features", len(feed.Features),
		"decode_errors", len(feed.DecodeErrors),
		"generated_at", feed.GeneratedAt,
	)
	return feed, nil
}

// Decode reads a FeatureCollection. Features are decoded one at a time so a
// single bad feature is reported in DecodeErrors instead of failing the feed.
func Decode(r io.Reader) (domain.Feed, error) {
	var coll collection
	if err := json.NewDecoder(r).Decode(&coll); err != nil {
		return domain.Feed{}, fmt.Errorf("decode feed: %w", err)
	}
	if coll.Type != "FeatureCollection" {
		return domain.Feed{}, fmt.Errorf("%w: type %q", ErrNotFeatureCollection, coll.Type)
	}

	feed := domain.Feed{
		Title:    coll.Metadata.Title,
		Features: make([]*geojson.Feature, 0, len(coll.Features)),
	}
	if coll.Metadata.Generated > 0 {
		feed.GeneratedAt = time.UnixMilli(coll.Metadata.Generated).UTC()
	}

	for i, raw := range coll.Features {
		var f geojson.Feature
		if err := json.Unmarshal(raw, &f); err != nil {
			feed.DecodeErrors = append(feed.DecodeErrors,
				fmt.Errorf("%w: feature %d: %v", domain.ErrMalformedFeature, i, err))
			continue
		}
		feed.Features = append(feed.Features, &f)
	}
	return feed, nil
}

// USGS feed envelope. Features stay raw until decoded individually.

type collection struct {
	Type     string            `json:"type"`
	Metadata metadata          `json:"metadata"`
	Features []json.RawMessage `json:"features"`
}

type metadata struct {
	Generated int64  `json:"generated"` // epoch milliseconds
	Title     string `json:"title"`
	Count     int    `json:"count"`
}
