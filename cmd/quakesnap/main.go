// Command quakesnap runs one classification pass over the USGS earthquake feed
// and writes a self-contained map page, optionally with the markers as JSON.
//
// Usage:
//
//	go run ./cmd/quakesnap -out quakes.html
//	go run ./cmd/quakesnap -feed-file all_week.geojson -out quakes.html -json-out quakes.json -tz America/Los_Angeles
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/couchcryptid/quake-map/internal/adapter/usgs"
	"github.com/couchcryptid/quake-map/internal/config"
	"github.com/couchcryptid/quake-map/internal/observability"
	"github.com/couchcryptid/quake-map/internal/pipeline"
	"github.com/couchcryptid/quake-map/internal/web"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	if err := run(logger); err != nil {
		logger.Error("quakesnap failed", "error", err)
		os.Exit(1)
	}
}

func run(logger *slog.Logger) error {
	feedURL := flag.String("feed-url", config.DefaultFeedURL, "USGS GeoJSON feed URL")
	feedFile := flag.String("feed-file", "", "read a saved feed from this file instead of fetching")
	out := flag.String("out", "", "output path for the HTML map page")
	jsonOut := flag.String("json-out", "", "optional output path for the snapshot JSON")
	tz := flag.String("tz", "UTC", "IANA time zone for popup dates")
	tiles := flag.String("tiles", web.DefaultTileURL, "map tile URL template")
	timeout := flag.Duration("timeout", 10*time.Second, "feed request timeout")
	flag.Parse()

	if *out == "" {
		flag.Usage()
		return fmt.Errorf("missing required flag: -out")
	}

	loc, err := time.LoadLocation(*tz)
	if err != nil {
		return fmt.Errorf("invalid -tz %q: %w", *tz, err)
	}

	metrics := observability.NewMetrics()

	var source pipeline.FeatureSource
	if *feedFile != "" {
		source = usgs.FileSource{Path: *feedFile}
	} else {
		source = usgs.NewClient(*feedURL, *timeout, metrics, logger)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	p := pipeline.New(source, pipeline.NewTransformer(nil, loc, logger), nil, logger, metrics)
	snap, err := p.RunOnce(ctx)
	if err != nil {
		return err
	}

	var page bytes.Buffer
	if err := web.Render(&page, web.Page{
		Title:    snap.FeedTitle,
		Map:      web.NewMap(*tiles),
		Legend:   web.NewLegend(),
		Snapshot: snap,
		Location: loc,
	}); err != nil {
		return err
	}
	if err := os.WriteFile(*out, page.Bytes(), 0o644); err != nil { //nolint:gosec // static page meant to be served
		return fmt.Errorf("write %s: %w", *out, err)
	}
	logger.Info("map page written", "path", *out, "markers", len(snap.Markers), "skipped", snap.Skipped)

	if *jsonOut != "" {
		data, err := json.MarshalIndent(snap, "", "  ")
		if err != nil {
			return fmt.Errorf("marshal snapshot: %w", err)
		}
		if err := os.WriteFile(*jsonOut, data, 0o644); err != nil { //nolint:gosec // public data
			return fmt.Errorf("write %s: %w", *jsonOut, err)
		}
		logger.Info("snapshot json written", "path", *jsonOut)
	}
	return nil
}
