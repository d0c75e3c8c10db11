// Command validate checks a USGS earthquake feed against the rules the map
// relies on: every feature decodes, carries a magnitude, a time and a depth,
// and classifies into a legal marker. It reports each failing feature so a
// saved feed can be inspected before it is used as a fixture.
//
// Usage:
//
//	go run ./cmd/validate -feed-file internal/adapter/usgs/testdata/all_week_sample.geojson
//	go run ./cmd/validate -feed-url https://earthquake.usgs.gov/earthquakes/feed/v1.0/summary/all_day.geojson
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"strings"
	"time"

	"github.com/couchcryptid/quake-map/internal/adapter/usgs"
	"github.com/couchcryptid/quake-map/internal/domain"
	"github.com/couchcryptid/quake-map/internal/observability"
	"github.com/couchcryptid/quake-map/internal/pipeline"
	"github.com/google/go-cmp/cmp"
)

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

func main() {
	feedFile := flag.String("feed-file", "", "path to a saved GeoJSON feed")
	feedURL := flag.String("feed-url", "", "feed URL to fetch instead of a file")
	timeout := flag.Duration("timeout", 10*time.Second, "feed request timeout")
	flag.Parse()

	if (*feedFile == "") == (*feedURL == "") {
		flag.Usage()
		os.Exit(1)
	}

	var source pipeline.FeatureSource = usgs.FileSource{Path: *feedFile}
	if *feedURL != "" {
		source = usgs.NewClient(*feedURL, *timeout, observability.NewMetrics(),
			slog.New(slog.NewTextHandler(io.Discard, nil)))
	}

	if code := run(source); code != 0 {
		os.Exit(code)
	}
}

func run(source pipeline.FeatureSource) int {
	fmt.Println("=== Earthquake Feed Validation ===")
	fmt.Println()

	feed, err := source.FetchFeatures(context.Background())
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: load feed: %v\n", err)
		return 1
	}

	valid := make([]domain.Feature, 0, len(feed.Features))
	fields := validateFields(feed, &valid)

	phases := []*phase{
		validateDecoding(feed),
		fields,
		validateUniqueIDs(valid),
		validateClassification(valid),
	}

	// ── Report results ──
	allPassed := true
	for _, p := range phases {
		status := "\033[32mPASS\033[0m"
		if !p.passed() {
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(p.errors))
			allPassed = false
		}
		fmt.Printf("  %-42s %s\n", p.name, status)
	}

	fmt.Println()
	fmt.Printf("Feed: %q generated %s\n", feed.Title, feed.GeneratedAt.Format(time.RFC3339))
	fmt.Printf("Features: %d decoded, %d undecodable, %d valid\n",
		len(feed.Features), len(feed.DecodeErrors), len(valid))

	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Printf("\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			fmt.Printf("  [%d] %s\n", i+1, e)
		}
	}

	if allPassed {
		fmt.Println("\nAll validations passed.")
		return 0
	}
	fmt.Println("\nValidation FAILED.")
	return 1
}

// ── Phases ──

func validateDecoding(feed domain.Feed) *phase {
	p := &phase{name: "Phase 1: GeoJSON decoding"}
	for _, err := range feed.DecodeErrors {
		p.errorf("%v", err)
	}
	return p
}

// validateFields runs ParseFeature on every decoded feature and appends the
// valid ones to out.
func validateFields(feed domain.Feed, out *[]domain.Feature) *phase {
	p := &phase{name: "Phase 2: Required fields"}
	for _, gf := range feed.Features {
		f, err := domain.ParseFeature(gf)
		if err != nil {
			p.errorf("%v", err)
			continue
		}
		*out = append(*out, f)
	}
	return p
}

func validateUniqueIDs(features []domain.Feature) *phase {
	p := &phase{name: "Phase 3: Unique feature IDs"}
	seen := make(map[string]int, len(features))
	for i, f := range features {
		if f.ID == "" {
			p.errorf("feature %d has no id", i)
			continue
		}
		if prev, ok := seen[f.ID]; ok {
			p.errorf("id %q repeated at %d and %d", f.ID, prev, i)
			continue
		}
		seen[f.ID] = i
	}
	return p
}

func validateClassification(features []domain.Feature) *phase {
	p := &phase{name: "Phase 4: Marker classification"}

	palette := make(map[string]bool)
	for _, e := range domain.Legend() {
		palette[e.Color] = true
	}

	for _, f := range features {
		m := domain.Transform(f, time.UTC)
		checkMarker(p.errorf, f, m, palette)

		if again := domain.Transform(f, time.UTC); !cmp.Equal(again, m) {
			p.errorf("%s: transform is not repeatable", f.ID)
		}
	}
	return p
}

func checkMarker(pf func(string, ...any), f domain.Feature, m domain.Marker, palette map[string]bool) {
	if !floatEq(m.Encoding.Radius, 2*f.Magnitude) {
		pf("%s: radius %v, want %v", f.ID, m.Encoding.Radius, 2*f.Magnitude)
	}
	if !palette[m.Encoding.FillColor] {
		pf("%s: fill color %q outside the depth palette", f.ID, m.Encoding.FillColor)
	}
	if want := expectedColor(f.Depth); m.Encoding.FillColor != want {
		pf("%s: fill color %q for depth %v, want %q", f.ID, m.Encoding.FillColor, f.Depth, want)
	}
	if !strings.HasSuffix(m.Summary.Depth, " km") {
		pf("%s: depth text %q lacks unit", f.ID, m.Summary.Depth)
	}
	if m.Summary.Date == "" {
		pf("%s: empty date text", f.ID)
	}
}

// depthBands is the published depth legend, kept apart from the classifier it
// checks. Each band covers depths up to and including max.
var depthBands = []struct {
	max   float64
	color string
}{
	{10, "#FED976"},
	{30, "#FEB24C"},
	{50, "#FC4E2A"},
	{70, "#E31A1C"},
	{90, "#BD0026"},
	{math.Inf(1), "#800026"},
}

func expectedColor(depth float64) string {
	for _, b := range depthBands {
		if depth <= b.max {
			return b.color
		}
	}
	return depthBands[len(depthBands)-1].color
}

func floatEq(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}
