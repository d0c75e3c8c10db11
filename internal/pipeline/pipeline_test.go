package pipeline_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/couchcryptid/quake-map/internal/domain"
	"github.com/couchcryptid/quake-map/internal/observability"
	"github.com/couchcryptid/quake-map/internal/pipeline"
	"github.com/google/go-cmp/cmp"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twpayne/go-geom/encoding/geojson"
)

// --- mocks ---

type mockSource struct {
	feed  domain.Feed
	err   error
	calls atomic.Int64
}

func (m *mockSource) FetchFeatures(_ context.Context) (domain.Feed, error) {
	m.calls.Add(1)
	if m.err != nil {
		return domain.Feed{}, m.err
	}
	return m.feed, nil
}

type mockLoader struct {
	loaded []domain.Snapshot
	err    error
}

func (m *mockLoader) Load(_ context.Context, s domain.Snapshot) error {
	m.loaded = append(m.loaded, s)
	return m.err
}

func newTestMetrics() *observability.Metrics {
	// Use a fresh registry to avoid "already registered" panics in tests.
	return observability.NewMetricsForTesting()
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

var renderedAt = time.Date(2023, time.November, 14, 22, 20, 0, 0, time.UTC)

func gaugeValue(t *testing.T, g prometheus.Gauge) float64 {
	t.Helper()
	var m dto.Metric
	require.NoError(t, g.Write(&m))
	return m.GetGauge().GetValue()
}

func newPipeline(src pipeline.FeatureSource, loaders ...pipeline.Loader) *pipeline.Pipeline {
	return pipeline.New(src,
		pipeline.NewTransformer(nil, time.UTC, discardLogger()),
		loaders,
		discardLogger(),
		newTestMetrics(),
		pipeline.WithClock(clockwork.NewFakeClockAt(renderedAt)),
	)
}

// --- tests ---

func TestPipeline_RunOnce_HappyPath(t *testing.T) {
	src := &mockSource{feed: makeFeed(t,
		`{"type":"Feature","id":"us7000test","properties":{"mag":5.0,"place":"Test City","time":1700000000000},"geometry":{"type":"Point","coordinates":[-122.4,37.8,15.0]}}`,
		`{"type":"Feature","id":"us7000deep","properties":{"mag":4.6,"place":"south of the Fiji Islands","time":1700000090000},"geometry":{"type":"Point","coordinates":[178.1,-24.3,560.2]}}`,
	)}
	ldr := &mockLoader{}
	p := newPipeline(src, ldr)

	snap, err := p.RunOnce(context.Background())
	require.NoError(t, err)

	require.Len(t, snap.Markers, 2)
	assert.Equal(t, 0, snap.Skipped)
	assert.NotEmpty(t, snap.ID)
	assert.Equal(t, renderedAt, snap.RenderedAt)

	first := snap.Markers[0]
	assert.Equal(t, "us7000test", first.Feature.ID)
	assert.InDelta(t, 10.0, first.Encoding.Radius, 1e-9)
	assert.Equal(t, "#FEB24C", first.Encoding.FillColor)
	assert.Equal(t, "Test City", first.Summary.Place)
	assert.Equal(t, "15.00 km", first.Summary.Depth)
	assert.Equal(t, "#800026", snap.Markers[1].Encoding.FillColor)

	want := &domain.Bounds{MinLon: -122.4, MinLat: -24.3, MaxLon: 178.1, MaxLat: 37.8}
	if diff := cmp.Diff(want, snap.Bounds); diff != "" {
		t.Fatalf("bounds mismatch (-want +got):\n%s", diff)
	}

	require.Len(t, ldr.loaded, 1)
	assert.Equal(t, snap.ID, ldr.loaded[0].ID)
	assert.NoError(t, p.CheckReadiness(context.Background()))
}

func TestPipeline_RunOnce_SkipsMalformedFeatures(t *testing.T) {
	feed := makeFeed(t,
		`{"type":"Feature","id":"ok","properties":{"mag":1.0,"place":"A","time":0},"geometry":{"type":"Point","coordinates":[1,2,3]}}`,
		`{"type":"Feature","id":"nomag","properties":{"mag":null,"place":"B","time":0},"geometry":{"type":"Point","coordinates":[1,2,3]}}`,
		`{"type":"Feature","id":"flat","properties":{"mag":2.0,"place":"C","time":0},"geometry":{"type":"Point","coordinates":[1,2]}}`,
	)
	feed.DecodeErrors = []error{errors.Join(domain.ErrMalformedFeature, errors.New("feature 3: bad coordinates"))}

	ldr := &mockLoader{}
	p := newPipeline(&mockSource{feed: feed}, ldr)

	snap, err := p.RunOnce(context.Background())
	require.NoError(t, err)
	require.Len(t, snap.Markers, 1)
	assert.Equal(t, "ok", snap.Markers[0].Feature.ID)
	assert.Equal(t, 3, snap.Skipped)
}

func TestPipeline_RunOnce_FetchError(t *testing.T) {
	ldr := &mockLoader{}
	p := newPipeline(&mockSource{err: errors.New("connection refused")}, ldr)

	_, err := p.RunOnce(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "fetch feed")
	assert.Empty(t, ldr.loaded)
	assert.Error(t, p.CheckReadiness(context.Background()))
}

func TestPipeline_RunOnce_LoaderErrorStillLoadsOthers(t *testing.T) {
	src := &mockSource{feed: makeFeed(t,
		`{"type":"Feature","id":"a","properties":{"mag":1.0,"place":"A","time":0},"geometry":{"type":"Point","coordinates":[1,2,3]}}`,
	)}
	failing := &mockLoader{err: errors.New("broker down")}
	store := pipeline.NewSnapshotStore()
	p := newPipeline(src, failing, store)

	snap, err := p.RunOnce(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broker down")

	latest, ok := store.Latest()
	require.True(t, ok)
	assert.Equal(t, snap.ID, latest.ID)
}

func TestPipeline_RunOnce_EmptyFeed(t *testing.T) {
	p := newPipeline(&mockSource{feed: domain.Feed{Title: "empty"}})

	snap, err := p.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Empty(t, snap.Markers)
	assert.Nil(t, snap.Bounds)
	assert.Equal(t, "empty", snap.FeedTitle)
}

func TestPipeline_RunOnce_DistinctSnapshotIDs(t *testing.T) {
	p := newPipeline(&mockSource{feed: domain.Feed{}})

	a, err := p.RunOnce(context.Background())
	require.NoError(t, err)
	b, err := p.RunOnce(context.Background())
	require.NoError(t, err)
	assert.NotEqual(t, a.ID, b.ID)
}

func TestPipeline_Run_SinglePassWithoutSchedule(t *testing.T) {
	src := &mockSource{feed: domain.Feed{}}
	p := newPipeline(src)

	err := p.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), src.calls.Load())
	assert.NoError(t, p.CheckReadiness(context.Background()))
}

func TestPipeline_Run_Scheduled(t *testing.T) {
	src := &mockSource{feed: domain.Feed{}}
	p := pipeline.New(src, pipeline.NewTransformer(nil, nil, discardLogger()), nil,
		discardLogger(), newTestMetrics(), pipeline.WithSchedule("@every 1s"))

	ctx, cancel := context.WithTimeout(context.Background(), 1800*time.Millisecond)
	defer cancel()

	err := p.Run(ctx)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, src.calls.Load(), int64(2))
}

func TestPipeline_Run_RunningGaugeTracksLoop(t *testing.T) {
	metrics := newTestMetrics()
	p := pipeline.New(&mockSource{}, pipeline.NewTransformer(nil, nil, discardLogger()), nil,
		discardLogger(), metrics, pipeline.WithSchedule("@every 1h"))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- p.Run(ctx) }()

	assert.Eventually(t, func() bool {
		return gaugeValue(t, metrics.PipelineRunning) == 1
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	require.NoError(t, <-done)
	assert.Equal(t, 0.0, gaugeValue(t, metrics.PipelineRunning))
}

func TestPipeline_Run_NoScheduleLeavesRunningGaugeUnset(t *testing.T) {
	metrics := newTestMetrics()
	p := pipeline.New(&mockSource{}, pipeline.NewTransformer(nil, nil, discardLogger()), nil,
		discardLogger(), metrics)

	require.NoError(t, p.Run(context.Background()))
	assert.Equal(t, 0.0, gaugeValue(t, metrics.PipelineRunning))
	assert.NoError(t, p.CheckReadiness(context.Background()))
}

func TestPipeline_Run_InvalidSchedule(t *testing.T) {
	p := pipeline.New(&mockSource{}, pipeline.NewTransformer(nil, nil, discardLogger()), nil,
		discardLogger(), newTestMetrics(), pipeline.WithSchedule("every tuesday"))

	err := p.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "every tuesday")
}

func TestPipeline_Run_FetchErrorDoesNotStop(t *testing.T) {
	src := &mockSource{err: errors.New("timeout")}
	p := newPipeline(src)

	err := p.Run(context.Background())
	require.NoError(t, err)
	assert.Error(t, p.CheckReadiness(context.Background()))
}

func TestSnapshotStore_Empty(t *testing.T) {
	store := pipeline.NewSnapshotStore()
	_, ok := store.Latest()
	assert.False(t, ok)
}

func TestSnapshotStore_ReplacesLatest(t *testing.T) {
	store := pipeline.NewSnapshotStore()
	require.NoError(t, store.Load(context.Background(), domain.Snapshot{ID: "one"}))
	require.NoError(t, store.Load(context.Background(), domain.Snapshot{ID: "two"}))

	latest, ok := store.Latest()
	require.True(t, ok)
	assert.Equal(t, "two", latest.ID)
}

// --- helpers ---

func makeFeed(t *testing.T, features ...string) domain.Feed {
	t.Helper()
	feed := domain.Feed{Title: "test feed"}
	for _, raw := range features {
		var f geojson.Feature
		require.NoError(t, json.Unmarshal([]byte(raw), &f))
		feed.Features = append(feed.Features, &f)
	}
	return feed
}
