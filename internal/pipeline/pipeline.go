package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/couchcryptid/quake-map/internal/domain"
	"github.com/couchcryptid/quake-map/internal/observability"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/robfig/cron/v3"
)

// FeatureSource reads one decoded copy of the earthquake feed.
type FeatureSource interface {
	FetchFeatures(ctx context.Context) (domain.Feed, error)
}

// Transformer converts a validated feature into a marker.
type Transformer interface {
	Transform(ctx context.Context, f domain.Feature) domain.Marker
}

// Loader receives every snapshot a pass produces.
type Loader interface {
	Load(ctx context.Context, s domain.Snapshot) error
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithClock sets the clock used to stamp snapshots.
func WithClock(c clockwork.Clock) Option {
	return func(p *Pipeline) { p.clock = c }
}

// WithSchedule sets a standard five-field cron expression for repeated passes.
// An empty schedule makes Run perform a single pass.
func WithSchedule(spec string) Option {
	return func(p *Pipeline) { p.schedule = spec }
}

// Pipeline runs the fetch, classify, publish pass.
type Pipeline struct {
	source      FeatureSource
	transformer Transformer
	loaders     []Loader
	clock       clockwork.Clock
	logger      *slog.Logger
	metrics     *observability.Metrics
	schedule    string
	ready       atomic.Bool

	// mu keeps passes from overlapping when RunOnce is called directly.
	mu sync.Mutex
}

// New creates a Pipeline with the given stages and observability.
func New(src FeatureSource, t Transformer, loaders []Loader, logger *slog.Logger, metrics *observability.Metrics, opts ...Option) *Pipeline {
	p := &Pipeline{
		source:      src,
		transformer: t,
		loaders:     loaders,
		clock:       clockwork.NewRealClock(),
		logger:      logger,
		metrics:     metrics,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// CheckReadiness returns nil once a pass has completed, or an error describing
// why the service is not yet ready.
func (p *Pipeline) CheckReadiness(_ context.Context) error {
	if !p.ready.Load() {
		return errors.New("no snapshot has been rendered yet")
	}
	return nil
}

// Run performs one pass immediately and then one per cron tick until ctx is
// cancelled. Pass failures are logged; they never stop the loop.
func (p *Pipeline) Run(ctx context.Context) error {
	p.logger.Info("pipeline started", "schedule", p.schedule)

	if _, err := p.RunOnce(ctx); err != nil && ctx.Err() == nil {
		p.logger.Error("initial pass failed", "error", err)
	}

	if p.schedule == "" {
		return nil
	}

	cl := cronLogger{logger: p.logger}
	c := cron.New(cron.WithLogger(cl), cron.WithChain(cron.SkipIfStillRunning(cl)))
	if _, err := c.AddFunc(p.schedule, func() {
		if _, err := p.RunOnce(ctx); err != nil && ctx.Err() == nil {
			p.logger.Error("scheduled pass failed", "error", err)
		}
	}); err != nil {
		return fmt.Errorf("schedule %q: %w", p.schedule, err)
	}

	p.metrics.PipelineRunning.Set(1)
	defer p.metrics.PipelineRunning.Set(0)

	c.Start()
	<-ctx.Done()
	p.logger.Info("pipeline stopping", "reason", ctx.Err())
	<-c.Stop().Done()
	return nil
}

// RunOnce fetches the feed, classifies every valid feature, and hands the
// resulting snapshot to each loader. Malformed features are skipped and
// counted. A fetch failure ends the pass without retry.
func (p *Pipeline) RunOnce(ctx context.Context) (domain.Snapshot, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	start := time.Now()

	feed, err := p.source.FetchFeatures(ctx)
	if err != nil {
		p.metrics.FetchErrors.Inc()
		p.logger.Error("fetch feed failed", "error", err)
		return domain.Snapshot{}, fmt.Errorf("fetch feed: %w", err)
	}
	p.metrics.FeaturesFetched.Add(float64(len(feed.Features) + len(feed.DecodeErrors)))

	snap := domain.Snapshot{
		ID:              uuid.NewString(),
		RenderedAt:      p.clock.Now().UTC(),
		FeedTitle:       feed.Title,
		FeedGeneratedAt: feed.GeneratedAt,
		Markers:         make([]domain.Marker, 0, len(feed.Features)),
	}

	for _, derr := range feed.DecodeErrors {
		p.skip(&snap, derr)
	}

	for _, gf := range feed.Features {
		f, err := domain.ParseFeature(gf)
		if err != nil {
			p.skip(&snap, err)
			continue
		}
		snap.Markers = append(snap.Markers, p.transformer.Transform(ctx, f))
	}
	snap.Bounds = domain.BoundsOf(snap.Markers)

	var loadErrs []error
	for _, l := range p.loaders {
		if err := l.Load(ctx, snap); err != nil {
			p.metrics.LoadErrors.Inc()
			p.logger.Error("load snapshot failed", "error", err, "snapshot_id", snap.ID)
			loadErrs = append(loadErrs, err)
		}
	}

	p.record(snap, time.Since(start))
	p.logger.Info("pass complete",
		"snapshot_id", snap.ID,
		"markers", len(snap.Markers),
		"skipped", snap.Skipped,
		"duration", time.Since(start),
	)

	if err := errors.Join(loadErrs...); err != nil {
		return snap, fmt.Errorf("load snapshot: %w", err)
	}
	return snap, nil
}

func (p *Pipeline) skip(snap *domain.Snapshot, err error) {
	snap.Skipped++
	p.metrics.FeaturesSkipped.Inc()
	p.logger.Warn("skipping malformed feature", "error", err)
}

func (p *Pipeline) record(snap domain.Snapshot, d time.Duration) {
	p.metrics.MarkersRendered.Add(float64(len(snap.Markers)))
	p.metrics.PassDuration.Observe(d.Seconds())

	p.metrics.MarkersByColor.Reset()
	for _, m := range snap.Markers {
		p.metrics.MarkersByColor.WithLabelValues(m.Encoding.FillColor).Inc()
	}

	p.metrics.LastSuccessEpoch.Set(float64(snap.RenderedAt.Unix()))
	p.ready.Store(true)
}

// cronLogger routes cron's own logging through slog.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error("cron: "+msg, append([]interface{}{"error", err}, keysAndValues...)...)
}
