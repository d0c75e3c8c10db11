package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/couchcryptid/quake-map/internal/domain"
)

// QuakeTransformer implements Transformer using the domain classification
// functions with optional reverse-geocoding of empty places.
type QuakeTransformer struct {
	geocoder domain.Geocoder
	loc      *time.Location
	logger   *slog.Logger
}

// NewTransformer creates a QuakeTransformer. Pass a nil geocoder to disable
// place enrichment. Dates are formatted in loc (UTC when nil).
func NewTransformer(geocoder domain.Geocoder, loc *time.Location, logger *slog.Logger) *QuakeTransformer {
	return &QuakeTransformer{
		geocoder: geocoder,
		loc:      loc,
		logger:   logger,
	}
}

func (t *QuakeTransformer) Transform(ctx context.Context, f domain.Feature) domain.Marker {
	f = domain.EnrichPlace(ctx, f, t.geocoder, t.logger)
	return domain.Transform(f, t.loc)
}
