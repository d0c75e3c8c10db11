package domain

import (
	"context"
	"log/slog"
)

// EnrichPlace fills an empty Place by reverse geocoding the feature's
// coordinates. Features that already have a place, or a nil geocoder, are
// returned unchanged. Geocoding errors leave Place empty and set PlaceSource
// to "failed" (graceful degradation).
func EnrichPlace(ctx context.Context, f Feature, geocoder Geocoder, logger *slog.Logger) Feature {
	if geocoder == nil || f.Place != "" {
		return f
	}

	result, err := geocoder.ReverseGeocode(ctx, f.Lat, f.Lon)
	if err != nil {
		logger.Warn("reverse geocoding failed",
			"feature_id", f.ID,
			"lat", f.Lat,
			"lon", f.Lon,
			"error", err,
		)
		f.PlaceSource = "failed"
		return f
	}
	if result.FormattedAddress == "" {
		return f
	}

	f.Place = result.FormattedAddress
	f.GeocodedName = result.PlaceName
	f.PlaceSource = "reverse"
	return f
}
