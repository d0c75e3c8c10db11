package domain

import (
	"time"

	"github.com/twpayne/go-geom/encoding/geojson"
)

// Feature is a validated earthquake record taken from one GeoJSON feature.
type Feature struct {
	ID        string    `json:"id"`
	Place     string    `json:"place"`
	Magnitude float64   `json:"mag"`
	Time      time.Time `json:"time"`
	Lon       float64   `json:"lon"`
	Lat       float64   `json:"lat"`
	Depth     float64   `json:"depth_km"`
	URL       string    `json:"url,omitempty"`

	// PlaceSource records where Place came from: "feed", "reverse", or "failed".
	PlaceSource string `json:"place_source,omitempty"`
	// GeocodedName is the provider's short place name when PlaceSource is "reverse".
	GeocodedName string `json:"geocoded_name,omitempty"`
}

// MarkerEncoding is the circle-marker style derived from a feature.
type MarkerEncoding struct {
	Radius      float64 `json:"radius"`
	FillColor   string  `json:"fill_color"`
	Color       string  `json:"color"`
	Weight      float64 `json:"weight"`
	Opacity     float64 `json:"opacity"`
	FillOpacity float64 `json:"fill_opacity"`
}

// Summary holds the display text for a marker popup.
type Summary struct {
	Place     string `json:"place"`
	Date      string `json:"date"`
	Magnitude string `json:"magnitude"`
	Depth     string `json:"depth"`
}

// PlaceParts is a USGS place string split into its relative-location parts.
// Distance and Direction are nil when the place is a plain region name.
type PlaceParts struct {
	Raw       string   `json:"raw,omitempty"`
	Name      string   `json:"name,omitempty"`
	Region    string   `json:"region,omitempty"`
	Distance  *float64 `json:"distance_km,omitempty"`
	Direction *string  `json:"direction,omitempty"`
}

// Marker is everything the presentation layer needs to draw one earthquake.
type Marker struct {
	Feature  Feature        `json:"feature"`
	Encoding MarkerEncoding `json:"encoding"`
	Summary  Summary        `json:"summary"`
	Place    PlaceParts     `json:"place"`
}

// Bounds is the longitude/latitude extent of a set of markers.
type Bounds struct {
	MinLon float64 `json:"min_lon"`
	MinLat float64 `json:"min_lat"`
	MaxLon float64 `json:"max_lon"`
	MaxLat float64 `json:"max_lat"`
}

// Snapshot is the result of one classification pass over the feed.
type Snapshot struct {
	ID              string    `json:"id"`
	RenderedAt      time.Time `json:"rendered_at"`
	FeedTitle       string    `json:"feed_title,omitempty"`
	FeedGeneratedAt time.Time `json:"feed_generated_at,omitzero"`
	Markers         []Marker  `json:"markers"`
	Skipped         int       `json:"skipped"`
	Bounds          *Bounds   `json:"bounds,omitempty"`
}

// Feed is one decoded response of a USGS summary feed. Features are still in
// GeoJSON form; ParseFeature validates each one.
type Feed struct {
	Title       string
	GeneratedAt time.Time
	Features    []*geojson.Feature

	// DecodeErrors holds one error per feature that could not be decoded.
	// Each wraps ErrMalformedFeature.
	DecodeErrors []error
}
