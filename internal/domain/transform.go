package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"
)

// ErrMalformedFeature marks a feed feature that lacks a field needed to draw it.
var ErrMalformedFeature = errors.New("malformed feature")

// placeRe parses USGS relative places: "<distance> km <compass> of <name>",
// e.g. "8 km ESE of Anza, CA" -> distance=8, direction=ESE, name="Anza, CA".
var placeRe = regexp.MustCompile(`^(\d+(?:\.\d+)?)\s*km\s+([NSEW]{1,3})\s+of\s+(.+)$`)

// ParseFeature validates a decoded GeoJSON feature and converts it into a Feature.
// The geometry must be a Point carrying a depth coordinate, and "mag" and "time"
// must be present and numeric. "place" and "url" are optional.
func ParseFeature(gf *geojson.Feature) (Feature, error) {
	if gf == nil {
		return Feature{}, fmt.Errorf("%w: nil feature", ErrMalformedFeature)
	}

	pt, ok := gf.Geometry.(*geom.Point)
	if !ok || pt == nil {
		return Feature{}, malformed(gf.ID, "geometry is not a point")
	}
	if pt.Empty() {
		return Feature{}, malformed(gf.ID, "point has no coordinates")
	}
	zIndex := pt.Layout().ZIndex()
	if zIndex == -1 {
		return Feature{}, malformed(gf.ID, "missing depth coordinate")
	}
	coords := pt.Coords()

	mag, err := numberProperty(gf.Properties, "mag")
	if err != nil {
		return Feature{}, malformed(gf.ID, err.Error())
	}
	ms, err := numberProperty(gf.Properties, "time")
	if err != nil {
		return Feature{}, malformed(gf.ID, err.Error())
	}

	f := Feature{
		ID:          gf.ID,
		Place:       stringProperty(gf.Properties, "place"),
		Magnitude:   mag,
		Time:        time.UnixMilli(int64(ms)).UTC(),
		Lon:         coords[0],
		Lat:         coords[1],
		Depth:       coords[zIndex],
		URL:         stringProperty(gf.Properties, "url"),
		PlaceSource: "feed",
	}

	for name, v := range map[string]float64{"lon": f.Lon, "lat": f.Lat, "depth": f.Depth, "mag": f.Magnitude} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return Feature{}, malformed(gf.ID, name+" is not finite")
		}
	}

	return f, nil
}

func malformed(id, reason string) error {
	return fmt.Errorf("%w: feature %q: %s", ErrMalformedFeature, id, reason)
}

// numberProperty reads a required numeric property.
func numberProperty(props map[string]interface{}, key string) (float64, error) {
	switch v := props[key].(type) {
	case float64:
		return v, nil
	case json.Number:
		f, err := v.Float64()
		if err != nil {
			return 0, fmt.Errorf("%s is not a number", key)
		}
		return f, nil
	case nil:
		return 0, fmt.Errorf("missing %s", key)
	default:
		return 0, fmt.Errorf("%s is not a number", key)
	}
}

// stringProperty reads an optional string property as sent, returning "" when
// absent or null.
func stringProperty(props map[string]interface{}, key string) string {
	s, _ := props[key].(string)
	return s
}

// ParsePlace splits a USGS place string into name, region, distance and direction.
// Plain region names keep distance and direction nil.
func ParsePlace(place string) PlaceParts {
	place = strings.TrimSpace(place)
	if place == "" {
		return PlaceParts{}
	}

	parts := PlaceParts{Raw: place, Name: place}
	if m := placeRe.FindStringSubmatch(place); len(m) == 4 {
		if d, err := strconv.ParseFloat(m[1], 64); err == nil {
			dir := m[2]
			parts.Distance = &d
			parts.Direction = &dir
			parts.Name = strings.TrimSpace(m[3])
		}
	}

	if i := strings.LastIndex(parts.Name, ", "); i > 0 {
		parts.Region = strings.TrimSpace(parts.Name[i+2:])
		parts.Name = strings.TrimSpace(parts.Name[:i])
	}
	return parts
}

// Transform derives the full marker for a validated feature.
func Transform(f Feature, loc *time.Location) Marker {
	return Marker{
		Feature:  f,
		Encoding: MarkerFor(f),
		Summary:  Summarize(f, loc),
		Place:    placeParts(f),
	}
}

// placeParts splits f.Place. A reverse-geocoded place uses the provider's
// short name, with the rest of the address as the region.
func placeParts(f Feature) PlaceParts {
	parts := ParsePlace(f.Place)
	if f.PlaceSource != "reverse" || f.GeocodedName == "" {
		return parts
	}
	parts.Name = f.GeocodedName
	if rest, ok := strings.CutPrefix(parts.Raw, f.GeocodedName+", "); ok {
		parts.Region = rest
	}
	return parts
}

// BoundsOf returns the lon/lat extent of markers, or nil when there are none.
func BoundsOf(markers []Marker) *Bounds {
	b := geom.NewBounds(geom.XY)
	for i := range markers {
		b.Extend(geom.NewPointFlat(geom.XY, []float64{markers[i].Feature.Lon, markers[i].Feature.Lat}))
	}
	if b.IsEmpty() {
		return nil
	}
	return &Bounds{
		MinLon: b.Min(0),
		MinLat: b.Min(1),
		MaxLon: b.Max(0),
		MaxLat: b.Max(1),
	}
}
