// Package domain models USGS earthquake feed data and the visual encoding
// used to draw each earthquake on the map.
//
// # Data Source
//
// Earthquakes come from the USGS real-time GeoJSON summary feeds at
// https://earthquake.usgs.gov/earthquakes/feed/v1.0/. The service reads the
// "all_week" feed: a FeatureCollection of Point features, one per event.
//
// # USGS Feed Conventions
//
// Coordinates:
//
//	[longitude, latitude, depth] in decimal degrees and kilometers.
//	Depth is positive below the surface; shallow events near volcanoes or
//	with poorly constrained hypocenters can report small negative depths.
//
// Time:
//
//	"time" is milliseconds since the Unix epoch, UTC.
//
// Magnitude:
//
//	"mag" is a decimal on the scale named by "magType" (ml, md, mb, mww, ...).
//	It can be null for events still under review and can be negative for
//	very small local events.
//
// Place:
//
//	Human-readable region, usually "<distance> km <compass> of <name>",
//	e.g. "8 km ESE of Anza, CA". Offshore and remote events use a plain
//	region name such as "south of the Fiji Islands". Can be null.
//
// # Visual Encoding
//
//	Radius:  magnitude × 2, no clamping.
//	Fill:    six depth buckets, scanned from the deepest threshold down:
//	           > 90 km  #800026
//	           > 70 km  #BD0026
//	           > 50 km  #E31A1C
//	           > 30 km  #FC4E2A
//	           > 10 km  #FEB24C
//	           else     #FED976
//	Stroke:  black, weight 1, opacity 1, fill opacity 0.8.
//
// # Validation
//
// A feature without a magnitude, a time, or a three-element Point geometry
// cannot be encoded. [ParseFeature] rejects such features with an error
// wrapping [ErrMalformedFeature]; callers skip and log them.
package domain
