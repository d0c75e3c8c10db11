package domain

import "strconv"

// Marker stroke style shared by every earthquake.
const (
	StrokeColor       = "#000"
	StrokeWeight      = 1.0
	StrokeOpacity     = 1.0
	MarkerFillOpacity = 0.8
)

// depthThreshold pairs a lower depth bound (exclusive) with its fill color.
type depthThreshold struct {
	above float64
	color string
}

// depthThresholds is ordered deepest first; Classify takes the first match.
var depthThresholds = []depthThreshold{
	{above: 90, color: "#800026"},
	{above: 70, color: "#BD0026"},
	{above: 50, color: "#E31A1C"},
	{above: 30, color: "#FC4E2A"},
	{above: 10, color: "#FEB24C"},
}

// ShallowColor is the fill for depths of 10 km or less, including negative depths.
const ShallowColor = "#FED976"

// legendGrades are the lower edges printed in the map legend.
var legendGrades = []float64{-10, 10, 30, 50, 70, 90}

// Classify maps a depth in kilometers to its bucket fill color.
// Each bucket is open at the bottom and closed at the top: 90 is "#BD0026",
// anything deeper is "#800026".
func Classify(depth float64) string {
	for _, th := range depthThresholds {
		if depth > th.above {
			return th.color
		}
	}
	return ShallowColor
}

// MarkerFor derives the circle-marker style for a feature. Radius is twice the
// magnitude without clamping, so a zero or negative magnitude gives a zero or
// negative radius.
func MarkerFor(f Feature) MarkerEncoding {
	return MarkerEncoding{
		Radius:      f.Magnitude * 2,
		FillColor:   Classify(f.Depth),
		Color:       StrokeColor,
		Weight:      StrokeWeight,
		Opacity:     StrokeOpacity,
		FillOpacity: MarkerFillOpacity,
	}
}

// LegendEntry is one row of the depth legend.
type LegendEntry struct {
	Color string `json:"color"`
	Label string `json:"label"`
}

// Legend returns the depth legend rows, shallowest first. Each row's color is
// the color of a depth just inside its interval; the last row is open-ended.
func Legend() []LegendEntry {
	entries := make([]LegendEntry, 0, len(legendGrades))
	for i, g := range legendGrades {
		label := formatGrade(g)
		if i+1 < len(legendGrades) {
			label += "–" + formatGrade(legendGrades[i+1])
		} else {
			label += "+"
		}
		entries = append(entries, LegendEntry{
			Color: Classify(g + 1),
			Label: label,
		})
	}
	return entries
}

func formatGrade(g float64) string {
	return strconv.FormatFloat(g, 'f', -1, 64)
}
