// Package web renders the earthquake map page: a Leaflet map with one circle
// marker per earthquake, a popup per marker, and a depth legend.
package web

import (
	"embed"
	"fmt"
	"html/template"
	"io"
	"time"

	"github.com/couchcryptid/quake-map/internal/domain"
)

const (
	DefaultTileURL     = "https://{s}.tile.openstreetmap.org/{z}/{x}/{y}.png"
	DefaultAttribution = `&copy; <a href="https://www.openstreetmap.org/copyright">OpenStreetMap</a> contributors`
	DefaultTitle       = "Earthquakes, Past Week"
)

//go:embed templates/map.html.tmpl
var templateFS embed.FS

var pageTemplate = template.Must(template.ParseFS(templateFS, "templates/map.html.tmpl"))

// Map describes the base map: initial view and tile layer.
type Map struct {
	Center      [2]float64 // lat, lon
	Zoom        int
	TileURL     string
	Attribution string
}

// NewMap returns the world view used by the page. An empty tileURL selects
// the OpenStreetMap tiles.
func NewMap(tileURL string) Map {
	if tileURL == "" {
		tileURL = DefaultTileURL
	}
	return Map{
		Center:      [2]float64{20, 0},
		Zoom:        2,
		TileURL:     tileURL,
		Attribution: DefaultAttribution,
	}
}

// Legend is the depth legend control.
type Legend struct {
	Position string               `json:"position"`
	Entries  []domain.LegendEntry `json:"entries"`
}

// NewLegend returns the depth legend anchored bottom right.
func NewLegend() Legend {
	return Legend{
		Position: "bottomright",
		Entries:  domain.Legend(),
	}
}

// Page is everything Render needs for one HTML document.
type Page struct {
	Title    string
	Map      Map
	Legend   Legend
	Snapshot domain.Snapshot

	// Location is used for the "updated" line; UTC when nil.
	Location *time.Location
}

// markerView is the per-marker payload handed to the page script.
type markerView struct {
	ID          string  `json:"id"`
	Lat         float64 `json:"lat"`
	Lon         float64 `json:"lon"`
	Radius      float64 `json:"radius"`
	FillColor   string  `json:"fillColor"`
	Color       string  `json:"color"`
	Weight      float64 `json:"weight"`
	Opacity     float64 `json:"opacity"`
	FillOpacity float64 `json:"fillOpacity"`
	Place       string  `json:"place"`
	Date        string  `json:"date"`
	Magnitude   string  `json:"magnitude"`
	Depth       string  `json:"depth"`
}

type templateData struct {
	Title   string
	Map     Map
	Legend  Legend
	Markers []markerView
	Count   int
	Skipped int
	Updated string
}

// Render writes the map page for p to w. Marker text reaches the page only
// through html/template's contextual escaping.
func Render(w io.Writer, p Page) error {
	title := p.Title
	if title == "" {
		title = DefaultTitle
	}

	data := templateData{
		Title:   title,
		Map:     p.Map,
		Legend:  p.Legend,
		Markers: markerViews(p.Snapshot.Markers),
		Count:   len(p.Snapshot.Markers),
		Skipped: p.Snapshot.Skipped,
	}
	if !p.Snapshot.RenderedAt.IsZero() {
		data.Updated = domain.FormatDate(p.Snapshot.RenderedAt, p.Location)
	}

	if err := pageTemplate.Execute(w, data); err != nil {
		return fmt.Errorf("render page: %w", err)
	}
	return nil
}

func markerViews(markers []domain.Marker) []markerView {
	views := make([]markerView, 0, len(markers))
	for i := range markers {
		m := &markers[i]
		views = append(views, markerView{
			ID:          m.Feature.ID,
			Lat:         m.Feature.Lat,
			Lon:         m.Feature.Lon,
			Radius:      m.Encoding.Radius,
			FillColor:   m.Encoding.FillColor,
			Color:       m.Encoding.Color,
			Weight:      m.Encoding.Weight,
			Opacity:     m.Encoding.Opacity,
			FillOpacity: m.Encoding.FillOpacity,
			Place:       m.Summary.Place,
			Date:        m.Summary.Date,
			Magnitude:   m.Summary.Magnitude,
			Depth:       m.Summary.Depth,
		})
	}
	return views
}
