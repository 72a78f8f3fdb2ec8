// Package mapview turns accidents into the GeoJSON markers drawn by the
// browser map, and carries the Leaflet view settings.
package mapview

import (
	"strings"

	"github.com/google/uuid"
	"github.com/ppiankov/acmap/internal/model"
	"github.com/ppiankov/acmap/internal/popup"
)

// markerNamespace scopes the name-based UUIDs of accident markers
var markerNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://github.com/ppiankov/acmap/markers"))

// FeatureCollection is a GeoJSON feature collection
type FeatureCollection struct {
	Type     string    `json:"type"`
	Features []Feature `json:"features"`
}

// Feature is a single accident marker
type Feature struct {
	Type       string     `json:"type"`
	ID         string     `json:"id"`
	Geometry   Geometry   `json:"geometry"`
	Properties Properties `json:"properties"`
}

// Geometry is a GeoJSON point; coordinates are [longitude, latitude]
type Geometry struct {
	Type        string     `json:"type"`
	Coordinates [2]float64 `json:"coordinates"`
}

// Properties are the marker attributes read by the map page
type Properties struct {
	Title      string   `json:"title"`
	Date       string   `json:"date"`
	Operator   string   `json:"operator"`
	Fatalities int      `json:"fatalities"`
	Occupants  int      `json:"occupants"`
	Categories []string `json:"categories"`
	Disputed   bool     `json:"disputed"`
	Popup      string   `json:"popup"`
}

// Builder renders accidents as map markers
type Builder struct {
	popups *popup.Builder
}

// NewBuilder creates a marker builder
func NewBuilder() *Builder {
	return &Builder{popups: popup.NewBuilder()}
}

// Build returns one feature per accident, in input order
func (b *Builder) Build(accidents []model.Accident) FeatureCollection {
	features := make([]Feature, 0, len(accidents))
	for i := range accidents {
		features = append(features, b.Feature(&accidents[i]))
	}
	return FeatureCollection{
		Type:     "FeatureCollection",
		Features: features,
	}
}

// Feature renders a single accident
func (b *Builder) Feature(a *model.Accident) Feature {
	categories := a.Categories
	if categories == nil {
		categories = []string{}
	}

	return Feature{
		Type: "Feature",
		ID:   FeatureID(a),
		Geometry: Geometry{
			Type:        "Point",
			Coordinates: a.Coordinates(),
		},
		Properties: Properties{
			Title:      popup.Title(a),
			Date:       a.Date.String(),
			Operator:   a.Operator,
			Fatalities: a.Fatalities,
			Occupants:  a.Occupants,
			Categories: categories,
			Disputed:   a.IsDisputed,
			Popup:      b.popups.Build(a),
		},
	}
}

// FeatureID is stable across fetches: the API has no accident ids, so the
// id is derived from the fields that identify a flight.
func FeatureID(a *model.Accident) string {
	name := strings.Join([]string{
		a.Date.String(),
		a.Operator,
		a.FlightNumber,
		a.AircraftRegistration,
	}, "|")
	return uuid.NewSHA1(markerNamespace, []byte(name)).String()
}
