package mapview

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/ppiankov/acmap/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func accidents() []model.Accident {
	return []model.Accident{
		{
			Date:         model.NewDate(2009, time.January, 15),
			Operator:     "US Airways",
			FlightNumber: "US1549",
			AircraftType: "Airbus A320-214",
			Occupants:    155,
			Latitude:     40.769,
			Longitude:    -74.004,
			Categories:   []string{"Bird strike", "Ditching"},
		},
		{
			Date:         model.NewDate(2009, time.June, 1),
			Operator:     "Air France",
			FlightNumber: "AF447",
			AircraftType: "Airbus A330-203",
			Occupants:    228,
			Fatalities:   228,
			Latitude:     3.065,
			Longitude:    -30.561,
		},
	}
}

func TestBuilder_Build(t *testing.T) {
	fc := NewBuilder().Build(accidents())

	assert.Equal(t, "FeatureCollection", fc.Type)
	require.Len(t, fc.Features, 2)

	f := fc.Features[0]
	assert.Equal(t, "Feature", f.Type)
	assert.Equal(t, "Point", f.Geometry.Type)
	assert.Equal(t, [2]float64{-74.004, 40.769}, f.Geometry.Coordinates)
	assert.Equal(t, "US Airways Flight 1549", f.Properties.Title)
	assert.Equal(t, "2009-01-15", f.Properties.Date)
	assert.Contains(t, f.Properties.Popup, `<div class="popup-content">`)

	assert.Equal(t, "Air France Flight 447", fc.Features[1].Properties.Title)
	assert.Equal(t, []string{}, fc.Features[1].Properties.Categories)
}

func TestBuilder_Build_Empty(t *testing.T) {
	fc := NewBuilder().Build(nil)

	data, err := json.Marshal(fc)
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"FeatureCollection","features":[]}`, string(data))
}

func TestFeatureID(t *testing.T) {
	list := accidents()

	id1 := FeatureID(&list[0])
	id2 := FeatureID(&list[0])
	assert.Equal(t, id1, id2, "ids must be stable")
	assert.NotEqual(t, id1, FeatureID(&list[1]))

	parsed, err := uuid.Parse(id1)
	require.NoError(t, err)
	assert.Equal(t, uuid.Version(5), parsed.Version())
}

func TestSettingsFromConfig(t *testing.T) {
	s := SettingsFromConfig(model.DefaultConfig().Map)

	assert.Equal(t, 3, s.Zoom)
	assert.Equal(t, 20, s.MaxZoom)
	assert.Equal(t, 1.0, s.MaxBoundsViscosity)
	assert.Equal(t, [2]int{25, 41}, s.Icon.IconSize)
	assert.Contains(t, s.TileURL, "USGSImageryOnly")
}
