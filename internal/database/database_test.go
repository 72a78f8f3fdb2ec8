package database

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/ppiankov/acmap/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestDB(t *testing.T) *DB {
	t.Helper()

	db, err := New(filepath.Join(t.TempDir(), "acmap.db"))
	require.NoError(t, err)
	require.NotNil(t, db)

	t.Cleanup(func() {
		assert.NoError(t, db.Close())
	})

	return db
}

func snapshotAccidents() []model.Accident {
	return []model.Accident{
		{
			Date:         model.NewDate(2009, time.June, 1),
			Operator:     "Air France",
			FlightNumber: "AF447",
			AircraftType: "Airbus A330-203",
			Fatalities:   228,
			Occupants:    228,
			Categories:   []string{"Loss of control"},
			Stopovers:    []model.Stopover{{Airport: model.Airport{IATACode: "XXX", ICAOCode: "XXXX", City: "Nowhere"}}},
		},
		{
			Date:         model.NewDate(1977, time.March, 27),
			Operator:     "KLM",
			AircraftType: "Boeing 747-206B",
			Fatalities:   248,
			Occupants:    248,
			Categories:   []string{"Runway incursion"},
			Resources:    []model.Resource{{URL: "https://example.com", Description: "Report"}},
		},
	}
}

func TestLoadSnapshot_NoneSaved(t *testing.T) {
	db := setupTestDB(t)

	_, err := db.LoadSnapshot(context.Background())
	assert.ErrorIs(t, err, ErrNoSnapshot)
}

func TestSaveAndLoadSnapshot(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	require.NoError(t, db.SaveSnapshot(ctx, snapshotAccidents()))

	loaded, err := db.LoadSnapshot(ctx)
	require.NoError(t, err)
	require.Len(t, loaded, 2)

	assert.Equal(t, "Air France", loaded[0].Operator, "order must be preserved")
	assert.Equal(t, "KLM", loaded[1].Operator)
	assert.Equal(t, model.NewDate(1977, time.March, 27), loaded[1].Date)
	assert.Equal(t, "Nowhere", loaded[0].Stopovers[0].Airport.City)
	assert.Equal(t, "Report", loaded[1].Resources[0].Description)

	info, err := db.SnapshotInfo(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, info.Count)
	assert.WithinDuration(t, time.Now(), info.SavedAt, time.Minute)
}

func TestSaveSnapshot_Replaces(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	require.NoError(t, db.SaveSnapshot(ctx, snapshotAccidents()))
	require.NoError(t, db.SaveSnapshot(ctx, snapshotAccidents()[1:]))

	loaded, err := db.FetchAccidents(ctx)
	require.NoError(t, err)
	require.Len(t, loaded, 1)
	assert.Equal(t, "KLM", loaded[0].Operator)
}

func TestSaveSnapshot_Empty(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	require.NoError(t, db.SaveSnapshot(ctx, nil))

	loaded, err := db.LoadSnapshot(ctx)
	require.NoError(t, err)
	assert.Empty(t, loaded)
}
