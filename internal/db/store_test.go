package db

import (
	"context"
	"database/sql"
	"os"
	"testing"
	"time"

	"gopr-simulator/internal/animals"
	"gopr-simulator/internal/geo"
	"gopr-simulator/internal/mapdata"
	"gopr-simulator/internal/sim"
	"gopr-simulator/internal/weather"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// openTestDB connects to DATABASE_URL or skips the test.
func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		t.Skip("DATABASE_URL not set")
	}
	conn, err := Open(dsn)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	require.NoError(t, Ping(context.Background(), conn))
	require.NoError(t, EnsureSchema(context.Background(), conn))
	return conn
}

func TestMapRoundTrip(t *testing.T) {
	conn := openTestDB(t)
	ctx := context.Background()

	m := mapdata.Sample()
	m.Name = "test-" + uuid.NewString()
	chance := 12.5
	m.Trails[1].SpawnChance = &chance
	t.Cleanup(func() { conn.Exec(`DELETE FROM simulation_gopr.map WHERE map_name = $1`, m.Name) })

	require.NoError(t, SaveMap(ctx, conn, m))
	// saving again replaces the stored version
	require.NoError(t, SaveMap(ctx, conn, m))

	got, err := LoadMap(ctx, conn, m.Name)
	require.NoError(t, err)
	require.Len(t, got.Trails, 2)
	assert.Equal(t, m.Trails[0].Path(), got.Trails[0].Path())
	assert.True(t, got.Trails[1].IsEntrance)
	require.NotNil(t, got.Trails[1].SpawnChance)
	assert.Equal(t, 12.5, *got.Trails[1].SpawnChance)
	assert.Nil(t, got.Trails[0].SpawnChance)
	assert.Equal(t, m.Detectors, got.Detectors)
	assert.Equal(t, m.BTSStations, got.BTSStations)
	assert.Equal(t, m.SpecialPlaces, got.SpecialPlaces)
	assert.Equal(t, m.Raster, got.Raster)

	_, err = LoadMap(ctx, conn, "missing-"+uuid.NewString())
	assert.ErrorIs(t, err, ErrMapNotFound)
}

func TestStoreWritesSnapshot(t *testing.T) {
	conn := openTestDB(t)
	ctx := context.Background()
	t0 := time.Date(2025, 1, 15, 8, 0, 0, 0, time.UTC)

	run := Run{
		ID:         uuid.New(),
		MapName:    "The Tatra Mountains TEST",
		Settings:   sim.Settings{Start: t0, End: t0.Add(time.Hour), SpawnChance: 5},
		Multiplier: 60,
	}
	t.Cleanup(func() { conn.Exec(`DELETE FROM simulation_gopr.simulation WHERE simulation_id = $1`, run.ID.String()) })
	require.NoError(t, InsertRun(ctx, conn, run, []animals.Animal{{ID: "deer-0001", Type: "deer"}}))

	snap := sim.Snapshot{
		RunID:   run.ID,
		Time:    t0,
		Animals: []sim.AnimalRecord{{ID: "deer-0001", Type: "deer", Position: geo.Position{Lon: 1, Lat: 2}, Timestamp: t0}},
		Tourists: []sim.TouristRecord{
			{PhoneID: "+48123456789", StartTrail: 2, Trail: 2, Position: geo.Position{Lon: 3, Lat: 4}, Timestamp: t0, LocationType: "BTS", Station: 1},
			{PhoneID: "+48123456780", StartTrail: 2, Trail: 1, Position: geo.Position{Lon: 5, Lat: 6}, Timestamp: t0, LocationType: "GPS"},
		},
		Weather: []weather.Reading{
			{DetectorID: 1, Conditions: weather.Conditions{Temperature: 9.8, Wind: 5.1}, Timestamp: t0},
		},
		Departures: []sim.Departure{
			{PhoneID: "+48555000111", StartTrail: 2, EntryTime: t0.Add(-time.Minute), ExitTime: t0, ExitReason: "normal_exit"},
		},
	}
	store := NewStore(conn)
	require.NoError(t, store.Write(ctx, snap))
	require.NoError(t, store.Write(ctx, snap))

	animalRows, touristRows, weatherRows, err := Counts(ctx, conn, run.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, animalRows)
	assert.Equal(t, 4, touristRows)
	assert.Equal(t, 2, weatherRows)

	var reason string
	require.NoError(t, conn.QueryRowContext(ctx, `SELECT exit_reason FROM simulation_gopr.tourist WHERE simulation_id = $1 AND phone_id = $2`,
		run.ID.String(), "+48555000111").Scan(&reason))
	assert.Equal(t, "normal_exit", reason)
}

func TestStoreRollsBackOnUnknownAnimal(t *testing.T) {
	conn := openTestDB(t)
	ctx := context.Background()
	t0 := time.Date(2025, 1, 15, 8, 0, 0, 0, time.UTC)

	run := Run{ID: uuid.New(), MapName: "m", Settings: sim.Settings{Start: t0, End: t0.Add(time.Hour)}, Multiplier: 1}
	t.Cleanup(func() { conn.Exec(`DELETE FROM simulation_gopr.simulation WHERE simulation_id = $1`, run.ID.String()) })
	require.NoError(t, InsertRun(ctx, conn, run, nil))

	err := NewStore(conn).Write(ctx, sim.Snapshot{
		RunID:   run.ID,
		Weather: []weather.Reading{{DetectorID: 1, Timestamp: t0}},
		Animals: []sim.AnimalRecord{{ID: "ghost-0001", Timestamp: t0}},
	})
	require.Error(t, err)

	_, _, weatherRows, err := Counts(ctx, conn, run.ID)
	require.NoError(t, err)
	assert.Zero(t, weatherRows)
}
