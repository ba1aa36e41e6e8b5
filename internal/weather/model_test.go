package weather

import (
	"path/filepath"
	"testing"
	"time"

	"gopr-simulator/internal/geo"
	"gopr-simulator/internal/randx"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var detectors = map[int]geo.Position{
	1: {Lon: 558, Lat: 139},
	2: {Lon: 165, Lat: 274},
	3: {Lon: 635, Lat: 298},
}

func within(t *testing.T, want, pct, got float64) {
	t.Helper()
	spread := pct * abs(want)
	assert.GreaterOrEqual(t, got, want-spread-0.005)
	assert.LessOrEqual(t, got, want+spread+0.005)
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

func TestReadingInterpolatesBetweenEvents(t *testing.T) {
	m := NewModel(detectors, []Event{
		{Minute: 10, Detectors: []int{1}, Temperature: 10},
		{Minute: 0, Detectors: []int{1}, Temperature: 0},
	}, randx.New(1))

	for i := 0; i < 200; i++ {
		r := m.Reading(1, 5)
		assert.GreaterOrEqual(t, r.Temperature, 4.85)
		assert.LessOrEqual(t, r.Temperature, 5.15)
		assert.Equal(t, 5, r.Minute)
		assert.Equal(t, detectors[1], r.Position)
	}
}

func TestReadingIdenticalEventsStayWithinEnvelope(t *testing.T) {
	m := NewModel(detectors, []Event{
		{Minute: 0, Detectors: []int{2}, Temperature: -4, Wind: 12, Fog: 30, Rain: 2},
		{Minute: 60, Detectors: []int{2}, Temperature: -4, Wind: 12, Fog: 30, Rain: 2},
	}, randx.New(2))

	for minute := 1; minute < 60; minute++ {
		r := m.Reading(2, minute)
		within(t, -4, NearVariation, r.Temperature)
		within(t, 12, NearVariation, r.Wind)
		within(t, 30, NearVariation, r.Fog)
		within(t, 2, NearVariation, r.Rain)
	}
}

func TestReadingDefaultsWithoutEvents(t *testing.T) {
	m := NewModel(detectors, nil, randx.New(3))
	for i := 0; i < 100; i++ {
		r := m.Reading(3, i)
		within(t, defaultTemperature, NearVariation, r.Temperature)
		within(t, defaultWind, NearVariation, r.Wind)
		assert.Zero(t, r.Fog)
		assert.Zero(t, r.Rain)
	}
}

func TestReadingHoldsSingleSide(t *testing.T) {
	m := NewModel(detectors, []Event{
		{Minute: 30, Detectors: []int{1}, Temperature: 20, Wind: 40, Fog: 10, Rain: 5},
	}, randx.New(4))

	for _, minute := range []int{0, 29, 30, 31, 500} {
		r := m.Reading(1, minute)
		within(t, 20, FarVariation, r.Temperature)
		within(t, 40, FarVariation, r.Wind)
		within(t, 10, FarVariation, r.Fog)
		within(t, 5, FarVariation, r.Rain)
	}
}

func TestReadingIgnoresOtherDetectors(t *testing.T) {
	m := NewModel(detectors, []Event{
		{Minute: 0, Detectors: []int{2}, Temperature: 100},
	}, randx.New(5))
	r := m.Reading(1, 0)
	within(t, defaultTemperature, NearVariation, r.Temperature)
}

func TestReadingAtEventMinuteUsesThatEvent(t *testing.T) {
	m := NewModel(detectors, []Event{
		{Minute: 0, Detectors: []int{1}, Temperature: 0},
		{Minute: 10, Detectors: []int{1}, Temperature: 10},
		{Minute: 20, Detectors: []int{1}, Temperature: 30},
	}, randx.New(6))
	r := m.Reading(1, 10)
	within(t, 10, NearVariation, r.Temperature)
	r = m.Reading(1, 15)
	within(t, 20, NearVariation, r.Temperature)
}

func TestInterpolateEqualMinutes(t *testing.T) {
	c := interpolate(Event{Minute: 5, Temperature: 1}, Event{Minute: 5, Temperature: 9}, 5)
	assert.Equal(t, 9.0, c.Temperature)
}

func TestReadingsCoverAllDetectors(t *testing.T) {
	m := NewModel(detectors, []Event{{Minute: 0, Detectors: []int{7}, Temperature: 1}}, randx.New(7))
	at := time.Date(2025, 1, 15, 8, 5, 0, 0, time.UTC)
	rs := m.Readings(5, at)
	require.Len(t, rs, 4)
	for i, id := range []int{1, 2, 3, 7} {
		assert.Equal(t, id, rs[i].DetectorID)
		assert.Equal(t, at, rs[i].Timestamp)
	}
	assert.Equal(t, "station-0007", rs[3].StationID())
}

func TestAddEventValidatesDetectors(t *testing.T) {
	m := NewModel(detectors, nil, randx.New(8))
	err := m.AddEvent(Event{Minute: 3, Detectors: []int{1, 9}})
	assert.ErrorIs(t, err, ErrUnknownDetector)
	assert.Empty(t, m.Events())

	require.NoError(t, m.AddEvent(Event{Minute: 30, Detectors: []int{1}}))
	require.NoError(t, m.AddEvent(Event{Minute: 3, Detectors: []int{2, 3}}))
	events := m.Events()
	require.Len(t, events, 2)
	assert.Equal(t, 3, events[0].Minute)
}

func TestEventsFileRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "weather_events.yaml")

	none, err := LoadEvents(path)
	require.NoError(t, err)
	assert.Empty(t, none)

	in := []Event{
		{Minute: 20, Detectors: []int{1}, Temperature: 3, Wind: 8},
		{Minute: 5, Detectors: []int{1, 2}, Temperature: -1, Fog: 40},
	}
	require.NoError(t, SaveEvents(path, in))
	out, err := LoadEvents(path)
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, 5, out[0].Minute)
	assert.Equal(t, []int{1, 2}, out[0].Detectors)
	assert.Equal(t, 40.0, out[0].Fog)
}
