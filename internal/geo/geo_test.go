package geo

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2025, 1, 15, 8, 0, 0, 0, time.UTC)

func sampleRoute() Route {
	return Route{
		{Time: t0, Position: Position{Lon: 100, Lat: 200}},
		{Time: t0.Add(time.Minute), Position: Position{Lon: 160, Lat: 140}},
		{Time: t0.Add(3 * time.Minute), Position: Position{Lon: 160, Lat: 340}},
	}
}

func TestLocateClampsBeforeStart(t *testing.T) {
	r := sampleRoute()
	got, err := Locate(r, t0.Add(-time.Hour))
	require.NoError(t, err)
	assert.Equal(t, r[0].Position, got)
}

func TestLocateClampsAfterEnd(t *testing.T) {
	r := sampleRoute()
	got, err := Locate(r, t0.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, r[2].Position, got)
}

func TestLocateExactWaypoints(t *testing.T) {
	r := sampleRoute()
	for _, p := range r {
		got, err := Locate(r, p.Time)
		require.NoError(t, err)
		assert.Equal(t, p.Position, got)
	}
}

func TestLocateInterpolates(t *testing.T) {
	r := sampleRoute()
	got := r.At(t0.Add(30 * time.Second))
	assert.InDelta(t, 130, got.Lon, 1e-9)
	assert.InDelta(t, 170, got.Lat, 1e-9)

	got = r.At(t0.Add(2 * time.Minute))
	assert.InDelta(t, 160, got.Lon, 1e-9)
	assert.InDelta(t, 240, got.Lat, 1e-9)
}

func TestLocateDuplicateTimestamps(t *testing.T) {
	r := Route{
		{Time: t0, Position: Position{Lon: 0, Lat: 0}},
		{Time: t0.Add(time.Minute), Position: Position{Lon: 10, Lat: 10}},
		{Time: t0.Add(time.Minute), Position: Position{Lon: 50, Lat: 50}},
		{Time: t0.Add(2 * time.Minute), Position: Position{Lon: 60, Lat: 60}},
	}
	got := r.At(t0.Add(90 * time.Second))
	assert.InDelta(t, 55, got.Lon, 1e-9)
}

func TestLocateEmptyRoute(t *testing.T) {
	got, err := Locate(nil, t0)
	assert.ErrorIs(t, err, ErrInvalidRoute)
	assert.Equal(t, Position{}, got)
	assert.Equal(t, Position{}, Route(nil).At(t0))
}

func TestValidate(t *testing.T) {
	assert.NoError(t, sampleRoute().Validate())
	assert.ErrorIs(t, Route{{Time: t0}}.Validate(), ErrInvalidRoute)

	backwards := Route{{Time: t0.Add(time.Minute)}, {Time: t0}}
	assert.ErrorIs(t, backwards.Validate(), ErrInvalidRoute)
}

func TestMoveToward(t *testing.T) {
	from := Position{Lon: 0, Lat: 0}
	to := Position{Lon: 30, Lat: 40}

	pos, reached := MoveToward(from, to, 10)
	assert.False(t, reached)
	assert.InDelta(t, 6, pos.Lon, 1e-9)
	assert.InDelta(t, 8, pos.Lat, 1e-9)

	pos, reached = MoveToward(from, to, 50)
	assert.True(t, reached)
	assert.Equal(t, to, pos)

	pos, reached = MoveToward(to, Position{Lon: 30, Lat: 40 + 1e-9}, 0)
	assert.True(t, reached)
	assert.Equal(t, 40+1e-9, pos.Lat)
}

func TestOffset(t *testing.T) {
	p := Offset(Position{Lon: 1, Lat: 1}, 2, 0)
	assert.InDelta(t, 3, p.Lon, 1e-9)
	assert.InDelta(t, 1, p.Lat, 1e-9)
	assert.InDelta(t, 5, Distance(Position{}, Position{Lon: 3, Lat: 4}), 1e-12)
}
