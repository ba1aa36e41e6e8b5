package animals

import (
	"testing"
	"time"

	"gopr-simulator/internal/geo"
	"gopr-simulator/internal/mapdata"
	"gopr-simulator/internal/randx"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHerdAssignsRoutes(t *testing.T) {
	m := mapdata.Sample()
	start := geo.Position{Lon: 300, Lat: 300}
	specs := []Spec{
		{Type: "jelen"},
		{Type: "niedzwiedz", Trail: 1},
		{Type: "jelen", Start: &start},
	}

	herd, err := Herd(NewGenerator(randx.New(9)), m, specs, t0, t0.Add(time.Hour), 100)
	require.NoError(t, err)
	require.Len(t, herd, 3)

	assert.Equal(t, "jelen-0001", herd[0].ID)
	assert.Equal(t, "niedzwiedz-0002", herd[1].ID)
	assert.Equal(t, "jelen-0003", herd[2].ID)
	assert.Equal(t, start, herd[2].Route[0].Position)

	trail, _ := m.Trail(1)
	assert.Equal(t, trail.First(), herd[1].Route[0].Position)
	assert.Equal(t, trail.Last(), herd[1].Route[99].Position)
}

func TestHerdUnknownTrail(t *testing.T) {
	_, err := Herd(NewGenerator(randx.New(1)), mapdata.Sample(), []Spec{{Type: "kozica", Trail: 42}}, t0, t0.Add(time.Hour), 100)
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestHerdTooFewPointsForTrail(t *testing.T) {
	_, err := Herd(NewGenerator(randx.New(1)), mapdata.Sample(), []Spec{{Type: "kozica", Trail: 1}}, t0, t0.Add(time.Hour), 4)
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestObserveAddsBoundedJitter(t *testing.T) {
	a := Animal{ID: "jelen-0001", Route: geo.Route{
		{Time: t0, Position: geo.Position{Lon: 100, Lat: 100}},
		{Time: t0.Add(time.Minute), Position: geo.Position{Lon: 200, Lat: 100}},
	}}
	rng := randx.New(11)
	for i := 0; i < 100; i++ {
		p, err := a.Observe(t0.Add(30*time.Second), rng)
		require.NoError(t, err)
		assert.InDelta(t, 150, p.Lon, JitterRange)
		assert.InDelta(t, 100, p.Lat, JitterRange)
	}
}

func TestObserveEmptyRoute(t *testing.T) {
	_, err := Animal{ID: "x"}.Observe(t0, randx.New(1))
	assert.ErrorIs(t, err, geo.ErrInvalidRoute)
}
