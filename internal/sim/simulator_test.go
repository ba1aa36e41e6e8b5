package sim

import (
	"strings"
	"testing"
	"time"

	"gopr-simulator/internal/animals"
	"gopr-simulator/internal/geo"
	"gopr-simulator/internal/mapdata"
	"gopr-simulator/internal/randx"
	"gopr-simulator/internal/tourist"
	"gopr-simulator/internal/weather"

	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// calm makes every 1-in-n roll fail and centers every uniform draw.
type calm struct{}

func (calm) Float64() float64 { return 0.5 }
func (calm) IntN(n int) int   { return n - 1 }

var t0 = time.Date(2025, 1, 15, 8, 0, 0, 0, time.UTC)

func herdSpecs() []animals.Spec {
	return []animals.Spec{
		{Type: "deer"},
		{Type: "bear", Trail: 1},
	}
}

func newSim(t *testing.T, rng randx.Source, spawn float64) (*Simulator, *logtest.Hook) {
	t.Helper()
	log, hook := logtest.NewNullLogger()
	log.SetLevel(logrus.DebugLevel)
	m := mapdata.Sample()
	wm := weather.NewModel(m.DetectorPositions(), nil, rng)
	s, err := New(m, wm, Settings{
		Start:       t0,
		End:         t0.Add(time.Hour),
		SpawnChance: spawn,
		RoutePoints: 20,
		Animals:     herdSpecs(),
	}, rng, log, nil)
	require.NoError(t, err)
	return s, hook
}

func TestNewRejectsBadSettings(t *testing.T) {
	log, _ := logtest.NewNullLogger()
	m := mapdata.Sample()
	wm := weather.NewModel(m.DetectorPositions(), nil, calm{})

	_, err := New(m, wm, Settings{Start: t0, End: t0.Add(-time.Minute)}, calm{}, log, nil)
	assert.ErrorIs(t, err, ErrInvalidSettings)

	_, err = New(m, wm, Settings{Start: t0, End: t0.Add(time.Hour), SpawnChance: 120}, calm{}, log, nil)
	assert.ErrorIs(t, err, ErrInvalidSettings)

	_, err = New(m, wm, Settings{Start: t0, End: t0.Add(time.Hour), Animals: []animals.Spec{{Type: "lynx", Trail: 9}}}, calm{}, log, nil)
	assert.ErrorIs(t, err, animals.ErrInvalidArgument)
}

func TestTickWithoutTouristsReportsAnimalsAndWeather(t *testing.T) {
	s, _ := newSim(t, randx.New(1), 0)

	snap := s.Tick(t0.Add(90*time.Second), 10*time.Second)
	assert.Equal(t, s.RunID(), snap.RunID)
	assert.Equal(t, 1, snap.Minute)
	assert.Empty(t, snap.Tourists)
	assert.Empty(t, snap.Departures)
	require.Len(t, snap.Animals, 2)
	assert.Equal(t, "deer-0001", snap.Animals[0].ID)
	assert.Equal(t, "bear-0002", snap.Animals[1].ID)
	require.Len(t, snap.Weather, 3)
	for i, r := range snap.Weather {
		assert.Equal(t, i+1, r.DetectorID)
		assert.Equal(t, 1, r.Minute)
	}
}

func TestTickAnimalJitterIsBounded(t *testing.T) {
	s, _ := newSim(t, randx.New(2), 0)
	at := t0.Add(17 * time.Minute)
	snap := s.Tick(at, 10*time.Second)
	for i, a := range s.Animals() {
		want := a.Route.At(at)
		got := snap.Animals[i].Position
		assert.LessOrEqual(t, abs(got.Lon-want.Lon), animals.JitterRange)
		assert.LessOrEqual(t, abs(got.Lat-want.Lat), animals.JitterRange)
		assert.Equal(t, at, snap.Animals[i].Timestamp)
	}
}

func TestTickSpawnsOnEntranceTrails(t *testing.T) {
	s, _ := newSim(t, randx.New(3), 100)

	snap := s.Tick(t0, 10*time.Second)
	require.Len(t, snap.Tourists, 1)
	r := snap.Tourists[0]
	assert.True(t, strings.HasPrefix(r.PhoneID, "+48"))
	assert.Equal(t, 2, r.Trail)
	assert.Contains(t, []string{tourist.LocationGPS, tourist.LocationBTS}, r.LocationType)

	snap = s.Tick(t0.Add(10*time.Second), 10*time.Second)
	require.Len(t, snap.Tourists, 2)
	assert.Equal(t, r.PhoneID, snap.Tourists[0].PhoneID)
	assert.NotEqual(t, snap.Tourists[0].PhoneID, snap.Tourists[1].PhoneID)
}

func TestTickPerTrailSpawnChanceOverridesDefault(t *testing.T) {
	s, _ := newSim(t, calm{}, 100)
	zero := 0.0
	s.env.Map.Trails[1].SpawnChance = &zero

	snap := s.Tick(t0, 10*time.Second)
	assert.Empty(t, snap.Tourists)
}

func TestTickRemovesDepartedTourists(t *testing.T) {
	s, _ := newSim(t, calm{}, 0)
	s.tourists = append(s.tourists, &tourist.Agent{
		PhoneID:    "+48111222333",
		StartTrail: 2,
		Trail:      2,
		Index:      0,
		Direction:  -1,
		Position:   geo.Position{Lon: 927, Lat: 198},
		Moving:     true,
		BaseSpeed:  1,
		Speed:      1,
		GPSEnabled: true,
		Stats:      tourist.Stats{EntryTime: t0},
	})

	now := t0.Add(5 * time.Minute)
	snap := s.Tick(now, 10*time.Second)
	assert.Empty(t, snap.Tourists)
	assert.Zero(t, s.TouristCount())
	require.Len(t, snap.Departures, 1)
	d := snap.Departures[0]
	assert.Equal(t, "+48111222333", d.PhoneID)
	assert.Equal(t, t0, d.EntryTime)
	assert.Equal(t, now, d.ExitTime)
	assert.Equal(t, tourist.ExitNormal, d.ExitReason)
}

func TestTickSkipsTouristOnUnknownTrail(t *testing.T) {
	s, hook := newSim(t, calm{}, 0)
	pos := geo.Position{Lon: 10, Lat: 10}
	s.tourists = append(s.tourists, &tourist.Agent{PhoneID: "+48999888777", Trail: 99, Direction: 1, Position: pos, Moving: true, Speed: 1})

	snap := s.Tick(t0, 10*time.Second)
	require.Len(t, snap.Tourists, 1)
	assert.Equal(t, pos, snap.Tourists[0].Position)

	var warned bool
	for _, e := range hook.AllEntries() {
		if e.Level == logrus.WarnLevel && e.Message == "tourist update skipped" {
			warned = true
		}
	}
	assert.True(t, warned)
}

func TestTouristRecordTagsNearestStation(t *testing.T) {
	s, _ := newSim(t, calm{}, 0)
	s.tourists = append(s.tourists,
		&tourist.Agent{PhoneID: "+48100000001", Trail: 1, Direction: 1, Position: geo.Position{Lon: 563, Lat: 282}, Moving: true, Speed: 1},
		&tourist.Agent{PhoneID: "+48100000002", Trail: 1, Direction: 1, Position: geo.Position{Lon: 563, Lat: 282}, Moving: true, Speed: 1, GPSEnabled: true},
	)

	snap := s.Tick(t0, 10*time.Second)
	require.Len(t, snap.Tourists, 2)
	assert.Equal(t, tourist.LocationBTS, snap.Tourists[0].LocationType)
	assert.Equal(t, 1, snap.Tourists[0].Station)
	assert.Equal(t, tourist.LocationGPS, snap.Tourists[1].LocationType)
	assert.Zero(t, snap.Tourists[1].Station)
}

func TestResetStartsNewRun(t *testing.T) {
	s, _ := newSim(t, randx.New(4), 100)
	first := s.RunID()
	s.Tick(t0, 10*time.Second)
	require.Equal(t, 1, s.TouristCount())

	require.NoError(t, s.Reset())
	assert.NotEqual(t, first, s.RunID())
	assert.Zero(t, s.TouristCount())
	assert.Len(t, s.Animals(), 2)
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
