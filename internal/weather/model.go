// Package weather interpolates detector readings between scheduled weather
// events and adds per-reading noise.
package weather

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"gopr-simulator/internal/geo"
	"gopr-simulator/internal/randx"
)

var ErrUnknownDetector = errors.New("unknown detector")

const (
	// NearVariation is the relative noise on interpolated and default values.
	NearVariation = 0.03
	// FarVariation is the relative noise when holding a single event.
	FarVariation = 0.10

	defaultTemperature = 10.0
	defaultWind        = 5.0
)

// Conditions is one set of weather scalars.
type Conditions struct {
	Temperature float64 `json:"temperature"`
	Wind        float64 `json:"wind"`
	Fog         float64 `json:"fog"`
	Rain        float64 `json:"rain"`
}

type Reading struct {
	DetectorID int
	Position   geo.Position
	Conditions
	Minute    int
	Timestamp time.Time
}

// StationID is the external identifier of the detector's weather station.
func (r Reading) StationID() string { return StationID(r.DetectorID) }

func StationID(detector int) string { return fmt.Sprintf("station-%04d", detector) }

// Model holds detector positions and scheduled events. Readings are taken on
// the simulation goroutine; AddEvent may be called from a control goroutine.
type Model struct {
	mu        sync.RWMutex
	detectors map[int]geo.Position
	events    []Event
	rng       randx.Source
}

func NewModel(detectors map[int]geo.Position, events []Event, rng randx.Source) *Model {
	m := &Model{detectors: make(map[int]geo.Position, len(detectors)), rng: rng}
	for id, p := range detectors {
		m.detectors[id] = p
	}
	m.events = append(m.events, events...)
	SortEvents(m.events)
	return m
}

// AddEvent schedules a new event after checking every detector it names is known.
func (m *Model) AddEvent(e Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, d := range e.Detectors {
		if _, ok := m.detectors[d]; !ok {
			return fmt.Errorf("%w: %d", ErrUnknownDetector, d)
		}
	}
	m.events = append(m.events, e)
	SortEvents(m.events)
	return nil
}

// Events returns a copy of the scheduled events.
func (m *Model) Events() []Event {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Event, len(m.events))
	copy(out, m.events)
	return out
}

// Detectors returns the ids of every known detector in ascending order,
// including detectors referenced only by events.
func (m *Model) Detectors() []int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	seen := make(map[int]struct{}, len(m.detectors))
	for id := range m.detectors {
		seen[id] = struct{}{}
	}
	for _, e := range m.events {
		for _, d := range e.Detectors {
			seen[d] = struct{}{}
		}
	}
	ids := make([]int, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

// Readings returns one reading per known detector at the given minute.
func (m *Model) Readings(minute int, at time.Time) []Reading {
	ids := m.Detectors()
	out := make([]Reading, 0, len(ids))
	for _, id := range ids {
		r := m.Reading(id, minute)
		r.Timestamp = at
		out = append(out, r)
	}
	return out
}

// Reading returns the detector's conditions at the given minute. Every call
// draws fresh noise, so repeated calls at the same minute differ.
func (m *Model) Reading(detector, minute int) Reading {
	// exclusive: the noise source is not safe for concurrent draws
	m.mu.Lock()
	defer m.mu.Unlock()

	r := Reading{DetectorID: detector, Position: m.detectors[detector], Minute: minute}

	var earlier, later *Event
	found := false
	for i := range m.events {
		e := &m.events[i]
		if !e.AppliesTo(detector) {
			continue
		}
		found = true
		if e.Minute <= minute {
			earlier = e
		} else if later == nil {
			later = e
		}
	}

	switch {
	case !found:
		r.Conditions = m.vary(Conditions{Temperature: defaultTemperature, Wind: defaultWind}, NearVariation)
	case earlier != nil && later != nil:
		r.Conditions = m.vary(interpolate(*earlier, *later, minute), NearVariation)
	case earlier != nil:
		r.Conditions = m.vary(conditionsOf(*earlier), FarVariation)
	default:
		r.Conditions = m.vary(conditionsOf(*later), FarVariation)
	}
	return r
}

func conditionsOf(e Event) Conditions {
	return Conditions{Temperature: e.Temperature, Wind: e.Wind, Fog: e.Fog, Rain: e.Rain}
}

func interpolate(e1, e2 Event, minute int) Conditions {
	ratio := 1.0
	if e2.Minute != e1.Minute {
		ratio = float64(minute-e1.Minute) / float64(e2.Minute-e1.Minute)
	}
	lerp := func(a, b float64) float64 { return a + (b-a)*ratio }
	return Conditions{
		Temperature: lerp(e1.Temperature, e2.Temperature),
		Wind:        lerp(e1.Wind, e2.Wind),
		Fog:         lerp(e1.Fog, e2.Fog),
		Rain:        lerp(e1.Rain, e2.Rain),
	}
}

func (m *Model) vary(c Conditions, pct float64) Conditions {
	return Conditions{
		Temperature: vary(m.rng, c.Temperature, pct),
		Wind:        vary(m.rng, c.Wind, pct),
		Fog:         vary(m.rng, c.Fog, pct),
		Rain:        vary(m.rng, c.Rain, pct),
	}
}

// vary perturbs v by up to ±pct of its magnitude and rounds to two decimals.
func vary(rng randx.Source, v, pct float64) float64 {
	spread := math.Abs(v) * pct
	return math.Round((v+randx.Uniform(rng, -spread, spread))*100) / 100
}
