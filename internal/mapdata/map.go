// Package mapdata loads the trail network, sensors and special places of a
// training area and derives the trail topology the tourists walk.
package mapdata

import (
	"errors"
	"fmt"
	"math"
	"os"

	"gopr-simulator/internal/geo"

	"gopkg.in/yaml.v3"
)

var ErrInvalidMap = errors.New("invalid map")

// Load reads a map description. JSON map files (camelCase keys) parse as YAML.
func Load(path string) (*Map, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(b)
}

func Parse(b []byte) (*Map, error) {
	var m Map
	if err := yaml.Unmarshal(b, &m); err != nil {
		return nil, fmt.Errorf("decode map: %w", err)
	}
	if err := m.Init(); err != nil {
		return nil, err
	}
	return &m, nil
}

// LoadOrSample loads path when it exists, otherwise writes the sample map there
// and returns it.
func LoadOrSample(path string) (*Map, error) {
	if _, err := os.Stat(path); err == nil {
		return Load(path)
	} else if !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}
	m := Sample()
	if err := Save(path, m); err != nil {
		return nil, err
	}
	return m, nil
}

func Save(path string, m *Map) error {
	for i := range m.Trails {
		for j := range m.Trails[i].Points {
			m.Trails[i].Points[j].Point = j + 1
		}
	}
	b, err := yaml.Marshal(m)
	if err != nil {
		return fmt.Errorf("encode map: %w", err)
	}
	return os.WriteFile(path, b, 0o644)
}

// Init validates the map and builds the trail index. It must be called after
// the map is assembled by hand or loaded from a store.
func (m *Map) Init() error {
	m.byNumber = make(map[int]int, len(m.Trails))
	for i, t := range m.Trails {
		if len(t.Points) == 0 {
			return fmt.Errorf("%w: trail %d has no points", ErrInvalidMap, t.Number)
		}
		if _, dup := m.byNumber[t.Number]; dup {
			return fmt.Errorf("%w: duplicate trail number %d", ErrInvalidMap, t.Number)
		}
		for _, p := range t.Points {
			if math.IsNaN(p.Lon) || math.IsNaN(p.Lat) || math.IsInf(p.Lon, 0) || math.IsInf(p.Lat, 0) {
				return fmt.Errorf("%w: trail %d has a non-finite point", ErrInvalidMap, t.Number)
			}
		}
		m.byNumber[t.Number] = i
	}
	return nil
}

// Trail returns the trail with the given number.
func (m *Map) Trail(number int) (*Trail, bool) {
	if m.byNumber == nil {
		if err := m.Init(); err != nil {
			return nil, false
		}
	}
	i, ok := m.byNumber[number]
	if !ok {
		return nil, false
	}
	return &m.Trails[i], true
}

// Entrances returns the entrance trails in map order.
func (m *Map) Entrances() []*Trail {
	var out []*Trail
	for i := range m.Trails {
		if m.Trails[i].IsEntrance {
			out = append(out, &m.Trails[i])
		}
	}
	return out
}

// Detector returns the detector with the given number.
func (m *Map) Detector(number int) (Detector, bool) {
	for _, d := range m.Detectors {
		if d.Number == number {
			return d, true
		}
	}
	return Detector{}, false
}

// DetectorPositions maps detector numbers to their coordinates.
func (m *Map) DetectorPositions() map[int]geo.Position {
	out := make(map[int]geo.Position, len(m.Detectors))
	for _, d := range m.Detectors {
		out[d.Number] = d.Coordinates
	}
	return out
}

// NearestStation returns the BTS station closest to p.
func (m *Map) NearestStation(p geo.Position) (BTSStation, bool) {
	best := -1
	bestDist := math.MaxFloat64
	for i, s := range m.BTSStations {
		if d := geo.Distance(s.Coordinates, p); d < bestDist {
			best, bestDist = i, d
		}
	}
	if best < 0 {
		return BTSStation{}, false
	}
	return m.BTSStations[best], true
}
