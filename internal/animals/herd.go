package animals

import (
	"fmt"
	"time"

	"gopr-simulator/internal/geo"
	"gopr-simulator/internal/mapdata"
	"gopr-simulator/internal/randx"
)

// JitterRange is the per-axis sensor noise added to every reported position.
const JitterRange = 1.0

// Spec describes one animal to place in the simulation.
type Spec struct {
	Type string
	// Trail, when non-zero, forces the route through that trail.
	Trail int
	Start *geo.Position
}

type Animal struct {
	ID    string
	Type  string
	Route geo.Route
}

// ID formats the identifier of the n-th (1-based) animal.
func ID(kind string, n int) string {
	return fmt.Sprintf("%s-%04d", kind, n)
}

// Herd assigns one route per animal over the run window [start, end].
func Herd(gen *Generator, m *mapdata.Map, specs []Spec, start, end time.Time, points int) ([]Animal, error) {
	out := make([]Animal, 0, len(specs))
	for i, s := range specs {
		a := Animal{ID: ID(s.Type, i+1), Type: s.Type}
		var err error
		if s.Trail != 0 {
			trail, ok := m.Trail(s.Trail)
			if !ok {
				return nil, fmt.Errorf("animal %s: %w: unknown trail %d", a.ID, ErrInvalidArgument, s.Trail)
			}
			a.Route, err = gen.AlongPath(start, end, points, trail.Path(), s.Start)
		} else {
			a.Route, err = gen.Walk(start, end, points, s.Start)
		}
		if err != nil {
			return nil, fmt.Errorf("animal %s: %w", a.ID, err)
		}
		out = append(out, a)
	}
	return out, nil
}

// Observe returns the animal's route position at the given time with sensor
// noise applied.
func (a Animal) Observe(at time.Time, rng randx.Source) (geo.Position, error) {
	p, err := geo.Locate(a.Route, at)
	if err != nil {
		return p, err
	}
	p.Lon += randx.Uniform(rng, -JitterRange, JitterRange)
	p.Lat += randx.Uniform(rng, -JitterRange, JitterRange)
	return p, nil
}
