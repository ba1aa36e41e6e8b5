package tourist

import (
	"fmt"
	"math"
	"time"

	"gopr-simulator/internal/geo"
	"gopr-simulator/internal/mapdata"
	"gopr-simulator/internal/randx"
)

// Env is the read-only terrain an agent moves through.
type Env struct {
	Map      *mapdata.Map
	Topology *mapdata.Topology
}

type OutcomeKind int

const (
	Resting OutcomeKind = iota
	Walked
	Wandered
	Crossed
	Bounced
	Departed
)

func (k OutcomeKind) String() string {
	switch k {
	case Resting:
		return "resting"
	case Walked:
		return "walked"
	case Wandered:
		return "wandered"
	case Crossed:
		return "crossed"
	case Bounced:
		return "bounced"
	case Departed:
		return "departed"
	}
	return fmt.Sprintf("outcome(%d)", int(k))
}

// Outcome describes what one step did to the agent.
type Outcome struct {
	Kind      OutcomeKind
	FromTrail int
	ToTrail   int
	End       mapdata.End
}

// Step advances the agent by one tick of dt seconds at simulated time now.
// An unknown current trail leaves the agent untouched and returns
// ErrUnknownTrail.
func (a *Agent) Step(env Env, rng randx.Source, now time.Time, dt float64) (Outcome, error) {
	if a.Departed {
		return Outcome{Kind: Departed, FromTrail: a.Trail}, nil
	}

	inPlace := a.checkSpecialPlaces(env.Map.SpecialPlaces, rng)
	if !a.Moving {
		return Outcome{Kind: Resting, FromTrail: a.Trail}, nil
	}
	if !inPlace {
		a.rollInjury(rng)
		if !a.Moving {
			return Outcome{Kind: Resting, FromTrail: a.Trail}, nil
		}
		a.rollLost(rng)
	}

	if a.Lost {
		a.UpdateSpeed(rng)
		heading := randx.Uniform(rng, 0, 2*math.Pi)
		a.Position = geo.Offset(a.Position, a.Speed*dt, heading)
		a.OutOfRoute = true
		return Outcome{Kind: Wandered, FromTrail: a.Trail}, nil
	}

	trail, ok := env.Map.Trail(a.Trail)
	if !ok {
		return Outcome{}, fmt.Errorf("%w: tourist %s on trail %d", ErrUnknownTrail, a.PhoneID, a.Trail)
	}
	if a.Index < 0 || a.Index >= len(trail.Points) {
		a.Index = max(0, min(len(trail.Points)-1, a.Index))
	}

	next := a.Index + a.Direction
	if next < 0 || next >= len(trail.Points) {
		return a.manageCrossings(env, trail, rng, now)
	}

	a.UpdateSpeed(rng)
	pos, reached := geo.MoveToward(a.Position, trail.Position(next), a.Speed*dt)
	a.Position = pos
	if reached {
		a.Index = next
		a.OutOfRoute = false
	}
	return Outcome{Kind: Walked, FromTrail: a.Trail}, nil
}

// manageCrossings resolves an agent standing at either end of its trail: it
// steps onto a randomly chosen trail whose endpoint lies nearby, leaves the
// map at the start of an entrance trail, or turns back.
func (a *Agent) manageCrossings(env Env, trail *mapdata.Trail, rng randx.Source, now time.Time) (Outcome, error) {
	end := mapdata.Finish
	if a.Direction < 0 {
		end = mapdata.Start
	}
	out := Outcome{FromTrail: trail.Number, ToTrail: trail.Number, End: end}

	if links := env.Topology.Links(trail.Number, end); len(links) > 0 {
		l := links[rng.IntN(len(links))]
		to, ok := env.Map.Trail(l.Trail)
		if !ok {
			return Outcome{}, fmt.Errorf("%w: crossing from %d to %d", ErrUnknownTrail, trail.Number, l.Trail)
		}
		a.Trail, a.Index, a.Direction = l.Trail, l.Index, l.Direction
		a.Position = to.Position(l.Index)
		out.Kind, out.ToTrail = Crossed, l.Trail
		return out, nil
	}

	if end == mapdata.Start && trail.IsEntrance {
		a.depart(now, ExitNormal)
		out.Kind = Departed
		return out, nil
	}

	a.Direction = -a.Direction
	out.Kind = Bounced
	return out, nil
}
