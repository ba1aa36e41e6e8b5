// Package tourist implements the per-tick behavior of a hiker on the trail
// network: walking waypoint to waypoint, resting, injuries, getting lost and
// moving between trails.
package tourist

import (
	"errors"
	"fmt"
	"time"

	"gopr-simulator/internal/geo"
	"gopr-simulator/internal/mapdata"
	"gopr-simulator/internal/randx"
)

var ErrUnknownTrail = errors.New("unknown trail")

const (
	MinSpeed = 0.5
	MaxSpeed = 2.0

	speedDriftChance = 0.1
	speedDrift       = 0.1

	placeStopOdds  = 10 // 1 in 10
	resumeOdds     = 10
	injuryOdds     = 1000
	foundOdds      = 100
	getLostOdds    = 500
	ExitNormal     = "normal_exit"
	LocationGPS    = "GPS"
	LocationBTS    = "BTS"
	phoneNumberMin = 100000000
)

type Stats struct {
	EntryTime  time.Time
	ExitTime   time.Time
	ExitReason string
}

type Agent struct {
	PhoneID    string
	StartTrail int
	Trail      int
	Index      int
	// Direction is +1 walking toward the trail end, -1 toward its start.
	Direction  int
	Position   geo.Position
	Moving     bool
	Lost       bool
	OutOfRoute bool
	BaseSpeed  float64
	Speed      float64
	GPSEnabled bool
	Departed   bool
	Stats      Stats
}

// PhoneNumber draws a random Polish mobile number used as the agent id.
func PhoneNumber(rng randx.Source) string {
	return fmt.Sprintf("+48%d", phoneNumberMin+rng.IntN(900000000))
}

// New places a tourist at the first point of an entrance trail.
func New(phoneID string, entrance *mapdata.Trail, now time.Time, rng randx.Source) *Agent {
	base := randx.Uniform(rng, MinSpeed, MaxSpeed)
	return &Agent{
		PhoneID:    phoneID,
		StartTrail: entrance.Number,
		Trail:      entrance.Number,
		Index:      0,
		Direction:  1,
		Position:   entrance.First(),
		Moving:     true,
		BaseSpeed:  base,
		Speed:      base,
		GPSEnabled: rng.IntN(2) == 0,
		Stats:      Stats{EntryTime: now},
	}
}

// LocationType is the positioning technology reported for the agent.
func (a *Agent) LocationType() string {
	if a.GPSEnabled {
		return LocationGPS
	}
	return LocationBTS
}

// UpdateSpeed occasionally resamples the current speed around the base speed.
func (a *Agent) UpdateSpeed(rng randx.Source) {
	if rng.Float64() >= speedDriftChance {
		return
	}
	s := a.BaseSpeed + randx.Uniform(rng, -speedDrift, speedDrift)
	a.Speed = max(MinSpeed, min(MaxSpeed, s))
}

// checkSpecialPlaces reports whether the agent stands inside a special place,
// rolling the stop and resume chances when it does.
func (a *Agent) checkSpecialPlaces(places []mapdata.SpecialPlace, rng randx.Source) bool {
	for _, p := range places {
		if !p.Contains(a.Position) {
			continue
		}
		if a.Moving && randx.OneIn(rng, placeStopOdds) {
			a.Moving = false
		}
		a.maybeResume(rng)
		return true
	}
	return false
}

func (a *Agent) maybeResume(rng randx.Source) {
	if !a.Moving && randx.OneIn(rng, resumeOdds) {
		a.Moving = true
	}
}

func (a *Agent) rollInjury(rng randx.Source) {
	if randx.OneIn(rng, injuryOdds) {
		a.Moving = false
		a.maybeResume(rng)
	}
}

func (a *Agent) rollLost(rng randx.Source) {
	if a.Lost {
		if randx.OneIn(rng, foundOdds) {
			a.Lost = false
		}
		return
	}
	if randx.OneIn(rng, getLostOdds) {
		a.Lost = true
	}
}

func (a *Agent) depart(now time.Time, reason string) {
	a.Departed = true
	a.Moving = false
	a.Stats.ExitTime = now
	a.Stats.ExitReason = reason
}
