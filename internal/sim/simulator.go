// Package sim drives the training-area simulation: the Simulator advances all
// actors by one tick and the Clock paces ticks against wall time.
package sim

import (
	"errors"
	"fmt"
	"time"

	"gopr-simulator/internal/animals"
	"gopr-simulator/internal/mapdata"
	mmetrics "gopr-simulator/internal/metrics"
	"gopr-simulator/internal/randx"
	"gopr-simulator/internal/tourist"
	"gopr-simulator/internal/weather"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

var ErrInvalidSettings = errors.New("invalid simulation settings")

const DefaultRoutePoints = 100

// Settings fixes the run window and actor setup of a simulation.
type Settings struct {
	Start time.Time
	End   time.Time
	// SpawnChance is the default per-tick percentage chance of a tourist
	// entering on each entrance trail.
	SpawnChance float64
	RoutePoints int
	Animals     []animals.Spec
}

func (s Settings) validate() error {
	if s.End.Before(s.Start) {
		return fmt.Errorf("%w: end %s before start %s", ErrInvalidSettings, s.End.Format(time.RFC3339), s.Start.Format(time.RFC3339))
	}
	if s.SpawnChance < 0 || s.SpawnChance > 100 {
		return fmt.Errorf("%w: spawn chance %.2f outside [0, 100]", ErrInvalidSettings, s.SpawnChance)
	}
	return nil
}

// Simulator owns the live tourists and the animal routes of one run. It is
// not safe for concurrent use; the Clock serializes access.
type Simulator struct {
	settings Settings
	env      tourist.Env
	weather  *weather.Model
	rng      randx.Source
	log      logrus.FieldLogger
	metrics  *mmetrics.Collector

	runID    uuid.UUID
	animals  []animals.Animal
	tourists []*tourist.Agent
	phones   map[string]struct{}
}

func New(m *mapdata.Map, wm *weather.Model, s Settings, rng randx.Source, log logrus.FieldLogger, metrics *mmetrics.Collector) (*Simulator, error) {
	if s.RoutePoints == 0 {
		s.RoutePoints = DefaultRoutePoints
	}
	if err := s.validate(); err != nil {
		return nil, err
	}
	if err := m.Init(); err != nil {
		return nil, err
	}
	sim := &Simulator{
		settings: s,
		env:      tourist.Env{Map: m, Topology: mapdata.BuildTopology(m, mapdata.DefaultCrossingRadius)},
		weather:  wm,
		rng:      rng,
		log:      log,
		metrics:  metrics,
	}
	if err := sim.Reset(); err != nil {
		return nil, err
	}
	return sim, nil
}

// Reset starts a new run: a fresh run id, no tourists and newly generated
// animal routes.
func (s *Simulator) Reset() error {
	herd, err := animals.Herd(animals.NewGenerator(s.rng), s.env.Map, s.settings.Animals, s.settings.Start, s.settings.End, s.settings.RoutePoints)
	if err != nil {
		return err
	}
	s.runID = uuid.New()
	s.animals = herd
	s.tourists = nil
	s.phones = make(map[string]struct{})
	if s.metrics != nil {
		s.metrics.Animals.Set(float64(len(herd)))
		s.metrics.LiveTourists.Set(0)
		s.metrics.LostTourists.Set(0)
	}
	s.log.WithFields(logrus.Fields{"run": s.runID, "animals": len(herd)}).Info("simulation reset")
	return nil
}

func (s *Simulator) RunID() uuid.UUID { return s.runID }

func (s *Simulator) Settings() Settings { return s.settings }

func (s *Simulator) Map() *mapdata.Map { return s.env.Map }

// Animals returns the herd of the current run.
func (s *Simulator) Animals() []animals.Animal {
	out := make([]animals.Animal, len(s.animals))
	copy(out, s.animals)
	return out
}

// TouristCount is the number of tourists currently on the map.
func (s *Simulator) TouristCount() int { return len(s.tourists) }

// Minute is the whole number of simulated minutes since the run start.
func (s *Simulator) Minute(now time.Time) int {
	return int(now.Sub(s.settings.Start) / time.Minute)
}

// Tick advances every actor to simulated time now, dt after the previous
// tick, and returns what the tick produced.
func (s *Simulator) Tick(now time.Time, dt time.Duration) Snapshot {
	tickStart := time.Now()
	snap := Snapshot{RunID: s.runID, Time: now, Minute: s.Minute(now)}

	s.spawn(now)
	snap.Departures = s.stepTourists(now, dt)
	snap.Tourists = s.touristRecords(now)
	snap.Animals = s.animalRecords(now)
	snap.Weather = s.weather.Readings(snap.Minute, now)

	if s.metrics != nil {
		s.metrics.Ticks.Inc()
		s.metrics.LiveTourists.Set(float64(len(s.tourists)))
		s.metrics.TickDuration.Observe(time.Since(tickStart).Seconds())
	}
	return snap
}

// spawn rolls each entrance trail once for a new tourist.
func (s *Simulator) spawn(now time.Time) {
	for _, e := range s.env.Map.Entrances() {
		chance := s.settings.SpawnChance
		if e.SpawnChance != nil {
			chance = *e.SpawnChance
		}
		if !randx.Percent(s.rng, chance) {
			continue
		}
		a := tourist.New(s.newPhone(), e, now, s.rng)
		s.tourists = append(s.tourists, a)
		if s.metrics != nil {
			s.metrics.TouristsSpawned.Inc()
		}
		s.log.WithFields(logrus.Fields{"phone": a.PhoneID, "trail": e.Number, "gps": a.GPSEnabled}).Debug("tourist entered")
	}
}

func (s *Simulator) newPhone() string {
	for {
		p := tourist.PhoneNumber(s.rng)
		if _, taken := s.phones[p]; !taken {
			s.phones[p] = struct{}{}
			return p
		}
	}
}

func (s *Simulator) stepTourists(now time.Time, dt time.Duration) []Departure {
	var departures []Departure
	lost := 0
	live := s.tourists[:0]
	for _, a := range s.tourists {
		out, err := a.Step(s.env, s.rng, now, dt.Seconds())
		if err != nil {
			s.log.WithError(err).WithField("phone", a.PhoneID).Warn("tourist update skipped")
			if s.metrics != nil {
				s.metrics.SkippedUpdates.Inc()
			}
			live = append(live, a)
			continue
		}
		if s.metrics != nil {
			switch out.Kind {
			case tourist.Crossed, tourist.Bounced, tourist.Departed:
				s.metrics.Transitions.WithLabelValues(out.Kind.String()).Inc()
			}
		}
		if a.Departed {
			departures = append(departures, Departure{
				PhoneID:    a.PhoneID,
				StartTrail: a.StartTrail,
				Trail:      a.Trail,
				EntryTime:  a.Stats.EntryTime,
				ExitTime:   a.Stats.ExitTime,
				ExitReason: a.Stats.ExitReason,
			})
			if s.metrics != nil {
				s.metrics.TouristsDeparted.Inc()
			}
			s.log.WithFields(logrus.Fields{"phone": a.PhoneID, "trail": a.Trail, "reason": a.Stats.ExitReason}).Debug("tourist left")
			continue
		}
		if a.Lost {
			lost++
		}
		live = append(live, a)
	}
	for i := len(live); i < len(s.tourists); i++ {
		s.tourists[i] = nil
	}
	s.tourists = live
	if s.metrics != nil {
		s.metrics.LostTourists.Set(float64(lost))
	}
	return departures
}

func (s *Simulator) touristRecords(now time.Time) []TouristRecord {
	out := make([]TouristRecord, 0, len(s.tourists))
	for _, a := range s.tourists {
		r := TouristRecord{
			PhoneID:      a.PhoneID,
			StartTrail:   a.StartTrail,
			Trail:        a.Trail,
			Position:     a.Position,
			Timestamp:    now,
			LocationType: a.LocationType(),
			Moving:       a.Moving,
			Lost:         a.Lost,
			OutOfRoute:   a.OutOfRoute,
			Speed:        a.Speed,
		}
		if !a.GPSEnabled {
			if st, ok := s.env.Map.NearestStation(a.Position); ok {
				r.Station = st.Number
			}
		}
		out = append(out, r)
	}
	return out
}

func (s *Simulator) animalRecords(now time.Time) []AnimalRecord {
	out := make([]AnimalRecord, 0, len(s.animals))
	for _, a := range s.animals {
		p, err := a.Observe(now, s.rng)
		if err != nil {
			s.log.WithError(err).WithField("animal", a.ID).Warn("animal route lookup failed")
		}
		out = append(out, AnimalRecord{ID: a.ID, Type: a.Type, Position: p, Timestamp: now})
	}
	return out
}
