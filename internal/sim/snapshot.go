package sim

import (
	"time"

	"gopr-simulator/internal/geo"
	"gopr-simulator/internal/weather"

	"github.com/google/uuid"
)

type AnimalRecord struct {
	ID        string
	Type      string
	Position  geo.Position
	Timestamp time.Time
}

type TouristRecord struct {
	PhoneID      string
	StartTrail   int
	Trail        int
	Position     geo.Position
	Timestamp    time.Time
	LocationType string
	// Station is the nearest BTS station for agents without GPS, 0 otherwise.
	Station    int
	Moving     bool
	Lost       bool
	OutOfRoute bool
	Speed      float64
}

// Departure records a tourist that left the map during the tick.
type Departure struct {
	PhoneID    string
	StartTrail int
	Trail      int
	EntryTime  time.Time
	ExitTime   time.Time
	ExitReason string
}

// Snapshot is everything one tick produced. Records keep a stable order:
// animals by herd order, tourists by spawn order, weather by detector id.
type Snapshot struct {
	RunID      uuid.UUID
	Time       time.Time
	Minute     int
	Animals    []AnimalRecord
	Tourists   []TouristRecord
	Weather    []weather.Reading
	Departures []Departure
}

// Emitter receives snapshots from the clock. Emit must not block the caller
// for longer than it takes to hand the snapshot off.
type Emitter interface {
	Emit(Snapshot)
}

// EmitterFunc adapts a function to Emitter.
type EmitterFunc func(Snapshot)

func (f EmitterFunc) Emit(s Snapshot) { f(s) }
