package db

import (
	"context"
	"database/sql"
	"fmt"

	"gopr-simulator/internal/animals"
	"gopr-simulator/internal/sim"

	"github.com/google/uuid"
)

// Run describes one simulation run as recorded in the simulation table.
type Run struct {
	ID         uuid.UUID
	MapName    string
	Settings   sim.Settings
	Multiplier float64
}

// InsertRun records the run and its animals.
func InsertRun(ctx context.Context, db *sql.DB, run Run, herd []animals.Animal) error {
	return withTx(ctx, db, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `INSERT INTO simulation_gopr.simulation
			(simulation_id, map_name, start_time, end_time, time_multiplier, spawn_chance)
			VALUES ($1, $2, $3, $4, $5, $6)`,
			run.ID.String(), run.MapName, run.Settings.Start, run.Settings.End, run.Multiplier, run.Settings.SpawnChance,
		); err != nil {
			return fmt.Errorf("insert simulation: %w", err)
		}
		stmt, err := tx.PrepareContext(ctx, `INSERT INTO simulation_gopr.animal (simulation_id, animal_id, animal_type) VALUES ($1, $2, $3)`)
		if err != nil {
			return err
		}
		defer stmt.Close()
		for _, a := range herd {
			if _, err := stmt.ExecContext(ctx, run.ID.String(), a.ID, a.Type); err != nil {
				return fmt.Errorf("insert animal %s: %w", a.ID, err)
			}
		}
		return nil
	})
}

// Store persists snapshots, one transaction per snapshot.
type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store { return &Store{db: db} }

func (s *Store) Name() string { return "postgres" }

func (s *Store) Write(ctx context.Context, snap sim.Snapshot) error {
	run := snap.RunID.String()
	return withTx(ctx, s.db, func(tx *sql.Tx) error {
		if len(snap.Animals) > 0 {
			stmt, err := tx.PrepareContext(ctx, `INSERT INTO simulation_gopr.animal_location
				(simulation_id, animal_id, longitude, latitude, simulated_timestamp) VALUES ($1, $2, $3, $4, $5)`)
			if err != nil {
				return err
			}
			defer stmt.Close()
			for _, a := range snap.Animals {
				if _, err := stmt.ExecContext(ctx, run, a.ID, a.Position.Lon, a.Position.Lat, a.Timestamp); err != nil {
					return fmt.Errorf("insert animal location %s: %w", a.ID, err)
				}
			}
		}

		if len(snap.Tourists) > 0 {
			touristStmt, err := tx.PrepareContext(ctx, `INSERT INTO simulation_gopr.tourist
				(simulation_id, phone_id, start_route, entry_time) VALUES ($1, $2, $3, $4)
				ON CONFLICT (simulation_id, phone_id) DO NOTHING`)
			if err != nil {
				return err
			}
			defer touristStmt.Close()
			locStmt, err := tx.PrepareContext(ctx, `INSERT INTO simulation_gopr.tourist_location
				(simulation_id, phone_id, route_number, loc_type, bts_station, longitude, latitude, lost, simulated_timestamp)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`)
			if err != nil {
				return err
			}
			defer locStmt.Close()
			for _, t := range snap.Tourists {
				if _, err := touristStmt.ExecContext(ctx, run, t.PhoneID, t.StartTrail, t.Timestamp); err != nil {
					return fmt.Errorf("insert tourist %s: %w", t.PhoneID, err)
				}
				if _, err := locStmt.ExecContext(ctx, run, t.PhoneID, t.Trail, t.LocationType, nullInt(t.Station), t.Position.Lon, t.Position.Lat, t.Lost, t.Timestamp); err != nil {
					return fmt.Errorf("insert tourist location %s: %w", t.PhoneID, err)
				}
			}
		}

		for _, d := range snap.Departures {
			// a tourist can leave before any snapshot listed it
			if _, err := tx.ExecContext(ctx, `INSERT INTO simulation_gopr.tourist
				(simulation_id, phone_id, start_route, entry_time, exit_time, exit_reason) VALUES ($1, $2, $3, $4, $5, $6)
				ON CONFLICT (simulation_id, phone_id) DO UPDATE SET exit_time = EXCLUDED.exit_time, exit_reason = EXCLUDED.exit_reason`,
				run, d.PhoneID, d.StartTrail, d.EntryTime, d.ExitTime, d.ExitReason); err != nil {
				return fmt.Errorf("record departure %s: %w", d.PhoneID, err)
			}
		}

		if len(snap.Weather) > 0 {
			stmt, err := tx.PrepareContext(ctx, `INSERT INTO simulation_gopr.weather_reading
				(simulation_id, station_id, detector_number, minute, longitude, latitude, temperature, wind, fog, rain, simulated_timestamp)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`)
			if err != nil {
				return err
			}
			defer stmt.Close()
			for _, r := range snap.Weather {
				if _, err := stmt.ExecContext(ctx, run, r.StationID(), r.DetectorID, r.Minute, r.Position.Lon, r.Position.Lat,
					r.Temperature, r.Wind, r.Fog, r.Rain, r.Timestamp); err != nil {
					return fmt.Errorf("insert weather reading %s: %w", r.StationID(), err)
				}
			}
		}
		return nil
	})
}

// Counts reports how many location rows a run has stored, by kind.
func Counts(ctx context.Context, db *sql.DB, run uuid.UUID) (animalRows, touristRows, weatherRows int, err error) {
	id := run.String()
	if err = db.QueryRowContext(ctx, `SELECT count(*) FROM simulation_gopr.animal_location WHERE simulation_id = $1`, id).Scan(&animalRows); err != nil {
		return
	}
	if err = db.QueryRowContext(ctx, `SELECT count(*) FROM simulation_gopr.tourist_location WHERE simulation_id = $1`, id).Scan(&touristRows); err != nil {
		return
	}
	err = db.QueryRowContext(ctx, `SELECT count(*) FROM simulation_gopr.weather_reading WHERE simulation_id = $1`, id).Scan(&weatherRows)
	return
}
