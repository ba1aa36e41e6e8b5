package db

import (
	"context"
	"database/sql"
	"fmt"
)

var tables = []string{
	"map", "route", "route_point", "detector", "bts_station", "special_place",
	"simulation", "animal", "animal_location", "tourist", "tourist_location", "weather_reading",
}

var ddl = []string{
	`CREATE SCHEMA IF NOT EXISTS simulation_gopr`,
	`CREATE TABLE IF NOT EXISTS simulation_gopr.map (
		map_name      TEXT PRIMARY KEY,
		canvas_width  DOUBLE PRECISION NOT NULL DEFAULT 0,
		canvas_height DOUBLE PRECISION NOT NULL DEFAULT 0,
		top_left_a    DOUBLE PRECISION NOT NULL DEFAULT 0,
		top_left_b    DOUBLE PRECISION NOT NULL DEFAULT 0,
		down_right_a  DOUBLE PRECISION NOT NULL DEFAULT 0,
		down_right_b  DOUBLE PRECISION NOT NULL DEFAULT 0
	)`,
	`CREATE TABLE IF NOT EXISTS simulation_gopr.route (
		map_name     TEXT NOT NULL REFERENCES simulation_gopr.map(map_name) ON DELETE CASCADE,
		route_number INTEGER NOT NULL,
		difficulty   INTEGER NOT NULL DEFAULT 0,
		color        TEXT NOT NULL DEFAULT '',
		is_entrance  BOOLEAN NOT NULL DEFAULT FALSE,
		area         TEXT NOT NULL DEFAULT '',
		spawn_chance DOUBLE PRECISION,
		PRIMARY KEY (map_name, route_number)
	)`,
	`CREATE TABLE IF NOT EXISTS simulation_gopr.route_point (
		map_name     TEXT NOT NULL,
		route_number INTEGER NOT NULL,
		point_number INTEGER NOT NULL,
		longitude    DOUBLE PRECISION NOT NULL,
		latitude     DOUBLE PRECISION NOT NULL,
		PRIMARY KEY (map_name, route_number, point_number),
		FOREIGN KEY (map_name, route_number) REFERENCES simulation_gopr.route(map_name, route_number) ON DELETE CASCADE
	)`,
	`CREATE TABLE IF NOT EXISTS simulation_gopr.detector (
		map_name        TEXT NOT NULL REFERENCES simulation_gopr.map(map_name) ON DELETE CASCADE,
		detector_number INTEGER NOT NULL,
		longitude       DOUBLE PRECISION NOT NULL,
		latitude        DOUBLE PRECISION NOT NULL,
		PRIMARY KEY (map_name, detector_number)
	)`,
	`CREATE TABLE IF NOT EXISTS simulation_gopr.bts_station (
		map_name       TEXT NOT NULL REFERENCES simulation_gopr.map(map_name) ON DELETE CASCADE,
		station_number INTEGER NOT NULL,
		longitude      DOUBLE PRECISION NOT NULL,
		latitude       DOUBLE PRECISION NOT NULL,
		PRIMARY KEY (map_name, station_number)
	)`,
	`CREATE TABLE IF NOT EXISTS simulation_gopr.special_place (
		map_name     TEXT NOT NULL REFERENCES simulation_gopr.map(map_name) ON DELETE CASCADE,
		place_number INTEGER NOT NULL,
		longitude    DOUBLE PRECISION NOT NULL,
		latitude     DOUBLE PRECISION NOT NULL,
		radius       DOUBLE PRECISION NOT NULL,
		PRIMARY KEY (map_name, place_number)
	)`,
	`CREATE TABLE IF NOT EXISTS simulation_gopr.simulation (
		simulation_id   UUID PRIMARY KEY,
		map_name        TEXT NOT NULL,
		start_time      TIMESTAMPTZ NOT NULL,
		end_time        TIMESTAMPTZ NOT NULL,
		time_multiplier DOUBLE PRECISION NOT NULL,
		spawn_chance    DOUBLE PRECISION NOT NULL,
		created_at      TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS simulation_gopr.animal (
		simulation_id UUID NOT NULL REFERENCES simulation_gopr.simulation(simulation_id) ON DELETE CASCADE,
		animal_id     TEXT NOT NULL,
		animal_type   TEXT NOT NULL,
		PRIMARY KEY (simulation_id, animal_id)
	)`,
	`CREATE TABLE IF NOT EXISTS simulation_gopr.animal_location (
		location_id         BIGSERIAL PRIMARY KEY,
		simulation_id       UUID NOT NULL,
		animal_id           TEXT NOT NULL,
		longitude           DOUBLE PRECISION NOT NULL,
		latitude            DOUBLE PRECISION NOT NULL,
		simulated_timestamp TIMESTAMPTZ NOT NULL,
		FOREIGN KEY (simulation_id, animal_id) REFERENCES simulation_gopr.animal(simulation_id, animal_id) ON DELETE CASCADE
	)`,
	`CREATE TABLE IF NOT EXISTS simulation_gopr.tourist (
		simulation_id UUID NOT NULL REFERENCES simulation_gopr.simulation(simulation_id) ON DELETE CASCADE,
		phone_id      TEXT NOT NULL,
		start_route   INTEGER NOT NULL,
		entry_time    TIMESTAMPTZ NOT NULL,
		exit_time     TIMESTAMPTZ,
		exit_reason   TEXT,
		PRIMARY KEY (simulation_id, phone_id)
	)`,
	`CREATE TABLE IF NOT EXISTS simulation_gopr.tourist_location (
		location_id         BIGSERIAL PRIMARY KEY,
		simulation_id       UUID NOT NULL,
		phone_id            TEXT NOT NULL,
		route_number        INTEGER NOT NULL,
		loc_type            TEXT NOT NULL,
		bts_station         INTEGER,
		longitude           DOUBLE PRECISION NOT NULL,
		latitude            DOUBLE PRECISION NOT NULL,
		lost                BOOLEAN NOT NULL,
		simulated_timestamp TIMESTAMPTZ NOT NULL,
		FOREIGN KEY (simulation_id, phone_id) REFERENCES simulation_gopr.tourist(simulation_id, phone_id) ON DELETE CASCADE
	)`,
	`CREATE TABLE IF NOT EXISTS simulation_gopr.weather_reading (
		reading_id          BIGSERIAL PRIMARY KEY,
		simulation_id       UUID NOT NULL REFERENCES simulation_gopr.simulation(simulation_id) ON DELETE CASCADE,
		station_id          TEXT NOT NULL,
		detector_number     INTEGER NOT NULL,
		minute              INTEGER NOT NULL,
		longitude           DOUBLE PRECISION NOT NULL,
		latitude            DOUBLE PRECISION NOT NULL,
		temperature         DOUBLE PRECISION NOT NULL,
		wind                DOUBLE PRECISION NOT NULL,
		fog                 DOUBLE PRECISION NOT NULL,
		rain                DOUBLE PRECISION NOT NULL,
		simulated_timestamp TIMESTAMPTZ NOT NULL
	)`,
}

// EnsureSchema creates the simulator schema and tables when missing.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	have, err := hasTables(ctx, db, tables...)
	if err != nil {
		return fmt.Errorf("inspect schema: %w", err)
	}
	missing := false
	for _, ok := range have {
		if !ok {
			missing = true
			break
		}
	}
	if !missing {
		return nil
	}
	return withTx(ctx, db, func(tx *sql.Tx) error {
		for _, stmt := range ddl {
			if _, err := tx.ExecContext(ctx, stmt); err != nil {
				return fmt.Errorf("apply schema: %w", err)
			}
		}
		return nil
	})
}
