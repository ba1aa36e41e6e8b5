package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"gopr-simulator/internal/geo"
	"gopr-simulator/internal/mapdata"
)

var ErrMapNotFound = errors.New("map not found")

// SaveMap stores the map under its name, replacing any previous version, in a
// single transaction.
func SaveMap(ctx context.Context, db *sql.DB, m *mapdata.Map) error {
	if m.Name == "" {
		return fmt.Errorf("%w: map has no name", mapdata.ErrInvalidMap)
	}
	return withTx(ctx, db, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM simulation_gopr.map WHERE map_name = $1`, m.Name); err != nil {
			return fmt.Errorf("replace map: %w", err)
		}
		r := m.Raster
		if _, err := tx.ExecContext(ctx, `INSERT INTO simulation_gopr.map
			(map_name, canvas_width, canvas_height, top_left_a, top_left_b, down_right_a, down_right_b)
			VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			m.Name, r.CanvasWidthHeight.A, r.CanvasWidthHeight.B,
			r.TopLeftLatLon.A, r.TopLeftLatLon.B, r.DownRightLatLon.A, r.DownRightLatLon.B,
		); err != nil {
			return fmt.Errorf("insert map: %w", err)
		}

		routeStmt, err := tx.PrepareContext(ctx, `INSERT INTO simulation_gopr.route
			(map_name, route_number, difficulty, color, is_entrance, area, spawn_chance)
			VALUES ($1, $2, $3, $4, $5, $6, $7)`)
		if err != nil {
			return err
		}
		defer routeStmt.Close()
		pointStmt, err := tx.PrepareContext(ctx, `INSERT INTO simulation_gopr.route_point
			(map_name, route_number, point_number, longitude, latitude)
			VALUES ($1, $2, $3, $4, $5)`)
		if err != nil {
			return err
		}
		defer pointStmt.Close()

		for _, t := range m.Trails {
			if _, err := routeStmt.ExecContext(ctx, m.Name, t.Number, t.Difficulty, t.Color, t.IsEntrance, t.Area, nullFloat(t.SpawnChance)); err != nil {
				return fmt.Errorf("insert route %d: %w", t.Number, err)
			}
			for i, p := range t.Points {
				if _, err := pointStmt.ExecContext(ctx, m.Name, t.Number, i+1, p.Lon, p.Lat); err != nil {
					return fmt.Errorf("insert route %d point %d: %w", t.Number, i+1, err)
				}
			}
		}
		for _, d := range m.Detectors {
			if _, err := tx.ExecContext(ctx, `INSERT INTO simulation_gopr.detector (map_name, detector_number, longitude, latitude) VALUES ($1, $2, $3, $4)`,
				m.Name, d.Number, d.Coordinates.Lon, d.Coordinates.Lat); err != nil {
				return fmt.Errorf("insert detector %d: %w", d.Number, err)
			}
		}
		for _, s := range m.BTSStations {
			if _, err := tx.ExecContext(ctx, `INSERT INTO simulation_gopr.bts_station (map_name, station_number, longitude, latitude) VALUES ($1, $2, $3, $4)`,
				m.Name, s.Number, s.Coordinates.Lon, s.Coordinates.Lat); err != nil {
				return fmt.Errorf("insert bts station %d: %w", s.Number, err)
			}
		}
		for _, sp := range m.SpecialPlaces {
			if _, err := tx.ExecContext(ctx, `INSERT INTO simulation_gopr.special_place (map_name, place_number, longitude, latitude, radius) VALUES ($1, $2, $3, $4, $5)`,
				m.Name, sp.Number, sp.Coordinates.Lon, sp.Coordinates.Lat, sp.Radius); err != nil {
				return fmt.Errorf("insert special place %d: %w", sp.Number, err)
			}
		}
		return nil
	})
}

// LoadMap reads a stored map back and validates it.
func LoadMap(ctx context.Context, db *sql.DB, name string) (*mapdata.Map, error) {
	m := &mapdata.Map{Name: name}
	r := &m.Raster
	err := db.QueryRowContext(ctx, `SELECT canvas_width, canvas_height, top_left_a, top_left_b, down_right_a, down_right_b
		FROM simulation_gopr.map WHERE map_name = $1`, name).
		Scan(&r.CanvasWidthHeight.A, &r.CanvasWidthHeight.B, &r.TopLeftLatLon.A, &r.TopLeftLatLon.B, &r.DownRightLatLon.A, &r.DownRightLatLon.B)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrMapNotFound, name)
	}
	if err != nil {
		return nil, fmt.Errorf("query map: %w", err)
	}

	if err := loadTrails(ctx, db, m); err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, `SELECT detector_number, longitude, latitude FROM simulation_gopr.detector WHERE map_name = $1 ORDER BY detector_number`, name)
	if err != nil {
		return nil, fmt.Errorf("query detectors: %w", err)
	}
	for rows.Next() {
		var d mapdata.Detector
		if err := rows.Scan(&d.Number, &d.Coordinates.Lon, &d.Coordinates.Lat); err != nil {
			rows.Close()
			return nil, err
		}
		m.Detectors = append(m.Detectors, d)
	}
	if err := closeRows(rows); err != nil {
		return nil, err
	}

	rows, err = db.QueryContext(ctx, `SELECT station_number, longitude, latitude FROM simulation_gopr.bts_station WHERE map_name = $1 ORDER BY station_number`, name)
	if err != nil {
		return nil, fmt.Errorf("query bts stations: %w", err)
	}
	for rows.Next() {
		var s mapdata.BTSStation
		if err := rows.Scan(&s.Number, &s.Coordinates.Lon, &s.Coordinates.Lat); err != nil {
			rows.Close()
			return nil, err
		}
		m.BTSStations = append(m.BTSStations, s)
	}
	if err := closeRows(rows); err != nil {
		return nil, err
	}

	rows, err = db.QueryContext(ctx, `SELECT place_number, longitude, latitude, radius FROM simulation_gopr.special_place WHERE map_name = $1 ORDER BY place_number`, name)
	if err != nil {
		return nil, fmt.Errorf("query special places: %w", err)
	}
	for rows.Next() {
		var sp mapdata.SpecialPlace
		if err := rows.Scan(&sp.Number, &sp.Coordinates.Lon, &sp.Coordinates.Lat, &sp.Radius); err != nil {
			rows.Close()
			return nil, err
		}
		m.SpecialPlaces = append(m.SpecialPlaces, sp)
	}
	if err := closeRows(rows); err != nil {
		return nil, err
	}

	if err := m.Init(); err != nil {
		return nil, err
	}
	return m, nil
}

func loadTrails(ctx context.Context, db *sql.DB, m *mapdata.Map) error {
	rows, err := db.QueryContext(ctx, `SELECT route_number, difficulty, color, is_entrance, area, spawn_chance
		FROM simulation_gopr.route WHERE map_name = $1 ORDER BY route_number`, m.Name)
	if err != nil {
		return fmt.Errorf("query routes: %w", err)
	}
	for rows.Next() {
		var t mapdata.Trail
		var spawn sql.NullFloat64
		if err := rows.Scan(&t.Number, &t.Difficulty, &t.Color, &t.IsEntrance, &t.Area, &spawn); err != nil {
			rows.Close()
			return err
		}
		if spawn.Valid {
			v := spawn.Float64
			t.SpawnChance = &v
		}
		m.Trails = append(m.Trails, t)
	}
	if err := closeRows(rows); err != nil {
		return err
	}

	index := make(map[int]int, len(m.Trails))
	for i, t := range m.Trails {
		index[t.Number] = i
	}
	rows, err = db.QueryContext(ctx, `SELECT route_number, point_number, longitude, latitude
		FROM simulation_gopr.route_point WHERE map_name = $1 ORDER BY route_number, point_number`, m.Name)
	if err != nil {
		return fmt.Errorf("query route points: %w", err)
	}
	for rows.Next() {
		var route, point int
		var p geo.Position
		if err := rows.Scan(&route, &point, &p.Lon, &p.Lat); err != nil {
			rows.Close()
			return err
		}
		if i, ok := index[route]; ok {
			m.Trails[i].Points = append(m.Trails[i].Points, mapdata.TrailPoint{Position: p, Point: point})
		}
	}
	return closeRows(rows)
}

func closeRows(rows *sql.Rows) error {
	err := rows.Err()
	if cerr := rows.Close(); err == nil {
		err = cerr
	}
	return err
}
