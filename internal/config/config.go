package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	DatabaseURL       string
	DBName            string
	SaveToDB          bool
	NATSURL           string
	NATSStreamName    string
	NATSSubjectPrefix string
	LogNATSSubjects   bool
	MetricsAddr       string
	ControlAddr       string
	Tick              time.Duration
	ScenarioFile      string
	MapFile           string
	WeatherEventsFile string
	ExportDir         string
	LogLevel          string
	Seed              int64
	SinkBuffer        int
}

func Load() (*Config, error) {
	// Load .env into environment (ignore if missing)
	_ = godotenv.Load()

	cfg := &Config{}

	// Database URL: prefer DATABASE_URL / PG_DSN, else build from PG* vars when PGDATABASE is set
	dsn := firstNonEmpty(
		os.Getenv("DATABASE_URL"),
		os.Getenv("PG_DSN"),
	)
	if dsn == "" {
		if db := os.Getenv("PGDATABASE"); db != "" {
			host := getenvDefault("PGHOST", "127.0.0.1")
			port := getenvDefault("PGPORT", "5432")
			user := getenvDefault("PGUSER", "postgres")
			pass := os.Getenv("PGPASSWORD")
			sslmode := getenvDefault("PGSSLMODE", "disable")
			if pass != "" {
				cfg.DatabaseURL = fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s", urlEscape(user), urlEscape(pass), host, port, db, sslmode)
			} else {
				cfg.DatabaseURL = fmt.Sprintf("postgres://%s@%s:%s/%s?sslmode=%s", urlEscape(user), host, port, db, sslmode)
			}
		}
	} else {
		cfg.DatabaseURL = dsn
	}
	cfg.DBName = os.Getenv("GOPR_DB_NAME")

	cfg.SaveToDB = parseBool(os.Getenv("SAVE_TO_DB"))
	if cfg.SaveToDB && cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("SAVE_TO_DB requires DATABASE_URL, PG_DSN or PGDATABASE")
	}

	// Empty NATS_URL disables publishing
	cfg.NATSURL = os.Getenv("NATS_URL")
	cfg.NATSStreamName = getenvDefault("NATS_STREAM_NAME", "GOPR")
	cfg.NATSSubjectPrefix = getenvDefault("NATS_SUBJECT_PREFIX", "gopr")
	if strings.ContainsAny(cfg.NATSSubjectPrefix, " *>") {
		return nil, fmt.Errorf("invalid NATS_SUBJECT_PREFIX: %q", cfg.NATSSubjectPrefix)
	}
	cfg.LogNATSSubjects = parseBool(os.Getenv("LOG_NATS_SUBJECTS"))

	// Listen addresses (e.g., ":9102"). Empty disables the server.
	cfg.MetricsAddr = os.Getenv("METRICS_ADDR")
	cfg.ControlAddr = os.Getenv("CONTROL_ADDR")

	// Simulated seconds per tick
	if v := os.Getenv("TICK_SECONDS"); v != "" {
		sec, err := strconv.Atoi(v)
		if err != nil || sec <= 0 {
			return nil, fmt.Errorf("invalid TICK_SECONDS: %q", v)
		}
		cfg.Tick = time.Duration(sec) * time.Second
	} else {
		cfg.Tick = 10 * time.Second
	}

	cfg.ScenarioFile = getenvDefault("SCENARIO_FILE", "scenario.yaml")
	cfg.MapFile = getenvDefault("MAP_FILE", "map.yaml")
	cfg.WeatherEventsFile = getenvDefault("WEATHER_EVENTS_FILE", "weather_events.yaml")
	cfg.ExportDir = os.Getenv("EXPORT_DIR")
	cfg.LogLevel = getenvDefault("LOG_LEVEL", "info")

	// Zero seed means a random one per process
	if v := os.Getenv("SEED"); v != "" {
		seed, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid SEED: %q", v)
		}
		cfg.Seed = seed
	}

	if v := os.Getenv("SINK_BUFFER"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return nil, fmt.Errorf("invalid SINK_BUFFER: %q", v)
		}
		cfg.SinkBuffer = n
	} else {
		cfg.SinkBuffer = 64
	}

	return cfg, nil
}

func parseBool(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "t", "yes", "y", "on":
		return true
	default:
		return false
	}
}

func getenvDefault(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

func urlEscape(s string) string {
	// Minimal escape for DSN user/pass with special chars
	r := strings.NewReplacer("@", "%40", ":", "%3A", "/", "%2F", "?", "%3F", "#", "%23")
	return r.Replace(s)
}
