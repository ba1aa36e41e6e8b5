package publisher

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"gopr-simulator/internal/sim"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/sirupsen/logrus"
)

const DefaultPrefix = "gopr"

type NATSPublisher struct {
	nc          *nats.Conn
	conn        conn
	prefix      string
	logSubjects bool
	log         logrus.FieldLogger
	metrics     PublisherMetrics
}

// conn is the subset of *nats.Conn used for publishing.
type conn interface {
	Publish(subject string, data []byte) error
}

type PublisherMetrics interface {
	NATSPublishedInc()
	NATSPublishErrInc()
	PublishObserve(d time.Duration)
	NATSSetConnected(connected bool)
}

func NewNATSPublisher(url, prefix string, logSubjects bool, log logrus.FieldLogger, m PublisherMetrics) (*NATSPublisher, error) {
	nc, err := nats.Connect(url,
		nats.Name("gopr-simulator"),
		nats.DisconnectHandler(func(_ *nats.Conn) {
			if m != nil {
				m.NATSSetConnected(false)
			}
			log.Warn("nats disconnected")
		}),
		nats.ReconnectHandler(func(_ *nats.Conn) {
			if m != nil {
				m.NATSSetConnected(true)
			}
			log.Info("nats reconnected")
		}),
		nats.ClosedHandler(func(_ *nats.Conn) {
			if m != nil {
				m.NATSSetConnected(false)
			}
			log.Info("nats closed")
		}),
	)
	if err != nil {
		return nil, err
	}
	if m != nil {
		m.NATSSetConnected(true)
	}
	p := newPublisher(nc, prefix, logSubjects, log, m)
	p.nc = nc
	return p, nil
}

func newPublisher(c conn, prefix string, logSubjects bool, log logrus.FieldLogger, m PublisherMetrics) *NATSPublisher {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &NATSPublisher{conn: c, prefix: subjectToken(prefix), logSubjects: logSubjects, log: log, metrics: m}
}

// EnsureStream creates or updates a JetStream stream capturing every subject
// under the publisher prefix.
func (p *NATSPublisher) EnsureStream(ctx context.Context, name string) error {
	js, err := jetstream.New(p.nc)
	if err != nil {
		return err
	}
	_, err = js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:      name,
		Subjects:  []string{p.prefix + ".>"},
		Storage:   jetstream.FileStorage,
		Retention: jetstream.LimitsPolicy,
		MaxAge:    24 * time.Hour,
	})
	if err != nil {
		return fmt.Errorf("ensure stream %s: %w", name, err)
	}
	p.log.WithFields(logrus.Fields{"stream": name, "subjects": p.prefix + ".>"}).Info("jetstream stream ready")
	return nil
}

func (p *NATSPublisher) Close() {
	if p.nc != nil {
		p.nc.Drain()
		p.nc.Close()
	}
}

type AnimalMessage struct {
	RunID     uuid.UUID `json:"runId"`
	AnimalID  string    `json:"animalId"`
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Lon       float64   `json:"lon"`
	Lat       float64   `json:"lat"`
}

type TouristMessage struct {
	RunID      uuid.UUID `json:"runId"`
	PhoneID    string    `json:"phoneId"`
	Trail      int       `json:"trail"`
	LocType    string    `json:"locType"`
	Station    int       `json:"btsStation,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
	Lon        float64   `json:"lon"`
	Lat        float64   `json:"lat"`
	Moving     bool      `json:"moving"`
	Lost       bool      `json:"lost"`
	OutOfRoute bool      `json:"outOfRoute"`
}

type WeatherMessage struct {
	RunID       uuid.UUID `json:"runId"`
	StationID   string    `json:"stationId"`
	Detector    int       `json:"detector"`
	Minute      int       `json:"minute"`
	Timestamp   time.Time `json:"timestamp"`
	Lon         float64   `json:"lon"`
	Lat         float64   `json:"lat"`
	Temperature float64   `json:"temperature"`
	Wind        float64   `json:"wind"`
	Fog         float64   `json:"fog"`
	Rain        float64   `json:"rain"`
}

type DepartureMessage struct {
	RunID      uuid.UUID `json:"runId"`
	PhoneID    string    `json:"phoneId"`
	StartTrail int       `json:"startTrail"`
	EntryTime  time.Time `json:"entryTime"`
	ExitTime   time.Time `json:"exitTime"`
	ExitReason string    `json:"exitReason"`
}

func (p *NATSPublisher) Name() string { return "nats" }

// Write publishes one message per record of the snapshot. A failed record
// does not stop the rest; all failures are returned joined.
func (p *NATSPublisher) Write(_ context.Context, snap sim.Snapshot) error {
	var errs []error
	for _, a := range snap.Animals {
		errs = append(errs, p.publish(p.Subject("animals", a.ID), AnimalMessage{
			RunID: snap.RunID, AnimalID: a.ID, Type: a.Type, Timestamp: a.Timestamp,
			Lon: a.Position.Lon, Lat: a.Position.Lat,
		}))
	}
	for _, t := range snap.Tourists {
		errs = append(errs, p.publish(p.Subject("tourists", t.PhoneID), TouristMessage{
			RunID: snap.RunID, PhoneID: t.PhoneID, Trail: t.Trail, LocType: t.LocationType, Station: t.Station,
			Timestamp: t.Timestamp, Lon: t.Position.Lon, Lat: t.Position.Lat,
			Moving: t.Moving, Lost: t.Lost, OutOfRoute: t.OutOfRoute,
		}))
	}
	for _, r := range snap.Weather {
		errs = append(errs, p.publish(p.Subject("weather", r.StationID()), WeatherMessage{
			RunID: snap.RunID, StationID: r.StationID(), Detector: r.DetectorID, Minute: r.Minute, Timestamp: r.Timestamp,
			Lon: r.Position.Lon, Lat: r.Position.Lat,
			Temperature: r.Temperature, Wind: r.Wind, Fog: r.Fog, Rain: r.Rain,
		}))
	}
	for _, d := range snap.Departures {
		errs = append(errs, p.publish(p.Subject("departures", d.PhoneID), DepartureMessage{
			RunID: snap.RunID, PhoneID: d.PhoneID, StartTrail: d.StartTrail,
			EntryTime: d.EntryTime, ExitTime: d.ExitTime, ExitReason: d.ExitReason,
		}))
	}
	return errors.Join(errs...)
}

// Subject builds <prefix>.<kind>.<id>.
func (p *NATSPublisher) Subject(kind, id string) string {
	return fmt.Sprintf("%s.%s.%s", p.prefix, subjectToken(kind), subjectToken(id))
}

func (p *NATSPublisher) publish(subject string, msg any) error {
	b, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	if p.logSubjects {
		p.log.WithField("subject", subject).Debug("nats publish")
	}
	start := time.Now()
	err = p.conn.Publish(subject, b)
	if p.metrics != nil {
		p.metrics.PublishObserve(time.Since(start))
		if err != nil {
			p.metrics.NATSPublishErrInc()
		} else {
			p.metrics.NATSPublishedInc()
		}
	}
	if err != nil {
		return fmt.Errorf("publish %s: %w", subject, err)
	}
	return nil
}

func subjectToken(s string) string {
	s = strings.TrimSpace(s)
	// NATS token cannot contain spaces, '>', '*', or trailing '.'
	repl := strings.NewReplacer(" ", "_", ".", "_", ">", "_", "*", "_", "/", "_", "\t", "_")
	s = repl.Replace(s)
	if s == "" {
		s = "_"
	}
	return s
}
