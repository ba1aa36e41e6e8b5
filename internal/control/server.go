// Package control exposes the simulation clock over HTTP.
package control

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"gopr-simulator/internal/sim"
	"gopr-simulator/internal/weather"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"
)

// Clock is the part of sim.Clock the API drives.
type Clock interface {
	Start(ctx context.Context) error
	Stop()
	Reset() error
	SetMultiplier(f float64) error
	Status() sim.Status
}

// Events is the part of weather.Model the API drives.
type Events interface {
	AddEvent(e weather.Event) error
	Events() []weather.Event
}

type Server struct {
	// ctx outlives requests; a started clock runs until it is cancelled.
	ctx    context.Context
	clock  Clock
	events Events
	log    logrus.FieldLogger
}

type MultiplierRequest struct {
	Multiplier float64 `json:"multiplier"`
}

type EventRequest struct {
	Minute      int     `json:"minute"`
	Detectors   []int   `json:"detectors"`
	Temperature float64 `json:"temperature"`
	Wind        float64 `json:"wind"`
	Fog         float64 `json:"fog"`
	Rain        float64 `json:"rain"`
}

// NewServer builds the API. events may be nil, which disables the weather
// routes.
func NewServer(ctx context.Context, clock Clock, events Events, log logrus.FieldLogger) *Server {
	return &Server{ctx: ctx, clock: clock, events: events, log: log}
}

func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Get("/status", s.handleStatus)
	r.Post("/start", s.handleStart)
	r.Post("/stop", s.handleStop)
	r.Post("/reset", s.handleReset)
	r.Put("/multiplier", s.handleMultiplier)
	if s.events != nil {
		r.Route("/weather/events", func(r chi.Router) {
			r.Get("/", s.handleListEvents)
			r.Post("/", s.handleAddEvent)
		})
	}
	return r
}

// Serve starts the API on addr in the background.
func (s *Server) Serve(addr string) *http.Server {
	srv := &http.Server{Addr: addr, Handler: s.Routes(), ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.log.WithError(err).Error("control server error")
		}
	}()
	s.log.WithField("addr", addr).Info("control API listening")
	return srv
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.clock.Status())
}

func (s *Server) handleStart(w http.ResponseWriter, _ *http.Request) {
	if err := s.clock.Start(s.ctx); err != nil {
		s.writeError(w, statusFor(err), err)
		return
	}
	s.log.Info("simulation started via API")
	writeJSON(w, http.StatusAccepted, s.clock.Status())
}

func (s *Server) handleStop(w http.ResponseWriter, _ *http.Request) {
	s.clock.Stop()
	s.log.Info("simulation stopped via API")
	writeJSON(w, http.StatusAccepted, s.clock.Status())
}

func (s *Server) handleReset(w http.ResponseWriter, _ *http.Request) {
	if err := s.clock.Reset(); err != nil {
		s.writeError(w, statusFor(err), err)
		return
	}
	s.log.Info("simulation reset via API")
	writeJSON(w, http.StatusOK, s.clock.Status())
}

func (s *Server) handleMultiplier(w http.ResponseWriter, r *http.Request) {
	var req MultiplierRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := s.clock.SetMultiplier(req.Multiplier); err != nil {
		s.writeError(w, statusFor(err), err)
		return
	}
	s.log.WithField("multiplier", req.Multiplier).Info("time multiplier changed")
	writeJSON(w, http.StatusOK, s.clock.Status())
}

func (s *Server) handleListEvents(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.events.Events())
}

func (s *Server) handleAddEvent(w http.ResponseWriter, r *http.Request) {
	var req EventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	st := s.clock.Status()
	horizon := int(st.End.Sub(st.Start) / time.Minute)
	if req.Minute < 0 || (horizon > 0 && req.Minute >= horizon) {
		s.writeError(w, http.StatusBadRequest, errors.New("minute outside the simulation window"))
		return
	}
	e := weather.Event{
		Minute:      req.Minute,
		Detectors:   req.Detectors,
		Temperature: req.Temperature,
		Wind:        req.Wind,
		Fog:         req.Fog,
		Rain:        req.Rain,
		Added:       time.Now().UTC(),
	}
	if err := s.events.AddEvent(e); err != nil {
		s.writeError(w, statusFor(err), err)
		return
	}
	s.log.WithFields(logrus.Fields{"minute": e.Minute, "detectors": e.Detectors}).Info("weather event added")
	writeJSON(w, http.StatusCreated, e)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, sim.ErrRunning):
		return http.StatusConflict
	case errors.Is(err, sim.ErrInvalidMultiplier), errors.Is(err, weather.ErrUnknownDetector):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, err error) {
	if status >= http.StatusInternalServerError {
		s.log.WithError(err).Error("control request failed")
	}
	writeJSON(w, status, map[string]string{
		"error":   http.StatusText(status),
		"message": err.Error(),
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
