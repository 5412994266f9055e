// Package server exposes rendered scenes over HTTP for browser and
// widget front ends.
package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/litescript/ls-rise/internal/astro"
	"github.com/litescript/ls-rise/internal/logging"
	"github.com/litescript/ls-rise/internal/scene"
	"github.com/litescript/ls-rise/internal/state"
	"github.com/litescript/ls-rise/internal/version"
	"github.com/litescript/ls-rise/internal/weather"
)

// Moon SVG colours.
const (
	moonDark = "#1c1c28"
	moonLit  = "#f4f1de"
)

// Server serves scenes rendered by an orchestrator.
type Server struct {
	orch   *scene.Orchestrator
	logger *logging.Logger
	now    func() time.Time
	router *mux.Router
}

// Option configures a Server.
type Option func(*Server)

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Server) {
		s.now = now
	}
}

// WithLogger sets the request logger.
func WithLogger(l *logging.Logger) Option {
	return func(s *Server) {
		s.logger = l
	}
}

// New creates a server over orch.
func New(orch *scene.Orchestrator, opts ...Option) *Server {
	s := &Server{
		orch:   orch,
		logger: logging.Discard(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.router = s.setupRouter()
	return s
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) setupRouter() *mux.Router {
	router := mux.NewRouter()
	router.Use(s.logRequests)

	api := router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/scene", s.getScene).Methods(http.MethodGet)
	api.HandleFunc("/snapshot", s.getSnapshot).Methods(http.MethodGet)
	api.HandleFunc("/moon.svg", s.getMoonSVG).Methods(http.MethodGet)

	router.HandleFunc("/healthz", s.getHealth).Methods(http.MethodGet)
	return router
}

// ListenAndServe serves on addr until ctx is done.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening on %s", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		s.logger.Info("shutting down HTTP server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, req)
		s.logger.Debug("%s %s (%v)", req.Method, req.URL.RequestURI(), time.Since(start))
	})
}

// overrides reads the optional minute and cycle query parameters.
func overrides(req *http.Request) (scene.Overrides, error) {
	var ov scene.Overrides
	q := req.URL.Query()

	if v := q.Get("minute"); v != "" {
		m, err := strconv.Atoi(v)
		if err != nil {
			return ov, fmt.Errorf("invalid minute parameter %q", v)
		}
		ov.Minute = &m
	}
	if v := q.Get("cycle"); v != "" {
		c, err := strconv.ParseFloat(v, 64)
		if err != nil || math.IsNaN(c) || math.IsInf(c, 0) {
			return ov, fmt.Errorf("invalid cycle parameter %q", v)
		}
		ov.Cycle = &c
	}
	return ov, nil
}

func (s *Server) getScene(w http.ResponseWriter, req *http.Request) {
	ov, err := overrides(req)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	s.writeJSON(w, http.StatusOK, s.orch.Render(s.now(), ov))
}

// snapshotResponse is the JSON view of the acquired data.
type snapshotResponse struct {
	Observer      astro.Observer          `json:"observer"`
	Position      *astro.PositionSnapshot `json:"position,omitempty"`
	NewMoons      *astro.NewMoonTable     `json:"new_moons,omitempty"`
	Weather       *weather.Conditions     `json:"weather,omitempty"`
	LastFetch     time.Time               `json:"last_fetch"`
	LastError     string                  `json:"last_error,omitempty"`
	FetchDuration string                  `json:"fetch_duration"`
	Events        []state.Event           `json:"events"`
}

func (s *Server) getSnapshot(w http.ResponseWriter, req *http.Request) {
	snap := s.orch.Data().Snapshot()
	resp := snapshotResponse{
		Observer:      snap.Observer,
		Position:      snap.Position,
		NewMoons:      snap.NewMoons,
		Weather:       snap.Weather,
		LastFetch:     snap.LastFetch,
		FetchDuration: snap.FetchDuration.String(),
		Events:        snap.Events,
	}
	if snap.LastError != nil {
		resp.LastError = snap.LastError.Error()
	}
	if resp.Events == nil {
		resp.Events = []state.Event{}
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) getMoonSVG(w http.ResponseWriter, req *http.Request) {
	ov, err := overrides(req)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	sc := s.orch.Render(s.now(), ov)

	w.Header().Set("Content-Type", "image/svg+xml")
	w.Header().Set("Cache-Control", "max-age=60")
	fmt.Fprint(w, MoonSVG(sc.Moon.Phase, 24))
}

// MoonSVG draws a phase as a standalone square SVG of the given size.
func MoonSVG(p astro.MoonPhase, size float64) string {
	c := size / 2
	r := size * 5 / 12
	return fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %g %g" width="%g" height="%g">`+
		`<circle cx="%g" cy="%g" r="%g" fill="%s"/>`+
		`<path d="%s" fill="%s"/></svg>`,
		size, size, size, size,
		c, c, r, moonDark,
		p.Path(c, c, r), moonLit,
	)
}

func (s *Server) getHealth(w http.ResponseWriter, req *http.Request) {
	snap := s.orch.Data().Snapshot()
	status := "ok"
	if snap.Position == nil {
		status = "starting"
	}
	s.writeJSON(w, http.StatusOK, map[string]string{
		"status":  status,
		"version": version.Version,
	})
}

// writeJSON encodes v before writing the header so an encoding failure
// becomes a 500 instead of an empty 200.
func (s *Server) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(v); err != nil {
		s.logger.Error("encode response: %v", err)
		http.Error(w, "failed to encode response", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.WriteHeader(status)
	_, _ = w.Write(buf.Bytes())
}

func (s *Server) writeError(w http.ResponseWriter, status int, err error) {
	s.writeJSON(w, status, map[string]string{"error": err.Error()})
}
