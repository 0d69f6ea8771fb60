// Package server mounts the routing gateway and the local event-store
// surface over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/mirrornode/mirrornode/internal/bridge"
	"github.com/mirrornode/mirrornode/internal/config"
	"github.com/mirrornode/mirrornode/internal/core"
	"github.com/mirrornode/mirrornode/internal/event"
	"github.com/mirrornode/mirrornode/internal/theia"
)

const maxEventBytes = 1 << 20 // 1 MB

// statusInvalidEvent marks schema rejections, distinct from CORE_ERROR.
const statusInvalidEvent = "INVALID_EVENT"

// Server is the mirrornode gateway HTTP server.
type Server struct {
	cfg     *config.Config
	srv     *http.Server
	ln      net.Listener
	gateway *theia.Gateway
	recent  core.RecentStore
	logger  *slog.Logger
}

// NewServer creates and wires the gateway server. It binds its listener
// immediately so the caller learns the actual port before Start.
func NewServer(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Server, error) {
	// Recent-event store: redis when configured, else in-process.
	var recent core.RecentStore
	if cfg.Events.RedisURL != "" {
		rs, err := core.NewRedisStore(ctx, cfg.Events.RedisURL, cfg.Events.RecentLimit)
		if err != nil {
			return nil, fmt.Errorf("connecting redis: %w", err)
		}
		logger.Info("recent events backed by redis")
		recent = rs
	} else {
		recent = core.NewMemoryStore(cfg.Events.RecentLimit)
	}

	// Optional forwarding bridge.
	var bridgeClient *bridge.Client
	if cfg.Bridge.URL != "" {
		bridgeClient = bridge.NewClient(cfg.Bridge.URL, time.Duration(cfg.Bridge.TimeoutS)*time.Second)
		logger.Info("bridge forwarding enabled", "url", cfg.Bridge.URL)
	}

	processor := core.New(recent, bridgeClient, logger)
	gw := theia.NewGateway(cfg.Environment, processor, logger)

	s := &Server{
		cfg:     cfg,
		gateway: gw,
		recent:  recent,
		logger:  logger,
	}

	mux := http.NewServeMux()
	// /theia keeps its own method check so non-POST gets the documented
	// 405 body with an Allow header.
	mux.HandleFunc("/theia", s.handleTheia)
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("POST /events", s.handlePostEvent)
	mux.HandleFunc("GET /events/recent", s.handleRecent)
	mux.Handle("GET /metrics", promhttp.Handler())

	var h http.Handler = mux
	h = securityHeaders(h)
	h = logging(logger)(h)
	h = recovery(logger)(h)
	h = requestID(h)
	h = otelhttp.NewHandler(h, "mirrornode-gateway")

	bind := cfg.Server.Bind
	if bind == "" {
		bind = "127.0.0.1"
	}
	ln, actualPort, err := listenAutoPort(bind, cfg.Server.Port, logger)
	if err != nil {
		return nil, fmt.Errorf("binding port: %w", err)
	}
	cfg.Server.Port = actualPort

	s.ln = ln
	s.srv = &http.Server{
		Handler:        h,
		ReadTimeout:    15 * time.Second,
		WriteTimeout:   30 * time.Second,
		IdleTimeout:    60 * time.Second,
		MaxHeaderBytes: 1 << 20,
	}
	return s, nil
}

// Port returns the actual port the server is bound to.
func (s *Server) Port() int { return s.cfg.Server.Port }

// Handler exposes the full middleware stack for tests.
func (s *Server) Handler() http.Handler { return s.srv.Handler }

// Start begins serving. Blocks until shutdown.
func (s *Server) Start() error {
	s.logger.Info("mirrornode gateway starting",
		"addr", s.ln.Addr().String(),
		"environment", s.cfg.Environment,
		"bridge", s.cfg.Bridge.URL != "",
	)
	return s.srv.Serve(s.ln)
}

// Shutdown gracefully stops the server and releases the recent-event
// store when it holds a connection.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down")
	err := s.srv.Shutdown(ctx)
	if c, ok := s.recent.(io.Closer); ok {
		if cerr := c.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}
	return err
}

func (s *Server) handleTheia(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		writeJSON(w, http.StatusMethodNotAllowed, theia.Response{
			OK:      false,
			Message: "Method not allowed",
		})
		return
	}

	var ev event.Event
	if err := decodeEvent(r, &ev); err != nil {
		eventsRejected.Inc()
		writeJSON(w, http.StatusBadRequest, theia.Response{
			OK:      false,
			Status:  statusInvalidEvent,
			Message: "invalid event: " + err.Error(),
		})
		return
	}
	if err := ev.Validate(); err != nil {
		eventsRejected.Inc()
		writeJSON(w, http.StatusBadRequest, theia.Response{
			OK:      false,
			Status:  statusInvalidEvent,
			Message: err.Error(),
		})
		return
	}

	res := s.gateway.HandleEvent(r.Context(), ev)
	eventsRouted.WithLabelValues(string(ev.Type), res.Status).Inc()

	status := http.StatusOK
	if !res.OK {
		status = http.StatusInternalServerError
	}
	writeJSON(w, status, res)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	n, err := s.recent.Count(r.Context())
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]any{
			"ok": false, "message": "event store unavailable",
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"ok":     true,
		"events": n,
		// Single-process gateway: no tracked subscriber connections.
		"clients": 0,
	})
}

func (s *Server) handlePostEvent(w http.ResponseWriter, r *http.Request) {
	var ev event.Event
	if err := decodeEvent(r, &ev); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"ok": false, "message": "invalid event: " + err.Error()})
		return
	}
	if err := ev.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"ok": false, "message": err.Error()})
		return
	}
	if err := s.recent.Add(r.Context(), ev); err != nil {
		s.logger.Error("storing event failed", "id", ev.Meta.ID, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]any{"ok": false, "message": "failed to store event"})
		return
	}
	eventsStored.Inc()
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "stored": ev})
}

func (s *Server) handleRecent(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if q := r.URL.Query().Get("limit"); q != "" {
		if _, err := fmt.Sscanf(q, "%d", &limit); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]any{"ok": false, "message": "limit must be an integer"})
			return
		}
	}
	events, err := s.recent.Recent(r.Context(), limit)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]any{"ok": false, "message": "event store unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"ok":     true,
		"events": events,
		"count":  len(events),
	})
}

func decodeEvent(r *http.Request, ev *event.Event) error {
	defer r.Body.Close() //nolint:errcheck // read-only
	dec := json.NewDecoder(io.LimitReader(r.Body, maxEventBytes))
	return dec.Decode(ev)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// listenAutoPort tries the configured port; if busy, scans up to 10 higher ports.
func listenAutoPort(bind string, port int, logger *slog.Logger) (net.Listener, int, error) {
	addr := fmt.Sprintf("%s:%d", bind, port)
	ln, err := net.Listen("tcp", addr)
	if err == nil {
		// When port is 0, the OS assigns a random port.
		actual := ln.Addr().(*net.TCPAddr).Port
		return ln, actual, nil
	}

	if !isAddrInUse(err) {
		return nil, 0, err
	}

	logger.Warn("port in use, searching for available port", "port", port)
	for offset := 1; offset <= 10; offset++ {
		tryPort := port + offset
		addr = fmt.Sprintf("%s:%d", bind, tryPort)
		ln, err = net.Listen("tcp", addr)
		if err == nil {
			logger.Info("using alternative port", "original", port, "actual", tryPort)
			return ln, tryPort, nil
		}
	}
	return nil, 0, fmt.Errorf("port %d and next 10 ports are all in use", port)
}

func isAddrInUse(err error) bool {
	if errors.Is(err, syscall.EADDRINUSE) {
		return true
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return errors.Is(opErr.Err, syscall.EADDRINUSE)
	}
	return false
}
