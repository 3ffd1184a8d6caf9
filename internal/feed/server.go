package feed

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/hsebcm/calendar-sync/internal/dataset"
	"github.com/hsebcm/calendar-sync/internal/metrics"
	"github.com/hsebcm/calendar-sync/internal/model"
	"github.com/hsebcm/calendar-sync/internal/syncer"
)

// Config holds feed server configuration.
type Config struct {
	MetricsPath  string        // default: /metrics
	WriteTimeout time.Duration // WebSocket write deadline (default: 10s)
	PingInterval time.Duration // WebSocket keepalive (default: 30s)
	PongTimeout  time.Duration // Drop clients silent for this long (default: 60s)
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		MetricsPath:  "/metrics",
		WriteTimeout: 10 * time.Second,
		PingInterval: 30 * time.Second,
		PongTimeout:  60 * time.Second,
	}
}

// StateSource reports orchestrator state for health checks.
type StateSource interface {
	State() syncer.State
}

// CheckFunc probes a dependency; a non-nil error marks it unhealthy.
type CheckFunc func(ctx context.Context) error

// Server serves the dataset over HTTP and WebSocket.
type Server struct {
	cfg    Config
	holder *dataset.Holder
	state  StateSource
	logger *slog.Logger

	upgrader websocket.Upgrader

	checksMu sync.RWMutex
	checks   map[string]CheckFunc

	done      chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup
}

// NewServer creates a feed server over holder. state may be nil.
func NewServer(cfg Config, holder *dataset.Holder, state StateSource, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	def := DefaultConfig()
	if cfg.MetricsPath == "" {
		cfg.MetricsPath = def.MetricsPath
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = def.WriteTimeout
	}
	if cfg.PingInterval <= 0 {
		cfg.PingInterval = def.PingInterval
	}
	if cfg.PongTimeout <= 0 {
		cfg.PongTimeout = def.PongTimeout
	}

	return &Server{
		cfg:    cfg,
		holder: holder,
		state:  state,
		logger: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		checks: make(map[string]CheckFunc),
		done:   make(chan struct{}),
	}
}

// AddCheck registers a named dependency probe for /health.
func (s *Server) AddCheck(name string, fn CheckFunc) {
	s.checksMu.Lock()
	defer s.checksMu.Unlock()
	s.checks[name] = fn
}

// Handler returns the HTTP handler for all endpoints.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /events", s.handleEvents)
	mux.HandleFunc("GET /ws", s.handleWS)
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.Handle("GET "+s.cfg.MetricsPath, metrics.Handler())
	return mux
}

// Close disconnects every WebSocket client and waits for them to finish.
func (s *Server) Close(ctx context.Context) error {
	s.closeOnce.Do(func() { close(s.done) })

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// eventFilter selects events by optional category, month and source.
type eventFilter struct {
	category model.Category
	month    int
	source   model.SourceKind
}

func parseFilter(r *http.Request) (eventFilter, string) {
	var f eventFilter
	q := r.URL.Query()

	if v := q.Get("category"); v != "" {
		c, ok := model.ParseCategory(v)
		if !ok {
			return f, "unknown category " + strconv.Quote(v)
		}
		f.category = c
	}
	if v := q.Get("month"); v != "" {
		m, err := strconv.Atoi(v)
		if err != nil || m < 1 || m > 12 {
			return f, "month must be 1-12"
		}
		f.month = m
	}
	if v := q.Get("source"); v != "" {
		k, ok := model.ParseSourceKind(v)
		if !ok {
			return f, "unknown source " + strconv.Quote(v)
		}
		f.source = k
	}
	return f, ""
}

func (f eventFilter) match(ev model.CanonicalEvent) bool {
	if f.category != "" && ev.Category != f.category {
		return false
	}
	if f.month != 0 && ev.Month != f.month {
		return false
	}
	if f.source != "" && ev.SourceID != f.source {
		return false
	}
	return true
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	filter, problem := parseFilter(r)
	if problem != "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": problem})
		return
	}

	snap := s.holder.Current()
	events := make([]model.CanonicalEvent, 0, len(snap.Events))
	for _, ev := range snap.Events {
		if filter.match(ev) {
			events = append(events, ev)
		}
	}
	snap.Events = events

	writeJSON(w, http.StatusOK, snap)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	health := struct {
		Status     string         `json:"status"`
		Components map[string]any `json:"components"`
	}{
		Status:     "healthy",
		Components: make(map[string]any),
	}

	// Dependency probes.
	s.checksMu.RLock()
	for name, check := range s.checks {
		if err := check(ctx); err != nil {
			health.Status = "unhealthy"
			health.Components[name] = map[string]string{
				"status": "disconnected",
				"error":  err.Error(),
			}
		} else {
			health.Components[name] = "connected"
		}
	}
	s.checksMu.RUnlock()

	// Dataset.
	snap := s.holder.Current()
	health.Components["dataset"] = map[string]any{
		"events":    len(snap.Events),
		"fallback":  snap.Fallback,
		"synced_at": snap.SyncedAt,
		"degraded":  snap.Degraded(),
	}
	if len(snap.Events) == 0 {
		health.Status = "unhealthy"
	} else if (snap.Fallback || snap.Degraded() > 0) && health.Status == "healthy" {
		health.Status = "degraded"
	}

	// Last run and orchestrator state.
	if last := s.holder.LastRun(); !last.At.IsZero() {
		health.Components["last_run"] = last
		if !last.Success && health.Status == "healthy" {
			health.Status = "degraded"
		}
	}
	if s.state != nil {
		health.Components["syncer"] = s.state.State()
	}

	status := http.StatusOK
	if health.Status == "unhealthy" {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, health)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
