package server

import (
	"context"
	"crypto/hmac"
	"encoding/json"
	"fmt"
	"html"
	"io/fs"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/countboard/countboard/internal/store"
	"github.com/countboard/countboard/internal/view"
)

const (
	// sseWriteTimeout is the maximum time allowed for a single SSE write
	// operation. This prevents goroutine leaks when clients are slow or
	// disconnected. Must be <= shutdown timeout to ensure clean shutdown.
	sseWriteTimeout = 5 * time.Second

	// defaultTitle is used when no custom title is configured.
	defaultTitle = "People Counter"

	// titlePlaceholder is the marker in HTML that gets replaced with the
	// actual title.
	titlePlaceholder = "{{.Title}}"
)

// Controller is the polling control surface the server exposes to the UI.
// The poller's Scheduler implements it.
type Controller interface {
	Enable()
	Disable()
	Enabled() bool
}

// Config carries the server's static configuration.
type Config struct {
	// Port is the TCP port to listen on.
	Port int

	// Assets is the embedded filesystem containing the dashboard page
	// (may be nil).
	Assets fs.FS

	// Title is the dashboard title (defaults to "People Counter" if empty).
	Title string

	// Gated requires AccessCode to enable polling when true.
	Gated bool

	// AccessCode is the code the gated mode checks. This is a UX
	// speed bump, not an authentication boundary: anyone with network
	// access to the readings service can query it directly.
	AccessCode string
}

// Server handles HTTP requests for the dashboard and its API.
//
// Server provides:
//   - GET /: the embedded dashboard page
//   - GET /api/state: the full view model as JSON
//   - GET /api/sse: Server-Sent Events stream of view-model updates
//   - GET /api/chart.svg: the rendered line chart
//   - GET /api/export.csv: the CSV export download
//   - POST /api/threshold: update the alert threshold
//   - POST /api/polling: enable or disable polling (gated by access code)
//
// The server is designed for graceful shutdown via context cancellation.
type Server struct {
	store      store.Store
	ctrl       Controller
	cfg        Config
	httpServer *http.Server
	logger     *slog.Logger
}

// NewServer creates a new HTTP [Server].
//
// The server is not started until [Server.Start] is called.
func NewServer(st store.Store, ctrl Controller, cfg Config, logger *slog.Logger) *Server {
	return &Server{
		store:  st,
		ctrl:   ctrl,
		cfg:    cfg,
		logger: logger,
	}
}

// Start begins serving HTTP requests in a background goroutine.
//
// Start is non-blocking and returns immediately after confirming the server
// is listening. The server runs until the context is cancelled, at which
// point it initiates a graceful shutdown with a 5-second timeout.
//
// Returns an error if the server fails to bind to the configured port.
func (s *Server) Start(ctx context.Context) error {
	mux := http.NewServeMux()

	mux.HandleFunc("/api/state", s.handleState)
	mux.HandleFunc("/api/sse", s.handleSSE)
	mux.HandleFunc("/api/chart.svg", s.handleChart)
	mux.HandleFunc("/api/export.csv", s.handleExport)
	mux.HandleFunc("/api/threshold", s.handleThreshold)
	mux.HandleFunc("/api/polling", s.handlePolling)

	if s.cfg.Assets != nil {
		mux.HandleFunc("/", s.handleDashboard)
	}

	// create listener first to verify port availability synchronously
	addr := fmt.Sprintf(":%d", s.cfg.Port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to bind to port %d: %w", s.cfg.Port, err)
	}

	s.httpServer = &http.Server{
		Handler: mux,
		// BaseContext derives all request contexts from the server context.
		// When ctx is cancelled, all request contexts are also cancelled,
		// enabling graceful shutdown of long-running handlers like SSE.
		BaseContext: func(_ net.Listener) context.Context {
			return ctx
		},
	}

	go func() {
		if err := s.httpServer.Serve(ln); err != nil && err != http.ErrServerClosed {
			s.logger.Error("http server error", "error", err)
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			s.logger.Error("http server shutdown error", "error", err)
		}
	}()

	return nil
}

// statePayload is the full view model the dashboard renders from.
type statePayload struct {
	Title          string              `json:"title"`
	Points         []view.DisplayPoint `json:"points"`
	Table          []tableRow          `json:"table"`
	Threshold      int                 `json:"threshold"`
	Alert          bool                `json:"alert"`
	Latest         string              `json:"latest"`
	PollingEnabled bool                `json:"polling_enabled"`
	Gated          bool                `json:"gated"`
	Refreshing     bool                `json:"refreshing"`
	LastRefreshed  *time.Time          `json:"last_refreshed"`
	RefreshedClock string              `json:"refreshed_clock,omitempty"`
	LastError      string              `json:"last_error,omitempty"`
}

// tableRow is a display point plus its human-relative age.
type tableRow struct {
	view.DisplayPoint
	Ago string `json:"ago"`
}

// buildPayload projects a state snapshot into the view model. now feeds the
// relative-time column.
func (s *Server) buildPayload(snap store.State, now time.Time) statePayload {
	points := view.Points(snap.Readings)

	sorted := view.TableRows(points)
	table := make([]tableRow, len(sorted))
	for i, p := range sorted {
		table[i] = tableRow{DisplayPoint: p, Ago: view.RelTime(p.Timestamp, now)}
	}

	title := s.cfg.Title
	if title == "" {
		title = defaultTitle
	}

	payload := statePayload{
		Title:          title,
		Points:         points,
		Table:          table,
		Threshold:      snap.Threshold,
		Alert:          view.ThresholdExceeded(points, snap.Threshold),
		Latest:         view.LatestLabel(points),
		PollingEnabled: snap.PollingEnabled,
		Gated:          s.cfg.Gated,
		Refreshing:     snap.Refreshing,
		LastRefreshed:  snap.LastRefreshed,
		LastError:      snap.LastError,
	}
	if snap.LastRefreshed != nil {
		payload.RefreshedClock = snap.LastRefreshed.Local().Format("15:04:05")
	}
	return payload
}

// handleDashboard serves the main dashboard page.
func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	content, err := fs.ReadFile(s.cfg.Assets, "assets/index.html")
	if err != nil {
		http.Error(w, "Dashboard not found", http.StatusInternalServerError)
		return
	}

	// apply title substitution with HTML escaping to prevent XSS
	title := s.cfg.Title
	if title == "" {
		title = defaultTitle
	}
	safeTitle := html.EscapeString(title)
	rendered := strings.ReplaceAll(string(content), titlePlaceholder, safeTitle)

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if _, err = w.Write([]byte(rendered)); err != nil {
		s.logger.Error("failed to write dashboard response", "error", err)
	}
}

// handleState returns the current view model as JSON.
func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	payload := s.buildPayload(s.store.Snapshot(), time.Now())

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-cache")

	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("failed to encode state response", "error", err)
	}
}

// handleThreshold updates the alert threshold.
//
// The dashboard's input is bounded 0-100 but that bound is a UI hint only;
// any integer is accepted here.
func (s *Server) handleThreshold(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req struct {
		Threshold *int `json:"threshold"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Threshold == nil {
		writeJSONError(w, http.StatusBadRequest, "threshold must be an integer")
		return
	}

	s.store.SetThreshold(*req.Threshold)
	w.WriteHeader(http.StatusNoContent)
}

// handlePolling enables or disables the refresh loop. Enabling in gated
// mode requires the access code; disabling never does.
func (s *Server) handlePolling(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req struct {
		Enabled bool   `json:"enabled"`
		Code    string `json:"code"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if !req.Enabled {
		s.ctrl.Disable()
		s.store.SetPolling(false)
		w.WriteHeader(http.StatusNoContent)
		return
	}

	if s.cfg.Gated && !codeMatches(req.Code, s.cfg.AccessCode) {
		s.logger.Warn("polling enable rejected", "reason", "access code mismatch")
		writeJSONError(w, http.StatusForbidden, "invalid access code")
		return
	}

	s.ctrl.Enable()
	s.store.SetPolling(true)
	w.WriteHeader(http.StatusNoContent)
}

// codeMatches compares codes in constant time.
func codeMatches(got, want string) bool {
	return hmac.Equal([]byte(got), []byte(want))
}

// handleExport serves the CSV export of the current chart-ordered points.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	points := view.Points(s.store.Snapshot().Readings)
	doc := view.CSVDocument(points)
	filename := view.CSVFilename(time.Now())

	w.Header().Set("Content-Type", "text/csv;charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	if _, err := w.Write(doc); err != nil {
		s.logger.Error("failed to write csv response", "error", err)
	}
}

// handleChart renders the current readings as an SVG line chart.
func (s *Server) handleChart(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	snap := s.store.Snapshot()
	points := view.Points(snap.Readings)

	w.Header().Set("Content-Type", "image/svg+xml")
	w.Header().Set("Cache-Control", "no-cache")

	if err := renderChart(w, points, snap.Threshold); err != nil {
		s.logger.Error("failed to render chart", "error", err)
	}
}

// handleSSE streams view-model updates via Server-Sent Events.
//
// The handler uses write deadlines to prevent goroutine leaks when clients
// are slow or disconnected. Without deadlines, a blocked Fprintf call would
// prevent the handler from detecting context cancellation or channel
// closure.
func (s *Server) handleSSE(w http.ResponseWriter, r *http.Request) {
	if _, ok := w.(http.Flusher); !ok {
		http.Error(w, "SSE not supported", http.StatusInternalServerError)
		return
	}

	// ResponseController provides deadline-aware write and flush operations.
	rc := http.NewResponseController(w)

	// track if write deadlines are supported (may not be for some
	// ResponseWriter impls)
	deadlinesSupported := true

	writeAndFlush := func(data []byte) error {
		if deadlinesSupported {
			if err := rc.SetWriteDeadline(time.Now().Add(sseWriteTimeout)); err != nil {
				// deadline not supported by underlying connection, continue without
				s.logger.Warn("sse write deadlines not supported", "error", err)
				deadlinesSupported = false
			}
		}

		if _, err := fmt.Fprintf(w, "data: %s\n\n", data); err != nil {
			return err
		}

		// ResponseController.Flush respects the write deadline
		return rc.Flush()
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*")

	ch := s.store.Subscribe()
	defer s.store.Unsubscribe(ch)

	// send the current state so a fresh client renders without waiting for
	// the next poll
	initial, err := json.Marshal(s.buildPayload(s.store.Snapshot(), time.Now()))
	if err == nil {
		if err := writeAndFlush(initial); err != nil {
			return
		}
	}

	for {
		select {
		case snap, ok := <-ch:
			if !ok {
				return
			}
			data, err := json.Marshal(s.buildPayload(snap, time.Now()))
			if err != nil {
				continue
			}
			if err := writeAndFlush(data); err != nil {
				return
			}

		case <-r.Context().Done():
			// request context is derived from server context via BaseContext,
			// so this fires on both client disconnect AND server shutdown
			return
		}
	}
}

// writeJSONError writes a JSON error body with the given status.
func writeJSONError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
