package server

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"runtime"
	"strings"
	"sync"
	"testing"
	"testing/fstest"
	"time"

	"github.com/countboard/countboard/internal/store"
)

// testLogger returns a logger that discards all output for clean test output.
func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// mockStore implements store.Store for testing.
type mockStore struct {
	mu          sync.RWMutex
	state       store.State
	subscribers map[chan store.State]struct{}
	subMu       sync.Mutex
}

func newMockStore() *mockStore {
	return &mockStore{
		subscribers: make(map[chan store.State]struct{}),
	}
}

func (m *mockStore) notify() {
	snap := m.Snapshot()
	m.subMu.Lock()
	for ch := range m.subscribers {
		select {
		case ch <- snap:
		default:
		}
	}
	m.subMu.Unlock()
}

func (m *mockStore) SetReadings(readings []store.Reading, at time.Time) {
	m.mu.Lock()
	m.state.Readings = readings
	m.state.LastRefreshed = &at
	m.state.Refreshing = false
	m.state.LastError = ""
	m.mu.Unlock()
	m.notify()
}

func (m *mockStore) SetRefreshing(refreshing bool) {
	m.mu.Lock()
	m.state.Refreshing = refreshing
	m.mu.Unlock()
	m.notify()
}

func (m *mockStore) SetFetchError(msg string) {
	m.mu.Lock()
	m.state.LastError = msg
	m.state.Refreshing = false
	m.mu.Unlock()
	m.notify()
}

func (m *mockStore) SetThreshold(threshold int) {
	m.mu.Lock()
	m.state.Threshold = threshold
	m.mu.Unlock()
	m.notify()
}

func (m *mockStore) SetPolling(enabled bool) {
	m.mu.Lock()
	m.state.PollingEnabled = enabled
	m.mu.Unlock()
	m.notify()
}

func (m *mockStore) Snapshot() store.State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	snap := m.state
	snap.Readings = make([]store.Reading, len(m.state.Readings))
	copy(snap.Readings, m.state.Readings)
	return snap
}

func (m *mockStore) Subscribe() <-chan store.State {
	ch := make(chan store.State, 100)
	m.subMu.Lock()
	m.subscribers[ch] = struct{}{}
	m.subMu.Unlock()
	return ch
}

func (m *mockStore) Unsubscribe(ch <-chan store.State) {
	m.subMu.Lock()
	defer m.subMu.Unlock()
	for subCh := range m.subscribers {
		if subCh == ch {
			delete(m.subscribers, subCh)
			close(subCh)
			break
		}
	}
}

// mockController implements Controller for testing.
type mockController struct {
	mu      sync.Mutex
	enabled bool
}

func (m *mockController) Enable() {
	m.mu.Lock()
	m.enabled = true
	m.mu.Unlock()
}

func (m *mockController) Disable() {
	m.mu.Lock()
	m.enabled = false
	m.mu.Unlock()
}

func (m *mockController) Enabled() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.enabled
}

func testServer(ms store.Store, mc Controller, cfg Config) *Server {
	return NewServer(ms, mc, cfg, testLogger())
}

func sampleReadings() []store.Reading {
	return []store.Reading{
		{ID: 1, CreatedAt: time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC), PeopleCount: 3},
		{ID: 2, CreatedAt: time.Date(2024, 6, 1, 8, 0, 5, 0, time.UTC), PeopleCount: 12},
	}
}

// --- Tests ---

func TestHandleState_ReturnsViewModel(t *testing.T) {
	ms := newMockStore()
	ms.SetThreshold(10)
	ms.SetReadings(sampleReadings(), time.Now())

	srv := testServer(ms, &mockController{}, Config{Title: "Lobby"})

	req := httptest.NewRequest(http.MethodGet, "/api/state", nil)
	rec := httptest.NewRecorder()
	srv.handleState(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q, want application/json", ct)
	}

	var payload struct {
		Title     string `json:"title"`
		Threshold int    `json:"threshold"`
		Alert     bool   `json:"alert"`
		Latest    string `json:"latest"`
		Points    []struct {
			Value int `json:"value"`
		} `json:"points"`
		Table []struct {
			Value int    `json:"value"`
			Ago   string `json:"ago"`
		} `json:"table"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}

	if payload.Title != "Lobby" {
		t.Errorf("title = %q, want %q", payload.Title, "Lobby")
	}
	if payload.Threshold != 10 {
		t.Errorf("threshold = %d, want 10", payload.Threshold)
	}
	if !payload.Alert {
		t.Error("expected alert since reading 12 > threshold 10")
	}
	if payload.Latest != "12" {
		t.Errorf("latest = %q, want %q", payload.Latest, "12")
	}
	if len(payload.Points) != 2 {
		t.Fatalf("expected 2 points, got %d", len(payload.Points))
	}
	// table is newest-first
	if payload.Table[0].Value != 12 {
		t.Errorf("table[0].value = %d, want 12", payload.Table[0].Value)
	}
	if payload.Table[0].Ago == "" {
		t.Error("table rows should carry a relative-time label")
	}
}

func TestHandleState_EmptyStore(t *testing.T) {
	ms := newMockStore()
	srv := testServer(ms, &mockController{}, Config{})

	req := httptest.NewRequest(http.MethodGet, "/api/state", nil)
	rec := httptest.NewRecorder()
	srv.handleState(rec, req)

	var payload struct {
		Title  string `json:"title"`
		Latest string `json:"latest"`
		Alert  bool   `json:"alert"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}

	if payload.Title != defaultTitle {
		t.Errorf("title = %q, want default %q", payload.Title, defaultTitle)
	}
	if payload.Latest != "no data" {
		t.Errorf("latest = %q, want %q", payload.Latest, "no data")
	}
	if payload.Alert {
		t.Error("empty store should not alert")
	}
}

func TestHandleState_MethodNotAllowed(t *testing.T) {
	srv := testServer(newMockStore(), &mockController{}, Config{})

	req := httptest.NewRequest(http.MethodPost, "/api/state", nil)
	rec := httptest.NewRecorder()
	srv.handleState(rec, req)

	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("expected status 405, got %d", rec.Code)
	}
}

func TestHandleThreshold_Updates(t *testing.T) {
	ms := newMockStore()
	srv := testServer(ms, &mockController{}, Config{})

	req := httptest.NewRequest(http.MethodPost, "/api/threshold", strings.NewReader(`{"threshold": 7}`))
	rec := httptest.NewRecorder()
	srv.handleThreshold(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected status 204, got %d", rec.Code)
	}
	if got := ms.Snapshot().Threshold; got != 7 {
		t.Errorf("threshold = %d, want 7", got)
	}
}

func TestHandleThreshold_AcceptsAnyInteger(t *testing.T) {
	ms := newMockStore()
	srv := testServer(ms, &mockController{}, Config{})

	for _, v := range []string{`{"threshold": -3}`, `{"threshold": 500}`, `{"threshold": 0}`} {
		req := httptest.NewRequest(http.MethodPost, "/api/threshold", strings.NewReader(v))
		rec := httptest.NewRecorder()
		srv.handleThreshold(rec, req)

		if rec.Code != http.StatusNoContent {
			t.Errorf("body %s: expected status 204, got %d", v, rec.Code)
		}
	}
}

func TestHandleThreshold_RejectsBadBody(t *testing.T) {
	ms := newMockStore()
	ms.SetThreshold(10)
	srv := testServer(ms, &mockController{}, Config{})

	for _, body := range []string{``, `{}`, `{"threshold": "many"}`, `not json`} {
		req := httptest.NewRequest(http.MethodPost, "/api/threshold", strings.NewReader(body))
		rec := httptest.NewRecorder()
		srv.handleThreshold(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Errorf("body %q: expected status 400, got %d", body, rec.Code)
		}
	}

	if got := ms.Snapshot().Threshold; got != 10 {
		t.Errorf("threshold changed to %d on bad input, want 10", got)
	}
}

func TestHandlePolling_EnableUngated(t *testing.T) {
	ms := newMockStore()
	mc := &mockController{}
	srv := testServer(ms, mc, Config{Gated: false})

	req := httptest.NewRequest(http.MethodPost, "/api/polling", strings.NewReader(`{"enabled": true}`))
	rec := httptest.NewRecorder()
	srv.handlePolling(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected status 204, got %d", rec.Code)
	}
	if !mc.Enabled() {
		t.Error("controller should be enabled")
	}
	if !ms.Snapshot().PollingEnabled {
		t.Error("store polling flag should be set")
	}
}

func TestHandlePolling_GatedRequiresCode(t *testing.T) {
	ms := newMockStore()
	mc := &mockController{}
	srv := testServer(ms, mc, Config{Gated: true, AccessCode: "sesame"})

	// wrong code rejected
	req := httptest.NewRequest(http.MethodPost, "/api/polling", strings.NewReader(`{"enabled": true, "code": "guess"}`))
	rec := httptest.NewRecorder()
	srv.handlePolling(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected status 403, got %d", rec.Code)
	}
	if mc.Enabled() {
		t.Error("controller should stay disabled on code mismatch")
	}
	if ms.Snapshot().PollingEnabled {
		t.Error("store polling flag should stay unset on code mismatch")
	}

	// correct code accepted
	req = httptest.NewRequest(http.MethodPost, "/api/polling", strings.NewReader(`{"enabled": true, "code": "sesame"}`))
	rec = httptest.NewRecorder()
	srv.handlePolling(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected status 204, got %d", rec.Code)
	}
	if !mc.Enabled() {
		t.Error("controller should be enabled with correct code")
	}
}

func TestHandlePolling_DisableNeedsNoCode(t *testing.T) {
	ms := newMockStore()
	mc := &mockController{}
	mc.Enable()
	ms.SetPolling(true)
	srv := testServer(ms, mc, Config{Gated: true, AccessCode: "sesame"})

	req := httptest.NewRequest(http.MethodPost, "/api/polling", strings.NewReader(`{"enabled": false}`))
	rec := httptest.NewRecorder()
	srv.handlePolling(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected status 204, got %d", rec.Code)
	}
	if mc.Enabled() {
		t.Error("controller should be disabled")
	}
	if ms.Snapshot().PollingEnabled {
		t.Error("store polling flag should be cleared")
	}
}

func TestHandlePolling_BadBody(t *testing.T) {
	srv := testServer(newMockStore(), &mockController{}, Config{})

	req := httptest.NewRequest(http.MethodPost, "/api/polling", strings.NewReader(`not json`))
	rec := httptest.NewRecorder()
	srv.handlePolling(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected status 400, got %d", rec.Code)
	}
}

func TestHandleExport_CSVDownload(t *testing.T) {
	ms := newMockStore()
	ms.SetReadings(sampleReadings(), time.Now())
	srv := testServer(ms, &mockController{}, Config{})

	req := httptest.NewRequest(http.MethodGet, "/api/export.csv", nil)
	rec := httptest.NewRecorder()
	srv.handleExport(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "text/csv;charset=utf-8" {
		t.Errorf("Content-Type = %q, want text/csv;charset=utf-8", ct)
	}
	cd := rec.Header().Get("Content-Disposition")
	if !strings.Contains(cd, "attachment") || !strings.Contains(cd, "people_counter_export_") {
		t.Errorf("Content-Disposition = %q, want attachment with export filename", cd)
	}

	body := rec.Body.String()
	lines := strings.Split(body, "\n")
	if len(lines) != 3 {
		t.Fatalf("expected header + 2 rows, got %d lines: %q", len(lines), body)
	}
	if lines[0] != `"People Count","Timestamp (ISO)"` {
		t.Errorf("header = %q", lines[0])
	}
	if !strings.HasPrefix(lines[1], `"3",`) {
		t.Errorf("first data row = %q, want people count 3 first", lines[1])
	}
}

func TestHandleChart_ServesSVG(t *testing.T) {
	ms := newMockStore()
	ms.SetReadings(sampleReadings(), time.Now())
	srv := testServer(ms, &mockController{}, Config{})

	req := httptest.NewRequest(http.MethodGet, "/api/chart.svg", nil)
	rec := httptest.NewRecorder()
	srv.handleChart(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "image/svg+xml" {
		t.Errorf("Content-Type = %q, want image/svg+xml", ct)
	}
	if !strings.Contains(rec.Body.String(), "<svg") {
		t.Error("response should contain an SVG document")
	}
}

func TestHandleChart_EmptyServesPlaceholder(t *testing.T) {
	srv := testServer(newMockStore(), &mockController{}, Config{})

	req := httptest.NewRequest(http.MethodGet, "/api/chart.svg", nil)
	rec := httptest.NewRecorder()
	srv.handleChart(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "no data") {
		t.Errorf("placeholder should say no data, got: %s", rec.Body.String())
	}
}

func TestHandleDashboard_TitleSubstitution(t *testing.T) {
	assets := fstest.MapFS{
		"assets/index.html": &fstest.MapFile{
			Data: []byte("<html><title>{{.Title}}</title><h1>{{.Title}}</h1></html>"),
		},
	}
	srv := testServer(newMockStore(), &mockController{}, Config{Assets: assets, Title: "Lab <3"})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	srv.handleDashboard(rec, req)

	body := rec.Body.String()
	if strings.Contains(body, "{{.Title}}") {
		t.Error("title placeholder was not substituted")
	}
	if !strings.Contains(body, "Lab &lt;3") {
		t.Errorf("title should be HTML-escaped, got: %s", body)
	}
}

func TestHandleDashboard_NotFoundForOtherPaths(t *testing.T) {
	assets := fstest.MapFS{
		"assets/index.html": &fstest.MapFile{Data: []byte("<html></html>")},
	}
	srv := testServer(newMockStore(), &mockController{}, Config{Assets: assets})

	req := httptest.NewRequest(http.MethodGet, "/nope", nil)
	rec := httptest.NewRecorder()
	srv.handleDashboard(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("expected status 404, got %d", rec.Code)
	}
}

func TestHandleSSE_SendsInitialState(t *testing.T) {
	ms := newMockStore()
	ms.SetThreshold(10)
	ms.SetReadings(sampleReadings(), time.Now())

	srv := testServer(ms, &mockController{}, Config{})

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	req := httptest.NewRequest(http.MethodGet, "/api/sse", nil)
	req = req.WithContext(ctx)
	rec := httptest.NewRecorder()

	srv.handleSSE(rec, req)

	body := rec.Body.String()
	if !strings.Contains(body, "data: ") {
		t.Fatalf("expected SSE frame, got: %s", body)
	}
	if !strings.Contains(body, `"threshold":10`) {
		t.Errorf("initial frame should carry the threshold, got: %s", body)
	}
}

func TestHandleSSE_StreamsUpdates(t *testing.T) {
	ms := newMockStore()
	srv := testServer(ms, &mockController{}, Config{})

	ctx, cancel := context.WithCancel(context.Background())
	req := httptest.NewRequest(http.MethodGet, "/api/sse", nil)
	req = req.WithContext(ctx)
	rec := httptest.NewRecorder()

	done := make(chan struct{})
	go func() {
		srv.handleSSE(rec, req)
		close(done)
	}()

	// give handler time to subscribe
	time.Sleep(50 * time.Millisecond)

	ms.SetThreshold(42)

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(1 * time.Second):
		t.Fatal("handler did not exit after context cancellation")
	}

	if !strings.Contains(rec.Body.String(), `"threshold":42`) {
		t.Errorf("stream should carry the update, got: %s", rec.Body.String())
	}
}

func TestHandleSSE_ServerShutdown(t *testing.T) {
	ms := newMockStore()
	srv := testServer(ms, &mockController{}, Config{})

	// request context derived from the server context, as BaseContext does
	serverCtx, serverCancel := context.WithCancel(context.Background())
	req := httptest.NewRequest(http.MethodGet, "/api/sse", nil)
	req = req.WithContext(serverCtx)
	rec := httptest.NewRecorder()

	done := make(chan struct{})
	go func() {
		srv.handleSSE(rec, req)
		close(done)
	}()

	time.Sleep(50 * time.Millisecond)
	serverCancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("handler did not exit after server shutdown")
	}
}

func TestHandleSSE_NoGoroutineLeaks(t *testing.T) {
	runtime.GC()
	time.Sleep(100 * time.Millisecond)
	before := runtime.NumGoroutine()

	ms := newMockStore()
	srv := testServer(ms, &mockController{}, Config{})

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
			defer cancel()

			req := httptest.NewRequest(http.MethodGet, "/api/sse", nil)
			req = req.WithContext(ctx)
			rec := httptest.NewRecorder()

			srv.handleSSE(rec, req)
		}()
	}

	wg.Wait()

	runtime.GC()
	time.Sleep(200 * time.Millisecond)

	after := runtime.NumGoroutine()
	if after > before+2 { // small tolerance for runtime variance
		t.Errorf("potential goroutine leak: before=%d, after=%d", before, after)
	}
}

func TestHandleSSE_SSENotSupported(t *testing.T) {
	srv := testServer(newMockStore(), &mockController{}, Config{})

	req := httptest.NewRequest(http.MethodGet, "/api/sse", nil)
	w := &nonFlushWriter{header: make(http.Header)}

	srv.handleSSE(w, req)

	if w.statusCode != http.StatusInternalServerError {
		t.Errorf("expected status %d, got %d", http.StatusInternalServerError, w.statusCode)
	}
}

type nonFlushWriter struct {
	header     http.Header
	statusCode int
	body       []byte
}

func (n *nonFlushWriter) Header() http.Header {
	return n.header
}

func (n *nonFlushWriter) Write(b []byte) (int, error) {
	n.body = append(n.body, b...)
	return len(b), nil
}

func (n *nonFlushWriter) WriteHeader(statusCode int) {
	n.statusCode = statusCode
}

func TestServerStart_PortInUse(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to reserve port: %v", err)
	}
	defer ln.Close()
	port := ln.Addr().(*net.TCPAddr).Port

	srv := testServer(newMockStore(), &mockController{}, Config{Port: port})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := srv.Start(ctx); err == nil {
		t.Error("expected error when port is already in use")
	}
}

func TestServerStart_GracefulShutdown(t *testing.T) {
	srv := testServer(newMockStore(), &mockController{}, Config{Port: 0})

	ctx, cancel := context.WithCancel(context.Background())

	if err := srv.Start(ctx); err != nil {
		t.Fatalf("server failed to start: %v", err)
	}

	cancel()

	// shutdown should finish well within its 5s deadline
	deadline := time.Now().Add(6 * time.Second)
	for time.Now().Before(deadline) {
		if err := srv.httpServer.Shutdown(context.Background()); err == nil || err == http.ErrServerClosed {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("server did not shut down in time")
}
