package api

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/allbin/serialterm/internal/api/types"
	"github.com/allbin/serialterm/internal/session"
	"github.com/allbin/serialterm/internal/transport"
)

// loopbackHandle echoes every write back as inbound data
type loopbackHandle struct {
	mu      sync.Mutex
	pending chan []byte
	closed  bool
}

func (h *loopbackHandle) Read(buf []byte, timeout time.Duration) (int, error) {
	select {
	case data := <-h.pending:
		return copy(buf, data), nil
	case <-time.After(timeout):
		return 0, transport.ErrTimeout
	}
}

func (h *loopbackHandle) Write(data []byte, timeout time.Duration) (int, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.pending <- append([]byte(nil), data...)
	return len(data), nil
}

func (h *loopbackHandle) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	return nil
}

type loopbackDriver struct{}

func (loopbackDriver) Name() string { return "loopback" }

func (loopbackDriver) Enumerate() ([]string, error) {
	return []string{"/dev/ttyUSB0"}, nil
}

func (loopbackDriver) Open(port string, mode transport.Mode) (transport.Handle, error) {
	if port != "/dev/ttyUSB0" {
		return nil, &transport.OpError{Op: "open", Port: port, Err: transport.ErrDeviceNotFound}
	}
	return &loopbackHandle{pending: make(chan []byte, 16)}, nil
}

func newTestRouter(t *testing.T) (*Router, *session.Session) {
	t.Helper()
	s, err := session.New(loopbackDriver{}, session.WithReadTimeout(5*time.Millisecond))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(s.Close)
	return NewRouter(s), s
}

func do(t *testing.T, r *Router, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.Handler().ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(w.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %q: %v", w.Body.String(), err)
	}
	return v
}

func TestHealth(t *testing.T) {
	r, _ := newTestRouter(t)

	w := do(t, r, http.MethodGet, "/health", "")
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}
	resp := decode[types.HealthResponse](t, w)
	if resp.Status != "healthy" || resp.Connection != "disconnected" {
		t.Errorf("unexpected health %+v", resp)
	}
}

func TestListPorts(t *testing.T) {
	r, _ := newTestRouter(t)

	w := do(t, r, http.MethodGet, "/api/v1/ports", "")
	resp := decode[types.PortsResponse](t, w)
	if len(resp.Ports) != 1 || resp.Ports[0].Name != "/dev/ttyUSB0" || resp.Ports[0].Description != "USB Serial Port" {
		t.Errorf("unexpected ports %+v", resp.Ports)
	}
}

func TestConnectSendDisconnect(t *testing.T) {
	r, s := newTestRouter(t)

	w := do(t, r, http.MethodPost, "/api/v1/send", `{"command":"AT"}`)
	if w.Code != http.StatusConflict {
		t.Errorf("Expected 409 when sending while disconnected, got %d", w.Code)
	}

	w = do(t, r, http.MethodPost, "/api/v1/connect", `{"port":"/dev/ttyUSB0"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("connect returned %d: %s", w.Code, w.Body.String())
	}
	act := decode[types.ActionResponse](t, w)
	if !act.State.Connected || act.State.Port != "/dev/ttyUSB0" {
		t.Errorf("unexpected state %+v", act.State)
	}
	if len(act.Records) != 1 || act.Records[0].Text != "Connected to /dev/ttyUSB0 at 115200 baud." {
		t.Errorf("unexpected records %+v", act.Records)
	}

	w = do(t, r, http.MethodPost, "/api/v1/send", `{"command":"AT"}`)
	act = decode[types.ActionResponse](t, w)
	if len(act.Records) == 0 || act.Records[0].Text != "AT" {
		t.Errorf("unexpected send records %+v", act.Records)
	}

	deadline := time.Now().Add(2 * time.Second)
	for s.Transcript().Len() < 3 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}

	w = do(t, r, http.MethodGet, "/api/v1/transcript?since=1", "")
	tr := decode[types.TranscriptResponse](t, w)
	if len(tr.Records) != 2 || tr.Records[1].Text != "AT\r\n" || tr.Next != 3 {
		t.Errorf("unexpected transcript %+v", tr)
	}

	w = do(t, r, http.MethodPost, "/api/v1/disconnect", "")
	act = decode[types.ActionResponse](t, w)
	if act.State.Connected {
		t.Error("Expected disconnected")
	}
	if len(act.Records) != 1 || act.Records[0].Text != "Disconnected." {
		t.Errorf("unexpected disconnect records %+v", act.Records)
	}

	w = do(t, r, http.MethodGet, "/api/v1/state", "")
	st := decode[types.StateResponse](t, w)
	if st.Connected || st.Driver != "loopback" || st.Records != 4 {
		t.Errorf("unexpected state %+v", st)
	}
}

func TestConnectFailureIsReportedInRecords(t *testing.T) {
	r, _ := newTestRouter(t)

	w := do(t, r, http.MethodPost, "/api/v1/connect", `{"port":"/dev/ttyUSB7"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}
	act := decode[types.ActionResponse](t, w)
	if act.State.Connected {
		t.Error("Expected disconnected")
	}
	if len(act.Records) != 1 || !strings.HasPrefix(act.Records[0].Text, "Failed to connect: ") {
		t.Errorf("unexpected records %+v", act.Records)
	}
}

func TestBadRequests(t *testing.T) {
	r, _ := newTestRouter(t)

	tests := []struct {
		method, path, body string
	}{
		{http.MethodPost, "/api/v1/connect", `{}`},
		{http.MethodPost, "/api/v1/connect", `not json`},
		{http.MethodPost, "/api/v1/send", `not json`},
		{http.MethodGet, "/api/v1/transcript?since=-1", ""},
		{http.MethodGet, "/api/v1/transcript?since=abc", ""},
	}
	for _, tt := range tests {
		w := do(t, r, tt.method, tt.path, tt.body)
		if w.Code != http.StatusBadRequest {
			t.Errorf("%s %s %q: expected 400, got %d", tt.method, tt.path, tt.body, w.Code)
		}
	}
}

func TestEventsStream(t *testing.T) {
	r, s := newTestRouter(t)
	srv := httptest.NewServer(r.Handler())
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/api/v1/events?since=0", nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("GET events failed: %v", err)
	}
	defer resp.Body.Close()

	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Errorf("Content-Type = %q", ct)
	}

	go s.Connect("/dev/ttyUSB0")

	scanner := bufio.NewScanner(resp.Body)
	var events []string
	for scanner.Scan() {
		line := scanner.Text()
		if strings.HasPrefix(line, "event: ") {
			events = append(events, strings.TrimPrefix(line, "event: "))
		}
		if strings.HasPrefix(line, "data: ") && strings.Contains(line, "Connected to /dev/ttyUSB0") {
			break
		}
	}
	if err := scanner.Err(); err != nil && !errors.Is(err, context.Canceled) {
		t.Fatalf("stream error: %v", err)
	}

	if len(events) < 2 || events[0] != "connected" || events[len(events)-1] != "transcript" {
		t.Errorf("unexpected event sequence %v", events)
	}
}

func TestEventsStreamStaleSince(t *testing.T) {
	r, s := newTestRouter(t)
	srv := httptest.NewServer(r.Handler())
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/api/v1/events?since=50", nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("GET events failed: %v", err)
	}
	defer resp.Body.Close()

	go s.Connect("/dev/ttyUSB0")

	scanner := bufio.NewScanner(resp.Body)
	var got struct {
		Next    int               `json:"next"`
		Records []json.RawMessage `json:"records"`
	}
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "data: ") || !strings.Contains(line, `"records"`) {
			continue
		}
		if err := json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &got); err != nil {
			t.Fatalf("bad event payload %q: %v", line, err)
		}
		break
	}
	if err := scanner.Err(); err != nil && !errors.Is(err, context.Canceled) {
		t.Fatalf("stream error: %v", err)
	}

	if len(got.Records) == 0 {
		t.Fatal("expected the connect record in the first transcript event")
	}
	if got.Next != len(got.Records) {
		t.Errorf("next = %d, expected %d", got.Next, len(got.Records))
	}
}
