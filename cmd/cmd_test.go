/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package cmd

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/allbin/serialterm/internal/config"
	"github.com/allbin/serialterm/internal/history"
	"github.com/allbin/serialterm/internal/session"
	"github.com/allbin/serialterm/internal/transcript"
	"github.com/allbin/serialterm/internal/transport"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

// echoHandle replies "OK" to every write
type echoHandle struct {
	mu      sync.Mutex
	pending []byte
	closed  bool
}

func (h *echoHandle) Read(buf []byte, timeout time.Duration) (int, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return 0, transport.ErrClosed
	}
	if len(h.pending) == 0 {
		return 0, nil
	}
	n := copy(buf, h.pending)
	h.pending = h.pending[n:]
	return n, nil
}

func (h *echoHandle) Write(data []byte, timeout time.Duration) (int, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.pending = append(h.pending, "OK\r\n"...)
	return len(data), nil
}

func (h *echoHandle) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	return nil
}

type echoDriver struct {
	ports   []string
	openErr error
}

func (d *echoDriver) Name() string { return "echo" }

func (d *echoDriver) Enumerate() ([]string, error) { return d.ports, nil }

func (d *echoDriver) Open(port string, mode transport.Mode) (transport.Handle, error) {
	if d.openErr != nil {
		return nil, d.openErr
	}
	return &echoHandle{}, nil
}

func newEchoSession(t *testing.T, d *echoDriver) *session.Session {
	t.Helper()
	sess, err := session.New(d, session.WithIdleDelay(time.Millisecond))
	if err != nil {
		t.Fatalf("session.New failed: %v", err)
	}
	t.Cleanup(sess.Close)
	return sess
}

func TestFilterPorts(t *testing.T) {
	ports := []transport.PortInfo{
		transport.NewPortInfo("/dev/ttyUSB0"),
		transport.NewPortInfo("/dev/ttyACM0"),
		transport.NewPortInfo("/dev/ttyS0"),
		transport.NewPortInfo("/dev/ttyAMA0"),
	}

	tests := []struct {
		filter string
		want   int
	}{
		{"", 4},
		{"all", 4},
		{"usb", 2},
		{"standard", 1},
		{"arm", 1},
		{"bluetooth", 0},
	}
	for _, tt := range tests {
		if got := len(filterPorts(ports, tt.filter)); got != tt.want {
			t.Errorf("filterPorts(%q) returned %d ports, want %d", tt.filter, got, tt.want)
		}
	}
}

func TestFindPort(t *testing.T) {
	ports := []transport.PortInfo{transport.NewPortInfo("/dev/ttyUSB0")}
	if _, ok := findPort(ports, "/dev/ttyUSB0"); !ok {
		t.Error("Expected port to be found")
	}
	if _, ok := findPort(ports, "/dev/ttyUSB1"); ok {
		t.Error("Expected unknown port not to be found")
	}
}

func TestReadCommands(t *testing.T) {
	got, err := readCommands(strings.NewReader("AT\r\n\n  \nATI\nAT+GMR"))
	if err != nil {
		t.Fatalf("readCommands failed: %v", err)
	}
	want := []string{"AT", "ATI", "AT+GMR"}
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("readCommands = %q, want %q", got, want)
	}
}

func TestPrintRecord(t *testing.T) {
	var buf bytes.Buffer
	printRecord(&buf, transcript.Record{
		Text:      "OK\x07\r\n",
		Direction: transcript.Inbound,
		Timestamp: time.Date(2025, 1, 1, 9, 8, 7, 0, time.UTC),
	})

	got := buf.String()
	for _, want := range []string{"09:08:07.000", "RX", "OK·\n"} {
		if !strings.Contains(got, want) {
			t.Errorf("printRecord output %q missing %q", got, want)
		}
	}
}

func TestSendCommands(t *testing.T) {
	sess := newEchoSession(t, &echoDriver{})

	var out bytes.Buffer
	err := sendCommands(context.Background(), sess, "/dev/ttyUSB0", []string{"AT", "ATI"}, 50*time.Millisecond, &out)
	if err != nil {
		t.Fatalf("sendCommands failed: %v", err)
	}
	if sess.IsConnected() {
		t.Error("Expected session disconnected afterwards")
	}

	got := out.String()
	for _, want := range []string{"Connected to /dev/ttyUSB0 at 115200 baud.", "TX  AT", "TX  ATI", "OK", "Disconnected."} {
		if !strings.Contains(got, want) {
			t.Errorf("output missing %q:\n%s", want, got)
		}
	}
}

func TestSendCommandsConnectFailure(t *testing.T) {
	sess := newEchoSession(t, &echoDriver{openErr: transport.ErrDeviceNotFound})

	var out bytes.Buffer
	err := sendCommands(context.Background(), sess, "/dev/ttyUSB9", []string{"AT"}, 0, &out)
	if err == nil {
		t.Fatal("Expected error when the port cannot be opened")
	}
	if !strings.Contains(out.String(), "Failed to connect") {
		t.Errorf("Expected failure record in output, got %q", out.String())
	}
}

func TestSleepContext(t *testing.T) {
	if !sleepContext(context.Background(), time.Millisecond) {
		t.Error("Expected sleep to complete")
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if sleepContext(ctx, time.Hour) {
		t.Error("Expected cancelled context to end the sleep")
	}
}

func TestRunCapture(t *testing.T) {
	sess := newEchoSession(t, &echoDriver{})
	ctx, cancel := context.WithCancel(context.Background())

	var out, console bytes.Buffer
	done := make(chan error, 1)
	go func() {
		done <- runCapture(ctx, sess, "/dev/ttyUSB0", &out, &console)
	}()

	deadline := time.Now().Add(2 * time.Second)
	for !sess.IsConnected() && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	sess.Send("AT")
	sess.Send("AT")
	deadline = time.Now().Add(2 * time.Second)
	for sess.Transcript().Len() < 5 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("runCapture failed: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("runCapture did not stop")
	}

	if got := out.String(); !strings.HasPrefix(got, "OK\r\n") || strings.Contains(got, "AT") {
		t.Errorf("Expected only received data captured, got %q", got)
	}
	if !strings.Contains(console.String(), "Disconnected.") {
		t.Errorf("Expected console transcript, got %q", console.String())
	}
}

func TestRunCaptureConnectFailure(t *testing.T) {
	sess := newEchoSession(t, &echoDriver{openErr: transport.ErrOpenFailed})
	var out bytes.Buffer
	if err := runCapture(context.Background(), sess, "/dev/ttyUSB0", &out, &bytes.Buffer{}); err == nil {
		t.Error("Expected error when the port cannot be opened")
	}
}

func TestHistoryOutput(t *testing.T) {
	ctx := context.Background()
	db, err := history.Open(ctx, filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatalf("history.Open failed: %v", err)
	}
	defer db.Close()

	store := db.Sessions()
	s := &history.Session{Driver: "native", Port: "/dev/ttyUSB0"}
	if err := store.CreateSession(ctx, s); err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}
	records := []transcript.Record{
		{Text: "AT", Direction: transcript.Outbound, Timestamp: time.Now()},
		{Text: "OK\r\n", Direction: transcript.Inbound, Timestamp: time.Now()},
	}
	if err := store.AppendRecords(ctx, s.ID, 0, records); err != nil {
		t.Fatalf("AppendRecords failed: %v", err)
	}

	cmd := &cobra.Command{}
	cmd.SetContext(ctx)

	var list bytes.Buffer
	if err := listSessions(cmd, store, 10, &list); err != nil {
		t.Fatalf("listSessions failed: %v", err)
	}
	if !strings.Contains(list.String(), s.ID) || !strings.Contains(list.String(), "2 records") {
		t.Errorf("unexpected session list: %q", list.String())
	}

	var show bytes.Buffer
	if err := showSession(cmd, store, s.ID, 0, &show); err != nil {
		t.Fatalf("showSession failed: %v", err)
	}
	if !strings.Contains(show.String(), "TX  AT") || !strings.Contains(show.String(), "RX  OK") {
		t.Errorf("unexpected session output: %q", show.String())
	}

	if err := showSession(cmd, store, "missing", 0, &show); !errors.Is(err, history.ErrSessionNotFound) {
		t.Errorf("Expected ErrSessionNotFound, got %v", err)
	}
}

func TestSetupLogging(t *testing.T) {
	defer zerolog.SetGlobalLevel(zerolog.InfoLevel)

	if err := setupLogging(config.LogConfig{Level: "debug"}, true); err != nil {
		t.Fatalf("setupLogging failed: %v", err)
	}
	if zerolog.GlobalLevel() != zerolog.DebugLevel {
		t.Errorf("Expected debug level, got %v", zerolog.GlobalLevel())
	}

	if err := setupLogging(config.LogConfig{Level: "loud"}, false); err == nil {
		t.Error("Expected error for invalid level")
	}

	path := filepath.Join(t.TempDir(), "serialterm.log")
	if err := setupLogging(config.LogConfig{Level: "info", File: path}, true); err != nil {
		t.Fatalf("setupLogging with file failed: %v", err)
	}
	defer logFile.Close()
	if _, err := os.Stat(path); err != nil {
		t.Errorf("Expected log file created: %v", err)
	}
}

func TestStartHistoryDisabled(t *testing.T) {
	cfg = config.DefaultConfig()
	sess := newEchoSession(t, &echoDriver{})
	stop := startHistory(context.Background(), sess, "")
	stop()
	stop()
}

func TestStartHistoryRecords(t *testing.T) {
	cfg = config.DefaultConfig()
	cfg.History.Enabled = true
	cfg.History.Path = filepath.Join(t.TempDir(), "history.db")
	defer func() { cfg = config.DefaultConfig() }()

	sess := newEchoSession(t, &echoDriver{})
	var out bytes.Buffer
	if err := sendCommands(context.Background(), sess, "/dev/ttyUSB0", []string{"AT"}, 20*time.Millisecond, &out); err != nil {
		t.Fatalf("sendCommands failed: %v", err)
	}

	db, err := history.Open(context.Background(), cfg.History.Path)
	if err != nil {
		t.Fatalf("history.Open failed: %v", err)
	}
	defer db.Close()

	sessions, err := db.Sessions().ListSessions(context.Background(), 0)
	if err != nil || len(sessions) != 1 {
		t.Fatalf("Expected one recorded session, got %v (%v)", sessions, err)
	}
	if sessions[0].Records != sess.Transcript().Len() {
		t.Errorf("Expected %d persisted records, got %d", sess.Transcript().Len(), sessions[0].Records)
	}
}

func TestNativeOptions(t *testing.T) {
	newCmd := func(dtr, rts string) *cobra.Command {
		c := &cobra.Command{}
		c.Flags().String("dtr", dtr, "")
		c.Flags().String("rts", rts, "")
		return c
	}

	opts, err := nativeOptions(newCmd("", ""))
	if err != nil || len(opts) != 0 {
		t.Errorf("Expected no options for empty flags, got %d (%v)", len(opts), err)
	}

	opts, err = nativeOptions(newCmd("on", "off"))
	if err != nil || len(opts) != 2 {
		t.Errorf("Expected two options, got %d (%v)", len(opts), err)
	}

	if _, err := nativeOptions(newCmd("maybe", "")); err == nil {
		t.Error("Expected error for invalid DTR state")
	}
}

func TestParseLine(t *testing.T) {
	tests := []struct {
		value   string
		want    *bool
		wantErr bool
	}{
		{"", nil, false},
		{"on", boolPtr(true), false},
		{"HIGH", boolPtr(true), false},
		{"0", boolPtr(false), false},
		{"sideways", nil, true},
	}
	for _, tt := range tests {
		got, err := parseLine("DTR", tt.value)
		if (err != nil) != tt.wantErr {
			t.Errorf("parseLine(%q) error = %v", tt.value, err)
			continue
		}
		if (got == nil) != (tt.want == nil) || (got != nil && *got != *tt.want) {
			t.Errorf("parseLine(%q) = %v, want %v", tt.value, got, tt.want)
		}
	}
}

func boolPtr(b bool) *bool { return &b }
