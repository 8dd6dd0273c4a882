package history

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/allbin/serialterm/internal/transcript"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(context.Background(), filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestOpenMigrates(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	version, err := db.SchemaVersion(ctx)
	if err != nil {
		t.Fatalf("SchemaVersion failed: %v", err)
	}
	if version != currentSchemaVersion {
		t.Errorf("Expected schema version %d, got %d", currentSchemaVersion, version)
	}

	// Migrating again is a no-op
	if err := db.Migrate(ctx); err != nil {
		t.Errorf("Second Migrate failed: %v", err)
	}
}

func TestOpenEmptyPath(t *testing.T) {
	if _, err := Open(context.Background(), ""); err == nil {
		t.Error("Expected error for empty path")
	}
}

func TestSessionStore(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	store := db.Sessions()

	first := &Session{Driver: "native", Port: "/dev/ttyUSB0", StartedAt: time.Now().Add(-time.Hour)}
	if err := store.CreateSession(ctx, first); err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}
	if first.ID == "" {
		t.Fatal("Expected generated session ID")
	}
	second := &Session{Driver: "accessory", Port: "/dev/ttyACM0"}
	if err := store.CreateSession(ctx, second); err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}

	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	records := []transcript.Record{
		{Text: "Connected to /dev/ttyUSB0 at 115200 baud.", Direction: transcript.System, Timestamp: base},
		{Text: "AT", Direction: transcript.Outbound, Timestamp: base.Add(time.Millisecond)},
		{Text: "OK\r\n", Direction: transcript.Inbound, Timestamp: base.Add(2 * time.Millisecond)},
	}
	if err := store.AppendRecords(ctx, first.ID, 0, records[:2]); err != nil {
		t.Fatalf("AppendRecords failed: %v", err)
	}
	if err := store.AppendRecords(ctx, first.ID, 2, records[2:]); err != nil {
		t.Fatalf("AppendRecords failed: %v", err)
	}

	// Re-inserting a sequence number is rejected
	if err := store.AppendRecords(ctx, first.ID, 1, records[1:2]); err == nil {
		t.Error("Expected duplicate seq to fail")
	}

	got, err := store.Records(ctx, first.ID, 0)
	if err != nil {
		t.Fatalf("Records failed: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("Expected 3 records, got %d", len(got))
	}
	for i := range records {
		if got[i].Text != records[i].Text || got[i].Direction != records[i].Direction || !got[i].Timestamp.Equal(records[i].Timestamp) {
			t.Errorf("record %d = %+v, want %+v", i, got[i], records[i])
		}
	}

	tail, err := store.Records(ctx, first.ID, 2)
	if err != nil {
		t.Fatalf("Records with limit failed: %v", err)
	}
	if len(tail) != 2 || tail[0].Text != "AT" || tail[1].Text != "OK\r\n" {
		t.Errorf("unexpected tail %+v", tail)
	}

	sessions, err := store.ListSessions(ctx, 0)
	if err != nil {
		t.Fatalf("ListSessions failed: %v", err)
	}
	if len(sessions) != 2 {
		t.Fatalf("Expected 2 sessions, got %d", len(sessions))
	}
	if sessions[0].ID != second.ID {
		t.Errorf("Expected newest session first, got %s", sessions[0].ID)
	}
	if sessions[1].Records != 3 {
		t.Errorf("Expected 3 records counted, got %d", sessions[1].Records)
	}

	limited, err := store.ListSessions(ctx, 1)
	if err != nil || len(limited) != 1 {
		t.Errorf("ListSessions(1) = %d sessions, %v", len(limited), err)
	}

	s, err := store.GetSession(ctx, first.ID)
	if err != nil {
		t.Fatalf("GetSession failed: %v", err)
	}
	if s.Port != "/dev/ttyUSB0" || s.Driver != "native" || s.Records != 3 {
		t.Errorf("unexpected session %+v", s)
	}

	if _, err := store.GetSession(ctx, "missing"); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("Expected ErrSessionNotFound, got %v", err)
	}
}

func TestAppendRecordsUnknownSession(t *testing.T) {
	db := openTestDB(t)
	err := db.Sessions().AppendRecords(context.Background(), "nope", 0, []transcript.Record{{Text: "x"}})
	if err == nil {
		t.Error("Expected foreign key violation")
	}
}

func TestRecorder(t *testing.T) {
	db := openTestDB(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	log := transcript.NewLog(nil)
	log.Append(transcript.System, "Connected to /dev/ttyUSB0 at 115200 baud.")

	rec, err := NewRecorder(ctx, db, log, "native", "/dev/ttyUSB0")
	if err != nil {
		t.Fatalf("NewRecorder failed: %v", err)
	}

	done := make(chan error, 1)
	go func() { done <- rec.Run(ctx) }()

	log.Append(transcript.Outbound, "AT")
	log.Append(transcript.Inbound, "OK\r\n")

	store := db.Sessions()
	deadline := time.Now().Add(5 * time.Second)
	for {
		got, err := store.Records(context.Background(), rec.SessionID(), 0)
		if err != nil {
			t.Fatalf("Records failed: %v", err)
		}
		if len(got) == 3 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("Expected 3 persisted records, got %d", len(got))
		}
		time.Sleep(5 * time.Millisecond)
	}

	// Records appended right before shutdown are still flushed
	log.Append(transcript.System, "Disconnected.")
	cancel()
	if err := <-done; err != nil {
		t.Fatalf("Run returned %v", err)
	}

	got, _ := store.Records(context.Background(), rec.SessionID(), 0)
	if len(got) != 4 || got[3].Text != "Disconnected." {
		t.Errorf("unexpected persisted records %+v", got)
	}
	if log.Len() != 4 {
		t.Error("Recorder must not modify the transcript")
	}
}

func TestRecorderStopsOnTranscriptClose(t *testing.T) {
	db := openTestDB(t)
	log := transcript.NewLog(nil)

	rec, err := NewRecorder(context.Background(), db, log, "native", "")
	if err != nil {
		t.Fatalf("NewRecorder failed: %v", err)
	}

	done := make(chan error, 1)
	go func() { done <- rec.Run(context.Background()) }()

	log.Append(transcript.Inbound, "bye")
	log.Close()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run returned %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not stop after transcript close")
	}

	got, _ := db.Sessions().Records(context.Background(), rec.SessionID(), 0)
	if len(got) != 1 {
		t.Errorf("Expected 1 persisted record, got %d", len(got))
	}
}
