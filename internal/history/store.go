package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/allbin/serialterm/internal/transcript"
	"github.com/google/uuid"
)

var ErrSessionNotFound = errors.New("session not found")

// Session is one persisted terminal session
type Session struct {
	ID        string    `json:"id"`
	Driver    string    `json:"driver"`
	Port      string    `json:"port"`
	StartedAt time.Time `json:"started_at"`
	Records   int       `json:"records"`
}

// Store provides transcript history operations
type Store interface {
	CreateSession(ctx context.Context, s *Session) error
	GetSession(ctx context.Context, id string) (*Session, error)
	ListSessions(ctx context.Context, limit int) ([]*Session, error)
	AppendRecords(ctx context.Context, sessionID string, firstSeq int, records []transcript.Record) error
	Records(ctx context.Context, sessionID string, limit int) ([]transcript.Record, error)
}

// Sessions returns a Store for this database
func (db *DB) Sessions() Store {
	return &sessionStore{db: db}
}

type sessionStore struct {
	db *DB
}

// CreateSession inserts s, assigning an ID and start time when unset
func (st *sessionStore) CreateSession(ctx context.Context, s *Session) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	if s.StartedAt.IsZero() {
		s.StartedAt = time.Now()
	}
	_, err := st.db.ExecContext(ctx, `
		INSERT INTO sessions (id, driver, port, started_at) VALUES (?, ?, ?, ?)
	`, s.ID, s.Driver, s.Port, s.StartedAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}
	return nil
}

func (st *sessionStore) GetSession(ctx context.Context, id string) (*Session, error) {
	s := &Session{}
	var startedAt string
	err := st.db.QueryRowContext(ctx, `
		SELECT s.id, s.driver, s.port, s.started_at, COUNT(r.id)
		FROM sessions s LEFT JOIN records r ON r.session_id = s.id
		WHERE s.id = ?
		GROUP BY s.id
	`, id).Scan(&s.ID, &s.Driver, &s.Port, &startedAt, &s.Records)
	if err == sql.ErrNoRows {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, err
	}
	s.StartedAt, _ = time.Parse(time.RFC3339Nano, startedAt)
	return s, nil
}

// ListSessions returns the most recent sessions first. A limit of zero or
// less returns every session.
func (st *sessionStore) ListSessions(ctx context.Context, limit int) ([]*Session, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := st.db.QueryContext(ctx, `
		SELECT s.id, s.driver, s.port, s.started_at, COUNT(r.id)
		FROM sessions s LEFT JOIN records r ON r.session_id = s.id
		GROUP BY s.id
		ORDER BY s.started_at DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var sessions []*Session
	for rows.Next() {
		s := &Session{}
		var startedAt string
		if err := rows.Scan(&s.ID, &s.Driver, &s.Port, &startedAt, &s.Records); err != nil {
			return nil, err
		}
		s.StartedAt, _ = time.Parse(time.RFC3339Nano, startedAt)
		sessions = append(sessions, s)
	}
	return sessions, rows.Err()
}

// AppendRecords stores records as seq firstSeq, firstSeq+1, ... in one
// transaction.
func (st *sessionStore) AppendRecords(ctx context.Context, sessionID string, firstSeq int, records []transcript.Record) error {
	if len(records) == 0 {
		return nil
	}
	return st.db.Tx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO records (session_id, seq, direction, text, timestamp)
			VALUES (?, ?, ?, ?, ?)
		`)
		if err != nil {
			return err
		}
		defer func() { _ = stmt.Close() }()

		for i, r := range records {
			_, err := stmt.ExecContext(ctx, sessionID, firstSeq+i, r.Direction.String(), r.Text,
				r.Timestamp.UTC().Format(time.RFC3339Nano))
			if err != nil {
				return fmt.Errorf("failed to insert record %d: %w", firstSeq+i, err)
			}
		}
		return nil
	})
}

// Records returns a session's records in transcript order. A limit of
// zero or less returns every record; otherwise the last limit records.
func (st *sessionStore) Records(ctx context.Context, sessionID string, limit int) ([]transcript.Record, error) {
	query := `
		SELECT direction, text, timestamp FROM records
		WHERE session_id = ? ORDER BY seq
	`
	args := []any{sessionID}
	if limit > 0 {
		query = `
			SELECT direction, text, timestamp FROM (
				SELECT seq, direction, text, timestamp FROM records
				WHERE session_id = ? ORDER BY seq DESC LIMIT ?
			) ORDER BY seq
		`
		args = append(args, limit)
	}

	rows, err := st.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var records []transcript.Record
	for rows.Next() {
		var dir, text, ts string
		if err := rows.Scan(&dir, &text, &ts); err != nil {
			return nil, err
		}
		r := transcript.Record{
			Text:      text,
			Direction: transcript.ParseDirection(dir),
		}
		r.Timestamp, _ = time.Parse(time.RFC3339Nano, ts)
		records = append(records, r)
	}
	return records, rows.Err()
}
