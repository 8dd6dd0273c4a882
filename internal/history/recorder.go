package history

import (
	"context"
	"fmt"

	"github.com/allbin/serialterm/internal/transcript"
	"github.com/rs/zerolog/log"
)

// Recorder copies a live transcript into the history database. It only
// reads the transcript.
type Recorder struct {
	store   Store
	source  transcript.Reader
	session *Session
	next    int
}

// NewRecorder creates the history session row for source and returns a
// recorder that persists its records.
func NewRecorder(ctx context.Context, db *DB, source transcript.Reader, driver, port string) (*Recorder, error) {
	store := db.Sessions()
	s := &Session{Driver: driver, Port: port}
	if err := store.CreateSession(ctx, s); err != nil {
		return nil, err
	}
	return &Recorder{store: store, source: source, session: s}, nil
}

// SessionID returns the ID of the history session being written
func (r *Recorder) SessionID() string {
	return r.session.ID
}

// Run persists new records after every change until ctx is done or the
// transcript is closed, then flushes whatever remains.
func (r *Recorder) Run(ctx context.Context) error {
	ch := r.source.Subscribe()
	defer r.source.Unsubscribe(ch)

	if err := r.flush(ctx); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return r.flush(context.WithoutCancel(ctx))
		case _, ok := <-ch:
			if err := r.flush(ctx); err != nil {
				log.Error().Err(err).Str("session", r.session.ID).Msg("Failed to persist transcript")
			}
			if !ok {
				return nil
			}
		}
	}
}

func (r *Recorder) flush(ctx context.Context) error {
	records := r.source.Since(r.next)
	if len(records) == 0 {
		return nil
	}
	if err := r.store.AppendRecords(ctx, r.session.ID, r.next, records); err != nil {
		return fmt.Errorf("failed to persist records: %w", err)
	}
	r.next += len(records)
	return nil
}
