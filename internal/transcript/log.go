package transcript

import (
	"sync"
	"time"
)

// Reader is the read-only view of a Log handed to observers
type Reader interface {
	Records() []Record
	Since(index int) []Record
	Len() int
	Subscribe() <-chan struct{}
	Unsubscribe(ch <-chan struct{})
}

// Log is an ordered, append-only sequence of records. Every append and
// every Notify fires a unit event to all subscribers while the log lock is
// held, so an observer woken by an event always sees the mutation that
// caused it.
type Log struct {
	mu          sync.RWMutex
	records     []Record
	subscribers []chan struct{}
	closed      bool
	now         func() time.Time
}

// Ensure Log satisfies Reader at compile time
var _ Reader = (*Log)(nil)

// NewLog creates an empty log stamped by clock. A nil clock uses time.Now.
func NewLog(clock func() time.Time) *Log {
	if clock == nil {
		clock = time.Now
	}
	return &Log{
		records: make([]Record, 0, 64),
		now:     clock,
	}
}

// Append stamps and stores a new record, then notifies subscribers
func (l *Log) Append(dir Direction, text string) Record {
	l.mu.Lock()
	defer l.mu.Unlock()

	rec := Record{
		Text:      text,
		Direction: dir,
		Timestamp: l.now(),
	}
	l.records = append(l.records, rec)
	l.broadcast()
	return rec
}

// Notify signals subscribers without appending, used for state flips that
// have no record of their own.
func (l *Log) Notify() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.broadcast()
}

// broadcast must be called with l.mu held
func (l *Log) broadcast() {
	for _, ch := range l.subscribers {
		select {
		case ch <- struct{}{}:
		default:
			// A pending event already covers this change
		}
	}
}

// Records returns a copy of every record in insertion order
func (l *Log) Records() []Record {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]Record, len(l.records))
	copy(out, l.records)
	return out
}

// Since returns a copy of the records appended after the first index
// records. Out of range indexes yield an empty slice.
func (l *Log) Since(index int) []Record {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if index < 0 {
		index = 0
	}
	if index >= len(l.records) {
		return []Record{}
	}
	out := make([]Record, len(l.records)-index)
	copy(out, l.records[index:])
	return out
}

// Len returns the number of records
func (l *Log) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.records)
}

// Subscribe returns a channel that receives a unit event after every
// mutation. Events coalesce: a slow reader sees at least one event after
// the last change, not one per change.
func (l *Log) Subscribe() <-chan struct{} {
	ch := make(chan struct{}, 1)

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		close(ch)
		return ch
	}
	l.subscribers = append(l.subscribers, ch)
	return ch
}

// Unsubscribe removes and closes a channel returned by Subscribe
func (l *Log) Unsubscribe(ch <-chan struct{}) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for i, sub := range l.subscribers {
		if (<-chan struct{})(sub) == ch {
			l.subscribers = append(l.subscribers[:i], l.subscribers[i+1:]...)
			close(sub)
			return
		}
	}
}

// Close closes every subscriber channel. Records remain readable.
func (l *Log) Close() {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return
	}
	l.closed = true
	for _, ch := range l.subscribers {
		close(ch)
	}
	l.subscribers = nil
}
