package transcript

import (
	"strings"
	"time"
	"unicode/utf8"
)

// Direction tags a record as sent, received, or produced by the session itself
type Direction int

const (
	Inbound Direction = iota
	Outbound
	System
)

func (d Direction) String() string {
	switch d {
	case Outbound:
		return "TX"
	case System:
		return "SYS"
	default:
		return "RX"
	}
}

// ParseDirection is the inverse of String, used when records are read back
// from storage. Unknown values decode as Inbound.
func ParseDirection(s string) Direction {
	switch s {
	case "TX":
		return Outbound
	case "SYS":
		return System
	default:
		return Inbound
	}
}

func (d Direction) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *Direction) UnmarshalText(text []byte) error {
	*d = ParseDirection(string(text))
	return nil
}

// Record is a single immutable transcript entry
type Record struct {
	Text      string    `json:"text"`
	Direction Direction `json:"direction"`
	Timestamp time.Time `json:"timestamp"`
}

// Sent reports whether the record was produced by an outbound command.
// System records belong to the inbound side of the transcript.
func (r Record) Sent() bool {
	return r.Direction == Outbound
}

// Decode converts a received chunk to text. Invalid UTF-8 sequences are
// replaced rather than dropped so byte counts stay visible to the reader.
func Decode(chunk []byte) string {
	if utf8.Valid(chunk) {
		return string(chunk)
	}
	return strings.ToValidUTF8(string(chunk), "�")
}
