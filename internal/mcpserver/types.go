package mcpserver

import (
	"github.com/allbin/serialterm/internal/session"
	"github.com/allbin/serialterm/internal/transcript"
	"github.com/allbin/serialterm/internal/transport"
)

type ListPortsOutput struct {
	Ports []transport.PortInfo `json:"ports"`
	Count int                  `json:"count"`
}

// ActionOutput reports the state after a tool call and the records it
// produced.
type ActionOutput struct {
	State   session.State       `json:"state"`
	Records []transcript.Record `json:"records"`
}

type TranscriptOutput struct {
	Records []transcript.Record `json:"records"`
	Next    int                 `json:"next"`
}
