// Package types holds the JSON shapes of the HTTP observer API.
package types

import (
	"time"

	"github.com/allbin/serialterm/internal/transcript"
	"github.com/allbin/serialterm/internal/transport"
)

// ErrorResponse is returned for every failed request
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

type HealthResponse struct {
	Status     string    `json:"status"`
	Connection string    `json:"connection"`
	Timestamp  time.Time `json:"timestamp"`
}

type PortsResponse struct {
	Ports []transport.PortInfo `json:"ports"`
}

// StateResponse mirrors session.State
type StateResponse struct {
	Connected bool   `json:"connected"`
	Port      string `json:"port,omitempty"`
	Driver    string `json:"driver"`
	Records   int    `json:"records"`
}

type ConnectRequest struct {
	Port string `json:"port" binding:"required"`
}

type SendRequest struct {
	Command string `json:"command"`
}

// ActionResponse reports the state after an action and the records it
// produced.
type ActionResponse struct {
	State   StateResponse       `json:"state"`
	Records []transcript.Record `json:"records"`
}

type TranscriptResponse struct {
	Records []transcript.Record `json:"records"`
	Next    int                 `json:"next"`
}
