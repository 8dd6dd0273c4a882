package handlers

import (
	"encoding/json"
	"io"
	"time"

	"github.com/gin-gonic/gin"
)

// EventsHandler streams transcript changes as Server-Sent Events
type EventsHandler struct {
	terminal  Terminal
	heartbeat time.Duration
}

// NewEventsHandler creates a new events handler
func NewEventsHandler(terminal Terminal) *EventsHandler {
	return &EventsHandler{terminal: terminal, heartbeat: 30 * time.Second}
}

// Events handles GET /events?since=N. Each "transcript" event carries the
// records appended since the previous one and the session state.
func (h *EventsHandler) Events(c *gin.Context) {
	next, ok := parseSince(c)
	if !ok {
		return
	}
	if total := h.terminal.Transcript().Len(); c.Query("since") == "" || next > total {
		next = total
	}

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	changes := h.terminal.Transcript().Subscribe()
	defer h.terminal.Transcript().Unsubscribe(changes)

	sendSSEEvent(c.Writer, "connected", map[string]any{
		"timestamp": time.Now(),
		"state":     stateResponse(h.terminal.State()),
	})
	c.Writer.Flush()

	publish := func() {
		records := h.terminal.Transcript().Since(next)
		next += len(records)
		sendSSEEvent(c.Writer, "transcript", map[string]any{
			"records": records,
			"next":    next,
			"state":   stateResponse(h.terminal.State()),
		})
		c.Writer.Flush()
	}

	// Catch up on anything recorded before the subscription
	if h.terminal.Transcript().Len() > next {
		publish()
	}

	clientGone := c.Request.Context().Done()
	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-clientGone:
			return
		case _, ok := <-changes:
			if !ok {
				return
			}
			publish()
		case <-ticker.C:
			sendSSEEvent(c.Writer, "heartbeat", map[string]any{
				"timestamp": time.Now(),
			})
			c.Writer.Flush()
		}
	}
}

// sendSSEEvent writes an SSE event to the response
func sendSSEEvent(w io.Writer, eventType string, data any) {
	jsonData, _ := json.Marshal(data)
	io.WriteString(w, "event: "+eventType+"\n")
	io.WriteString(w, "data: "+string(jsonData)+"\n\n")
}
