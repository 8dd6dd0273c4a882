// Package handlers implements the HTTP observer endpoints.
package handlers

import (
	"net/http"
	"strconv"

	"github.com/allbin/serialterm/internal/api/types"
	"github.com/allbin/serialterm/internal/session"
	"github.com/allbin/serialterm/internal/transcript"
	"github.com/allbin/serialterm/internal/transport"
	"github.com/gin-gonic/gin"
)

// Terminal is the session surface the API drives
type Terminal interface {
	DescribePorts() []transport.PortInfo
	State() session.State
	Connect(port string)
	Disconnect()
	Send(command string)
	Transcript() transcript.Reader
}

// SessionHandler handles the session action endpoints
type SessionHandler struct {
	terminal Terminal
}

// NewSessionHandler creates a new session handler
func NewSessionHandler(terminal Terminal) *SessionHandler {
	return &SessionHandler{terminal: terminal}
}

func stateResponse(st session.State) types.StateResponse {
	return types.StateResponse{
		Connected: st.Connected,
		Port:      st.Port,
		Driver:    st.Driver,
		Records:   st.Records,
	}
}

// act runs fn and reports the records it appended
func (h *SessionHandler) act(c *gin.Context, fn func()) {
	before := h.terminal.Transcript().Len()
	fn()
	c.JSON(http.StatusOK, types.ActionResponse{
		State:   stateResponse(h.terminal.State()),
		Records: h.terminal.Transcript().Since(before),
	})
}

// ListPorts handles GET /ports
func (h *SessionHandler) ListPorts(c *gin.Context) {
	c.JSON(http.StatusOK, types.PortsResponse{Ports: h.terminal.DescribePorts()})
}

// GetState handles GET /state
func (h *SessionHandler) GetState(c *gin.Context) {
	c.JSON(http.StatusOK, stateResponse(h.terminal.State()))
}

// Connect handles POST /connect. Failures are reported in the returned
// records, not as HTTP errors.
func (h *SessionHandler) Connect(c *gin.Context) {
	var req types.ConnectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, types.ErrorResponse{
			Error:   "invalid_request",
			Message: "Request body must contain a port",
		})
		return
	}
	h.act(c, func() { h.terminal.Connect(req.Port) })
}

// Disconnect handles POST /disconnect
func (h *SessionHandler) Disconnect(c *gin.Context) {
	h.act(c, h.terminal.Disconnect)
}

// Send handles POST /send
func (h *SessionHandler) Send(c *gin.Context) {
	var req types.SendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, types.ErrorResponse{
			Error:   "invalid_request",
			Message: err.Error(),
		})
		return
	}
	if !h.terminal.State().Connected {
		c.JSON(http.StatusConflict, types.ErrorResponse{
			Error:   "not_connected",
			Message: "Connect to a port before sending",
		})
		return
	}
	h.act(c, func() { h.terminal.Send(req.Command) })
}

// parseSince reads the since query parameter, defaulting to 0
func parseSince(c *gin.Context) (int, bool) {
	raw := c.Query("since")
	if raw == "" {
		return 0, true
	}
	since, err := strconv.Atoi(raw)
	if err != nil || since < 0 {
		c.JSON(http.StatusBadRequest, types.ErrorResponse{
			Error:   "invalid_since",
			Message: "since must be a non-negative integer",
		})
		return 0, false
	}
	return since, true
}

// Transcript handles GET /transcript?since=N
func (h *SessionHandler) Transcript(c *gin.Context) {
	since, ok := parseSince(c)
	if !ok {
		return
	}

	records := h.terminal.Transcript().Since(since)
	next := since + len(records)
	if total := h.terminal.Transcript().Len(); next > total {
		next = total
	}
	c.JSON(http.StatusOK, types.TranscriptResponse{Records: records, Next: next})
}
