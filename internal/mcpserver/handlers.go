package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
)

const (
	defaultSendWait = 500 * time.Millisecond
	maxSendWait     = 10 * time.Second
)

func (s *Server) handleListPorts(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ports := s.terminal.DescribePorts()
	return mcp.NewToolResultText(formatJSON(ListPortsOutput{Ports: ports, Count: len(ports)})), nil
}

func (s *Server) handleGetState(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(formatJSON(s.terminal.State())), nil
}

func (s *Server) action(fn func()) *mcp.CallToolResult {
	before := s.terminal.Transcript().Len()
	fn()
	out := ActionOutput{
		State:   s.terminal.State(),
		Records: s.terminal.Transcript().Since(before),
	}
	return mcp.NewToolResultText(formatJSON(out))
}

func (s *Server) handleConnect(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	port, err := requiredString(request, "port")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return s.action(func() { s.terminal.Connect(port) }), nil
}

func (s *Server) handleDisconnect(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return s.action(s.terminal.Disconnect), nil
}

func (s *Server) handleSend(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	command, ok := request.GetArguments()["command"].(string)
	if !ok {
		return mcp.NewToolResultError(`required parameter "command" is missing`), nil
	}
	if !s.terminal.State().Connected {
		return mcp.NewToolResultError("not connected: call connect first"), nil
	}

	wait := defaultSendWait
	if ms, ok := optionalNumber(request, "wait_ms"); ok {
		wait = time.Duration(ms) * time.Millisecond
	}
	if wait < 0 {
		wait = 0
	}
	if wait > maxSendWait {
		wait = maxSendWait
	}

	before := s.terminal.Transcript().Len()
	s.terminal.Send(command)

	// Collect replies for the wait window
	if wait > 0 {
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
		case <-timer.C:
		}
		timer.Stop()
	}

	out := ActionOutput{
		State:   s.terminal.State(),
		Records: s.terminal.Transcript().Since(before),
	}
	return mcp.NewToolResultText(formatJSON(out)), nil
}

func (s *Server) handleGetTranscript(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	since := 0
	if n, ok := optionalNumber(request, "since"); ok {
		if n < 0 {
			return mcp.NewToolResultError("since must not be negative"), nil
		}
		since = int(n)
	}

	records := s.terminal.Transcript().Since(since)
	next := since + len(records)
	if total := s.terminal.Transcript().Len(); next > total {
		next = total
	}

	if limit, ok := optionalNumber(request, "limit"); ok && limit > 0 && int(limit) < len(records) {
		records = records[len(records)-int(limit):]
	}

	return mcp.NewToolResultText(formatJSON(TranscriptOutput{Records: records, Next: next})), nil
}

func requiredString(request mcp.CallToolRequest, key string) (string, error) {
	args := request.GetArguments()
	v, ok := args[key]
	if !ok || v == nil {
		return "", fmt.Errorf("required parameter %q is missing", key)
	}
	s, ok := v.(string)
	if !ok || s == "" {
		return "", fmt.Errorf("parameter %q must be a non-empty string", key)
	}
	return s, nil
}

// optionalNumber reads a JSON number argument
func optionalNumber(request mcp.CallToolRequest, key string) (float64, bool) {
	switch v := request.GetArguments()[key].(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	default:
		return 0, false
	}
}

func formatJSON(v any) string {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Sprintf(`{"error":"failed to marshal response: %s"}`, err)
	}
	return string(b)
}
