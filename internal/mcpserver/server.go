// Package mcpserver exposes a session as Model Context Protocol tools so an
// agent can drive the serial terminal over stdio.
package mcpserver

import (
	"github.com/allbin/serialterm/internal/session"
	"github.com/allbin/serialterm/internal/transcript"
	"github.com/allbin/serialterm/internal/transport"
	"github.com/mark3labs/mcp-go/server"
)

// Terminal is the session surface the tools drive
type Terminal interface {
	DescribePorts() []transport.PortInfo
	State() session.State
	Connect(port string)
	Disconnect()
	Send(command string)
	Transcript() transcript.Reader
}

// Server wraps the MCP server around a session
type Server struct {
	mcpServer *server.MCPServer
	terminal  Terminal
}

// NewServer creates an MCP server for terminal
func NewServer(terminal Terminal, version string) *Server {
	s := &Server{terminal: terminal}

	s.mcpServer = server.NewMCPServer(
		"serialterm",
		version,
		server.WithToolCapabilities(true),
	)

	s.registerTools()
	return s
}

// ServeStdio starts the MCP server using stdio transport
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}
