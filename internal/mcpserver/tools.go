package mcpserver

import "github.com/mark3labs/mcp-go/mcp"

// registerTools registers all MCP tools with the server
func (s *Server) registerTools() {
	s.mcpServer.AddTool(
		mcp.NewTool("list_ports",
			mcp.WithDescription("List the serial ports available to the configured driver"),
		),
		s.handleListPorts,
	)

	s.mcpServer.AddTool(
		mcp.NewTool("get_state",
			mcp.WithDescription("Get the connection state of the serial session"),
		),
		s.handleGetState,
	)

	s.mcpServer.AddTool(
		mcp.NewTool("connect",
			mcp.WithDescription("Open a serial port at 115200 baud 8N1. If device permission is required, grant it and call connect again"),
			mcp.WithString("port",
				mcp.Required(),
				mcp.Description("Port name as returned by list_ports, e.g. /dev/ttyUSB0"),
			),
		),
		s.handleConnect,
	)

	s.mcpServer.AddTool(
		mcp.NewTool("disconnect",
			mcp.WithDescription("Close the serial port"),
		),
		s.handleDisconnect,
	)

	s.mcpServer.AddTool(
		mcp.NewTool("send",
			mcp.WithDescription("Send a command line to the device. CRLF is appended unless the command already ends in CR or LF"),
			mcp.WithString("command",
				mcp.Required(),
				mcp.Description("Command text to send"),
			),
			mcp.WithNumber("wait_ms",
				mcp.Description("Milliseconds to collect replies before returning (default 500, max 10000)"),
			),
		),
		s.handleSend,
	)

	s.mcpServer.AddTool(
		mcp.NewTool("get_transcript",
			mcp.WithDescription("Read transcript records in order"),
			mcp.WithNumber("since",
				mcp.Description("Index of the first record to return (default 0)"),
			),
			mcp.WithNumber("limit",
				mcp.Description("Return at most this many of the newest records"),
			),
		),
		s.handleGetTranscript,
	)
}
