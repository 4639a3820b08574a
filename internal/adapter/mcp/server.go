package mcp

import (
	"log/slog"

	"github.com/guillermoBallester/causeway/internal/core/port"
	"github.com/guillermoBallester/causeway/internal/core/service"
	"github.com/mark3labs/mcp-go/server"
	"go.opentelemetry.io/otel/trace"
)

// Services bundles the core services the MCP tools expose.
type Services struct {
	Explorer *service.ExplorerService
	Analysis *service.AnalysisService
	Query    *service.QueryService
	Memory   *service.MemoryService
}

// NewServer creates an MCPServer with tools and logging hooks.
func NewServer(version string, svcs Services, logger *slog.Logger, tracer trace.Tracer, inst port.Instrumentation) *server.MCPServer {
	s := server.NewMCPServer(
		serverName,
		version,
		server.WithToolCapabilities(true),
		server.WithHooks(ToolCallHooks(logger, tracer, inst)),
	)

	RegisterTools(s, svcs, logger)

	return s
}
