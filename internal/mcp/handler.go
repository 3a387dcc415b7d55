// Package mcp exposes analysis, tiers and history as MCP tools over the
// streamable HTTP transport.
package mcp

import (
	"net/http"

	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/bobmcallan/chartscope-portal/internal/common"
	"github.com/bobmcallan/chartscope-portal/internal/config"
	"github.com/bobmcallan/chartscope-portal/internal/history"
	"github.com/bobmcallan/chartscope-portal/internal/settings"
	"github.com/bobmcallan/chartscope-portal/internal/submission"
	"github.com/bobmcallan/chartscope-portal/internal/tiers"
)

// Deps are the services the tools call into.
type Deps struct {
	// Controller runs analyze_ticker. MCP clients share it, so one analysis
	// runs at a time.
	Controller *submission.Controller
	Catalog    *tiers.Catalog
	History    *history.Store
	Settings   *settings.Store
}

// Handler is the HTTP handler for the MCP endpoint.
// It wraps mcp-go's StreamableHTTPServer and delegates to it.
type Handler struct {
	server     *mcpserver.MCPServer
	streamable *mcpserver.StreamableHTTPServer
	logger     *common.Logger
}

// NewHandler registers the tools and creates the handler.
func NewHandler(deps Deps, logger *common.Logger) *Handler {
	if logger == nil {
		logger = common.NewSilentLogger()
	}
	mcpSrv := mcpserver.NewMCPServer(
		"chartscope-portal",
		config.CurrentBuild().Version,
		mcpserver.WithToolCapabilities(true),
	)

	t := &toolset{deps: deps, logger: logger}
	mcpSrv.AddTool(AnalyzeTickerTool(), t.analyzeTicker)
	mcpSrv.AddTool(ListTiersTool(), t.listTiers)
	mcpSrv.AddTool(ListHistoryTool(), t.listHistory)
	mcpSrv.AddTool(GetAnalysisTool(), t.getAnalysis)
	mcpSrv.AddTool(VersionTool(), VersionToolHandler())

	streamable := mcpserver.NewStreamableHTTPServer(mcpSrv,
		mcpserver.WithStateLess(true),
	)

	logger.Info().Int("tools", 5).Msg("MCP handler initialized")

	return &Handler{
		server:     mcpSrv,
		streamable: streamable,
		logger:     logger,
	}
}

// Server returns the underlying MCP server.
func (h *Handler) Server() *mcpserver.MCPServer {
	return h.server
}

// ServeHTTP delegates to the mcp-go StreamableHTTPServer.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.streamable.ServeHTTP(w, r)
}
