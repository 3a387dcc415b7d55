package mcp

import (
	"context"
	"encoding/json"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/bobmcallan/chartscope-portal/internal/config"
)

// versionInfo holds version fields for one component.
type versionInfo struct {
	Version string `json:"version"`
	Build   string `json:"build"`
	Commit  string `json:"commit"`
}

// VersionTool returns the mcp.Tool definition for get_version.
func VersionTool() mcp.Tool {
	return mcp.NewTool("get_version",
		mcp.WithDescription("Get the chartscope portal version. Use this to verify connectivity."),
	)
}

// VersionToolHandler returns the portal version info.
func VersionToolHandler() server.ToolHandlerFunc {
	return func(ctx context.Context, r mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		b := config.CurrentBuild()
		out, err := json.Marshal(map[string]versionInfo{
			"chartscope_portal": {
				Version: b.Version,
				Build:   b.Build,
				Commit:  b.ShortCommit(),
			},
		})
		if err != nil {
			return errorResult("failed to marshal version info"), nil
		}
		return &mcp.CallToolResult{
			Content: []mcp.Content{mcp.NewTextContent(string(out))},
		}, nil
	}
}
