package tools

import (
	"context"
	"fmt"
	"runtime"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
)

// VersionTool handles the version MCP tool.
type VersionTool struct {
	version   string
	toolNames []string
}

// NewVersionTool creates a VersionTool reporting the given server
// version and registered tool names.
func NewVersionTool(version string, toolNames []string) *VersionTool {
	return &VersionTool{version: version, toolNames: toolNames}
}

// Definition returns the MCP tool definition for registration.
func (t *VersionTool) Definition() mcp.Tool {
	return mcp.NewTool("version",
		mcp.WithDescription(
			"Reports the zen server version, runtime, and registered tools.",
		),
	)
}

// Handle processes the version tool call.
func (t *VersionTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var sb strings.Builder
	fmt.Fprintf(&sb, "zen MCP server v%s\n", t.version)
	fmt.Fprintf(&sb, "Runtime: %s %s/%s\n", runtime.Version(), runtime.GOOS, runtime.GOARCH)
	fmt.Fprintf(&sb, "Registered tools (%d): %s\n", len(t.toolNames), strings.Join(t.toolNames, ", "))
	return mcp.NewToolResultText(sb.String()), nil
}
