package skills

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
)

// Prompt returns the MCP prompt definition for a skill. Skills are
// exposed as prompts so users can trigger a workflow explicitly
// (like a slash command) instead of waiting for the model to pick it.
func Prompt(s Skill) mcp.Prompt {
	return mcp.NewPrompt("zen-"+s.Name,
		mcp.WithPromptDescription(s.Description),
	)
}

// PromptHandler returns the handler that serves a skill's instructions.
func PromptHandler(s Skill) func(ctx context.Context, req mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	return func(ctx context.Context, req mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
		return &mcp.GetPromptResult{
			Description: s.Description,
			Messages: []mcp.PromptMessage{
				{
					Role: mcp.RoleUser,
					Content: mcp.NewTextContent(fmt.Sprintf(
						"Follow the %s workflow:\n\n%s", s.Name, s.Body,
					)),
				},
			},
		}, nil
	}
}

// CatalogResource returns the MCP resource definition for the skill list.
func CatalogResource() mcp.Resource {
	return mcp.NewResource(
		"zen://skills",
		"zen Skills Catalog",
		mcp.WithResourceDescription("All available zen workflow skills with their triggers and tools"),
		mcp.WithMIMEType("text/markdown"),
	)
}

// CatalogHandler serves the skill catalog resource.
func CatalogHandler(list []Skill) func(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return func(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      req.Params.URI,
				MIMEType: "text/markdown",
				Text:     Catalog(list),
			},
		}, nil
	}
}
