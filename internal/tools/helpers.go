// Package tools implements the zen MCP tool handlers.
//
// Each tool is a scanner, not an analyzer: it gathers evidence (parse
// results, git status, test output, call sites) and returns a structured
// markdown report that the calling model analyzes. Tools never talk to a
// model themselves.
//
// Design principles:
// - SRP: each file = one tool
// - DIP: tools depend on the conversation store and config via injection
// - OCP: new tools are added without modifying existing ones
package tools

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
)

// maxReportOutput caps captured command output embedded in reports.
const maxReportOutput = 10_000

// intArg extracts an integer argument from a tool request.
// JSON numbers arrive as float64.
func intArg(req mcp.CallToolRequest, key string, defaultVal int) int {
	v, ok := req.GetArguments()[key].(float64)
	if !ok {
		return defaultVal
	}
	return int(v)
}

// boolArg extracts a boolean argument from a tool request.
func boolArg(req mcp.CallToolRequest, key string, defaultVal bool) bool {
	v, ok := req.GetArguments()[key].(bool)
	if !ok {
		return defaultVal
	}
	return v
}

// stringSliceArg extracts a string array argument from a tool request.
// JSON arrays arrive as []interface{}.
func stringSliceArg(req mcp.CallToolRequest, key string) []string {
	raw, ok := req.GetArguments()[key].([]interface{})
	if !ok {
		return nil
	}
	var out []string
	for _, item := range raw {
		if s, ok := item.(string); ok && strings.TrimSpace(s) != "" {
			out = append(out, s)
		}
	}
	return out
}

// findModuleRoot walks up from dir looking for a go.mod. Returns dir
// itself when none is found — the caller decides what to do.
func findModuleRoot(dir string) string {
	current := dir
	for {
		if _, err := os.Stat(filepath.Join(current, "go.mod")); err == nil {
			return current
		}
		parent := filepath.Dir(current)
		if parent == current {
			return dir
		}
		current = parent
	}
}

// modulePath reads the module directive from go.mod at root.
// Returns "" when go.mod is missing or malformed.
func modulePath(root string) string {
	data, err := os.ReadFile(filepath.Join(root, "go.mod"))
	if err != nil {
		return ""
	}
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "module ") {
			return strings.TrimSpace(strings.TrimPrefix(line, "module "))
		}
	}
	return ""
}

// requiredModules returns the module paths named in go.mod's require
// directives (both single-line and block form).
func requiredModules(root string) []string {
	data, err := os.ReadFile(filepath.Join(root, "go.mod"))
	if err != nil {
		return nil
	}

	var mods []string
	inBlock := false
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		switch {
		case line == "require (":
			inBlock = true
		case inBlock && line == ")":
			inBlock = false
		case inBlock:
			fields := strings.Fields(line)
			if len(fields) >= 2 {
				mods = append(mods, fields[0])
			}
		case strings.HasPrefix(line, "require "):
			fields := strings.Fields(strings.TrimPrefix(line, "require "))
			if len(fields) >= 2 {
				mods = append(mods, fields[0])
			}
		}
	}
	return mods
}

// skipDir reports whether a directory should be excluded from project
// scans: VCS metadata, vendored code, and underscore/dot-prefixed trees.
func skipDir(name string) bool {
	if name == "vendor" || name == "testdata" || name == "node_modules" {
		return true
	}
	return strings.HasPrefix(name, ".") || strings.HasPrefix(name, "_")
}

// truncateOutput caps s at maxReportOutput bytes with a marker, cutting
// at a line boundary when one is close enough.
func truncateOutput(s string) string {
	if len(s) <= maxReportOutput {
		return s
	}
	truncated := s[:maxReportOutput]
	if lastNewline := strings.LastIndex(truncated, "\n"); lastNewline > maxReportOutput/2 {
		truncated = truncated[:lastNewline]
	}
	return truncated + "\n\n[Output truncated - too long]"
}

// bulletList renders items as a markdown bullet list, or a placeholder
// when empty.
func bulletList(items []string, indent string) string {
	if len(items) == 0 {
		return indent + "(none)"
	}
	lines := make([]string, len(items))
	for i, item := range items {
		lines[i] = fmt.Sprintf("%s- %s", indent, item)
	}
	return strings.Join(lines, "\n")
}
