package tools

import (
	"context"
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/salvadorthebrown/zen-mcp-server-fixed/internal/conversation"
)

// symbolSite is one location where the traced symbol is defined or used.
type symbolSite struct {
	File string
	Line int
	Kind string // "definition", "call", "reference"
	Text string
}

// TracerTool handles the tracer MCP tool.
// It statically traces a symbol through the module: where it is defined,
// who calls it, and (in dependencies mode) what its definitions call.
type TracerTool struct {
	conv *conversation.Store
}

// NewTracerTool creates a TracerTool. conv may be nil.
func NewTracerTool(conv *conversation.Store) *TracerTool {
	return &TracerTool{conv: conv}
}

// Definition returns the MCP tool definition for registration.
func (t *TracerTool) Definition() mcp.Tool {
	return mcp.NewTool("tracer",
		mcp.WithDescription(
			"Static code tracing for a function, method, or type. "+
				"precision mode maps the execution flow (definitions and every call site); "+
				"dependencies mode maps what calls the symbol and what the symbol calls. "+
				"Use to understand impact before modifying shared code.",
		),
		mcp.WithString("target",
			mcp.Required(),
			mcp.Description("Name of the function, method, or type to trace"),
		),
		mcp.WithString("working_directory",
			mcp.Required(),
			mcp.Description("Absolute path to the project root directory"),
		),
		mcp.WithString("trace_mode",
			mcp.Description("precision (execution flow) or dependencies (callers and callees)"),
			mcp.Enum("precision", "dependencies"),
		),
		mcp.WithString("continuation_id",
			mcp.Description(continuationParam),
		),
	)
}

// Handle processes the tracer tool call.
func (t *TracerTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	target := strings.TrimSpace(req.GetString("target", ""))
	workingDir := strings.TrimSpace(req.GetString("working_directory", ""))
	mode := req.GetString("trace_mode", "precision")
	continuationID := req.GetString("continuation_id", "")

	if target == "" {
		return mcp.NewToolResultError("'target' is required — name the symbol to trace"), nil
	}
	if workingDir == "" {
		return mcp.NewToolResultError("'working_directory' is required"), nil
	}
	if !dirExists(workingDir) {
		return mcp.NewToolResultError(fmt.Sprintf("Working directory does not exist: %s", workingDir)), nil
	}
	if mode != "precision" && mode != "dependencies" {
		return mcp.NewToolResultError("'trace_mode' must be precision or dependencies"), nil
	}

	definitions, calls, callees := traceSymbol(workingDir, target)

	var sb strings.Builder
	sb.WriteString(resumeContext(t.conv, continuationID))
	fmt.Fprintf(&sb, "TRACE REPORT FOR: %s (mode: %s)\n", target, mode)
	sb.WriteString(strings.Repeat("=", 80) + "\n\n")

	sb.WriteString("DEFINITIONS:\n")
	sb.WriteString(formatSites(definitions))
	sb.WriteString("\n")

	switch mode {
	case "precision":
		sb.WriteString("CALL SITES (execution flow entry points):\n")
		sb.WriteString(formatSites(calls))
		sb.WriteString("\n")
	case "dependencies":
		sb.WriteString("INCOMING (who calls this symbol):\n")
		sb.WriteString(formatSites(calls))
		sb.WriteString("\n")
		sb.WriteString("OUTGOING (what this symbol's definitions call):\n")
		sb.WriteString(bulletList(callees, "  "))
		sb.WriteString("\n\n")
	}

	sb.WriteString(strings.Repeat("=", 80) + "\n\n")
	sb.WriteString("Analyze this trace and provide:\n")
	if mode == "precision" {
		sb.WriteString("1. The execution flow from each entry point to the target\n")
		sb.WriteString("2. Side effects along the path (I/O, state mutation, goroutines)\n")
		sb.WriteString("3. Conditions under which the target is reached\n")
	} else {
		sb.WriteString("1. A dependency summary: fan-in vs fan-out for the symbol\n")
		sb.WriteString("2. Risk assessment for changing the symbol's signature or behavior\n")
		sb.WriteString("3. Suggestions for decoupling if the fan-in is high\n")
	}

	report := sb.String()
	threadID := recordExchange(t.conv, "tracer", continuationID,
		fmt.Sprintf("trace %s in %s (%s)", target, workingDir, mode), report)

	return mcp.NewToolResultText(report + continuationFooter(threadID)), nil
}

// traceSymbol walks the module and collects definitions of, calls to,
// and callees of the named symbol.
func traceSymbol(workingDir, target string) (definitions, calls []symbolSite, callees []string) {
	calleeSet := map[string]bool{}

	_ = filepath.WalkDir(workingDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil //nolint:nilerr // unreadable entries are skipped, not fatal
		}
		if d.IsDir() {
			if path != workingDir && skipDir(d.Name()) {
				return filepath.SkipDir
			}
			return nil
		}
		if !strings.HasSuffix(path, ".go") {
			return nil
		}

		fset := token.NewFileSet()
		file, parseErr := parser.ParseFile(fset, path, nil, 0)
		if parseErr != nil {
			return nil
		}
		rel := path
		if r, relErr := filepath.Rel(workingDir, path); relErr == nil {
			rel = filepath.ToSlash(r)
		}

		ast.Inspect(file, func(n ast.Node) bool {
			switch node := n.(type) {
			case *ast.FuncDecl:
				if node.Name.Name == target {
					definitions = append(definitions, symbolSite{
						File: rel,
						Line: fset.Position(node.Pos()).Line,
						Kind: "definition",
						Text: funcSignature(node),
					})
					for _, callee := range collectCallees(node) {
						calleeSet[callee] = true
					}
				}
			case *ast.TypeSpec:
				if node.Name.Name == target {
					definitions = append(definitions, symbolSite{
						File: rel,
						Line: fset.Position(node.Pos()).Line,
						Kind: "definition",
						Text: "type " + node.Name.Name,
					})
				}
			case *ast.CallExpr:
				if calleeName(node) == target {
					calls = append(calls, symbolSite{
						File: rel,
						Line: fset.Position(node.Pos()).Line,
						Kind: "call",
					})
				}
			}
			return true
		})
		return nil
	})

	callees = make([]string, 0, len(calleeSet))
	for c := range calleeSet {
		callees = append(callees, c)
	}
	sort.Strings(callees)
	return definitions, calls, callees
}

// calleeName extracts the called function's name from a call expression.
func calleeName(call *ast.CallExpr) string {
	switch fun := call.Fun.(type) {
	case *ast.Ident:
		return fun.Name
	case *ast.SelectorExpr:
		return fun.Sel.Name
	}
	return ""
}

// collectCallees lists the names called inside a function body.
func collectCallees(fn *ast.FuncDecl) []string {
	if fn.Body == nil {
		return nil
	}
	seen := map[string]bool{}
	var names []string
	ast.Inspect(fn.Body, func(n ast.Node) bool {
		call, ok := n.(*ast.CallExpr)
		if !ok {
			return true
		}
		if name := calleeName(call); name != "" && !seen[name] {
			seen[name] = true
			names = append(names, name)
		}
		return true
	})
	return names
}

// funcSignature renders a compact signature for a function declaration.
func funcSignature(fn *ast.FuncDecl) string {
	var sb strings.Builder
	sb.WriteString("func ")
	if fn.Recv != nil && len(fn.Recv.List) > 0 {
		sb.WriteString("(")
		sb.WriteString(typeString(fn.Recv.List[0].Type))
		sb.WriteString(") ")
	}
	sb.WriteString(fn.Name.Name)
	sb.WriteString("(")
	if fn.Type.Params != nil {
		parts := make([]string, 0, len(fn.Type.Params.List))
		for _, p := range fn.Type.Params.List {
			parts = append(parts, typeString(p.Type))
		}
		sb.WriteString(strings.Join(parts, ", "))
	}
	sb.WriteString(")")
	return sb.String()
}

// typeString renders a type expression without a printer dependency.
// Covers the forms that appear in signatures; falls back to "?".
func typeString(expr ast.Expr) string {
	switch t := expr.(type) {
	case *ast.Ident:
		return t.Name
	case *ast.StarExpr:
		return "*" + typeString(t.X)
	case *ast.SelectorExpr:
		return typeString(t.X) + "." + t.Sel.Name
	case *ast.ArrayType:
		return "[]" + typeString(t.Elt)
	case *ast.MapType:
		return "map[" + typeString(t.Key) + "]" + typeString(t.Value)
	case *ast.Ellipsis:
		return "..." + typeString(t.Elt)
	case *ast.FuncType:
		return "func(...)"
	case *ast.InterfaceType:
		return "interface{...}"
	case *ast.ChanType:
		return "chan " + typeString(t.Value)
	}
	return "?"
}

// formatSites renders symbol sites as a bullet list.
func formatSites(sites []symbolSite) string {
	if len(sites) == 0 {
		return "  (none)"
	}
	lines := make([]string, len(sites))
	for i, s := range sites {
		if s.Text != "" {
			lines[i] = fmt.Sprintf("  - %s:%d — %s", s.File, s.Line, s.Text)
		} else {
			lines[i] = fmt.Sprintf("  - %s:%d", s.File, s.Line)
		}
	}
	return strings.Join(lines, "\n")
}
