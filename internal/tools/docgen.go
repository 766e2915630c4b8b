package tools

import (
	"context"
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/salvadorthebrown/zen-mcp-server-fixed/internal/conversation"
)

// undocumentedSymbol is an exported identifier lacking a doc comment.
type undocumentedSymbol struct {
	File string
	Line int
	Kind string
	Name string
}

// DocGenTool handles the docgen MCP tool.
// It measures godoc coverage for a file or directory tree and emits a
// documentation brief listing every exported identifier that has no
// doc comment.
type DocGenTool struct {
	conv *conversation.Store
}

// NewDocGenTool creates a DocGenTool. conv may be nil.
func NewDocGenTool(conv *conversation.Store) *DocGenTool {
	return &DocGenTool{conv: conv}
}

// Definition returns the MCP tool definition for registration.
func (t *DocGenTool) Definition() mcp.Tool {
	return mcp.NewTool("docgen",
		mcp.WithDescription(
			"Measures godoc coverage and prepares documentation generation. "+
				"Lists exported functions, types, and package-level values lacking doc "+
				"comments, per file, so the missing documentation can be written in one pass.",
		),
		mcp.WithString("target_file",
			mcp.Description("Absolute path to a single Go file to check"),
		),
		mcp.WithString("working_directory",
			mcp.Description("Absolute path to a directory tree to check (alternative to target_file)"),
		),
		mcp.WithString("continuation_id",
			mcp.Description(continuationParam),
		),
	)
}

// Handle processes the docgen tool call.
func (t *DocGenTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	targetFile := strings.TrimSpace(req.GetString("target_file", ""))
	workingDir := strings.TrimSpace(req.GetString("working_directory", ""))
	continuationID := req.GetString("continuation_id", "")

	if targetFile == "" && workingDir == "" {
		return mcp.NewToolResultError("Provide 'target_file' or 'working_directory'"), nil
	}

	var files []string
	root := workingDir
	switch {
	case targetFile != "":
		if !fileExists(targetFile) {
			return mcp.NewToolResultError(fmt.Sprintf("Target file does not exist: %s", targetFile)), nil
		}
		if filepath.Ext(targetFile) != ".go" {
			return mcp.NewToolResultError(fmt.Sprintf("Target file must be a Go file (.go): %s", targetFile)), nil
		}
		files = []string{targetFile}
		root = filepath.Dir(targetFile)
	default:
		if !dirExists(workingDir) {
			return mcp.NewToolResultError(fmt.Sprintf("Working directory does not exist: %s", workingDir)), nil
		}
		files = goSourceFiles(workingDir)
		if len(files) == 0 {
			return mcp.NewToolResultText("No Go source files found under " + workingDir), nil
		}
	}

	total, documented := 0, 0
	var missing []undocumentedSymbol
	for _, path := range files {
		fileTotal, fileDocumented, fileMissing := docCoverage(path, root)
		total += fileTotal
		documented += fileDocumented
		missing = append(missing, fileMissing...)
	}

	var sb strings.Builder
	sb.WriteString(resumeContext(t.conv, continuationID))
	sb.WriteString("DOCUMENTATION COVERAGE REPORT\n")
	sb.WriteString(strings.Repeat("=", 80) + "\n\n")
	fmt.Fprintf(&sb, "Scope: %d file(s)\n", len(files))
	if total > 0 {
		fmt.Fprintf(&sb, "Exported identifiers: %d total, %d documented (%.0f%%)\n\n",
			total, documented, 100*float64(documented)/float64(total))
	} else {
		sb.WriteString("Exported identifiers: none found\n\n")
	}

	sb.WriteString("MISSING DOC COMMENTS:\n")
	if len(missing) == 0 {
		sb.WriteString("  (none — all exported identifiers are documented)\n")
	}
	for _, m := range missing {
		fmt.Fprintf(&sb, "  - %s:%d — %s %s\n", m.File, m.Line, m.Kind, m.Name)
	}

	sb.WriteString("\n" + strings.Repeat("=", 80) + "\n\n")
	sb.WriteString("Write the missing documentation:\n")
	sb.WriteString("1. Each doc comment starts with the identifier name and states what it does\n")
	sb.WriteString("2. Document behavior and constraints, not implementation\n")
	sb.WriteString("3. For packages lacking a package comment, add one to the most central file\n")
	sb.WriteString("4. Keep the existing voice of the codebase — match its comment density\n")

	report := sb.String()
	scope := targetFile
	if scope == "" {
		scope = workingDir
	}
	threadID := recordExchange(t.conv, "docgen", continuationID,
		fmt.Sprintf("docgen %s", scope), report)

	return mcp.NewToolResultText(report + continuationFooter(threadID)), nil
}

// goSourceFiles lists non-test Go files under root, skipping vendored
// and hidden trees.
func goSourceFiles(root string) []string {
	var files []string
	_ = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil //nolint:nilerr // unreadable entries are skipped, not fatal
		}
		if d.IsDir() {
			if path != root && skipDir(d.Name()) {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.HasSuffix(path, ".go") && !strings.HasSuffix(path, "_test.go") {
			files = append(files, path)
		}
		return nil
	})
	return files
}

// docCoverage counts exported identifiers and collects the undocumented
// ones for a single file.
func docCoverage(path, root string) (total, documented int, missing []undocumentedSymbol) {
	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, path, nil, parser.ParseComments)
	if err != nil {
		return 0, 0, nil
	}

	rel := path
	if r, relErr := filepath.Rel(root, path); relErr == nil && !strings.HasPrefix(r, "..") {
		rel = filepath.ToSlash(r)
	}

	record := func(name string, exported bool, hasDoc bool, kind string, pos token.Pos) {
		if !exported {
			return
		}
		total++
		if hasDoc {
			documented++
			return
		}
		missing = append(missing, undocumentedSymbol{
			File: rel,
			Line: fset.Position(pos).Line,
			Kind: kind,
			Name: name,
		})
	}

	for _, decl := range file.Decls {
		switch d := decl.(type) {
		case *ast.FuncDecl:
			kind := "func"
			if d.Recv != nil {
				kind = "method"
			}
			record(d.Name.Name, d.Name.IsExported(), d.Doc != nil, kind, d.Pos())
		case *ast.GenDecl:
			groupDoc := d.Doc != nil
			for _, spec := range d.Specs {
				switch s := spec.(type) {
				case *ast.TypeSpec:
					record(s.Name.Name, s.Name.IsExported(), groupDoc || s.Doc != nil, "type", s.Pos())
				case *ast.ValueSpec:
					for _, name := range s.Names {
						kind := "var"
						if d.Tok == token.CONST {
							kind = "const"
						}
						record(name.Name, name.IsExported(), groupDoc || s.Doc != nil, kind, name.Pos())
					}
				}
			}
		}
	}
	return total, documented, missing
}
