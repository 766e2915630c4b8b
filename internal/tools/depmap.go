package tools

import (
	"context"
	"fmt"
	"go/parser"
	"go/token"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/salvadorthebrown/zen-mcp-server-fixed/internal/conversation"
	"github.com/salvadorthebrown/zen-mcp-server-fixed/internal/zlog"
)

// DepMapTool handles the depmap MCP tool.
// It maps import relationships for a Go file: what the file's package
// imports (outgoing) and which files in the module import it (incoming).
type DepMapTool struct {
	conv *conversation.Store
}

// NewDepMapTool creates a DepMapTool. conv may be nil.
func NewDepMapTool(conv *conversation.Store) *DepMapTool {
	return &DepMapTool{conv: conv}
}

// Definition returns the MCP tool definition for registration.
func (t *DepMapTool) Definition() mcp.Tool {
	return mcp.NewTool("depmap",
		mcp.WithDescription(
			"Maps import dependencies for Go files. "+
				"Shows what a file imports (outgoing) and what imports it (incoming). "+
				"Helps identify potential breakage when modifying code.",
		),
		mcp.WithString("target_file",
			mcp.Required(),
			mcp.Description("Absolute path to the file to analyze"),
		),
		mcp.WithString("working_directory",
			mcp.Required(),
			mcp.Description("Absolute path to the project root directory"),
		),
		mcp.WithNumber("depth",
			mcp.Description("Dependency depth (1=direct, 2=includes deps of deps within the module)"),
		),
		mcp.WithString("continuation_id",
			mcp.Description(continuationParam),
		),
	)
}

// Handle processes the depmap tool call.
func (t *DepMapTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	targetFile := strings.TrimSpace(req.GetString("target_file", ""))
	workingDir := strings.TrimSpace(req.GetString("working_directory", ""))
	depth := intArg(req, "depth", 1)
	continuationID := req.GetString("continuation_id", "")

	if targetFile == "" {
		return mcp.NewToolResultError("'target_file' is required"), nil
	}
	if workingDir == "" {
		return mcp.NewToolResultError("'working_directory' is required"), nil
	}
	if !fileExists(targetFile) {
		return mcp.NewToolResultError(fmt.Sprintf("Target file does not exist: %s", targetFile)), nil
	}
	if !dirExists(workingDir) {
		return mcp.NewToolResultError(fmt.Sprintf("Working directory does not exist: %s", workingDir)), nil
	}

	relPath := targetFile
	if rel, err := filepath.Rel(workingDir, targetFile); err == nil && !strings.HasPrefix(rel, "..") {
		relPath = rel
	}

	outgoing := fileImports(targetFile)

	module := modulePath(workingDir)
	targetPkg := packageImportPath(module, workingDir, targetFile)
	incoming := findImporters(workingDir, targetPkg, targetFile)

	var transitive map[string][]string
	if depth >= 2 && module != "" {
		transitive = expandModuleImports(workingDir, module, outgoing)
	}

	var sb strings.Builder
	sb.WriteString(resumeContext(t.conv, continuationID))
	fmt.Fprintf(&sb, "DEPENDENCY MAP FOR: %s\n", filepath.ToSlash(relPath))
	sb.WriteString(strings.Repeat("=", 80) + "\n\n")

	sb.WriteString("OUTGOING DEPENDENCIES (What this file imports):\n")
	sb.WriteString(bulletList(outgoing, "  "))
	sb.WriteString("\n\n")

	if len(transitive) > 0 {
		sb.WriteString("TRANSITIVE DEPENDENCIES (Depth 2, module-internal only):\n")
		keys := make([]string, 0, len(transitive))
		for k := range transitive {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, pkg := range keys {
			fmt.Fprintf(&sb, "  %s:\n", pkg)
			sb.WriteString(bulletList(transitive[pkg], "    "))
			sb.WriteString("\n")
		}
		sb.WriteString("\n")
	}

	fmt.Fprintf(&sb, "INCOMING DEPENDENCIES (Files importing %s):\n", displayPkg(targetPkg))
	sb.WriteString(bulletList(incoming, "  "))
	sb.WriteString("\n\n")

	sb.WriteString(strings.Repeat("=", 80) + "\n\n")
	sb.WriteString("Analyze this dependency map and provide:\n")
	sb.WriteString("1. Summary of dependency complexity\n")
	sb.WriteString("2. Risk assessment (how many files would break if this changes?)\n")
	sb.WriteString("3. Suggestions for safe refactoring\n")
	sb.WriteString("4. Any circular dependencies detected\n")

	report := sb.String()
	threadID := recordExchange(t.conv, "depmap", continuationID,
		fmt.Sprintf("depmap %s (depth %d)", relPath, depth), report)

	return mcp.NewToolResultText(report + continuationFooter(threadID)), nil
}

// fileImports extracts the import paths of a single Go file.
func fileImports(path string) []string {
	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, path, nil, parser.ImportsOnly)
	if err != nil {
		log := zlog.WithComponent("depmap")
		log.Debug().Err(err).Str("file", path).Msg("parse failed")
		return nil
	}

	var imports []string
	for _, imp := range file.Imports {
		p, err := strconv.Unquote(imp.Path.Value)
		if err != nil {
			continue
		}
		imports = append(imports, p)
	}
	sort.Strings(imports)
	return imports
}

// packageImportPath computes the import path of the package containing
// targetFile, relative to the module root. Returns "" without a module.
func packageImportPath(module, workingDir, targetFile string) string {
	if module == "" {
		return ""
	}
	rel, err := filepath.Rel(workingDir, filepath.Dir(targetFile))
	if err != nil || strings.HasPrefix(rel, "..") {
		return ""
	}
	if rel == "." {
		return module
	}
	return module + "/" + filepath.ToSlash(rel)
}

// findImporters scans the module for Go files importing targetPkg.
func findImporters(workingDir, targetPkg, targetFile string) []string {
	if targetPkg == "" {
		return nil
	}

	var importers []string
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
		if !strings.HasSuffix(path, ".go") || path == targetFile {
			return nil
		}
		for _, imp := range fileImports(path) {
			if imp == targetPkg {
				if rel, relErr := filepath.Rel(workingDir, path); relErr == nil {
					importers = append(importers, filepath.ToSlash(rel))
				}
				break
			}
		}
		return nil
	})
	sort.Strings(importers)
	return importers
}

// expandModuleImports resolves one more level of imports for the
// module-internal packages in the outgoing list.
func expandModuleImports(workingDir, module string, outgoing []string) map[string][]string {
	result := map[string][]string{}
	for _, imp := range outgoing {
		if imp != module && !strings.HasPrefix(imp, module+"/") {
			continue
		}
		rel := strings.TrimPrefix(strings.TrimPrefix(imp, module), "/")
		pkgDir := filepath.Join(workingDir, filepath.FromSlash(rel))
		entries, err := os.ReadDir(pkgDir)
		if err != nil {
			continue
		}

		seen := map[string]bool{}
		var deps []string
		for _, entry := range entries {
			if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".go") || strings.HasSuffix(entry.Name(), "_test.go") {
				continue
			}
			for _, dep := range fileImports(filepath.Join(pkgDir, entry.Name())) {
				if !seen[dep] {
					seen[dep] = true
					deps = append(deps, dep)
				}
			}
		}
		sort.Strings(deps)
		result[imp] = deps
	}
	return result
}

// displayPkg renders a package path for the report header.
func displayPkg(pkg string) string {
	if pkg == "" {
		return "this file (package path unknown — no go.mod found)"
	}
	return pkg
}
