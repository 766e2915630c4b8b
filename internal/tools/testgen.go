package tools

import (
	"context"
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"path/filepath"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/salvadorthebrown/zen-mcp-server-fixed/internal/conversation"
)

// functionInfo describes one function found in the target file.
type functionInfo struct {
	Name      string
	Signature string
	Line      int
	Exported  bool
	Covered   bool
}

// TestGenTool handles the testgen MCP tool.
// It inventories the functions of a Go file, checks which ones already
// have tests in the sibling _test.go, and emits a generation brief for
// the uncovered ones.
type TestGenTool struct {
	conv *conversation.Store
}

// NewTestGenTool creates a TestGenTool. conv may be nil.
func NewTestGenTool(conv *conversation.Store) *TestGenTool {
	return &TestGenTool{conv: conv}
}

// Definition returns the MCP tool definition for registration.
func (t *TestGenTool) Definition() mcp.Tool {
	return mcp.NewTool("testgen",
		mcp.WithDescription(
			"Prepares targeted test generation for a Go file. "+
				"Lists its functions, detects which already have tests in the sibling "+
				"_test.go file, and produces a brief for generating the missing ones "+
				"with edge cases to cover.",
		),
		mcp.WithString("target_file",
			mcp.Required(),
			mcp.Description("Absolute path to the Go file to generate tests for"),
		),
		mcp.WithString("function",
			mcp.Description("Optional: restrict the brief to a single function name"),
		),
		mcp.WithString("continuation_id",
			mcp.Description(continuationParam),
		),
	)
}

// Handle processes the testgen tool call.
func (t *TestGenTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	targetFile := strings.TrimSpace(req.GetString("target_file", ""))
	onlyFunc := strings.TrimSpace(req.GetString("function", ""))
	continuationID := req.GetString("continuation_id", "")

	if targetFile == "" {
		return mcp.NewToolResultError("'target_file' is required"), nil
	}
	if !fileExists(targetFile) {
		return mcp.NewToolResultError(fmt.Sprintf("Target file does not exist: %s", targetFile)), nil
	}
	if filepath.Ext(targetFile) != ".go" {
		return mcp.NewToolResultError(fmt.Sprintf("Target file must be a Go file (.go): %s", targetFile)), nil
	}
	if strings.HasSuffix(targetFile, "_test.go") {
		return mcp.NewToolResultError("Target file is already a test file — point testgen at the code under test"), nil
	}

	functions, pkgName, err := fileFunctions(targetFile)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Error parsing file: %v", err)), nil
	}
	if onlyFunc != "" {
		var filtered []functionInfo
		for _, fn := range functions {
			if fn.Name == onlyFunc {
				filtered = append(filtered, fn)
			}
		}
		if len(filtered) == 0 {
			return mcp.NewToolResultError(fmt.Sprintf("Function %q not found in %s", onlyFunc, targetFile)), nil
		}
		functions = filtered
	}

	testPath := strings.TrimSuffix(targetFile, ".go") + "_test.go"
	testNames := testFunctionNames(testPath)
	covered, uncovered := 0, 0
	for i := range functions {
		functions[i].Covered = isCovered(functions[i].Name, testNames)
		if functions[i].Covered {
			covered++
		} else {
			uncovered++
		}
	}

	var sb strings.Builder
	sb.WriteString(resumeContext(t.conv, continuationID))
	fmt.Fprintf(&sb, "TEST GENERATION BRIEF FOR: %s (package %s)\n", targetFile, pkgName)
	sb.WriteString(strings.Repeat("=", 80) + "\n\n")
	fmt.Fprintf(&sb, "Existing test file: %s\n", presence(testPath))
	fmt.Fprintf(&sb, "Functions: %d total, %d covered, %d uncovered\n\n", len(functions), covered, uncovered)

	sb.WriteString("FUNCTIONS NEEDING TESTS:\n")
	anyUncovered := false
	for _, fn := range functions {
		if fn.Covered {
			continue
		}
		anyUncovered = true
		fmt.Fprintf(&sb, "  - %s (line %d): %s\n", fn.Name, fn.Line, fn.Signature)
	}
	if !anyUncovered {
		sb.WriteString("  (none — every function has at least one test)\n")
	}
	sb.WriteString("\nALREADY COVERED:\n")
	anyCovered := false
	for _, fn := range functions {
		if !fn.Covered {
			continue
		}
		anyCovered = true
		fmt.Fprintf(&sb, "  - %s\n", fn.Name)
	}
	if !anyCovered {
		sb.WriteString("  (none)\n")
	}

	sb.WriteString("\n" + strings.Repeat("=", 80) + "\n\n")
	sb.WriteString("Generate tests for the uncovered functions:\n")
	fmt.Fprintf(&sb, "1. Write table-driven tests in %s (same package)\n", filepath.Base(testPath))
	sb.WriteString("2. Cover the happy path plus edge cases: zero values, empty inputs, boundary sizes, error returns\n")
	sb.WriteString("3. For functions taking context.Context, include a cancelled-context case\n")
	sb.WriteString("4. Match the existing test style of the package — do not invent new helpers needlessly\n")

	report := sb.String()
	threadID := recordExchange(t.conv, "testgen", continuationID,
		fmt.Sprintf("testgen %s", targetFile), report)

	return mcp.NewToolResultText(report + continuationFooter(threadID)), nil
}

// fileFunctions parses a Go file and lists its function declarations.
func fileFunctions(path string) ([]functionInfo, string, error) {
	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, path, nil, 0)
	if err != nil {
		return nil, "", err
	}

	var functions []functionInfo
	for _, decl := range file.Decls {
		fn, ok := decl.(*ast.FuncDecl)
		if !ok {
			continue
		}
		functions = append(functions, functionInfo{
			Name:      fn.Name.Name,
			Signature: funcSignature(fn),
			Line:      fset.Position(fn.Pos()).Line,
			Exported:  fn.Name.IsExported(),
		})
	}
	return functions, file.Name.Name, nil
}

// testFunctionNames lists the Test*/Benchmark*/Fuzz* function names in a
// test file. Returns nil when the file does not exist.
func testFunctionNames(testPath string) []string {
	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, testPath, nil, 0)
	if err != nil {
		return nil
	}

	var names []string
	for _, decl := range file.Decls {
		fn, ok := decl.(*ast.FuncDecl)
		if !ok {
			continue
		}
		name := fn.Name.Name
		if strings.HasPrefix(name, "Test") || strings.HasPrefix(name, "Benchmark") || strings.HasPrefix(name, "Fuzz") {
			names = append(names, name)
		}
	}
	return names
}

// isCovered reports whether a test name references the function.
// Matching is case-insensitive on the function name since unexported
// functions get capitalized in test names (parseFoo -> TestParseFoo).
func isCovered(funcName string, testNames []string) bool {
	lower := strings.ToLower(funcName)
	for _, tn := range testNames {
		if strings.Contains(strings.ToLower(tn), lower) {
			return true
		}
	}
	return false
}

// presence describes whether a path exists, for report output.
func presence(path string) string {
	if fileExists(path) {
		return path
	}
	return path + " (does not exist yet)"
}
