package tools

import (
	"context"
	"strings"
	"testing"
)

func TestValidatorTool_Definition(t *testing.T) {
	tool := NewValidatorTool(nil)
	def := tool.Definition()

	if def.Name != "validator" {
		t.Errorf("tool name = %q, want %q", def.Name, "validator")
	}
	required := def.InputSchema.Required
	if len(required) != 1 || required[0] != "target_file" {
		t.Errorf("required = %v, want [target_file]", required)
	}
}

func TestValidatorTool_Handle_MissingTarget(t *testing.T) {
	tool := NewValidatorTool(nil)

	result, err := tool.Handle(context.Background(), toolReq(map[string]interface{}{}))
	if err != nil {
		t.Fatalf("Handle failed: %v", err)
	}
	if !isErrorResult(result) {
		t.Fatalf("expected error for missing target_file")
	}
}

func TestValidatorTool_Handle_FileDoesNotExist(t *testing.T) {
	tool := NewValidatorTool(nil)

	result, _ := tool.Handle(context.Background(), toolReq(map[string]interface{}{
		"target_file": "/nonexistent/path/file.go",
	}))
	if !isErrorResult(result) {
		t.Fatalf("expected error for missing file")
	}
	if !strings.Contains(getResultText(result), "does not exist") {
		t.Errorf("error should mention the missing file, got: %s", getResultText(result))
	}
}

func TestValidatorTool_Handle_NotGoFile(t *testing.T) {
	root := t.TempDir()
	path := writeFile(t, root, "notes.txt", "hello")
	tool := NewValidatorTool(nil)

	result, _ := tool.Handle(context.Background(), toolReq(map[string]interface{}{
		"target_file": path,
	}))
	if !isErrorResult(result) {
		t.Fatalf("expected error for non-Go file")
	}
}

func TestValidatorTool_Handle_ValidFile(t *testing.T) {
	root := setupModule(t, "example.com/proj")
	path := writeFile(t, root, "main.go", `package main

import "fmt"

func main() {
	fmt.Println("hello")
}
`)
	tool := NewValidatorTool(nil)

	result, err := tool.Handle(context.Background(), toolReq(map[string]interface{}{
		"target_file": path,
	}))
	if err != nil {
		t.Fatalf("Handle failed: %v", err)
	}
	if isErrorResult(result) {
		t.Fatalf("expected success, got: %s", getResultText(result))
	}

	text := getResultText(result)
	if !strings.Contains(text, "✓ VALID") {
		t.Errorf("report should say VALID, got: %s", text)
	}
	if !strings.Contains(text, "No issues found") {
		t.Errorf("clean file should report no issues")
	}
}

func TestValidatorTool_Handle_SyntaxError(t *testing.T) {
	root := setupModule(t, "example.com/proj")
	path := writeFile(t, root, "broken.go", `package main

func main() {
	if true {
`)
	tool := NewValidatorTool(nil)

	result, _ := tool.Handle(context.Background(), toolReq(map[string]interface{}{
		"target_file": path,
	}))
	text := getResultText(result)
	if !strings.Contains(text, "✗ INVALID") {
		t.Errorf("report should say INVALID, got: %s", text)
	}
	if !strings.Contains(text, "Syntax error at line") {
		t.Errorf("report should have line-numbered syntax errors, got: %s", text)
	}
}

func TestValidatorTool_Handle_UnresolvableImport(t *testing.T) {
	root := setupModule(t, "example.com/proj")
	path := writeFile(t, root, "main.go", `package main

import (
	"fmt"

	"github.com/nosuch/dependency"
)

func main() {
	fmt.Println(dependency.Thing)
}
`)
	tool := NewValidatorTool(nil)

	result, _ := tool.Handle(context.Background(), toolReq(map[string]interface{}{
		"target_file": path,
	}))
	text := getResultText(result)
	if !strings.Contains(text, "✗ INVALID") {
		t.Errorf("unresolvable import should make the file INVALID")
	}
	if !strings.Contains(text, "Cannot resolve import: github.com/nosuch/dependency") {
		t.Errorf("report should name the unresolvable import, got: %s", text)
	}
}

func TestValidatorTool_Handle_ModuleInternalImport(t *testing.T) {
	root := setupModule(t, "example.com/proj")
	writeFile(t, root, "internal/util/util.go", "package util\n\nfunc Do() {}\n")
	path := writeFile(t, root, "main.go", `package main

import "example.com/proj/internal/util"

func main() {
	util.Do()
}
`)
	tool := NewValidatorTool(nil)

	result, _ := tool.Handle(context.Background(), toolReq(map[string]interface{}{
		"target_file": path,
	}))
	text := getResultText(result)
	if !strings.Contains(text, "✓ VALID") {
		t.Errorf("existing internal package should resolve, got: %s", text)
	}
}

func TestValidatorTool_Handle_CheckImportsDisabled(t *testing.T) {
	root := setupModule(t, "example.com/proj")
	path := writeFile(t, root, "main.go", `package main

import "github.com/nosuch/dependency"

func main() {
	dependency.Do()
}
`)
	tool := NewValidatorTool(nil)

	result, _ := tool.Handle(context.Background(), toolReq(map[string]interface{}{
		"target_file":   path,
		"check_imports": false,
	}))
	text := getResultText(result)
	if strings.Contains(text, "Cannot resolve import") {
		t.Errorf("check_imports=false should skip import resolution")
	}
}

func TestValidatorTool_Handle_UnusedImportWarning(t *testing.T) {
	root := setupModule(t, "example.com/proj")
	path := writeFile(t, root, "main.go", `package main

import (
	"fmt"
	"strings"
)

func main() {
	fmt.Println("hi")
}
`)
	tool := NewValidatorTool(nil)

	result, _ := tool.Handle(context.Background(), toolReq(map[string]interface{}{
		"target_file": path,
	}))
	text := getResultText(result)
	if !strings.Contains(text, "✓ VALID") {
		t.Errorf("unused import is a warning, not an error")
	}
	if !strings.Contains(text, "Unused imports: strings") {
		t.Errorf("report should flag the unused import, got: %s", text)
	}
}

func TestValidatorTool_Handle_CheckDocs(t *testing.T) {
	root := setupModule(t, "example.com/proj")
	path := writeFile(t, root, "lib.go", `package lib

func Exported() {}

// Documented does things.
func Documented() {}
`)
	tool := NewValidatorTool(nil)

	result, _ := tool.Handle(context.Background(), toolReq(map[string]interface{}{
		"target_file": path,
		"check_docs":  true,
	}))
	text := getResultText(result)
	if !strings.Contains(text, "Exported function 'Exported'") {
		t.Errorf("check_docs should flag the undocumented export, got: %s", text)
	}
	if strings.Contains(text, "'Documented'") {
		t.Errorf("documented function should not be flagged")
	}
}

func TestResolvable(t *testing.T) {
	root := setupModule(t, "example.com/proj")
	writeFile(t, root, "internal/a/a.go", "package a\n")

	tests := []struct {
		path string
		want bool
	}{
		{"fmt", true},
		{"net/http", true},
		{"example.com/proj/internal/a", true},
		{"example.com/proj/internal/missing", false},
		{"github.com/other/lib", false},
		{"", false},
	}
	module := modulePath(root)
	required := requiredModules(root)
	for _, tt := range tests {
		if got := resolvable(tt.path, root, module, required); got != tt.want {
			t.Errorf("resolvable(%q) = %v, want %v", tt.path, got, tt.want)
		}
	}
}
