package tools

import (
	"context"
	"strings"
	"testing"
)

func TestDocGenTool_Handle_RequiresScope(t *testing.T) {
	tool := NewDocGenTool(nil)

	result, err := tool.Handle(context.Background(), toolReq(map[string]interface{}{}))
	if err != nil {
		t.Fatalf("Handle failed: %v", err)
	}
	if !isErrorResult(result) {
		t.Fatalf("expected error when neither target_file nor working_directory is given")
	}
}

func TestDocGenTool_Handle_SingleFile(t *testing.T) {
	root := t.TempDir()
	path := writeFile(t, root, "lib.go", `package lib

// Documented is fine.
func Documented() {}

func Missing() {}

type Bare struct{}

const Undocumented = 1

func internal() {}
`)
	tool := NewDocGenTool(nil)

	result, err := tool.Handle(context.Background(), toolReq(map[string]interface{}{
		"target_file": path,
	}))
	if err != nil {
		t.Fatalf("Handle failed: %v", err)
	}
	text := getResultText(result)

	// 4 exported identifiers, 1 documented. internal() doesn't count.
	if !strings.Contains(text, "4 total, 1 documented (25%)") {
		t.Errorf("coverage line wrong, got: %s", text)
	}
	for _, want := range []string{"func Missing", "type Bare", "const Undocumented"} {
		if !strings.Contains(text, want) {
			t.Errorf("missing list should contain %q, got: %s", want, text)
		}
	}
	if strings.Contains(text, "Documented") && strings.Contains(text, "— func Documented") {
		t.Errorf("documented function should not be listed as missing")
	}
}

func TestDocGenTool_Handle_DirectoryScan(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "a/a.go", `package a

// A is documented.
func A() {}
`)
	writeFile(t, root, "b/b.go", `package b

func B() {}
`)
	// Test files and vendored trees are skipped.
	writeFile(t, root, "a/a_test.go", `package a

func TestHelperExported() {}
`)
	writeFile(t, root, "vendor/dep/dep.go", `package dep

func Vendored() {}
`)
	tool := NewDocGenTool(nil)

	result, _ := tool.Handle(context.Background(), toolReq(map[string]interface{}{
		"working_directory": root,
	}))
	text := getResultText(result)

	if !strings.Contains(text, "Scope: 2 file(s)") {
		t.Errorf("scan should cover exactly the two source files, got: %s", text)
	}
	if !strings.Contains(text, "b/b.go") || !strings.Contains(text, "func B") {
		t.Errorf("b.go's undocumented export should be listed, got: %s", text)
	}
	if strings.Contains(text, "Vendored") {
		t.Errorf("vendored code should be skipped")
	}
}

func TestDocGenTool_Handle_FullyDocumented(t *testing.T) {
	root := t.TempDir()
	path := writeFile(t, root, "ok.go", `package ok

// All is documented.
func All() {}
`)
	tool := NewDocGenTool(nil)

	result, _ := tool.Handle(context.Background(), toolReq(map[string]interface{}{
		"target_file": path,
	}))
	text := getResultText(result)
	if !strings.Contains(text, "(none — all exported identifiers are documented)") {
		t.Errorf("fully documented file should report none missing, got: %s", text)
	}
}

func TestDocCoverage_GroupDocCountsForSpecs(t *testing.T) {
	root := t.TempDir()
	path := writeFile(t, root, "grouped.go", `package grouped

// Limits for the parser.
const (
	MaxDepth = 10
	MaxSize  = 20
)
`)
	total, documented, missing := docCoverage(path, root)
	if total != 2 || documented != 2 {
		t.Errorf("total=%d documented=%d, want 2/2", total, documented)
	}
	if len(missing) != 0 {
		t.Errorf("grouped consts under a doc comment should count as documented: %v", missing)
	}
}
