package tools

import (
	"context"
	"strings"
	"testing"
)

func setupTraceModule(t *testing.T) string {
	t.Helper()
	root := setupModule(t, "example.com/trace")
	writeFile(t, root, "internal/svc/svc.go", `package svc

import "fmt"

func Process(items []string) error {
	for _, item := range items {
		fmt.Println(validate(item))
	}
	return nil
}

func validate(s string) bool { return s != "" }
`)
	writeFile(t, root, "cmd/app/main.go", `package main

import "example.com/trace/internal/svc"

func main() {
	_ = svc.Process(nil)
}
`)
	return root
}

func TestTracerTool_Handle_Validation(t *testing.T) {
	tool := NewTracerTool(nil)

	tests := []struct {
		name string
		args map[string]interface{}
	}{
		{"missing target", map[string]interface{}{"working_directory": t.TempDir()}},
		{"missing working dir", map[string]interface{}{"target": "Process"}},
		{"bad mode", map[string]interface{}{
			"target":            "Process",
			"working_directory": t.TempDir(),
			"trace_mode":        "fast",
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := tool.Handle(context.Background(), toolReq(tt.args))
			if err != nil {
				t.Fatalf("Handle failed: %v", err)
			}
			if !isErrorResult(result) {
				t.Errorf("expected error result")
			}
		})
	}
}

func TestTracerTool_Handle_PrecisionMode(t *testing.T) {
	root := setupTraceModule(t)
	tool := NewTracerTool(nil)

	result, err := tool.Handle(context.Background(), toolReq(map[string]interface{}{
		"target":            "Process",
		"working_directory": root,
	}))
	if err != nil {
		t.Fatalf("Handle failed: %v", err)
	}
	text := getResultText(result)

	if !strings.Contains(text, "TRACE REPORT FOR: Process (mode: precision)") {
		t.Errorf("header wrong, got: %s", text)
	}
	if !strings.Contains(text, "internal/svc/svc.go:5 — func Process([]string)") {
		t.Errorf("definition with signature missing, got: %s", text)
	}
	if !strings.Contains(text, "CALL SITES") || !strings.Contains(text, "cmd/app/main.go:6") {
		t.Errorf("call site in main.go missing, got: %s", text)
	}
}

func TestTracerTool_Handle_DependenciesMode(t *testing.T) {
	root := setupTraceModule(t)
	tool := NewTracerTool(nil)

	result, _ := tool.Handle(context.Background(), toolReq(map[string]interface{}{
		"target":            "Process",
		"working_directory": root,
		"trace_mode":        "dependencies",
	}))
	text := getResultText(result)

	if !strings.Contains(text, "INCOMING (who calls this symbol):") {
		t.Errorf("dependencies mode should have incoming section")
	}
	outgoing := text[strings.Index(text, "OUTGOING"):]
	for _, callee := range []string{"Println", "validate"} {
		if !strings.Contains(outgoing, "- "+callee) {
			t.Errorf("outgoing should list %s, got: %s", callee, outgoing)
		}
	}
}

func TestTracerTool_Handle_TypeDefinition(t *testing.T) {
	root := setupModule(t, "example.com/trace")
	writeFile(t, root, "types.go", `package trace

type Widget struct {
	Name string
}

func build() Widget { return Widget{} }
`)
	tool := NewTracerTool(nil)

	result, _ := tool.Handle(context.Background(), toolReq(map[string]interface{}{
		"target":            "Widget",
		"working_directory": root,
	}))
	text := getResultText(result)
	if !strings.Contains(text, "types.go:3 — type Widget") {
		t.Errorf("type definition missing, got: %s", text)
	}
}

func TestTracerTool_Handle_UnknownSymbol(t *testing.T) {
	root := setupTraceModule(t)
	tool := NewTracerTool(nil)

	result, _ := tool.Handle(context.Background(), toolReq(map[string]interface{}{
		"target":            "DoesNotExist",
		"working_directory": root,
	}))
	text := getResultText(result)
	if !strings.Contains(text, "DEFINITIONS:\n  (none)") {
		t.Errorf("unknown symbol should yield empty sections, got: %s", text)
	}
}

func TestFuncSignature(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "sig.go", `package sig

type Svc struct{}

func (s *Svc) Handle(ctx map[string]int, items ...string) error { return nil }
`)
	defs, _, _ := traceSymbol(root, "Handle")
	if len(defs) != 1 {
		t.Fatalf("definitions = %d, want 1", len(defs))
	}
	want := "func (*Svc) Handle(map[string]int, ...string)"
	if defs[0].Text != want {
		t.Errorf("signature = %q, want %q", defs[0].Text, want)
	}
}
