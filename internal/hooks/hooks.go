// Package hooks generates and installs the Claude Code settings
// fragments that wire zen into a workspace: the MCP server entry,
// lifecycle hooks, and automatic tool-usage rules.
package hooks

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ServerEntry is the mcpServers block registering the zen binary.
type ServerEntry struct {
	Command string            `json:"command"`
	Args    []string          `json:"args,omitempty"`
	Env     map[string]string `json:"env,omitempty"`
}

// HookCommand is a single hook invocation.
type HookCommand struct {
	Type    string `json:"type"`
	Command string `json:"command"`
}

// HookMatcher pairs a tool-name matcher with the commands to run.
type HookMatcher struct {
	Matcher string        `json:"matcher,omitempty"`
	Hooks   []HookCommand `json:"hooks"`
}

// AutoUsageRule maps a file glob to the zen tool that should run when
// files matching the glob are edited.
type AutoUsageRule struct {
	Glob string `json:"glob"`
	Tool string `json:"tool"`
	Note string `json:"note,omitempty"`
}

// Settings models the subset of Claude Code's settings.json that zen
// manages. Unknown keys in an existing file are preserved on install.
type Settings struct {
	MCPServers map[string]ServerEntry   `json:"mcpServers,omitempty"`
	Hooks      map[string][]HookMatcher `json:"hooks,omitempty"`
	AutoUsage  *AutoUsage               `json:"autoToolUsage,omitempty"`
}

// AutoUsage holds the glob-to-tool rules Claude Code consults when it
// decides to invoke a zen tool without being asked.
type AutoUsage struct {
	Rules []AutoUsageRule `json:"rules"`
}

// Defaults returns the settings fragment zen installs: the server
// entry for the given binary path, post-edit validation hooks, and
// the standard auto-usage rules.
func Defaults(binPath string) Settings {
	return Settings{
		MCPServers: map[string]ServerEntry{
			"zen": {Command: binPath, Args: []string{"serve"}},
		},
		Hooks: map[string][]HookMatcher{
			"PostToolUse": {
				{
					Matcher: "Edit|Write",
					Hooks: []HookCommand{
						{Type: "prompt", Command: "If the edited file is Go source, call the zen validator tool on it before moving on."},
					},
				},
			},
			"PreCommit": {
				{
					Hooks: []HookCommand{
						{Type: "prompt", Command: "Run the zen autotest tool against the repository root and resolve failures before committing."},
					},
				},
			},
		},
		AutoUsage: &AutoUsage{
			Rules: []AutoUsageRule{
				{Glob: "**/*.go", Tool: "validator", Note: "after edits"},
				{Glob: "**/*_test.go", Tool: "autotest", Note: "after test edits"},
				{Glob: "**/go.mod", Tool: "depmap", Note: "after dependency changes"},
			},
		},
	}
}

// Snippet renders the settings fragment as indented JSON, suitable for
// pasting into an existing settings.json by hand.
func Snippet(s Settings) (string, error) {
	out, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return "", fmt.Errorf("rendering settings snippet: %w", err)
	}
	return string(out), nil
}

// Install merges the fragment into the settings file at path, creating
// the file if it does not exist. Keys zen does not manage are carried
// over untouched; the zen server entry and auto-usage rules replace
// any previous zen-managed values.
func Install(path string, s Settings) error {
	existing := map[string]json.RawMessage{}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := json.Unmarshal(data, &existing); err != nil {
			return fmt.Errorf("parsing existing settings %s: %w", path, err)
		}
	case os.IsNotExist(err):
		// fresh install
	default:
		return fmt.Errorf("reading settings %s: %w", path, err)
	}

	if err := mergeKey(existing, "mcpServers", s.MCPServers, mergeServers); err != nil {
		return err
	}
	if err := mergeKey(existing, "hooks", s.Hooks, mergeHooks); err != nil {
		return err
	}
	if s.AutoUsage != nil {
		raw, err := json.Marshal(s.AutoUsage)
		if err != nil {
			return fmt.Errorf("encoding autoToolUsage: %w", err)
		}
		existing["autoToolUsage"] = raw
	}

	out, err := json.MarshalIndent(existing, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding settings: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating settings directory: %w", err)
	}
	if err := os.WriteFile(path, append(out, '\n'), 0o644); err != nil {
		return fmt.Errorf("writing settings %s: %w", path, err)
	}
	return nil
}

func mergeServers(prev map[string]json.RawMessage, next map[string]ServerEntry) error {
	for name, entry := range next {
		raw, err := json.Marshal(entry)
		if err != nil {
			return fmt.Errorf("encoding server %s: %w", name, err)
		}
		prev[name] = raw
	}
	return nil
}

func mergeHooks(prev map[string]json.RawMessage, next map[string][]HookMatcher) error {
	for event, matchers := range next {
		var existing []HookMatcher
		if raw, ok := prev[event]; ok && len(raw) > 0 && string(raw) != "null" {
			if err := json.Unmarshal(raw, &existing); err != nil {
				return fmt.Errorf("parsing hooks for %s: %w", event, err)
			}
		}

		// Keep the user's own matchers; replace only zen-managed ones so
		// a reinstall does not duplicate them.
		merged := make([]HookMatcher, 0, len(existing)+len(matchers))
		for _, m := range existing {
			if !zenManaged(m) {
				merged = append(merged, m)
			}
		}
		merged = append(merged, matchers...)

		raw, err := json.Marshal(merged)
		if err != nil {
			return fmt.Errorf("encoding hooks for %s: %w", event, err)
		}
		prev[event] = raw
	}
	return nil
}

// zenManaged reports whether a hook matcher was written by a previous
// zen install: every command it runs mentions the zen server.
func zenManaged(m HookMatcher) bool {
	if len(m.Hooks) == 0 {
		return false
	}
	for _, h := range m.Hooks {
		if !strings.Contains(h.Command, "zen ") {
			return false
		}
	}
	return true
}

// mergeKey decodes existing[key] as an object, applies merge, and
// writes it back. A missing or null key starts from an empty object.
func mergeKey[T any](existing map[string]json.RawMessage, key string, next T, merge func(map[string]json.RawMessage, T) error) error {
	prev := map[string]json.RawMessage{}
	if raw, ok := existing[key]; ok && len(raw) > 0 && string(raw) != "null" {
		if err := json.Unmarshal(raw, &prev); err != nil {
			return fmt.Errorf("parsing %s in existing settings: %w", key, err)
		}
	}
	if err := merge(prev, next); err != nil {
		return err
	}
	raw, err := json.Marshal(prev)
	if err != nil {
		return fmt.Errorf("encoding %s: %w", key, err)
	}
	existing[key] = raw
	return nil
}
