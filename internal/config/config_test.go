package config

import (
	"testing"
	"time"
)

// withEnv injects a fake environment for the duration of a test.
func withEnv(t *testing.T, env map[string]string) {
	t.Helper()
	orig := getenv
	getenv = func(key string) string { return env[key] }
	t.Cleanup(func() { getenv = orig })
}

func TestFromEnv_Defaults(t *testing.T) {
	withEnv(t, nil)

	cfg, err := FromEnv()
	if err != nil {
		t.Fatalf("FromEnv: %v", err)
	}

	if cfg.DataDir == "" {
		t.Errorf("DataDir should default to an XDG path")
	}
	if cfg.LogLevel != "info" {
		t.Errorf("LogLevel = %q, want info", cfg.LogLevel)
	}
	if cfg.ConversationTTL != DefaultConversationTTL {
		t.Errorf("ConversationTTL = %v, want %v", cfg.ConversationTTL, DefaultConversationTTL)
	}
	if cfg.MaxConversationTurns != DefaultMaxTurns {
		t.Errorf("MaxConversationTurns = %d, want %d", cfg.MaxConversationTurns, DefaultMaxTurns)
	}
	if cfg.DefaultTestFramework != "gotest" {
		t.Errorf("DefaultTestFramework = %q, want gotest", cfg.DefaultTestFramework)
	}
	if len(cfg.DisabledTools) != 0 {
		t.Errorf("DisabledTools should start empty")
	}
}

func TestFromEnv_Overrides(t *testing.T) {
	withEnv(t, map[string]string{
		"ZEN_DATA_DIR":               "/custom/data",
		"LOG_LEVEL":                  "DEBUG",
		"CONVERSATION_TIMEOUT_HOURS": "12",
		"MAX_CONVERSATION_TURNS":     "10",
		"DEFAULT_TEST_FRAMEWORK":     "PYTEST",
	})

	cfg, err := FromEnv()
	if err != nil {
		t.Fatalf("FromEnv: %v", err)
	}
	if cfg.DataDir != "/custom/data" {
		t.Errorf("DataDir = %q", cfg.DataDir)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("LogLevel = %q, want lowercased debug", cfg.LogLevel)
	}
	if cfg.ConversationTTL != 12*time.Hour {
		t.Errorf("ConversationTTL = %v, want 12h", cfg.ConversationTTL)
	}
	if cfg.MaxConversationTurns != 10 {
		t.Errorf("MaxConversationTurns = %d, want 10", cfg.MaxConversationTurns)
	}
	if cfg.DefaultTestFramework != "pytest" {
		t.Errorf("DefaultTestFramework = %q, want pytest", cfg.DefaultTestFramework)
	}
}

func TestFromEnv_DisabledTools(t *testing.T) {
	withEnv(t, map[string]string{
		"DISABLED_TOOLS": "SecAudit, docgen ,, tracer",
	})

	cfg, err := FromEnv()
	if err != nil {
		t.Fatalf("FromEnv: %v", err)
	}

	for _, name := range []string{"secaudit", "docgen", "tracer"} {
		if cfg.Enabled(name) {
			t.Errorf("%s should be disabled", name)
		}
	}
	if !cfg.Enabled("validator") {
		t.Errorf("validator should stay enabled")
	}
	// Enabled is case-insensitive both ways.
	if cfg.Enabled("SECAUDIT") {
		t.Errorf("disabled check should be case-insensitive")
	}
}

func TestFromEnv_InvalidValues(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"non-numeric timeout", map[string]string{"CONVERSATION_TIMEOUT_HOURS": "soon"}},
		{"zero timeout", map[string]string{"CONVERSATION_TIMEOUT_HOURS": "0"}},
		{"negative turns", map[string]string{"MAX_CONVERSATION_TURNS": "-1"}},
		{"unknown framework", map[string]string{"DEFAULT_TEST_FRAMEWORK": "jest"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			withEnv(t, tt.env)
			if _, err := FromEnv(); err == nil {
				t.Errorf("expected error for %v", tt.env)
			}
		})
	}
}
