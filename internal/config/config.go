// Package config loads server configuration from the environment.
//
// zen is configured the way its users deploy it: environment variables,
// optionally seeded from a .env file next to the working directory.
// There is no config file format of our own.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"github.com/joho/godotenv"
)

// Defaults for fields that have no environment override set.
const (
	DefaultConversationTTL = 3 * time.Hour
	DefaultMaxTurns        = 50
	DefaultTestFramework   = "gotest"
	DefaultTestRunTimeout  = 5 * time.Minute
)

// Config holds all runtime settings for the zen server.
type Config struct {
	// DataDir is where the conversation database and user skills live.
	DataDir string

	// LogLevel is a zerolog level name ("debug", "info", "warn", ...).
	LogLevel string

	// DisabledTools lists tool names that must not be registered.
	DisabledTools map[string]bool

	// ConversationTTL is how long continuation threads stay resumable.
	ConversationTTL time.Duration

	// MaxConversationTurns caps the turns kept per continuation thread.
	MaxConversationTurns int

	// DefaultTestFramework is used by autotest when the request omits one.
	DefaultTestFramework string

	// TestRunTimeout bounds a single autotest run.
	TestRunTimeout time.Duration
}

// getenv is a package-level var to allow test injection.
var getenv = os.Getenv

// FromEnv builds a Config from the process environment. A .env file in the
// current directory is loaded first, best effort — a missing file is not
// an error, matching how zen is typically run from a project checkout.
func FromEnv() (Config, error) {
	_ = godotenv.Load()

	cfg := Config{
		DataDir:              filepath.Join(xdg.DataHome, "zen"),
		LogLevel:             "info",
		DisabledTools:        map[string]bool{},
		ConversationTTL:      DefaultConversationTTL,
		MaxConversationTurns: DefaultMaxTurns,
		DefaultTestFramework: DefaultTestFramework,
		TestRunTimeout:       DefaultTestRunTimeout,
	}

	if v := getenv("ZEN_DATA_DIR"); v != "" {
		cfg.DataDir = v
	}
	if v := getenv("LOG_LEVEL"); v != "" {
		cfg.LogLevel = strings.ToLower(v)
	}
	if v := getenv("DISABLED_TOOLS"); v != "" {
		for _, name := range strings.Split(v, ",") {
			name = strings.TrimSpace(strings.ToLower(name))
			if name != "" {
				cfg.DisabledTools[name] = true
			}
		}
	}
	if v := getenv("CONVERSATION_TIMEOUT_HOURS"); v != "" {
		hours, err := strconv.Atoi(v)
		if err != nil || hours <= 0 {
			return Config{}, fmt.Errorf("config: CONVERSATION_TIMEOUT_HOURS must be a positive integer, got %q", v)
		}
		cfg.ConversationTTL = time.Duration(hours) * time.Hour
	}
	if v := getenv("MAX_CONVERSATION_TURNS"); v != "" {
		turns, err := strconv.Atoi(v)
		if err != nil || turns <= 0 {
			return Config{}, fmt.Errorf("config: MAX_CONVERSATION_TURNS must be a positive integer, got %q", v)
		}
		cfg.MaxConversationTurns = turns
	}
	if v := getenv("DEFAULT_TEST_FRAMEWORK"); v != "" {
		v = strings.ToLower(v)
		if v != "gotest" && v != "pytest" {
			return Config{}, fmt.Errorf("config: DEFAULT_TEST_FRAMEWORK must be gotest or pytest, got %q", v)
		}
		cfg.DefaultTestFramework = v
	}

	return cfg, nil
}

// Enabled reports whether a tool should be registered.
func (c Config) Enabled(toolName string) bool {
	return !c.DisabledTools[strings.ToLower(toolName)]
}
