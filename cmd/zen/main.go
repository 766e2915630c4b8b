// zen: code-intelligence MCP server
//
// A universal MCP server that integrates with any AI coding tool
// (Claude Code, OpenCode, Gemini CLI, Codex, Cursor, VS Code Copilot)
// and gives the model structured code evidence: validation, test runs,
// dependency maps, traces, and guided investigation workflows.
//
// Usage:
//
//	zen serve      # Start MCP server (stdio transport)
//	zen install    # Merge zen into Claude Code settings
//	zen update     # Update to the latest version
package main

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/mark3labs/mcp-go/server"

	"github.com/salvadorthebrown/zen-mcp-server-fixed/internal/hooks"
	zensrv "github.com/salvadorthebrown/zen-mcp-server-fixed/internal/server"
	"github.com/salvadorthebrown/zen-mcp-server-fixed/internal/updater"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "serve":
		if err := run(); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	case "install":
		runInstall(os.Args[2:])
	case "update":
		runUpdate()
	case "--help", "-h", "help":
		printUsage()
		os.Exit(0)
	case "--version", "-v", "version":
		fmt.Printf("zen v%s\n", zensrv.Version)
		os.Exit(0)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func run() error {
	s, cleanup, err := zensrv.New()
	if err != nil {
		return fmt.Errorf("creating server: %w", err)
	}
	defer cleanup()

	// Background version check — prints to stderr so it doesn't
	// interfere with MCP's stdio transport on stdout.
	go checkForUpdates()

	// ServeStdio stops on its own when stdin closes; the signal handler
	// covers the interrupt case.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		cleanup()
		os.Exit(0)
	}()

	return server.ServeStdio(s)
}

// runInstall writes the zen settings fragment into Claude Code's
// settings.json, or prints it with --print.
func runInstall(args []string) {
	binPath, err := os.Executable()
	if err != nil {
		binPath = "zen"
	}
	settings := hooks.Defaults(binPath)

	if len(args) > 0 && args[0] == "--print" {
		snippet, err := hooks.Snippet(settings)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		fmt.Println(snippet)
		return
	}

	path := settingsPath(args)
	if err := hooks.Install(path, settings); err != nil {
		fmt.Fprintf(os.Stderr, "❌ Install failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Fprintf(os.Stderr, "✅ zen installed into %s\n", path)
	fmt.Fprintf(os.Stderr, "   Restart your AI tool to pick up the new server.\n")
}

// settingsPath resolves the target settings file: an explicit argument
// wins, then the project-local .claude/settings.json if that directory
// exists, then the user-level one.
func settingsPath(args []string) string {
	if len(args) > 0 && args[0] != "" {
		return args[0]
	}
	if info, err := os.Stat(".claude"); err == nil && info.IsDir() {
		return filepath.Join(".claude", "settings.json")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".claude", "settings.json")
	}
	return filepath.Join(home, ".claude", "settings.json")
}

// checkForUpdates runs a non-blocking version check and prints a notice
// to stderr if an update is available. Best-effort — network failures
// are silently ignored.
func checkForUpdates() {
	result := updater.CheckVersion(zensrv.Version)
	if result.UpdateAvailable {
		fmt.Fprintf(os.Stderr,
			"\n  📦 Update available: v%s → v%s\n"+
				"     Run: zen update\n"+
				"     Release: %s\n\n",
			result.CurrentVersion, result.LatestVersion, result.ReleaseURL,
		)
	}
}

// runUpdate performs a self-update to the latest version.
func runUpdate() {
	fmt.Fprintf(os.Stderr, "🔍 Checking for updates...\n")

	result := updater.CheckVersion(zensrv.Version)
	if !result.UpdateAvailable {
		fmt.Fprintf(os.Stderr, "✅ Already at the latest version (v%s)\n", result.CurrentVersion)
		return
	}

	fmt.Fprintf(os.Stderr, "📦 New version available: v%s → v%s\n", result.CurrentVersion, result.LatestVersion)
	fmt.Fprintf(os.Stderr, "⬇️  Downloading...\n")

	if err := updater.SelfUpdate(zensrv.Version); err != nil {
		fmt.Fprintf(os.Stderr, "❌ Update failed: %v\n", err)
		fmt.Fprintf(os.Stderr, "\n   You can download manually from:\n   %s\n", result.ReleaseURL)
		os.Exit(1)
	}

	fmt.Fprintf(os.Stderr, "✅ Updated to v%s!\n", result.LatestVersion)
	fmt.Fprintf(os.Stderr, "   Restart zen to use the new version.\n")
}

func printUsage() {
	fmt.Fprintf(os.Stderr, `zen v%s — code-intelligence MCP server

Usage:
  zen serve              Start the MCP server (stdio transport)
  zen install [path]     Merge zen into Claude Code settings.json
  zen install --print    Print the settings fragment instead
  zen update             Update to the latest version

Configuration:
  Add to your AI tool's MCP config (or run "zen install"):

  {
    "mcpServers": {
      "zen": {
        "command": "zen",
        "args": ["serve"]
      }
    }
  }

Environment:
  ZEN_DATA_DIR                 Data directory (default: XDG data dir)
  LOG_LEVEL                    zerolog level (default: info)
  DISABLED_TOOLS               Comma-separated tool names to skip
  CONVERSATION_TIMEOUT_HOURS   Continuation thread TTL (default: 3)
  MAX_CONVERSATION_TURNS       Turns kept per thread (default: 50)
  DEFAULT_TEST_FRAMEWORK       gotest or pytest (default: gotest)

Learn more: https://github.com/salvadorthebrown/zen-mcp-server-fixed
`, zensrv.Version)
}
