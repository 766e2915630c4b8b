// Package server wires all MCP components and creates the server instance.
//
// This is the composition root: it creates concrete implementations and
// injects them into the tools/prompts/resources that depend on them.
// No business logic lives here — only wiring.
package server

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/mark3labs/mcp-go/server"

	"github.com/salvadorthebrown/zen-mcp-server-fixed/internal/config"
	"github.com/salvadorthebrown/zen-mcp-server-fixed/internal/conversation"
	"github.com/salvadorthebrown/zen-mcp-server-fixed/internal/skills"
	"github.com/salvadorthebrown/zen-mcp-server-fixed/internal/tools"
	"github.com/salvadorthebrown/zen-mcp-server-fixed/internal/zlog"
)

// Version is set at build time via ldflags.
var Version = "dev"

// toolDef pairs a tool name with its registration, so DISABLED_TOOLS
// can skip entries by name before anything touches the wire.
type toolDef struct {
	name     string
	register func(*server.MCPServer)
}

// New creates and configures the MCP server with all tools, prompts,
// and resources registered.
//
// The returned cleanup function closes the conversation store's
// database connection and must be called on shutdown (typically via
// defer). It is always non-nil and safe to call even if conversation
// init failed.
func New() (*server.MCPServer, func(), error) {
	cfg, err := config.FromEnv()
	if err != nil {
		return nil, noop, err
	}
	zlog.Configure(zlog.Config{Level: cfg.LogLevel})
	log := zlog.WithComponent("server")

	// Conversation memory is an independent subsystem: if it fails to
	// initialize, every tool still works — continuation_id requests
	// just start fresh instead of resuming.
	cleanup := noop
	conv, convErr := conversation.New(conversation.Config{
		DataDir:  cfg.DataDir,
		TTL:      cfg.ConversationTTL,
		MaxTurns: cfg.MaxConversationTurns,
	})
	if convErr != nil {
		log.Warn().Err(convErr).Msg("conversation memory disabled")
		conv = nil
	} else {
		cleanup = func() {
			if err := conv.Close(); err != nil {
				log.Warn().Err(err).Msg("closing conversation store")
			}
		}
		go expireLoop(conv)
	}

	s := server.NewMCPServer(
		"zen",
		Version,
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(false, true),
		server.WithPromptCapabilities(true),
		server.WithRecovery(),
		server.WithInstructions(serverInstructions()),
	)

	validator := tools.NewValidatorTool(conv)
	autotest := tools.NewAutoTestTool(conv, cfg.DefaultTestFramework, cfg.TestRunTimeout)
	depmap := tools.NewDepMapTool(conv)
	tracer := tools.NewTracerTool(conv)
	testgen := tools.NewTestGenTool(conv)
	docgen := tools.NewDocGenTool(conv)
	planner := tools.NewPlannerTool(conv)
	debug := tools.NewDebugTool(conv)
	codereview := tools.NewCodeReviewTool(conv)
	secaudit := tools.NewSecAuditTool(conv)

	defs := []toolDef{
		{"validator", func(s *server.MCPServer) { s.AddTool(validator.Definition(), validator.Handle) }},
		{"autotest", func(s *server.MCPServer) { s.AddTool(autotest.Definition(), autotest.Handle) }},
		{"depmap", func(s *server.MCPServer) { s.AddTool(depmap.Definition(), depmap.Handle) }},
		{"tracer", func(s *server.MCPServer) { s.AddTool(tracer.Definition(), tracer.Handle) }},
		{"testgen", func(s *server.MCPServer) { s.AddTool(testgen.Definition(), testgen.Handle) }},
		{"docgen", func(s *server.MCPServer) { s.AddTool(docgen.Definition(), docgen.Handle) }},
		{"planner", func(s *server.MCPServer) { s.AddTool(planner.Definition(), planner.Handle) }},
		{"debug", func(s *server.MCPServer) { s.AddTool(debug.Definition(), debug.Handle) }},
		{"codereview", func(s *server.MCPServer) { s.AddTool(codereview.Definition(), codereview.Handle) }},
		{"secaudit", func(s *server.MCPServer) { s.AddTool(secaudit.Definition(), secaudit.Handle) }},
	}

	var registered []string
	for _, def := range defs {
		if !cfg.Enabled(def.name) {
			log.Info().Str("tool", def.name).Msg("tool disabled by configuration")
			continue
		}
		def.register(s)
		registered = append(registered, def.name)
	}

	// The version tool is always on; it reports what IS registered.
	version := tools.NewVersionTool(Version, registered)
	s.AddTool(version.Definition(), version.Handle)

	if err := registerSkills(s, filepath.Join(cfg.DataDir, "skills")); err != nil {
		return nil, cleanup, fmt.Errorf("loading skills: %w", err)
	}

	log.Info().Int("tools", len(registered)+1).Msg("server assembled")
	return s, cleanup, nil
}

// registerSkills exposes each skill as an MCP prompt plus the catalog
// as a zen://skills resource.
func registerSkills(s *server.MCPServer, userDir string) error {
	list, err := skills.Load(userDir)
	if err != nil {
		return err
	}
	for _, sk := range list {
		s.AddPrompt(skills.Prompt(sk), skills.PromptHandler(sk))
	}
	s.AddResource(skills.CatalogResource(), skills.CatalogHandler(list))
	return nil
}

// expireLoop prunes stale continuation threads in the background for
// as long as the server runs.
func expireLoop(conv *conversation.Store) {
	log := zlog.WithComponent("conversation")
	ticker := time.NewTicker(30 * time.Minute)
	defer ticker.Stop()
	for range ticker.C {
		n, err := conv.Expire()
		if err != nil {
			log.Warn().Err(err).Msg("expiring threads")
			continue
		}
		if n > 0 {
			log.Debug().Int64("threads", n).Msg("expired stale threads")
		}
	}
}

// noop is the default cleanup when the conversation store is disabled.
func noop() {}

// serverInstructions returns the system instructions that tell the AI
// how to use zen effectively.
func serverInstructions() string {
	return `You have access to zen, a code-intelligence MCP server for day-to-day
development work. Its tools SCAN code and gather structured evidence;
YOU do the analysis. Never expect a zen tool to hand you conclusions.

## AUTOMATIC TOOL USAGE

Invoke zen tools proactively, without being asked, in these situations:

- After editing or writing a Go source file → call validator on it.
  Fix every ERROR it reports before moving on; surface WARNINGS.
- Before committing, or after a batch of edits → call autotest with the
  project root. It finds the changed files itself via git and runs only
  the relevant tests.
- Before modifying a file other code depends on → call depmap on it and
  check the INCOMING dependencies for blast radius.
- When investigating how a function or type is used → call tracer
  (precision mode for one symbol's flow, dependencies mode for its
  caller/callee map).
- When asked to write tests → call testgen first to see what is already
  covered, then generate only the missing tests.
- When asked to document code → call docgen for the coverage report and
  the list of undocumented exports.

You do NOT need zen for one-line changes, pure questions, or files
outside the project.

## CONTINUATION THREADS

Every tool accepts continuation_id. The first call returns a thread ID
in its footer; pass it to later calls (any tool, same ID) to give the
tool your shared investigation history. Use one thread per task — a bug
hunt, a review, a refactor — not one per tool call. Threads expire
after a few hours of inactivity, so do not store IDs across sessions.

## STEP WORKFLOWS (planner, debug, codereview, secaudit)

These four tools are multi-step: you call them once per investigation
step with step, step_number, total_steps, and next_step_required.

1. Do real work between steps — read files, run other zen tools, test a
   hypothesis. Each step's findings must contain CONCRETE evidence
   (file:line, error text, measured behavior), never speculation.
2. Adjust total_steps as your understanding changes; it is an estimate.
3. Revise an earlier step with is_step_revision + revises_step_number
   when new evidence contradicts it. Branch alternatives with branch_id.
4. Set next_step_required=false only when the investigation is genuinely
   complete — the tool then returns the consolidated report.
5. For debug: track your confidence honestly (exploring → low → medium →
   high → very_high → almost_certain → certain). Do not propose fixes
   below high.
6. For codereview and secaudit: record each finding with a severity the
   moment you confirm it, not at the end.

## READING TOOL REPORTS

Each report ends with numbered analysis instructions. Follow them: they
tell you what the evidence means and what to produce for the user. When
validator says INVALID, the errors are authoritative — the file will
not compile. When autotest reports failures, quote the failing test
output to the user rather than paraphrasing it.

## SKILLS

The zen://skills resource lists multi-tool workflows (pre-commit
validation, bug hunt, impact analysis, security review). Each is also
available as a zen-<name> prompt. When a user's request matches a
skill's trigger, follow the skill's steps in order.`
}
