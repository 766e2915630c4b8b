package tools

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
	"time"

	git "github.com/go-git/go-git/v6"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/salvadorthebrown/zen-mcp-server-fixed/internal/conversation"
	"github.com/salvadorthebrown/zen-mcp-server-fixed/internal/zlog"
)

// AutoTestTool handles the autotest MCP tool.
// It detects changed files via git, finds the tests covering them, runs
// those tests, and returns the raw results for the model to analyze.
type AutoTestTool struct {
	conv             *conversation.Store
	defaultFramework string
	runTimeout       time.Duration
}

// NewAutoTestTool creates an AutoTestTool. conv may be nil.
func NewAutoTestTool(conv *conversation.Store, defaultFramework string, runTimeout time.Duration) *AutoTestTool {
	if defaultFramework == "" {
		defaultFramework = "gotest"
	}
	if runTimeout <= 0 {
		runTimeout = 5 * time.Minute
	}
	return &AutoTestTool{conv: conv, defaultFramework: defaultFramework, runTimeout: runTimeout}
}

// Definition returns the MCP tool definition for registration.
func (t *AutoTestTool) Definition() mcp.Tool {
	return mcp.NewTool("autotest",
		mcp.WithDescription(
			"Automatically runs relevant tests for changed files. "+
				"Detects modified files via git and runs their test suites. "+
				"Shows pass/fail results immediately so you can fix issues before committing.",
		),
		mcp.WithString("working_directory",
			mcp.Required(),
			mcp.Description("Absolute path to the project root directory"),
		),
		mcp.WithArray("changed_files",
			mcp.Description("Optional list of changed files (auto-detects via git if not provided)"),
		),
		mcp.WithString("test_framework",
			mcp.Description("Test framework to use: gotest or pytest (default: gotest)"),
			mcp.Enum("gotest", "pytest"),
		),
		mcp.WithString("continuation_id",
			mcp.Description(continuationParam),
		),
	)
}

// Handle processes the autotest tool call.
func (t *AutoTestTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	workingDir := strings.TrimSpace(req.GetString("working_directory", ""))
	if workingDir == "" {
		return mcp.NewToolResultError("'working_directory' is required"), nil
	}
	if !dirExists(workingDir) {
		return mcp.NewToolResultError(fmt.Sprintf("Working directory does not exist: %s", workingDir)), nil
	}

	framework := req.GetString("test_framework", t.defaultFramework)
	if framework != "gotest" && framework != "pytest" {
		return mcp.NewToolResultError(fmt.Sprintf("Unsupported test framework: %s", framework)), nil
	}
	continuationID := req.GetString("continuation_id", "")

	changedFiles := stringSliceArg(req, "changed_files")
	if len(changedFiles) == 0 {
		detected, err := gitChangedFiles(workingDir)
		if err != nil {
			log := zlog.WithComponent("autotest")
			log.Warn().Err(err).Msg("git change detection failed")
		}
		changedFiles = detected
	}
	if len(changedFiles) == 0 {
		return mcp.NewToolResultText(
			"No changed files detected. Make some changes or specify files explicitly.",
		), nil
	}

	testTargets := findRelevantTests(workingDir, changedFiles, framework)
	if len(testTargets) == 0 {
		return mcp.NewToolResultText(fmt.Sprintf(
			"No test files found for changed files: %s", strings.Join(changedFiles, ", "),
		)), nil
	}

	output := t.runTests(ctx, workingDir, testTargets, framework)

	var sb strings.Builder
	sb.WriteString(resumeContext(t.conv, continuationID))
	sb.WriteString("TEST RESULTS FOR CHANGED FILES\n")
	sb.WriteString("================================\n\n")
	sb.WriteString("Changed Files:\n")
	sb.WriteString(bulletList(changedFiles, "  "))
	sb.WriteString("\n\nTest Targets Run:\n")
	sb.WriteString(bulletList(testTargets, "  "))
	sb.WriteString("\n\nTest Output:\n")
	sb.WriteString(output)
	sb.WriteString("\n\n================================\n\n")
	sb.WriteString("Analyze these test results and provide:\n")
	sb.WriteString("1. Summary (X passed, Y failed)\n")
	sb.WriteString("2. Failed tests with specific error details\n")
	sb.WriteString("3. Suggestions to fix failures\n")
	sb.WriteString("4. Any warnings or issues to address\n")

	report := sb.String()
	threadID := recordExchange(t.conv, "autotest", continuationID,
		fmt.Sprintf("autotest in %s (%s)", workingDir, framework), report)

	return mcp.NewToolResultText(report + continuationFooter(threadID)), nil
}

// gitChangedFiles returns the paths with uncommitted changes (staged or
// unstaged) relative to the repository root.
func gitChangedFiles(workingDir string) ([]string, error) {
	repo, err := git.PlainOpen(workingDir)
	if err != nil {
		return nil, fmt.Errorf("opening repository: %w", err)
	}
	worktree, err := repo.Worktree()
	if err != nil {
		return nil, fmt.Errorf("getting worktree: %w", err)
	}
	status, err := worktree.Status()
	if err != nil {
		return nil, fmt.Errorf("getting status: %w", err)
	}

	var files []string
	for path, st := range status {
		if st.Worktree == git.Unmodified && st.Staging == git.Unmodified {
			continue
		}
		if st.Worktree == git.Deleted || st.Staging == git.Deleted {
			continue
		}
		files = append(files, path)
	}
	sort.Strings(files)
	return files, nil
}

// findRelevantTests maps changed source files to test targets.
//
// gotest: foo.go maps to its package directory when foo_test.go exists
// there; changed _test.go files map to their own directory.
// pytest: test_<stem>.py in tests/ or alongside the file, with tests/
// as a whole-suite fallback (mirrors the original heuristics).
func findRelevantTests(workingDir string, changedFiles []string, framework string) []string {
	targets := map[string]bool{}

	for _, changed := range changedFiles {
		rel := changed
		if filepath.IsAbs(rel) {
			if r, err := filepath.Rel(workingDir, rel); err == nil {
				rel = r
			}
		}

		switch framework {
		case "gotest":
			if !strings.HasSuffix(rel, ".go") {
				continue
			}
			dir := filepath.Dir(rel)
			if strings.HasSuffix(rel, "_test.go") {
				targets["./"+filepath.ToSlash(dir)] = true
				continue
			}
			stem := strings.TrimSuffix(filepath.Base(rel), ".go")
			testPath := filepath.Join(workingDir, dir, stem+"_test.go")
			if fileExists(testPath) {
				targets["./"+filepath.ToSlash(dir)] = true
				continue
			}
			// Any test in the package still covers the change.
			if dirHasSuffix(filepath.Join(workingDir, dir), "_test.go") {
				targets["./"+filepath.ToSlash(dir)] = true
			}
		case "pytest":
			if !strings.HasSuffix(rel, ".py") {
				continue
			}
			base := filepath.Base(rel)
			if strings.HasPrefix(base, "test_") {
				targets[rel] = true
				continue
			}
			stem := strings.TrimSuffix(base, ".py")
			testName := "test_" + stem + ".py"
			if fileExists(filepath.Join(workingDir, "tests", testName)) {
				targets[filepath.ToSlash(filepath.Join("tests", testName))] = true
			}
			if fileExists(filepath.Join(workingDir, filepath.Dir(rel), testName)) {
				targets[filepath.ToSlash(filepath.Join(filepath.Dir(rel), testName))] = true
			}
		}
	}

	// Framework-specific fallback: run the whole suite.
	if len(targets) == 0 {
		switch framework {
		case "gotest":
			targets["./..."] = true
		case "pytest":
			if dirExists(filepath.Join(workingDir, "tests")) {
				targets["tests/"] = true
			}
		}
	}

	out := make([]string, 0, len(targets))
	for target := range targets {
		out = append(out, target)
	}
	sort.Strings(out)
	return out
}

// runTests executes the test command and captures combined output,
// truncated for the report. Timeouts are surfaced as report text, not
// errors — the model should see what happened.
func (t *AutoTestTool) runTests(ctx context.Context, workingDir string, targets []string, framework string) string {
	runCtx, cancel := context.WithTimeout(ctx, t.runTimeout)
	defer cancel()

	var cmd *exec.Cmd
	switch framework {
	case "gotest":
		args := append([]string{"test", "-v"}, targets...)
		cmd = exec.CommandContext(runCtx, "go", args...)
	case "pytest":
		args := append([]string{"-v", "--tb=short"}, targets...)
		cmd = exec.CommandContext(runCtx, "pytest", args...)
	default:
		return fmt.Sprintf("Unsupported test framework: %s", framework)
	}
	cmd.Dir = workingDir

	log := zlog.WithComponent("autotest")
	log.Info().Str("cmd", strings.Join(cmd.Args, " ")).Msg("running tests")

	out, err := cmd.CombinedOutput()
	if runCtx.Err() == context.DeadlineExceeded {
		return fmt.Sprintf("ERROR: Tests timed out after %s", t.runTimeout)
	}
	output := string(out)
	if err != nil && output == "" {
		return fmt.Sprintf("ERROR running tests: %v", err)
	}
	return truncateOutput(output)
}

// --- Filesystem helpers ---

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

func dirExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

// dirHasSuffix reports whether any file in dir has the given name suffix.
func dirHasSuffix(dir, suffix string) bool {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return false
	}
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), suffix) {
			return true
		}
	}
	return false
}
