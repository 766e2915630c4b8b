package tools

import (
	"context"
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/salvadorthebrown/zen-mcp-server-fixed/internal/conversation"
)

// auditFocusAreas are the supported security audit scopes.
var auditFocusAreas = []string{"owasp", "secrets", "dependencies", "infrastructure", "comprehensive"}

// secretPatterns flag likely hardcoded credentials. Line-oriented and
// deliberately loose — the model triages the matches.
var secretPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)(api[_-]?key|secret|password|passwd|token)\s*[:=]\s*["'][^"']{8,}["']`),
	regexp.MustCompile(`(?i)aws_access_key_id\s*[:=]`),
	regexp.MustCompile(`-----BEGIN (RSA |EC |OPENSSH )?PRIVATE KEY-----`),
}

// weakCryptoPatterns flag use of broken primitives.
var weakCryptoPatterns = []*regexp.Regexp{
	regexp.MustCompile(`crypto/md5|crypto/sha1|crypto/des|crypto/rc4`),
	regexp.MustCompile(`(?i)math/rand.*(token|secret|key|password|nonce)`),
	regexp.MustCompile(`InsecureSkipVerify\s*:\s*true`),
}

// SecAuditTool handles the secaudit MCP tool.
// It structures a security audit workflow like codereview, plus a quick
// evidence scan of the provided files for hardcoded secrets and weak
// crypto usage — mechanical signals the model then evaluates.
type SecAuditTool struct {
	conv    *conversation.Store
	tracker *workflowTracker
}

// NewSecAuditTool creates a SecAuditTool. conv may be nil.
func NewSecAuditTool(conv *conversation.Store) *SecAuditTool {
	return &SecAuditTool{conv: conv, tracker: newWorkflowTracker()}
}

// Definition returns the MCP tool definition for registration.
func (t *SecAuditTool) Definition() mcp.Tool {
	return mcp.NewTool("secaudit",
		withStepOptions(
			mcp.WithDescription(
				"Security audit workflow with OWASP Top 10 orientation. "+
					"Audit code in steps focused on an audit area, record severity-tagged "+
					"vulnerabilities, and get a consolidated report. Also runs a quick scan "+
					"of the given files for hardcoded secrets and weak crypto usage.",
			),
			mcp.WithString("audit_focus",
				mcp.Description("Audit focus area (default: comprehensive)"),
				mcp.Enum(auditFocusAreas...),
			),
			mcp.WithString("findings",
				mcp.Description("Summary of what was examined in this step"),
			),
			mcp.WithString("issue",
				mcp.Description("A specific vulnerability found in this step"),
			),
			mcp.WithString("severity",
				mcp.Description("Severity of the vulnerability"),
				mcp.Enum(reviewSeverities...),
			),
			mcp.WithArray("relevant_files",
				mcp.Description("Absolute paths of files to include in the quick evidence scan"),
			),
		)...,
	)
}

// Handle processes the secaudit tool call.
func (t *SecAuditTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	step, totalSteps, nextRequired, err := stepParams(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	focus := req.GetString("audit_focus", "comprehensive")
	if !validFocus(focus) {
		return mcp.NewToolResultError(fmt.Sprintf(
			"'audit_focus' must be one of: %s", strings.Join(auditFocusAreas, ", "))), nil
	}
	issue := strings.TrimSpace(req.GetString("issue", ""))
	severity := req.GetString("severity", "medium")
	if issue != "" && !validSeverity(severity) {
		return mcp.NewToolResultError(fmt.Sprintf(
			"'severity' must be one of: %s", strings.Join(reviewSeverities, ", "))), nil
	}
	relevantFiles := stringSliceArg(req, "relevant_files")
	continuationID := req.GetString("continuation_id", "")

	threadID := ensureThread(t.conv, "secaudit", continuationID)
	prior := resumeContext(t.conv, continuationID)
	state := t.tracker.rehydrate(t.conv, threadID, "secaudit")
	state.TotalSteps = totalSteps
	state.addStep(step)

	if issue != "" {
		state.Findings = append(state.Findings, reviewFinding{Step: step.Number, Severity: severity, Description: issue})
	}

	evidence := scanSecurityEvidence(relevantFiles)

	var sb strings.Builder
	if !nextRequired {
		sb.WriteString("# Security Audit Complete\n\n")
		fmt.Fprintf(&sb, "Focus: %s — %d step(s), %d finding(s).\n\n", focus, len(state.Steps), len(state.Findings))
		sb.WriteString(formatFindings(state.Findings))
		if evidence != "" {
			sb.WriteString(evidence)
		}
		sb.WriteString("## Audit Trail\n\n")
		sb.WriteString(state.summary())
		sb.WriteString("## Next Actions\n\n")
		sb.WriteString("1. Present vulnerabilities critical-first with exploit scenarios and remediations\n")
		sb.WriteString("2. Map each finding to the relevant OWASP Top 10 category where applicable\n")
		sb.WriteString("3. Distinguish confirmed vulnerabilities from scanner noise\n")
	} else {
		fmt.Fprintf(&sb, "# Audit Step %d of ~%d Recorded (focus: %s)\n\n", step.Number, state.TotalSteps, focus)
		if evidence != "" {
			sb.WriteString(evidence)
		}
		sb.WriteString("## Required Actions\n\n")
		sb.WriteString("1. Examine the next attack surface: input validation, authn/authz, crypto, injection, SSRF\n")
		sb.WriteString("2. Triage any quick-scan matches above — confirm or dismiss each one\n")
		sb.WriteString("3. Record confirmed vulnerabilities with severity (one per call)\n")
		sb.WriteString("4. Finish with next_step_required=false to get the consolidated report\n")
	}

	report := sb.String()
	if t.conv != nil {
		_ = t.conv.AddTurn(threadID, "secaudit", "user", fmt.Sprintf("step %d (%s): %s", step.Number, focus, step.Content))
		_ = t.conv.AddTurn(threadID, "secaudit", "tool", report)
	}
	if nextRequired {
		persistWorkflowState(t.conv, threadID, "secaudit", state)
	} else {
		t.tracker.drop(threadID)
		persistWorkflowState(t.conv, threadID, "secaudit", &workflowState{Tool: "secaudit"})
	}

	return mcp.NewToolResultText(prior + report + continuationFooter(threadID)), nil
}

func validFocus(f string) bool {
	for _, v := range auditFocusAreas {
		if f == v {
			return true
		}
	}
	return false
}

// scanSecurityEvidence greps the given files for secret and weak-crypto
// patterns. Returns "" when there are no files or no matches.
func scanSecurityEvidence(files []string) string {
	var matches []string
	for _, path := range files {
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		for i, line := range strings.Split(string(data), "\n") {
			for _, re := range secretPatterns {
				if re.MatchString(line) {
					matches = append(matches, fmt.Sprintf("%s:%d — possible hardcoded secret", path, i+1))
					break
				}
			}
			for _, re := range weakCryptoPatterns {
				if re.MatchString(line) {
					matches = append(matches, fmt.Sprintf("%s:%d — weak crypto or insecure TLS usage", path, i+1))
					break
				}
			}
		}
	}
	if len(matches) == 0 {
		return ""
	}

	var sb strings.Builder
	sb.WriteString("## Quick Scan Matches (triage required)\n\n")
	sb.WriteString(bulletList(matches, ""))
	sb.WriteString("\n\n")
	return sb.String()
}
