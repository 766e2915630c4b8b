package tools

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/salvadorthebrown/zen-mcp-server-fixed/internal/conversation"
)

// reviewSeverities orders finding severities for report grouping.
var reviewSeverities = []string{"critical", "high", "medium", "low"}

// reviewFinding is one issue recorded during a review or audit workflow.
type reviewFinding struct {
	Step        int    `json:"step"`
	Severity    string `json:"severity"`
	Description string `json:"description"`
}

// formatFindings groups findings by severity, critical first.
func formatFindings(findings []reviewFinding) string {
	if len(findings) == 0 {
		return "## Findings\n\n_No issues recorded._\n\n"
	}

	bySeverity := map[string][]reviewFinding{}
	for _, f := range findings {
		bySeverity[f.Severity] = append(bySeverity[f.Severity], f)
	}

	var sb strings.Builder
	sb.WriteString("## Findings by Severity\n\n")
	for _, sev := range reviewSeverities {
		group := bySeverity[sev]
		if len(group) == 0 {
			continue
		}
		sort.Slice(group, func(i, j int) bool { return group[i].Step < group[j].Step })
		fmt.Fprintf(&sb, "### %s (%d)\n\n", strings.ToUpper(sev), len(group))
		for _, f := range group {
			fmt.Fprintf(&sb, "- [step %d] %s\n", f.Step, f.Description)
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

func validSeverity(s string) bool {
	for _, v := range reviewSeverities {
		if s == v {
			return true
		}
	}
	return false
}

// CodeReviewTool handles the codereview MCP tool.
// It structures a multi-pass code review: the model examines code in
// steps and records severity-tagged issues; the final report groups
// everything by severity for actionable triage.
type CodeReviewTool struct {
	conv    *conversation.Store
	tracker *workflowTracker
}

// NewCodeReviewTool creates a CodeReviewTool. conv may be nil.
func NewCodeReviewTool(conv *conversation.Store) *CodeReviewTool {
	return &CodeReviewTool{conv: conv, tracker: newWorkflowTracker()}
}

// Definition returns the MCP tool definition for registration.
func (t *CodeReviewTool) Definition() mcp.Tool {
	return mcp.NewTool("codereview",
		withStepOptions(
			mcp.WithDescription(
				"Structured multi-pass code review workflow. "+
					"Review code in steps (correctness, error handling, concurrency, style), "+
					"record issues with severities, and get a consolidated report grouped by "+
					"severity. Use before merging significant changes.",
			),
			mcp.WithString("findings",
				mcp.Description("Summary of what was examined in this step"),
			),
			mcp.WithString("issue",
				mcp.Description("A specific issue found in this step (one issue per call; call again for more)"),
			),
			mcp.WithString("severity",
				mcp.Description("Severity of the issue"),
				mcp.Enum(reviewSeverities...),
			),
		)...,
	)
}

// Handle processes the codereview tool call.
func (t *CodeReviewTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	step, totalSteps, nextRequired, err := stepParams(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	issue := strings.TrimSpace(req.GetString("issue", ""))
	severity := req.GetString("severity", "medium")
	if issue != "" && !validSeverity(severity) {
		return mcp.NewToolResultError(fmt.Sprintf(
			"'severity' must be one of: %s", strings.Join(reviewSeverities, ", "))), nil
	}
	continuationID := req.GetString("continuation_id", "")

	threadID := ensureThread(t.conv, "codereview", continuationID)
	prior := resumeContext(t.conv, continuationID)
	state := t.tracker.rehydrate(t.conv, threadID, "codereview")
	state.TotalSteps = totalSteps
	state.addStep(step)

	if issue != "" {
		state.Findings = append(state.Findings, reviewFinding{Step: step.Number, Severity: severity, Description: issue})
	}

	var sb strings.Builder
	if !nextRequired {
		sb.WriteString("# Code Review Complete\n\n")
		fmt.Fprintf(&sb, "%d step(s), %d issue(s) recorded.\n\n", len(state.Steps), len(state.Findings))
		sb.WriteString(formatFindings(state.Findings))
		sb.WriteString("## Review Trail\n\n")
		sb.WriteString(state.summary())
		sb.WriteString("## Next Actions\n\n")
		sb.WriteString("1. Present critical and high issues first with concrete fix suggestions\n")
		sb.WriteString("2. Note positive patterns worth keeping — a review is not only defects\n")
		sb.WriteString("3. Recommend whether the change is safe to merge as-is\n")
	} else {
		fmt.Fprintf(&sb, "# Review Step %d of ~%d Recorded\n\n", step.Number, state.TotalSteps)
		if issue != "" {
			fmt.Fprintf(&sb, "Issue recorded at severity **%s**.\n\n", severity)
		}
		sb.WriteString("## Required Actions\n\n")
		sb.WriteString("1. Examine the next aspect: correctness, error handling, concurrency, API design, tests\n")
		sb.WriteString("2. Record each concrete issue with its severity (one per call)\n")
		sb.WriteString("3. Cite exact files and line numbers in issue descriptions\n")
		sb.WriteString("4. Finish with next_step_required=false to get the grouped report\n")
	}

	report := sb.String()
	if t.conv != nil {
		_ = t.conv.AddTurn(threadID, "codereview", "user", fmt.Sprintf("step %d: %s", step.Number, step.Content))
		_ = t.conv.AddTurn(threadID, "codereview", "tool", report)
	}
	if nextRequired {
		persistWorkflowState(t.conv, threadID, "codereview", state)
	} else {
		t.tracker.drop(threadID)
		persistWorkflowState(t.conv, threadID, "codereview", &workflowState{Tool: "codereview"})
	}

	return mcp.NewToolResultText(prior + report + continuationFooter(threadID)), nil
}
