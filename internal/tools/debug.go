package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/salvadorthebrown/zen-mcp-server-fixed/internal/conversation"
)

// debugConfidence is the ordered scale a debugging investigation moves
// along as evidence accumulates.
var debugConfidence = []string{"exploring", "low", "medium", "high", "very_high", "almost_certain", "certain"}

// hypothesisRecord tracks one root-cause theory across investigation steps.
type hypothesisRecord struct {
	Step       int    `json:"step"`
	Hypothesis string `json:"hypothesis"`
	Confidence string `json:"confidence"`
}

// DebugTool handles the debug MCP tool.
// It structures a systematic root-cause investigation: the model works
// in steps, records findings and evolving hypotheses, and gets a
// consolidated evidence report at the end.
type DebugTool struct {
	conv    *conversation.Store
	tracker *workflowTracker
}

// NewDebugTool creates a DebugTool. conv may be nil.
func NewDebugTool(conv *conversation.Store) *DebugTool {
	return &DebugTool{conv: conv, tracker: newWorkflowTracker()}
}

// Definition returns the MCP tool definition for registration.
func (t *DebugTool) Definition() mcp.Tool {
	return mcp.NewTool("debug",
		withStepOptions(
			mcp.WithDescription(
				"Systematic root-cause debugging workflow. "+
					"Investigate in steps: examine code, record findings, form and refine hypotheses "+
					"with explicit confidence levels. Produces a consolidated evidence report when done. "+
					"Use for mysterious errors, race conditions, memory issues, and regressions.",
			),
			mcp.WithString("findings",
				mcp.Description("Concrete evidence discovered in this step (code, logs, stack traces)"),
			),
			mcp.WithString("hypothesis",
				mcp.Description("Current best theory of the root cause"),
			),
			mcp.WithString("confidence",
				mcp.Description("Confidence in the hypothesis"),
				mcp.Enum(debugConfidence...),
			),
			mcp.WithArray("relevant_files",
				mcp.Description("Absolute paths of files implicated so far"),
			),
		)...,
	)
}

// Handle processes the debug tool call.
func (t *DebugTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	step, totalSteps, nextRequired, err := stepParams(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	hypothesis := strings.TrimSpace(req.GetString("hypothesis", ""))
	confidence := req.GetString("confidence", "exploring")
	if !validConfidence(confidence) {
		return mcp.NewToolResultError(fmt.Sprintf(
			"'confidence' must be one of: %s", strings.Join(debugConfidence, ", "))), nil
	}
	relevantFiles := stringSliceArg(req, "relevant_files")
	continuationID := req.GetString("continuation_id", "")

	threadID := ensureThread(t.conv, "debug", continuationID)
	prior := resumeContext(t.conv, continuationID)
	state := t.tracker.rehydrate(t.conv, threadID, "debug")
	state.TotalSteps = totalSteps
	state.addStep(step)

	if hypothesis != "" {
		state.Hypotheses = append(state.Hypotheses, hypothesisRecord{
			Step: step.Number, Hypothesis: hypothesis, Confidence: confidence,
		})
	}
	for _, f := range relevantFiles {
		state.addFile(f)
	}

	var sb strings.Builder
	if !nextRequired {
		sb.WriteString("# Investigation Complete\n\n")
		sb.WriteString("## Evidence Trail\n\n")
		sb.WriteString(state.summary())
		sb.WriteString(formatHypotheses(state.Hypotheses))
		if len(state.Files) > 0 {
			sb.WriteString("## Implicated Files\n\n")
			sb.WriteString(bulletList(state.Files, ""))
			sb.WriteString("\n\n")
		}
		sb.WriteString("## Next Actions\n\n")
		sb.WriteString("1. Present the root cause with the supporting evidence chain\n")
		sb.WriteString("2. Propose the minimal fix that addresses the cause, not the symptom\n")
		sb.WriteString("3. Identify a regression test that would have caught this bug\n")
	} else {
		fmt.Fprintf(&sb, "# Investigation Step %d of ~%d Recorded\n\n", step.Number, state.TotalSteps)
		if hypothesis != "" {
			fmt.Fprintf(&sb, "**Current hypothesis** (%s): %s\n\n", confidence, hypothesis)
		}
		sb.WriteString("## Required Actions\n\n")
		sb.WriteString("1. Examine the code paths suggested by the current evidence — do not guess\n")
		sb.WriteString("2. Record CONCRETE findings (exact lines, log output, stack frames)\n")
		sb.WriteString("3. Update the hypothesis and confidence as evidence accumulates\n")
		sb.WriteString("4. If confidence reaches 'certain', finish with next_step_required=false\n")
	}

	report := sb.String()
	if t.conv != nil {
		_ = t.conv.AddTurn(threadID, "debug", "user", fmt.Sprintf("step %d: %s", step.Number, step.Content))
		_ = t.conv.AddTurn(threadID, "debug", "tool", report)
	}
	if nextRequired {
		persistWorkflowState(t.conv, threadID, "debug", state)
	} else {
		t.tracker.drop(threadID)
		persistWorkflowState(t.conv, threadID, "debug", &workflowState{Tool: "debug"})
	}

	return mcp.NewToolResultText(prior + report + continuationFooter(threadID)), nil
}

func validConfidence(c string) bool {
	for _, v := range debugConfidence {
		if c == v {
			return true
		}
	}
	return false
}

// formatHypotheses renders the hypothesis evolution as markdown.
func formatHypotheses(hyps []hypothesisRecord) string {
	if len(hyps) == 0 {
		return ""
	}
	var sb strings.Builder
	sb.WriteString("## Hypothesis Evolution\n\n")
	for _, h := range hyps {
		fmt.Fprintf(&sb, "- Step %d (%s): %s\n", h.Step, h.Confidence, h.Hypothesis)
	}
	sb.WriteString("\n")
	return sb.String()
}
