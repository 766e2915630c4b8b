package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/salvadorthebrown/zen-mcp-server-fixed/internal/conversation"
)

// PlannerTool handles the planner MCP tool.
// It structures interactive, step-by-step planning with support for
// branching into alternative approaches and revising earlier steps.
// The model plans; the tool keeps the plan coherent across steps.
type PlannerTool struct {
	conv    *conversation.Store
	tracker *workflowTracker
}

// NewPlannerTool creates a PlannerTool. conv may be nil.
func NewPlannerTool(conv *conversation.Store) *PlannerTool {
	return &PlannerTool{conv: conv, tracker: newWorkflowTracker()}
}

// Definition returns the MCP tool definition for registration.
func (t *PlannerTool) Definition() mcp.Tool {
	return mcp.NewTool("planner",
		withStepOptions(
			mcp.WithDescription(
				"Interactive step-by-step planner for complex tasks. "+
					"Break a task into sequential steps, branch into alternative approaches, "+
					"and revise earlier steps as understanding deepens. "+
					"Call once per planning step; set next_step_required=false to finish.",
			),
		)...,
	)
}

// Handle processes the planner tool call.
func (t *PlannerTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	step, totalSteps, nextRequired, err := stepParams(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	continuationID := req.GetString("continuation_id", "")

	threadID := ensureThread(t.conv, "planner", continuationID)
	prior := resumeContext(t.conv, continuationID)
	state := t.tracker.rehydrate(t.conv, threadID, "planner")
	state.TotalSteps = totalSteps
	state.addStep(step)

	var sb strings.Builder
	if !nextRequired {
		sb.WriteString("# Planning Complete\n\n")
		fmt.Fprintf(&sb, "%d step(s) recorded.\n\n", len(state.Steps))
		sb.WriteString("## Final Plan\n\n")
		sb.WriteString(state.summary())
		sb.WriteString("## Next Actions\n\n")
		sb.WriteString("Present the complete plan to the user in a clear, structured format. ")
		sb.WriteString("If the user asks to implement it, execute the steps in order and track progress.\n")
	} else {
		fmt.Fprintf(&sb, "# Planning Step %d of ~%d Recorded\n\n", step.Number, state.TotalSteps)
		if step.BranchID != "" {
			fmt.Fprintf(&sb, "Branch `%s` (from step %d) is being explored.\n\n", step.BranchID, step.BranchFrom)
		}
		if step.IsRevision {
			fmt.Fprintf(&sb, "Step %d has been revised.\n\n", step.RevisesStep)
		}
		sb.WriteString("## Required Actions\n\n")
		sb.WriteString("1. Think through the NEXT step of the plan before calling planner again\n")
		sb.WriteString("2. Consider dependencies between steps and what could be parallelized\n")
		sb.WriteString("3. Use branch_id to explore an alternative approach without losing this one\n")
		sb.WriteString("4. Use is_step_revision if new information invalidates an earlier step\n")
	}

	report := sb.String()
	if t.conv != nil {
		_ = t.conv.AddTurn(threadID, "planner", "user", fmt.Sprintf("step %d: %s", step.Number, step.Content))
		_ = t.conv.AddTurn(threadID, "planner", "tool", report)
	}
	if nextRequired {
		persistWorkflowState(t.conv, threadID, "planner", state)
	} else {
		t.tracker.drop(threadID)
		persistWorkflowState(t.conv, threadID, "planner", &workflowState{Tool: "planner"})
	}

	return mcp.NewToolResultText(prior + report + continuationFooter(threadID)), nil
}
