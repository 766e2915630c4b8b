package tools

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/salvadorthebrown/zen-mcp-server-fixed/internal/conversation"
	"github.com/salvadorthebrown/zen-mcp-server-fixed/internal/zlog"
)

// staleWorkflowAfter bounds how long abandoned in-memory workflow state
// is kept. Longer than the default thread TTL so live threads never lose
// state before they expire.
const staleWorkflowAfter = 6 * time.Hour

// workflowStep is one step of a multi-step tool workflow (planner,
// debug, codereview, secaudit). Steps arrive from the calling model,
// which does the actual thinking — the tool tracks and structures them.
type workflowStep struct {
	Number      int    `json:"number"`
	Content     string `json:"content"`
	Findings    string `json:"findings,omitempty"`
	IsRevision  bool   `json:"is_revision,omitempty"`
	RevisesStep int    `json:"revises_step,omitempty"`
	BranchID    string `json:"branch_id,omitempty"`
	BranchFrom  int    `json:"branch_from,omitempty"`
}

// workflowState accumulates the steps of one workflow thread, plus the
// tool-specific records that must survive alongside them (debug
// hypotheses and files, review findings). It is the unit of persistence:
// snapshots of it are stored on the thread so a workflow resumes intact
// after a server restart.
type workflowState struct {
	Tool       string             `json:"tool"`
	TotalSteps int                `json:"total_steps"`
	Steps      []workflowStep     `json:"steps,omitempty"`
	Hypotheses []hypothesisRecord `json:"hypotheses,omitempty"`
	Files      []string           `json:"files,omitempty"`
	Findings   []reviewFinding    `json:"findings,omitempty"`
}

// addStep appends or, for revisions, replaces a step.
func (s *workflowState) addStep(step workflowStep) {
	if step.IsRevision && step.RevisesStep > 0 {
		for i := range s.Steps {
			if s.Steps[i].Number == step.RevisesStep && s.Steps[i].BranchID == step.BranchID {
				s.Steps[i] = step
				return
			}
		}
	}
	s.Steps = append(s.Steps, step)
}

// addFile records an implicated file, deduplicated.
func (s *workflowState) addFile(path string) {
	for _, f := range s.Files {
		if f == path {
			return
		}
	}
	s.Files = append(s.Files, path)
}

// summary renders the full step history as markdown.
func (s *workflowState) summary() string {
	var sb strings.Builder
	for _, step := range s.Steps {
		label := fmt.Sprintf("Step %d", step.Number)
		if step.BranchID != "" {
			label += fmt.Sprintf(" [branch %s from step %d]", step.BranchID, step.BranchFrom)
		}
		if step.IsRevision {
			label += fmt.Sprintf(" (revises step %d)", step.RevisesStep)
		}
		fmt.Fprintf(&sb, "### %s\n\n%s\n\n", label, step.Content)
		if step.Findings != "" {
			fmt.Fprintf(&sb, "**Findings:** %s\n\n", step.Findings)
		}
	}
	return sb.String()
}

// trackedState wraps workflow state with its last-use time so abandoned
// threads can be pruned.
type trackedState struct {
	state    *workflowState
	lastUsed time.Time
}

// workflowTracker holds in-flight workflow state keyed by thread ID.
// The conversation store holds the durable copy (state snapshots);
// the tracker is the working set for the current server run.
type workflowTracker struct {
	mu     sync.Mutex
	states map[string]*trackedState
}

func newWorkflowTracker() *workflowTracker {
	return &workflowTracker{states: map[string]*trackedState{}}
}

// state returns the in-memory workflow state for a thread, creating it
// if needed.
func (w *workflowTracker) state(threadID, tool string) *workflowState {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.stateLocked(threadID, tool)
}

func (w *workflowTracker) stateLocked(threadID, tool string) *workflowState {
	e, ok := w.states[threadID]
	if !ok {
		e = &trackedState{state: &workflowState{Tool: tool}}
		w.states[threadID] = e
	}
	e.lastUsed = time.Now()
	return e.state
}

// rehydrate returns the workflow state for a thread, rebuilding it from
// the thread's last persisted snapshot when the tracker has none — the
// case after a server restart mid-workflow. Stale tracker entries are
// pruned on the way.
func (w *workflowTracker) rehydrate(store *conversation.Store, threadID, tool string) *workflowState {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.pruneLocked(time.Now())

	if e, ok := w.states[threadID]; ok {
		e.lastUsed = time.Now()
		return e.state
	}
	st := w.stateLocked(threadID, tool)
	if store == nil {
		return st
	}

	turns, err := store.History(threadID)
	if err != nil {
		return st
	}
	for i := len(turns) - 1; i >= 0; i-- {
		turn := turns[i]
		if turn.Role != conversation.StateRole || turn.ToolName != tool {
			continue
		}
		var snap workflowState
		if err := json.Unmarshal([]byte(turn.Content), &snap); err == nil {
			snap.Tool = tool
			*st = snap
		}
		break
	}
	return st
}

// drop removes completed workflow state.
func (w *workflowTracker) drop(threadID string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	delete(w.states, threadID)
}

// pruneLocked discards in-memory state for threads idle longer than the
// retention window; their durable snapshot expires with the thread.
func (w *workflowTracker) pruneLocked(now time.Time) {
	for id, e := range w.states {
		if now.Sub(e.lastUsed) > staleWorkflowAfter {
			delete(w.states, id)
		}
	}
}

// persistWorkflowState snapshots workflow state onto the thread so a
// restarted server can resume the workflow. Completion persists an empty
// state so a later workflow on the same thread starts clean.
func persistWorkflowState(store *conversation.Store, threadID, tool string, st *workflowState) {
	if store == nil {
		return
	}
	data, err := json.Marshal(st)
	if err != nil {
		return
	}
	if err := store.AddTurn(threadID, tool, conversation.StateRole, string(data)); err != nil {
		log := zlog.WithComponent("tools")
		log.Warn().Err(err).Str("thread", threadID).Msg("workflow snapshot save failed")
	}
}

// ensureThread resolves the continuation thread for a workflow call,
// creating one when the ID is empty or stale. Falls back to a local
// UUID when the conversation store is unavailable so multi-step state
// still works within a single server run.
func ensureThread(store *conversation.Store, tool, continuationID string) string {
	if store == nil {
		if continuationID != "" {
			return continuationID
		}
		return uuid.NewString()
	}
	if continuationID != "" {
		if thread, err := store.Get(continuationID); err == nil && thread != nil {
			return continuationID
		}
	}
	id, err := store.NewThread(tool)
	if err != nil {
		return uuid.NewString()
	}
	return id
}

// stepParams reads the shared step-workflow parameters from a request.
func stepParams(req mcp.CallToolRequest) (step workflowStep, totalSteps int, nextRequired bool, err error) {
	content := strings.TrimSpace(req.GetString("step", ""))
	if content == "" {
		return workflowStep{}, 0, false, fmt.Errorf("'step' is required — describe the current step")
	}
	number := intArg(req, "step_number", 0)
	if number < 1 {
		return workflowStep{}, 0, false, fmt.Errorf("'step_number' is required and must be >= 1")
	}
	totalSteps = intArg(req, "total_steps", number)
	if totalSteps < number {
		totalSteps = number
	}

	step = workflowStep{
		Number:      number,
		Content:     content,
		Findings:    strings.TrimSpace(req.GetString("findings", "")),
		IsRevision:  boolArg(req, "is_step_revision", false),
		RevisesStep: intArg(req, "revises_step_number", 0),
		BranchID:    req.GetString("branch_id", ""),
		BranchFrom:  intArg(req, "branch_from_step", 0),
	}
	nextRequired = boolArg(req, "next_step_required", true)
	return step, totalSteps, nextRequired, nil
}

// withStepOptions appends the shared step-workflow parameters to a tool
// definition.
func withStepOptions(opts ...mcp.ToolOption) []mcp.ToolOption {
	shared := []mcp.ToolOption{
		mcp.WithString("step",
			mcp.Required(),
			mcp.Description("The content of the current step — your work for this stage"),
		),
		mcp.WithNumber("step_number",
			mcp.Required(),
			mcp.Description("Index of the current step (starts at 1)"),
		),
		mcp.WithNumber("total_steps",
			mcp.Description("Current estimate of total steps needed (adjustable as you go)"),
		),
		mcp.WithBoolean("next_step_required",
			mcp.Required(),
			mcp.Description("True if another step follows; false to finish and get the consolidated report"),
		),
		mcp.WithBoolean("is_step_revision",
			mcp.Description("True when this step revises a previous one"),
		),
		mcp.WithNumber("revises_step_number",
			mcp.Description("The step number being revised (with is_step_revision)"),
		),
		mcp.WithString("branch_id",
			mcp.Description("Identifier for an alternative exploration branch (e.g. 'approach-b')"),
		),
		mcp.WithNumber("branch_from_step",
			mcp.Description("The step number this branch diverges from"),
		),
		mcp.WithString("continuation_id",
			mcp.Description(continuationParam),
		),
	}
	return append(opts, shared...)
}
