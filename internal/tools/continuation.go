package tools

import (
	"fmt"
	"strings"

	"github.com/salvadorthebrown/zen-mcp-server-fixed/internal/conversation"
	"github.com/salvadorthebrown/zen-mcp-server-fixed/internal/zlog"
)

// continuationParam is the shared description for the continuation_id
// parameter every tool accepts.
const continuationParam = "Thread ID to continue a previous conversation. " +
	"Omit to start a new thread; reuse the ID from a prior response to keep context."

// resumeContext returns the formatted prior turns for a continuation
// thread, or "" when the store is unavailable, the ID is empty, or the
// thread has expired. A stale ID is not an error — the tool simply
// starts fresh, which is what the caller wants anyway.
func resumeContext(store *conversation.Store, continuationID string) string {
	if store == nil || continuationID == "" {
		return ""
	}
	thread, err := store.Get(continuationID)
	if err != nil || thread == nil {
		return ""
	}
	turns, err := store.History(continuationID)
	if err != nil {
		log := zlog.WithComponent("tools")
		log.Warn().Err(err).Str("thread", continuationID).Msg("continuation history unavailable")
		return ""
	}
	return conversation.FormatHistory(turns)
}

// recordExchange persists a request/report pair on a thread, creating
// the thread when continuationID is empty or stale. Returns the thread
// ID for the report footer, or "" when continuation is disabled.
func recordExchange(store *conversation.Store, toolName, continuationID, request, report string) string {
	if store == nil {
		return ""
	}
	log := zlog.WithComponent("tools")

	threadID := continuationID
	if threadID != "" {
		if thread, err := store.Get(threadID); err != nil || thread == nil {
			threadID = ""
		}
	}
	if threadID == "" {
		id, err := store.NewThread(toolName)
		if err != nil {
			log.Warn().Err(err).Msg("continuation thread create failed")
			return ""
		}
		threadID = id
	}

	if err := store.AddTurn(threadID, toolName, "user", request); err != nil {
		log.Warn().Err(err).Msg("continuation save failed")
		return ""
	}
	if err := store.AddTurn(threadID, toolName, "tool", report); err != nil {
		log.Warn().Err(err).Msg("continuation save failed")
		return ""
	}
	return threadID
}

// continuationFooter renders the follow-up hint appended to reports.
func continuationFooter(threadID string) string {
	if threadID == "" {
		return ""
	}
	var sb strings.Builder
	sb.WriteString("\n---\n")
	fmt.Fprintf(&sb, "To continue this conversation, pass continuation_id: `%s`\n", threadID)
	return sb.String()
}
