// Package conversation implements zen's cross-tool continuation memory.
//
// Every tool accepts an optional continuation_id. When a thread exists,
// prior turns are replayed into the new report so the calling model keeps
// context across tool invocations and even across tools. Threads are
// persisted in SQLite so continuations survive server restarts.
package conversation

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// openDB is a package-level var to allow test injection.
var openDB = sql.Open

// Thread is a continuation thread spanning one or more tool calls.
type Thread struct {
	ID         string `json:"id"`
	ToolName   string `json:"tool_name"`
	CreatedAt  string `json:"created_at"`
	LastUsedAt string `json:"last_used_at"`
	TurnCount  int    `json:"turn_count"`
}

// StateRole marks machine-readable workflow snapshots stored on a
// thread. State turns are never replayed into conversation context.
const StateRole = "state"

// Turn is a single exchange recorded on a thread. Role is "user" for the
// request summary, "tool" for the report the tool produced, or StateRole
// for a workflow snapshot.
type Turn struct {
	ID        int64  `json:"id"`
	ThreadID  string `json:"thread_id"`
	ToolName  string `json:"tool_name"`
	Role      string `json:"role"`
	Content   string `json:"content"`
	CreatedAt string `json:"created_at"`
}

// Config holds conversation store settings.
type Config struct {
	DataDir  string
	TTL      time.Duration
	MaxTurns int
}

// Store is the continuation engine backed by SQLite.
type Store struct {
	db  *sql.DB
	cfg Config
}

// New creates a Store, creating the data directory if needed, opening
// SQLite with WAL mode, and running migrations.
func New(cfg Config) (*Store, error) {
	if cfg.MaxTurns <= 0 {
		cfg.MaxTurns = 50
	}
	if cfg.TTL <= 0 {
		cfg.TTL = 3 * time.Hour
	}
	if err := os.MkdirAll(cfg.DataDir, 0700); err != nil {
		return nil, fmt.Errorf("conversation: create data dir: %w", err)
	}

	dbPath := filepath.Join(cfg.DataDir, "conversations.db")
	db, err := openDB("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("conversation: open database: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA foreign_keys = ON",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("conversation: pragma %q: %w", p, err)
		}
	}

	s := &Store{db: db, cfg: cfg}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("conversation: migration: %w", err)
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
		CREATE TABLE IF NOT EXISTS threads (
			id           TEXT PRIMARY KEY,
			tool_name    TEXT NOT NULL,
			created_at   TEXT NOT NULL DEFAULT (datetime('now')),
			last_used_at TEXT NOT NULL DEFAULT (datetime('now'))
		);

		CREATE TABLE IF NOT EXISTS turns (
			id         INTEGER PRIMARY KEY AUTOINCREMENT,
			thread_id  TEXT NOT NULL,
			tool_name  TEXT NOT NULL,
			role       TEXT NOT NULL,
			content    TEXT NOT NULL,
			created_at TEXT NOT NULL DEFAULT (datetime('now')),
			FOREIGN KEY (thread_id) REFERENCES threads(id) ON DELETE CASCADE
		);

		CREATE INDEX IF NOT EXISTS idx_turns_thread  ON turns(thread_id);
		CREATE INDEX IF NOT EXISTS idx_threads_used  ON threads(last_used_at);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return err
	}
	return nil
}

// NewThread creates a continuation thread and returns its ID.
func (s *Store) NewThread(toolName string) (string, error) {
	id := uuid.NewString()
	_, err := s.db.Exec(
		`INSERT INTO threads (id, tool_name) VALUES (?, ?)`,
		id, toolName,
	)
	if err != nil {
		return "", fmt.Errorf("conversation: create thread: %w", err)
	}
	return id, nil
}

// Get returns the thread with the given ID, or nil if it does not exist
// or has expired.
func (s *Store) Get(threadID string) (*Thread, error) {
	row := s.db.QueryRow(`
		SELECT t.id, t.tool_name, t.created_at, t.last_used_at,
		       (SELECT COUNT(*) FROM turns WHERE thread_id = t.id)
		FROM threads t
		WHERE t.id = ? AND t.last_used_at >= datetime('now', ?)
	`, threadID, fmt.Sprintf("-%d seconds", int(s.cfg.TTL.Seconds())))

	var th Thread
	if err := row.Scan(&th.ID, &th.ToolName, &th.CreatedAt, &th.LastUsedAt, &th.TurnCount); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("conversation: get thread: %w", err)
	}
	return &th, nil
}

// AddTurn records an exchange on a thread and bumps last_used_at.
// When the thread exceeds MaxTurns, the oldest turns are dropped.
func (s *Store) AddTurn(threadID, toolName, role, content string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("conversation: begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(
		`INSERT INTO turns (thread_id, tool_name, role, content) VALUES (?, ?, ?, ?)`,
		threadID, toolName, role, content,
	); err != nil {
		return fmt.Errorf("conversation: add turn: %w", err)
	}

	if _, err := tx.Exec(
		`UPDATE threads SET last_used_at = datetime('now') WHERE id = ?`,
		threadID,
	); err != nil {
		return fmt.Errorf("conversation: touch thread: %w", err)
	}

	// Enforce the turn cap, oldest first.
	if _, err := tx.Exec(`
		DELETE FROM turns WHERE thread_id = ? AND id NOT IN (
			SELECT id FROM turns WHERE thread_id = ?
			ORDER BY id DESC LIMIT ?
		)
	`, threadID, threadID, s.cfg.MaxTurns); err != nil {
		return fmt.Errorf("conversation: trim turns: %w", err)
	}

	return tx.Commit()
}

// History returns the turns of a thread in chronological order.
func (s *Store) History(threadID string) ([]Turn, error) {
	rows, err := s.db.Query(`
		SELECT id, thread_id, tool_name, role, content, created_at
		FROM turns WHERE thread_id = ? ORDER BY id ASC
	`, threadID)
	if err != nil {
		return nil, fmt.Errorf("conversation: history: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var turns []Turn
	for rows.Next() {
		var t Turn
		if err := rows.Scan(&t.ID, &t.ThreadID, &t.ToolName, &t.Role, &t.Content, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("conversation: scan turn: %w", err)
		}
		turns = append(turns, t)
	}
	return turns, rows.Err()
}

// Expire deletes threads whose last use is older than the TTL.
// Returns the number of threads removed.
func (s *Store) Expire() (int64, error) {
	res, err := s.db.Exec(
		`DELETE FROM threads WHERE last_used_at < datetime('now', ?)`,
		fmt.Sprintf("-%d seconds", int(s.cfg.TTL.Seconds())),
	)
	if err != nil {
		return 0, fmt.Errorf("conversation: expire: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

// FormatHistory renders prior turns as a markdown section a tool can
// prepend to its report. State snapshots are skipped. Returns "" when
// there is nothing to replay.
func FormatHistory(turns []Turn) string {
	var sb strings.Builder
	replayed := 0
	for _, t := range turns {
		switch t.Role {
		case StateRole:
			continue
		case "user":
			fmt.Fprintf(&sb, "**Request** (%s): %s\n\n", t.ToolName, t.Content)
		default:
			fmt.Fprintf(&sb, "**%s said**:\n\n%s\n\n", t.ToolName, t.Content)
		}
		replayed++
	}
	if replayed == 0 {
		return ""
	}
	return "## Previous Conversation Context\n\n" + sb.String() + "---\n\n"
}
