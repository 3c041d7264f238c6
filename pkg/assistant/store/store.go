package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"vesta-hq/vesta/pkg/config"
	"vesta-hq/vesta/pkg/telemetry/health"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // SQLite driver
)

// ErrNotFound is returned when a requested message does not exist.
var ErrNotFound = errors.New("message not found")

// Message is one stored conversation turn.
type Message struct {
	// ID uniquely identifies the message.
	ID string `json:"id"`

	// Conversation groups messages belonging to the same chat thread.
	Conversation string `json:"conversation"`

	// Role is "user" or "assistant".
	Role string `json:"role"`

	// Content is the message text.
	Content string `json:"content"`

	// TokensUsed is the LLM token count for assistant messages, 0 otherwise.
	TokensUsed int `json:"tokens_used"`

	// CreatedAt is when the message was recorded.
	CreatedAt time.Time `json:"created_at"`
}

// MessageStore persists conversation history in SQLite.
//
// MessageStore uses a write-ahead log (WAL) for better concurrent
// performance. SQLite only supports a single writer, so the connection
// pool is capped at one connection.
type MessageStore struct {
	db        *sql.DB
	path      string
	mu        sync.RWMutex
	closeOnce sync.Once

	saveStmt   *sql.Stmt
	getStmt    *sql.Stmt
	listStmt   *sql.Stmt
	recentStmt *sql.Stmt
	pruneStmt  *sql.Stmt
}

// Open opens (creating if necessary) the message store described by cfg.
func Open(cfg config.StoreConfig) (*MessageStore, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("store path cannot be empty")
	}
	busyTimeout := cfg.BusyTimeout
	if busyTimeout <= 0 {
		busyTimeout = config.DefaultBusyTimeout
	}

	dsn := fmt.Sprintf("%s?_journal_mode=WAL&_busy_timeout=%d&_synchronous=NORMAL",
		cfg.Path, int(busyTimeout.Milliseconds()))

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	s := &MessageStore{db: db, path: cfg.Path}

	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	if err := s.prepareStatements(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to prepare statements: %w", err)
	}

	return s, nil
}

func (s *MessageStore) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS messages (
		id TEXT PRIMARY KEY,
		conversation TEXT NOT NULL,
		role TEXT NOT NULL,
		content TEXT NOT NULL,
		tokens_used INTEGER NOT NULL DEFAULT 0,
		created_at INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_messages_conversation ON messages(conversation, created_at);
	CREATE INDEX IF NOT EXISTS idx_messages_created_at ON messages(created_at);
	`

	_, err := s.db.Exec(schema)
	return err
}

func (s *MessageStore) prepareStatements() error {
	var err error

	s.saveStmt, err = s.db.Prepare(`
		INSERT INTO messages (id, conversation, role, content, tokens_used, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare save statement: %w", err)
	}

	s.getStmt, err = s.db.Prepare(`
		SELECT id, conversation, role, content, tokens_used, created_at
		FROM messages
		WHERE id = ?
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare get statement: %w", err)
	}

	s.listStmt, err = s.db.Prepare(`
		SELECT id, conversation, role, content, tokens_used, created_at
		FROM messages
		WHERE conversation = ?
		ORDER BY created_at DESC, id DESC
		LIMIT ?
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare list statement: %w", err)
	}

	s.recentStmt, err = s.db.Prepare(`
		SELECT id, conversation, role, content, tokens_used, created_at
		FROM messages
		ORDER BY created_at DESC, id DESC
		LIMIT ?
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare recent statement: %w", err)
	}

	s.pruneStmt, err = s.db.Prepare(`
		DELETE FROM messages
		WHERE created_at < ?
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare prune statement: %w", err)
	}

	return nil
}

// Save persists a message. A missing ID is filled with a new UUID and a
// zero CreatedAt with the current time.
func (s *MessageStore) Save(ctx context.Context, msg *Message) error {
	if msg == nil {
		return fmt.Errorf("message cannot be nil")
	}
	if msg.Conversation == "" {
		return fmt.Errorf("conversation cannot be empty")
	}
	if msg.Role != "user" && msg.Role != "assistant" {
		return fmt.Errorf("unknown role %q", msg.Role)
	}

	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.saveStmt.ExecContext(ctx,
		msg.ID,
		msg.Conversation,
		msg.Role,
		msg.Content,
		msg.TokensUsed,
		msg.CreatedAt.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("failed to save message: %w", err)
	}
	return nil
}

// Get retrieves a message by ID. Returns ErrNotFound when no message
// with that ID exists.
func (s *MessageStore) Get(ctx context.Context, id string) (*Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	msg, err := scanMessage(s.getStmt.QueryRowContext(ctx, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load message: %w", err)
	}
	return msg, nil
}

// Conversation returns up to limit messages for a conversation, newest
// first.
func (s *MessageStore) Conversation(ctx context.Context, conversation string, limit int) ([]*Message, error) {
	if limit <= 0 {
		limit = 50
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.listStmt.QueryContext(ctx, conversation, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list conversation: %w", err)
	}
	defer rows.Close()

	return collectMessages(rows)
}

// Recent returns up to limit messages across all conversations, newest
// first.
func (s *MessageStore) Recent(ctx context.Context, limit int) ([]*Message, error) {
	if limit <= 0 {
		limit = 50
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.recentStmt.QueryContext(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list recent messages: %w", err)
	}
	defer rows.Close()

	return collectMessages(rows)
}

// PruneBefore deletes messages created before the cutoff and returns
// the number removed.
func (s *MessageStore) PruneBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.pruneStmt.ExecContext(ctx, cutoff.UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("failed to prune messages: %w", err)
	}
	return res.RowsAffected()
}

// Count returns the total number of stored messages.
func (s *MessageStore) Count(ctx context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var n int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM messages`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count messages: %w", err)
	}
	return n, nil
}

// Probe returns a health check function that verifies the database is
// reachable and writable metadata can be read.
func (s *MessageStore) Probe() health.CheckFunc {
	return func(ctx context.Context) (health.CheckResponse, error) {
		start := time.Now()
		n, err := s.Count(ctx)
		if err != nil {
			return health.CheckResponse{}, err
		}
		return health.CheckResponse{
			Message: fmt.Sprintf("%d messages", n),
			Details: map[string]any{
				"path":     s.path,
				"messages": n,
				"query_ms": time.Since(start).Milliseconds(),
			},
		}, nil
	}
}

// Close closes the store. It is safe to call more than once.
func (s *MessageStore) Close() error {
	var err error
	s.closeOnce.Do(func() {
		for _, stmt := range []*sql.Stmt{s.saveStmt, s.getStmt, s.listStmt, s.recentStmt, s.pruneStmt} {
			if stmt != nil {
				stmt.Close()
			}
		}
		err = s.db.Close()
	})
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMessage(row rowScanner) (*Message, error) {
	var msg Message
	var createdAt int64
	if err := row.Scan(&msg.ID, &msg.Conversation, &msg.Role, &msg.Content,
		&msg.TokensUsed, &createdAt); err != nil {
		return nil, err
	}
	msg.CreatedAt = time.UnixMilli(createdAt)
	return &msg, nil
}

func collectMessages(rows *sql.Rows) ([]*Message, error) {
	var out []*Message
	for rows.Next() {
		msg, err := scanMessage(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		out = append(out, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read messages: %w", err)
	}
	return out, nil
}
