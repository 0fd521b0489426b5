package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"GoEstateAI/app/domain"
	"GoEstateAI/app/logger"
)

var _ Interface = &SQLiteStorage{}

// SQLiteStorage persists threads in a single table keyed by (thread_id, id).
type SQLiteStorage struct {
	db    *sql.DB
	log   *logger.Logger
	locks *ThreadLocks
}

func NewSQLiteStorage(dbPath string, log *logger.Logger) (*SQLiteStorage, error) {
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), os.ModePerm); err != nil {
			return nil, fmt.Errorf("create data directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db at %s: %w", dbPath, err)
	}
	// one connection keeps :memory: databases shared and writes ordered
	db.SetMaxOpenConns(1)

	_, err = db.Exec(`
        PRAGMA busy_timeout = 5000;
        CREATE TABLE IF NOT EXISTS messages (
            id INTEGER NOT NULL,
            thread_id TEXT NOT NULL,
            role TEXT NOT NULL,
            content TEXT NOT NULL,
            created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
            PRIMARY KEY (thread_id, id)
        );
        CREATE INDEX IF NOT EXISTS idx_thread_id ON messages (thread_id);
    `)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create messages table: %w", err)
	}

	if log == nil {
		log = logger.NewNop()
	}
	log.Info("📂 conversation store ready", "backend", "sqlite", "path", dbPath)
	return &SQLiteStorage{db: db, log: log.With("component", "sqlite"), locks: NewThreadLocks()}, nil
}

func (s *SQLiteStorage) Append(ctx context.Context, threadID string, message domain.Message) error {
	if threadID == "" {
		return ErrEmptyThreadID
	}
	unlock := s.locks.Lock(threadID)
	defer unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin append: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var lastID int64
	if err = tx.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(id), 0) FROM messages WHERE thread_id = ?`, threadID,
	).Scan(&lastID); err != nil {
		return fmt.Errorf("last message id for thread %s: %w", threadID, err)
	}

	if _, err = tx.ExecContext(ctx,
		`INSERT INTO messages (id, thread_id, role, content, created_at) VALUES (?, ?, ?, ?, datetime(?))`,
		lastID+1, threadID, string(message.Role), message.Content, time.Now().UTC().Format("2006-01-02 15:04:05"),
	); err != nil {
		return fmt.Errorf("insert message for thread %s: %w", threadID, err)
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit append: %w", err)
	}
	s.log.Debug("💾 message saved", "thread", threadID, "id", lastID+1, "role", message.Role)
	return nil
}

func (s *SQLiteStorage) History(ctx context.Context, threadID string) ([]domain.Message, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT role, content FROM messages WHERE thread_id = ? ORDER BY id ASC`, threadID)
	if err != nil {
		return nil, fmt.Errorf("query history for thread %s: %w", threadID, err)
	}
	defer rows.Close()

	history := []domain.Message{}
	for rows.Next() {
		var role, content string
		if err = rows.Scan(&role, &content); err != nil {
			return nil, fmt.Errorf("scan message for thread %s: %w", threadID, err)
		}
		history = append(history, domain.Message{Role: domain.Role(role), Content: content})
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return history, nil
}

func (s *SQLiteStorage) Window(ctx context.Context, threadID string, policy WindowPolicy) ([]domain.Message, error) {
	history, err := s.History(ctx, threadID)
	if err != nil {
		return nil, err
	}
	return TrimWindow(history, policy), nil
}

func (s *SQLiteStorage) Threads(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT thread_id FROM messages ORDER BY thread_id`)
	if err != nil {
		return nil, fmt.Errorf("list threads: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err = rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}
