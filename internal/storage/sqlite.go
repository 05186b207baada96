package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite" // SQLite driver registration.

	"outage_bot/internal/model"
	"outage_bot/migrations"
)

const timeLayout = "2006-01-02T15:04:05Z"

// ErrNotFound is returned when a keyword id does not belong to the chat.
var ErrNotFound = errors.New("not found")

// SQLite implements Storage backed by a SQLite database.
type SQLite struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at dsn and runs pending migrations.
func NewSQLite(ctx context.Context, dsn string) (*SQLite, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// One connection keeps ":memory:" databases shared and serializes writers
	// from the bot and the scheduler.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}
	if _, err := db.ExecContext(ctx, "PRAGMA busy_timeout=5000"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set busy timeout: %w", err)
	}

	if _, err := migrations.Run(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &SQLite{db: db}, nil
}

// Close closes the underlying database connection.
func (s *SQLite) Close() error {
	return s.db.Close()
}

// UpsertChat registers a chat. Registering twice keeps the first timestamp.
func (s *SQLite) UpsertChat(ctx context.Context, chatID int64) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO chats (chat_id, created_at) VALUES (?, ?)`,
		chatID, now(),
	)
	if err != nil {
		return fmt.Errorf("upsert chat: %w", err)
	}
	return nil
}

// ListChats returns all chats, newest registration first.
func (s *SQLite) ListChats(ctx context.Context) ([]model.Chat, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT chat_id, created_at FROM chats ORDER BY created_at DESC, chat_id`,
	)
	if err != nil {
		return nil, fmt.Errorf("query chats: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var chats []model.Chat
	for rows.Next() {
		var c model.Chat
		var created string
		if err := rows.Scan(&c.ID, &created); err != nil {
			return nil, fmt.Errorf("scan chat: %w", err)
		}
		c.CreatedAt, _ = time.Parse(timeLayout, created)
		chats = append(chats, c)
	}
	return chats, rows.Err()
}

// ChatExists reports whether the chat has been registered.
func (s *SQLite) ChatExists(ctx context.Context, chatID int64) (bool, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM chats WHERE chat_id = ?`, chatID,
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("check chat: %w", err)
	}
	return count > 0, nil
}

// AddKeyword stores a trimmed keyword. It returns false when the keyword is
// blank or the chat already has it.
func (s *SQLite) AddKeyword(ctx context.Context, chatID int64, keyword string) (bool, error) {
	keyword = strings.TrimSpace(keyword)
	if keyword == "" {
		return false, nil
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO keywords (chat_id, keyword, created_at) VALUES (?, ?, ?)`,
		chatID, keyword, now(),
	)
	if err != nil {
		return false, fmt.Errorf("insert keyword: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n > 0, nil
}

// DeleteKeyword removes an exact keyword and reports whether it existed.
func (s *SQLite) DeleteKeyword(ctx context.Context, chatID int64, keyword string) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM keywords WHERE chat_id = ? AND keyword = ?`,
		chatID, strings.TrimSpace(keyword),
	)
	if err != nil {
		return false, fmt.Errorf("delete keyword: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n > 0, nil
}

// DeleteKeywordByID removes a keyword of the chat and returns its value.
func (s *SQLite) DeleteKeywordByID(ctx context.Context, chatID, id int64) (string, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var value string
	err = tx.QueryRowContext(ctx,
		`SELECT keyword FROM keywords WHERE id = ? AND chat_id = ?`, id, chatID,
	).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("get keyword: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM keywords WHERE id = ?`, id); err != nil {
		return "", fmt.Errorf("delete keyword: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("commit: %w", err)
	}
	return value, nil
}

// ListKeywords returns the chat's keywords in alphabetical order.
func (s *SQLite) ListKeywords(ctx context.Context, chatID int64) ([]model.Keyword, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, chat_id, keyword, created_at FROM keywords WHERE chat_id = ? ORDER BY keyword`, chatID,
	)
	if err != nil {
		return nil, fmt.Errorf("query keywords: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var kws []model.Keyword
	for rows.Next() {
		var k model.Keyword
		var created string
		if err := rows.Scan(&k.ID, &k.ChatID, &k.Value, &created); err != nil {
			return nil, fmt.Errorf("scan keyword: %w", err)
		}
		k.CreatedAt, _ = time.Parse(timeLayout, created)
		kws = append(kws, k)
	}
	return kws, rows.Err()
}

// GetSetting returns a stored value and whether it exists.
func (s *SQLite) GetSetting(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := s.db.QueryRowContext(ctx,
		`SELECT value FROM settings WHERE key = ?`, key,
	).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get setting %s: %w", key, err)
	}
	return value, true, nil
}

// SetSetting inserts or replaces a value.
func (s *SQLite) SetSetting(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO settings (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		key, value,
	)
	if err != nil {
		return fmt.Errorf("set setting %s: %w", key, err)
	}
	return nil
}

// HasSent checks whether a section was delivered to the chat under versionKey.
func (s *SQLite) HasSent(ctx context.Context, chatID int64, versionKey, fingerprint string) (bool, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM sent_sections WHERE chat_id = ? AND version_key = ? AND section_hash = ?`,
		chatID, versionKey, fingerprint,
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("check sent: %w", err)
	}
	return count > 0, nil
}

// MarkSent records a delivered section. Recording it twice is a no-op.
func (s *SQLite) MarkSent(ctx context.Context, chatID int64, versionKey, fingerprint, title string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO sent_sections (chat_id, version_key, section_hash, title, sent_at)
		 VALUES (?, ?, ?, ?, ?)`,
		chatID, versionKey, fingerprint, title, now(),
	)
	if err != nil {
		return fmt.Errorf("mark sent: %w", err)
	}
	return nil
}

// Stats returns the ledger size overall and per chat, busiest chat first.
func (s *SQLite) Stats(ctx context.Context) (model.Stats, error) {
	var st model.Stats
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM sent_sections`).Scan(&st.TotalSent); err != nil {
		return st, fmt.Errorf("count sent: %w", err)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT chat_id, COUNT(*) AS n FROM sent_sections GROUP BY chat_id ORDER BY n DESC, chat_id`,
	)
	if err != nil {
		return st, fmt.Errorf("query per chat: %w", err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var c model.ChatSentCount
		if err := rows.Scan(&c.ChatID, &c.Count); err != nil {
			return st, fmt.Errorf("scan per chat: %w", err)
		}
		st.PerChat = append(st.PerChat, c)
	}
	return st, rows.Err()
}

// Backup writes a consistent copy of the database to path. The file must
// not exist yet.
func (s *SQLite) Backup(ctx context.Context, path string) error {
	if _, err := s.db.ExecContext(ctx, `VACUUM INTO ?`, path); err != nil {
		return fmt.Errorf("vacuum into: %w", err)
	}
	return nil
}

func now() string {
	return time.Now().UTC().Format(timeLayout)
}
