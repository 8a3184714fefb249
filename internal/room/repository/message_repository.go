package repository

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"sort"
	"strings"
	"time"

	"web_chat_service/internal/room/domain"
	"web_chat_service/pkg/database"

	"github.com/google/uuid"
)

//go:embed migrations/*.sql
var migrationFS embed.FS

// MessageRepository is the embedded per-room chat log.
type MessageRepository interface {
	// Migrate applies pending schema migrations; runs before the first frame.
	Migrate(ctx context.Context) error
	// Insert assigns a fresh time-sortable id, persists the row and returns it.
	Insert(ctx context.Context, userID string, msgType domain.MessageType, content string) (domain.Message, error)
	// RecentPage returns up to limit rows, newest first.
	RecentPage(ctx context.Context, limit int) ([]domain.Message, error)
	// PageBefore returns up to limit rows older than the cursor, newest first.
	PageBefore(ctx context.Context, before time.Time, limit int) ([]domain.Message, error)
	// Wipe deletes every row; used only on room deletion.
	Wipe(ctx context.Context) error
	Close() error
}

type sqliteMessageRepository struct {
	db *sql.DB
}

// NewSQLiteMessageRepository opens the room's sqlite file as its message log.
func NewSQLiteMessageRepository(path string) (MessageRepository, error) {
	db, err := database.NewSQLiteDB(path)
	if err != nil {
		return nil, err
	}
	return &sqliteMessageRepository{db: db}, nil
}

// Migrate applies the embedded migrations at most once per file, guarded by
// a schema_migrations table.
func (r *sqliteMessageRepository) Migrate(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			name TEXT PRIMARY KEY,
			applied_at INTEGER NOT NULL
		)`); err != nil {
		return fmt.Errorf("ensure migration table: %w", err)
	}

	entries, err := fs.ReadDir(migrationFS, "migrations")
	if err != nil {
		return fmt.Errorf("read migrations dir: %w", err)
	}
	var names []string
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".sql") {
			names = append(names, entry.Name())
		}
	}
	sort.Strings(names)

	for _, name := range names {
		var applied int
		err := r.db.QueryRowContext(ctx,
			`SELECT COUNT(1) FROM schema_migrations WHERE name = ?`, name).Scan(&applied)
		if err != nil {
			return fmt.Errorf("check migration %s: %w", name, err)
		}
		if applied > 0 {
			continue
		}

		content, err := fs.ReadFile(migrationFS, "migrations/"+name)
		if err != nil {
			return fmt.Errorf("read migration %s: %w", name, err)
		}

		tx, err := r.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin migration %s: %w", name, err)
		}
		if _, err := tx.ExecContext(ctx, string(content)); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("apply migration %s: %w", name, err)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO schema_migrations (name, applied_at) VALUES (?, ?)`,
			name, time.Now().UnixMilli()); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("record migration %s: %w", name, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration %s: %w", name, err)
		}
	}
	return nil
}

func (r *sqliteMessageRepository) Insert(ctx context.Context, userID string, msgType domain.MessageType, content string) (domain.Message, error) {
	if !msgType.Valid() {
		return domain.Message{}, fmt.Errorf("invalid message type %q", msgType)
	}

	// UUIDv7 embeds the creation time, so ids sort in insertion order and
	// break createdAt ties deterministically.
	id, err := uuid.NewV7()
	if err != nil {
		return domain.Message{}, fmt.Errorf("generate message id: %w", err)
	}

	msg := domain.Message{
		ID:        id.String(),
		Type:      msgType,
		Content:   content,
		UserID:    userID,
		CreatedAt: domain.NewTimestamp(time.Now()),
	}

	if _, err := r.db.ExecContext(ctx,
		`INSERT INTO message (id, content, userId, type, createdAt) VALUES (?, ?, ?, ?, ?)`,
		msg.ID, msg.Content, msg.UserID, string(msg.Type), msg.CreatedAt.UnixMilli(),
	); err != nil {
		return domain.Message{}, fmt.Errorf("insert message: %w", err)
	}

	return msg, nil
}

func (r *sqliteMessageRepository) RecentPage(ctx context.Context, limit int) ([]domain.Message, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, content, userId, type, createdAt FROM message
		 ORDER BY createdAt DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query recent page: %w", err)
	}
	return scanMessages(rows)
}

func (r *sqliteMessageRepository) PageBefore(ctx context.Context, before time.Time, limit int) ([]domain.Message, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, content, userId, type, createdAt FROM message
		 WHERE createdAt < ?
		 ORDER BY createdAt DESC, id DESC LIMIT ?`,
		before.UnixMilli(), limit)
	if err != nil {
		return nil, fmt.Errorf("query page before %d: %w", before.UnixMilli(), err)
	}
	return scanMessages(rows)
}

func (r *sqliteMessageRepository) Wipe(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM message`); err != nil {
		return fmt.Errorf("wipe messages: %w", err)
	}
	return nil
}

func (r *sqliteMessageRepository) Close() error {
	return r.db.Close()
}

func scanMessages(rows *sql.Rows) ([]domain.Message, error) {
	defer rows.Close()

	messages := []domain.Message{}
	for rows.Next() {
		var (
			msg       domain.Message
			msgType   string
			createdAt int64
		)
		if err := rows.Scan(&msg.ID, &msg.Content, &msg.UserID, &msgType, &createdAt); err != nil {
			return nil, fmt.Errorf("scan message row: %w", err)
		}
		msg.Type = domain.MessageType(msgType)
		msg.CreatedAt = domain.NewTimestamp(time.UnixMilli(createdAt))
		messages = append(messages, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate message rows: %w", err)
	}
	return messages, nil
}
