package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	apperrors "github.com/tigertalks/tigertalks-go/internal/errors"
)

// CreateChat inserts a new conversation.
func (db *DB) CreateChat(ctx context.Context, chat *Chat) error {
	query := `
		INSERT INTO chats (id, user_id, title, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
	`
	now := time.Now().UnixMilli()
	_, err := db.conn.ExecContext(ctx, query, chat.ID, chat.UserID, chat.Title, now, now)
	if err != nil {
		slog.ErrorContext(ctx, "failed to create chat",
			"chat_id", chat.ID,
			"error", err)
		return fmt.Errorf("failed to create chat: %w", err)
	}
	chat.CreatedAt = time.UnixMilli(now)
	chat.UpdatedAt = time.UnixMilli(now)
	return nil
}

// GetChat retrieves a conversation by ID.
// Returns ErrNotFound when no such chat exists.
func (db *DB) GetChat(ctx context.Context, id string) (*Chat, error) {
	query := `SELECT id, user_id, title, created_at, updated_at FROM chats WHERE id = ?`

	var (
		chat      Chat
		createdAt int64
		updatedAt int64
	)
	err := db.conn.QueryRowContext(ctx, query, id).Scan(
		&chat.ID, &chat.UserID, &chat.Title, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("chat %s: %w", id, apperrors.ErrNotFound)
	}
	if err != nil {
		slog.ErrorContext(ctx, "failed to query chat",
			"chat_id", id,
			"error", err)
		return nil, fmt.Errorf("query chat: %w", err)
	}
	chat.CreatedAt = time.UnixMilli(createdAt)
	chat.UpdatedAt = time.UnixMilli(updatedAt)
	return &chat, nil
}

// ListChats returns a user's conversations, most recently updated first.
func (db *DB) ListChats(ctx context.Context, userID string) ([]*Chat, error) {
	query := `
		SELECT id, user_id, title, created_at, updated_at
		FROM chats WHERE user_id = ?
		ORDER BY updated_at DESC
	`
	rows, err := db.conn.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("list chats: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var chats []*Chat
	for rows.Next() {
		var (
			chat      Chat
			createdAt int64
			updatedAt int64
		)
		if err := rows.Scan(&chat.ID, &chat.UserID, &chat.Title, &createdAt, &updatedAt); err != nil {
			return nil, fmt.Errorf("scan chat: %w", err)
		}
		chat.CreatedAt = time.UnixMilli(createdAt)
		chat.UpdatedAt = time.UnixMilli(updatedAt)
		chats = append(chats, &chat)
	}
	return chats, rows.Err()
}

// DeleteChat removes a conversation and its messages.
// Returns ErrNotFound when no such chat exists.
func (db *DB) DeleteChat(ctx context.Context, id string) error {
	result, err := db.conn.ExecContext(ctx, `DELETE FROM chats WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete chat: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete chat: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("chat %s: %w", id, apperrors.ErrNotFound)
	}
	return nil
}

// AppendMessage adds one turn to the conversation log and bumps the chat's
// updated_at. The log is append-only.
func (db *DB) AppendMessage(ctx context.Context, msg *Message) error {
	if msg.Role != RoleUser && msg.Role != RoleModel {
		return fmt.Errorf("%w: invalid message role %q", apperrors.ErrInvalidInput, msg.Role)
	}

	start := time.Now()
	now := time.Now().UnixMilli()
	if !msg.CreatedAt.IsZero() {
		now = msg.CreatedAt.UnixMilli()
	}

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin append message: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO chat_messages (id, chat_id, user_id, role, content, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, msg.ID, msg.ChatID, msg.UserID, msg.Role, msg.Content, now)
	if err != nil {
		slog.ErrorContext(ctx, "failed to append message",
			"chat_id", msg.ChatID,
			"role", msg.Role,
			"error", err)
		return fmt.Errorf("failed to append message: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `UPDATE chats SET updated_at = ? WHERE id = ?`, now, msg.ChatID); err != nil {
		return fmt.Errorf("failed to touch chat: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit append message: %w", err)
	}
	msg.CreatedAt = time.UnixMilli(now)

	if duration := time.Since(start); duration > 100*time.Millisecond {
		slog.WarnContext(ctx, "slow database operation",
			"operation", "AppendMessage",
			"duration_ms", duration.Milliseconds(),
			"chat_id", msg.ChatID)
	}
	return nil
}

// GetMessages returns a conversation's messages in chronological order.
func (db *DB) GetMessages(ctx context.Context, chatID string) ([]*Message, error) {
	query := `
		SELECT id, chat_id, user_id, role, content, created_at
		FROM chat_messages WHERE chat_id = ?
		ORDER BY created_at, rowid
	`
	rows, err := db.conn.QueryContext(ctx, query, chatID)
	if err != nil {
		return nil, fmt.Errorf("get messages: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var messages []*Message
	for rows.Next() {
		var (
			msg       Message
			createdAt int64
		)
		if err := rows.Scan(&msg.ID, &msg.ChatID, &msg.UserID, &msg.Role, &msg.Content, &createdAt); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		msg.CreatedAt = time.UnixMilli(createdAt)
		messages = append(messages, &msg)
	}
	return messages, rows.Err()
}
