package storage

import (
	"context"
	"database/sql"
	"fmt"
)

// InitSchema creates all necessary tables and indexes.
// Note: WAL mode is configured in db.go.
func InitSchema(db *sql.DB) error {
	if err := createUsersTable(db); err != nil {
		return err
	}

	if err := createChatsTable(db); err != nil {
		return err
	}

	if err := createChatMessagesTable(db); err != nil {
		return err
	}

	return createCourseEmbeddingsTable(db)
}

func createUsersTable(db *sql.DB) error {
	query := `
	CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		email TEXT,
		name TEXT,
		grade TEXT,
		concentration TEXT,
		certificates TEXT,
		past_courses TEXT,
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_users_email ON users(email);
	`

	if _, err := db.ExecContext(context.Background(), query); err != nil {
		return fmt.Errorf("failed to create users table: %w", err)
	}

	return nil
}

func createChatsTable(db *sql.DB) error {
	query := `
	CREATE TABLE IF NOT EXISTS chats (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		title TEXT,
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_chats_user ON chats(user_id, updated_at DESC);
	`

	if _, err := db.ExecContext(context.Background(), query); err != nil {
		return fmt.Errorf("failed to create chats table: %w", err)
	}

	return nil
}

// createChatMessagesTable creates the append-only conversation log.
// Messages are never updated or deleted individually; removing a chat
// cascades to its messages.
func createChatMessagesTable(db *sql.DB) error {
	query := `
	CREATE TABLE IF NOT EXISTS chat_messages (
		id TEXT PRIMARY KEY,
		chat_id TEXT NOT NULL REFERENCES chats(id) ON DELETE CASCADE,
		user_id TEXT NOT NULL,
		role TEXT NOT NULL CHECK(role IN ('user', 'model')),
		content TEXT NOT NULL,
		created_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_chat_messages_chat ON chat_messages(chat_id, created_at);
	`

	if _, err := db.ExecContext(context.Background(), query); err != nil {
		return fmt.Errorf("failed to create chat_messages table: %w", err)
	}

	return nil
}

// createCourseEmbeddingsTable creates the embedding store.
// Vectors are little-endian float32 blobs; model_id records the embedding
// model that produced the vector so mixed-model stores can be rejected.
func createCourseEmbeddingsTable(db *sql.DB) error {
	query := `
	CREATE TABLE IF NOT EXISTS course_embeddings (
		course_code TEXT PRIMARY KEY,
		model_id TEXT NOT NULL,
		source_text TEXT,
		vector BLOB NOT NULL,
		updated_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_course_embeddings_model ON course_embeddings(model_id);
	`

	if _, err := db.ExecContext(context.Background(), query); err != nil {
		return fmt.Errorf("failed to create course_embeddings table: %w", err)
	}

	return nil
}
