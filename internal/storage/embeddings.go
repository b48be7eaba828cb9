package storage

import (
	"context"
	"encoding/binary"
	"fmt"
	"log/slog"
	"math"
	"time"
)

// UpsertEmbedding stores or replaces the vector for a course.
func (db *DB) UpsertEmbedding(ctx context.Context, emb *CourseEmbedding) error {
	query := `
		INSERT INTO course_embeddings (course_code, model_id, source_text, vector, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(course_code) DO UPDATE SET
			model_id = excluded.model_id,
			source_text = excluded.source_text,
			vector = excluded.vector,
			updated_at = excluded.updated_at
	`
	_, err := db.conn.ExecContext(ctx, query,
		emb.CourseCode, emb.ModelID, emb.SourceText,
		encodeVector(emb.Vector), time.Now().UnixMilli())
	if err != nil {
		slog.ErrorContext(ctx, "failed to upsert embedding",
			"course_code", emb.CourseCode,
			"error", err)
		return fmt.Errorf("failed to upsert embedding: %w", err)
	}
	return nil
}

// GetAllEmbeddings loads every stored course embedding.
func (db *DB) GetAllEmbeddings(ctx context.Context) ([]*CourseEmbedding, error) {
	start := time.Now()
	rows, err := db.conn.QueryContext(ctx, `
		SELECT course_code, model_id, source_text, vector, updated_at
		FROM course_embeddings
	`)
	if err != nil {
		return nil, fmt.Errorf("get embeddings: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var embeddings []*CourseEmbedding
	for rows.Next() {
		var (
			emb       CourseEmbedding
			blob      []byte
			updatedAt int64
		)
		if err := rows.Scan(&emb.CourseCode, &emb.ModelID, &emb.SourceText, &blob, &updatedAt); err != nil {
			return nil, fmt.Errorf("scan embedding: %w", err)
		}
		vector, err := decodeVector(blob)
		if err != nil {
			return nil, fmt.Errorf("decode embedding for %s: %w", emb.CourseCode, err)
		}
		emb.Vector = vector
		emb.UpdatedAt = time.UnixMilli(updatedAt)
		embeddings = append(embeddings, &emb)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if duration := time.Since(start); duration > 100*time.Millisecond {
		slog.WarnContext(ctx, "slow database operation",
			"operation", "GetAllEmbeddings",
			"duration_ms", duration.Milliseconds(),
			"count", len(embeddings))
	}
	return embeddings, nil
}

// CountEmbeddings returns the number of stored course embeddings.
func (db *DB) CountEmbeddings(ctx context.Context) (int, error) {
	var count int
	err := db.conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM course_embeddings`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count embeddings: %w", err)
	}
	return count, nil
}

// encodeVector packs a float32 vector as a little-endian blob.
func encodeVector(v []float32) []byte {
	buf := make([]byte, 4*len(v))
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

// decodeVector unpacks a little-endian blob into a float32 vector.
func decodeVector(blob []byte) ([]float32, error) {
	if len(blob)%4 != 0 {
		return nil, fmt.Errorf("vector blob length %d is not a multiple of 4", len(blob))
	}
	v := make([]float32, len(blob)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(blob[i*4:]))
	}
	return v, nil
}
