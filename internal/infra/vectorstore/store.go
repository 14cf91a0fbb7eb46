// Package vectorstore provides a circuit breaker protected document store
// backed by PostgreSQL with the pgvector extension. Similarity searches and
// writes share one breaker, so a degraded vector index fails fast for all
// callers at once.
package vectorstore

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/pgvector/pgvector-go"

	"breakerkit/internal/infra/sqlguard"
	"breakerkit/pkg/breaker"
)

// Circuit is the breaker name used for vector store operations.
const Circuit = "vector-store"

// DefaultSearchTimeout bounds a single similarity search.
const DefaultSearchTimeout = 5 * time.Second

// defaultSearchLimit applies when a caller passes a non-positive limit.
const defaultSearchLimit = 10

// maxSearchLimit caps the number of results a single search may request.
const maxSearchLimit = 100

// Document is a stored document with its embedding vector.
type Document struct {
	ID        int64
	Content   string
	Embedding []float32
	UpdatedAt time.Time
}

// Match is a search hit with its cosine distance to the query vector.
// Smaller distance means more similar.
type Match struct {
	ID       int64
	Content  string
	Distance float64
}

// Store persists documents and serves similarity searches over their
// embeddings. All queries run through a circuit breaker guarded database
// handle.
type Store struct {
	guard *sqlguard.Guard
}

// New creates a Store whose queries run through a breaker named
// "vector-store" registered in reg.
func New(reg *breaker.Registry, db *sql.DB) (*Store, error) {
	guard, err := sqlguard.NewWithConfig(reg, Circuit, db, breaker.VectorStoreConfig(), DefaultSearchTimeout)
	if err != nil {
		return nil, err
	}
	return &Store{guard: guard}, nil
}

// Upsert creates or replaces a document and its embedding.
func (s *Store) Upsert(ctx context.Context, doc *Document) error {
	if doc == nil {
		return fmt.Errorf("Upsert: document is nil")
	}
	if len(doc.Embedding) == 0 {
		return fmt.Errorf("Upsert: embedding is empty")
	}

	const query = `
INSERT INTO documents (id, content, embedding, updated_at)
VALUES ($1, $2, $3, NOW())
ON CONFLICT (id)
DO UPDATE SET
	content = EXCLUDED.content,
	embedding = EXCLUDED.embedding,
	updated_at = NOW()`

	_, err := s.guard.ExecContext(ctx, query, doc.ID, doc.Content, pgvector.NewVector(doc.Embedding))
	if err != nil {
		return fmt.Errorf("Upsert: %w", err)
	}

	return nil
}

// SearchSimilar returns up to limit documents ordered by cosine distance to
// the query embedding. A non-positive limit falls back to the default, and
// limits above the cap are clamped.
func (s *Store) SearchSimilar(ctx context.Context, embedding []float32, limit int) ([]Match, error) {
	if len(embedding) == 0 {
		return nil, fmt.Errorf("SearchSimilar: embedding is empty")
	}
	if limit <= 0 {
		limit = defaultSearchLimit
	}
	if limit > maxSearchLimit {
		limit = maxSearchLimit
	}

	const query = `
SELECT id, content, embedding <=> $1 AS distance
FROM documents
ORDER BY distance
LIMIT $2`

	rows, err := s.guard.QueryContext(ctx, query, pgvector.NewVector(embedding), limit)
	if err != nil {
		return nil, fmt.Errorf("SearchSimilar: %w", err)
	}
	defer func() { _ = rows.Close() }()

	matches := make([]Match, 0, limit)
	for rows.Next() {
		var m Match
		if err := rows.Scan(&m.ID, &m.Content, &m.Distance); err != nil {
			return nil, fmt.Errorf("SearchSimilar: Scan: %w", err)
		}
		matches = append(matches, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("SearchSimilar: %w", err)
	}

	return matches, nil
}

// Delete removes a document. It returns the number of deleted rows.
func (s *Store) Delete(ctx context.Context, id int64) (int64, error) {
	result, err := s.guard.ExecContext(ctx, `DELETE FROM documents WHERE id = $1`, id)
	if err != nil {
		return 0, fmt.Errorf("Delete: %w", err)
	}

	count, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("Delete: RowsAffected: %w", err)
	}

	return count, nil
}

// Ping verifies connectivity through the breaker, for recovery probes.
func (s *Store) Ping(ctx context.Context) error {
	return s.guard.PingContext(ctx)
}
