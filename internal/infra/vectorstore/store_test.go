package vectorstore

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/pgvector/pgvector-go"

	"breakerkit/pkg/breaker"
)

func newStore(t *testing.T) (*Store, *breaker.Registry, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create mock db: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	reg, err := breaker.NewRegistry(breaker.Config{})
	if err != nil {
		t.Fatalf("NewRegistry() error = %v", err)
	}

	store, err := New(reg, db)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return store, reg, mock
}

func TestStore_Upsert(t *testing.T) {
	store, _, mock := newStore(t)

	embedding := []float32{0.1, 0.2, 0.3}
	mock.ExpectExec("INSERT INTO documents").
		WithArgs(int64(1), "hello", pgvector.NewVector(embedding)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := store.Upsert(context.Background(), &Document{
		ID:        1,
		Content:   "hello",
		Embedding: embedding,
	})
	if err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestStore_UpsertValidation(t *testing.T) {
	store, _, _ := newStore(t)
	ctx := context.Background()

	if err := store.Upsert(ctx, nil); err == nil {
		t.Error("expected error for nil document")
	}
	if err := store.Upsert(ctx, &Document{ID: 1, Content: "x"}); err == nil {
		t.Error("expected error for empty embedding")
	}
}

func TestStore_SearchSimilar(t *testing.T) {
	store, _, mock := newStore(t)

	rows := sqlmock.NewRows([]string{"id", "content", "distance"}).
		AddRow(2, "closest", 0.05).
		AddRow(7, "further", 0.31)
	mock.ExpectQuery("SELECT id, content, embedding").WillReturnRows(rows)

	matches, err := store.SearchSimilar(context.Background(), []float32{0.1, 0.2}, 5)
	if err != nil {
		t.Fatalf("SearchSimilar() error = %v", err)
	}

	if len(matches) != 2 {
		t.Fatalf("got %d matches, want 2", len(matches))
	}
	if matches[0].ID != 2 || matches[0].Distance != 0.05 {
		t.Errorf("first match = %+v, want id=2 distance=0.05", matches[0])
	}
	if matches[1].Content != "further" {
		t.Errorf("second match content = %q, want further", matches[1].Content)
	}
}

func TestStore_SearchSimilarEmptyEmbedding(t *testing.T) {
	store, _, _ := newStore(t)

	if _, err := store.SearchSimilar(context.Background(), nil, 5); err == nil {
		t.Error("expected error for empty embedding")
	}
}

func TestStore_SearchSimilarLimitClamped(t *testing.T) {
	store, _, mock := newStore(t)

	// Both a non-positive and an oversized limit must be normalized before
	// reaching the database.
	mock.ExpectQuery("SELECT id, content, embedding").
		WithArgs(pgvector.NewVector([]float32{0.5}), defaultSearchLimit).
		WillReturnRows(sqlmock.NewRows([]string{"id", "content", "distance"}))
	mock.ExpectQuery("SELECT id, content, embedding").
		WithArgs(pgvector.NewVector([]float32{0.5}), maxSearchLimit).
		WillReturnRows(sqlmock.NewRows([]string{"id", "content", "distance"}))

	ctx := context.Background()
	if _, err := store.SearchSimilar(ctx, []float32{0.5}, 0); err != nil {
		t.Fatalf("SearchSimilar(limit=0) error = %v", err)
	}
	if _, err := store.SearchSimilar(ctx, []float32{0.5}, 10000); err != nil {
		t.Fatalf("SearchSimilar(limit=10000) error = %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestStore_Delete(t *testing.T) {
	store, _, mock := newStore(t)

	mock.ExpectExec("DELETE FROM documents").
		WithArgs(int64(42)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	count, err := store.Delete(context.Background(), 42)
	if err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if count != 1 {
		t.Errorf("deleted rows = %d, want 1", count)
	}
}

func TestStore_FailsFastWhenOpen(t *testing.T) {
	store, reg, _ := newStore(t)

	b, exists := reg.Get(Circuit)
	if !exists {
		t.Fatal("expected vector-store breaker to be registered")
	}
	b.ForceOpen()

	// No mock expectations: the query must never reach the database.
	_, err := store.SearchSimilar(context.Background(), []float32{0.1}, 3)
	if !errors.Is(err, breaker.ErrCircuitOpen) {
		t.Fatalf("error = %v, want ErrCircuitOpen", err)
	}

	if err := store.Ping(context.Background()); !errors.Is(err, breaker.ErrCircuitOpen) {
		t.Fatalf("Ping() error = %v, want ErrCircuitOpen", err)
	}
}
