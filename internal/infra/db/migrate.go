package db

import "database/sql"

// MigrateUp creates the schema used by the vector document store.
func MigrateUp(db *sql.DB) error {
	// Ignore the error: the extension may already exist, or the role may
	// lack superuser rights on a managed instance where it is preinstalled.
	_, _ = db.Exec(`CREATE EXTENSION IF NOT EXISTS vector`)

	if _, err := db.Exec(`
CREATE TABLE IF NOT EXISTS documents (
    id         BIGINT PRIMARY KEY,
    content    TEXT NOT NULL,
    embedding  vector(1536),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`); err != nil {
		return err
	}

	// Approximate nearest neighbor index. Requires data to be present for
	// good list selection, so failure is non-fatal on an empty database.
	_, _ = db.Exec(`
CREATE INDEX IF NOT EXISTS idx_documents_embedding
    ON documents USING ivfflat (embedding vector_cosine_ops)
    WITH (lists = 100)`)

	return nil
}

// MigrateDown rolls back the schema.
// Use with caution: this deletes all stored documents.
func MigrateDown(db *sql.DB) error {
	dropStatements := []string{
		`DROP INDEX IF EXISTS idx_documents_embedding`,
		`DROP TABLE IF EXISTS documents CASCADE`,
	}

	for _, stmt := range dropStatements {
		if _, err := db.Exec(stmt); err != nil {
			return err
		}
	}

	return nil
}
