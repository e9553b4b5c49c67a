package datastore

import (
	"database/sql"
	"fmt"

	// pq is the PostgreSQL driver
	_ "github.com/lib/pq"
)

// Open opens and verifies the database connection. The handle is owned
// by the caller and injected into Store; there is no package-level
// connection state.
func Open(dataSourceName string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dataSourceName)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err = db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return db, nil
}

// EnsureSchema creates the audio_records table if it does not exist.
func EnsureSchema(db *sql.DB) error {
	query := `
		CREATE TABLE IF NOT EXISTS audio_records (
			id            INTEGER PRIMARY KEY,
			audio_path    TEXT NOT NULL,
			prompt        TEXT,
			transcription TEXT,
			llm_groq      TEXT,
			llm_mistral   TEXT,
			created_at    TIMESTAMPTZ NOT NULL,
			updated_at    TIMESTAMPTZ NOT NULL
		)
	`
	if _, err := db.Exec(query); err != nil {
		return fmt.Errorf("failed to ensure audio_records schema: %w", err)
	}
	return nil
}

// Store provides access to persisted evaluation records.
type Store struct {
	db *sql.DB
}

// NewStore creates a Store over an open database handle.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}
