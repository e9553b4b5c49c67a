package datastore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// ErrRecordNotFound is returned when no record exists for an id.
var ErrRecordNotFound = errors.New("audio record not found")

// UpsertAudioRecord inserts the record or, when a row with the same id
// already exists, replaces it entirely. This mirrors the merge-by-
// primary-key semantics the evaluation pipeline relies on: a caller
// re-submitting an id overwrites the earlier evaluation.
func (s *Store) UpsertAudioRecord(ctx context.Context, record *AudioRecord) error {
	query := `
		INSERT INTO audio_records (
			id, audio_path, prompt, transcription, llm_groq, llm_mistral,
			created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE SET
			audio_path    = EXCLUDED.audio_path,
			prompt        = EXCLUDED.prompt,
			transcription = EXCLUDED.transcription,
			llm_groq      = EXCLUDED.llm_groq,
			llm_mistral   = EXCLUDED.llm_mistral,
			updated_at    = EXCLUDED.updated_at
	`
	now := time.Now()
	if record.CreatedAt.IsZero() {
		record.CreatedAt = now
	}
	record.UpdatedAt = now

	_, err := s.db.ExecContext(
		ctx,
		query,
		record.ID,
		record.AudioPath,
		record.Prompt,
		record.Transcription,
		record.LLMGroq,
		record.LLMMistral,
		record.CreatedAt,
		record.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert audio record %d: %w", record.ID, err)
	}
	return nil
}

// GetAudioRecord retrieves a single record by its submission id.
func (s *Store) GetAudioRecord(ctx context.Context, id int) (*AudioRecord, error) {
	query := `
		SELECT id, audio_path, prompt, transcription, llm_groq, llm_mistral,
		       created_at, updated_at
		FROM audio_records
		WHERE id = $1
	`
	record := &AudioRecord{}
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&record.ID,
		&record.AudioPath,
		&record.Prompt,
		&record.Transcription,
		&record.LLMGroq,
		&record.LLMMistral,
		&record.CreatedAt,
		&record.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: id %d", ErrRecordNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query audio record %d: %w", id, err)
	}
	return record, nil
}

// ListAudioRecords returns one page of records ordered newest-first by
// id, along with the total number of stored records.
func (s *Store) ListAudioRecords(ctx context.Context, skip, limit int) ([]*AudioRecord, int, error) {
	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM audio_records`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count audio records: %w", err)
	}

	query := `
		SELECT id, audio_path, prompt, transcription, llm_groq, llm_mistral,
		       created_at, updated_at
		FROM audio_records
		ORDER BY id DESC
		OFFSET $1 LIMIT $2
	`
	rows, err := s.db.QueryContext(ctx, query, skip, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query audio records: %w", err)
	}
	defer rows.Close()

	records := []*AudioRecord{}
	for rows.Next() {
		record := &AudioRecord{}
		if err := rows.Scan(
			&record.ID,
			&record.AudioPath,
			&record.Prompt,
			&record.Transcription,
			&record.LLMGroq,
			&record.LLMMistral,
			&record.CreatedAt,
			&record.UpdatedAt,
		); err != nil {
			return nil, 0, fmt.Errorf("failed to scan audio record row: %w", err)
		}
		records = append(records, record)
	}
	if err = rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("error during audio record rows iteration: %w", err)
	}

	return records, total, nil
}
