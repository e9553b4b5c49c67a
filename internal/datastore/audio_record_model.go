package datastore

import (
	"time"
)

// AudioRecord maps to the audio_records table. The primary key is the
// caller-supplied submission id, so writing the same id twice replaces
// the earlier row (last-writer-wins).
//
// The llm_groq and llm_mistral columns are nullable: when the required
// provider set is narrowed by configuration, the column of an unused
// provider stays NULL. The pointer fields marshal as plain strings and
// drop from the JSON payload when NULL. A record is only ever written
// after every required provider responded, so a row never holds
// partial results.
type AudioRecord struct {
	ID            int       `json:"id"`
	AudioPath     string    `json:"audio_path"`
	Prompt        string    `json:"prompt"`
	Transcription string    `json:"transcription"`
	LLMGroq       *string   `json:"llm_response_groq,omitempty"`
	LLMMistral    *string   `json:"llm_response_mistral,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}
