package evaluation

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/amauricunha/smartnlp/internal/datastore"
	"github.com/amauricunha/smartnlp/internal/llm"
	"github.com/amauricunha/smartnlp/internal/metrics"
	"github.com/amauricunha/smartnlp/internal/objectstore"
	"github.com/amauricunha/smartnlp/internal/transcription"
)

// Transcriber converts stored audio to text.
type Transcriber interface {
	Transcribe(ctx context.Context, audioRef string) (string, error)
}

// RecordStore persists and reads evaluation records.
type RecordStore interface {
	UpsertAudioRecord(ctx context.Context, record *datastore.AudioRecord) error
	GetAudioRecord(ctx context.Context, id int) (*datastore.AudioRecord, error)
	ListAudioRecords(ctx context.Context, skip, limit int) ([]*datastore.AudioRecord, int, error)
}

// allowedExtensions is the audio format allow-list; everything else is
// rejected before any file artifact is created.
var allowedExtensions = map[string]bool{
	".wav":  true,
	".mp3":  true,
	".flac": true,
	".ogg":  true,
	".m4a":  true,
	".aac":  true,
	".webm": true,
}

// Submission is one end-to-end evaluation request: the student's audio
// plus its pedagogical context. Consumed once, never persisted as-is.
type Submission struct {
	ID       int
	Filename string
	Audio    []byte
	Fields   ContextFields
}

// Result is the bundle returned after a successful pipeline run.
type Result struct {
	ID            int
	AudioPath     string
	Prompt        string
	Transcription string
	Responses     map[string]string
}

// Service orchestrates the evaluation pipeline: persist audio,
// transcribe, build prompt, consult every required provider, persist
// the record. Any stage failure short-circuits the rest.
type Service struct {
	blobs       objectstore.Store
	transcriber Transcriber
	providers   map[string]llm.Provider
	required    []string
	store       RecordStore
	metrics     *metrics.Metrics
}

// NewService wires the orchestrator. required names the providers the
// upload pipeline must consult; each must be among the given providers.
func NewService(blobs objectstore.Store, transcriber Transcriber, providers []llm.Provider, required []string, store RecordStore, m *metrics.Metrics) (*Service, error) {
	byName := make(map[string]llm.Provider, len(providers))
	for _, p := range providers {
		byName[p.Name()] = p
	}
	for _, name := range required {
		if _, ok := byName[name]; !ok {
			return nil, fmt.Errorf("required provider %q is not registered", name)
		}
	}
	if len(required) == 0 {
		return nil, fmt.Errorf("at least one required provider must be configured")
	}
	return &Service{
		blobs:       blobs,
		transcriber: transcriber,
		providers:   byName,
		required:    required,
		store:       store,
		metrics:     m,
	}, nil
}

// ProviderNames returns the names of all registered providers.
func (s *Service) ProviderNames() []string {
	names := make([]string, 0, len(s.providers))
	for name := range s.providers {
		names = append(names, name)
	}
	return names
}

// RunEvaluation executes the full pipeline for one submission.
func (s *Service) RunEvaluation(ctx context.Context, sub Submission) (*Result, error) {
	start := time.Now()
	result, err := s.runEvaluation(ctx, sub)
	s.metrics.RecordEvaluation(outcomeLabel(err), time.Since(start).Seconds())
	return result, err
}

func (s *Service) runEvaluation(ctx context.Context, sub Submission) (*Result, error) {
	ext := strings.ToLower(filepath.Ext(sub.Filename))
	if !allowedExtensions[ext] {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}

	name := fmt.Sprintf("%d_%s%s", sub.ID, randomHex(), ext)
	audioRef, err := s.blobs.Save(ctx, name, bytes.NewReader(sub.Audio))
	if err != nil {
		return nil, fmt.Errorf("failed to store submitted audio: %w", err)
	}
	log.Info().Int("id", sub.ID).Str("audio", audioRef).Msg("submission audio stored")

	text, err := s.transcriber.Transcribe(ctx, audioRef)
	if err != nil {
		return nil, err
	}
	s.saveCompanion(ctx, name, text)

	prompt := BuildPrompt(sub.Fields)

	responses, err := s.evaluateAll(ctx, text, prompt)
	if err != nil {
		return nil, err
	}

	record := &datastore.AudioRecord{
		ID:            sub.ID,
		AudioPath:     audioRef,
		Prompt:        prompt,
		Transcription: text,
	}
	if resp, ok := responses[llm.GroqName]; ok {
		record.LLMGroq = &resp
	}
	if resp, ok := responses[llm.MistralName]; ok {
		record.LLMMistral = &resp
	}
	if err := s.store.UpsertAudioRecord(ctx, record); err != nil {
		return nil, &PersistenceError{Err: err}
	}
	log.Info().Int("id", sub.ID).Msg("evaluation record persisted")

	return &Result{
		ID:            sub.ID,
		AudioPath:     audioRef,
		Prompt:        prompt,
		Transcription: text,
		Responses:     responses,
	}, nil
}

// evaluateAll fans the prompt out to every required provider and joins
// before returning. The calls are independent, but all of them must
// succeed: an error from any provider fails the whole submission and
// nothing is persisted.
func (s *Service) evaluateAll(ctx context.Context, transcription, prompt string) (map[string]string, error) {
	type outcome struct {
		text string
		err  error
	}
	outcomes := make([]outcome, len(s.required))

	var wg sync.WaitGroup
	for i, name := range s.required {
		provider := s.providers[name]
		wg.Add(1)
		go func(i int, p llm.Provider) {
			defer wg.Done()
			text, err := p.Evaluate(ctx, transcription, prompt)
			outcomes[i] = outcome{text: text, err: err}
		}(i, provider)
	}
	wg.Wait()

	responses := make(map[string]string, len(s.required))
	for i, name := range s.required {
		if outcomes[i].err != nil {
			return nil, outcomes[i].err
		}
		responses[name] = outcomes[i].text
	}
	return responses, nil
}

// TranscribeOnly stores the audio and returns its transcription
// without involving any provider or the record store.
func (s *Service) TranscribeOnly(ctx context.Context, filename string, audio []byte) (audioRef, text string, err error) {
	ext := strings.ToLower(filepath.Ext(filename))
	if !allowedExtensions[ext] {
		return "", "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}

	name := fmt.Sprintf("transcribe_%s%s", randomHex(), ext)
	audioRef, err = s.blobs.Save(ctx, name, bytes.NewReader(audio))
	if err != nil {
		return "", "", fmt.Errorf("failed to store submitted audio: %w", err)
	}

	text, err = s.transcriber.Transcribe(ctx, audioRef)
	if err != nil {
		return "", "", err
	}
	s.saveCompanion(ctx, name, text)
	return audioRef, text, nil
}

// EvaluateText runs a single provider over an already transcribed
// text. Nothing is persisted.
func (s *Service) EvaluateText(ctx context.Context, providerName string, fields ContextFields, transcription string) (prompt, response string, err error) {
	provider, ok := s.providers[providerName]
	if !ok {
		return "", "", fmt.Errorf("unknown provider %q", providerName)
	}
	prompt = BuildPrompt(fields)
	response, err = provider.Evaluate(ctx, transcription, prompt)
	if err != nil {
		return "", "", err
	}
	return prompt, response, nil
}

// GetRecord returns one persisted evaluation record by submission id.
func (s *Service) GetRecord(ctx context.Context, id int) (*datastore.AudioRecord, error) {
	return s.store.GetAudioRecord(ctx, id)
}

// ListRecords returns one newest-first page of evaluation records and
// the total count.
func (s *Service) ListRecords(ctx context.Context, skip, limit int) ([]*datastore.AudioRecord, int, error) {
	return s.store.ListAudioRecords(ctx, skip, limit)
}

// saveCompanion writes the transcription next to the audio as a .txt
// artifact. Purely for auditability: a failure is logged, never fatal.
func (s *Service) saveCompanion(ctx context.Context, audioName, text string) {
	companion := audioName + ".txt"
	if _, err := s.blobs.Save(ctx, companion, strings.NewReader(text)); err != nil {
		log.Warn().Err(err).Str("artifact", companion).Msg("failed to write transcription companion file")
	}
}

// randomHex yields the 32-char suffix that keeps stored names
// collision-free across re-submissions of the same id.
func randomHex() string {
	return strings.ReplaceAll(uuid.New().String(), "-", "")
}

func outcomeLabel(err error) string {
	var provErr *llm.ProviderError
	var transErr *transcription.Error
	var persistErr *PersistenceError
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, ErrUnsupportedFormat):
		return "validation_error"
	case errors.As(err, &transErr):
		return "transcription_error"
	case errors.As(err, &provErr):
		return "llm_error"
	case errors.As(err, &persistErr):
		return "persistence_error"
	default:
		return "io_error"
	}
}
