package llm

import (
	"context"
	"fmt"
)

// Provider is an LLM backend able to evaluate a student's transcribed
// explanation against a pedagogical prompt.
type Provider interface {
	// Name returns the provider identity used in records and responses.
	Name() string

	// Evaluate sends the prompt as the system message and the
	// transcription as the user message, returning the completion
	// text. Expected failures come back as *ProviderError; transport
	// faults never escape unclassified.
	Evaluate(ctx context.Context, transcription, prompt string) (string, error)
}

// ErrorKind distinguishes a provider that cannot be called at all from
// one that was called and failed.
type ErrorKind int

const (
	// KindConfig marks a missing credential; no request was made.
	KindConfig ErrorKind = iota
	// KindUpstream marks a transport fault, a non-200 answer or a
	// malformed body from the provider.
	KindUpstream
)

// ProviderError classifies every expected failure mode of a provider
// call. The Detail is surfaced verbatim to the API caller as a debug
// aid.
type ProviderError struct {
	Provider string
	Kind     ErrorKind
	Detail   string
}

func (e *ProviderError) Error() string {
	if e.Kind == KindConfig {
		return fmt.Sprintf("%s provider is not configured: %s", e.Provider, e.Detail)
	}
	return fmt.Sprintf("%s call failed: %s", e.Provider, e.Detail)
}
