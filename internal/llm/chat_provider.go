package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/amauricunha/smartnlp/internal/metrics"
)

const defaultChatTimeout = 60 * time.Second

// ChatProvider calls an OpenAI-compatible chat-completions endpoint.
// Both supported providers expose the same wire format, so one client
// serves them with per-provider endpoint, credential and model.
//
// There is deliberately no retry here: unlike the cold-starting speech
// sidecar, the providers are hosted services, and transient failures
// propagate to the orchestrator as classified errors.
type ChatProvider struct {
	name       string
	endpoint   string
	apiKey     string
	model      string
	httpClient *http.Client
	metrics    *metrics.Metrics
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

type chatErrorResponse struct {
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Name returns the provider identity.
func (p *ChatProvider) Name() string { return p.name }

// Evaluate performs a single chat-completion call.
func (p *ChatProvider) Evaluate(ctx context.Context, transcription, prompt string) (string, error) {
	if p.apiKey == "" {
		return "", &ProviderError{Provider: p.name, Kind: KindConfig, Detail: "API key is not set"}
	}

	start := time.Now()
	text, err := p.complete(ctx, transcription, prompt)
	if err != nil {
		p.metrics.RecordLLMRequest(p.name, "error", time.Since(start).Seconds())
		return "", err
	}
	p.metrics.RecordLLMRequest(p.name, "success", time.Since(start).Seconds())
	return text, nil
}

func (p *ChatProvider) complete(ctx context.Context, transcription, prompt string) (string, error) {
	payload := chatRequest{
		Model: p.model,
		Messages: []chatMessage{
			{Role: "system", Content: prompt},
			{Role: "user", Content: transcription},
		},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", &ProviderError{Provider: p.name, Kind: KindUpstream, Detail: fmt.Sprintf("failed to encode request: %v", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", &ProviderError{Provider: p.name, Kind: KindUpstream, Detail: fmt.Sprintf("failed to create request: %v", err)}
	}
	req.Header.Set("Authorization", "Bearer "+p.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return "", &ProviderError{Provider: p.name, Kind: KindUpstream, Detail: err.Error()}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &ProviderError{Provider: p.name, Kind: KindUpstream, Detail: fmt.Sprintf("failed to read response: %v", err)}
	}

	if resp.StatusCode != http.StatusOK {
		var parsed chatErrorResponse
		if jsonErr := json.Unmarshal(respBody, &parsed); jsonErr == nil && parsed.Error.Message != "" {
			return "", &ProviderError{Provider: p.name, Kind: KindUpstream, Detail: parsed.Error.Message}
		}
		return "", &ProviderError{Provider: p.name, Kind: KindUpstream, Detail: fmt.Sprintf("status %d: %s", resp.StatusCode, string(respBody))}
	}

	var parsed chatResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return "", &ProviderError{Provider: p.name, Kind: KindUpstream, Detail: fmt.Sprintf("failed to parse response: %v", err)}
	}
	if len(parsed.Choices) == 0 {
		return "", &ProviderError{Provider: p.name, Kind: KindUpstream, Detail: "response contained no choices"}
	}
	return strings.TrimSpace(parsed.Choices[0].Message.Content), nil
}
