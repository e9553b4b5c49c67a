package llm

import (
	"net/http"

	"github.com/amauricunha/smartnlp/internal/config"
	"github.com/amauricunha/smartnlp/internal/metrics"
)

const (
	// MistralName is the registered name of the Mistral provider.
	MistralName = "mistral"

	mistralEndpoint     = "https://api.mistral.ai/v1/chat/completions"
	mistralDefaultModel = "mistral-medium"
)

// NewMistral creates the Mistral chat-completions provider.
func NewMistral(cfg config.ProviderConfig, m *metrics.Metrics) *ChatProvider {
	model := cfg.Model
	if model == "" {
		model = mistralDefaultModel
	}
	return &ChatProvider{
		name:       MistralName,
		endpoint:   mistralEndpoint,
		apiKey:     cfg.APIKey,
		model:      model,
		httpClient: &http.Client{Timeout: defaultChatTimeout},
		metrics:    m,
	}
}
