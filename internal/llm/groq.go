package llm

import (
	"net/http"

	"github.com/amauricunha/smartnlp/internal/config"
	"github.com/amauricunha/smartnlp/internal/metrics"
)

const (
	// GroqName is the registered name of the Groq provider.
	GroqName = "groq"

	groqEndpoint     = "https://api.groq.com/openai/v1/chat/completions"
	groqDefaultModel = "llama3-70b-8192"
)

// NewGroq creates the Groq chat-completions provider.
func NewGroq(cfg config.ProviderConfig, m *metrics.Metrics) *ChatProvider {
	model := cfg.Model
	if model == "" {
		model = groqDefaultModel
	}
	return &ChatProvider{
		name:       GroqName,
		endpoint:   groqEndpoint,
		apiKey:     cfg.APIKey,
		model:      model,
		httpClient: &http.Client{Timeout: defaultChatTimeout},
		metrics:    m,
	}
}
