package llm

import (
	"fmt"

	"github.com/quarrylabs/ragserve/internal/config"
)

// NewProvider creates the provider selected by backend. A missing credential
// yields an UnavailableProvider rather than an error, so the server can start
// and answer 503 on NLP endpoints until configured.
func NewProvider(cfg *config.Config, backend string) (Provider, error) {
	switch backend {
	case config.BackendOpenAI:
		if !cfg.OpenAIAPIKey.IsSet() {
			return &UnavailableProvider{Reason: "OPENAI_API_KEY not set"}, nil
		}
		return NewOpenAIProvider(OpenAIConfig{
			APIKey:          cfg.OpenAIAPIKey.Value(),
			BaseURL:         cfg.OpenAIAPIURL,
			GenerationModel: cfg.GenerationModelID,
			EmbeddingModel:  cfg.EmbeddingModelID,
		})
	case config.BackendCohere:
		if !cfg.CohereAPIKey.IsSet() {
			return &UnavailableProvider{Reason: "COHERE_API_KEY not set"}, nil
		}
		return NewCohereProvider(CohereConfig{
			APIKey:          cfg.CohereAPIKey.Value(),
			GenerationModel: cfg.GenerationModelID,
			EmbeddingModel:  cfg.EmbeddingModelID,
		})
	default:
		return nil, fmt.Errorf("%w: unknown backend %q", ErrInvalidConfig, backend)
	}
}
