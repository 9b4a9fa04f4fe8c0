package llm

import (
	"context"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

// OpenAIConfig holds configuration for the OpenAI provider.
type OpenAIConfig struct {
	APIKey string
	// BaseURL overrides the API endpoint, for OpenAI-compatible servers.
	BaseURL string

	GenerationModel string
	EmbeddingModel  string

	// InputMaxCharacters caps text length before embedding or prompting.
	InputMaxCharacters int
	MaxOutputTokens    int
	Temperature        float32
}

// OpenAIProvider implements Provider against the OpenAI API.
type OpenAIProvider struct {
	cfg    OpenAIConfig
	client *openai.Client
}

// NewOpenAIProvider creates an OpenAI provider. The API key must be set.
func NewOpenAIProvider(cfg OpenAIConfig) (*OpenAIProvider, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: missing API key", ErrInvalidConfig)
	}
	if cfg.InputMaxCharacters <= 0 {
		cfg.InputMaxCharacters = defaultInputMaxCharacters
	}
	if cfg.MaxOutputTokens <= 0 {
		cfg.MaxOutputTokens = defaultMaxOutputTokens
	}
	if cfg.Temperature <= 0 {
		cfg.Temperature = defaultTemperature
	}

	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	return &OpenAIProvider{
		cfg:    cfg,
		client: openai.NewClientWithConfig(clientCfg),
	}, nil
}

// Embed returns one vector per input text. EmbedKind is not distinguished by
// the OpenAI embedding API.
func (p *OpenAIProvider) Embed(ctx context.Context, texts []string, _ EmbedKind) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, fmt.Errorf("%w: texts cannot be empty", ErrEmptyInput)
	}
	if p.cfg.EmbeddingModel == "" {
		return nil, fmt.Errorf("%w: embedding model not set", ErrInvalidConfig)
	}

	inputs := make([]string, len(texts))
	for i, t := range texts {
		inputs[i] = p.NormalizeText(t)
	}

	resp, err := p.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Model: openai.EmbeddingModel(p.cfg.EmbeddingModel),
		Input: inputs,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEmbeddingFailed, err)
	}
	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("%w: got %d vectors for %d texts", ErrEmbeddingFailed, len(resp.Data), len(texts))
	}

	vectors := make([][]float32, len(resp.Data))
	for i, d := range resp.Data {
		vectors[i] = d.Embedding
	}
	return vectors, nil
}

// Generate produces a chat completion for prompt, preceded by history.
func (p *OpenAIProvider) Generate(ctx context.Context, prompt string, history []Message) (string, error) {
	if p.cfg.GenerationModel == "" {
		return "", fmt.Errorf("%w: generation model not set", ErrInvalidConfig)
	}

	messages := make([]openai.ChatCompletionMessage, 0, len(history)+1)
	for _, m := range history {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    m.Role,
			Content: m.Content,
		})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: p.NormalizeText(prompt),
	})

	resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       p.cfg.GenerationModel,
		Messages:    messages,
		MaxTokens:   p.cfg.MaxOutputTokens,
		Temperature: p.cfg.Temperature,
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrGenerationFailed, err)
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return "", fmt.Errorf("%w: empty completion", ErrGenerationFailed)
	}
	return resp.Choices[0].Message.Content, nil
}

// NormalizeText trims whitespace and caps length at InputMaxCharacters.
func (p *OpenAIProvider) NormalizeText(text string) string {
	if len(text) > p.cfg.InputMaxCharacters {
		text = text[:p.cfg.InputMaxCharacters]
	}
	return strings.TrimSpace(text)
}

// SystemRole returns the OpenAI role name for system messages.
func (p *OpenAIProvider) SystemRole() string {
	return openai.ChatMessageRoleSystem
}

// Available always reports true once constructed.
func (p *OpenAIProvider) Available() bool { return true }
