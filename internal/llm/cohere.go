package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

const cohereBaseURL = "https://api.cohere.ai/v1"

// CohereConfig holds configuration for the Cohere provider.
type CohereConfig struct {
	APIKey  string
	BaseURL string

	GenerationModel string
	EmbeddingModel  string

	InputMaxCharacters int
	MaxOutputTokens    int
	Temperature        float32
}

// CohereProvider implements Provider against the Cohere HTTP API.
type CohereProvider struct {
	cfg    CohereConfig
	client *http.Client
}

// NewCohereProvider creates a Cohere provider. The API key must be set.
func NewCohereProvider(cfg CohereConfig) (*CohereProvider, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: missing API key", ErrInvalidConfig)
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = cohereBaseURL
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
	return &CohereProvider{cfg: cfg, client: &http.Client{}}, nil
}

type cohereEmbedRequest struct {
	Model     string   `json:"model"`
	Texts     []string `json:"texts"`
	InputType string   `json:"input_type"`
	Truncate  string   `json:"truncate"`
}

type cohereEmbedResponse struct {
	Embeddings [][]float32 `json:"embeddings"`
}

type cohereChatMessage struct {
	Role    string `json:"role"`
	Message string `json:"message"`
}

type cohereChatRequest struct {
	Model       string              `json:"model"`
	Message     string              `json:"message"`
	ChatHistory []cohereChatMessage `json:"chat_history,omitempty"`
	Temperature float32             `json:"temperature"`
	MaxTokens   int                 `json:"max_tokens"`
}

type cohereChatResponse struct {
	Text string `json:"text"`
}

func (p *CohereProvider) post(ctx context.Context, path string, payload, out interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.cfg.BaseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.cfg.APIKey)

	resp, err := p.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("status %d: %s", resp.StatusCode, string(respBody))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

// Embed returns one vector per input text, encoding them as search documents
// or search queries depending on kind.
func (p *CohereProvider) Embed(ctx context.Context, texts []string, kind EmbedKind) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, fmt.Errorf("%w: texts cannot be empty", ErrEmptyInput)
	}
	if p.cfg.EmbeddingModel == "" {
		return nil, fmt.Errorf("%w: embedding model not set", ErrInvalidConfig)
	}

	inputType := "search_document"
	if kind == EmbedQuery {
		inputType = "search_query"
	}

	inputs := make([]string, len(texts))
	for i, t := range texts {
		inputs[i] = p.NormalizeText(t)
	}

	var out cohereEmbedResponse
	err := p.post(ctx, "/embed", cohereEmbedRequest{
		Model:     p.cfg.EmbeddingModel,
		Texts:     inputs,
		InputType: inputType,
		Truncate:  "END",
	}, &out)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEmbeddingFailed, err)
	}
	if len(out.Embeddings) != len(texts) {
		return nil, fmt.Errorf("%w: got %d vectors for %d texts", ErrEmbeddingFailed, len(out.Embeddings), len(texts))
	}
	return out.Embeddings, nil
}

// Generate produces a chat completion for prompt, preceded by history.
func (p *CohereProvider) Generate(ctx context.Context, prompt string, history []Message) (string, error) {
	if p.cfg.GenerationModel == "" {
		return "", fmt.Errorf("%w: generation model not set", ErrInvalidConfig)
	}

	chatHistory := make([]cohereChatMessage, 0, len(history))
	for _, m := range history {
		chatHistory = append(chatHistory, cohereChatMessage{
			Role:    m.Role,
			Message: m.Content,
		})
	}

	var out cohereChatResponse
	err := p.post(ctx, "/chat", cohereChatRequest{
		Model:       p.cfg.GenerationModel,
		Message:     p.NormalizeText(prompt),
		ChatHistory: chatHistory,
		Temperature: p.cfg.Temperature,
		MaxTokens:   p.cfg.MaxOutputTokens,
	}, &out)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrGenerationFailed, err)
	}
	if out.Text == "" {
		return "", fmt.Errorf("%w: empty completion", ErrGenerationFailed)
	}
	return out.Text, nil
}

// NormalizeText trims whitespace and caps length at InputMaxCharacters.
func (p *CohereProvider) NormalizeText(text string) string {
	if len(text) > p.cfg.InputMaxCharacters {
		text = text[:p.cfg.InputMaxCharacters]
	}
	return strings.TrimSpace(text)
}

// SystemRole returns the Cohere role name for system messages.
func (p *CohereProvider) SystemRole() string { return "SYSTEM" }

// Available always reports true once constructed.
func (p *CohereProvider) Available() bool { return true }
