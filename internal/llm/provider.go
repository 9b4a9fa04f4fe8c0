// Package llm provides text generation and embedding via multiple providers.
package llm

import "context"

// EmbedKind distinguishes document embeddings from query embeddings for
// providers that encode them differently.
type EmbedKind string

const (
	EmbedDocument EmbedKind = "document"
	EmbedQuery    EmbedKind = "query"
)

// Message is a single chat history entry.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Provider is the interface for generation and embedding backends.
type Provider interface {
	// Embed returns one vector per input text.
	Embed(ctx context.Context, texts []string, kind EmbedKind) ([][]float32, error)

	// Generate produces a completion for prompt, preceded by history.
	Generate(ctx context.Context, prompt string, history []Message) (string, error)

	// NormalizeText prepares raw text for the provider (truncation, trimming).
	NormalizeText(text string) string

	// SystemRole returns the provider's role name for system messages.
	SystemRole() string

	// Available reports whether the provider is configured and usable.
	Available() bool
}

// Generation tuning shared across providers.
const (
	defaultInputMaxCharacters = 1024
	defaultMaxOutputTokens    = 200
	defaultTemperature        = 0.1
)
