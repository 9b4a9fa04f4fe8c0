package llm

import "errors"

var (
	// ErrUnavailable indicates the provider is not configured.
	ErrUnavailable = errors.New("llm provider unavailable")

	// ErrEmptyInput indicates empty or nil input texts.
	ErrEmptyInput = errors.New("empty or nil input texts")

	// ErrEmbeddingFailed indicates embedding generation failure.
	ErrEmbeddingFailed = errors.New("embedding generation failed")

	// ErrGenerationFailed indicates text generation failure.
	ErrGenerationFailed = errors.New("text generation failed")

	// ErrInvalidConfig indicates invalid provider configuration.
	ErrInvalidConfig = errors.New("invalid provider configuration")
)
