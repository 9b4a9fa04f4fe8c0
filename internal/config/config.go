// Package config provides configuration loading for ragserve.
package config

import (
	"errors"
	"fmt"
	"strings"
)

// Backend identifiers accepted by the provider and vector store factories.
const (
	BackendOpenAI   = "openai"
	BackendCohere   = "cohere"
	BackendQdrant   = "qdrant"
	BackendPgvector = "pgvector"
)

// Distance methods for vector similarity.
const (
	DistanceCosine = "cosine"
	DistanceDot    = "dot"
)

// ErrInvalidConfig indicates invalid configuration.
var ErrInvalidConfig = errors.New("invalid configuration")

// Config is the immutable application configuration, loaded once at startup.
//
// A missing provider credential is not a validation error: the provider
// factory returns an explicit unavailable provider instead, and NLP
// endpoints answer 503 until the credential is configured.
type Config struct {
	AppName string `koanf:"app_name"`

	Host     string `koanf:"server_host"`
	Port     int    `koanf:"server_port"`
	LogLevel string `koanf:"log_level"`
	// LogFormat is "json" or "console".
	LogFormat string `koanf:"log_format"`

	DatabaseURL Secret `koanf:"database_url"`

	// File upload limits and layout.
	FileAllowedTypes     []string `koanf:"file_allowed_types"`
	FileMaxSize          int64    `koanf:"file_max_size"`
	FileDefaultChunkSize int      `koanf:"file_default_chunk_size"`
	FileStoragePath      string   `koanf:"file_storage_path"`

	// Provider selection and model identifiers.
	GenerationBackend  string `koanf:"generation_backend"`
	EmbeddingBackend   string `koanf:"embedding_backend"`
	VectorDBBackend    string `koanf:"vector_db_backend"`
	GenerationModelID  string `koanf:"generation_model_id"`
	EmbeddingModelID   string `koanf:"embedding_model_id"`
	EmbeddingModelSize int    `koanf:"embedding_model_size"`

	// Provider credentials.
	OpenAIAPIKey Secret `koanf:"openai_api_key"`
	OpenAIAPIURL string `koanf:"openai_api_url"`
	CohereAPIKey Secret `koanf:"cohere_api_key"`

	// Vector backend tuning.
	VectorDBPath                string `koanf:"vector_db_path"`
	VectorDBDistanceMethod      string `koanf:"vector_db_distance_method"`
	VectorDBPgvecIndexThreshold int    `koanf:"vector_db_pgvec_index_threshold"`

	// Token parameters for the auth collaborator.
	SecretKey                Secret `koanf:"secret_key"`
	Algorithm                string `koanf:"algorithm"`
	AccessTokenExpireMinutes int    `koanf:"access_token_expire_minutes"`

	// Template locale selection.
	PrimaryLang string `koanf:"primary_lang"`
	DefaultLang string `koanf:"default_lang"`
}

// applyDefaults sets default values for missing configuration fields.
func applyDefaults(cfg *Config) {
	if cfg.AppName == "" {
		cfg.AppName = "ragserve"
	}
	if cfg.Host == "" {
		cfg.Host = "0.0.0.0"
	}
	if cfg.Port == 0 {
		cfg.Port = 8000
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if cfg.LogFormat == "" {
		cfg.LogFormat = "json"
	}

	if len(cfg.FileAllowedTypes) == 0 {
		cfg.FileAllowedTypes = []string{"pdf", "txt"}
	}
	cfg.FileAllowedTypes = normalizeExtensions(cfg.FileAllowedTypes)
	if cfg.FileMaxSize == 0 {
		cfg.FileMaxSize = 10 * 1048576 // 10MB
	}
	if cfg.FileDefaultChunkSize == 0 {
		cfg.FileDefaultChunkSize = 512 * 1024
	}
	if cfg.FileStoragePath == "" {
		cfg.FileStoragePath = "projects"
	}

	if cfg.GenerationBackend == "" {
		cfg.GenerationBackend = BackendOpenAI
	}
	if cfg.EmbeddingBackend == "" {
		cfg.EmbeddingBackend = BackendOpenAI
	}
	if cfg.VectorDBBackend == "" {
		cfg.VectorDBBackend = BackendQdrant
	}
	if cfg.EmbeddingModelSize == 0 {
		cfg.EmbeddingModelSize = 3072 // text-embedding-3-large dimensions
	}

	if cfg.VectorDBDistanceMethod == "" {
		cfg.VectorDBDistanceMethod = DistanceCosine
	}
	if cfg.VectorDBPgvecIndexThreshold == 0 {
		cfg.VectorDBPgvecIndexThreshold = 100
	}

	if cfg.Algorithm == "" {
		cfg.Algorithm = "HS256"
	}
	if cfg.AccessTokenExpireMinutes == 0 {
		cfg.AccessTokenExpireMinutes = 30
	}

	if cfg.PrimaryLang == "" {
		cfg.PrimaryLang = "en"
	}
	if cfg.DefaultLang == "" {
		cfg.DefaultLang = "en"
	}
}

// Validate checks the configuration for values the server cannot start with.
func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("%w: invalid server port: %d", ErrInvalidConfig, c.Port)
	}
	if c.FileMaxSize <= 0 {
		return fmt.Errorf("%w: file max size must be positive", ErrInvalidConfig)
	}
	if c.FileDefaultChunkSize <= 0 {
		return fmt.Errorf("%w: file chunk size must be positive", ErrInvalidConfig)
	}
	if c.EmbeddingModelSize <= 0 {
		return fmt.Errorf("%w: embedding model size must be positive", ErrInvalidConfig)
	}
	switch c.VectorDBDistanceMethod {
	case DistanceCosine, DistanceDot:
	default:
		return fmt.Errorf("%w: unknown distance method %q", ErrInvalidConfig, c.VectorDBDistanceMethod)
	}
	switch c.VectorDBBackend {
	case BackendQdrant, BackendPgvector:
	default:
		return fmt.Errorf("%w: unknown vector backend %q", ErrInvalidConfig, c.VectorDBBackend)
	}
	if c.Algorithm != "HS256" {
		return fmt.Errorf("%w: unsupported token algorithm %q", ErrInvalidConfig, c.Algorithm)
	}
	return nil
}

// AllowedType reports whether the extension (without dot, any case) is accepted.
func (c *Config) AllowedType(ext string) bool {
	ext = strings.ToLower(strings.TrimPrefix(ext, "."))
	for _, t := range c.FileAllowedTypes {
		if t == ext {
			return true
		}
	}
	return false
}

// normalizeExtensions lowercases entries and strips dots, quotes and brackets
// so both `pdf,txt` and the legacy JSON-ish `["pdf","txt"]` forms work.
func normalizeExtensions(in []string) []string {
	out := make([]string, 0, len(in))
	for _, raw := range in {
		e := strings.ToLower(strings.TrimSpace(raw))
		e = strings.Trim(e, `[]"'`)
		e = strings.TrimPrefix(e, ".")
		if e != "" {
			out = append(out, e)
		}
	}
	return out
}
