package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplyDefaults(t *testing.T) {
	cfg := &Config{}
	applyDefaults(cfg)

	assert.Equal(t, "ragserve", cfg.AppName)
	assert.Equal(t, 8000, cfg.Port)
	assert.Equal(t, []string{"pdf", "txt"}, cfg.FileAllowedTypes)
	assert.Equal(t, int64(10*1048576), cfg.FileMaxSize)
	assert.Equal(t, 512*1024, cfg.FileDefaultChunkSize)
	assert.Equal(t, BackendOpenAI, cfg.GenerationBackend)
	assert.Equal(t, BackendQdrant, cfg.VectorDBBackend)
	assert.Equal(t, 3072, cfg.EmbeddingModelSize)
	assert.Equal(t, DistanceCosine, cfg.VectorDBDistanceMethod)
	assert.Equal(t, 100, cfg.VectorDBPgvecIndexThreshold)
	assert.Equal(t, "HS256", cfg.Algorithm)
	assert.Equal(t, 30, cfg.AccessTokenExpireMinutes)
	assert.Equal(t, "en", cfg.PrimaryLang)

	require.NoError(t, cfg.Validate())
}

func TestValidateRejectsBadValues(t *testing.T) {
	base := func() *Config {
		cfg := &Config{}
		applyDefaults(cfg)
		return cfg
	}

	cfg := base()
	cfg.Port = 70000
	assert.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)

	cfg = base()
	cfg.VectorDBBackend = "chroma"
	assert.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)

	cfg = base()
	cfg.VectorDBDistanceMethod = "euclid"
	assert.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)

	cfg = base()
	cfg.Algorithm = "RS256"
	assert.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)

	cfg = base()
	cfg.EmbeddingModelSize = -1
	assert.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)
}

func TestNormalizeExtensions(t *testing.T) {
	assert.Equal(t, []string{"pdf", "txt"}, normalizeExtensions([]string{"PDF", ".txt"}))
	assert.Equal(t, []string{"pdf", "txt"}, normalizeExtensions([]string{`["pdf"`, `"txt"]`}))
	assert.Equal(t, []string{"md"}, normalizeExtensions([]string{" md ", ""}))
}

func TestAllowedType(t *testing.T) {
	cfg := &Config{FileAllowedTypes: []string{"pdf", "txt"}}

	assert.True(t, cfg.AllowedType("pdf"))
	assert.True(t, cfg.AllowedType(".PDF"))
	assert.True(t, cfg.AllowedType("txt"))
	assert.False(t, cfg.AllowedType("exe"))
	assert.False(t, cfg.AllowedType(""))
}

func TestSecretRedaction(t *testing.T) {
	s := Secret("super-sensitive")

	assert.Equal(t, "[REDACTED]", s.String())
	b, err := s.MarshalJSON()
	require.NoError(t, err)
	assert.Equal(t, `"[REDACTED]"`, string(b))

	empty := Secret("")
	b, err = empty.MarshalJSON()
	require.NoError(t, err)
	assert.Equal(t, `""`, string(b))
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("SERVER_PORT", "9100")
	t.Setenv("FILE_ALLOWED_TYPES", "pdf,txt,md")
	t.Setenv("VECTOR_DB_BACKEND", "pgvector")
	t.Setenv("EMBEDDING_MODEL_SIZE", "1536")

	cfg, err := LoadWithFile("")
	require.NoError(t, err)

	assert.Equal(t, 9100, cfg.Port)
	assert.Equal(t, []string{"pdf", "txt", "md"}, cfg.FileAllowedTypes)
	assert.Equal(t, BackendPgvector, cfg.VectorDBBackend)
	assert.Equal(t, 1536, cfg.EmbeddingModelSize)
}
