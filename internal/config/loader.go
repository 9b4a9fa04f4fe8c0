package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
)

// Load reads configuration from the process environment, after loading an
// optional .env file. An absent .env is not an error.
//
// Environment variable names are the flat operator contract (FILE_MAX_SIZE,
// EMBEDDING_BACKEND, OPENAI_API_KEY, ...); they map to lowercased koanf keys.
func Load() (*Config, error) {
	return LoadWithFile(".env")
}

// LoadWithFile is Load with an explicit .env path, for tests.
func LoadWithFile(envFile string) (*Config, error) {
	if envFile != "" {
		if _, err := os.Stat(envFile); err == nil {
			if err := godotenv.Load(envFile); err != nil {
				return nil, fmt.Errorf("loading %s: %w", envFile, err)
			}
		}
	}

	k := koanf.New(".")

	if err := k.Load(env.ProviderWithValue("", ".", func(key, value string) (string, interface{}) {
		key = strings.ToLower(key)
		// List-valued options are comma-separated.
		if key == "file_allowed_types" {
			parts := strings.Split(value, ",")
			vals := make([]interface{}, 0, len(parts))
			for _, p := range parts {
				if p = strings.TrimSpace(p); p != "" {
					vals = append(vals, p)
				}
			}
			return key, vals
		}
		return key, value
	}), nil); err != nil {
		return nil, fmt.Errorf("loading environment: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	applyDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}
