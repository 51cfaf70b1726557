package config

import (
	"fmt"
	"os"

	"ragflow/internal/domain"
)

// LookupFunc reads an environment variable. os.LookupEnv satisfies it.
type LookupFunc func(key string) (string, bool)

// Secrets carries the credentials resolved from the environment at startup.
type Secrets struct {
	EmbedderAPIKey    string
	GeneratorAPIKey   string
	VectorStoreAPIKey string
}

// ResolveSecrets reads the api_key_env variables named by cfg. Missing values stay empty;
// Require turns them into errors only for the backends actually in use.
func ResolveSecrets(cfg *AppConfig, lookup LookupFunc) Secrets {
	if lookup == nil {
		lookup = os.LookupEnv
	}
	get := func(name string) string {
		if name == "" {
			return ""
		}
		v, _ := lookup(name)
		return v
	}
	s := Secrets{
		EmbedderAPIKey:    get(cfg.Embedder.APIKeyEnv),
		GeneratorAPIKey:   get(cfg.Generator.APIKeyEnv),
		VectorStoreAPIKey: get(cfg.VectorStore.APIKeyEnv),
	}
	if cfg.VectorStore.Qdrant != nil && cfg.VectorStore.Qdrant.APIKey != "" && s.VectorStoreAPIKey == "" {
		s.VectorStoreAPIKey = cfg.VectorStore.Qdrant.APIKey
	}
	return s
}

// Require returns value, or a ConfigurationError naming the variable to set.
func Require(value, key, envName string) (string, error) {
	if value != "" {
		return value, nil
	}
	return "", &domain.ConfigurationError{Key: key, Reason: fmt.Sprintf("environment variable %s is not set", envName)}
}
