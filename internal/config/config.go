// Package config loads the docrag YAML configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds the docrag configuration.
type Config struct {
	Provider  ProviderConfig  `yaml:"provider"`
	Chunking  ChunkingConfig  `yaml:"chunking"`
	Extract   ExtractConfig   `yaml:"extract"`
	Retrieval RetrievalConfig `yaml:"retrieval"`
	Cache     CacheConfig     `yaml:"cache"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// ProviderConfig holds embedding/generation provider settings. BaseURL
// selects the OpenAI-compatible endpoint (empty = api.openai.com); local
// endpoints such as Ollama accept any non-empty API key.
type ProviderConfig struct {
	APIKey         string `yaml:"api_key"`
	BaseURL        string `yaml:"base_url"`
	ChatModel      string `yaml:"chat_model"`
	EmbeddingModel string `yaml:"embedding_model"`
	EmbedBatchSize int    `yaml:"embed_batch_size"`
}

// ChunkingConfig holds token-window chunking settings. OverlapTokens is a
// pointer so an explicit 0 (no overlap, valid) is distinguishable from an
// absent key (defaulted).
type ChunkingConfig struct {
	SizeTokens    int  `yaml:"size_tokens"`
	OverlapTokens *int `yaml:"overlap_tokens"`
}

// ExtractConfig holds extraction limits.
type ExtractConfig struct {
	MaxFileSizeMB int `yaml:"max_file_size_mb"`
	MaxPages      int `yaml:"max_pages"`
}

// RetrievalConfig holds query-time retrieval settings.
type RetrievalConfig struct {
	TopK int `yaml:"top_k"`
}

// CacheConfig holds optional embedding cache settings.
type CacheConfig struct {
	Enabled             bool     `yaml:"enabled"`
	Addrs               []string `yaml:"addrs"`
	Password            string   `yaml:"password"`
	TTLHours            int      `yaml:"ttl_hours"`
	ReadinessTimeoutSec int      `yaml:"readiness_timeout_sec"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	configPath := findConfigPath(env)

	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}

	// Substitute env variables of the form ${VAR}
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// MustLoad loads configuration or panics.
func MustLoad(env string) Config {
	cfg, err := Load(env)
	if err != nil {
		panic(err)
	}
	return cfg
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.Provider.ChatModel == "" {
		c.Provider.ChatModel = "gpt-4o-mini"
	}
	if c.Provider.EmbeddingModel == "" {
		c.Provider.EmbeddingModel = "text-embedding-3-small"
	}
	if c.Provider.EmbedBatchSize <= 0 {
		c.Provider.EmbedBatchSize = 64
	}
	if c.Chunking.SizeTokens <= 0 {
		c.Chunking.SizeTokens = 1000
	}
	if c.Chunking.OverlapTokens == nil {
		overlap := 200
		c.Chunking.OverlapTokens = &overlap
	}
	if c.Extract.MaxFileSizeMB <= 0 {
		c.Extract.MaxFileSizeMB = 50
	}
	if c.Extract.MaxPages <= 0 {
		c.Extract.MaxPages = 50
	}
	if c.Retrieval.TopK <= 0 {
		c.Retrieval.TopK = 3
	}
	if c.Cache.TTLHours <= 0 {
		c.Cache.TTLHours = 24
	}
	if c.Cache.ReadinessTimeoutSec <= 0 {
		c.Cache.ReadinessTimeoutSec = 10
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.Provider.APIKey == "" && c.Provider.BaseURL == "" {
		return fmt.Errorf("provider.api_key is required when provider.base_url is not set")
	}
	if c.Chunking.OverlapTokens != nil {
		overlap := *c.Chunking.OverlapTokens
		if overlap < 0 {
			return fmt.Errorf("chunking.overlap_tokens must not be negative, got %d", overlap)
		}
		if overlap >= c.Chunking.SizeTokens {
			return fmt.Errorf(
				"chunking.overlap_tokens (%d) must be smaller than chunking.size_tokens (%d)",
				overlap, c.Chunking.SizeTokens,
			)
		}
	}
	if c.Cache.Enabled && len(c.Cache.Addrs) == 0 {
		return fmt.Errorf("cache.addrs is required when cache.enabled is true")
	}
	return nil
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	// 1. Check ./config/
	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// 2. Check relative to the source file
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	// 3. Fallback to ./config/
	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1]) // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
