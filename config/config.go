package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// ErrMissingCredential is returned by Validate when a required secret is not
// present in the environment. Secrets never have defaults.
var ErrMissingCredential = errors.New("missing credential")

// Index backends.
const (
	BackendChroma = "chroma"
	BackendBolt   = "bolt"
	BackendMemory = "memory"
)

// Embedding providers.
const (
	ProviderOllama = "ollama"
	ProviderGemini = "gemini"
	ProviderHash   = "hash"
)

// Config holds all configuration for the service.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Index     IndexConfig     `yaml:"index"`
	Chroma    ChromaConfig    `yaml:"chroma"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Dataset   DatasetConfig   `yaml:"dataset"`
	Session   SessionConfig   `yaml:"session"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port           string `yaml:"port"`
	MaxUploadBytes int64  `yaml:"max_upload_bytes"`
	Mode           string `yaml:"mode"` // gin mode: "debug", "release", "test"
}

// IndexConfig describes the vector index and how to wait for it.
type IndexConfig struct {
	Backend           string        `yaml:"backend"` // "chroma", "bolt", "memory"
	Name              string        `yaml:"name"`
	Dimension         int           `yaml:"dimension"`
	Metric            string        `yaml:"metric"`
	TopK              int           `yaml:"top_k"`
	ReadyTimeout      time.Duration `yaml:"ready_timeout"`
	ReadyPollInterval time.Duration `yaml:"ready_poll_interval"`
	BoltPath          string        `yaml:"bolt_path"`
}

// ChromaConfig holds Chroma connection settings. The API key is read from
// CHROMA_API_KEY only.
type ChromaConfig struct {
	URL      string `yaml:"url"`
	Tenant   string `yaml:"tenant"`
	Database string `yaml:"database"`
	APIKey   string `yaml:"-"`
}

// EmbeddingConfig holds embedding configuration. The Gemini key is read from
// GEMINI_API_KEY only.
type EmbeddingConfig struct {
	Provider          string  `yaml:"provider"` // "ollama", "gemini", "hash"
	Model             string  `yaml:"model"`    // empty selects the provider's default
	BaseURL           string  `yaml:"base_url"` // Ollama server
	GeminiBaseURL     string  `yaml:"gemini_base_url"`
	BatchSize         int     `yaml:"batch_size"`
	RequestsPerSecond float64 `yaml:"requests_per_second"`
	GeminiAPIKey      string  `yaml:"-"`
}

// DatasetConfig bounds uploads and batching.
type DatasetConfig struct {
	MaxRows         int `yaml:"max_rows"`
	BatchSize       int `yaml:"batch_size"`
	NamespaceLength int `yaml:"namespace_length"`
}

// SessionConfig controls how long idle sessions live.
type SessionConfig struct {
	TTL             time.Duration `yaml:"ttl"`
	CleanupInterval time.Duration `yaml:"cleanup_interval"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level      string `yaml:"level"`
	File       string `yaml:"file"`
	Production bool   `yaml:"production"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:           "8080",
			MaxUploadBytes: 8 << 20,
			Mode:           "release",
		},
		Index: IndexConfig{
			Backend:           BackendChroma,
			Name:              "dataset",
			Dimension:         384,
			Metric:            "cosine",
			TopK:              5,
			ReadyTimeout:      60 * time.Second,
			ReadyPollInterval: time.Second,
			BoltPath:          "semsearch.db",
		},
		Chroma: ChromaConfig{
			URL:      "http://localhost:8000",
			Tenant:   "default_tenant",
			Database: "default_database",
		},
		Embedding: EmbeddingConfig{
			Provider:          ProviderOllama,
			BaseURL:           "http://localhost:11434",
			BatchSize:         64,
			RequestsPerSecond: 5,
		},
		Dataset: DatasetConfig{
			MaxRows:         500,
			BatchSize:       1000,
			NamespaceLength: 15,
		},
		Session: SessionConfig{
			TTL:             time.Hour,
			CleanupInterval: 10 * time.Minute,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load reads the YAML file at path over the defaults (a missing file is not an
// error), then applies environment overrides. A .env file in the working
// directory is loaded first if present.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on environment variables.")
	}

	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil && !os.IsNotExist(err) {
			return nil, err
		}
		if err == nil {
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
			}
		}
	}

	cfg.applyEnv()
	return cfg, nil
}

func (c *Config) applyEnv() {
	c.Server.Port = getEnv("SEMSEARCH_PORT", c.Server.Port)
	c.Index.Backend = getEnv("SEMSEARCH_INDEX_BACKEND", c.Index.Backend)
	c.Index.Name = getEnv("SEMSEARCH_INDEX_NAME", c.Index.Name)
	c.Index.BoltPath = getEnv("SEMSEARCH_BOLT_PATH", c.Index.BoltPath)
	c.Index.ReadyTimeout = getEnvAsDuration("SEMSEARCH_READY_TIMEOUT", c.Index.ReadyTimeout)
	c.Chroma.URL = getEnv("CHROMA_URL", c.Chroma.URL)
	c.Chroma.Tenant = getEnv("CHROMA_TENANT", c.Chroma.Tenant)
	c.Chroma.Database = getEnv("CHROMA_DATABASE", c.Chroma.Database)
	c.Chroma.APIKey = os.Getenv("CHROMA_API_KEY")
	c.Embedding.Provider = getEnv("SEMSEARCH_EMBEDDING_PROVIDER", c.Embedding.Provider)
	c.Embedding.Model = getEnv("SEMSEARCH_EMBEDDING_MODEL", c.Embedding.Model)
	c.Embedding.BaseURL = getEnv("OLLAMA_BASE_URL", c.Embedding.BaseURL)
	c.Embedding.GeminiBaseURL = getEnv("GEMINI_BASE_URL", c.Embedding.GeminiBaseURL)
	c.Embedding.GeminiAPIKey = os.Getenv("GEMINI_API_KEY")
	c.Dataset.MaxRows = getEnvAsInt("SEMSEARCH_MAX_ROWS", c.Dataset.MaxRows)
	c.Logging.Level = getEnv("SEMSEARCH_LOG_LEVEL", c.Logging.Level)
	c.Logging.File = getEnv("SEMSEARCH_LOG_FILE", c.Logging.File)
}

// Validate checks the configuration and fails fast on missing secrets.
func (c *Config) Validate() error {
	switch c.Index.Backend {
	case BackendChroma:
		if c.Chroma.APIKey == "" {
			return fmt.Errorf("%w: CHROMA_API_KEY must be set for the chroma backend", ErrMissingCredential)
		}
	case BackendBolt:
		if c.Index.BoltPath == "" {
			return fmt.Errorf("index.bolt_path must be set for the bolt backend")
		}
	case BackendMemory:
	default:
		return fmt.Errorf("unknown index backend %q", c.Index.Backend)
	}

	switch c.Embedding.Provider {
	case ProviderGemini:
		if c.Embedding.GeminiAPIKey == "" {
			return fmt.Errorf("%w: GEMINI_API_KEY must be set for the gemini provider", ErrMissingCredential)
		}
	case ProviderOllama, ProviderHash:
	default:
		return fmt.Errorf("unknown embedding provider %q", c.Embedding.Provider)
	}

	if c.Index.Name == "" {
		return fmt.Errorf("index.name must not be empty")
	}
	if c.Index.Dimension <= 0 {
		return fmt.Errorf("index.dimension must be positive, got %d", c.Index.Dimension)
	}
	if c.Index.TopK <= 0 {
		return fmt.Errorf("index.top_k must be positive, got %d", c.Index.TopK)
	}
	if c.Index.ReadyTimeout <= 0 || c.Index.ReadyPollInterval <= 0 {
		return fmt.Errorf("index ready timeout and poll interval must be positive")
	}
	if c.Dataset.MaxRows <= 0 || c.Dataset.BatchSize <= 0 || c.Dataset.NamespaceLength <= 0 {
		return fmt.Errorf("dataset max_rows, batch_size and namespace_length must be positive")
	}
	return nil
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists && value != "" {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	strValue := getEnv(key, "")
	if value, err := strconv.Atoi(strValue); err == nil {
		return value
	}
	return fallback
}

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	strValue := getEnv(key, "")
	if value, err := time.ParseDuration(strValue); err == nil {
		return value
	}
	return fallback
}
