package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, "dataset", cfg.Index.Name)
	assert.Equal(t, 384, cfg.Index.Dimension)
	assert.Equal(t, "cosine", cfg.Index.Metric)
	assert.Equal(t, 5, cfg.Index.TopK)
	assert.Equal(t, 500, cfg.Dataset.MaxRows)
	assert.Equal(t, 1000, cfg.Dataset.BatchSize)
	assert.Equal(t, 15, cfg.Dataset.NamespaceLength)
	assert.Empty(t, cfg.Chroma.APIKey)
}

func TestLoad_NonExistent(t *testing.T) {
	cfg, err := Load("/nonexistent/path/semsearch.yaml")
	require.NoError(t, err)
	require.NotNil(t, cfg)
	assert.Equal(t, 500, cfg.Dataset.MaxRows)
}

func TestLoad_ValidYAML(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "semsearch.yaml")
	content := `
index:
  backend: bolt
  top_k: 3
  ready_timeout: 5s
dataset:
  batch_size: 100
`
	require.NoError(t, os.WriteFile(configPath, []byte(content), 0644))

	cfg, err := Load(configPath)
	require.NoError(t, err)

	assert.Equal(t, BackendBolt, cfg.Index.Backend)
	assert.Equal(t, 3, cfg.Index.TopK)
	assert.Equal(t, 5*time.Second, cfg.Index.ReadyTimeout)
	assert.Equal(t, 100, cfg.Dataset.BatchSize)
	assert.Equal(t, 500, cfg.Dataset.MaxRows)
}

func TestLoad_InvalidYAML(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "semsearch.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte("index: [unclosed"), 0644))

	_, err := Load(configPath)
	assert.Error(t, err)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("SEMSEARCH_INDEX_BACKEND", BackendMemory)
	t.Setenv("CHROMA_TENANT", "acme")
	t.Setenv("CHROMA_API_KEY", "secret")
	t.Setenv("SEMSEARCH_READY_TIMEOUT", "2s")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, BackendMemory, cfg.Index.Backend)
	assert.Equal(t, "acme", cfg.Chroma.Tenant)
	assert.Equal(t, "secret", cfg.Chroma.APIKey)
	assert.Equal(t, 2*time.Second, cfg.Index.ReadyTimeout)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr error
		ok      bool
	}{
		{
			name:    "chroma without key",
			mutate:  func(c *Config) {},
			wantErr: ErrMissingCredential,
		},
		{
			name:   "chroma with key",
			mutate: func(c *Config) { c.Chroma.APIKey = "k" },
			ok:     true,
		},
		{
			name:   "memory backend needs no key",
			mutate: func(c *Config) { c.Index.Backend = BackendMemory },
			ok:     true,
		},
		{
			name: "gemini without key",
			mutate: func(c *Config) {
				c.Index.Backend = BackendMemory
				c.Embedding.Provider = ProviderGemini
			},
			wantErr: ErrMissingCredential,
		},
		{
			name:   "unknown backend",
			mutate: func(c *Config) { c.Index.Backend = "pinecone" },
		},
		{
			name: "zero top k",
			mutate: func(c *Config) {
				c.Index.Backend = BackendMemory
				c.Index.TopK = 0
			},
		},
		{
			name: "zero batch size",
			mutate: func(c *Config) {
				c.Index.Backend = BackendMemory
				c.Dataset.BatchSize = 0
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.ok {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}
