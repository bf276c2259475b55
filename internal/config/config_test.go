package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplyDefaults_FillsUnsetValues(t *testing.T) {
	cfg := RAGConfig{}
	cfg.ApplyDefaults()

	assert.Equal(t, 1000, cfg.ChunkSize)
	assert.Equal(t, 200, cfg.ChunkOverlap)
	assert.Equal(t, 4, cfg.TopK)
	assert.Equal(t, 3, cfg.SuggestionCount)
	assert.Equal(t, 4000, cfg.SuggestionContextChars)
}

func TestApplyDefaults_KeepsExplicitValues(t *testing.T) {
	cfg := RAGConfig{ChunkSize: 500, ChunkOverlap: 50, TopK: 8, SuggestionCount: 5, SuggestionContextChars: 2000}
	cfg.ApplyDefaults()

	assert.Equal(t, 500, cfg.ChunkSize)
	assert.Equal(t, 50, cfg.ChunkOverlap)
	assert.Equal(t, 8, cfg.TopK)
	assert.Equal(t, 5, cfg.SuggestionCount)
	assert.Equal(t, 2000, cfg.SuggestionContextChars)
}

func TestApplyDefaults_ZeroOverlapIsUnset(t *testing.T) {
	// Zero means "unset", not "no overlap"; see the RAGConfig doc.
	cfg := RAGConfig{ChunkSize: 500, ChunkOverlap: 0}
	cfg.ApplyDefaults()
	assert.Equal(t, 200, cfg.ChunkOverlap)
}

func TestLoadConfig(t *testing.T) {
	t.Setenv("TEST_LLM_KEY", "sk-12345")

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
llm:
  provider: openai
  base_url: https://openrouter.ai/api/v1
  key: ${TEST_LLM_KEY}
  model: gemini-2.5-flash
embedding:
  provider: ollama
  base_url: http://localhost:11434
  model: nomic-embed-text
rag:
  chunk_size: 800
`), 0o600))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "sk-12345", cfg.LLM.Key)
	assert.Equal(t, "ollama", cfg.EmbedLLM.Provider)
	assert.Equal(t, 800, cfg.RAG.ChunkSize)
	assert.Equal(t, 200, cfg.RAG.ChunkOverlap, "unset values take the defaults")
	assert.False(t, cfg.Database.Enabled)
}

func TestLoadConfig_MissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
