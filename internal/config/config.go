package config

import (
	"os"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// LLMConfig describes one model endpoint. Provider is "openai" for any
// OpenAI-compatible API (OpenAI, OpenRouter, ...) or "ollama" for a local
// Ollama server.
type LLMConfig struct {
	Provider string `yaml:"provider"`
	BaseURL  string `yaml:"base_url"`
	Key      string `yaml:"key"`
	Model    string `yaml:"model"`
}

// WhisperConfig points at an OpenAI-compatible audio transcription endpoint.
// Leaving BaseURL empty disables the audio fallback for videos.
type WhisperConfig struct {
	BaseURL string `yaml:"base_url"`
	Key     string `yaml:"key"`
	Model   string `yaml:"model"`
}

// RAGConfig holds the pipeline parameters. Zero and negative values mean
// "unset" and are replaced by the defaults in ApplyDefaults; an overlap of
// zero is not configurable.
type RAGConfig struct {
	ChunkSize              int `yaml:"chunk_size"`
	ChunkOverlap           int `yaml:"chunk_overlap"`
	TopK                   int `yaml:"top_k"`
	SuggestionCount        int `yaml:"suggestion_count"`
	SuggestionContextChars int `yaml:"suggestion_context_chars"`
}

// DatabaseConfig enables the optional postgres archive of ingested chunks.
type DatabaseConfig struct {
	Enabled  bool   `yaml:"enabled"`
	URL      string `yaml:"url"`
	Password string `yaml:"password"`
	Debug    bool   `yaml:"debug"`
}

type Config struct {
	LLM      LLMConfig      `yaml:"llm"`
	EmbedLLM LLMConfig      `yaml:"embedding"`
	Whisper  WhisperConfig  `yaml:"whisper"`
	RAG      RAGConfig      `yaml:"rag"`
	Database DatabaseConfig `yaml:"database"`
}

const (
	defaultChunkSize       = 1000
	defaultChunkOverlap    = 200
	defaultTopK            = 4
	defaultSuggestionCount = 3
	defaultSuggestionChars = 4000
)

func LoadConfig(path string) (*Config, error) {
	// Secrets live in .env; a missing file is fine, the environment may
	// already be populated.
	_ = godotenv.Load()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	cfg.LLM.Key = os.ExpandEnv(cfg.LLM.Key)
	cfg.EmbedLLM.Key = os.ExpandEnv(cfg.EmbedLLM.Key)
	cfg.Whisper.Key = os.ExpandEnv(cfg.Whisper.Key)
	cfg.Database.Password = os.ExpandEnv(cfg.Database.Password)

	cfg.RAG.ApplyDefaults()
	return &cfg, nil
}

// ApplyDefaults fills zero and negative values with the standard pipeline
// parameters.
func (r *RAGConfig) ApplyDefaults() {
	if r.ChunkSize <= 0 {
		r.ChunkSize = defaultChunkSize
	}
	if r.ChunkOverlap <= 0 {
		r.ChunkOverlap = defaultChunkOverlap
	}
	if r.TopK <= 0 {
		r.TopK = defaultTopK
	}
	if r.SuggestionCount <= 0 {
		r.SuggestionCount = defaultSuggestionCount
	}
	if r.SuggestionContextChars <= 0 {
		r.SuggestionContextChars = defaultSuggestionChars
	}
}
