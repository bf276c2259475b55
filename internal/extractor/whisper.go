package extractor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"multisource-rag/internal/config"
)

const defaultWhisperModel = "whisper-1"

// WhisperClient talks to an OpenAI-compatible /v1/audio/transcriptions
// endpoint.
type WhisperClient struct {
	baseURL string
	apiKey  string
	model   string
	client  *http.Client
}

// NewWhisperClient returns nil when no endpoint is configured, which callers
// treat as "fallback disabled".
func NewWhisperClient(cfg *config.WhisperConfig) *WhisperClient {
	if cfg == nil || cfg.BaseURL == "" {
		return nil
	}
	model := cfg.Model
	if model == "" {
		model = defaultWhisperModel
	}
	return &WhisperClient{
		baseURL: strings.TrimSuffix(cfg.BaseURL, "/"),
		apiKey:  strings.TrimPrefix(cfg.Key, "Bearer "),
		model:   model,
		client:  &http.Client{Timeout: 5 * time.Minute},
	}
}

// Transcribe uploads the audio file and returns the recognized text.
func (c *WhisperClient) Transcribe(ctx context.Context, path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", filepath.Base(path))
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(part, f); err != nil {
		return "", err
	}
	if err := writer.WriteField("model", c.model); err != nil {
		return "", err
	}
	if err := writer.Close(); err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/audio/transcriptions", &body)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("transcription request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("transcription request failed: %d, %s", resp.StatusCode, string(msg))
	}

	var out struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decoding transcription response: %w", err)
	}
	return out.Text, nil
}
