package extractor

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/kkdai/youtube/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"multisource-rag/internal/config"
	"multisource-rag/internal/models"
)

func TestDetectKind(t *testing.T) {
	cases := []struct {
		ref  string
		want Kind
	}{
		{"https://www.youtube.com/watch?v=abc123", KindVideo},
		{"https://youtu.be/abc123", KindVideo},
		{"https://example.com/article", KindWeb},
		{"http://example.com", KindWeb},
		{"notes.pdf", KindDocument},
		{"/home/user/report.docx", KindDocument},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, DetectKind(tc.ref), tc.ref)
	}
}

func TestExtract_PlainText(t *testing.T) {
	e := New(nil)
	segments, err := e.Extract(context.Background(), Source{
		Kind: KindDocument,
		Name: "notes.txt",
		Data: []byte("Paris is the capital of France."),
	})
	require.NoError(t, err)
	require.Len(t, segments, 1)
	assert.Equal(t, "Paris is the capital of France.", segments[0].Content)
	assert.Equal(t, "notes.txt", segments[0].Source)
	assert.Equal(t, 1, segments[0].Page)
}

func TestExtract_RemovesTempFile(t *testing.T) {
	data := []byte("some text that ends up in a temp file")
	e := New(nil)
	_, err := e.Extract(context.Background(), Source{Kind: KindDocument, Name: "notes.txt", Data: data})
	require.NoError(t, err)

	hash := sha256.Sum256(data)
	tmpPath := filepath.Join(os.TempDir(), "ragengine-"+hex.EncodeToString(hash[:8])+".txt")
	_, statErr := os.Stat(tmpPath)
	assert.True(t, os.IsNotExist(statErr), "temp file should be removed after extraction")
}

func TestExtract_EmptyDocument(t *testing.T) {
	e := New(nil)
	_, err := e.Extract(context.Background(), Source{Kind: KindDocument, Name: "empty.txt", Data: []byte("  \n\t ")})

	var ee *models.ExtractionError
	require.ErrorAs(t, err, &ee)
	assert.Equal(t, "empty.txt", ee.Source)
}

func TestExtract_UnsupportedFormat(t *testing.T) {
	e := New(nil)
	_, err := e.Extract(context.Background(), Source{Kind: KindDocument, Name: "image.png", Data: []byte{0x89, 0x50}})

	var ee *models.ExtractionError
	require.ErrorAs(t, err, &ee)
	assert.Contains(t, err.Error(), "unsupported file format")
}

func TestExtract_Markdown(t *testing.T) {
	md := "# Orbital Mechanics\n\nApogee is the farthest point of an orbit.\n"
	e := New(nil)
	segments, err := e.Extract(context.Background(), Source{Kind: KindDocument, Name: "orbits.md", Data: []byte(md)})
	require.NoError(t, err)
	require.NotEmpty(t, segments)

	joined := ""
	for _, s := range segments {
		joined += s.Content + " "
	}
	assert.Contains(t, joined, "Orbital Mechanics")
	assert.Contains(t, joined, "farthest point")
	assert.NotContains(t, joined, "#", "markdown syntax should not survive extraction")
}

func TestExtract_WebPage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		io.WriteString(w, "<html><body><h1>Mars</h1><p>Mars is the fourth planet.</p></body></html>")
	}))
	defer server.Close()

	e := New(nil)
	segments, err := e.Extract(context.Background(), Source{Kind: KindWeb, Name: server.URL, URL: server.URL})
	require.NoError(t, err)
	require.NotEmpty(t, segments)
	assert.Contains(t, segments[0].Content, "fourth planet")
	assert.Equal(t, server.URL, segments[0].Source)
}

func TestExtract_WebPageErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	e := New(nil)
	_, err := e.Extract(context.Background(), Source{Kind: KindWeb, Name: server.URL, URL: server.URL})

	var ee *models.ExtractionError
	require.ErrorAs(t, err, &ee)
	assert.Contains(t, err.Error(), "404")
}

type fakeVideoAPI struct {
	video         *youtube.Video
	videoErr      error
	transcript    youtube.VideoTranscript
	transcriptErr error
	streamData    string
	streamErr     error
	streamCalls   int
}

func (f *fakeVideoAPI) GetVideoContext(_ context.Context, _ string) (*youtube.Video, error) {
	return f.video, f.videoErr
}

func (f *fakeVideoAPI) GetTranscriptCtx(_ context.Context, _ *youtube.Video, _ string) (youtube.VideoTranscript, error) {
	return f.transcript, f.transcriptErr
}

func (f *fakeVideoAPI) GetStreamContext(_ context.Context, _ *youtube.Video, _ *youtube.Format) (io.ReadCloser, int64, error) {
	f.streamCalls++
	if f.streamErr != nil {
		return nil, 0, f.streamErr
	}
	return io.NopCloser(strings.NewReader(f.streamData)), int64(len(f.streamData)), nil
}

type fakeTranscriber struct {
	text      string
	err       error
	calls     int
	audioSeen string
}

func (f *fakeTranscriber) Transcribe(_ context.Context, path string) (string, error) {
	f.calls++
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	f.audioSeen = string(data)
	return f.text, f.err
}

func audioVideo() *youtube.Video {
	return &youtube.Video{
		ID:      "abc123",
		Formats: youtube.FormatList{{MimeType: `audio/mp4; codecs="mp4a.40.2"`, AudioChannels: 2}},
	}
}

func videoExtractor(api *fakeVideoAPI, tr Transcriber) *Extractor {
	e := New(tr)
	e.video = api
	return e
}

func TestExtractVideo_TranscriptPreferred(t *testing.T) {
	api := &fakeVideoAPI{
		video: audioVideo(),
		transcript: youtube.VideoTranscript{
			{Text: "welcome to the channel"},
			{Text: "today we cover orbits"},
		},
	}
	tr := &fakeTranscriber{text: "should not be used"}

	segments, err := videoExtractor(api, tr).Extract(context.Background(), Source{
		Kind: KindVideo,
		Name: "https://youtu.be/abc123",
		URL:  "https://youtu.be/abc123",
	})
	require.NoError(t, err)
	require.Len(t, segments, 1)
	assert.Equal(t, "welcome to the channel today we cover orbits", segments[0].Content)
	assert.Zero(t, tr.calls, "audio transcription must not run when a transcript exists")
	assert.Zero(t, api.streamCalls)
}

func TestExtractVideo_FallsBackToAudio(t *testing.T) {
	api := &fakeVideoAPI{
		video:         audioVideo(),
		transcriptErr: youtube.ErrTranscriptDisabled,
		streamData:    "fake audio bytes",
	}
	tr := &fakeTranscriber{text: "spoken words from the audio"}

	segments, err := videoExtractor(api, tr).Extract(context.Background(), Source{
		Kind: KindVideo,
		URL:  "https://youtu.be/abc123",
	})
	require.NoError(t, err)
	require.Len(t, segments, 1)
	assert.Equal(t, "spoken words from the audio", segments[0].Content)
	assert.Equal(t, 1, tr.calls)
	assert.Equal(t, "fake audio bytes", tr.audioSeen, "transcriber should receive the downloaded audio")
}

func TestExtractVideo_EmptyTranscriptFallsBack(t *testing.T) {
	api := &fakeVideoAPI{
		video:      audioVideo(),
		transcript: youtube.VideoTranscript{},
		streamData: "audio",
	}
	tr := &fakeTranscriber{text: "from audio"}

	segments, err := videoExtractor(api, tr).Extract(context.Background(), Source{Kind: KindVideo, URL: "https://youtu.be/abc123"})
	require.NoError(t, err)
	assert.Equal(t, "from audio", segments[0].Content)
}

func TestExtractVideo_BothPathsFail(t *testing.T) {
	api := &fakeVideoAPI{
		video:         audioVideo(),
		transcriptErr: youtube.ErrTranscriptDisabled,
		streamData:    "audio",
	}
	tr := &fakeTranscriber{err: errors.New("whisper endpoint down")}

	_, err := videoExtractor(api, tr).Extract(context.Background(), Source{Kind: KindVideo, URL: "https://youtu.be/abc123"})
	assert.ErrorIs(t, err, models.ErrTranscriptionExhausted)
}

func TestExtractVideo_NoTranscriberConfigured(t *testing.T) {
	api := &fakeVideoAPI{video: audioVideo(), transcriptErr: youtube.ErrTranscriptDisabled}

	_, err := videoExtractor(api, nil).Extract(context.Background(), Source{Kind: KindVideo, URL: "https://youtu.be/abc123"})
	assert.ErrorIs(t, err, models.ErrTranscriptionExhausted)
}

func TestExtractVideo_OtherTranscriptErrorIsTerminal(t *testing.T) {
	api := &fakeVideoAPI{video: audioVideo(), transcriptErr: errors.New("rate limited")}
	tr := &fakeTranscriber{text: "should not be used"}

	_, err := videoExtractor(api, tr).Extract(context.Background(), Source{Kind: KindVideo, URL: "https://youtu.be/abc123"})
	require.Error(t, err)
	assert.NotErrorIs(t, err, models.ErrTranscriptionExhausted)
	assert.Zero(t, tr.calls)
}

func TestExtractVideo_MetadataFailureIsTerminal(t *testing.T) {
	api := &fakeVideoAPI{videoErr: errors.New("video unavailable")}

	_, err := videoExtractor(api, &fakeTranscriber{}).Extract(context.Background(), Source{Kind: KindVideo, URL: "https://youtu.be/gone"})
	var ee *models.ExtractionError
	require.ErrorAs(t, err, &ee)
}

func TestWhisperClient_Transcribe(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/audio/transcriptions", r.URL.Path)
		require.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		require.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, "whisper-1", r.FormValue("model"))

		file, _, err := r.FormFile("file")
		require.NoError(t, err)
		defer file.Close()
		data, err := io.ReadAll(file)
		require.NoError(t, err)
		assert.Equal(t, "audio payload", string(data))

		io.WriteString(w, `{"text":"hello world"}`)
	}))
	defer server.Close()

	audioPath := filepath.Join(t.TempDir(), "clip.m4a")
	require.NoError(t, os.WriteFile(audioPath, []byte("audio payload"), 0o600))

	c := NewWhisperClient(&config.WhisperConfig{BaseURL: server.URL, Key: "secret"})
	require.NotNil(t, c)

	text, err := c.Transcribe(context.Background(), audioPath)
	require.NoError(t, err)
	assert.Equal(t, "hello world", text)
}

func TestWhisperClient_ErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "model overloaded", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	audioPath := filepath.Join(t.TempDir(), "clip.m4a")
	require.NoError(t, os.WriteFile(audioPath, []byte("audio"), 0o600))

	c := NewWhisperClient(&config.WhisperConfig{BaseURL: server.URL})
	_, err := c.Transcribe(context.Background(), audioPath)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "503")
}

func TestNewWhisperClient_DisabledWithoutEndpoint(t *testing.T) {
	assert.Nil(t, NewWhisperClient(nil))
	assert.Nil(t, NewWhisperClient(&config.WhisperConfig{}))
}
