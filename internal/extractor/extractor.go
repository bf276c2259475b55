package extractor

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"multisource-rag/internal/models"
)

// Kind tells the extractor how to read a source.
type Kind int

const (
	KindWeb Kind = iota
	KindVideo
	KindDocument
)

// Source is a reference to raw material: a web or video URL, or uploaded
// document bytes plus their filename (the extension drives parsing).
type Source struct {
	Kind Kind
	Name string
	URL  string
	Data []byte
}

// Transcriber converts an audio file into text.
type Transcriber interface {
	Transcribe(ctx context.Context, path string) (string, error)
}

// Extractor turns sources into ordered text segments.
type Extractor struct {
	httpClient  *http.Client
	video       videoAPI
	transcriber Transcriber
}

// New builds an extractor. transcriber may be nil, which disables the audio
// transcription fallback for videos.
func New(transcriber Transcriber) *Extractor {
	httpClient := &http.Client{Timeout: 60 * time.Second}
	return &Extractor{
		httpClient:  httpClient,
		video:       newYouTubeClient(httpClient),
		transcriber: transcriber,
	}
}

// Extract produces the segments for a source. Failures are reported as
// *models.ExtractionError; an extraction that yields no text is a failure.
func (e *Extractor) Extract(ctx context.Context, src Source) ([]models.Segment, error) {
	var (
		segments []models.Segment
		err      error
	)
	switch src.Kind {
	case KindWeb:
		segments, err = e.extractWeb(ctx, src)
	case KindVideo:
		segments, err = e.extractVideo(ctx, src)
	case KindDocument:
		segments, err = e.extractDocument(src)
	default:
		err = fmt.Errorf("unknown source kind %d", src.Kind)
	}
	if err != nil {
		return nil, &models.ExtractionError{Source: src.Name, Err: err}
	}
	if len(segments) == 0 {
		return nil, &models.ExtractionError{Source: src.Name, Err: fmt.Errorf("no content extracted")}
	}
	return segments, nil
}

// DetectKind classifies a user-supplied source reference the way the chat
// frontends do: YouTube URLs are videos, other URLs are web pages, everything
// else is a local document path.
func DetectKind(ref string) Kind {
	if strings.Contains(ref, "youtube.com") || strings.Contains(ref, "youtu.be") {
		return KindVideo
	}
	if strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://") {
		return KindWeb
	}
	return KindDocument
}
