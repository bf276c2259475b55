package extractor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/kkdai/youtube/v2"
	"github.com/rs/zerolog/log"

	"multisource-rag/internal/models"
)

var errNoTranscript = errors.New("video has no transcript")

// videoAPI is the slice of the youtube client the extractor needs.
type videoAPI interface {
	GetVideoContext(ctx context.Context, url string) (*youtube.Video, error)
	GetTranscriptCtx(ctx context.Context, video *youtube.Video, lang string) (youtube.VideoTranscript, error)
	GetStreamContext(ctx context.Context, video *youtube.Video, format *youtube.Format) (io.ReadCloser, int64, error)
}

func newYouTubeClient(httpClient *http.Client) videoAPI {
	return &youtube.Client{HTTPClient: httpClient}
}

// extractVideo prefers a pre-existing transcript. Only when the video has no
// transcript at all does it fall back to downloading the audio and
// transcribing it; any other fetch error is terminal.
func (e *Extractor) extractVideo(ctx context.Context, src Source) ([]models.Segment, error) {
	video, err := e.video.GetVideoContext(ctx, src.URL)
	if err != nil {
		return nil, fmt.Errorf("fetching video info: %w", err)
	}

	transcript, err := e.fetchTranscript(ctx, video)
	if err == nil {
		return []models.Segment{{Content: transcript, Source: src.URL, Page: 1}}, nil
	}
	if !errors.Is(err, errNoTranscript) && !errors.Is(err, youtube.ErrTranscriptDisabled) {
		return nil, fmt.Errorf("fetching transcript: %w", err)
	}

	log.Warn().Str("url", src.URL).Msg("no transcript available, falling back to audio transcription")
	text, terr := e.transcribeAudio(ctx, video)
	if terr != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrTranscriptionExhausted, terr)
	}
	return []models.Segment{{Content: text, Source: src.URL, Page: 1}}, nil
}

func (e *Extractor) fetchTranscript(ctx context.Context, video *youtube.Video) (string, error) {
	transcript, err := e.video.GetTranscriptCtx(ctx, video, "en")
	if err != nil {
		return "", err
	}
	if len(transcript) == 0 {
		return "", errNoTranscript
	}

	parts := make([]string, 0, len(transcript))
	for _, seg := range transcript {
		parts = append(parts, seg.Text)
	}
	joined := strings.TrimSpace(strings.Join(parts, " "))
	if joined == "" {
		return "", errNoTranscript
	}
	return joined, nil
}

// transcribeAudio downloads the best audio stream into a temp file and runs
// it through the transcription endpoint. The temp file is removed whether
// transcription succeeds or not.
func (e *Extractor) transcribeAudio(ctx context.Context, video *youtube.Video) (string, error) {
	if e.transcriber == nil {
		return "", errors.New("no transcription endpoint configured")
	}

	formats := video.Formats.Type("audio")
	if len(formats) == 0 {
		formats = video.Formats.WithAudioChannels()
	}
	if len(formats) == 0 {
		return "", errors.New("video has no audio stream")
	}

	stream, _, err := e.video.GetStreamContext(ctx, video, &formats[0])
	if err != nil {
		return "", fmt.Errorf("downloading audio: %w", err)
	}
	defer stream.Close()

	audioFile, err := os.CreateTemp("", "ragengine-audio-*.m4a")
	if err != nil {
		return "", fmt.Errorf("creating temp audio file: %w", err)
	}
	defer func() {
		if err := os.Remove(audioFile.Name()); err != nil && !os.IsNotExist(err) {
			log.Warn().Err(err).Str("path", audioFile.Name()).Msg("failed to remove temp audio file")
		}
	}()

	if _, err := io.Copy(audioFile, stream); err != nil {
		audioFile.Close()
		return "", fmt.Errorf("saving audio: %w", err)
	}
	if err := audioFile.Close(); err != nil {
		return "", fmt.Errorf("saving audio: %w", err)
	}

	log.Info().Str("video", video.ID).Msg("transcribing downloaded audio")
	text, err := e.transcriber.Transcribe(ctx, audioFile.Name())
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(text) == "" {
		return "", errors.New("transcription produced no text")
	}
	return text, nil
}
