package extractor

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/tmc/langchaingo/documentloaders"

	"multisource-rag/internal/models"
)

func (e *Extractor) extractWeb(ctx context.Context, src Source) ([]models.Segment, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src.URL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "multisource-rag/1.0")

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetching page: status %d", resp.StatusCode)
	}

	docs, err := documentloaders.NewHTML(resp.Body).Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("parsing page: %w", err)
	}

	var segments []models.Segment
	for i, doc := range docs {
		if strings.TrimSpace(doc.PageContent) == "" {
			continue
		}
		segments = append(segments, models.Segment{
			Content: doc.PageContent,
			Source:  src.URL,
			Page:    i + 1,
		})
	}
	return segments, nil
}
