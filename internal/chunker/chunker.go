package chunker

import (
	"strings"

	"multisource-rag/internal/models"
)

const (
	defaultSize    = 1000
	defaultOverlap = 200
)

// Split cuts each segment's text into sliding-window chunks of at most size
// characters where consecutive chunks from the same segment share exactly
// overlap characters. Size and overlap count runes, not bytes, so multibyte
// text is never cut mid-rune. Windows never cross segment boundaries.
// Whitespace-only segments are skipped; the remaining text is windowed
// verbatim, so dropping the first overlap characters of every chunk after the
// first reconstructs the segment.
func Split(segments []models.Segment, size, overlap int) []models.Chunk {
	if size <= 0 {
		size = defaultSize
	}
	if overlap < 0 {
		overlap = 0
	}
	if overlap >= size {
		overlap = size / 2
	}

	var chunks []models.Chunk
	seq := 0
	for _, seg := range segments {
		if strings.TrimSpace(seg.Content) == "" {
			continue
		}
		runes := []rune(seg.Content)
		step := size - overlap
		for start := 0; start < len(runes); start += step {
			end := min(start+size, len(runes))
			chunks = append(chunks, models.Chunk{
				Content: string(runes[start:end]),
				Source:  seg.Source,
				Page:    seg.Page,
				Seq:     seq,
			})
			seq++
			if end == len(runes) {
				break
			}
		}
	}
	return chunks
}

// Join reassembles a segment's text from the chunks Split produced for it with
// the given overlap. The chunks must all come from one segment: the first
// chunk of each segment starts fresh, so joining across segment boundaries
// would drop characters that were never overlapped.
func Join(chunks []models.Chunk, overlap int) string {
	var b strings.Builder
	for i, c := range chunks {
		runes := []rune(c.Content)
		if i > 0 && len(runes) >= overlap {
			runes = runes[overlap:]
		}
		b.WriteString(string(runes))
	}
	return b.String()
}
