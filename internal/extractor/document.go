package extractor

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/nguyenthenguyen/docx"
	"github.com/rs/zerolog/log"
	"github.com/tealeg/xlsx"
	"github.com/tmc/langchaingo/documentloaders"
	"github.com/xuri/excelize/v2"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"multisource-rag/internal/models"
)

// extractDocument writes the uploaded bytes to a temp file keyed by their
// content hash, parses by extension and removes the file again. The hash key
// means identical re-uploads land on the same path instead of piling up.
func (e *Extractor) extractDocument(src Source) ([]models.Segment, error) {
	ext := strings.ToLower(filepath.Ext(src.Name))
	hash := sha256.Sum256(src.Data)
	tmpPath := filepath.Join(os.TempDir(), "ragengine-"+hex.EncodeToString(hash[:8])+ext)

	if err := os.WriteFile(tmpPath, src.Data, 0o600); err != nil {
		return nil, fmt.Errorf("writing temp document: %w", err)
	}
	defer func() {
		if err := os.Remove(tmpPath); err != nil && !os.IsNotExist(err) {
			log.Warn().Err(err).Str("path", tmpPath).Msg("failed to remove temp document")
		}
	}()

	switch ext {
	case ".pdf":
		return parsePDF(tmpPath, src.Name)
	case ".docx":
		return parseDOCX(tmpPath, src.Name)
	case ".xlsx":
		return parseXLSX(tmpPath, src.Name)
	case ".ods":
		return parseODS(tmpPath, src.Name)
	case ".md":
		return parseMarkdown(src.Data, src.Name)
	case ".txt":
		return parseText(src.Data, src.Name)
	default:
		return nil, fmt.Errorf("unsupported file format: %s", ext)
	}
}

// parsePDF yields one segment per page.
func parsePDF(path, name string) ([]models.Segment, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	stat, err := f.Stat()
	if err != nil {
		return nil, err
	}
	reader, err := pdf.NewReader(f, stat.Size())
	if err != nil {
		return nil, err
	}

	var segments []models.Segment
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		pageText, err := page.GetPlainText(nil)
		if err != nil {
			return nil, fmt.Errorf("page %d: %w", i, err)
		}
		if strings.TrimSpace(pageText) == "" {
			continue
		}
		segments = append(segments, models.Segment{Content: pageText, Source: name, Page: i})
	}
	return segments, nil
}

var xmlTagRe = regexp.MustCompile(`<[^>]+>`)

// parseDOCX yields one segment per non-empty paragraph. DOCX has no page
// numbers, everything is page 1.
func parseDOCX(path, name string) ([]models.Segment, error) {
	r, err := docx.ReadDocxFile(path)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	content := xmlTagRe.ReplaceAllString(r.Editable().GetContent(), "\n")
	var segments []models.Segment
	for _, paragraph := range strings.Split(content, "\n") {
		if strings.TrimSpace(paragraph) == "" {
			continue
		}
		segments = append(segments, models.Segment{Content: paragraph, Source: name, Page: 1})
	}
	return segments, nil
}

// parseXLSX yields one segment per sheet, cells tab-separated.
func parseXLSX(path, name string) ([]models.Segment, error) {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, err
	}

	var segments []models.Segment
	for sheetNum, sheet := range f.Sheets {
		var text strings.Builder
		text.WriteString(fmt.Sprintf("Sheet: %s\n", sheet.Name))
		for _, row := range sheet.Rows {
			for _, cell := range row.Cells {
				text.WriteString(cell.String() + "\t")
			}
			text.WriteString("\n")
		}
		if strings.TrimSpace(text.String()) == "Sheet: "+sheet.Name {
			continue
		}
		segments = append(segments, models.Segment{Content: text.String(), Source: name, Page: sheetNum + 1})
	}
	return segments, nil
}

// parseODS yields one segment per sheet.
func parseODS(path, name string) ([]models.Segment, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var segments []models.Segment
	for sheetNum, sheetName := range f.GetSheetList() {
		rows, err := f.GetRows(sheetName)
		if err != nil {
			continue
		}
		var text strings.Builder
		text.WriteString(fmt.Sprintf("Sheet: %s\n", sheetName))
		empty := true
		for _, row := range rows {
			for _, cell := range row {
				if strings.TrimSpace(cell) != "" {
					empty = false
				}
				text.WriteString(cell + "\t")
			}
			text.WriteString("\n")
		}
		if empty {
			continue
		}
		segments = append(segments, models.Segment{Content: text.String(), Source: name, Page: sheetNum + 1})
	}
	return segments, nil
}

// parseMarkdown renders the markdown and extracts the plain text from the
// rendered HTML, so formatting noise does not leak into chunks.
func parseMarkdown(data []byte, name string) ([]models.Segment, error) {
	md := goldmark.New(goldmark.WithExtensions(extension.GFM))
	var buf bytes.Buffer
	if err := md.Convert(data, &buf); err != nil {
		return nil, fmt.Errorf("rendering markdown: %w", err)
	}

	docs, err := documentloaders.NewHTML(&buf).Load(context.Background())
	if err != nil {
		return nil, fmt.Errorf("extracting markdown text: %w", err)
	}

	var segments []models.Segment
	for _, doc := range docs {
		if strings.TrimSpace(doc.PageContent) == "" {
			continue
		}
		segments = append(segments, models.Segment{Content: doc.PageContent, Source: name, Page: 1})
	}
	return segments, nil
}

func parseText(data []byte, name string) ([]models.Segment, error) {
	if strings.TrimSpace(string(data)) == "" {
		return nil, nil
	}
	return []models.Segment{{Content: string(data), Source: name, Page: 1}}, nil
}
