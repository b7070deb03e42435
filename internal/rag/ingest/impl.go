package ingest

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/akolanti/QuizRAG/internal/config"
	"github.com/akolanti/QuizRAG/internal/domain/commonModels"
	"github.com/akolanti/QuizRAG/pkg/logger_i"
)

type docType string

const (
	pdfDoc     docType = "pdf"
	textDoc    docType = "text"
	unknownDoc docType = ""
)

var ErrUnsupportedType = errors.New("unsupported document type")

// separators ordered from the most to the least meaningful boundary
var separators = []string{"\n\n", "\n", ". ", " "}

// splitTextIntoChunks cuts text into pieces of at most limit bytes on the best available
// boundary, starting each piece with the last overlap bytes of the previous one.
func splitTextIntoChunks(text string, limit int, overlap int) []string {
	if len(text) <= limit {
		return []string{text}
	}

	var chunks []string
	var current strings.Builder

	flush := func() {
		if current.Len() == 0 {
			return
		}
		chunk := current.String()
		chunks = append(chunks, chunk)
		current.Reset()
		if overlap > 0 && len(chunk) > overlap {
			current.WriteString(chunk[runeBoundary(chunk, len(chunk)-overlap):])
		}
	}

	for _, piece := range splitPieces(text, limit-overlap, 0) {
		if current.Len()+len(piece) > limit {
			flush()
		}
		current.WriteString(piece)
	}
	if current.Len() > 0 {
		chunks = append(chunks, current.String())
	}
	return chunks
}

// splitPieces breaks text on separators[level] and recurses into any piece still above max.
// Separators stay attached to the piece before them so joining the pieces restores text.
func splitPieces(text string, max int, level int) []string {
	if max < 1 {
		max = 1
	}
	if len(text) <= max {
		return []string{text}
	}
	if level >= len(separators) {
		var out []string
		for len(text) > max {
			cut := runeBoundary(text, max)
			if cut == 0 || cut >= len(text) {
				cut = max
			}
			out = append(out, text[:cut])
			text = text[cut:]
		}
		return append(out, text)
	}

	sep := separators[level]
	if !strings.Contains(text, sep) {
		return splitPieces(text, max, level+1)
	}

	var out []string
	parts := strings.SplitAfter(text, sep)
	for _, part := range parts {
		if part == "" {
			continue
		}
		out = append(out, splitPieces(part, max, level+1)...)
	}
	return out
}

// runeBoundary moves i back to the start of the utf-8 sequence it falls in.
func runeBoundary(s string, i int) int {
	for i > 0 && i < len(s) && !utf8.RuneStart(s[i]) {
		i--
	}
	return i
}

// Supported reports whether the file's extension is one ProcessDocumentIngestion can read.
func Supported(name string) bool {
	return getDocType(name) != unknownDoc
}

func getDocType(docPath string) docType {
	switch strings.ToLower(filepath.Ext(docPath)) {
	case ".pdf":
		return pdfDoc
	case ".docx", ".odt", ".rtf", ".txt":
		return textDoc
	default:
		return unknownDoc
	}
}

func extractText(ctx context.Context, path string, kind docType, log *logger_i.Logger) ([]rawPage, error) {
	switch kind {
	case pdfDoc:
		return extractPDF(ctx, path, log)
	case textDoc:
		return extractDocxTxtRtf(path, log)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedType, kind)
	}
}

// PrepareChunks splits each page and tags every chunk with its page number, in document order.
// Whitespace-only chunks are dropped.
func PrepareChunks(pages []rawPage) []commonModels.ChunkInput {
	var all []commonModels.ChunkInput
	for _, page := range pages {
		for _, text := range splitTextIntoChunks(page.Content, config.MaxChunkSize, config.ChunkOverlap) {
			if strings.TrimSpace(text) == "" {
				continue
			}
			all = append(all, commonModels.ChunkInput{Content: text, Page: page.Number})
		}
	}
	return all
}
