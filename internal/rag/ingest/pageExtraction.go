package ingest

import (
	"context"
	"errors"
	"fmt"

	"github.com/akolanti/QuizRAG/internal/config"
	"github.com/akolanti/QuizRAG/pkg/logger_i"
	"github.com/dslipak/pdf"
	"github.com/lu4p/cat"
)

func extractPDF(ctx context.Context, path string, log *logger_i.Logger) ([]rawPage, error) {
	f, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open pdf: %w", err)
	}

	var pages []rawPage
	numPages := f.NumPage()
	log.Debug("extractPDF", "number of pages", numPages)
	for i := 1; i <= numPages; i++ {
		if err = ctx.Err(); err != nil {
			return nil, err
		}
		page := f.Page(i)
		if page.V.IsNull() {
			continue
		}

		content, err := protectExtract(ctx, page)
		if err != nil {
			// a bad page should not sink the document
			log.Warn("Error parsing page content, skipping", "page", i, "error", err)
			continue
		}

		pages = append(pages, rawPage{
			Number:  i,
			Content: content,
		})
	}
	return pages, nil
}

// extractDocxTxtRtf reads a .odt, .docx, .rtf or plaintext file as a single page.
func extractDocxTxtRtf(path string, log *logger_i.Logger) ([]rawPage, error) {
	text, err := cat.File(path)
	if err != nil {
		log.Error("Error extracting content from doc", "error", err)
		return nil, fmt.Errorf("failed to extract text: %w", err)
	}
	return []rawPage{{Number: 1, Content: text}}, nil
}

// protectExtract bounds a single page extraction; the pdf library can hang or panic on odd pages.
func protectExtract(ctx context.Context, page pdf.Page) (string, error) {
	type result struct {
		content string
		err     error
	}
	resChan := make(chan result, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				resChan <- result{err: fmt.Errorf("page extraction panicked: %v", r)}
			}
		}()
		content, err := page.GetPlainText(nil)
		resChan <- result{content, err}
	}()

	ctx, cancel := context.WithTimeout(ctx, config.PageExtractTimeout)
	defer cancel()
	select {
	case r := <-resChan:
		return r.content, r.err
	case <-ctx.Done():
		return "", errors.New("page extraction timed out")
	}
}
