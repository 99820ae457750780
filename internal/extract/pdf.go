package extract

import (
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
	"go.uber.org/zap"
)

// extractPDF runs two independent extraction strategies over the same file
// and keeps whichever yields more non-whitespace text. Scanned or malformed
// PDFs routinely defeat one strategy but not the other.
func (e *Extractor) extractPDF(path string) (string, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return "", fmt.Errorf("open pdf: %w", err)
	}
	defer f.Close()

	limit := e.pageLimit(r.NumPage(), "pages")

	plain := e.pdfPlainText(r, limit)
	layout := e.pdfRowText(r, limit)

	return richerText(plain, layout), nil
}

// pdfPlainText extracts each page's raw text stream. Pages that fail are
// skipped; a panic inside the pdf backend aborts the strategy and keeps
// whatever was collected so far.
func (e *Extractor) pdfPlainText(r *pdf.Reader, limit int) (text string) {
	var sb strings.Builder
	defer func() {
		if rec := recover(); rec != nil {
			e.logger.Warn("pdf plain-text strategy aborted", zap.Any("cause", rec))
			text = sb.String()
		}
	}()

	for i := 1; i <= limit; i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		pageText, err := page.GetPlainText(nil)
		if err != nil {
			e.logger.Debug("pdf page extraction failed", zap.Int("page", i), zap.Error(err))
			continue
		}
		if pageText != "" {
			sb.WriteString(pageText)
			sb.WriteByte('\n')
		}
	}
	return sb.String()
}

// pdfRowText reconstructs text row by row from glyph positions, which
// preserves reading order better on multi-column layouts.
func (e *Extractor) pdfRowText(r *pdf.Reader, limit int) (text string) {
	var sb strings.Builder
	defer func() {
		if rec := recover(); rec != nil {
			e.logger.Warn("pdf row-text strategy aborted", zap.Any("cause", rec))
			text = sb.String()
		}
	}()

	for i := 1; i <= limit; i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		rows, err := page.GetTextByRow()
		if err != nil {
			e.logger.Debug("pdf page extraction failed", zap.Int("page", i), zap.Error(err))
			continue
		}
		for _, row := range rows {
			for _, word := range row.Content {
				sb.WriteString(word.S)
				sb.WriteByte(' ')
			}
			sb.WriteByte('\n')
		}
	}
	return sb.String()
}
