// Package extract converts uploaded document files (PDF, Word, PowerPoint)
// into plain text. It fails closed: an unreadable or empty document surfaces
// a typed error instead of silently producing zero chunks.
package extract

import (
	"archive/zip"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/studyowl/docrag/internal/domain"
)

// Supported document types.
const (
	TypePDF  = "pdf"
	TypeDOCX = "docx"
	TypePPTX = "pptx"
)

const (
	defaultMaxFileSize = 50 << 20 // 50 MB
	defaultMaxPages    = 50

	// Documents beyond this page/slide count are truncated to maxPages.
	largeDocumentPages = 100

	cellDelimiter = " | "
)

// Result carries the extracted text plus file-level metadata for document
// bookkeeping.
type Result struct {
	Text      string
	FileName  string
	FileType  string
	SizeBytes int64
}

// Extractor converts already-materialized local files into plain text.
type Extractor struct {
	maxFileSize int64
	maxPages    int
	logger      *zap.Logger
}

// New creates an extractor with default size and page limits.
func New(logger *zap.Logger) *Extractor {
	return &Extractor{
		maxFileSize: defaultMaxFileSize,
		maxPages:    defaultMaxPages,
		logger:      logger,
	}
}

// WithLimits configures the file size ceiling and the page/slide cap.
func (e *Extractor) WithLimits(maxFileSize int64, maxPages int) *Extractor {
	if maxFileSize > 0 {
		e.maxFileSize = maxFileSize
	}
	if maxPages > 0 {
		e.maxPages = maxPages
	}
	return e
}

// Extract converts the file at path into plain text. declaredType is the
// caller-supplied type hint ("pdf", "docx", "pptx" or a file extension);
// when empty or unknown the type is detected from the path and content.
func (e *Extractor) Extract(path, declaredType string) (Result, error) {
	info, err := os.Stat(path)
	if err != nil {
		return Result{}, fmt.Errorf("stat document: %v: %w", err, domain.ErrExtraction)
	}
	if info.Size() > e.maxFileSize {
		return Result{}, fmt.Errorf("document too large: %.1fMB (max %dMB): %w",
			float64(info.Size())/(1<<20), e.maxFileSize>>20, domain.ErrExtraction)
	}

	fileType, err := e.detectType(path, declaredType)
	if err != nil {
		return Result{}, err
	}

	e.logger.Debug("extracting document",
		zap.String("file", filepath.Base(path)),
		zap.String("type", fileType),
		zap.Int64("size_bytes", info.Size()),
	)

	var text string
	switch fileType {
	case TypePDF:
		text, err = e.extractPDF(path)
	case TypeDOCX:
		text, err = e.extractDOCX(path)
	case TypePPTX:
		text, err = e.extractPPTX(path)
	}
	if err != nil {
		return Result{}, fmt.Errorf("extract %s: %v: %w", fileType, err, domain.ErrExtraction)
	}
	if strings.TrimSpace(text) == "" {
		return Result{}, fmt.Errorf("%s document %q: %w", fileType, filepath.Base(path), domain.ErrEmptyDocument)
	}

	return Result{
		Text:      text,
		FileName:  filepath.Base(path),
		FileType:  fileType,
		SizeBytes: info.Size(),
	}, nil
}

// detectType resolves the document type from the declared hint, the file
// extension, the MIME type for that extension, and finally content sniffing.
func (e *Extractor) detectType(path, declared string) (string, error) {
	if t, ok := normalizeType(declared); ok {
		return t, nil
	}

	ext := strings.ToLower(filepath.Ext(path))
	if t, ok := normalizeType(ext); ok {
		return t, nil
	}

	if mimeType := mime.TypeByExtension(ext); mimeType != "" {
		switch {
		case strings.Contains(mimeType, "pdf"):
			return TypePDF, nil
		case strings.Contains(mimeType, "wordprocessingml"), strings.Contains(mimeType, "msword"):
			return TypeDOCX, nil
		case strings.Contains(mimeType, "presentationml"), strings.Contains(mimeType, "mspowerpoint"):
			return TypePPTX, nil
		}
	}

	if t, ok := e.sniffContent(path); ok {
		return t, nil
	}

	return "", fmt.Errorf("file type %q (supported: .pdf, .docx, .pptx): %w", ext, domain.ErrUnsupportedFormat)
}

func normalizeType(t string) (string, bool) {
	switch strings.ToLower(strings.TrimPrefix(t, ".")) {
	case "pdf":
		return TypePDF, true
	case "docx", "doc":
		return TypeDOCX, true
	case "pptx", "ppt":
		return TypePPTX, true
	default:
		return "", false
	}
}

// sniffContent inspects the file content: PDF magic bytes, or an OOXML zip
// probed for its characteristic document part.
func (e *Extractor) sniffContent(path string) (string, bool) {
	f, err := os.Open(path)
	if err != nil {
		return "", false
	}
	defer f.Close()

	head := make([]byte, 4)
	if _, err := f.Read(head); err != nil {
		return "", false
	}

	if strings.HasPrefix(string(head), "%PDF") {
		return TypePDF, true
	}
	if string(head) != "PK\x03\x04" {
		return "", false
	}

	zr, err := zip.OpenReader(path)
	if err != nil {
		return "", false
	}
	defer zr.Close()

	for _, zf := range zr.File {
		switch zf.Name {
		case "word/document.xml":
			return TypeDOCX, true
		case "ppt/presentation.xml":
			return TypePPTX, true
		}
	}
	return "", false
}

// pageLimit applies the oversized-document cap: documents beyond
// largeDocumentPages are truncated to maxPages with a warning.
func (e *Extractor) pageLimit(total int, unit string) int {
	if total <= largeDocumentPages {
		return total
	}
	e.logger.Warn("large document detected, truncating",
		zap.Int(unit, total),
		zap.Int("processed", e.maxPages),
	)
	return e.maxPages
}
