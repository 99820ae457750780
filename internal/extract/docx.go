package extract

import (
	"fmt"
	"os"
	"strings"

	"github.com/fumiama/go-docx"
)

// extractDOCX walks the Word document body in document order: paragraphs
// joined by newlines, tables flattened row-wise with a cell delimiter.
func (e *Extractor) extractDOCX(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open docx: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return "", fmt.Errorf("stat docx: %w", err)
	}

	doc, err := docx.Parse(f, info.Size())
	if err != nil {
		return "", fmt.Errorf("parse docx: %w", err)
	}

	var sb strings.Builder
	for _, item := range doc.Document.Body.Items {
		switch it := item.(type) {
		case *docx.Paragraph:
			if t := strings.TrimSpace(it.String()); t != "" {
				sb.WriteString(t)
				sb.WriteByte('\n')
			}
		case *docx.Table:
			writeDocxTable(&sb, it)
		}
	}
	return sb.String(), nil
}

func writeDocxTable(sb *strings.Builder, tbl *docx.Table) {
	for _, row := range tbl.TableRows {
		var cells []string
		for _, cell := range row.TableCells {
			var parts []string
			for _, p := range cell.Paragraphs {
				if t := strings.TrimSpace(p.String()); t != "" {
					parts = append(parts, t)
				}
			}
			if len(parts) > 0 {
				cells = append(cells, strings.Join(parts, " "))
			}
		}
		if len(cells) > 0 {
			sb.WriteString(strings.Join(cells, cellDelimiter))
			sb.WriteByte('\n')
		}
	}
}
