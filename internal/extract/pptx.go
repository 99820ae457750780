package extract

import (
	"archive/zip"
	"encoding/xml"
	"fmt"
	"io"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"go.uber.org/zap"
)

// A .pptx is a zip of XML parts; slide content lives in ppt/slides/slideN.xml.
// There is no maintained read-oriented pure-Go pptx library, so the slide
// parts are walked directly: shape text in slide order, tables row-flattened.
var slidePartRe = regexp.MustCompile(`^ppt/slides/slide(\d+)\.xml$`)

func (e *Extractor) extractPPTX(path string) (string, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return "", fmt.Errorf("open pptx: %w", err)
	}
	defer zr.Close()

	type slidePart struct {
		num  int
		file *zip.File
	}
	var slides []slidePart
	for _, zf := range zr.File {
		m := slidePartRe.FindStringSubmatch(zf.Name)
		if m == nil {
			continue
		}
		num, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		slides = append(slides, slidePart{num: num, file: zf})
	}
	sort.Slice(slides, func(i, j int) bool { return slides[i].num < slides[j].num })

	limit := e.pageLimit(len(slides), "slides")

	var sb strings.Builder
	for i := 0; i < limit; i++ {
		fmt.Fprintf(&sb, "Slide %d:\n", i+1)

		rc, err := slides[i].file.Open()
		if err != nil {
			e.logger.Debug("pptx slide open failed", zap.Int("slide", slides[i].num), zap.Error(err))
			continue
		}
		if err := writeSlideText(&sb, rc); err != nil {
			e.logger.Debug("pptx slide parse failed", zap.Int("slide", slides[i].num), zap.Error(err))
		}
		rc.Close()

		sb.WriteByte('\n')
	}
	return sb.String(), nil
}

// writeSlideText streams one slide's XML, collecting text runs (<a:t>) per
// paragraph and flattening table rows with the cell delimiter.
func writeSlideText(sb *strings.Builder, r io.Reader) error {
	dec := xml.NewDecoder(r)

	var (
		inTextRun  bool
		tableDepth int
		para       strings.Builder
		cell       strings.Builder
		cells      []string
	)

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("decode slide xml: %w", err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "t":
				inTextRun = true
			case "tbl":
				tableDepth++
			}

		case xml.CharData:
			if !inTextRun {
				continue
			}
			if tableDepth > 0 {
				cell.Write(t)
			} else {
				para.Write(t)
			}

		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inTextRun = false
			case "p":
				if tableDepth > 0 {
					cell.WriteByte(' ')
					continue
				}
				if s := strings.TrimSpace(para.String()); s != "" {
					sb.WriteString(s)
					sb.WriteByte('\n')
				}
				para.Reset()
			case "tc":
				if s := strings.TrimSpace(cell.String()); s != "" {
					cells = append(cells, s)
				}
				cell.Reset()
			case "tr":
				if len(cells) > 0 {
					sb.WriteString(strings.Join(cells, cellDelimiter))
					sb.WriteByte('\n')
				}
				cells = cells[:0]
			case "tbl":
				tableDepth--
			}
		}
	}
	return nil
}
