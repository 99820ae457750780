package extract

import (
	"errors"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/studyowl/docrag/internal/domain"
)

const slideXMLHeader = `<p:sld xmlns:a="http://schemas.openxmlformats.org/drawingml/2006/main" xmlns:p="http://schemas.openxmlformats.org/presentationml/2006/main"><p:cSld><p:spTree>`

const slideXMLFooter = `</p:spTree></p:cSld></p:sld>`

func slideWithText(paragraphs ...string) string {
	var sb strings.Builder
	sb.WriteString(slideXMLHeader)
	for _, p := range paragraphs {
		sb.WriteString(`<p:sp><p:txBody><a:p><a:r><a:t>`)
		sb.WriteString(p)
		sb.WriteString(`</a:t></a:r></a:p></p:txBody></p:sp>`)
	}
	sb.WriteString(slideXMLFooter)
	return sb.String()
}

func TestExtractPPTX_SlidesInOrder(t *testing.T) {
	// Zip entry order is scrambled; output must follow slide numbers.
	path := writeTempZip(t, "deck.pptx", map[string]string{
		"ppt/presentation.xml":  "<p:presentation/>",
		"ppt/slides/slide2.xml": slideWithText("Second slide body"),
		"ppt/slides/slide1.xml": slideWithText("First slide title", "First slide body"),
	})

	e := New(zap.NewNop())
	res, err := e.Extract(path, "")
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if res.FileType != TypePPTX {
		t.Errorf("expected pptx, got %q", res.FileType)
	}

	text := res.Text
	for _, want := range []string{"Slide 1:", "First slide title", "First slide body", "Slide 2:", "Second slide body"} {
		if !strings.Contains(text, want) {
			t.Errorf("missing %q in output:\n%s", want, text)
		}
	}
	if strings.Index(text, "Slide 1:") > strings.Index(text, "Slide 2:") {
		t.Error("slides must appear in numeric order")
	}
	if strings.Index(text, "First slide body") > strings.Index(text, "Second slide body") {
		t.Error("slide content must follow slide order")
	}
}

func TestExtractPPTX_Table(t *testing.T) {
	tableXML := slideXMLHeader +
		`<p:graphicFrame><a:tbl>` +
		`<a:tr>` +
		`<a:tc><a:txBody><a:p><a:r><a:t>Name</a:t></a:r></a:p></a:txBody></a:tc>` +
		`<a:tc><a:txBody><a:p><a:r><a:t>Role</a:t></a:r></a:p></a:txBody></a:tc>` +
		`</a:tr>` +
		`<a:tr>` +
		`<a:tc><a:txBody><a:p><a:r><a:t>Ada</a:t></a:r></a:p></a:txBody></a:tc>` +
		`<a:tc><a:txBody><a:p><a:r><a:t>Engineer</a:t></a:r></a:p></a:txBody></a:tc>` +
		`</a:tr>` +
		`</a:tbl></p:graphicFrame>` +
		slideXMLFooter

	path := writeTempZip(t, "table.pptx", map[string]string{
		"ppt/slides/slide1.xml": tableXML,
	})

	e := New(zap.NewNop())
	res, err := e.Extract(path, "pptx")
	if err != nil {
		t.Fatalf("extract: %v", err)
	}

	for _, want := range []string{"Name | Role", "Ada | Engineer"} {
		if !strings.Contains(res.Text, want) {
			t.Errorf("missing table row %q in output:\n%s", want, res.Text)
		}
	}
}

func TestExtractPPTX_MultiRunParagraph(t *testing.T) {
	// Runs within one paragraph concatenate into a single line.
	xmlBody := slideXMLHeader +
		`<p:sp><p:txBody><a:p>` +
		`<a:r><a:t>Hello </a:t></a:r>` +
		`<a:r><a:t>world</a:t></a:r>` +
		`</a:p></p:txBody></p:sp>` +
		slideXMLFooter

	path := writeTempZip(t, "runs.pptx", map[string]string{
		"ppt/slides/slide1.xml": xmlBody,
	})

	e := New(zap.NewNop())
	res, err := e.Extract(path, "pptx")
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if !strings.Contains(res.Text, "Hello world") {
		t.Errorf("expected runs joined on one line, got:\n%s", res.Text)
	}
}

func TestExtractPPTX_NoSlides(t *testing.T) {
	path := writeTempZip(t, "empty.pptx", map[string]string{
		"ppt/presentation.xml": "<p:presentation/>",
	})

	e := New(zap.NewNop())
	_, err := e.Extract(path, "pptx")
	if !errors.Is(err, domain.ErrEmptyDocument) {
		t.Errorf("expected ErrEmptyDocument for a deck with no slides, got %v", err)
	}
}
