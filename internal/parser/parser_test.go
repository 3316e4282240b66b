package parser

import (
	"context"
	"strings"
	"testing"

	"document-summary/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetectFormat(t *testing.T) {
	tests := []struct {
		name      string
		mediaType string
		file      string
		data      []byte
		want      Format
	}{
		{"media type wins", "application/pdf", "notes.txt", nil, FormatPDF},
		{"media type params", "text/markdown; charset=utf-8", "", nil, FormatMarkdown},
		{"extension", "", "Report.DOCX", nil, FormatDOCX},
		{"macro workbook", "", "budget.xlsm", nil, FormatWorkbook},
		{"magic bytes", "application/octet-stream", "upload", []byte("%PDF-1.7\n"), FormatPDF},
		{"utf8 text", "", "", []byte("plain words"), FormatText},
		{"binary", "", "", []byte{0xff, 0xfe, 0x81}, FormatUnknown},
		{"empty", "", "", nil, FormatUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DetectFormat(tt.mediaType, tt.file, tt.data))
		})
	}
}

func TestParseBytes(t *testing.T) {
	text, source, err := ParseBytes(FormatText, []byte("ok\xffdone"))
	require.NoError(t, err)
	assert.Equal(t, models.SourcePlainText, source)
	assert.Equal(t, "okdone", text)

	_, _, err = ParseBytes(FormatUnknown, nil)
	assert.ErrorIs(t, err, ErrUnsupportedFormat)

	_, _, err = ParseBytes(FormatDOCX, []byte("not a zip"))
	assert.Error(t, err)
}

func TestParseMarkdown(t *testing.T) {
	src := "# Title\n\nFirst paragraph with *emphasis*.\n\n- one\n- two\n\n```\ncode line\n```\n"
	text, err := parseMarkdown([]byte(src))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(text, "Title\n\nFirst paragraph with emphasis."))
	assert.Contains(t, text, "one")
	assert.Contains(t, text, "two")
	assert.Contains(t, text, "code line")
	assert.NotContains(t, text, "#")
	assert.NotContains(t, text, "*")
	assert.NotContains(t, text, "\n\n\n")
}

func TestDocumentReadsBuiltPDF(t *testing.T) {
	doc := NewDocument(buildTextPDF("Alpha page content here", "Beta page content here"))
	assert.Equal(t, 2, doc.PageCount())
	assert.False(t, doc.Encrypted())
	assert.False(t, doc.HasForms())
	assert.Contains(t, doc.PageText(1), "Alpha page content")
	assert.Contains(t, doc.PageText(2), "Beta page content")
	assert.Empty(t, doc.PageText(3))
	assert.False(t, doc.PageHasImages(1))

	img := NewDocument(buildImageOnlyPDF())
	assert.Equal(t, 1, img.PageCount())
	assert.True(t, img.PageHasImages(1))
	assert.Empty(t, strings.TrimSpace(img.PageText(1)))
}

func TestDocumentPageCountFallback(t *testing.T) {
	doc := NewDocument([]byte("%PDF-1.4\n1 0 obj << /Type /Page >>\n2 0 obj << /Type /Page >>\n3 0 obj << /Type /Pages >>"))
	_, err := doc.Reader()
	assert.Error(t, err)
	assert.Equal(t, 2, doc.PageCount())
	assert.Empty(t, doc.PageText(1))
}

func TestStructuralStrategiesOnBuiltPDF(t *testing.T) {
	doc := NewDocument(buildTextPDF("Alpha page content here", "Beta page content here"))
	ctx := context.Background()

	text, err := LenientParse{}.Extract(ctx, doc)
	require.NoError(t, err)
	assert.Contains(t, text, "Alpha page content")
	assert.Contains(t, text, "\n\n")
	assert.Contains(t, text, "Beta page content")

	text, err = PageRecovery{}.Extract(ctx, doc)
	require.NoError(t, err)
	assert.Contains(t, text, "Beta page content")
}

func TestStructuralStrategiesOnGarbage(t *testing.T) {
	doc := NewDocument([]byte("%PDF-1.4\nthis is not really a pdf"))
	ctx := context.Background()

	_, err := StrictParse{}.Extract(ctx, doc)
	assert.Error(t, err)

	_, err = LenientParse{}.Extract(ctx, doc)
	assert.Error(t, err)

	_, err = PageRecovery{}.Extract(ctx, doc)
	assert.ErrorIs(t, err, ErrNoTextExtracted)
}

func TestPreCheck(t *testing.T) {
	o := NewOCRFallback(nil, nil)

	pc := o.Check(NewDocument(buildTextPDF(prose)))
	assert.True(t, pc.HasText)
	assert.False(t, pc.NeedsOCR())

	pc = o.Check(NewDocument(buildImageOnlyPDF()))
	assert.False(t, pc.HasText)
	assert.True(t, pc.HasImages)
	assert.True(t, pc.ImageOnly())
	assert.True(t, pc.NeedsOCR())
}

func TestOCRFallbackRunWithoutEngine(t *testing.T) {
	var o *OCRFallback
	assert.Error(t, o.Available(context.Background()))

	res := o.Run(context.Background(), NewDocument(buildImageOnlyPDF()), false)
	assert.True(t, res.Needed)
	assert.True(t, res.Placeholder)
	assert.Contains(t, res.Text, "Contains images: yes")
}

func TestOCRFallbackDropsEmptyPages(t *testing.T) {
	rec := &fakeRecognizer{text: "  ~  "}
	o := NewOCRFallback(rec, fakeRasterizer{pages: 3})
	res := o.Run(context.Background(), NewDocument(buildImageOnlyPDF()), true)
	assert.True(t, res.Placeholder)
	assert.Equal(t, 3, res.TotalPages)
	assert.Zero(t, res.SuccessfulPages)
	assert.Equal(t, int32(3), rec.calls.Load())
}
