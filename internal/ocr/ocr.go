// Package ocr turns page images into text. Engines are optional at runtime:
// callers probe Available and degrade when it fails.
package ocr

import (
	"context"
	"errors"
	"regexp"
	"strings"
)

var ErrUnavailable = errors.New("ocr engine unavailable")

// Image is one rasterized page.
type Image struct {
	Page     int
	MIMEType string
	Data     []byte
}

// Recognizer extracts text from a single page image.
type Recognizer interface {
	Name() string
	Available(ctx context.Context) error
	Recognize(ctx context.Context, img Image) (string, error)
}

// Rasterizer renders the first maxPages pages of a PDF to images.
type Rasterizer interface {
	Available(ctx context.Context) error
	Rasterize(ctx context.Context, pdf []byte, maxPages, dpi int) ([]Image, error)
}

var (
	horizontalSpaceRe = regexp.MustCompile(`[ \t\f\v]+`)
	blankLinesRe      = regexp.MustCompile(`\n{3,}`)
)

// Clean normalises recognised text, keeping at most one blank line between
// paragraphs.
func Clean(text string) string {
	text = strings.ReplaceAll(text, "\x00", "")
	text = strings.ReplaceAll(text, "�", "")
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	text = horizontalSpaceRe.ReplaceAllString(text, " ")

	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(line)
	}
	text = strings.Join(lines, "\n")
	text = blankLinesRe.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text)
}
