package parser

import (
	"context"
	"fmt"
	"strings"

	"document-summary/internal/ocr"

	"github.com/rs/zerolog/log"
)

const (
	defaultSamplePages = 3
	defaultOCRPages    = 10
	defaultOCRDPI      = 200
	// a page shorter than this is treated as empty
	minPageChars = 10
)

// PreCheck is the result of sampling the first pages of a PDF.
type PreCheck struct {
	SampledPages int
	HasText      bool
	HasImages    bool
}

// NeedsOCR is true for documents with images or without a text layer.
func (p PreCheck) NeedsOCR() bool {
	return p.HasImages || !p.HasText
}

// ImageOnly is the stronger signal used to skip the structural strategies.
func (p PreCheck) ImageOnly() bool {
	return p.HasImages && !p.HasText
}

// OCRResult is what a recognition run produced. Placeholder is set when the
// text is a diagnostic message instead of recognised content.
type OCRResult struct {
	Needed          bool
	Text            string
	Engine          string
	TotalPages      int
	SuccessfulPages int
	Placeholder     bool
	PreCheck        PreCheck
}

// OCRFallback rasterizes pages and runs a recognizer over them.
type OCRFallback struct {
	Recognizer  ocr.Recognizer
	Rasterizer  ocr.Rasterizer
	SamplePages int
	MaxPages    int
	DPI         int
}

func NewOCRFallback(recognizer ocr.Recognizer, rasterizer ocr.Rasterizer) *OCRFallback {
	return &OCRFallback{
		Recognizer:  recognizer,
		Rasterizer:  rasterizer,
		SamplePages: defaultSamplePages,
		MaxPages:    defaultOCRPages,
		DPI:         defaultOCRDPI,
	}
}

// Available reports whether both the rasterizer and the recognizer can run.
func (o *OCRFallback) Available(ctx context.Context) error {
	if o == nil || o.Recognizer == nil {
		return fmt.Errorf("%w: no recognizer configured", ocr.ErrUnavailable)
	}
	if o.Rasterizer == nil {
		return fmt.Errorf("%w: no rasterizer configured", ocr.ErrUnavailable)
	}
	if err := o.Rasterizer.Available(ctx); err != nil {
		return err
	}
	return o.Recognizer.Available(ctx)
}

// Check samples the first pages. Sampling stops at the first page with text.
func (o *OCRFallback) Check(doc *Document) PreCheck {
	sample := defaultSamplePages
	if o != nil && o.SamplePages > 0 {
		sample = o.SamplePages
	}
	pc := PreCheck{}
	pages := doc.PageCount()
	for i := 1; i <= pages && i <= sample; i++ {
		pc.SampledPages++
		if doc.PageHasImages(i) {
			pc.HasImages = true
		}
		if len(strings.TrimSpace(doc.PageText(i))) > minPageChars {
			pc.HasText = true
			break
		}
	}
	if !pc.HasImages && !pc.HasText {
		pc.HasImages = pdfcpuImagePages(doc.Data, sample)
	}
	return pc
}

// Run recognises the document. Unless force is set, it first checks whether
// OCR is needed at all and returns Needed=false when it is not. It never
// returns an error: every failure becomes a placeholder result.
func (o *OCRFallback) Run(ctx context.Context, doc *Document, force bool) OCRResult {
	pc := o.Check(doc)
	res := OCRResult{Needed: true, PreCheck: pc, TotalPages: doc.PageCount()}
	if !force && !pc.NeedsOCR() {
		res.Needed = false
		return res
	}

	if err := o.Available(ctx); err != nil {
		log.Warn().Err(err).Msg("OCR engine unavailable")
		return o.placeholder(res, doc)
	}
	res.Engine = o.Recognizer.Name()

	images, err := o.Rasterizer.Rasterize(ctx, doc.Data, o.MaxPages, o.DPI)
	if err != nil {
		log.Warn().Err(err).Msg("Rasterization failed")
		return o.placeholder(res, doc)
	}
	res.TotalPages = len(images)

	var pages []string
	for _, img := range images {
		if ctx.Err() != nil {
			break
		}
		text, err := o.Recognizer.Recognize(ctx, img)
		if err != nil {
			log.Warn().Err(err).Int("page", img.Page).Msg("OCR failed on page")
			continue
		}
		text = ocr.Clean(text)
		if len(text) > minPageChars {
			res.SuccessfulPages++
			pages = append(pages, text)
		}
	}
	log.Info().Str("engine", res.Engine).Int("pages", res.TotalPages).Int("successful", res.SuccessfulPages).Msg("OCR finished")

	if res.SuccessfulPages == 0 {
		return o.placeholder(res, doc)
	}
	res.Text = ocr.Clean(strings.Join(pages, "\n\n"))
	return res
}

func (o *OCRFallback) placeholder(res OCRResult, doc *Document) OCRResult {
	res.Placeholder = true
	res.Text = Placeholder(doc.PageCount(), len(doc.Data), res.PreCheck)
	return res
}

// Placeholder describes a document whose text could not be recognised.
func Placeholder(pages, byteSize int, pc PreCheck) string {
	yesNo := func(b bool) string {
		if b {
			return "yes"
		}
		return "no"
	}
	return fmt.Sprintf(`[Text extraction unavailable]
This document appears to be scanned or image-based and no OCR engine could process it.
Pages: %d
Size: %d bytes
Contains images: %s
Contains extractable text: %s
Install tesseract and poppler-utils (pdftoppm) or configure a Gemini key to extract its text.`,
		pages, byteSize, yesNo(pc.HasImages), yesNo(pc.HasText))
}
