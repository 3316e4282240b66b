package parser

import (
	"context"
	"errors"
	"strings"
	"time"

	"document-summary/internal/config"
	"document-summary/internal/metrics"
	"document-summary/internal/models"

	"github.com/rs/zerolog/log"
)

// Extractor walks the strategy chain and returns the first output that passes
// the validity gate.
type Extractor struct {
	gate        *Gate
	strategies  []Strategy
	ocr         *OCRFallback
	ocrPriority string
	metrics     *metrics.Recorder
}

type Option func(*Extractor)

// WithStrategies replaces the structural PDF strategies.
func WithStrategies(strategies ...Strategy) Option {
	return func(e *Extractor) {
		e.strategies = strategies
	}
}

func WithOCR(o *OCRFallback) Option {
	return func(e *Extractor) {
		e.ocr = o
	}
}

func WithOCRPriority(priority string) Option {
	return func(e *Extractor) {
		e.ocrPriority = priority
	}
}

func WithGate(g *Gate) Option {
	return func(e *Extractor) {
		e.gate = g
	}
}

func WithMetrics(m *metrics.Recorder) Option {
	return func(e *Extractor) {
		e.metrics = m
	}
}

// NewExtractor builds an extractor from the extraction section of cfg. A nil
// cfg uses defaults.
func NewExtractor(cfg *config.ExtractionConfig, opts ...Option) *Extractor {
	e := &Extractor{
		gate:        NewGate(0, 0),
		strategies:  DefaultStrategies(),
		ocrPriority: config.OCRPriorityLast,
	}
	if cfg != nil {
		e.gate = NewGate(cfg.MinTextLength, cfg.MaxMetadataRatio)
		if cfg.OCRPriority != "" {
			e.ocrPriority = cfg.OCRPriority
		}
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Gate exposes the validity gate used by the chain.
func (e *Extractor) Gate() *Gate {
	return e.gate
}

// Extract returns the text of raw or an *ExtractionFailedError.
func (e *Extractor) Extract(ctx context.Context, raw models.RawDocument) (*models.ExtractionResult, error) {
	started := time.Now()
	defer e.metrics.ObserveStage("extract", started)

	kind := DetectFormat(raw.MediaType, raw.Name, raw.Data)
	if kind != FormatPDF {
		return e.extractOther(kind, raw)
	}
	return e.extractPDF(ctx, raw)
}

type chainRun struct {
	attempts     []models.ExtractionAttempt
	rejectedText bool
	errored      int
}

func (e *Extractor) extractPDF(ctx context.Context, raw models.RawDocument) (*models.ExtractionResult, error) {
	doc := NewDocument(raw.Data)
	run := &chainRun{}
	ocrTried := false

	if e.ocrPriority == config.OCRPriorityFirst && e.ocr.Available(ctx) == nil {
		ocrTried = true
		if res := e.tryOCR(ctx, doc, run, true); res != nil {
			return res, nil
		}
	} else if e.ocrPriority != config.OCRPriorityFirst && e.ocr != nil {
		if pc := e.ocr.Check(doc); pc.ImageOnly() {
			log.Info().Int("sampled_pages", pc.SampledPages).Msg("Image-only document, trying OCR before structural strategies")
			ocrTried = true
			if res := e.tryOCR(ctx, doc, run, false); res != nil {
				return res, nil
			}
		}
	}

	for _, s := range e.strategies {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		text, ok := e.attempt(ctx, s, doc, run)
		if ok {
			return e.accept(s.Name(), text, doc, run), nil
		}
	}

	if !ocrTried {
		if res := e.tryOCR(ctx, doc, run, false); res != nil {
			return res, nil
		}
	}

	e.metrics.Extraction("none", false)
	return nil, e.failure(doc, run, raw.MediaType)
}

// attempt runs one strategy, recovering panics and applying the gate.
func (e *Extractor) attempt(ctx context.Context, s Strategy, doc *Document, run *chainRun) (string, bool) {
	var text string
	err := safely(func() error {
		var err error
		text, err = s.Extract(ctx, doc)
		return err
	})
	a := models.ExtractionAttempt{Strategy: s.Name(), Chars: len(text), Err: err}
	if err != nil {
		a.Error = err.Error()
		run.errored++
		log.Debug().Err(err).Str("strategy", s.Name()).Msg("Strategy failed")
		e.metrics.StrategyAttempt(s.Name(), "error")
	}
	if err == nil && e.gate.IsValid(text) {
		a.Accepted = true
		e.metrics.StrategyAttempt(s.Name(), "accepted")
	} else if err == nil {
		if strings.TrimSpace(text) != "" {
			run.rejectedText = true
		}
		log.Debug().Str("strategy", s.Name()).Int("chars", len(text)).Float64("metadata_ratio", MetadataRatio(text)).Msg("Strategy output rejected")
		e.metrics.StrategyAttempt(s.Name(), "rejected")
	}
	run.attempts = append(run.attempts, a)
	return text, a.Accepted
}

// tryOCR returns a result when OCR produced valid text, or when it was needed
// but could not run and force is false (the diagnostic placeholder).
func (e *Extractor) tryOCR(ctx context.Context, doc *Document, run *chainRun, force bool) *models.ExtractionResult {
	if e.ocr == nil && force {
		return nil
	}
	res := e.ocr.Run(ctx, doc, force)
	if !res.Needed {
		return nil
	}
	a := models.ExtractionAttempt{Strategy: models.SourceOCR, Chars: len(res.Text)}
	stats := &models.OCRStats{Engine: res.Engine, TotalPages: res.TotalPages, SuccessfulPages: res.SuccessfulPages}

	if res.Placeholder {
		if force {
			return nil
		}
		a.Strategy = models.SourceOCRUnavailable
		a.Accepted = true
		run.attempts = append(run.attempts, a)
		e.metrics.StrategyAttempt(models.SourceOCRUnavailable, "accepted")
		e.metrics.Extraction(models.SourceOCRUnavailable, true)
		log.Warn().Int("pages", doc.PageCount()).Msg("Returning OCR diagnostic placeholder")
		return &models.ExtractionResult{
			Text:      res.Text,
			Source:    models.SourceOCRUnavailable,
			CharCount: len(res.Text),
			Pages:     doc.PageCount(),
			OCR:       stats,
			Attempts:  run.attempts,
		}
	}

	if !e.gate.IsValid(res.Text) {
		run.rejectedText = run.rejectedText || res.Text != ""
		run.attempts = append(run.attempts, a)
		e.metrics.StrategyAttempt(models.SourceOCR, "rejected")
		return nil
	}
	a.Accepted = true
	run.attempts = append(run.attempts, a)
	e.metrics.StrategyAttempt(models.SourceOCR, "accepted")
	result := e.accept(models.SourceOCR, res.Text, doc, run)
	result.OCR = stats
	return result
}

func (e *Extractor) accept(source, text string, doc *Document, run *chainRun) *models.ExtractionResult {
	text = strings.TrimSpace(text)
	log.Info().Str("source", source).Int("chars", len(text)).Int("pages", doc.PageCount()).Msg("Extraction succeeded")
	e.metrics.Extraction(source, true)
	return &models.ExtractionResult{
		Text:      text,
		Source:    source,
		CharCount: len(text),
		Pages:     doc.PageCount(),
		Attempts:  run.attempts,
	}
}

func (e *Extractor) failure(doc *Document, run *chainRun, mediaType string) error {
	d := Diagnostics{
		Pages:     doc.PageCount(),
		Encrypted: doc.Encrypted(),
		ByteSize:  len(doc.Data),
		MediaType: mediaType,
	}
	pc := e.ocr.Check(doc)
	if !pc.HasText {
		d.Hints = append(d.Hints, HintLikelyScanned)
	}
	if run.rejectedText {
		d.Hints = append(d.Hints, HintUnusualEncoding)
	}
	if doc.HasForms() || run.errored >= 2 {
		d.Hints = append(d.Hints, HintComplexStructure)
	}
	if d.Encrypted {
		d.Hints = append(d.Hints, HintEncrypted)
	}
	names := make([]string, 0, len(run.attempts))
	for _, a := range run.attempts {
		names = append(names, a.Strategy)
	}
	err := &ExtractionFailedError{Diagnostics: d, Attempts: names}
	log.Error().Err(err).Strs("attempts", names).Msg("All extraction strategies failed")
	return err
}

func (e *Extractor) extractOther(kind Format, raw models.RawDocument) (*models.ExtractionResult, error) {
	text, source, err := ParseBytes(kind, raw.Data)
	if err != nil && !errors.Is(err, ErrNoTextExtracted) {
		if errors.Is(err, ErrUnsupportedFormat) {
			return nil, err
		}
		log.Warn().Err(err).Str("format", string(kind)).Msg("Document parse failed")
	}
	attempt := models.ExtractionAttempt{Strategy: source, Chars: len(text), Err: err}
	if err != nil {
		attempt.Error = err.Error()
	}
	if err == nil && e.gate.IsValid(text) {
		attempt.Accepted = true
		text = strings.TrimSpace(text)
		e.metrics.Extraction(source, true)
		return &models.ExtractionResult{
			Text:      text,
			Source:    source,
			CharCount: len(text),
			Attempts:  []models.ExtractionAttempt{attempt},
		}, nil
	}
	e.metrics.Extraction(source, false)
	hint := HintUnreadableContent
	if err == nil && strings.TrimSpace(text) != "" {
		hint = HintUnusualEncoding
	}
	return nil, &ExtractionFailedError{
		Diagnostics: Diagnostics{
			ByteSize:  len(raw.Data),
			MediaType: raw.MediaType,
			Hints:     []string{hint},
		},
		Attempts: []string{source},
	}
}

// ExtractText is a convenience wrapper for callers holding only text bytes.
func (e *Extractor) ExtractText(ctx context.Context, text string) (*models.ExtractionResult, error) {
	return e.Extract(ctx, models.RawDocument{Data: []byte(text), MediaType: "text/plain"})
}
