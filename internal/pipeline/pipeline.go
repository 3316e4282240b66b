// Package pipeline wires extraction, chunking and summarization into one run
// per document.
package pipeline

import (
	"context"
	"strings"
	"time"

	"document-summary/internal/chunker"
	"document-summary/internal/config"
	"document-summary/internal/helper"
	"document-summary/internal/llmservice"
	"document-summary/internal/metrics"
	"document-summary/internal/models"
	"document-summary/internal/ocr"
	"document-summary/internal/parser"
	"document-summary/internal/summarizer"

	"github.com/rs/zerolog/log"
)

// Result is the outcome of Process. Summary is nil when extraction only
// produced the OCR diagnostic.
type Result struct {
	DocID      string                   `json:"doc_id"`
	Name       string                   `json:"name,omitempty"`
	Extraction *models.ExtractionResult `json:"extraction"`
	Summary    *models.SummaryResult    `json:"summary,omitempty"`
	Duration   time.Duration            `json:"duration"`
}

// ChunkReport is the outcome of ChunkOnly.
type ChunkReport struct {
	Extraction *models.ExtractionResult `json:"extraction"`
	Chunking   models.ChunkingResult    `json:"chunking"`
}

type Pipeline struct {
	cfg        *config.Config
	extractor  *parser.Extractor
	chunker    *chunker.Chunker
	summarizer *summarizer.Summarizer
}

type settings struct {
	metrics    *metrics.Recorder
	ocr        *parser.OCRFallback
	strategies []parser.Strategy
}

type Option func(*settings)

func WithMetrics(m *metrics.Recorder) Option {
	return func(s *settings) {
		s.metrics = m
	}
}

func WithOCR(o *parser.OCRFallback) Option {
	return func(s *settings) {
		s.ocr = o
	}
}

func WithStrategies(strategies ...parser.Strategy) Option {
	return func(s *settings) {
		s.strategies = strategies
	}
}

// New builds a pipeline calling gen for every summary.
func New(cfg *config.Config, gen llmservice.TextGenerator, opts ...Option) *Pipeline {
	if cfg == nil {
		cfg = config.Default()
	}
	var s settings
	for _, opt := range opts {
		opt(&s)
	}

	extractorOpts := []parser.Option{parser.WithMetrics(s.metrics)}
	if s.ocr != nil {
		extractorOpts = append(extractorOpts, parser.WithOCR(s.ocr))
	}
	if s.strategies != nil {
		extractorOpts = append(extractorOpts, parser.WithStrategies(s.strategies...))
	}

	ch := chunker.New(&cfg.Chunking)
	return &Pipeline{
		cfg:        cfg,
		extractor:  parser.NewExtractor(&cfg.Extraction, extractorOpts...),
		chunker:    ch,
		summarizer: summarizer.New(gen, &cfg.Summary, summarizer.WithChunker(ch), summarizer.WithMetrics(s.metrics)),
	}
}

// NewOCR builds the OCR fallback described by cfg, or nil when OCR is
// disabled. An engine that cannot be created still yields a fallback so the
// extractor can report the diagnostic.
func NewOCR(ctx context.Context, cfg config.OCRConfig) *parser.OCRFallback {
	if !cfg.Enabled {
		return nil
	}
	var rec ocr.Recognizer
	switch strings.ToLower(cfg.Engine) {
	case "gemini":
		g, err := llmservice.NewGeminiGenerator(ctx, cfg.GeminiKey, cfg.GeminiModel)
		if err != nil {
			log.Warn().Err(err).Msg("Gemini OCR unavailable")
			break
		}
		rec = ocr.NewGeminiRecognizer(g)
	default:
		rec = ocr.NewTesseract(cfg.TesseractBin, cfg.Languages, cfg.ExtraArgs)
	}

	o := parser.NewOCRFallback(rec, ocr.NewPdftoppm(cfg.PdftoppmBin))
	if cfg.SamplePages > 0 {
		o.SamplePages = cfg.SamplePages
	}
	if cfg.MaxPages > 0 {
		o.MaxPages = cfg.MaxPages
	}
	if cfg.DPI > 0 {
		o.DPI = cfg.DPI
	}
	return o
}

func (p *Pipeline) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if p.cfg.Pipeline.Timeout > 0 {
		return context.WithTimeout(ctx, p.cfg.Pipeline.Timeout)
	}
	return context.WithCancel(ctx)
}

// Process extracts and summarizes raw. Only extraction failures and input
// too short to summarize are returned as errors.
func (p *Pipeline) Process(ctx context.Context, raw models.RawDocument, opts summarizer.Options) (*Result, error) {
	ctx, cancel := p.withTimeout(ctx)
	defer cancel()

	started := time.Now()
	res := &Result{DocID: helper.RunID(), Name: raw.Name}
	logger := log.With().Str("doc_id", res.DocID).Str("name", raw.Name).Logger()
	logger.Info().Int("bytes", raw.Size()).Str("media_type", raw.MediaType).Msg("Processing document")

	ext, err := p.extractor.Extract(ctx, raw)
	if err != nil {
		logger.Error().Err(err).Msg("Extraction failed")
		return nil, err
	}
	res.Extraction = ext
	if ext.IsPlaceholder() {
		logger.Warn().Msg("No text to summarize, returning the OCR diagnostic")
		res.Duration = time.Since(started)
		return res, nil
	}

	opts.PreserveStructure = p.cfg.Pipeline.PreserveStructure
	sum, err := p.summarizer.Summarize(ctx, ext.Text, opts)
	if err != nil {
		logger.Error().Err(err).Msg("Summarization rejected")
		return nil, err
	}
	res.Summary = sum
	res.Duration = time.Since(started)
	logger.Info().Str("source", ext.Source).Int("summary_chars", len(sum.Summary)).Dur("duration", res.Duration).Msg("Document processed")
	return res, nil
}

// ExtractOnly runs the extraction chain.
func (p *Pipeline) ExtractOnly(ctx context.Context, raw models.RawDocument) (*models.ExtractionResult, error) {
	ctx, cancel := p.withTimeout(ctx)
	defer cancel()
	return p.extractor.Extract(ctx, raw)
}

// ChunkOnly extracts raw and splits the text without calling the generator.
func (p *Pipeline) ChunkOnly(ctx context.Context, raw models.RawDocument) (*ChunkReport, error) {
	ext, err := p.ExtractOnly(ctx, raw)
	if err != nil {
		return nil, err
	}
	return &ChunkReport{
		Extraction: ext,
		Chunking:   p.chunker.Chunk(ext.Text, p.cfg.Pipeline.PreserveStructure),
	}, nil
}

// Estimate predicts the chunk count and generation calls for raw.
func (p *Pipeline) Estimate(ctx context.Context, raw models.RawDocument) (models.ProcessingEstimate, error) {
	ext, err := p.ExtractOnly(ctx, raw)
	if err != nil {
		return models.ProcessingEstimate{}, err
	}
	return p.chunker.EstimateProcessing(ext.Text, p.cfg.Pipeline.PreserveStructure, p.cfg.Summary.ParallelThreshold), nil
}
