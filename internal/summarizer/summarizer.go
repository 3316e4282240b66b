// Package summarizer produces one summary per document with a map-reduce pass
// over its chunks. Generation failures degrade the output; only input that is
// too short is reported as an error.
package summarizer

import (
	"context"
	"fmt"
	"strings"
	"time"

	"document-summary/internal/chunker"
	"document-summary/internal/config"
	"document-summary/internal/helper"
	"document-summary/internal/llmservice"
	"document-summary/internal/metrics"
	"document-summary/internal/models"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

// Options controls one summarization run. Zero values take the configured
// defaults; a zero MaxLength is derived from the document size.
type Options struct {
	Type              models.SummaryType
	MaxLength         int
	Language          string
	PreserveStructure bool
}

type Summarizer struct {
	llm     llmservice.TextGenerator
	chunker *chunker.Chunker
	cfg     config.SummaryConfig
	metrics *metrics.Recorder
}

type Option func(*Summarizer)

func WithChunker(c *chunker.Chunker) Option {
	return func(s *Summarizer) {
		s.chunker = c
	}
}

func WithMetrics(m *metrics.Recorder) Option {
	return func(s *Summarizer) {
		s.metrics = m
	}
}

// New returns a summarizer calling llm. A nil cfg uses the defaults.
func New(llm llmservice.TextGenerator, cfg *config.SummaryConfig, opts ...Option) *Summarizer {
	if cfg == nil {
		cfg = &config.Default().Summary
	}
	s := &Summarizer{llm: llm, cfg: *cfg}
	if s.cfg.MaxConcurrency < 1 {
		s.cfg.MaxConcurrency = 1
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.chunker == nil {
		s.chunker = chunker.New(nil)
	}
	return s
}

func (s *Summarizer) normalize(opts Options, text string) Options {
	if opts.Type == "" {
		opts.Type = models.ParseSummaryType(s.cfg.DefaultType)
	}
	if opts.Language == "" {
		opts.Language = s.cfg.Language
	}
	if opts.MaxLength <= 0 {
		opts.MaxLength = s.cfg.MaxLength
	}
	if opts.MaxLength <= 0 {
		opts.MaxLength = DynamicLength(helper.WordCount(text), lengthLevel(opts.Type))
	}
	return opts
}

// Summarize chunks text, summarizes every chunk and reduces the chunk
// summaries into one. The returned summary is never empty.
func (s *Summarizer) Summarize(ctx context.Context, text string, opts Options) (*models.SummaryResult, error) {
	started := time.Now()
	defer s.metrics.ObserveStage("summarize", started)

	if n := len(strings.TrimSpace(text)); n < s.cfg.MinInputLength {
		return nil, &InputTooShortError{Length: n, Min: s.cfg.MinInputLength}
	}
	opts = s.normalize(opts, text)
	chunked := s.chunker.Chunk(text, opts.PreserveStructure)
	n := len(chunked.Chunks)

	stats := models.ProcessingStats{
		ChunkCount:       n,
		ChunkingStrategy: chunked.Strategy,
		OriginalLength:   len(text),
	}
	log.Info().Int("chars", len(text)).Int("chunks", n).Str("type", string(opts.Type)).Int("max_words", opts.MaxLength).Msg("Summarizing document")

	var summary string
	var chunkSummaries []models.ChunkSummary
	if n == 1 {
		stats.ProcessingStrategy = models.ProcessingDirect
		stats.TotalCalls = 1
		var cs models.ChunkSummary
		summary, cs = s.direct(ctx, chunked.Chunks[0], opts)
		chunkSummaries = []models.ChunkSummary{cs}
	} else {
		if n <= s.cfg.ParallelThreshold {
			stats.ProcessingStrategy = models.ProcessingParallel
			chunkSummaries = s.mapParallel(ctx, chunked.Chunks, opts)
		} else {
			stats.ProcessingStrategy = models.ProcessingSequential
			chunkSummaries = s.mapSequential(ctx, chunked.Chunks, opts)
		}
		stats.TotalCalls = n

		var reduced bool
		summary, reduced, stats.ReductionFallback = s.reduce(ctx, chunkSummaries, opts, len(text))
		if reduced {
			stats.TotalCalls++
		}
	}

	for _, cs := range chunkSummaries {
		if !cs.OK() {
			stats.FailedChunks++
		}
	}
	stats.SummaryLength = len(summary)
	stats.CompressionRatio = models.CompressionRatio(stats.OriginalLength, stats.SummaryLength)
	stats.Duration = time.Since(started)

	log.Info().
		Str("strategy", stats.ProcessingStrategy).
		Int("calls", stats.TotalCalls).
		Int("failed_chunks", stats.FailedChunks).
		Float64("compression_ratio", stats.CompressionRatio).
		Dur("duration", stats.Duration).
		Msg("Summary created")

	return &models.SummaryResult{
		Summary:        summary,
		SummaryType:    opts.Type,
		ChunkSummaries: chunkSummaries,
		Stats:          stats,
	}, nil
}

// direct summarizes a document that fits one call. A failed call falls back to
// an extractive summary.
func (s *Summarizer) direct(ctx context.Context, ch models.DocumentChunk, opts Options) (string, models.ChunkSummary) {
	prompt, err := directPromptFor(ch.Content, opts)
	if err == nil {
		var out string
		out, err = s.llm.Invoke(ctx, prompt)
		s.metrics.GeneratorCall("direct", err == nil)
		if err == nil {
			summary := cleanResponse(out, prompt, ch.Content, s.cfg.EchoRatio)
			return summary, models.OKSummary(ch.ID, summary)
		}
	}
	log.Warn().Err(err).Msg("Direct summary failed, using extractive fallback")
	return ExtractiveSummary(ch.Content, s.cfg.FallbackSentences), models.FailedSummary(ch.ID, err.Error())
}

func (s *Summarizer) summarizeChunk(ctx context.Context, ch models.DocumentChunk, total int, opts Options) models.ChunkSummary {
	prompt, err := chunkPromptFor(ch, total, opts, s.cfg.ChunkWords)
	if err != nil {
		return s.chunkFailed(ch, err)
	}
	out, err := s.llm.Invoke(ctx, prompt)
	s.metrics.GeneratorCall("map", err == nil)
	if err != nil {
		return s.chunkFailed(ch, err)
	}
	summary := cleanResponse(out, prompt, ch.Content, s.cfg.EchoRatio)
	log.Debug().Int("chunk", ch.ID+1).Int("total", total).Int("chars", len(summary)).Msg("Chunk summarized")
	s.metrics.ChunkSummary(true)
	return models.OKSummary(ch.ID, summary)
}

func (s *Summarizer) chunkFailed(ch models.DocumentChunk, err error) models.ChunkSummary {
	log.Error().Err(err).Int("chunk", ch.ID+1).Msg("Chunk summary failed")
	s.metrics.ChunkSummary(false)
	return models.FailedSummary(ch.ID, err.Error())
}

// mapParallel runs at most MaxConcurrency calls at once. Results are stored by
// chunk index, so completion order does not matter.
func (s *Summarizer) mapParallel(ctx context.Context, chunks []models.DocumentChunk, opts Options) []models.ChunkSummary {
	log.Info().Int("chunks", len(chunks)).Int("max_concurrency", s.cfg.MaxConcurrency).Msg("Summarizing chunks in parallel")
	results := make([]models.ChunkSummary, len(chunks))
	sem := semaphore.NewWeighted(int64(s.cfg.MaxConcurrency))
	g, gctx := errgroup.WithContext(ctx)
	for i, ch := range chunks {
		g.Go(func() error {
			if err := sem.Acquire(gctx, 1); err != nil {
				results[i] = s.chunkFailed(ch, err)
				return nil
			}
			defer sem.Release(1)
			results[i] = s.summarizeChunk(gctx, ch, len(chunks), opts)
			return nil
		})
	}
	_ = g.Wait()
	return results
}

// mapSequential paces calls by PaceDelay. Chunks not reached before ctx is
// done are marked failed.
func (s *Summarizer) mapSequential(ctx context.Context, chunks []models.DocumentChunk, opts Options) []models.ChunkSummary {
	log.Info().Int("chunks", len(chunks)).Dur("pace_delay", s.cfg.PaceDelay).Msg("Summarizing chunks sequentially")
	results := make([]models.ChunkSummary, len(chunks))
	for i, ch := range chunks {
		if i > 0 {
			if err := pause(ctx, s.cfg.PaceDelay); err != nil {
				for j := i; j < len(chunks); j++ {
					results[j] = s.chunkFailed(chunks[j], err)
				}
				break
			}
		}
		results[i] = s.summarizeChunk(ctx, ch, len(chunks), opts)
	}
	return results
}

func pause(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// reduce merges the successful chunk summaries with one more call. It reports
// whether that call was made and whether its failure forced the concatenated
// fallback.
func (s *Summarizer) reduce(ctx context.Context, summaries []models.ChunkSummary, opts Options, originalLen int) (summary string, called, fallback bool) {
	var parts []string
	for _, cs := range summaries {
		if cs.OK() {
			parts = append(parts, fmt.Sprintf("Part %d: %s", len(parts)+1, cs.Summary))
		}
	}
	if len(parts) == 0 {
		log.Error().Int("chunks", len(summaries)).Msg("Every chunk failed, skipping reduction")
		s.metrics.Reduction("skipped")
		return models.AllChunksFailedMessage, false, false
	}
	combined := strings.Join(parts, models.PartSeparator)

	prompt, err := reducePromptFor(len(parts), combined, originalLen, opts)
	if err == nil {
		called = true
		var out string
		out, err = s.llm.Invoke(ctx, prompt)
		s.metrics.GeneratorCall("reduce", err == nil)
		if err == nil {
			s.metrics.Reduction("consolidated")
			return cleanResponse(out, prompt, combined, s.cfg.EchoRatio), true, false
		}
	}
	log.Warn().Err(err).Int("parts", len(parts)).Msg("Final reduction failed, returning concatenated chunk summaries")
	s.metrics.Reduction("fallback")
	return helper.Truncate(combined, opts.MaxLength*5), called, true
}
