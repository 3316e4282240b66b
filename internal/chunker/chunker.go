// Package chunker splits validated text into ordered spans small enough for a
// single generation call. Chunk offsets always partition the source text.
package chunker

import (
	"regexp"
	"strings"

	"document-summary/internal/config"
	"document-summary/internal/helper"
	"document-summary/internal/models"

	"github.com/rs/zerolog/log"
)

var (
	paragraphRe      = regexp.MustCompile(models.ParagraphSplitRegex)
	sentenceRe       = regexp.MustCompile(models.SentenceEndRegex)
	headerRe         = regexp.MustCompile(models.HeaderRegex)
	markdownHeaderRe = regexp.MustCompile(models.MarkdownHeaderRegex)
	tableSpacingRe   = regexp.MustCompile(models.TableSpacingRegex)
)

type Chunker struct {
	Threshold     int
	MaxChars      int
	Overlap       int
	MaxChunks     int
	CharsPerToken int
}

// New builds a chunker from cfg. A nil cfg uses the defaults.
func New(cfg *config.ChunkingConfig) *Chunker {
	if cfg == nil {
		cfg = &config.Default().Chunking
	}
	c := &Chunker{
		Threshold:     cfg.Threshold,
		MaxChars:      cfg.MaxCharsPerChunk(),
		Overlap:       cfg.Overlap,
		MaxChunks:     cfg.MaxChunks,
		CharsPerToken: cfg.CharsPerToken,
	}
	if c.CharsPerToken <= 0 {
		c.CharsPerToken = 4
	}
	if c.MaxChars <= 0 {
		c.MaxChars = c.Threshold
	}
	return c
}

// ShouldChunk reports whether text is above the large-document threshold.
func (c *Chunker) ShouldChunk(text string) bool {
	return len(text) > c.Threshold
}

type span struct {
	start, end int
}

func (s span) len() int { return s.end - s.start }

// Chunk splits text. Small texts come back as one verbatim chunk. Larger texts
// are split on paragraph breaks when preserveStructure is set and the text has
// any, otherwise on sentence ends.
func (c *Chunker) Chunk(text string, preserveStructure bool) models.ChunkingResult {
	if !c.ShouldChunk(text) {
		chunks := []models.DocumentChunk{newChunk(text, 0, span{0, len(text)})}
		return c.result(chunks, models.StrategySingleChunk)
	}

	log.Info().Int("chars", len(text)).Int("max_chunk_chars", c.MaxChars).Msg("Chunking large document")

	strategy := models.StrategySimpleChunking
	var units []span
	if preserveStructure && paragraphRe.MatchString(text) {
		strategy = models.StrategyStructureAware
		for _, p := range splitUnits(text, span{0, len(text)}, paragraphRe) {
			if p.len() > c.MaxChars {
				units = append(units, splitUnits(text, p, sentenceRe)...)
				continue
			}
			units = append(units, p)
		}
	} else {
		units = splitUnits(text, span{0, len(text)}, sentenceRe)
	}

	spans := c.accumulate(units)
	if c.MaxChunks > 0 && len(spans) > c.MaxChunks {
		log.Warn().Int("chunks", len(spans)).Int("max_chunks", c.MaxChunks).Msg("Merging chunks to fit the limit")
		spans = mergeSpans(spans, c.MaxChunks)
	}

	chunks := make([]models.DocumentChunk, len(spans))
	for i, s := range spans {
		chunks[i] = newChunk(text, i, s)
	}
	c.addOverlap(chunks)

	res := c.result(chunks, strategy)
	log.Info().Str("strategy", strategy).Int("chunks", len(chunks)).Int("avg_chunk_size", res.Stats.AvgChunkSize).Msg("Document chunked")
	return res
}

// splitUnits cuts within into units ending just after each separator match,
// so the separator stays with the preceding unit.
func splitUnits(text string, within span, sep *regexp.Regexp) []span {
	var units []span
	prev := within.start
	for _, m := range sep.FindAllStringIndex(text[within.start:within.end], -1) {
		end := within.start + m[1]
		if end > prev {
			units = append(units, span{prev, end})
		}
		prev = end
	}
	if prev < within.end {
		units = append(units, span{prev, within.end})
	}
	return units
}

// accumulate greedily packs contiguous units while the chunk stays within
// MaxChars. A unit that alone exceeds the budget becomes its own chunk.
func (c *Chunker) accumulate(units []span) []span {
	var spans []span
	cur := span{-1, -1}
	for _, u := range units {
		switch {
		case cur.start < 0:
			cur = u
		case u.end-cur.start > c.MaxChars:
			spans = append(spans, cur)
			cur = u
		default:
			cur.end = u.end
		}
	}
	if cur.start >= 0 {
		spans = append(spans, cur)
	}
	return spans
}

// mergeSpans joins adjacent spans into limit groups, spreading the remainder
// over the first groups.
func mergeSpans(spans []span, limit int) []span {
	per, rem := len(spans)/limit, len(spans)%limit
	merged := make([]span, 0, limit)
	for i, g := 0, 0; i < len(spans); g++ {
		size := per
		if g < rem {
			size++
		}
		merged = append(merged, span{spans[i].start, spans[i+size-1].end})
		i += size
	}
	return merged
}

func newChunk(text string, id int, s span) models.DocumentChunk {
	content := text[s.start:s.end]
	return models.DocumentChunk{
		ID:         id,
		Start:      s.start,
		End:        s.end,
		Content:    content,
		CharCount:  len(content),
		WordCount:  helper.WordCount(content),
		HasHeaders: HasHeaders(content),
		HasTables:  HasTables(content),
	}
}

// addOverlap attaches the tail of the previous chunk and the head of the next
// one as prompt context. Offsets and content are left untouched.
func (c *Chunker) addOverlap(chunks []models.DocumentChunk) {
	if len(chunks) <= 1 || c.Overlap <= 0 {
		return
	}
	for i := range chunks {
		var parts []string
		if i > 0 {
			prev := strings.TrimSpace(helper.Tail(chunks[i-1].Content, c.Overlap))
			parts = append(parts, "[Continued from previous: ..."+prev+"]")
		}
		if i < len(chunks)-1 {
			next := strings.TrimSpace(helper.Truncate(chunks[i+1].Content, c.Overlap))
			parts = append(parts, "[Continues in next: "+next+"...]")
		}
		chunks[i].ContextOverlap = strings.Join(parts, models.ContextSeparator)
	}
}

// HasHeaders detects section-like lines ("1. Scope:", "Results -") and
// markdown headings.
func HasHeaders(text string) bool {
	return markdownHeaderRe.MatchString(text) || headerRe.MatchString(text)
}

// HasTables is true when more than 10% of the non-empty lines look like table
// rows: a pipe, a tab or column-aligned spacing.
func HasTables(text string) bool {
	lines, indicators := 0, 0
	for _, line := range strings.Split(text, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		lines++
		if strings.ContainsAny(line, "|\t") || tableSpacingRe.MatchString(line) {
			indicators++
		}
	}
	return lines > 0 && float64(indicators) > float64(lines)*0.1
}

func (c *Chunker) result(chunks []models.DocumentChunk, strategy string) models.ChunkingResult {
	return models.ChunkingResult{
		Chunks:   chunks,
		Strategy: strategy,
		Stats:    c.Stats(chunks),
	}
}

// Stats aggregates sizes and structural flags over chunks.
func (c *Chunker) Stats(chunks []models.DocumentChunk) models.ChunkStats {
	if len(chunks) == 0 {
		return models.ChunkStats{}
	}
	st := models.ChunkStats{
		TotalChunks:  len(chunks),
		MinChunkSize: chunks[0].CharCount,
	}
	for _, ch := range chunks {
		st.TotalChars += ch.CharCount
		st.TotalWords += ch.WordCount
		st.EstimatedTokens += ch.CharCount / c.CharsPerToken
		st.MinChunkSize = min(st.MinChunkSize, ch.CharCount)
		st.MaxChunkSize = max(st.MaxChunkSize, ch.CharCount)
		if ch.HasHeaders {
			st.ChunksWithHeaders++
		}
		if ch.HasTables {
			st.ChunksWithTables++
		}
	}
	st.AvgChunkSize = st.TotalChars / len(chunks)
	return st
}

// EstimateProcessing predicts how a summarization run over text would be
// scheduled. Up to parallelThreshold chunks run in parallel.
func (c *Chunker) EstimateProcessing(text string, preserveStructure bool, parallelThreshold int) models.ProcessingEstimate {
	res := c.Chunk(text, preserveStructure)
	n := len(res.Chunks)
	est := models.ProcessingEstimate{
		ChunkCount:       n,
		ChunkingStrategy: res.Strategy,
		EstimatedCalls:   n,
		EstimatedTokens:  res.Stats.EstimatedTokens,
	}
	switch {
	case n <= 1:
		est.ProcessingStrategy = models.ProcessingDirect
	case n <= parallelThreshold:
		est.ProcessingStrategy = models.ProcessingParallel
		est.RecommendedParallel = true
		est.EstimatedCalls = n + 1
	default:
		est.ProcessingStrategy = models.ProcessingSequential
		est.EstimatedCalls = n + 1
	}
	return est
}
