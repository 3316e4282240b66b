package summarizer

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"document-summary/internal/chunker"
	"document-summary/internal/config"
	"document-summary/internal/metrics"
	"document-summary/internal/models"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const report = "The committee reviewed the annual budget and approved new funding for regional schools. " +
	"Teachers will receive additional training, and several buildings are scheduled for renovation next spring. " +
	"Parents expressed support for the plan during the public hearing held last Thursday evening."

// fakeGenerator records every prompt and the highest number of calls that
// were in flight at the same time.
type fakeGenerator struct {
	delay   time.Duration
	respond func(prompt string) (string, error)

	mu       sync.Mutex
	inFlight int
	maxSeen  int
	prompts  []string
}

func (f *fakeGenerator) Invoke(_ context.Context, prompt string) (string, error) {
	f.mu.Lock()
	f.prompts = append(f.prompts, prompt)
	f.inFlight++
	f.maxSeen = max(f.maxSeen, f.inFlight)
	f.mu.Unlock()
	defer func() {
		f.mu.Lock()
		f.inFlight--
		f.mu.Unlock()
	}()
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	return f.respond(prompt)
}

func (f *fakeGenerator) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.prompts)
}

func (f *fakeGenerator) reducePrompt() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range f.prompts {
		if strings.Contains(p, "Final summary:") {
			return p
		}
	}
	return ""
}

var partRe = regexp.MustCompile(`summarizing part (\d+) of`)

// mapReduce answers chunk prompts with a per-part summary, failing the parts
// listed in failParts, and reduce prompts with reduceOut or reduceErr.
func mapReduce(failParts map[int]bool, reduceErr error) func(string) (string, error) {
	return func(prompt string) (string, error) {
		if strings.Contains(prompt, "Final summary:") {
			if reduceErr != nil {
				return "", reduceErr
			}
			return "Final consolidated summary of the committee report.", nil
		}
		m := partRe.FindStringSubmatch(prompt)
		if m == nil {
			return "A concise summary of the whole committee report.", nil
		}
		part, _ := strconv.Atoi(m[1])
		if failParts[part] {
			return "", fmt.Errorf("rate limited on part %d", part)
		}
		return fmt.Sprintf("Summary of part %d covering the committee decisions.", part), nil
	}
}

// document builds text that the test chunker splits into exactly parts chunks.
func document(parts int) string {
	paras := make([]string, parts)
	for i := range paras {
		paras[i] = fmt.Sprintf("Paragraph %d opens the topic. ", i+1) + strings.Repeat("The committee reviewed the figures carefully. ", 5)
	}
	return strings.Join(paras, "\n\n")
}

func testConfig() *config.SummaryConfig {
	cfg := config.Default().Summary
	cfg.PaceDelay = time.Millisecond
	return &cfg
}

func newTestSummarizer(gen *fakeGenerator, cfg *config.SummaryConfig, opts ...Option) *Summarizer {
	small := chunker.New(&config.ChunkingConfig{
		Threshold:     200,
		MaxTokens:     300,
		CharsPerToken: 1,
		SafetyMargin:  1,
		Overlap:       50,
	})
	return New(gen, cfg, append([]Option{WithChunker(small)}, opts...)...)
}

var structured = Options{MaxLength: 100, PreserveStructure: true}

func TestInputTooShort(t *testing.T) {
	gen := &fakeGenerator{respond: mapReduce(nil, nil)}
	s := New(gen, nil)

	res, err := s.Summarize(context.Background(), "   far too short   ", Options{})
	assert.Nil(t, res)
	assert.ErrorIs(t, err, ErrInputTooShort)
	var short *InputTooShortError
	require.ErrorAs(t, err, &short)
	assert.Equal(t, 13, short.Length)
	assert.Equal(t, 50, short.Min)
	assert.Zero(t, gen.calls())
}

func TestDirectSummary(t *testing.T) {
	gen := &fakeGenerator{respond: mapReduce(nil, nil)}
	s := New(gen, testConfig())

	res, err := s.Summarize(context.Background(), report, Options{Type: models.SummaryBulletPoints})
	require.NoError(t, err)
	assert.Equal(t, "A concise summary of the whole committee report.", res.Summary)
	assert.Equal(t, models.SummaryBulletPoints, res.SummaryType)
	assert.Equal(t, models.ProcessingDirect, res.Stats.ProcessingStrategy)
	assert.Equal(t, models.StrategySingleChunk, res.Stats.ChunkingStrategy)
	assert.Equal(t, 1, res.Stats.TotalCalls)
	assert.Equal(t, 1, gen.calls())
	assert.InDelta(t, float64(len(report))/float64(len(res.Summary)), res.Stats.CompressionRatio, 1e-9)
	require.Len(t, res.ChunkSummaries, 1)
	assert.True(t, res.ChunkSummaries[0].OK())

	prompt := gen.prompts[0]
	assert.Contains(t, prompt, models.SummaryInstructions[models.SummaryBulletPoints])
	assert.Contains(t, prompt, "Respond in English. Use at most 50 words.")
	assert.Contains(t, prompt, report)
}

func TestDirectFailureUsesExtractiveSummary(t *testing.T) {
	gen := &fakeGenerator{respond: func(string) (string, error) { return "", errors.New("service down") }}
	s := New(gen, testConfig())

	res, err := s.Summarize(context.Background(), report, Options{})
	require.NoError(t, err)
	assert.Equal(t, report, res.Summary)
	assert.Equal(t, 1, res.Stats.TotalCalls)
	assert.Equal(t, 1, res.Stats.FailedChunks)
	assert.Equal(t, "service down", res.ChunkSummaries[0].Reason)
}

func TestParallelMapIsBoundedAndOrdered(t *testing.T) {
	gen := &fakeGenerator{delay: 30 * time.Millisecond, respond: mapReduce(nil, nil)}
	s := newTestSummarizer(gen, testConfig())
	text := document(5)

	res, err := s.Summarize(context.Background(), text, structured)
	require.NoError(t, err)
	assert.Equal(t, models.ProcessingParallel, res.Stats.ProcessingStrategy)
	assert.Equal(t, models.StrategyStructureAware, res.Stats.ChunkingStrategy)
	assert.Equal(t, 5, res.Stats.ChunkCount)
	assert.Equal(t, 6, res.Stats.TotalCalls)
	assert.Equal(t, 6, gen.calls())
	assert.LessOrEqual(t, gen.maxSeen, 3)
	assert.GreaterOrEqual(t, gen.maxSeen, 2)

	require.Len(t, res.ChunkSummaries, 5)
	for i, cs := range res.ChunkSummaries {
		assert.Equal(t, i, cs.ChunkID)
		assert.Equal(t, fmt.Sprintf("Summary of part %d covering the committee decisions.", i+1), cs.Summary)
	}
	assert.Equal(t, "Final consolidated summary of the committee report.", res.Summary)
	assert.InDelta(t, float64(len(text))/float64(len(res.Summary)), res.Stats.CompressionRatio, 1e-9)
	assert.False(t, res.Stats.ReductionFallback)
}

func TestFailingChunkIsContained(t *testing.T) {
	gen := &fakeGenerator{respond: mapReduce(map[int]bool{2: true}, nil)}
	s := newTestSummarizer(gen, testConfig())

	res, err := s.Summarize(context.Background(), document(4), structured)
	require.NoError(t, err)
	require.Len(t, res.ChunkSummaries, 4)
	assert.False(t, res.ChunkSummaries[1].OK())
	assert.Equal(t, "rate limited on part 2", res.ChunkSummaries[1].Reason)
	for _, i := range []int{0, 2, 3} {
		assert.True(t, res.ChunkSummaries[i].OK())
	}
	assert.Equal(t, 1, res.Stats.FailedChunks)
	assert.Equal(t, 5, res.Stats.TotalCalls)

	reduce := gen.reducePrompt()
	assert.Contains(t, reduce, "summaries of 3 consecutive parts")
	assert.Contains(t, reduce, "Part 1: Summary of part 1")
	assert.Contains(t, reduce, "Part 2: Summary of part 3")
	assert.Contains(t, reduce, "Part 3: Summary of part 4")
	assert.NotContains(t, reduce, "Summary of part 2")
	assert.NotContains(t, reduce, "rate limited")
}

func TestReductionFailureFallsBackToConcatenation(t *testing.T) {
	reg := prometheus.NewRegistry()
	gen := &fakeGenerator{respond: mapReduce(nil, errors.New("context window exceeded"))}
	s := newTestSummarizer(gen, testConfig(), WithMetrics(metrics.New(reg)))

	res, err := s.Summarize(context.Background(), document(3), Options{MaxLength: 20, PreserveStructure: true})
	require.NoError(t, err)
	assert.NotEmpty(t, res.Summary)
	assert.True(t, strings.HasPrefix(res.Summary, "Part 1: Summary of part 1"))
	assert.LessOrEqual(t, len(res.Summary), 100)
	assert.True(t, res.Stats.ReductionFallback)
	assert.Equal(t, 4, res.Stats.TotalCalls)
	assert.Greater(t, res.Stats.CompressionRatio, 0.0)

	assert.Equal(t, 1.0, counterValue(t, reg, "docsum_reductions_total", "outcome", "fallback"))
	assert.Equal(t, 3.0, counterValue(t, reg, "docsum_chunk_summaries_total", "status", "ok"))
}

func TestAllChunksFailed(t *testing.T) {
	gen := &fakeGenerator{respond: mapReduce(map[int]bool{1: true, 2: true, 3: true}, nil)}
	s := newTestSummarizer(gen, testConfig())

	res, err := s.Summarize(context.Background(), document(3), structured)
	require.NoError(t, err)
	assert.Equal(t, models.AllChunksFailedMessage, res.Summary)
	assert.Equal(t, 3, res.Stats.FailedChunks)
	assert.Equal(t, 3, res.Stats.TotalCalls)
	assert.Empty(t, gen.reducePrompt())
}

func TestSequentialMapIsPaced(t *testing.T) {
	cfg := testConfig()
	cfg.PaceDelay = 20 * time.Millisecond
	gen := &fakeGenerator{respond: mapReduce(nil, nil)}
	s := newTestSummarizer(gen, cfg)

	started := time.Now()
	res, err := s.Summarize(context.Background(), document(6), structured)
	require.NoError(t, err)
	assert.Equal(t, models.ProcessingSequential, res.Stats.ProcessingStrategy)
	assert.Equal(t, 6, res.Stats.ChunkCount)
	assert.Equal(t, 7, res.Stats.TotalCalls)
	assert.Equal(t, 1, gen.maxSeen)
	assert.GreaterOrEqual(t, time.Since(started), 5*cfg.PaceDelay)
	for i, cs := range res.ChunkSummaries {
		assert.Equal(t, fmt.Sprintf("Summary of part %d covering the committee decisions.", i+1), cs.Summary)
	}
}

func TestSequentialStopsWhenCanceled(t *testing.T) {
	cfg := testConfig()
	cfg.PaceDelay = time.Hour
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	respond := mapReduce(nil, nil)
	gen := &fakeGenerator{respond: func(prompt string) (string, error) {
		cancel()
		return respond(prompt)
	}}
	s := newTestSummarizer(gen, cfg)

	res, err := s.Summarize(ctx, document(6), structured)
	require.NoError(t, err)
	assert.True(t, res.ChunkSummaries[0].OK())
	assert.Equal(t, 5, res.Stats.FailedChunks)
	assert.Equal(t, context.Canceled.Error(), res.ChunkSummaries[5].Reason)
	assert.NotEmpty(t, res.Summary)
}

func TestChunkPromptCarriesContext(t *testing.T) {
	gen := &fakeGenerator{respond: mapReduce(nil, nil)}
	s := newTestSummarizer(gen, testConfig())

	_, err := s.Summarize(context.Background(), document(2), Options{Language: "Vietnamese", MaxLength: 80, PreserveStructure: true})
	require.NoError(t, err)

	var first string
	for _, p := range gen.prompts {
		if strings.Contains(p, "summarizing part 1 of 2") {
			first = p
		}
	}
	require.NotEmpty(t, first)
	assert.Contains(t, first, "Respond in Vietnamese. Use about 200 words.")
	assert.Contains(t, first, "[Continues in next: Paragraph 2 opens the topic.")
	assert.Contains(t, first, "<content>\nParagraph 1 opens the topic.")
	assert.Contains(t, gen.reducePrompt(), "at most 80 words in Vietnamese")
}

func counterValue(t *testing.T, reg *prometheus.Registry, name, label, value string) float64 {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
		for _, m := range mf.GetMetric() {
			for _, lp := range m.GetLabel() {
				if lp.GetName() == label && lp.GetValue() == value {
					return m.GetCounter().GetValue()
				}
			}
		}
	}
	return 0
}
