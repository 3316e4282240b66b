package summarizer

import (
	"regexp"
	"sort"
	"strings"

	"document-summary/internal/models"

	"github.com/rs/zerolog/log"
)

// NoSummaryMessage is the extractive result for text without usable sentences.
const NoSummaryMessage = "Unable to create a summary from this text."

const (
	minResponseChars = 30
	minSentenceChars = 20
	// instruction-like lines shorter than this are dropped from echoed output
	maxInstructionLine = 100
	leadBonusShare     = 0.3
	leadBonus          = 1.2
)

var (
	thinkRe          = regexp.MustCompile(models.ThinkTag)
	horizontalRe     = regexp.MustCompile(`[ \t\f\v]+`)
	blankLinesRe     = regexp.MustCompile(`\n{3,}`)
	summaryLabelRe   = regexp.MustCompile(`(?i)^\s*(?:final\s+)?summary\s*:\s*`)
	instructionRe    = regexp.MustCompile(`(?i)^\s*summari[sz]e.*?:`)
	sentenceSplitRe  = regexp.MustCompile(`[.!?]+`)
	instructionWords = []string{"summar", "respond in", "<content>", "</content>"}
)

// cleanResponse strips reasoning blocks and labels from a model response. A
// response longer than echoRatio of its prompt is treated as an echo; so is
// anything too short to be a summary. Both fall back to the source text.
func cleanResponse(resp, prompt, source string, echoRatio float64) string {
	resp = strings.TrimSpace(thinkRe.ReplaceAllString(resp, ""))

	if float64(len(resp)) > echoRatio*float64(len(prompt)) {
		log.Warn().Int("response_chars", len(resp)).Int("prompt_chars", len(prompt)).Msg("Detected prompt echo")
		line := longestContentLine(resp)
		if line == "" {
			return ExtractiveSummary(source, 2)
		}
		resp = line
	}

	resp = normalizeWhitespace(summaryLabelRe.ReplaceAllString(resp, ""))
	if len(resp) < minResponseChars {
		log.Warn().Int("chars", len(resp)).Msg("Response too short after cleaning, using extractive fallback")
		return ExtractiveSummary(source, 2)
	}
	return resp
}

func longestContentLine(text string) string {
	best := ""
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if len(line) <= minSentenceChars || strings.HasSuffix(line, ":") {
			continue
		}
		if len(line) < maxInstructionLine && isInstruction(line) {
			continue
		}
		if len(line) > len(best) {
			best = line
		}
	}
	return best
}

func isInstruction(line string) bool {
	lower := strings.ToLower(line)
	for _, w := range instructionWords {
		if strings.Contains(lower, w) {
			return true
		}
	}
	return false
}

func normalizeWhitespace(s string) string {
	s = horizontalRe.ReplaceAllString(s, " ")
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(line)
	}
	return strings.TrimSpace(blankLinesRe.ReplaceAllString(strings.Join(lines, "\n"), "\n\n"))
}

// ExtractiveSummary picks up to maxSentences sentences from the longest block
// of text. Sentences are scored by word count, with a bonus for the first 30%
// of the block, and returned in document order.
func ExtractiveSummary(text string, maxSentences int) string {
	if maxSentences <= 0 {
		maxSentences = 3
	}
	block := ""
	for _, b := range strings.Split(text, "\n\n") {
		if len(b) > len(block) {
			block = b
		}
	}
	block = strings.TrimSpace(instructionRe.ReplaceAllString(block, ""))

	var sentences []string
	for _, s := range sentenceSplitRe.Split(block, -1) {
		s = strings.Join(strings.Fields(s), " ")
		if len(s) > minSentenceChars {
			sentences = append(sentences, s)
		}
	}
	if len(sentences) == 0 {
		return NoSummaryMessage
	}
	if len(sentences) <= maxSentences {
		return strings.Join(sentences, ". ") + "."
	}

	type scored struct {
		idx   int
		score float64
	}
	ranked := make([]scored, len(sentences))
	for i, s := range sentences {
		score := float64(len(strings.Fields(s)))
		if float64(i) < float64(len(sentences))*leadBonusShare {
			score *= leadBonus
		}
		ranked[i] = scored{idx: i, score: score}
	}
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].score > ranked[j].score })
	top := ranked[:maxSentences]
	sort.Slice(top, func(i, j int) bool { return top[i].idx < top[j].idx })

	picked := make([]string, len(top))
	for i, s := range top {
		picked[i] = sentences[s.idx]
	}
	return strings.Join(picked, ". ") + "."
}

var lengthRatios = map[string]float64{
	"brief":         0.03,
	"general":       0.08,
	"detailed":      0.15,
	"comprehensive": 0.25,
}

const (
	minSummaryWords = 50
	maxSummaryWords = 5000
)

// DynamicLength sizes a summary in words from the document word count.
// Unknown levels use the general ratio.
func DynamicLength(wordCount int, level string) int {
	ratio, ok := lengthRatios[level]
	if !ok {
		ratio = lengthRatios["general"]
	}
	n := int(float64(wordCount) * ratio)
	return min(max(n, minSummaryWords), maxSummaryWords)
}

func lengthLevel(t models.SummaryType) string {
	switch t {
	case models.SummaryExecutive:
		return "brief"
	case models.SummaryDetailed:
		return "detailed"
	default:
		return "general"
	}
}
