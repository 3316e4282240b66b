package parser

import (
	"strings"
)

// metadataTokens are low-level PDF syntax fragments that leak into extracted
// text when a parser dumps raw objects instead of page content.
var metadataTokens = []string{
	"filter:",
	"flatedecode",
	"flatdecodefilter",
	"dctdecode",
	"ascii85decode",
	"lzwdecode",
	"runlengthdecode",
	"/filter",
	"/length",
	"/type",
	"stream",
	"endstream",
	"obj",
	"endobj",
}

const (
	defaultMinTextLength    = 100
	defaultMaxMetadataRatio = 0.7
)

// Gate decides whether extracted text is real content.
type Gate struct {
	MinLength        int
	MaxMetadataRatio float64
}

func NewGate(minLength int, maxMetadataRatio float64) *Gate {
	if minLength <= 0 {
		minLength = defaultMinTextLength
	}
	if maxMetadataRatio <= 0 {
		maxMetadataRatio = defaultMaxMetadataRatio
	}
	return &Gate{MinLength: minLength, MaxMetadataRatio: maxMetadataRatio}
}

// IsValid rejects empty text, text whose trimmed length does not exceed
// MinLength, and text dominated by document syntax.
func (g *Gate) IsValid(text string) bool {
	trimmed := strings.TrimSpace(text)
	if len(trimmed) <= g.MinLength {
		return false
	}
	return MetadataRatio(text) <= g.MaxMetadataRatio
}

// MetadataRatio is the share of text covered by metadataTokens, weighted by
// token length. Overlapping tokens are counted independently, so the ratio can
// exceed 1 for pure syntax dumps.
func MetadataRatio(text string) float64 {
	if len(text) == 0 {
		return 0
	}
	lower := strings.ToLower(text)
	covered := 0
	for _, tok := range metadataTokens {
		covered += strings.Count(lower, tok) * len(tok)
	}
	return float64(covered) / float64(len(text))
}
