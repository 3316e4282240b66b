package summarizer

import (
	"document-summary/internal/models"

	"github.com/tmc/langchaingo/prompts"
)

var (
	chunkPrompt = prompts.NewPromptTemplate(models.ChunkPromptTemplate, []string{
		"part", "total", "instruction", "language", "words", "has_headers", "has_tables", "context", "content",
	})
	directPrompt = prompts.NewPromptTemplate(models.DirectPromptTemplate, []string{
		"instruction", "language", "words", "content",
	})
	reducePrompt = prompts.NewPromptTemplate(models.ReducePromptTemplate, []string{
		"parts", "original_length", "summary_type", "words", "language", "instruction", "summaries",
	})
)

func instruction(t models.SummaryType) string {
	if s, ok := models.SummaryInstructions[t]; ok {
		return s
	}
	return models.SummaryInstructions[models.SummaryGeneral]
}

func chunkPromptFor(ch models.DocumentChunk, total int, opts Options, words int) (string, error) {
	return chunkPrompt.Format(map[string]any{
		"part":        ch.ID + 1,
		"total":       total,
		"instruction": instruction(opts.Type),
		"language":    opts.Language,
		"words":       words,
		"has_headers": ch.HasHeaders,
		"has_tables":  ch.HasTables,
		"context":     ch.ContextOverlap,
		"content":     ch.Content,
	})
}

func directPromptFor(content string, opts Options) (string, error) {
	return directPrompt.Format(map[string]any{
		"instruction": instruction(opts.Type),
		"language":    opts.Language,
		"words":       opts.MaxLength,
		"content":     content,
	})
}

func reducePromptFor(parts int, combined string, originalLen int, opts Options) (string, error) {
	return reducePrompt.Format(map[string]any{
		"parts":           parts,
		"original_length": originalLen,
		"summary_type":    string(opts.Type),
		"words":           opts.MaxLength,
		"language":        opts.Language,
		"instruction":     instruction(opts.Type),
		"summaries":       combined,
	})
}
