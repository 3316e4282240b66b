package models

import "time"

// SummaryType selects the instruction used for chunk and final prompts.
type SummaryType string

const (
	SummaryGeneral      SummaryType = "general"
	SummaryBulletPoints SummaryType = "bullet_points"
	SummaryKeyInsights  SummaryType = "key_insights"
	SummaryExecutive    SummaryType = "executive_summary"
	SummaryDetailed     SummaryType = "detailed"
)

// ParseSummaryType maps user input onto a known type, falling back to general.
func ParseSummaryType(s string) SummaryType {
	switch SummaryType(s) {
	case SummaryBulletPoints, SummaryKeyInsights, SummaryExecutive, SummaryDetailed:
		return SummaryType(s)
	case "executive":
		return SummaryExecutive
	default:
		return SummaryGeneral
	}
}

type ChunkStatus string

const (
	ChunkOK     ChunkStatus = "ok"
	ChunkFailed ChunkStatus = "failed"
)

// ChunkSummary is the per-chunk outcome of the map phase. Exactly one of
// Summary and Reason is meaningful, selected by Status.
type ChunkSummary struct {
	ChunkID int         `json:"chunk_id"`
	Status  ChunkStatus `json:"status"`
	Summary string      `json:"summary,omitempty"`
	Reason  string      `json:"reason,omitempty"`
}

func OKSummary(id int, summary string) ChunkSummary {
	return ChunkSummary{ChunkID: id, Status: ChunkOK, Summary: summary}
}

func FailedSummary(id int, reason string) ChunkSummary {
	return ChunkSummary{ChunkID: id, Status: ChunkFailed, Reason: reason}
}

func (c ChunkSummary) OK() bool {
	return c.Status == ChunkOK
}

const (
	ProcessingDirect     = "direct"
	ProcessingParallel   = "parallel"
	ProcessingSequential = "sequential"
)

// ProcessingStats is returned alongside every summary.
type ProcessingStats struct {
	ChunkCount         int           `json:"chunk_count"`
	ChunkingStrategy   string        `json:"chunking_strategy"`
	ProcessingStrategy string        `json:"processing_strategy"`
	TotalCalls         int           `json:"total_calls"`
	FailedChunks       int           `json:"failed_chunks"`
	OriginalLength     int           `json:"original_length"`
	SummaryLength      int           `json:"summary_length"`
	CompressionRatio   float64       `json:"compression_ratio"`
	ReductionFallback  bool          `json:"reduction_fallback"`
	Duration           time.Duration `json:"duration"`
}

// SummaryResult is the final output of the summarizer.
type SummaryResult struct {
	Summary        string          `json:"summary"`
	SummaryType    SummaryType     `json:"summary_type"`
	ChunkSummaries []ChunkSummary  `json:"chunk_summaries"`
	Stats          ProcessingStats `json:"stats"`
}

// CompressionRatio returns original/summary, or 0 when the summary is empty.
func CompressionRatio(originalLen, summaryLen int) float64 {
	if summaryLen <= 0 {
		return 0
	}
	return float64(originalLen) / float64(summaryLen)
}
