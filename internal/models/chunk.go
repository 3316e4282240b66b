package models

// DocumentChunk is a contiguous span of the source text. Content always equals
// text[Start:End]; ContextOverlap is a prompt hint and never part of the span.
type DocumentChunk struct {
	ID             int    `json:"chunk_id"`
	Start          int    `json:"start_pos"`
	End            int    `json:"end_pos"`
	Content        string `json:"content"`
	CharCount      int    `json:"char_count"`
	WordCount      int    `json:"word_count"`
	HasHeaders     bool   `json:"has_headers"`
	HasTables      bool   `json:"has_tables"`
	ContextOverlap string `json:"context_overlap,omitempty"`
}

const (
	StrategySingleChunk    = "single_chunk"
	StrategyStructureAware = "structure_aware"
	StrategySimpleChunking = "simple_chunking"
)

// ChunkStats aggregates a chunking run.
type ChunkStats struct {
	TotalChunks       int `json:"total_chunks"`
	TotalChars        int `json:"total_chars"`
	AvgChunkSize      int `json:"avg_chunk_size"`
	MinChunkSize      int `json:"min_chunk_size"`
	MaxChunkSize      int `json:"max_chunk_size"`
	TotalWords        int `json:"total_words"`
	ChunksWithHeaders int `json:"chunks_with_headers"`
	ChunksWithTables  int `json:"chunks_with_tables"`
	EstimatedTokens   int `json:"estimated_tokens"`
}

// ChunkingResult is the ordered output of the chunker.
type ChunkingResult struct {
	Chunks   []DocumentChunk `json:"chunks"`
	Strategy string          `json:"strategy"`
	Stats    ChunkStats      `json:"stats"`
}

// ProcessingEstimate predicts the cost of summarising a document.
type ProcessingEstimate struct {
	ChunkCount          int    `json:"chunk_count"`
	ChunkingStrategy    string `json:"chunking_strategy"`
	EstimatedCalls      int    `json:"estimated_calls"`
	EstimatedTokens     int    `json:"estimated_tokens"`
	ProcessingStrategy  string `json:"processing_strategy"`
	RecommendedParallel bool   `json:"recommended_parallel"`
}
