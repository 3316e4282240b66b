package models

// RawDocument is the byte payload handed to the pipeline together with its
// declared media type. Name is optional and only used for extension sniffing
// and logging.
type RawDocument struct {
	Data      []byte
	MediaType string
	Name      string
}

// NewRawDocument copies data so the caller can reuse its buffer.
func NewRawDocument(data []byte, mediaType, name string) RawDocument {
	buf := make([]byte, len(data))
	copy(buf, data)
	return RawDocument{Data: buf, MediaType: mediaType, Name: name}
}

// Size returns the payload length in bytes
func (d RawDocument) Size() int {
	return len(d.Data)
}

// ExtractionAttempt is the outcome of a single strategy run.
type ExtractionAttempt struct {
	Strategy string `json:"strategy"`
	Chars    int    `json:"chars"`
	Accepted bool   `json:"accepted"`
	Err      error  `json:"-"`
	Error    string `json:"error,omitempty"`
}

// OCRStats describes a recognition run.
type OCRStats struct {
	Engine          string `json:"engine"`
	TotalPages      int    `json:"total_pages"`
	SuccessfulPages int    `json:"successful_pages"`
}

// ExtractionResult is the accepted output of the extraction chain.
type ExtractionResult struct {
	Text      string              `json:"text"`
	Source    string              `json:"source"`
	CharCount int                 `json:"char_count"`
	Pages     int                 `json:"pages"`
	OCR       *OCRStats           `json:"ocr,omitempty"`
	Attempts  []ExtractionAttempt `json:"attempts,omitempty"`
}

// IsPlaceholder reports whether the result is the OCR diagnostic message
// rather than document text.
func (r *ExtractionResult) IsPlaceholder() bool {
	return r != nil && r.Source == SourceOCRUnavailable
}

const (
	SourceStrictParse         = "strict_parse"
	SourceLenientParse        = "lenient_parse"
	SourcePageRecovery        = "page_recovery"
	SourceContentStreamScrape = "content_stream_scrape"
	SourceOCR                 = "ocr"
	SourceOCRUnavailable      = "ocr_unavailable"
	SourcePlainText           = "plain_text"
	SourceMarkdown            = "markdown"
	SourceDOCX                = "docx"
	SourcePPTX                = "pptx"
	SourceXLSX                = "xlsx"
	SourceSpreadsheet         = "spreadsheet"
)
