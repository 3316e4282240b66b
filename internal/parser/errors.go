package parser

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrExtractionFailed  = errors.New("extraction failed")
	ErrNoTextExtracted   = errors.New("no text extracted")
	ErrUnsupportedFormat = errors.New("unsupported document format")
)

const (
	HintLikelyScanned     = "likely scanned (needs OCR)"
	HintUnusualEncoding   = "unusual font or encoding"
	HintComplexStructure  = "complex structure (forms/tables)"
	HintEncrypted         = "encrypted document"
	HintUnreadableContent = "no readable content"
)

// Diagnostics describes a document that no strategy could read.
type Diagnostics struct {
	Pages     int      `json:"pages"`
	Encrypted bool     `json:"encrypted"`
	ByteSize  int      `json:"byte_size"`
	MediaType string   `json:"media_type"`
	Hints     []string `json:"hints"`
}

// ExtractionFailedError is returned when no strategy produced valid text.
type ExtractionFailedError struct {
	Diagnostics Diagnostics
	Attempts    []string
}

func (e *ExtractionFailedError) Error() string {
	d := e.Diagnostics
	msg := fmt.Sprintf("%s: pages=%d encrypted=%t bytes=%d", ErrExtractionFailed, d.Pages, d.Encrypted, d.ByteSize)
	if len(d.Hints) > 0 {
		msg += " hints=[" + strings.Join(d.Hints, "; ") + "]"
	}
	return msg
}

func (e *ExtractionFailedError) Unwrap() error {
	return ErrExtractionFailed
}
