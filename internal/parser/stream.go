package parser

import (
	"bytes"
	"compress/zlib"
	"context"
	"encoding/hex"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"document-summary/internal/models"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/rs/zerolog/log"
)

// ContentStreamScrape reads the decoded page content streams and pattern
// matches the text-showing operators directly. When the cross-reference
// structure is too broken for pdfcpu it inflates every raw stream it can find.
type ContentStreamScrape struct{}

func (ContentStreamScrape) Name() string { return models.SourceContentStreamScrape }

func (ContentStreamScrape) Extract(ctx context.Context, doc *Document) (string, error) {
	pctx, err := readRelaxed(doc.Data)
	if err != nil {
		log.Debug().Err(err).Msg("pdfcpu could not read document, scanning raw streams")
		return scrapeRawStreams(doc.Data)
	}

	var pages []string
	for pageNr := 1; pageNr <= pctx.PageCount; pageNr++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		var data []byte
		_ = safely(func() error {
			r, err := pdfcpu.ExtractPageContent(pctx, pageNr)
			if err != nil || r == nil {
				return err
			}
			data, err = io.ReadAll(r)
			return err
		})
		if text := extractTextFromStream(data); text != "" {
			pages = append(pages, text)
		}
	}
	if len(pages) == 0 {
		return scrapeRawStreams(doc.Data)
	}
	return strings.Join(pages, "\n\n"), nil
}

func readRelaxed(data []byte) (*model.Context, error) {
	var pctx *model.Context
	err := safely(func() error {
		conf := model.NewDefaultConfiguration()
		conf.ValidationMode = model.ValidationRelaxed
		c, err := api.ReadValidateAndOptimize(bytes.NewReader(data), conf)
		if err != nil {
			return err
		}
		pctx = c
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("pdfcpu read: %w", err)
	}
	return pctx, nil
}

// pdfcpuImagePages reports whether any of the first n pages uses an image.
func pdfcpuImagePages(data []byte, n int) bool {
	pctx, err := readRelaxed(data)
	if err != nil || pctx.Optimize == nil {
		return false
	}
	found := false
	_ = safely(func() error {
		for pageNr := 1; pageNr <= pctx.PageCount && pageNr <= n; pageNr++ {
			if len(pdfcpu.ImageObjNrs(pctx, pageNr)) > 0 {
				found = true
				return nil
			}
		}
		return nil
	})
	return found
}

var rawStreamRe = regexp.MustCompile(`(?s)stream\r?\n(.*?)\r?\nendstream`)

func scrapeRawStreams(data []byte) (string, error) {
	var parts []string
	for _, m := range rawStreamRe.FindAllSubmatch(data, -1) {
		content := m[1]
		if inflated, err := inflate(content); err == nil {
			content = inflated
		}
		if text := extractTextFromStream(content); text != "" {
			parts = append(parts, text)
		}
	}
	if len(parts) == 0 {
		return "", ErrNoTextExtracted
	}
	return strings.Join(parts, "\n\n"), nil
}

func inflate(b []byte) ([]byte, error) {
	zr, err := zlib.NewReader(bytes.NewReader(b))
	if err != nil {
		return nil, err
	}
	defer zr.Close()
	return io.ReadAll(io.LimitReader(zr, 64<<20))
}

var (
	// One alternative per operator form, in stream order:
	// [..] TJ | (..) Tj ' " | <..> Tj ' " | T* Td TD ET
	textOpRe = regexp.MustCompile(
		`\[((?:\\.|[^\]\\])*)\]\s*TJ` +
			`|\(((?:\\.|[^\\)])*)\)\s*(Tj|'|")` +
			`|<([0-9A-Fa-f\s]*)>\s*(Tj|'|")` +
			`|(T\*|T[dD]|ET)(?:\s|$)`)
	arrayElemRe = regexp.MustCompile(`\(((?:\\.|[^\\)])*)\)|<([0-9A-Fa-f\s]*)>|(-?\d+(?:\.\d+)?)`)
)

// kerningSpace is the TJ displacement (thousandths of an em) treated as a
// word gap.
const kerningSpace = -200

// extractTextFromStream pulls the shown strings out of a content stream.
func extractTextFromStream(data []byte) string {
	if len(data) == 0 {
		return ""
	}
	var sb strings.Builder
	for _, m := range textOpRe.FindAllSubmatch(data, -1) {
		switch {
		case m[1] != nil:
			for _, el := range arrayElemRe.FindAllSubmatch(m[1], -1) {
				switch {
				case el[1] != nil:
					sb.WriteString(decodePDFString(el[1]))
				case el[2] != nil:
					sb.WriteString(decodeHexString(el[2]))
				case el[3] != nil:
					if v, err := strconv.ParseFloat(string(el[3]), 64); err == nil && v <= kerningSpace {
						sb.WriteByte(' ')
					}
				}
			}
		case m[2] != nil:
			if string(m[3]) != "Tj" {
				sb.WriteByte('\n')
			}
			sb.WriteString(decodePDFString(m[2]))
		case m[4] != nil:
			if string(m[5]) != "Tj" {
				sb.WriteByte('\n')
			}
			sb.WriteString(decodeHexString(m[4]))
		case m[6] != nil:
			switch string(m[6]) {
			case "T*", "ET":
				sb.WriteByte('\n')
			default:
				sb.WriteByte(' ')
			}
		}
	}
	return cleanScrapedText(sb.String())
}

// decodePDFString handles the escape sequences of PDF literal strings.
func decodePDFString(raw []byte) string {
	var sb strings.Builder
	for i := 0; i < len(raw); i++ {
		if raw[i] != '\\' || i+1 >= len(raw) {
			sb.WriteByte(raw[i])
			continue
		}
		i++
		switch raw[i] {
		case 'n':
			sb.WriteByte('\n')
		case 'r':
			sb.WriteByte('\r')
		case 't':
			sb.WriteByte('\t')
		case 'b', 'f':
		case '\\', '(', ')':
			sb.WriteByte(raw[i])
		case '\r', '\n':
			// line continuation
		default:
			if raw[i] >= '0' && raw[i] <= '7' {
				val := int(raw[i] - '0')
				for k := 0; k < 2 && i+1 < len(raw) && raw[i+1] >= '0' && raw[i+1] <= '7'; k++ {
					i++
					val = val*8 + int(raw[i]-'0')
				}
				sb.WriteByte(byte(val))
			} else {
				sb.WriteByte(raw[i])
			}
		}
	}
	return latin1(sb.String())
}

func decodeHexString(raw []byte) string {
	clean := bytes.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, raw)
	if len(clean)%2 == 1 {
		clean = append(clean, '0')
	}
	b, err := hex.DecodeString(string(clean))
	if err != nil {
		return ""
	}
	return latin1(string(b))
}

// latin1 maps raw string bytes to runes one by one, which is what simple
// single-byte fonts render.
func latin1(s string) string {
	runes := make([]rune, 0, len(s))
	for i := 0; i < len(s); i++ {
		runes = append(runes, rune(s[i]))
	}
	return string(runes)
}

func cleanScrapedText(text string) string {
	lines := strings.Split(text, "\n")
	out := lines[:0]
	for _, line := range lines {
		var sb strings.Builder
		prevSpace := false
		for _, r := range line {
			switch {
			case unicode.IsSpace(r):
				if !prevSpace && sb.Len() > 0 {
					sb.WriteByte(' ')
					prevSpace = true
				}
			case unicode.IsPrint(r):
				sb.WriteRune(r)
				prevSpace = false
			}
		}
		if s := strings.TrimSpace(sb.String()); s != "" {
			out = append(out, s)
		}
	}
	return strings.Join(out, "\n")
}
