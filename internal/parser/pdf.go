package parser

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"math"
	"strings"

	"document-summary/internal/models"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/rs/zerolog/log"
)

// Strategy is one independent way of pulling text out of a PDF. It returns ""
// or an error when it could not read anything.
type Strategy interface {
	Name() string
	Extract(ctx context.Context, doc *Document) (string, error)
}

// StrategyFunc adapts a function to Strategy.
type StrategyFunc struct {
	ID string
	Fn func(ctx context.Context, doc *Document) (string, error)
}

func (s StrategyFunc) Name() string { return s.ID }

func (s StrategyFunc) Extract(ctx context.Context, doc *Document) (string, error) {
	return s.Fn(ctx, doc)
}

// DefaultStrategies returns the structural strategies in fallback order.
func DefaultStrategies() []Strategy {
	return []Strategy{
		StrictParse{},
		LenientParse{},
		PageRecovery{},
		ContentStreamScrape{},
	}
}

// StrictParse validates the file structure in strict mode and then reads all
// pages, failing on the first unreadable one.
type StrictParse struct{}

func (StrictParse) Name() string { return models.SourceStrictParse }

func (StrictParse) Extract(_ context.Context, doc *Document) (string, error) {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationStrict
	if err := safely(func() error {
		_, err := api.ReadValidateAndOptimize(bytes.NewReader(doc.Data), conf)
		return err
	}); err != nil {
		return "", fmt.Errorf("strict validation: %w", err)
	}

	r, err := doc.Reader()
	if err != nil {
		return "", err
	}
	var text string
	err = safely(func() error {
		rd, err := r.GetPlainText()
		if err != nil {
			return err
		}
		b, err := io.ReadAll(rd)
		if err != nil {
			return err
		}
		text = string(b)
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("strict text: %w", err)
	}
	return text, nil
}

// LenientParse reads every page independently; unreadable pages contribute
// nothing.
type LenientParse struct{}

func (LenientParse) Name() string { return models.SourceLenientParse }

func (LenientParse) Extract(ctx context.Context, doc *Document) (string, error) {
	if _, err := doc.Reader(); err != nil {
		return "", err
	}
	var pages []string
	for i := 1; i <= doc.PageCount(); i++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		if text := strings.TrimSpace(doc.PageText(i)); text != "" {
			pages = append(pages, text)
		}
	}
	return strings.Join(pages, "\n\n"), nil
}

// PageRecovery tries three readers per page: plain text, layout rows and a
// low-level walk of the text objects. It fails only when no page yields text.
type PageRecovery struct{}

func (PageRecovery) Name() string { return models.SourcePageRecovery }

func (PageRecovery) Extract(ctx context.Context, doc *Document) (string, error) {
	pageCount := doc.PageCount()
	var pages []string
	recovered := 0
	for i := 1; i <= pageCount; i++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		text, method := recoverPage(doc, i)
		if text == "" {
			log.Debug().Int("page", i).Msg("No text recovered from page")
			continue
		}
		recovered++
		log.Debug().Int("page", i).Str("method", method).Msg("Recovered page text")
		pages = append(pages, text)
	}
	if recovered == 0 {
		return "", fmt.Errorf("%w: 0 of %d pages", ErrNoTextExtracted, pageCount)
	}
	return strings.Join(pages, "\n\n"), nil
}

func recoverPage(doc *Document, n int) (string, string) {
	if text := strings.TrimSpace(doc.PageText(n)); text != "" {
		return text, "plain"
	}
	if text := strings.TrimSpace(layoutText(doc, n)); text != "" {
		return text, "layout"
	}
	if text := strings.TrimSpace(walkText(doc, n)); text != "" {
		return text, "walk"
	}
	return "", ""
}

func layoutText(doc *Document, n int) string {
	r, err := doc.Reader()
	if err != nil {
		return ""
	}
	var text string
	_ = safely(func() error {
		p := r.Page(n)
		if p.V.IsNull() {
			return nil
		}
		rows, err := p.GetTextByRow()
		if err != nil {
			return err
		}
		text = rowsText(rows)
		return nil
	})
	return text
}

// walkText reads the positioned text objects with an independent parser and
// starts a new line whenever the baseline moves.
func walkText(doc *Document, n int) string {
	r, err := doc.rsc()
	if err != nil || n > r.NumPage() {
		return ""
	}
	var sb strings.Builder
	_ = safely(func() error {
		p := r.Page(n)
		if p.V.IsNull() {
			return nil
		}
		lastY := math.NaN()
		for _, t := range p.Content().Text {
			if !math.IsNaN(lastY) && math.Abs(t.Y-lastY) > t.FontSize/2 {
				sb.WriteByte('\n')
			}
			sb.WriteString(t.S)
			lastY = t.Y
		}
		return nil
	})
	return sb.String()
}
