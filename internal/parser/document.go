package parser

import (
	"bytes"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"sync"

	"github.com/ledongthuc/pdf"
	"github.com/rs/zerolog/log"
	rpdf "rsc.io/pdf"
)

// Document is a PDF opened once and shared by every strategy of a chain run.
// The underlying readers are created lazily; both libraries panic on some
// malformed inputs, so every access goes through safely.
type Document struct {
	Data []byte

	once      sync.Once
	reader    *pdf.Reader
	openErr   error
	pages     int
	encrypted bool

	rscOnce   sync.Once
	rscReader *rpdf.Reader
	rscErr    error
}

var (
	pageObjRe  = regexp.MustCompile(`/Type\s*/Page[^s]`)
	acroFormRe = regexp.MustCompile(`/AcroForm\b`)
)

func NewDocument(data []byte) *Document {
	return &Document{Data: data}
}

func (d *Document) open() {
	d.once.Do(func() {
		d.encrypted = bytes.Contains(d.Data, []byte("/Encrypt"))
		err := safely(func() error {
			r, err := pdf.NewReader(bytes.NewReader(d.Data), int64(len(d.Data)))
			if err != nil {
				return err
			}
			d.reader = r
			d.pages = r.NumPage()
			if !r.Trailer().Key("Encrypt").IsNull() {
				d.encrypted = true
			}
			return nil
		})
		if err != nil {
			d.openErr = fmt.Errorf("open pdf: %w", err)
			d.reader = nil
			if errors.Is(err, pdf.ErrInvalidPassword) {
				d.encrypted = true
			}
		}
		if d.pages <= 0 {
			d.pages = len(pageObjRe.FindAll(d.Data, -1))
		}
	})
}

// Reader returns the ledongthuc reader or the error from opening it.
func (d *Document) Reader() (*pdf.Reader, error) {
	d.open()
	return d.reader, d.openErr
}

func (d *Document) rsc() (*rpdf.Reader, error) {
	d.rscOnce.Do(func() {
		d.rscErr = safely(func() error {
			r, err := rpdf.NewReader(bytes.NewReader(d.Data), int64(len(d.Data)))
			if err != nil {
				return err
			}
			d.rscReader = r
			return nil
		})
	})
	return d.rscReader, d.rscErr
}

// PageCount falls back to counting page objects when the parser failed.
func (d *Document) PageCount() int {
	d.open()
	return d.pages
}

func (d *Document) Encrypted() bool {
	d.open()
	return d.encrypted
}

func (d *Document) HasForms() bool {
	return acroFormRe.Match(d.Data)
}

// PageText is the plain text of a 1-based page, or "" when it cannot be read.
func (d *Document) PageText(n int) string {
	r, err := d.Reader()
	if err != nil || n < 1 || n > d.pages {
		return ""
	}
	var text string
	_ = safely(func() error {
		p := r.Page(n)
		if p.V.IsNull() {
			return nil
		}
		t, err := p.GetPlainText(nil)
		if err != nil {
			return err
		}
		text = t
		return nil
	})
	return text
}

// PageHasImages reports whether the page resources reference an image XObject.
func (d *Document) PageHasImages(n int) bool {
	r, err := d.Reader()
	if err != nil || n < 1 || n > d.pages {
		return false
	}
	found := false
	_ = safely(func() error {
		xobjects := r.Page(n).Resources().Key("XObject")
		for _, name := range xobjects.Keys() {
			if xobjects.Key(name).Key("Subtype").Name() == "Image" {
				found = true
				return nil
			}
		}
		return nil
	})
	return found
}

// rowsText joins layout rows top to bottom.
func rowsText(rows pdf.Rows) string {
	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].Position > rows[j].Position
	})
	var sb strings.Builder
	for _, row := range rows {
		var words []string
		for _, t := range row.Content {
			if s := strings.TrimSpace(t.S); s != "" {
				words = append(words, s)
			}
		}
		if len(words) == 0 {
			continue
		}
		sb.WriteString(strings.Join(words, " "))
		sb.WriteByte('\n')
	}
	return sb.String()
}

// safely converts a panic inside fn into an error.
func safely(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			log.Debug().Interface("panic", r).Msg("Recovered from pdf parser panic")
			err = fmt.Errorf("pdf parser panic: %v", r)
		}
	}()
	return fn()
}
