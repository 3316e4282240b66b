package parser

import (
	"archive/zip"
	"bytes"
	"fmt"
	"html"
	"io"
	"mime"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"

	"document-summary/internal/models"

	"github.com/nguyenthenguyen/docx"
	"github.com/tealeg/xlsx"
	"github.com/xuri/excelize/v2"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	extast "github.com/yuin/goldmark/extension/ast"
	"github.com/yuin/goldmark/text"
)

// Format is the document family used to dispatch parsing.
type Format string

const (
	FormatPDF      Format = "pdf"
	FormatDOCX     Format = "docx"
	FormatPPTX     Format = "pptx"
	FormatXLSX     Format = "xlsx"
	FormatWorkbook Format = "workbook"
	FormatMarkdown Format = "markdown"
	FormatText     Format = "text"
	FormatUnknown  Format = "unknown"
)

var mediaTypeFormats = map[string]Format{
	"application/pdf":   FormatPDF,
	"application/x-pdf": FormatPDF,
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document":   FormatDOCX,
	"application/vnd.openxmlformats-officedocument.presentationml.presentation": FormatPPTX,
	"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet":         FormatXLSX,
	"application/vnd.ms-excel.sheet.macroenabled.12":                            FormatWorkbook,
	"application/vnd.openxmlformats-officedocument.spreadsheetml.template":      FormatWorkbook,
	"text/markdown":   FormatMarkdown,
	"text/x-markdown": FormatMarkdown,
	"text/plain":      FormatText,
}

var extensionFormats = map[string]Format{
	".pdf":      FormatPDF,
	".docx":     FormatDOCX,
	".pptx":     FormatPPTX,
	".xlsx":     FormatXLSX,
	".xlsm":     FormatWorkbook,
	".xltx":     FormatWorkbook,
	".md":       FormatMarkdown,
	".markdown": FormatMarkdown,
	".txt":      FormatText,
}

// DetectFormat resolves the format from the declared media type, then the
// file extension, then the leading bytes.
func DetectFormat(mediaType, name string, data []byte) Format {
	if mediaType != "" {
		if mt, _, err := mime.ParseMediaType(mediaType); err == nil {
			if f, ok := mediaTypeFormats[strings.ToLower(mt)]; ok {
				return f
			}
		}
	}
	if name != "" {
		if f, ok := extensionFormats[strings.ToLower(filepath.Ext(name))]; ok {
			return f
		}
	}
	if bytes.HasPrefix(data, []byte("%PDF-")) {
		return FormatPDF
	}
	if utf8.Valid(data) && len(data) > 0 {
		return FormatText
	}
	return FormatUnknown
}

// ParseBytes extracts text from non-PDF formats and reports the source name.
func ParseBytes(kind Format, data []byte) (string, string, error) {
	switch kind {
	case FormatDOCX:
		t, err := parseDOCX(data)
		return t, models.SourceDOCX, err
	case FormatPPTX:
		t, err := parsePPTX(data)
		return t, models.SourcePPTX, err
	case FormatXLSX:
		t, err := parseXLSX(data)
		return t, models.SourceXLSX, err
	case FormatWorkbook:
		t, err := parseWorkbook(data)
		return t, models.SourceSpreadsheet, err
	case FormatMarkdown:
		t, err := parseMarkdown(data)
		return t, models.SourceMarkdown, err
	case FormatText:
		return parseText(data), models.SourcePlainText, nil
	default:
		return "", string(kind), fmt.Errorf("%w: %s", ErrUnsupportedFormat, kind)
	}
}

var (
	xmlTagRe        = regexp.MustCompile(`<[^>]+>`)
	wordParagraphRe = regexp.MustCompile(`</w:p>|<w:br/>|<w:cr/>`)
	wordTabRe       = regexp.MustCompile(`<w:tab/>`)
)

func parseDOCX(data []byte) (string, error) {
	r, err := docx.ReadDocxFromMemory(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", err
	}
	defer r.Close()

	content := r.Editable().GetContent()
	content = wordParagraphRe.ReplaceAllString(content, "\n")
	content = wordTabRe.ReplaceAllString(content, "\t")
	content = html.UnescapeString(xmlTagRe.ReplaceAllString(content, ""))

	var paragraphs []string
	for _, p := range strings.Split(content, "\n") {
		if p = strings.TrimSpace(p); p != "" {
			paragraphs = append(paragraphs, p)
		}
	}
	return strings.Join(paragraphs, "\n\n"), nil
}

var slideNumberRe = regexp.MustCompile(`slide(\d+)\.xml$`)

func parsePPTX(data []byte) (string, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", err
	}

	type slide struct {
		num  int
		text string
	}
	var slides []slide
	for _, file := range zr.File {
		if !strings.HasPrefix(file.Name, "ppt/slides/slide") {
			continue
		}
		rc, err := file.Open()
		if err != nil {
			continue
		}
		content, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			continue
		}
		num := 0
		if m := slideNumberRe.FindStringSubmatch(file.Name); m != nil {
			fmt.Sscanf(m[1], "%d", &num)
		}
		if t := strings.TrimSpace(extractTextFromXML(string(content))); t != "" {
			slides = append(slides, slide{num: num, text: t})
		}
	}
	sort.Slice(slides, func(i, j int) bool { return slides[i].num < slides[j].num })

	parts := make([]string, 0, len(slides))
	for _, s := range slides {
		parts = append(parts, fmt.Sprintf("Slide %d:\n%s", s.num, s.text))
	}
	return strings.Join(parts, "\n\n"), nil
}

func parseXLSX(data []byte) (string, error) {
	f, err := xlsx.OpenBinary(data)
	if err != nil {
		return "", err
	}

	var sheets []string
	for _, sheet := range f.Sheets {
		var sb strings.Builder
		sb.WriteString(fmt.Sprintf("Sheet: %s\n", sheet.Name))
		for _, row := range sheet.Rows {
			cells := make([]string, 0, len(row.Cells))
			for _, cell := range row.Cells {
				cells = append(cells, cell.String())
			}
			sb.WriteString(strings.Join(cells, "\t"))
			sb.WriteString("\n")
		}
		sheets = append(sheets, strings.TrimSpace(sb.String()))
	}
	return strings.Join(sheets, "\n\n"), nil
}

// parseWorkbook reads macro-enabled and template workbooks.
func parseWorkbook(data []byte) (string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return "", err
	}
	defer f.Close()

	var sheets []string
	for _, sheetName := range f.GetSheetList() {
		rows, err := f.GetRows(sheetName)
		if err != nil {
			continue
		}
		var sb strings.Builder
		sb.WriteString(fmt.Sprintf("Sheet: %s\n", sheetName))
		for _, row := range rows {
			sb.WriteString(strings.Join(row, "\t"))
			sb.WriteString("\n")
		}
		sheets = append(sheets, strings.TrimSpace(sb.String()))
	}
	return strings.Join(sheets, "\n\n"), nil
}

func parseText(data []byte) string {
	return strings.ToValidUTF8(string(data), "")
}

// parseMarkdown renders markdown to plain text, keeping one paragraph per
// block and table cells separated by tabs.
func parseMarkdown(data []byte) (string, error) {
	md := goldmark.New(goldmark.WithExtensions(extension.GFM))
	doc := md.Parser().Parse(text.NewReader(data))

	var sb strings.Builder
	err := ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		switch node := n.(type) {
		case *ast.Text:
			if entering {
				sb.Write(node.Segment.Value(data))
				if node.SoftLineBreak() || node.HardLineBreak() {
					sb.WriteByte('\n')
				}
			}
		case *ast.String:
			if entering {
				sb.Write(node.Value)
			}
		case *ast.CodeBlock, *ast.FencedCodeBlock:
			if entering {
				lines := n.Lines()
				for i := 0; i < lines.Len(); i++ {
					seg := lines.At(i)
					sb.Write(seg.Value(data))
				}
				sb.WriteString("\n")
			}
			return ast.WalkSkipChildren, nil
		case *extast.TableCell:
			if !entering {
				sb.WriteByte('\t')
			}
		case *extast.TableRow, *extast.TableHeader:
			if !entering {
				sb.WriteByte('\n')
			}
		case *ast.Heading, *ast.Paragraph, *ast.TextBlock, *ast.ListItem, *ast.ThematicBreak, *extast.Table:
			if !entering {
				sb.WriteString("\n\n")
			}
		}
		return ast.WalkContinue, nil
	})
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(collapseBlankLines(sb.String())), nil
}

var blankRunRe = regexp.MustCompile(`\n[ \t]*\n(?:[ \t]*\n)+`)

func collapseBlankLines(s string) string {
	return blankRunRe.ReplaceAllString(s, "\n\n")
}

func extractTextFromXML(xmlContent string) string {
	var sb strings.Builder
	parts := strings.Split(xmlContent, "<a:t>")
	for i, part := range parts {
		if i == 0 {
			continue
		}
		if endIdx := strings.Index(part, "</a:t>"); endIdx >= 0 {
			sb.WriteString(html.UnescapeString(part[:endIdx]))
			sb.WriteString(" ")
		}
	}
	return sb.String()
}
