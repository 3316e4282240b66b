package ocr

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
)

// PdftoppmRasterizer renders pages with poppler's pdftoppm.
type PdftoppmRasterizer struct {
	Bin string
}

func NewPdftoppm(bin string) *PdftoppmRasterizer {
	if bin == "" {
		bin = "pdftoppm"
	}
	return &PdftoppmRasterizer{Bin: bin}
}

func (p *PdftoppmRasterizer) Available(context.Context) error {
	if _, err := exec.LookPath(p.Bin); err != nil {
		return fmt.Errorf("%w: %s not found", ErrUnavailable, p.Bin)
	}
	return nil
}

func (p *PdftoppmRasterizer) Rasterize(ctx context.Context, pdf []byte, maxPages, dpi int) ([]Image, error) {
	tmpDir, err := os.MkdirTemp("", "docsum-raster-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp dir: %w", err)
	}
	defer os.RemoveAll(tmpDir)

	input := filepath.Join(tmpDir, "input.pdf")
	if err := os.WriteFile(input, pdf, 0o600); err != nil {
		return nil, err
	}
	prefix := filepath.Join(tmpDir, "page")

	args := []string{"-png", "-r", strconv.Itoa(dpi), "-f", "1"}
	if maxPages > 0 {
		args = append(args, "-l", strconv.Itoa(maxPages))
	}
	args = append(args, input, prefix)
	if out, err := exec.CommandContext(ctx, p.Bin, args...).CombinedOutput(); err != nil {
		return nil, fmt.Errorf("pdftoppm: %w: %s", err, out)
	}

	files, err := filepath.Glob(prefix + "-*.png")
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("pdftoppm produced no page images")
	}
	files = sortPageFiles(files)

	images := make([]Image, 0, len(files))
	for _, f := range files {
		data, err := os.ReadFile(f)
		if err != nil {
			return nil, err
		}
		images = append(images, Image{Page: pageNumber(f), MIMEType: "image/png", Data: data})
	}
	return images, nil
}

var pageSuffixRe = regexp.MustCompile(`-(\d+)\.png$`)

// pdftoppm zero-pads page numbers only up to the width of the last page, so
// lexical order is not reliable across documents.
func sortPageFiles(files []string) []string {
	sort.SliceStable(files, func(i, j int) bool {
		return pageNumber(files[i]) < pageNumber(files[j])
	})
	return files
}

func pageNumber(path string) int {
	m := pageSuffixRe.FindStringSubmatch(filepath.Base(path))
	if m == nil {
		return 0
	}
	n, _ := strconv.Atoi(m[1])
	return n
}
