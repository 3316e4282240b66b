package ocr

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"
)

// TesseractRecognizer shells out to the tesseract CLI.
type TesseractRecognizer struct {
	Bin       string
	Languages string
	ExtraArgs []string
}

func NewTesseract(bin, languages string, extraArgs []string) *TesseractRecognizer {
	if bin == "" {
		bin = "tesseract"
	}
	if languages == "" {
		languages = "eng"
	}
	if len(extraArgs) == 0 {
		extraArgs = []string{"--oem", "3", "--psm", "6"}
	}
	return &TesseractRecognizer{Bin: bin, Languages: languages, ExtraArgs: extraArgs}
}

func (t *TesseractRecognizer) Name() string {
	return "tesseract"
}

func (t *TesseractRecognizer) Available(ctx context.Context) error {
	path, err := exec.LookPath(t.Bin)
	if err != nil {
		return fmt.Errorf("%w: %s not found", ErrUnavailable, t.Bin)
	}
	if err := exec.CommandContext(ctx, path, "--version").Run(); err != nil {
		return fmt.Errorf("%w: %s --version: %v", ErrUnavailable, t.Bin, err)
	}
	return nil
}

func (t *TesseractRecognizer) Recognize(ctx context.Context, img Image) (string, error) {
	tmpDir, err := os.MkdirTemp("", "docsum-ocr-*")
	if err != nil {
		return "", fmt.Errorf("failed to create temp dir: %w", err)
	}
	defer os.RemoveAll(tmpDir)

	imgPath := filepath.Join(tmpDir, fmt.Sprintf("page-%d%s", img.Page, extensionFor(img.MIMEType)))
	if err := os.WriteFile(imgPath, img.Data, 0o600); err != nil {
		return "", err
	}

	args := append([]string{imgPath, "stdout", "-l", t.Languages}, t.ExtraArgs...)
	cmd := exec.CommandContext(ctx, t.Bin, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		log.Debug().Str("stderr", stderr.String()).Int("page", img.Page).Msg("tesseract failed")
		return "", fmt.Errorf("tesseract page %d: %w", img.Page, err)
	}
	return strings.TrimSpace(stdout.String()), nil
}

func extensionFor(mimeType string) string {
	switch mimeType {
	case "image/jpeg":
		return ".jpg"
	case "image/tiff":
		return ".tif"
	default:
		return ".png"
	}
}
