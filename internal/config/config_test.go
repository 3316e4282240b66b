package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, 100, cfg.Extraction.MinTextLength)
	assert.Equal(t, 0.7, cfg.Extraction.MaxMetadataRatio)
	assert.Equal(t, OCRPriorityLast, cfg.Extraction.OCRPriority)
	assert.Equal(t, 50000, cfg.Chunking.Threshold)
	assert.Equal(t, 504000, cfg.Chunking.MaxCharsPerChunk())
	assert.Equal(t, 5, cfg.Summary.ParallelThreshold)
	assert.Equal(t, 3, cfg.Summary.MaxConcurrency)
	assert.Equal(t, 500*time.Millisecond, cfg.Summary.PaceDelay)
	assert.True(t, cfg.OCR.Enabled)
	assert.True(t, cfg.Pipeline.PreserveStructure)
}

func TestLoadConfig(t *testing.T) {
	t.Setenv("LLM_API_KEY", "from-env")
	t.Setenv("GOOGLE_API_KEY", "")
	path := writeConfig(t, `
llm:
  provider: anthropic
  model: claude-test
extraction:
  ocr_priority: first
chunking:
  max_tokens: 25000
summary:
  pace_delay: 250ms
  max_concurrency: 2
pipeline:
  timeout: 30s
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "anthropic", cfg.LLM.Provider)
	assert.Equal(t, "from-env", cfg.LLM.Key)
	assert.Equal(t, OCRPriorityFirst, cfg.Extraction.OCRPriority)
	assert.Equal(t, 70000, cfg.Chunking.MaxCharsPerChunk())
	assert.Equal(t, 250*time.Millisecond, cfg.Summary.PaceDelay)
	assert.Equal(t, 2, cfg.Summary.MaxConcurrency)
	assert.Equal(t, 30*time.Second, cfg.Pipeline.Timeout)
	// untouched sections keep their defaults
	assert.Equal(t, 100, cfg.Extraction.MinTextLength)
	assert.Equal(t, "tesseract", cfg.OCR.Engine)
}

func TestLoadConfigGeminiKey(t *testing.T) {
	t.Setenv("LLM_API_KEY", "")
	t.Setenv("GOOGLE_API_KEY", "google-key")
	path := writeConfig(t, "llm:\n  provider: gemini\n")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "google-key", cfg.LLM.Key)
	assert.Equal(t, "google-key", cfg.OCR.GeminiKey)
}

func TestLoadConfigInvalid(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
		assert.ErrorIs(t, err, os.ErrNotExist)
	})

	t.Run("bad yaml", func(t *testing.T) {
		_, err := LoadConfig(writeConfig(t, "llm: [unclosed"))
		assert.Error(t, err)
	})

	t.Run("validation", func(t *testing.T) {
		_, err := LoadConfig(writeConfig(t, `
llm:
  provider: carrier-pigeon
extraction:
  ocr_priority: middle
  max_metadata_ratio: 1.5
`))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "ocr_priority")
		assert.Contains(t, err.Error(), "max_metadata_ratio")
		assert.Contains(t, err.Error(), "carrier-pigeon")
	})

	t.Run("budget below overlap", func(t *testing.T) {
		cfg := Default()
		cfg.Chunking.MaxTokens = 10
		cfg.Chunking.Overlap = 300
		assert.ErrorContains(t, cfg.Validate(), "overlap")
	})
}

func TestLoadShippedConfig(t *testing.T) {
	cfg, err := LoadConfig("../../configs/config.yaml")
	require.NoError(t, err)
	assert.Equal(t, "ollama", cfg.LLM.Provider)
	assert.Equal(t, 10*time.Minute, cfg.Pipeline.Timeout)
}
