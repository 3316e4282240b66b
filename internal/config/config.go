package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	LLM         LLMConfig        `yaml:"llm"`
	FallbackLLM *LLMConfig       `yaml:"fallback_llm,omitempty"`
	Extraction  ExtractionConfig `yaml:"extraction"`
	OCR         OCRConfig        `yaml:"ocr"`
	Chunking    ChunkingConfig   `yaml:"chunking"`
	Summary     SummaryConfig    `yaml:"summary"`
	Pipeline    PipelineConfig   `yaml:"pipeline"`
}

// LLMConfig describes one text-generation backend.
type LLMConfig struct {
	Provider    string  `yaml:"provider"` // openai, ollama, anthropic, gemini
	BaseURL     string  `yaml:"base_url"`
	Key         string  `yaml:"key"`
	Model       string  `yaml:"model"`
	Temperature float64 `yaml:"temperature"`
	MaxTokens   int     `yaml:"max_tokens"`
}

type ExtractionConfig struct {
	MinTextLength    int     `yaml:"min_text_length"`
	MaxMetadataRatio float64 `yaml:"max_metadata_ratio"`
	OCRPriority      string  `yaml:"ocr_priority"` // first | last
}

type OCRConfig struct {
	Enabled      bool     `yaml:"enabled"`
	Engine       string   `yaml:"engine"` // tesseract | gemini
	Languages    string   `yaml:"languages"`
	TesseractBin string   `yaml:"tesseract_bin"`
	PdftoppmBin  string   `yaml:"pdftoppm_bin"`
	ExtraArgs    []string `yaml:"extra_args"`
	DPI          int      `yaml:"dpi"`
	MaxPages     int      `yaml:"max_pages"`
	SamplePages  int      `yaml:"sample_pages"`
	GeminiModel  string   `yaml:"gemini_model"`
	GeminiKey    string   `yaml:"gemini_key"`
}

type ChunkingConfig struct {
	Threshold     int     `yaml:"threshold"`
	MaxTokens     int     `yaml:"max_tokens"`
	CharsPerToken int     `yaml:"chars_per_token"`
	SafetyMargin  float64 `yaml:"safety_margin"`
	Overlap       int     `yaml:"overlap"`
	MaxChunks     int     `yaml:"max_chunks"`
}

// MaxCharsPerChunk is the per-chunk budget derived from the token limit.
func (c ChunkingConfig) MaxCharsPerChunk() int {
	return int(math.Round(float64(c.MaxTokens*c.CharsPerToken) * c.SafetyMargin))
}

type SummaryConfig struct {
	DefaultType       string        `yaml:"default_type"`
	Language          string        `yaml:"language"`
	MaxLength         int           `yaml:"max_length"` // words, 0 sizes it from the document
	ChunkWords        int           `yaml:"chunk_words"`
	MinInputLength    int           `yaml:"min_input_length"`
	ParallelThreshold int           `yaml:"parallel_threshold"`
	MaxConcurrency    int           `yaml:"max_concurrency"`
	PaceDelay         time.Duration `yaml:"pace_delay"`
	EchoRatio         float64       `yaml:"echo_ratio"`
	FallbackSentences int           `yaml:"fallback_sentences"`
}

type PipelineConfig struct {
	Timeout           time.Duration `yaml:"timeout"`
	PreserveStructure bool          `yaml:"preserve_structure"`
}

const (
	OCRPriorityFirst = "first"
	OCRPriorityLast  = "last"
)

// Default returns a configuration with every tunable set.
func Default() *Config {
	cfg := &Config{}
	cfg.OCR.Enabled = true
	cfg.Pipeline.PreserveStructure = true
	cfg.applyDefaults()
	return cfg
}

func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	cfg.applyDefaults()
	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.LLM.Provider == "" {
		c.LLM.Provider = "openai"
	}
	if c.LLM.MaxTokens == 0 {
		c.LLM.MaxTokens = 4096
	}

	e := &c.Extraction
	if e.MinTextLength == 0 {
		e.MinTextLength = 100
	}
	if e.MaxMetadataRatio == 0 {
		e.MaxMetadataRatio = 0.7
	}
	if e.OCRPriority == "" {
		e.OCRPriority = OCRPriorityLast
	}

	o := &c.OCR
	if o.Engine == "" {
		o.Engine = "tesseract"
	}
	if o.Languages == "" {
		o.Languages = "vie+eng"
	}
	if o.TesseractBin == "" {
		o.TesseractBin = "tesseract"
	}
	if o.PdftoppmBin == "" {
		o.PdftoppmBin = "pdftoppm"
	}
	if o.DPI == 0 {
		o.DPI = 200
	}
	if o.MaxPages == 0 {
		o.MaxPages = 10
	}
	if o.SamplePages == 0 {
		o.SamplePages = 3
	}
	if o.GeminiModel == "" {
		o.GeminiModel = "gemini-2.5-flash"
	}

	ch := &c.Chunking
	if ch.Threshold == 0 {
		ch.Threshold = 50000
	}
	if ch.MaxTokens == 0 {
		ch.MaxTokens = 180000
	}
	if ch.CharsPerToken == 0 {
		ch.CharsPerToken = 4
	}
	if ch.SafetyMargin == 0 {
		ch.SafetyMargin = 0.7
	}
	if ch.Overlap == 0 {
		ch.Overlap = 300
	}

	s := &c.Summary
	if s.DefaultType == "" {
		s.DefaultType = "general"
	}
	if s.Language == "" {
		s.Language = "English"
	}
	if s.ChunkWords == 0 {
		s.ChunkWords = 200
	}
	if s.MinInputLength == 0 {
		s.MinInputLength = 50
	}
	if s.ParallelThreshold == 0 {
		s.ParallelThreshold = 5
	}
	if s.MaxConcurrency == 0 {
		s.MaxConcurrency = 3
	}
	if s.PaceDelay == 0 {
		s.PaceDelay = 500 * time.Millisecond
	}
	if s.EchoRatio == 0 {
		s.EchoRatio = 0.8
	}
	if s.FallbackSentences == 0 {
		s.FallbackSentences = 3
	}

	if c.Pipeline.Timeout == 0 {
		c.Pipeline.Timeout = 10 * time.Minute
	}
}

// applyEnv lets secrets stay out of the yaml file.
func (c *Config) applyEnv() {
	if key := os.Getenv("LLM_API_KEY"); key != "" && c.LLM.Key == "" {
		c.LLM.Key = key
	}
	if key := os.Getenv("GOOGLE_API_KEY"); key != "" {
		if c.OCR.GeminiKey == "" {
			c.OCR.GeminiKey = key
		}
		if c.LLM.Provider == "gemini" && c.LLM.Key == "" {
			c.LLM.Key = key
		}
	}
}

func (c *Config) Validate() error {
	var errs []error
	switch c.Extraction.OCRPriority {
	case OCRPriorityFirst, OCRPriorityLast:
	default:
		errs = append(errs, fmt.Errorf("extraction.ocr_priority must be %q or %q, got %q",
			OCRPriorityFirst, OCRPriorityLast, c.Extraction.OCRPriority))
	}
	if c.Extraction.MaxMetadataRatio <= 0 || c.Extraction.MaxMetadataRatio > 1 {
		errs = append(errs, fmt.Errorf("extraction.max_metadata_ratio must be in (0,1], got %v", c.Extraction.MaxMetadataRatio))
	}
	if c.Chunking.SafetyMargin <= 0 || c.Chunking.SafetyMargin > 1 {
		errs = append(errs, fmt.Errorf("chunking.safety_margin must be in (0,1], got %v", c.Chunking.SafetyMargin))
	}
	if c.Chunking.MaxCharsPerChunk() <= c.Chunking.Overlap {
		errs = append(errs, errors.New("chunking budget must be larger than the overlap"))
	}
	if c.Summary.MaxConcurrency < 1 {
		errs = append(errs, errors.New("summary.max_concurrency must be at least 1"))
	}
	switch strings.ToLower(c.LLM.Provider) {
	case "openai", "ollama", "anthropic", "gemini":
	default:
		errs = append(errs, fmt.Errorf("unknown llm provider %q", c.LLM.Provider))
	}
	return errors.Join(errs...)
}
