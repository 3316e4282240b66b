package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"mime"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"document-summary/internal/config"
	"document-summary/internal/llmservice"
	"document-summary/internal/metrics"
	"document-summary/internal/models"
	"document-summary/internal/pipeline"
)

const configFilePath = "./configs/config.yaml"

type globalFlags struct {
	configPath  string
	logLevel    string
	ocrPriority string
	noOCR       bool
	flat        bool
	jsonOut     bool
	metricsDump bool
}

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).With().Caller().Logger()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := rootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	g := &globalFlags{}
	root := &cobra.Command{
		Use:           "docsum",
		Short:         "Extract, chunk and summarize documents",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			level, err := zerolog.ParseLevel(g.logLevel)
			if err != nil {
				return fmt.Errorf("invalid log level %q: %w", g.logLevel, err)
			}
			zerolog.SetGlobalLevel(level)
			return nil
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&g.configPath, "config", configFilePath, "Path to the config file")
	pf.StringVar(&g.logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	pf.StringVar(&g.ocrPriority, "ocr-priority", "", "Run OCR first or last (overrides config)")
	pf.BoolVar(&g.noOCR, "no-ocr", false, "Disable the OCR fallback")
	pf.BoolVar(&g.flat, "flat", false, "Chunk by sentences and ignore document structure")
	pf.BoolVar(&g.jsonOut, "json", false, "Print the result as JSON")
	pf.BoolVar(&g.metricsDump, "metrics-dump", false, "Print collected metrics to stderr on exit")

	root.AddCommand(extractCmd(g), chunkCmd(g), estimateCmd(g), summarizeCmd(g))
	return root
}

// app bundles what every subcommand needs.
type app struct {
	cfg      *config.Config
	registry *prometheus.Registry
	pipeline *pipeline.Pipeline
	flags    *globalFlags
}

func newApp(ctx context.Context, g *globalFlags, needGenerator bool) (*app, error) {
	cfg, err := loadConfig(g.configPath)
	if err != nil {
		return nil, err
	}
	if g.ocrPriority != "" {
		cfg.Extraction.OCRPriority = g.ocrPriority
	}
	if g.noOCR {
		cfg.OCR.Enabled = false
	}
	if g.flat {
		cfg.Pipeline.PreserveStructure = false
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	log.Debug().Interface("config", cfg).Msg("Loaded config")

	var gen llmservice.TextGenerator
	if needGenerator {
		gen, err = llmservice.NewFromConfig(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("init generator: %w", err)
		}
	}

	reg := prometheus.NewRegistry()
	opts := []pipeline.Option{pipeline.WithMetrics(metrics.New(reg))}
	if o := pipeline.NewOCR(ctx, cfg.OCR); o != nil {
		opts = append(opts, pipeline.WithOCR(o))
	}
	return &app{
		cfg:      cfg,
		registry: reg,
		pipeline: pipeline.New(cfg, gen, opts...),
		flags:    g,
	}, nil
}

// loadConfig falls back to defaults when the default config file is absent.
func loadConfig(path string) (*config.Config, error) {
	cfg, err := config.LoadConfig(path)
	if errors.Is(err, fs.ErrNotExist) && path == configFilePath {
		log.Warn().Str("path", path).Msg("Config file not found, using defaults")
		return config.Default(), nil
	}
	return cfg, err
}

func (a *app) close() {
	if !a.flags.metricsDump {
		return
	}
	families, err := a.registry.Gather()
	if err != nil {
		log.Warn().Err(err).Msg("Error gathering metrics")
		return
	}
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(os.Stderr, mf); err != nil {
			log.Warn().Err(err).Msg("Error writing metrics")
			return
		}
	}
}

func readDocument(path string) (models.RawDocument, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return models.RawDocument{}, fmt.Errorf("read %s: %w", path, err)
	}
	mediaType := mime.TypeByExtension(strings.ToLower(filepath.Ext(path)))
	return models.RawDocument{Data: data, MediaType: mediaType, Name: filepath.Base(path)}, nil
}
