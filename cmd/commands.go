package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"document-summary/internal/helper"
	"document-summary/internal/models"
	"document-summary/internal/parser"
	"document-summary/internal/summarizer"
)

func extractCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "extract <file>",
		Short: "Extract the text of a document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), g, false)
			if err != nil {
				return err
			}
			defer a.close()

			raw, err := readDocument(args[0])
			if err != nil {
				return err
			}
			res, err := a.pipeline.ExtractOnly(cmd.Context(), raw)
			if err != nil {
				return describe(err)
			}
			if g.jsonOut {
				helper.PrettyPrint(os.Stdout, res)
				return nil
			}
			fmt.Println(res.Text)
			return nil
		},
	}
}

func chunkCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "chunk <file>",
		Short: "Extract a document and show how it would be chunked",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), g, false)
			if err != nil {
				return err
			}
			defer a.close()

			raw, err := readDocument(args[0])
			if err != nil {
				return err
			}
			report, err := a.pipeline.ChunkOnly(cmd.Context(), raw)
			if err != nil {
				return describe(err)
			}
			if g.jsonOut {
				helper.PrettyPrint(os.Stdout, report.Chunking)
				return nil
			}
			st := report.Chunking.Stats
			fmt.Printf("strategy: %s\nchunks: %d\nchars: %d (avg %d, min %d, max %d)\nestimated tokens: %d\n",
				report.Chunking.Strategy, st.TotalChunks, st.TotalChars, st.AvgChunkSize, st.MinChunkSize, st.MaxChunkSize, st.EstimatedTokens)
			for _, ch := range report.Chunking.Chunks {
				fmt.Printf("  #%d [%d:%d] %d words headers=%t tables=%t\n",
					ch.ID, ch.Start, ch.End, ch.WordCount, ch.HasHeaders, ch.HasTables)
			}
			return nil
		},
	}
}

func estimateCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "estimate <file>",
		Short: "Predict the number of generation calls for a document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), g, false)
			if err != nil {
				return err
			}
			defer a.close()

			raw, err := readDocument(args[0])
			if err != nil {
				return err
			}
			est, err := a.pipeline.Estimate(cmd.Context(), raw)
			if err != nil {
				return describe(err)
			}
			if g.jsonOut {
				helper.PrettyPrint(os.Stdout, est)
				return nil
			}
			fmt.Printf("chunks: %d (%s)\nprocessing: %s\ncalls: %d\nestimated tokens: %d\n",
				est.ChunkCount, est.ChunkingStrategy, est.ProcessingStrategy, est.EstimatedCalls, est.EstimatedTokens)
			return nil
		},
	}
}

func summarizeCmd(g *globalFlags) *cobra.Command {
	var (
		summaryType string
		maxLength   int
		language    string
	)
	cmd := &cobra.Command{
		Use:   "summarize <file>",
		Short: "Extract and summarize a document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), g, true)
			if err != nil {
				return err
			}
			defer a.close()

			raw, err := readDocument(args[0])
			if err != nil {
				return err
			}
			if summaryType == "" {
				summaryType = a.cfg.Summary.DefaultType
			}
			res, err := a.pipeline.Process(cmd.Context(), raw, summarizer.Options{
				Type:      models.ParseSummaryType(summaryType),
				MaxLength: maxLength,
				Language:  language,
			})
			if err != nil {
				return describe(err)
			}
			if g.jsonOut {
				helper.PrettyPrint(os.Stdout, res)
				return nil
			}
			if res.Summary == nil {
				fmt.Println(res.Extraction.Text)
				return nil
			}
			st := res.Summary.Stats
			fmt.Printf("%s\n\n", res.Summary.Summary)
			fmt.Fprintf(os.Stderr, "source=%s chunks=%d strategy=%s calls=%d failed=%d compression=%.1fx\n",
				res.Extraction.Source, st.ChunkCount, st.ProcessingStrategy, st.TotalCalls, st.FailedChunks, st.CompressionRatio)
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&summaryType, "type", "", "Summary type: general, bullet_points, key_insights, executive_summary, detailed")
	f.IntVar(&maxLength, "max-length", 0, "Maximum summary length in words (0 sizes it from the document)")
	f.StringVar(&language, "language", "", "Language of the summary")
	return cmd
}

// describe adds the attempted strategies to an extraction failure.
func describe(err error) error {
	var failed *parser.ExtractionFailedError
	if !errors.As(err, &failed) || len(failed.Attempts) == 0 {
		return err
	}
	return fmt.Errorf("%w\ntried: %s", err, strings.Join(failed.Attempts, ", "))
}
