// Package analyze implements a one-shot analysis command for a local audio file.
package analyze

import (
	"context"
	"encoding/json"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/speechcoach/speechcoach-go/internal/analysis"
	"github.com/speechcoach/speechcoach-go/internal/conf"
	"github.com/speechcoach/speechcoach-go/internal/oracle"
)

// Command returns the analyze subcommand
func Command(settings *conf.Settings) *cobra.Command {
	var targetSeconds int

	cmd := &cobra.Command{
		Use:   "analyze [audio file]",
		Short: "Analyze a single audio file and print the result as JSON",
		Long: `Analyze runs the full analysis pipeline on a local audio file without
touching the database: oracle transcription and analysis, schema validation,
word count normalization, and performance scoring.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(settings, args[0], targetSeconds)
		},
	}

	cmd.Flags().IntVar(&targetSeconds, "target", 0, "Target speech duration in seconds (0 for none)")

	return cmd
}

func run(settings *conf.Settings, path string, targetSeconds int) error {
	audio, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading audio file: %w", err)
	}

	mimeType := mime.TypeByExtension(filepath.Ext(path))
	if idx := strings.Index(mimeType, ";"); idx != -1 {
		mimeType = strings.TrimSpace(mimeType[:idx])
	}
	if mimeType == "" {
		mimeType = "audio/webm"
	}

	client, err := oracle.FromSettings(settings, nil)
	if err != nil {
		return fmt.Errorf("initializing oracle client: %w", err)
	}
	defer client.Close()

	raw, err := client.Analyze(context.Background(), audio, mimeType)
	if err != nil {
		return fmt.Errorf("analyzing audio: %w", err)
	}

	result, err := analysis.Validate(raw)
	if err != nil {
		return fmt.Errorf("validating analysis: %w", err)
	}
	analysis.Normalize(result)

	perf := analysis.Score(result, int64(targetSeconds)*1000)
	result.Performance = &perf

	encoded, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding result: %w", err)
	}
	fmt.Println(string(encoded))

	return nil
}
