// ABOUTME: Export command: writes one conversation transcript to disk.
// ABOUTME: Format comes from the flag, then preferences; "-" writes to stdout.

package cli

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/hcnode/cui/internal/api"
	"github.com/hcnode/cui/internal/convo"
	"github.com/hcnode/cui/internal/export"
)

var (
	exportFormat string
	exportOutput string
)

var exportCmd = &cobra.Command{
	Use:   "export <session-id>",
	Short: "Export a conversation transcript",
	Long: `Export one conversation to a file. Formats: md (markdown), json,
and html (markdown rendered into a standalone page).

Without --output the file is named <session-id>.<ext> in the current
directory. Use --output - to write to stdout.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runExport(cmd.Context(), args[0])
	},
}

func init() {
	rootCmd.AddCommand(exportCmd)
	exportCmd.Flags().StringVarP(&exportFormat, "format", "f", "", "Export format: md, json, or html (default from preferences)")
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "Output file, or - for stdout")
}

func runExport(ctx context.Context, sessionID string) error {
	prefs, err := loadPreferences()
	if err != nil {
		return err
	}

	format := exportFormat
	if format == "" {
		format = prefs.Export.Format
	}
	exporter, err := export.NewExporter(format)
	if err != nil {
		return err
	}

	logger := clientLogger()
	client := api.New(resolveBackend(prefs), resolveToken(), logger)

	raw, err := client.ConversationDetails(ctx, sessionID)
	if err != nil {
		if errors.Is(err, api.ErrNotFound) {
			return fmt.Errorf("session not found: %s (run 'cui sessions' to list)", sessionID)
		}
		return fmt.Errorf("loading conversation: %w", err)
	}

	messages := convo.TransformHistory(raw)
	transcript := &export.Transcript{
		SessionID:  sessionID,
		WorkingDir: convo.WorkingDirOf(messages),
		Messages:   messages,
	}

	// The summary lookup only fills in display metadata; the transcript
	// stands without it.
	summaries, err := client.Conversations(ctx, 100)
	if err != nil {
		logger.Warn("failed to load conversation metadata", "error", err)
	}
	for _, s := range summaries {
		if s.SessionID != sessionID {
			continue
		}
		transcript.Title = s.SessionInfo.Title
		transcript.Model = s.SessionInfo.Model
		transcript.Status = s.Status
		transcript.UpdatedAt = s.UpdatedAt
		break
	}

	if exportOutput == "-" {
		return exporter.Export(transcript, os.Stdout)
	}

	outPath := exportOutput
	if outPath == "" {
		outPath = fmt.Sprintf("%s.%s", sessionID, exporter.Extension())
	}

	f, err := os.Create(outPath)
	if err != nil {
		return fmt.Errorf("creating output file: %w", err)
	}
	if err := exporter.Export(transcript, f); err != nil {
		f.Close()
		return fmt.Errorf("exporting transcript: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("closing output file: %w", err)
	}

	green := color.New(color.FgGreen)
	green.Print("  ✓ ")
	fmt.Printf("Exported %d message(s) to %s\n", len(transcript.Messages), outPath)
	return nil
}
