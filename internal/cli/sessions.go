// ABOUTME: Sessions command: tabular listing of recent conversations.
// ABOUTME: Ongoing sessions are highlighted; titles are truncated to fit.

package cli

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/hcnode/cui/internal/api"
)

var sessionsLimit int

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "List recent conversations",
	RunE: func(cmd *cobra.Command, args []string) error {
		prefs, err := loadPreferences()
		if err != nil {
			return err
		}

		client := api.New(resolveBackend(prefs), resolveToken(), clientLogger())
		summaries, err := client.Conversations(cmd.Context(), sessionsLimit)
		if err != nil {
			return fmt.Errorf("listing conversations: %w", err)
		}

		if len(summaries) == 0 {
			fmt.Println("No conversations yet. Start one with: cui chat")
			return nil
		}

		t := table.NewWriter()
		t.SetOutputMirror(os.Stdout)
		t.AppendHeader(table.Row{"SESSION", "STATUS", "TITLE", "MSGS", "UPDATED"})
		for _, s := range summaries {
			title := s.SessionInfo.Title
			if title == "" {
				title = "(untitled)"
			}
			status := s.Status
			if s.Status == api.StatusOngoing {
				status = color.YellowString(s.Status)
			}
			t.AppendRow(table.Row{
				s.SessionID,
				status,
				truncate(title, 48),
				s.MessageCount,
				s.UpdatedAt.Local().Format("2006-01-02 15:04"),
			})
		}
		t.SetStyle(table.StyleLight)
		t.Render()
		return nil
	},
}

func init() {
	rootCmd.AddCommand(sessionsCmd)
	sessionsCmd.Flags().IntVar(&sessionsLimit, "limit", 20, "Maximum number of conversations to list")
}

// truncate shortens a string to maxLen, adding "..." if truncated.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
