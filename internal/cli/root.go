// ABOUTME: Root cobra command with the flags shared by every client command.
// ABOUTME: Backend URL and token resolve from flags first, then preferences and env.

package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/hcnode/cui/internal/api"
	"github.com/hcnode/cui/internal/config"
)

// version is set by goreleaser at build time.
var version = "dev"

var (
	backendFlag string
	tokenFlag   string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "cui",
	Short: "Chat with agent conversations from the terminal",
	Long: `cui is a terminal client for agent conversation backends.

It opens interactive chat sessions with live streamed output, lists and
exports past conversations, and ships a self-contained dev backend so the
whole flow runs locally without external services.

Quick start:
  cui serve                  # start the local dev backend
  cui chat                   # open a new conversation
  cui sessions               # list recent conversations
  cui export <session-id>    # write a transcript to disk

The backend URL comes from --backend, then ~/.config/cui/preferences.toml,
then the default http://127.0.0.1:8700. Bearer tokens come from --token,
the CUI_TOKEN env var, or ~/.config/cui/token.`,
	Version: version,

	// Execute prints the error itself; without these cobra would print it
	// again along with the full usage text.
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the command tree. ctx should carry signal cancellation so
// Ctrl+C interrupts long-running commands cleanly.
func Execute(ctx context.Context) {
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&backendFlag, "backend", "", "Backend URL (overrides preferences)")
	rootCmd.PersistentFlags().StringVar(&tokenFlag, "token", "", "Bearer token (overrides CUI_TOKEN and the token file)")
	rootCmd.SetVersionTemplate(`{{printf "%s\n" .Version}}`)
}

// loadPreferences reads the preferences file. A missing file yields the
// defaults; an unreadable home directory does too.
func loadPreferences() (*config.Preferences, error) {
	path, err := config.PreferencesPath()
	if err != nil {
		return config.DefaultPreferences(), nil
	}
	return config.LoadPreferences(path)
}

// resolveBackend returns the backend URL for client commands.
func resolveBackend(prefs *config.Preferences) string {
	if backendFlag != "" {
		return backendFlag
	}
	return prefs.Backend.URL
}

// resolveToken returns the bearer token for client commands, "" when none
// is configured.
func resolveToken() string {
	if tokenFlag != "" {
		return tokenFlag
	}
	return api.Token()
}
