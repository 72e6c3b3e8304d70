// ABOUTME: Serve command: runs the dev backend with the startup banner.
// ABOUTME: Config resolves from --config, CUI_CONFIG, then the XDG config dir.

package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/hcnode/cui/internal/config"
	"github.com/hcnode/cui/internal/devserver"
)

const banner = `
            _
  ___ _   _(_)
 / __| | | | |
| (__| |_| | |
 \___|\__,_|_|
`

var configFlag string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the local dev backend",
	Long: `Start the dev backend: a self-contained conversation server with
simulated agent turns, SSE streaming, and SQLite-backed history.

Without a config file it listens on 127.0.0.1:8700 with auth disabled
and keeps its database under the XDG data dir.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&configFlag, "config", "", "Path to the backend config file")
}

// getConfigPath returns the path to the backend config file.
// Priority: --config flag > CUI_CONFIG env var > XDG_CONFIG_HOME/cui/backend.yaml > ~/.config/cui/backend.yaml
func getConfigPath() string {
	if configFlag != "" {
		return configFlag
	}
	if envPath := os.Getenv("CUI_CONFIG"); envPath != "" {
		return envPath
	}

	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "backend.yaml" // fallback
		}
		configDir = filepath.Join(homeDir, ".config")
	}

	return filepath.Join(configDir, "cui", "backend.yaml")
}

// loadServeConfig loads the backend config. A missing file at the default
// location is not an error: the built-in defaults apply. A path named
// explicitly via --config or CUI_CONFIG must exist. The returned path is ""
// when defaults were used.
func loadServeConfig() (*config.Config, string, error) {
	configPath := getConfigPath()
	explicit := configFlag != "" || os.Getenv("CUI_CONFIG") != ""
	if !explicit {
		if _, err := os.Stat(configPath); os.IsNotExist(err) {
			return config.Default(), "", nil
		}
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, "", fmt.Errorf("loading config: %w", err)
	}
	return cfg, configPath, nil
}

func runServe(ctx context.Context) error {
	cyan := color.New(color.FgCyan)
	cyan.Print(banner)

	gray := color.New(color.FgHiBlack)
	gray.Printf("    version: %s\n\n", version)

	cfg, configPath, err := loadServeConfig()
	if err != nil {
		return err
	}

	logger := setupLogger(cfg.Logging)

	green := color.New(color.FgGreen)
	yellow := color.New(color.FgYellow)

	green.Print("    ▶ ")
	if configPath == "" {
		fmt.Println("Config:    (built-in defaults)")
	} else {
		fmt.Printf("Config:    %s\n", configPath)
	}
	green.Print("    ▶ ")
	fmt.Printf("HTTP:      %s\n", cfg.Server.HTTPAddr)
	green.Print("    ▶ ")
	fmt.Printf("Database:  %s\n", cfg.Database.Path)

	if cfg.Tailscale.Enabled {
		green.Print("    ▶ ")
		fmt.Printf("Tailscale: ")
		cyan.Print(cfg.Tailscale.Hostname)
		if cfg.Tailscale.Ephemeral {
			gray.Print(" (ephemeral)")
		}
		fmt.Println()
	}
	if cfg.Auth.JWTSecret == "" {
		yellow.Print("    ▶ ")
		fmt.Println("Auth:      disabled (set auth.jwt_secret to require tokens)")
	}

	fmt.Println()

	logger.Info("starting cui backend",
		"config", configPath,
		"http_addr", cfg.Server.HTTPAddr,
		"db_path", cfg.Database.Path,
	)

	srv, err := devserver.New(cfg, logger)
	if err != nil {
		return fmt.Errorf("creating backend: %w", err)
	}

	return srv.Run(ctx)
}
