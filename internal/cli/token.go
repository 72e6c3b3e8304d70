// ABOUTME: Token commands: mints signed bearer tokens from the backend config.
// ABOUTME: --save writes the token where client commands pick it up automatically.

package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/hcnode/cui/internal/auth"
)

var (
	tokenSubject string
	tokenTTL     time.Duration
	tokenSave    bool
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Manage backend auth tokens",
}

var tokenNewCmd = &cobra.Command{
	Use:   "new",
	Short: "Mint a signed bearer token",
	Long: `Mint an HS256 bearer token signed with the backend's configured
jwt_secret. The backend config must exist and have auth.jwt_secret set.

With --save the token is also written to the config dir token file, where
chat and the other client commands read it automatically.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runTokenNew()
	},
}

func init() {
	rootCmd.AddCommand(tokenCmd)
	tokenCmd.AddCommand(tokenNewCmd)
	tokenNewCmd.Flags().StringVar(&tokenSubject, "subject", "", "Token subject (required)")
	tokenNewCmd.Flags().DurationVar(&tokenTTL, "ttl", 30*24*time.Hour, "Token lifetime")
	tokenNewCmd.Flags().BoolVar(&tokenSave, "save", false, "Write the token to the config dir token file")
	tokenNewCmd.MarkFlagRequired("subject")
}

func runTokenNew() error {
	cfg, configPath, err := loadServeConfig()
	if err != nil {
		return err
	}
	if cfg.Auth.JWTSecret == "" {
		if configPath == "" {
			configPath = getConfigPath()
		}
		return fmt.Errorf("auth.jwt_secret is not configured in %s", configPath)
	}

	verifier := auth.NewJWTVerifier([]byte(cfg.Auth.JWTSecret))
	token, err := verifier.Generate(tokenSubject, tokenTTL)
	if err != nil {
		return fmt.Errorf("generating token: %w", err)
	}

	expiresAt := time.Now().Add(tokenTTL).UTC()
	fmt.Println(token)

	green := color.New(color.FgGreen)
	gray := color.New(color.FgHiBlack)
	gray.Fprintf(os.Stderr, "subject: %s, expires: %s\n", tokenSubject, expiresAt.Format("Jan 02, 2006"))

	if tokenSave {
		tokenPath := filepath.Join(filepath.Dir(configPath), "token")
		if err := os.MkdirAll(filepath.Dir(tokenPath), 0755); err != nil {
			return fmt.Errorf("creating config directory: %w", err)
		}
		if err := os.WriteFile(tokenPath, []byte(token), 0600); err != nil {
			return fmt.Errorf("writing token file: %w", err)
		}
		green.Fprintf(os.Stderr, "  ✓ Saved token: %s\n", tokenPath)
	}

	return nil
}
