// Command admintoken mints a bearer token for POST <prefix>/rules when the
// server runs with RULES_JWT_SECRET set.
package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"quote-assistant-backend/internal/config"
	"quote-assistant-backend/internal/middleware"
)

func main() {
	cfg := config.Load()
	if err := newRootCommand(os.Stdout, cfg.RulesJWTSecret).Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand(out io.Writer, secret string) *cobra.Command {
	var (
		subject string
		ttl     time.Duration
	)

	cmd := &cobra.Command{
		Use:   "admintoken",
		Short: "Mint an admin token for updating the AI rules",
		Long: `Mint an HS256 admin token signed with RULES_JWT_SECRET (read from the
environment or .env). Send it as "Authorization: Bearer <token>".`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if secret == "" {
				return errors.New("RULES_JWT_SECRET is not set")
			}
			if subject == "" {
				return errors.New("--subject is required")
			}
			if ttl <= 0 {
				return errors.New("--ttl must be positive")
			}

			token, err := middleware.NewJWTAuth(secret).GenerateAdminToken(subject, ttl)
			if err != nil {
				return fmt.Errorf("sign token: %w", err)
			}
			fmt.Fprintln(out, token)
			return nil
		},
	}

	cmd.Flags().StringVarP(&subject, "subject", "s", "", "who the token is issued to (logged on rules updates)")
	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "token lifetime")

	return cmd
}
