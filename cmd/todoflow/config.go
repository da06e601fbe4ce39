package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func configCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Validate and print the resolved configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := setup()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, "Configuration loaded")
			fmt.Fprintln(out, "====================")
			fmt.Fprintf(out, "Server:\n")
			fmt.Fprintf(out, "  Address: %s\n", cfg.Server.Address())
			fmt.Fprintf(out, "  Route prefix: %s\n", cfg.Server.RoutePrefix)
			fmt.Fprintf(out, "  CORS origins: %v\n", cfg.Server.CORSOrigins)
			fmt.Fprintf(out, "  Wait timeout: %v\n", cfg.Server.WaitTimeout)

			fmt.Fprintf(out, "\nDatabase:\n")
			fmt.Fprintf(out, "  Driver: %s\n", cfg.Database.Driver)
			fmt.Fprintf(out, "  URL: %s\n", maskSecret(cfg.Database.URL))
			fmt.Fprintf(out, "  Poll interval: %v\n", cfg.Database.PollInterval)
			fmt.Fprintf(out, "  Auto migrate: %v\n", cfg.Database.AutoMigrate)

			fmt.Fprintf(out, "\nWorker:\n")
			fmt.Fprintf(out, "  Pool size: %d\n", cfg.Worker.PoolSize)
			fmt.Fprintf(out, "  Queue size: %d\n", cfg.Worker.QueueSize)
			fmt.Fprintf(out, "  Job timeout: %v\n", cfg.Worker.JobTimeout)

			fmt.Fprintf(out, "\nReminder:\n")
			fmt.Fprintf(out, "  Webhook: %s\n", cfg.Reminder.WebhookURL)
			fmt.Fprintf(out, "  Webhook secret: %s\n", maskSecret(cfg.Reminder.WebhookSecret))
			fmt.Fprintf(out, "  Max attempts: %d\n", cfg.Reminder.WebhookMaxAttempts)

			fmt.Fprintf(out, "\nAuth:\n")
			fmt.Fprintf(out, "  JWT secret: %s\n", maskSecret(cfg.Auth.JWTSecret))
			fmt.Fprintf(out, "  Token TTL: %v\n", cfg.Auth.TokenTTL)

			fmt.Fprintf(out, "\nSessions:\n")
			fmt.Fprintf(out, "  Restart backoff: %v\n", cfg.Session.RestartBackoff)
			fmt.Fprintf(out, "  Idle timeout: %v\n", cfg.Session.IdleTimeout)

			fmt.Fprintf(out, "\nLogging:\n")
			fmt.Fprintf(out, "  Level: %s\n", cfg.Log.Level)
			fmt.Fprintf(out, "  Format: %s\n", cfg.Log.Format)
			return nil
		},
	}
}

func maskSecret(secret string) string {
	if secret == "" {
		return ""
	}
	if len(secret) <= 8 {
		return "***"
	}
	return secret[:4] + "***" + secret[len(secret)-4:]
}
