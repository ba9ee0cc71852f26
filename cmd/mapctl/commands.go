package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"citymap-backend-go/internal/config"
	"citymap-backend-go/internal/db"
	"citymap-backend-go/internal/migrations"
	"citymap-backend-go/internal/services"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func rootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "mapctl",
		Short:        "Operator tooling for the citymap backend",
		SilenceUsage: true,
	}
	cmd.AddCommand(migrateCmd(), purgeCmd(), tokenCmd(), operationsCmd())
	return cmd
}

func migrateCmd() *cobra.Command {
	var dsn string
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			if dsn == "" {
				return fmt.Errorf("database url is required (--database-url or DATABASE_URL)")
			}
			database, err := db.Open(cmd.Context(), dsn)
			if err != nil {
				return fmt.Errorf("db: %w", err)
			}
			defer database.Close()
			applied, err := migrations.Apply(database, migrations.Source())
			if err != nil {
				return err
			}
			if len(applied) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "schema is up to date")
				return nil
			}
			for _, name := range applied {
				fmt.Fprintf(cmd.OutOrStdout(), "applied %s\n", name)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&dsn, "database-url", os.Getenv("DATABASE_URL"), "Postgres connection string")
	return cmd
}

func purgeCmd() *cobra.Command {
	var (
		dsn     string
		timeout time.Duration
	)
	cmd := &cobra.Command{
		Use:   "purge",
		Short: "Run one maintenance sweep (expired reports, stale submissions, old deletions)",
		RunE: func(cmd *cobra.Command, args []string) error {
			if dsn == "" {
				return fmt.Errorf("database url is required (--database-url or DATABASE_URL)")
			}
			cfg := config.Load()
			policy, err := cfg.Policy()
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()
			database, err := db.Open(ctx, dsn)
			if err != nil {
				return fmt.Errorf("db: %w", err)
			}
			defer database.Close()

			logger, err := zap.NewProduction()
			if err != nil {
				return err
			}
			defer logger.Sync()

			engine := services.NewEngine(db.NewStore(database), services.SystemClock{}, policy, logger, nil)
			result, err := engine.Dispatch(ctx, services.SystemActor(), services.RunMaintenanceRequest{})
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), result)
		},
	}
	cmd.Flags().StringVar(&dsn, "database-url", os.Getenv("DATABASE_URL"), "Postgres connection string")
	cmd.Flags().DurationVar(&timeout, "timeout", 5*time.Minute, "Give up after this long")
	return cmd
}

func tokenCmd() *cobra.Command {
	var (
		userID string
		roles  string
		ttl    time.Duration
	)
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint an access token for local development",
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(userID) == "" {
				return fmt.Errorf("--user is required")
			}
			tokens := config.Load().Tokens()
			if ttl > 0 {
				tokens.AccessTTL = ttl
			}
			token, exp, err := tokens.CreateAccessToken(userID, splitRoles(roles))
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), map[string]interface{}{
				"accessToken": token,
				"expiresAt":   time.Unix(exp, 0).UTC(),
				"role":        services.RoleFromClaims(splitRoles(roles)),
			})
		},
	}
	cmd.Flags().StringVar(&userID, "user", "", "Subject user id")
	cmd.Flags().StringVar(&roles, "roles", "user", "Comma separated roles (admin, moderator, user)")
	cmd.Flags().DurationVar(&ttl, "ttl", 0, "Token lifetime (defaults to ACCESS_TTL_SECONDS)")
	return cmd
}

func operationsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "operations",
		Short: "List every engine operation",
		RunE: func(cmd *cobra.Command, args []string) error {
			engine := services.NewEngine(nil, nil, services.DefaultPolicy(), nil, nil)
			ops := []string{}
			for _, op := range engine.Operations() {
				ops = append(ops, string(op))
			}
			sort.Strings(ops)
			for _, op := range ops {
				fmt.Fprintln(cmd.OutOrStdout(), op)
			}
			return nil
		},
	}
}

func splitRoles(raw string) []string {
	roles := []string{}
	for _, part := range strings.Split(raw, ",") {
		if value := strings.TrimSpace(part); value != "" {
			roles = append(roles, value)
		}
	}
	return roles
}

func writeJSON(w io.Writer, value interface{}) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(value)
}
