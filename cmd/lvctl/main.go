package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/livingvectors/lv-api/internal/cache"
	"github.com/livingvectors/lv-api/internal/config"
	"github.com/livingvectors/lv-api/internal/database"
	"github.com/livingvectors/lv-api/internal/logging"
	"github.com/livingvectors/lv-api/internal/services"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var commandTimeout time.Duration

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "lvctl",
	Short: "Operator tooling for the Living Vectors API",
	Long: `lvctl runs maintenance tasks against the Living Vectors database.

It reads the same environment (and .env file) as the API server.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().DurationVar(&commandTimeout, "timeout", time.Minute, "Deadline for the whole command")

	userCmd.AddCommand(userShowCmd)
	userCmd.AddCommand(userRevokeCmd)

	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(seedCmd)
	rootCmd.AddCommand(cleanupCmd)
	rootCmd.AddCommand(userCmd)
}

type env struct {
	cfg    *config.Config
	db     *database.DB
	logger *zap.Logger
}

// withEnv loads config, opens the pool and runs fn under the command deadline.
func withEnv(cmd *cobra.Command, fn func(ctx context.Context, e *env) error) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger, err := logging.New(cfg.Env)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, cancel := context.WithTimeout(cmd.Context(), commandTimeout)
	defer cancel()

	db, err := database.New(ctx, cfg.DatabaseURL, database.NewAuditTracer(logger))
	if err != nil {
		return err
	}
	defer db.Close()

	return fn(ctx, &env{cfg: cfg, db: db, logger: logger})
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply database migrations",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withEnv(cmd, func(ctx context.Context, e *env) error {
			if err := e.db.Migrate(ctx); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "migrations applied")
			return nil
		})
	},
}

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Insert the demo users (development and test only)",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withEnv(cmd, func(ctx context.Context, e *env) error {
			if !seedAllowed(e.cfg.Env) {
				return fmt.Errorf("refusing to seed in %q environment", e.cfg.Env)
			}

			created, err := services.NewUserService(e.db).SeedDemoUsers(ctx)
			if err != nil {
				return err
			}
			if len(created) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "demo users already present")
				return nil
			}
			for _, email := range created {
				fmt.Fprintf(cmd.OutOrStdout(), "created %s\n", email)
			}
			return nil
		})
	},
}

func seedAllowed(env string) bool {
	return env == "development" || env == "test"
}

var cleanupCmd = &cobra.Command{
	Use:   "cleanup-sessions",
	Short: "Delete expired sessions and verification tokens",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withEnv(cmd, func(ctx context.Context, e *env) error {
			jwtService := services.NewJWTService(e.cfg.SessionSecret, e.cfg.SessionMaxAge)
			sessions, err := services.NewSessionService(e.db, jwtService, e.logger).CleanupExpired(ctx)
			if err != nil {
				return err
			}
			tokens, err := services.NewVerificationService(e.db).CleanupExpired(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "removed %d sessions, %d verification tokens\n", sessions, tokens)
			return nil
		})
	},
}

var userCmd = &cobra.Command{
	Use:   "user",
	Short: "Inspect and manage users",
}

var userShowCmd = &cobra.Command{
	Use:   "show <email>",
	Short: "Print a user and its linked provider accounts",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withEnv(cmd, func(ctx context.Context, e *env) error {
			users := services.NewUserService(e.db)

			user, err := users.GetByEmail(ctx, args[0])
			if errors.Is(err, services.ErrUserNotFound) {
				return fmt.Errorf("no user found with email: %s", args[0])
			}
			if err != nil {
				return err
			}

			accounts, err := users.ListAccounts(ctx, user.ID)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "id:       %s\n", user.ID)
			fmt.Fprintf(out, "name:     %s\n", orDash(user.Name))
			fmt.Fprintf(out, "email:    %s\n", orDash(user.Email))
			fmt.Fprintf(out, "image:    %s\n", orDash(user.Image))
			fmt.Fprintf(out, "created:  %s\n\n", user.CreatedAt.Format(time.RFC3339))

			if len(accounts) == 0 {
				fmt.Fprintln(out, "no linked accounts")
				return nil
			}

			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "PROVIDER\tACCOUNT ID\tEMAIL\tLINKED")
			for _, a := range accounts {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", a.Provider, a.ProviderAccountID, orDash(a.Email), a.CreatedAt.Format(time.RFC3339))
			}
			return w.Flush()
		})
	},
}

var userRevokeCmd = &cobra.Command{
	Use:   "revoke-sessions <email>",
	Short: "Sign a user out everywhere",
	Long: `revoke-sessions deletes every stored session for the user.

When REDIS_URL is set the cached session ids are evicted as well, so the
revoked tokens stop resolving immediately instead of after the cache TTL.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withEnv(cmd, func(ctx context.Context, e *env) error {
			user, err := services.NewUserService(e.db).GetByEmail(ctx, args[0])
			if errors.Is(err, services.ErrUserNotFound) {
				return fmt.Errorf("no user found with email: %s", args[0])
			}
			if err != nil {
				return err
			}

			jwtService := services.NewJWTService(e.cfg.SessionSecret, e.cfg.SessionMaxAge)
			sessions := services.NewSessionService(e.db, jwtService, e.logger)
			if e.cfg.RedisURL != "" {
				sessionCache, err := cache.NewSessionCache(ctx, e.cfg.RedisURL)
				if err != nil {
					return fmt.Errorf("session cache unreachable, cached sessions would stay valid: %w", err)
				}
				defer func() { _ = sessionCache.Close() }()
				sessions.WithCache(sessionCache, time.Minute)
			}

			revoked, err := sessions.RevokeAllForUser(ctx, user.ID)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "revoked %d sessions for %s\n", revoked, args[0])
			return nil
		})
	},
}

func orDash(s *string) string {
	if s == nil || *s == "" {
		return "-"
	}
	return *s
}
