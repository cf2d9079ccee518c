// Command pricelistctl agrupa tareas administrativas de la API de listas de precios.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Lelo88/pricelist-api-golang/internal/auth"
	"github.com/Lelo88/pricelist-api-golang/internal/db"
)

const migrateTimeout = 30 * time.Second

// migrationTarget es la conexión sobre la que se aplica el schema.
type migrationTarget interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Close()
}

type ctlDeps struct {
	hashPassword func(password string) (string, error)
	connect      func(ctx context.Context, url string) (migrationTarget, error)
	stdout       io.Writer
	stderr       io.Writer
}

func defaultDeps() ctlDeps {
	return ctlDeps{
		hashPassword: auth.HashPassword,
		connect: func(ctx context.Context, url string) (migrationTarget, error) {
			pool, err := db.NewPool(ctx, url)
			if err != nil {
				return nil, err
			}
			return pool, nil
		},
		stdout: os.Stdout,
		stderr: os.Stderr,
	}
}

func main() {
	if err := newRootCommand(defaultDeps()).Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand(deps ctlDeps) *cobra.Command {
	settings := viper.New()
	settings.SetEnvPrefix("PRICELIST")
	settings.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	settings.AutomaticEnv()

	var logger *slog.Logger
	root := &cobra.Command{
		Use:          "pricelistctl",
		Short:        "Tareas administrativas de la API de listas de precios",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			level := slog.LevelInfo
			if err := level.UnmarshalText([]byte(settings.GetString("log-level"))); err != nil {
				level = slog.LevelInfo
			}
			logger = slog.New(slog.NewTextHandler(deps.stderr, &slog.HandlerOptions{Level: level}))
			return nil
		},
	}
	root.SetOut(deps.stdout)
	root.SetErr(deps.stderr)
	root.PersistentFlags().String("log-level", "info", "nivel de log (debug|info|warn|error)")
	_ = settings.BindPFlag("log-level", root.PersistentFlags().Lookup("log-level"))

	hashCmd := &cobra.Command{
		Use:   "hash-password <password>",
		Short: "Genera el hash bcrypt de una contraseña para AUTH_USERS",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			hash, err := deps.hashPassword(args[0])
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), hash)
			return err
		},
	}

	migrateCmd := &cobra.Command{
		Use:   "migrate",
		Short: "Aplica el schema embebido (idempotente)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			url := settings.GetString("database-url")
			if url == "" {
				return errors.New("database url is required (--database-url or PRICELIST_DATABASE_URL)")
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), migrateTimeout)
			defer cancel()

			target, err := deps.connect(ctx, url)
			if err != nil {
				return fmt.Errorf("connect: %w", err)
			}
			defer target.Close()

			start := time.Now()
			if err := db.Migrate(ctx, target); err != nil {
				logger.Error("migrate failed", slog.Any("error", err))
				return fmt.Errorf("migrate: %w", err)
			}
			logger.Info("schema applied", slog.Int64("duration_ms", time.Since(start).Milliseconds()))
			return nil
		},
	}
	migrateCmd.Flags().String("database-url", "", "URL de Postgres (o PRICELIST_DATABASE_URL)")
	_ = settings.BindPFlag("database-url", migrateCmd.Flags().Lookup("database-url"))

	root.AddCommand(hashCmd, migrateCmd)
	return root
}
