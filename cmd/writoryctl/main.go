package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/digkill/writory/internal/config"
	"github.com/digkill/writory/internal/database"
	"github.com/digkill/writory/pkg/logger"
)

var Version = "dev"

func main() {
	rootCmd := &cobra.Command{
		Use:           "writoryctl",
		Short:         "Operator tools for the Writory submission backend",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(importScoresCmd())
	rootCmd.AddCommand(exportScoresCmd())
	rootCmd.AddCommand(outboxCmd())
	rootCmd.AddCommand(couponCmd())
	rootCmd.AddCommand(hashPasswordCmd())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// env is what every database-backed command starts from.
type env struct {
	cfg config.Config
	db  *sql.DB
	log *slog.Logger
}

func openEnv() (*env, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if err := cfg.ValidateDatabase(); err != nil {
		return nil, err
	}
	db, err := database.Connect(cfg)
	if err != nil {
		return nil, err
	}
	return &env{cfg: cfg, db: db, log: logger.New(cfg.LogLevel)}, nil
}

func (e *env) Close() error {
	return e.db.Close()
}
