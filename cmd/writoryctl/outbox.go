package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/digkill/writory/internal/config"
	"github.com/digkill/writory/internal/outbox"
	"github.com/digkill/writory/internal/repository"
)

func outboxCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "outbox",
		Short: "Inspect and replay the spreadsheet mirror queue",
	}
	cmd.AddCommand(outboxReplayCmd(), outboxStatusCmd())
	return cmd
}

func outboxReplayCmd() *cobra.Command {
	var (
		resetAttempts bool
		batch         int
	)
	cmd := &cobra.Command{
		Use:   "replay",
		Short: "Queue every undelivered entry again",
		RunE: func(cmd *cobra.Command, _ []string) error {
			e, err := openEnv()
			if err != nil {
				return err
			}
			defer e.Close()

			ctx := cmd.Context()
			rdb, err := outbox.Connect(ctx, e.cfg.RedisAddr, e.cfg.RedisPassword, e.cfg.RedisDB)
			if err != nil {
				return err
			}
			defer rdb.Close()

			store := repository.NewOutboxRepository(e.db)
			if resetAttempts {
				n, err := store.ResetAttempts(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "reset attempts on %d entries\n", n)
			}

			relay := outbox.NewRelay(store, nil, outbox.NewQueue(rdb, e.cfg.OutboxQueue), e.log, outbox.Options{
				MaxAttempts:   e.cfg.OutboxMaxAttempts,
				SweepInterval: e.cfg.OutboxSweepInterval,
				SweepBatch:    batch,
			})
			n, err := relay.Replay(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "queued %d entries\n", n)
			return nil
		},
	}
	cmd.Flags().IntVar(&batch, "batch", 5000, "maximum entries to queue in one run")
	cmd.Flags().BoolVar(&resetAttempts, "reset-attempts", true, "give exhausted entries a fresh attempt budget first")
	return cmd
}

func outboxStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show how many ids wait in the queue",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			rdb, err := outbox.Connect(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
			if err != nil {
				return err
			}
			defer rdb.Close()

			n, err := outbox.NewQueue(rdb, cfg.OutboxQueue).Len(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %d queued\n", cfg.OutboxQueue, n)
			return nil
		},
	}
}
