/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"context"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"railguard/internal/bootstrap/logging"
	"railguard/internal/errs"
)

// agentCmd represents the agent command
var agentCmd = &cobra.Command{
	Use:   "agent",
	Short: "Run the inspection agent standalone, watching the intake directory",
	RunE: withApp(func(cmd *cobra.Command, deps appDeps) error {
		ctx := logging.WithAttrs(cmd.Context(), slog.String("command", cmd.CommandPath()))
		ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if err := deps.Agent.Start(ctx); err != nil {
			return errs.Wrap(err, "start inspection agent")
		}
		logging.Info(ctx, "inspection agent running",
			slog.String("watch_dir", deps.App.Config.Agent.WatchDir))

		<-ctx.Done()

		stopCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := deps.Agent.Stop(stopCtx); err != nil {
			return errs.Wrap(err, "stop inspection agent")
		}

		status := deps.Agent.Status()
		logging.Info(ctx, "inspection agent stopped",
			slog.Uint64("processed", status.Processed),
			slog.Uint64("submitted", status.Submitted))
		return nil
	}),
}

func init() {
	rootCmd.AddCommand(agentCmd)
}
