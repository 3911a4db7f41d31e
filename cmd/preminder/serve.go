package main

import (
	"context"
	"errors"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/shanehull/preminder/internal/monitor"
	"github.com/shanehull/preminder/internal/schedule"
	"github.com/shanehull/preminder/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP server and the daily monitoring cycle",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer cancel()

		a, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		at, _ := schedule.ParseClock(cfg.Schedule.DailyAt)
		loc, _ := cfg.Location()

		daily := schedule.NewDaily(at, loc, func(ctx context.Context) {
			report, err := a.controller.RunCycle(ctx)
			switch {
			case errors.Is(err, monitor.ErrCycleInProgress):
				logger.Warn("Skipping scheduled cycle, previous one still running")
			case err != nil:
				logger.Error("Scheduled cycle failed", zap.Error(err))
			default:
				logger.Info("Scheduled cycle done",
					zap.String("run_id", report.RunID),
					zap.Int("events", len(report.Events)),
					zap.Bool("interrupted", report.Interrupted),
				)
			}
		}, logger)

		srv := server.New(server.Config{
			Addr:            cfg.Server.Addr,
			ReadTimeout:     cfg.Server.ReadTimeout,
			WriteTimeout:    cfg.Server.WriteTimeout,
			ShutdownTimeout: cfg.Server.ShutdownTimeout,
		}, a.controller, logger)

		logger.Info("preminder starting",
			zap.String("addr", cfg.Server.Addr),
			zap.Stringer("daily_at", at),
			zap.String("timezone", loc.String()),
		)

		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error { return srv.Start(gctx) })
		g.Go(func() error {
			if err := daily.Run(gctx); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		})

		err = g.Wait()
		logger.Info("preminder stopped")
		return err
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
