package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/viant/afs/file"
	"github.com/viant/afs/url"
	"github.com/viant/procsched"
	"github.com/viant/procsched/service/procdump"
	"go.uber.org/zap"
)

func newRunCmd(v *viper.Viper, cfgFile *string) *cobra.Command {
	var timeout time.Duration
	var format string
	cmd := &cobra.Command{
		Use:   "run [workload-url]",
		Short: "Run a YAML workload and print the final process listing",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(v, *cfgFile)
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			outputFormat, err := procdump.ParseFormat(format)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runWorkload(ctx, cmd, cfg, args[0], timeout, outputFormat)
		},
	}
	cmd.Flags().DurationVar(&timeout, "timeout", time.Minute, "maximum time to wait for the workload to drain")
	cmd.Flags().StringVar(&format, "format", "text", "listing format: text, json or yaml")
	return cmd
}

func runWorkload(ctx context.Context, cmd *cobra.Command, cfg *procsched.Config, URL string, timeout time.Duration, format procdump.Format) error {
	workload, err := procsched.LoadWorkload(ctx, URL)
	if err != nil {
		return err
	}
	srv, err := procsched.New(procsched.WithConfig(cfg))
	if err != nil {
		return err
	}
	logger := srv.Logger()
	rt := srv.Runtime()
	if err = rt.Start(ctx); err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := rt.Shutdown(shutdownCtx); err != nil {
			logger.Error("shutdown", zap.Error(err))
		}
	}()

	if _, err = rt.Run(ctx, workload); err != nil {
		return err
	}
	waitErr := rt.WaitIdle(ctx, timeout)
	dump, err := rt.Snapshot()
	if err != nil {
		return err
	}
	data, err := procdump.Encode(format, dump)
	if err != nil {
		return err
	}
	if _, err = cmd.OutOrStdout().Write(data); err != nil {
		return err
	}
	if cfg.Dump.URL != "" {
		location, err := rt.Dump(ctx)
		if err != nil {
			return err
		}
		logger.Info("dump saved", zap.String("url", location))
	}
	stats := rt.Machine().Stats()
	logger.Info("workload finished",
		zap.String("workload", workload.Name),
		zap.Uint64("ticks", dump.Tick),
		zap.Int("switches", stats.Switches),
		zap.Int("promotions", stats.Promotions),
		zap.Int("crossYields", stats.CrossYields))
	return waitErr
}

func newPsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ps [dump-url]",
		Short: "Print a saved process listing",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			location := url.Normalize(args[0], file.Scheme)
			parent, _ := url.Split(location, file.Scheme)
			dumps, err := procdump.New(ctx, parent)
			if err != nil {
				return err
			}
			dump, err := dumps.Load(ctx, location)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "boot %s at tick %d\n", dump.BootID, dump.Tick)
			return procdump.Render(cmd.OutOrStdout(), dump.Processes)
		},
	}
}
