package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"syscall"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"

	"dutycal/internal/app"
	"dutycal/internal/config"
	appLog "dutycal/internal/log"
)

var version = "0.1.0"

type rootFlags struct {
	configPath string
	source     string
	output     string
	watch      bool
	debug      bool
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var flags rootFlags

	cmd := &cobra.Command{
		Use:           "dutycal",
		Short:         "Generate per-person ICS calendars from a duty roster table",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), flags)
		},
	}

	cmd.PersistentFlags().StringVar(&flags.configPath, "config", "config.yml", "path to config file")
	cmd.Flags().StringVar(&flags.source, "source", "", "table source URL or path (overrides config)")
	cmd.Flags().StringVar(&flags.output, "output", "", "output directory (overrides config)")
	cmd.Flags().BoolVar(&flags.watch, "watch", false, "keep running and regenerate on the configured cron schedule")
	cmd.PersistentFlags().BoolVar(&flags.debug, "debug", false, "enable debug logging")

	cmd.AddCommand(newInitCmd(&flags))

	return cmd
}

func run(ctx context.Context, flags rootFlags) error {
	if flags.debug {
		appLog.SetLevel(appLog.LevelDebug)
	}

	appLog.Info("dutycal starting", "version", version, "config", flags.configPath)

	cfg, err := config.Load(flags.configPath)
	if err != nil {
		appLog.Error("failed to load config", err, "config_path", flags.configPath)
		return err
	}

	// CLI flags override the config file when provided.
	if flags.source != "" {
		cfg.Schedule.Source = flags.source
	}
	if flags.output != "" {
		cfg.Output.Directory = flags.output
	}

	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if _, err := app.Run(ctx, cfg); err != nil {
		appLog.Error("generation failed", err)
		return err
	}

	if !flags.watch {
		return nil
	}

	return watch(ctx, cfg)
}

// watch re-runs generation on the configured cron schedule until the
// context is canceled by a signal.
func watch(ctx context.Context, cfg *config.Config) error {
	c := cron.New()
	_, err := c.AddFunc(cfg.Refresh, func() {
		if _, runErr := app.Run(ctx, cfg); runErr != nil {
			appLog.Error("scheduled generation failed", runErr)
		}
	})
	if err != nil {
		return fmt.Errorf("invalid refresh schedule %q: %w", cfg.Refresh, err)
	}

	appLog.Info("watch mode active", "refresh", cfg.Refresh)
	c.Start()

	<-ctx.Done()
	appLog.Info("signal received, shutting down")

	// Let an in-flight run finish before exiting.
	<-c.Stop().Done()
	return nil
}

func newInitCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Write a default config file to the --config path",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := flags.configPath

			if _, err := os.Stat(path); err == nil {
				return fmt.Errorf("refusing to overwrite existing config %s", path)
			} else if !errors.Is(err, fs.ErrNotExist) {
				return err
			}

			if err := config.Save(path, config.DefaultConfig()); err != nil {
				return err
			}
			appLog.Info("default config written; set schedule.source before running", "path", path)
			return nil
		},
	}
}
