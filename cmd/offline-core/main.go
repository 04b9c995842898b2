package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/elgendymo/Sakinah-sub005/internal/config"
	"github.com/elgendymo/Sakinah-sub005/internal/runtime"
	"github.com/elgendymo/Sakinah-sub005/internal/utils"
)

var (
	configName = ""
	Version    = "0.1.0"
)

func main() {
	if err := rootCommand().Execute(); err != nil {
		log.Fatalf("offline-core failed: %v", err)
	}
}

func rootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "offline-core",
		Short: "Connection monitor and conflict resolver core for the Sakinah client",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run()
		},
	}
	rootCmd.PersistentFlags().StringVar(&configName, "config", "config.yaml", "config file to be used")

	return rootCmd
}

func run() error {
	cfg := config.NewConfig(Version)
	err := cfg.Load(configName, "./")
	if err != nil {
		return err
	}

	if cfg.Monitor.ProbeKind == config.ProbeICMP {
		if err = utils.EnsureNetRaw(); err != nil {
			return err
		}
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()
	defer cfg.Logger.Sync()

	core := runtime.New(cfg)
	if err = core.Start(ctx); err != nil {
		cfg.Logger.Error("offline core couldn't be started", zap.Error(err))
		return err
	}

	<-ctx.Done()
	return core.Stop()
}
