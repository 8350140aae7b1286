package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/lunarisdb/lunaris/internal/config"
	"github.com/lunarisdb/lunaris/internal/logger"
	"github.com/lunarisdb/lunaris/internal/server"
)

func main() {
	root := &cobra.Command{
		Use:          "lunaris [port]",
		Short:        "In-memory key-value store speaking the RESP protocol",
		Args:         cobra.MaximumNArgs(1),
		RunE:         run,
		SilenceUsage: true,
	}
	root.Flags().String("config", ".", "directory containing config.yaml")

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	configDir, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(configDir)
	if err != nil {
		return err
	}

	// The positional port wins over config file and environment.
	if len(args) == 1 {
		port, err := strconv.Atoi(args[0])
		if err != nil || port < 0 || port > 65535 {
			return fmt.Errorf("invalid port %q", args[0])
		}
		cfg.Server.Port = port
	}

	log := logger.New(cfg.Log.Level, cfg.Log.Format)
	defer log.Sync() //nolint:errcheck

	// Writes to a closed socket must surface as EPIPE, not kill the process.
	signal.Ignore(syscall.SIGPIPE)

	log.Info("Lunaris starting",
		zap.String("host", cfg.Server.Host),
		zap.Int("port", cfg.Server.Port),
		zap.Bool("aof", cfg.AOF.Enabled),
	)

	srv, err := server.New(cfg, log)
	if err != nil {
		log.Error("startup failed", zap.Error(err))
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := srv.Run(ctx); err != nil {
		log.Error("serve failed", zap.Error(err))
		return err
	}

	log.Info("Lunaris stopped")
	return nil
}
