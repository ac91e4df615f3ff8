package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"contactless-ordering/internal/app"
	"contactless-ordering/internal/config"
	"contactless-ordering/internal/console"
	"contactless-ordering/internal/logger"
)

func main() {
	opts := config.NewOptions()
	opts.AddFlags(pflag.CommandLine)
	pflag.Parse()

	if err := config.LoadEnvFile(opts.EnvFile); err != nil {
		fmt.Fprintf(os.Stderr, "Error loading env file: %v\n", err)
		os.Exit(1)
	}

	cfg, err := config.Load(opts.ConfigFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
	opts.Apply(cfg)

	log := logger.NewLogger(cfg.Service.Name, cfg.Log.Level)
	defer log.Sync()
	requestID := logger.GenerateRequestID()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	system, err := app.New(ctx, cfg, log)
	if err != nil {
		log.Error("startup_failed", requestID, "Failed to start ordering system", err)
		os.Exit(1)
	}

	if opts.Console {
		// console output shares stdout with the JSON logs
		term := console.New(system.Service(), os.Stdout)
		system.Notifier().Subscribe(term.Notify)
		go func() {
			if err := term.Run(ctx, os.Stdin); err != nil {
				log.Error("console_failed", requestID, "Console input failed", err)
			}
			cancel()
		}()
	}

	log.Info("service_started", requestID, "Starting ordering system",
		zap.String("data_dir", cfg.Storage.DataDir),
		zap.Bool("console", opts.Console),
		zap.Bool("ops", cfg.Ops.Enabled))

	if err := system.Run(ctx); err != nil {
		log.Error("service_failed", requestID, "Ordering system stopped with errors", err)
		os.Exit(1)
	}
	log.Info("service_stopped", requestID, "Service stopped gracefully")
}
