package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"geminid/internal/common/fsutil"
	"geminid/internal/config"
	"geminid/internal/httpapi"
	"geminid/internal/manager"
	"geminid/internal/registry"
)

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func buildRootCmd() *cobra.Command {
	var (
		addr          string
		configPath    string
		command       string
		maxConcurrent int
		maxQueueDepth int
		timeoutSec    int64
		defaultModel  string
		models        []string
		logLevel      string
	)

	root := &cobra.Command{
		Use:           "geminid",
		Short:         "HTTP front-end for a local generation CLI tool",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Config{}
			if configPath != "" {
				loaded, err := config.Load(configPath)
				if err != nil {
					return err
				}
				cfg = loaded
			}
			// Flags override file values when set explicitly.
			if cmd.Flags().Changed("addr") || cfg.Addr == "" {
				cfg.Addr = addr
			}
			if cmd.Flags().Changed("command") || cfg.Command == "" {
				cfg.Command = command
			}
			if cmd.Flags().Changed("max-concurrent") || cfg.MaxConcurrent == 0 {
				cfg.MaxConcurrent = maxConcurrent
			}
			if cmd.Flags().Changed("max-queue-depth") {
				cfg.MaxQueueDepth = maxQueueDepth
			}
			if cmd.Flags().Changed("timeout-seconds") || cfg.TimeoutSeconds == 0 {
				cfg.TimeoutSeconds = timeoutSec
			}
			if cmd.Flags().Changed("default-model") || cfg.DefaultModel == "" {
				cfg.DefaultModel = defaultModel
			}
			if cmd.Flags().Changed("models") || len(cfg.Models) == 0 {
				cfg.Models = models
			}
			if cmd.Flags().Changed("log-level") || cfg.LogLevel == "" {
				cfg.LogLevel = logLevel
			}
			return run(cfg)
		},
	}

	f := root.Flags()
	f.StringVar(&addr, "addr", envOr("GEMINID_ADDR", ":8080"), "HTTP listen address, e.g. :8080")
	f.StringVar(&configPath, "config", envOr("GEMINID_CONFIG", ""), "Path to config file (.yaml/.json/.toml)")
	f.StringVar(&command, "command", envOr("GEMINID_COMMAND", "gemini"), "Generation CLI command to spawn")
	f.IntVar(&maxConcurrent, "max-concurrent", 2, "Maximum concurrent tool processes")
	f.IntVar(&maxQueueDepth, "max-queue-depth", 0, "Maximum queued requests before 429 (0=unlimited)")
	f.Int64Var(&timeoutSec, "timeout-seconds", 120, "Watchdog timeout for buffered generations")
	f.StringVar(&defaultModel, "default-model", envOr("GEMINID_DEFAULT_MODEL", "gemini-2.5-flash-lite"), "Default model id when request omits model")
	f.StringSliceVar(&models, "models", nil, "Permitted model ids (default: just the default model)")
	f.StringVar(&logLevel, "log-level", envOr("GEMINID_LOG_LEVEL", "info"), "Log level: debug, info, warn, error")
	return root
}

func run(cfg config.Config) error {
	lvl, err := zerolog.ParseLevel(strings.ToLower(cfg.LogLevel))
	if err != nil || cfg.LogLevel == "" {
		lvl = zerolog.InfoLevel
	}
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
		Level(lvl).With().Timestamp().Str("svc", "geminid").Logger()

	resolved, found := fsutil.LookCommand(cfg.Command)
	if !found {
		logger.Warn().Str("command", cfg.Command).Msg("generation command not found; requests will fail to spawn")
	}

	reg, err := registry.Load(cfg.Models, cfg.DefaultModel)
	if err != nil {
		return err
	}

	mgr := manager.NewWithConfig(manager.ManagerConfig{
		Registry:      reg,
		DefaultModel:  cfg.DefaultModel,
		Command:       resolved,
		MaxConcurrent: cfg.MaxConcurrent,
		MaxQueueDepth: cfg.MaxQueueDepth,
		Timeout:       time.Duration(cfg.TimeoutSeconds) * time.Second,
	})
	mgr.SetLogger(logger)

	httpapi.SetLogger(logger)
	httpapi.SetMaxBodyBytes(cfg.MaxBodyBytes)
	httpapi.SetAPIKeys(cfg.APIKeys)
	httpapi.SetCORSOptions(cfg.CORSEnabled, cfg.CORSAllowedOrigins, cfg.CORSAllowedMethods, cfg.CORSAllowedHeaders)

	// Base context canceled on shutdown so in-flight generations are killed.
	baseCtx, cancelBase := context.WithCancel(context.Background())
	defer cancelBase()
	httpapi.SetBaseContext(baseCtx)

	mux := httpapi.NewMux(mgr)
	srv := &http.Server{Addr: cfg.Addr, Handler: mux}

	errc := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", cfg.Addr).Str("command", resolved).Int("models", len(reg)).Msg("geminid listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errc <- err
		}
	}()

	// Graceful shutdown (Ctrl+C / SIGTERM)
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errc:
		return err
	case sig := <-stop:
		logger.Info().Str("signal", sig.String()).Msg("shutting down")
	}
	cancelBase()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown error")
	}
	return nil
}

func main() {
	if err := buildRootCmd().Execute(); err != nil {
		logger := zerolog.New(os.Stderr)
		logger.Error().Err(err).Msg("geminid failed")
		os.Exit(1)
	}
}
