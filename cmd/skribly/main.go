package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/eehab-saadat/skribly-backend/internal/config"
	"github.com/eehab-saadat/skribly-backend/internal/selfping"
	"github.com/eehab-saadat/skribly-backend/internal/server"
)

const releaseVersion = "1.0.0"

func main() {
	cobra.CheckErr(newCmd().Execute())
}

func newCmd() *cobra.Command {
	v := config.NewViper()

	cmd := &cobra.Command{
		Use:           "skribly",
		Short:         "Real-time multiplayer drawing-and-guessing game server.",
		Args:          cobra.ExactArgs(0),
		SilenceErrors: true,
		SilenceUsage:  true,
		Version:       releaseVersion,
		RunE: func(cmd *cobra.Command, args []string) error {
			// .env feeds the environment before viper reads it.
			_ = godotenv.Load()

			cfg := config.FromViper(v)
			if err := cfg.Validate(); err != nil {
				return err
			}
			return run(cmd.Context(), cfg)
		},
	}

	fs := cmd.Flags()
	fs.SetNormalizeFunc(func(_ *pflag.FlagSet, name string) pflag.NormalizedName {
		return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
	})

	defaults := config.Default()
	fs.String("host", defaults.Host, "address to bind to")
	fs.Int("port", defaults.Port, "port to listen on")
	fs.String("cors-origins", "*", "comma-separated allowed CORS origins")
	fs.String("public-url", "", "externally reachable base URL (QR links, self-ping)")
	fs.String("words-dir", defaults.WordsDir, "directory holding easy/medium/hard word lists")
	fs.Int("word-selection-time", int(defaults.WordSelectionTime.Seconds()), "word selection window in seconds")
	fs.Int("result-display-time", int(defaults.ResultDisplayTime.Seconds()), "turn results pause in seconds")
	fs.Int("intermission-time", int(defaults.IntermissionTime.Seconds()), "between-rounds pause in seconds")
	fs.Float64("rate-limit", defaults.RateLimit, "HTTP requests per second per IP")
	fs.Int("rate-limit-burst", defaults.RateLimitBurst, "HTTP burst size per IP")
	fs.Int64("max-request-size", defaults.MaxRequestSize, "maximum request body size in bytes")
	fs.String("self-ping-url", "", "URL to self-ping to stay awake (defaults to public-url + /health; disabled when both are empty)")
	fs.Duration("self-ping-interval", defaults.SelfPingInterval, "self-ping interval")
	fs.String("log-level", defaults.LogLevel, "log level (debug, info, warn, error)")
	fs.Bool("dev", false, "development mode (console logging)")

	cobra.CheckErr(v.BindPFlags(fs))
	return cmd
}

func run(ctx context.Context, cfg config.Config) error {
	logger, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	srv := server.New(cfg, logger)

	pingURL := cfg.SelfPingURL
	if pingURL == "" && cfg.PublicURL != "" {
		pingURL = cfg.PublicURL + "/health"
	}
	go selfping.New(pingURL, cfg.SelfPingInterval, logger).Run(ctx)

	if err := srv.Run(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func newLogger(cfg config.Config) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}

	var zc zap.Config
	if cfg.DevMode {
		zc = zap.NewDevelopmentConfig()
	} else {
		zc = zap.NewProductionConfig()
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	return zc.Build()
}
