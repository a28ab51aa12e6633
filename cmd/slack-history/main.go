package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/chrisedwards/slack-history/internal/config"
	"github.com/chrisedwards/slack-history/internal/observability"
	"github.com/chrisedwards/slack-history/internal/slack"
)

// Version information, injected at build time via ldflags.
var (
	Version   = "dev"
	Build     = "unknown"
	BuildTime = "unknown"
)

var (
	cfgFile   string
	showStats bool
)

var rootCmd = &cobra.Command{
	Use:   "slack-history",
	Short: "Export Slack conversation histories to JSON files",
	Long: `slack-history exports the message history of every Slack conversation you can
see (public and private channels, DMs and group DMs) to one JSON file each.

It authorizes with an OAuth v2 user token obtained through a local browser
redirect, follows Slack's cursor pagination and waits out rate limits.
Configuration is via YAML file or SLACK_HISTORY_* environment variables.`,
	Version:       fmt.Sprintf("%s (build %s, %s)", Version, Build, BuildTime),
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "",
		"config file (default ~/.config/slack-history/slack-history.yaml)")
	rootCmd.PersistentFlags().BoolVar(&showStats, "stats", false,
		"print Slack API and export metrics when the command finishes")
}

// app holds what every command needs once config is loaded.
type app struct {
	cfg       *config.Config
	logger    *slog.Logger
	telemetry *observability.Telemetry
}

func newApp(cmd *cobra.Command) (*app, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, err
	}

	logger := setupLogger(cmd.ErrOrStderr(), cfg.Logging.Level, cfg.Logging.Format)
	logger.Debug("configuration loaded", "config_file", cfg.ConfigFile())

	tel, err := observability.NewTelemetry()
	if err != nil {
		return nil, err
	}

	return &app{cfg: cfg, logger: logger, telemetry: tel}, nil
}

// close prints the metrics summary when --stats is set and shuts telemetry
// down.
func (a *app) close(cmd *cobra.Command) {
	ctx := context.WithoutCancel(cmd.Context())
	if showStats {
		fmt.Fprintln(cmd.ErrOrStderr(), "\nStats:")
		if err := a.telemetry.WriteSummary(ctx, cmd.ErrOrStderr()); err != nil {
			a.logger.Warn("failed to write stats", "error", err)
		}
	}
	if err := a.telemetry.Shutdown(ctx); err != nil {
		a.logger.Warn("telemetry shutdown", "error", err)
	}
}

// client builds a Slack client from the configured token.
func (a *app) client(cmd *cobra.Command) (*slack.Client, error) {
	if slack.IsPlaceholder(a.cfg.Slack.AccessToken) {
		return nil, &slack.ConfigurationError{
			Field:  "slack.access_token",
			Reason: "is not set (run 'slack-history auth --save' or set SLACK_HISTORY_SLACK_ACCESS_TOKEN)",
		}
	}
	return slack.NewClient(a.cfg.Slack.AccessToken).
		WithBaseURL(a.cfg.Slack.APIURL).
		WithLogger(a.logger).
		WithNotices(cmd.ErrOrStderr()).
		WithMetrics(a.telemetry.Metrics), nil
}

func setupLogger(w io.Writer, level, format string) *slog.Logger {
	var logLevel slog.Level
	switch level {
	case "debug":
		logLevel = slog.LevelDebug
	case "info":
		logLevel = slog.LevelInfo
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelWarn
	}

	opts := &slog.HandlerOptions{
		Level: logLevel,
	}

	var handler slog.Handler
	if format == "json" {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}

	return slog.New(handler)
}

// exitCode reports err and maps it to a process exit status. Cancellation is
// not a failure.
func exitCode(w io.Writer, err error) int {
	switch {
	case err == nil:
		return 0
	case slack.IsCanceled(err):
		fmt.Fprintln(w, "operation canceled")
		return 130
	default:
		fmt.Fprintln(w, err)
		return 1
	}
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	os.Exit(exitCode(os.Stderr, err))
}
