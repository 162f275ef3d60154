package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/iconidentify/vodgrab/internal/app"
	"github.com/iconidentify/vodgrab/internal/config"
	"github.com/iconidentify/vodgrab/internal/domain"
	"github.com/iconidentify/vodgrab/internal/ui"
	"github.com/iconidentify/vodgrab/pkg/streamlink"
	"github.com/iconidentify/vodgrab/pkg/twitch"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	err := newRootCmd().Execute()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
	}
	os.Exit(app.ExitCode(err))
}

func newRootCmd() *cobra.Command {
	var (
		configPath string
		logLevel   string
	)

	cmd := &cobra.Command{
		Use:           "vod <channel>",
		Short:         "Download past broadcasts of a Twitch channel with streamlink",
		Version:       fmt.Sprintf("%s (built %s)", Version, BuildTime),
		Args:          cobra.ExactArgs(1),
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			// Past argument validation, failures are not usage errors.
			cmd.SilenceUsage = true

			cfg, err := config.Load(configPath, cmd.Flags().Changed("config"))
			if err != nil {
				return err
			}
			if logLevel != "" {
				cfg.Log.Level = logLevel
			}
			logger, err := newLogger(cfg.Log, os.Stderr)
			if err != nil {
				return err
			}
			slog.SetDefault(logger)

			return run(cmd, cfg, args[0], logger)
		},
	}

	cmd.Flags().StringVar(&configPath, "config", config.DefaultPath(), "Path to config file")
	cmd.Flags().StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error)")
	return cmd
}

func run(cmd *cobra.Command, cfg *config.Config, channel string, logger *slog.Logger) error {
	settings := make(map[string]string, 3)
	for _, key := range []string{config.KeyTwitchClientID, config.KeyTwitchClientSecret, config.KeyDownloadPath} {
		v, err := cfg.Get(key)
		if err != nil {
			return err
		}
		settings[key] = v
	}

	client, err := twitch.NewClient(twitch.Config{
		ClientID:     settings[config.KeyTwitchClientID],
		ClientSecret: settings[config.KeyTwitchClientSecret],
		BaseURL:      cfg.Twitch.BaseURL,
		AuthURL:      cfg.Twitch.AuthURL,
		Timeout:      cfg.Twitch.Timeout,
	}, twitch.WithLogger(logger.With("component", "twitch")))
	if err != nil {
		return err
	}

	// streamlink's own progress would fight the spinner for the terminal.
	var childOut io.Writer
	if !ui.IsTerminal(os.Stdout) {
		childOut = os.Stderr
	}
	supervisor := streamlink.New(streamlink.Config{
		Binary:    cfg.Streamlink.Binary,
		Quality:   cfg.Streamlink.Quality,
		ExtraArgs: cfg.Streamlink.ExtraArgs,
		Stdout:    childOut,
		Stderr:    childOut,
	}, logger)

	runner := app.NewRunner(
		client,
		supervisor,
		ui.NewSelector(os.Stdin, os.Stdout),
		ui.NewProgress(os.Stdout),
		app.Options{
			DownloadDir:   settings[config.KeyDownloadPath],
			DateLayout:    cfg.Download.DateFormat,
			Extension:     cfg.Download.Extension,
			LedgerBackend: cfg.Ledger.Backend,
		},
		logger,
	)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go handleSignals(sigCh, runner, supervisor, os.Exit, logger)

	logger.Info("starting vod", "version", Version, "channel", channel)
	return runner.Run(cmd.Context(), channel)
}

type interrupter interface{ Interrupt() }

type killer interface{ KillActive() }

// handleSignals interrupts the run on the first signal. A second signal kills
// the running child and exits with the interrupted status.
func handleSignals(sigCh <-chan os.Signal, r interrupter, k killer, exit func(int), logger *slog.Logger) {
	received := 0
	for sig := range sigCh {
		received++
		logger.Debug("received signal", "signal", sig.String(), "count", received)
		if received == 1 {
			r.Interrupt()
			continue
		}
		logger.Warn("second interrupt, killing download")
		k.KillActive()
		exit(app.ExitCode(domain.ErrInterrupted))
		return
	}
}

func newLogger(cfg config.LogConfig, w io.Writer) (*slog.Logger, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(cfg.Level))); err != nil {
		return nil, &domain.ConfigError{Key: "log.level", Msg: fmt.Sprintf("invalid log level %q", cfg.Level)}
	}

	opts := &slog.HandlerOptions{Level: level}
	if cfg.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	}
	return slog.New(slog.NewTextHandler(w, opts)), nil
}
