// Command appsettings inspects and edits an application's settings file.
//
// It:
// - loads the settings file (falling back to defaults or an interactive prompt),
// - applies environment overrides and --set pairs through the validators,
// - applies --reset/--reset-all, prints the effective settings, and
// - optionally saves the result and keeps reloading it on change (--watch).
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	"app-settings/internal/changelog"
	"app-settings/internal/config"
	"app-settings/internal/logging"
	"app-settings/internal/overrides"
	"app-settings/internal/settings"
	"app-settings/internal/settingsfile"
	"app-settings/internal/watch"
)

type options struct {
	file     string
	fallback string
	sets     []string
	resets   []string
	resetAll bool
	save     bool
	watch    bool
	logLevel string
}

func parseFlags(args []string, stderr io.Writer) (options, error) {
	var o options
	fs := pflag.NewFlagSet("appsettings", pflag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVarP(&o.file, "file", "f", "", "settings file (.json, .yaml, .yml, .toml); overrides settings.file")
	fs.StringVar(&o.fallback, "fallback", "", `what to do when the file is unusable: "defaults" or "prompt"`)
	fs.StringArrayVarP(&o.sets, "set", "s", nil, "override a setting, key=value (repeatable)")
	fs.StringArrayVar(&o.resets, "reset", nil, "reset a setting to its default (repeatable)")
	fs.BoolVar(&o.resetAll, "reset-all", false, "reset every setting to its default")
	fs.BoolVar(&o.save, "save", false, "write the result back to the settings file")
	fs.BoolVar(&o.watch, "watch", false, "reload and print the settings whenever the file changes")
	fs.StringVar(&o.logLevel, "log-level", "", "debug, info, warn or error; overrides log.level")
	if err := fs.Parse(args); err != nil {
		return options{}, err
	}
	return o, nil
}

func fatal(msg string, err error, attrs ...any) {
	args := make([]any, 0, 2+len(attrs))
	args = append(args, "err", err)
	args = append(args, attrs...)
	slog.Error(msg, args...)
	os.Exit(1)
}

func main() {
	runID := logging.MakeRunID()
	slog.SetDefault(logging.New(os.Stderr, slog.LevelInfo, runID))

	opts, err := parseFlags(os.Args[1:], os.Stderr)
	if errors.Is(err, pflag.ErrHelp) {
		return
	}
	if err != nil {
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		fatal("config load failed", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, opts, runID, os.Stdin, os.Stdout); err != nil {
		fatal("appsettings failed", err)
	}
}

func run(ctx context.Context, cfg config.Config, opts options, runID string, stdin io.Reader, stdout io.Writer) error {
	if opts.file != "" {
		cfg.SettingsFile = opts.file
	}
	if opts.fallback != "" {
		fb, err := settingsfile.ParseFallback(opts.fallback)
		if err != nil {
			return err
		}
		cfg.Fallback = fb
	}
	if opts.logLevel != "" {
		cfg.LogLevel = opts.logLevel
	}
	level, err := logging.ParseLevel(cfg.LogLevel)
	if err != nil {
		return err
	}
	slog.SetDefault(logging.New(os.Stderr, level, runID))

	store := newStore()

	if cfg.ChangesLogPath != "" {
		cl, err := changelog.New(cfg.ChangesLogPath)
		if err != nil {
			return fmt.Errorf("open change log %s: %w", cfg.ChangesLogPath, err)
		}
		defer func() { _ = cl.Close() }()
		store.OnChange(cl.Observer(runID))
		slog.Debug("change log enabled", "path", cfg.ChangesLogPath)
	}

	loadOpts := settingsfile.LoadOptions{
		Fallback: cfg.Fallback,
		Prompt:   promptAll(stdin, stdout),
	}
	if err := settingsfile.Load(cfg.SettingsFile, store, loadOpts); err != nil {
		return err
	}
	slog.Info("settings loaded", "path", cfg.SettingsFile, "keys", store.Len())

	if err := applyOverrides(store, cfg.SettingsEnvPrefix, opts); err != nil {
		return err
	}

	printSettings(stdout, store)

	if opts.save {
		if err := settingsfile.Save(cfg.SettingsFile, store); err != nil {
			return err
		}
		slog.Info("settings saved", "path", cfg.SettingsFile)
	}

	if !opts.watch {
		return nil
	}
	return watchLoop(ctx, cfg.SettingsFile, store, stdout)
}

func applyOverrides(store *settings.Store, envPrefix string, opts options) error {
	env, err := overrides.FromEnv(envPrefix, store)
	if err != nil {
		return err
	}
	if err := store.Update(env); err != nil {
		return fmt.Errorf("apply env overrides: %w", err)
	}
	if len(env) > 0 {
		slog.Info("env overrides applied", "prefix", envPrefix, "count", len(env))
	}

	pairs, err := overrides.FromPairs(opts.sets, store)
	if err != nil {
		return err
	}
	if err := store.Update(pairs); err != nil {
		return fmt.Errorf("apply --set: %w", err)
	}

	if opts.resetAll {
		store.ResetAll()
	}
	for _, k := range opts.resets {
		if err := store.Reset(k); err != nil {
			return fmt.Errorf("reset: %w", err)
		}
	}
	return nil
}

func watchLoop(ctx context.Context, path string, store *settings.Store, stdout io.Writer) error {
	changed, err := watch.File(ctx, path, watch.DefaultDebounce)
	if err != nil {
		return err
	}
	slog.Info("watching settings file", "path", path)
	for range changed {
		// A bad edit keeps the previous values; Load commits all or nothing.
		if err := settingsfile.Load(path, store, settingsfile.LoadOptions{}); err != nil {
			slog.Warn("settings reload failed", "path", path, "err", err)
			continue
		}
		slog.Info("settings reloaded", "path", path)
		printSettings(stdout, store)
	}
	slog.Info("shutdown requested")
	return nil
}
