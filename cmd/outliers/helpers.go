package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/spf13/viper"
	"golang.org/x/term"

	"github.com/Veraticus/ha-outliers/internal/cli"
	"github.com/Veraticus/ha-outliers/internal/common"
	"github.com/Veraticus/ha-outliers/internal/config"
	"github.com/Veraticus/ha-outliers/internal/detect"
	"github.com/Veraticus/ha-outliers/internal/service"
	"github.com/Veraticus/ha-outliers/internal/storage"
)

// reconnectRetry bounds reconnect attempts after a lost connection.
var reconnectRetry = service.RetryOptions{
	MaxAttempts:  3,
	InitialDelay: 500 * time.Millisecond,
	MaxDelay:     5 * time.Second,
	Multiplier:   2,
}

// detectConfig builds the scan settings from flags, environment and config file.
func detectConfig() (detect.Config, error) {
	cfg := detect.DefaultConfig()
	cfg.Sigma = viper.GetFloat64(config.KeySigma)
	cfg.MinSamples = viper.GetInt64(config.KeyMinSamples)
	cfg.FrequencyThreshold = viper.GetFloat64(config.KeyFrequencyThreshold)
	cfg.Workers = viper.GetInt(config.KeyWorkers)
	cfg.QueryTimeout = viper.GetDuration(config.KeyQueryTimeout)
	cfg.FailFast = viper.GetBool(config.KeyFailFast)
	if prefixes := viper.GetStringSlice(config.KeyPrefixes); len(prefixes) > 0 {
		cfg.Prefixes = prefixes
	}

	if err := cfg.Validate(); err != nil {
		return detect.Config{}, err
	}
	return cfg, nil
}

func profileStore() *config.ProfileStore {
	return config.NewProfileStore(viper.GetString(config.KeyProfilePath))
}

// resolveProfile loads the saved profile and, when interactive, lets the
// operator confirm or change each field before saving it again.
func resolveProfile(ctx context.Context, prompter *cli.Prompter, interactive bool) (config.Profile, error) {
	store := profileStore()
	profile, found, err := store.Load()
	if err != nil {
		return config.Profile{}, common.NewUserError("Could not read connection profile", err)
	}
	slog.Debug("Loaded connection profile", "path", store.Path(), "found", found)

	if !interactive {
		return profile, nil
	}

	profile, err = prompter.PromptProfile(ctx, profile)
	if err != nil {
		return config.Profile{}, err
	}
	if err := store.Save(profile); err != nil {
		slog.Warn("Failed to save connection profile", "path", store.Path(), "error", err)
	}
	return profile, nil
}

// connector returns a function opening the database of profile, bounded by
// the configured connect timeout.
func connector(profile config.Profile) func(ctx context.Context) (service.Storage, error) {
	timeout := viper.GetDuration(config.KeyConnectTimeout)
	return func(ctx context.Context) (service.Storage, error) {
		if err := profile.Validate(); err != nil {
			return nil, common.Permanent(fmt.Errorf("%w: %w", common.ErrInvalidConfig, err))
		}
		store, err := storage.Open(ctx, profile, timeout)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %w", common.ErrConnectivity, profile.Address(), err)
		}
		return store, nil
	}
}

func connect(ctx context.Context, profile config.Profile) (service.Storage, error) {
	store, err := connector(profile)(ctx)
	if err != nil {
		return nil, common.NewUserError("Connection failed", err)
	}
	slog.Debug("Connected to database", "driver", profile.Driver, "address", profile.Address())
	return store, nil
}

func stdinIsTerminal() bool {
	return isatty.IsTerminal(os.Stdin.Fd()) || isatty.IsCygwinTerminal(os.Stdin.Fd())
}

func stdoutIsTerminal() bool {
	return isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd())
}

// newPrompter creates a prompter on stdin/stdout that hides typed passwords on a terminal.
func newPrompter() *cli.Prompter {
	p := cli.NewPrompter(os.Stdin, os.Stdout)
	if stdinIsTerminal() {
		fd := int(os.Stdin.Fd())
		p.SetSecretReader(func() (string, error) {
			b, err := term.ReadPassword(fd)
			return string(b), err
		})
	}
	return p
}

// scan runs the detector with a progress bar on stderr.
func scan(ctx context.Context, store service.StateReader, cfg detect.Config, logger *slog.Logger) (*detect.ScanResult, error) {
	opts := []detect.Option{detect.WithLogger(logger)}
	if isatty.IsTerminal(os.Stderr.Fd()) {
		opts = append(opts, detect.WithProgress(cli.NewScanProgress(os.Stderr)))
	}

	detector, err := detect.NewDetector(store, cfg, opts...)
	if err != nil {
		return nil, err
	}

	logger.Info("Scanning recorder history", "sigma", cfg.Sigma, "min_samples", cfg.MinSamples)
	result, err := detector.Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("scan failed: %w", err)
	}
	if result.Candidates == 0 {
		return result, common.ErrNoCandidates
	}
	return result, nil
}
