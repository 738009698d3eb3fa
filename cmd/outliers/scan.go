package main

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/Veraticus/ha-outliers/internal/common"
	"github.com/Veraticus/ha-outliers/internal/report"
)

func scanCmd() *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Report outliers without changing anything",
		Long: `Runs the same scan as review and prints the outlier groups as a table,
JSON or YAML. The database is never modified and the saved connection
profile is used as is.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			f, err := report.ParseFormat(format)
			if err != nil {
				return fmt.Errorf("%w: %w", common.ErrInvalidConfig, err)
			}
			return runScan(cmd, f)
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", string(report.FormatTable), "output format (table, json, yaml)")
	return cmd
}

func runScan(cmd *cobra.Command, format report.Format) error {
	ctx := cmd.Context()

	cfg, err := detectConfig()
	if err != nil {
		return err
	}

	profile, _, err := profileStore().Load()
	if err != nil {
		return common.NewUserError("Could not read connection profile", err)
	}

	store, err := connect(ctx, profile)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	logger := slog.Default().With("session_id", uuid.NewString())
	result, err := scan(ctx, store, cfg, logger)
	if err != nil && !errors.Is(err, common.ErrNoCandidates) {
		return err
	}

	groups := result.Groups()
	rep := report.NewScanReport(result, groups, cfg.Sigma, time.Now())
	return report.Write(cmd.OutOrStdout(), format, rep, groups)
}
