package main

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Veraticus/ha-outliers/internal/audit"
	"github.com/Veraticus/ha-outliers/internal/cli"
	"github.com/Veraticus/ha-outliers/internal/common"
	"github.com/Veraticus/ha-outliers/internal/config"
	"github.com/Veraticus/ha-outliers/internal/review"
	"github.com/Veraticus/ha-outliers/internal/tui"
)

func reviewCmd() *cobra.Command {
	var (
		useTUI   bool
		noPrompt bool
	)

	cmd := &cobra.Command{
		Use:   "review",
		Short: "Scan for outliers and review them interactively",
		Long: `Connects to the recorder database, scans every numeric sensor for readings
beyond the configured number of standard deviations and lets you edit or
delete each group of outliers. Changes are written immediately, one group per
transaction, and recorded in the audit log.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runReview(cmd, useTUI, noPrompt)
		},
	}

	cmd.Flags().BoolVar(&useTUI, "tui", false, "use the full-screen interface")
	cmd.Flags().BoolVar(&noPrompt, "no-prompt", false, "use the saved connection profile without asking")
	cmd.Flags().Int("page-size", 25, "groups shown per page")
	_ = viper.BindPFlag(config.KeyPageSize, cmd.Flags().Lookup("page-size"))

	return cmd
}

func runReview(cmd *cobra.Command, useTUI, noPrompt bool) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	cfg, err := detectConfig()
	if err != nil {
		return err
	}

	prompter := newPrompter()
	profile, err := resolveProfile(ctx, prompter, !noPrompt && stdinIsTerminal())
	if err != nil {
		return err
	}

	lock, err := config.AcquireSessionLock(config.DefaultLockPath)
	if err != nil {
		if errors.Is(err, config.ErrSessionLocked) {
			return common.NewUserError("Another review is running on this machine", err)
		}
		return err
	}
	defer func() {
		if err := lock.Release(); err != nil {
			slog.Warn("Failed to release review lock", "error", err)
		}
	}()

	store, err := connect(ctx, profile)
	if err != nil {
		return err
	}

	sessionID := uuid.NewString()
	logger := slog.Default().With("session_id", sessionID)
	conn := review.NewConnection(store, connector(profile), reconnectRetry, logger)
	defer func() {
		if err := conn.Close(); err != nil {
			logger.Debug("Failed to close database", "error", err)
		}
	}()

	result, err := scan(ctx, store, cfg, logger)
	if errors.Is(err, common.ErrNoCandidates) {
		fmt.Fprintln(out, cli.FormatInfo("No numeric sensors found."))
		return nil
	}
	if err != nil {
		return err
	}
	for _, f := range result.Failures {
		fmt.Fprintln(out, cli.FormatWarning(fmt.Sprintf("Skipped %s: %v", f.EntityID, f.Err)))
	}

	groups := result.Groups()
	if len(groups) == 0 {
		fmt.Fprintln(out, cli.FormatSuccess("No outliers found!"))
		return nil
	}

	recorder := audit.NewLog(config.ExpandPath(viper.GetString(config.KeyAuditPath)))
	mutator := review.NewMutator(sessionID, review.WithRecorder(recorder), review.WithMutatorLogger(logger))
	session := review.NewSession(groups, viper.GetInt(config.KeyPageSize))
	ctrl := review.NewController(session, mutator, conn, logger)

	logger.Info("Starting review", "groups", len(groups), "outliers", len(result.Records))
	if useTUI {
		err = tui.Run(ctx, ctrl)
		if err == nil && session.Done() {
			fmt.Fprintln(out, cli.FormatSuccess("No outliers left to review!"))
		}
	} else {
		reviewer := cli.NewReviewer(ctrl, prompter,
			cli.WithClearScreen(stdoutIsTerminal()),
			cli.WithReviewerLogger(logger))
		err = reviewer.Run(ctx)
	}
	if err != nil {
		return err
	}

	fmt.Fprintln(out, cli.FormatInfo(fmt.Sprintf("%d of %d group(s) corrected. Audit log: %s",
		session.Len()-session.ActiveGroups(), session.Len(), recorder.Path())))
	return nil
}
