package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Veraticus/ha-outliers/internal/cli"
	"github.com/Veraticus/ha-outliers/internal/common"
	"github.com/Veraticus/ha-outliers/internal/config"
	"github.com/Veraticus/ha-outliers/internal/tui"
)

var (
	cfgFile string
	version = "dev"
	rootCmd = &cobra.Command{
		Use:   "ha-outliers",
		Short: "📊 Find and correct outliers in Home Assistant sensor history",
		Long: `ha-outliers scans the Home Assistant recorder database for numeric sensor
readings that lie far outside their usual range, groups similar outliers and
lets you edit or delete them interactively.`,
		PersistentPreRunE: initConfig,
		SilenceUsage:      true,
		SilenceErrors:     true,
	}
)

func init() {
	config.SetDefaults(viper.GetViper())

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (default: $HOME/.config/ha-outliers/config.yaml)")
	flags.String("log-level", "info", "log level (debug, info, warn, error)")
	flags.String("log-format", "console", "log format (console, json)")
	flags.String("profile", config.DefaultProfilePath, "connection profile file")
	flags.Float64("sigma", 5.0, "standard deviations beyond which a reading is an outlier")
	flags.Int64("min-samples", 200, "minimum valid samples before a sensor is judged")
	flags.Float64("frequency-threshold", 0.01, "share of samples above which a repeated value is normal")
	flags.Int("workers", 4, "sensors scanned concurrently")
	flags.Bool("fail-fast", false, "abort the scan on the first sensor query failure")

	_ = viper.BindPFlag(config.KeyLogLevel, flags.Lookup("log-level"))
	_ = viper.BindPFlag(config.KeyLogFormat, flags.Lookup("log-format"))
	_ = viper.BindPFlag(config.KeyProfilePath, flags.Lookup("profile"))
	_ = viper.BindPFlag(config.KeySigma, flags.Lookup("sigma"))
	_ = viper.BindPFlag(config.KeyMinSamples, flags.Lookup("min-samples"))
	_ = viper.BindPFlag(config.KeyFrequencyThreshold, flags.Lookup("frequency-threshold"))
	_ = viper.BindPFlag(config.KeyWorkers, flags.Lookup("workers"))
	_ = viper.BindPFlag(config.KeyFailFast, flags.Lookup("fail-fast"))

	review := reviewCmd()
	rootCmd.Flags().AddFlagSet(review.Flags())
	rootCmd.RunE = review.RunE

	rootCmd.AddCommand(review)
	rootCmd.AddCommand(scanCmd())
	rootCmd.AddCommand(profileCmd())
	rootCmd.AddCommand(versionCmd())
}

func main() {
	handler := cli.NewInterruptHandler(os.Stderr)
	ctx := handler.HandleInterrupts(context.Background(), "Corrections already applied are kept.")

	err := rootCmd.ExecuteContext(ctx)
	os.Exit(exitCode(os.Stderr, err, handler.WasInterrupted()))
}

// exitCode maps the command outcome to the process exit status:
// 0 on a normal quit, 130 after an interrupt, 1 on any other failure.
func exitCode(w io.Writer, err error, interrupted bool) int {
	switch {
	case interrupted, errors.Is(err, context.Canceled), errors.Is(err, tui.ErrInterrupted):
		return cli.ExitInterrupted
	case err == nil:
		return 0
	}

	var userErr *common.UserError
	if errors.As(err, &userErr) {
		fmt.Fprintln(w, cli.FormatError(userErr.Error()))
	} else {
		fmt.Fprintln(w, cli.FormatError(err.Error()))
	}
	return 1
}

func initConfig(_ *cobra.Command, _ []string) error {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("failed to get home directory: %w", err)
		}

		viper.AddConfigPath(fmt.Sprintf("%s/.config/ha-outliers", home))
		viper.AddConfigPath(".")
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
	}

	viper.SetEnvPrefix("HA_OUTLIERS")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("failed to read config: %w", err)
		}
	}

	if err := setupLogging(); err != nil {
		return fmt.Errorf("failed to setup logging: %w", err)
	}
	return nil
}

func setupLogging() error {
	return common.SetupLogger(viper.GetString(config.KeyLogLevel), viper.GetString(config.KeyLogFormat))
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "ha-outliers %s\n", version)
		},
	}
}
