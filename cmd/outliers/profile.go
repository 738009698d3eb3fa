package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Veraticus/ha-outliers/internal/cli"
	"github.com/Veraticus/ha-outliers/internal/common"
	"github.com/Veraticus/ha-outliers/internal/config"
)

func profileCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Show or edit the saved database connection",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the saved connection profile",
		RunE: func(cmd *cobra.Command, _ []string) error {
			store := profileStore()
			profile, found, err := store.Load()
			if err != nil {
				return common.NewUserError("Could not read connection profile", err)
			}
			fmt.Fprint(cmd.OutOrStdout(), describeProfile(profile, store.Path(), found))
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "edit",
		Short: "Change the saved connection profile",
		RunE: func(cmd *cobra.Command, _ []string) error {
			store := profileStore()
			current, _, err := store.Load()
			if err != nil {
				return common.NewUserError("Could not read connection profile", err)
			}

			profile, err := newPrompter().PromptProfile(cmd.Context(), current)
			if err != nil {
				return err
			}
			if err := store.Save(profile); err != nil {
				return common.NewUserError("Could not save connection profile", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess("Saved "+store.Path()))
			return nil
		},
	})

	return cmd
}

func describeProfile(p config.Profile, path string, found bool) string {
	var b strings.Builder
	source := path
	if !found {
		source += " (not saved yet, showing defaults)"
	}
	fmt.Fprintf(&b, "Profile:  %s\n", source)
	fmt.Fprintf(&b, "Driver:   %s\n", p.Driver)
	if p.Driver == config.DriverSQLite {
		fmt.Fprintf(&b, "Path:     %s\n", p.Path)
		return b.String()
	}
	password := "(none)"
	if p.Password != "" {
		password = strings.Repeat("*", 8)
	}
	fmt.Fprintf(&b, "Address:  %s\n", p.Address())
	fmt.Fprintf(&b, "User:     %s\n", p.User)
	fmt.Fprintf(&b, "Password: %s\n", password)
	fmt.Fprintf(&b, "Database: %s\n", p.Database)
	return b.String()
}
