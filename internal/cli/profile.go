package cli

import (
	"context"
	"fmt"

	"github.com/Veraticus/ha-outliers/internal/config"
)

// PromptProfile asks for each connection field, offering current values as
// defaults. The password is never echoed back.
func (p *Prompter) PromptProfile(ctx context.Context, current config.Profile) (config.Profile, error) {
	p.Println(FormatTitle("Database connection"))

	profile := current
	driver, err := p.AskChoice(ctx, "Driver", current.Driver, []string{config.DriverMySQL, config.DriverSQLite})
	if err != nil {
		return config.Profile{}, err
	}
	profile.Driver = driver

	if driver == config.DriverSQLite {
		if profile.Path, err = p.Ask(ctx, "Database file", current.Path); err != nil {
			return config.Profile{}, err
		}
	} else {
		if profile.Host, err = p.Ask(ctx, "Host", current.Host); err != nil {
			return config.Profile{}, err
		}
		port := current.Port
		if port == 0 {
			port = config.DefaultProfile().Port
		}
		if profile.Port, err = p.AskInt(ctx, "Port", port, 1, 65535); err != nil {
			return config.Profile{}, err
		}
		if profile.User, err = p.Ask(ctx, "User", current.User); err != nil {
			return config.Profile{}, err
		}
		if profile.Password, err = p.AskSecret(ctx, "Password", current.Password); err != nil {
			return config.Profile{}, err
		}
		if profile.Database, err = p.Ask(ctx, "Database", current.Database); err != nil {
			return config.Profile{}, err
		}
	}

	if err := profile.Validate(); err != nil {
		return config.Profile{}, fmt.Errorf("connection profile: %w", err)
	}
	return profile, nil
}
