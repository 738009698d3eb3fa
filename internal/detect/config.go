// Package detect finds statistical outliers in recorder history and groups them for review.
package detect

import (
	"fmt"
	"time"

	"github.com/Veraticus/ha-outliers/internal/common"
)

// Config controls the outlier scan.
type Config struct {
	// Prefixes select the entity classes that can carry numeric history.
	Prefixes []string
	// Sigma is the number of standard deviations beyond which a sample is an outlier.
	Sigma float64
	// FrequencyThreshold is the share of a source's samples a repeated value may
	// reach before it is treated as normal behavior rather than an outlier.
	FrequencyThreshold float64
	// QueryTimeout bounds the statistics and extraction queries of one source.
	QueryTimeout time.Duration
	// MinSamples is the minimum number of valid samples required to judge a source.
	MinSamples int64
	// Workers is the number of sources scanned concurrently.
	Workers int
	// FailFast aborts the whole scan on the first source failure instead of skipping it.
	FailFast bool
}

// DefaultConfig returns the standard scan settings.
func DefaultConfig() Config {
	return Config{
		Prefixes:           []string{"sensor.", "number.", "counter.", "input_number."},
		Sigma:              5.0,
		MinSamples:         200,
		FrequencyThreshold: 0.01,
		Workers:            4,
		QueryTimeout:       2 * time.Minute,
	}
}

// Validate checks the configuration for values that would make the scan meaningless.
func (c Config) Validate() error {
	if len(c.Prefixes) == 0 {
		return fmt.Errorf("%w: at least one entity prefix is required", common.ErrInvalidConfig)
	}
	if c.Sigma <= 0 {
		return fmt.Errorf("%w: sigma must be positive, got %v", common.ErrInvalidConfig, c.Sigma)
	}
	if c.MinSamples < 2 {
		return fmt.Errorf("%w: min samples must be at least 2, got %d", common.ErrInvalidConfig, c.MinSamples)
	}
	if c.FrequencyThreshold <= 0 || c.FrequencyThreshold > 1 {
		return fmt.Errorf("%w: frequency threshold must be in (0, 1], got %v", common.ErrInvalidConfig, c.FrequencyThreshold)
	}
	if c.Workers < 1 {
		return fmt.Errorf("%w: workers must be at least 1, got %d", common.ErrInvalidConfig, c.Workers)
	}
	if c.QueryTimeout < 0 {
		return fmt.Errorf("%w: query timeout cannot be negative", common.ErrInvalidConfig)
	}
	return nil
}
