package config

import (
	"time"

	"github.com/spf13/viper"
)

// Settings keys.
const (
	KeyLogLevel           = "logging.level"
	KeyLogFormat          = "logging.format"
	KeySigma              = "detection.sigma"
	KeyMinSamples         = "detection.min_samples"
	KeyFrequencyThreshold = "detection.frequency_threshold"
	KeyPrefixes           = "detection.prefixes"
	KeyWorkers            = "detection.workers"
	KeyQueryTimeout       = "detection.query_timeout"
	KeyFailFast           = "detection.fail_fast"
	KeyPageSize           = "review.page_size"
	KeyConnectTimeout     = "connection.timeout"
	KeyProfilePath        = "connection.profile"
	KeyAuditPath          = "audit.path"
)

// DefaultAuditPath is the append-only log of committed mutations.
const DefaultAuditPath = "~/.local/state/ha-outliers/audit.log"

// SetDefaults registers default values for every settings key.
func SetDefaults(v *viper.Viper) {
	v.SetDefault(KeyLogLevel, "info")
	v.SetDefault(KeyLogFormat, "console")
	v.SetDefault(KeySigma, 5.0)
	v.SetDefault(KeyMinSamples, 200)
	v.SetDefault(KeyFrequencyThreshold, 0.01)
	v.SetDefault(KeyPrefixes, []string{"sensor.", "number.", "counter.", "input_number."})
	v.SetDefault(KeyWorkers, 4)
	v.SetDefault(KeyQueryTimeout, 2*time.Minute)
	v.SetDefault(KeyFailFast, false)
	v.SetDefault(KeyPageSize, 25)
	v.SetDefault(KeyConnectTimeout, 10*time.Second)
	v.SetDefault(KeyProfilePath, DefaultProfilePath)
	v.SetDefault(KeyAuditPath, DefaultAuditPath)
}
