package model

import (
	"math"
	"strconv"
	"strings"
)

// SentinelStates are recorder states that never represent a measurement.
var SentinelStates = []string{"unavailable", "unknown", ""}

// IsSentinel reports whether a raw state is one of the non-measurement sentinels.
func IsSentinel(state string) bool {
	for _, s := range SentinelStates {
		if state == s {
			return true
		}
	}
	return false
}

// ParseValue tries to interpret a raw state as a finite number.
func ParseValue(state string) (float64, bool) {
	state = strings.TrimSpace(state)
	if IsSentinel(state) {
		return 0, false
	}
	v, err := strconv.ParseFloat(state, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

// FormatValue renders a value the way it is written back to the states table.
func FormatValue(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
