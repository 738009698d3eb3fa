// Package storage provides read and mutation access to the Home Assistant recorder database.
package storage

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
)

// Validation errors.
var (
	ErrNilContext   = errors.New("context cannot be nil")
	ErrEmptyString  = errors.New("string parameter cannot be empty")
	ErrEmptySlice   = errors.New("slice cannot be empty")
	ErrInvalidRange = errors.New("lower bound must not exceed upper bound")
	ErrInvalidID    = errors.New("record id must be positive")
)

// validateContext ensures the context is not nil.
func validateContext(ctx context.Context) error {
	if ctx == nil {
		return ErrNilContext
	}
	return nil
}

// validateString ensures a string parameter is not empty.
func validateString(s string, paramName string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("%w: %s", ErrEmptyString, paramName)
	}
	return nil
}

// validateIDs ensures a batch of record ids is usable.
func validateIDs(ids []int64) error {
	if len(ids) == 0 {
		return fmt.Errorf("%w: ids", ErrEmptySlice)
	}
	for i, id := range ids {
		if id <= 0 {
			return fmt.Errorf("%w: ids[%d]=%d", ErrInvalidID, i, id)
		}
	}
	return nil
}

// validatePrefixes ensures at least one non-empty entity prefix is given.
func validatePrefixes(prefixes []string) error {
	if len(prefixes) == 0 {
		return fmt.Errorf("%w: prefixes", ErrEmptySlice)
	}
	for i, p := range prefixes {
		if err := validateString(p, fmt.Sprintf("prefixes[%d]", i)); err != nil {
			return err
		}
	}
	return nil
}

// validateRange ensures the bounds are ordered and finite.
func validateRange(lower, upper float64) error {
	if math.IsNaN(lower) || math.IsNaN(upper) || lower > upper {
		return fmt.Errorf("%w: [%v, %v]", ErrInvalidRange, lower, upper)
	}
	return nil
}
