// Package service defines the interfaces for all application services.
package service

import (
	"context"
	"time"

	"github.com/Veraticus/ha-outliers/internal/model"
)

// StateReader is the read surface the scanner needs from the recorder database.
type StateReader interface {
	// ListSources returns entities whose id starts with one of the prefixes,
	// together with their most recent valid state.
	ListSources(ctx context.Context, prefixes []string) ([]model.CandidateSource, error)
	// SourceStats computes count, mean and population standard deviation over valid samples.
	SourceStats(ctx context.Context, source model.CandidateSource) (model.SourceStats, error)
	// SamplesOutside returns valid samples strictly below lower or strictly above upper.
	SamplesOutside(ctx context.Context, sourceID int64, lower, upper float64) ([]model.Sample, error)
}

// StateWriter is the mutation surface. Each call is one atomic transaction.
type StateWriter interface {
	// UpdateStates rewrites the state of every record in ids and returns rows affected.
	UpdateStates(ctx context.Context, ids []int64, value string) (int64, error)
	// DeleteStates clears back-references to ids, deletes the records and returns rows deleted.
	DeleteStates(ctx context.Context, ids []int64) (int64, error)
}

// Storage defines the contract for our persistence layer.
type Storage interface {
	StateReader
	StateWriter
	Ping(ctx context.Context) error
	Close() error
}

// PoolSizer is implemented by stores whose connection pool can be widened for
// concurrent reads.
type PoolSizer interface {
	SetPoolSize(n int)
}

// RetryOptions configures retry behavior for operations.
type RetryOptions struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
}
