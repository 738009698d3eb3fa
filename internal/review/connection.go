package review

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/Veraticus/ha-outliers/internal/common"
	"github.com/Veraticus/ha-outliers/internal/service"
)

// Connector opens a new database handle.
type Connector func(ctx context.Context) (service.Storage, error)

// Connection owns the session's database handle and replaces it after a
// connection loss.
type Connection struct {
	store   service.Storage
	connect Connector
	logger  *slog.Logger
	retry   service.RetryOptions
	mu      sync.Mutex
}

// NewConnection wraps an already open store.
func NewConnection(store service.Storage, connect Connector, retry service.RetryOptions, logger *slog.Logger) *Connection {
	if logger == nil {
		logger = slog.Default()
	}
	return &Connection{
		store:   store,
		connect: connect,
		retry:   retry,
		logger:  logger,
	}
}

// Store returns the current handle.
func (c *Connection) Store() service.Storage {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.store
}

// Reconnect opens a fresh handle, retrying with backoff, and closes the old
// one. On failure the old handle is kept so a later attempt can try again.
func (c *Connection) Reconnect(ctx context.Context) error {
	var fresh service.Storage
	err := common.WithRetry(ctx, func() error {
		s, err := c.connect(ctx)
		if err != nil {
			return err
		}
		fresh = s
		return nil
	}, c.retry)
	if err != nil {
		return fmt.Errorf("reconnect: %w", err)
	}

	c.mu.Lock()
	old := c.store
	c.store = fresh
	c.mu.Unlock()

	if old != nil {
		if err := old.Close(); err != nil {
			c.logger.Debug("Closing stale connection failed", "error", err)
		}
	}
	c.logger.Info("Reconnected to database")
	return nil
}

// Close releases the current handle.
func (c *Connection) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.store == nil {
		return nil
	}
	err := c.store.Close()
	c.store = nil
	return err
}
