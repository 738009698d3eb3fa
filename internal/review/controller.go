package review

import (
	"context"
	"errors"
	"log/slog"

	"github.com/Veraticus/ha-outliers/internal/storage"
)

// Outcome describes a finished mutation attempt.
type Outcome struct {
	Err         error
	Selection   Selection
	Affected    int64
	Reconnected bool
}

// Committed reports whether the group was changed in the database.
func (o Outcome) Committed() bool {
	return o.Err == nil
}

// Controller ties a session to the database. Both front ends drive it.
type Controller struct {
	session *Session
	mutator *Mutator
	conn    *Connection
	logger  *slog.Logger
}

// NewController creates a controller.
func NewController(session *Session, mutator *Mutator, conn *Connection, logger *slog.Logger) *Controller {
	if logger == nil {
		logger = slog.Default()
	}
	return &Controller{
		session: session,
		mutator: mutator,
		conn:    conn,
		logger:  logger,
	}
}

// Session returns the controlled session.
func (c *Controller) Session() *Session {
	return c.session
}

// Apply executes the pending selection. value is ignored for deletions.
// A lost connection triggers a reconnect; the operator then retries the
// command. Either way the session returns to browsing.
func (c *Controller) Apply(ctx context.Context, value float64) Outcome {
	sel, err := c.session.BeginMutation()
	if err != nil {
		return Outcome{Err: err}
	}

	out := Outcome{Selection: sel}
	store := c.conn.Store()
	switch sel.Action {
	case ActionEdit:
		out.Affected, out.Err = c.mutator.Edit(ctx, store, sel.Group, value)
	case ActionDelete:
		out.Affected, out.Err = c.mutator.Delete(ctx, store, sel.Group)
	default:
		out.Err = ErrInvalidCommand
	}

	if out.Err != nil && storage.IsConnectionLost(out.Err) {
		c.logger.Warn("Connection lost, reconnecting", "entity_id", sel.Group.EntityID)
		if rerr := c.conn.Reconnect(ctx); rerr != nil {
			out.Err = errors.Join(out.Err, rerr)
		} else {
			out.Reconnected = true
		}
	}

	if err := c.session.CompleteMutation(out.Err == nil); err != nil {
		out.Err = errors.Join(out.Err, err)
	}
	return out
}
