package review

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Veraticus/ha-outliers/internal/audit"
	"github.com/Veraticus/ha-outliers/internal/model"
	"github.com/Veraticus/ha-outliers/internal/service"
)

// ErrNoMembers is returned for a group without member records.
var ErrNoMembers = errors.New("group has no member records")

// MutationError reports a failed edit or delete. The transaction was rolled back.
type MutationError struct {
	Err      error
	Action   Action
	EntityID string
	Records  int
}

func (e *MutationError) Error() string {
	return fmt.Sprintf("%s %d record(s) of %s: %v", e.Action, e.Records, e.EntityID, e.Err)
}

func (e *MutationError) Unwrap() error {
	return e.Err
}

// Mutator applies edits and deletions to every member of a group.
type Mutator struct {
	recorder  audit.Recorder
	logger    *slog.Logger
	sessionID string
}

// MutatorOption configures a Mutator.
type MutatorOption func(*Mutator)

// WithRecorder sets where committed mutations are audited.
func WithRecorder(r audit.Recorder) MutatorOption {
	return func(m *Mutator) {
		if r != nil {
			m.recorder = r
		}
	}
}

// WithMutatorLogger sets the mutator's logger.
func WithMutatorLogger(logger *slog.Logger) MutatorOption {
	return func(m *Mutator) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// NewMutator creates a mutator for one review session.
func NewMutator(sessionID string, opts ...MutatorOption) *Mutator {
	m := &Mutator{
		sessionID: sessionID,
		recorder:  audit.Discard{},
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Edit rewrites the state of every member of g to value.
// The transaction runs to completion even if ctx is canceled mid-way.
func (m *Mutator) Edit(ctx context.Context, store service.StateWriter, g model.Group, value float64) (int64, error) {
	if g.Count() == 0 {
		return 0, &MutationError{Action: ActionEdit, EntityID: g.EntityID, Err: ErrNoMembers}
	}
	text := model.FormatValue(value)
	affected, err := store.UpdateStates(context.WithoutCancel(ctx), g.MemberIDs, text)
	if err != nil {
		return 0, &MutationError{Action: ActionEdit, EntityID: g.EntityID, Records: g.Count(), Err: err}
	}

	m.logger.Info("Updated records",
		"session_id", m.sessionID,
		"entity_id", g.EntityID,
		"value", text,
		"affected", affected)
	m.audit(audit.Entry{
		Action:    audit.ActionEdit,
		EntityID:  g.EntityID,
		RecordIDs: g.MemberIDs,
		Value:     &value,
		Affected:  affected,
	})
	return affected, nil
}

// Delete removes every member of g after clearing references to them.
func (m *Mutator) Delete(ctx context.Context, store service.StateWriter, g model.Group) (int64, error) {
	if g.Count() == 0 {
		return 0, &MutationError{Action: ActionDelete, EntityID: g.EntityID, Err: ErrNoMembers}
	}
	affected, err := store.DeleteStates(context.WithoutCancel(ctx), g.MemberIDs)
	if err != nil {
		return 0, &MutationError{Action: ActionDelete, EntityID: g.EntityID, Records: g.Count(), Err: err}
	}

	m.logger.Info("Deleted records",
		"session_id", m.sessionID,
		"entity_id", g.EntityID,
		"affected", affected)
	m.audit(audit.Entry{
		Action:    audit.ActionDelete,
		EntityID:  g.EntityID,
		RecordIDs: g.MemberIDs,
		Affected:  affected,
	})
	return affected, nil
}

// audit failures never undo a committed mutation.
func (m *Mutator) audit(entry audit.Entry) {
	entry.SessionID = m.sessionID
	if err := m.recorder.Record(entry); err != nil {
		m.logger.Warn("Failed to write audit entry", "error", err)
	}
}
