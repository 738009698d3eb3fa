package storage

import (
	"context"
	"database/sql"
	"fmt"
)

// maxBatch bounds the number of ids bound into a single IN list.
const maxBatch = 500

// UpdateStates rewrites the state of every record in ids inside one transaction.
func (s *SQLStorage) UpdateStates(ctx context.Context, ids []int64, value string) (int64, error) {
	if err := validateContext(ctx); err != nil {
		return 0, err
	}
	if err := validateIDs(ids); err != nil {
		return 0, err
	}
	if err := validateString(value, "value"); err != nil {
		return 0, err
	}

	var affected int64
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		for _, chunk := range chunkIDs(ids, maxBatch) {
			args := make([]any, 0, len(chunk)+1)
			args = append(args, value)
			args = append(args, idArgs(chunk)...)

			res, err := tx.ExecContext(ctx,
				fmt.Sprintf("UPDATE states SET state = ? WHERE state_id IN (%s)", placeholders(len(chunk))),
				args...)
			if err != nil {
				return wrapErr("failed to update states", err)
			}
			n, err := res.RowsAffected()
			if err != nil {
				return wrapErr("failed to read affected rows", err)
			}
			affected += n
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return affected, nil
}

// DeleteStates removes the records in ids. Any other record whose old_state_id
// points at one of them is unlinked first, all within one transaction.
func (s *SQLStorage) DeleteStates(ctx context.Context, ids []int64) (int64, error) {
	if err := validateContext(ctx); err != nil {
		return 0, err
	}
	if err := validateIDs(ids); err != nil {
		return 0, err
	}

	chunks := chunkIDs(ids, maxBatch)

	var deleted int64
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		for _, chunk := range chunks {
			_, err := tx.ExecContext(ctx,
				fmt.Sprintf("UPDATE states SET old_state_id = NULL WHERE old_state_id IN (%s)", placeholders(len(chunk))),
				idArgs(chunk)...)
			if err != nil {
				return wrapErr("failed to unlink old states", err)
			}
		}

		for _, chunk := range chunks {
			res, err := tx.ExecContext(ctx,
				fmt.Sprintf("DELETE FROM states WHERE state_id IN (%s)", placeholders(len(chunk))),
				idArgs(chunk)...)
			if err != nil {
				return wrapErr("failed to delete states", err)
			}
			n, err := res.RowsAffected()
			if err != nil {
				return wrapErr("failed to read affected rows", err)
			}
			deleted += n
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return deleted, nil
}

// withTx runs fn in a transaction, committing on success and rolling back otherwise.
func (s *SQLStorage) withTx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return wrapErr("failed to begin transaction", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return wrapErr("failed to commit transaction", err)
	}
	return nil
}

func chunkIDs(ids []int64, size int) [][]int64 {
	var chunks [][]int64
	for start := 0; start < len(ids); start += size {
		end := min(start+size, len(ids))
		chunks = append(chunks, ids[start:end])
	}
	return chunks
}

func idArgs(ids []int64) []any {
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	return args
}
