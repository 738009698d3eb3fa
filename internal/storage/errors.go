package storage

import (
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"io"
	"net"
	"syscall"

	"github.com/go-sql-driver/mysql"
)

// ErrConnectionLost marks failures caused by the database connection going away.
// Callers may reconnect and retry.
var ErrConnectionLost = errors.New("database connection lost")

// IsConnectionLost reports whether err means the connection is no longer usable.
func IsConnectionLost(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrConnectionLost) ||
		errors.Is(err, driver.ErrBadConn) ||
		errors.Is(err, mysql.ErrInvalidConn) ||
		errors.Is(err, sql.ErrConnDone) ||
		errors.Is(err, io.EOF) ||
		errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.EPIPE) {
		return true
	}

	var netErr net.Error
	return errors.As(err, &netErr)
}

// wrapErr annotates err with op and tags connection failures with ErrConnectionLost.
func wrapErr(op string, err error) error {
	if err == nil {
		return nil
	}
	if IsConnectionLost(err) && !errors.Is(err, ErrConnectionLost) {
		return fmt.Errorf("%s: %w: %w", op, ErrConnectionLost, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}
