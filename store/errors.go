package store

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

// ErrTransient classifies a store failure as connectivity loss rather than
// a schema/constraint problem, per spec's "connectivity loss is surfaced
// upward as a transient error; schema errors are fatal" contract.
var ErrTransient = errors.New("store: transient error")

// classify wraps err with ErrTransient when its root cause looks like a
// connection-class failure: a *pgconn.PgError whose SQLSTATE class is "08"
// (connection exception) or "57" (operator intervention, e.g. admin
// shutdown), or any error surfaced before a *pgconn.PgError could even be
// produced (dial failures, timeouts) which gorm reports as a bare Go error
// with no SQLSTATE at all.
func classify(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		if strings.HasPrefix(pgErr.Code, "08") || strings.HasPrefix(pgErr.Code, "57") {
			return fmt.Errorf("%w: %v", ErrTransient, err)
		}
		return err
	}
	// No SQLSTATE available at all: this is a driver/network-level error
	// (connection refused, i/o timeout) rather than anything the server
	// rejected, so it is transient by elimination.
	return fmt.Errorf("%w: %v", ErrTransient, err)
}
