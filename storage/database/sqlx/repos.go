// Package sqlxrepos implements the repositories over PostgreSQL via sqlx.
package sqlxrepos

import (
	"database/sql"

	"github.com/lib/pq"
	"github.com/pkg/errors"
)

const uniqueViolation = "23505"

// violatesUnique reports whether err is a unique-constraint violation on the
// named constraint. The storage-level backstop for invariants the services
// pre-check (duplicate attendance date, duplicate email).
func violatesUnique(err error, constraint string) bool {
	if pqErr, ok := errors.Cause(err).(*pq.Error); ok {
		return pqErr.Code == uniqueViolation && pqErr.Constraint == constraint
	}
	return false
}

// trapNoRowsErr maps psql "no rows" err to the package's not-found error.
func trapNoRowsErr(err error, notFound error, msg string) error {
	if errors.Cause(err) == sql.ErrNoRows {
		return notFound
	}
	return errors.Wrap(err, msg)
}
