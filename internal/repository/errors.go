// Package repository implements the data access layer over MySQL.  This
// file defines sentinel error values reused across repositories.  They let
// handlers map storage failures onto HTTP statuses without inspecting
// driver errors themselves.  The final authority on uniqueness and
// referential integrity is always the database constraint; the sentinels
// only report which constraint was hit.
package repository

import (
	"errors"

	"github.com/go-sql-driver/mysql"
)

// ErrNotFound is returned when a requested row does not exist or is not
// visible to the caller.
var ErrNotFound = errors.New("not found")

// ErrForbidden is returned when the caller attempts an operation on a
// resource they do not own.  Handlers translate this into HTTP 403.
var ErrForbidden = errors.New("forbidden")

// ErrDuplicate is returned when an insert races past the uniqueness
// pre-check and the storage-layer constraint fires.  The transaction is
// rolled back; handlers surface this as a generic creation failure.
var ErrDuplicate = errors.New("duplicate row")

// ErrHostedClubs is returned when a user cannot be deleted because clubs
// still reference them as host.  The clubs.host_id RESTRICT constraint is
// the backstop.
var ErrHostedClubs = errors.New("user still hosts clubs")

// ErrAlreadyEnrolled is returned when the (user, club) enrollment pair
// already exists.
var ErrAlreadyEnrolled = errors.New("already enrolled")

// ErrNotEnrolled is returned when an enrollment-scoped operation finds no
// enrollment for the caller.
var ErrNotEnrolled = errors.New("not enrolled")

// ErrClubNotOpen is returned when enrolling into a club that is no longer
// SCHEDULED.
var ErrClubNotOpen = errors.New("club not open for enrollment")

// ErrLevelUnknown is returned when a club references a level code that is
// not in the seeded reference table.
var ErrLevelUnknown = errors.New("unknown level code")

// ErrAlreadyWishlisted is returned when the composite wishlist key
// already exists.
var ErrAlreadyWishlisted = errors.New("already on wishlist")

// MySQL error numbers used to classify constraint violations.
const (
	mysqlErrDupEntry      = 1062 // ER_DUP_ENTRY
	mysqlErrRowReferenced = 1451 // ER_ROW_IS_REFERENCED_2 (RESTRICT)
	mysqlErrNoReferenced  = 1452 // ER_NO_REFERENCED_ROW_2 (missing FK target)
)

// isMySQLErr reports whether err is a MySQL error with the given number.
func isMySQLErr(err error, number uint16) bool {
	var me *mysql.MySQLError
	return errors.As(err, &me) && me.Number == number
}
