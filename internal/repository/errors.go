// Package repository holds the MySQL data access code.  The sentinel errors
// below let the service and handler layers tell failure scenarios apart
// without inspecting driver errors.
package repository

import (
	"errors"

	"github.com/go-sql-driver/mysql"
)

// ErrNotFound is returned when a row addressed by id or code does not
// exist.  Handlers translate it into HTTP 404.
var ErrNotFound = errors.New("not found")

// ErrForbidden is returned when the caller attempts an operation on a
// resource they do not own.  Handlers translate it into HTTP 403.
var ErrForbidden = errors.New("forbidden")

// ErrConflict signals that an update cannot be applied to the row in its
// current state (e.g. moving an unpaid order to A_TRAITER).  HTTP 409.
var ErrConflict = errors.New("conflict")

// ErrInsufficientStock is returned by the conditional stock decrement when
// a volume holds fewer bottles than the order item requires.
var ErrInsufficientStock = errors.New("insufficient stock")

// ErrEmailExists is returned by UserRepo.Create on a duplicate email.
var ErrEmailExists = errors.New("email already exists")

// ErrMemberCodeTaken is returned by UserRepo.Create when the generated
// member code collides with an existing one; callers retry with a new code.
var ErrMemberCodeTaken = errors.New("member code already taken")

// isDuplicate reports whether err is a MySQL unique-key violation (1062).
func isDuplicate(err error) bool {
	var me *mysql.MySQLError
	return errors.As(err, &me) && me.Number == 1062
}
