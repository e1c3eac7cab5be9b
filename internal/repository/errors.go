// Package repository defines error types that are reused across multiple
// repositories. Booking outcomes (session, member and reservation lookups,
// ownership) use the sentinels of the booking package so the coordinator
// and the HTTP layer see one taxonomy; the values here cover the
// administrative CRUD surface.
package repository

import (
	"errors"
	"strings"

	"github.com/go-sql-driver/mysql"
)

// ErrNotFound is returned when a pack, payment or token does not exist.
// Handlers should translate this into an HTTP 404 response.
var ErrNotFound = errors.New("not found")

// ErrConflict is returned when a delete or update cannot be
// performed because of conflicting state, such as attempting to
// delete a member who still holds confirmed reservations. Handlers
// should translate this into an HTTP 409 response.
var ErrConflict = errors.New("conflict")

// ErrEmailExists is returned when registering an email already in use.
var ErrEmailExists = errors.New("email already exists")

// mysqlDuplicateEntry is ER_DUP_ENTRY.
const mysqlDuplicateEntry = 1062

// isDuplicate reports whether err is a unique key violation.  When key
// is non-empty the violated index name must appear in the message.
func isDuplicate(err error, key string) bool {
	var me *mysql.MySQLError
	if !errors.As(err, &me) || me.Number != mysqlDuplicateEntry {
		return false
	}
	return key == "" || strings.Contains(me.Message, key)
}

// rowser is implemented by *sql.Row and *sql.Rows.
type rowser interface {
	Scan(dest ...any) error
}
