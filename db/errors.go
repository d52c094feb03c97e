package db

import (
	"strings"

	"github.com/carlospaes120/scapegoat/errors"
)

// ErrDatabaseClosed is returned when a run is persisted after the database
// was closed, typically when an interrupted compute shuts down mid-write.
var ErrDatabaseClosed = errors.New("database is closed")

// IsDatabaseClosed reports whether err is ErrDatabaseClosed or the sql
// driver's own closed-connection error, which cannot be wrapped at source.
func IsDatabaseClosed(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrDatabaseClosed) {
		return true
	}
	return strings.Contains(err.Error(), "database is closed")
}

// IsBusy reports whether err is SQLite's lock-contention error.
func IsBusy(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "database is locked") || strings.Contains(msg, "SQLITE_BUSY")
}
