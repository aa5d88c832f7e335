// Package store implements the three state-management stores over the local
// SQLite database: users/authentication, the active step log, and the
// archive. Each store exclusively owns its tables, consults the shared
// session state for per-row authorization, and keeps an in-memory cache of
// the acting user's rows that is refreshed after every mutation.
package store

import (
	"strings"
	"time"
)

// nowMillis returns the current time in epoch milliseconds (users table).
func nowMillis() int64 { return time.Now().UnixMilli() }

// nowUnix returns the current time in epoch seconds (activity tables).
func nowUnix() int64 { return time.Now().Unix() }

// isUniqueViolation reports whether err is a SQLite uniqueness violation.
// Registration relies on this for the race between the pre-insert existence
// check and the insert itself.
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
