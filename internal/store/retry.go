package store

import (
	"strings"
	"time"
)

// isBusyError checks for SQLite concurrency errors (SQLITE_BUSY or
// "database is locked") that warrant a retry.
func isBusyError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

// withBusyRetry runs fn, retrying with exponential backoff when SQLite
// reports a concurrency conflict.
func withBusyRetry(fn func() error) error {
	const maxRetries = 3
	delay := 50 * time.Millisecond

	var err error
	for i := 0; i < maxRetries; i++ {
		err = fn()
		if err == nil || !isBusyError(err) {
			return err
		}
		if i < maxRetries-1 {
			time.Sleep(delay)
			delay *= 2
		}
	}
	return err
}
