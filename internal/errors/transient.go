// transient.go: classification of errors into retryable and terminal
package errors

import (
	"context"
)

// IsTransient reports whether err is worth retrying. Network failures and
// timeouts are transient; everything else, including context cancellation,
// is terminal. A deadline on a single attempt counts as transient because
// the next attempt gets a fresh deadline.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}

	// A canceled context means the whole run is shutting down, not that
	// this attempt happened to fail.
	if Is(err, context.Canceled) {
		return false
	}
	if Is(err, context.DeadlineExceeded) {
		return true
	}

	var ee *EnhancedError
	if As(err, &ee) {
		switch ee.Category {
		case CategoryNetwork, CategoryTimeout:
			return true
		}
	}

	return false
}
