package llm

import (
	"context"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
)

const maxAttempts = 3

// baseDelay grows linearly with the attempt number. Overridden in tests.
var baseDelay = 2 * time.Second

// isOverloaded reports whether the error looks like a transient capacity
// problem worth retrying.
func isOverloaded(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "503") ||
		strings.Contains(msg, "UNAVAILABLE") ||
		strings.Contains(strings.ToLower(msg), "overloaded")
}

// withRetry runs fn up to maxAttempts times, sleeping baseDelay*attempt
// between tries. Only overload-shaped errors are retried.
func withRetry(ctx context.Context, fn func() (string, error)) (string, error) {
	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		out, errCall := fn()
		if errCall == nil {
			return out, nil
		}
		lastErr = errCall
		if !isOverloaded(errCall) || attempt == maxAttempts {
			break
		}

		wait := baseDelay * time.Duration(attempt)
		log.Warnf("llm: model overloaded, retrying in %s (attempt %d/%d)", wait, attempt, maxAttempts)
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(wait):
		}
	}
	return "", lastErr
}
