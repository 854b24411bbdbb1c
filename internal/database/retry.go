package database

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"wainbox/internal/constants"
)

// retryableDBOperationNoReturn executes a database operation that returns only an error with retry logic
func retryableDBOperationNoReturn(ctx context.Context, operation func() error, operationName string) error {
	var lastErr error

	maxAttempts := constants.DefaultDatabaseRetryAttempts
	initialBackoff := time.Duration(constants.DefaultRetryBackoffMs) * time.Millisecond

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		err := operation()
		if err == nil {
			return nil
		}

		lastErr = err

		if !isRetryableDBError(err) {
			return fmt.Errorf("%s failed (non-retryable): %w", operationName, err)
		}

		if attempt == maxAttempts {
			break
		}

		backoff := time.Duration(attempt) * initialBackoff
		if backoff > time.Duration(constants.DefaultMaxBackoffMs)*time.Millisecond {
			backoff = time.Duration(constants.DefaultMaxBackoffMs) * time.Millisecond
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxAttempts, lastErr)
}

// isRetryableDBError determines if a database error is worth retrying
func isRetryableDBError(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	errStr := err.Error()

	// SQLite lock contention is the common transient case under
	// concurrent webhook deliveries
	if strings.Contains(errStr, "database is locked") {
		return true
	}

	if strings.Contains(errStr, "disk I/O error") {
		return true
	}

	// Constraint violations carry meaning (duplicate delivery) and must
	// surface to the caller unchanged
	if strings.Contains(errStr, "UNIQUE constraint") || strings.Contains(errStr, "FOREIGN KEY constraint") {
		return false
	}

	if strings.Contains(errStr, "no such table") || strings.Contains(errStr, "no such column") {
		return false
	}

	return false
}
