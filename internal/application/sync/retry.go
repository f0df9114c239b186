package sync

import (
	"context"
	"strings"
	"time"
)

// retryableKeywords mark transient failures worth retrying with backoff.
var retryableKeywords = []string{
	"timeout",
	"timed out",
	"econnreset",
	"connection reset",
	"connection refused",
	"network",
	"rate limit",
	"too many requests",
	"429",
	"500",
	"502",
	"503",
	"504",
	"temporarily unavailable",
	"service unavailable",
	"eof",
}

// nonRetryableKeywords mark failures that must never be retried, even when
// attempts remain. Checked before the retryable set so "invalid" beats a
// stray "500" in the same message.
var nonRetryableKeywords = []string{
	"unauthorized",
	"401",
	"forbidden",
	"403",
	"not found",
	"404",
	"invalid",
	"malformed",
	"bad request",
	"400",
	"validation",
}

// isRetryableError classifies an error message by keyword. Platform adapters
// surface raw API errors as strings; there is no shared error taxonomy across
// marketplaces to switch on.
func isRetryableError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, kw := range nonRetryableKeywords {
		if strings.Contains(msg, kw) {
			return false
		}
	}
	for _, kw := range retryableKeywords {
		if strings.Contains(msg, kw) {
			return true
		}
	}
	return false
}

// backoffDelay returns base * 2^(attempt-1) for attempt >= 1.
func backoffDelay(base time.Duration, attempt int) time.Duration {
	if attempt <= 1 {
		return base
	}
	return base << uint(attempt-1)
}

// sleepCtx pauses for d or until the context is done.
func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
