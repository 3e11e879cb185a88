package dispatch

import (
	"regexp"
	"time"
)

const (
	// maxAttempts bounds the retry loop for MCP tool execution. API tools
	// execute once; their transport handles timeouts itself.
	maxAttempts = 2

	retryBaseBackoff = 1 * time.Second
	retryMaxBackoff  = 5 * time.Second
)

// retryablePatterns classify an execution error as transient. Access,
// validation and not-found errors never match these and are never retried.
var retryablePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)connection`),
	regexp.MustCompile(`(?i)timeout`),
	regexp.MustCompile(`(?i)network`),
	regexp.MustCompile(`(?i)temporary`),
	regexp.MustCompile(`(?i)unavailable`),
}

// isRetryable reports whether an execution error should go through the
// retry loop.
func isRetryable(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	for _, pattern := range retryablePatterns {
		if pattern.MatchString(msg) {
			return true
		}
	}
	return false
}

// backoffForAttempt computes 1s × 2^(attempt−1), capped at 5s.
func backoffForAttempt(attempt int) time.Duration {
	backoff := retryBaseBackoff
	for i := 1; i < attempt; i++ {
		backoff *= 2
		if backoff >= retryMaxBackoff {
			return retryMaxBackoff
		}
	}
	return backoff
}
