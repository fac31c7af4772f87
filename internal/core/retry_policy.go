package core

import "fmt"

// GlobalMaxRetries bounds every task's retry count regardless of its own
// MaxRetries, matching the reference implementation's MAX_RETRIES_DEFAULT.
const GlobalMaxRetries = 1

// RetryPolicy decides whether a failed task should be retried and builds the
// retry-context brief addendum the next worker invocation sees.
type RetryPolicy struct {
	globalMaxRetries int
}

// NewRetryPolicy constructs a RetryPolicy using GlobalMaxRetries as the
// ceiling.
func NewRetryPolicy() *RetryPolicy {
	return &RetryPolicy{globalMaxRetries: GlobalMaxRetries}
}

// ShouldRetry reports whether task should move Failed -> Retrying rather
// than Failed -> Paused.
func (p *RetryPolicy) ShouldRetry(task Task) bool {
	max := task.MaxRetries
	if p.globalMaxRetries < max {
		max = p.globalMaxRetries
	}
	return task.RetryCount < max
}

const retryContextMaxLen = 2000

// PrepareRetryContext builds the fixed-format addendum embedded in a retried
// task's next brief.
func (p *RetryPolicy) PrepareRetryContext(task Task, errorOutput string) string {
	truncated := errorOutput
	runes := []rune(truncated)
	if len(runes) > retryContextMaxLen {
		truncated = string(runes[:retryContextMaxLen])
	}
	return fmt.Sprintf(
		"PREVIOUS ATTEMPT FAILED (attempt %d):\n"+
			"Error: %s\n\n"+
			"Please address this error and try a different approach if needed.",
		task.RetryCount+1, truncated,
	)
}
