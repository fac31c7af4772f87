package core

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShouldRetryWithinBudget(t *testing.T) {
	p := NewRetryPolicy()
	task := Task{RetryCount: 0, MaxRetries: 3}
	assert.True(t, p.ShouldRetry(task))
}

func TestShouldRetryCappedByGlobalMax(t *testing.T) {
	p := NewRetryPolicy()
	task := Task{RetryCount: 1, MaxRetries: 5}
	assert.False(t, p.ShouldRetry(task), "global max retries is 1, so a second attempt should not be allowed")
}

func TestShouldRetryCappedByTaskMax(t *testing.T) {
	p := &RetryPolicy{globalMaxRetries: 10}
	task := Task{RetryCount: 2, MaxRetries: 2}
	assert.False(t, p.ShouldRetry(task))
}

func TestPrepareRetryContextTruncates(t *testing.T) {
	p := NewRetryPolicy()
	long := strings.Repeat("x", 5000)
	ctx := p.PrepareRetryContext(Task{RetryCount: 0}, long)

	require.Contains(t, ctx, "PREVIOUS ATTEMPT FAILED (attempt 1):")
	// The embedded error body itself must be truncated to 2000 runes even
	// though the surrounding template text pushes the whole string longer.
	body := strings.TrimSuffix(strings.TrimPrefix(ctx, "PREVIOUS ATTEMPT FAILED (attempt 1):\nError: "),
		"\n\nPlease address this error and try a different approach if needed.")
	assert.Len(t, []rune(body), retryContextMaxLen)
}
