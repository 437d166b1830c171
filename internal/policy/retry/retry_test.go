package retry

import (
	"context"
	"errors"
	"fmt"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type classifiedErr struct{ retryable bool }

func (e classifiedErr) Error() string   { return "classified" }
func (e classifiedErr) Retryable() bool { return e.retryable }

// timeoutCall is a per-call deadline that the caller marked retryable.
type timeoutCall struct{}

func (timeoutCall) Error() string   { return "call timed out" }
func (timeoutCall) Unwrap() error   { return context.DeadlineExceeded }
func (timeoutCall) Retryable() bool { return true }

type timeoutErr struct{ timeout bool }

func (e timeoutErr) Error() string   { return "net" }
func (e timeoutErr) Timeout() bool   { return e.timeout }
func (e timeoutErr) Temporary() bool { return false }

var _ net.Error = timeoutErr{}

func TestShouldRetry(t *testing.T) {
	t.Parallel()

	p := New(Config{MaxAttempts: 3})
	tests := []struct {
		name    string
		err     error
		attempt int
		want    bool
	}{
		{name: "nil", err: nil, attempt: 1, want: false},
		{name: "plain", err: errors.New("connection reset"), attempt: 1, want: true},
		{name: "exhausted", err: errors.New("connection reset"), attempt: 3, want: false},
		{name: "canceled", err: fmt.Errorf("get: %w", context.Canceled), attempt: 1, want: false},
		{name: "deadline", err: context.DeadlineExceeded, attempt: 1, want: false},
		{name: "classified retryable", err: fmt.Errorf("wrap: %w", classifiedErr{retryable: true}), attempt: 2, want: true},
		{name: "classified final", err: classifiedErr{retryable: false}, attempt: 1, want: false},
		{name: "classified call timeout", err: fmt.Errorf("get: %w", timeoutCall{}), attempt: 1, want: true},
		{name: "net timeout", err: timeoutErr{timeout: true}, attempt: 1, want: true},
		{name: "net refused", err: timeoutErr{timeout: false}, attempt: 1, want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, p.ShouldRetry(tt.err, tt.attempt))
		})
	}
}

func TestBackoffBounds(t *testing.T) {
	t.Parallel()

	p := New(Config{BaseDelay: 100 * time.Millisecond, MaxDelay: time.Second})
	for attempt := 1; attempt <= 6; attempt++ {
		ceiling := time.Duration(100<<(attempt-1)) * time.Millisecond
		if ceiling > time.Second {
			ceiling = time.Second
		}
		got := p.Backoff(attempt)
		assert.GreaterOrEqual(t, got, ceiling/2, "attempt %d", attempt)
		assert.LessOrEqual(t, got, ceiling, "attempt %d", attempt)
	}
}

func TestNewDefaults(t *testing.T) {
	t.Parallel()

	p := New(Config{})
	assert.Equal(t, 3, p.maxAttempts)
	assert.Equal(t, 250*time.Millisecond, p.baseDelay)
	assert.Equal(t, 5*time.Second, p.maxDelay)
}
