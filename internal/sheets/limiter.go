package sheets

// limiter.go bounds the number of in-flight spreadsheet API calls.
//
// Remote spreadsheet APIs enforce per-minute quotas and degrade badly under
// bursts. The limiter is a semaphore: when all slots are busy a call waits
// up to maxWait and then fails with ErrTooManyRequests. WaitForDrain lets
// shutdown wait for writes that are already on the wire.

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrTooManyRequests is returned when all call slots are occupied and the
// wait timeout expires. Clients should retry after a short delay.
var ErrTooManyRequests = errors.New("too many concurrent spreadsheet requests, please try again later")

// DefaultMaxConcurrentCalls is the default limit for parallel calls.
const DefaultMaxConcurrentCalls = 4

// DefaultMaxWaitTime is how long to wait for a slot before rejecting.
const DefaultMaxWaitTime = 10 * time.Second

// CallLimiter controls concurrent spreadsheet calls using a semaphore.
type CallLimiter struct {
	semaphore chan struct{}
	maxWait   time.Duration

	mu     sync.RWMutex
	active int
}

// NewCallLimiter creates a limiter that allows at most maxConcurrent simultaneous calls.
// Calls that cannot acquire a slot within maxWait receive ErrTooManyRequests.
func NewCallLimiter(maxConcurrent int, maxWait time.Duration) *CallLimiter {
	if maxConcurrent <= 0 {
		maxConcurrent = DefaultMaxConcurrentCalls
	}
	if maxWait <= 0 {
		maxWait = DefaultMaxWaitTime
	}

	return &CallLimiter{
		semaphore: make(chan struct{}, maxConcurrent),
		maxWait:   maxWait,
	}
}

// Acquire attempts to acquire a call slot.
// Returns nil on success, ErrTooManyRequests if the wait expires.
// The caller MUST call Release() when the call completes.
func (l *CallLimiter) Acquire(ctx context.Context) error {
	waitCtx, cancel := context.WithTimeout(ctx, l.maxWait)
	defer cancel()

	select {
	case l.semaphore <- struct{}{}:
		l.mu.Lock()
		l.active++
		l.mu.Unlock()
		return nil

	case <-waitCtx.Done():
		// Distinguish caller cancellation from our own wait timeout
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return ErrTooManyRequests
	}
}

// Release releases a previously acquired slot.
// Must be called exactly once for each successful Acquire.
func (l *CallLimiter) Release() {
	l.mu.Lock()
	l.active--
	l.mu.Unlock()

	<-l.semaphore
}

// ActiveCount returns the number of calls in flight.
func (l *CallLimiter) ActiveCount() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.active
}

// MaxConcurrent returns the maximum allowed concurrent calls.
func (l *CallLimiter) MaxConcurrent() int {
	return cap(l.semaphore)
}

// Available returns the number of free slots.
func (l *CallLimiter) Available() int {
	return cap(l.semaphore) - len(l.semaphore)
}

// WaitForDrain blocks until no call is in flight or ctx is done.
func (l *CallLimiter) WaitForDrain(ctx context.Context) error {
	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()

	for {
		if l.ActiveCount() == 0 {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// LimiterStatus is a snapshot of the limiter's state.
type LimiterStatus struct {
	Active        int `json:"active"`
	Available     int `json:"available"`
	MaxConcurrent int `json:"max_concurrent"`
}

// Status returns the current limiter state; /healthz reports it.
func (l *CallLimiter) Status() LimiterStatus {
	return LimiterStatus{
		Active:        l.ActiveCount(),
		Available:     l.Available(),
		MaxConcurrent: l.MaxConcurrent(),
	}
}
