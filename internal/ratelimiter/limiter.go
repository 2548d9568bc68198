package ratelimiter

import (
	"context"
	"sync"

	"golang.org/x/time/rate"
)

// QueueLimiters holds one token bucket limiter per monitored queue, bounding
// how fast outbound callback legs may be originated. Burst is set equal to
// the rate so no extra burst capacity is allowed beyond the configured
// per-second maximum.
type QueueLimiters struct {
	mu       sync.Mutex
	perSec   rate.Limit
	burst    int
	limiters map[string]*rate.Limiter
}

// New creates a QueueLimiters granting ratePerSec originations per second per
// queue. Limiters are created lazily on first use.
func New(ratePerSec int) *QueueLimiters {
	if ratePerSec < 1 {
		ratePerSec = 1
	}
	return &QueueLimiters{
		perSec:   rate.Limit(ratePerSec),
		burst:    ratePerSec,
		limiters: make(map[string]*rate.Limiter),
	}
}

// Wait blocks until the queue's limiter grants a token. Called by the
// scheduler immediately before originating. Returns a non-nil error only if
// ctx is cancelled while waiting.
func (ql *QueueLimiters) Wait(ctx context.Context, queue string) error {
	ql.mu.Lock()
	l, ok := ql.limiters[queue]
	if !ok {
		l = rate.NewLimiter(ql.perSec, ql.burst)
		ql.limiters[queue] = l
	}
	ql.mu.Unlock()
	return l.Wait(ctx)
}
