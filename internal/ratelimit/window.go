package ratelimit

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// DefaultSweepInterval is how often expired window records are purged
const DefaultSweepInterval = 10 * time.Minute

// Policy is the quota of one endpoint
type Policy struct {
	Window      time.Duration
	MaxRequests int
}

// Result is the outcome of a single Check
type Result struct {
	Success   bool
	Limit     int
	Remaining int
	Reset     time.Time
}

// WindowLimiter is a fixed-window request counter keyed by client and
// endpoint. All requests in a window share one reset instant; bursts at
// window edges are not smoothed.
//
// Create it with NewWindowLimiter, call Start once to launch the sweep and
// Close on shutdown.
type WindowLimiter struct {
	store         Store
	now           func() time.Time
	sweepInterval time.Duration

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// Option configures a WindowLimiter
type Option func(*WindowLimiter)

// WithClock replaces time.Now
func WithClock(now func() time.Time) Option {
	return func(l *WindowLimiter) {
		l.now = now
	}
}

// WithSweepInterval overrides DefaultSweepInterval
func WithSweepInterval(d time.Duration) Option {
	return func(l *WindowLimiter) {
		if d > 0 {
			l.sweepInterval = d
		}
	}
}

// NewWindowLimiter creates a limiter on top of store (a MemoryStore when nil)
func NewWindowLimiter(store Store, opts ...Option) *WindowLimiter {
	if store == nil {
		store = NewMemoryStore()
	}
	l := &WindowLimiter{
		store:         store,
		now:           time.Now,
		sweepInterval: DefaultSweepInterval,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Key builds the store key for a client and endpoint
func Key(clientID, endpoint string) string {
	return clientID + ":" + endpoint
}

// Check admits or rejects one request. It never fails: a store error is
// logged and the request is admitted.
func (l *WindowLimiter) Check(ctx context.Context, clientID, endpoint string, policy Policy) Result {
	key := Key(clientID, endpoint)
	now := l.now()

	rec, ok, err := l.store.Get(ctx, key)
	if err != nil {
		log.Warn().Err(err).Str("key", key).Msg("Rate limit store read failed, admitting request")
		return Result{
			Success:   true,
			Limit:     policy.MaxRequests,
			Remaining: policy.MaxRequests,
			Reset:     now.Add(policy.Window),
		}
	}

	if !ok || now.After(rec.ResetTime) {
		rec = Record{Count: 0, ResetTime: now.Add(policy.Window)}
		l.save(ctx, key, rec)
	}

	if rec.Count >= policy.MaxRequests {
		return Result{
			Success:   false,
			Limit:     policy.MaxRequests,
			Remaining: 0,
			Reset:     rec.ResetTime,
		}
	}

	rec.Count++
	l.save(ctx, key, rec)

	return Result{
		Success:   true,
		Limit:     policy.MaxRequests,
		Remaining: policy.MaxRequests - rec.Count,
		Reset:     rec.ResetTime,
	}
}

func (l *WindowLimiter) save(ctx context.Context, key string, rec Record) {
	if err := l.store.Set(ctx, key, rec); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("Rate limit store write failed")
	}
}

// Sweep removes every expired record once
func (l *WindowLimiter) Sweep(ctx context.Context) int {
	removed, err := l.store.Sweep(ctx, l.now())
	if err != nil {
		log.Warn().Err(err).Msg("Rate limit sweep failed")
		return 0
	}
	if removed > 0 {
		log.Debug().Int("removed", removed).Msg("Swept expired rate limit records")
	}
	return removed
}

// Start launches the periodic sweep. Calling it twice is a no-op.
func (l *WindowLimiter) Start(ctx context.Context) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.cancel != nil {
		return
	}

	ctx, cancel := context.WithCancel(ctx)
	l.cancel = cancel
	l.done = make(chan struct{})

	go l.sweepLoop(ctx, l.done)
}

func (l *WindowLimiter) sweepLoop(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(l.sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			l.Sweep(ctx)
		case <-ctx.Done():
			log.Debug().Msg("Rate limit sweep stopped")
			return
		}
	}
}

// Close stops the sweep goroutine and waits for it to exit
func (l *WindowLimiter) Close() {
	l.mu.Lock()
	cancel, done := l.cancel, l.done
	l.cancel, l.done = nil, nil
	l.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}
