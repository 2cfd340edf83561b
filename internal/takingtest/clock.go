package takingtest

import (
	"context"
	"errors"
	"sync"
	"time"
)

// DefaultTickInterval is how often a running Clock publishes the remaining time.
const DefaultTickInterval = time.Second

// ErrClockStarted is returned when Start is called on a clock that already ran.
var ErrClockStarted = errors.New("clock already started")

// Clock counts down to a fixed deadline and signals expiry exactly once.
// A Clock is single use: once stopped or expired it is inert, and a changed deadline
// requires a new Clock.
type Clock struct {
	deadline time.Time
	now      func() time.Time
	interval time.Duration
	onTimeUp func()

	mu      sync.Mutex
	last    int64
	fired   bool
	started bool
	stopped bool
	cancel  context.CancelFunc
	done    chan struct{}
}

// ClockOption customises a Clock.
type ClockOption func(*Clock)

// WithNow replaces the wall clock, for deterministic tests.
func WithNow(now func() time.Time) ClockOption {
	return func(c *Clock) {
		if now != nil {
			c.now = now
		}
	}
}

// WithInterval changes the tick period.
func WithInterval(d time.Duration) ClockOption {
	return func(c *Clock) {
		if d > 0 {
			c.interval = d
		}
	}
}

// NewClock builds a clock for deadline. onTimeUp may be nil.
func NewClock(deadline time.Time, onTimeUp func(), opts ...ClockOption) *Clock {
	c := &Clock{
		deadline: deadline,
		now:      time.Now,
		interval: DefaultTickInterval,
		onTimeUp: onTimeUp,
		last:     -1,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Deadline returns the absolute point the clock counts down to.
func (c *Clock) Deadline() time.Time {
	return c.deadline
}

// Expired reports whether the time-up signal has been raised.
func (c *Clock) Expired() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.fired
}

// Remaining returns the whole seconds left, rounded up and floored at zero.
// Successive results never increase, even if the wall clock steps backwards.
// The first evaluation that yields zero raises onTimeUp; later ones do not.
func (c *Clock) Remaining() int64 {
	rem, fire := c.sample()
	if fire && c.onTimeUp != nil {
		c.onTimeUp()
	}
	return rem
}

func (c *Clock) sample() (int64, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var rem int64
	if d := c.deadline.Sub(c.now()); d > 0 {
		rem = int64((d + time.Second - 1) / time.Second)
	}
	if c.last >= 0 && rem > c.last {
		rem = c.last
	}
	c.last = rem

	fire := rem == 0 && !c.fired && !c.stopped
	if fire {
		c.fired = true
	}
	return rem, fire
}

// Start launches the tick loop. onTick receives the remaining seconds immediately and
// then once per interval until the clock reaches zero, ctx is done, or Stop is called.
// Neither onTick nor onTimeUp may call Stop synchronously.
func (c *Clock) Start(ctx context.Context, onTick func(remaining int64)) error {
	c.mu.Lock()
	if c.started || c.stopped {
		c.mu.Unlock()
		return ErrClockStarted
	}
	c.started = true
	ctx, c.cancel = context.WithCancel(ctx)
	c.done = make(chan struct{})
	done := c.done
	c.mu.Unlock()

	go c.run(ctx, done, onTick)
	return nil
}

// Stop cancels the tick loop and waits for it to exit. After Stop returns no further
// callbacks are made. It is safe to call more than once or on a clock never started.
func (c *Clock) Stop() {
	c.mu.Lock()
	c.stopped = true
	cancel, done := c.cancel, c.done
	c.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}
}

func (c *Clock) run(ctx context.Context, done chan struct{}, onTick func(int64)) {
	defer close(done)

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	if c.tick(ctx, onTick) {
		return
	}
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if c.tick(ctx, onTick) {
				return
			}
		}
	}
}

// tick publishes one sample and reports whether the loop should end.
func (c *Clock) tick(ctx context.Context, onTick func(int64)) bool {
	if ctx.Err() != nil {
		return true
	}
	rem, fire := c.sample()
	if onTick != nil {
		onTick(rem)
	}
	if fire && c.onTimeUp != nil {
		c.onTimeUp()
	}
	return rem == 0
}
