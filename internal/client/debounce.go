package client

import (
	"context"
	"sync"
	"time"
)

// DefaultDebounce is the quiet period before a debounced call runs.
const DefaultDebounce = 500 * time.Millisecond

// Debouncer runs only the last of a burst of calls, once the burst has been
// quiet for Delay. A newer call cancels the context of a pending or running one.
type Debouncer struct {
	Delay time.Duration

	mu     sync.Mutex
	timer  *time.Timer
	cancel context.CancelFunc
}

func NewDebouncer(delay time.Duration) *Debouncer {
	if delay <= 0 {
		delay = DefaultDebounce
	}
	return &Debouncer{Delay: delay}
}

// Call schedules fn, replacing whatever was scheduled before.
func (d *Debouncer) Call(ctx context.Context, fn func(context.Context)) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stopLocked()
	runCtx, cancel := context.WithCancel(ctx)
	d.cancel = cancel
	d.timer = time.AfterFunc(d.Delay, func() {
		if runCtx.Err() != nil {
			return
		}
		fn(runCtx)
	})
}

// Stop drops the pending call, if any.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stopLocked()
}

func (d *Debouncer) stopLocked() {
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
}

// AvailabilityChecker checks room availability as a slot is being typed.
type AvailabilityChecker struct {
	client   *Client
	debounce *Debouncer
	exclude  int64
	// OnResult receives each completed check. Checks superseded by a newer
	// Update are never reported.
	OnResult func(ScheduleSlot, Availability, error)
}

// NewAvailabilityChecker ignores the schedule with id exclude, for edits.
func NewAvailabilityChecker(c *Client, delay time.Duration, exclude int64) *AvailabilityChecker {
	return &AvailabilityChecker{client: c, debounce: NewDebouncer(delay), exclude: exclude}
}

// Update records the slot as currently entered.
func (a *AvailabilityChecker) Update(ctx context.Context, slot ScheduleSlot) {
	a.debounce.Call(ctx, func(ctx context.Context) {
		avail, err := a.client.RoomAvailability(ctx, slot, a.exclude)
		if ctx.Err() != nil {
			return
		}
		if a.OnResult != nil {
			a.OnResult(slot, avail, err)
		}
	})
}

func (a *AvailabilityChecker) Stop() { a.debounce.Stop() }
