// Package schedule re-invokes a poll function on a fixed interval or a cron
// expression until it is cancelled.
package schedule

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"
)

// DefaultInterval is used when repeated polling is enabled without a usable interval.
const DefaultInterval = 10 * time.Second

type Schedule interface {
	cron.Schedule
	fmt.Stringer

	NeedKickWhenStart() bool
}

// Parse accepts a Go duration such as "10s" or a standard cron expression.
func Parse(spec string) (Schedule, error) {
	if s, err := ParseInterval(spec); err == nil {
		return s, nil
	}

	return ParseCron(spec)
}

type IntervalSchedule struct {
	Interval time.Duration
}

func ParseInterval(spec string) (IntervalSchedule, error) {
	d, err := time.ParseDuration(spec)
	if err != nil {
		return IntervalSchedule{}, err
	}
	if d <= 0 {
		return IntervalSchedule{}, fmt.Errorf("invalid interval: %q", spec)
	}
	return IntervalSchedule{d}, nil
}

func (s IntervalSchedule) Next(t time.Time) time.Time {
	return t.Add(s.Interval)
}

func (s IntervalSchedule) String() string {
	return s.Interval.String()
}

func (s IntervalSchedule) NeedKickWhenStart() bool {
	return true
}

type CronSchedule struct {
	spec     string
	schedule cron.Schedule
}

func ParseCron(spec string) (CronSchedule, error) {
	s, err := cron.ParseStandard(spec)
	if err != nil {
		return CronSchedule{}, err
	}
	return CronSchedule{
		spec:     spec,
		schedule: s,
	}, nil
}

func (s CronSchedule) Next(t time.Time) time.Time {
	return s.schedule.Next(t)
}

func (s CronSchedule) String() string {
	return s.spec
}

func (s CronSchedule) NeedKickWhenStart() bool {
	return false
}

// PollFunc is invoked once per tick.
type PollFunc func(ctx context.Context)

// Handle controls a running schedule.
type Handle struct {
	mu      sync.Mutex
	stopped bool
	stop    chan struct{}

	running atomic.Bool
	done    chan struct{}
	calls   sync.WaitGroup
}

func newHandle() *Handle {
	return &Handle{
		stop: make(chan struct{}),
		done: make(chan struct{}),
	}
}

// Start invokes fn once. If enabled is true it then keeps invoking fn every interval until cancelled.
// A non-positive interval means DefaultInterval.
func Start(ctx context.Context, fn PollFunc, interval time.Duration, enabled bool) *Handle {
	if !enabled {
		h := newHandle()
		h.stopped = true
		h.calls.Add(1)
		go func() {
			defer h.calls.Done()
			fn(ctx)
		}()
		close(h.done)
		return h
	}

	if interval <= 0 {
		interval = DefaultInterval
	}
	return StartSchedule(ctx, fn, IntervalSchedule{interval})
}

// StartSchedule invokes fn on every tick of s until cancelled or ctx is done.
// Interval schedules also invoke fn immediately.
func StartSchedule(ctx context.Context, fn PollFunc, s Schedule) *Handle {
	h := newHandle()
	h.running.Store(true)

	start := time.Now()
	if s.NeedKickWhenStart() {
		h.invoke(ctx, fn)
	}

	go h.loop(ctx, fn, s, start)

	return h
}

func (h *Handle) loop(ctx context.Context, fn PollFunc, s Schedule, start time.Time) {
	defer close(h.done)
	defer h.running.Store(false)

	next := s.Next(start)
	for !next.IsZero() {
		timer := time.NewTimer(time.Until(next))

		select {
		case <-h.stop:
			timer.Stop()
			return
		case <-ctx.Done():
			timer.Stop()
			return
		case now := <-timer.C:
			if !h.invoke(ctx, fn) {
				return
			}

			// Ticks stay aligned to the start time; missed ticks are skipped.
			next = s.Next(next)
			for !next.IsZero() && !next.After(now) {
				next = s.Next(next)
			}
			if next.IsZero() {
				return
			}
		}
	}
}

// invoke runs fn on its own goroutine unless the handle was cancelled.
// Overlapping invocations are allowed.
func (h *Handle) invoke(ctx context.Context, fn PollFunc) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.stopped {
		return false
	}

	h.calls.Add(1)
	go func() {
		defer h.calls.Done()
		fn(ctx)
	}()
	return true
}

// Cancel stops all future invocations. Invocations already running are not interrupted.
// Calling Cancel more than once is a no-op.
func (h *Handle) Cancel() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.stopped {
		return
	}
	h.stopped = true
	h.running.Store(false)
	close(h.stop)
}

// Running reports whether future invocations are still scheduled.
func (h *Handle) Running() bool {
	return h.running.Load()
}

// Wait blocks until the schedule has stopped and every started invocation has returned.
func (h *Handle) Wait() {
	<-h.done
	h.calls.Wait()
}
