// Package poller owns the fetch lifecycle of one remote endpoint.
//
// A Poller issues a GET through its Fetcher, decodes the body and publishes
// the outcome as a State. The last successfully decoded value is kept apart
// from the State, so a consumer can still show stale data next to an error.
package poller

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/openlearnnitj/openlearn-dashboard/internal/dasherr"
	"github.com/openlearnnitj/openlearn-dashboard/internal/models"
	"github.com/openlearnnitj/openlearn-dashboard/pkg/logger"
	"github.com/openlearnnitj/openlearn-dashboard/pkg/metrics"
)

// Fetcher performs the HTTP request of a poll.
type Fetcher interface {
	Fetch(ctx context.Context) (*models.FetchResult, error)
	URL() string
}

// Decoder converts a response body into a value.
type Decoder[T any] func(body []byte) (T, error)

// Recorder receives every successfully decoded value with its capture time.
type Recorder[T any] interface {
	Record(ctx context.Context, value T, capturedAt time.Time) error
}

// RecorderFunc adapts a function to Recorder.
type RecorderFunc[T any] func(ctx context.Context, value T, capturedAt time.Time) error

func (f RecorderFunc[T]) Record(ctx context.Context, value T, capturedAt time.Time) error {
	return f(ctx, value, capturedAt)
}

// View is a consistent read of a Poller.
type View[T any] struct {
	State        State
	LastKnown    T
	HasLastKnown bool
	LastUpdated  time.Time
}

// Poller polls one endpoint. It is safe for concurrent use.
type Poller[T any] struct {
	name      string
	fetcher   Fetcher
	decode    Decoder[T]
	recorders []Recorder[T]
	logger    logger.Logger
	metrics   *metrics.Manager
	now       func() time.Time

	// inFlight refuses overlapping polls.
	inFlight atomic.Bool

	mu          sync.RWMutex
	state       State
	last        T
	hasLast     bool
	lastUpdated time.Time

	subMu  sync.Mutex
	subs   map[uint64]func(State)
	nextID uint64
}

// Option applies a configuration option to the Poller.
type Option[T any] func(*Poller[T])

// WithRecorder appends a Recorder. Recorders run in order before the poll turns Ready.
func WithRecorder[T any](r Recorder[T]) Option[T] {
	return func(p *Poller[T]) {
		if r != nil {
			p.recorders = append(p.recorders, r)
		}
	}
}

// WithLogger sets a custom logger for the poller.
func WithLogger[T any](l logger.Logger) Option[T] {
	return func(p *Poller[T]) {
		if l != nil {
			p.logger = l
		}
	}
}

// WithMetrics sets the metrics manager poll outcomes are reported to.
func WithMetrics[T any](m *metrics.Manager) Option[T] {
	return func(p *Poller[T]) {
		p.metrics = m
	}
}

// WithClock replaces the clock used for capture timestamps.
func WithClock[T any](now func() time.Time) Option[T] {
	return func(p *Poller[T]) {
		if now != nil {
			p.now = now
		}
	}
}

// New creates an Idle Poller named name.
func New[T any](name string, fetcher Fetcher, decode Decoder[T], opts ...Option[T]) *Poller[T] {
	p := &Poller[T]{
		name:    name,
		fetcher: fetcher,
		decode:  decode,
		logger:  logger.Nop(),
		now:     time.Now,
		state:   Idle{},
		subs:    make(map[uint64]func(State)),
	}

	for _, opt := range opts {
		opt(p)
	}
	p.logger = p.logger.With(logger.String("endpoint", name), logger.String("url", fetcher.URL()))

	return p
}

// Name returns the endpoint name given to New.
func (p *Poller[T]) Name() string {
	return p.name
}

// Poll fetches and decodes the endpoint once and returns the resulting State.
//
// Every failure ends in Failed; Poll never panics because of a bad response.
// If another Poll is in flight, no request is issued and the current State is returned.
func (p *Poller[T]) Poll(ctx context.Context) State {
	if !p.inFlight.CompareAndSwap(false, true) {
		p.metrics.IncPollSkipped(p.name)
		p.logger.Debug(ctx, "previous poll still in flight, skipping")
		return p.State()
	}
	defer p.inFlight.Store(false)

	log := p.logger.With(logger.String("poll_id", uuid.NewString()))

	p.transition(Loading{})

	start := time.Now()
	value, latency, err := p.fetch(ctx)
	elapsed := time.Since(start)

	if err != nil {
		p.metrics.ObservePoll(p.name, resultOf(err), elapsed)
		log.Warn(ctx, "poll failed", logger.Error(err), logger.Duration("elapsed", elapsed))

		st := Failed{Message: err.Error(), Err: err}
		p.transition(st)
		return st
	}

	capturedAt := p.captureTime()
	for _, r := range p.recorders {
		if err := r.Record(ctx, value, capturedAt); err != nil {
			log.Error(ctx, "failed to record value", logger.Error(err))
		}
	}

	p.mu.Lock()
	p.last = value
	p.hasLast = true
	p.lastUpdated = capturedAt
	p.mu.Unlock()

	p.metrics.ObservePoll(p.name, metrics.ResultSuccess, elapsed)
	log.Info(ctx, "poll succeeded", logger.Duration("latency", latency))

	st := Ready[T]{Value: value}
	p.transition(st)
	return st
}

func (p *Poller[T]) fetch(ctx context.Context) (value T, latency time.Duration, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = dasherr.New(dasherr.ErrDecode, nil, "unexpected response: %v", r)
		}
	}()

	res, err := p.fetcher.Fetch(ctx)
	if err != nil {
		return value, 0, err
	}

	value, err = p.decode(res.Body)
	return value, res.Latency, err
}

// captureTime returns the current time, never earlier than the previous capture.
func (p *Poller[T]) captureTime() time.Time {
	now := p.now()

	p.mu.RLock()
	defer p.mu.RUnlock()

	if now.Before(p.lastUpdated) {
		return p.lastUpdated
	}
	return now
}

func (p *Poller[T]) transition(st State) {
	p.mu.Lock()
	p.state = st
	p.mu.Unlock()

	p.subMu.Lock()
	subs := make([]func(State), 0, len(p.subs))
	for _, fn := range p.subs {
		subs = append(subs, fn)
	}
	p.subMu.Unlock()

	for _, fn := range subs {
		fn(st)
	}
}

// State returns the current State.
func (p *Poller[T]) State() State {
	p.mu.RLock()
	defer p.mu.RUnlock()

	return p.state
}

// LastKnown returns the value of the most recent successful poll, if any.
func (p *Poller[T]) LastKnown() (T, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	return p.last, p.hasLast
}

// View returns the State and the last known value together.
func (p *Poller[T]) View() View[T] {
	p.mu.RLock()
	defer p.mu.RUnlock()

	return View[T]{
		State:        p.state,
		LastKnown:    p.last,
		HasLastKnown: p.hasLast,
		LastUpdated:  p.lastUpdated,
	}
}

// Subscribe registers fn to be called with every State transition.
// fn runs on the polling goroutine and must not block.
// The returned function removes the subscription.
func (p *Poller[T]) Subscribe(fn func(State)) (unsubscribe func()) {
	p.subMu.Lock()
	id := p.nextID
	p.nextID++
	p.subs[id] = fn
	p.subMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			p.subMu.Lock()
			delete(p.subs, id)
			p.subMu.Unlock()
		})
	}
}

func resultOf(err error) string {
	switch {
	case errors.Is(err, dasherr.ErrNetwork):
		return metrics.ResultNetwork
	case errors.Is(err, dasherr.ErrHTTPStatus):
		return metrics.ResultHTTPStatus
	case errors.Is(err, dasherr.ErrDecode):
		return metrics.ResultDecode
	default:
		return metrics.ResultUnavailable
	}
}
