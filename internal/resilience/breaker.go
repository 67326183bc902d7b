// Package resilience guards calls to external AI providers with a
// consecutive-failure circuit breaker.
package resilience

import (
	"context"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// State is the breaker position.
type State int

const (
	// Closed lets calls through.
	Closed State = iota
	// Open rejects calls until the cooldown elapses.
	Open
	// HalfOpen admits a single probe call.
	HalfOpen
)

func (s State) String() string {
	switch s {
	case Closed:
		return "closed"
	case Open:
		return "open"
	case HalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// ErrOpen is returned without calling the provider while the breaker is
// open or a half-open probe is already in flight.
var ErrOpen = eris.New("resilience: circuit open")

// BreakerConfig controls a Breaker. Zero values take defaults.
type BreakerConfig struct {
	// Name labels log lines, usually the provider name.
	Name string
	// Threshold is the consecutive failure count that opens the breaker.
	Threshold int
	// Cooldown is how long the breaker stays open before probing.
	Cooldown time.Duration
	// Trips reports whether an error counts as a failure. Defaults to Trips.
	Trips func(error) bool
}

// Breaker is safe for concurrent use.
type Breaker struct {
	cfg BreakerConfig

	mu       sync.Mutex
	state    State
	failures int
	openedAt time.Time
	probing  bool

	now func() time.Time
}

// NewBreaker creates a closed breaker.
func NewBreaker(cfg BreakerConfig) *Breaker {
	if cfg.Threshold <= 0 {
		cfg.Threshold = 5
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = 30 * time.Second
	}
	if cfg.Trips == nil {
		cfg.Trips = Trips
	}
	return &Breaker{cfg: cfg, now: time.Now}
}

// Do runs fn unless the breaker rejects it, then records the outcome.
func Do[T any](ctx context.Context, b *Breaker, fn func(context.Context) (T, error)) (T, error) {
	var zero T
	if err := b.acquire(); err != nil {
		return zero, err
	}
	v, err := fn(ctx)
	b.record(err)
	return v, err
}

// State reports the current position, counting an elapsed cooldown as
// half-open.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state == Open && b.now().Sub(b.openedAt) >= b.cfg.Cooldown {
		return HalfOpen
	}
	return b.state
}

// Failures returns the current consecutive failure count.
func (b *Breaker) Failures() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.failures
}

func (b *Breaker) acquire() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case Open:
		if b.now().Sub(b.openedAt) < b.cfg.Cooldown {
			return ErrOpen
		}
		b.move(HalfOpen)
		b.probing = true
		return nil
	case HalfOpen:
		if b.probing {
			return ErrOpen
		}
		b.probing = true
		return nil
	default:
		return nil
	}
}

func (b *Breaker) record(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err == nil || !b.cfg.Trips(err) {
		b.failures = 0
		b.probing = false
		if b.state != Closed {
			b.move(Closed)
		}
		return
	}

	b.failures++
	switch b.state {
	case HalfOpen:
		b.probing = false
		b.openedAt = b.now()
		b.move(Open)
	case Closed:
		if b.failures >= b.cfg.Threshold {
			b.openedAt = b.now()
			b.move(Open)
		}
	}
}

// move must be called with mu held.
func (b *Breaker) move(to State) {
	from := b.state
	b.state = to
	zap.L().Info("resilience: circuit state change",
		zap.String("name", b.cfg.Name),
		zap.Stringer("from", from),
		zap.Stringer("to", to),
		zap.Int("failures", b.failures),
	)
}
