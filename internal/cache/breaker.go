package cache

import (
	"errors"
	"sync"
	"time"
)

// ── Circuit Breaker ───────────────────────────────────────────────────────────
// Guards Redis calls. When Redis keeps failing the stores stop calling it for
// a while and every read becomes a miss, so requests fall through to the
// database instead of waiting on network timeouts.
//
// States:
//   - closed:    calls pass through
//   - open:      calls fail immediately with ErrBreakerOpen
//   - half-open: calls pass through; enough successes close the breaker,
//                one failure opens it again

type breakerState int

const (
	stateClosed breakerState = iota
	stateOpen
	stateHalfOpen
)

func (s breakerState) String() string {
	switch s {
	case stateClosed:
		return "closed"
	case stateOpen:
		return "open"
	case stateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// ErrBreakerOpen is returned by Do while the breaker is open.
var ErrBreakerOpen = errors.New("cache: circuit breaker open")

// BreakerConfig holds tunable parameters; zero values fall back to defaults.
type BreakerConfig struct {
	FailureThreshold int           // consecutive failures to open (default 5)
	SuccessThreshold int           // consecutive half-open successes to close (default 2)
	OpenTimeout      time.Duration // time spent open before probing (default 30s)
}

// Breaker is safe for concurrent use.
type Breaker struct {
	mu       sync.Mutex
	cfg      BreakerConfig
	state    breakerState
	failures int
	probes   int
	openedAt time.Time
	now      func() time.Time
}

func NewBreaker(cfg BreakerConfig) *Breaker {
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = 5
	}
	if cfg.SuccessThreshold <= 0 {
		cfg.SuccessThreshold = 2
	}
	if cfg.OpenTimeout <= 0 {
		cfg.OpenTimeout = 30 * time.Second
	}
	return &Breaker{cfg: cfg, now: time.Now}
}

// State returns the current state name, for health output and logs.
func (b *Breaker) State() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.currentLocked().String()
}

func (b *Breaker) currentLocked() breakerState {
	if b.state == stateOpen && b.now().Sub(b.openedAt) >= b.cfg.OpenTimeout {
		b.state = stateHalfOpen
		b.probes = 0
	}
	return b.state
}

// Do runs fn unless the breaker is open. ignore lists errors that are
// outcomes rather than failures (e.g. redis.Nil on a cache miss).
// A nil Breaker always runs fn.
func (b *Breaker) Do(fn func() error, ignore ...error) error {
	if b == nil {
		return fn()
	}
	b.mu.Lock()
	if b.currentLocked() == stateOpen {
		b.mu.Unlock()
		return ErrBreakerOpen
	}
	b.mu.Unlock()

	err := fn()
	failed := err != nil
	for _, e := range ignore {
		if errors.Is(err, e) {
			failed = false
		}
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if failed {
		b.failures++
		if b.state == stateHalfOpen || b.failures >= b.cfg.FailureThreshold {
			b.state = stateOpen
			b.openedAt = b.now()
			b.failures = 0
		}
		return err
	}

	switch b.state {
	case stateClosed:
		b.failures = 0
	case stateHalfOpen:
		b.probes++
		if b.probes >= b.cfg.SuccessThreshold {
			b.state = stateClosed
			b.failures = 0
		}
	}
	return err
}
