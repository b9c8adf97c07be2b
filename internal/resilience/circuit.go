package resilience

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/trace"
)

// ErrOpenCircuit is returned when the breaker refuses a request.
var ErrOpenCircuit = errors.New("resilience: circuit breaker open")

// State is the breaker position.
type State int

const (
	// Closed lets requests through while counting outcomes.
	Closed State = iota
	// Open rejects everything until the cool-off elapses.
	Open
	// HalfOpen lets a single probe through to test recovery.
	HalfOpen
)

func (s State) String() string {
	switch s {
	case Closed:
		return "closed"
	case Open:
		return "open"
	case HalfOpen:
		return "half_open"
	default:
		return "unknown"
	}
}

// Breaker trips when the failure ratio over a minimum sample exceeds the
// configured threshold. It guards side paths like the notification queue so
// a dead dependency stops costing a round trip per sale.
type Breaker struct {
	mu        sync.Mutex
	state     State
	failed    int
	succeeded int
	minSample int
	threshold float64
	openedAt  time.Time
	openFor   time.Duration
	target    string
	logger    *zerolog.Logger
}

var nopBreakerLogger = zerolog.Nop()

// NewBreaker constructs a closed breaker. Zero or out-of-range arguments
// fall back to a 50% threshold over one request with a 30s cool-off.
func NewBreaker(minSample int, threshold float64, openFor time.Duration) *Breaker {
	if minSample <= 0 {
		minSample = 1
	}
	if threshold <= 0 {
		threshold = 0.5
	}
	if threshold > 1 {
		threshold = 1
	}
	if openFor <= 0 {
		openFor = 30 * time.Second
	}
	return &Breaker{
		state:     Closed,
		minSample: minSample,
		threshold: threshold,
		openFor:   openFor,
	}
}

// WithTarget labels the guarded dependency for metrics and logs.
func (b *Breaker) WithTarget(target string) *Breaker {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.target = strings.TrimSpace(target)
	b.gaugeLocked()
	return b
}

// WithLogger sets the logger used for transition events.
func (b *Breaker) WithLogger(logger zerolog.Logger) *Breaker {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.logger = &logger
	return b
}

// Allow reports whether a request may proceed. An open breaker whose
// cool-off has elapsed moves to half-open and admits the probe.
func (b *Breaker) Allow(ctx context.Context) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state != Open {
		return true
	}
	if time.Since(b.openedAt) < b.openFor {
		return false
	}
	b.transitionLocked(ctx, HalfOpen)
	return true
}

// Report feeds the outcome of an admitted request back into the state
// machine.
func (b *Breaker) Report(ctx context.Context, success bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case Open:
		return
	case HalfOpen:
		if success {
			b.transitionLocked(ctx, Closed)
		} else {
			b.transitionLocked(ctx, Open)
		}
		return
	}

	if success {
		b.succeeded++
	} else {
		b.failed++
	}
	sample := b.failed + b.succeeded
	if sample < b.minSample {
		return
	}
	if float64(b.failed)/float64(sample) >= b.threshold {
		b.transitionLocked(ctx, Open)
		return
	}
	if sample > b.minSample*2 {
		// Halve the counters so old outcomes age out of the ratio.
		b.succeeded = int(math.Ceil(float64(b.succeeded) * 0.5))
		b.failed = int(math.Ceil(float64(b.failed) * 0.5))
	}
}

// Backoff returns the exponential delay for an attempt, with jitter applied
// as a fraction of the delay (0.2 == +-20%).
func Backoff(base time.Duration, attempt int, jitterPct float64) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	if base <= 0 {
		base = 100 * time.Millisecond
	}
	d := base * time.Duration(1<<uint(attempt-1))
	if jitterPct <= 0 {
		return d
	}
	delta := (rand.Float64()*2 - 1) * float64(d) * jitterPct
	return d + time.Duration(delta)
}

func (b *Breaker) transitionLocked(ctx context.Context, next State) {
	prev := b.state
	if prev == next {
		b.gaugeLocked()
		return
	}
	b.state = next
	b.failed = 0
	b.succeeded = 0
	switch next {
	case Open:
		b.openedAt = time.Now()
	case Closed:
		b.openedAt = time.Time{}
	}
	b.gaugeLocked()

	label := b.label()
	if BreakerTransitions != nil {
		BreakerTransitions.WithLabelValues(label, prev.String(), next.String()).Inc()
	}
	if next == Open && BreakerOpenedTotal != nil {
		BreakerOpenedTotal.WithLabelValues(label).Inc()
	}

	logger := b.transitionLogger(ctx)
	evt := logger.Info().
		Str("target", label).
		Str("from_state", prev.String()).
		Str("to_state", next.String())
	if span := trace.SpanContextFromContext(ctx); span.IsValid() {
		evt = evt.Str("trace_id", span.TraceID().String())
	}
	evt.Msg("breaker_transition")
}

func (b *Breaker) gaugeLocked() {
	if BreakerState == nil {
		return
	}
	var value float64
	switch b.state {
	case Closed:
		value = 0
	case Open:
		value = 1
	case HalfOpen:
		value = 2
	default:
		value = -1
	}
	BreakerState.WithLabelValues(b.label()).Set(value)
}

func (b *Breaker) label() string {
	if b.target == "" {
		return "default"
	}
	return b.target
}

func (b *Breaker) transitionLogger(ctx context.Context) *zerolog.Logger {
	if ctxLogger := zerolog.Ctx(ctx); ctxLogger != nil {
		logger := ctxLogger.With().Logger()
		return &logger
	}
	if b.logger == nil {
		return &nopBreakerLogger
	}
	return b.logger
}
