package breaker

import (
	"errors"
	"sync"
	"time"
)

// ErrOpen is returned when a call is short-circuited without reaching the
// remote dependency.
var ErrOpen = errors.New("breaker: open")

type State int

const (
	StateClosed State = iota
	StateHalfOpen
	StateOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateHalfOpen:
		return "half_open"
	case StateOpen:
		return "open"
	default:
		return "unknown"
	}
}

// Settings configures one named breaker. Zero values fall back to defaults.
type Settings struct {
	Name string
	// FailureThreshold is the number of failures within Window that trips
	// the breaker from closed to open.
	FailureThreshold int
	// Window is the rolling interval over which failures are counted.
	Window time.Duration
	// Cooldown is how long the breaker stays open before allowing a single
	// half-open trial call.
	Cooldown time.Duration
	// OnStateChange, when set, is invoked after every transition. It runs
	// outside the breaker lock.
	OnStateChange func(name string, from, to State)
}

const (
	defaultFailureThreshold = 5
	defaultWindow           = time.Minute
	defaultCooldown         = 30 * time.Second
)

// Breaker guards a remote call with the closed/open/half-open state machine.
// One instance is shared by every request to the same dependency, so all
// state is mutex-guarded.
type Breaker struct {
	name          string
	threshold     int
	window        time.Duration
	cooldown      time.Duration
	onStateChange func(name string, from, to State)

	mu          sync.Mutex
	state       State
	failures    int
	windowStart time.Time
	openedAt    time.Time
	probing     bool

	now func() time.Time
}

func New(cfg Settings) *Breaker {
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = defaultFailureThreshold
	}
	if cfg.Window <= 0 {
		cfg.Window = defaultWindow
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = defaultCooldown
	}
	return &Breaker{
		name:          cfg.Name,
		threshold:     cfg.FailureThreshold,
		window:        cfg.Window,
		cooldown:      cfg.Cooldown,
		onStateChange: cfg.OnStateChange,
		state:         StateClosed,
		now:           time.Now,
	}
}

func (b *Breaker) Name() string { return b.name }

func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Do executes fn under the breaker. When the breaker is open, or a half-open
// probe is already in flight, fn is not invoked and ErrOpen is returned.
// Any error from fn counts as a failure.
func (b *Breaker) Do(fn func() error) error {
	if err := b.acquire(); err != nil {
		return err
	}
	err := fn()
	b.record(err)
	return err
}

func (b *Breaker) acquire() error {
	b.mu.Lock()
	var fired func()

	switch b.state {
	case StateClosed:
		b.mu.Unlock()
		return nil
	case StateOpen:
		if b.now().Sub(b.openedAt) < b.cooldown {
			b.mu.Unlock()
			return ErrOpen
		}
		fired = b.transition(StateHalfOpen)
		b.probing = true
		b.mu.Unlock()
		if fired != nil {
			fired()
		}
		return nil
	default: // StateHalfOpen
		if b.probing {
			b.mu.Unlock()
			return ErrOpen
		}
		b.probing = true
		b.mu.Unlock()
		return nil
	}
}

func (b *Breaker) record(err error) {
	b.mu.Lock()
	var fired func()

	switch {
	case err == nil:
		if b.state == StateHalfOpen {
			fired = b.transition(StateClosed)
		}
		b.failures = 0
		b.probing = false
	case b.state == StateHalfOpen:
		// Trial call failed: back to open, restart the cooldown.
		fired = b.transition(StateOpen)
		b.openedAt = b.now()
		b.probing = false
	default:
		now := b.now()
		if b.windowStart.IsZero() || now.Sub(b.windowStart) > b.window {
			b.failures = 0
			b.windowStart = now
		}
		b.failures++
		if b.failures >= b.threshold && b.state == StateClosed {
			fired = b.transition(StateOpen)
			b.openedAt = now
		}
	}

	b.mu.Unlock()
	if fired != nil {
		fired()
	}
}

// transition updates the state and returns the callback to run once the lock
// is released. Callers must hold b.mu.
func (b *Breaker) transition(to State) func() {
	from := b.state
	if from == to {
		return nil
	}
	b.state = to
	if b.onStateChange == nil {
		return nil
	}
	name, cb := b.name, b.onStateChange
	return func() { cb(name, from, to) }
}
