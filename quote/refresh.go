package quote

import (
	"context"
	"sync"
	"time"
)

// Refresher schedules re-quoting. User input is debounced (one quote
// after ~500ms of inactivity, never one per keystroke) and always
// allowed; the automatic interval re-quote only fires while the user
// interacted recently and neither a quote nor a settlement is in
// flight. Mutual exclusion is by flag, not by lock: concurrent quotes
// are suppressed, not serialized.
type Refresher struct {
	debounce time.Duration
	interval time.Duration
	window   time.Duration

	mu        sync.Mutex
	lastInput time.Time
	inFlight  bool
	settling  bool

	inputCh chan struct{}
	stopCh  chan struct{}
	done    chan struct{}

	requote func(context.Context)
}

// RefresherConfig tunes the scheduler. Zero values fall back to the
// defaults below.
type RefresherConfig struct {
	Debounce          time.Duration // default 500ms
	Interval          time.Duration // default 10s
	InteractionWindow time.Duration // default 30s
}

// NewRefresher wires a scheduler around the given re-quote callback.
func NewRefresher(requote func(context.Context), cfg RefresherConfig) *Refresher {
	if cfg.Debounce <= 0 {
		cfg.Debounce = 500 * time.Millisecond
	}
	if cfg.Interval <= 0 {
		cfg.Interval = 10 * time.Second
	}
	if cfg.InteractionWindow <= 0 {
		cfg.InteractionWindow = 30 * time.Second
	}
	return &Refresher{
		debounce: cfg.Debounce,
		interval: cfg.Interval,
		window:   cfg.InteractionWindow,
		inputCh:  make(chan struct{}, 1),
		stopCh:   make(chan struct{}),
		done:     make(chan struct{}),
		requote:  requote,
	}
}

// Start runs the scheduling loop until Stop or context cancellation.
func (r *Refresher) Start(ctx context.Context) {
	go r.loop(ctx)
}

// Stop terminates the loop and waits for it to drain.
func (r *Refresher) Stop() {
	close(r.stopCh)
	<-r.done
}

// UserInput records a keystroke: it arms the debounce timer and renews
// the interaction window for the automatic refresh.
func (r *Refresher) UserInput() {
	r.mu.Lock()
	r.lastInput = time.Now()
	r.mu.Unlock()

	select {
	case r.inputCh <- struct{}{}:
	default:
	}
}

// SetInFlight marks whether a quote is currently being derived.
func (r *Refresher) SetInFlight(v bool) {
	r.mu.Lock()
	r.inFlight = v
	r.mu.Unlock()
}

// SetSettling marks whether a settlement is in progress; the automatic
// refresh stays quiet for its whole duration.
func (r *Refresher) SetSettling(v bool) {
	r.mu.Lock()
	r.settling = v
	r.mu.Unlock()
}

func (r *Refresher) loop(ctx context.Context) {
	defer close(r.done)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	// The debounce timer is armed on demand; a drained stopped timer
	// channel never fires.
	debounce := time.NewTimer(r.debounce)
	if !debounce.Stop() {
		<-debounce.C
	}
	defer debounce.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-r.stopCh:
			return
		case <-r.inputCh:
			if !debounce.Stop() {
				select {
				case <-debounce.C:
				default:
				}
			}
			debounce.Reset(r.debounce)
		case <-debounce.C:
			// Explicit user input bypasses the interval guard.
			r.requote(ctx)
		case <-ticker.C:
			if r.autoAllowed() {
				r.requote(ctx)
			}
		}
	}
}

func (r *Refresher) autoAllowed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.inFlight || r.settling {
		return false
	}
	return !r.lastInput.IsZero() && time.Since(r.lastInput) <= r.window
}
