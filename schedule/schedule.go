// Package schedule re-runs a task against a fixed recurring prompt at a
// fixed interval, strictly sequentially, until disarmed. Cancellation is
// cooperative: it is checked at scheduling boundaries only, never
// preemptively mid-invocation.
package schedule

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/m-mizutani/goerr/v2"
)

// DefaultInterval is the pause between the end of one invocation and the
// start of the next.
const DefaultInterval = 10 * time.Second

// ErrAlreadyArmed is returned by Arm while a previous arm is still active.
var ErrAlreadyArmed = goerr.New("looper is already armed")

// Token is an explicit cancellation token. It replaces an ambient stop
// flag: the loop checks it only at well-defined boundaries, so there is no
// race between a disarm and an in-flight timer.
type Token struct {
	done chan struct{}
	once sync.Once
}

// NewToken creates an uncancelled token.
func NewToken() *Token {
	return &Token{done: make(chan struct{})}
}

// Cancel cancels the token. Safe to call more than once.
func (t *Token) Cancel() {
	t.once.Do(func() {
		close(t.done)
	})
}

// Cancelled reports whether the token was cancelled.
func (t *Token) Cancelled() bool {
	select {
	case <-t.done:
		return true
	default:
		return false
	}
}

// Done returns a channel closed on cancellation.
func (t *Token) Done() <-chan struct{} {
	return t.done
}

// RunFunc is one invocation of the recurring task.
type RunFunc func(ctx context.Context, prompt string) error

// Guard is the precondition re-evaluated at every scheduling boundary,
// typically "the target context is still present". When it returns false
// the scheduled run silently no-ops; the loop keeps its cadence and runs
// again once the guard passes.
type Guard func(ctx context.Context) bool

// Looper drives the recurring execution. Invocations never overlap and the
// interval is fixed, not adaptive to the previous invocation's latency.
type Looper struct {
	run      RunFunc
	guard    Guard
	interval time.Duration
	logger   *slog.Logger

	mu       sync.Mutex
	token    *Token
	finished chan struct{}
}

// Option configures a Looper.
type Option func(*Looper)

// WithInterval sets the pause between invocations.
func WithInterval(d time.Duration) Option {
	return func(l *Looper) {
		l.interval = d
	}
}

// WithGuard sets the scheduling-boundary precondition.
func WithGuard(guard Guard) Option {
	return func(l *Looper) {
		l.guard = guard
	}
}

// WithLogger sets the logger. Default is a discard logger.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Looper) {
		l.logger = logger
	}
}

// New creates a Looper around the run function.
func New(run RunFunc, options ...Option) *Looper {
	l := &Looper{
		run:      run,
		interval: DefaultInterval,
		logger:   slog.New(slog.DiscardHandler),
	}
	for _, opt := range options {
		opt(l)
	}
	return l
}

// Arm starts the recurring execution. The first invocation is not delayed.
// It returns ErrAlreadyArmed while a previous arm is still active.
func (l *Looper) Arm(ctx context.Context, prompt string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.token != nil && !l.token.Cancelled() {
		return goerr.Wrap(ErrAlreadyArmed, "disarm before re-arming")
	}

	token := NewToken()
	finished := make(chan struct{})
	l.token = token
	l.finished = finished

	l.logger.Info("looper armed", "prompt", prompt, "interval", l.interval)
	go l.loop(ctx, prompt, token, finished)

	return nil
}

// Disarm cancels the active token. An in-flight invocation finishes, but
// no further invocation is scheduled.
func (l *Looper) Disarm() {
	l.mu.Lock()
	token := l.token
	l.mu.Unlock()

	if token != nil {
		token.Cancel()
		l.logger.Info("looper disarmed")
	}
}

// Armed reports whether the looper currently has an uncancelled token.
func (l *Looper) Armed() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.token != nil && !l.token.Cancelled()
}

// Finished returns a channel closed when the current arm's loop goroutine
// exits. It returns nil before the first Arm.
func (l *Looper) Finished() <-chan struct{} {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.finished
}

func (l *Looper) loop(ctx context.Context, prompt string, token *Token, finished chan struct{}) {
	defer close(finished)

	for {
		// Scheduling boundary: token and guard are re-evaluated here and
		// nowhere else.
		if token.Cancelled() || ctx.Err() != nil {
			return
		}

		if l.guard != nil && !l.guard(ctx) {
			l.logger.Debug("guard rejected, skipping invocation")
		} else {
			if err := l.run(ctx, prompt); err != nil {
				// Invocation failures never stop the loop.
				l.logger.Warn("recurring invocation failed", "error", err)
			}
		}

		select {
		case <-token.Done():
			return
		case <-ctx.Done():
			return
		case <-time.After(l.interval):
		}
	}
}
