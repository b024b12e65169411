// Package connect establishes database sessions with bounded retry.
//
// Connection attempts run through an explicit state machine so that attempt
// counting and terminal states are testable without real network timing:
//
//	Attempting --transient error, budget left--> Attempting (after delay)
//	Attempting --transient error, budget gone--> ExhaustedRetries (terminal)
//	Attempting --auth error--------------------> AuthFailed       (terminal)
//	Attempting --success-----------------------> Connected        (terminal)
//
// Transient infrastructure flakiness (server still starting, network blip)
// is retried with a fixed delay up to a bound. Rejected credentials are
// never retried: looping on a misconfigured password would only mask the
// configuration error, so that state is terminal on the first attempt.
package connect

import (
	"context"
	"time"

	"github.com/charmbracelet/log"

	"github.com/graphsink/graphsink/pkg/errors"
	"github.com/graphsink/graphsink/pkg/observability"
	"github.com/graphsink/graphsink/pkg/store"
)

// State identifies a position in the connection state machine.
type State int

const (
	// StateAttempting means a connection attempt is in progress or queued.
	StateAttempting State = iota
	// StateConnected is the successful terminal state.
	StateConnected
	// StateAuthFailed is the terminal state for rejected credentials.
	StateAuthFailed
	// StateExhaustedRetries is the terminal state after the retry budget
	// is spent on transient failures.
	StateExhaustedRetries
)

// String returns the state name for logs and test failure messages.
func (s State) String() string {
	switch s {
	case StateAttempting:
		return "attempting"
	case StateConnected:
		return "connected"
	case StateAuthFailed:
		return "auth_failed"
	case StateExhaustedRetries:
		return "exhausted_retries"
	default:
		return "unknown"
	}
}

// Default retry policy values.
const (
	DefaultMaxAttempts = 5
	DefaultRetryDelay  = 2 * time.Second
)

// Policy bounds the retry behavior: at most MaxAttempts attempts, with a
// fixed Delay between consecutive attempts.
type Policy struct {
	MaxAttempts int
	Delay       time.Duration
}

// DefaultPolicy returns the standard retry policy.
func DefaultPolicy() Policy {
	return Policy{MaxAttempts: DefaultMaxAttempts, Delay: DefaultRetryDelay}
}

// Manager opens sessions through a [store.Dialer], applying the retry
// policy. Dial and Sleep are injectable so tests can simulate failure
// sequences and observe delays without waiting on a clock.
type Manager struct {
	Dial   store.Dialer
	Sleep  func(ctx context.Context, d time.Duration) error
	Logger *log.Logger
}

// New creates a Manager for the given dialer.
func New(dial store.Dialer, logger *log.Logger) *Manager {
	if logger == nil {
		logger = log.Default()
	}
	return &Manager{Dial: dial, Sleep: sleepCtx, Logger: logger}
}

// Connect runs the state machine until a terminal state is reached.
//
// On StateConnected it returns the live session together with the
// underlying factory; both are owned by the caller for the rest of the run.
// On StateAuthFailed it returns an ErrCodeAuth error immediately, without
// consuming the retry budget. On StateExhaustedRetries it returns an
// ErrCodeConnection error wrapping the last transient failure.
func (m *Manager) Connect(ctx context.Context, cfg store.Config, pol Policy) (store.Factory, store.Session, error) {
	if pol.MaxAttempts < 1 {
		pol.MaxAttempts = 1
	}
	sleep := m.Sleep
	if sleep == nil {
		sleep = sleepCtx
	}

	state := StateAttempting
	attempt := 0
	var lastErr error

	for state == StateAttempting {
		attempt++
		observability.Persistence().OnConnectAttempt(ctx, cfg.URI, attempt)

		factory, session, err := m.Dial(ctx, cfg)
		switch {
		case err == nil:
			state = StateConnected
			m.Logger.Debug("session opened", "uri", cfg.URI, "attempt", attempt)
			return factory, session, nil

		case errors.Is(err, errors.ErrCodeAuth):
			state = StateAuthFailed
			m.Logger.Error("authentication rejected", "uri", cfg.URI)
			return nil, nil, err

		default:
			lastErr = err
			m.Logger.Warn("connection attempt failed",
				"uri", cfg.URI,
				"attempt", attempt,
				"max_attempts", pol.MaxAttempts,
				"err", err)

			if attempt >= pol.MaxAttempts {
				state = StateExhaustedRetries
				break
			}
			if err := sleep(ctx, pol.Delay); err != nil {
				return nil, nil, err
			}
		}
	}

	return nil, nil, errors.Wrap(errors.ErrCodeConnection, lastErr,
		"giving up after %d attempts to %s", attempt, cfg.URI)
}

// sleepCtx blocks for d or until ctx is done, whichever comes first.
func sleepCtx(ctx context.Context, d time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}
