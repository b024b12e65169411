package connect

import (
	"context"
	"fmt"
	"io"
	"testing"
	"time"

	"github.com/charmbracelet/log"

	"github.com/graphsink/graphsink/pkg/errors"
	"github.com/graphsink/graphsink/pkg/graph"
	"github.com/graphsink/graphsink/pkg/store"
)

type stubFactory struct{}

func (stubFactory) Close(context.Context) error { return nil }

type stubSession struct{}

func (stubSession) Purge(context.Context) error { return nil }
func (stubSession) BeginTransaction(context.Context) (store.Transaction, error) {
	return nil, nil
}
func (stubSession) Save(context.Context, []*graph.Node, int) error { return nil }
func (stubSession) Clear(context.Context) error                    { return nil }

// failNTimes returns a dialer that fails with a transient error n times
// before succeeding, recording each attempt.
func failNTimes(n int, calls *int) store.Dialer {
	return func(ctx context.Context, cfg store.Config) (store.Factory, store.Session, error) {
		*calls++
		if *calls <= n {
			return nil, nil, errors.New(errors.ErrCodeConnection, "connection refused")
		}
		return stubFactory{}, stubSession{}, nil
	}
}

func newTestManager(dial store.Dialer, sleeps *[]time.Duration) *Manager {
	m := New(dial, log.New(io.Discard))
	m.Sleep = func(ctx context.Context, d time.Duration) error {
		*sleeps = append(*sleeps, d)
		return nil
	}
	return m
}

func TestConnectSucceedsAfterTransientFailures(t *testing.T) {
	var calls int
	var sleeps []time.Duration
	m := newTestManager(failNTimes(3, &calls), &sleeps)

	pol := Policy{MaxAttempts: 5, Delay: 250 * time.Millisecond}
	factory, session, err := m.Connect(context.Background(), store.Config{URI: "bolt://test"}, pol)
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	if factory == nil || session == nil {
		t.Fatal("Connect() returned nil factory or session")
	}
	if calls != 4 {
		t.Errorf("dial calls = %d, want 4", calls)
	}
	if len(sleeps) != 3 {
		t.Fatalf("sleeps = %d, want 3", len(sleeps))
	}
	for i, d := range sleeps {
		if d != pol.Delay {
			t.Errorf("sleep[%d] = %v, want %v", i, d, pol.Delay)
		}
	}
}

func TestConnectExhaustsRetryBudget(t *testing.T) {
	var calls int
	var sleeps []time.Duration
	m := newTestManager(failNTimes(100, &calls), &sleeps)

	pol := Policy{MaxAttempts: 3, Delay: time.Millisecond}
	_, _, err := m.Connect(context.Background(), store.Config{URI: "bolt://test"}, pol)
	if err == nil {
		t.Fatal("Connect() succeeded, want exhaustion error")
	}
	if !errors.Is(err, errors.ErrCodeConnection) {
		t.Errorf("error code = %v, want %v", errors.GetCode(err), errors.ErrCodeConnection)
	}
	if calls != 3 {
		t.Errorf("dial calls = %d, want 3", calls)
	}
	// No sleep after the final attempt.
	if len(sleeps) != 2 {
		t.Errorf("sleeps = %d, want 2", len(sleeps))
	}
}

func TestConnectAuthFailureNeverRetries(t *testing.T) {
	var calls int
	var sleeps []time.Duration
	dial := func(ctx context.Context, cfg store.Config) (store.Factory, store.Session, error) {
		calls++
		return nil, nil, errors.New(errors.ErrCodeAuth, "credentials rejected")
	}
	m := newTestManager(dial, &sleeps)

	_, _, err := m.Connect(context.Background(), store.Config{URI: "bolt://test"}, DefaultPolicy())
	if err == nil {
		t.Fatal("Connect() succeeded, want auth error")
	}
	if !errors.Is(err, errors.ErrCodeAuth) {
		t.Errorf("error code = %v, want %v", errors.GetCode(err), errors.ErrCodeAuth)
	}
	if calls != 1 {
		t.Errorf("dial calls = %d, want 1 (auth failures must not retry)", calls)
	}
	if len(sleeps) != 0 {
		t.Errorf("sleeps = %d, want 0", len(sleeps))
	}
}

func TestConnectWrappedAuthFailure(t *testing.T) {
	var calls int
	var sleeps []time.Duration
	dial := func(ctx context.Context, cfg store.Config) (store.Factory, store.Session, error) {
		calls++
		cause := fmt.Errorf("server said no")
		return nil, nil, errors.Wrap(errors.ErrCodeAuth, cause, "verify connectivity")
	}
	m := newTestManager(dial, &sleeps)

	_, _, err := m.Connect(context.Background(), store.Config{URI: "bolt://test"}, DefaultPolicy())
	if !errors.Is(err, errors.ErrCodeAuth) {
		t.Fatalf("error code = %v, want %v", errors.GetCode(err), errors.ErrCodeAuth)
	}
	if calls != 1 {
		t.Errorf("dial calls = %d, want 1", calls)
	}
}

func TestConnectRespectsContextCancellation(t *testing.T) {
	var calls int
	dial := failNTimes(100, &calls)
	m := New(dial, log.New(io.Discard))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, err := m.Connect(ctx, store.Config{URI: "bolt://test"}, Policy{MaxAttempts: 5, Delay: time.Hour})
	if err == nil {
		t.Fatal("Connect() succeeded with canceled context")
	}
	if calls != 1 {
		t.Errorf("dial calls = %d, want 1", calls)
	}
}

func TestConnectMinimumOneAttempt(t *testing.T) {
	var calls int
	var sleeps []time.Duration
	m := newTestManager(failNTimes(0, &calls), &sleeps)

	_, _, err := m.Connect(context.Background(), store.Config{URI: "bolt://test"}, Policy{MaxAttempts: 0})
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	if calls != 1 {
		t.Errorf("dial calls = %d, want 1", calls)
	}
}

func TestStateString(t *testing.T) {
	tests := []struct {
		state State
		want  string
	}{
		{StateAttempting, "attempting"},
		{StateConnected, "connected"},
		{StateAuthFailed, "auth_failed"},
		{StateExhaustedRetries, "exhausted_retries"},
		{State(99), "unknown"},
	}
	for _, tt := range tests {
		if got := tt.state.String(); got != tt.want {
			t.Errorf("State(%d).String() = %q, want %q", tt.state, got, tt.want)
		}
	}
}
