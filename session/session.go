// Package session holds the single authoritative record of who is logged in. It drives the
// active identity provider adapter and keeps its own view in step with the adapter's.
package session

import (
	"context"
	"fmt"
	"sync"

	"github.com/jrsteele09/go-auth-session/internal/errors"
	"github.com/jrsteele09/go-auth-session/provider"
	"github.com/jrsteele09/go-auth-session/users"
	"github.com/rs/zerolog/log"
)

type State int

const (
	StateUninitialized State = iota
	StateInitializing
	StateUnauthenticated
	StateAuthenticated
	StateOperationInFlight
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateInitializing:
		return "initializing"
	case StateUnauthenticated:
		return "unauthenticated"
	case StateAuthenticated:
		return "authenticated"
	case StateOperationInFlight:
		return "operation-in-flight"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

type Operation string

const (
	OpLogin   Operation = "login"
	OpLogout  Operation = "logout"
	OpRefresh Operation = "refresh"
)

// Snapshot is a consistent view of the session at one instant.
type Snapshot struct {
	State           State
	Operation       Operation // Set only while State is StateOperationInFlight
	User            *users.User
	IsAuthenticated bool
	IsLoading       bool
	Error           error
}

// Manager is the session orchestrator. Initialize, Login, Logout and Refresh run one at a
// time in the order they were called; the accessors never block on an operation.
type Manager struct {
	adapter provider.Adapter
	queue   opQueue

	mu        sync.RWMutex
	state     State
	operation Operation
	user      *users.User
	lastError error

	subMu       sync.Mutex
	subscribers map[int]func(Snapshot)
	nextSubID   int
}

func New(adapter provider.Adapter) *Manager {
	return &Manager{
		adapter:     adapter,
		subscribers: make(map[int]func(Snapshot)),
	}
}

// Initialize restores any existing session from the adapter. It never fails: anything that
// goes wrong, a panic included, lands the session in StateUnauthenticated.
func (m *Manager) Initialize(ctx context.Context) {
	if err := m.queue.acquire(ctx); err != nil {
		return
	}
	defer m.queue.release()

	m.mu.Lock()
	if m.state != StateUninitialized {
		m.mu.Unlock()
		return
	}
	m.state = StateInitializing
	m.lastError = nil
	m.mu.Unlock()
	m.notify()

	u := m.restore(ctx)
	m.reconcile(ctx, u)
	log.Info().Str("state", m.State().String()).Msg("Session initialized")
}

func (m *Manager) restore(ctx context.Context) (u *users.User) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Msg("Adapter panicked during initialization")
			m.setError(fmt.Errorf("%w: %v", errors.ErrInitialization, r))
			u = nil
		}
	}()

	m.adapter.Initialize(ctx)
	if !m.adapter.IsAuthenticated() {
		return nil
	}
	if u = m.adapter.User(ctx); u == nil {
		// The adapter has already validated the session; a failed re-read must not end it.
		u = m.adapter.CurrentUser()
	}
	return u
}

// Login authenticates through the adapter. Calling it while authenticated returns the
// current user. On failure the session returns to the state it was in and the error is
// returned.
func (m *Manager) Login(ctx context.Context, opts provider.LoginOptions) (*users.User, error) {
	if err := m.queue.acquire(ctx); err != nil {
		return nil, err
	}
	defer m.queue.release()

	prior, err := m.begin(OpLogin)
	if err != nil {
		return nil, err
	}

	u, err := m.adapter.Login(ctx, opts)
	if err != nil {
		log.Err(err).Msg("Login failed")
		m.setError(err)
		m.reconcile(ctx, prior)
		return nil, err
	}
	m.reconcile(ctx, u)
	return m.User(), nil
}

// Logout always leaves the session unauthenticated. An adapter error is recorded and
// returned after the local state has been cleared.
func (m *Manager) Logout(ctx context.Context) error {
	if err := m.queue.acquire(ctx); err != nil {
		return err
	}
	defer m.queue.release()

	if _, err := m.begin(OpLogout); err != nil {
		return err
	}

	err := m.adapter.Logout(ctx)
	if err != nil {
		log.Err(err).Msg("Logout did not complete remotely")
		m.setError(err)
	}
	m.settle(nil)
	return err
}

// Refresh forces a token refresh and re-reads the user. A failed refresh ends the session
// and returns an error matching errors.ErrSessionExpired.
func (m *Manager) Refresh(ctx context.Context) (*users.User, error) {
	if err := m.queue.acquire(ctx); err != nil {
		return nil, err
	}
	defer m.queue.release()

	prior, err := m.begin(OpRefresh)
	if err != nil {
		return nil, err
	}

	if pair := m.adapter.RefreshToken(ctx); pair == nil {
		err := m.adapter.Error()
		if !errors.Is(err, errors.ErrSessionExpired) {
			err = errors.Join(errors.ErrSessionExpired, err)
		}
		log.Err(err).Msg("Session refresh failed")
		m.setError(err)
		m.reconcile(ctx, nil)
		return nil, err
	}

	u := m.adapter.User(ctx)
	if u == nil {
		u = m.adapter.CurrentUser()
	}
	if u == nil {
		u = prior
	}
	m.reconcile(ctx, u)
	return m.User(), nil
}

// begin moves a ready session into StateOperationInFlight and returns the user held before.
func (m *Manager) begin(op Operation) (*users.User, error) {
	m.mu.Lock()
	if m.state == StateUninitialized || m.state == StateInitializing {
		m.mu.Unlock()
		return nil, fmt.Errorf("%w: %s before the session was initialized", errors.ErrInitialization, op)
	}
	prior := m.user
	m.state = StateOperationInFlight
	m.operation = op
	m.lastError = nil
	m.mu.Unlock()
	m.notify()
	return prior, nil
}

// reconcile settles the session on the adapter's view of the world. A user is only kept
// while the adapter reports a connection; a connection without a user is torn down.
func (m *Manager) reconcile(ctx context.Context, u *users.User) {
	connected := m.adapter.IsConnected()
	switch {
	case u != nil && !connected:
		u = nil
	case u == nil && connected:
		log.Warn().Msg("Adapter connected without a user, logging out")
		if err := m.adapter.Logout(ctx); err != nil {
			log.Err(err).Msg("Failed to tear down orphaned connection")
		}
	}
	m.settle(u)
}

func (m *Manager) settle(u *users.User) {
	m.mu.Lock()
	m.user = u.Clone()
	m.operation = ""
	if u != nil {
		m.state = StateAuthenticated
	} else {
		m.state = StateUnauthenticated
	}
	m.mu.Unlock()
	m.notify()
}

func (m *Manager) setError(err error) {
	m.mu.Lock()
	m.lastError = err
	m.mu.Unlock()
}

// User returns a copy of the current user, or nil.
func (m *Manager) User() *users.User {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.user.Clone()
}

func (m *Manager) IsAuthenticated() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.user != nil
}

func (m *Manager) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

// IsLoading is true before initialization completes, while an operation runs, or while the
// adapter reports its own work in flight.
func (m *Manager) IsLoading() bool {
	m.mu.RLock()
	busy := m.state == StateUninitialized || m.state == StateInitializing || m.state == StateOperationInFlight
	m.mu.RUnlock()
	return busy || m.adapter.IsLoading()
}

// Error is the error of the last failed operation, falling back to the adapter's.
func (m *Manager) Error() error {
	m.mu.RLock()
	err := m.lastError
	m.mu.RUnlock()
	if err != nil {
		return err
	}
	return m.adapter.Error()
}

func (m *Manager) ClearError() {
	m.setError(nil)
	m.adapter.ClearError()
	m.notify()
}

func (m *Manager) Snapshot() Snapshot {
	m.mu.RLock()
	s := Snapshot{
		State:           m.state,
		Operation:       m.operation,
		User:            m.user.Clone(),
		IsAuthenticated: m.user != nil,
	}
	m.mu.RUnlock()
	s.IsLoading = m.IsLoading()
	s.Error = m.Error()
	return s
}

// Subscribe calls fn with a fresh Snapshot after every transition. Callbacks run on the
// goroutine performing the transition and must not call back into the Manager's operations.
func (m *Manager) Subscribe(fn func(Snapshot)) (cancel func()) {
	m.subMu.Lock()
	id := m.nextSubID
	m.nextSubID++
	m.subscribers[id] = fn
	m.subMu.Unlock()

	return func() {
		m.subMu.Lock()
		delete(m.subscribers, id)
		m.subMu.Unlock()
	}
}

func (m *Manager) notify() {
	m.subMu.Lock()
	fns := make([]func(Snapshot), 0, len(m.subscribers))
	for _, fn := range m.subscribers {
		fns = append(fns, fn)
	}
	m.subMu.Unlock()
	if len(fns) == 0 {
		return
	}

	s := m.Snapshot()
	for _, fn := range fns {
		fn(s)
	}
}
