package todo

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"todoflow/domain/repository"
)

// ErrManagerClosed is returned once the manager has been shut down
var ErrManagerClosed = errors.New("session manager closed")

// SessionObserver is notified about session lifecycle events
type SessionObserver interface {
	SetActiveSessions(n int)
	ObserveWatchRestart()
}

type nopSessionObserver struct{}

func (nopSessionObserver) SetActiveSessions(int) {}
func (nopSessionObserver) ObserveWatchRestart()  {}

type managedSession struct {
	session  *Session
	cancel   context.CancelFunc
	done     chan struct{}
	lastUsed time.Time
}

// Manager keeps one running session per owner and restarts subscriptions
// that fail.
type Manager struct {
	source      repository.TodoWatcher
	gateway     *Gateway
	backoff     time.Duration
	idleTimeout time.Duration
	keepAlive   func(owner string) bool
	now         func() time.Time
	logger      *zap.Logger
	observer    SessionObserver

	mu        sync.Mutex
	sessions  map[string]*managedSession
	listeners []func(Snapshot)
	closed    bool
	quit      chan struct{}
}

// ManagerOption configures a Manager
type ManagerOption func(*Manager)

// WithRestartBackoff sets the delay before a failed subscription is retried
func WithRestartBackoff(d time.Duration) ManagerOption {
	return func(m *Manager) { m.backoff = d }
}

// WithIdleTimeout stops a session that has not been asked for during d.
// Zero keeps sessions until Close.
func WithIdleTimeout(d time.Duration) ManagerOption {
	return func(m *Manager) { m.idleTimeout = d }
}

// WithKeepAlive marks owners whose sessions stay up while idle, e.g. those
// with a connected stream
func WithKeepAlive(fn func(owner string) bool) ManagerOption {
	return func(m *Manager) { m.keepAlive = fn }
}

func WithManagerLogger(logger *zap.Logger) ManagerOption {
	return func(m *Manager) { m.logger = logger }
}

func WithSessionObserver(o SessionObserver) ManagerOption {
	return func(m *Manager) { m.observer = o }
}

// NewManager creates a manager whose sessions share gateway
func NewManager(source repository.TodoWatcher, gateway *Gateway, opts ...ManagerOption) *Manager {
	m := &Manager{
		source:   source,
		gateway:  gateway,
		backoff:  2 * time.Second,
		logger:   zap.NewNop(),
		observer: nopSessionObserver{},
		now:      time.Now,
		sessions: make(map[string]*managedSession),
		quit:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.idleTimeout > 0 {
		go m.reap()
	}
	return m
}

// Gateway returns the shared mutation gateway
func (m *Manager) Gateway() *Gateway {
	return m.gateway
}

// OnSnapshot registers fn with every current and future session
func (m *Manager) OnSnapshot(fn func(Snapshot)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listeners = append(m.listeners, fn)
	for _, ms := range m.sessions {
		ms.session.OnSnapshot(fn)
	}
}

// Session returns the owner's running session, starting it on first use
func (m *Manager) Session(owner string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil, ErrManagerClosed
	}
	if ms, ok := m.sessions[owner]; ok {
		ms.lastUsed = m.now()
		return ms.session, nil
	}

	s := NewSession(owner, m.source, m.gateway, m.logger.Named("session"))
	for _, fn := range m.listeners {
		s.OnSnapshot(fn)
	}

	ctx, cancel := context.WithCancel(context.Background())
	ms := &managedSession{session: s, cancel: cancel, done: make(chan struct{}), lastUsed: m.now()}
	m.sessions[owner] = ms
	m.observer.SetActiveSessions(len(m.sessions))

	go m.run(ctx, ms)

	m.logger.Info("Session started", zap.String("owner", owner))
	return s, nil
}

// Len returns the number of live sessions
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// Remove stops and forgets the owner's session
func (m *Manager) Remove(owner string) {
	m.mu.Lock()
	ms, ok := m.sessions[owner]
	if ok {
		delete(m.sessions, owner)
		m.observer.SetActiveSessions(len(m.sessions))
	}
	m.mu.Unlock()

	if ok {
		m.stop(ms)
	}
}

// Close stops every session
func (m *Manager) Close() {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.closed = true
	close(m.quit)
	sessions := m.sessions
	m.sessions = make(map[string]*managedSession)
	m.observer.SetActiveSessions(0)
	m.mu.Unlock()

	for _, ms := range sessions {
		m.stop(ms)
	}
	m.logger.Info("All sessions stopped", zap.Int("count", len(sessions)))
}

func (m *Manager) reap() {
	interval := max(m.idleTimeout/2, time.Millisecond)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-m.quit:
			return
		case <-ticker.C:
			m.evictIdle()
		}
	}
}

// evictIdle stops the sessions unused for longer than the idle timeout
func (m *Manager) evictIdle() int {
	cutoff := m.now().Add(-m.idleTimeout)

	m.mu.Lock()
	var idle []*managedSession
	for owner, ms := range m.sessions {
		if ms.lastUsed.After(cutoff) {
			continue
		}
		if m.keepAlive != nil && m.keepAlive(owner) {
			continue
		}
		delete(m.sessions, owner)
		idle = append(idle, ms)
	}
	if len(idle) > 0 {
		m.observer.SetActiveSessions(len(m.sessions))
	}
	m.mu.Unlock()

	for _, ms := range idle {
		m.stop(ms)
		m.logger.Info("Idle session stopped", zap.String("owner", ms.session.Owner()))
	}
	return len(idle)
}

func (m *Manager) stop(ms *managedSession) {
	ms.cancel()
	<-ms.done
	ms.session.Close()
}

func (m *Manager) run(ctx context.Context, ms *managedSession) {
	defer close(ms.done)
	owner := ms.session.Owner()

	for {
		err := ms.session.Run(ctx)
		if ctx.Err() != nil || owner == "" {
			return
		}

		m.observer.ObserveWatchRestart()
		m.logger.Warn("Subscription ended, restarting",
			zap.String("owner", owner),
			zap.Duration("backoff", m.backoff),
			zap.Error(err))

		select {
		case <-ctx.Done():
			return
		case <-time.After(m.backoff):
		}
	}
}
