package postgres

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// subscription is woken whenever its owner's rows may have changed. The
// buffer of one coalesces bursts into a single re-read.
type subscription struct {
	owner string
	wake  chan struct{}
}

// subscribers routes notification payloads to the subscriptions of an owner
type subscribers struct {
	mu     sync.Mutex
	owners map[string]map[*subscription]struct{}
	count  int
}

func newSubscribers() *subscribers {
	return &subscribers{owners: make(map[string]map[*subscription]struct{})}
}

// add registers a subscription for owner; first is true for the first
// subscription overall
func (s *subscribers) add(owner string) (sub *subscription, first bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sub = &subscription{owner: owner, wake: make(chan struct{}, 1)}
	if s.owners[owner] == nil {
		s.owners[owner] = make(map[*subscription]struct{})
	}
	s.owners[owner][sub] = struct{}{}
	s.count++
	return sub, s.count == 1
}

// remove drops sub; last is true when no subscription is left
func (s *subscribers) remove(sub *subscription) (last bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	subs := s.owners[sub.owner]
	if _, ok := subs[sub]; !ok {
		return false
	}
	delete(subs, sub)
	if len(subs) == 0 {
		delete(s.owners, sub.owner)
	}
	s.count--
	return s.count == 0
}

func (s *subscribers) notify(owner string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for sub := range s.owners[owner] {
		wake(sub)
	}
}

func (s *subscribers) notifyAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, subs := range s.owners {
		for sub := range subs {
			wake(sub)
		}
	}
}

func wake(sub *subscription) {
	select {
	case sub.wake <- struct{}{}:
	default:
	}
}

// listener holds the one connection in LISTEN on Channel for all watchers of
// a repository. It runs while at least one watcher is subscribed and
// reconnects after a lost connection.
type listener struct {
	db      *pgxpool.Pool
	logger  *zap.Logger
	backoff time.Duration
	subs    *subscribers

	mu     sync.Mutex
	cancel context.CancelFunc
}

func newListener(db *pgxpool.Pool, logger *zap.Logger) *listener {
	return &listener{
		db:      db,
		logger:  logger,
		backoff: time.Second,
		subs:    newSubscribers(),
	}
}

func (l *listener) subscribe(owner string) *subscription {
	l.mu.Lock()
	defer l.mu.Unlock()
	sub, first := l.subs.add(owner)
	if first && l.cancel == nil {
		ctx, cancel := context.WithCancel(context.Background())
		l.cancel = cancel
		go l.run(ctx)
	}
	return sub
}

func (l *listener) unsubscribe(sub *subscription) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.subs.remove(sub) && l.cancel != nil {
		l.cancel()
		l.cancel = nil
	}
}

func (l *listener) run(ctx context.Context) {
	for {
		err := l.listen(ctx)
		if ctx.Err() != nil {
			return
		}
		l.logger.Warn("LISTEN connection lost, reconnecting",
			zap.Duration("backoff", l.backoff),
			zap.Error(err))

		select {
		case <-ctx.Done():
			return
		case <-time.After(l.backoff):
		}
	}
}

func (l *listener) listen(ctx context.Context) error {
	conn, err := l.db.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire listen connection: %w", err)
	}
	// a connection that was waiting on notifications is never handed back
	defer func() {
		conn.Conn().Close(context.Background())
		conn.Release()
	}()

	if _, err := conn.Exec(ctx, "LISTEN "+pgx.Identifier{Channel}.Sanitize()); err != nil {
		return fmt.Errorf("listen: %w", err)
	}
	l.logger.Debug("Listening for todo changes", zap.String("channel", Channel))

	// anything written while no connection was listening is re-read
	l.subs.notifyAll()

	for {
		n, err := conn.Conn().WaitForNotification(ctx)
		if err != nil {
			return fmt.Errorf("wait for notification: %w", err)
		}
		l.subs.notify(n.Payload)
	}
}
