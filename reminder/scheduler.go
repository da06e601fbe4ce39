// Package reminder arms one-shot timers for todo reminders and hands due
// reminders to notifiers.
package reminder

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"todoflow/domain/entity"
	"todoflow/infrastructure/worker"
)

// ErrSchedulerClosed is returned by Schedule after Close
var ErrSchedulerClosed = errors.New("reminder scheduler closed")

// Notifier delivers a due reminder
type Notifier interface {
	Notify(ctx context.Context, r entity.Reminder) error
}

// NotifierFunc adapts a function to Notifier
type NotifierFunc func(ctx context.Context, r entity.Reminder) error

func (f NotifierFunc) Notify(ctx context.Context, r entity.Reminder) error {
	return f(ctx, r)
}

// Observer is told about every delivery attempt
type Observer interface {
	ObserveDelivery(err error)
}

type nopObserver struct{}

func (nopObserver) ObserveDelivery(error) {}

type armed struct {
	reminder entity.Reminder
	timer    *time.Timer
	gen      uint64
}

// Scheduler keeps at most one pending reminder per todo. Scheduling a todo
// again replaces its reminder; cancelling an unknown todo does nothing.
type Scheduler struct {
	notifier Notifier
	pool     worker.WorkerPool
	logger   *zap.Logger
	observer Observer
	clock    func() time.Time

	mu      sync.Mutex
	pending map[string]*armed
	gen     uint64
	closed  bool
}

// Option configures a Scheduler
type Option func(*Scheduler)

func WithLogger(logger *zap.Logger) Option {
	return func(s *Scheduler) { s.logger = logger }
}

func WithObserver(o Observer) Option {
	return func(s *Scheduler) { s.observer = o }
}

func WithClock(clock func() time.Time) Option {
	return func(s *Scheduler) { s.clock = clock }
}

// NewScheduler creates a scheduler delivering through notifier on pool
func NewScheduler(notifier Notifier, pool worker.WorkerPool, opts ...Option) *Scheduler {
	s := &Scheduler{
		notifier: notifier,
		pool:     pool,
		logger:   zap.NewNop(),
		observer: nopObserver{},
		clock:    time.Now,
		pending:  make(map[string]*armed),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Schedule arms r. A reminder already due fires right away.
func (s *Scheduler) Schedule(_ context.Context, r entity.Reminder) error {
	if r.TaskID == "" {
		return errors.New("reminder has no task id")
	}

	delay := r.At.Sub(s.clock())
	if delay < 0 {
		delay = 0
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrSchedulerClosed
	}

	if prev, ok := s.pending[r.TaskID]; ok {
		prev.timer.Stop()
	}
	s.gen++
	gen := s.gen
	a := &armed{reminder: r, gen: gen}
	a.timer = time.AfterFunc(delay, func() { s.fire(r.TaskID, gen) })
	s.pending[r.TaskID] = a

	s.logger.Debug("Reminder scheduled",
		zap.String("todo_id", r.TaskID),
		zap.Time("at", r.At),
		zap.Duration("in", delay))
	return nil
}

// Cancel disarms the reminder of taskID, if any
func (s *Scheduler) Cancel(_ context.Context, taskID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if a, ok := s.pending[taskID]; ok {
		a.timer.Stop()
		delete(s.pending, taskID)
		s.logger.Debug("Reminder cancelled", zap.String("todo_id", taskID))
	}
	return nil
}

// Pending lists armed reminders, soonest first
func (s *Scheduler) Pending() []entity.Reminder {
	s.mu.Lock()
	out := make([]entity.Reminder, 0, len(s.pending))
	for _, a := range s.pending {
		out = append(out, a.reminder)
	}
	s.mu.Unlock()

	sort.Slice(out, func(i, j int) bool { return out[i].At.Before(out[j].At) })
	return out
}

// Close disarms everything; later Schedule calls fail
func (s *Scheduler) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	for id, a := range s.pending {
		a.timer.Stop()
		delete(s.pending, id)
	}
}

func (s *Scheduler) fire(taskID string, gen uint64) {
	s.mu.Lock()
	a, ok := s.pending[taskID]
	if !ok || a.gen != gen {
		// replaced or cancelled after the timer started firing
		s.mu.Unlock()
		return
	}
	delete(s.pending, taskID)
	s.mu.Unlock()

	r := a.reminder
	job := worker.Job{
		Name: "reminder.notify",
		Run: func(ctx context.Context) error {
			err := s.notifier.Notify(ctx, r)
			s.observer.ObserveDelivery(err)
			if err != nil {
				return err
			}
			s.logger.Info("Reminder delivered",
				zap.String("todo_id", r.TaskID),
				zap.String("owner", r.OwnerID))
			return nil
		},
	}
	if !s.pool.SubmitJob(job) {
		s.observer.ObserveDelivery(worker.ErrPoolUnavailable)
		s.logger.Warn("Reminder dropped, worker pool unavailable", zap.String("todo_id", r.TaskID))
	}
}
