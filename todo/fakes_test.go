package todo

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"todoflow/domain/entity"
	"todoflow/infrastructure/worker"
)

type fakeRepo struct {
	mu        sync.Mutex
	created   []entity.Todo
	updated   []entity.Todo
	deleted   []string
	nextID    int
	createErr error
	updateErr error
	deleteErr error
}

func (r *fakeRepo) Create(_ context.Context, t *entity.Todo) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.createErr != nil {
		return "", r.createErr
	}
	r.nextID++
	id := fmt.Sprintf("todo-%d", r.nextID)
	c := t.Clone()
	c.ID = id
	r.created = append(r.created, c)
	return id, nil
}

func (r *fakeRepo) Update(_ context.Context, t *entity.Todo) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.updated = append(r.updated, t.Clone())
	return r.updateErr
}

func (r *fakeRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.deleted = append(r.deleted, id)
	return r.deleteErr
}

func (r *fakeRepo) ListByOwner(context.Context, string) ([]entity.Todo, error) {
	return nil, errors.New("not implemented")
}

func (r *fakeRepo) calls() (created, updated int, deleted []string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.created), len(r.updated), append([]string(nil), r.deleted...)
}

type fakeScheduler struct {
	mu        sync.Mutex
	scheduled []entity.Reminder
	cancelled []string
}

func (s *fakeScheduler) Schedule(_ context.Context, r entity.Reminder) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scheduled = append(s.scheduled, r)
	return nil
}

func (s *fakeScheduler) Cancel(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cancelled = append(s.cancelled, id)
	return nil
}

func (s *fakeScheduler) snapshot() ([]entity.Reminder, []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]entity.Reminder(nil), s.scheduled...), append([]string(nil), s.cancelled...)
}

type fakeIdentity struct{ owner string }

func (f fakeIdentity) CurrentOwner(context.Context) (string, bool) {
	return f.owner, f.owner != ""
}

// fakeWatcher hands each Watch call a channel of snapshots to deliver
type fakeWatcher struct {
	mu      sync.Mutex
	calls   int
	feed    chan []entity.Todo
	failErr error
}

func newFakeWatcher() *fakeWatcher {
	return &fakeWatcher{feed: make(chan []entity.Todo, 8)}
}

func (w *fakeWatcher) Watch(ctx context.Context, _ string, deliver func([]entity.Todo)) error {
	w.mu.Lock()
	w.calls++
	failErr := w.failErr
	w.failErr = nil
	w.mu.Unlock()

	if failErr != nil {
		return failErr
	}
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case todos := <-w.feed:
			deliver(todos)
		}
	}
}

func (w *fakeWatcher) callCount() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.calls
}

// stuckPool accepts nothing
type stuckPool struct{}

func (stuckPool) Start(int)                 {}
func (stuckPool) SubmitJob(worker.Job) bool { return false }
func (stuckPool) Stop()                     {}
