// Package memory is an in-process todo store with push snapshots, used for
// development, tests and single-node deployments.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"todoflow/domain"
	"todoflow/domain/entity"
	"todoflow/domain/repository"
)

// todoRepository implements repository.Store
type todoRepository struct {
	mu      sync.RWMutex
	todos   map[string]entity.Todo
	watches map[string]map[int]chan struct{}
	nextSub int
}

// NewTodoRepository creates an empty in-memory store
func NewTodoRepository() repository.Store {
	return &todoRepository{
		todos:   make(map[string]entity.Todo),
		watches: make(map[string]map[int]chan struct{}),
	}
}

func (r *todoRepository) Create(ctx context.Context, todo *entity.Todo) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	stored := todo.Clone()
	stored.Normalize()
	if stored.ID == "" {
		stored.ID = uuid.NewString()
	}

	r.mu.Lock()
	r.todos[stored.ID] = stored
	r.mu.Unlock()

	r.notify(stored.UserID)
	return stored.ID, nil
}

func (r *todoRepository) Update(ctx context.Context, todo *entity.Todo) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if todo.ID == "" {
		return domain.ErrMissingID
	}

	stored := todo.Clone()
	stored.Normalize()

	r.mu.Lock()
	prev, ok := r.todos[stored.ID]
	if !ok {
		r.mu.Unlock()
		return domain.ErrNotFound
	}
	r.todos[stored.ID] = stored
	r.mu.Unlock()

	r.notify(stored.UserID)
	if prev.UserID != stored.UserID {
		r.notify(prev.UserID)
	}
	return nil
}

func (r *todoRepository) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	prev, ok := r.todos[id]
	if !ok {
		r.mu.Unlock()
		return domain.ErrNotFound
	}
	delete(r.todos, id)
	r.mu.Unlock()

	r.notify(prev.UserID)
	return nil
}

func (r *todoRepository) ListByOwner(ctx context.Context, ownerID string) ([]entity.Todo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return r.list(ownerID), nil
}

// Watch delivers the owner's list now and after every write that touches it.
// Bursts of writes may be coalesced into one delivery.
func (r *todoRepository) Watch(ctx context.Context, ownerID string, deliver func([]entity.Todo)) error {
	signal := make(chan struct{}, 1)

	r.mu.Lock()
	id := r.nextSub
	r.nextSub++
	if r.watches[ownerID] == nil {
		r.watches[ownerID] = make(map[int]chan struct{})
	}
	r.watches[ownerID][id] = signal
	r.mu.Unlock()

	defer func() {
		r.mu.Lock()
		delete(r.watches[ownerID], id)
		if len(r.watches[ownerID]) == 0 {
			delete(r.watches, ownerID)
		}
		r.mu.Unlock()
	}()

	deliver(r.list(ownerID))
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-signal:
			deliver(r.list(ownerID))
		}
	}
}

func (r *todoRepository) list(ownerID string) []entity.Todo {
	r.mu.RLock()
	out := make([]entity.Todo, 0)
	for _, t := range r.todos {
		if t.UserID == ownerID {
			out = append(out, t.Clone())
		}
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt != out[j].CreatedAt {
			return out[i].CreatedAt > out[j].CreatedAt
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func (r *todoRepository) notify(ownerID string) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, signal := range r.watches[ownerID] {
		select {
		case signal <- struct{}{}:
		default:
		}
	}
}
