package repository

import (
	"context"

	"todoflow/domain/entity"
)

// TodoRepository defines the interface for todo persistence
type TodoRepository interface {
	// Create stores a new todo and returns the identifier it was assigned
	Create(ctx context.Context, todo *entity.Todo) (string, error)

	// Update replaces the full record identified by todo.ID
	Update(ctx context.Context, todo *entity.Todo) error

	Delete(ctx context.Context, id string) error

	// ListByOwner returns the owner's todos, newest first
	ListByOwner(ctx context.Context, ownerID string) ([]entity.Todo, error)
}

// TodoWatcher pushes full snapshots of an owner's todo list.
//
// Watch delivers the current list immediately and again after every change,
// ordered newest first. It blocks until ctx is done (returning nil or the
// context error) or the backend fails unrecoverably. Watch may be called
// again after it returns.
type TodoWatcher interface {
	Watch(ctx context.Context, ownerID string, deliver func([]entity.Todo)) error
}

// Store is a persistence backend that also provides live snapshots
type Store interface {
	TodoRepository
	TodoWatcher
}

// ReminderScheduler arms and disarms one-shot reminders keyed by todo ID.
// Cancelling an unknown reminder is a no-op.
type ReminderScheduler interface {
	Schedule(ctx context.Context, reminder entity.Reminder) error
	Cancel(ctx context.Context, taskID string) error
}

// IdentityProvider exposes the owner on whose behalf a call is made
type IdentityProvider interface {
	CurrentOwner(ctx context.Context) (string, bool)
}
