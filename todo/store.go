// Package todo holds the per-owner to-do pipeline: the task store, the filter
// state, the derived filtered list and statistics, and the mutation gateway.
package todo

import (
	"todoflow/domain/entity"
	"todoflow/reactive"
)

// Store is the authoritative in-memory list of one owner's todos.
// It is only ever replaced wholesale by the subscription.
type Store struct {
	todos *reactive.Value[[]entity.Todo]
}

// NewStore creates an empty store
func NewStore() *Store {
	return &Store{todos: reactive.NewValue([]entity.Todo{})}
}

// Replace swaps the whole list. The input is copied, ordering is kept as given.
func (s *Store) Replace(todos []entity.Todo) {
	s.todos.Set(entity.CloneTodos(todos))
}

// Todos returns the current list. Callers must not modify it.
func (s *Store) Todos() []entity.Todo {
	return s.todos.Get()
}

// Find returns the todo with the given id from the current list
func (s *Store) Find(id string) (entity.Todo, bool) {
	for _, t := range s.todos.Get() {
		if t.ID == id {
			return t.Clone(), true
		}
	}
	return entity.Todo{}, false
}

// Observable exposes the list for subscription and derivation
func (s *Store) Observable() *reactive.Value[[]entity.Todo] {
	return s.todos
}
