package todo

import (
	"time"

	"todoflow/domain/entity"
	"todoflow/reactive"
)

// Engine derives the filtered list and the statistics of one owner's store
type Engine struct {
	filtered *reactive.Derived[[]entity.Todo]
	stats    *reactive.Derived[entity.Stats]
}

// NewEngine wires the derivations. clock defaults to time.Now.
func NewEngine(store *Store, filters *FilterState, clock func() time.Time) *Engine {
	if clock == nil {
		clock = time.Now
	}
	todos := store.Observable()
	selection := filters.Observable()

	return &Engine{
		filtered: reactive.Derive(func() []entity.Todo {
			return FilterTodos(todos.Get(), selection.Get())
		}, todos, selection),
		stats: reactive.Derive(func() entity.Stats {
			return ComputeStats(todos.Get(), clock())
		}, todos),
	}
}

// Filtered is the current filtered view
func (e *Engine) Filtered() []entity.Todo {
	return e.filtered.Get()
}

// Stats is the current statistics snapshot
func (e *Engine) Stats() entity.Stats {
	return e.stats.Get()
}

// FilteredObservable exposes the filtered view for subscription
func (e *Engine) FilteredObservable() reactive.Observable[[]entity.Todo] {
	return e.filtered
}

// StatsObservable exposes the statistics for subscription
func (e *Engine) StatsObservable() reactive.Observable[entity.Stats] {
	return e.stats
}

// Close detaches both derivations from their inputs
func (e *Engine) Close() {
	e.filtered.Close()
	e.stats.Close()
}
