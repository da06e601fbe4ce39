package todo

import (
	"todoflow/domain/entity"
	"todoflow/reactive"
)

// Filters restricts which todos appear in the filtered view.
// A nil Category or Priority means "any".
type Filters struct {
	Category      *entity.Category `json:"category"`
	Priority      *entity.Priority `json:"priority"`
	ShowCompleted bool             `json:"showCompleted"`
}

// DefaultFilters passes every todo
func DefaultFilters() Filters {
	return Filters{ShowCompleted: true}
}

// Active reports whether any filter narrows the view
func (f Filters) Active() bool {
	return f.Category != nil || f.Priority != nil || !f.ShowCompleted
}

// Matches reports whether t passes all three filters
func (f Filters) Matches(t entity.Todo) bool {
	if f.Category != nil && t.Category != *f.Category {
		return false
	}
	if f.Priority != nil && t.Priority != *f.Priority {
		return false
	}
	return f.ShowCompleted || !t.Completed
}

func (f Filters) clone() Filters {
	out := Filters{ShowCompleted: f.ShowCompleted}
	if f.Category != nil {
		c := *f.Category
		out.Category = &c
	}
	if f.Priority != nil {
		p := *f.Priority
		out.Priority = &p
	}
	return out
}

// FilterTodos returns the todos matching filters in their original order
func FilterTodos(todos []entity.Todo, filters Filters) []entity.Todo {
	out := make([]entity.Todo, 0, len(todos))
	for _, t := range todos {
		if filters.Matches(t) {
			out = append(out, t)
		}
	}
	return out
}

// FilterState holds the user's current filter selection as one observable
// value, so a reset is a single update.
type FilterState struct {
	filters *reactive.Value[Filters]
}

// NewFilterState starts with no narrowing
func NewFilterState() *FilterState {
	return &FilterState{filters: reactive.NewValue(DefaultFilters())}
}

// SetCategory sets or, with nil, clears the category filter
func (s *FilterState) SetCategory(c *entity.Category) {
	s.filters.Update(func(f Filters) Filters {
		f = f.clone()
		f.Category = copyPtr(c)
		return f
	})
}

// SetPriority sets or, with nil, clears the priority filter
func (s *FilterState) SetPriority(p *entity.Priority) {
	s.filters.Update(func(f Filters) Filters {
		f = f.clone()
		f.Priority = copyPtr(p)
		return f
	})
}

// SetShowCompleted includes or hides completed todos
func (s *FilterState) SetShowCompleted(show bool) {
	s.filters.Update(func(f Filters) Filters {
		f = f.clone()
		f.ShowCompleted = show
		return f
	})
}

// ClearFilters resets category, priority and showCompleted at once
func (s *FilterState) ClearFilters() {
	s.filters.Set(DefaultFilters())
}

// Apply replaces the whole selection
func (s *FilterState) Apply(f Filters) {
	s.filters.Set(f.clone())
}

// Current returns a copy of the selection
func (s *FilterState) Current() Filters {
	return s.filters.Get().clone()
}

// Observable exposes the selection for derivation
func (s *FilterState) Observable() *reactive.Value[Filters] {
	return s.filters
}

func copyPtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
