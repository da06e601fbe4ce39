package todo

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"todoflow/domain/entity"
	"todoflow/domain/repository"
	"todoflow/reactive"
)

// Snapshot is what a session publishes after every change
type Snapshot struct {
	Owner    string        `json:"owner"`
	Filters  Filters       `json:"filters"`
	Todos    []entity.Todo `json:"todos"`
	Stats    entity.Stats  `json:"stats"`
	Filtered bool          `json:"filtered"`
}

// Session is one owner's live view: store, filters, derivations and the
// gateway used to change it.
type Session struct {
	owner   string
	source  repository.TodoWatcher
	gateway *Gateway
	logger  *zap.Logger

	store    *Store
	filters  *FilterState
	engine   *Engine
	snapshot *reactive.Derived[Snapshot]

	rearmOnce sync.Once
	readyOnce sync.Once
	ready     chan struct{}
}

// NewSession builds the pipeline for owner. Run starts feeding it.
func NewSession(owner string, source repository.TodoWatcher, gateway *Gateway, logger *zap.Logger) *Session {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Session{
		owner:   owner,
		source:  source,
		gateway: gateway,
		logger:  logger.With(zap.String("owner", owner)),
		store:   NewStore(),
		filters: NewFilterState(),
		ready:   make(chan struct{}),
	}
	s.engine = NewEngine(s.store, s.filters, gateway.clock)

	// list and stats come from one read of the inputs so a published
	// snapshot never pairs a new list with old stats
	todos := s.store.Observable()
	selection := s.filters.Observable()
	clock := gateway.clock
	s.snapshot = reactive.Derive(func() Snapshot {
		all := todos.Get()
		f := selection.Get().clone()
		return Snapshot{
			Owner:    owner,
			Filters:  f,
			Todos:    FilterTodos(all, f),
			Stats:    ComputeStats(all, clock()),
			Filtered: f.Active(),
		}
	}, todos, selection)
	return s
}

// Run subscribes to the owner's list and replaces the store on every
// delivery. It returns when ctx is done or the subscription fails.
// Without an owner the list stays empty and nothing is subscribed.
func (s *Session) Run(ctx context.Context) error {
	if s.owner == "" {
		s.store.Replace(nil)
		s.markReady()
		return nil
	}
	s.logger.Debug("Subscribing to todo list")
	return s.source.Watch(ctx, s.owner, func(todos []entity.Todo) {
		s.store.Replace(todos)
		s.markReady()
		s.rearmOnce.Do(func() {
			if n := s.gateway.Rearm(ctx, todos); n > 0 {
				s.logger.Info("Re-armed reminders", zap.Int("count", n))
			}
		})
	})
}

func (s *Session) markReady() {
	s.readyOnce.Do(func() { close(s.ready) })
}

// Ready is closed once the first list has been delivered
func (s *Session) Ready() <-chan struct{} {
	return s.ready
}

func (s *Session) Owner() string { return s.owner }

func (s *Session) Store() *Store { return s.store }

func (s *Session) Filters() *FilterState { return s.filters }

func (s *Session) Engine() *Engine { return s.engine }

func (s *Session) Gateway() *Gateway { return s.gateway }

// Snapshot returns the latest published snapshot
func (s *Session) Snapshot() Snapshot {
	return s.snapshot.Get()
}

// OnSnapshot registers fn for every published snapshot
func (s *Session) OnSnapshot(fn func(Snapshot)) func() {
	return s.snapshot.Subscribe(fn)
}

// Close detaches all derivations
func (s *Session) Close() {
	s.snapshot.Close()
	s.engine.Close()
}
