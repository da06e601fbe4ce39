package todo

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"todoflow/domain"
	"todoflow/domain/entity"
	"todoflow/domain/repository"
	"todoflow/infrastructure/worker"
	"todoflow/reactive"
)

// Mutation names, used for job names, logs and metrics
const (
	OpAdd    = "add"
	OpToggle = "toggle"
	OpUpdate = "update"
	OpDelete = "delete"
)

// Result is the outcome of one mutation. ID is the affected todo, and for
// AddTask the identifier assigned by persistence.
type Result struct {
	ID  string
	Err error
}

// NewTask is the input of AddTask
type NewTask struct {
	Title        string
	Description  string
	Priority     entity.Priority
	Category     entity.Category
	ReminderTime *int64
	Tags         []string
}

// Update is the input of UpdateTask; every field replaces the stored one
type Update struct {
	Title        string
	Description  string
	Priority     entity.Priority
	Category     entity.Category
	ReminderTime *int64
	Tags         []string
}

// Recorder observes finished mutations
type Recorder interface {
	ObserveMutation(op string, err error, elapsed time.Duration)
	ObserveReminder(action string, err error)
}

type nopRecorder struct{}

func (nopRecorder) ObserveMutation(string, error, time.Duration) {}
func (nopRecorder) ObserveReminder(string, error)                {}

// Gateway turns add/update/toggle/delete intents into background jobs that
// write to persistence and arm or disarm reminders. Callers are never
// blocked; each call returns a channel that receives exactly one Result.
// The change itself becomes visible when the subscription redelivers.
type Gateway struct {
	repo      repository.TodoRepository
	reminders repository.ReminderScheduler
	identity  repository.IdentityProvider
	pool      worker.WorkerPool
	logger    *zap.Logger
	recorder  Recorder
	clock     func() time.Time

	inFlight *reactive.Value[int]
}

// GatewayOption configures a Gateway
type GatewayOption func(*Gateway)

func WithGatewayLogger(logger *zap.Logger) GatewayOption {
	return func(g *Gateway) { g.logger = logger }
}

func WithRecorder(r Recorder) GatewayOption {
	return func(g *Gateway) { g.recorder = r }
}

// WithClock sets the source of creation timestamps
func WithClock(clock func() time.Time) GatewayOption {
	return func(g *Gateway) { g.clock = clock }
}

// NewGateway creates a gateway running its jobs on pool
func NewGateway(
	repo repository.TodoRepository,
	reminders repository.ReminderScheduler,
	identity repository.IdentityProvider,
	pool worker.WorkerPool,
	opts ...GatewayOption,
) *Gateway {
	g := &Gateway{
		repo:      repo,
		reminders: reminders,
		identity:  identity,
		pool:      pool,
		logger:    zap.NewNop(),
		recorder:  nopRecorder{},
		clock:     time.Now,
		inFlight:  reactive.NewValue(0),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// InFlight counts mutations accepted but not yet finished
func (g *Gateway) InFlight() reactive.Observable[int] {
	return g.inFlight
}

// AddTask creates a todo for the current owner and, once the store has
// assigned an identifier, schedules its reminder.
func (g *Gateway) AddTask(ctx context.Context, in NewTask) <-chan Result {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return g.reject(OpAdd, domain.ErrBlankTitle)
	}
	owner, err := g.owner(ctx)
	if err != nil {
		return g.reject(OpAdd, err)
	}

	todo := entity.Todo{
		Title:        title,
		Description:  strings.TrimSpace(in.Description),
		CreatedAt:    entity.Millis(g.clock()),
		UserID:       owner,
		Priority:     in.Priority,
		Category:     in.Category,
		ReminderTime: copyPtr(in.ReminderTime),
		Tags:         append([]string(nil), in.Tags...),
	}
	todo.Normalize()

	return g.submit(OpAdd, func(ctx context.Context) (string, error) {
		id, err := g.repo.Create(ctx, &todo)
		if err != nil {
			return "", persistenceError(err)
		}
		todo.ID = id
		if todo.ReminderTime != nil {
			g.schedule(ctx, entity.ReminderFor(todo, *todo.ReminderTime))
		}
		return id, nil
	})
}

// ToggleCompletion flips the completed flag and disarms the reminder of a
// todo that became completed
func (g *Gateway) ToggleCompletion(ctx context.Context, todo entity.Todo) <-chan Result {
	if err := g.authorize(ctx, todo); err != nil {
		return g.reject(OpToggle, err)
	}
	updated := todo.Clone()
	updated.Completed = !todo.Completed

	return g.submit(OpToggle, func(ctx context.Context) (string, error) {
		err := g.repo.Update(ctx, &updated)
		if updated.Completed {
			g.cancel(ctx, updated.ID)
		}
		if err != nil {
			return updated.ID, persistenceError(err)
		}
		return updated.ID, nil
	})
}

// UpdateTask replaces the editable fields of todo. The previous reminder is
// always cancelled; a new one is armed only for an incomplete todo with a
// reminder time.
func (g *Gateway) UpdateTask(ctx context.Context, todo entity.Todo, in Update) <-chan Result {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return g.reject(OpUpdate, domain.ErrBlankTitle)
	}
	if err := g.authorize(ctx, todo); err != nil {
		return g.reject(OpUpdate, err)
	}

	updated := todo.Clone()
	updated.Title = title
	updated.Description = strings.TrimSpace(in.Description)
	updated.Priority = in.Priority
	updated.Category = in.Category
	updated.ReminderTime = copyPtr(in.ReminderTime)
	updated.Tags = append([]string(nil), in.Tags...)
	updated.Normalize()

	return g.submit(OpUpdate, func(ctx context.Context) (string, error) {
		err := g.repo.Update(ctx, &updated)
		g.cancel(ctx, updated.ID)
		if updated.ReminderTime != nil && !updated.Completed {
			g.schedule(ctx, entity.ReminderFor(updated, *updated.ReminderTime))
		}
		if err != nil {
			return updated.ID, persistenceError(err)
		}
		return updated.ID, nil
	})
}

// DeleteTask removes todo and cancels its reminder whatever the outcome
func (g *Gateway) DeleteTask(ctx context.Context, todo entity.Todo) <-chan Result {
	if err := g.authorize(ctx, todo); err != nil {
		return g.reject(OpDelete, err)
	}
	id := todo.ID

	return g.submit(OpDelete, func(ctx context.Context) (string, error) {
		err := g.repo.Delete(ctx, id)
		g.cancel(ctx, id)
		if err != nil {
			return id, persistenceError(err)
		}
		return id, nil
	})
}

func (g *Gateway) owner(ctx context.Context) (string, error) {
	owner, ok := g.identity.CurrentOwner(ctx)
	if !ok || owner == "" {
		return "", domain.ErrUnauthenticated
	}
	return owner, nil
}

// authorize admits a change to an existing todo of the caller. Another
// owner's todo is reported as not found.
func (g *Gateway) authorize(ctx context.Context, todo entity.Todo) error {
	if todo.ID == "" {
		return domain.ErrMissingID
	}
	owner, err := g.owner(ctx)
	if err != nil {
		return err
	}
	if todo.UserID != owner {
		return domain.ErrNotFound
	}
	return nil
}

// submit queues run on the pool. The result channel is filled even if run
// panics.
func (g *Gateway) submit(op string, run func(ctx context.Context) (string, error)) <-chan Result {
	out := make(chan Result, 1)
	start := g.clock()

	g.inFlight.Update(func(n int) int { return n + 1 })
	job := worker.Job{
		Name: "todo." + op,
		Run: func(ctx context.Context) error {
			res := Result{Err: domain.ErrInternalServerError}
			defer func() {
				g.inFlight.Update(func(n int) int { return n - 1 })
				g.finish(op, out, res, start)
			}()
			res.ID, res.Err = run(ctx)
			return res.Err
		},
	}

	if !g.pool.SubmitJob(job) {
		g.inFlight.Update(func(n int) int { return n - 1 })
		g.logger.Warn("Mutation rejected, worker pool is full", zap.String("op", op))
		g.finish(op, out, Result{Err: domain.ErrQueueFull}, start)
	}
	return out
}

func (g *Gateway) reject(op string, err error) <-chan Result {
	out := make(chan Result, 1)
	g.logger.Debug("Mutation rejected", zap.String("op", op), zap.Error(err))
	g.finish(op, out, Result{Err: err}, g.clock())
	return out
}

func (g *Gateway) finish(op string, out chan<- Result, res Result, start time.Time) {
	g.recorder.ObserveMutation(op, res.Err, g.clock().Sub(start))
	out <- res
	close(out)
}

func (g *Gateway) schedule(ctx context.Context, r entity.Reminder) {
	err := g.reminders.Schedule(ctx, r)
	g.recorder.ObserveReminder("schedule", err)
	if err != nil {
		g.logger.Warn("Failed to schedule reminder",
			zap.String("todo_id", r.TaskID),
			zap.Time("at", r.At),
			zap.Error(err))
	}
}

func (g *Gateway) cancel(ctx context.Context, id string) {
	err := g.reminders.Cancel(ctx, id)
	g.recorder.ObserveReminder("cancel", err)
	if err != nil {
		g.logger.Warn("Failed to cancel reminder", zap.String("todo_id", id), zap.Error(err))
	}
}

func persistenceError(err error) error {
	return fmt.Errorf("%w: %w", domain.ErrPersistence, err)
}

// Rearm schedules the reminders of incomplete todos that are still due in
// the future. It returns how many were armed.
func (g *Gateway) Rearm(ctx context.Context, todos []entity.Todo) int {
	now := g.clock()
	armed := 0
	for _, t := range todos {
		at, ok := t.ReminderAt()
		if !ok || t.Completed || t.ID == "" || !at.After(now) {
			continue
		}
		g.schedule(ctx, entity.ReminderFor(t, *t.ReminderTime))
		armed++
	}
	return armed
}
