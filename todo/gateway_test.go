package todo

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"todoflow/domain"
	"todoflow/domain/entity"
	"todoflow/infrastructure/worker"
)

var fixedNow = time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)

type recordingRecorder struct {
	mu        sync.Mutex
	mutations map[string][]error
}

func (r *recordingRecorder) ObserveMutation(op string, err error, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.mutations == nil {
		r.mutations = make(map[string][]error)
	}
	r.mutations[op] = append(r.mutations[op], err)
}

func (r *recordingRecorder) ObserveReminder(string, error) {}

type gatewayFixture struct {
	repo      *fakeRepo
	reminders *fakeScheduler
	recorder  *recordingRecorder
	gateway   *Gateway
}

func newGatewayFixture(t *testing.T, owner string) *gatewayFixture {
	t.Helper()
	pool := worker.NewWorkerPool(16, time.Second, zap.NewNop())
	pool.Start(2)
	t.Cleanup(pool.Stop)

	f := &gatewayFixture{
		repo:      &fakeRepo{},
		reminders: &fakeScheduler{},
		recorder:  &recordingRecorder{},
	}
	f.gateway = NewGateway(f.repo, f.reminders, fakeIdentity{owner: owner}, pool,
		WithRecorder(f.recorder),
		WithClock(func() time.Time { return fixedNow }),
	)
	return f
}

func recv(t *testing.T, ch <-chan Result) Result {
	t.Helper()
	select {
	case res, ok := <-ch:
		require.True(t, ok, "result channel closed without a value")
		return res
	case <-time.After(2 * time.Second):
		t.Fatal("no result")
		return Result{}
	}
}

func TestAddTaskBlankTitleIsRejected(t *testing.T) {
	f := newGatewayFixture(t, "alice")

	for _, title := range []string{"", "   ", "\t\n"} {
		res := recv(t, f.gateway.AddTask(context.Background(), NewTask{Title: title}))
		assert.ErrorIs(t, res.Err, domain.ErrBlankTitle)
	}

	created, updated, deleted := f.repo.calls()
	assert.Zero(t, created)
	assert.Zero(t, updated)
	assert.Empty(t, deleted)
}

func TestAddTaskRequiresIdentity(t *testing.T) {
	f := newGatewayFixture(t, "")

	res := recv(t, f.gateway.AddTask(context.Background(), NewTask{Title: "x"}))
	assert.ErrorIs(t, res.Err, domain.ErrUnauthenticated)
	created, _, _ := f.repo.calls()
	assert.Zero(t, created)
}

func TestAddTaskPersistsAndSchedulesUnderAssignedID(t *testing.T) {
	f := newGatewayFixture(t, "alice")
	reminderAt := fixedNow.Add(time.Hour).UnixMilli()

	res := recv(t, f.gateway.AddTask(context.Background(), NewTask{
		Title:        "  write report  ",
		Description:  " quarterly ",
		Priority:     entity.PriorityHigh,
		Category:     entity.CategoryWork,
		ReminderTime: &reminderAt,
		Tags:         []string{"q1"},
	}))
	require.NoError(t, res.Err)
	assert.Equal(t, "todo-1", res.ID)

	require.Len(t, f.repo.created, 1)
	got := f.repo.created[0]
	assert.Equal(t, "write report", got.Title)
	assert.Equal(t, "quarterly", got.Description)
	assert.Equal(t, "alice", got.UserID)
	assert.Equal(t, fixedNow.UnixMilli(), got.CreatedAt)
	assert.False(t, got.Completed)
	assert.Equal(t, []string{"q1"}, got.Tags)

	scheduled, _ := f.reminders.snapshot()
	require.Len(t, scheduled, 1)
	assert.Equal(t, "todo-1", scheduled[0].TaskID)
	assert.Equal(t, "alice", scheduled[0].OwnerID)
	assert.True(t, scheduled[0].At.Equal(time.UnixMilli(reminderAt)))
}

func TestAddTaskDefaults(t *testing.T) {
	f := newGatewayFixture(t, "alice")

	res := recv(t, f.gateway.AddTask(context.Background(), NewTask{Title: "plain"}))
	require.NoError(t, res.Err)

	got := f.repo.created[0]
	assert.Equal(t, entity.PriorityMedium, got.Priority)
	assert.Equal(t, entity.CategoryPersonal, got.Category)
	assert.Nil(t, got.ReminderTime)
	assert.Equal(t, []string{}, got.Tags)

	scheduled, _ := f.reminders.snapshot()
	assert.Empty(t, scheduled)
}

func TestAddTaskFailureSchedulesNothing(t *testing.T) {
	f := newGatewayFixture(t, "alice")
	f.repo.createErr = errors.New("disk full")
	reminderAt := fixedNow.Add(time.Hour).UnixMilli()

	res := recv(t, f.gateway.AddTask(context.Background(), NewTask{Title: "x", ReminderTime: &reminderAt}))
	assert.ErrorIs(t, res.Err, domain.ErrPersistence)
	assert.ErrorContains(t, res.Err, "disk full")

	scheduled, _ := f.reminders.snapshot()
	assert.Empty(t, scheduled)
}

func TestToggleCompletionCancelsReminder(t *testing.T) {
	f := newGatewayFixture(t, "alice")
	todo := entity.Todo{ID: "t1", Title: "x", UserID: "alice", Completed: false}

	res := recv(t, f.gateway.ToggleCompletion(context.Background(), todo))
	require.NoError(t, res.Err)

	require.Len(t, f.repo.updated, 1)
	assert.True(t, f.repo.updated[0].Completed)
	assert.Equal(t, "x", f.repo.updated[0].Title)
	assert.False(t, todo.Completed, "caller's value must not change")

	_, cancelled := f.reminders.snapshot()
	assert.Equal(t, []string{"t1"}, cancelled)
}

func TestToggleCompletionToIncompleteKeepsReminder(t *testing.T) {
	f := newGatewayFixture(t, "alice")

	res := recv(t, f.gateway.ToggleCompletion(context.Background(), entity.Todo{ID: "t1", Title: "x", UserID: "alice", Completed: true}))
	require.NoError(t, res.Err)
	assert.False(t, f.repo.updated[0].Completed)

	scheduled, cancelled := f.reminders.snapshot()
	assert.Empty(t, scheduled)
	assert.Empty(t, cancelled)
}

func TestUpdateTaskWithoutReminderOnlyCancels(t *testing.T) {
	f := newGatewayFixture(t, "alice")
	old := fixedNow.Add(time.Hour).UnixMilli()
	todo := entity.Todo{ID: "t1", Title: "x", UserID: "alice", CreatedAt: 42, ReminderTime: &old}

	res := recv(t, f.gateway.UpdateTask(context.Background(), todo, Update{
		Title:    " renamed ",
		Priority: entity.PriorityLow,
		Category: entity.CategoryHome,
		Tags:     []string{"a", "b"},
	}))
	require.NoError(t, res.Err)

	require.Len(t, f.repo.updated, 1)
	got := f.repo.updated[0]
	assert.Equal(t, "renamed", got.Title)
	assert.Equal(t, entity.PriorityLow, got.Priority)
	assert.Equal(t, entity.CategoryHome, got.Category)
	assert.Equal(t, []string{"a", "b"}, got.Tags)
	assert.Nil(t, got.ReminderTime)
	assert.Equal(t, int64(42), got.CreatedAt)
	assert.Equal(t, "alice", got.UserID)

	scheduled, cancelled := f.reminders.snapshot()
	assert.Equal(t, []string{"t1"}, cancelled)
	assert.Empty(t, scheduled)
}

func TestUpdateTaskReschedules(t *testing.T) {
	f := newGatewayFixture(t, "alice")
	at := fixedNow.Add(2 * time.Hour).UnixMilli()

	res := recv(t, f.gateway.UpdateTask(context.Background(), entity.Todo{ID: "t1", Title: "x", UserID: "alice"}, Update{
		Title: "x", ReminderTime: &at,
	}))
	require.NoError(t, res.Err)

	scheduled, cancelled := f.reminders.snapshot()
	assert.Equal(t, []string{"t1"}, cancelled)
	require.Len(t, scheduled, 1)
	assert.Equal(t, "t1", scheduled[0].TaskID)

	// completed todos are never re-armed
	f2 := newGatewayFixture(t, "alice")
	res = recv(t, f2.gateway.UpdateTask(context.Background(), entity.Todo{ID: "t2", Title: "x", UserID: "alice", Completed: true}, Update{
		Title: "x", ReminderTime: &at,
	}))
	require.NoError(t, res.Err)
	scheduled, cancelled = f2.reminders.snapshot()
	assert.Equal(t, []string{"t2"}, cancelled)
	assert.Empty(t, scheduled)
}

func TestUpdateTaskBlankTitleIsRejected(t *testing.T) {
	f := newGatewayFixture(t, "alice")

	res := recv(t, f.gateway.UpdateTask(context.Background(), entity.Todo{ID: "t1", Title: "x"}, Update{Title: " "}))
	assert.ErrorIs(t, res.Err, domain.ErrBlankTitle)

	_, updated, _ := f.repo.calls()
	assert.Zero(t, updated)
	_, cancelled := f.reminders.snapshot()
	assert.Empty(t, cancelled)
}

func TestDeleteTaskCancelsEvenOnFailure(t *testing.T) {
	f := newGatewayFixture(t, "alice")
	f.repo.deleteErr = domain.ErrNotFound

	res := recv(t, f.gateway.DeleteTask(context.Background(), entity.Todo{ID: "t1", UserID: "alice"}))
	assert.ErrorIs(t, res.Err, domain.ErrPersistence)
	assert.ErrorIs(t, res.Err, domain.ErrNotFound)

	_, _, deleted := f.repo.calls()
	assert.Equal(t, []string{"t1"}, deleted)
	_, cancelled := f.reminders.snapshot()
	assert.Equal(t, []string{"t1"}, cancelled)
}

func TestMutationsWithoutIDAreRejected(t *testing.T) {
	f := newGatewayFixture(t, "alice")
	ctx := context.Background()

	assert.ErrorIs(t, recv(t, f.gateway.ToggleCompletion(ctx, entity.Todo{})).Err, domain.ErrMissingID)
	assert.ErrorIs(t, recv(t, f.gateway.UpdateTask(ctx, entity.Todo{}, Update{Title: "x"})).Err, domain.ErrMissingID)
	assert.ErrorIs(t, recv(t, f.gateway.DeleteTask(ctx, entity.Todo{})).Err, domain.ErrMissingID)
}

func TestMutationsRequireIdentity(t *testing.T) {
	f := newGatewayFixture(t, "")
	ctx := context.Background()
	todo := entity.Todo{ID: "t1", Title: "x", UserID: "alice"}

	assert.ErrorIs(t, recv(t, f.gateway.ToggleCompletion(ctx, todo)).Err, domain.ErrUnauthenticated)
	assert.ErrorIs(t, recv(t, f.gateway.UpdateTask(ctx, todo, Update{Title: "y"})).Err, domain.ErrUnauthenticated)
	assert.ErrorIs(t, recv(t, f.gateway.DeleteTask(ctx, todo)).Err, domain.ErrUnauthenticated)

	created, updated, deleted := f.repo.calls()
	assert.Zero(t, created)
	assert.Zero(t, updated)
	assert.Empty(t, deleted)
	scheduled, cancelled := f.reminders.snapshot()
	assert.Empty(t, scheduled)
	assert.Empty(t, cancelled)
}

func TestMutationsOnAnotherOwnersTodoAreNotFound(t *testing.T) {
	f := newGatewayFixture(t, "alice")
	ctx := context.Background()
	todo := entity.Todo{ID: "t1", Title: "x", UserID: "bob"}

	assert.ErrorIs(t, recv(t, f.gateway.ToggleCompletion(ctx, todo)).Err, domain.ErrNotFound)
	assert.ErrorIs(t, recv(t, f.gateway.UpdateTask(ctx, todo, Update{Title: "y"})).Err, domain.ErrNotFound)
	assert.ErrorIs(t, recv(t, f.gateway.DeleteTask(ctx, todo)).Err, domain.ErrNotFound)

	_, updated, deleted := f.repo.calls()
	assert.Zero(t, updated)
	assert.Empty(t, deleted)
	_, cancelled := f.reminders.snapshot()
	assert.Empty(t, cancelled)
}

func TestFullQueueRejectsMutation(t *testing.T) {
	repo := &fakeRepo{}
	reminders := &fakeScheduler{}
	g := NewGateway(repo, reminders, fakeIdentity{owner: "alice"}, stuckPool{})

	res := recv(t, g.AddTask(context.Background(), NewTask{Title: "x"}))
	assert.ErrorIs(t, res.Err, domain.ErrQueueFull)
	assert.Equal(t, 0, g.InFlight().Get())

	created, _, _ := repo.calls()
	assert.Zero(t, created)
}

func TestRecorderSeesEveryOutcome(t *testing.T) {
	f := newGatewayFixture(t, "alice")
	ctx := context.Background()

	recv(t, f.gateway.AddTask(ctx, NewTask{Title: "x"}))
	recv(t, f.gateway.AddTask(ctx, NewTask{Title: ""}))
	recv(t, f.gateway.DeleteTask(ctx, entity.Todo{ID: "t1", UserID: "alice"}))

	f.recorder.mu.Lock()
	defer f.recorder.mu.Unlock()
	require.Len(t, f.recorder.mutations[OpAdd], 2)
	assert.NoError(t, f.recorder.mutations[OpAdd][0])
	assert.ErrorIs(t, f.recorder.mutations[OpAdd][1], domain.ErrBlankTitle)
	assert.Equal(t, []error{nil}, f.recorder.mutations[OpDelete])
}

func TestRearmSchedulesOnlyFutureIncompleteReminders(t *testing.T) {
	f := newGatewayFixture(t, "alice")
	future := fixedNow.Add(time.Hour).UnixMilli()
	past := fixedNow.Add(-time.Hour).UnixMilli()

	n := f.gateway.Rearm(context.Background(), []entity.Todo{
		{ID: "due", ReminderTime: &future},
		{ID: "past", ReminderTime: &past},
		{ID: "done", ReminderTime: &future, Completed: true},
		{ID: "none"},
	})
	assert.Equal(t, 1, n)

	scheduled, _ := f.reminders.snapshot()
	require.Len(t, scheduled, 1)
	assert.Equal(t, "due", scheduled[0].TaskID)
}
