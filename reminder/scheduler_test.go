package reminder

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"todoflow/domain/entity"
	"todoflow/infrastructure/worker"
)

type collector struct {
	mu  sync.Mutex
	got []entity.Reminder
}

func (c *collector) Notify(_ context.Context, r entity.Reminder) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.got = append(c.got, r)
	return nil
}

func (c *collector) ids() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.got))
	for i, r := range c.got {
		out[i] = r.TaskID
	}
	return out
}

func newScheduler(t *testing.T, n Notifier) *Scheduler {
	t.Helper()
	pool := worker.NewWorkerPool(8, time.Second, zap.NewNop())
	pool.Start(1)
	t.Cleanup(pool.Stop)

	s := NewScheduler(n, pool)
	t.Cleanup(s.Close)
	return s
}

func TestSchedulerFiresDueReminders(t *testing.T) {
	c := &collector{}
	s := newScheduler(t, c)
	ctx := context.Background()

	require.NoError(t, s.Schedule(ctx, entity.Reminder{TaskID: "soon", At: time.Now().Add(20 * time.Millisecond)}))
	require.NoError(t, s.Schedule(ctx, entity.Reminder{TaskID: "overdue", At: time.Now().Add(-time.Hour)}))

	require.Eventually(t, func() bool { return len(c.ids()) == 2 }, time.Second, 5*time.Millisecond)
	assert.ElementsMatch(t, []string{"soon", "overdue"}, c.ids())
	assert.Empty(t, s.Pending())
}

func TestSchedulerCancelAndReplace(t *testing.T) {
	c := &collector{}
	s := newScheduler(t, c)
	ctx := context.Background()

	later := time.Now().Add(time.Hour)
	require.NoError(t, s.Schedule(ctx, entity.Reminder{TaskID: "a", At: later}))
	require.NoError(t, s.Schedule(ctx, entity.Reminder{TaskID: "b", At: later.Add(time.Minute)}))
	require.NoError(t, s.Schedule(ctx, entity.Reminder{TaskID: "a", Title: "moved", At: time.Now().Add(10 * time.Millisecond)}))

	require.Eventually(t, func() bool { return len(c.ids()) == 1 }, time.Second, 5*time.Millisecond)
	c.mu.Lock()
	assert.Equal(t, "moved", c.got[0].Title)
	c.mu.Unlock()

	require.NoError(t, s.Cancel(ctx, "b"))
	require.NoError(t, s.Cancel(ctx, "b"))
	require.NoError(t, s.Cancel(ctx, "unknown"))
	assert.Empty(t, s.Pending())
}

func TestSchedulerPendingIsOrdered(t *testing.T) {
	s := newScheduler(t, &collector{})
	ctx := context.Background()
	base := time.Now().Add(time.Hour)

	require.NoError(t, s.Schedule(ctx, entity.Reminder{TaskID: "c", At: base.Add(2 * time.Minute)}))
	require.NoError(t, s.Schedule(ctx, entity.Reminder{TaskID: "a", At: base}))
	require.NoError(t, s.Schedule(ctx, entity.Reminder{TaskID: "b", At: base.Add(time.Minute)}))

	var got []string
	for _, r := range s.Pending() {
		got = append(got, r.TaskID)
	}
	assert.Equal(t, []string{"a", "b", "c"}, got)
}

func TestSchedulerClosed(t *testing.T) {
	s := newScheduler(t, &collector{})
	s.Close()

	err := s.Schedule(context.Background(), entity.Reminder{TaskID: "a", At: time.Now()})
	assert.ErrorIs(t, err, ErrSchedulerClosed)
	assert.Error(t, s.Schedule(context.Background(), entity.Reminder{}))
}

func TestFanoutJoinsErrors(t *testing.T) {
	c := &collector{}
	boom := errors.New("boom")
	f := Fanout{
		c,
		NotifierFunc(func(context.Context, entity.Reminder) error { return boom }),
		LogNotifier(zap.NewNop()),
	}

	err := f.Notify(context.Background(), entity.Reminder{TaskID: "x"})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, []string{"x"}, c.ids())
}
