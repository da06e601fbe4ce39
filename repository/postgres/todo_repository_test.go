package postgres

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"todoflow/configs"
	"todoflow/domain"
	"todoflow/domain/entity"
)

// Runs against a real database when TODOFLOW_TEST_POSTGRES_URL is set
func TestTodoRepositoryIntegration(t *testing.T) {
	url := os.Getenv("TODOFLOW_TEST_POSTGRES_URL")
	if url == "" {
		t.Skip("TODOFLOW_TEST_POSTGRES_URL not set")
	}

	logger := zap.NewNop()
	pool, err := NewConnection(&configs.DatabaseConfig{URL: url, MaxConnections: 4}, logger)
	require.NoError(t, err)
	defer pool.Close()

	ctx := context.Background()
	require.NoError(t, RunMigrations(ctx, pool, logger))
	require.NoError(t, RunMigrations(ctx, pool, logger))

	owner := "it-" + time.Now().Format("150405.000000")
	_, err = pool.Exec(ctx, `DELETE FROM todos WHERE user_id = $1`, owner)
	require.NoError(t, err)

	repo := NewTodoRepository(pool, logger)

	watchCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	snapshots := make(chan []entity.Todo, 16)
	go repo.Watch(watchCtx, owner, func(todos []entity.Todo) { snapshots <- todos })

	next := func() []entity.Todo {
		select {
		case s := <-snapshots:
			return s
		case <-time.After(5 * time.Second):
			t.Fatal("no snapshot")
			return nil
		}
	}
	assert.Empty(t, next())

	reminder := time.Now().Add(time.Hour).UnixMilli()
	id, err := repo.Create(ctx, &entity.Todo{
		Title:        "write tests",
		UserID:       owner,
		CreatedAt:    time.Now().UnixMilli(),
		Priority:     entity.PriorityHigh,
		Category:     entity.CategoryWork,
		ReminderTime: &reminder,
		Tags:         []string{"go", "pg"},
	})
	require.NoError(t, err)

	got := next()
	require.Len(t, got, 1)
	assert.Equal(t, id, got[0].ID)
	assert.Equal(t, entity.PriorityHigh, got[0].Priority)
	assert.Equal(t, entity.CategoryWork, got[0].Category)
	assert.Equal(t, []string{"go", "pg"}, got[0].Tags)
	require.NotNil(t, got[0].ReminderTime)
	assert.Equal(t, reminder, *got[0].ReminderTime)

	updated := got[0]
	updated.Completed = true
	require.NoError(t, repo.Update(ctx, &updated))
	assert.True(t, next()[0].Completed)

	require.NoError(t, repo.Delete(ctx, id))
	assert.Empty(t, next())

	assert.ErrorIs(t, repo.Delete(ctx, id), domain.ErrNotFound)
	assert.ErrorIs(t, repo.Update(ctx, &updated), domain.ErrNotFound)
}
