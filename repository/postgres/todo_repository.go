package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"todoflow/domain"
	"todoflow/domain/entity"
	"todoflow/domain/repository"
)

// Channel is the LISTEN/NOTIFY channel; the payload is the owner id
const Channel = "todos_changed"

const selectColumns = `
	SELECT id, title, description, completed, created_at, user_id,
		   priority, category, reminder_time, tags
	FROM todos
`

// todoRepository implements repository.Store
type todoRepository struct {
	db       *pgxpool.Pool
	logger   *zap.Logger
	listener *listener
}

// NewTodoRepository creates a new PostgreSQL todo repository
func NewTodoRepository(db *pgxpool.Pool, logger *zap.Logger) repository.Store {
	return &todoRepository{
		db:       db,
		logger:   logger,
		listener: newListener(db, logger.Named("listener")),
	}
}

func (r *todoRepository) Create(ctx context.Context, todo *entity.Todo) (string, error) {
	t := todo.Clone()
	t.Normalize()
	if t.ID == "" {
		t.ID = uuid.NewString()
	}

	query := `
		INSERT INTO todos (
			id, title, description, completed, created_at, user_id,
			priority, category, reminder_time, tags
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err := r.db.Exec(ctx, query,
		t.ID, t.Title, t.Description, t.Completed, t.CreatedAt, t.UserID,
		string(t.Priority), string(t.Category), t.ReminderTime, t.Tags,
	)
	if err != nil {
		return "", err
	}
	return t.ID, nil
}

func (r *todoRepository) Update(ctx context.Context, todo *entity.Todo) error {
	if todo.ID == "" {
		return domain.ErrMissingID
	}
	t := todo.Clone()
	t.Normalize()

	query := `
		UPDATE todos
		SET title = $2, description = $3, completed = $4, created_at = $5, user_id = $6,
			priority = $7, category = $8, reminder_time = $9, tags = $10
		WHERE id = $1
	`
	tag, err := r.db.Exec(ctx, query,
		t.ID, t.Title, t.Description, t.Completed, t.CreatedAt, t.UserID,
		string(t.Priority), string(t.Category), t.ReminderTime, t.Tags,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *todoRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM todos WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *todoRepository) ListByOwner(ctx context.Context, ownerID string) ([]entity.Todo, error) {
	rows, err := r.db.Query(ctx, selectColumns+`WHERE user_id = $1 ORDER BY created_at DESC, id`, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	todos := make([]entity.Todo, 0)
	for rows.Next() {
		todo, err := scanTodo(rows)
		if err != nil {
			return nil, err
		}
		todos = append(todos, todo)
	}
	return todos, rows.Err()
}

// Watch re-reads the owner's list whenever a notification on Channel names
// that owner. All watchers of the repository share one listening connection.
func (r *todoRepository) Watch(ctx context.Context, ownerID string, deliver func([]entity.Todo)) error {
	sub := r.listener.subscribe(ownerID)
	defer r.listener.unsubscribe(sub)

	publish := func() error {
		todos, err := r.ListByOwner(ctx, ownerID)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			return fmt.Errorf("list todos: %w", err)
		}
		deliver(todos)
		return nil
	}

	if err := publish(); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-sub.wake:
			if err := publish(); err != nil {
				return err
			}
		}
	}
}

func scanTodo(row pgx.Row) (entity.Todo, error) {
	var (
		t                  entity.Todo
		priority, category string
	)
	err := row.Scan(
		&t.ID, &t.Title, &t.Description, &t.Completed, &t.CreatedAt, &t.UserID,
		&priority, &category, &t.ReminderTime, &t.Tags,
	)
	if err != nil {
		return entity.Todo{}, err
	}
	t.Priority = entity.PriorityOrDefault(priority)
	t.Category = entity.CategoryOrDefault(category)
	t.Normalize()
	return t, nil
}
