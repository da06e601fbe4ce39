package mysql

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"reflect"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"todoflow/domain"
	"todoflow/domain/entity"
	"todoflow/domain/repository"
)

// tagList stores tags as a JSON array
type tagList []string

func (t tagList) Value() (driver.Value, error) {
	if t == nil {
		return "[]", nil
	}
	b, err := json.Marshal([]string(t))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (t *tagList) Scan(value interface{}) error {
	var raw []byte
	switch v := value.(type) {
	case nil:
		*t = tagList{}
		return nil
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("cannot scan %T into tags", value)
	}
	var tags []string
	if err := json.Unmarshal(raw, &tags); err != nil {
		return err
	}
	if tags == nil {
		tags = []string{}
	}
	*t = tags
	return nil
}

// todoRow is the column layout of the todos table
type todoRow struct {
	ID           string          `db:"id"`
	Title        string          `db:"title"`
	Description  string          `db:"description"`
	Completed    bool            `db:"completed"`
	CreatedAt    int64           `db:"created_at"`
	UserID       string          `db:"user_id"`
	Priority     entity.Priority `db:"priority"`
	Category     entity.Category `db:"category"`
	ReminderTime sql.NullInt64   `db:"reminder_time"`
	Tags         tagList         `db:"tags"`
}

func toRow(t entity.Todo) todoRow {
	row := todoRow{
		ID:          t.ID,
		Title:       t.Title,
		Description: t.Description,
		Completed:   t.Completed,
		CreatedAt:   t.CreatedAt,
		UserID:      t.UserID,
		Priority:    t.Priority,
		Category:    t.Category,
		Tags:        tagList(t.Tags),
	}
	if t.ReminderTime != nil {
		row.ReminderTime = sql.NullInt64{Int64: *t.ReminderTime, Valid: true}
	}
	return row
}

func (r todoRow) toEntity() entity.Todo {
	t := entity.Todo{
		ID:          r.ID,
		Title:       r.Title,
		Description: r.Description,
		Completed:   r.Completed,
		CreatedAt:   r.CreatedAt,
		UserID:      r.UserID,
		Priority:    r.Priority,
		Category:    r.Category,
		Tags:        []string(r.Tags),
	}
	if r.ReminderTime.Valid {
		rt := r.ReminderTime.Int64
		t.ReminderTime = &rt
	}
	t.Normalize()
	return t
}

// todoRepository implements repository.Store
type todoRepository struct {
	db           *sqlx.DB
	pollInterval time.Duration
	logger       *zap.Logger
}

// NewTodoRepository creates a new MySQL todo repository. MySQL has no change
// notifications, so Watch re-reads the owner's list every pollInterval.
func NewTodoRepository(db *sqlx.DB, pollInterval time.Duration, logger *zap.Logger) repository.Store {
	if pollInterval <= 0 {
		pollInterval = 2 * time.Second
	}
	return &todoRepository{db: db, pollInterval: pollInterval, logger: logger}
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
		) VALUES (
			:id, :title, :description, :completed, :created_at, :user_id,
			:priority, :category, :reminder_time, :tags
		)
	`
	if _, err := r.db.NamedExecContext(ctx, query, toRow(t)); err != nil {
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
		SET title = :title, description = :description, completed = :completed,
			created_at = :created_at, user_id = :user_id, priority = :priority,
			category = :category, reminder_time = :reminder_time, tags = :tags
		WHERE id = :id
	`
	result, err := r.db.NamedExecContext(ctx, query, toRow(t))
	if err != nil {
		return err
	}
	return requireRow(result)
}

func (r *todoRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM todos WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return requireRow(result)
}

func (r *todoRepository) ListByOwner(ctx context.Context, ownerID string) ([]entity.Todo, error) {
	query := `
		SELECT id, title, description, completed, created_at, user_id,
			   priority, category, reminder_time, tags
		FROM todos
		WHERE user_id = ?
		ORDER BY created_at DESC, id
	`
	var rows []todoRow
	if err := r.db.SelectContext(ctx, &rows, query, ownerID); err != nil {
		return nil, err
	}

	todos := make([]entity.Todo, len(rows))
	for i, row := range rows {
		todos[i] = row.toEntity()
	}
	return todos, nil
}

// Watch delivers the owner's list immediately, then polls and delivers
// again only when the list differs from the last delivery. Transient read
// errors are logged and retried on the next tick.
func (r *todoRepository) Watch(ctx context.Context, ownerID string, deliver func([]entity.Todo)) error {
	last, err := r.ListByOwner(ctx, ownerID)
	if err != nil {
		return fmt.Errorf("list todos: %w", err)
	}
	deliver(entity.CloneTodos(last))

	ticker := time.NewTicker(r.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			todos, err := r.ListByOwner(ctx, ownerID)
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				r.logger.Warn("Failed to poll todos", zap.String("owner", ownerID), zap.Error(err))
				continue
			}
			if reflect.DeepEqual(todos, last) {
				continue
			}
			last = todos
			deliver(entity.CloneTodos(todos))
		}
	}
}

func requireRow(result sql.Result) error {
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}
