package entity

import (
	"encoding/json"
	"time"
)

// Todo is a single to-do item owned by one user.
// Timestamps are epoch milliseconds, as stored by the persistence layer.
type Todo struct {
	ID           string   `json:"id" db:"id"`
	Title        string   `json:"title" db:"title"`
	Description  string   `json:"description" db:"description"`
	Completed    bool     `json:"completed" db:"completed"`
	CreatedAt    int64    `json:"createdAt" db:"created_at"`
	UserID       string   `json:"userId" db:"user_id"`
	Priority     Priority `json:"priority" db:"priority"`
	Category     Category `json:"category" db:"category"`
	ReminderTime *int64   `json:"reminderTime" db:"reminder_time"`
	Tags         []string `json:"tags" db:"tags"`
}

// UnmarshalJSON applies the read defaults: unknown enums fall back to
// MEDIUM/PERSONAL and missing tags become an empty list.
func (t *Todo) UnmarshalJSON(b []byte) error {
	type alias Todo
	var aux alias
	if err := json.Unmarshal(b, &aux); err != nil {
		return err
	}
	*t = Todo(aux)
	t.Normalize()
	return nil
}

// Normalize replaces zero-value enums and nil tags with their defaults
func (t *Todo) Normalize() {
	if !t.Priority.Valid() {
		t.Priority = PriorityMedium
	}
	if !t.Category.Valid() {
		t.Category = CategoryPersonal
	}
	if t.Tags == nil {
		t.Tags = []string{}
	}
}

// Clone returns a deep copy so snapshots never share mutable state
func (t Todo) Clone() Todo {
	out := t
	if t.Tags != nil {
		out.Tags = append([]string(nil), t.Tags...)
	}
	if t.ReminderTime != nil {
		rt := *t.ReminderTime
		out.ReminderTime = &rt
	}
	return out
}

// ReminderAt returns the reminder time, if any
func (t Todo) ReminderAt() (time.Time, bool) {
	if t.ReminderTime == nil {
		return time.Time{}, false
	}
	return time.UnixMilli(*t.ReminderTime), true
}

// CloneTodos deep-copies a list of todos
func CloneTodos(todos []Todo) []Todo {
	out := make([]Todo, len(todos))
	for i, t := range todos {
		out[i] = t.Clone()
	}
	return out
}

// Millis converts a time to epoch milliseconds
func Millis(t time.Time) int64 {
	return t.UnixMilli()
}

// Reminder is a one-shot notification tied to a todo
type Reminder struct {
	TaskID      string    `json:"task_id"`
	OwnerID     string    `json:"owner_id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	At          time.Time `json:"at"`
}

// ReminderFor builds the reminder for a todo at the given epoch-ms time
func ReminderFor(t Todo, atMillis int64) Reminder {
	return Reminder{
		TaskID:      t.ID,
		OwnerID:     t.UserID,
		Title:       t.Title,
		Description: t.Description,
		At:          time.UnixMilli(atMillis),
	}
}
