package dto

import (
	"fmt"
	"strconv"
	"strings"

	"todoflow/domain/entity"
	"todoflow/todo"
)

// CreateTodoRequest is the body of POST /todos. Title is validated by the
// gateway so a blank title yields the same error everywhere.
type CreateTodoRequest struct {
	Title        string     `json:"title"`
	Description  string     `json:"description"`
	Priority     string     `json:"priority"`
	Category     string     `json:"category"`
	ReminderTime *Timestamp `json:"reminderTime"`
	Tags         []string   `json:"tags"`
}

// ToNewTask converts the request; unknown enum names fall back to defaults
func (r CreateTodoRequest) ToNewTask() todo.NewTask {
	return todo.NewTask{
		Title:        r.Title,
		Description:  r.Description,
		Priority:     entity.PriorityOrDefault(r.Priority),
		Category:     entity.CategoryOrDefault(r.Category),
		ReminderTime: r.ReminderTime.Millis(),
		Tags:         cleanTags(r.Tags),
	}
}

// UpdateTodoRequest is the body of PUT /todos/:id. Every field replaces the
// stored value, as in the edit form it backs.
type UpdateTodoRequest struct {
	Title        string     `json:"title"`
	Description  string     `json:"description"`
	Priority     string     `json:"priority"`
	Category     string     `json:"category"`
	ReminderTime *Timestamp `json:"reminderTime"`
	Tags         []string   `json:"tags"`
}

func (r UpdateTodoRequest) ToUpdate() todo.Update {
	return todo.Update{
		Title:        r.Title,
		Description:  r.Description,
		Priority:     entity.PriorityOrDefault(r.Priority),
		Category:     entity.CategoryOrDefault(r.Category),
		ReminderTime: r.ReminderTime.Millis(),
		Tags:         cleanTags(r.Tags),
	}
}

// FiltersRequest is the body of PUT /filters; empty strings clear a filter
type FiltersRequest struct {
	Category      string `json:"category" form:"category"`
	Priority      string `json:"priority" form:"priority"`
	ShowCompleted *bool  `json:"showCompleted" form:"show_completed"`
}

// Empty reports whether no filter field was given
func (r FiltersRequest) Empty() bool {
	return r.Category == "" && r.Priority == "" && r.ShowCompleted == nil
}

// ToFilters validates and converts the request. Missing fields take their
// value from current.
func (r FiltersRequest) ToFilters(current todo.Filters) (todo.Filters, error) {
	out := current
	if r.Category != "" {
		if strings.EqualFold(r.Category, "all") {
			out.Category = nil
		} else {
			c, ok := entity.ParseCategory(r.Category)
			if !ok {
				return todo.Filters{}, fmt.Errorf("unknown category %q", r.Category)
			}
			out.Category = &c
		}
	}
	if r.Priority != "" {
		if strings.EqualFold(r.Priority, "all") {
			out.Priority = nil
		} else {
			p, ok := entity.ParsePriority(r.Priority)
			if !ok {
				return todo.Filters{}, fmt.Errorf("unknown priority %q", r.Priority)
			}
			out.Priority = &p
		}
	}
	if r.ShowCompleted != nil {
		out.ShowCompleted = *r.ShowCompleted
	}
	return out, nil
}

// ParseBool accepts the query spellings of show_completed
func ParseBool(s string) (*bool, error) {
	if s == "" {
		return nil, nil
	}
	b, err := strconv.ParseBool(s)
	if err != nil {
		return nil, fmt.Errorf("invalid boolean %q", s)
	}
	return &b, nil
}

// TodoResponse is a todo with display attributes of its enums
type TodoResponse struct {
	ID            string     `json:"id"`
	Title         string     `json:"title"`
	Description   string     `json:"description"`
	Completed     bool       `json:"completed"`
	CreatedAt     int64      `json:"createdAt"`
	UserID        string     `json:"userId"`
	Priority      string     `json:"priority"`
	PriorityLabel string     `json:"priorityLabel"`
	Category      string     `json:"category"`
	CategoryLabel string     `json:"categoryLabel"`
	CategoryIcon  string     `json:"categoryIcon"`
	ReminderTime  *Timestamp `json:"reminderTime"`
	Tags          []string   `json:"tags"`
}

func NewTodoResponse(t entity.Todo) TodoResponse {
	resp := TodoResponse{
		ID:            t.ID,
		Title:         t.Title,
		Description:   t.Description,
		Completed:     t.Completed,
		CreatedAt:     t.CreatedAt,
		UserID:        t.UserID,
		Priority:      string(t.Priority),
		PriorityLabel: t.Priority.Label(),
		Category:      string(t.Category),
		CategoryLabel: t.Category.Label(),
		CategoryIcon:  t.Category.Icon(),
		Tags:          t.Tags,
	}
	if at, ok := t.ReminderAt(); ok {
		resp.ReminderTime = &Timestamp{Time: at}
	}
	if resp.Tags == nil {
		resp.Tags = []string{}
	}
	return resp
}

func NewTodoList(todos []entity.Todo) []TodoResponse {
	out := make([]TodoResponse, len(todos))
	for i, t := range todos {
		out[i] = NewTodoResponse(t)
	}
	return out
}

// FiltersResponse mirrors todo.Filters with an activity flag
type FiltersResponse struct {
	Category      *string `json:"category"`
	Priority      *string `json:"priority"`
	ShowCompleted bool    `json:"showCompleted"`
	Active        bool    `json:"active"`
}

func NewFiltersResponse(f todo.Filters) FiltersResponse {
	resp := FiltersResponse{ShowCompleted: f.ShowCompleted, Active: f.Active()}
	if f.Category != nil {
		s := string(*f.Category)
		resp.Category = &s
	}
	if f.Priority != nil {
		s := string(*f.Priority)
		resp.Priority = &s
	}
	return resp
}

// ListResponse is the filtered view together with the filters applied
type ListResponse struct {
	Todos   []TodoResponse  `json:"todos"`
	Count   int             `json:"count"`
	Filters FiltersResponse `json:"filters"`
}

// BreakdownResponse is one row of a per-category or per-priority breakdown
type BreakdownResponse struct {
	Key               string  `json:"key"`
	Label             string  `json:"label"`
	Total             int     `json:"total"`
	Completed         int     `json:"completed"`
	CompletionRate    float64 `json:"completionRate"`
	CompletionPercent int     `json:"completionPercent"`
}

// StatsResponse adds rounded percentages for display
type StatsResponse struct {
	Total             int                 `json:"total"`
	Completed         int                 `json:"completed"`
	Pending           int                 `json:"pending"`
	CompletionRate    float64             `json:"completionRate"`
	CompletionPercent int                 `json:"completionPercent"`
	TodayCompleted    int                 `json:"todayCompleted"`
	WeekCompleted     int                 `json:"weekCompleted"`
	MonthCompleted    int                 `json:"monthCompleted"`
	ByCategory        []BreakdownResponse `json:"byCategory"`
	ByPriority        []BreakdownResponse `json:"byPriority"`
}

func NewStatsResponse(s entity.Stats) StatsResponse {
	resp := StatsResponse{
		Total:             s.Total,
		Completed:         s.Completed,
		Pending:           s.Pending,
		CompletionRate:    s.CompletionRate,
		CompletionPercent: percent(s.CompletionRate),
		TodayCompleted:    s.TodayCompleted,
		WeekCompleted:     s.WeekCompleted,
		MonthCompleted:    s.MonthCompleted,
		ByCategory:        make([]BreakdownResponse, 0, len(s.ByCategory)),
		ByPriority:        make([]BreakdownResponse, 0, len(s.ByPriority)),
	}
	for _, c := range s.ByCategory {
		resp.ByCategory = append(resp.ByCategory, BreakdownResponse{
			Key: string(c.Category), Label: c.Category.Label(),
			Total: c.Total, Completed: c.Completed,
			CompletionRate: c.CompletionRate, CompletionPercent: percent(c.CompletionRate),
		})
	}
	for _, p := range s.ByPriority {
		resp.ByPriority = append(resp.ByPriority, BreakdownResponse{
			Key: string(p.Priority), Label: p.Priority.Label(),
			Total: p.Total, Completed: p.Completed,
			CompletionRate: p.CompletionRate, CompletionPercent: percent(p.CompletionRate),
		})
	}
	return resp
}

// SnapshotResponse is a session snapshot in the shapes the REST calls use
type SnapshotResponse struct {
	Owner    string          `json:"owner"`
	Todos    []TodoResponse  `json:"todos"`
	Count    int             `json:"count"`
	Filters  FiltersResponse `json:"filters"`
	Stats    StatsResponse   `json:"stats"`
	Filtered bool            `json:"filtered"`
}

func NewSnapshotResponse(s todo.Snapshot) SnapshotResponse {
	return SnapshotResponse{
		Owner:    s.Owner,
		Todos:    NewTodoList(s.Todos),
		Count:    len(s.Todos),
		Filters:  NewFiltersResponse(s.Filters),
		Stats:    NewStatsResponse(s.Stats),
		Filtered: s.Filtered,
	}
}

// MutationResponse reports an accepted or finished mutation
type MutationResponse struct {
	ID     string `json:"id,omitempty"`
	Op     string `json:"op"`
	Status string `json:"status"` // "accepted" or "done"
}

// HealthResponse is the body of GET /health
type HealthResponse struct {
	Status           string `json:"status"` // healthy, unhealthy, stopped
	Started          bool   `json:"started"`
	Driver           string `json:"driver,omitempty"`
	Database         string `json:"database,omitempty"` // connected, disconnected
	Sessions         int    `json:"sessions"`
	WebSocketClients int    `json:"websocketClients"`
	PendingReminders int    `json:"pendingReminders"`
	InFlight         int    `json:"inFlight"`
	Workers          int    `json:"workers,omitempty"`
	Error            string `json:"error,omitempty"`
}

func percent(rate float64) int {
	return int(rate*100 + 0.5)
}

func cleanTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		if t = strings.TrimSpace(t); t != "" {
			out = append(out, t)
		}
	}
	return out
}
