package rest

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"todoflow/delivery/rest/dto"
	"todoflow/delivery/rest/middleware"
	"todoflow/delivery/rest/response"
	"todoflow/delivery/websocket"
	"todoflow/domain"
	"todoflow/domain/entity"
	"todoflow/todo"
)

// DefaultWaitTimeout bounds how long a request waits for a session to load
// or for a mutation result
const DefaultWaitTimeout = 5 * time.Second

// PendingReminders lists armed reminders
type PendingReminders interface {
	Pending() []entity.Reminder
}

// HealthFunc reports service health; "unhealthy" maps to 503
type HealthFunc func(ctx context.Context) dto.HealthResponse

// Handler handles HTTP requests
type Handler struct {
	manager     *todo.Manager
	hub         *websocket.Hub
	reminders   PendingReminders
	health      HealthFunc
	waitTimeout time.Duration
	logger      *zap.Logger
}

// HandlerOption configures a Handler
type HandlerOption func(*Handler)

// WithHub enables GET /todos/stream
func WithHub(hub *websocket.Hub) HandlerOption {
	return func(h *Handler) { h.hub = hub }
}

// WithReminders reports the number of armed reminders in health
func WithReminders(r PendingReminders) HandlerOption {
	return func(h *Handler) { h.reminders = r }
}

// WithHealth replaces the built-in health report
func WithHealth(fn HealthFunc) HandlerOption {
	return func(h *Handler) { h.health = fn }
}

func WithWaitTimeout(d time.Duration) HandlerOption {
	return func(h *Handler) {
		if d > 0 {
			h.waitTimeout = d
		}
	}
}

func WithLogger(logger *zap.Logger) HandlerOption {
	return func(h *Handler) {
		if logger != nil {
			h.logger = logger
		}
	}
}

// NewHandler creates a new HTTP handler
func NewHandler(manager *todo.Manager, opts ...HandlerOption) *Handler {
	h := &Handler{
		manager:     manager,
		waitTimeout: DefaultWaitTimeout,
		logger:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Register mounts the routes on group; everything but health goes through
// authenticate
func (h *Handler) Register(group *gin.RouterGroup, authenticate gin.HandlerFunc) {
	group.GET("/health", h.Health)

	api := group.Group("", authenticate)
	{
		api.GET("/todos", h.ListTodos)
		api.GET("/todos/all", h.AllTodos)
		api.GET("/todos/stats", h.GetStats)
		api.GET("/todos/stream", h.Stream)
		api.POST("/todos", h.CreateTodo)
		api.PUT("/todos/:id", h.UpdateTodo)
		api.POST("/todos/:id/toggle", h.ToggleTodo)
		api.DELETE("/todos/:id", h.DeleteTodo)

		api.GET("/filters", h.GetFilters)
		api.PUT("/filters", h.SetFilters)
		api.DELETE("/filters", h.ClearFilters)
	}
}

// Health handles GET /health
func (h *Handler) Health(c *gin.Context) {
	if h.health != nil {
		resp := h.health(c.Request.Context())
		status := http.StatusOK
		if resp.Status == "unhealthy" {
			status = http.StatusServiceUnavailable
		}
		c.JSON(status, resp)
		return
	}

	resp := dto.HealthResponse{
		Status:   "healthy",
		Sessions: h.manager.Len(),
	}
	if h.hub != nil {
		resp.WebSocketClients = h.hub.GetClientCount()
	}
	if h.reminders != nil {
		resp.PendingReminders = len(h.reminders.Pending())
	}
	response.Success(c, resp)
}

// ListTodos handles GET /todos. Query filters are applied to the session's
// filter state before the filtered view is read.
func (h *Handler) ListTodos(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}

	showCompleted, err := dto.ParseBool(c.Query("show_completed"))
	if err != nil {
		response.Error(c, badParam(err))
		return
	}
	req := dto.FiltersRequest{
		Category:      c.Query("category"),
		Priority:      c.Query("priority"),
		ShowCompleted: showCompleted,
	}
	if !req.Empty() {
		filters, err := req.ToFilters(s.Filters().Current())
		if err != nil {
			response.Error(c, badParam(err))
			return
		}
		s.Filters().Apply(filters)
	}

	todos := s.Engine().Filtered()
	response.Success(c, dto.ListResponse{
		Todos:   dto.NewTodoList(todos),
		Count:   len(todos),
		Filters: dto.NewFiltersResponse(s.Filters().Current()),
	})
}

// AllTodos handles GET /todos/all
func (h *Handler) AllTodos(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	todos := s.Store().Todos()
	response.Success(c, gin.H{
		"todos": dto.NewTodoList(todos),
		"count": len(todos),
	})
}

// GetStats handles GET /todos/stats
func (h *Handler) GetStats(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	response.Success(c, dto.NewStatsResponse(s.Engine().Stats()))
}

// Stream handles GET /todos/stream
func (h *Handler) Stream(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	if h.hub == nil {
		response.ErrorWithMessage(c, http.StatusNotImplemented, "not_implemented", "streaming is disabled")
		return
	}
	// Serve writes its own response on a failed upgrade
	_ = h.hub.Serve(c.Writer, c.Request, s.Owner(), s.Snapshot())
}

// CreateTodo handles POST /todos
func (h *Handler) CreateTodo(c *gin.Context) {
	var req dto.CreateTodoRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithMessage(c, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	results := h.manager.Gateway().AddTask(c.Request.Context(), req.ToNewTask())
	h.respond(c, todo.OpAdd, results)
}

// UpdateTodo handles PUT /todos/:id
func (h *Handler) UpdateTodo(c *gin.Context) {
	var req dto.UpdateTodoRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithMessage(c, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	s, current, ok := h.find(c)
	if !ok {
		return
	}
	h.respond(c, todo.OpUpdate, s.Gateway().UpdateTask(c.Request.Context(), current, req.ToUpdate()))
}

// ToggleTodo handles POST /todos/:id/toggle
func (h *Handler) ToggleTodo(c *gin.Context) {
	s, current, ok := h.find(c)
	if !ok {
		return
	}
	h.respond(c, todo.OpToggle, s.Gateway().ToggleCompletion(c.Request.Context(), current))
}

// DeleteTodo handles DELETE /todos/:id
func (h *Handler) DeleteTodo(c *gin.Context) {
	s, current, ok := h.find(c)
	if !ok {
		return
	}
	h.respond(c, todo.OpDelete, s.Gateway().DeleteTask(c.Request.Context(), current))
}

// GetFilters handles GET /filters
func (h *Handler) GetFilters(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	response.Success(c, dto.NewFiltersResponse(s.Filters().Current()))
}

// SetFilters handles PUT /filters
func (h *Handler) SetFilters(c *gin.Context) {
	var req dto.FiltersRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithMessage(c, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	s, ok := h.session(c)
	if !ok {
		return
	}
	filters, err := req.ToFilters(s.Filters().Current())
	if err != nil {
		response.Error(c, badParam(err))
		return
	}
	s.Filters().Apply(filters)
	response.Success(c, dto.NewFiltersResponse(s.Filters().Current()))
}

// ClearFilters handles DELETE /filters
func (h *Handler) ClearFilters(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	s.Filters().ClearFilters()
	response.Success(c, dto.NewFiltersResponse(s.Filters().Current()))
}

// session returns the caller's session once its first list has arrived
func (h *Handler) session(c *gin.Context) (*todo.Session, bool) {
	owner, ok := middleware.Owner(c)
	if !ok {
		response.Error(c, domain.ErrUnauthenticated)
		return nil, false
	}
	s, err := h.manager.Session(owner)
	if err != nil {
		response.ErrorWithMessage(c, http.StatusServiceUnavailable, "unavailable", err.Error())
		return nil, false
	}

	timer := time.NewTimer(h.waitTimeout)
	defer timer.Stop()
	select {
	case <-s.Ready():
		return s, true
	case <-timer.C:
		response.ErrorWithMessage(c, http.StatusServiceUnavailable, "loading", "todo list is still loading")
	case <-c.Request.Context().Done():
		c.Abort()
	}
	return nil, false
}

// find resolves :id against the session's current list
func (h *Handler) find(c *gin.Context) (*todo.Session, entity.Todo, bool) {
	s, ok := h.session(c)
	if !ok {
		return nil, entity.Todo{}, false
	}
	id := c.Param("id")
	current, found := s.Store().Find(id)
	if !found {
		response.Error(c, domain.ErrNotFound)
		return nil, entity.Todo{}, false
	}
	return s, current, true
}

// respond reports a mutation. With ?wait=true it blocks for the result;
// otherwise a result that is already known (such as a validation error) is
// reported and anything else is 202 Accepted.
func (h *Handler) respond(c *gin.Context, op string, results <-chan todo.Result) {
	wait, _ := strconv.ParseBool(c.Query("wait"))
	accepted := dto.MutationResponse{Op: op, Status: "accepted"}

	var res todo.Result
	if wait {
		timer := time.NewTimer(h.waitTimeout)
		defer timer.Stop()
		select {
		case res = <-results:
		case <-timer.C:
			response.Accepted(c, accepted)
			return
		case <-c.Request.Context().Done():
			c.Abort()
			return
		}
	} else {
		select {
		case res = <-results:
		default:
			response.Accepted(c, accepted)
			return
		}
	}

	if res.Err != nil {
		if errors.Is(res.Err, domain.ErrPersistence) {
			h.logger.Warn("Mutation failed", zap.String("op", op), zap.String("todo_id", res.ID), zap.Error(res.Err))
		}
		response.Error(c, res.Err)
		return
	}

	done := dto.MutationResponse{ID: res.ID, Op: op, Status: "done"}
	if op == todo.OpAdd {
		response.Created(c, done)
		return
	}
	response.Success(c, done)
}

func badParam(err error) error {
	return fmt.Errorf("%w: %v", domain.ErrBadParamInput, err)
}
