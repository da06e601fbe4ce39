package todoflow

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"todoflow/delivery/rest/dto"
)

// Start begins background processing (workers and the websocket hub).
// Must be called before serving requests
func (t *Todoflow) Start() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.started {
		return fmt.Errorf("already started")
	}
	if t.stopped {
		return fmt.Errorf("already shut down")
	}

	t.logger.Info("Starting Todoflow")

	t.workerPool.Start(t.config.WorkerPoolSize)
	go t.hub.Run()

	t.started = true
	t.logger.Info("Todoflow started successfully")
	return nil
}

// Shutdown gracefully stops Todoflow. Sessions are closed first so no new
// mutations arrive, then pending reminders are dropped and the worker pool
// drains.
func (t *Todoflow) Shutdown(ctx context.Context) error {
	t.mu.Lock()
	if t.stopped {
		t.mu.Unlock()
		return nil
	}
	t.stopped = true
	t.mu.Unlock()

	t.logger.Info("Shutting down Todoflow")

	done := make(chan struct{})
	go func() {
		defer close(done)
		t.manager.Close()
		t.scheduler.Close()
		t.workerPool.Stop()
		t.hub.Stop()
	}()

	select {
	case <-done:
	case <-ctx.Done():
		t.logger.Warn("Shutdown context cancelled", zap.Error(ctx.Err()))
		return ctx.Err()
	}

	if err := t.closeDatabase(); err != nil {
		t.logger.Error("Database close error", zap.Error(err))
		return err
	}

	t.logger.Info("Todoflow shutdown complete")
	return nil
}

// HealthCheck returns health status for monitoring
func (t *Todoflow) HealthCheck(ctx context.Context) dto.HealthResponse {
	t.mu.RLock()
	started, stopped := t.started, t.stopped
	t.mu.RUnlock()

	status := dto.HealthResponse{
		Started: started && !stopped,
		Driver:  t.config.Driver,
	}

	if !status.Started {
		status.Status = "stopped"
		return status
	}

	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := t.ping(ctx); err != nil {
		status.Status = "unhealthy"
		status.Database = "disconnected"
		status.Error = err.Error()
		return status
	}
	status.Database = "connected"

	status.Sessions = t.manager.Len()
	status.WebSocketClients = t.hub.GetClientCount()
	status.PendingReminders = len(t.scheduler.Pending())
	status.InFlight = t.gateway.InFlight().Get()
	if wp, ok := t.workerPool.(interface{ WorkerCount() int }); ok {
		status.Workers = wp.WorkerCount()
	}

	status.Status = "healthy"
	return status
}

func (t *Todoflow) ping(ctx context.Context) error {
	switch {
	case t.pgPool != nil:
		return t.pgPool.Ping(ctx)
	case t.db != nil:
		return t.db.PingContext(ctx)
	default:
		return nil
	}
}
