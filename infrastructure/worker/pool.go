package worker

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
)

// ErrPoolUnavailable reports a job refused because the queue is full or the
// pool has stopped
var ErrPoolUnavailable = errors.New("worker pool unavailable")

// Job is a unit of background work
type Job struct {
	Name string
	Run  func(ctx context.Context) error
}

// WorkerPool defines the interface for the background job pool
type WorkerPool interface {
	Start(workerCount int)
	SubmitJob(job Job) bool
	Stop()
}

// WorkerPoolStatus represents the status of the worker pool
type WorkerPoolStatus struct {
	ActiveWorkers int `json:"active_workers"`
	QueuedJobs    int `json:"queued_jobs"`
}

// Worker executes jobs from the shared queue
type Worker struct {
	id         int
	jobChan    <-chan Job
	jobTimeout time.Duration
	wg         *sync.WaitGroup
	quit       chan struct{}
	logger     *zap.Logger
}

// NewWorker creates a new worker
func NewWorker(
	id int,
	jobChan <-chan Job,
	jobTimeout time.Duration,
	wg *sync.WaitGroup,
	logger *zap.Logger,
) *Worker {
	return &Worker{
		id:         id,
		jobChan:    jobChan,
		jobTimeout: jobTimeout,
		wg:         wg,
		quit:       make(chan struct{}),
		logger:     logger,
	}
}

// Start begins the worker's main loop
func (w *Worker) Start() {
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		w.logger.Debug("Worker started", zap.Int("worker_id", w.id))

		for {
			select {
			case job, ok := <-w.jobChan:
				if !ok {
					return
				}
				w.processJob(job)

			case <-w.quit:
				w.logger.Debug("Worker stopping", zap.Int("worker_id", w.id))
				return
			}
		}
	}()
}

// Stop signals the worker to stop
func (w *Worker) Stop() {
	close(w.quit)
}

// processJob runs a single job with the configured timeout
func (w *Worker) processJob(job Job) {
	ctx := context.Background()
	if w.jobTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, w.jobTimeout)
		defer cancel()
	}

	defer func() {
		if r := recover(); r != nil {
			w.logger.Error("Job panicked",
				zap.Int("worker_id", w.id),
				zap.String("job", job.Name),
				zap.Any("panic", r))
		}
	}()

	start := time.Now()
	if err := job.Run(ctx); err != nil {
		w.logger.Warn("Job failed",
			zap.Int("worker_id", w.id),
			zap.String("job", job.Name),
			zap.Duration("duration", time.Since(start)),
			zap.Error(err))
		return
	}

	w.logger.Debug("Job completed",
		zap.Int("worker_id", w.id),
		zap.String("job", job.Name),
		zap.Duration("duration", time.Since(start)))
}

// workerPool manages a pool of workers
type workerPool struct {
	workers    []*Worker
	jobChan    chan Job
	jobTimeout time.Duration
	wg         *sync.WaitGroup
	logger     *zap.Logger

	mu      sync.RWMutex
	stopped bool
}

// NewWorkerPool creates a new worker pool whose queue holds queueSize jobs
func NewWorkerPool(queueSize int, jobTimeout time.Duration, logger *zap.Logger) WorkerPool {
	if queueSize <= 0 {
		queueSize = 1
	}
	return &workerPool{
		jobChan:    make(chan Job, queueSize),
		jobTimeout: jobTimeout,
		wg:         &sync.WaitGroup{},
		logger:     logger,
	}
}

// Start initializes and starts all workers
func (p *workerPool) Start(workerCount int) {
	p.workers = make([]*Worker, workerCount)
	for i := 0; i < workerCount; i++ {
		p.workers[i] = NewWorker(i+1, p.jobChan, p.jobTimeout, p.wg, p.logger)
		p.workers[i].Start()
	}

	p.logger.Info("Worker pool started",
		zap.Int("worker_count", workerCount),
		zap.Int("queue_size", cap(p.jobChan)),
	)
}

// Stop drains queued jobs and waits for the workers to exit
func (p *workerPool) Stop() {
	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return
	}
	p.stopped = true
	close(p.jobChan)
	p.mu.Unlock()

	p.logger.Info("Stopping worker pool")

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		p.logger.Info("All workers stopped")
	case <-time.After(30 * time.Second):
		p.logger.Warn("Timeout waiting for workers to stop")
		for _, worker := range p.workers {
			worker.Stop()
		}
	}
}

// SubmitJob enqueues a job without blocking; false means the queue is full
// or the pool has been stopped
func (p *workerPool) SubmitJob(job Job) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.stopped {
		return false
	}

	select {
	case p.jobChan <- job:
		return true
	default:
		return false
	}
}

// WorkerCount returns the number of started workers
func (p *workerPool) WorkerCount() int {
	return len(p.workers)
}

// Status reports worker and queue occupancy
func (p *workerPool) Status() WorkerPoolStatus {
	return WorkerPoolStatus{
		ActiveWorkers: len(p.workers),
		QueuedJobs:    len(p.jobChan),
	}
}
