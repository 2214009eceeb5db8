package api

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/cohortscope/server/internal/contraststore"
	"github.com/cohortscope/server/internal/logging"
	"github.com/cohortscope/server/internal/metrics"
)

// ErrQueueClosed is returned by Submit after Stop.
var ErrQueueClosed = errors.New("contrast job queue is closed")

// Cancellation causes recorded on running jobs.
var (
	errCancelledByUser = errors.New("cancelled by user")
	errShuttingDown    = errors.New("server shutting down")
)

// JobManagerConfig contains configuration for the job manager.
type JobManagerConfig struct {
	MaxConcurrent int           // Max concurrent contrast jobs (default 1)
	QueueSize     int           // Pending job capacity (default 100)
	Retention     time.Duration // How long finished jobs are kept (default 7 days)
	CleanupPeriod time.Duration
	Logger        logging.Logger
	Metrics       *metrics.Metrics
}

// JobManager runs contrast jobs on a bounded worker pool, persisting their
// state in the contrast store.
type JobManager struct {
	cfg      JobManagerConfig
	store    *contraststore.Store
	log      logging.Logger
	queue    chan string // job IDs
	running  map[string]context.CancelCauseFunc
	closed   bool
	mu       sync.Mutex
	wg       sync.WaitGroup
	stopOnce sync.Once
	stopCh   chan struct{}

	// Executor is called to run the actual contrast computation.
	Executor func(ctx context.Context, jobID string) error
}

// NewJobManager creates a job manager over store. The manager owns the
// store from then on and closes it in Stop.
func NewJobManager(cfg JobManagerConfig, store *contraststore.Store) *JobManager {
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = 1
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 100
	}
	if cfg.Retention <= 0 {
		cfg.Retention = 7 * 24 * time.Hour
	}
	if cfg.CleanupPeriod <= 0 {
		cfg.CleanupPeriod = time.Hour
	}
	log := cfg.Logger
	if log == nil {
		log = logging.NewNop()
	}

	return &JobManager{
		cfg:     cfg,
		store:   store,
		log:     log.Named("contrast-jobs"),
		queue:   make(chan string, cfg.QueueSize),
		running: make(map[string]context.CancelCauseFunc),
		stopCh:  make(chan struct{}),
	}
}

// Store returns the underlying store for direct access.
func (jm *JobManager) Store() *contraststore.Store {
	return jm.store
}

// Start recovers state left by a previous process, then starts the workers
// and the cleanup ticker.
func (jm *JobManager) Start() {
	if err := jm.store.MarkRunningAsFailed("server restarted"); err != nil {
		jm.log.Error("failed to mark running jobs as failed", logging.Err(err))
	}

	queued, err := jm.store.ListQueuedJobs()
	if err != nil {
		jm.log.Error("failed to list queued jobs", logging.Err(err))
	} else {
		for _, job := range queued {
			select {
			case jm.queue <- job.ID:
				jm.log.Info("re-queued job", logging.String("job_id", job.ID))
			default:
				jm.log.Warn("queue full, cannot re-queue job", logging.String("job_id", job.ID))
			}
		}
		jm.cfg.Metrics.SetQueueDepth(len(jm.queue))
	}

	for i := 0; i < jm.cfg.MaxConcurrent; i++ {
		jm.wg.Add(1)
		go jm.worker()
	}

	go jm.cleaner()
}

// Stop cancels running jobs, waits for the workers and closes the store.
// Interrupted jobs are recorded as failed; jobs still queued stay queued and
// are picked up by the next Start.
func (jm *JobManager) Stop() {
	jm.stopOnce.Do(func() {
		jm.mu.Lock()
		jm.closed = true
		close(jm.stopCh)
		close(jm.queue)
		for _, cancel := range jm.running {
			cancel(errShuttingDown)
		}
		jm.mu.Unlock()

		jm.wg.Wait()
		if err := jm.store.Close(); err != nil {
			jm.log.Warn("failed to close contrast store", logging.Err(err))
		}
	})
}

func (jm *JobManager) worker() {
	defer jm.wg.Done()
	for jobID := range jm.queue {
		select {
		case <-jm.stopCh:
			return
		default:
		}
		jm.cfg.Metrics.SetQueueDepth(len(jm.queue))
		jm.runJob(jobID)
	}
}

func (jm *JobManager) runJob(jobID string) {
	ctx, cancel := context.WithCancelCause(context.Background())
	defer cancel(nil)

	// From here on a Cancel lands on ctx.
	jm.mu.Lock()
	jm.running[jobID] = cancel
	jm.mu.Unlock()

	defer func() {
		jm.mu.Lock()
		delete(jm.running, jobID)
		jm.mu.Unlock()
	}()

	job, err := jm.store.GetJob(jobID)
	if err != nil {
		jm.log.Warn("skipping job", logging.String("job_id", jobID), logging.Err(err))
		return
	}
	if job.Status != contraststore.JobStatusQueued {
		// Cancelled while waiting.
		return
	}

	if err := jm.store.UpdateJobStarted(jobID); err != nil {
		jm.log.Error("failed to mark job started", logging.String("job_id", jobID), logging.Err(err))
		return
	}

	start := time.Now()
	var execErr error
	if jm.Executor != nil {
		execErr = jm.Executor(ctx, jobID)
	}

	status, msg := contraststore.JobStatusCompleted, ""
	switch cause := context.Cause(ctx); {
	case errors.Is(cause, errShuttingDown):
		status, msg = contraststore.JobStatusFailed, cause.Error()
	case errors.Is(cause, errCancelledByUser):
		status, msg = contraststore.JobStatusCancelled, cause.Error()
	case execErr != nil:
		status, msg = contraststore.JobStatusFailed, execErr.Error()
	}
	if err := jm.store.UpdateJobStatus(jobID, status, msg); err != nil {
		jm.log.Error("failed to record job status", logging.String("job_id", jobID), logging.Err(err))
	}
	jm.cfg.Metrics.ObserveContrastJob(string(status))
	jm.log.Info("job finished",
		logging.String("job_id", jobID),
		logging.String("status", string(status)),
		logging.Duration("elapsed", time.Since(start)),
	)
}

func (jm *JobManager) cleaner() {
	ticker := time.NewTicker(jm.cfg.CleanupPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-jm.stopCh:
			return
		case <-ticker.C:
			jm.cleanup()
		}
	}
}

func (jm *JobManager) cleanup() {
	deleted, err := jm.store.DeleteExpiredJobs(jm.cfg.Retention)
	if err != nil {
		jm.log.Error("cleanup failed", logging.Err(err))
	} else if deleted > 0 {
		jm.log.Info("cleaned up expired jobs", logging.Int("deleted", int(deleted)))
	}
}

// Submit creates a new job and enqueues it for execution.
func (jm *JobManager) Submit(params contraststore.JobParams) (*contraststore.Job, error) {
	job := &contraststore.Job{
		ID:        uuid.NewString(),
		Status:    contraststore.JobStatusQueued,
		Params:    params,
		CreatedAt: time.Now(),
	}

	jm.mu.Lock()
	defer jm.mu.Unlock()
	if jm.closed {
		return nil, ErrQueueClosed
	}

	if err := jm.store.CreateJob(job); err != nil {
		return nil, err
	}

	select {
	case jm.queue <- job.ID:
		jm.cfg.Metrics.SetQueueDepth(len(jm.queue))
	default:
		// Queue full; fail immediately.
		job.Status = contraststore.JobStatusFailed
		job.Error = "job queue is full; try again later"
		if err := jm.store.UpdateJobStatus(job.ID, job.Status, job.Error); err != nil {
			jm.log.Error("failed to record job status", logging.String("job_id", job.ID), logging.Err(err))
		}
		jm.cfg.Metrics.ObserveContrastJob(string(job.Status))
	}
	return job, nil
}

// Get returns a job by ID.
func (jm *JobManager) Get(id string) (*contraststore.Job, error) {
	return jm.store.GetJob(id)
}

// Cancel cancels a running or queued job. It reports whether anything was
// cancelled.
func (jm *JobManager) Cancel(id string) bool {
	jm.mu.Lock()
	cancel, ok := jm.running[id]
	jm.mu.Unlock()

	if ok && cancel != nil {
		cancel(errCancelledByUser)
		return true
	}

	job, err := jm.store.GetJob(id)
	if err != nil {
		return false
	}
	if job.Status == contraststore.JobStatusQueued {
		if err := jm.store.UpdateJobStatus(id, contraststore.JobStatusCancelled, "cancelled before start"); err != nil {
			jm.log.Error("failed to record job status", logging.String("job_id", id), logging.Err(err))
			return false
		}
		jm.cfg.Metrics.ObserveContrastJob(string(contraststore.JobStatusCancelled))
		return true
	}
	return false
}

// Delete deletes a job and its results.
func (jm *JobManager) Delete(id string) error {
	return jm.store.DeleteJob(id)
}
