// Package worker runs the scheduled aggregation, cleanup and backfill jobs.
package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"memeboard/internal/metrics"
)

// jobTimeout bounds a single run of any job
const jobTimeout = 30 * time.Minute

// Job is a named unit of scheduled work
type Job struct {
	Name string
	Spec string
	Run  func(ctx context.Context) error
}

// JobStats is the last known state of a job
type JobStats struct {
	Name       string     `json:"name"`
	Spec       string     `json:"spec"`
	Status     string     `json:"status"`
	RunCount   int        `json:"run_count"`
	LastRun    *time.Time `json:"last_run,omitempty"`
	LastResult string     `json:"last_result"`
	NextRun    *time.Time `json:"next_run,omitempty"`

	entryID cron.EntryID
}

// WorkerService manages the scheduled jobs of the application
type WorkerService struct {
	cron      *cron.Cron
	jobs      []Job
	stats     map[string]*JobStats
	logger    *zap.Logger
	ctx       context.Context
	cancel    context.CancelFunc
	running   bool
	startedAt time.Time
	mu        sync.RWMutex
}

// NewWorkerService creates a new worker service for jobs
func NewWorkerService(jobs []Job, logger *zap.Logger) *WorkerService {
	ctx, cancel := context.WithCancel(context.Background())

	stats := make(map[string]*JobStats, len(jobs))
	for _, job := range jobs {
		stats[job.Name] = &JobStats{
			Name:       job.Name,
			Spec:       job.Spec,
			Status:     "idle",
			LastResult: "pending",
		}
	}

	return &WorkerService{
		cron:   cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
		jobs:   jobs,
		stats:  stats,
		logger: logger,
		ctx:    ctx,
		cancel: cancel,
	}
}

// Start schedules every job
func (ws *WorkerService) Start() error {
	ws.mu.Lock()
	defer ws.mu.Unlock()

	if ws.running {
		return nil
	}

	for _, job := range ws.jobs {
		job := job
		id, err := ws.cron.AddFunc(job.Spec, func() { ws.run(job) })
		if err != nil {
			return fmt.Errorf("schedule %s (%q): %w", job.Name, job.Spec, err)
		}
		ws.stats[job.Name].entryID = id
	}

	ws.cron.Start()
	ws.running = true
	ws.startedAt = time.Now()
	ws.logger.Info("background workers started", zap.Int("jobs", len(ws.jobs)))
	return nil
}

// Stop stops scheduling and waits for running jobs to finish
func (ws *WorkerService) Stop() {
	ws.mu.Lock()
	if !ws.running {
		ws.mu.Unlock()
		return
	}
	ws.running = false
	ws.mu.Unlock()

	ws.logger.Info("stopping background workers")
	ws.cancel()
	<-ws.cron.Stop().Done()
	ws.logger.Info("background workers stopped")
}

// IsRunning returns whether the worker service is currently running
func (ws *WorkerService) IsRunning() bool {
	ws.mu.RLock()
	defer ws.mu.RUnlock()
	return ws.running
}

// RunNow runs the named job synchronously outside the schedule
func (ws *WorkerService) RunNow(name string) error {
	for _, job := range ws.jobs {
		if job.Name == name {
			return ws.run(job)
		}
	}
	return fmt.Errorf("job %q not found", name)
}

func (ws *WorkerService) run(job Job) error {
	started := time.Now()
	ws.mu.Lock()
	stat := ws.stats[job.Name]
	stat.Status = "running"
	stat.RunCount++
	stat.LastRun = &started
	ws.mu.Unlock()

	ws.logger.Info("job started", zap.String("job", job.Name))

	ctx, cancel := context.WithTimeout(ws.ctx, jobTimeout)
	defer cancel()
	err := job.Run(ctx)

	ws.mu.Lock()
	if err != nil {
		stat.Status = "error"
		stat.LastResult = err.Error()
	} else {
		stat.Status = "idle"
		stat.LastResult = "success"
	}
	ws.mu.Unlock()

	if err != nil {
		metrics.RecordJob(job.Name, "error")
		ws.logger.Error("job failed", zap.String("job", job.Name), zap.Duration("took", time.Since(started)), zap.Error(err))
		return err
	}
	metrics.RecordJob(job.Name, "success")
	ws.logger.Info("job finished", zap.String("job", job.Name), zap.Duration("took", time.Since(started)))
	return nil
}

// GetStatus returns the current status of the worker service
func (ws *WorkerService) GetStatus() map[string]interface{} {
	ws.mu.RLock()
	defer ws.mu.RUnlock()

	jobs := make([]JobStats, 0, len(ws.jobs))
	for _, job := range ws.jobs {
		stat := *ws.stats[job.Name]
		if ws.running && stat.entryID != 0 {
			next := ws.cron.Entry(stat.entryID).Next
			if !next.IsZero() {
				stat.NextRun = &next
			}
		}
		jobs = append(jobs, stat)
	}

	status := map[string]interface{}{
		"running": ws.running,
		"jobs":    jobs,
	}
	if ws.running {
		status["uptime"] = time.Since(ws.startedAt).Round(time.Second).String()
	}
	return status
}
