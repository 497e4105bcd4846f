package engine

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/paperradar/paperradar/internal/storage"
)

// Job drives the engine on a fixed interval. Cycles never overlap: the
// loop runs one cycle to completion before waiting for the next tick, which
// keeps every cycle's baseline snapshot internally consistent.
type Job struct {
	engine   *Engine
	interval time.Duration
	reports  storage.BlobStore // optional; nil disables report archiving
	logger   *slog.Logger

	mu      sync.Mutex
	cancel  context.CancelFunc
	done    chan struct{}
	trigger chan struct{}
}

// NewJob creates a periodic job around the engine. reports may be nil.
func NewJob(e *Engine, interval time.Duration, reports storage.BlobStore, logger *slog.Logger) *Job {
	return &Job{
		engine:   e,
		interval: interval,
		reports:  reports,
		logger:   logger,
		trigger:  make(chan struct{}, 1),
	}
}

// Start launches the job loop. The first cycle runs immediately. Calling
// Start on a running job is a no-op; after Stop the job may be started
// again, and the new loop waits for the old one to drain so cycles never
// overlap across a restart.
func (j *Job) Start(ctx context.Context) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.cancel != nil {
		return
	}

	ctx, cancel := context.WithCancel(ctx)
	j.cancel = cancel
	prev := j.done
	j.done = make(chan struct{})
	go func(done chan struct{}) {
		if prev != nil {
			<-prev
		}
		j.run(ctx, done)
	}(j.done)
}

// Trigger requests an immediate cycle. If one is already running, the
// request coalesces into a single follow-up run.
func (j *Job) Trigger() {
	select {
	case j.trigger <- struct{}{}:
	default:
	}
}

// Stop cancels the loop and the in-flight cycle, if any.
func (j *Job) Stop() {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.cancel != nil {
		j.cancel()
		j.cancel = nil
	}
}

// Await blocks until the loop has fully exited.
func (j *Job) Await() {
	j.mu.Lock()
	done := j.done
	j.mu.Unlock()
	if done != nil {
		<-done
	}
}

func (j *Job) run(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	j.runOnce(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			j.runOnce(ctx)
		case <-j.trigger:
			j.runOnce(ctx)
		}
	}
}

func (j *Job) runOnce(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	report, err := j.engine.RunCycle(ctx)
	if err != nil {
		j.logger.Error("ranking cycle failed", "error", err)
		return
	}
	j.archive(ctx, report)
}

func (j *Job) archive(ctx context.Context, report *Report) {
	if j.reports == nil {
		return
	}
	data, err := json.Marshal(report)
	if err != nil {
		j.logger.Error("marshal cycle report", "error", err)
		return
	}
	if err := j.reports.PutCycleReport(ctx, report.CycleID, data); err != nil {
		j.logger.Warn("archive cycle report", "cycle_id", report.CycleID, "error", err)
	}
}
