// Package jobs runs the periodic background loops: the match pass, the
// proposal and draft expiry sweeps, the reconciler, and the status
// re-broadcast. Every process runs every job; the jobs themselves are
// written to tolerate concurrent execution.
package jobs

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

type Job struct {
	Name     string
	Interval time.Duration
	Run      func(context.Context) error
}

type Runner struct {
	jobs   []Job
	log    *zap.Logger
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewRunner(log *zap.Logger, jobs ...Job) *Runner {
	return &Runner{jobs: jobs, log: log}
}

func (r *Runner) Start(ctx context.Context) {
	ctx, r.cancel = context.WithCancel(ctx)
	for _, job := range r.jobs {
		r.wg.Add(1)
		go r.loop(ctx, job)
	}
}

// Stop cancels every loop and waits for in-flight iterations to finish.
func (r *Runner) Stop() {
	if r.cancel != nil {
		r.cancel()
	}
	r.wg.Wait()
}

func (r *Runner) loop(ctx context.Context, job Job) {
	defer r.wg.Done()
	ticker := time.NewTicker(job.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.runOnce(ctx, job)
		}
	}
}

// runOnce isolates one iteration so a panic in a job kills neither the
// loop nor the process.
func (r *Runner) runOnce(ctx context.Context, job Job) {
	defer func() {
		if rec := recover(); rec != nil {
			r.log.Error("job panicked", zap.String("job", job.Name), zap.Any("panic", rec))
		}
	}()
	if err := job.Run(ctx); err != nil && ctx.Err() == nil {
		r.log.Warn("job failed", zap.String("job", job.Name), zap.Error(err))
	}
}
