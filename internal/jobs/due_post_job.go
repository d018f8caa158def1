package job

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/maheshrc27/crosspost/internal/service"
)

type Enqueuer interface {
	EnqueuePublish(ctx context.Context, postID string) error
}

// DuePostJob moves due scheduled posts onto the publish queue.
type DuePostJob struct {
	scheduler service.SchedulerService
	queue     Enqueuer
	running   atomic.Bool
	now       func() time.Time
}

func NewDuePostJob(scheduler service.SchedulerService, queue Enqueuer) *DuePostJob {
	return &DuePostJob{scheduler: scheduler, queue: queue, now: time.Now}
}

// DispatchDue recovers stale posts and runs one poll. A tick that fires
// while the previous one is still running is skipped.
func (j *DuePostJob) DispatchDue() {
	if !j.running.CompareAndSwap(false, true) {
		return
	}
	defer j.running.Store(false)

	ctx := context.Background()
	if n, err := j.scheduler.RecoverStale(ctx, j.now()); err != nil {
		slog.Error("failed to recover stale posts", "error", err)
	} else if n > 0 {
		slog.Info("stale posts recovered", "count", n)
	}

	if n := j.dispatch(ctx); n > 0 {
		slog.Info("due posts dispatched", "count", n)
	}
}

func (j *DuePostJob) dispatch(ctx context.Context) int {
	dispatched := 0
	for post, err := range j.scheduler.PollDue(ctx, j.now()) {
		if err != nil {
			slog.Info(err.Error())
			continue
		}

		if err := j.queue.EnqueuePublish(ctx, post.ID); err != nil {
			slog.Error("failed to enqueue due post", "post_id", post.ID, "error", err)
			if err := j.scheduler.Release(ctx, post.ID); err != nil {
				slog.Error(err.Error())
			}
			continue
		}
		dispatched++
	}
	return dispatched
}
