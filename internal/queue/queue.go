package queue

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
)

// Enqueuer registers a delayed publish task for every scheduled post. The
// task only triggers the same claim the scheduler uses, so a task for a post
// that was cancelled, rescheduled or already published does nothing.
type Enqueuer struct {
	client *asynq.Client
}

func NewEnqueuer(client *asynq.Client) *Enqueuer {
	return &Enqueuer{client: client}
}

func (e *Enqueuer) EnqueueDue(ctx context.Context, postID int64, at time.Time) error {
	task, err := NewPublishPostTask(postID, at)
	if err != nil {
		return err
	}

	info, err := e.client.EnqueueContext(ctx, task,
		asynq.ProcessAt(at),
		asynq.MaxRetry(0),
		asynq.TaskID(publishTaskID(postID, at)),
	)
	if errors.Is(err, asynq.ErrTaskIDConflict) || errors.Is(err, asynq.ErrDuplicateTask) {
		return nil
	}
	if err != nil {
		return err
	}

	slog.Info("publish task scheduled", "post_id", postID, "task_id", info.ID, "process_at", at)
	return nil
}
