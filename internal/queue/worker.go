package queue

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"
)

type PostPublisher interface {
	PublishPost(ctx context.Context, postID int64) error
}

type Worker struct {
	publisher PostPublisher
}

func NewWorker(publisher PostPublisher) *Worker {
	return &Worker{publisher: publisher}
}

func (w *Worker) Register(mux *asynq.ServeMux) {
	mux.HandleFunc(TaskTypePublishPost, w.HandlePublishPostTask)
}

func (w *Worker) HandlePublishPostTask(ctx context.Context, task *asynq.Task) error {
	var payload PublishPostPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return fmt.Errorf("invalid %s payload: %v: %w", TaskTypePublishPost, err, asynq.SkipRetry)
	}

	return w.publisher.PublishPost(ctx, payload.PostID)
}
