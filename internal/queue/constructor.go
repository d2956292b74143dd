package queue

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
)

const TaskTypePublishPost = "post:publish"

type PublishPostPayload struct {
	PostID      int64     `json:"post_id"`
	ScheduledAt time.Time `json:"scheduled_at"`
}

func NewPublishPostTask(postID int64, at time.Time) (*asynq.Task, error) {
	payload, err := json.Marshal(PublishPostPayload{PostID: postID, ScheduledAt: at.UTC()})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypePublishPost, payload), nil
}

// publishTaskID is unique per post and schedule time, so scheduling the same
// post twice for the same instant enqueues one task.
func publishTaskID(postID int64, at time.Time) string {
	return fmt.Sprintf("%s:%d:%d", TaskTypePublishPost, postID, at.Unix())
}
