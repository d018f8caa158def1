package queue

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
)

// publishTimeout bounds one publish task, retries included.
const publishTimeout = 10 * time.Minute

type Producer struct {
	client *asynq.Client
}

func NewProducer(client *asynq.Client) *Producer {
	return &Producer{client: client}
}

// EnqueuePublish hands a claimed post to the workers. The publish
// coordinator does its own retries, so asynq never retries the task.
func (p *Producer) EnqueuePublish(ctx context.Context, postID string) error {
	taskPayload, err := json.Marshal(PublishPostPayload{PostID: postID})
	if err != nil {
		return err
	}

	task := asynq.NewTask(TaskTypePublishPost, taskPayload)

	info, err := p.client.EnqueueContext(ctx, task, asynq.MaxRetry(0), asynq.Timeout(publishTimeout))
	if err != nil {
		slog.Info(err.Error())
		return err
	}

	slog.Info("publish task enqueued", "post_id", postID, "task_id", info.ID, "queue", info.Queue)
	return nil
}
