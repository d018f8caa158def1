package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"
)

func (q *Queue) HandlePublishPostTask(ctx context.Context, task *asynq.Task) error {
	var payload PublishPostPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return fmt.Errorf("bad payload: %v: %w", err, asynq.SkipRetry)
	}
	if payload.PostID == "" {
		return fmt.Errorf("missing post id: %w", asynq.SkipRetry)
	}

	receipt, err := q.publish.PublishClaimed(ctx, payload.PostID)
	if err != nil {
		slog.Info("scheduled publish failed", "post_id", payload.PostID, "error", err)
		return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
	}

	slog.Info("scheduled post published", "post_id", payload.PostID, "external_id", receipt.ExternalID)
	return nil
}
