package queue

import (
	"github.com/maheshrc27/crosspost/internal/service"
)

type Queue struct {
	publish service.PublishService
}

func NewQueue(publish service.PublishService) *Queue {
	return &Queue{publish: publish}
}

const TaskTypePublishPost = "publish:post"

type PublishPostPayload struct {
	PostID string `json:"post_id"`
}
