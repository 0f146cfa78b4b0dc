package queue

import (
	"github.com/postpilothq/postpilot/internal/repository"
	"github.com/postpilothq/postpilot/internal/scheduler"
)

// Queue handles manual publish requests enqueued by the API. It reuses the
// scheduler's executor so immediate posts go through the same gate and audit
// trail as scheduled ones.
type Queue struct {
	dr   repository.DraftRepository
	exec *scheduler.Executor
}

func NewQueue(dr repository.DraftRepository, exec *scheduler.Executor) *Queue {
	return &Queue{
		dr:   dr,
		exec: exec,
	}
}

const TaskTypePublishDraft = "draft:publish"

type PublishDraftPayload struct {
	DraftID string `json:"draft_id"`
}
