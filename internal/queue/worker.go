package queue

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/hibiken/asynq"
	"github.com/postpilothq/postpilot/internal/models"
)

func (j *Queue) HandlePublishDraftTask(ctx context.Context, task *asynq.Task) error {
	var payload PublishDraftPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return err
	}

	draft, err := j.dr.GetByID(ctx, payload.DraftID)
	if err != nil {
		return err
	}
	if draft == nil {
		slog.Info("draft no longer exists, dropping task", "draft_id", payload.DraftID)
		return nil
	}
	if draft.Status != models.DraftStatusPending {
		slog.Info("draft no longer pending, dropping task", "draft_id", draft.ID, "status", draft.Status)
		return nil
	}

	return j.exec.ExecuteDraft(ctx, nil, draft)
}
