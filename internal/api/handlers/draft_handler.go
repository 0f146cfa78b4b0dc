package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/hibiken/asynq"
	"github.com/postpilothq/postpilot/internal/queue"
	"github.com/postpilothq/postpilot/internal/service"
)

type DraftHandler struct {
	s           service.CampaignService
	AsynqClient *asynq.Client
}

func NewDraftHandler(service service.CampaignService, asynqClient *asynq.Client) *DraftHandler {
	return &DraftHandler{s: service, AsynqClient: asynqClient}
}

func (h *DraftHandler) ListDrafts(c *fiber.Ctx) error {
	campaignID := c.Query("campaign_id")
	if campaignID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "campaign_id is required",
		})
	}

	drafts, err := h.s.ListDrafts(c.Context(), campaignID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Unable to list drafts",
		})
	}

	return c.Status(fiber.StatusOK).JSON(drafts)
}

// PostNow enqueues an immediate publish of a pending draft. The queue worker
// runs it through the same executor as the scheduler.
func (h *DraftHandler) PostNow(c *fiber.Ctx) error {
	draftID := c.Params("id")

	draft, err := h.s.DraftForPublish(c.Context(), draftID)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	err = queue.EnqueueDraft(h.AsynqClient, queue.PublishDraftPayload{DraftID: draft.ID}, 0)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Error scheduling publish",
		})
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"message": "Draft queued for publishing",
	})
}
