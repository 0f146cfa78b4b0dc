package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/postpilothq/postpilot/internal/service"
)

type LogHandler struct {
	s service.CampaignService
}

func NewLogHandler(service service.CampaignService) *LogHandler {
	return &LogHandler{s: service}
}

func (h *LogHandler) ListLogs(c *fiber.Ctx) error {
	campaignID := c.Query("campaign_id")
	if campaignID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "campaign_id is required",
		})
	}
	limit := c.QueryInt("limit", 50)

	logs, err := h.s.ListLogs(c.Context(), campaignID, limit)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Unable to list post logs",
		})
	}

	return c.Status(fiber.StatusOK).JSON(logs)
}
