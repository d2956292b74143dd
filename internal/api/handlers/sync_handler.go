package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/maheshrc27/crosspost/internal/service"
)

type SyncHandler struct {
	ss service.SyncService
}

func NewSyncHandler(ss service.SyncService) *SyncHandler {
	return &SyncHandler{ss: ss}
}

func (h *SyncHandler) Snapshot(c *fiber.Ctx) error {
	snapshot, err := h.ss.Snapshot(c.Context(), GetUserID(c))
	if err != nil {
		return errorResponse(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(snapshot)
}

func (h *SyncHandler) Conflicts(c *fiber.Ctx) error {
	since, err := time.Parse(time.RFC3339, c.Query("since"))
	if err != nil {
		return badRequest(c, "since must be an RFC3339 timestamp")
	}

	conflicts, err := h.ss.Conflicts(c.Context(), GetUserID(c), since)
	if err != nil {
		return errorResponse(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(conflicts)
}
