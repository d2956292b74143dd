package handlers

import (
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/maheshrc27/crosspost/internal/models"
	"github.com/maheshrc27/crosspost/internal/service"
	"github.com/maheshrc27/crosspost/internal/transfer"
)

type PostHandler struct {
	s  service.PostService
	as service.AnalyticsService
}

func NewPostHandler(s service.PostService, as service.AnalyticsService) *PostHandler {
	return &PostHandler{s: s, as: as}
}

func (h *PostHandler) CreatePost(c *fiber.Ctx) error {
	userID := GetUserID(c)

	var pc transfer.PostCreation
	if err := c.BodyParser(&pc); err != nil {
		slog.Info(err.Error())
		return badRequest(c, "Unable to parse body")
	}

	outcome, err := h.s.CreatePost(c.Context(), userID, &pc)
	if err != nil {
		return errorResponse(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(outcome)
}

func (h *PostHandler) ListPosts(c *fiber.Ctx) error {
	userID := GetUserID(c)
	postID := c.QueryInt("id", 0)

	if postID != 0 {
		post, err := h.s.PostInfo(c.Context(), int64(postID), userID)
		if err != nil {
			return errorResponse(c, err)
		}
		return c.Status(fiber.StatusOK).JSON(post)
	}

	list, err := h.s.List(c.Context(), userID, c.Query("status"), c.QueryInt("limit", 0), c.QueryInt("offset", 0))
	if err != nil {
		return errorResponse(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(list)
}

func (h *PostHandler) ScheduledPosts(c *fiber.Ctx) error {
	posts, err := h.s.GetScheduledPosts(c.Context(), GetUserID(c))
	if err != nil {
		return errorResponse(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(posts)
}

func (h *PostHandler) SchedulePost(c *fiber.Ctx) error {
	userID := GetUserID(c)

	var req transfer.ScheduleRequest
	if err := c.BodyParser(&req); err != nil {
		slog.Info(err.Error())
		return badRequest(c, "Unable to parse body")
	}
	if err := req.Validate(); err != nil {
		return badRequest(c, err.Error())
	}

	var (
		post *models.Post
		err  error
	)
	switch req.Action {
	case transfer.ScheduleActionSchedule:
		post, err = h.s.SchedulePost(c.Context(), userID, req.PostID, *req.ScheduledAt)
	case transfer.ScheduleActionReschedule:
		post, err = h.s.ReschedulePost(c.Context(), userID, req.PostID, *req.ScheduledAt)
	case transfer.ScheduleActionCancel:
		post, err = h.s.CancelScheduledPost(c.Context(), userID, req.PostID)
	}
	if err != nil {
		return errorResponse(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(post)
}

func (h *PostHandler) PublishNow(c *fiber.Ctx) error {
	userID := GetUserID(c)
	postID := c.QueryInt("id", 0)

	outcome, err := h.s.PublishNow(c.Context(), userID, int64(postID))
	if err != nil {
		return errorResponse(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(outcome)
}

func (h *PostHandler) RemovePost(c *fiber.Ctx) error {
	userID := GetUserID(c)
	postID := c.QueryInt("id", 0)

	if err := h.s.Remove(c.Context(), userID, int64(postID)); err != nil {
		return errorResponse(c, err)
	}

	return c.SendStatus(fiber.StatusOK)
}

func (h *PostHandler) Analytics(c *fiber.Ctx) error {
	userID := GetUserID(c)
	postID := c.QueryInt("id", 0)

	analytics, err := h.as.Sync(c.Context(), userID, int64(postID))
	if err != nil {
		return errorResponse(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(analytics)
}
