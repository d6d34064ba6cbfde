package handlers

import (
	"errors"
	"io"

	"github.com/gofiber/fiber/v2"
	"github.com/mhalesto/localloop/internal/middleware"
	"github.com/mhalesto/localloop/internal/status"
)

type StatusHandler struct {
	engine    *status.Engine
	feedLimit int
	sweepMax  int
}

func NewStatusHandler(engine *status.Engine, feedLimit, sweepMax int) *StatusHandler {
	return &StatusHandler{engine: engine, feedLimit: feedLimit, sweepMax: sweepMax}
}

// --- Request DTOs ---

type CreateStatusRequest struct {
	Message  string `json:"message"`
	City     string `json:"city"`
	Province string `json:"province"`
	Country  string `json:"country"`
}

type AddReplyRequest struct {
	Message string `json:"message"`
}

type ReactRequest struct {
	Emoji string `json:"emoji"`
}

type ReportRequest struct {
	Reason string `json:"reason"`
}

// Create accepts either a JSON body or a multipart form with an optional
// "image" file part.
func (h *StatusHandler) Create(c *fiber.Ctx) error {
	author, err := middleware.CurrentAuthor(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": true, "message": "Unauthorized"})
	}

	var req CreateStatusRequest
	var img *status.Image

	if file, err := c.FormFile("image"); err == nil && file != nil {
		src, err := file.Open()
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": true, "message": "Unreadable image"})
		}
		data, err := io.ReadAll(src)
		src.Close()
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": true, "message": "Unreadable image"})
		}
		img = &status.Image{
			Path:        file.Filename,
			Data:        data,
			ContentType: file.Header.Get("Content-Type"),
		}
		req.Message = c.FormValue("message")
		req.City = c.FormValue("city")
		req.Province = c.FormValue("province")
		req.Country = c.FormValue("country")
	} else if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": true, "message": "Invalid request"})
	}

	loc := &status.Location{City: req.City, Province: req.Province, Country: req.Country}
	created, err := h.engine.CreateStatus(c.Context(), req.Message, img, author, loc)
	if err != nil {
		return c.Status(createStatusCode(err)).JSON(fiber.Map{"error": true, "message": err.Error()})
	}
	return c.Status(fiber.StatusCreated).JSON(created)
}

func createStatusCode(err error) int {
	var upErr *status.UploadError
	switch {
	case errors.Is(err, status.ErrEmptyMessage):
		return fiber.StatusBadRequest
	case errors.Is(err, status.ErrNotAuthenticated):
		return fiber.StatusUnauthorized
	case errors.As(err, &upErr):
		if upErr.Kind == status.UploadPermissionDenied {
			return fiber.StatusForbidden
		}
		return fiber.StatusBadGateway
	default:
		return fiber.StatusInternalServerError
	}
}

// Feed returns a one-shot snapshot of the visible feed.
func (h *StatusHandler) Feed(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", h.feedLimit)
	if limit < 1 || limit > h.feedLimit {
		limit = h.feedLimit
	}
	filter := status.FeedFilter{
		City:     c.Query("city"),
		Province: c.Query("province"),
		Country:  c.Query("country"),
		Limit:    limit,
	}

	statuses, err := h.engine.FetchStatuses(c.Context(), filter)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": true, "message": err.Error()})
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"statuses": statuses, "count": len(statuses)}})
}

func (h *StatusHandler) GetReplies(c *fiber.Ctx) error {
	replies, err := h.engine.FetchStatusReplies(c.Context(), c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": true, "message": err.Error()})
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"replies": replies, "count": len(replies)}})
}

func (h *StatusHandler) AddReply(c *fiber.Ctx) error {
	author, err := middleware.CurrentAuthor(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": true, "message": "Unauthorized"})
	}

	var req AddReplyRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": true, "message": "Invalid request"})
	}

	reply, err := h.engine.AddReply(c.Context(), c.Params("id"), req.Message, author)
	switch {
	case errors.Is(err, status.ErrEmptyMessage):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": true, "message": err.Error()})
	case errors.Is(err, status.ErrStatusNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": true, "message": err.Error()})
	case err != nil:
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": true, "message": err.Error()})
	}
	return c.Status(fiber.StatusCreated).JSON(reply)
}

func (h *StatusHandler) React(c *fiber.Ctx) error {
	author, err := middleware.CurrentAuthor(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": true, "message": "Unauthorized"})
	}

	var req ReactRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": true, "message": "Invalid request"})
	}

	result := h.engine.ToggleReaction(c.Context(), c.Params("id"), req.Emoji, author.UID)
	if !result.OK {
		return c.Status(engageStatusCode(result.Err)).JSON(fiber.Map{"error": true, "message": result.Err.Error()})
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"reactions": result.Reactions}})
}

func (h *StatusHandler) Report(c *fiber.Ctx) error {
	author, err := middleware.CurrentAuthor(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": true, "message": "Unauthorized"})
	}

	var req ReportRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": true, "message": "Invalid request"})
	}

	result := h.engine.ReportStatus(c.Context(), c.Params("id"), author.UID, req.Reason)
	if !result.OK {
		return c.Status(engageStatusCode(result.Err)).JSON(fiber.Map{"error": true, "message": result.Err.Error()})
	}
	return c.JSON(fiber.Map{"data": fiber.Map{
		"report_count":     result.ReportCount,
		"is_hidden":        result.IsHidden,
		"already_reported": result.AlreadyReported,
	}})
}

func engageStatusCode(err error) int {
	switch {
	case errors.Is(err, status.ErrStatusNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, status.ErrNotAuthenticated):
		return fiber.StatusUnauthorized
	case errors.Is(err, status.ErrEmojiRequired):
		return fiber.StatusBadRequest
	default:
		return fiber.StatusInternalServerError
	}
}

// --- Admin handlers ---

// Reported lists statuses with at least one report, most reported first.
func (h *StatusHandler) Reported(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", h.feedLimit)
	statuses, err := h.engine.FetchReported(c.Context(), limit)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": true, "message": err.Error()})
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"statuses": statuses, "count": len(statuses)}})
}

// Cleanup triggers an on-demand expiry sweep.
func (h *StatusHandler) Cleanup(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", h.sweepMax)
	removed, err := h.engine.CleanupExpired(c.Context(), limit)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": true, "message": err.Error()})
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"removed": removed}})
}
