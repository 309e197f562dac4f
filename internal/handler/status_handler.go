package handler

import (
	"sheetwatch/internal/models"
	"sheetwatch/internal/service"

	"github.com/gofiber/fiber/v2"
)

// StatusHandler exposes the polling endpoints consumed by the browser
// widget: the pass outcome and the latest AI explanation.
type StatusHandler struct {
	store service.StatusStore
}

func NewStatusHandler(store service.StatusStore) *StatusHandler {
	return &StatusHandler{store: store}
}

func (h *StatusHandler) GetStatus(c *fiber.Ctx) error {
	status, err := h.store.Status(c.Context())
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to read status",
		})
	}

	return c.JSON(fiber.Map{"status": status})
}

func (h *StatusHandler) UpdateStatus(c *fiber.Ctx) error {
	var body struct {
		Status string `json:"status"`
	}
	if err := c.BodyParser(&body); err != nil || body.Status == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Missing 'status' field",
		})
	}

	if body.Status != models.StatusSuccess && body.Status != models.StatusError {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Status must be 'success' or 'error'",
		})
	}

	if err := h.store.SetStatus(c.Context(), body.Status); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to update status",
		})
	}

	return c.JSON(fiber.Map{"message": "Status updated successfully"})
}

func (h *StatusHandler) GetLatestResponse(c *fiber.Ctx) error {
	text, err := h.store.LatestResponse(c.Context())
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to read latest response",
		})
	}

	if text == "" {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"response": "No AI response available",
		})
	}

	return c.JSON(fiber.Map{"response": text})
}
