package handler

import (
	"context"
	"strings"

	"sheetwatch/internal/config"
	"sheetwatch/internal/service"
	"sheetwatch/internal/utils"

	"github.com/gofiber/fiber/v2"
)

// ChatHandler serves the chat widget: command messages are dispatched to the
// sheet command service, free-form messages are passed through to the
// language model, and the worker posts summaries into the latest-response
// slot through SendToChatbot.
type ChatHandler struct {
	summarizer service.Summarizer
	commands   *service.SheetCommandService
	store      service.StatusStore
	cfg        *config.Config
}

func NewChatHandler(summarizer service.Summarizer, commands *service.SheetCommandService, store service.StatusStore, cfg *config.Config) *ChatHandler {
	return &ChatHandler{
		summarizer: summarizer,
		commands:   commands,
		store:      store,
		cfg:        cfg,
	}
}

func (h *ChatHandler) GetResponse(c *fiber.Ctx) error {
	var body struct {
		Message string `json:"message"`
	}
	if err := c.BodyParser(&body); err != nil || body.Message == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request, please send a 'message' field",
		})
	}

	// Command messages act on the workbook directly
	if strings.HasPrefix(strings.ToLower(body.Message), "update:") {
		ctx, cancel := context.WithTimeout(c.Context(), h.cfg.AITimeout)
		defer cancel()

		response, err := h.commands.ApplyCustomUpdate(ctx, body.Message)
		if err != nil {
			return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to apply update", err)
		}
		return c.JSON(fiber.Map{"response": response})
	}

	if strings.HasPrefix(body.Message, "delete duplicate rows") {
		response, err := h.commands.DeleteDuplicateRows()
		if err != nil {
			return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to delete duplicate rows", err)
		}
		return c.JSON(fiber.Map{"response": response})
	}

	if h.summarizer == nil {
		return utils.ErrorResponse(c, fiber.StatusServiceUnavailable, "AI service is not configured", nil)
	}

	ctx, cancel := context.WithTimeout(c.Context(), h.cfg.AITimeout)
	defer cancel()

	response, err := h.summarizer.Summarize(ctx, body.Message)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadGateway, "Failed to get AI response", err)
	}

	return c.JSON(fiber.Map{"response": response})
}

func (h *ChatHandler) SendToChatbot(c *fiber.Ctx) error {
	var body struct {
		Response string `json:"response"`
	}
	if err := c.BodyParser(&body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Missing 'response' field",
		})
	}

	if err := h.store.Forward(c.Context(), body.Response); err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to store response", err)
	}

	return c.JSON(fiber.Map{"message": "Response received successfully"})
}
