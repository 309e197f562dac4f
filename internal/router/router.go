package router

import (
	"context"
	"log"

	"sheetwatch/internal/config"
	"sheetwatch/internal/handler"
	"sheetwatch/internal/service"
	"sheetwatch/internal/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
)

func Setup(app *fiber.App, db *sqlx.DB, redis *redis.Client, cfg *config.Config) {
	// Health check
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "ok",
			"app":    cfg.AppName,
		})
	})

	// The status and latest-response slots live in Redis so the worker and
	// web process share them. Fall back to an in-process store when Redis
	// is not available.
	var statusStore service.StatusStore
	if redis != nil {
		statusStore = service.NewRedisStatusStore(redis)
	} else {
		log.Printf("Redis not available, status slots are process-local")
		statusStore = service.NewMemoryStatusStore()
	}

	summarizer, err := service.NewSummarizer(context.Background(), cfg)
	if err != nil {
		log.Printf("Warning: AI summarizer unavailable: %v", err)
		summarizer = nil
	}

	commands := service.NewSheetCommandService(cfg.WorkbookPath, cfg.DataSheet, summarizer, utils.GetLogger())

	// Extension-facing endpoints polled by the browser widget. These stay
	// unauthenticated, the widget has no credentials.
	statusHandler := handler.NewStatusHandler(statusStore)
	chatHandler := handler.NewChatHandler(summarizer, commands, statusStore, cfg)

	app.Get("/get_status", statusHandler.GetStatus)
	app.Post("/update_icon", statusHandler.UpdateStatus)
	app.Get("/get_latest_response", statusHandler.GetLatestResponse)
	app.Post("/get_response", chatHandler.GetResponse)
	app.Post("/send_to_chatbot", chatHandler.SendToChatbot)

	// Web routes (HTML)
	setupWebRoutes(app, cfg)

	// API routes (JSON)
	api := app.Group("/api/v1")
	SetupAPIRoutes(api, db, redis, cfg)
}

func setupWebRoutes(router fiber.Router, cfg *config.Config) {
	// Status dashboard, polls the same endpoints as the browser widget
	router.Get("/", func(c *fiber.Ctx) error {
		return c.Render("dashboard/index", fiber.Map{
			"Title": "Validation Status",
			"App":   cfg.AppName,
		})
	})
}
