package router

import (
	"sheetwatch/internal/config"
	"sheetwatch/internal/handler"
	"sheetwatch/internal/middleware"
	"sheetwatch/internal/repository"
	"sheetwatch/internal/service"
	"sheetwatch/internal/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/hibiken/asynq"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
)

func SetupAPIRoutes(
	router fiber.Router,
	db *sqlx.DB,
	redis *redis.Client,
	cfg *config.Config,
) {
	// Auth and run history need the database, without it the whole API
	// surface answers 503 instead of panicking on a nil connection.
	if db == nil {
		router.Use(func(c *fiber.Ctx) error {
			return utils.ErrorResponse(c, fiber.StatusServiceUnavailable,
				"Database is not available", nil)
		})
		return
	}

	// Initialize repositories
	userRepo := repository.NewUserRepository(db)
	runRepo := repository.NewRunRepository(db)

	// Initialize services
	authService := service.NewAuthService(userRepo, cfg)
	reportService := service.NewReportService()

	// Initialize Asynq client (optional - only if Redis is available)
	var asynqClient *asynq.Client
	if redis != nil {
		asynqClient = asynq.NewClient(asynq.RedisClientOpt{
			Addr:     cfg.AsynqRedisAddr,
			Password: cfg.AsynqRedisPassword,
			DB:       cfg.AsynqRedisDB,
		})
	}

	// Initialize handlers
	authHandler := handler.NewAuthHandler(authService)
	validationHandler := handler.NewValidationHandler(runRepo, reportService, asynqClient, cfg)

	// Public routes
	auth := router.Group("/auth")
	auth.Post("/login", authHandler.Login)
	auth.Post("/register", authHandler.Register)
	auth.Post("/logout", authHandler.Logout)

	// Protected routes
	protected := router.Group("", middleware.AuthMiddleware(cfg))
	protected.Get("/auth/me", authHandler.Me)

	validations := protected.Group("/validations")
	validations.Post("/", validationHandler.StartRun)
	validations.Get("/", validationHandler.GetRuns)
	validations.Get("/:id", validationHandler.GetRunDetail)
	validations.Get("/:id/errors", validationHandler.GetRunErrors)
	validations.Get("/:id/export", validationHandler.ExportRun)
}
