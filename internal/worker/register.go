package worker

import (
	"sheetwatch/internal/config"

	"github.com/hibiken/asynq"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
)

func RegisterHandlers(mux *asynq.ServeMux, db *sqlx.DB, redis *redis.Client, cfg *config.Config) {
	// Create validation task handler
	validationHandler := NewValidationTaskHandler(db, redis, cfg)

	// Register task handlers
	mux.HandleFunc(TaskValidationRun, validationHandler.Handle)
}
