package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"sheetwatch/internal/config"
	"sheetwatch/internal/models"
	"sheetwatch/internal/repository"
	"sheetwatch/internal/service"
	"sheetwatch/internal/utils"

	"github.com/hibiken/asynq"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
)

// TaskValidationRun is the asynq task type for one validation pass.
const TaskValidationRun = "validation:run"

type ValidationTaskHandler struct {
	cfg        *config.Config
	runRepo    *repository.RunRepository
	store      *service.RedisStatusStore
	summarizer service.Summarizer
}

func NewValidationTaskHandler(db *sqlx.DB, redis *redis.Client, cfg *config.Config) *ValidationTaskHandler {
	summarizer, err := service.NewSummarizer(context.Background(), cfg)
	if err != nil {
		log.Printf("Warning: AI summarizer unavailable: %v", err)
		summarizer = nil
	}

	return &ValidationTaskHandler{
		cfg:        cfg,
		runRepo:    repository.NewRunRepository(db),
		store:      service.NewRedisStatusStore(redis),
		summarizer: summarizer,
	}
}

type ValidationTaskPayload struct {
	RunID   int    `json:"run_id"`
	RunCode string `json:"run_code"`
}

func (h *ValidationTaskHandler) Handle(ctx context.Context, task *asynq.Task) error {
	var payload ValidationTaskPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return fmt.Errorf("failed to unmarshal payload: %w", err)
	}

	log.Printf("Starting validation for run %s (ID: %d)", payload.RunCode, payload.RunID)

	run, err := h.runRepo.GetRunByID(payload.RunID)
	if err != nil {
		return fmt.Errorf("failed to get run: %w", err)
	}

	if run.Status == models.RunStatusCanceled {
		log.Printf("Run %s has been canceled, skipping", payload.RunCode)
		return nil
	}
	if run.Status == models.RunStatusCompleted || run.Status == models.RunStatusFailed {
		log.Printf("Run %s is already %s, skipping", payload.RunCode, run.Status)
		return nil
	}

	if err := h.runRepo.UpdateRunStatus(run.ID, models.RunStatusRunning); err != nil {
		log.Printf("Failed to update run status: %v", err)
	}

	// A validator is built fresh per pass, it re-reads the rule
	// declarations and starts with a clean error list.
	source := service.NewWorkbookSource(run.WorkbookPath)
	validator := service.NewValidator(
		source,
		h.summarizer,
		h.store,
		h.store,
		service.ValidatorConfig{
			RulesSheet: h.cfg.RulesSheet,
			DataSheet:  h.cfg.DataSheet,
			AITimeout:  h.cfg.AITimeout,
		},
		utils.GetLogger(),
	)

	errs, err := validator.Run(ctx)
	if err != nil {
		log.Printf("Validation run %s failed: %v", payload.RunCode, err)
		run.Status = models.RunStatusFailed
		if updateErr := h.runRepo.UpdateRun(run); updateErr != nil {
			log.Printf("Failed to update run status: %v", updateErr)
		}
		return fmt.Errorf("validation failed: %w", err)
	}

	if err := h.runRepo.BulkInsertErrors(run.ID, errs); err != nil {
		log.Printf("Warning: Failed to persist run errors: %v", err)
		// The pass itself succeeded, keep going
	}

	run.Status = models.RunStatusCompleted
	run.ErrorCount = len(errs)
	run.Summary = validator.Summary()
	run.Result = models.StatusSuccess
	if len(errs) > 0 {
		run.Result = models.StatusError
	}
	if err := h.runRepo.UpdateRun(run); err != nil {
		log.Printf("Failed to update run: %v", err)
	}

	log.Printf("Validation completed for run %s. Errors found: %d", payload.RunCode, len(errs))

	return nil
}
