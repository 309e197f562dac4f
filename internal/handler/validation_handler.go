package handler

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"strconv"
	"time"

	"sheetwatch/internal/config"
	"sheetwatch/internal/models"
	"sheetwatch/internal/repository"
	"sheetwatch/internal/service"
	"sheetwatch/internal/utils"
	"sheetwatch/internal/worker"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

type ValidationHandler struct {
	runRepo       *repository.RunRepository
	reportService *service.ReportService
	asynqClient   *asynq.Client
	cfg           *config.Config
}

func NewValidationHandler(
	runRepo *repository.RunRepository,
	reportService *service.ReportService,
	asynqClient *asynq.Client,
	cfg *config.Config,
) *ValidationHandler {
	return &ValidationHandler{
		runRepo:       runRepo,
		reportService: reportService,
		asynqClient:   asynqClient,
		cfg:           cfg,
	}
}

// StartRun records a queued run and enqueues the validation task for the
// worker.
func (h *ValidationHandler) StartRun(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(int)

	// Refuse before persisting anything, a queued run with no worker to
	// pick it up would sit orphaned forever.
	if h.asynqClient == nil {
		return utils.ErrorResponse(c, fiber.StatusServiceUnavailable,
			"Background job processing is not available (Redis not connected)", nil)
	}

	run := &models.ValidationRun{
		RunCode:      fmt.Sprintf("RUN-%s", uuid.New().String()[:8]),
		UserID:       userID,
		WorkbookPath: h.cfg.WorkbookPath,
		Status:       models.RunStatusQueued,
	}

	if err := h.runRepo.CreateRun(run); err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to create validation run", err)
	}

	payload, _ := json.Marshal(fiber.Map{
		"run_id":   run.ID,
		"run_code": run.RunCode,
	})

	task := asynq.NewTask(worker.TaskValidationRun, payload)
	info, err := h.asynqClient.Enqueue(task)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to queue validation task", err)
	}

	return utils.SuccessResponse(c, "Validation started", fiber.Map{
		"job_id": info.ID,
		"run":    run,
	})
}

func (h *ValidationHandler) GetRuns(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(int)
	role := c.Locals("role").(string)

	params := utils.GetPaginationParams(c)
	offset := utils.GetOffset(params.Page, params.Limit)

	// Admin can see all runs, user can only see their own
	filterUserID := 0
	if role != "admin" {
		filterUserID = userID
	}

	runs, total, err := h.runRepo.GetRuns(params.Limit, offset, filterUserID)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to retrieve runs", err)
	}

	pagination := utils.CalculatePagination(params.Page, params.Limit, int64(total))

	return utils.PaginatedResponseBuilder(c, "Runs retrieved successfully", fiber.Map{
		"runs": runs,
	}, pagination)
}

func (h *ValidationHandler) GetRunDetail(c *fiber.Ctx) error {
	id, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid run ID", err)
	}

	run, err := h.runRepo.GetRunByID(id)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusNotFound, "Run not found", err)
	}

	return utils.SuccessResponse(c, "Run retrieved successfully", run)
}

func (h *ValidationHandler) GetRunErrors(c *fiber.Ctx) error {
	id, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid run ID", err)
	}

	params := utils.GetPaginationParams(c)
	offset := utils.GetOffset(params.Page, params.Limit)

	errs, total, err := h.runRepo.GetErrorsByRun(id, params.Limit, offset)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to retrieve run errors", err)
	}

	pagination := utils.CalculatePagination(params.Page, params.Limit, int64(total))

	return utils.PaginatedResponseBuilder(c, "Run errors retrieved successfully", fiber.Map{
		"errors": errs,
	}, pagination)
}

// ExportRun downloads the error records of a run as an Excel report.
func (h *ValidationHandler) ExportRun(c *fiber.Ctx) error {
	id, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid run ID", err)
	}

	run, err := h.runRepo.GetRunByID(id)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusNotFound, "Run not found", err)
	}

	errs, err := h.runRepo.GetAllErrorsByRun(id)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to retrieve run errors", err)
	}

	exportFileName := fmt.Sprintf("errors_%s_%s.xlsx", run.RunCode, time.Now().Format("20060102_150405"))
	exportPath := filepath.Join(h.cfg.ExportPath, exportFileName)

	if err := h.reportService.ExportRunErrors(run, errs, exportPath); err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to export report", err)
	}

	return c.Download(exportPath, exportFileName)
}
