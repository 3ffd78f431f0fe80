package handlers

import (
	"context"
	"errors"
	"log"

	"github.com/gofiber/fiber/v2"

	"github.com/mata-s/novel-day/internal/models"
	"github.com/mata-s/novel-day/internal/worker"
)

// TaskRunner executes one chapter generation task.
type TaskRunner interface {
	Run(ctx context.Context, payload models.TaskPayload) (worker.Result, error)
}

// TaskHandler receives queue task invocations
type TaskHandler struct {
	runner TaskRunner
}

// NewTaskHandler creates a new task handler
func NewTaskHandler(runner TaskRunner) *TaskHandler {
	return &TaskHandler{runner: runner}
}

// Weekly handles weekly chapter tasks
// POST /tasks/weekly
func (h *TaskHandler) Weekly(c *fiber.Ctx) error {
	return h.handle(c, models.PeriodWeekly)
}

// Monthly handles monthly chapter tasks
// POST /tasks/monthly
func (h *TaskHandler) Monthly(c *fiber.Ctx) error {
	return h.handle(c, models.PeriodMonthly)
}

func (h *TaskHandler) handle(c *fiber.Ctx, kind models.PeriodKind) error {
	var payload models.TaskPayload
	if err := c.BodyParser(&payload); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	// The route names the kind. A payload enqueued for the wrong queue
	// carries a window of the other shape; reinterpreting it would persist
	// a wrong row, so it fails loudly instead.
	if payload.Period.Kind == "" {
		payload.Period.Kind = kind
	} else if payload.Period.Kind != kind {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "period kind mismatch",
		})
	}

	result, err := h.runner.Run(c.Context(), payload)
	if err != nil {
		if errors.Is(err, models.ErrInvalidPayload) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": err.Error(),
			})
		}

		var stageErr *worker.StageError
		if errors.As(err, &stageErr) {
			log.Printf("❌ [TASK] %s (user: %s, period: %s): %v", stageErr.Tag, payload.UserID, payload.Period.Key, stageErr.Err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error":  stageErr.Tag,
				"detail": stageErr.Err.Error(),
			})
		}

		log.Printf("❌ [TASK] unexpected error (user: %s): %v", payload.UserID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "unexpected error",
		})
	}

	return c.JSON(fiber.Map{
		"status": result.Status,
	})
}
