package handlers

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/mata-s/novel-day/internal/database"
	"github.com/mata-s/novel-day/internal/services"
)

// ScheduleReporter exposes the next planned scheduler runs.
type ScheduleReporter interface {
	Status() map[string]string
}

// HealthHandler handles health check requests
type HealthHandler struct {
	mongoDB   *database.MongoDB
	redis     *services.RedisService
	scheduler ScheduleReporter
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(mongoDB *database.MongoDB, redis *services.RedisService, scheduler ScheduleReporter) *HealthHandler {
	return &HealthHandler{mongoDB: mongoDB, redis: redis, scheduler: scheduler}
}

// Handle responds with server health status
func (h *HealthHandler) Handle(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.Context(), 2*time.Second)
	defer cancel()

	status := "healthy"
	code := fiber.StatusOK

	mongoStatus := "up"
	if h.mongoDB != nil {
		if err := h.mongoDB.Ping(ctx); err != nil {
			mongoStatus = "down"
			status = "degraded"
			code = fiber.StatusServiceUnavailable
		}
	}

	redisStatus := "up"
	if h.redis != nil {
		if err := h.redis.Ping(ctx); err != nil {
			redisStatus = "down"
			status = "degraded"
			code = fiber.StatusServiceUnavailable
		}
	}

	resp := fiber.Map{
		"status":    status,
		"mongodb":   mongoStatus,
		"redis":     redisStatus,
		"timestamp": time.Now().Format(time.RFC3339),
	}
	if h.scheduler != nil {
		resp["schedules"] = h.scheduler.Status()
	}

	return c.Status(code).JSON(resp)
}
