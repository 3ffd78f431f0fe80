package handlers

import (
	"context"
	"errors"
	"log"

	"github.com/gofiber/fiber/v2"

	"github.com/mata-s/novel-day/internal/models"
	"github.com/mata-s/novel-day/internal/narrative"
)

// DailyGenerator turns one memo into a short daily chapter.
type DailyGenerator interface {
	GenerateDaily(ctx context.Context, memo, style string, persona models.Persona) (narrative.Chapter, error)
}

// NovelHandler handles on-demand generation requests
type NovelHandler struct {
	gen DailyGenerator
}

// NewNovelHandler creates a new novel handler
func NewNovelHandler(gen DailyGenerator) *NovelHandler {
	return &NovelHandler{gen: gen}
}

type dailyNovelRequest struct {
	Memo    string          `json:"memo"`
	Style   string          `json:"style"`
	Persona *models.Persona `json:"persona,omitempty"`
}

// Daily generates one chapter from a single memo
// POST /api/novels/daily
func (h *NovelHandler) Daily(c *fiber.Ctx) error {
	var req dailyNovelRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	persona := models.DefaultPersona()
	if req.Persona != nil {
		persona = *req.Persona
		if persona.FirstPerson == "" {
			persona.FirstPerson = models.DefaultFirstPerson
		}
	}

	chapter, err := h.gen.GenerateDaily(c.Context(), req.Memo, req.Style, persona)
	if err != nil {
		if errors.Is(err, narrative.ErrNoMemo) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "memo is required",
			})
		}
		log.Printf("❌ [NOVEL] daily generation failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error":  "generation failed",
			"detail": err.Error(),
		})
	}

	return c.JSON(fiber.Map{
		"title": chapter.Title,
		"body":  chapter.Body,
	})
}
