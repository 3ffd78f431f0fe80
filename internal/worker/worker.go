package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/mata-s/novel-day/internal/logging"
	"github.com/mata-s/novel-day/internal/models"
	"github.com/mata-s/novel-day/internal/narrative"
	"github.com/mata-s/novel-day/internal/services"
)

// EntryStore is the storage surface the worker reads and writes.
type EntryStore interface {
	ListDailyEntries(ctx context.Context, userID string, period models.Period) ([]models.SourceEntry, error)
	ChapterExists(ctx context.Context, userID, chapterType, periodKey string) (bool, error)
	CountChapters(ctx context.Context, userID, chapterType string) (int, error)
	InsertChapter(ctx context.Context, row models.ChapterRow) error
}

// PersonaStore resolves a user's narrative persona.
type PersonaStore interface {
	Persona(ctx context.Context, userID string) (models.Persona, error)
}

// Generator produces chapters from daily entries.
type Generator interface {
	GenerateChapter(ctx context.Context, entries []models.SourceEntry, persona models.Persona, kind models.PeriodKind) (narrative.Chapter, error)
}

// Terminal statuses of one worker run. Every status is a success from the
// queue's point of view; the task must not be redelivered.
const (
	StatusOK             = "ok"
	StatusSkippedNoDaily = "skipped_no_daily"
	StatusSkippedExists  = "skipped_already_exists"
)

// Result is the outcome of one generation task.
type Result struct {
	Status string `json:"status"`
}

// StageError tags an upstream failure with the pipeline stage that hit it.
// Stage errors are retryable; the queue redelivers the task.
type StageError struct {
	Tag string
	Err error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Tag, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// Worker runs one chapter generation task end to end.
type Worker struct {
	entries  EntryStore
	personas PersonaStore
	gen      Generator
}

// New creates a worker over the given collaborators.
func New(entries EntryStore, personas PersonaStore, gen Generator) *Worker {
	return &Worker{entries: entries, personas: personas, gen: gen}
}

// Run executes one task. Invalid payloads return models.ErrInvalidPayload;
// upstream failures return a *StageError; everything else is a terminal
// Result.
func (w *Worker) Run(ctx context.Context, payload models.TaskPayload) (Result, error) {
	if err := payload.Validate(); err != nil {
		return Result{}, err
	}

	period := payload.Period
	logger := logging.WithTask(payload.UserID, string(period.Kind), period.Key)

	entries, err := w.entries.ListDailyEntries(ctx, payload.UserID, period)
	if err != nil {
		return Result{}, &StageError{Tag: stageTag(period.Kind, "daily fetch error"), Err: err}
	}
	if len(entries) == 0 {
		logger.Info("no daily entries in window, skipping")
		services.RecordWorkerSkip(StatusSkippedNoDaily)
		return Result{Status: StatusSkippedNoDaily}, nil
	}

	chapterType := period.Kind.ChapterType()
	exists, err := w.entries.ChapterExists(ctx, payload.UserID, chapterType, period.Key)
	if err != nil {
		return Result{}, &StageError{Tag: stageTag(period.Kind, "exists check error"), Err: err}
	}
	if exists {
		logger.Info("chapter already exists, skipping")
		services.RecordWorkerSkip(StatusSkippedExists)
		return Result{Status: StatusSkippedExists}, nil
	}

	// Persona resolution is best effort; generation proceeds with the
	// default voice when the profile cannot be loaded.
	persona, err := w.personas.Persona(ctx, payload.UserID)
	if err != nil {
		logger.Warn("persona lookup failed, using default", "error", err)
		persona = models.DefaultPersona()
	}

	volume := 0
	if period.Kind == models.PeriodWeekly {
		count, err := w.entries.CountChapters(ctx, payload.UserID, chapterType)
		if err != nil {
			return Result{}, &StageError{Tag: "weekly list error", Err: err}
		}
		volume = count + 1
	}

	start := time.Now()
	chapter, err := w.gen.GenerateChapter(ctx, entries, persona, period.Kind)
	if err != nil {
		return Result{}, &StageError{Tag: stageTag(period.Kind, "generate error"), Err: err}
	}
	services.ObserveGeneration(chapterType, start)

	row := buildRow(payload.UserID, period, chapter, volume)
	if err := w.entries.InsertChapter(ctx, row); err != nil {
		return Result{}, &StageError{Tag: insertTag(period.Kind), Err: err}
	}

	services.RecordChapterGenerated(chapterType)
	logger.Info("chapter stored", "title", row.Title, "volume", row.Volume)

	return Result{Status: StatusOK}, nil
}

// buildRow assembles the stored chapter row. Weekly chapters carry a fixed
// volume-numbered title; monthly chapters keep the generated title and label
// the memo after the month.
func buildRow(userID string, period models.Period, chapter narrative.Chapter, volume int) models.ChapterRow {
	row := models.ChapterRow{
		UserID:      userID,
		ChapterType: period.Kind.ChapterType(),
		PeriodKey:   period.Key,
		Body:        chapter.Body,
		CreatedAt:   time.Now().UTC(),
	}

	switch period.Kind {
	case models.PeriodWeekly:
		row.Title = fmt.Sprintf("第%d週 まとめ章 第%d巻", period.WeekOfMonth, volume)
		row.Memo = fmt.Sprintf("第%d週 まとめ章", period.WeekOfMonth)
		row.Style = models.ChapterStyleWeekly
		row.Volume = volume
	case models.PeriodMonthly:
		row.Title = chapter.Title
		if period.Label != "" {
			row.Memo = period.Label + "の短編"
		} else {
			row.Memo = "今月の短編"
		}
		row.Style = models.ChapterStyleMonthly
	}

	return row
}

func stageTag(kind models.PeriodKind, suffix string) string {
	if kind == models.PeriodMonthly {
		return "monthly " + suffix
	}
	// the weekly fetch stage keeps its unprefixed name
	if suffix == "daily fetch error" {
		return suffix
	}
	return "weekly " + suffix
}

func insertTag(kind models.PeriodKind) string {
	if kind == models.PeriodMonthly {
		return "insert monthly error"
	}
	return "insert weekly error"
}
