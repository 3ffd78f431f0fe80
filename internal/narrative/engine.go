package narrative

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/mata-s/novel-day/internal/models"
)

// CompletionClient is the outbound language-model collaborator. Implementations
// issue exactly one request and return the raw response text.
type CompletionClient interface {
	Complete(ctx context.Context, req CompletionRequest) (string, error)
}

// ErrNoEntries is returned when generation is attempted over an empty window.
var ErrNoEntries = errors.New("entries must be non-empty")

// ErrNoMemo is returned when the on-demand daily generation has no source memo.
var ErrNoMemo = errors.New("memo is required")

// Engine composes the prompt, issues one completion call and extracts the
// result. It performs no retries and persists nothing; transient completion
// failures surface to the caller.
type Engine struct {
	client CompletionClient
}

// NewEngine creates a generation engine over the given completion client.
func NewEngine(client CompletionClient) *Engine {
	return &Engine{client: client}
}

// GenerateChapter produces a weekly or monthly chapter from a window of daily
// entries.
func (e *Engine) GenerateChapter(ctx context.Context, entries []models.SourceEntry, persona models.Persona, kind models.PeriodKind) (Chapter, error) {
	if len(entries) == 0 {
		return Chapter{}, ErrNoEntries
	}

	style := DominantStyle(entries)
	req := ComposeChapterPrompt(entries, persona, style, kind)

	raw, err := e.client.Complete(ctx, req)
	if err != nil {
		return Chapter{}, fmt.Errorf("completion request: %w", err)
	}

	return ExtractChapter(kind, raw), nil
}

// GenerateDaily produces a single daily chapter from one memo and an explicit
// style tag.
func (e *Engine) GenerateDaily(ctx context.Context, memo, style string, persona models.Persona) (Chapter, error) {
	if strings.TrimSpace(memo) == "" {
		return Chapter{}, ErrNoMemo
	}
	if persona.FirstPerson == "" {
		persona.FirstPerson = models.DefaultFirstPerson
	}

	req := ComposeDailyPrompt(memo, style, persona)

	raw, err := e.client.Complete(ctx, req)
	if err != nil {
		return Chapter{}, fmt.Errorf("completion request: %w", err)
	}

	return ExtractChapter(models.PeriodDaily, raw), nil
}
