package models

import (
	"errors"
	"fmt"
)

// PeriodKind selects which calendar window a generation run covers.
type PeriodKind string

const (
	PeriodDaily   PeriodKind = "daily"
	PeriodWeekly  PeriodKind = "weekly"
	PeriodMonthly PeriodKind = "monthly"
)

// ChapterType maps a period kind to the chapter type tag stored on rows.
func (k PeriodKind) ChapterType() string {
	switch k {
	case PeriodWeekly:
		return ChapterTypeWeekly
	case PeriodMonthly:
		return ChapterTypeMonthly
	default:
		return ChapterTypeDaily
	}
}

// Period is a bounded calendar window identified by a stable key.
//
// For weekly periods EndKey is the inclusive Sunday date key; for monthly
// periods EndKey is the exclusive next-month-start key. Key is the dedup key
// (week start or month start).
type Period struct {
	Kind        PeriodKind `json:"kind"`
	StartKey    string     `json:"startKey"`
	EndKey      string     `json:"endKey"`
	Key         string     `json:"periodKey"`
	WeekOfMonth int        `json:"weekOfMonth,omitempty"`
	Label       string     `json:"label,omitempty"`
}

// TaskPayload is the body of one queue task: generate one chapter for one user
// and one period. Redelivery of the same payload must not duplicate output;
// the worker's existence check guarantees that.
type TaskPayload struct {
	UserID string `json:"userId"`
	Period Period `json:"period"`
}

// ErrInvalidPayload marks payload validation failures. These are client errors
// and must not be retried by the queue.
var ErrInvalidPayload = errors.New("invalid payload")

// Validate checks that every field the worker depends on is present.
func (t *TaskPayload) Validate() error {
	if t.UserID == "" {
		return fmt.Errorf("%w: missing userId", ErrInvalidPayload)
	}
	switch t.Period.Kind {
	case PeriodWeekly, PeriodMonthly:
	default:
		return fmt.Errorf("%w: unknown period kind %q", ErrInvalidPayload, t.Period.Kind)
	}
	if t.Period.StartKey == "" || t.Period.EndKey == "" || t.Period.Key == "" {
		return fmt.Errorf("%w: missing period keys", ErrInvalidPayload)
	}
	if t.Period.Kind == PeriodWeekly && t.Period.WeekOfMonth < 1 {
		return fmt.Errorf("%w: missing weekOfMonth", ErrInvalidPayload)
	}
	return nil
}
