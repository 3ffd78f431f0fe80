package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Chapter types stored in the entries collection. Daily entries are written by
// the diary capture flow; weekly and monthly chapters are written by the task
// worker.
const (
	ChapterTypeDaily   = "daily"
	ChapterTypeWeekly  = "weekly"
	ChapterTypeMonthly = "monthly"
)

// Style markers stamped onto generated chapter rows.
const (
	ChapterStyleWeekly  = "W"
	ChapterStyleMonthly = "M"
)

// SourceEntry is one daily diary fragment. Entries are immutable once written;
// the pipeline only ever reads them.
type SourceEntry struct {
	UserID    string    `bson:"userId" json:"userId"`
	DateKey   string    `bson:"dateKey" json:"dateKey"`
	Memo      string    `bson:"memo,omitempty" json:"memo,omitempty"`
	Body      string    `bson:"body,omitempty" json:"body,omitempty"`
	Style     string    `bson:"style,omitempty" json:"style,omitempty"`
	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
}

// ChapterRow is one generated weekly or monthly chapter. Rows are unique per
// (userId, chapterType, periodKey) — enforced by the worker's existence check,
// not by a storage constraint, so duplicates under concurrent redelivery are
// possible but accepted.
type ChapterRow struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	UserID      string             `bson:"userId" json:"userId"`
	ChapterType string             `bson:"chapterType" json:"chapterType"`
	PeriodKey   string             `bson:"periodKey" json:"periodKey"`
	Title       string             `bson:"title" json:"title"`
	Body        string             `bson:"body" json:"body"`
	Memo        string             `bson:"memo,omitempty" json:"memo,omitempty"`
	Style       string             `bson:"style,omitempty" json:"style,omitempty"`
	Volume      int                `bson:"volume,omitempty" json:"volume,omitempty"`
	CreatedAt   time.Time          `bson:"createdAt" json:"createdAt"`
}
