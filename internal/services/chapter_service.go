package services

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/mata-s/novel-day/internal/database"
	"github.com/mata-s/novel-day/internal/models"
)

// ChapterService reads daily entries and stores generated chapters
type ChapterService struct {
	mongoDB *database.MongoDB
}

// NewChapterService creates a new chapter service
func NewChapterService(mongoDB *database.MongoDB) *ChapterService {
	return &ChapterService{mongoDB: mongoDB}
}

// ListDailyEntries returns the user's daily entries inside a period window,
// ordered by date then insertion time.
//
// Weekly windows are inclusive of EndKey (the Sunday); monthly windows treat
// EndKey as the exclusive next-month start.
func (s *ChapterService) ListDailyEntries(ctx context.Context, userID string, period models.Period) ([]models.SourceEntry, error) {
	dateRange := bson.M{"$gte": period.StartKey, "$lte": period.EndKey}
	if period.Kind == models.PeriodMonthly {
		dateRange = bson.M{"$gte": period.StartKey, "$lt": period.EndKey}
	}

	filter := bson.M{
		"userId":      userID,
		"chapterType": models.ChapterTypeDaily,
		"dateKey":     dateRange,
	}
	opts := options.Find().SetSort(bson.D{
		{Key: "dateKey", Value: 1},
		{Key: "createdAt", Value: 1},
	})

	cursor, err := s.mongoDB.Collection(database.CollectionEntries).Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list entries: %w", err)
	}
	defer cursor.Close(ctx)

	var entries []models.SourceEntry
	if err := cursor.All(ctx, &entries); err != nil {
		return nil, fmt.Errorf("failed to decode entries: %w", err)
	}

	return entries, nil
}

// ChapterExists reports whether a chapter already exists for the given period.
// This is the dedup gate for redelivered tasks.
func (s *ChapterService) ChapterExists(ctx context.Context, userID, chapterType, periodKey string) (bool, error) {
	filter := bson.M{
		"userId":      userID,
		"chapterType": chapterType,
		"periodKey":   periodKey,
	}

	err := s.mongoDB.Collection(database.CollectionEntries).
		FindOne(ctx, filter, options.FindOne().SetProjection(bson.M{"_id": 1})).
		Err()
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return false, nil
		}
		return false, fmt.Errorf("failed to check chapter: %w", err)
	}

	return true, nil
}

// CountChapters counts the user's chapters of one type, used to assign the
// next volume number.
func (s *ChapterService) CountChapters(ctx context.Context, userID, chapterType string) (int, error) {
	filter := bson.M{"userId": userID, "chapterType": chapterType}

	count, err := s.mongoDB.Collection(database.CollectionEntries).CountDocuments(ctx, filter)
	if err != nil {
		return 0, fmt.Errorf("failed to count chapters: %w", err)
	}

	return int(count), nil
}

// InsertChapter stores one generated chapter row
func (s *ChapterService) InsertChapter(ctx context.Context, row models.ChapterRow) error {
	if _, err := s.mongoDB.Collection(database.CollectionEntries).InsertOne(ctx, row); err != nil {
		return fmt.Errorf("failed to insert chapter: %w", err)
	}
	return nil
}

// EnsureIndexes creates the read-path indexes for the entries collection.
// The (userId, chapterType, periodKey) index is intentionally non-unique;
// dedup is the worker's existence check.
func (s *ChapterService) EnsureIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{Keys: bson.D{
			{Key: "userId", Value: 1},
			{Key: "chapterType", Value: 1},
			{Key: "dateKey", Value: 1},
		}},
		{Keys: bson.D{
			{Key: "userId", Value: 1},
			{Key: "chapterType", Value: 1},
			{Key: "periodKey", Value: 1},
		}},
	}

	_, err := s.mongoDB.Collection(database.CollectionEntries).Indexes().CreateMany(ctx, indexes)
	if err != nil {
		return fmt.Errorf("failed to create entries indexes: %w", err)
	}
	return nil
}
