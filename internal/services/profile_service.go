package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	cache "github.com/patrickmn/go-cache"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/mata-s/novel-day/internal/database"
	"github.com/mata-s/novel-day/internal/models"
)

// ProfileService reads user profiles and derives narrative personas
type ProfileService struct {
	mongoDB      *database.MongoDB
	personaCache *cache.Cache
}

// NewProfileService creates a new profile service
func NewProfileService(mongoDB *database.MongoDB) *ProfileService {
	return &ProfileService{
		mongoDB:      mongoDB,
		personaCache: cache.New(5*time.Minute, 10*time.Minute),
	}
}

// ListAutoGenerate returns the IDs of premium users who opted into automatic
// generation for the given period kind.
func (s *ProfileService) ListAutoGenerate(ctx context.Context, kind models.PeriodKind) ([]string, error) {
	flag := "autoWeeklyNovel"
	if kind == models.PeriodMonthly {
		flag = "autoMonthlyNovel"
	}

	filter := bson.M{"isPremium": true, flag: true}
	opts := options.Find().SetProjection(bson.M{"_id": 1})

	cursor, err := s.mongoDB.Collection(database.CollectionProfiles).Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list profiles: %w", err)
	}
	defer cursor.Close(ctx)

	var ids []string
	for cursor.Next(ctx) {
		var row struct {
			ID string `bson:"_id"`
		}
		if err := cursor.Decode(&row); err != nil {
			return nil, fmt.Errorf("failed to decode profile: %w", err)
		}
		ids = append(ids, row.ID)
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("profile cursor error: %w", err)
	}

	return ids, nil
}

// Persona returns the narrative persona for a user. A missing profile is not
// an error; the default persona applies. Results are cached briefly since the
// scheduler fans out many tasks for the same window.
func (s *ProfileService) Persona(ctx context.Context, userID string) (models.Persona, error) {
	if cached, found := s.personaCache.Get(userID); found {
		return cached.(models.Persona), nil
	}

	var profile models.Profile
	err := s.mongoDB.Collection(database.CollectionProfiles).
		FindOne(ctx, bson.M{"_id": userID}).
		Decode(&profile)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return models.DefaultPersona(), nil
		}
		return models.Persona{}, fmt.Errorf("failed to load profile: %w", err)
	}

	persona := profile.Persona()
	s.personaCache.Set(userID, persona, cache.DefaultExpiration)
	return persona, nil
}
