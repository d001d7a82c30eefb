package repository

import (
	"context"

	"github.com/eslsoft/flashdeck/internal/entity"
)

// RecommendationQuery holds parameters for a recommendation fetch.
type RecommendationQuery struct {
	WordsetID     int64
	CategoryIDs   []int64
	PreferredMode entity.Mode
	ForceRefresh  bool
}

// StateResult is returned after a user state save.
type StateResult struct {
	State entity.UserState
	entity.RecommendationResult
}

// GoalsResult is returned after a goals save.
type GoalsResult struct {
	Goals entity.Goals
	entity.RecommendationResult
}

// StudyBackend is the remote study service the orchestrator talks to.
// Implementations must be safe for concurrent use.
type StudyBackend interface {
	FetchCategories(ctx context.Context, wordsetID int64) ([]entity.Category, error)
	FetchWordsByCategories(ctx context.Context, wordsetID int64, categoryIDs []int64) (map[int64][]entity.Word, error)
	FetchRecommendation(ctx context.Context, query RecommendationQuery) (entity.RecommendationResult, error)
	SaveUserState(ctx context.Context, wordsetID int64, state entity.UserState) (StateResult, error)
	SaveGoals(ctx context.Context, wordsetID int64, categoryIDs []int64, goals entity.Goals) (GoalsResult, error)
	FetchAnalytics(ctx context.Context, wordsetID int64, categoryIDs []int64, windowDays int) (entity.Analytics, error)
	RemoveQueueActivity(ctx context.Context, wordsetID int64, queueID string) (entity.RecommendationResult, error)
	RecordWordOutcomes(ctx context.Context, wordsetID int64, outcomes []entity.WordOutcome) error
}
