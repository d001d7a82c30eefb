package repository

import (
	"context"
	"time"

	"github.com/eslsoft/flashdeck/internal/entity"
)

// ListWordQuery holds parameters for paging through a wordset's words.
type ListWordQuery struct {
	Pagination

	WordsetID int64
}

// CatalogRepository persists categories and words of a wordset.
type CatalogRepository interface {
	UpsertCategories(ctx context.Context, wordsetID int64, categories []entity.Category) error
	UpsertWords(ctx context.Context, wordsetID int64, words []entity.Word) error
	ListCategories(ctx context.Context, wordsetID int64) ([]entity.Category, error)
	ListWordsByCategories(ctx context.Context, wordsetID int64, categoryIDs []int64) (map[int64][]entity.Word, error)
	ListWords(ctx context.Context, query *ListWordQuery) ([]entity.Word, int64, error)
	GetWordsByIDs(ctx context.Context, wordsetID int64, ids []int64) ([]entity.Word, error)
}

// LearnerRepository persists per-wordset learner state.
type LearnerRepository interface {
	GetUserState(ctx context.Context, wordsetID int64) (entity.UserState, error)
	SaveUserState(ctx context.Context, wordsetID int64, state entity.UserState) error
	GetGoals(ctx context.Context, wordsetID int64) (entity.Goals, error)
	SaveGoals(ctx context.Context, wordsetID int64, goals entity.Goals) error
	ListDismissedActivities(ctx context.Context, wordsetID int64) ([]string, error)
	DismissActivity(ctx context.Context, wordsetID int64, queueID string) error
	AppendOutcomes(ctx context.Context, wordsetID int64, outcomes []entity.WordOutcome) error
	ListOutcomesSince(ctx context.Context, wordsetID int64, since time.Time) ([]entity.WordOutcome, error)
}
