package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/eslsoft/flashdeck/internal/entity"
	"github.com/eslsoft/flashdeck/internal/repository"
)

// LocalBackend serves the study backend contract from local repositories.
type LocalBackend struct {
	catalog       repository.CatalogRepository
	learner       repository.LearnerRepository
	recommender   *Recommender
	hardThreshold float64
	logger        logrus.FieldLogger
	now           func() time.Time
}

var _ repository.StudyBackend = (*LocalBackend)(nil)

// NewLocalBackend wires a backend over catalog and learner storage.
func NewLocalBackend(catalog repository.CatalogRepository, learner repository.LearnerRepository, hardThreshold float64, logger logrus.FieldLogger) *LocalBackend {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &LocalBackend{
		catalog:       catalog,
		learner:       learner,
		recommender:   NewRecommender(hardThreshold),
		hardThreshold: hardThreshold,
		logger:        logger,
		now:           time.Now,
	}
}

func (b *LocalBackend) FetchCategories(ctx context.Context, wordsetID int64) ([]entity.Category, error) {
	if wordsetID <= 0 {
		return nil, entity.ErrInvalidWordsetID
	}
	return b.catalog.ListCategories(ctx, wordsetID)
}

func (b *LocalBackend) FetchWordsByCategories(ctx context.Context, wordsetID int64, categoryIDs []int64) (map[int64][]entity.Word, error) {
	if wordsetID <= 0 {
		return nil, entity.ErrInvalidWordsetID
	}
	ids := entity.NormalizeIDs(categoryIDs)
	if len(ids) == 0 {
		return map[int64][]entity.Word{}, nil
	}
	state, err := b.learner.GetUserState(ctx, wordsetID)
	if err != nil {
		return nil, err
	}
	byCat, err := b.catalog.ListWordsByCategories(ctx, wordsetID, ids)
	if err != nil {
		return nil, err
	}
	markStarred(byCat, state.StarredWordIDs)
	return byCat, nil
}

func (b *LocalBackend) FetchRecommendation(ctx context.Context, query repository.RecommendationQuery) (entity.RecommendationResult, error) {
	if query.WordsetID <= 0 {
		return entity.RecommendationResult{}, entity.ErrInvalidWordsetID
	}
	return b.recommend(ctx, query.WordsetID, query.CategoryIDs, query.PreferredMode)
}

func (b *LocalBackend) SaveUserState(ctx context.Context, wordsetID int64, state entity.UserState) (repository.StateResult, error) {
	if wordsetID <= 0 {
		return repository.StateResult{}, entity.ErrInvalidWordsetID
	}
	state = state.Clone()
	state.CategoryIDs = entity.NormalizeIDs(state.CategoryIDs)
	state.StarredWordIDs = entity.NormalizeIDs(state.StarredWordIDs)
	state.StarMode = entity.ParseStarMode(string(state.StarMode))
	if err := b.learner.SaveUserState(ctx, wordsetID, state); err != nil {
		return repository.StateResult{}, err
	}
	rec, err := b.recommend(ctx, wordsetID, state.CategoryIDs, entity.ModeUnspecified)
	if err != nil {
		return repository.StateResult{}, err
	}
	return repository.StateResult{State: state, RecommendationResult: rec}, nil
}

func (b *LocalBackend) SaveGoals(ctx context.Context, wordsetID int64, categoryIDs []int64, goals entity.Goals) (repository.GoalsResult, error) {
	if wordsetID <= 0 {
		return repository.GoalsResult{}, entity.ErrInvalidWordsetID
	}
	goals = goals.Clone()
	goals.Normalize()
	if err := b.learner.SaveGoals(ctx, wordsetID, goals); err != nil {
		return repository.GoalsResult{}, err
	}
	rec, err := b.recommend(ctx, wordsetID, categoryIDs, entity.ModeUnspecified)
	if err != nil {
		return repository.GoalsResult{}, err
	}
	return repository.GoalsResult{Goals: goals, RecommendationResult: rec}, nil
}

func (b *LocalBackend) FetchAnalytics(ctx context.Context, wordsetID int64, categoryIDs []int64, windowDays int) (entity.Analytics, error) {
	if wordsetID <= 0 {
		return entity.Analytics{}, entity.ErrInvalidWordsetID
	}
	cats, err := b.scopedCategories(ctx, wordsetID, categoryIDs)
	if err != nil {
		return entity.Analytics{}, err
	}
	state, err := b.learner.GetUserState(ctx, wordsetID)
	if err != nil {
		return entity.Analytics{}, err
	}
	words, err := b.catalog.ListWordsByCategories(ctx, wordsetID, categoryIDsOf(cats))
	if err != nil {
		return entity.Analytics{}, err
	}
	now := b.now()
	outcomes, err := b.learner.ListOutcomesSince(ctx, wordsetID, AnalyticsWindowStart(now, windowDays))
	if err != nil {
		return entity.Analytics{}, err
	}
	return BuildAnalytics(AnalyticsInput{
		Categories:    cats,
		Words:         words,
		StarredIDs:    state.StarredWordIDs,
		Outcomes:      outcomes,
		WindowDays:    windowDays,
		Now:           now,
		HardThreshold: b.hardThreshold,
	})
}

func (b *LocalBackend) RemoveQueueActivity(ctx context.Context, wordsetID int64, queueID string) (entity.RecommendationResult, error) {
	if wordsetID <= 0 {
		return entity.RecommendationResult{}, entity.ErrInvalidWordsetID
	}
	if queueID = strings.TrimSpace(queueID); queueID != "" {
		if err := b.learner.DismissActivity(ctx, wordsetID, queueID); err != nil {
			return entity.RecommendationResult{}, err
		}
	}
	state, err := b.learner.GetUserState(ctx, wordsetID)
	if err != nil {
		return entity.RecommendationResult{}, err
	}
	return b.recommend(ctx, wordsetID, state.CategoryIDs, entity.ModeUnspecified)
}

// RecordWordOutcomes folds outcomes into word progress in answer order and
// appends them to the activity log.
func (b *LocalBackend) RecordWordOutcomes(ctx context.Context, wordsetID int64, outcomes []entity.WordOutcome) error {
	if wordsetID <= 0 {
		return entity.ErrInvalidWordsetID
	}
	if len(outcomes) == 0 {
		return nil
	}
	now := b.now()
	ids := make([]int64, 0, len(outcomes))
	valid := make([]entity.WordOutcome, 0, len(outcomes))
	for _, o := range outcomes {
		if o.WordID <= 0 {
			continue
		}
		if o.AnsweredAt.IsZero() {
			o.AnsweredAt = now
		}
		o.Mode = entity.ParseMode(string(o.Mode))
		ids = append(ids, o.WordID)
		valid = append(valid, o)
	}
	words, err := b.catalog.GetWordsByIDs(ctx, wordsetID, entity.NormalizeIDs(ids))
	if err != nil {
		return err
	}
	byID := make(map[int64]*entity.Word, len(words))
	for i := range words {
		byID[words[i].ID] = &words[i]
	}
	known := valid[:0]
	for _, o := range valid {
		w, ok := byID[o.WordID]
		if !ok {
			b.logger.WithField("word_id", o.WordID).Debug("outcome for unknown word ignored")
			continue
		}
		w.ApplyOutcome(o)
		known = append(known, o)
	}
	if len(known) == 0 {
		return nil
	}
	if err := b.catalog.UpsertWords(ctx, wordsetID, words); err != nil {
		return fmt.Errorf("update word progress: %w", err)
	}
	return b.learner.AppendOutcomes(ctx, wordsetID, known)
}

func (b *LocalBackend) recommend(ctx context.Context, wordsetID int64, categoryIDs []int64, preferred entity.Mode) (entity.RecommendationResult, error) {
	state, err := b.learner.GetUserState(ctx, wordsetID)
	if err != nil {
		return entity.RecommendationResult{}, err
	}
	goals, err := b.learner.GetGoals(ctx, wordsetID)
	if err != nil {
		return entity.RecommendationResult{}, err
	}
	dismissed, err := b.learner.ListDismissedActivities(ctx, wordsetID)
	if err != nil {
		return entity.RecommendationResult{}, err
	}
	if len(entity.NormalizeIDs(categoryIDs)) == 0 {
		categoryIDs = state.CategoryIDs
	}
	cats, err := b.scopedCategories(ctx, wordsetID, categoryIDs)
	if err != nil {
		return entity.RecommendationResult{}, err
	}
	words, err := b.catalog.ListWordsByCategories(ctx, wordsetID, categoryIDsOf(cats))
	if err != nil {
		return entity.RecommendationResult{}, err
	}
	today := AnalyticsWindowStart(b.now(), 1)
	outcomes, err := b.learner.ListOutcomesSince(ctx, wordsetID, today)
	if err != nil {
		return entity.RecommendationResult{}, err
	}
	learnedToday := map[int64]struct{}{}
	for _, o := range outcomes {
		if o.Mode == entity.ModeLearning {
			learnedToday[o.WordID] = struct{}{}
		}
	}
	return b.recommender.Recommend(RecommendInput{
		Categories:    cats,
		Words:         words,
		State:         state,
		Goals:         goals,
		Dismissed:     dismissed,
		PreferredMode: entity.ParseMode(string(preferred)),
		NewWordsToday: len(learnedToday),
	}), nil
}

// scopedCategories returns the visible categories among ids, or every
// visible category when ids is empty.
func (b *LocalBackend) scopedCategories(ctx context.Context, wordsetID int64, ids []int64) ([]entity.Category, error) {
	all, err := b.catalog.ListCategories(ctx, wordsetID)
	if err != nil {
		return nil, err
	}
	wanted := entity.NormalizeIDs(ids)
	byID := make(map[int64]entity.Category, len(all))
	visible := make([]entity.Category, 0, len(all))
	for _, c := range all {
		if c.Hidden {
			continue
		}
		byID[c.ID] = c
		visible = append(visible, c)
	}
	if len(wanted) == 0 {
		return visible, nil
	}
	out := make([]entity.Category, 0, len(wanted))
	for _, id := range wanted {
		if c, ok := byID[id]; ok {
			out = append(out, c)
		}
	}
	return out, nil
}

func categoryIDsOf(cats []entity.Category) []int64 {
	ids := make([]int64, len(cats))
	for i, c := range cats {
		ids[i] = c.ID
	}
	return ids
}

func markStarred(byCat map[int64][]entity.Word, starredIDs []int64) {
	starred := entity.IDSet(starredIDs)
	for _, words := range byCat {
		for i := range words {
			if _, ok := starred[words[i].ID]; ok {
				words[i].IsStarred = true
			}
		}
	}
}
