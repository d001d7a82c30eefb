package usecase

import (
	"context"
	"errors"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/eslsoft/flashdeck/internal/entity"
	"github.com/eslsoft/flashdeck/internal/repository"
)

var errBackendDown = errors.New("backend down")

func noShuffle([]int64) {}

// fakeBackend is an in-memory StudyBackend with call accounting.
type fakeBackend struct {
	mu sync.Mutex

	categories  []entity.Category
	words       map[int64][]entity.Word
	wordFetches map[int64]int
	wordGate    chan struct{}

	recommendation entity.RecommendationResult
	recErr         error
	recCalls       int
	recFn          func(ctx context.Context) (entity.RecommendationResult, error)

	saveGoalsErr error
	savedGoals   []entity.Goals
	savedStates  []entity.UserState

	analyticsFn func(ctx context.Context, windowDays int) (entity.Analytics, error)

	removed  []string
	outcomes []entity.WordOutcome
}

func newFakeBackend(categories []entity.Category, words map[int64][]entity.Word) *fakeBackend {
	return &fakeBackend{categories: categories, words: words, wordFetches: map[int64]int{}}
}

func (f *fakeBackend) FetchCategories(context.Context, int64) ([]entity.Category, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]entity.Category(nil), f.categories...), nil
}

func (f *fakeBackend) FetchWordsByCategories(ctx context.Context, _ int64, ids []int64) (map[int64][]entity.Word, error) {
	f.mu.Lock()
	gate := f.wordGate
	for _, id := range ids {
		f.wordFetches[id]++
	}
	f.mu.Unlock()
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[int64][]entity.Word, len(ids))
	for _, id := range ids {
		out[id] = append([]entity.Word(nil), f.words[id]...)
	}
	return out, nil
}

func (f *fakeBackend) FetchRecommendation(ctx context.Context, _ repository.RecommendationQuery) (entity.RecommendationResult, error) {
	f.mu.Lock()
	f.recCalls++
	fn := f.recFn
	f.mu.Unlock()
	if fn != nil {
		return fn(ctx)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.recErr != nil {
		return entity.RecommendationResult{}, f.recErr
	}
	return f.recommendation, nil
}

func (f *fakeBackend) SaveUserState(_ context.Context, _ int64, state entity.UserState) (repository.StateResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.savedStates = append(f.savedStates, state.Clone())
	return repository.StateResult{State: state}, nil
}

func (f *fakeBackend) SaveGoals(_ context.Context, _ int64, _ []int64, goals entity.Goals) (repository.GoalsResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.saveGoalsErr != nil {
		return repository.GoalsResult{}, f.saveGoalsErr
	}
	f.savedGoals = append(f.savedGoals, goals.Clone())
	return repository.GoalsResult{Goals: goals, RecommendationResult: f.recommendation}, nil
}

func (f *fakeBackend) FetchAnalytics(ctx context.Context, _ int64, _ []int64, windowDays int) (entity.Analytics, error) {
	f.mu.Lock()
	fn := f.analyticsFn
	f.mu.Unlock()
	if fn == nil {
		return entity.Analytics{WindowDays: windowDays}, nil
	}
	return fn(ctx, windowDays)
}

func (f *fakeBackend) RemoveQueueActivity(_ context.Context, _ int64, queueID string) (entity.RecommendationResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.removed = append(f.removed, queueID)
	return f.recommendation, nil
}

func (f *fakeBackend) RecordWordOutcomes(_ context.Context, _ int64, outcomes []entity.WordOutcome) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.outcomes = append(f.outcomes, outcomes...)
	return nil
}

func (f *fakeBackend) fetchCount(categoryID int64) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.wordFetches[categoryID]
}

// recordingNotifier captures notices.
type recordingNotifier struct {
	mu      sync.Mutex
	notices []NoticeKind
}

func (n *recordingNotifier) NotifyError(kind NoticeKind, _ string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.notices = append(n.notices, kind)
}

func (n *recordingNotifier) kinds() []NoticeKind {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]NoticeKind(nil), n.notices...)
}

// makeWords builds count words with ids starting at first.
func makeWords(categoryID, first int64, count int) []entity.Word {
	words := make([]entity.Word, count)
	for i := range words {
		id := first + int64(i)
		words[i] = entity.Word{ID: id, Title: "w" + strconv.FormatInt(id, 10), CategoryIDs: []int64{categoryID}}
	}
	return words
}

func wordIDs(words []entity.Word) []int64 {
	ids := make([]int64, len(words))
	for i, w := range words {
		ids[i] = w.ID
	}
	return ids
}

func sortedCopy(ids []int64) []int64 {
	out := append([]int64(nil), ids...)
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func equalIDs(a, b []int64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// memCatalogRepo and memLearnerRepo back LocalBackend in tests.
type memCatalogRepo struct {
	mu         sync.Mutex
	categories []entity.Category
	words      map[int64]entity.Word
	order      []int64
}

func newMemCatalogRepo() *memCatalogRepo {
	return &memCatalogRepo{words: map[int64]entity.Word{}}
}

func (m *memCatalogRepo) UpsertCategories(_ context.Context, _ int64, cats []entity.Category) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range cats {
		replaced := false
		for i := range m.categories {
			if m.categories[i].ID == c.ID {
				m.categories[i] = c
				replaced = true
			}
		}
		if !replaced {
			m.categories = append(m.categories, c)
		}
	}
	return nil
}

func (m *memCatalogRepo) UpsertWords(_ context.Context, _ int64, words []entity.Word) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, w := range words {
		if _, ok := m.words[w.ID]; !ok {
			m.order = append(m.order, w.ID)
		}
		m.words[w.ID] = w
	}
	return nil
}

func (m *memCatalogRepo) ListCategories(context.Context, int64) ([]entity.Category, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]entity.Category(nil), m.categories...), nil
}

func (m *memCatalogRepo) ListWordsByCategories(_ context.Context, _ int64, ids []int64) (map[int64][]entity.Word, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[int64][]entity.Word, len(ids))
	for _, catID := range ids {
		out[catID] = []entity.Word{}
		for _, id := range m.order {
			w := m.words[id]
			for _, c := range w.CategoryIDs {
				if c == catID {
					out[catID] = append(out[catID], w)
				}
			}
		}
	}
	return out, nil
}

func (m *memCatalogRepo) ListWords(_ context.Context, q *repository.ListWordQuery) ([]entity.Word, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	all := make([]entity.Word, 0, len(m.order))
	for _, id := range m.order {
		all = append(all, m.words[id])
	}
	start := int(q.Offset())
	if start > len(all) {
		start = len(all)
	}
	end := len(all)
	if q.PageSize > 0 && start+int(q.PageSize) < end {
		end = start + int(q.PageSize)
	}
	return all[start:end], int64(len(all)), nil
}

func (m *memCatalogRepo) GetWordsByIDs(_ context.Context, _ int64, ids []int64) ([]entity.Word, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []entity.Word
	for _, id := range ids {
		if w, ok := m.words[id]; ok {
			out = append(out, w)
		}
	}
	return out, nil
}

type memLearnerRepo struct {
	mu        sync.Mutex
	state     entity.UserState
	goals     entity.Goals
	dismissed []string
	outcomes  []entity.WordOutcome
}

func newMemLearnerRepo() *memLearnerRepo {
	return &memLearnerRepo{goals: entity.DefaultGoals()}
}

func (m *memLearnerRepo) GetUserState(context.Context, int64) (entity.UserState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.Clone(), nil
}

func (m *memLearnerRepo) SaveUserState(_ context.Context, _ int64, state entity.UserState) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state = state.Clone()
	return nil
}

func (m *memLearnerRepo) GetGoals(context.Context, int64) (entity.Goals, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.goals.Clone(), nil
}

func (m *memLearnerRepo) SaveGoals(_ context.Context, _ int64, goals entity.Goals) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.goals = goals.Clone()
	return nil
}

func (m *memLearnerRepo) ListDismissedActivities(context.Context, int64) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.dismissed...), nil
}

func (m *memLearnerRepo) DismissActivity(_ context.Context, _ int64, queueID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dismissed = append(m.dismissed, queueID)
	return nil
}

func (m *memLearnerRepo) AppendOutcomes(_ context.Context, _ int64, outcomes []entity.WordOutcome) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.outcomes = append(m.outcomes, outcomes...)
	return nil
}

func (m *memLearnerRepo) ListOutcomesSince(_ context.Context, _ int64, since time.Time) ([]entity.WordOutcome, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []entity.WordOutcome
	for _, o := range m.outcomes {
		if !o.AnsweredAt.Before(since) {
			out = append(out, o)
		}
	}
	return out, nil
}
