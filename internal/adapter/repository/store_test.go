package repository

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"
	_ "github.com/mattn/go-sqlite3"

	"github.com/eslsoft/flashdeck/internal/entity"
	"github.com/eslsoft/flashdeck/internal/repository"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_fk=1", t.Name())
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	store := NewStore(entsql.OpenDB(dialect.SQLite, db), nil)
	t.Cleanup(func() { _ = store.Close() })
	if err := store.Migrate(context.Background()); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return store
}

func seedCatalog(t *testing.T, repo repository.CatalogRepository) {
	t.Helper()
	ctx := context.Background()
	cats := []entity.Category{
		{ID: 2, Name: "Food", AspectBucket: "wide", LearningSupported: true},
		{ID: 1, Name: "Animals", Translation: "Tiere", AspectBucket: "tall", GenderSupported: true},
	}
	if err := repo.UpsertCategories(ctx, 7, cats); err != nil {
		t.Fatalf("UpsertCategories: %v", err)
	}
	words := []entity.Word{
		{ID: 10, Title: "Hund", Translation: "dog", CategoryIDs: []int64{1}, AudioFiles: []string{"hund.mp3"}},
		{ID: 11, Title: "Katze", Translation: "cat", CategoryIDs: []int64{1}},
		{ID: 12, Title: "Fisch", Translation: "fish", CategoryIDs: []int64{1, 2}},
		{ID: 13, Title: "Brot", Translation: "bread", CategoryIDs: []int64{2}},
	}
	if err := repo.UpsertWords(ctx, 7, words); err != nil {
		t.Fatalf("UpsertWords: %v", err)
	}
}

func TestCatalogRepository_ListCategories(t *testing.T) {
	repo := NewCatalogRepository(newTestStore(t))
	seedCatalog(t, repo)

	cats, err := repo.ListCategories(context.Background(), 7)
	if err != nil {
		t.Fatalf("ListCategories: %v", err)
	}
	if len(cats) != 2 || cats[0].ID != 1 || cats[1].ID != 2 {
		t.Fatalf("unexpected categories %+v", cats)
	}
	if cats[0].WordCount != 3 || cats[1].WordCount != 2 {
		t.Fatalf("unexpected word counts %d/%d", cats[0].WordCount, cats[1].WordCount)
	}
	if !cats[0].GenderSupported || cats[0].Translation != "Tiere" || cats[0].AspectBucket != "tall" {
		t.Fatalf("category fields not persisted: %+v", cats[0])
	}

	other, err := repo.ListCategories(context.Background(), 8)
	if err != nil || len(other) != 0 {
		t.Fatalf("wordsets must be isolated, got %+v, %v", other, err)
	}
}

func TestCatalogRepository_WordsByCategories(t *testing.T) {
	repo := NewCatalogRepository(newTestStore(t))
	seedCatalog(t, repo)

	byCat, err := repo.ListWordsByCategories(context.Background(), 7, []int64{2, 1, 99})
	if err != nil {
		t.Fatalf("ListWordsByCategories: %v", err)
	}
	ids := func(words []entity.Word) []int64 {
		out := make([]int64, len(words))
		for i, w := range words {
			out[i] = w.ID
		}
		return out
	}
	if got := ids(byCat[1]); fmt.Sprint(got) != "[10 11 12]" {
		t.Fatalf("unexpected category 1 words %v", got)
	}
	if got := ids(byCat[2]); fmt.Sprint(got) != "[12 13]" {
		t.Fatalf("unexpected category 2 words %v", got)
	}
	if words, ok := byCat[99]; !ok || len(words) != 0 {
		t.Fatalf("unknown category should map to an empty list")
	}
	if fish := byCat[2][0]; fmt.Sprint(fish.CategoryIDs) != "[1 2]" {
		t.Fatalf("shared word should list both categories, got %v", fish.CategoryIDs)
	}
	if dog := byCat[1][0]; len(dog.AudioFiles) != 1 || dog.AudioFiles[0] != "hund.mp3" {
		t.Fatalf("audio files not persisted: %+v", dog)
	}
}

func TestCatalogRepository_UpsertKeepsLinksAndProgress(t *testing.T) {
	repo := NewCatalogRepository(newTestStore(t))
	seedCatalog(t, repo)
	ctx := context.Background()

	seen := time.Date(2025, 3, 1, 9, 30, 0, 0, time.UTC)
	words, err := repo.GetWordsByIDs(ctx, 7, []int64{13, 12})
	if err != nil {
		t.Fatalf("GetWordsByIDs: %v", err)
	}
	for i := range words {
		words[i].TotalCoverage = 3
		words[i].DifficultyScore = 1.5
		words[i].LastSeenAt = &seen
	}
	if err := repo.UpsertWords(ctx, 7, words); err != nil {
		t.Fatalf("UpsertWords: %v", err)
	}

	got, err := repo.GetWordsByIDs(ctx, 7, []int64{12})
	if err != nil || len(got) != 1 {
		t.Fatalf("GetWordsByIDs: %+v, %v", got, err)
	}
	w := got[0]
	if w.TotalCoverage != 3 || w.DifficultyScore != 1.5 || w.LastSeenAt == nil || !w.LastSeenAt.Equal(seen) {
		t.Fatalf("progress not persisted: %+v", w)
	}
	if fmt.Sprint(w.CategoryIDs) != "[1 2]" {
		t.Fatalf("links changed: %v", w.CategoryIDs)
	}

	if err := repo.UpsertWords(ctx, 7, []entity.Word{{ID: 12, Title: "Fisch", CategoryIDs: []int64{2}}}); err != nil {
		t.Fatalf("UpsertWords relink: %v", err)
	}
	got, _ = repo.GetWordsByIDs(ctx, 7, []int64{12})
	if fmt.Sprint(got[0].CategoryIDs) != "[2]" {
		t.Fatalf("expected links replaced, got %v", got[0].CategoryIDs)
	}
}

func TestCatalogRepository_ListWordsPages(t *testing.T) {
	repo := NewCatalogRepository(newTestStore(t))
	seedCatalog(t, repo)

	words, total, err := repo.ListWords(context.Background(), &repository.ListWordQuery{
		WordsetID:  7,
		Pagination: repository.Pagination{PageNo: 2, PageSize: 3},
	})
	if err != nil {
		t.Fatalf("ListWords: %v", err)
	}
	if total != 4 || len(words) != 1 || words[0].ID != 13 {
		t.Fatalf("unexpected page: total=%d words=%+v", total, words)
	}
}

func TestLearnerRepository_Profile(t *testing.T) {
	repo := NewLearnerRepository(newTestStore(t))
	ctx := context.Background()

	state, err := repo.GetUserState(ctx, 7)
	if err != nil {
		t.Fatalf("GetUserState: %v", err)
	}
	if state.StarMode != entity.StarModeNormal || len(state.CategoryIDs) != 0 {
		t.Fatalf("unexpected default state %+v", state)
	}
	goals, err := repo.GetGoals(ctx, 7)
	if err != nil || len(goals.EnabledModes) != len(entity.AllModes) {
		t.Fatalf("expected default goals, got %+v, %v", goals, err)
	}

	want := entity.UserState{CategoryIDs: []int64{3, 1}, StarredWordIDs: []int64{9}, StarMode: entity.StarModeOnly, FastTransitions: true}
	if err := repo.SaveUserState(ctx, 7, want); err != nil {
		t.Fatalf("SaveUserState: %v", err)
	}
	if err := repo.SaveGoals(ctx, 7, entity.Goals{EnabledModes: []entity.Mode{entity.ModeListening}, DailyNewWordTarget: 5}); err != nil {
		t.Fatalf("SaveGoals: %v", err)
	}

	state, _ = repo.GetUserState(ctx, 7)
	if fmt.Sprint(state.CategoryIDs) != "[3 1]" || state.StarMode != entity.StarModeOnly || !state.FastTransitions {
		t.Fatalf("state not persisted: %+v", state)
	}
	goals, _ = repo.GetGoals(ctx, 7)
	if len(goals.EnabledModes) != 1 || goals.EnabledModes[0] != entity.ModeListening || goals.DailyNewWordTarget != 5 {
		t.Fatalf("goals not persisted: %+v", goals)
	}
}

func TestLearnerRepository_DismissAndOutcomes(t *testing.T) {
	repo := NewLearnerRepository(newTestStore(t))
	ctx := context.Background()

	for _, id := range []string{"practice:hard_words:1", "practice:hard_words:1", "learning:new_words:2"} {
		if err := repo.DismissActivity(ctx, 7, id); err != nil {
			t.Fatalf("DismissActivity: %v", err)
		}
	}
	dismissed, err := repo.ListDismissedActivities(ctx, 7)
	if err != nil || len(dismissed) != 2 {
		t.Fatalf("expected two dismissed ids, got %v, %v", dismissed, err)
	}

	day := time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC)
	err = repo.AppendOutcomes(ctx, 7, []entity.WordOutcome{
		{WordID: 1, Mode: entity.ModeLearning, Correct: true, AnsweredAt: day.AddDate(0, 0, -3)},
		{WordID: 2, Mode: entity.ModePractice, Correct: false, AnsweredAt: day},
		{WordID: 3, Mode: entity.ModePractice, Correct: true, AnsweredAt: day.Add(time.Hour)},
	})
	if err != nil {
		t.Fatalf("AppendOutcomes: %v", err)
	}
	outcomes, err := repo.ListOutcomesSince(ctx, 7, day)
	if err != nil {
		t.Fatalf("ListOutcomesSince: %v", err)
	}
	if len(outcomes) != 2 || outcomes[0].WordID != 2 || outcomes[0].Correct || outcomes[1].Mode != entity.ModePractice {
		t.Fatalf("unexpected outcomes %+v", outcomes)
	}
	if !outcomes[1].AnsweredAt.Equal(day.Add(time.Hour)) {
		t.Fatalf("answered_at not preserved: %v", outcomes[1].AnsweredAt)
	}
}
