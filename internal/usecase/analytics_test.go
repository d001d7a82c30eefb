package usecase

import (
	"testing"
	"time"

	"github.com/eslsoft/flashdeck/internal/entity"
)

func analyticsFixture() AnalyticsInput {
	shared := entity.Word{ID: 1, Title: "beta", TotalCoverage: 2, DifficultyScore: 5}
	now := time.Date(2025, 3, 10, 18, 0, 0, 0, time.UTC)
	return AnalyticsInput{
		Categories: []entity.Category{{ID: 1, Name: "A"}, {ID: 2, Name: "B"}},
		Words: map[int64][]entity.Word{
			1: {shared, {ID: 2, Title: "Alpha"}},
			2: {shared, {ID: 3, Title: "gamma", TotalCoverage: 4}},
		},
		StarredIDs: []int64{2},
		Outcomes: []entity.WordOutcome{
			{WordID: 1, AnsweredAt: now.Add(-time.Hour)},
			{WordID: 3, AnsweredAt: now.AddDate(0, 0, -2)},
			{WordID: 3, AnsweredAt: now.AddDate(0, 0, -30)},
		},
		WindowDays: 7,
		Now:        now,
	}
}

func TestBuildAnalytics_Counts(t *testing.T) {
	a, err := BuildAnalytics(analyticsFixture())
	if err != nil {
		t.Fatalf("BuildAnalytics: %v", err)
	}
	want := entity.AnalyticsSummary{TotalWords: 3, NewWords: 1, StudiedWords: 1, LearnedWords: 1, HardWords: 1, StarredWords: 1, ActiveDays: 2}
	if a.Summary != want {
		t.Fatalf("summary = %+v, want %+v", a.Summary, want)
	}
	if len(a.Categories) != 2 || a.Categories[1].TotalWords != 2 || a.Categories[1].HardWords != 1 {
		t.Fatalf("shared words count in every category row, got %+v", a.Categories)
	}
	if a.Words[0].WordID != 1 {
		t.Fatalf("default order is by difficulty descending, got %+v", a.Words)
	}
}

func TestBuildAnalytics_DailyActivity(t *testing.T) {
	a, err := BuildAnalytics(analyticsFixture())
	if err != nil {
		t.Fatalf("BuildAnalytics: %v", err)
	}
	if a.WindowDays != 7 || len(a.DailyActivity) != 7 {
		t.Fatalf("expected a zero-filled seven day window, got %v", a.DailyActivity)
	}
	if a.DailyActivity["2025-03-10"] != 1 || a.DailyActivity["2025-03-08"] != 1 || a.DailyActivity["2025-03-04"] != 0 {
		t.Fatalf("unexpected activity %v", a.DailyActivity)
	}
	if _, ok := a.DailyActivity["2025-03-03"]; ok {
		t.Fatalf("window must start six days back")
	}
}

func TestBuildAnalytics_OrderBy(t *testing.T) {
	in := analyticsFixture()
	in.OrderBy = "title asc"
	a, err := BuildAnalytics(in)
	if err != nil {
		t.Fatalf("BuildAnalytics: %v", err)
	}
	if got := []int64{a.Words[0].WordID, a.Words[1].WordID, a.Words[2].WordID}; !equalIDs(got, []int64{2, 1, 3}) {
		t.Fatalf("expected case-insensitive title order, got %v", got)
	}

	in.OrderBy = "popularity desc"
	if _, err := BuildAnalytics(in); err == nil {
		t.Fatalf("expected error for unknown order key")
	}
}

func TestAnalyticsWindowStart(t *testing.T) {
	now := time.Date(2025, 3, 10, 23, 59, 0, 0, time.UTC)
	if got := AnalyticsWindowStart(now, 1); !got.Equal(time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected one-day start %v", got)
	}
	if got := AnalyticsWindowStart(now, 0); !got.Equal(time.Date(2025, 2, 25, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("zero window should use the default, got %v", got)
	}
}
