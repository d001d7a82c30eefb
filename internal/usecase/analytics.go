package usecase

import (
	"cmp"
	"sort"
	"strings"
	"time"

	"github.com/eslsoft/flashdeck/internal/entity"
	"github.com/eslsoft/flashdeck/pkg/filterexpr"
)

const (
	DefaultAnalyticsWindowDays = 14
	maxAnalyticsWindowDays     = 365
	dayLayout                  = "2006-01-02"
)

var wordOrderSchema = filterexpr.OrderSchema{
	DefaultKey:  "difficulty",
	DefaultDesc: true,
	FallbackKey: "id",
	Fields:      []string{"difficulty", "incorrect", "title", "status", "id"},
}

// AnalyticsInput is the raw material of an analytics report.
type AnalyticsInput struct {
	Categories    []entity.Category
	Words         map[int64][]entity.Word
	StarredIDs    []int64
	Outcomes      []entity.WordOutcome
	WindowDays    int
	Now           time.Time
	HardThreshold float64
	OrderBy       string
}

// AnalyticsWindowStart returns the first instant counted by a window
// ending at now.
func AnalyticsWindowStart(now time.Time, windowDays int) time.Time {
	windowDays = clampWindow(windowDays)
	y, m, d := now.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC).AddDate(0, 0, -(windowDays - 1))
}

func clampWindow(days int) int {
	if days <= 0 {
		return DefaultAnalyticsWindowDays
	}
	return min(days, maxAnalyticsWindowDays)
}

// BuildAnalytics aggregates word progress per category and overall. Words
// shared between categories count once in the summary.
func BuildAnalytics(in AnalyticsInput) (entity.Analytics, error) {
	orders, err := filterexpr.ParseOrderBy(in.OrderBy, wordOrderSchema)
	if err != nil {
		return entity.Analytics{}, err
	}
	window := clampWindow(in.WindowDays)
	now := in.Now
	if now.IsZero() {
		now = time.Now()
	}
	starred := entity.IDSet(in.StarredIDs)

	out := entity.Analytics{
		WindowDays:    window,
		Categories:    []entity.CategoryAnalytics{},
		Words:         []entity.WordAnalytics{},
		DailyActivity: map[string]int{},
	}
	seen := map[int64]struct{}{}
	for _, cat := range in.Categories {
		row := entity.CategoryAnalytics{CategoryID: cat.ID, Name: cat.DisplayName()}
		for _, w := range in.Words[cat.ID] {
			_, isStarred := starred[w.ID]
			isStarred = isStarred || w.IsStarred
			tally(&row.AnalyticsSummary, w, isStarred, in.HardThreshold)
			if _, dup := seen[w.ID]; dup {
				continue
			}
			seen[w.ID] = struct{}{}
			tally(&out.Summary, w, isStarred, in.HardThreshold)
			out.Words = append(out.Words, entity.WordAnalytics{
				WordID:          w.ID,
				Title:           w.Title,
				Status:          w.Status(),
				DifficultyScore: w.DifficultyScore,
				IncorrectCount:  w.IncorrectCount,
				IsStarred:       isStarred,
			})
		}
		out.Categories = append(out.Categories, row)
	}
	sortWordAnalytics(out.Words, orders)

	start := AnalyticsWindowStart(now, window)
	for i := 0; i < window; i++ {
		out.DailyActivity[start.AddDate(0, 0, i).Format(dayLayout)] = 0
	}
	for _, o := range in.Outcomes {
		day := o.AnsweredAt.UTC().Format(dayLayout)
		if _, inWindow := out.DailyActivity[day]; inWindow {
			out.DailyActivity[day]++
		}
	}
	for _, n := range out.DailyActivity {
		if n > 0 {
			out.Summary.ActiveDays++
		}
	}
	return out, nil
}

func tally(s *entity.AnalyticsSummary, w entity.Word, starred bool, hardThreshold float64) {
	s.TotalWords++
	switch w.Status() {
	case entity.WordStatusNew:
		s.NewWords++
	case entity.WordStatusStudied:
		s.StudiedWords++
	case entity.WordStatusLearned:
		s.LearnedWords++
	}
	if w.IsHard(hardThreshold) {
		s.HardWords++
	}
	if starred {
		s.StarredWords++
	}
}

func sortWordAnalytics(words []entity.WordAnalytics, orders []filterexpr.Order) {
	sort.SliceStable(words, func(i, j int) bool {
		for _, o := range orders {
			c := compareWordAnalytics(words[i], words[j], o.Key)
			if c == 0 {
				continue
			}
			if o.Desc {
				return c > 0
			}
			return c < 0
		}
		return false
	})
}

func compareWordAnalytics(a, b entity.WordAnalytics, key string) int {
	switch key {
	case "difficulty":
		return cmp.Compare(a.DifficultyScore, b.DifficultyScore)
	case "incorrect":
		return cmp.Compare(a.IncorrectCount, b.IncorrectCount)
	case "title":
		return strings.Compare(strings.ToLower(a.Title), strings.ToLower(b.Title))
	case "status":
		return strings.Compare(string(a.Status), string(b.Status))
	default:
		return cmp.Compare(a.WordID, b.WordID)
	}
}
