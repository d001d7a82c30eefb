package usecase

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/samber/lo"

	"github.com/eslsoft/flashdeck/internal/entity"
)

// Reason codes attached to recommended activities.
const (
	ReasonNewWords      = "new_words"
	ReasonHardWords     = "hard_words"
	ReasonStarredWords  = "starred_words"
	ReasonReviewStudied = "review_studied"
	ReasonReviewLearned = "review_learned"
	ReasonGender        = "gender_practice"
)

const (
	maxQueueLength           = 12
	maxActivityWords         = DefaultChunkSize
	minLearningActivityWords = learningWordFloor + 1
)

// reasonRank is the default queue order.
var reasonRank = map[string]int{
	ReasonNewWords:      0,
	ReasonHardWords:     1,
	ReasonStarredWords:  2,
	ReasonReviewStudied: 3,
	ReasonGender:        4,
	ReasonReviewLearned: 5,
}

var focusReason = map[entity.PriorityFocus]string{
	entity.FocusNew:     ReasonNewWords,
	entity.FocusStudied: ReasonReviewStudied,
	entity.FocusLearned: ReasonReviewLearned,
	entity.FocusStarred: ReasonStarredWords,
	entity.FocusHard:    ReasonHardWords,
}

// RecommendInput is everything the rule-based recommender looks at.
type RecommendInput struct {
	Categories    []entity.Category
	Words         map[int64][]entity.Word
	State         entity.UserState
	Goals         entity.Goals
	CategoryIDs   []int64
	Dismissed     []string
	PreferredMode entity.Mode
	NewWordsToday int
}

// Recommender proposes next activities from word progress.
type Recommender struct {
	hardThreshold float64
}

// NewRecommender builds a recommender; a non-positive threshold uses the default.
func NewRecommender(hardThreshold float64) *Recommender {
	if hardThreshold <= 0 {
		hardThreshold = entity.DefaultHardThreshold
	}
	return &Recommender{hardThreshold: hardThreshold}
}

// QueueID builds the stable removal key of an activity.
func QueueID(mode entity.Mode, reason string, categoryIDs []int64) string {
	ids := lo.Map(entity.SortedIDs(categoryIDs), func(id int64, _ int) string { return strconv.FormatInt(id, 10) })
	return fmt.Sprintf("%s:%s:%s", mode, reason, strings.Join(ids, "-"))
}

// Recommend builds the queue and picks the next activity.
func (r *Recommender) Recommend(in RecommendInput) entity.RecommendationResult {
	goals := in.Goals.Clone()
	goals.Normalize()
	ignored := entity.IDSet(goals.IgnoredCategoryIDs)
	known := entity.IDSet(goals.PlacementKnownCategoryIDs)
	dismissed := lo.Associate(in.Dismissed, func(id string) (string, struct{}) { return id, struct{}{} })
	starred := entity.IDSet(in.State.StarredWordIDs)

	scope := entity.NormalizeIDs(in.CategoryIDs)
	if len(scope) == 0 {
		scope = lo.Map(in.Categories, func(c entity.Category, _ int) int64 { return c.ID })
	}
	byID := lo.Associate(in.Categories, func(c entity.Category) (int64, entity.Category) { return c.ID, c })

	// A zero target leaves new words uncapped.
	newBudget := maxActivityWords
	if goals.DailyNewWordTarget > 0 {
		newBudget = max(0, goals.DailyNewWordTarget-in.NewWordsToday)
	}

	var queue []entity.RecommendationActivity
	add := func(mode entity.Mode, reason string, cat entity.Category, words []int64) {
		if !goals.ModeEnabled(mode) || !cat.SupportsMode(mode) || len(words) == 0 {
			return
		}
		id := QueueID(mode, reason, []int64{cat.ID})
		if _, skip := dismissed[id]; skip {
			return
		}
		queue = append(queue, entity.RecommendationActivity{
			Mode:           mode,
			CategoryIDs:    []int64{cat.ID},
			SessionWordIDs: lo.Subset(words, 0, maxActivityWords),
			Type:           "category",
			ReasonCode:     reason,
			QueueID:        id,
			Details:        map[string]any{"category_name": cat.DisplayName(), "word_count": len(words)},
		})
	}

	for _, id := range scope {
		cat, ok := byID[id]
		if !ok || cat.Hidden {
			continue
		}
		if _, skip := ignored[id]; skip {
			continue
		}
		var fresh, studied, learned, hard, star []int64
		for _, w := range in.Words[id] {
			switch w.Status() {
			case entity.WordStatusNew:
				fresh = append(fresh, w.ID)
			case entity.WordStatusStudied:
				studied = append(studied, w.ID)
			case entity.WordStatusLearned:
				learned = append(learned, w.ID)
			}
			if w.IsHard(r.hardThreshold) {
				hard = append(hard, w.ID)
			}
			if _, ok := starred[w.ID]; ok || w.IsStarred {
				star = append(star, w.ID)
			}
		}

		if _, isKnown := known[id]; !isKnown && newBudget > 0 {
			if n := min(newBudget, len(fresh)); n >= minLearningActivityWords {
				add(entity.ModeLearning, ReasonNewWords, cat, fresh[:n])
			}
		}
		add(entity.ModePractice, ReasonHardWords, cat, hard)
		add(entity.ModePractice, ReasonStarredWords, cat, star)
		add(entity.ModeListening, ReasonReviewStudied, cat, studied)
		add(entity.ModeGender, ReasonGender, cat, append(append([]int64(nil), studied...), learned...))
		add(entity.ModeSelfCheck, ReasonReviewLearned, cat, learned)
	}

	rank := func(a entity.RecommendationActivity) int {
		if reason, ok := focusReason[goals.PriorityFocus]; ok && a.ReasonCode == reason {
			return -1
		}
		return reasonRank[a.ReasonCode]
	}
	sort.SliceStable(queue, func(i, j int) bool { return rank(queue[i]) < rank(queue[j]) })
	queue = lo.Subset(queue, 0, maxQueueLength)

	result := entity.RecommendationResult{Queue: NormalizeQueue(queue).Items()}
	if head, ok := NormalizeQueue(result.Queue).Head(in.PreferredMode); ok {
		result.NextActivity = &head
	}
	return result
}
