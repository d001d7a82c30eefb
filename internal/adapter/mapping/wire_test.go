package mapping

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/eslsoft/flashdeck/internal/entity"
)

func TestToRecommendationSkipsMalformedEntries(t *testing.T) {
	body := `{
		"next_activity": {"mode":"quiz","category_ids":"3,1"},
		"recommendation_queue": [
			{"mode":"learning","category_ids":[2],"queue_id":"learning:new_words:2"},
			"garbage",
			{"mode":"juggling","category_ids":[1]},
			{"mode":"listening","category_ids":{"0":4},"session_word_ids":[9,"9",10]}
		]
	}`
	var dto RecommendationDTO
	if err := json.Unmarshal([]byte(body), &dto); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	res := ToRecommendation(dto)
	if res.NextActivity == nil || res.NextActivity.Mode != entity.ModePractice || fmt.Sprint(res.NextActivity.CategoryIDs) != "[3 1]" {
		t.Fatalf("unexpected next activity %+v", res.NextActivity)
	}
	if len(res.Queue) != 2 {
		t.Fatalf("expected two valid queue entries, got %+v", res.Queue)
	}
	if res.Queue[0].QueueID != "learning:new_words:2" || fmt.Sprint(res.Queue[1].SessionWordIDs) != "[9 10]" {
		t.Fatalf("unexpected queue %+v", res.Queue)
	}
}

func TestToRecommendationAbsentQueue(t *testing.T) {
	var dto RecommendationDTO
	_ = json.Unmarshal([]byte(`{"state":{}}`), &dto)
	if res := ToRecommendation(dto); res.HasQueue() {
		t.Fatalf("absent queue must not count as queue data: %+v", res)
	}
	_ = json.Unmarshal([]byte(`{"recommendation_queue":[]}`), &dto)
	if res := ToRecommendation(dto); res.Queue == nil || len(res.Queue) != 0 {
		t.Fatalf("empty queue must decode as an empty slice: %+v", res)
	}
}

func TestRecommendationRoundTrip(t *testing.T) {
	in := entity.RecommendationResult{
		NextActivity: &entity.RecommendationActivity{Mode: entity.ModeGender, CategoryIDs: []int64{5}, QueueID: "gender:gender_practice:5"},
		Queue:        []entity.RecommendationActivity{{Mode: entity.ModeGender, CategoryIDs: []int64{5}, QueueID: "gender:gender_practice:5"}},
	}
	raw, err := json.Marshal(FromRecommendation(in))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var dto RecommendationDTO
	if err := json.Unmarshal(raw, &dto); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	out := ToRecommendation(dto)
	if out.NextActivity == nil || out.NextActivity.QueueID != in.NextActivity.QueueID || len(out.Queue) != 1 {
		t.Fatalf("round trip lost data: %+v", out)
	}
}

func TestToWordNormalizes(t *testing.T) {
	body := `{"id":"12","title":"Hund","category_ids":"2,1,2","total_coverage":"-3",
		"difficulty_score":"2.5","last_seen_at":"2025-03-10 08:00:00","is_starred":"1","audio_files":"hund.mp3"}`
	var dto WordDTO
	if err := json.Unmarshal([]byte(body), &dto); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	w := ToWord(dto)
	if w.ID != 12 || w.TotalCoverage != 0 || w.DifficultyScore != 2.5 || !w.IsStarred {
		t.Fatalf("unexpected word %+v", w)
	}
	if fmt.Sprint(w.CategoryIDs) != "[1 2]" || len(w.AudioFiles) != 1 {
		t.Fatalf("unexpected lists %+v", w)
	}
	if w.LastSeenAt == nil || w.LastSeenAt.Hour() != 8 {
		t.Fatalf("last seen not parsed: %v", w.LastSeenAt)
	}
}

func TestToWordsByCategory(t *testing.T) {
	body := `{"1":[{"id":1,"title":"a"},{"id":0,"title":"bad"}],"x":[{"id":2}],"-4":[]}`
	var dto FlexMap[FlexList[WordDTO]]
	if err := json.Unmarshal([]byte(body), &dto); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	got := ToWordsByCategory(dto)
	if len(got) != 1 || len(got[1]) != 1 || got[1][0].Title != "a" {
		t.Fatalf("unexpected words by category %+v", got)
	}
}

func TestGoalsAndStateDefaults(t *testing.T) {
	var goals GoalsDTO
	_ = json.Unmarshal([]byte(`{"enabled_modes":["bogus"],"daily_new_word_target":"99","priority_focus":"HARD"}`), &goals)
	g := ToGoals(goals)
	if len(g.EnabledModes) != len(entity.AllModes) || g.DailyNewWordTarget != entity.MaxDailyNewWordTarget || g.PriorityFocus != entity.FocusHard {
		t.Fatalf("goals not normalized: %+v", g)
	}

	var state StateDTO
	_ = json.Unmarshal([]byte(`{"category_ids":null,"starred_word_ids":[4,4],"star_mode":"loud"}`), &state)
	s := ToUserState(state)
	if s.StarMode != entity.StarModeNormal || fmt.Sprint(s.StarredWordIDs) != "[4]" {
		t.Fatalf("state not normalized: %+v", s)
	}
}

func TestToAnalyticsFillsDefaults(t *testing.T) {
	var dto AnalyticsDTO
	_ = json.Unmarshal([]byte(`{"summary":{"total_words":"5"},"categories":[{"category_id":0},{"category_id":2,"name":"Food","hard_words":1}]}`), &dto)
	a := ToAnalytics(dto)
	if a.Summary.TotalWords != 5 || len(a.Categories) != 1 || a.Categories[0].HardWords != 1 {
		t.Fatalf("unexpected analytics %+v", a)
	}
	if a.Words == nil || a.DailyActivity == nil {
		t.Fatalf("collections must be non-nil")
	}
}

func TestDecodeEnvelope(t *testing.T) {
	var out CategoriesResponse
	if err := DecodeEnvelope([]byte(`{"success":true,"data":{"categories":[{"id":"3","name":"Food"}]}}`), &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(out.Categories) != 1 || out.Categories[0].ID != 3 {
		t.Fatalf("unexpected payload %+v", out)
	}

	err := DecodeEnvelope([]byte(`{"success":false,"data":"Nonce expired"}`), nil)
	var remote *RemoteError
	if !errors.As(err, &remote) || remote.Message != "Nonce expired" {
		t.Fatalf("expected string remote error, got %v", err)
	}

	err = DecodeEnvelope([]byte(`{"success":"0","data":{"code":"invalid_argument","message":"bad wordset"}}`), nil)
	if !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("expected code to unwrap to sentinel, got %v", err)
	}

	if err := DecodeEnvelope([]byte(`<html>`), nil); !errors.Is(err, ErrMalformedEnvelope) {
		t.Fatalf("expected malformed envelope, got %v", err)
	}
}

func TestFailureEnvelope(t *testing.T) {
	body, status := Failure(&entity.SelectionError{Kind: entity.SelectionHardEmpty})
	if status != http.StatusUnprocessableEntity {
		t.Fatalf("unexpected status %d", status)
	}
	err := DecodeEnvelope(body, nil)
	if !errors.Is(err, entity.ErrNoCategoriesSelected) {
		t.Fatalf("expected empty selection code, got %v", err)
	}
	if code, status := ErrorCode(errors.New("boom")); code != CodeInternal || status != http.StatusInternalServerError {
		t.Fatalf("unexpected default mapping %s %d", code, status)
	}
}

func TestDecodeEnvelopeLooseContainers(t *testing.T) {
	decode := func(t *testing.T, data string, out any) {
		t.Helper()
		if err := DecodeEnvelope([]byte(`{"success":true,"data":`+data+`}`), out); err != nil {
			t.Fatalf("decode %s: %v", data, err)
		}
	}

	t.Run("words_by_category", func(t *testing.T) {
		var empty WordsResponse
		decode(t, `{"words_by_category":[]}`, &empty)
		if got := ToWordsByCategory(empty.WordsByCategory); len(got) != 0 {
			t.Fatalf("expected no words, got %+v", got)
		}
		var nested WordsResponse
		decode(t, `{"words_by_category":{"3":{"1":{"id":6,"title":"b"},"0":{"id":5,"title":"a"}},"4":false}}`, &nested)
		got := ToWordsByCategory(nested.WordsByCategory)
		if len(got[3]) != 2 || got[3][0].ID != 5 || got[3][1].ID != 6 {
			t.Fatalf("object-shaped word list not decoded in key order: %+v", got)
		}
		if words, ok := got[4]; !ok || len(words) != 0 {
			t.Fatalf("false word list should decode empty, got %+v", got[4])
		}
	})

	t.Run("recommendation_queue", func(t *testing.T) {
		var keyed RecommendationDTO
		decode(t, `{"recommendation_queue":{"1":{"mode":"listening","category_ids":[2]},"0":{"mode":"learning","category_ids":[1]}}}`, &keyed)
		res := ToRecommendation(keyed)
		if len(res.Queue) != 2 || res.Queue[0].Mode != entity.ModeLearning || res.Queue[1].Mode != entity.ModeListening {
			t.Fatalf("object-shaped queue not decoded in key order: %+v", res.Queue)
		}
		var off RecommendationDTO
		decode(t, `{"recommendation_queue":false,"next_activity":false}`, &off)
		res = ToRecommendation(off)
		if res.Queue == nil || len(res.Queue) != 0 || res.NextActivity != nil {
			t.Fatalf("false queue should decode as an empty queue: %+v", res)
		}
	})

	t.Run("categories", func(t *testing.T) {
		var empty CategoriesResponse
		decode(t, `{"categories":{}}`, &empty)
		if len(ToCategories(empty.Categories)) != 0 {
			t.Fatalf("expected no categories, got %+v", empty.Categories)
		}
		var mixed CategoriesResponse
		decode(t, `{"categories":[{"id":2,"name":"Food"},"oops",7]}`, &mixed)
		if cats := ToCategories(mixed.Categories); len(cats) != 1 || cats[0].ID != 2 {
			t.Fatalf("malformed entries should be skipped, got %+v", cats)
		}
		var bare CategoriesResponse
		decode(t, `[]`, &bare)
		if len(bare.Categories) != 0 {
			t.Fatalf("empty array payload should leave the response empty")
		}
	})

	t.Run("analytics", func(t *testing.T) {
		var dto AnalyticsDTO
		decode(t, `{"summary":[],"daily_activity":[],"categories":false,"words":{"0":{"word_id":3,"title":"c"}}}`, &dto)
		a := ToAnalytics(dto)
		if len(a.DailyActivity) != 0 || len(a.Categories) != 0 || a.Summary.TotalWords != 0 {
			t.Fatalf("loose analytics not normalized: %+v", a)
		}
		if len(a.Words) != 1 || a.Words[0].WordID != 3 {
			t.Fatalf("object-shaped words not decoded: %+v", a.Words)
		}
		var cats AnalyticsDTO
		decode(t, `{"categories":[{"category_id":"2","name":"Food","hard_words":"3"}],"daily_activity":{"2025-03-10":"4"}}`, &cats)
		a = ToAnalytics(cats)
		if len(a.Categories) != 1 || a.Categories[0].HardWords != 3 || a.DailyActivity["2025-03-10"] != 4 {
			t.Fatalf("flattened category summary not decoded: %+v", a)
		}
	})

	t.Run("state_and_goals", func(t *testing.T) {
		var state StateResponse
		decode(t, `{"state":[],"recommendation_queue":[]}`, &state)
		if s := ToUserState(state.State); s.StarMode != entity.StarModeNormal || len(s.CategoryIDs) != 0 {
			t.Fatalf("array state should decode to defaults: %+v", s)
		}
		var goals GoalsResponse
		decode(t, `{"goals":false}`, &goals)
		if g := ToGoals(goals.Goals); len(g.EnabledModes) != len(entity.AllModes) {
			t.Fatalf("false goals should decode to defaults: %+v", g)
		}
	})
}
