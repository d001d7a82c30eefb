package mapping

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/samber/lo"

	"github.com/eslsoft/flashdeck/internal/entity"
)

var timeLayouts = []string{time.RFC3339Nano, "2006-01-02 15:04:05", "2006-01-02"}

// FlexTime decodes RFC 3339 or MySQL style timestamps and unix seconds.
// Unparseable values decode to the zero time.
type FlexTime struct{ time.Time }

func (v *FlexTime) UnmarshalJSON(data []byte) error {
	v.Time = time.Time{}
	switch s := decodeScalar(data).(type) {
	case string:
		s = strings.TrimSpace(s)
		for _, layout := range timeLayouts {
			if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
				v.Time = t.UTC()
				return nil
			}
		}
	case json.Number:
		if sec, err := s.Int64(); err == nil && sec > 0 {
			v.Time = time.Unix(sec, 0).UTC()
		}
	}
	return nil
}

func (v FlexTime) MarshalJSON() ([]byte, error) {
	if v.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(v.UTC().Format(time.RFC3339Nano))
}

type CategoryDTO struct {
	ID                FlexInt    `json:"id"`
	Slug              FlexString `json:"slug"`
	Name              FlexString `json:"name"`
	Translation       FlexString `json:"translation,omitempty"`
	AspectBucket      FlexString `json:"aspect_bucket"`
	PromptType        FlexString `json:"prompt_type"`
	OptionType        FlexString `json:"option_type"`
	LearningSupported FlexBool   `json:"learning_supported"`
	GenderSupported   FlexBool   `json:"gender_supported"`
	Hidden            FlexBool   `json:"hidden"`
	WordCount         FlexInt    `json:"word_count"`
}

func ToCategory(in CategoryDTO) entity.Category {
	return entity.Category{
		ID:                int64(in.ID),
		Slug:              string(in.Slug),
		Name:              string(in.Name),
		Translation:       string(in.Translation),
		AspectBucket:      string(in.AspectBucket),
		PromptType:        string(in.PromptType),
		OptionType:        string(in.OptionType),
		LearningSupported: bool(in.LearningSupported),
		GenderSupported:   bool(in.GenderSupported),
		Hidden:            bool(in.Hidden),
		WordCount:         max(0, int(in.WordCount)),
	}
}

func FromCategory(in entity.Category) CategoryDTO {
	return CategoryDTO{
		ID:                FlexInt(in.ID),
		Slug:              FlexString(in.Slug),
		Name:              FlexString(in.Name),
		Translation:       FlexString(in.Translation),
		AspectBucket:      FlexString(in.AspectBucket),
		PromptType:        FlexString(in.PromptType),
		OptionType:        FlexString(in.OptionType),
		LearningSupported: FlexBool(in.LearningSupported),
		GenderSupported:   FlexBool(in.GenderSupported),
		Hidden:            FlexBool(in.Hidden),
		WordCount:         FlexInt(in.WordCount),
	}
}

// ToCategories drops entries without a positive id.
func ToCategories(in []CategoryDTO) []entity.Category {
	out := make([]entity.Category, 0, len(in))
	for _, c := range in {
		if c.ID > 0 {
			out = append(out, ToCategory(c))
		}
	}
	return out
}

type WordDTO struct {
	ID              FlexInt     `json:"id"`
	Title           FlexString  `json:"title"`
	Translation     FlexString  `json:"translation"`
	ImageURL        FlexString  `json:"image_url,omitempty"`
	AudioFiles      FlexStrings `json:"audio_files,omitempty"`
	CategoryIDs     FlexIDs     `json:"category_ids"`
	DifficultyScore FlexFloat   `json:"difficulty_score"`
	TotalCoverage   FlexInt     `json:"total_coverage"`
	IncorrectCount  FlexInt     `json:"incorrect_count"`
	LastSeenAt      FlexTime    `json:"last_seen_at"`
	IsStarred       FlexBool    `json:"is_starred"`
}

func ToWord(in WordDTO) entity.Word {
	w := entity.Word{
		ID:              int64(in.ID),
		Title:           string(in.Title),
		Translation:     string(in.Translation),
		ImageURL:        string(in.ImageURL),
		AudioFiles:      []string(in.AudioFiles),
		CategoryIDs:     entity.SortedIDs(in.CategoryIDs),
		DifficultyScore: float64(in.DifficultyScore),
		TotalCoverage:   max(0, int(in.TotalCoverage)),
		IncorrectCount:  max(0, int(in.IncorrectCount)),
		IsStarred:       bool(in.IsStarred),
	}
	if !in.LastSeenAt.IsZero() {
		t := in.LastSeenAt.Time
		w.LastSeenAt = &t
	}
	return w
}

func FromWord(in entity.Word) WordDTO {
	out := WordDTO{
		ID:              FlexInt(in.ID),
		Title:           FlexString(in.Title),
		Translation:     FlexString(in.Translation),
		ImageURL:        FlexString(in.ImageURL),
		AudioFiles:      FlexStrings(in.AudioFiles),
		CategoryIDs:     FlexIDs(entity.NormalizeIDs(in.CategoryIDs)),
		DifficultyScore: FlexFloat(in.DifficultyScore),
		TotalCoverage:   FlexInt(in.TotalCoverage),
		IncorrectCount:  FlexInt(in.IncorrectCount),
		IsStarred:       FlexBool(in.IsStarred),
	}
	if in.LastSeenAt != nil {
		out.LastSeenAt = FlexTime{*in.LastSeenAt}
	}
	return out
}

// ToWordsByCategory keeps positive category keys and words with positive ids.
func ToWordsByCategory(in FlexMap[FlexList[WordDTO]]) map[int64][]entity.Word {
	out := make(map[int64][]entity.Word, len(in))
	for key, words := range in {
		id := parseInt(key)
		if id <= 0 {
			continue
		}
		list := make([]entity.Word, 0, len(words))
		for _, w := range words {
			if w.ID > 0 {
				list = append(list, ToWord(w))
			}
		}
		out[id] = list
	}
	return out
}

func FromWordsByCategory(in map[int64][]entity.Word) FlexMap[FlexList[WordDTO]] {
	out := make(FlexMap[FlexList[WordDTO]], len(in))
	for id, words := range in {
		out[formatID(id)] = lo.Map(words, func(w entity.Word, _ int) WordDTO { return FromWord(w) })
	}
	return out
}

type ActivityDTO struct {
	Mode           FlexString     `json:"mode"`
	CategoryIDs    FlexIDs        `json:"category_ids"`
	SessionWordIDs FlexIDs        `json:"session_word_ids,omitempty"`
	Type           FlexString     `json:"type,omitempty"`
	ReasonCode     FlexString     `json:"reason_code,omitempty"`
	QueueID        FlexString     `json:"queue_id,omitempty"`
	Details        map[string]any `json:"details,omitempty"`
}

func ToActivity(in ActivityDTO) entity.RecommendationActivity {
	return entity.RecommendationActivity{
		Mode:           entity.ParseMode(string(in.Mode)),
		CategoryIDs:    entity.NormalizeIDs(in.CategoryIDs),
		SessionWordIDs: entity.NormalizeIDs(in.SessionWordIDs),
		Type:           string(in.Type),
		ReasonCode:     string(in.ReasonCode),
		QueueID:        string(in.QueueID),
		Details:        in.Details,
	}
}

func FromActivity(in entity.RecommendationActivity) ActivityDTO {
	return ActivityDTO{
		Mode:           FlexString(in.Mode),
		CategoryIDs:    FlexIDs(entity.NormalizeIDs(in.CategoryIDs)),
		SessionWordIDs: FlexIDs(in.SessionWordIDs),
		Type:           FlexString(in.Type),
		ReasonCode:     FlexString(in.ReasonCode),
		QueueID:        FlexString(in.QueueID),
		Details:        in.Details,
	}
}

// RecommendationDTO is embedded by every response that refreshes the queue.
// Entries are kept raw so one malformed activity does not void the rest.
type RecommendationDTO struct {
	NextActivity json.RawMessage           `json:"next_activity,omitempty"`
	Queue        FlexList[json.RawMessage] `json:"recommendation_queue"`
}

// ToRecommendation decodes the activity and queue. A payload that carried no
// queue key yields a nil Queue so callers can tell "absent" from "empty".
func ToRecommendation(in RecommendationDTO) entity.RecommendationResult {
	var res entity.RecommendationResult
	if a, ok := decodeActivity(in.NextActivity); ok {
		res.NextActivity = &a
	}
	if in.Queue != nil {
		res.Queue = make([]entity.RecommendationActivity, 0, len(in.Queue))
		for _, raw := range in.Queue {
			if a, ok := decodeActivity(raw); ok {
				res.Queue = append(res.Queue, a)
			}
		}
	}
	return res
}

func FromRecommendation(in entity.RecommendationResult) RecommendationDTO {
	out := RecommendationDTO{Queue: make([]json.RawMessage, 0, len(in.Queue))}
	if in.NextActivity != nil {
		out.NextActivity, _ = json.Marshal(FromActivity(*in.NextActivity))
	}
	for _, a := range in.Queue {
		raw, err := json.Marshal(FromActivity(a))
		if err == nil {
			out.Queue = append(out.Queue, raw)
		}
	}
	return out
}

func decodeActivity(raw json.RawMessage) (entity.RecommendationActivity, bool) {
	if len(raw) == 0 || raw[0] != '{' {
		return entity.RecommendationActivity{}, false
	}
	var dto ActivityDTO
	if err := json.Unmarshal(raw, &dto); err != nil {
		return entity.RecommendationActivity{}, false
	}
	a := ToActivity(dto)
	if a.Mode == entity.ModeUnspecified {
		return entity.RecommendationActivity{}, false
	}
	return a, true
}

type StateDTO struct {
	CategoryIDs     FlexIDs    `json:"category_ids"`
	StarredWordIDs  FlexIDs    `json:"starred_word_ids"`
	StarMode        FlexString `json:"star_mode"`
	FastTransitions FlexBool   `json:"fast_transitions"`
}

func (d *StateDTO) UnmarshalJSON(data []byte) error {
	type plain StateDTO
	return decodeObject(data, (*plain)(d))
}

func ToUserState(in StateDTO) entity.UserState {
	return entity.UserState{
		CategoryIDs:     entity.NormalizeIDs(in.CategoryIDs),
		StarredWordIDs:  entity.NormalizeIDs(in.StarredWordIDs),
		StarMode:        entity.ParseStarMode(string(in.StarMode)),
		FastTransitions: bool(in.FastTransitions),
	}
}

func FromUserState(in entity.UserState) StateDTO {
	return StateDTO{
		CategoryIDs:     FlexIDs(entity.NormalizeIDs(in.CategoryIDs)),
		StarredWordIDs:  FlexIDs(entity.NormalizeIDs(in.StarredWordIDs)),
		StarMode:        FlexString(entity.ParseStarMode(string(in.StarMode))),
		FastTransitions: FlexBool(in.FastTransitions),
	}
}

type GoalsDTO struct {
	EnabledModes              FlexStrings `json:"enabled_modes"`
	IgnoredCategoryIDs        FlexIDs     `json:"ignored_category_ids"`
	PlacementKnownCategoryIDs FlexIDs     `json:"placement_known_category_ids"`
	DailyNewWordTarget        FlexInt     `json:"daily_new_word_target"`
	PriorityFocus             FlexString  `json:"priority_focus"`
}

func (d *GoalsDTO) UnmarshalJSON(data []byte) error {
	type plain GoalsDTO
	return decodeObject(data, (*plain)(d))
}

// ToGoals returns normalized goals.
func ToGoals(in GoalsDTO) entity.Goals {
	g := entity.Goals{
		EnabledModes:              lo.Map(in.EnabledModes, func(m string, _ int) entity.Mode { return entity.ParseMode(m) }),
		IgnoredCategoryIDs:        []int64(in.IgnoredCategoryIDs),
		PlacementKnownCategoryIDs: []int64(in.PlacementKnownCategoryIDs),
		DailyNewWordTarget:        int(in.DailyNewWordTarget),
		PriorityFocus:             entity.ParsePriorityFocus(string(in.PriorityFocus)),
	}
	g.Normalize()
	return g
}

func FromGoals(in entity.Goals) GoalsDTO {
	g := in.Clone()
	g.Normalize()
	return GoalsDTO{
		EnabledModes:              lo.Map(g.EnabledModes, func(m entity.Mode, _ int) string { return string(m) }),
		IgnoredCategoryIDs:        FlexIDs(g.IgnoredCategoryIDs),
		PlacementKnownCategoryIDs: FlexIDs(g.PlacementKnownCategoryIDs),
		DailyNewWordTarget:        FlexInt(g.DailyNewWordTarget),
		PriorityFocus:             FlexString(g.PriorityFocus),
	}
}

type OutcomeDTO struct {
	WordID     FlexInt    `json:"word_id"`
	Mode       FlexString `json:"mode"`
	Correct    FlexBool   `json:"is_correct"`
	AnsweredAt FlexTime   `json:"answered_at"`
}

// ToOutcomes drops outcomes without a positive word id.
func ToOutcomes(in []OutcomeDTO) []entity.WordOutcome {
	out := make([]entity.WordOutcome, 0, len(in))
	for _, o := range in {
		if o.WordID <= 0 {
			continue
		}
		out = append(out, entity.WordOutcome{
			WordID:     int64(o.WordID),
			Mode:       entity.ParseMode(string(o.Mode)),
			Correct:    bool(o.Correct),
			AnsweredAt: o.AnsweredAt.Time,
		})
	}
	return out
}

func FromOutcomes(in []entity.WordOutcome) []OutcomeDTO {
	return lo.Map(in, func(o entity.WordOutcome, _ int) OutcomeDTO {
		return OutcomeDTO{
			WordID:     FlexInt(o.WordID),
			Mode:       FlexString(o.Mode),
			Correct:    FlexBool(o.Correct),
			AnsweredAt: FlexTime{o.AnsweredAt},
		}
	})
}

type SummaryDTO struct {
	TotalWords   FlexInt `json:"total_words"`
	NewWords     FlexInt `json:"new_words"`
	StudiedWords FlexInt `json:"studied_words"`
	LearnedWords FlexInt `json:"learned_words"`
	HardWords    FlexInt `json:"hard_words"`
	StarredWords FlexInt `json:"starred_words"`
	ActiveDays   FlexInt `json:"active_days"`
}

func (d *SummaryDTO) UnmarshalJSON(data []byte) error {
	type plain SummaryDTO
	return decodeObject(data, (*plain)(d))
}

type CategoryAnalyticsDTO struct {
	CategoryID FlexInt    `json:"category_id"`
	Name       FlexString `json:"name"`
	SummaryDTO
}

// UnmarshalJSON decodes the flattened summary counters next to the id and
// name. It shadows the promoted SummaryDTO method.
func (d *CategoryAnalyticsDTO) UnmarshalJSON(data []byte) error {
	var head struct {
		CategoryID FlexInt    `json:"category_id"`
		Name       FlexString `json:"name"`
	}
	if err := decodeObject(data, &head); err != nil {
		return err
	}
	d.CategoryID, d.Name = head.CategoryID, head.Name
	return d.SummaryDTO.UnmarshalJSON(data)
}

type WordAnalyticsDTO struct {
	WordID          FlexInt    `json:"word_id"`
	Title           FlexString `json:"title"`
	Status          FlexString `json:"status"`
	DifficultyScore FlexFloat  `json:"difficulty_score"`
	IncorrectCount  FlexInt    `json:"incorrect_count"`
	IsStarred       FlexBool   `json:"is_starred"`
}

type AnalyticsDTO struct {
	WindowDays    FlexInt                        `json:"window_days"`
	Summary       SummaryDTO                     `json:"summary"`
	Categories    FlexList[CategoryAnalyticsDTO] `json:"categories"`
	Words         FlexList[WordAnalyticsDTO]     `json:"words"`
	DailyActivity FlexMap[FlexInt]               `json:"daily_activity"`
}

func (d *AnalyticsDTO) UnmarshalJSON(data []byte) error {
	type plain AnalyticsDTO
	return decodeObject(data, (*plain)(d))
}

// ToAnalytics fills missing collections with empty values.
func ToAnalytics(in AnalyticsDTO) entity.Analytics {
	out := entity.Analytics{
		WindowDays:    int(in.WindowDays),
		Summary:       toSummary(in.Summary),
		Categories:    make([]entity.CategoryAnalytics, 0, len(in.Categories)),
		Words:         make([]entity.WordAnalytics, 0, len(in.Words)),
		DailyActivity: make(map[string]int, len(in.DailyActivity)),
	}
	for _, c := range in.Categories {
		if c.CategoryID <= 0 {
			continue
		}
		out.Categories = append(out.Categories, entity.CategoryAnalytics{
			CategoryID:       int64(c.CategoryID),
			Name:             string(c.Name),
			AnalyticsSummary: toSummary(c.SummaryDTO),
		})
	}
	for _, w := range in.Words {
		if w.WordID <= 0 {
			continue
		}
		out.Words = append(out.Words, entity.WordAnalytics{
			WordID:          int64(w.WordID),
			Title:           string(w.Title),
			Status:          entity.ParseWordStatus(string(w.Status)),
			DifficultyScore: float64(w.DifficultyScore),
			IncorrectCount:  max(0, int(w.IncorrectCount)),
			IsStarred:       bool(w.IsStarred),
		})
	}
	for day, n := range in.DailyActivity {
		out.DailyActivity[day] = max(0, int(n))
	}
	return out
}

func FromAnalytics(in entity.Analytics) AnalyticsDTO {
	out := AnalyticsDTO{
		WindowDays:    FlexInt(in.WindowDays),
		Summary:       fromSummary(in.Summary),
		DailyActivity: make(map[string]FlexInt, len(in.DailyActivity)),
		Categories: lo.Map(in.Categories, func(c entity.CategoryAnalytics, _ int) CategoryAnalyticsDTO {
			return CategoryAnalyticsDTO{CategoryID: FlexInt(c.CategoryID), Name: FlexString(c.Name), SummaryDTO: fromSummary(c.AnalyticsSummary)}
		}),
		Words: lo.Map(in.Words, func(w entity.WordAnalytics, _ int) WordAnalyticsDTO {
			return WordAnalyticsDTO{
				WordID:          FlexInt(w.WordID),
				Title:           FlexString(w.Title),
				Status:          FlexString(w.Status),
				DifficultyScore: FlexFloat(w.DifficultyScore),
				IncorrectCount:  FlexInt(w.IncorrectCount),
				IsStarred:       FlexBool(w.IsStarred),
			}
		}),
	}
	for day, n := range in.DailyActivity {
		out.DailyActivity[day] = FlexInt(n)
	}
	return out
}

func toSummary(in SummaryDTO) entity.AnalyticsSummary {
	return entity.AnalyticsSummary{
		TotalWords:   max(0, int(in.TotalWords)),
		NewWords:     max(0, int(in.NewWords)),
		StudiedWords: max(0, int(in.StudiedWords)),
		LearnedWords: max(0, int(in.LearnedWords)),
		HardWords:    max(0, int(in.HardWords)),
		StarredWords: max(0, int(in.StarredWords)),
		ActiveDays:   max(0, int(in.ActiveDays)),
	}
}

func fromSummary(in entity.AnalyticsSummary) SummaryDTO {
	return SummaryDTO{
		TotalWords:   FlexInt(in.TotalWords),
		NewWords:     FlexInt(in.NewWords),
		StudiedWords: FlexInt(in.StudiedWords),
		LearnedWords: FlexInt(in.LearnedWords),
		HardWords:    FlexInt(in.HardWords),
		StarredWords: FlexInt(in.StarredWords),
		ActiveDays:   FlexInt(in.ActiveDays),
	}
}
