package entity

// AnalyticsSummary aggregates word status counts over a selection.
type AnalyticsSummary struct {
	TotalWords   int `json:"total_words"`
	NewWords     int `json:"new_words"`
	StudiedWords int `json:"studied_words"`
	LearnedWords int `json:"learned_words"`
	HardWords    int `json:"hard_words"`
	StarredWords int `json:"starred_words"`
	ActiveDays   int `json:"active_days"`
}

// CategoryAnalytics holds per-category counts.
type CategoryAnalytics struct {
	CategoryID int64  `json:"category_id"`
	Name       string `json:"name"`
	AnalyticsSummary
}

// WordAnalytics holds per-word progress.
type WordAnalytics struct {
	WordID          int64      `json:"word_id"`
	Title           string     `json:"title"`
	Status          WordStatus `json:"status"`
	DifficultyScore float64    `json:"difficulty_score"`
	IncorrectCount  int        `json:"incorrect_count"`
	IsStarred       bool       `json:"is_starred"`
}

// Analytics is the progress report for a wordset selection.
type Analytics struct {
	WindowDays    int                 `json:"window_days"`
	Summary       AnalyticsSummary    `json:"summary"`
	Categories    []CategoryAnalytics `json:"categories"`
	Words         []WordAnalytics     `json:"words"`
	DailyActivity map[string]int      `json:"daily_activity"`
}
