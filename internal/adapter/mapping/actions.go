package mapping

// Form fields of every action request.
const (
	FieldAction    = "action"
	FieldWordsetID = "wordset_id"
	FieldNonce     = "nonce"
	FieldParams    = "params"
)

// Action names understood by the study backend.
const (
	ActionFetchCategories     = "flashdeck_fetch_categories"
	ActionFetchWords          = "flashdeck_fetch_words"
	ActionFetchRecommendation = "flashdeck_fetch_recommendation"
	ActionSaveState           = "flashdeck_save_state"
	ActionSaveGoals           = "flashdeck_save_goals"
	ActionFetchAnalytics      = "flashdeck_fetch_analytics"
	ActionRemoveQueueActivity = "flashdeck_remove_queue_activity"
	ActionRecordOutcomes      = "flashdeck_record_outcomes"
)

type FetchWordsParams struct {
	CategoryIDs FlexIDs `json:"category_ids"`
}

type FetchRecommendationParams struct {
	CategoryIDs   FlexIDs    `json:"category_ids"`
	PreferredMode FlexString `json:"preferred_mode,omitempty"`
	ForceRefresh  FlexBool   `json:"force_refresh,omitempty"`
}

type SaveStateParams struct {
	State StateDTO `json:"state"`
}

type SaveGoalsParams struct {
	CategoryIDs FlexIDs  `json:"category_ids"`
	Goals       GoalsDTO `json:"goals"`
}

type FetchAnalyticsParams struct {
	CategoryIDs FlexIDs `json:"category_ids"`
	WindowDays  FlexInt `json:"window_days"`
}

type RemoveQueueActivityParams struct {
	QueueID FlexString `json:"queue_id"`
}

type RecordOutcomesParams struct {
	Outcomes FlexList[OutcomeDTO] `json:"outcomes"`
}

type CategoriesResponse struct {
	Categories FlexList[CategoryDTO] `json:"categories"`
}

type WordsResponse struct {
	WordsByCategory FlexMap[FlexList[WordDTO]] `json:"words_by_category"`
}

type StateResponse struct {
	State StateDTO `json:"state"`
	RecommendationDTO
}

type GoalsResponse struct {
	Goals GoalsDTO `json:"goals"`
	RecommendationDTO
}

type RecordOutcomesResponse struct {
	Recorded FlexInt `json:"recorded"`
}
