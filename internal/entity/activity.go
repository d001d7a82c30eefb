package entity

// RecommendationActivity is one "next activity" suggested by the recommender.
type RecommendationActivity struct {
	Mode           Mode           `json:"mode"`
	CategoryIDs    []int64        `json:"category_ids"`
	SessionWordIDs []int64        `json:"session_word_ids,omitempty"`
	Type           string         `json:"type,omitempty"`
	ReasonCode     string         `json:"reason_code,omitempty"`
	QueueID        string         `json:"queue_id,omitempty"`
	Details        map[string]any `json:"details,omitempty"`
}

// SameTarget reports whether two activities share mode and category set.
func (a RecommendationActivity) SameTarget(other RecommendationActivity) bool {
	return ParseMode(string(a.Mode)) == ParseMode(string(other.Mode)) &&
		SameIDSet(a.CategoryIDs, other.CategoryIDs)
}

// RecommendationResult is the recommender's answer: the chosen next activity
// and the full queue it came from.
type RecommendationResult struct {
	NextActivity *RecommendationActivity  `json:"next_activity,omitempty"`
	Queue        []RecommendationActivity `json:"recommendation_queue"`
}

// HasQueue reports whether the result carried queue data.
func (r RecommendationResult) HasQueue() bool {
	return r.NextActivity != nil || r.Queue != nil
}
