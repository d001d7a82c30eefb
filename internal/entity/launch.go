package entity

import (
	"strconv"
	"strings"
)

// StarMode controls how starred words are weighted in a session.
type StarMode string

const (
	StarModeNormal   StarMode = "normal"
	StarModeWeighted StarMode = "weighted"
	StarModeOnly     StarMode = "only"
)

// ParseStarMode falls back to StarModeNormal for unknown values.
func ParseStarMode(raw string) StarMode {
	switch StarMode(strings.ToLower(strings.TrimSpace(raw))) {
	case StarModeWeighted:
		return StarModeWeighted
	case StarModeOnly:
		return StarModeOnly
	default:
		return StarModeNormal
	}
}

// Launch sources recorded on plans.
const (
	SourceManual         = "manual"
	SourceRecommendation = "recommendation"
	SourceChunk          = "chunk"
	SourceRepeat         = "repeat"
	SourceDifferent      = "different"
)

// LaunchPlan is the fully resolved descriptor handed to the quiz runtime.
type LaunchPlan struct {
	Mode                  Mode           `json:"mode"`
	CategoryIDs           []int64        `json:"category_ids"`
	Categories            []Category     `json:"categories"`
	FirstCategoryWords    []Word         `json:"first_category_words"`
	SessionWordIDs        []int64        `json:"session_word_ids"`
	Source                string         `json:"source"`
	SessionStarMode       StarMode       `json:"session_star_mode"`
	FastTransitions       bool           `json:"fast_transitions"`
	Details               map[string]any `json:"details,omitempty"`
	CategoryLabelOverride string         `json:"category_label_override,omitempty"`
	EstimatedResultsTotal int            `json:"estimated_results_total"`
	Chunked               bool           `json:"chunked"`
	ChunkIndex            int            `json:"chunk_index,omitempty"`
	ChunkCount            int            `json:"chunk_count,omitempty"`
}

// LaunchKey identifies a plan for follow-up prefetch bookkeeping.
func (p LaunchPlan) LaunchKey() string {
	var b strings.Builder
	b.WriteString(string(p.Mode))
	b.WriteByte('|')
	writeIDs(&b, SortedIDs(p.CategoryIDs))
	b.WriteByte('|')
	writeIDs(&b, SortedIDs(p.SessionWordIDs))
	b.WriteByte('|')
	b.WriteString(string(p.SessionStarMode))
	return b.String()
}

func writeIDs(b *strings.Builder, ids []int64) {
	for i, id := range ids {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.FormatInt(id, 10))
	}
}

// UserState is the persisted per-wordset selection and starring state.
type UserState struct {
	CategoryIDs     []int64  `json:"category_ids"`
	StarredWordIDs  []int64  `json:"starred_word_ids"`
	StarMode        StarMode `json:"star_mode"`
	FastTransitions bool     `json:"fast_transitions"`
}

// Clone returns a deep copy.
func (s UserState) Clone() UserState {
	out := s
	out.CategoryIDs = append([]int64(nil), s.CategoryIDs...)
	out.StarredWordIDs = append([]int64(nil), s.StarredWordIDs...)
	return out
}

// IsStarred reports whether wordID is in the starred set.
func (s UserState) IsStarred(wordID int64) bool {
	for _, id := range s.StarredWordIDs {
		if id == wordID {
			return true
		}
	}
	return false
}
