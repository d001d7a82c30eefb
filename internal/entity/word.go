package entity

import (
	"strings"
	"time"
)

const (
	// DefaultHardThreshold is the minimum difficulty score for a studied word to count as hard.
	DefaultHardThreshold = 4.0
	// LearnedCoverage is the coverage at which a low-difficulty word counts as learned.
	LearnedCoverage = 3
)

const learnedMaxDifficulty = 2.0

// WordStatus is the derived progress state of a word.
type WordStatus string

const (
	WordStatusNew     WordStatus = "new"
	WordStatusStudied WordStatus = "studied"
	WordStatusLearned WordStatus = "learned"
)

// Word is a single study item. It may belong to several categories.
type Word struct {
	ID              int64      `json:"id"`
	Title           string     `json:"title"`
	Translation     string     `json:"translation"`
	ImageURL        string     `json:"image_url,omitempty"`
	AudioFiles      []string   `json:"audio_files,omitempty"`
	CategoryIDs     []int64    `json:"category_ids"`
	DifficultyScore float64    `json:"difficulty_score"`
	TotalCoverage   int        `json:"total_coverage"`
	IncorrectCount  int        `json:"incorrect_count"`
	LastSeenAt      *time.Time `json:"last_seen_at,omitempty"`
	IsStarred       bool       `json:"is_starred"`
}

// Status derives the progress state from coverage and difficulty.
func (w Word) Status() WordStatus {
	switch {
	case w.TotalCoverage <= 0:
		return WordStatusNew
	case w.TotalCoverage >= LearnedCoverage && w.DifficultyScore < learnedMaxDifficulty:
		return WordStatusLearned
	default:
		return WordStatusStudied
	}
}

// IsHard reports whether the word is studied and at or above threshold.
// A non-positive threshold falls back to DefaultHardThreshold.
func (w Word) IsHard(threshold float64) bool {
	if threshold <= 0 {
		threshold = DefaultHardThreshold
	}
	return w.Status() == WordStatusStudied && w.DifficultyScore >= threshold
}

// ParseWordStatus converts a raw status string, returning "" for unknown values.
func ParseWordStatus(raw string) WordStatus {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "new":
		return WordStatusNew
	case "studied":
		return WordStatusStudied
	case "learned":
		return WordStatusLearned
	default:
		return ""
	}
}

// WordOutcome is one answered card reported by the quiz runtime.
type WordOutcome struct {
	WordID     int64     `json:"word_id"`
	Mode       Mode      `json:"mode"`
	Correct    bool      `json:"correct"`
	AnsweredAt time.Time `json:"answered_at"`
}

// ApplyOutcome folds an answered card into the word's progress counters.
// Correct answers lower the difficulty score by one, misses raise it by two.
func (w *Word) ApplyOutcome(o WordOutcome) {
	w.TotalCoverage++
	if o.Correct {
		w.DifficultyScore--
		if w.DifficultyScore < 0 {
			w.DifficultyScore = 0
		}
	} else {
		w.IncorrectCount++
		w.DifficultyScore += 2
	}
	if !o.AnsweredAt.IsZero() {
		at := o.AnsweredAt
		w.LastSeenAt = &at
	}
}
