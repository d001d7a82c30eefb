package usecase

import (
	"fmt"
	"strings"
	"time"

	"github.com/samber/lo"

	"github.com/eslsoft/flashdeck/internal/entity"
	"github.com/eslsoft/flashdeck/pkg/filterexpr"
)

// WordCriteria is an optional word predicate parsed from a filter expression.
type WordCriteria struct {
	Statuses      []string
	MinDifficulty *float64
	MaxDifficulty *float64
	Starred       *bool
	TitlePrefix   *string
	SeenAfter     *time.Time
}

var wordCriteriaSchema = filterexpr.Schema{
	Fields: map[string]filterexpr.FieldRule{
		"status": {
			Kind: filterexpr.KindString,
			Ops:  map[filterexpr.Op]string{filterexpr.OpEQ: "Statuses", filterexpr.OpIN: "Statuses"},
		},
		"difficulty": {
			Kind: filterexpr.KindNumber,
			Ops:  map[filterexpr.Op]string{filterexpr.OpGTE: "MinDifficulty", filterexpr.OpLTE: "MaxDifficulty"},
		},
		"starred": {
			Kind: filterexpr.KindBool,
			Ops:  map[filterexpr.Op]string{filterexpr.OpEQ: "Starred"},
		},
		"title": {
			Kind: filterexpr.KindString,
			Ops:  map[filterexpr.Op]string{filterexpr.OpSW: "TitlePrefix"},
		},
		"last_seen": {
			Kind: filterexpr.KindTimestamp,
			Ops:  map[filterexpr.Op]string{filterexpr.OpGTE: "SeenAfter"},
		},
	},
}

// ParseWordCriteria returns nil for an empty expression.
func ParseWordCriteria(expr string) (*WordCriteria, error) {
	if strings.TrimSpace(expr) == "" {
		return nil, nil
	}
	var c WordCriteria
	if err := filterexpr.Bind(expr, &c, wordCriteriaSchema); err != nil {
		return nil, fmt.Errorf("word filter: %w", err)
	}
	for i, s := range c.Statuses {
		status := entity.ParseWordStatus(s)
		if status == "" {
			return nil, fmt.Errorf("word filter: unknown status %q", s)
		}
		c.Statuses[i] = string(status)
	}
	return &c, nil
}

// Matches reports whether w satisfies every bound predicate.
func (c *WordCriteria) Matches(w entity.Word, starred bool) bool {
	if c == nil {
		return true
	}
	if len(c.Statuses) > 0 && !lo.Contains(c.Statuses, string(w.Status())) {
		return false
	}
	if c.MinDifficulty != nil && w.DifficultyScore < *c.MinDifficulty {
		return false
	}
	if c.MaxDifficulty != nil && w.DifficultyScore > *c.MaxDifficulty {
		return false
	}
	if c.Starred != nil && starred != *c.Starred {
		return false
	}
	if c.TitlePrefix != nil && !strings.HasPrefix(strings.ToLower(w.Title), strings.ToLower(*c.TitlePrefix)) {
		return false
	}
	if c.SeenAfter != nil && (w.LastSeenAt == nil || w.LastSeenAt.Before(*c.SeenAfter)) {
		return false
	}
	return true
}
