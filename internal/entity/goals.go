package entity

import "strings"

// MaxDailyNewWordTarget bounds Goals.DailyNewWordTarget.
const MaxDailyNewWordTarget = 12

// PriorityFocus biases which words are surfaced next.
type PriorityFocus string

const (
	FocusNone    PriorityFocus = ""
	FocusNew     PriorityFocus = "new"
	FocusStudied PriorityFocus = "studied"
	FocusLearned PriorityFocus = "learned"
	FocusStarred PriorityFocus = "starred"
	FocusHard    PriorityFocus = "hard"
)

// ParsePriorityFocus returns FocusNone for unknown values.
func ParsePriorityFocus(raw string) PriorityFocus {
	switch PriorityFocus(strings.ToLower(strings.TrimSpace(raw))) {
	case FocusNew:
		return FocusNew
	case FocusStudied:
		return FocusStudied
	case FocusLearned:
		return FocusLearned
	case FocusStarred:
		return FocusStarred
	case FocusHard:
		return FocusHard
	default:
		return FocusNone
	}
}

// IsWordCriterion reports whether the focus narrows the word list (starred or hard).
func (f PriorityFocus) IsWordCriterion() bool {
	return f == FocusStarred || f == FocusHard
}

// Goals holds per-learner study preferences.
type Goals struct {
	EnabledModes              []Mode        `json:"enabled_modes"`
	IgnoredCategoryIDs        []int64       `json:"ignored_category_ids"`
	PlacementKnownCategoryIDs []int64       `json:"placement_known_category_ids"`
	DailyNewWordTarget        int           `json:"daily_new_word_target"`
	PriorityFocus             PriorityFocus `json:"priority_focus"`
}

// DefaultGoals enables every mode with no ignored categories.
func DefaultGoals() Goals {
	g := Goals{}
	g.Normalize()
	return g
}

// Normalize enforces the goal invariants: at least one enabled mode,
// unique positive category ids, and a bounded daily target.
func (g *Goals) Normalize() {
	modes := make([]Mode, 0, len(g.EnabledModes))
	seen := make(map[Mode]struct{}, len(g.EnabledModes))
	for _, m := range g.EnabledModes {
		m = ParseMode(string(m))
		if m == ModeUnspecified {
			continue
		}
		if _, ok := seen[m]; ok {
			continue
		}
		seen[m] = struct{}{}
		modes = append(modes, m)
	}
	if len(modes) == 0 {
		modes = append(modes, AllModes...)
	}
	g.EnabledModes = modes
	g.IgnoredCategoryIDs = NormalizeIDs(g.IgnoredCategoryIDs)
	g.PlacementKnownCategoryIDs = NormalizeIDs(g.PlacementKnownCategoryIDs)
	if g.DailyNewWordTarget < 0 {
		g.DailyNewWordTarget = 0
	}
	if g.DailyNewWordTarget > MaxDailyNewWordTarget {
		g.DailyNewWordTarget = MaxDailyNewWordTarget
	}
	g.PriorityFocus = ParsePriorityFocus(string(g.PriorityFocus))
}

// ModeEnabled reports whether mode is enabled.
func (g Goals) ModeEnabled(mode Mode) bool {
	for _, m := range g.EnabledModes {
		if m == mode {
			return true
		}
	}
	return false
}

// WithModeToggled returns a copy with mode toggled. The last enabled mode
// cannot be disabled.
func (g Goals) WithModeToggled(mode Mode) Goals {
	out := g.Clone()
	if !out.ModeEnabled(mode) {
		out.EnabledModes = append(out.EnabledModes, mode)
		return out
	}
	if len(out.EnabledModes) <= 1 {
		return out
	}
	kept := make([]Mode, 0, len(out.EnabledModes)-1)
	for _, m := range out.EnabledModes {
		if m != mode {
			kept = append(kept, m)
		}
	}
	out.EnabledModes = kept
	return out
}

// Clone returns a deep copy.
func (g Goals) Clone() Goals {
	out := g
	out.EnabledModes = append([]Mode(nil), g.EnabledModes...)
	out.IgnoredCategoryIDs = append([]int64(nil), g.IgnoredCategoryIDs...)
	out.PlacementKnownCategoryIDs = append([]int64(nil), g.PlacementKnownCategoryIDs...)
	return out
}
