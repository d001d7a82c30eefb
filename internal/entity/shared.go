package entity

import (
	"sort"
	"strings"
)

// Mode identifies a flashcard study mode.
type Mode string

const (
	ModeUnspecified Mode = ""
	ModePractice    Mode = "practice"
	ModeLearning    Mode = "learning"
	ModeListening   Mode = "listening"
	ModeGender      Mode = "gender"
	ModeSelfCheck   Mode = "self-check"
)

// AllModes lists every supported mode in display order.
var AllModes = []Mode{ModePractice, ModeLearning, ModeListening, ModeGender, ModeSelfCheck}

// ParseMode converts an arbitrary string into a supported Mode value.
// Unknown or empty input yields ModeUnspecified.
func ParseMode(raw string) Mode {
	switch strings.ReplaceAll(strings.ToLower(strings.TrimSpace(raw)), "_", "-") {
	case "practice", "quiz":
		return ModePractice
	case "learning", "learn":
		return ModeLearning
	case "listening", "listen":
		return ModeListening
	case "gender":
		return ModeGender
	case "self-check", "selfcheck":
		return ModeSelfCheck
	default:
		return ModeUnspecified
	}
}

// Valid reports whether the mode is one of the supported modes.
func (m Mode) Valid() bool {
	return ParseMode(string(m)) == m && m != ModeUnspecified
}

func (m Mode) String() string { return string(m) }

// NormalizeIDs drops non-positive and duplicate ids while keeping first-seen order.
func NormalizeIDs(ids []int64) []int64 {
	if len(ids) == 0 {
		return []int64{}
	}
	seen := make(map[int64]struct{}, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if id <= 0 {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

// SortedIDs returns a sorted, normalized copy of ids.
func SortedIDs(ids []int64) []int64 {
	out := NormalizeIDs(ids)
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// SameIDSet reports whether a and b contain the same ids regardless of order.
func SameIDSet(a, b []int64) bool {
	left, right := SortedIDs(a), SortedIDs(b)
	if len(left) != len(right) {
		return false
	}
	for i := range left {
		if left[i] != right[i] {
			return false
		}
	}
	return true
}

// IDSet builds a lookup set from ids.
func IDSet(ids []int64) map[int64]struct{} {
	set := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}
