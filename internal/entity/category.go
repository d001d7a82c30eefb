package entity

import "strings"

// Category groups words that share presentation metadata.
type Category struct {
	ID                int64  `json:"id"`
	Slug              string `json:"slug"`
	Name              string `json:"name"`
	Translation       string `json:"translation,omitempty"`
	AspectBucket      string `json:"aspect_bucket"`
	PromptType        string `json:"prompt_type"`
	OptionType        string `json:"option_type"`
	LearningSupported bool   `json:"learning_supported"`
	GenderSupported   bool   `json:"gender_supported"`
	Hidden            bool   `json:"hidden"`
	WordCount         int    `json:"word_count"`
}

// CompatibilityKey groups categories that render consistently in one session.
// Learning sessions also require the same prompt and option types.
func (c Category) CompatibilityKey(mode Mode) string {
	bucket := strings.TrimSpace(c.AspectBucket)
	if mode != ModeLearning {
		return bucket
	}
	return bucket + "|" + strings.TrimSpace(c.PromptType) + "->" + strings.TrimSpace(c.OptionType)
}

// SupportsMode reports whether the category can be studied in mode.
func (c Category) SupportsMode(mode Mode) bool {
	switch mode {
	case ModeLearning:
		return c.LearningSupported
	case ModeGender:
		return c.GenderSupported
	default:
		return true
	}
}

// DisplayName prefers the translated name when present.
func (c Category) DisplayName() string {
	if t := strings.TrimSpace(c.Translation); t != "" {
		return t
	}
	return c.Name
}
