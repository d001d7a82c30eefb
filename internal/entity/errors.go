package entity

import "errors"

// Domain errors for study selection and launching.
var (
	ErrNoCategoriesSelected = errors.New("no categories selected")
	ErrTooFewLearningWords  = errors.New("not enough words for a learning session")
	ErrUnknownMode          = errors.New("unknown study mode")
	ErrInvalidWordsetID     = errors.New("invalid wordset ID")
	ErrNothingToContinue    = errors.New("no chunked session to continue")
	ErrNoPreviousLaunch     = errors.New("no previous launch to repeat")
	ErrEmptyQueue           = errors.New("recommendation queue is empty")
	ErrCategoryNotFound     = errors.New("category not found")
)

// SelectionErrorKind distinguishes the empty-selection notices shown to the learner.
type SelectionErrorKind string

const (
	SelectionEmpty        SelectionErrorKind = "empty"
	SelectionStarredEmpty SelectionErrorKind = "starred-empty"
	SelectionHardEmpty    SelectionErrorKind = "hard-empty"
)

// SelectionError reports that a filter left no words in the resolved categories.
type SelectionError struct {
	Kind        SelectionErrorKind
	CategoryIDs []int64
}

func (e *SelectionError) Error() string {
	switch e.Kind {
	case SelectionStarredEmpty:
		return "no starred words in the selected categories"
	case SelectionHardEmpty:
		return "no hard words in the selected categories"
	default:
		return "no words in the selected categories"
	}
}

// IsSelectionError reports whether err is a selection error and returns it.
func IsSelectionError(err error) (*SelectionError, bool) {
	var selErr *SelectionError
	if errors.As(err, &selErr) {
		return selErr, true
	}
	return nil, false
}
