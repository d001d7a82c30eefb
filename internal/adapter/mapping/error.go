package mapping

import (
	"errors"
	"net/http"

	"github.com/eslsoft/flashdeck/internal/entity"
)

// Error codes carried in failed envelopes.
const (
	CodeInvalidArgument = "invalid_argument"
	CodeNotFound        = "not_found"
	CodeEmptySelection  = "empty_selection"
	CodeUnknownAction   = "unknown_action"
	CodeForbidden       = "forbidden"
	CodeInternal        = "internal"
)

// ErrInvalidArgument is returned for malformed request parameters.
var ErrInvalidArgument = errors.New("invalid argument")

// ErrUnknownAction is returned for actions the server does not handle.
var ErrUnknownAction = errors.New("unknown action")

// ErrForbidden is returned when the request nonce does not match.
var ErrForbidden = errors.New("invalid nonce")

// ErrorCode maps a domain error to its envelope code and HTTP status.
func ErrorCode(err error) (string, int) {
	switch {
	case err == nil:
		return "", http.StatusOK
	case errors.Is(err, ErrInvalidArgument), errors.Is(err, entity.ErrInvalidWordsetID), errors.Is(err, entity.ErrUnknownMode):
		return CodeInvalidArgument, http.StatusBadRequest
	case errors.Is(err, entity.ErrCategoryNotFound):
		return CodeNotFound, http.StatusNotFound
	case errors.Is(err, entity.ErrNoCategoriesSelected), errors.Is(err, entity.ErrTooFewLearningWords):
		return CodeEmptySelection, http.StatusUnprocessableEntity
	case errors.Is(err, ErrUnknownAction):
		return CodeUnknownAction, http.StatusBadRequest
	case errors.Is(err, ErrForbidden):
		return CodeForbidden, http.StatusForbidden
	}
	if _, ok := entity.IsSelectionError(err); ok {
		return CodeEmptySelection, http.StatusUnprocessableEntity
	}
	return CodeInternal, http.StatusInternalServerError
}

// codeError returns the sentinel a code stands for, if any.
func codeError(code string) error {
	switch code {
	case CodeInvalidArgument:
		return ErrInvalidArgument
	case CodeNotFound:
		return entity.ErrCategoryNotFound
	case CodeEmptySelection:
		return entity.ErrNoCategoriesSelected
	case CodeUnknownAction:
		return ErrUnknownAction
	case CodeForbidden:
		return ErrForbidden
	default:
		return nil
	}
}
