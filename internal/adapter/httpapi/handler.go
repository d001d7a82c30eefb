// Package httpapi serves the study backend action protocol over HTTP.
package httpapi

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/eslsoft/flashdeck/internal/adapter/mapping"
	"github.com/eslsoft/flashdeck/internal/entity"
	"github.com/eslsoft/flashdeck/internal/repository"
)

const maxFormBytes = 4 << 20

type actionFunc func(ctx context.Context, wordsetID int64, params json.RawMessage) (any, error)

// Handler dispatches action requests to a StudyBackend.
type Handler struct {
	backend repository.StudyBackend
	nonce   string
	logger  logrus.FieldLogger
	actions map[string]actionFunc
}

var _ http.Handler = (*Handler)(nil)

// NewHandler builds a handler. An empty nonce disables nonce checks.
func NewHandler(backend repository.StudyBackend, nonce string, logger logrus.FieldLogger) *Handler {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	h := &Handler{backend: backend, nonce: nonce, logger: logger.WithField("component", "httpapi")}
	h.actions = map[string]actionFunc{
		mapping.ActionFetchCategories:     h.fetchCategories,
		mapping.ActionFetchWords:          h.fetchWords,
		mapping.ActionFetchRecommendation: h.fetchRecommendation,
		mapping.ActionSaveState:           h.saveState,
		mapping.ActionSaveGoals:           h.saveGoals,
		mapping.ActionFetchAnalytics:      h.fetchAnalytics,
		mapping.ActionRemoveQueueActivity: h.removeQueueActivity,
		mapping.ActionRecordOutcomes:      h.recordOutcomes,
	}
	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxFormBytes)
	if err := r.ParseForm(); err != nil {
		h.fail(w, r, "", fmt.Errorf("%w: %v", mapping.ErrInvalidArgument, err))
		return
	}

	action := strings.TrimSpace(r.PostFormValue(mapping.FieldAction))
	if h.nonce != "" && subtle.ConstantTimeCompare([]byte(r.PostFormValue(mapping.FieldNonce)), []byte(h.nonce)) != 1 {
		h.fail(w, r, action, mapping.ErrForbidden)
		return
	}
	fn, ok := h.actions[action]
	if !ok {
		h.fail(w, r, action, fmt.Errorf("%w: %q", mapping.ErrUnknownAction, action))
		return
	}
	wordsetID, err := strconv.ParseInt(strings.TrimSpace(r.PostFormValue(mapping.FieldWordsetID)), 10, 64)
	if err != nil || wordsetID <= 0 {
		h.fail(w, r, action, entity.ErrInvalidWordsetID)
		return
	}

	params := json.RawMessage(r.PostFormValue(mapping.FieldParams))
	if len(params) == 0 {
		params = json.RawMessage("{}")
	}
	data, err := fn(r.Context(), wordsetID, params)
	if err != nil {
		h.fail(w, r, action, err)
		return
	}
	body, err := mapping.Success(data)
	if err != nil {
		h.fail(w, r, action, err)
		return
	}
	writeJSON(w, http.StatusOK, body)
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, action string, err error) {
	body, status := mapping.Failure(err)
	entry := h.logger.WithFields(logrus.Fields{"action": action, "status": status, "path": r.URL.Path}).WithError(err)
	if status >= http.StatusInternalServerError {
		entry.Error("action failed")
	} else {
		entry.Warn("action rejected")
	}
	writeJSON(w, status, body)
}

func writeJSON(w http.ResponseWriter, status int, body []byte) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

// decodeParams decodes lenient params. Malformed JSON is an invalid argument.
func decodeParams(raw json.RawMessage, out any) error {
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("%w: decode params: %v", mapping.ErrInvalidArgument, err)
	}
	return nil
}

func (h *Handler) fetchCategories(ctx context.Context, wordsetID int64, _ json.RawMessage) (any, error) {
	categories, err := h.backend.FetchCategories(ctx, wordsetID)
	if err != nil {
		return nil, err
	}
	resp := mapping.CategoriesResponse{Categories: make([]mapping.CategoryDTO, 0, len(categories))}
	for _, c := range categories {
		resp.Categories = append(resp.Categories, mapping.FromCategory(c))
	}
	return resp, nil
}

func (h *Handler) fetchWords(ctx context.Context, wordsetID int64, raw json.RawMessage) (any, error) {
	var params mapping.FetchWordsParams
	if err := decodeParams(raw, &params); err != nil {
		return nil, err
	}
	words, err := h.backend.FetchWordsByCategories(ctx, wordsetID, params.CategoryIDs)
	if err != nil {
		return nil, err
	}
	return mapping.WordsResponse{WordsByCategory: mapping.FromWordsByCategory(words)}, nil
}

func (h *Handler) fetchRecommendation(ctx context.Context, wordsetID int64, raw json.RawMessage) (any, error) {
	var params mapping.FetchRecommendationParams
	if err := decodeParams(raw, &params); err != nil {
		return nil, err
	}
	res, err := h.backend.FetchRecommendation(ctx, repository.RecommendationQuery{
		WordsetID:     wordsetID,
		CategoryIDs:   params.CategoryIDs,
		PreferredMode: entity.ParseMode(string(params.PreferredMode)),
		ForceRefresh:  bool(params.ForceRefresh),
	})
	if err != nil {
		return nil, err
	}
	return mapping.FromRecommendation(res), nil
}

func (h *Handler) saveState(ctx context.Context, wordsetID int64, raw json.RawMessage) (any, error) {
	var params mapping.SaveStateParams
	if err := decodeParams(raw, &params); err != nil {
		return nil, err
	}
	res, err := h.backend.SaveUserState(ctx, wordsetID, mapping.ToUserState(params.State))
	if err != nil {
		return nil, err
	}
	return mapping.StateResponse{
		State:             mapping.FromUserState(res.State),
		RecommendationDTO: mapping.FromRecommendation(res.RecommendationResult),
	}, nil
}

func (h *Handler) saveGoals(ctx context.Context, wordsetID int64, raw json.RawMessage) (any, error) {
	var params mapping.SaveGoalsParams
	if err := decodeParams(raw, &params); err != nil {
		return nil, err
	}
	res, err := h.backend.SaveGoals(ctx, wordsetID, params.CategoryIDs, mapping.ToGoals(params.Goals))
	if err != nil {
		return nil, err
	}
	return mapping.GoalsResponse{
		Goals:             mapping.FromGoals(res.Goals),
		RecommendationDTO: mapping.FromRecommendation(res.RecommendationResult),
	}, nil
}

func (h *Handler) fetchAnalytics(ctx context.Context, wordsetID int64, raw json.RawMessage) (any, error) {
	var params mapping.FetchAnalyticsParams
	if err := decodeParams(raw, &params); err != nil {
		return nil, err
	}
	analytics, err := h.backend.FetchAnalytics(ctx, wordsetID, params.CategoryIDs, int(params.WindowDays))
	if err != nil {
		return nil, err
	}
	return mapping.FromAnalytics(analytics), nil
}

func (h *Handler) removeQueueActivity(ctx context.Context, wordsetID int64, raw json.RawMessage) (any, error) {
	var params mapping.RemoveQueueActivityParams
	if err := decodeParams(raw, &params); err != nil {
		return nil, err
	}
	if params.QueueID == "" {
		return nil, fmt.Errorf("%w: queue_id is required", mapping.ErrInvalidArgument)
	}
	res, err := h.backend.RemoveQueueActivity(ctx, wordsetID, string(params.QueueID))
	if err != nil {
		return nil, err
	}
	return mapping.FromRecommendation(res), nil
}

func (h *Handler) recordOutcomes(ctx context.Context, wordsetID int64, raw json.RawMessage) (any, error) {
	var params mapping.RecordOutcomesParams
	if err := decodeParams(raw, &params); err != nil {
		return nil, err
	}
	outcomes := mapping.ToOutcomes(params.Outcomes)
	if err := h.backend.RecordWordOutcomes(ctx, wordsetID, outcomes); err != nil {
		return nil, err
	}
	return mapping.RecordOutcomesResponse{Recorded: mapping.FlexInt(len(outcomes))}, nil
}
