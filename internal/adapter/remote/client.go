// Package remote talks to a study backend over its form/JSON action protocol.
package remote

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/samber/lo"
	"github.com/sirupsen/logrus"

	"github.com/eslsoft/flashdeck/internal/adapter/mapping"
	"github.com/eslsoft/flashdeck/internal/entity"
	"github.com/eslsoft/flashdeck/internal/repository"
)

const (
	defaultTimeout = 15 * time.Second
	maxBodyBytes   = 8 << 20
)

// ErrMissingEndpoint is returned when no backend endpoint is configured.
var ErrMissingEndpoint = errors.New("backend endpoint is required")

// Config configures the remote backend client.
type Config struct {
	Endpoint string
	Nonce    string
	Timeout  time.Duration
}

// Client implements repository.StudyBackend over HTTP.
type Client struct {
	endpoint string
	nonce    string
	http     *http.Client
	logger   logrus.FieldLogger
}

var _ repository.StudyBackend = (*Client)(nil)

// Option customises the client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// New builds a client for cfg.Endpoint.
func New(cfg Config, logger logrus.FieldLogger, opts ...Option) (*Client, error) {
	endpoint := strings.TrimSpace(cfg.Endpoint)
	if endpoint == "" {
		return nil, ErrMissingEndpoint
	}
	if _, err := url.ParseRequestURI(endpoint); err != nil {
		return nil, fmt.Errorf("parse backend endpoint: %w", err)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	c := &Client{
		endpoint: endpoint,
		nonce:    cfg.Nonce,
		http:     &http.Client{Timeout: cfg.Timeout},
		logger:   logger.WithField("component", "remote_backend"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func (c *Client) FetchCategories(ctx context.Context, wordsetID int64) ([]entity.Category, error) {
	var resp mapping.CategoriesResponse
	if err := c.call(ctx, mapping.ActionFetchCategories, wordsetID, nil, &resp); err != nil {
		return nil, err
	}
	return mapping.ToCategories(resp.Categories), nil
}

func (c *Client) FetchWordsByCategories(ctx context.Context, wordsetID int64, categoryIDs []int64) (map[int64][]entity.Word, error) {
	params := mapping.FetchWordsParams{CategoryIDs: entity.NormalizeIDs(categoryIDs)}
	var resp mapping.WordsResponse
	if err := c.call(ctx, mapping.ActionFetchWords, wordsetID, params, &resp); err != nil {
		return nil, err
	}
	return mapping.ToWordsByCategory(resp.WordsByCategory), nil
}

func (c *Client) FetchRecommendation(ctx context.Context, query repository.RecommendationQuery) (entity.RecommendationResult, error) {
	params := mapping.FetchRecommendationParams{
		CategoryIDs:   entity.NormalizeIDs(query.CategoryIDs),
		PreferredMode: mapping.FlexString(query.PreferredMode),
		ForceRefresh:  mapping.FlexBool(query.ForceRefresh),
	}
	var resp mapping.RecommendationDTO
	if err := c.call(ctx, mapping.ActionFetchRecommendation, query.WordsetID, params, &resp); err != nil {
		return entity.RecommendationResult{}, err
	}
	return mapping.ToRecommendation(resp), nil
}

func (c *Client) SaveUserState(ctx context.Context, wordsetID int64, state entity.UserState) (repository.StateResult, error) {
	params := mapping.SaveStateParams{State: mapping.FromUserState(state)}
	var resp mapping.StateResponse
	if err := c.call(ctx, mapping.ActionSaveState, wordsetID, params, &resp); err != nil {
		return repository.StateResult{}, err
	}
	return repository.StateResult{
		State:                mapping.ToUserState(resp.State),
		RecommendationResult: mapping.ToRecommendation(resp.RecommendationDTO),
	}, nil
}

func (c *Client) SaveGoals(ctx context.Context, wordsetID int64, categoryIDs []int64, goals entity.Goals) (repository.GoalsResult, error) {
	params := mapping.SaveGoalsParams{
		CategoryIDs: entity.NormalizeIDs(categoryIDs),
		Goals:       mapping.FromGoals(goals),
	}
	var resp mapping.GoalsResponse
	if err := c.call(ctx, mapping.ActionSaveGoals, wordsetID, params, &resp); err != nil {
		return repository.GoalsResult{}, err
	}
	return repository.GoalsResult{
		Goals:                mapping.ToGoals(resp.Goals),
		RecommendationResult: mapping.ToRecommendation(resp.RecommendationDTO),
	}, nil
}

func (c *Client) FetchAnalytics(ctx context.Context, wordsetID int64, categoryIDs []int64, windowDays int) (entity.Analytics, error) {
	params := mapping.FetchAnalyticsParams{
		CategoryIDs: entity.NormalizeIDs(categoryIDs),
		WindowDays:  mapping.FlexInt(windowDays),
	}
	var resp mapping.AnalyticsDTO
	if err := c.call(ctx, mapping.ActionFetchAnalytics, wordsetID, params, &resp); err != nil {
		return entity.Analytics{}, err
	}
	return mapping.ToAnalytics(resp), nil
}

func (c *Client) RemoveQueueActivity(ctx context.Context, wordsetID int64, queueID string) (entity.RecommendationResult, error) {
	params := mapping.RemoveQueueActivityParams{QueueID: mapping.FlexString(queueID)}
	var resp mapping.RecommendationDTO
	if err := c.call(ctx, mapping.ActionRemoveQueueActivity, wordsetID, params, &resp); err != nil {
		return entity.RecommendationResult{}, err
	}
	return mapping.ToRecommendation(resp), nil
}

func (c *Client) RecordWordOutcomes(ctx context.Context, wordsetID int64, outcomes []entity.WordOutcome) error {
	outcomes = lo.Filter(outcomes, func(o entity.WordOutcome, _ int) bool { return o.WordID > 0 })
	if len(outcomes) == 0 {
		return nil
	}
	params := mapping.RecordOutcomesParams{Outcomes: mapping.FromOutcomes(outcomes)}
	return c.call(ctx, mapping.ActionRecordOutcomes, wordsetID, params, nil)
}

// call posts one action and decodes the envelope payload into out.
func (c *Client) call(ctx context.Context, action string, wordsetID int64, params, out any) error {
	if wordsetID <= 0 {
		return entity.ErrInvalidWordsetID
	}
	form := url.Values{}
	form.Set(mapping.FieldAction, action)
	form.Set(mapping.FieldWordsetID, strconv.FormatInt(wordsetID, 10))
	if c.nonce != "" {
		form.Set(mapping.FieldNonce, c.nonce)
	}
	if params != nil {
		raw, err := json.Marshal(params)
		if err != nil {
			return fmt.Errorf("encode %s params: %w", action, err)
		}
		form.Set(mapping.FieldParams, string(raw))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("build %s request: %w", action, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", action, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return fmt.Errorf("%s: read response: %w", action, err)
	}
	c.logger.WithFields(logrus.Fields{
		"action":      action,
		"wordset_id":  wordsetID,
		"status":      resp.StatusCode,
		"duration_ms": time.Since(start).Milliseconds(),
	}).Debug("backend call")

	if err := mapping.DecodeEnvelope(body, out); err != nil {
		if resp.StatusCode >= http.StatusBadRequest && errors.Is(err, mapping.ErrMalformedEnvelope) {
			return fmt.Errorf("%s: unexpected status %d", action, resp.StatusCode)
		}
		return fmt.Errorf("%s: %w", action, err)
	}
	return nil
}
