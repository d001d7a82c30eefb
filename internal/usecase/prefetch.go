package usecase

import (
	"context"
	"math"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/eslsoft/flashdeck/internal/entity"
)

const (
	DefaultPrefetchRatio = 0.8
	// DefaultPrefetchFallback is the answered-word threshold when the round size is unknown.
	DefaultPrefetchFallback = 8
)

// PrefetchFunc fetches the follow-up recommendation for a finished plan.
type PrefetchFunc func(ctx context.Context, plan entity.LaunchPlan) (entity.RecommendationResult, error)

// PrefetchThreshold returns the answered-word count that triggers an
// implicit prefetch.
func PrefetchThreshold(estimatedTotal int, ratio float64, fallback int) int {
	if ratio <= 0 || ratio > 1 {
		ratio = DefaultPrefetchRatio
	}
	if fallback <= 0 {
		fallback = DefaultPrefetchFallback
	}
	if estimatedTotal <= 0 {
		return fallback
	}
	return max(1, int(math.Ceil(float64(estimatedTotal)*ratio)))
}

// PrefetchSnapshot is a read-only view of a PrefetchState.
type PrefetchSnapshot struct {
	LaunchKey      string
	ThresholdCount int
	AnsweredCount  int
	CorrectCount   int
	Ready          bool
	Failed         bool
	InFlight       bool
}

// PrefetchState is the follow-up bookkeeping of one launch. It is never
// shared between launches.
type PrefetchState struct {
	LaunchKey      string
	Mode           entity.Mode
	Chunked        bool
	EstimatedTotal int
	ThresholdCount int

	plan entity.LaunchPlan

	mu       sync.Mutex
	answered map[int64]struct{}
	correct  int
	ready    bool
	failed   bool
	result   entity.RecommendationResult
	inflight *prefetchCall
}

type prefetchCall struct {
	done   chan struct{}
	result entity.RecommendationResult
	err    error
}

// Snapshot returns the current counters and flags.
func (s *PrefetchState) Snapshot() PrefetchSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return PrefetchSnapshot{
		LaunchKey:      s.LaunchKey,
		ThresholdCount: s.ThresholdCount,
		AnsweredCount:  len(s.answered),
		CorrectCount:   s.correct,
		Ready:          s.ready,
		Failed:         s.failed,
		InFlight:       s.inflight != nil,
	}
}

// Result returns the prefetched recommendation once ready.
func (s *PrefetchState) Result() (entity.RecommendationResult, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.result, s.ready
}

// start joins the in-flight fetch or begins a new one.
func (s *PrefetchState) start(ctx context.Context, fetch PrefetchFunc, logger logrus.FieldLogger) *prefetchCall {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.inflight != nil {
		return s.inflight
	}
	call := &prefetchCall{done: make(chan struct{})}
	s.inflight = call
	s.failed = false
	go func() {
		res, err := fetch(ctx, s.plan)
		s.mu.Lock()
		s.inflight = nil
		if err != nil {
			s.failed = true
			logger.WithError(err).WithField("launch_key", s.LaunchKey).Warn("follow-up prefetch failed")
		} else {
			s.ready = true
			s.result = res
		}
		s.mu.Unlock()
		call.result, call.err = res, err
		close(call.done)
	}()
	return call
}

// FollowupPrefetcher owns the prefetch state of the current launch.
type FollowupPrefetcher struct {
	fetch    PrefetchFunc
	ratio    float64
	fallback int
	logger   logrus.FieldLogger

	mu      sync.Mutex
	current *PrefetchState
}

// NewFollowupPrefetcher builds a prefetcher; non-positive ratio or
// fallback use the defaults.
func NewFollowupPrefetcher(fetch PrefetchFunc, ratio float64, fallback int, logger logrus.FieldLogger) *FollowupPrefetcher {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &FollowupPrefetcher{fetch: fetch, ratio: ratio, fallback: fallback, logger: logger}
}

// Begin replaces the current state with a fresh one for plan. Re-launching
// an identical plan still yields a new state.
func (p *FollowupPrefetcher) Begin(plan entity.LaunchPlan) *PrefetchState {
	state := &PrefetchState{
		LaunchKey:      plan.LaunchKey(),
		Mode:           plan.Mode,
		Chunked:        plan.Chunked,
		EstimatedTotal: plan.EstimatedResultsTotal,
		ThresholdCount: PrefetchThreshold(plan.EstimatedResultsTotal, p.ratio, p.fallback),
		plan:           plan,
		answered:       map[int64]struct{}{},
	}
	p.mu.Lock()
	p.current = state
	p.mu.Unlock()
	return state
}

// Current returns the state of the active launch, or nil.
func (p *FollowupPrefetcher) Current() *PrefetchState {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.current
}

// Discard drops the current state.
func (p *FollowupPrefetcher) Discard() {
	p.mu.Lock()
	p.current = nil
	p.mu.Unlock()
}

// RecordOutcome counts an answered word and starts a background prefetch
// once the threshold is reached. It reports whether a prefetch started.
func (p *FollowupPrefetcher) RecordOutcome(ctx context.Context, wordID int64, correct bool) bool {
	state := p.Current()
	if state == nil {
		return false
	}
	state.mu.Lock()
	if _, seen := state.answered[wordID]; !seen && wordID > 0 {
		state.answered[wordID] = struct{}{}
		if correct {
			state.correct++
		}
	}
	trigger := !state.ready && !state.failed && state.inflight == nil &&
		len(state.answered) >= state.ThresholdCount
	state.mu.Unlock()
	if !trigger {
		return false
	}
	state.start(context.WithoutCancel(ctx), p.fetch, p.logger)
	return true
}

// Request returns the follow-up recommendation of the current launch,
// reusing a ready result, joining an in-flight fetch, or starting one.
// A failed prefetch is retried here.
func (p *FollowupPrefetcher) Request(ctx context.Context) (entity.RecommendationResult, error) {
	state := p.Current()
	if state == nil {
		return entity.RecommendationResult{}, entity.ErrNoPreviousLaunch
	}
	if res, ok := state.Result(); ok {
		return res, nil
	}
	call := state.start(context.WithoutCancel(ctx), p.fetch, p.logger)
	select {
	case <-call.done:
		return call.result, call.err
	case <-ctx.Done():
		return entity.RecommendationResult{}, ctx.Err()
	}
}
