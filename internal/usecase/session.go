package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/eslsoft/flashdeck/internal/entity"
	"github.com/eslsoft/flashdeck/internal/repository"
)

// NoticeKind classifies learner-facing error notices.
type NoticeKind string

const (
	NoticeNoCategories   NoticeKind = "no-categories"
	NoticeNoWords        NoticeKind = "no-words"
	NoticeNoStarredWords NoticeKind = "no-starred-words"
	NoticeNoHardWords    NoticeKind = "no-hard-words"
	NoticeTooFewWords    NoticeKind = "too-few-words"
	NoticeInvalidLaunch  NoticeKind = "invalid-launch"
	NoticeSaveFailed     NoticeKind = "save-failed"
	NoticeLoadFailed     NoticeKind = "load-failed"
)

const (
	saveFailedMessage  = "Unable to save right now. Please try again."
	loadFailedMessage  = "Unable to load right now. Please try again."
	defaultSaveTimeout = 10 * time.Second
)

// Notifier surfaces errors to the learner.
type Notifier interface {
	NotifyError(kind NoticeKind, message string)
}

// NopNotifier discards notices.
type NopNotifier struct{}

func (NopNotifier) NotifyError(NoticeKind, string) {}

// SessionConfig tunes a Session.
type SessionConfig struct {
	WordsetID            int64
	ChunkSize            int
	LearningMinChunkSize int
	HardThreshold        float64
	PrefetchRatio        float64
	PrefetchFallback     int
	SaveDebounce         time.Duration
	SaveTimeout          time.Duration
}

// QuizEventKind names an event emitted by the quiz runtime.
type QuizEventKind string

const (
	QuizOpened            QuizEventKind = "opened"
	QuizResultsShown      QuizEventKind = "resultsShown"
	QuizWordOutcomeQueued QuizEventKind = "wordOutcomeQueued"
	QuizClosed            QuizEventKind = "closed"
)

// QuizEvent is one progress event from the quiz runtime.
type QuizEvent struct {
	Kind         QuizEventKind
	Mode         entity.Mode
	WordID       int64
	Correct      bool
	Total        int
	CorrectCount int
}

// ChunkProgress reports the position inside a multi-chunk launch.
type ChunkProgress struct {
	Index int
	Total int
}

// Session is the study orchestrator of one wordset. All state lives here
// and every exported method is safe for concurrent use.
type Session struct {
	backend  repository.StudyBackend
	catalog  *Catalog
	emitter  *LaunchEmitter
	prefetch *FollowupPrefetcher
	notifier Notifier
	logger   logrus.FieldLogger
	cfg      SessionConfig
	now      func() time.Time

	mu          sync.Mutex
	state       entity.UserState
	goals       entity.Goals
	queue       *RecommendationQueue
	next        *entity.RecommendationActivity
	lastLaunch  *entity.LaunchPlan
	lastRequest *LaunchRequest
	chunk       *ChunkSession
	analytics   *entity.Analytics
	activeMode  entity.Mode
	outcomes    []entity.WordOutcome

	recGen       Generation
	goalsGen     Generation
	analyticsGen Generation
	saveState    *Debouncer
}

// NewSession builds a session for cfg.WordsetID. A nil notifier discards
// notices.
func NewSession(backend repository.StudyBackend, notifier Notifier, logger logrus.FieldLogger, cfg SessionConfig) *Session {
	if notifier == nil {
		notifier = NopNotifier{}
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	if cfg.SaveTimeout <= 0 {
		cfg.SaveTimeout = defaultSaveTimeout
	}
	logger = logger.WithField("wordset_id", cfg.WordsetID)

	catalog := NewCatalog(backend, cfg.WordsetID, logger)
	s := &Session{
		backend:  backend,
		catalog:  catalog,
		notifier: notifier,
		logger:   logger,
		cfg:      cfg,
		now:      time.Now,
		goals:    entity.DefaultGoals(),
		state:    entity.UserState{StarMode: entity.StarModeNormal},
		queue:    NormalizeQueue(nil),
	}
	s.emitter = NewLaunchEmitter(
		NewResolver(catalog, cfg.HardThreshold),
		catalog,
		LaunchConfig{ChunkSize: cfg.ChunkSize, LearningMinChunkSize: cfg.LearningMinChunkSize},
		nil,
	)
	s.prefetch = NewFollowupPrefetcher(s.fetchFollowup, cfg.PrefetchRatio, cfg.PrefetchFallback, logger)
	s.saveState = NewDebouncer(cfg.SaveDebounce, s.persistState)
	return s
}

// Bootstrap loads the catalog, adopts the page-provided state and goals
// and fetches the first recommendation.
func (s *Session) Bootstrap(ctx context.Context, state entity.UserState, goals entity.Goals) error {
	if s.cfg.WordsetID <= 0 {
		return entity.ErrInvalidWordsetID
	}
	if err := s.catalog.LoadCategories(ctx); err != nil {
		s.notifier.NotifyError(NoticeLoadFailed, loadFailedMessage)
		return err
	}
	goals.Normalize()
	state = state.Clone()
	state.CategoryIDs = entity.NormalizeIDs(state.CategoryIDs)
	state.StarredWordIDs = entity.NormalizeIDs(state.StarredWordIDs)
	state.StarMode = entity.ParseStarMode(string(state.StarMode))

	s.mu.Lock()
	s.state = state
	s.goals = goals
	s.mu.Unlock()

	return s.RefreshRecommendation(ctx, entity.ModeUnspecified, false)
}

// Catalog exposes the session's category and word cache.
func (s *Session) Catalog() *Catalog { return s.catalog }

// Launch resolves req against the session state and starts the round.
func (s *Session) Launch(ctx context.Context, req LaunchRequest) (*entity.LaunchPlan, error) {
	s.mu.Lock()
	req = req.Clone()
	req.FallbackCategoryIDs = append(req.FallbackCategoryIDs, s.state.CategoryIDs...)
	req.IgnoredCategoryIDs = append(req.IgnoredCategoryIDs, s.goals.IgnoredCategoryIDs...)
	if len(req.StarredWordIDs) == 0 {
		req.StarredWordIDs = append([]int64(nil), s.state.StarredWordIDs...)
	}
	if req.StarMode == "" {
		req.StarMode = s.state.StarMode
	}
	if req.PriorityFocus == entity.FocusNone && entity.ParseMode(string(req.Mode)) == entity.ModeLearning {
		req.PriorityFocus = s.goals.PriorityFocus
	}
	req.FastTransitions = req.FastTransitions || s.state.FastTransitions
	s.mu.Unlock()

	plan, cs, err := s.emitter.Build(ctx, req)
	if err != nil {
		s.notifyLaunchError(err)
		return nil, err
	}

	s.mu.Lock()
	s.chunk = cs
	s.lastLaunch = plan
	s.lastRequest = &req
	s.mu.Unlock()
	s.prefetch.Begin(*plan)

	s.logger.WithFields(logrus.Fields{
		"mode":       plan.Mode,
		"categories": plan.CategoryIDs,
		"words":      len(plan.SessionWordIDs),
		"chunked":    plan.Chunked,
		"source":     plan.Source,
	}).Info("launch plan emitted")
	return plan, nil
}

// LaunchRecommended launches the queued activity for preferred mode, or
// the head of the queue.
func (s *Session) LaunchRecommended(ctx context.Context, preferred entity.Mode) (*entity.LaunchPlan, error) {
	s.mu.Lock()
	activity, ok := s.queue.Head(preferred)
	if !ok && s.next != nil {
		activity, ok = *s.next, true
	}
	s.mu.Unlock()
	if !ok {
		return nil, entity.ErrEmptyQueue
	}
	return s.Launch(ctx, LaunchRequest{
		Mode:           activity.Mode,
		CategoryIDs:    activity.CategoryIDs,
		SessionWordIDs: activity.SessionWordIDs,
		Source:         entity.SourceRecommendation,
		Details:        activity.Details,
	})
}

// ContinueChunk advances a multi-chunk launch to its next chunk.
func (s *Session) ContinueChunk(ctx context.Context) (*entity.LaunchPlan, error) {
	s.mu.Lock()
	cs := s.chunk
	if cs == nil || !cs.Advance() {
		s.mu.Unlock()
		return nil, entity.ErrNothingToContinue
	}
	var fast bool
	var details map[string]any
	if s.lastLaunch != nil {
		fast, details = s.lastLaunch.FastTransitions, s.lastLaunch.Details
	}
	plan := s.emitter.PlanForChunk(cs, entity.SourceChunk, fast, details)
	s.lastLaunch = plan
	s.mu.Unlock()

	s.flushOutcomes(ctx)
	s.prefetch.Begin(*plan)
	return plan, nil
}

// Repeat relaunches the last plan with the same words.
func (s *Session) Repeat(ctx context.Context) (*entity.LaunchPlan, error) {
	s.mu.Lock()
	if s.lastLaunch == nil {
		s.mu.Unlock()
		return nil, entity.ErrNoPreviousLaunch
	}
	plan := *s.lastLaunch
	plan.Source = entity.SourceRepeat
	s.lastLaunch = &plan
	s.mu.Unlock()

	s.flushOutcomes(ctx)
	s.prefetch.Begin(plan)
	return &plan, nil
}

// Different relaunches the last mode and categories with a fresh word draw.
func (s *Session) Different(ctx context.Context) (*entity.LaunchPlan, error) {
	s.mu.Lock()
	if s.lastRequest == nil {
		s.mu.Unlock()
		return nil, entity.ErrNoPreviousLaunch
	}
	req := s.lastRequest.Clone()
	s.mu.Unlock()

	req.SessionWordIDs = nil
	req.Source = entity.SourceDifferent
	s.flushOutcomes(ctx)
	return s.Launch(ctx, req)
}

// Next launches the follow-up recommendation, using the prefetched result
// when one is ready.
func (s *Session) Next(ctx context.Context) (*entity.LaunchPlan, error) {
	if state := s.prefetch.Current(); state != nil {
		if res, ok := state.Result(); ok {
			s.applyRecommendation(s.recGen.Next(), res)
		}
	}
	s.mu.Lock()
	mode := entity.ModeUnspecified
	if s.lastLaunch != nil {
		mode = s.lastLaunch.Mode
	}
	s.mu.Unlock()
	s.flushOutcomes(ctx)
	return s.LaunchRecommended(ctx, mode)
}

// Exit ends the current round and discards chunk and prefetch state.
func (s *Session) Exit(ctx context.Context) {
	s.mu.Lock()
	s.chunk = nil
	s.activeMode = entity.ModeUnspecified
	s.mu.Unlock()
	s.prefetch.Discard()
	s.flushOutcomes(ctx)
	s.saveState.Flush()
}

// HandleEvent applies a quiz runtime event.
func (s *Session) HandleEvent(ctx context.Context, ev QuizEvent) error {
	switch ev.Kind {
	case QuizOpened:
		s.mu.Lock()
		s.activeMode = entity.ParseMode(string(ev.Mode))
		s.mu.Unlock()
	case QuizWordOutcomeQueued:
		if ev.WordID <= 0 {
			return nil
		}
		mode := entity.ParseMode(string(ev.Mode))
		s.mu.Lock()
		if mode == entity.ModeUnspecified {
			mode = s.activeMode
		}
		s.outcomes = append(s.outcomes, entity.WordOutcome{WordID: ev.WordID, Mode: mode, Correct: ev.Correct, AnsweredAt: s.now()})
		s.mu.Unlock()
		s.prefetch.RecordOutcome(ctx, ev.WordID, ev.Correct)
	case QuizResultsShown:
		s.flushOutcomes(ctx)
		tok := s.recGen.Next()
		res, err := s.prefetch.Request(ctx)
		if err != nil {
			if errors.Is(err, entity.ErrNoPreviousLaunch) {
				return nil
			}
			s.logger.WithError(err).Warn("follow-up recommendation unavailable")
			return err
		}
		s.applyRecommendation(tok, res)
	case QuizClosed:
		s.mu.Lock()
		s.activeMode = entity.ModeUnspecified
		s.mu.Unlock()
		s.flushOutcomes(ctx)
	default:
		return fmt.Errorf("unknown quiz event %q", ev.Kind)
	}
	return nil
}

// RefreshRecommendation fetches the queue for the selected categories.
// A response superseded by a later refresh or save is discarded.
func (s *Session) RefreshRecommendation(ctx context.Context, preferred entity.Mode, force bool) error {
	tok := s.recGen.Next()
	res, err := s.backend.FetchRecommendation(ctx, repository.RecommendationQuery{
		WordsetID:     s.cfg.WordsetID,
		CategoryIDs:   s.State().CategoryIDs,
		PreferredMode: preferred,
		ForceRefresh:  force,
	})
	if err != nil {
		if s.recGen.IsLatest(tok) {
			s.notifier.NotifyError(NoticeLoadFailed, loadFailedMessage)
		}
		return fmt.Errorf("fetch recommendation: %w", err)
	}
	s.applyRecommendation(tok, res)
	return nil
}

// SaveGoals stores goals optimistically and rolls back when the save
// fails. It returns the goals in effect afterwards.
func (s *Session) SaveGoals(ctx context.Context, goals entity.Goals) (entity.Goals, error) {
	goals.Normalize()
	tok := s.goalsGen.Next()

	s.mu.Lock()
	prev := s.goals.Clone()
	s.goals = goals.Clone()
	categoryIDs := append([]int64(nil), s.state.CategoryIDs...)
	s.mu.Unlock()

	res, err := s.backend.SaveGoals(ctx, s.cfg.WordsetID, categoryIDs, goals)
	if err != nil {
		if s.goalsGen.IsLatest(tok) {
			s.mu.Lock()
			s.goals = prev
			s.mu.Unlock()
			s.notifier.NotifyError(NoticeSaveFailed, saveFailedMessage)
		}
		return s.Goals(), fmt.Errorf("save goals: %w", err)
	}
	if !s.goalsGen.IsLatest(tok) {
		return s.Goals(), nil
	}
	// Only a successful save supersedes in-flight recommendation refreshes.
	recTok := s.recGen.Next()
	saved := res.Goals
	saved.Normalize()
	s.mu.Lock()
	s.goals = saved
	s.mu.Unlock()
	s.applyRecommendation(recTok, res.RecommendationResult)
	return saved.Clone(), nil
}

// ToggleGoalMode enables or disables one mode; the last enabled mode stays on.
func (s *Session) ToggleGoalMode(ctx context.Context, mode entity.Mode) (entity.Goals, error) {
	mode = entity.ParseMode(string(mode))
	if mode == entity.ModeUnspecified {
		return s.Goals(), entity.ErrUnknownMode
	}
	return s.SaveGoals(ctx, s.Goals().WithModeToggled(mode))
}

// ToggleStar flips the starred flag of wordID and schedules a state save.
func (s *Session) ToggleStar(wordID int64) bool {
	if wordID <= 0 {
		return false
	}
	s.mu.Lock()
	starred := !s.state.IsStarred(wordID)
	if starred {
		s.state.StarredWordIDs = append(s.state.StarredWordIDs, wordID)
	} else {
		kept := s.state.StarredWordIDs[:0:0]
		for _, id := range s.state.StarredWordIDs {
			if id != wordID {
				kept = append(kept, id)
			}
		}
		s.state.StarredWordIDs = kept
	}
	s.mu.Unlock()
	s.saveState.Trigger()
	return starred
}

// SetSelectedCategories replaces the selected categories and schedules a
// state save.
func (s *Session) SetSelectedCategories(ids []int64) {
	s.mu.Lock()
	s.state.CategoryIDs = entity.NormalizeIDs(ids)
	s.mu.Unlock()
	s.saveState.Trigger()
}

// SetStarMode changes the star mode and schedules a state save.
func (s *Session) SetStarMode(mode entity.StarMode) {
	s.mu.Lock()
	s.state.StarMode = entity.ParseStarMode(string(mode))
	s.mu.Unlock()
	s.saveState.Trigger()
}

// SetFastTransitions changes the fast-transitions flag and schedules a state save.
func (s *Session) SetFastTransitions(on bool) {
	s.mu.Lock()
	s.state.FastTransitions = on
	s.mu.Unlock()
	s.saveState.Trigger()
}

func (s *Session) persistState() {
	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.SaveTimeout)
	defer cancel()
	tok := s.recGen.Next()
	res, err := s.backend.SaveUserState(ctx, s.cfg.WordsetID, s.State())
	if err != nil {
		s.logger.WithError(err).Warn("save user state failed")
		s.notifier.NotifyError(NoticeSaveFailed, saveFailedMessage)
		return
	}
	s.applyRecommendation(tok, res.RecommendationResult)
}

// RefreshAnalytics fetches analytics for the selected categories. When a
// later refresh has been issued the response is dropped and the current
// analytics are returned.
func (s *Session) RefreshAnalytics(ctx context.Context, windowDays int) (*entity.Analytics, error) {
	if windowDays <= 0 {
		windowDays = DefaultAnalyticsWindowDays
	}
	tok := s.analyticsGen.Next()
	res, err := s.backend.FetchAnalytics(ctx, s.cfg.WordsetID, s.State().CategoryIDs, windowDays)
	if err != nil {
		if s.analyticsGen.IsLatest(tok) {
			s.notifier.NotifyError(NoticeLoadFailed, loadFailedMessage)
		}
		return nil, fmt.Errorf("fetch analytics: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.analyticsGen.IsLatest(tok) {
		s.analytics = &res
	}
	if s.analytics == nil {
		// A newer refresh is pending or failed before anything was stored.
		return emptyAnalytics(windowDays), nil
	}
	return s.analytics, nil
}

func emptyAnalytics(windowDays int) *entity.Analytics {
	return &entity.Analytics{
		WindowDays:    windowDays,
		Categories:    []entity.CategoryAnalytics{},
		Words:         []entity.WordAnalytics{},
		DailyActivity: map[string]int{},
	}
}

// RemoveQueueActivity dismisses activity locally and on the backend.
// Activities without a resolvable queue id are not removable.
func (s *Session) RemoveQueueActivity(ctx context.Context, activity entity.RecommendationActivity) error {
	s.mu.Lock()
	queueID := s.queue.ResolveQueueID(activity)
	if queueID == "" {
		s.mu.Unlock()
		return nil
	}
	s.queue.Remove(queueID)
	if s.next != nil && s.next.QueueID == queueID {
		if head, ok := s.queue.Head(entity.ModeUnspecified); ok {
			s.next = &head
		} else {
			s.next = nil
		}
	}
	s.mu.Unlock()

	tok := s.recGen.Next()
	res, err := s.backend.RemoveQueueActivity(ctx, s.cfg.WordsetID, queueID)
	if err != nil {
		s.notifier.NotifyError(NoticeSaveFailed, saveFailedMessage)
		return fmt.Errorf("remove queue activity: %w", err)
	}
	s.applyRecommendation(tok, res)
	return nil
}

// Close flushes pending saves and outcomes.
func (s *Session) Close(ctx context.Context) {
	s.saveState.Flush()
	s.saveState.Stop()
	s.flushOutcomes(ctx)
}

// State returns a copy of the learner state.
func (s *Session) State() entity.UserState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Clone()
}

// Goals returns a copy of the learner goals.
func (s *Session) Goals() entity.Goals {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.goals.Clone()
}

// Queue returns the queued activities.
func (s *Session) Queue() []entity.RecommendationActivity {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.queue.Items()
}

// NextActivity returns the recommended next activity.
func (s *Session) NextActivity() (entity.RecommendationActivity, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.next == nil {
		return entity.RecommendationActivity{}, false
	}
	return *s.next, true
}

// LastLaunch returns the most recent plan.
func (s *Session) LastLaunch() (entity.LaunchPlan, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lastLaunch == nil {
		return entity.LaunchPlan{}, false
	}
	return *s.lastLaunch, true
}

// ChunkProgress reports the active chunk position.
func (s *Session) ChunkProgress() (ChunkProgress, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.chunk == nil {
		return ChunkProgress{}, false
	}
	return ChunkProgress{Index: s.chunk.Index(), Total: s.chunk.Total()}, true
}

// Analytics returns the last accepted analytics.
func (s *Session) Analytics() (*entity.Analytics, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.analytics, s.analytics != nil
}

// Prefetch returns the follow-up state of the current launch, or nil.
func (s *Session) Prefetch() *PrefetchState {
	return s.prefetch.Current()
}

func (s *Session) applyRecommendation(tok uint64, res entity.RecommendationResult) {
	if !res.HasQueue() || !s.recGen.IsLatest(tok) {
		return
	}
	queue := NormalizeQueue(res.Queue)
	var next *entity.RecommendationActivity
	if res.NextActivity != nil {
		if norm := NormalizeQueue([]entity.RecommendationActivity{*res.NextActivity}); norm.Len() == 1 {
			item := norm.Items()[0]
			next = &item
		}
	}
	if next == nil {
		if head, ok := queue.Head(entity.ModeUnspecified); ok {
			next = &head
		}
	}
	s.mu.Lock()
	s.queue = queue
	s.next = next
	s.mu.Unlock()
}

func (s *Session) fetchFollowup(ctx context.Context, plan entity.LaunchPlan) (entity.RecommendationResult, error) {
	s.flushOutcomes(ctx)
	res, err := s.backend.FetchRecommendation(ctx, repository.RecommendationQuery{
		WordsetID:     s.cfg.WordsetID,
		CategoryIDs:   s.State().CategoryIDs,
		PreferredMode: plan.Mode,
		ForceRefresh:  true,
	})
	if err != nil {
		return entity.RecommendationResult{}, fmt.Errorf("prefetch recommendation: %w", err)
	}
	return res, nil
}

// flushOutcomes sends queued outcomes. Failed batches are dropped.
func (s *Session) flushOutcomes(ctx context.Context) {
	s.mu.Lock()
	batch := s.outcomes
	s.outcomes = nil
	s.mu.Unlock()
	if len(batch) == 0 {
		return
	}
	if err := s.backend.RecordWordOutcomes(ctx, s.cfg.WordsetID, batch); err != nil {
		s.logger.WithError(err).WithField("outcomes", len(batch)).Warn("record word outcomes failed")
	}
}

func (s *Session) notifyLaunchError(err error) {
	var kind NoticeKind
	switch selErr, ok := entity.IsSelectionError(err); {
	case ok && selErr.Kind == entity.SelectionStarredEmpty:
		kind = NoticeNoStarredWords
	case ok && selErr.Kind == entity.SelectionHardEmpty:
		kind = NoticeNoHardWords
	case ok:
		kind = NoticeNoWords
	case errors.Is(err, entity.ErrNoCategoriesSelected):
		kind = NoticeNoCategories
	case errors.Is(err, entity.ErrTooFewLearningWords):
		kind = NoticeTooFewWords
	case errors.Is(err, entity.ErrUnknownMode):
		kind = NoticeInvalidLaunch
	default:
		kind = NoticeLoadFailed
	}
	s.notifier.NotifyError(kind, err.Error())
}
