package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/eslsoft/flashdeck/internal/entity"
)

func newTestSession(t *testing.T, backend *fakeBackend) (*Session, *recordingNotifier) {
	t.Helper()
	notifier := &recordingNotifier{}
	s := NewSession(backend, notifier, nil, SessionConfig{WordsetID: 1, SaveDebounce: time.Hour})
	s.emitter.shuffle = noShuffle
	if err := s.Bootstrap(context.Background(), entity.UserState{CategoryIDs: []int64{1, 2}}, entity.Goals{}); err != nil {
		t.Fatalf("Bootstrap: %v", err)
	}
	t.Cleanup(func() { s.Close(context.Background()) })
	return s, notifier
}

func TestSession_BootstrapAppliesRecommendation(t *testing.T) {
	backend := shapeBackend()
	backend.recommendation = entity.RecommendationResult{Queue: []entity.RecommendationActivity{
		{Mode: entity.ModePractice, CategoryIDs: []int64{1}, QueueID: "a"},
		{Mode: entity.ModePractice, CategoryIDs: []int64{2}, QueueID: "a"},
		{Mode: entity.ModeListening, CategoryIDs: []int64{2}, QueueID: "b"},
	}}
	s, _ := newTestSession(t, backend)

	if q := s.Queue(); len(q) != 2 {
		t.Fatalf("expected de-duplicated queue of 2, got %+v", q)
	}
	next, ok := s.NextActivity()
	if !ok || next.QueueID != "a" {
		t.Fatalf("expected head as next activity, got %+v", next)
	}
	if g := s.Goals(); len(g.EnabledModes) != len(entity.AllModes) {
		t.Fatalf("empty goals must enable every mode, got %v", g.EnabledModes)
	}
}

func TestSession_StaleAnalyticsIsDiscarded(t *testing.T) {
	backend := shapeBackend()
	firstStarted := make(chan struct{})
	releaseFirst := make(chan struct{})
	var call int
	backend.analyticsFn = func(_ context.Context, windowDays int) (entity.Analytics, error) {
		backend.mu.Lock()
		call++
		n := call
		backend.mu.Unlock()
		if n == 1 {
			close(firstStarted)
			<-releaseFirst
			return entity.Analytics{WindowDays: windowDays, Summary: entity.AnalyticsSummary{TotalWords: 1}}, nil
		}
		return entity.Analytics{WindowDays: windowDays, Summary: entity.AnalyticsSummary{TotalWords: 2}}, nil
	}
	s, _ := newTestSession(t, backend)

	done := make(chan *entity.Analytics, 1)
	go func() {
		res, err := s.RefreshAnalytics(context.Background(), 7)
		if err != nil {
			t.Errorf("first refresh: %v", err)
		}
		done <- res
	}()
	<-firstStarted

	second, err := s.RefreshAnalytics(context.Background(), 30)
	if err != nil {
		t.Fatalf("second refresh: %v", err)
	}
	if second.Summary.TotalWords != 2 {
		t.Fatalf("expected second response, got %+v", second.Summary)
	}

	close(releaseFirst)
	first := <-done
	if first.Summary.TotalWords != 2 {
		t.Fatalf("stale refresh must return the latest analytics, got %+v", first.Summary)
	}
	current, ok := s.Analytics()
	if !ok || current.Summary.TotalWords != 2 || current.WindowDays != 30 {
		t.Fatalf("state must come from the latest refresh, got %+v", current)
	}
}

func TestSession_SaveGoalsRollsBackOnFailure(t *testing.T) {
	backend := shapeBackend()
	s, notifier := newTestSession(t, backend)
	before := s.Goals()

	backend.mu.Lock()
	backend.saveGoalsErr = errBackendDown
	backend.mu.Unlock()

	after, err := s.ToggleGoalMode(context.Background(), entity.ModeGender)
	if !errors.Is(err, errBackendDown) {
		t.Fatalf("expected backend error, got %v", err)
	}
	if !after.ModeEnabled(entity.ModeGender) || len(after.EnabledModes) != len(before.EnabledModes) {
		t.Fatalf("goals must roll back, got %v", after.EnabledModes)
	}
	if kinds := notifier.kinds(); len(kinds) != 1 || kinds[0] != NoticeSaveFailed {
		t.Fatalf("expected save-failed notice, got %v", kinds)
	}

	backend.mu.Lock()
	backend.saveGoalsErr = nil
	backend.mu.Unlock()
	saved, err := s.SaveGoals(context.Background(), entity.Goals{EnabledModes: []entity.Mode{entity.ModeListening}, DailyNewWordTarget: 40})
	if err != nil {
		t.Fatalf("SaveGoals: %v", err)
	}
	if len(saved.EnabledModes) != 1 || saved.DailyNewWordTarget != entity.MaxDailyNewWordTarget {
		t.Fatalf("unexpected saved goals %+v", saved)
	}
	if _, err := s.ToggleGoalMode(context.Background(), entity.ModeListening); err != nil {
		t.Fatalf("ToggleGoalMode: %v", err)
	}
	if g := s.Goals(); !g.ModeEnabled(entity.ModeListening) {
		t.Fatalf("the last enabled mode must stay enabled, got %v", g.EnabledModes)
	}
}

func TestSession_LaunchNotifiesSelectionErrors(t *testing.T) {
	s, notifier := newTestSession(t, shapeBackend())

	_, err := s.Launch(context.Background(), LaunchRequest{Mode: entity.ModePractice, StarMode: entity.StarModeOnly})
	if _, ok := entity.IsSelectionError(err); !ok {
		t.Fatalf("expected selection error, got %v", err)
	}
	if kinds := notifier.kinds(); len(kinds) != 1 || kinds[0] != NoticeNoStarredWords {
		t.Fatalf("expected no-starred-words notice, got %v", kinds)
	}
	if _, ok := s.LastLaunch(); ok {
		t.Fatalf("failed launch must not replace the last launch")
	}
}

func TestSession_RepeatStartsFreshPrefetchState(t *testing.T) {
	s, _ := newTestSession(t, shapeBackend())
	ctx := context.Background()

	plan, err := s.Launch(ctx, LaunchRequest{Mode: entity.ModePractice, CategoryIDs: []int64{2}})
	if err != nil {
		t.Fatalf("Launch: %v", err)
	}
	first := s.Prefetch()
	if err := s.HandleEvent(ctx, QuizEvent{Kind: QuizWordOutcomeQueued, WordID: plan.SessionWordIDs[0], Correct: true}); err != nil {
		t.Fatalf("HandleEvent: %v", err)
	}

	repeated, err := s.Repeat(ctx)
	if err != nil {
		t.Fatalf("Repeat: %v", err)
	}
	second := s.Prefetch()
	if first == second {
		t.Fatalf("repeat must create a new prefetch state")
	}
	if second.LaunchKey != plan.LaunchKey() || repeated.Source != entity.SourceRepeat {
		t.Fatalf("repeat should keep the plan identity, got %q source %q", second.LaunchKey, repeated.Source)
	}
	if second.Snapshot().AnsweredCount != 0 {
		t.Fatalf("repeated launch must start with a clean count")
	}
	if first.Snapshot().AnsweredCount != 1 {
		t.Fatalf("previous state must be untouched")
	}
}

func TestSession_ContinueChunkAndExit(t *testing.T) {
	backend := newFakeBackend(
		[]entity.Category{{ID: 1, AspectBucket: "wide", LearningSupported: true}},
		map[int64][]entity.Word{1: makeWords(1, 1, 23)},
	)
	s, _ := newTestSession(t, backend)
	ctx := context.Background()

	if _, err := s.ContinueChunk(ctx); !errors.Is(err, entity.ErrNothingToContinue) {
		t.Fatalf("expected ErrNothingToContinue, got %v", err)
	}
	plan, err := s.Launch(ctx, LaunchRequest{Mode: entity.ModeLearning, CategoryIDs: []int64{1}})
	if err != nil {
		t.Fatalf("Launch: %v", err)
	}
	if !plan.Chunked {
		t.Fatalf("expected chunked plan")
	}
	next, err := s.ContinueChunk(ctx)
	if err != nil {
		t.Fatalf("ContinueChunk: %v", err)
	}
	if next.ChunkIndex != 1 || len(next.SessionWordIDs) != 8 || next.Source != entity.SourceChunk {
		t.Fatalf("unexpected continuation %+v", next)
	}
	progress, ok := s.ChunkProgress()
	if !ok || progress.Index != 1 || progress.Total != 2 {
		t.Fatalf("unexpected progress %+v", progress)
	}
	if _, err := s.ContinueChunk(ctx); !errors.Is(err, entity.ErrNothingToContinue) {
		t.Fatalf("expected end of chunks, got %v", err)
	}

	s.Exit(ctx)
	if _, ok := s.ChunkProgress(); ok {
		t.Fatalf("exit must discard the chunk session")
	}
	if s.Prefetch() != nil {
		t.Fatalf("exit must discard prefetch state")
	}
}

func TestSession_NonChunkedLaunchDiscardsChunkSession(t *testing.T) {
	backend := newFakeBackend(
		[]entity.Category{{ID: 1, AspectBucket: "wide", LearningSupported: true}},
		map[int64][]entity.Word{1: makeWords(1, 1, 23)},
	)
	s, _ := newTestSession(t, backend)
	ctx := context.Background()

	if _, err := s.Launch(ctx, LaunchRequest{Mode: entity.ModeLearning, CategoryIDs: []int64{1}}); err != nil {
		t.Fatalf("Launch: %v", err)
	}
	if _, err := s.Launch(ctx, LaunchRequest{Mode: entity.ModePractice, CategoryIDs: []int64{1}}); err != nil {
		t.Fatalf("Launch: %v", err)
	}
	if _, ok := s.ChunkProgress(); ok {
		t.Fatalf("practice launch must drop the chunk session")
	}
}

func TestSession_ResultsShownRecordsOutcomesAndAppliesFollowup(t *testing.T) {
	backend := shapeBackend()
	s, _ := newTestSession(t, backend)
	ctx := context.Background()

	plan, err := s.Launch(ctx, LaunchRequest{Mode: entity.ModePractice, CategoryIDs: []int64{2}})
	if err != nil {
		t.Fatalf("Launch: %v", err)
	}
	backend.mu.Lock()
	backend.recommendation = entity.RecommendationResult{Queue: []entity.RecommendationActivity{
		{Mode: entity.ModeListening, CategoryIDs: []int64{2}, QueueID: "listen-2"},
	}}
	backend.mu.Unlock()

	_ = s.HandleEvent(ctx, QuizEvent{Kind: QuizOpened, Mode: entity.ModePractice})
	for _, id := range plan.SessionWordIDs {
		if err := s.HandleEvent(ctx, QuizEvent{Kind: QuizWordOutcomeQueued, WordID: id, Correct: true}); err != nil {
			t.Fatalf("HandleEvent: %v", err)
		}
	}
	if err := s.HandleEvent(ctx, QuizEvent{Kind: QuizResultsShown, Mode: entity.ModePractice, Total: 5, CorrectCount: 5}); err != nil {
		t.Fatalf("results shown: %v", err)
	}

	backend.mu.Lock()
	recorded := len(backend.outcomes)
	mode := backend.outcomes[0].Mode
	backend.mu.Unlock()
	if recorded != 5 || mode != entity.ModePractice {
		t.Fatalf("expected 5 practice outcomes, got %d (%s)", recorded, mode)
	}
	next, ok := s.NextActivity()
	if !ok || next.QueueID != "listen-2" {
		t.Fatalf("expected follow-up recommendation applied, got %+v", next)
	}

	launched, err := s.Next(ctx)
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	if launched.Mode != entity.ModeListening || launched.Source != entity.SourceRecommendation {
		t.Fatalf("unexpected next launch %+v", launched)
	}
}

func TestSession_RemoveQueueActivityResolvesByTarget(t *testing.T) {
	backend := shapeBackend()
	backend.recommendation = entity.RecommendationResult{Queue: []entity.RecommendationActivity{
		{Mode: entity.ModePractice, CategoryIDs: []int64{1, 2}, QueueID: "p12"},
		{Mode: entity.ModeListening, CategoryIDs: []int64{2}, QueueID: "l2"},
	}}
	s, _ := newTestSession(t, backend)

	backend.mu.Lock()
	backend.recommendation = entity.RecommendationResult{Queue: []entity.RecommendationActivity{
		{Mode: entity.ModeListening, CategoryIDs: []int64{2}, QueueID: "l2"},
	}}
	backend.mu.Unlock()

	err := s.RemoveQueueActivity(context.Background(), entity.RecommendationActivity{Mode: entity.ModePractice, CategoryIDs: []int64{2, 1}})
	if err != nil {
		t.Fatalf("RemoveQueueActivity: %v", err)
	}
	backend.mu.Lock()
	removed := append([]string(nil), backend.removed...)
	backend.mu.Unlock()
	if len(removed) != 1 || removed[0] != "p12" {
		t.Fatalf("expected removal of p12, got %v", removed)
	}
	if q := s.Queue(); len(q) != 1 || q[0].QueueID != "l2" {
		t.Fatalf("unexpected queue %+v", q)
	}

	if err := s.RemoveQueueActivity(context.Background(), entity.RecommendationActivity{Mode: entity.ModeGender, CategoryIDs: []int64{9}}); err != nil {
		t.Fatalf("unresolvable activity should be a no-op: %v", err)
	}
	if len(backend.removed) != 1 {
		t.Fatalf("unresolvable activity must not reach the backend")
	}
}

func TestSession_DebouncedStateSave(t *testing.T) {
	backend := shapeBackend()
	s, _ := newTestSession(t, backend)

	if !s.ToggleStar(101) {
		t.Fatalf("expected word to become starred")
	}
	s.ToggleStar(102)
	s.ToggleStar(102)
	s.SetSelectedCategories([]int64{2, 2, 3})

	backend.mu.Lock()
	pending := len(backend.savedStates)
	backend.mu.Unlock()
	if pending != 0 {
		t.Fatalf("saves must wait for the debounce window, got %d", pending)
	}

	s.Close(context.Background())
	backend.mu.Lock()
	defer backend.mu.Unlock()
	if len(backend.savedStates) != 1 {
		t.Fatalf("expected a single coalesced save, got %d", len(backend.savedStates))
	}
	saved := backend.savedStates[0]
	if !equalIDs(saved.StarredWordIDs, []int64{101}) || !equalIDs(saved.CategoryIDs, []int64{2, 3}) {
		t.Fatalf("unexpected saved state %+v", saved)
	}
}

func TestSession_StaleAnalyticsWithoutStoredResultIsEmpty(t *testing.T) {
	backend := shapeBackend()
	firstStarted := make(chan struct{})
	releaseFirst := make(chan struct{})
	var call int
	backend.analyticsFn = func(_ context.Context, windowDays int) (entity.Analytics, error) {
		backend.mu.Lock()
		call++
		n := call
		backend.mu.Unlock()
		if n == 1 {
			close(firstStarted)
			<-releaseFirst
			return entity.Analytics{WindowDays: windowDays, Summary: entity.AnalyticsSummary{TotalWords: 1}}, nil
		}
		return entity.Analytics{}, errBackendDown
	}
	s, _ := newTestSession(t, backend)

	done := make(chan *entity.Analytics, 1)
	go func() {
		res, err := s.RefreshAnalytics(context.Background(), 7)
		if err != nil {
			t.Errorf("first refresh: %v", err)
		}
		done <- res
	}()
	<-firstStarted

	if _, err := s.RefreshAnalytics(context.Background(), 30); !errors.Is(err, errBackendDown) {
		t.Fatalf("expected backend error, got %v", err)
	}
	close(releaseFirst)

	first := <-done
	if first == nil {
		t.Fatalf("a superseded refresh must not return nil analytics")
	}
	if first.Summary.TotalWords != 0 || first.Categories == nil || first.Words == nil || first.DailyActivity == nil {
		t.Fatalf("expected empty analytics, got %+v", first)
	}
	if _, ok := s.Analytics(); ok {
		t.Fatalf("a superseded response must not be stored")
	}
}

func TestSession_RefreshRecommendationFailureNotifies(t *testing.T) {
	backend := shapeBackend()
	s, notifier := newTestSession(t, backend)

	backend.mu.Lock()
	backend.recErr = errBackendDown
	backend.mu.Unlock()

	if err := s.RefreshRecommendation(context.Background(), entity.ModeUnspecified, true); !errors.Is(err, errBackendDown) {
		t.Fatalf("expected backend error, got %v", err)
	}
	if kinds := notifier.kinds(); len(kinds) != 1 || kinds[0] != NoticeLoadFailed {
		t.Fatalf("expected load-failed notice, got %v", kinds)
	}
}

func TestSession_FailedGoalsSaveKeepsInFlightRecommendation(t *testing.T) {
	backend := shapeBackend()
	s, _ := newTestSession(t, backend)

	started := make(chan struct{})
	release := make(chan struct{})
	backend.mu.Lock()
	backend.recFn = func(context.Context) (entity.RecommendationResult, error) {
		close(started)
		<-release
		return entity.RecommendationResult{Queue: []entity.RecommendationActivity{
			{Mode: entity.ModePractice, CategoryIDs: []int64{1}, QueueID: "fresh"},
		}}, nil
	}
	backend.saveGoalsErr = errBackendDown
	backend.mu.Unlock()

	done := make(chan error, 1)
	go func() { done <- s.RefreshRecommendation(context.Background(), entity.ModeUnspecified, false) }()
	<-started

	if _, err := s.SaveGoals(context.Background(), entity.Goals{EnabledModes: []entity.Mode{entity.ModeListening}}); !errors.Is(err, errBackendDown) {
		t.Fatalf("expected backend error, got %v", err)
	}
	close(release)
	if err := <-done; err != nil {
		t.Fatalf("RefreshRecommendation: %v", err)
	}

	next, ok := s.NextActivity()
	if !ok || next.QueueID != "fresh" {
		t.Fatalf("refresh result must be applied after a failed save, got %+v ok=%v", next, ok)
	}
}
