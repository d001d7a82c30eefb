package usecase

import (
	"context"
	"fmt"
	"sort"

	"github.com/samber/lo"

	"github.com/eslsoft/flashdeck/internal/entity"
)

const (
	// learningWordFloor is the largest word count a learning launch refuses.
	learningWordFloor = 2

	labelStarredWords = "Starred words"
	labelHardWords    = "Hard words"
)

// LaunchRequest describes a launch as requested by the learner or a
// recommendation.
type LaunchRequest struct {
	Mode                  entity.Mode
	CategoryIDs           []int64
	FallbackCategoryIDs   []int64
	SessionWordIDs        []int64
	PreferredCategoryID   int64
	IgnoredCategoryIDs    []int64
	StarredWordIDs        []int64
	StarMode              entity.StarMode
	PriorityFocus         entity.PriorityFocus
	HardOnly              bool
	Criteria              string
	Source                string
	Details               map[string]any
	CategoryLabelOverride string
	FastTransitions       bool
}

// Clone returns a deep copy of the request.
func (r LaunchRequest) Clone() LaunchRequest {
	out := r
	out.CategoryIDs = append([]int64(nil), r.CategoryIDs...)
	out.FallbackCategoryIDs = append([]int64(nil), r.FallbackCategoryIDs...)
	out.SessionWordIDs = append([]int64(nil), r.SessionWordIDs...)
	out.IgnoredCategoryIDs = append([]int64(nil), r.IgnoredCategoryIDs...)
	out.StarredWordIDs = append([]int64(nil), r.StarredWordIDs...)
	if r.Details != nil {
		out.Details = make(map[string]any, len(r.Details))
		for k, v := range r.Details {
			out.Details[k] = v
		}
	}
	return out
}

// LaunchConfig holds chunking parameters for launches.
type LaunchConfig struct {
	ChunkSize            int
	LearningMinChunkSize int
}

func (c LaunchConfig) normalized() LaunchConfig {
	if c.ChunkSize <= 0 {
		c.ChunkSize = DefaultChunkSize
	}
	if c.LearningMinChunkSize < LearningMinChunkSize {
		c.LearningMinChunkSize = LearningMinChunkSize
	}
	return c
}

// LaunchEmitter assembles self-describing launch plans for the quiz runtime.
type LaunchEmitter struct {
	resolver *Resolver
	catalog  *Catalog
	cfg      LaunchConfig
	shuffle  ShuffleFunc
}

// NewLaunchEmitter builds an emitter. A nil shuffle uses FisherYates.
func NewLaunchEmitter(resolver *Resolver, catalog *Catalog, cfg LaunchConfig, shuffle ShuffleFunc) *LaunchEmitter {
	if shuffle == nil {
		shuffle = FisherYates
	}
	return &LaunchEmitter{resolver: resolver, catalog: catalog, cfg: cfg.normalized(), shuffle: shuffle}
}

// Build resolves req into a launch plan. Learning launches larger than the
// chunk size also return the ChunkSession that owns the remaining chunks;
// otherwise the session is nil.
func (e *LaunchEmitter) Build(ctx context.Context, req LaunchRequest) (*entity.LaunchPlan, *ChunkSession, error) {
	mode := entity.ParseMode(string(req.Mode))
	if mode == entity.ModeUnspecified {
		return nil, nil, fmt.Errorf("%w: %q", entity.ErrUnknownMode, req.Mode)
	}
	criteria, err := ParseWordCriteria(req.Criteria)
	if err != nil {
		return nil, nil, err
	}

	focus := entity.ParsePriorityFocus(string(req.PriorityFocus))
	starMode := entity.ParseStarMode(string(req.StarMode))
	filter := WordFilter{Criteria: criteria}
	filter.StarOnly = starMode == entity.StarModeOnly || focus == entity.FocusStarred
	filter.HardOnly = !filter.StarOnly && (req.HardOnly || focus == entity.FocusHard)

	restrict := entity.NormalizeIDs(req.SessionWordIDs)
	if mode == entity.ModeLearning && focus.IsWordCriterion() {
		restrict = nil
	}

	selReq := SelectionRequest{
		Mode:                mode,
		CategoryIDs:         req.CategoryIDs,
		FallbackCategoryIDs: req.FallbackCategoryIDs,
		PreferredCategoryID: req.PreferredCategoryID,
		IgnoredCategoryIDs:  req.IgnoredCategoryIDs,
		StarredWordIDs:      req.StarredWordIDs,
		Filter:              filter,
		RestrictWordIDs:     restrict,
	}
	sel, err := e.resolver.Resolve(ctx, selReq)
	if _, empty := entity.IsSelectionError(err); empty && len(restrict) > 0 {
		selReq.RestrictWordIDs = nil
		restrict = nil
		sel, err = e.resolver.Resolve(ctx, selReq)
	}
	if err != nil {
		return nil, nil, err
	}

	if mode == entity.ModeLearning && filter.Active() {
		sel.TopUp(e.cfg.LearningMinChunkSize)
	}
	sel.DropEmptyCategories()
	categoryIDs := e.orderCategories(sel, len(restrict) > 0)
	wordIDs := lo.Flatten(lo.Map(categoryIDs, func(id int64, _ int) []int64 { return sel.WordsByCategory[id] }))

	if mode == entity.ModeLearning && len(wordIDs) <= learningWordFloor {
		return nil, nil, entity.ErrTooFewLearningWords
	}

	if filter.StarOnly {
		starMode = entity.StarModeOnly
	}
	label := req.CategoryLabelOverride
	if label == "" && len(categoryIDs) > 1 {
		switch {
		case filter.StarOnly:
			label = labelStarredWords
		case filter.HardOnly:
			label = labelHardWords
		}
	}
	source := req.Source
	if source == "" {
		source = entity.SourceManual
	}

	if mode == entity.ModeLearning && len(wordIDs) > e.cfg.ChunkSize {
		chunks := BuildChunks(wordIDs, e.cfg.ChunkSize, e.cfg.LearningMinChunkSize, e.shuffle)
		if len(chunks) > 1 {
			cs := NewChunkSession(mode, categoryIDs, chunks, starMode, label)
			plan := e.PlanForChunk(cs, source, req.FastTransitions, req.Details)
			return plan, cs, nil
		}
	}

	plan := &entity.LaunchPlan{
		Mode:                  mode,
		Source:                source,
		SessionStarMode:       starMode,
		FastTransitions:       req.FastTransitions,
		Details:               req.Details,
		CategoryLabelOverride: label,
	}
	e.describe(plan, categoryIDs, wordIDs)
	return plan, nil, nil
}

// PlanForChunk builds the plan for the current chunk of cs.
func (e *LaunchEmitter) PlanForChunk(cs *ChunkSession, source string, fastTransitions bool, details map[string]any) *entity.LaunchPlan {
	words := cs.Current()
	inChunk := entity.IDSet(words)
	categoryIDs := lo.Filter(cs.CategoryIDs, func(id int64, _ int) bool {
		cached, _ := e.catalog.CachedWords(id)
		return lo.ContainsBy(cached, func(w entity.Word) bool {
			_, ok := inChunk[w.ID]
			return ok
		})
	})
	plan := &entity.LaunchPlan{
		Mode:                  cs.Mode,
		Source:                source,
		SessionStarMode:       cs.StarMode,
		FastTransitions:       fastTransitions,
		Details:               details,
		CategoryLabelOverride: cs.CategoryLabelOverride,
		Chunked:               true,
		ChunkIndex:            cs.Index(),
		ChunkCount:            cs.Total(),
	}
	e.describe(plan, categoryIDs, words)
	return plan
}

// describe fills the lookup-free parts of a plan.
func (e *LaunchEmitter) describe(plan *entity.LaunchPlan, categoryIDs, wordIDs []int64) {
	plan.CategoryIDs = append([]int64{}, categoryIDs...)
	plan.SessionWordIDs = append([]int64{}, wordIDs...)
	plan.EstimatedResultsTotal = len(wordIDs)
	plan.Categories = make([]entity.Category, 0, len(categoryIDs))
	for _, id := range categoryIDs {
		if cat, ok := e.catalog.Category(id); ok {
			plan.Categories = append(plan.Categories, cat)
		}
	}
	plan.FirstCategoryWords = []entity.Word{}
	if len(categoryIDs) == 0 {
		return
	}
	inSession := entity.IDSet(wordIDs)
	cached, _ := e.catalog.CachedWords(categoryIDs[0])
	for _, w := range cached {
		if _, ok := inSession[w.ID]; ok {
			plan.FirstCategoryWords = append(plan.FirstCategoryWords, w)
		}
	}
}

// orderCategories sorts by matching word count when the session words were
// explicit and shuffles otherwise.
func (e *LaunchEmitter) orderCategories(sel *Selection, explicit bool) []int64 {
	ids := append([]int64(nil), sel.CategoryIDs...)
	if explicit {
		sort.SliceStable(ids, func(i, j int) bool {
			return len(sel.WordsByCategory[ids[i]]) > len(sel.WordsByCategory[ids[j]])
		})
		return ids
	}
	e.shuffle(ids)
	return ids
}
