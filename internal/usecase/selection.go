package usecase

import (
	"context"

	"github.com/samber/lo"

	"github.com/eslsoft/flashdeck/internal/entity"
)

// CategoryScore holds the counts used to rank compatibility groups.
type CategoryScore struct {
	Total    int
	Priority int
}

// WordFilter narrows the words of a selection. StarOnly and HardOnly are
// mutually exclusive; StarOnly wins when both are set.
type WordFilter struct {
	StarOnly bool
	HardOnly bool
	Criteria *WordCriteria
}

// Active reports whether any word filter applies.
func (f WordFilter) Active() bool {
	return f.StarOnly || f.HardOnly || f.Criteria != nil
}

func (f WordFilter) emptyKind() entity.SelectionErrorKind {
	switch {
	case f.StarOnly:
		return entity.SelectionStarredEmpty
	case f.HardOnly:
		return entity.SelectionHardEmpty
	default:
		return entity.SelectionEmpty
	}
}

// SelectionRequest is the input of Resolver.Resolve.
type SelectionRequest struct {
	Mode                entity.Mode
	CategoryIDs         []int64
	FallbackCategoryIDs []int64
	PreferredCategoryID int64
	IgnoredCategoryIDs  []int64
	StarredWordIDs      []int64
	Filter              WordFilter
	// RestrictWordIDs limits candidate words to an explicit session list.
	RestrictWordIDs []int64
}

// Selection is a compatible category subset with its ordered word ids.
type Selection struct {
	Mode            entity.Mode
	CategoryIDs     []int64
	WordIDs         []int64
	WordsByCategory map[int64][]int64

	visible   []int64
	scores    map[int64]CategoryScore
	allWords  map[int64][]int64
	preferred []int64
}

// Resolver turns requested categories into a launchable selection.
type Resolver struct {
	catalog       *Catalog
	hardThreshold float64
}

// NewResolver builds a resolver over catalog.
func NewResolver(catalog *Catalog, hardThreshold float64) *Resolver {
	if hardThreshold <= 0 {
		hardThreshold = entity.DefaultHardThreshold
	}
	return &Resolver{catalog: catalog, hardThreshold: hardThreshold}
}

// ResolveLaunchCategoryIDs falls back from requested to fallback ids. An
// empty result means there is nothing to launch.
func ResolveLaunchCategoryIDs(requested, fallback []int64) []int64 {
	if ids := entity.NormalizeIDs(requested); len(ids) > 0 {
		return ids
	}
	return entity.NormalizeIDs(fallback)
}

// SelectCompatibleCategoryIDs keeps only the best group of presentation-
// compatible categories. Groups are ranked by priority count, then by
// containing preferredID, then by total count, then by first appearance.
func SelectCompatibleCategoryIDs(categories []entity.Category, ids []int64, mode entity.Mode, scores map[int64]CategoryScore, preferredID int64, ignored []int64) []int64 {
	byID := lo.Associate(categories, func(c entity.Category) (int64, entity.Category) { return c.ID, c })
	ignoredSet := entity.IDSet(ignored)

	type group struct {
		ids       []int64
		priority  int
		total     int
		preferred bool
	}
	var order []string
	groups := map[string]*group{}
	for _, id := range entity.NormalizeIDs(ids) {
		cat, ok := byID[id]
		if !ok || cat.Hidden {
			continue
		}
		if _, skip := ignoredSet[id]; skip {
			continue
		}
		key := cat.CompatibilityKey(mode)
		g, ok := groups[key]
		if !ok {
			g = &group{}
			groups[key] = g
			order = append(order, key)
		}
		g.ids = append(g.ids, id)
		g.priority += scores[id].Priority
		g.total += scores[id].Total
		if id == preferredID {
			g.preferred = true
		}
	}

	switch len(order) {
	case 0:
		return []int64{}
	case 1:
		return groups[order[0]].ids
	}

	best := groups[order[0]]
	for _, key := range order[1:] {
		g := groups[key]
		switch {
		case g.priority != best.priority:
			if g.priority > best.priority {
				best = g
			}
		case g.preferred != best.preferred:
			if g.preferred {
				best = g
			}
		case g.total > best.total:
			best = g
		}
	}
	return best.ids
}

// Resolve loads words for the requested categories and returns the winning
// compatible selection. A filter that leaves no words yields a
// *entity.SelectionError whose kind names the filter.
func (r *Resolver) Resolve(ctx context.Context, req SelectionRequest) (*Selection, error) {
	ids := ResolveLaunchCategoryIDs(req.CategoryIDs, req.FallbackCategoryIDs)
	if len(ids) == 0 {
		return nil, entity.ErrNoCategoriesSelected
	}

	ignored := entity.IDSet(req.IgnoredCategoryIDs)
	visible := lo.Filter(ids, func(id int64, _ int) bool {
		cat, ok := r.catalog.Category(id)
		if !ok || cat.Hidden || !cat.SupportsMode(req.Mode) {
			return false
		}
		_, skip := ignored[id]
		return !skip
	})
	if len(visible) == 0 {
		return nil, entity.ErrNoCategoriesSelected
	}

	if err := r.catalog.EnsureWords(ctx, visible); err != nil {
		return nil, err
	}

	starred := entity.IDSet(req.StarredWordIDs)
	var restrict map[int64]struct{}
	if len(req.RestrictWordIDs) > 0 {
		restrict = entity.IDSet(req.RestrictWordIDs)
	}

	sel := &Selection{
		Mode:     req.Mode,
		visible:  visible,
		scores:   make(map[int64]CategoryScore, len(visible)),
		allWords: make(map[int64][]int64, len(visible)),
	}
	filtered := make(map[int64][]int64, len(visible))
	for _, id := range visible {
		words, _ := r.catalog.CachedWords(id)
		all := make([]int64, 0, len(words))
		var matched []int64
		candidates := 0
		for _, w := range words {
			all = append(all, w.ID)
			if restrict != nil {
				if _, ok := restrict[w.ID]; !ok {
					continue
				}
			}
			candidates++
			if r.matches(w, starred, req.Filter) {
				matched = append(matched, w.ID)
			}
		}
		sel.allWords[id] = all
		filtered[id] = matched
		score := CategoryScore{Total: candidates}
		if req.Filter.Active() {
			score.Priority = len(matched)
		}
		sel.scores[id] = score
	}

	preferred := req.PreferredCategoryID
	if preferred <= 0 {
		preferred = visible[0]
	}
	sel.CategoryIDs = SelectCompatibleCategoryIDs(r.catalog.Categories(), visible, req.Mode, sel.scores, preferred, nil)
	sel.WordsByCategory = make(map[int64][]int64, len(sel.CategoryIDs))
	seen := map[int64]struct{}{}
	for _, id := range sel.CategoryIDs {
		var own []int64
		for _, wid := range filtered[id] {
			if _, dup := seen[wid]; dup {
				continue
			}
			seen[wid] = struct{}{}
			own = append(own, wid)
		}
		sel.WordsByCategory[id] = own
		sel.WordIDs = append(sel.WordIDs, own...)
	}
	sel.preferred = append([]int64(nil), sel.WordIDs...)

	if len(sel.WordIDs) == 0 {
		return nil, &entity.SelectionError{Kind: req.Filter.emptyKind(), CategoryIDs: sel.CategoryIDs}
	}
	return sel, nil
}

func (r *Resolver) matches(w entity.Word, starred map[int64]struct{}, f WordFilter) bool {
	_, isStarred := starred[w.ID]
	isStarred = isStarred || w.IsStarred
	switch {
	case f.StarOnly:
		if !isStarred {
			return false
		}
	case f.HardOnly:
		if !w.IsHard(r.hardThreshold) {
			return false
		}
	}
	return f.Criteria.Matches(w, isStarred)
}

// TopUp grows a small selection to minWords: first with unfiltered words of
// the selected categories, then by switching to the single best-scoring
// requested category when its full list is larger. The result may still be
// short when the catalog has too few words.
func (s *Selection) TopUp(minWords int) {
	if len(s.WordIDs) >= minWords {
		return
	}
	have := entity.IDSet(s.WordIDs)
	for _, catID := range s.CategoryIDs {
		for _, wid := range s.allWords[catID] {
			if len(s.WordIDs) >= minWords {
				return
			}
			if _, ok := have[wid]; ok {
				continue
			}
			have[wid] = struct{}{}
			s.WordIDs = append(s.WordIDs, wid)
			s.WordsByCategory[catID] = append(s.WordsByCategory[catID], wid)
		}
	}
	if len(s.WordIDs) >= minWords {
		return
	}

	best, ok := s.bestCategory()
	if !ok || len(s.allWords[best]) <= len(s.WordIDs) {
		return
	}
	inBest := entity.IDSet(s.allWords[best])
	words := lo.Filter(s.preferred, func(id int64, _ int) bool {
		_, ok := inBest[id]
		return ok
	})
	picked := entity.IDSet(words)
	for _, wid := range s.allWords[best] {
		if _, ok := picked[wid]; !ok {
			words = append(words, wid)
		}
	}
	s.CategoryIDs = []int64{best}
	s.WordsByCategory = map[int64][]int64{best: words}
	s.WordIDs = words
}

func (s *Selection) bestCategory() (int64, bool) {
	if len(s.visible) == 0 {
		return 0, false
	}
	best := s.visible[0]
	for _, id := range s.visible[1:] {
		a, b := s.scores[id], s.scores[best]
		if a.Priority > b.Priority || (a.Priority == b.Priority && len(s.allWords[id]) > len(s.allWords[best])) {
			best = id
		}
	}
	return best, true
}

// DropEmptyCategories removes categories that contribute no words.
func (s *Selection) DropEmptyCategories() {
	s.CategoryIDs = lo.Filter(s.CategoryIDs, func(id int64, _ int) bool { return len(s.WordsByCategory[id]) > 0 })
}
