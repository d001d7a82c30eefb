package usecase

import (
	"strings"

	"github.com/samber/lo"

	"github.com/eslsoft/flashdeck/internal/entity"
)

// RecommendationQueue is an ordered, de-duplicated list of next activities.
// It is a value container; callers own synchronization.
type RecommendationQueue struct {
	items []entity.RecommendationActivity
}

// NormalizeQueue drops entries without a usable mode, de-duplicates by
// queue id (first occurrence wins) and otherwise keeps source order.
func NormalizeQueue(raw []entity.RecommendationActivity) *RecommendationQueue {
	q := &RecommendationQueue{items: make([]entity.RecommendationActivity, 0, len(raw))}
	seen := make(map[string]struct{}, len(raw))
	for _, item := range raw {
		norm, ok := normalizeActivity(item)
		if !ok {
			continue
		}
		if norm.QueueID != "" {
			if _, dup := seen[norm.QueueID]; dup {
				continue
			}
			seen[norm.QueueID] = struct{}{}
		}
		q.items = append(q.items, norm)
	}
	return q
}

func normalizeActivity(a entity.RecommendationActivity) (entity.RecommendationActivity, bool) {
	mode := entity.ParseMode(string(a.Mode))
	if mode == entity.ModeUnspecified {
		return entity.RecommendationActivity{}, false
	}
	out := a
	out.Mode = mode
	out.CategoryIDs = entity.NormalizeIDs(a.CategoryIDs)
	out.SessionWordIDs = entity.NormalizeIDs(a.SessionWordIDs)
	out.QueueID = strings.TrimSpace(a.QueueID)
	return out, true
}

// Len returns the number of queued activities.
func (q *RecommendationQueue) Len() int {
	if q == nil {
		return 0
	}
	return len(q.items)
}

// Items returns a copy of the queued activities.
func (q *RecommendationQueue) Items() []entity.RecommendationActivity {
	if q == nil {
		return []entity.RecommendationActivity{}
	}
	return append([]entity.RecommendationActivity(nil), q.items...)
}

// Head returns the first entry with the preferred mode when one is queued,
// otherwise the first entry of any mode.
func (q *RecommendationQueue) Head(preferred entity.Mode) (entity.RecommendationActivity, bool) {
	if q.Len() == 0 {
		return entity.RecommendationActivity{}, false
	}
	if preferred = entity.ParseMode(string(preferred)); preferred != entity.ModeUnspecified {
		if item, ok := lo.Find(q.items, func(a entity.RecommendationActivity) bool { return a.Mode == preferred }); ok {
			return item, true
		}
	}
	return q.items[0], true
}

// ResolveQueueID returns the removal key for activity: its own id, or the id
// of a queued entry with the same mode and category set, or "".
func (q *RecommendationQueue) ResolveQueueID(activity entity.RecommendationActivity) string {
	if id := strings.TrimSpace(activity.QueueID); id != "" {
		return id
	}
	if q.Len() == 0 || entity.ParseMode(string(activity.Mode)) == entity.ModeUnspecified {
		return ""
	}
	for _, item := range q.items {
		if item.QueueID != "" && item.SameTarget(activity) {
			return item.QueueID
		}
	}
	return ""
}

// Remove drops the entry with queueID and reports whether one was removed.
func (q *RecommendationQueue) Remove(queueID string) bool {
	queueID = strings.TrimSpace(queueID)
	if q.Len() == 0 || queueID == "" {
		return false
	}
	for i, item := range q.items {
		if item.QueueID == queueID {
			q.items = append(q.items[:i:i], q.items[i+1:]...)
			return true
		}
	}
	return false
}
