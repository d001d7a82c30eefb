package usecase

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/eslsoft/flashdeck/internal/entity"
	"github.com/eslsoft/flashdeck/internal/repository"
)

const catalogFetchConcurrency = 4

// Catalog memoizes categories and per-category word lists of one wordset.
// Concurrent loads of the same category share a single backend request.
type Catalog struct {
	backend   repository.StudyBackend
	wordsetID int64
	logger    logrus.FieldLogger

	mu         sync.RWMutex
	categories []entity.Category
	byID       map[int64]entity.Category
	words      map[int64][]entity.Word
	group      singleflight.Group
}

// NewCatalog builds an empty catalog for wordsetID.
func NewCatalog(backend repository.StudyBackend, wordsetID int64, logger logrus.FieldLogger) *Catalog {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Catalog{
		backend:   backend,
		wordsetID: wordsetID,
		logger:    logger,
		byID:      map[int64]entity.Category{},
		words:     map[int64][]entity.Word{},
	}
}

// WordsetID returns the wordset the catalog belongs to.
func (c *Catalog) WordsetID() int64 { return c.wordsetID }

// LoadCategories fetches the category list and replaces it wholesale.
func (c *Catalog) LoadCategories(ctx context.Context) error {
	cats, err := c.backend.FetchCategories(ctx, c.wordsetID)
	if err != nil {
		return fmt.Errorf("fetch categories: %w", err)
	}
	c.SetCategories(cats)
	return nil
}

// SetCategories replaces the category list. Cached words are kept.
func (c *Catalog) SetCategories(cats []entity.Category) {
	byID := make(map[int64]entity.Category, len(cats))
	list := make([]entity.Category, 0, len(cats))
	for _, cat := range cats {
		if cat.ID <= 0 {
			continue
		}
		if _, dup := byID[cat.ID]; dup {
			continue
		}
		byID[cat.ID] = cat
		list = append(list, cat)
	}
	c.mu.Lock()
	c.categories = list
	c.byID = byID
	c.mu.Unlock()
}

// Categories returns the known categories in catalog order.
func (c *Catalog) Categories() []entity.Category {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]entity.Category(nil), c.categories...)
}

// Category looks up a category by id.
func (c *Catalog) Category(id int64) (entity.Category, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	cat, ok := c.byID[id]
	return cat, ok
}

// CachedWords returns the words of a loaded category.
func (c *Catalog) CachedWords(categoryID int64) ([]entity.Word, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	words, ok := c.words[categoryID]
	return words, ok
}

// EnsureWords loads word lists for every id not yet cached. A category that
// is already loaded is never fetched again.
func (c *Catalog) EnsureWords(ctx context.Context, categoryIDs []int64) error {
	missing := make([]int64, 0, len(categoryIDs))
	c.mu.RLock()
	for _, id := range entity.NormalizeIDs(categoryIDs) {
		if _, ok := c.words[id]; !ok {
			missing = append(missing, id)
		}
	}
	c.mu.RUnlock()
	if len(missing) == 0 {
		return nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(catalogFetchConcurrency)
	for _, id := range missing {
		g.Go(func() error {
			// The shared fetch serves every waiter, so one caller's
			// cancellation must not fail the others.
			ch := c.group.DoChan(strconv.FormatInt(id, 10), func() (any, error) {
				return nil, c.fetchCategoryWords(context.WithoutCancel(gctx), id)
			})
			select {
			case res := <-ch:
				if res.Shared {
					c.logger.WithField("category_id", id).Debug("joined in-flight word fetch")
				}
				return res.Err
			case <-gctx.Done():
				return gctx.Err()
			}
		})
	}
	return g.Wait()
}

func (c *Catalog) fetchCategoryWords(ctx context.Context, id int64) error {
	if _, ok := c.CachedWords(id); ok {
		return nil
	}
	byCat, err := c.backend.FetchWordsByCategories(ctx, c.wordsetID, []int64{id})
	if err != nil {
		return fmt.Errorf("fetch words for category %d: %w", id, err)
	}
	words := byCat[id]
	if words == nil {
		words = []entity.Word{}
	}
	c.mu.Lock()
	c.words[id] = words
	c.mu.Unlock()
	return nil
}

// Invalidate drops every cached word list, e.g. after the wordset changes.
func (c *Catalog) Invalidate() {
	c.mu.Lock()
	c.words = map[int64][]entity.Word{}
	c.mu.Unlock()
}
