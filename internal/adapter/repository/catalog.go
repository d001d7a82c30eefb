package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"
	"github.com/samber/lo"

	"github.com/eslsoft/flashdeck/internal/entity"
	"github.com/eslsoft/flashdeck/internal/repository"
)

// inChunk bounds IN lists so they stay below driver parameter limits.
const inChunk = 500

var (
	categoryColumns = []string{
		"id", "slug", "name", "translation", "aspect_bucket", "prompt_type",
		"option_type", "learning_supported", "gender_supported", "hidden",
	}
	wordColumns = []string{
		"id", "title", "translation", "image_url", "audio_files",
		"difficulty_score", "total_coverage", "incorrect_count", "last_seen_at",
	}
)

type catalogRepository struct{ *Store }

// NewCatalogRepository exposes the store as a catalog repository.
func NewCatalogRepository(s *Store) repository.CatalogRepository { return &catalogRepository{Store: s} }

func (r *catalogRepository) UpsertCategories(ctx context.Context, wordsetID int64, categories []entity.Category) error {
	if len(categories) == 0 {
		return nil
	}
	return r.withTx(ctx, func(tx dialect.Tx) error {
		for _, batch := range lo.Chunk(categories, inChunk) {
			insert := r.builder().Insert(CategoriesTable.Name).
				Columns(append([]string{"wordset_id"}, categoryColumns...)...)
			for _, c := range batch {
				insert.Values(wordsetID, c.ID, c.Slug, c.Name, c.Translation, c.AspectBucket,
					c.PromptType, c.OptionType, c.LearningSupported, c.GenderSupported, c.Hidden)
			}
			query, args := insert.OnConflict(
				entsql.ConflictColumns("wordset_id", "id"),
				entsql.ResolveWithNewValues(),
			).Query()
			if err := exec(ctx, tx, query, args); err != nil {
				return fmt.Errorf("upsert categories: %w", err)
			}
		}
		return nil
	})
}

// UpsertWords writes words and replaces the category links of every word
// that carries CategoryIDs. Words without CategoryIDs keep their links.
func (r *catalogRepository) UpsertWords(ctx context.Context, wordsetID int64, words []entity.Word) error {
	if len(words) == 0 {
		return nil
	}
	return r.withTx(ctx, func(tx dialect.Tx) error {
		for _, batch := range lo.Chunk(words, inChunk/2) {
			insert := r.builder().Insert(WordsTable.Name).
				Columns(append([]string{"wordset_id"}, wordColumns...)...)
			for _, w := range batch {
				audio, err := json.Marshal(lo.Ternary(w.AudioFiles == nil, []string{}, w.AudioFiles))
				if err != nil {
					return fmt.Errorf("encode audio files of word %d: %w", w.ID, err)
				}
				insert.Values(wordsetID, w.ID, w.Title, w.Translation, w.ImageURL, string(audio),
					w.DifficultyScore, w.TotalCoverage, w.IncorrectCount, nullTime(w.LastSeenAt))
			}
			query, args := insert.OnConflict(
				entsql.ConflictColumns("wordset_id", "id"),
				entsql.ResolveWithNewValues(),
			).Query()
			if err := exec(ctx, tx, query, args); err != nil {
				return fmt.Errorf("upsert words: %w", err)
			}

			linked := lo.Filter(batch, func(w entity.Word, _ int) bool { return len(entity.NormalizeIDs(w.CategoryIDs)) > 0 })
			if len(linked) == 0 {
				continue
			}
			ids := lo.Map(linked, func(w entity.Word, _ int) int64 { return w.ID })
			query, args = r.builder().Delete(WordCategoriesTable.Name).
				Where(entsql.And(entsql.EQ("wordset_id", wordsetID), entsql.In("word_id", int64Args(ids)...))).
				Query()
			if err := exec(ctx, tx, query, args); err != nil {
				return fmt.Errorf("clear word links: %w", err)
			}
			links := r.builder().Insert(WordCategoriesTable.Name).Columns("wordset_id", "category_id", "word_id")
			for _, w := range linked {
				for _, catID := range entity.NormalizeIDs(w.CategoryIDs) {
					links.Values(wordsetID, catID, w.ID)
				}
			}
			query, args = links.Query()
			if err := exec(ctx, tx, query, args); err != nil {
				return fmt.Errorf("insert word links: %w", err)
			}
		}
		return nil
	})
}

func (r *catalogRepository) ListCategories(ctx context.Context, wordsetID int64) ([]entity.Category, error) {
	b := r.builder()
	query, args := b.Select(categoryColumns...).
		From(b.Table(CategoriesTable.Name)).
		Where(entsql.EQ("wordset_id", wordsetID)).
		OrderBy("id").
		Query()
	var categories []entity.Category
	err := queryRows(ctx, r.drv, query, args, func(rows *entsql.Rows) error {
		var c entity.Category
		if err := rows.Scan(&c.ID, &c.Slug, &c.Name, &c.Translation, &c.AspectBucket, &c.PromptType,
			&c.OptionType, &c.LearningSupported, &c.GenderSupported, &c.Hidden); err != nil {
			return err
		}
		categories = append(categories, c)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}

	counts := map[int64]int{}
	query, args = b.Select("category_id", entsql.Count("*")).
		From(b.Table(WordCategoriesTable.Name)).
		Where(entsql.EQ("wordset_id", wordsetID)).
		GroupBy("category_id").
		Query()
	err = queryRows(ctx, r.drv, query, args, func(rows *entsql.Rows) error {
		var id int64
		var n int
		if err := rows.Scan(&id, &n); err != nil {
			return err
		}
		counts[id] = n
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("count category words: %w", err)
	}
	for i := range categories {
		categories[i].WordCount = counts[categories[i].ID]
	}
	if categories == nil {
		categories = []entity.Category{}
	}
	return categories, nil
}

func (r *catalogRepository) ListWordsByCategories(ctx context.Context, wordsetID int64, categoryIDs []int64) (map[int64][]entity.Word, error) {
	ids := entity.NormalizeIDs(categoryIDs)
	out := make(map[int64][]entity.Word, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	links, err := r.links(ctx, r.drv, wordsetID, "category_id", ids)
	if err != nil {
		return nil, err
	}
	wordIDs := lo.Uniq(lo.Map(links, func(l link, _ int) int64 { return l.wordID }))
	words, err := r.GetWordsByIDs(ctx, wordsetID, wordIDs)
	if err != nil {
		return nil, err
	}
	byID := lo.Associate(words, func(w entity.Word) (int64, entity.Word) { return w.ID, w })
	for _, id := range ids {
		out[id] = []entity.Word{}
	}
	for _, l := range links {
		if w, ok := byID[l.wordID]; ok {
			out[l.categoryID] = append(out[l.categoryID], w)
		}
	}
	return out, nil
}

func (r *catalogRepository) ListWords(ctx context.Context, q *repository.ListWordQuery) ([]entity.Word, int64, error) {
	b := r.builder()
	where := entsql.EQ("wordset_id", q.WordsetID)
	query, args := b.Select(entsql.Count("*")).From(b.Table(WordsTable.Name)).Where(where).Query()
	var total int64
	err := queryRows(ctx, r.drv, query, args, func(rows *entsql.Rows) error { return rows.Scan(&total) })
	if err != nil {
		return nil, 0, fmt.Errorf("count words: %w", err)
	}

	sel := b.Select(wordColumns...).From(b.Table(WordsTable.Name)).
		Where(entsql.EQ("wordset_id", q.WordsetID)).
		OrderBy("id")
	if q.PageSize > 0 {
		sel.Limit(int(q.PageSize)).Offset(int(q.Offset()))
	}
	query, args = sel.Query()
	words, err := r.scanWords(ctx, r.drv, query, args)
	if err != nil {
		return nil, 0, fmt.Errorf("list words: %w", err)
	}
	if err := r.attachCategories(ctx, q.WordsetID, words); err != nil {
		return nil, 0, err
	}
	return words, total, nil
}

func (r *catalogRepository) GetWordsByIDs(ctx context.Context, wordsetID int64, ids []int64) ([]entity.Word, error) {
	ids = entity.NormalizeIDs(ids)
	words := make([]entity.Word, 0, len(ids))
	b := r.builder()
	for _, batch := range lo.Chunk(ids, inChunk) {
		query, args := b.Select(wordColumns...).From(b.Table(WordsTable.Name)).
			Where(entsql.And(entsql.EQ("wordset_id", wordsetID), entsql.In("id", int64Args(batch)...))).
			OrderBy("id").
			Query()
		found, err := r.scanWords(ctx, r.drv, query, args)
		if err != nil {
			return nil, fmt.Errorf("get words: %w", err)
		}
		words = append(words, found...)
	}
	if err := r.attachCategories(ctx, wordsetID, words); err != nil {
		return nil, err
	}
	return words, nil
}

func (r *catalogRepository) scanWords(ctx context.Context, q querier, query string, args []any) ([]entity.Word, error) {
	var words []entity.Word
	err := queryRows(ctx, q, query, args, func(rows *entsql.Rows) error {
		var (
			w        entity.Word
			audio    string
			lastSeen sql.NullTime
		)
		if err := rows.Scan(&w.ID, &w.Title, &w.Translation, &w.ImageURL, &audio,
			&w.DifficultyScore, &w.TotalCoverage, &w.IncorrectCount, &lastSeen); err != nil {
			return err
		}
		if audio != "" {
			if err := json.Unmarshal([]byte(audio), &w.AudioFiles); err != nil {
				return fmt.Errorf("decode audio files of word %d: %w", w.ID, err)
			}
		}
		if lastSeen.Valid {
			t := lastSeen.Time.UTC()
			w.LastSeenAt = &t
		}
		words = append(words, w)
		return nil
	})
	return words, err
}

func (r *catalogRepository) attachCategories(ctx context.Context, wordsetID int64, words []entity.Word) error {
	if len(words) == 0 {
		return nil
	}
	links, err := r.links(ctx, r.drv, wordsetID, "word_id", lo.Map(words, func(w entity.Word, _ int) int64 { return w.ID }))
	if err != nil {
		return err
	}
	byWord := map[int64][]int64{}
	for _, l := range links {
		byWord[l.wordID] = append(byWord[l.wordID], l.categoryID)
	}
	for i := range words {
		words[i].CategoryIDs = entity.SortedIDs(byWord[words[i].ID])
	}
	return nil
}

type link struct {
	categoryID int64
	wordID     int64
}

// links loads word_categories rows whose column matches one of ids, ordered
// by category then word.
func (r *catalogRepository) links(ctx context.Context, q querier, wordsetID int64, column string, ids []int64) ([]link, error) {
	var out []link
	b := r.builder()
	for _, batch := range lo.Chunk(ids, inChunk) {
		query, args := b.Select("category_id", "word_id").From(b.Table(WordCategoriesTable.Name)).
			Where(entsql.And(entsql.EQ("wordset_id", wordsetID), entsql.In(column, int64Args(batch)...))).
			OrderBy("category_id", "word_id").
			Query()
		err := queryRows(ctx, q, query, args, func(rows *entsql.Rows) error {
			var l link
			if err := rows.Scan(&l.categoryID, &l.wordID); err != nil {
				return err
			}
			out = append(out, l)
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("list word links: %w", err)
		}
	}
	return out, nil
}

func nullTime(t *time.Time) any {
	if t == nil || t.IsZero() {
		return nil
	}
	return t.UTC()
}
