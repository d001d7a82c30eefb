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

type learnerRepository struct {
	*Store
	now func() time.Time
}

// NewLearnerRepository exposes the store as a learner repository.
func NewLearnerRepository(s *Store) repository.LearnerRepository {
	return &learnerRepository{Store: s, now: time.Now}
}

func (r *learnerRepository) GetUserState(ctx context.Context, wordsetID int64) (entity.UserState, error) {
	state := entity.UserState{StarMode: entity.StarModeNormal}
	raw, err := r.profileColumn(ctx, wordsetID, "state")
	if err != nil || raw == "" {
		return state, err
	}
	if err := json.Unmarshal([]byte(raw), &state); err != nil {
		return entity.UserState{}, fmt.Errorf("decode user state: %w", err)
	}
	state.StarMode = entity.ParseStarMode(string(state.StarMode))
	return state, nil
}

func (r *learnerRepository) SaveUserState(ctx context.Context, wordsetID int64, state entity.UserState) error {
	return r.saveProfileColumn(ctx, wordsetID, "state", state)
}

func (r *learnerRepository) GetGoals(ctx context.Context, wordsetID int64) (entity.Goals, error) {
	raw, err := r.profileColumn(ctx, wordsetID, "goals")
	if err != nil {
		return entity.Goals{}, err
	}
	var goals entity.Goals
	if raw != "" {
		if err := json.Unmarshal([]byte(raw), &goals); err != nil {
			return entity.Goals{}, fmt.Errorf("decode goals: %w", err)
		}
	}
	goals.Normalize()
	return goals, nil
}

func (r *learnerRepository) SaveGoals(ctx context.Context, wordsetID int64, goals entity.Goals) error {
	return r.saveProfileColumn(ctx, wordsetID, "goals", goals)
}

func (r *learnerRepository) ListDismissedActivities(ctx context.Context, wordsetID int64) ([]string, error) {
	b := r.builder()
	query, args := b.Select("queue_id").From(b.Table(DismissedActivitiesTable.Name)).
		Where(entsql.EQ("wordset_id", wordsetID)).
		OrderBy("dismissed_at", "queue_id").
		Query()
	ids := []string{}
	err := queryRows(ctx, r.drv, query, args, func(rows *entsql.Rows) error {
		var id string
		if err := rows.Scan(&id); err != nil {
			return err
		}
		ids = append(ids, id)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list dismissed activities: %w", err)
	}
	return ids, nil
}

func (r *learnerRepository) DismissActivity(ctx context.Context, wordsetID int64, queueID string) error {
	query, args := r.builder().Insert(DismissedActivitiesTable.Name).
		Columns("wordset_id", "queue_id", "dismissed_at").
		Values(wordsetID, queueID, r.now().UTC()).
		OnConflict(entsql.ConflictColumns("wordset_id", "queue_id"), entsql.DoNothing()).
		Query()
	if err := exec(ctx, r.drv, query, args); err != nil {
		return fmt.Errorf("dismiss activity: %w", err)
	}
	return nil
}

func (r *learnerRepository) AppendOutcomes(ctx context.Context, wordsetID int64, outcomes []entity.WordOutcome) error {
	if len(outcomes) == 0 {
		return nil
	}
	return r.withTx(ctx, func(tx dialect.Tx) error {
		for _, batch := range lo.Chunk(outcomes, inChunk) {
			insert := r.builder().Insert(WordOutcomesTable.Name).
				Columns("wordset_id", "word_id", "mode", "correct", "answered_at")
			for _, o := range batch {
				at := o.AnsweredAt
				if at.IsZero() {
					at = r.now()
				}
				insert.Values(wordsetID, o.WordID, string(o.Mode), o.Correct, at.UTC())
			}
			query, args := insert.Query()
			if err := exec(ctx, tx, query, args); err != nil {
				return fmt.Errorf("append outcomes: %w", err)
			}
		}
		return nil
	})
}

func (r *learnerRepository) ListOutcomesSince(ctx context.Context, wordsetID int64, since time.Time) ([]entity.WordOutcome, error) {
	b := r.builder()
	query, args := b.Select("word_id", "mode", "correct", "answered_at").
		From(b.Table(WordOutcomesTable.Name)).
		Where(entsql.And(entsql.EQ("wordset_id", wordsetID), entsql.GTE("answered_at", since.UTC()))).
		OrderBy("answered_at", "id").
		Query()
	var outcomes []entity.WordOutcome
	err := queryRows(ctx, r.drv, query, args, func(rows *entsql.Rows) error {
		var (
			o    entity.WordOutcome
			mode string
		)
		if err := rows.Scan(&o.WordID, &mode, &o.Correct, &o.AnsweredAt); err != nil {
			return err
		}
		o.Mode = entity.ParseMode(mode)
		o.AnsweredAt = o.AnsweredAt.UTC()
		outcomes = append(outcomes, o)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list outcomes: %w", err)
	}
	return outcomes, nil
}

// profileColumn returns the raw JSON stored in column, or "" when the
// wordset has no profile yet.
func (r *learnerRepository) profileColumn(ctx context.Context, wordsetID int64, column string) (string, error) {
	b := r.builder()
	query, args := b.Select(column).From(b.Table(LearnerProfilesTable.Name)).
		Where(entsql.EQ("wordset_id", wordsetID)).
		Query()
	var raw sql.NullString
	err := queryRows(ctx, r.drv, query, args, func(rows *entsql.Rows) error { return rows.Scan(&raw) })
	if err != nil {
		return "", fmt.Errorf("load learner %s: %w", column, err)
	}
	return raw.String, nil
}

func (r *learnerRepository) saveProfileColumn(ctx context.Context, wordsetID int64, column string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode learner %s: %w", column, err)
	}
	query, args := r.builder().Insert(LearnerProfilesTable.Name).
		Columns("wordset_id", column, "updated_at").
		Values(wordsetID, string(data), r.now().UTC()).
		OnConflict(entsql.ConflictColumns("wordset_id"), entsql.ResolveWithNewValues()).
		Query()
	if err := exec(ctx, r.drv, query, args); err != nil {
		return fmt.Errorf("save learner %s: %w", column, err)
	}
	return nil
}
