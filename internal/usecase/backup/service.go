package backup

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/samber/lo"

	"github.com/eslsoft/flashdeck/internal/entity"
	"github.com/eslsoft/flashdeck/internal/repository"
)

const (
	defaultBatchSize = 512
	formatVersion    = 1
)

// Section names accepted by WithSections.
const (
	SectionCategories = "categories"
	SectionWords      = "words"
	SectionLearner    = "learner"
)

const (
	recordMeta     = "meta"
	recordCategory = "category"
	recordWord     = "word"
	recordState    = "state"
	recordGoals    = "goals"
	recordOutcome  = "outcome"
)

var allSections = []string{SectionCategories, SectionWords, SectionLearner}

var errNoSectionsSelected = errors.New("backup: no sections selected")

type ProgressReporter interface {
	StartTable(table string, total int)
	Increment(table string, delta int)
	FinishTable(table string)
}

type noopProgress struct{}

func (noopProgress) StartTable(string, int) {}
func (noopProgress) Increment(string, int)  {}
func (noopProgress) FinishTable(string)     {}

// Service streams a wordset's catalog and learner progress to and from NDJSON.
type Service struct {
	catalog   repository.CatalogRepository
	learner   repository.LearnerRepository
	batchSize int
}

type Option func(*Service)

func WithBatchSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.batchSize = size
		}
	}
}

// NewService constructs a backup service over the provided repositories.
func NewService(catalog repository.CatalogRepository, learner repository.LearnerRepository, opts ...Option) (*Service, error) {
	if catalog == nil {
		return nil, errors.New("backup: catalog repository is required")
	}
	if learner == nil {
		return nil, errors.New("backup: learner repository is required")
	}
	svc := &Service{catalog: catalog, learner: learner, batchSize: defaultBatchSize}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

type ExportOption func(*exportConfig)

type exportConfig struct {
	sections []string
	reporter ProgressReporter
}

// WithSections restricts export to the named sections.
func WithSections(sections []string) ExportOption {
	return func(cfg *exportConfig) {
		if len(sections) == 0 {
			return
		}
		cfg.sections = append([]string{}, sections...)
	}
}

// WithProgressReporter registers a reporter that receives progress callbacks during export.
func WithProgressReporter(reporter ProgressReporter) ExportOption {
	return func(cfg *exportConfig) {
		cfg.reporter = reporter
	}
}

type ImportOption func(*importConfig)

type importConfig struct {
	sections []string
}

// WithImportSections restricts import to the named sections.
func WithImportSections(sections []string) ImportOption {
	return func(cfg *importConfig) {
		if len(sections) == 0 {
			return
		}
		cfg.sections = append([]string{}, sections...)
	}
}

type record struct {
	Type       string         `json:"type"`
	Version    int            `json:"version,omitempty"`
	ExportedAt *time.Time     `json:"exported_at,omitempty"`
	WordsetID  int64          `json:"wordset_id,omitempty"`
	Sections   []string       `json:"sections,omitempty"`
	Counts     map[string]int `json:"counts,omitempty"`
	Payload    any            `json:"payload,omitempty"`
}

type rawRecord struct {
	Type      string          `json:"type"`
	Version   int             `json:"version"`
	WordsetID int64           `json:"wordset_id"`
	Sections  []string        `json:"sections"`
	Payload   json.RawMessage `json:"payload"`
}

// Export writes the meta record followed by one record per category, word
// and learner item of wordsetID.
func (s *Service) Export(ctx context.Context, wordsetID int64, w io.Writer, opts ...ExportOption) error {
	if wordsetID <= 0 {
		return entity.ErrInvalidWordsetID
	}
	cfg := exportConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}
	sections, err := selectSections(cfg.sections)
	if err != nil {
		return err
	}
	reporter := cfg.reporter
	if reporter == nil {
		reporter = noopProgress{}
	}

	categories, err := s.catalog.ListCategories(ctx, wordsetID)
	if err != nil {
		return fmt.Errorf("list categories: %w", err)
	}
	_, wordTotal, err := s.catalog.ListWords(ctx, &repository.ListWordQuery{
		WordsetID:  wordsetID,
		Pagination: repository.Pagination{PageNo: 1, PageSize: 1},
	})
	if err != nil {
		return fmt.Errorf("count words: %w", err)
	}
	learner, err := s.loadLearner(ctx, wordsetID)
	if err != nil {
		return err
	}

	counts := map[string]int{
		SectionCategories: len(categories),
		SectionWords:      int(wordTotal),
		SectionLearner:    learner.size(),
	}
	for name := range counts {
		if !lo.Contains(sections, name) {
			delete(counts, name)
		}
	}

	writer := bufio.NewWriter(w)
	defer writer.Flush()

	now := time.Now().UTC()
	meta := record{
		Type:       recordMeta,
		Version:    formatVersion,
		ExportedAt: &now,
		WordsetID:  wordsetID,
		Sections:   sections,
		Counts:     counts,
	}
	if err := writeRecord(writer, meta); err != nil {
		return err
	}

	for _, section := range sections {
		reporter.StartTable(section, counts[section])
		switch section {
		case SectionCategories:
			for _, c := range categories {
				if err := writeRecord(writer, record{Type: recordCategory, Payload: c}); err != nil {
					return err
				}
				reporter.Increment(section, 1)
			}
		case SectionWords:
			if err := s.exportWords(ctx, wordsetID, reporter, writer); err != nil {
				return err
			}
		case SectionLearner:
			if err := learner.write(writer, reporter); err != nil {
				return err
			}
		}
		reporter.FinishTable(section)
	}
	return writer.Flush()
}

// Import reads an export stream into wordsetID. Words are flushed in
// batches; unselected sections are skipped.
func (s *Service) Import(ctx context.Context, wordsetID int64, r io.Reader, opts ...ImportOption) error {
	if wordsetID <= 0 {
		return entity.ErrInvalidWordsetID
	}
	cfg := importConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}
	sections, err := selectSections(cfg.sections)
	if err != nil {
		return err
	}
	selected := func(section string) bool { return lo.Contains(sections, section) }

	br := bufio.NewReader(r)
	var (
		metaSeen   bool
		categories []entity.Category
		words      []entity.Word
		outcomes   []entity.WordOutcome
	)
	flushWords := func() error {
		if len(words) == 0 {
			return nil
		}
		if err := s.catalog.UpsertWords(ctx, wordsetID, words); err != nil {
			return fmt.Errorf("import words: %w", err)
		}
		words = words[:0]
		return nil
	}

	for {
		line, err := br.ReadBytes('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return fmt.Errorf("read backup: %w", err)
		}
		line = bytes.TrimSpace(line)
		if len(line) > 0 {
			var rec rawRecord
			if err := json.Unmarshal(line, &rec); err != nil {
				return fmt.Errorf("decode record: %w", err)
			}
			if rec.Type == recordMeta {
				if rec.Version != formatVersion {
					return fmt.Errorf("backup: unsupported format version %d", rec.Version)
				}
				metaSeen = true
			} else if !metaSeen {
				return errors.New("backup: missing meta record")
			}

			switch rec.Type {
			case recordMeta:
			case recordCategory:
				if !selected(SectionCategories) {
					break
				}
				var c entity.Category
				if err := decodePayload(rec, &c); err != nil {
					return err
				}
				categories = append(categories, c)
			case recordWord:
				if !selected(SectionWords) {
					break
				}
				var wd entity.Word
				if err := decodePayload(rec, &wd); err != nil {
					return err
				}
				words = append(words, wd)
				if len(words) >= s.batchSize {
					// Categories first so the word links have targets.
					if err := s.flushCategories(ctx, wordsetID, &categories); err != nil {
						return err
					}
					if err := flushWords(); err != nil {
						return err
					}
				}
			case recordState:
				if !selected(SectionLearner) {
					break
				}
				var state entity.UserState
				if err := decodePayload(rec, &state); err != nil {
					return err
				}
				if err := s.learner.SaveUserState(ctx, wordsetID, state); err != nil {
					return fmt.Errorf("import state: %w", err)
				}
			case recordGoals:
				if !selected(SectionLearner) {
					break
				}
				var goals entity.Goals
				if err := decodePayload(rec, &goals); err != nil {
					return err
				}
				goals.Normalize()
				if err := s.learner.SaveGoals(ctx, wordsetID, goals); err != nil {
					return fmt.Errorf("import goals: %w", err)
				}
			case recordOutcome:
				if !selected(SectionLearner) {
					break
				}
				var o entity.WordOutcome
				if err := decodePayload(rec, &o); err != nil {
					return err
				}
				outcomes = append(outcomes, o)
			default:
				return fmt.Errorf("backup: unknown record type %q", rec.Type)
			}
		}
		if errors.Is(err, io.EOF) {
			break
		}
	}

	if !metaSeen {
		return errors.New("backup: missing meta record")
	}
	if err := s.flushCategories(ctx, wordsetID, &categories); err != nil {
		return err
	}
	if err := flushWords(); err != nil {
		return err
	}
	for _, batch := range lo.Chunk(outcomes, s.batchSize) {
		if err := s.learner.AppendOutcomes(ctx, wordsetID, batch); err != nil {
			return fmt.Errorf("import outcomes: %w", err)
		}
	}
	return nil
}

func (s *Service) flushCategories(ctx context.Context, wordsetID int64, categories *[]entity.Category) error {
	if len(*categories) == 0 {
		return nil
	}
	if err := s.catalog.UpsertCategories(ctx, wordsetID, *categories); err != nil {
		return fmt.Errorf("import categories: %w", err)
	}
	*categories = (*categories)[:0]
	return nil
}

func (s *Service) exportWords(ctx context.Context, wordsetID int64, reporter ProgressReporter, w io.Writer) error {
	batch := s.batchSize
	if batch <= 0 {
		batch = defaultBatchSize
	}
	for page := int32(1); ; page++ {
		words, _, err := s.catalog.ListWords(ctx, &repository.ListWordQuery{
			WordsetID:  wordsetID,
			Pagination: repository.Pagination{PageNo: page, PageSize: int32(batch)},
		})
		if err != nil {
			return fmt.Errorf("list words: %w", err)
		}
		for _, wd := range words {
			wd.IsStarred = false
			if err := writeRecord(w, record{Type: recordWord, Payload: wd}); err != nil {
				return err
			}
			reporter.Increment(SectionWords, 1)
		}
		if len(words) < batch {
			return nil
		}
	}
}

type learnerSnapshot struct {
	state    entity.UserState
	goals    entity.Goals
	outcomes []entity.WordOutcome
}

func (s *Service) loadLearner(ctx context.Context, wordsetID int64) (learnerSnapshot, error) {
	state, err := s.learner.GetUserState(ctx, wordsetID)
	if err != nil {
		return learnerSnapshot{}, fmt.Errorf("load state: %w", err)
	}
	goals, err := s.learner.GetGoals(ctx, wordsetID)
	if err != nil {
		return learnerSnapshot{}, fmt.Errorf("load goals: %w", err)
	}
	outcomes, err := s.learner.ListOutcomesSince(ctx, wordsetID, time.Time{})
	if err != nil {
		return learnerSnapshot{}, fmt.Errorf("load outcomes: %w", err)
	}
	return learnerSnapshot{state: state, goals: goals, outcomes: outcomes}, nil
}

func (l learnerSnapshot) size() int { return 2 + len(l.outcomes) }

func (l learnerSnapshot) write(w io.Writer, reporter ProgressReporter) error {
	if err := writeRecord(w, record{Type: recordState, Payload: l.state}); err != nil {
		return err
	}
	if err := writeRecord(w, record{Type: recordGoals, Payload: l.goals}); err != nil {
		return err
	}
	reporter.Increment(SectionLearner, 2)
	for _, o := range l.outcomes {
		if err := writeRecord(w, record{Type: recordOutcome, Payload: o}); err != nil {
			return err
		}
		reporter.Increment(SectionLearner, 1)
	}
	return nil
}

// selectSections validates requested names and returns them in canonical order.
func selectSections(requested []string) ([]string, error) {
	if len(requested) == 0 {
		return append([]string{}, allSections...), nil
	}
	set := make(map[string]struct{}, len(requested))
	for _, name := range requested {
		n := strings.TrimSpace(strings.ToLower(name))
		if n == "" {
			continue
		}
		if !lo.Contains(allSections, n) {
			return nil, fmt.Errorf("backup: unsupported section %q", name)
		}
		set[n] = struct{}{}
	}
	if len(set) == 0 {
		return nil, errNoSectionsSelected
	}
	return lo.Filter(allSections, func(name string, _ int) bool {
		_, ok := set[name]
		return ok
	}), nil
}

func decodePayload(rec rawRecord, dst any) error {
	if len(rec.Payload) == 0 {
		return fmt.Errorf("backup: missing payload for %s record", rec.Type)
	}
	if err := json.Unmarshal(rec.Payload, dst); err != nil {
		return fmt.Errorf("decode %s payload: %w", rec.Type, err)
	}
	return nil
}

func writeRecord(w io.Writer, rec record) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	if _, err := w.Write(data); err != nil {
		return err
	}
	if _, err := w.Write([]byte("\n")); err != nil {
		return err
	}
	return nil
}
