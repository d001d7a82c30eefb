package repository

import (
	"context"
	"fmt"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"
	"entgo.io/ent/dialect/sql/schema"
	"github.com/sirupsen/logrus"
)

// Store is the SQL persistence of catalogs and learner progress. It builds
// dialect-specific statements with the ent SQL builder.
type Store struct {
	drv    dialect.Driver
	logger logrus.FieldLogger
}

// NewStore wraps drv. The driver's dialect decides quoting and placeholders.
func NewStore(drv dialect.Driver, logger logrus.FieldLogger) *Store {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Store{drv: drv, logger: logger}
}

// Migrate creates or updates every table the store uses.
func (s *Store) Migrate(ctx context.Context) error {
	m, err := schema.NewMigrate(s.drv)
	if err != nil {
		return fmt.Errorf("init migrate: %w", err)
	}
	if err := m.Create(ctx, Tables...); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// Close releases the underlying driver.
func (s *Store) Close() error {
	return s.drv.Close()
}

func (s *Store) builder() *entsql.DialectBuilder {
	return entsql.Dialect(s.drv.Dialect())
}

type querier interface {
	Query(ctx context.Context, query string, args, v any) error
}

type execer interface {
	Exec(ctx context.Context, query string, args, v any) error
}

func queryRows(ctx context.Context, q querier, query string, args []any, scan func(rows *entsql.Rows) error) error {
	if args == nil {
		args = []any{}
	}
	rows := &entsql.Rows{}
	if err := q.Query(ctx, query, args, rows); err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		if err := scan(rows); err != nil {
			return err
		}
	}
	return rows.Err()
}

func exec(ctx context.Context, e execer, query string, args []any) error {
	if args == nil {
		args = []any{}
	}
	return e.Exec(ctx, query, args, nil)
}

// withTx runs fn in a transaction and commits when it returns nil.
func (s *Store) withTx(ctx context.Context, fn func(tx dialect.Tx) error) error {
	tx, err := s.drv.Tx(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		if rerr := tx.Rollback(); rerr != nil {
			s.logger.WithError(rerr).Warn("rollback failed")
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func int64Args(ids []int64) []any {
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	return args
}
