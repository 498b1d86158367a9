package pgstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"MaintBackOffice/internal/store"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// Store keeps each collection as a Postgres table of JSONB documents:
//
//	id uuid primary key, doc jsonb, created_at timestamptz
//
// Tables are created on first use.
type Store struct {
	pool   *pgxpool.Pool
	mu     sync.Mutex
	tables map[string]bool
}

func Connect(ctx context.Context, dsn string) (*Store, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to create pgx pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}
	zap.L().Info("connected to postgres document store")
	return New(pool), nil
}

func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool, tables: make(map[string]bool)}
}

func (s *Store) ensureTable(ctx context.Context, collection string) error {
	if !store.ValidCollection(collection) {
		return fmt.Errorf("%w: %q", store.ErrInvalidCollection, collection)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.tables[collection] {
		return nil
	}
	ddl := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		id uuid PRIMARY KEY,
		doc jsonb NOT NULL,
		created_at timestamptz NOT NULL DEFAULT now()
	)`, collection)
	if _, err := s.pool.Exec(ctx, ddl); err != nil {
		return fmt.Errorf("create table %s: %w", collection, err)
	}
	s.tables[collection] = true
	return nil
}

// whereClause renders f against the doc column. Field names travel as bind
// parameters, never as SQL text.
func whereClause(f store.Filter) (string, []any) {
	var (
		args  []any
		parts []string
	)
	bind := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}
	if len(f.AnyOf) > 0 {
		ors := make([]string, 0, len(f.AnyOf))
		for _, m := range f.AnyOf {
			ands := make([]string, 0, len(m))
			for field, value := range m {
				lhs := fmt.Sprintf("doc->>%s::text", bind(field))
				rhs := bind(fmt.Sprint(value))
				if f.CaseInsensitive {
					ands = append(ands, fmt.Sprintf("lower(%s) = lower(%s)", lhs, rhs))
				} else {
					ands = append(ands, fmt.Sprintf("%s = %s", lhs, rhs))
				}
			}
			if len(ands) > 0 {
				ors = append(ors, "("+strings.Join(ands, " AND ")+")")
			}
		}
		if len(ors) > 0 {
			parts = append(parts, "("+strings.Join(ors, " OR ")+")")
		}
	}
	if f.OlderThan != nil {
		parts = append(parts, fmt.Sprintf("(doc->>%s::text)::timestamptz < %s",
			bind(f.OlderThan.Field), bind(f.OlderThan.Before)))
	}
	if len(parts) == 0 {
		return "FALSE", nil
	}
	return strings.Join(parts, " AND "), args
}

func (s *Store) Find(ctx context.Context, collection string, filter store.Filter) ([]store.Document, error) {
	if filter.Empty() {
		return nil, nil
	}
	if err := s.ensureTable(ctx, collection); err != nil {
		return nil, err
	}
	where, args := whereClause(filter)
	rows, err := s.pool.Query(ctx, fmt.Sprintf("SELECT id::text, doc FROM %s WHERE %s", collection, where), args...)
	if err != nil {
		return nil, fmt.Errorf("find %s: %w", collection, err)
	}
	defer rows.Close()

	var docs []store.Document
	for rows.Next() {
		var (
			id  string
			raw []byte
		)
		if err := rows.Scan(&id, &raw); err != nil {
			return nil, fmt.Errorf("scan %s: %w", collection, err)
		}
		fields := map[string]any{}
		if err := json.Unmarshal(raw, &fields); err != nil {
			return nil, fmt.Errorf("decode %s document %s: %w", collection, id, err)
		}
		docs = append(docs, store.Document{ID: id, Fields: fields})
	}
	return docs, rows.Err()
}

// BulkWrite applies ops in one transaction with a savepoint around each op, so a
// rejected op rolls back alone and its siblings still commit.
func (s *Store) BulkWrite(ctx context.Context, collection string, ops []store.WriteOp) (*store.BulkResult, error) {
	out := &store.BulkResult{}
	if len(ops) == 0 {
		return out, nil
	}
	if err := s.ensureTable(ctx, collection); err != nil {
		return nil, err
	}
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to start transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	for i, op := range ops {
		sp, err := tx.Begin(ctx)
		if err != nil {
			return nil, fmt.Errorf("savepoint %d: %w", i, err)
		}
		affected, opErr := s.apply(ctx, sp, collection, op)
		if opErr != nil {
			if rbErr := sp.Rollback(ctx); rbErr != nil {
				return nil, fmt.Errorf("rollback savepoint %d: %w", i, rbErr)
			}
			out.WriteErrors = append(out.WriteErrors, toWriteError(i, opErr))
			continue
		}
		if err := sp.Commit(ctx); err != nil {
			return nil, fmt.Errorf("release savepoint %d: %w", i, err)
		}
		switch op.Kind {
		case store.OpUpdate:
			out.MatchedCount += affected
			out.ModifiedCount += affected
		default:
			out.InsertedCount += affected
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit failed: %w", err)
	}
	return out, nil
}

func (s *Store) apply(ctx context.Context, tx pgx.Tx, collection string, op store.WriteOp) (int64, error) {
	doc, err := json.Marshal(op.Fields)
	if err != nil {
		return 0, err
	}
	var tag pgconn.CommandTag
	switch op.Kind {
	case store.OpUpdate:
		tag, err = tx.Exec(ctx,
			fmt.Sprintf("UPDATE %s SET doc = doc || $2::jsonb WHERE id = $1::uuid", collection),
			fmt.Sprint(op.ID), doc)
	default:
		tag, err = tx.Exec(ctx,
			fmt.Sprintf("INSERT INTO %s (id, doc) VALUES ($1, $2::jsonb)", collection),
			uuid.New().String(), doc)
	}
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func toWriteError(index int, err error) store.WriteError {
	we := store.WriteError{Index: index, Message: err.Error()}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		we.Code = pgErr.Code
		we.Message = pgErr.Message
	}
	return we
}

func (s *Store) InsertOne(ctx context.Context, collection string, fields map[string]any) error {
	if err := s.ensureTable(ctx, collection); err != nil {
		return err
	}
	doc, err := json.Marshal(fields)
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx,
		fmt.Sprintf("INSERT INTO %s (id, doc) VALUES ($1, $2::jsonb)", collection),
		uuid.New().String(), doc)
	if err != nil {
		return fmt.Errorf("insert %s: %w", collection, err)
	}
	return nil
}

func (s *Store) DeleteMany(ctx context.Context, collection string, filter store.Filter) (int64, error) {
	if filter.Empty() {
		return 0, nil
	}
	if err := s.ensureTable(ctx, collection); err != nil {
		return 0, err
	}
	where, args := whereClause(filter)
	tag, err := s.pool.Exec(ctx, fmt.Sprintf("DELETE FROM %s WHERE %s", collection, where), args...)
	if err != nil {
		return 0, fmt.Errorf("delete %s: %w", collection, err)
	}
	return tag.RowsAffected(), nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func (s *Store) Close(_ context.Context) error {
	s.pool.Close()
	return nil
}
