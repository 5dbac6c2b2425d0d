// Copyright (c) 2026 Michael D Henderson. All rights reserved.

package sqlitedb

import (
	"sync/atomic"

	"github.com/Masterminds/squirrel"
	"github.com/cockroachdb/errors"
)

// Query is SQL text plus its positional parameters, producing rows of
// type O. A Query is single use: Bind consumes the receiver and returns a
// new Query, and an execution call consumes the Query it is given. Any
// later use of a consumed Query fails with ErrQueryConsumed.
//
//	q := sqlitedb.NewQuery[User](`SELECT id, name FROM users WHERE id = ?`).Bind(42)
//	user, ok, err := sqlitedb.SelectOne(ctx, db, q)
//
// The parameter count is not checked against the SQL text; a mismatch
// surfaces as ErrFetch when the query runs.
type Query[O any] struct {
	sql   string
	args  []any
	moved atomic.Bool
	err   error
}

// NewQuery returns a Query with no bound parameters.
func NewQuery[O any](sql string) *Query[O] {
	return &Query[O]{sql: sql}
}

// QueryFrom returns a Query holding the SQL and parameters rendered by a
// squirrel builder. The builder must use the default ? placeholders. A
// builder error is reported as ErrFetch when the Query is executed.
//
//	q := sqlitedb.QueryFrom[User](squirrel.Select("id", "name").
//	    From("users").
//	    Where(squirrel.Eq{"active": true}))
func QueryFrom[O any](b squirrel.Sqlizer) *Query[O] {
	sql, args, err := b.ToSql()
	if err != nil {
		return &Query[O]{err: wrapf(ErrFetch, err, "sqlitedb: build query")}
	}
	return &Query[O]{sql: sql, args: args}
}

// Bind appends one positional parameter and returns the updated Query.
// The receiver must not be used again. Binding a consumed Query returns a
// Query that fails when executed.
func (q *Query[O]) Bind(value any) *Query[O] {
	if q == nil || !q.moved.CompareAndSwap(false, true) {
		return &Query[O]{err: errors.WithStack(ErrQueryConsumed)}
	}
	if q.err != nil {
		return &Query[O]{sql: q.sql, err: q.err}
	}
	return &Query[O]{sql: q.sql, args: append(q.args, value)}
}

// SQL returns the query text.
func (q *Query[O]) SQL() string {
	if q == nil {
		return ""
	}
	return q.sql
}

// take consumes the Query and returns its text and parameters.
func (q *Query[O]) take() (string, []any, error) {
	if q == nil || !q.moved.CompareAndSwap(false, true) {
		return "", nil, errors.WithStack(ErrQueryConsumed)
	}
	if q.err != nil {
		return "", nil, q.err
	}
	return q.sql, q.args, nil
}
