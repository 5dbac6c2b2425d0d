// Copyright (c) 2026 Michael D Henderson. All rights reserved.

package sqlitedb

import (
	"context"
)

// SelectOne runs q and decodes its first row. It returns ok=false, and no
// error, when the query yields no rows. When the query yields more than
// one row the first row in result order is returned and the rest are
// discarded; add ORDER BY (and LIMIT 1) if that matters.
//
// The connection is back in the pool when SelectOne returns. Errors are
// ErrAcquire or ErrFetch.
func SelectOne[O any](ctx context.Context, c *Client, q *Query[O]) (out O, ok bool, err error) {
	query, args, err := q.take()
	if err != nil {
		return out, false, err
	}

	lease, err := c.pool.Acquire(ctx)
	if err != nil {
		return out, false, err
	}
	defer lease.Release()

	rows, err := lease.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return out, false, wrapf(ErrFetch, err, "sqlitedb: select one")
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil && err == nil {
			ok, err = false, wrapf(ErrFetch, cerr, "sqlitedb: close rows")
		}
	}()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return out, false, wrapf(ErrFetch, err, "sqlitedb: select one")
		}
		return out, false, nil
	}

	out, err = decodeRow[O](rows)
	if err != nil {
		return out, false, wrapf(ErrFetch, err, "sqlitedb: decode row")
	}
	return out, true, nil
}

// SelectAll runs q to completion and decodes every row, in result order.
// A query with no rows returns an empty, non-nil slice.
//
// The connection is back in the pool when SelectAll returns. Errors are
// ErrAcquire or ErrFetch.
func SelectAll[O any](ctx context.Context, c *Client, q *Query[O]) (out []O, err error) {
	query, args, err := q.take()
	if err != nil {
		return nil, err
	}

	lease, err := c.pool.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer lease.Release()

	rows, err := lease.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, wrapf(ErrFetch, err, "sqlitedb: select all")
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil && err == nil {
			err = wrapf(ErrFetch, cerr, "sqlitedb: close rows")
		}
	}()

	out = make([]O, 0)
	for rows.Next() {
		v, err := decodeRow[O](rows)
		if err != nil {
			return nil, wrapf(ErrFetch, err, "sqlitedb: decode row %d", len(out))
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapf(ErrFetch, err, "sqlitedb: select all")
	}
	return out, nil
}

// SelectStream leases a connection and returns a Stream that will run q
// on it. The query is not executed until the stream's rows are read.
// The caller must Close the stream.
//
// Errors are ErrAcquire.
func SelectStream[O any](ctx context.Context, c *Client, q *Query[O]) (*Stream[O], error) {
	query, args, err := q.take()
	if err != nil {
		return nil, err
	}

	lease, err := c.pool.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	return newStream[O](lease, &statement{sql: query, args: args}, c.logger), nil
}
