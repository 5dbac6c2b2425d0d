// Copyright (c) 2026 Michael D Henderson. All rights reserved.

package sqlitedb

import (
	"context"
	"database/sql"
	"iter"
	"log/slog"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/cockroachdb/errors"
)

type streamState uint8

const (
	// streamArmed holds a pending statement; no rows have been requested.
	streamArmed streamState = iota
	// streamExhausted has handed out its rows, or was closed.
	streamExhausted
)

// statement is a query taken from a Query and waiting to run.
type statement struct {
	sql  string
	args []any
}

// Stream owns a leased connection and one pending query. Its rows can be
// requested exactly once, with All.
//
//	stream, err := sqlitedb.SelectStream(ctx, db, q)
//	if err != nil {
//	    return err
//	}
//	defer stream.Close()
//
//	rows, err := stream.All(ctx)
//	if err != nil {
//	    return err
//	}
//	for user, err := range rows {
//	    if err != nil {
//	        return err
//	    }
//	    ...
//	}
//
// The connection goes back to the pool when the rows are fully read, when
// the range loop stops early, or when Close is called, whichever happens
// first. A Stream must not be read from more than one goroutine.
type Stream[O any] struct {
	mu      sync.Mutex
	state   streamState
	pending *statement
	lease   *Lease
	rows    *sql.Rows
	closed  bool
	logger  *slog.Logger
	cleanup runtime.Cleanup
}

func newStream[O any](lease *Lease, stmt *statement, logger *slog.Logger) *Stream[O] {
	s := &Stream[O]{
		state:   streamArmed,
		pending: stmt,
		lease:   lease,
		logger:  logger,
	}
	// An abandoned Stream still returns its connection.
	s.cleanup = runtime.AddCleanup(s, func(l *Lease) {
		logger.Warn("stream was not closed; releasing connection")
		l.Release()
	}, lease)
	return s
}

// All takes the pending query and returns its rows as a lazy sequence.
// The query runs when the sequence is first ranged over, and each step
// fetches and decodes one row. An execution or decode error is yielded
// once, as ErrFetch, and ends the sequence. The sequence cannot be
// restarted; ranging over it again yields ErrStreamExhausted.
//
// A second call to All fails with ErrStreamExhausted without touching
// the database.
func (s *Stream[O]) All(ctx context.Context) (iter.Seq2[O, error], error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != streamArmed {
		return nil, errors.WithStack(ErrStreamExhausted)
	}
	stmt := s.pending
	s.pending = nil
	s.state = streamExhausted

	var started atomic.Bool
	return func(yield func(O, error) bool) {
		var zero O
		if !started.CompareAndSwap(false, true) {
			yield(zero, errors.WithStack(ErrStreamExhausted))
			return
		}
		defer s.finish()

		rows, err := s.open(ctx, stmt)
		if err != nil {
			yield(zero, err)
			return
		}

		for n := 0; rows.Next(); n++ {
			v, err := decodeRow[O](rows)
			if err != nil {
				yield(zero, wrapf(ErrFetch, err, "sqlitedb: decode row %d", n))
				return
			}
			if !yield(v, nil) {
				return
			}
		}
		if err := rows.Err(); err != nil {
			yield(zero, wrapf(ErrFetch, err, "sqlitedb: stream rows"))
		}
	}, nil
}

// open runs the statement on the leased connection.
func (s *Stream[O]) open(ctx context.Context, stmt *statement) (*sql.Rows, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, wrapf(ErrFetch, sql.ErrConnDone, "sqlitedb: stream closed")
	}
	rows, err := s.lease.conn.QueryContext(ctx, stmt.sql, stmt.args...)
	if err != nil {
		return nil, wrapf(ErrFetch, err, "sqlitedb: select stream")
	}
	s.rows = rows
	return rows, nil
}

// finish closes the rows and releases the connection.
func (s *Stream[O]) finish() {
	s.mu.Lock()
	defer s.mu.Unlock()
	_ = s.release()
}

// Close releases the connection. It is safe to call more than once and
// after the rows were fully read. Closing before the rows were requested
// discards the pending query.
func (s *Stream[O]) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.state = streamExhausted
	s.pending = nil
	return s.release()
}

// release must be called with mu held.
func (s *Stream[O]) release() error {
	var err error
	if s.rows != nil {
		if cerr := s.rows.Close(); cerr != nil {
			err = wrapf(ErrFetch, cerr, "sqlitedb: close rows")
		}
		s.rows = nil
	}
	if !s.closed {
		s.closed = true
		s.cleanup.Stop()
		s.lease.Release()
	}
	return err
}
