// Copyright (c) 2026 Michael D Henderson. All rights reserved.

// Package sqlitedb provides a pooled SQLite client configured from
// namespaced settings.
//
// The package implements a client model where:
//   - Settings are read once, at construction, from NAMESPACE_* keys
//   - The pool is bounded and connects lazily, on first use
//   - Queries are single-use values bound to a result type
//   - Results are read as one row, all rows, or a lazy stream
//
// # Basic Usage
//
//	db, err := sqlitedb.New("APP") // reads APP_URL, APP_MAX_CONNECTIONS, ...
//	if err != nil {
//	    return err
//	}
//	defer db.Close()
//
//	type User struct {
//	    ID   int64  `db:"id"`
//	    Name string `db:"name"`
//	}
//
//	q := sqlitedb.NewQuery[User](`SELECT id, name FROM users WHERE id = ?`).Bind(42)
//	user, ok, err := sqlitedb.SelectOne(ctx, db, q)
//
// # Settings
//
// Six settings are read for a namespace NS:
//   - NS_URL: connection URL (default "sqlite:db.sqlite")
//   - NS_MAX_CONNECTIONS: pool size limit (default 10)
//   - NS_MIN_CONNECTIONS: connections kept open after first use (default 0)
//   - NS_ACQUIRE_TIMEOUT: seconds to wait for a connection (default 30)
//   - NS_MAX_LIFETIME: seconds before a connection is retired (default 1800)
//   - NS_IDLE_TIMEOUT: seconds before an idle connection is closed (default 600)
//
// Values are whole numbers up to 4294967295. ACQUIRE_TIMEOUT must be at
// least 1. A MAX_LIFETIME or IDLE_TIMEOUT of 0 means no limit: connections
// are never retired for age or idleness.
//
// A set value that does not parse is an error; it never falls back to the
// default. Settings come from the environment unless Config.Source says
// otherwise.
//
// # Connection URLs
//
// URLs have the form sqlite:PATH or sqlite://PATH, with optional mode
// (ro, rw, rwc, memory), cache (shared, private), immutable, and vfs
// parameters. The default mode is rw, so the database file must already
// exist; use mode=rwc to create it. sqlite::memory: opens an in-memory
// database shared by all connections of one client.
//
// # Streaming
//
// SelectStream leases a connection and returns a Stream. Its rows are
// requested once, with All, and read with a range loop. The connection
// is held until the rows are read or the Stream is closed.
//
// # Errors
//
// Errors match one of ErrConfig, ErrInitialize, ErrAcquire, ErrFetch,
// ErrStreamExhausted, or ErrQueryConsumed with errors.Is, and unwrap to
// their cause. Nothing is retried.
package sqlitedb
