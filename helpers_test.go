// Copyright (c) 2026 Michael D Henderson. All rights reserved.

package sqlitedb_test

import (
	"context"
	"log/slog"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/mdhender/sqlitedb"
)

const testNamespace = "TEST"

// user is the row type used by most tests.
type user struct {
	ID     int64   `db:"id"`
	Name   string  `db:"name"`
	Score  float64 `db:"score"`
	Active bool    `db:"active"`
	Avatar []byte  `db:"avatar"`
}

// openTestClient opens a client on a fresh database file in a temp
// directory. Extra settings are given without the namespace prefix.
func openTestClient(t *testing.T, extra map[string]string) *sqlitedb.Client {
	t.Helper()

	settings := map[string]string{
		testNamespace + "_URL": "sqlite://" + filepath.Join(t.TempDir(), "test.db") + "?mode=rwc",
	}
	for k, v := range extra {
		settings[testNamespace+"_"+k] = v
	}

	db, err := sqlitedb.Open(sqlitedb.Config{
		Namespace: testNamespace,
		Source:    sqlitedb.MapSource(settings),
		Logger:    slog.New(slog.DiscardHandler),
	})
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

// exec runs a statement and fails the test on error.
func exec(t *testing.T, db *sqlitedb.Client, sql string, args ...any) sqlitedb.Result {
	t.Helper()

	q := sqlitedb.NewQuery[sqlitedb.Result](sql)
	for _, arg := range args {
		q = q.Bind(arg)
	}
	res, err := db.Exec(context.Background(), q)
	if err != nil {
		t.Fatalf("exec %q: %v", sql, err)
	}
	return res
}

// seedUsers creates the users table and inserts n users named user-1..n.
func seedUsers(t *testing.T, db *sqlitedb.Client, n int) {
	t.Helper()

	exec(t, db, `CREATE TABLE users (
		id     INTEGER PRIMARY KEY,
		name   TEXT NOT NULL,
		score  REAL,
		active INTEGER,
		avatar BLOB
	)`)
	for i := 1; i <= n; i++ {
		exec(t, db, `INSERT INTO users (id, name, score, active) VALUES (?, ?, ?, ?)`,
			int64(i), "user-"+strconv.Itoa(i), float64(i)/2, i%2 == 1)
	}
}
