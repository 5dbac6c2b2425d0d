// Copyright (c) 2026 Michael D Henderson. All rights reserved.

package sqlitedb_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mdhender/sqlitedb"
)

// TestSelectOne_NoRows tests that an empty result is not an error.
func TestSelectOne_NoRows(t *testing.T) {
	db := openTestClient(t, nil)
	seedUsers(t, db, 2)

	q := sqlitedb.NewQuery[user](`SELECT * FROM users WHERE id = ?`).Bind(99)
	got, ok, err := sqlitedb.SelectOne(context.Background(), db, q)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, user{}, got)
}

// TestSelectOne_FirstRow tests that extra rows are discarded.
func TestSelectOne_FirstRow(t *testing.T) {
	db := openTestClient(t, nil)
	seedUsers(t, db, 5)

	q := sqlitedb.NewQuery[user](`SELECT * FROM users ORDER BY id DESC`)
	got, ok, err := sqlitedb.SelectOne(context.Background(), db, q)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, user{ID: 5, Name: "user-5", Score: 2.5, Active: true}, got)
	assert.Equal(t, 0, db.Stats().InUse)
}

// TestSelectAll tests result order, duplicates, and the empty result.
func TestSelectAll(t *testing.T) {
	ctx := context.Background()
	db := openTestClient(t, nil)
	seedUsers(t, db, 4)

	names, err := sqlitedb.SelectAll(ctx, db,
		sqlitedb.NewQuery[string](`SELECT name FROM users WHERE id IN (?, ?) UNION ALL SELECT name FROM users WHERE id = ? ORDER BY 1`).
			Bind(1).Bind(3).Bind(1))
	require.NoError(t, err)
	assert.Equal(t, []string{"user-1", "user-1", "user-3"}, names)

	none, err := sqlitedb.SelectAll(ctx, db, sqlitedb.NewQuery[user](`SELECT * FROM users WHERE id > 100`))
	require.NoError(t, err)
	assert.NotNil(t, none)
	assert.Empty(t, none)
}

// TestSelectAll_Users tests struct decoding of every seeded row.
func TestSelectAll_Users(t *testing.T) {
	db := openTestClient(t, nil)
	seedUsers(t, db, 3)
	exec(t, db, `UPDATE users SET avatar = ? WHERE id = 2`, []byte{0xca, 0xfe})

	got, err := sqlitedb.SelectAll(context.Background(), db, sqlitedb.NewQuery[user](`SELECT * FROM users ORDER BY id`))
	require.NoError(t, err)
	assert.Equal(t, []user{
		{ID: 1, Name: "user-1", Score: 0.5, Active: true},
		{ID: 2, Name: "user-2", Score: 1, Active: false, Avatar: []byte{0xca, 0xfe}},
		{ID: 3, Name: "user-3", Score: 1.5, Active: true},
	}, got)
}

// TestSelectOne_BoundValues tests that bound parameters come back as the
// same values.
func TestSelectOne_BoundValues(t *testing.T) {
	type row struct {
		I     int64     `db:"i"`
		F     float64   `db:"f"`
		S     string    `db:"s"`
		B     []byte    `db:"b"`
		Flag  bool      `db:"flag"`
		At    time.Time `db:"at"`
		Empty *string   `db:"empty"`
		Extra string    // matched by field name
	}

	q := sqlitedb.NewQuery[row](`SELECT ? AS i, ? AS f, ? AS s, ? AS b, ? AS flag, ? AS at, NULL AS empty, 'x' AS extra, 1 AS unused`).
		Bind(int64(-7)).
		Bind(3.25).
		Bind("héllo").
		Bind([]byte("raw")).
		Bind(true).
		Bind("2026-10-17T12:30:00Z")

	db := openTestClient(t, nil)
	got, ok, err := sqlitedb.SelectOne(context.Background(), db, q)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, int64(-7), got.I)
	assert.Equal(t, 3.25, got.F)
	assert.Equal(t, "héllo", got.S)
	assert.Equal(t, []byte("raw"), got.B)
	assert.True(t, got.Flag)
	assert.True(t, got.At.Equal(time.Date(2026, 10, 17, 12, 30, 0, 0, time.UTC)), got.At)
	assert.Nil(t, got.Empty)
	assert.Equal(t, "x", got.Extra)
}

// TestSelectOne_Primitive tests single-column scans.
func TestSelectOne_Primitive(t *testing.T) {
	ctx := context.Background()
	db := openTestClient(t, nil)
	seedUsers(t, db, 6)

	count, ok, err := sqlitedb.SelectOne(ctx, db, sqlitedb.NewQuery[int64](`SELECT COUNT(*) FROM users WHERE active = ?`).Bind(true))
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, int64(3), count)

	_, _, err = sqlitedb.SelectOne(ctx, db, sqlitedb.NewQuery[int64](`SELECT id, name FROM users`))
	assert.ErrorIs(t, err, sqlitedb.ErrFetch)
}

// pair decodes itself.
type pair struct {
	key, value string
}

func (p *pair) DecodeRow(row sqlitedb.Row) error {
	return row.Scan(&p.key, &p.value)
}

// TestSelectAll_RowDecodable tests types that decode themselves.
func TestSelectAll_RowDecodable(t *testing.T) {
	db := openTestClient(t, nil)
	seedUsers(t, db, 2)

	got, err := sqlitedb.SelectAll(context.Background(), db,
		sqlitedb.NewQuery[pair](`SELECT CAST(id AS TEXT), name FROM users ORDER BY id`))
	require.NoError(t, err)
	assert.Equal(t, []pair{{"1", "user-1"}, {"2", "user-2"}}, got)
}

// TestSelect_FetchErrors tests execution and decode failures.
func TestSelect_FetchErrors(t *testing.T) {
	ctx := context.Background()
	db := openTestClient(t, nil)
	seedUsers(t, db, 2)
	exec(t, db, `CREATE TABLE loose (n)`)
	exec(t, db, `INSERT INTO loose (n) VALUES (1), ('two')`)

	type number struct {
		N int64 `db:"n"`
	}

	tests := []struct {
		name string
		run  func() error
	}{
		{"bad sql", func() error {
			_, err := sqlitedb.SelectAll(ctx, db, sqlitedb.NewQuery[user](`SELEKT * FROM users`))
			return err
		}},
		{"missing table", func() error {
			_, _, err := sqlitedb.SelectOne(ctx, db, sqlitedb.NewQuery[user](`SELECT * FROM nobody`))
			return err
		}},
		{"too few parameters", func() error {
			_, err := sqlitedb.SelectAll(ctx, db, sqlitedb.NewQuery[user](`SELECT * FROM users WHERE id = ? AND name = ?`).Bind(1))
			return err
		}},
		{"struct decode", func() error {
			_, err := sqlitedb.SelectAll(ctx, db, sqlitedb.NewQuery[number](`SELECT n FROM loose ORDER BY rowid`))
			return err
		}},
		{"scan decode", func() error {
			_, _, err := sqlitedb.SelectOne(ctx, db, sqlitedb.NewQuery[int64](`SELECT 'two'`))
			return err
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.run()
			require.Error(t, err)
			assert.ErrorIs(t, err, sqlitedb.ErrFetch)
			assert.Equal(t, 0, db.Stats().InUse)
		})
	}
}

// TestQuery_Consumed tests single use of a Query.
func TestQuery_Consumed(t *testing.T) {
	ctx := context.Background()
	db := openTestClient(t, nil)

	q := sqlitedb.NewQuery[int64](`SELECT ?`).Bind(1)
	_, _, err := sqlitedb.SelectOne(ctx, db, q)
	require.NoError(t, err)

	_, _, err = sqlitedb.SelectOne(ctx, db, q)
	assert.ErrorIs(t, err, sqlitedb.ErrQueryConsumed)
	_, err = sqlitedb.SelectAll(ctx, db, q)
	assert.ErrorIs(t, err, sqlitedb.ErrQueryConsumed)
	_, err = sqlitedb.SelectStream(ctx, db, q)
	assert.ErrorIs(t, err, sqlitedb.ErrQueryConsumed)

	// binding over a query consumes the receiver
	base := sqlitedb.NewQuery[int64](`SELECT ? + ?`)
	next := base.Bind(1)
	_, err = sqlitedb.SelectAll(ctx, db, base)
	assert.ErrorIs(t, err, sqlitedb.ErrQueryConsumed)
	_, err = sqlitedb.SelectAll(ctx, db, base.Bind(2))
	assert.ErrorIs(t, err, sqlitedb.ErrQueryConsumed)

	sum, ok, err := sqlitedb.SelectOne(ctx, db, next.Bind(2))
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, int64(3), sum)
	assert.Equal(t, `SELECT ? + ?`, next.SQL())

	var nilQuery *sqlitedb.Query[int64]
	_, err = sqlitedb.SelectAll(ctx, db, nilQuery)
	assert.True(t, errors.Is(err, sqlitedb.ErrQueryConsumed))
}

// TestQueryFrom tests queries rendered by a squirrel builder.
func TestQueryFrom(t *testing.T) {
	ctx := context.Background()
	db := openTestClient(t, nil)
	seedUsers(t, db, 5)

	q := sqlitedb.QueryFrom[user](squirrel.Select("*").
		From("users").
		Where(squirrel.Eq{"active": true}).
		Where(squirrel.Gt{"id": 1}).
		OrderBy("id"))
	got, err := sqlitedb.SelectAll(ctx, db, q)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, int64(3), got[0].ID)
	assert.Equal(t, int64(5), got[1].ID)

	// a builder error surfaces on execution
	_, err = sqlitedb.SelectAll(ctx, db, sqlitedb.QueryFrom[user](squirrel.Select().From("users")))
	assert.ErrorIs(t, err, sqlitedb.ErrFetch)
}
