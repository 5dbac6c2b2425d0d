// Copyright (c) 2026 Michael D Henderson. All rights reserved.

package sqlitedb

import (
	"database/sql"
	"fmt"
	"reflect"
	"time"

	"github.com/go-viper/mapstructure/v2"
)

// Row is the current row of a result set. *sql.Rows implements it.
type Row interface {
	Columns() ([]string, error)
	Scan(dest ...any) error
}

// RowDecodable is implemented by result types that decode themselves.
// A Query[O] uses it when *O implements it.
//
//	func (u *User) DecodeRow(row sqlitedb.Row) error {
//	    return row.Scan(&u.ID, &u.Name)
//	}
type RowDecodable interface {
	DecodeRow(row Row) error
}

var (
	scannerType = reflect.TypeFor[sql.Scanner]()
	timeType    = reflect.TypeFor[time.Time]()
)

// decodeRow decodes the current row into an O.
//
// Types that implement RowDecodable decode themselves. Other structs are
// filled by column name, using the `db` tag when present and a
// case-insensitive field name otherwise; extra columns are ignored and
// NULL leaves the zero value. Anything else is scanned from a single
// column.
func decodeRow[O any](row Row) (O, error) {
	var out O
	if d, ok := any(&out).(RowDecodable); ok {
		if err := d.DecodeRow(row); err != nil {
			return out, err
		}
		return out, nil
	}

	cols, err := row.Columns()
	if err != nil {
		return out, err
	}

	if isStructTarget(reflect.TypeFor[O]()) {
		values := make([]any, len(cols))
		dests := make([]any, len(cols))
		for i := range values {
			dests[i] = &values[i]
		}
		if err := row.Scan(dests...); err != nil {
			return out, err
		}
		record := make(map[string]any, len(cols))
		for i, col := range cols {
			record[col] = values[i]
		}
		if err := decodeRecord(record, &out); err != nil {
			return out, err
		}
		return out, nil
	}

	if len(cols) != 1 {
		return out, fmt.Errorf("scanning %s requires exactly 1 column; got %d", reflect.TypeFor[O](), len(cols))
	}
	if err := row.Scan(&out); err != nil {
		return out, err
	}
	return out, nil
}

// isStructTarget reports whether t is decoded field by field rather than
// scanned as a single value.
func isStructTarget(t reflect.Type) bool {
	if t.Kind() != reflect.Struct || t == timeType {
		return false
	}
	return !reflect.PointerTo(t).Implements(scannerType)
}

// decodeRecord copies a column map into out.
func decodeRecord(record map[string]any, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName: "db",
		Result:  out,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			integerToBoolHook,
			bytesToStringHook,
			mapstructure.StringToTimeHookFunc(time.RFC3339Nano),
		),
	})
	if err != nil {
		return err
	}
	return dec.Decode(record)
}

// integerToBoolHook decodes SQLite's 0/1 booleans.
func integerToBoolHook(from, to reflect.Type, data any) (any, error) {
	if to.Kind() != reflect.Bool {
		return data, nil
	}
	switch v := data.(type) {
	case int64:
		return v != 0, nil
	case float64:
		return v != 0, nil
	}
	return data, nil
}

// bytesToStringHook decodes BLOB and TEXT-as-bytes columns into strings.
func bytesToStringHook(from, to reflect.Type, data any) (any, error) {
	if to.Kind() != reflect.String {
		return data, nil
	}
	if b, ok := data.([]byte); ok {
		return string(b), nil
	}
	return data, nil
}
