// Copyright (c) 2026 Michael D Henderson. All rights reserved.

package sqlitedb

import (
	"fmt"
	"net/url"
	"strings"
	"sync/atomic"

	_ "modernc.org/sqlite"
)

// driverName is the database/sql name registered by modernc.org/sqlite.
const driverName = "sqlite"

// pragma represents a SQLite pragma setting.
type pragma struct {
	name  string
	value string
}

// connectPragmas run on every new connection.
var connectPragmas = []pragma{
	{name: "foreign_keys", value: "1"},
	{name: "busy_timeout", value: "5000"},
}

// connectOptions is the parsed form of a sqlite: connection URL.
type connectOptions struct {
	filename  string // empty for in-memory
	mode      string // ro, rw, rwc, memory
	cache     string // shared, private, or empty
	immutable bool
	vfs       string
}

// memorySeq names in-memory databases so that each pool gets its own.
var memorySeq atomic.Uint64

// parseURL parses a connection URL of the form
//
//	sqlite:path | sqlite://path | sqlite::memory: | sqlite:
//
// with optional mode, cache, immutable, and vfs query parameters.
// It performs no I/O.
func parseURL(raw string) (connectOptions, error) {
	rest, ok := strings.CutPrefix(raw, "sqlite:")
	if !ok {
		return connectOptions{}, fmt.Errorf("%q: expected sqlite: scheme", raw)
	}
	rest = strings.TrimPrefix(rest, "//")

	path, query, _ := strings.Cut(rest, "?")
	opts := connectOptions{filename: path, mode: "rw"}
	if path == "" || path == ":memory:" {
		opts.filename = ""
		opts.mode = "memory"
	}

	params, err := url.ParseQuery(query)
	if err != nil {
		return connectOptions{}, fmt.Errorf("%q: %w", raw, err)
	}
	for key, values := range params {
		value := values[len(values)-1]
		switch key {
		case "mode":
			switch value {
			case "ro", "rw", "rwc":
				if opts.mode != "memory" {
					opts.mode = value
				}
			case "memory":
				opts.mode = "memory"
			default:
				return connectOptions{}, fmt.Errorf("%q: unknown mode %q", raw, value)
			}
		case "cache":
			switch value {
			case "shared", "private":
				opts.cache = value
			default:
				return connectOptions{}, fmt.Errorf("%q: unknown cache %q", raw, value)
			}
		case "immutable":
			switch value {
			case "true", "1":
				opts.immutable = true
			case "false", "0":
				opts.immutable = false
			default:
				return connectOptions{}, fmt.Errorf("%q: invalid immutable %q", raw, value)
			}
		case "vfs":
			if value == "" {
				return connectOptions{}, fmt.Errorf("%q: empty vfs", raw)
			}
			opts.vfs = value
		default:
			return connectOptions{}, fmt.Errorf("%q: unknown parameter %q", raw, key)
		}
	}

	if opts.mode == "memory" {
		opts.filename = ""
		opts.cache = "shared"
	}

	return opts, nil
}

// isMemory returns true if the options describe an in-memory database.
func (o connectOptions) isMemory() bool {
	return o.mode == "memory"
}

// buildDSN constructs a DSN for modernc.org/sqlite.
// modernc uses the syntax: file:path?mode=rw&_pragma=name(value)&_pragma=name2(value2)
func buildDSN(o connectOptions) string {
	var sb strings.Builder

	sb.WriteString("file:")
	if o.isMemory() {
		fmt.Fprintf(&sb, "sqlitedb-memory-%d", memorySeq.Add(1))
	} else {
		sb.WriteString(escapePath(o.filename))
	}

	fmt.Fprintf(&sb, "?mode=%s", o.mode)
	if o.cache != "" {
		fmt.Fprintf(&sb, "&cache=%s", o.cache)
	}
	if o.immutable {
		sb.WriteString("&immutable=1")
	}
	if o.vfs != "" {
		fmt.Fprintf(&sb, "&vfs=%s", url.QueryEscape(o.vfs))
	}
	for _, p := range connectPragmas {
		fmt.Fprintf(&sb, "&_pragma=%s(%s)", p.name, p.value)
	}

	return sb.String()
}

// escapePath escapes the characters that would end the filename part of
// a SQLite URI filename.
func escapePath(path string) string {
	return strings.NewReplacer("%", "%25", "?", "%3f", "#", "%23").Replace(path)
}

// connectDSN parses raw and returns the modernc DSN for it.
func connectDSN(raw string) (connectOptions, string, error) {
	opts, err := parseURL(raw)
	if err != nil {
		return connectOptions{}, "", wrapf(ErrInitialize, err, "sqlitedb: invalid connection url")
	}
	return opts, buildDSN(opts), nil
}
