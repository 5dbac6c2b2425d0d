// Copyright (c) 2026 Michael D Henderson. All rights reserved.

package sqlitedb

import (
	"context"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Config holds client construction options.
type Config struct {
	// Namespace prefixes every setting key: Namespace_URL,
	// Namespace_MAX_CONNECTIONS, and so on. Required.
	Namespace string

	// Source supplies the settings. Uses EnvSource() if nil.
	Source SettingsSource

	// Logger for operational logging. Uses slog.Default() if nil.
	Logger *slog.Logger

	// TestBeforeAcquire pings each connection before leasing it.
	// Default: false.
	TestBeforeAcquire bool
}

// defaults returns a copy of cfg with default values applied.
func (cfg Config) defaults() Config {
	if cfg.Source == nil {
		cfg.Source = EnvSource()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return cfg
}

// Client runs queries against a pooled SQLite database. It is safe for
// concurrent use and is meant to live as long as the process.
type Client struct {
	namespace string
	settings  Settings
	pool      *Pool
	logger    *slog.Logger
}

// New creates a client for namespace, reading settings from the
// environment. It is Open(Config{Namespace: namespace}).
func New(namespace string) (*Client, error) {
	return Open(Config{Namespace: namespace})
}

// Open resolves the namespace settings and builds the pool. It never
// connects: a syntactically valid URL for an unreachable database still
// opens, and the failure surfaces on the first query.
//
// Errors are ErrConfig for unreadable, unparseable, or inconsistent
// settings and ErrInitialize for a malformed URL.
func Open(cfg Config) (*Client, error) {
	cfg = cfg.defaults()

	if cfg.Namespace == "" {
		return nil, newf(ErrConfig, "sqlitedb: namespace is required")
	}

	settings, err := ResolveSettings(cfg.Source, cfg.Namespace)
	if err != nil {
		return nil, err
	}
	settings.TestBeforeAcquire = cfg.TestBeforeAcquire
	if err := settings.validate(); err != nil {
		return nil, err
	}

	logger := cfg.Logger.With("namespace", cfg.Namespace)
	pool, err := openPool(settings, logger)
	if err != nil {
		return nil, err
	}

	return &Client{
		namespace: cfg.Namespace,
		settings:  settings,
		pool:      pool,
		logger:    logger,
	}, nil
}

// Namespace returns the namespace the client was created for.
func (c *Client) Namespace() string {
	return c.namespace
}

// Settings returns the resolved settings.
func (c *Client) Settings() Settings {
	return c.settings
}

// Stats returns a snapshot of the pool counters.
func (c *Client) Stats() PoolStats {
	return c.pool.Stats()
}

// Collector returns a Prometheus collector for the pool counters,
// labelled with the namespace.
func (c *Client) Collector() prometheus.Collector {
	return collectors.NewDBStatsCollector(c.pool.db, c.namespace)
}

// Ping leases a connection and checks that it is alive. Failures are
// ErrAcquire.
func (c *Client) Ping(ctx context.Context) error {
	lease, err := c.pool.Acquire(ctx)
	if err != nil {
		return err
	}
	defer lease.Release()

	if err := lease.conn.PingContext(ctx); err != nil {
		return wrapf(ErrAcquire, err, "sqlitedb: ping")
	}
	return nil
}

// Close closes the pool. Queries after Close fail with ErrAcquire.
func (c *Client) Close() error {
	return c.pool.Close()
}

// Result reports the effect of a statement run with Exec.
type Result struct {
	RowsAffected int64
	LastInsertID int64
}

// Exec runs a statement that returns no rows, such as INSERT, UPDATE,
// DELETE, or DDL.
//
//	_, err := db.Exec(ctx, sqlitedb.NewQuery[sqlitedb.Result](
//	    `INSERT INTO users (name) VALUES (?)`).Bind("ada"))
func (c *Client) Exec(ctx context.Context, q *Query[Result]) (Result, error) {
	query, args, err := q.take()
	if err != nil {
		return Result{}, err
	}

	lease, err := c.pool.Acquire(ctx)
	if err != nil {
		return Result{}, err
	}
	defer lease.Release()

	res, err := lease.conn.ExecContext(ctx, query, args...)
	if err != nil {
		return Result{}, wrapf(ErrFetch, err, "sqlitedb: exec")
	}

	var out Result
	if out.RowsAffected, err = res.RowsAffected(); err != nil {
		return Result{}, wrapf(ErrFetch, err, "sqlitedb: rows affected")
	}
	if out.LastInsertID, err = res.LastInsertId(); err != nil {
		return Result{}, wrapf(ErrFetch, err, "sqlitedb: last insert id")
	}
	return out, nil
}
