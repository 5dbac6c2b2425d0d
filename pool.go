// Copyright (c) 2026 Michael D Henderson. All rights reserved.

package sqlitedb

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"log/slog"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
)

// Pool is a bounded, lazily connecting pool of SQLite connections.
// Opening a Pool performs no I/O; the first Acquire connects.
type Pool struct {
	db       *sql.DB
	settings Settings
	logger   *slog.Logger

	maintainOnce sync.Once
	mu           sync.Mutex
	closed       bool
	done         chan struct{}
	wg           sync.WaitGroup
}

// openPool parses the connection URL and configures the pool. The only
// failure is an unparseable URL.
func openPool(settings Settings, logger *slog.Logger) (*Pool, error) {
	opts, dsn, err := connectDSN(settings.URL)
	if err != nil {
		return nil, err
	}
	logger.Debug("opening pool", "dsn", dsn, "version", Version())

	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, wrapf(ErrInitialize, err, "sqlitedb: sql.Open")
	}

	db.SetMaxOpenConns(int(settings.MaxConnections))
	db.SetMaxIdleConns(int(settings.MaxConnections))
	db.SetConnMaxLifetime(settings.MaxLifetime)
	db.SetConnMaxIdleTime(settings.IdleTimeout)

	if opts.isMemory() {
		logger.Info("DB mode: in-memory", "max_connections", settings.MaxConnections)
	} else {
		logger.Info("DB mode: persistent", "path", opts.filename, "max_connections", settings.MaxConnections)
	}

	return &Pool{
		db:       db,
		settings: settings,
		logger:   logger,
		done:     make(chan struct{}),
	}, nil
}

// Lease is a connection borrowed from a Pool. It must be released exactly
// once; Release is idempotent.
type Lease struct {
	conn   *sql.Conn
	logger *slog.Logger
	once   sync.Once
}

// Release returns the connection to the pool.
func (l *Lease) Release() {
	l.once.Do(func() {
		if err := l.conn.Close(); err != nil {
			l.logger.Debug("release connection", "error", err)
		}
	})
}

// Acquire leases one connection. It waits for a free connection until
// ctx is done or the acquire timeout elapses, whichever is first.
// Connect failures surface here. All failures are ErrAcquire.
func (p *Pool) Acquire(ctx context.Context) (*Lease, error) {
	p.maintainOnce.Do(p.startMaintenance)

	actx, cancel := context.WithTimeout(ctx, p.settings.AcquireTimeout)
	defer cancel()

	conn, err := p.db.Conn(actx)
	if err != nil {
		return nil, wrapf(ErrAcquire, err, "sqlitedb: acquire connection")
	}

	if p.settings.TestBeforeAcquire {
		if err := conn.PingContext(actx); err != nil {
			// ErrBadConn makes database/sql discard the connection.
			_ = conn.Raw(func(any) error { return driver.ErrBadConn })
			_ = conn.Close()
			return nil, wrapf(ErrAcquire, err, "sqlitedb: test connection")
		}
	}

	return &Lease{conn: conn, logger: p.logger}, nil
}

// Close closes the pool and stops background maintenance. Leases still
// outstanding are closed when they are released.
func (p *Pool) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	close(p.done)
	p.mu.Unlock()

	p.wg.Wait()
	if err := p.db.Close(); err != nil {
		p.logger.Error("sqlite pool close error", "error", err)
		return errors.Wrap(err, "sqlitedb: close pool")
	}
	p.logger.Info("sqlite pool closed")
	return nil
}

// PoolStats is a snapshot of pool counters.
type PoolStats struct {
	MaxConnections    int           // configured maximum
	OpenConnections   int           // in use plus idle
	InUse             int           // currently leased
	Idle              int           // open and not leased
	WaitCount         int64         // acquisitions that had to wait
	WaitDuration      time.Duration // total time spent waiting
	MaxIdleClosed     int64         // closed because the idle set was full
	MaxIdleTimeClosed int64         // closed by the idle timeout
	MaxLifetimeClosed int64         // closed by the max lifetime
}

// Stats returns a snapshot of the pool counters.
func (p *Pool) Stats() PoolStats {
	s := p.db.Stats()
	return PoolStats{
		MaxConnections:    s.MaxOpenConnections,
		OpenConnections:   s.OpenConnections,
		InUse:             s.InUse,
		Idle:              s.Idle,
		WaitCount:         s.WaitCount,
		WaitDuration:      s.WaitDuration,
		MaxIdleClosed:     s.MaxIdleClosed,
		MaxIdleTimeClosed: s.MaxIdleTimeClosed,
		MaxLifetimeClosed: s.MaxLifetimeClosed,
	}
}

// startMaintenance starts the goroutine that keeps MinConnections open.
// It runs on first Acquire so that opening the pool stays free of I/O.
func (p *Pool) startMaintenance() {
	if p.settings.MinConnections == 0 {
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()

		ticker := time.NewTicker(p.maintenanceInterval())
		defer ticker.Stop()

		for {
			p.topUp()
			select {
			case <-p.done:
				return
			case <-ticker.C:
			}
		}
	}()
}

// maintenanceInterval is half the shorter of the idle timeout and the max
// lifetime, and at least one second.
func (p *Pool) maintenanceInterval() time.Duration {
	interval := p.settings.IdleTimeout
	if p.settings.MaxLifetime > 0 && (interval <= 0 || p.settings.MaxLifetime < interval) {
		interval = p.settings.MaxLifetime
	}
	interval /= 2
	if interval < time.Second {
		interval = time.Second
	}
	return interval
}

// topUp opens connections until at least MinConnections are open, then
// returns them to the idle set.
func (p *Pool) topUp() {
	missing := int(p.settings.MinConnections) - p.db.Stats().OpenConnections
	if missing <= 0 {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), p.settings.AcquireTimeout)
	defer cancel()
	go func() {
		select {
		case <-p.done:
			cancel()
		case <-ctx.Done():
		}
	}()

	conns := make([]*sql.Conn, 0, missing)
	defer func() {
		for _, conn := range conns {
			_ = conn.Close()
		}
	}()
	for range missing {
		// leave room for callers already waiting on a full pool
		if p.db.Stats().OpenConnections >= int(p.settings.MaxConnections) {
			break
		}
		conn, err := p.db.Conn(ctx)
		if err != nil {
			p.logger.Warn("min connections top-up failed", "want", p.settings.MinConnections, "error", err)
			return
		}
		conns = append(conns, conn)
	}
	p.logger.Debug("min connections topped up", "opened", len(conns))
}
