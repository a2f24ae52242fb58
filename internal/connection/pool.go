package connection

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/leapstack-labs/leapquery/pkg/adapters/sqlite"
	"github.com/leapstack-labs/leapquery/pkg/core"
)

// Pool defaults.
const (
	DefaultMaxPoolSize = 10
	DefaultStaleAfter  = time.Hour
)

// Opener opens a database handle for a resolved target.
type Opener func(ctx context.Context, target Target) (*sql.DB, error)

// HealthCheck reports whether a pooled handle is still usable.
type HealthCheck func(ctx context.Context, db *sql.DB) bool

// PoolConfig holds pool configuration.
type PoolConfig struct {
	MaxSize    int
	StaleAfter time.Duration
	// Opener defaults to sql.Open followed by a ping.
	Opener Opener
	// HealthCheck defaults to a SELECT 1 round trip.
	HealthCheck HealthCheck
	// Now defaults to time.Now.
	Now    func() time.Time
	Logger *slog.Logger
}

// Conn is a handle borrowed from the pool. The pool owns DB; callers must not
// close it and must call Release when done. A handle evicted, expired or
// replaced while borrowed stays open until its last Release.
type Conn struct {
	DB          *sql.DB
	Backend     string
	Fingerprint string

	release func()
}

// Release returns the handle to the pool. Later calls are no-ops.
func (c *Conn) Release() {
	if c.release != nil {
		c.release()
		c.release = nil
	}
}

type poolEntry struct {
	conn     Conn
	created  time.Time
	lastUsed time.Time
	uses     int64
	borrowed int
	retired  bool // removed from entries, closed on last release
	closed   bool
}

// Pool caches database handles by connection string fingerprint with LRU
// eviction. One mutex covers lookup, health check, insert and eviction.
type Pool struct {
	mu      sync.Mutex
	entries map[string]*poolEntry
	retired map[*poolEntry]struct{}

	maxSize    int
	staleAfter time.Duration
	open       Opener
	healthy    HealthCheck
	now        func() time.Time
	logger     *slog.Logger
}

// NewPool creates an empty pool.
func NewPool(cfg PoolConfig) *Pool {
	p := &Pool{
		entries:    make(map[string]*poolEntry),
		retired:    make(map[*poolEntry]struct{}),
		maxSize:    cfg.MaxSize,
		staleAfter: cfg.StaleAfter,
		open:       cfg.Opener,
		healthy:    cfg.HealthCheck,
		now:        cfg.Now,
		logger:     cfg.Logger,
	}
	if p.maxSize <= 0 {
		p.maxSize = DefaultMaxPoolSize
	}
	if p.staleAfter <= 0 {
		p.staleAfter = DefaultStaleAfter
	}
	if p.open == nil {
		p.open = openDB
	}
	if p.healthy == nil {
		p.healthy = selectOne
	}
	if p.now == nil {
		p.now = time.Now
	}
	if p.logger == nil {
		p.logger = slog.New(slog.DiscardHandler)
	}
	return p
}

// Fingerprint identifies a connection string without retaining its credentials.
func Fingerprint(connString string) string {
	sum := sha256.Sum256([]byte(connString))
	return hex.EncodeToString(sum[:])[:16]
}

// GetConnection borrows a healthy handle for connString, opening one if needed.
// The caller must Release it.
func (p *Pool) GetConnection(ctx context.Context, connString string) (*Conn, error) {
	target, err := ParseConnectionString(connString)
	if err != nil {
		return nil, err
	}
	fp := Fingerprint(connString)

	p.mu.Lock()
	defer p.mu.Unlock()

	if e, ok := p.entries[fp]; ok {
		if p.healthy(ctx, e.conn.DB) {
			e.lastUsed = p.now()
			e.uses++
			return p.borrow(e), nil
		}
		p.logger.Info("replacing unhealthy pooled connection", "fingerprint", fp, "backend", e.conn.Backend)
		p.remove(fp)
	}

	if len(p.entries) >= p.maxSize {
		p.evictLRU()
	}

	db, err := p.open(ctx, target)
	if err != nil {
		return nil, &core.ConnectionError{Backend: target.Backend, Err: err}
	}

	now := p.now()
	e := &poolEntry{
		conn:     Conn{DB: db, Backend: target.Backend, Fingerprint: fp},
		created:  now,
		lastUsed: now,
		uses:     1,
	}
	p.entries[fp] = e
	p.logger.Debug("opened pooled connection", "fingerprint", fp, "backend", target.Backend, "size", len(p.entries))

	return p.borrow(e), nil
}

// borrow hands out a copy of e's handle. Caller holds mu.
func (p *Pool) borrow(e *poolEntry) *Conn {
	e.borrowed++
	conn := e.conn
	conn.release = func() { p.giveBack(e) }
	return &conn
}

func (p *Pool) giveBack(e *poolEntry) {
	p.mu.Lock()
	defer p.mu.Unlock()

	e.borrowed--
	if e.retired && e.borrowed <= 0 {
		delete(p.retired, e)
		p.closeEntry(e)
	}
}

// evictLRU closes the entry with the oldest last use. Caller holds mu.
func (p *Pool) evictLRU() {
	var oldest string
	var oldestUse time.Time
	for fp, e := range p.entries {
		if oldest == "" || e.lastUsed.Before(oldestUse) {
			oldest, oldestUse = fp, e.lastUsed
		}
	}
	if oldest != "" {
		p.logger.Debug("evicting least recently used connection", "fingerprint", oldest)
		p.remove(oldest)
	}
}

// remove forgets an entry and closes it, or defers the close to the last
// release while it is borrowed. Caller holds mu.
func (p *Pool) remove(fp string) {
	e, ok := p.entries[fp]
	if !ok {
		return
	}
	delete(p.entries, fp)
	if e.borrowed > 0 {
		p.logger.Debug("closing borrowed connection on release", "fingerprint", fp, "borrowed", e.borrowed)
		e.retired = true
		p.retired[e] = struct{}{}
		return
	}
	p.closeEntry(e)
}

// closeEntry closes e's handle once. Caller holds mu.
func (p *Pool) closeEntry(e *poolEntry) {
	if e.closed {
		return
	}
	e.closed = true
	if err := e.conn.DB.Close(); err != nil {
		p.logger.Warn("failed to close pooled connection", "fingerprint", e.conn.Fingerprint, "error", err)
	}
}

// CleanupStaleConnections removes entries idle longer than the staleness
// threshold, healthy or not, and returns how many were removed.
func (p *Pool) CleanupStaleConnections() int {
	p.mu.Lock()
	defer p.mu.Unlock()

	now := p.now()
	removed := 0
	for fp, e := range p.entries {
		if now.Sub(e.lastUsed) > p.staleAfter {
			p.remove(fp)
			removed++
		}
	}
	if removed > 0 {
		p.logger.Info("removed stale pooled connections", "count", removed, "remaining", len(p.entries))
	}
	return removed
}

// CloseAll closes every handle, borrowed or not, and empties the pool.
func (p *Pool) CloseAll() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	var errs []error
	closeOne := func(e *poolEntry) {
		if e.closed {
			return
		}
		e.closed = true
		if err := e.conn.DB.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	for fp, e := range p.entries {
		closeOne(e)
		delete(p.entries, fp)
	}
	for e := range p.retired {
		closeOne(e)
		delete(p.retired, e)
	}
	return errors.Join(errs...)
}

// EntryStats describes one pooled handle.
type EntryStats struct {
	Fingerprint string    `json:"fingerprint"`
	Backend     string    `json:"backend"`
	Created     time.Time `json:"created"`
	LastUsed    time.Time `json:"last_used"`
	Uses        int64     `json:"uses"`
}

// PoolStats is a snapshot of the pool.
type PoolStats struct {
	Size    int          `json:"size"`
	MaxSize int          `json:"max_size"`
	Entries []EntryStats `json:"entries"`
}

// Stats returns a snapshot ordered by fingerprint.
func (p *Pool) Stats() PoolStats {
	p.mu.Lock()
	defer p.mu.Unlock()

	stats := PoolStats{Size: len(p.entries), MaxSize: p.maxSize}
	for fp, e := range p.entries {
		stats.Entries = append(stats.Entries, EntryStats{
			Fingerprint: fp,
			Backend:     e.conn.Backend,
			Created:     e.created,
			LastUsed:    e.lastUsed,
			Uses:        e.uses,
		})
	}
	sort.Slice(stats.Entries, func(i, j int) bool { return stats.Entries[i].Fingerprint < stats.Entries[j].Fingerprint })
	return stats
}

func openDB(ctx context.Context, target Target) (*sql.DB, error) {
	db, err := sql.Open(target.Driver, target.DSN)
	if err != nil {
		return nil, err
	}
	if target.Driver == "sqlite" && sqlite.IsMemoryPath(target.DSN) {
		db.SetMaxOpenConns(1)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

func selectOne(ctx context.Context, db *sql.DB) bool {
	var one int
	return db.QueryRowContext(ctx, "SELECT 1").Scan(&one) == nil
}
