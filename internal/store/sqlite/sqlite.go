package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"github.com/maloquacious/momentum/internal/logger"
	"github.com/maloquacious/momentum/internal/store"
	_ "modernc.org/sqlite"
)

const (
	// MaxConnections is the upper bound on concurrently open connections.
	MaxConnections = 5

	// AcquireTimeout bounds establishing a connection and every pooled checkout
	// made through Ping.
	AcquireTimeout = 3 * time.Second
)

// SQLiteStore implements the Store interface using modernc.org/sqlite.
type SQLiteStore struct {
	dbPath  string
	url     string
	db      *sql.DB
	timeout time.Duration
}

var _ store.Store = (*SQLiteStore)(nil)

// Open resolves descriptor, provisions the database file and returns a
// pool that has answered a liveness query. Any partially opened pool is
// closed before an error is returned.
func Open(ctx context.Context, descriptor string, log logger.Logger) (*SQLiteStore, error) {
	if log == nil {
		log = logger.Nop{}
	}

	dbPath, err := store.ResolvePath(descriptor)
	if err != nil {
		return nil, err
	}
	log.Info("resolved database path: %s", dbPath)

	if err := Provision(dbPath, log); err != nil {
		return nil, err
	}

	return connect(ctx, dbPath, AcquireTimeout, log)
}

// connect opens the pool against an already provisioned file.
func connect(ctx context.Context, dbPath string, timeout time.Duration, log logger.Logger) (*SQLiteStore, error) {
	s := &SQLiteStore{
		dbPath:  dbPath,
		url:     store.CanonicalURL(dbPath),
		timeout: timeout,
	}
	log.Info("connecting to database %s (timeout %s)", s.url, timeout)

	db, err := sql.Open("sqlite", dsn(dbPath, timeout))
	if err != nil {
		return nil, fmt.Errorf("%w: opening %s: %w", store.ErrConnection, s.url, err)
	}
	db.SetMaxOpenConns(MaxConnections)
	db.SetMaxIdleConns(MaxConnections)
	s.db = db

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: connecting to %s: %w", store.ErrConnection, s.url, err)
	}

	// Reading the schema table forces SQLite to validate the file header.
	var tables int
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM sqlite_master WHERE type='table'`).Scan(&tables); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: reading schema of %s: %w", store.ErrConnection, s.url, err)
	}
	log.Debug("database has %d tables", tables)

	log.Debug("running database liveness query")
	if err := s.Ping(ctx); err != nil {
		db.Close()
		return nil, err
	}

	log.Info("database pool established: %s (max %d connections)", s.url, MaxConnections)
	return s, nil
}

// dsn builds a file: URI for dbPath with safe defaults. The path is escaped
// so '?' and '#' stay part of the file name, and mode=rw stops the driver
// from creating a file the provisioner did not.
func dsn(dbPath string, timeout time.Duration) string {
	q := url.Values{}
	q.Add("_pragma", "foreign_keys(1)")
	q.Add("_pragma", fmt.Sprintf("busy_timeout(%d)", timeout.Milliseconds()))
	q.Set("mode", "rw")

	p := filepath.ToSlash(dbPath)
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	u := url.URL{Scheme: "file", OmitHost: true, Path: p, RawQuery: q.Encode()}
	return u.String()
}

// Ping runs the liveness query against the pool. Checkout and query are
// bounded by the pool's acquisition timeout or the deadline of ctx,
// whichever comes first.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	if s.db == nil {
		return fmt.Errorf("%w: database not opened", store.ErrConnection)
	}

	timeout := s.timeout
	if timeout <= 0 {
		timeout = AcquireTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var one int
	if err := s.db.QueryRowContext(ctx, "SELECT 1").Scan(&one); err != nil {
		return fmt.Errorf("%w: liveness query on %s: %w", store.ErrConnection, s.url, err)
	}
	if one != 1 {
		return fmt.Errorf("%w: liveness query on %s returned %d", store.ErrConnection, s.url, one)
	}
	return nil
}

// DB returns the underlying pool for query execution.
func (s *SQLiteStore) DB() *sql.DB {
	return s.db
}

// URL returns the canonical connection string.
func (s *SQLiteStore) URL() string {
	return s.url
}

// Path returns the absolute database file path.
func (s *SQLiteStore) Path() string {
	return s.dbPath
}

// Stats returns connection pool statistics.
func (s *SQLiteStore) Stats() sql.DBStats {
	if s.db == nil {
		return sql.DBStats{}
	}
	return s.db.Stats()
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}
