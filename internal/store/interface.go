package store

import (
	"context"
	"database/sql"
)

// Store defines the Momentum datastore contract consumed by the HTTP layer.
// Implementations must be safe for concurrent use.
type Store interface {
	// Ping runs the liveness query against the pool
	Ping(ctx context.Context) error

	// URL returns the canonical connection string the pool was opened against
	URL() string

	// Path returns the absolute path of the database file
	Path() string

	// Stats returns connection pool statistics
	Stats() sql.DBStats

	// Close releases every pooled connection
	Close() error
}
