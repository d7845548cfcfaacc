package store

import "errors"

// Error kinds raised while bootstrapping the datastore.
// Use errors.Is() to check for these errors in calling code.
var (
	// ErrEnvironment is returned when the working directory cannot be determined.
	ErrEnvironment = errors.New("store: environment error")

	// ErrFilesystem is returned when the database directory or file cannot be
	// created, inspected, or have its permissions changed.
	ErrFilesystem = errors.New("store: filesystem error")

	// ErrConnection is returned when the pool cannot be opened within the
	// acquisition timeout or fails its liveness probe.
	ErrConnection = errors.New("store: connection error")
)
