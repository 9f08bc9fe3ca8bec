package memory

import "errors"

var (
	// ErrNotConfigured is returned when memory operations are attempted
	// but no memory backend has been configured.
	ErrNotConfigured = errors.New("memory not configured")

	// ErrStoreWrite is reported in StoreResult.Err when chunks could not be
	// embedded or written.
	ErrStoreWrite = errors.New("memory store write failed")

	// ErrQuery is logged when recall cannot embed the query or reach the
	// vector store.
	ErrQuery = errors.New("memory query failed")
)
