package core

import "errors"

var (
	// ErrInvalidKey is returned for an empty key, before any I/O happens.
	ErrInvalidKey = errors.New("invalid key")

	// ErrKeyNotFound is returned by Remove for a key that has no live value.
	ErrKeyNotFound = errors.New("key not found")

	// ErrCorrupt is returned when stored bytes cannot be decoded as a record.
	ErrCorrupt = errors.New("corrupt log")

	ErrClosed = errors.New("store is closed")

	// ErrCompaction wraps a compaction failure reported by Set or Remove.
	// The write itself was applied and stays visible.
	ErrCompaction = errors.New("compaction failed")
)
