// Package lock guards a storage directory against being opened by more than
// one store at a time.
package lock

import "errors"

// FileName is the name of the lock file created inside a locked directory.
const FileName = "LOCK"

// ErrLocked is returned when another store already holds the directory.
var ErrLocked = errors.New("directory already in use by another kvs store")
