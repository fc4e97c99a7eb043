package store

import "errors"

// ErrNotFound is returned by writes that target a row which does not exist.
// Reads report absence with a nil result instead.
var ErrNotFound = errors.New("not found")

// ErrConflict is returned when a unique value is already taken.
var ErrConflict = errors.New("already exists")
