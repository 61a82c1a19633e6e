package store

import "errors"

// ErrDuplicateKey indicates an insert collided with an existing row.
var ErrDuplicateKey = errors.New("duplicate key")
