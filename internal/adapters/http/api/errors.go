package api

import "errors"

// ErrBadRequest signals a malformed path or body before any domain call.
var ErrBadRequest = errors.New("bad request")

// errMissingName rejects player profiles without a display name.
var errMissingName = errors.New("player name is required")
