package repository

import "errors"

// Sentinel errors for the snapshot store.
var (
	ErrNotLoaded     = errors.New("snapshot not loaded")
	ErrInvalidExpiry = errors.New("invalid cache expiry")
)
