package repository

import "errors"

// Shared storage error taxonomy. Every backend variant translates its
// native failures into these before returning, so callers never see
// pgx, sqlx, or map-store internals.
var (
	ErrNotFound      = errors.New("repository: not found")
	ErrAlreadyExists = errors.New("repository: already exists")
)
