package models

import "errors"

// Error taxonomy shared by every WardWatch component. Packages wrap these with
// fmt.Errorf("...: %w", ErrX) so the transport layer can map them with errors.Is.
var (
	ErrNotFound          = errors.New("not found")
	ErrAlreadyExists     = errors.New("already exists")
	ErrUnauthorized      = errors.New("authentication required")
	ErrForbidden         = errors.New("insufficient clearance level")
	ErrInvalidInput      = errors.New("invalid input")
	ErrSourceUnavailable = errors.New("time-series source unavailable")
	ErrInternal          = errors.New("internal fault")
)
