package usecase

import "errors"

var (
	ErrInvalidInput          = errors.New("invalid input")
	ErrNotFound              = errors.New("resource not found")
	ErrUnauthorized          = errors.New("unauthorized")
	ErrDependencyUnavailable = errors.New("dependency unavailable")
	ErrDuplicatePick         = errors.New("duplicate pick")
	ErrPickLocked            = errors.New("pick window is locked")
	ErrImportConflict        = errors.New("import already running")
	ErrJobTimeout            = errors.New("import job timed out")
)
