package domain

import "errors"

var (
	ErrNotFound           = errors.New("not found")
	ErrInvalidProject     = errors.New("invalid project")
	ErrInvalidScene       = errors.New("invalid scene")
	ErrQuotaExceeded      = errors.New("quota exceeded")
	ErrProviderFailure    = errors.New("provider failure")
	ErrProviderNotReady   = errors.New("provider not configured")
	ErrDuplicateOperation = errors.New("duplicate operation")
	ErrNothingToUndo      = errors.New("nothing to undo")
	ErrNothingToRedo      = errors.New("nothing to redo")
	ErrNotDurable         = errors.New("asset not stored durably")
)
