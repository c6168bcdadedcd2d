package errors

import (
	pkgerrors "github.com/Conte777/NewsFlow/services/migration-service/pkg/errors"
)

var (
	ErrMigrationRunning   = pkgerrors.NewConflictError("a migration is already running")
	ErrNotRunning         = pkgerrors.NewConflictError("migration is not running")
	ErrNotPaused          = pkgerrors.NewConflictError("migration is not paused")
	ErrNotActive          = pkgerrors.NewConflictError("no active migration to cancel")
	ErrUnknownSpeed       = pkgerrors.NewValidationError("unknown speed, use slow, normal or fast")
	ErrMissingSource      = pkgerrors.NewValidationError("source group is required")
	ErrMissingTarget      = pkgerrors.NewValidationError("target group is required")
	ErrSameGroup          = pkgerrors.NewValidationError("source and target must differ")
	ErrNoAccounts         = pkgerrors.NewServiceUnavailableError("no Telegram accounts available")
	ErrRunNotFound        = pkgerrors.NewNotFoundError("migration run not found")

	// ErrMigrationCancelled is returned by pause waits once the run is cancelled.
	// The engine treats it as a clean stop.
	ErrMigrationCancelled = pkgerrors.NewConflictError("migration cancelled")
)
