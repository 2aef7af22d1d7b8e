package orm

import "github.com/calyxdb/orm/internal/errs"

// Re-exported sentinels so callers can match without importing internal
// packages. Match with errors.Is; the wrapped messages carry the detail.
var (
	ErrConfiguration   = errs.ErrConfiguration
	ErrUnknownField    = errs.ErrUnknownField
	ErrValidation      = errs.ErrValidation
	ErrNoMatch         = errs.ErrNoMatch
	ErrMultipleMatches = errs.ErrMultipleMatches
	ErrDoesNotExist    = errs.ErrDoesNotExist
	ErrIntegrity       = errs.ErrIntegrity
	ErrNotLoaded       = errs.ErrNotLoaded
	ErrInvalidArgument = errs.ErrInvalidArgument
	ErrInstanceDeleted = errs.ErrInstanceDeleted
)
