package ledger

import "errors"

// Failure kinds returned by ledger operations. Operations wrap them with
// detail; match with errors.Is.
var (
	ErrUnauthorized          = errors.New("unauthorized")
	ErrInvalidRoleTransition = errors.New("invalid role transition")
	ErrInvalidArgument       = errors.New("invalid argument")
	ErrNotFound              = errors.New("not found")
	ErrInsufficientInventory = errors.New("insufficient inventory")
	ErrInvalidPayment        = errors.New("invalid payment")
	ErrSystemPaused          = errors.New("system paused")
	ErrTransferFailed        = errors.New("transfer failed")
	ErrCorruptJournal        = errors.New("corrupt journal")
	ErrValueNotConserved     = errors.New("value not conserved")
)
