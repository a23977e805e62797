package domain

import "github.com/cockroachdb/errors"

// Typed failures returned at the service boundary. Callers match with
// errors.Is; storage faults are passed through untyped and treated as
// retryable by the API layer.
var (
	ErrInvalidQuantity      = errors.New("quantity must be positive")
	ErrInvalidContainerType = errors.New("unknown container type")
	ErrInvalidCargo         = errors.New("invalid cargo details")
	ErrVoyageNotFound       = errors.New("voyage not found")
	ErrVoyageUnavailable    = errors.New("voyage is not open for booking")
	ErrInsufficientCapacity = errors.New("insufficient capacity")
	ErrAllocationNotFound   = errors.New("no allocation for voyage and container type")
	ErrBookingNotFound      = errors.New("booking not found")
	ErrAlreadyCancelled     = errors.New("booking is already cancelled")
	ErrAlreadyCompleted     = errors.New("booking is completed and cannot be changed")
	ErrNotPending           = errors.New("booking is not pending")
	ErrContractNotFound     = errors.New("contract not found")
	ErrContractExecuted     = errors.New("contract is already executed")
	ErrReferenceLocked      = errors.New("booking reference is locked by another operation")
)
