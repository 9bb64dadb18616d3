package contract

import "errors"

// Contract errors, grouped by the failure class they report.
var (
	// Sequencing
	ErrAlreadyInitialized  = errors.New("contract already initialized")
	ErrNotInitialized      = errors.New("contract not initialized")
	ErrPoolAlreadyExists   = errors.New("pool already exists")
	ErrPoolNotBootstrapped = errors.New("pool not bootstrapped")

	// Authorization
	ErrNotOwner         = errors.New("caller is not the contract owner")
	ErrNotPositionOwner = errors.New("caller is not the position owner")

	// Validation
	ErrInvalidAccount = errors.New("invalid account")
	ErrPartialRemoval = errors.New("partial removal unsupported")

	// Resource
	ErrUnknownPosition   = errors.New("unknown position")
	ErrDuplicatePosition = errors.New("duplicate position")
)
