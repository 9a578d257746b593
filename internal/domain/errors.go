package domain

import "errors"

var (
	// ErrTokenNotFound is returned when a token id is unknown to the ledger
	ErrTokenNotFound = errors.New("token not found")

	// ErrTokenAlreadyExists is returned when a token id is inserted twice.
	// Ids always come from the allocator, so hitting this through the public
	// surface indicates a programming error.
	ErrTokenAlreadyExists = errors.New("token already exists")

	// ErrUnauthorized is returned when the caller is neither the token's
	// owner nor the holder of a current approval for it
	ErrUnauthorized = errors.New("caller is not authorized to transfer this token")

	// ErrStaleApproval is returned when a supplied approval id no longer
	// matches the approval recorded for the token
	ErrStaleApproval = errors.New("approval id is stale")

	// ErrNothingToCure is returned when cure is called by an account that
	// owns no tokens
	ErrNothingToCure = errors.New("account holds no tokens to cure")

	// ErrNoOpTransfer is returned when the primary receiver of a transfer is
	// already the token's owner
	ErrNoOpTransfer = errors.New("token is already owned by the receiver")
)
