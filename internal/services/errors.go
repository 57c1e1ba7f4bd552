package services

import "errors"

// Service-level failure modes. Handlers translate these into HTTP statuses;
// callers distinguish them with errors.Is. Anything not wrapping one of these
// is an unexpected storage fault.
var (
	// ErrValidation signals malformed or missing input the caller must fix.
	ErrValidation = errors.New("validation failed")

	// ErrConflict signals a uniqueness violation (duplicate email).
	ErrConflict = errors.New("conflict")

	// ErrNotFound signals that a referenced entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidRole signals that an account's role does not permit the
	// requested operation.
	ErrInvalidRole = errors.New("invalid role")

	// ErrAlreadyVoted signals that the voter has already cast their vote.
	ErrAlreadyVoted = errors.New("already voted")

	// ErrInvalidCredentials signals a failed login. It deliberately does not
	// distinguish unknown email from wrong password.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrConsistency signals that a stored invariant was found broken. It is
	// surfaced as a server-side fault, never silently corrected.
	ErrConsistency = errors.New("consistency violation")
)
