package chat

import "errors"

var (
	// ErrNotConnected rejects operations that need a wallet identity.
	ErrNotConnected = errors.New("wallet not connected")

	// ErrValidation rejects malformed input before it leaves the process.
	ErrValidation = errors.New("invalid input")

	// ErrCollaborator wraps failures of the hosted backend or the realtime
	// feed, including per-call deadline expiry.
	ErrCollaborator = errors.New("collaborator failure")
)
