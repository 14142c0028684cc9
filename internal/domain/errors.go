package domain

import "errors"

// Validation / not-found errors
var (
	ErrValidation       = errors.New("invalid request")
	ErrMatchNotFound    = errors.New("match not found")
	ErrProposalNotFound = errors.New("proposal not found")
	ErrSessionNotFound  = errors.New("draft session not found")
	ErrMonitorNotFound  = errors.New("game monitor not found")
	ErrNotParticipant   = errors.New("player is not part of this match")
)

// Conflict errors
var (
	ErrAlreadyQueued       = errors.New("player already has an active queue entry")
	ErrWrongTurn           = errors.New("it is not this player's turn")
	ErrAlreadyLocked       = errors.New("phase is already locked")
	ErrChampionUnavailable = errors.New("champion is already picked or banned")
	ErrAlreadyResponded    = errors.New("player already responded to this proposal")
	ErrDraftNotComplete    = errors.New("draft sequence is not complete")
	ErrStaleStatus         = errors.New("match status changed concurrently")
)

// Expired errors
var (
	ErrProposalExpired = errors.New("acceptance deadline has passed")
)

// ErrTransient marks a cache or store failure that exhausted its retries.
// The request is rejected rather than allowed to succeed against only one
// of the two stores.
var ErrTransient = errors.New("backing store temporarily unreachable")
