package domain

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrAccountNotFound is returned when account is not found
	ErrAccountNotFound = errors.New("account not found")

	// ErrAccountAlreadyExists is returned when account already exists
	ErrAccountAlreadyExists = errors.New("account already exists")

	// ErrNoActiveAccounts is returned when no active accounts available
	ErrNoActiveAccounts = errors.New("no active accounts available")

	// ErrNotAuthorized is returned when a stored session is missing or not logged in
	ErrNotAuthorized = errors.New("account is not authorized, create a session first")

	// ErrNotConnected is returned when operation requires connection
	ErrNotConnected = errors.New("not connected to Telegram")

	// ErrInvalidDestination is returned when a group reference cannot be used
	ErrInvalidDestination = errors.New("invalid destination")

	// ErrDestinationNotFound is returned when a reference does not resolve to a group
	ErrDestinationNotFound = errors.New("destination not found")
)

// ErrorKind is the closed taxonomy of invite and lookup failures
type ErrorKind int

const (
	// KindUncategorized is anything the platform adapter could not classify
	KindUncategorized ErrorKind = iota
	// KindFloodWait is a short rate limit with a server-specified wait
	KindFloodWait
	// KindTooManyRequests is a generic rate limit without a wait hint
	KindTooManyRequests
	// KindPeerFlood marks the acting account as abuse-flagged
	KindPeerFlood
	KindPrivacyRestricted
	KindNotMutualContact
	// KindTooManyChannels means the member already sits in too many groups
	KindTooManyChannels
	// KindAdminRequired means the acting account lacks invite rights in the target
	KindAdminRequired
	KindBannedInChannel
	KindDeletedAccount
)

// String returns the snake_case name of the kind
func (k ErrorKind) String() string {
	switch k {
	case KindFloodWait:
		return "flood_wait"
	case KindTooManyRequests:
		return "too_many_requests"
	case KindPeerFlood:
		return "peer_flood"
	case KindPrivacyRestricted:
		return "privacy_restricted"
	case KindNotMutualContact:
		return "not_mutual_contact"
	case KindTooManyChannels:
		return "too_many_channels"
	case KindAdminRequired:
		return "admin_required"
	case KindBannedInChannel:
		return "banned_in_channel"
	case KindDeletedAccount:
		return "deleted_account"
	default:
		return "uncategorized"
	}
}

// IsRateLimit reports whether the kind is a retryable rate limit
func (k ErrorKind) IsRateLimit() bool {
	return k == KindFloodWait || k == KindTooManyRequests
}

// RPCError is a classified platform failure
type RPCError struct {
	Kind ErrorKind

	// Wait is the server-specified back-off for KindFloodWait
	Wait time.Duration

	Err error
}

func (e *RPCError) Error() string {
	if e.Wait > 0 {
		return fmt.Sprintf("%s (wait %s): %v", e.Kind, e.Wait, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *RPCError) Unwrap() error {
	return e.Err
}

// NewRPCError creates a classified platform error
func NewRPCError(kind ErrorKind, wait time.Duration, err error) *RPCError {
	return &RPCError{Kind: kind, Wait: wait, Err: err}
}

// Classify returns the kind and wait carried by err.
// Errors that are not *RPCError are uncategorized.
func Classify(err error) (ErrorKind, time.Duration) {
	var rpcErr *RPCError
	if errors.As(err, &rpcErr) {
		return rpcErr.Kind, rpcErr.Wait
	}
	return KindUncategorized, 0
}
