package domain

import "errors"

var (
	// ErrMalformedNotification is returned for a record with the wrong field count.
	ErrMalformedNotification = errors.New("malformed notification")

	// ErrNetworkMismatch is returned for a record addressed to another network.
	ErrNetworkMismatch = errors.New("notification network mismatch")

	// ErrUnknownEventType is returned for an unrecognized event type token.
	ErrUnknownEventType = errors.New("unknown notification type")

	// ErrUnknownAddress is returned when a receive targets an untracked address.
	ErrUnknownAddress = errors.New("address not known")

	// ErrDuplicateCredit is returned when a reference id is already recorded.
	ErrDuplicateCredit = errors.New("credit already recorded")

	// ErrInvalidTransition is returned for any state change other than unconfirmed -> complete.
	ErrInvalidTransition = errors.New("invalid state transition")

	// ErrInvalidAddress is returned when an address fails validation.
	ErrInvalidAddress = errors.New("invalid address")
)
