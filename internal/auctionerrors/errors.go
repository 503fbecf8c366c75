package auctionerrors

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Error classes. Every error that leaves a component wraps exactly one of these.
var (
	ErrAuth          = errors.New("authentication failed")
	ErrAuthorization = errors.New("insufficient role")
	ErrNotFound      = errors.New("not found")
	ErrValidation    = errors.New("validation failed")
	ErrTransport     = errors.New("transport failure")
	ErrServer        = errors.New("server error")
)

// session errors
var (
	ErrMalformedSession = fmt.Errorf("%w: incomplete session record", ErrAuth)
	ErrSessionExpired   = fmt.Errorf("%w: session expired", ErrAuth)
)

// bid errors
var (
	ErrInvalidAmount   = fmt.Errorf("%w: bid amount must be positive", ErrValidation)
	ErrBidTooLow       = fmt.Errorf("%w: bid amount too low", ErrValidation)
	ErrAuctionInactive = fmt.Errorf("%w: auction is not active", ErrValidation)
)

// channel errors
var (
	ErrNotConnected  = fmt.Errorf("%w: live channel is not connected", ErrTransport)
	ErrChannelClosed = fmt.Errorf("%w: live channel is closed", ErrTransport)
	ErrHandshake     = fmt.Errorf("%w: handshake rejected", ErrTransport)
)

// FromStatus converts a non-2xx REST status into the matching error class.
// body is the raw response text and ends up in the error message when present.
func FromStatus(status int, body string) error {
	var class error
	switch {
	case status == http.StatusUnauthorized:
		class = ErrAuth
	case status == http.StatusForbidden:
		class = ErrAuthorization
	case status == http.StatusNotFound:
		class = ErrNotFound
	default:
		class = ErrServer
	}

	body = strings.TrimSpace(body)
	if body == "" {
		return fmt.Errorf("%w: status %d", class, status)
	}
	if len(body) > 200 {
		body = body[:200]
	}
	return fmt.Errorf("%w: status %d: %s", class, status, body)
}

// Class returns the error class err belongs to, or ErrServer for anything unclassified.
func Class(err error) error {
	for _, class := range []error{ErrAuth, ErrAuthorization, ErrNotFound, ErrValidation, ErrTransport, ErrServer} {
		if errors.Is(err, class) {
			return class
		}
	}
	return ErrServer
}
