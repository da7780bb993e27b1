package payment

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidPhone      = errors.New("invalid phone number format")
	ErrInvalidAmount     = errors.New("amount must be a positive whole number")
	ErrMissingToken      = errors.New("access token missing in response")
	ErrMalformedCallback = errors.New("malformed callback")
	ErrMissingCheckoutID = errors.New("checkout request id is required")
)

// FormatError reports user input that cannot be reshaped into what the
// provider accepts.
type FormatError struct {
	Field string
	Err   error
}

func (e *FormatError) Error() string { return e.Field + ": " + e.Err.Error() }
func (e *FormatError) Unwrap() error { return e.Err }

// AuthError means the token endpoint answered but did not hand out a token.
type AuthError struct {
	Err error
}

func (e *AuthError) Error() string { return "mpesa auth: " + e.Err.Error() }
func (e *AuthError) Unwrap() error { return e.Err }

// NetworkError is a transport-level failure talking to the provider:
// connection refused, timeout or an unreadable body.
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string { return fmt.Sprintf("mpesa %s: %v", e.Op, e.Err) }
func (e *NetworkError) Unwrap() error { return e.Err }

// ProtocolError is an inbound callback body that does not match the STK
// callback envelope.
type ProtocolError struct {
	Err error
}

func (e *ProtocolError) Error() string { return e.Err.Error() }
func (e *ProtocolError) Unwrap() error { return ErrMalformedCallback }

func protocolErrorf(format string, args ...any) error {
	return &ProtocolError{Err: fmt.Errorf(format, args...)}
}
