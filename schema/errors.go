package schema

import "errors"

var (
	// ErrMalformedSnapshot indicates a state payload that could not be decoded.
	ErrMalformedSnapshot = errors.New("malformed snapshot")
	// ErrChannelUnavailable indicates the authority command channel is absent or closed.
	ErrChannelUnavailable = errors.New("command channel unavailable")
	// ErrInvalidClock indicates text that is not a MM:SS duration.
	ErrInvalidClock = errors.New("invalid clock value")
	// ErrInvalidTheme indicates an unsupported theme name.
	ErrInvalidTheme = errors.New("invalid theme")
	// ErrInvalidVariant indicates an unsupported console variant.
	ErrInvalidVariant = errors.New("invalid console variant")
	// ErrInvalidOperator indicates an invalid operator identifier.
	ErrInvalidOperator = errors.New("invalid operator")
	// ErrUnknownOperator indicates the operator is not configured.
	ErrUnknownOperator = errors.New("unknown operator")
	// ErrCommandRejected indicates the authority refused a command.
	ErrCommandRejected = errors.New("command rejected")
)
