package services

import "errors"

// ErrorKind classifies relay failures so the HTTP layer can map them to a
// status code without inspecting error strings.
type ErrorKind int

const (
	InvalidInput ErrorKind = iota + 1
	UpstreamUnavailable
	UpstreamEmptyResponse
	InternalFault
)

func (k ErrorKind) String() string {
	switch k {
	case InvalidInput:
		return "INVALID_INPUT"
	case UpstreamUnavailable:
		return "UPSTREAM_UNAVAILABLE"
	case UpstreamEmptyResponse:
		return "UPSTREAM_EMPTY_RESPONSE"
	case InternalFault:
		return "INTERNAL_FAULT"
	default:
		return "UNKNOWN"
	}
}

// RelayError carries a kind, a caller-safe message and the underlying cause.
type RelayError struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *RelayError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *RelayError) Unwrap() error { return e.Err }

// KindOf returns the kind of a relay error. Anything that is not a
// *RelayError counts as an internal fault.
func KindOf(err error) ErrorKind {
	var re *RelayError
	if errors.As(err, &re) {
		return re.Kind
	}
	return InternalFault
}

// PublicMessage returns the part of err that is safe to show to callers.
func PublicMessage(err error) string {
	var re *RelayError
	if errors.As(err, &re) && re.Message != "" {
		return re.Message
	}
	return "internal error"
}

func NewInvalidInputError(message string, cause error) *RelayError {
	return &RelayError{Kind: InvalidInput, Message: message, Err: cause}
}

func newUpstreamError(message string, cause error) *RelayError {
	return &RelayError{Kind: UpstreamUnavailable, Message: message, Err: cause}
}

func newInternalError(message string, cause error) *RelayError {
	return &RelayError{Kind: InternalFault, Message: message, Err: cause}
}
