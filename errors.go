package supplier

import (
	"errors"
	"fmt"
)

// ErrorCode classifies a failure observed while talking to the stream
// service: Throttled, IteratorExpired, NotFound, InvalidArgument,
// RecoverableTransport and Unrecoverable.
type ErrorCode int

const (
	Unrecoverable ErrorCode = iota
	Throttled
	IteratorExpired
	NotFound
	InvalidArgument
	RecoverableTransport
)

func (c ErrorCode) String() string {
	switch c {
	case Throttled:
		return "Throttled"
	case IteratorExpired:
		return "IteratorExpired"
	case NotFound:
		return "NotFound"
	case InvalidArgument:
		return "InvalidArgument"
	case RecoverableTransport:
		return "RecoverableTransport"
	default:
		return "Unrecoverable"
	}
}

// ServiceError wraps an error returned by the stream client with its
// classified ErrorCode so partition workers and the probe protocol can
// branch on it without re-inspecting the underlying SDK type. Concrete
// StreamClient implementations classify at their own boundary (see
// internal/awskinesis); this package only reads the code back out.
type ServiceError struct {
	Code ErrorCode
	Err  error
}

func (e *ServiceError) Error() string {
	return fmt.Sprintf("%s: %v", e.Code, e.Err)
}

func (e *ServiceError) Unwrap() error { return e.Err }

func newServiceError(code ErrorCode, err error) *ServiceError {
	return &ServiceError{Code: code, Err: err}
}

// serviceErrorCode extracts the classification from an error returned by a
// StreamClient. An error that is not a *ServiceError is treated as
// unrecoverable.
func serviceErrorCode(err error) ErrorCode {
	var svcErr *ServiceError
	if errors.As(err, &svcErr) {
		return svcErr.Code
	}
	return Unrecoverable
}

// StateError is returned for operations attempted after Close, or for
// operations that are unsupported entirely (GetPosition).
type StateError struct {
	Op  string
	Msg string
}

func (e *StateError) Error() string {
	return fmt.Sprintf("supplier: %s: %s", e.Op, e.Msg)
}

func newStateError(op, msg string) *StateError {
	return &StateError{Op: op, Msg: msg}
}

// ConfigurationError is returned at construction time when the caller asks
// for a capability (currently: a named decoder) that is not available.
type ConfigurationError struct {
	Msg string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("supplier: configuration error: %s", e.Msg)
}

func newConfigurationError(msg string) *ConfigurationError {
	return &ConfigurationError{Msg: msg}
}
