package billing

import (
	"errors"
	"fmt"
)

// ErrorClass partitions billing failures for HTTP mapping and retry policy.
type ErrorClass string

const (
	// ClassValidation: the request itself is malformed or references nothing.
	ClassValidation ErrorClass = "validation"
	// ClassIneligible: the request is well-formed but the current state
	// forbids the operation (not connected, already refunded, wrong owner).
	ClassIneligible ErrorClass = "ineligible"
	// ClassUpstream: the payment processor rejected the call.
	ClassUpstream ErrorClass = "upstream"
	// ClassIntegrity: local records contradict each other; needs an operator.
	ClassIntegrity ErrorClass = "integrity"
	// ClassTransient: infrastructure failure, safe to retry as-is.
	ClassTransient ErrorClass = "transient"
)

// Error is the typed billing failure controllers translate to HTTP codes.
type Error struct {
	Class ErrorClass
	Code  string
	msg   string
	cause error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Class, e.msg, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Class, e.msg)
}

func (e *Error) Unwrap() error { return e.cause }

// Message returns the client-safe description.
func (e *Error) Message() string { return e.msg }

func validationErr(code, msg string) *Error {
	return &Error{Class: ClassValidation, Code: code, msg: msg}
}

func ineligibleErr(code, msg string) *Error {
	return &Error{Class: ClassIneligible, Code: code, msg: msg}
}

func upstreamErr(code, msg string, cause error) *Error {
	return &Error{Class: ClassUpstream, Code: code, msg: msg, cause: cause}
}

func integrityErr(code, msg string) *Error {
	return &Error{Class: ClassIntegrity, Code: code, msg: msg}
}

func transientErr(code string, cause error) *Error {
	return &Error{Class: ClassTransient, Code: code, msg: "temporary failure, retry", cause: cause}
}

// ClassOf extracts the class from any error chain; unknown errors are
// transient so callers retry instead of surfacing internals.
func ClassOf(err error) ErrorClass {
	var be *Error
	if errors.As(err, &be) {
		return be.Class
	}
	return ClassTransient
}
