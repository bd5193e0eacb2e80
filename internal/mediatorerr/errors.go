// Package mediatorerr defines the typed error kinds surfaced by the mediator.
package mediatorerr

import "fmt"

// Kind classifies a mediator error for the purpose of HTTP status mapping
// and logging (see the error handling design).
type Kind string

const (
	// KindBadBody is malformed JSON in the request body.
	KindBadBody Kind = "bad_body"
	// KindDecrypt covers JWE MAC, ciphertext, signature, or recipient
	// mismatch failures, including an unresolvable sender key.
	KindDecrypt Kind = "decrypt"
	// KindUnresolvable means a DID could not be resolved.
	KindUnresolvable Kind = "unresolvable"
	// KindBuilderInput means a protocol builder was given a missing or
	// invalid input field.
	KindBuilderInput Kind = "builder_input"
	// KindHandlerFailure is an unexpected error raised by a handler.
	KindHandlerFailure Kind = "handler_failure"
	// KindStoreFailure is a persisted-backend error; the in-memory store
	// remains authoritative and the request still succeeds.
	KindStoreFailure Kind = "store_failure"
)

// Error is a typed error carrying a Kind and an optional wrapped cause.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// New creates an Error of the given kind with no wrapped cause.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap creates an Error of the given kind wrapping cause.
func Wrap(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

// KindOf extracts the Kind of err if it is (or wraps) a *Error, and
// KindHandlerFailure otherwise — any unexpected error surfaces as a
// generic handler failure per the error propagation policy.
func KindOf(err error) Kind {
	var me *Error
	if AsError(err, &me) {
		return me.Kind
	}
	return KindHandlerFailure
}

// AsError mirrors errors.As without importing it at every call site used
// only internally by KindOf; exported for handlers that need the typed form.
func AsError(err error, target **Error) bool {
	for err != nil {
		if e, ok := err.(*Error); ok {
			*target = e
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}

// HTTPStatus maps a Kind to the status code it surfaces as, per the
// error handling design: everything user-visible is 400 except a
// successful chain completion, which is handled separately at 200.
func HTTPStatus(kind Kind) int {
	return 400
}
