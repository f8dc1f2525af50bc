package failure

import (
	"errors"
	"fmt"
)

// Kind classifies a failure so the boundary can turn it into the right user notice.
type Kind int

const (
	KindUnexpected Kind = iota
	KindNotFound
	KindEmpty
	KindConstraint
	KindTransport
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindEmpty:
		return "empty_result"
	case KindConstraint:
		return "constraint_violation"
	case KindTransport:
		return "transport_failure"
	default:
		return "unexpected"
	}
}

// Error is a classified failure. Message is safe to show to the user.
type Error struct {
	Kind    Kind
	Op      string
	Message string
	Err     error
}

func (e *Error) Error() string {
	switch {
	case e.Err != nil && e.Message != "":
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Message, e.Err)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	default:
		return fmt.Sprintf("%s: %s", e.Op, e.Message)
	}
}

func (e *Error) Unwrap() error { return e.Err }

// NotFound reports that `what` is absent from the data being searched.
func NotFound(op, what string) error {
	return &Error{Kind: KindNotFound, Op: op, Message: what + " not found"}
}

// Empty reports a lookup that succeeded but produced nothing.
func Empty(op, msg string) error {
	return &Error{Kind: KindEmpty, Op: op, Message: msg}
}

// Constraint reports an action blocked locally by a domain rule.
func Constraint(op, msg string) error {
	return &Error{Kind: KindConstraint, Op: op, Message: msg}
}

// Transport wraps a network or backend failure.
func Transport(op string, err error) error {
	return &Error{Kind: KindTransport, Op: op, Message: "service unavailable, please retry", Err: err}
}

// Unexpected wraps anything outside the tolerated cases.
func Unexpected(op string, err error) error {
	return &Error{Kind: KindUnexpected, Op: op, Message: "something went wrong", Err: err}
}

// KindOf returns the kind of the first classified error in the chain.
func KindOf(err error) Kind {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return KindUnexpected
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	if err == nil {
		return false
	}
	return KindOf(err) == kind
}

// Message returns the user-facing notice for err.
func Message(err error) string {
	var fe *Error
	if errors.As(err, &fe) && fe.Message != "" {
		return fe.Message
	}
	return "something went wrong"
}
