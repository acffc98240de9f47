package learndot

import "fmt"

// APIError represents a failed remote API operation, after any retries. It
// carries the HTTP status code when the failure was an HTTP error response,
// or zero for transport and decoding failures.
type APIError struct {
	// Op names the failed operation
	Op string

	// StatusCode is the HTTP status code, or 0 when no response was received
	StatusCode int

	// Err is the underlying error
	Err error
}

func (e *APIError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("learndot %s failed with HTTP %d: %v", e.Op, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("learndot %s failed: %v", e.Op, e.Err)
}

func (e *APIError) Unwrap() error {
	return e.Err
}

// InvalidStatusError indicates an enrolment status outside the valid set.
type InvalidStatusError struct {
	Status string
}

func (e *InvalidStatusError) Error() string {
	return fmt.Sprintf("invalid enrolment status %q", e.Status)
}

// AmbiguousEnrolmentError indicates that multiple enrolments were found for a
// contact and component but could not be sorted to determine the latest one.
// Guessing here would corrupt the remote system of record, so the operation
// fails instead.
type AmbiguousEnrolmentError struct {
	ContactID   int64
	ComponentID int64
	Err         error
}

func (e *AmbiguousEnrolmentError) Error() string {
	return fmt.Sprintf(
		"multiple enrolments for contact %d, component %d could not be sorted by expiry date: %v",
		e.ContactID, e.ComponentID, e.Err,
	)
}

func (e *AmbiguousEnrolmentError) Unwrap() error {
	return e.Err
}

// ParseError indicates an enrolment timestamp that could not be interpreted.
// Overflow is set when the value's year is outside the representable range,
// as opposed to being malformed.
type ParseError struct {
	Value    string
	Overflow bool
}

func (e *ParseError) Error() string {
	if e.Overflow {
		return fmt.Sprintf("enrolment date %q is out of range", e.Value)
	}
	return fmt.Sprintf("enrolment date %q could not be parsed", e.Value)
}
