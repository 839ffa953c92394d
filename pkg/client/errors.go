package client

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned by Request when the API answers 404. It is an
// expected outcome: a search treats it as the end of the results.
var ErrNotFound = errors.New("not found")

// unhandledMessage is the fixed description of non-success responses other
// than 404 and 500.
const unhandledMessage = "unhandled error"

// ErrorClass represents a classification of request failures.
type ErrorClass string

const (
	// ErrorClassNotFound represents a 404 response.
	ErrorClassNotFound ErrorClass = "not_found"

	// ErrorClassServer represents a 500 response with an error payload.
	ErrorClassServer ErrorClass = "server"

	// ErrorClassFailure represents any other non-success response.
	ErrorClassFailure ErrorClass = "failure"

	// ErrorClassNetwork represents transport errors (connection refused, timeouts).
	ErrorClassNetwork ErrorClass = "network"
)

// Outcome is the tagged result of a single page request.
type Outcome int

const (
	OutcomeOK Outcome = iota
	OutcomeNotFound
	OutcomeServerError
	OutcomeFailure
	OutcomeNetwork
)

// String implements fmt.Stringer.
func (o Outcome) String() string {
	switch o {
	case OutcomeOK:
		return "ok"
	case OutcomeNotFound:
		return "not_found"
	case OutcomeServerError:
		return "server_error"
	case OutcomeFailure:
		return "failure"
	case OutcomeNetwork:
		return "network"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

// Classify maps an error returned by Request to its Outcome.
func Classify(err error) Outcome {
	if err == nil {
		return OutcomeOK
	}
	if errors.Is(err, ErrNotFound) {
		return OutcomeNotFound
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorClass {
		case ErrorClassServer:
			return OutcomeServerError
		case ErrorClassNetwork:
			return OutcomeNetwork
		}
	}
	return OutcomeFailure
}

// APIError represents a failed API request.
type APIError struct {
	StatusCode int
	ErrorClass ErrorClass
	Message    string
	Err        error
}

// Error implements the error interface. A server error reports the server's
// message verbatim.
func (e *APIError) Error() string {
	switch {
	case e.ErrorClass == ErrorClassServer && e.Err == nil:
		return e.Message
	case e.ErrorClass == ErrorClassNetwork:
		return fmt.Sprintf("request failed: %v", e.Err)
	case e.Err != nil:
		return fmt.Sprintf("%s (status %d): %v", e.Message, e.StatusCode, e.Err)
	default:
		return e.Message
	}
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *APIError) Unwrap() error {
	return e.Err
}
