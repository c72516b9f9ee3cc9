package googfit

import (
	"errors"
	"fmt"
)

// ErrUnauthorized is wrapped by an AuthError when a request is still rejected after a refresh
var ErrUnauthorized = errors.New("unauthorized")

// AuthError is returned when the authorization server rejects a credential
// or a request remains unauthorized after one refresh
type AuthError struct {
	Op  string
	Err error
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("auth: %s: %v", e.Op, e.Err)
}

func (e *AuthError) Unwrap() error {
	return e.Err
}

// RequestError is returned for any non-2xx, non-401 response
type RequestError struct {
	StatusCode int
	Body       string
	Err        error
}

func (e *RequestError) Error() string {
	return fmt.Sprintf("request failed with status %d: %s", e.StatusCode, e.Body)
}

func (e *RequestError) Unwrap() error {
	return e.Err
}

// MalformedResponseError is returned when a response lacks the expected JSON shape
type MalformedResponseError struct {
	Field string
	Err   error
}

func (e *MalformedResponseError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("malformed response: %s", e.Field)
	}
	return fmt.Sprintf("malformed response: %s: %v", e.Field, e.Err)
}

func (e *MalformedResponseError) Unwrap() error {
	return e.Err
}

// InvalidWorkoutError is returned when power metrics are requested for a
// workout with no distance or no positive duration
type InvalidWorkoutError struct {
	Workout *Workout
	Reason  string
}

func (e *InvalidWorkoutError) Error() string {
	if e.Workout == nil {
		return fmt.Sprintf("invalid workout: %s", e.Reason)
	}
	return fmt.Sprintf("invalid workout starting at %d: %s", e.Workout.StartNanos, e.Reason)
}

func malformed(field string, err error) error {
	return &MalformedResponseError{Field: field, Err: err}
}
