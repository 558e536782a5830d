package shared

import "errors"

var (
	// ErrNotFound indicates resource not found.
	ErrNotFound = errors.New("not found")
	// ErrInvalidCredentials indicates login failure.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrUnauthenticated indicates that no actor could be resolved for the request.
	ErrUnauthenticated = errors.New("not logged in")
	// ErrForbidden indicates that the actor lacks every required permission.
	ErrForbidden = errors.New("not permitted")
	// ErrValidation marks invalid input.
	ErrValidation = errors.New("validation failed")
	// ErrInvalidState marks a status change not allowed from the current status.
	ErrInvalidState = errors.New("invalid state transition")
)
