package supervisor

import "errors"

// Precondition errors returned by Validate before any request is sent.
var (
	ErrSessionNotInitialized = errors.New("session not initialized: call InitializeSession first")
	ErrArrayNotSupported     = errors.New("invalid input: resource should be a single FHIR resource, not an array")
	ErrInvalidJSON           = errors.New("invalid input: resource cannot be parsed as a valid JSON object")
	ErrInvalidResource       = errors.New("invalid input: resource should be a valid JSON object")
	ErrInvalidProfiles       = errors.New("invalid input: profiles should be a list of profile URLs")
)

// Response errors.
var (
	// ErrNoSessionID is returned by InitializeSession when the server replies without a session id.
	ErrNoSessionID = errors.New("validator server did not return a session id")
	// ErrNoOutcome is returned by Validate when the server replies without any outcome.
	ErrNoOutcome = errors.New("validator server returned no outcome for the submitted resource")
)

// IsInputError reports whether err rejects the resource or profiles passed to
// Validate, as opposed to a session or transport failure.
func IsInputError(err error) bool {
	return errors.Is(err, ErrArrayNotSupported) ||
		errors.Is(err, ErrInvalidJSON) ||
		errors.Is(err, ErrInvalidResource) ||
		errors.Is(err, ErrInvalidProfiles)
}
