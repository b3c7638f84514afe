package errors

import (
	"errors"
	"fmt"
)

// ErrNoUsableCredential is returned when the store is empty or every
// persisted record fails to normalize.
var ErrNoUsableCredential = errors.New("no usable credential available")

// CredentialLoadError marks one stored credential as malformed. The caller
// skips it and tries the others.
type CredentialLoadError struct {
	Identity string
	Reason   string
}

func (e *CredentialLoadError) Error() string {
	return fmt.Sprintf("credential %s failed to load: %s", e.Identity, e.Reason)
}

// RefreshError means a token refresh exchange failed. The stale record is
// left intact for the caller to decide whether to rotate.
type RefreshError struct {
	Identity string
	Err      error
}

func (e *RefreshError) Error() string {
	return fmt.Sprintf("refresh failed for credential %s: %v", e.Identity, e.Err)
}

func (e *RefreshError) Unwrap() error { return e.Err }

// ProjectDiscoveryError means the project id could not be determined via the
// discovery endpoint. Terminal; requires operator action.
type ProjectDiscoveryError struct {
	Reason string
}

func (e *ProjectDiscoveryError) Error() string {
	return "project discovery failed: " + e.Reason
}

// ConfigurationError means the account requires explicit configuration
// (e.g. a user-defined cloud project) that was not supplied. Never retried.
type ConfigurationError struct {
	Reason string
}

func (e *ConfigurationError) Error() string { return e.Reason }

// OnboardingError carries the upstream status and body of a failed
// onboarding handshake. Terminal for the current attempt; the credential
// stays eligible for future attempts.
type OnboardingError struct {
	Status int
	Body   string
}

func (e *OnboardingError) Error() string {
	return fmt.Sprintf("onboarding failed with status %d: %s", e.Status, e.Body)
}
