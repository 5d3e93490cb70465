package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNoCredential is returned when a user has no stored credential.
	ErrNoCredential = errors.New("no credential stored for user")

	// ErrRefreshDenied is returned when the provider rejects a refresh grant.
	ErrRefreshDenied = errors.New("refresh token rejected by provider")

	// ErrProviderTimeout is returned when a single provider call does not finish in time.
	ErrProviderTimeout = errors.New("provider call timed out")

	// ErrProviderUnavailable is returned when the provider cannot be reached at all.
	ErrProviderUnavailable = errors.New("provider unavailable")
)

// MembershipError is a non-success answer of the add-member endpoint.
type MembershipError struct {
	Code int
	Body string
}

func (e *MembershipError) Error() string {
	return fmt.Sprintf("join failed %d: %s", e.Code, e.Body)
}

// IsUserScoped reports whether err only affects the current user of a run.
// Anything else aborts the run.
func IsUserScoped(err error) bool {
	var membershipErr *MembershipError
	switch {
	case errors.As(err, &membershipErr):
		return true
	case errors.Is(err, ErrNoCredential),
		errors.Is(err, ErrRefreshDenied),
		errors.Is(err, ErrProviderTimeout):
		return true
	}
	return false
}
