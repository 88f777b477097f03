package service

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidCredentials is the only login failure callers outside the
	// service ever see.
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrEmailRegistered    = errors.New("email already registered")
	ErrPasswordAlreadySet = errors.New("password already set")
	ErrNoSession          = errors.New("no session")
)

type FailureReason string

const (
	ReasonUserNotFound      FailureReason = "user_not_found"
	ReasonNoLocalCredential FailureReason = "no_local_credential"
	ReasonInvalidCredential FailureReason = "invalid_credential"
	ReasonUnverifiedEmail   FailureReason = "unverified_email"
)

// AuthFailure keeps the internal reason for logs while matching
// ErrInvalidCredentials under errors.Is.
type AuthFailure struct {
	Reason FailureReason
}

func (e *AuthFailure) Error() string {
	return fmt.Sprintf("authentication failed: %s", e.Reason)
}

func (e *AuthFailure) Is(target error) bool {
	return target == ErrInvalidCredentials
}

type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// FailureReasonOf extracts the internal reason of an authentication failure.
func FailureReasonOf(err error) (FailureReason, bool) {
	var failure *AuthFailure
	if errors.As(err, &failure) {
		return failure.Reason, true
	}
	return "", false
}
