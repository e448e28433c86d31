// Package errors defines the sentinel errors and exit-code plumbing shared
// across sessiond. Fatal failure classes carry distinct exit codes so
// operators can tell misconfiguration apart from credential-validity
// problems.
package errors

import (
	"github.com/cockroachdb/errors"
)

// Sentinel errors for the credential bootstrap.
//
// The three load failures and ErrAuthRejected are fatal and must never be
// retried. ErrAuthUnavailable is transient and retried with backoff before
// becoming fatal.
var (
	// ErrCredentialNotFound indicates the service-account file does not exist.
	ErrCredentialNotFound = errors.New("service account credential file not found")

	// ErrCredentialUnreadable indicates the file exists but could not be
	// read (permissions, I/O failure).
	ErrCredentialUnreadable = errors.New("service account credential file could not be read")

	// ErrCredentialMalformed indicates the credential file could not be parsed.
	ErrCredentialMalformed = errors.New("service account credential file is malformed")

	// ErrCredentialIncomplete indicates the credential file parsed but is
	// missing a required field.
	ErrCredentialIncomplete = errors.New("service account credential is missing required fields")

	// ErrAuthRejected indicates the token endpoint judged the credential
	// invalid (bad signature, revoked key, wrong audience).
	ErrAuthRejected = errors.New("authentication rejected by token endpoint")

	// ErrAuthUnavailable indicates the token endpoint could not be reached.
	ErrAuthUnavailable = errors.New("authentication endpoint unavailable")

	// ErrInvalidConfig indicates bad service configuration.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrSessionExists indicates the user already has an active work session.
	ErrSessionExists = errors.New("active session already exists")

	// ErrNoActiveSession indicates the user has no active session to stop.
	ErrNoActiveSession = errors.New("no active session")
)

// Exit codes for the fatal bootstrap failure classes.
const (
	ExitCodeGeneric              = 1
	ExitCodeCredentialNotFound   = 10
	ExitCodeCredentialMalformed  = 11
	ExitCodeCredentialIncomplete = 12
	ExitCodeAuthRejected         = 13
	ExitCodeAuthUnavailable      = 14
	ExitCodeCredentialUnreadable = 15
)

// ClassifyExitCode maps an error chain onto the exit code of its bootstrap
// failure class. Errors outside the taxonomy fall back to any explicitly
// attached exit code, then to ExitCodeGeneric.
func ClassifyExitCode(err error) int {
	if err == nil {
		return 0
	}
	switch {
	case errors.Is(err, ErrCredentialNotFound):
		return ExitCodeCredentialNotFound
	case errors.Is(err, ErrCredentialUnreadable):
		return ExitCodeCredentialUnreadable
	case errors.Is(err, ErrCredentialMalformed):
		return ExitCodeCredentialMalformed
	case errors.Is(err, ErrCredentialIncomplete):
		return ExitCodeCredentialIncomplete
	case errors.Is(err, ErrAuthRejected):
		return ExitCodeAuthRejected
	case errors.Is(err, ErrAuthUnavailable):
		return ExitCodeAuthUnavailable
	}
	return GetExitCode(err)
}
