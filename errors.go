package identity

import (
	stderrors "errors"

	"github.com/goliatone/go-errors"
	repository "github.com/goliatone/go-repository-bun"
)

// ErrNoEmptyString is returned when hashing an empty password
var ErrNoEmptyString = stderrors.New("password cannot be an empty string")

// ErrMismatchedHashAndPassword is the error for failed credential checks
var ErrMismatchedHashAndPassword = stderrors.New("mismatched password")

// ErrInvalidCredentials is surfaced to users on failed sign-in. It hides
// whether the account exists.
var ErrInvalidCredentials = errors.New("invalid email or password", errors.CategoryAuth).
	WithTextCode("INVALID_CREDENTIALS").
	WithCode(errors.CodeUnauthorized)

// ErrEmailTaken is returned when signing up with an already registered email.
var ErrEmailTaken = errors.New("email is already registered", errors.CategoryConflict).
	WithTextCode("EMAIL_TAKEN").
	WithCode(errors.CodeConflict)

// ErrTokenExpired is returned when a session token is past its expiry.
var ErrTokenExpired = errors.New("session token is expired", errors.CategoryAuth).
	WithTextCode("TOKEN_EXPIRED").
	WithCode(errors.CodeUnauthorized)

// ErrTokenMalformed is returned when a session token cannot be decoded.
var ErrTokenMalformed = errors.New("session token is malformed", errors.CategoryAuth).
	WithTextCode("TOKEN_MALFORMED").
	WithCode(errors.CodeUnauthorized)

// ErrControllerClosed is returned from operations invoked after Close.
var ErrControllerClosed = errors.New("identity controller is closed", errors.CategoryConflict).
	WithTextCode("CONTROLLER_CLOSED").
	WithCode(errors.CodeConflict)

// ErrControllerStarted is returned when Start is called more than once.
var ErrControllerStarted = errors.New("identity controller already started", errors.CategoryConflict).
	WithTextCode("CONTROLLER_STARTED").
	WithCode(errors.CodeConflict)

// IsProfileNotFound distinguishes the expected first-login condition from
// generic repository failures. Only this condition triggers provisioning.
func IsProfileNotFound(err error) bool {
	return repository.IsRecordNotFound(err)
}
