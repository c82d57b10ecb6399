package apperr

import (
	"errors"
	"fmt"
)

// Kind is the closed set of error categories the service can surface.
// The HTTP boundary maps each kind to a status code and client message;
// nothing else in the system inspects error strings.
type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindDuplicateEmail
	KindInvalidCredentials
	KindInvalidActivation
	KindConfiguration
	KindDependency
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindDuplicateEmail:
		return "duplicate_email"
	case KindInvalidCredentials:
		return "invalid_credentials"
	case KindInvalidActivation:
		return "invalid_activation"
	case KindConfiguration:
		return "configuration"
	case KindDependency:
		return "dependency"
	default:
		return "internal"
	}
}

type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// KindOf reports the kind of err, or KindInternal when err is not tagged.
func KindOf(err error) Kind {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return KindInternal
}

func Validation(message string) *Error {
	return New(KindValidation, message)
}

func DuplicateEmail() *Error {
	return New(KindDuplicateEmail, "email already exists")
}

func InvalidCredentials() *Error {
	return New(KindInvalidCredentials, "invalid email or password")
}

func InvalidActivation(err error) *Error {
	return Wrap(KindInvalidActivation, "invalid or expired activation token", err)
}

func Configuration(message string) *Error {
	return New(KindConfiguration, message)
}

func Dependency(message string, err error) *Error {
	return Wrap(KindDependency, message, err)
}
