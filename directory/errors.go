package directory

import (
	"errors"
	"fmt"
)

// Sentinel errors for the directory package.
var (
	// ErrNoRecipients is returned when the recipient field names nobody.
	ErrNoRecipients = errors.New("directory: at least one recipient required")

	// ErrUnknownRecipient is matched by every *UnknownRecipientError.
	ErrUnknownRecipient = errors.New("directory: unknown recipient")

	// ErrUserExists is returned when registering an email that is already taken.
	ErrUserExists = errors.New("directory: email address already taken")

	// ErrInvalidCredentials is returned when authentication fails for any reason.
	ErrInvalidCredentials = errors.New("directory: invalid email and/or password")

	// ErrPasswordMismatch is returned when password and confirmation differ.
	ErrPasswordMismatch = errors.New("directory: passwords must match")

	// ErrInvalidEmail is returned when a registration email cannot be parsed.
	ErrInvalidEmail = errors.New("directory: invalid email address")

	// ErrEmptyPassword is returned when registering without a password.
	ErrEmptyPassword = errors.New("directory: password required")
)

// UnknownRecipientError names the first address that did not resolve.
type UnknownRecipientError struct {
	Address string
}

func (e *UnknownRecipientError) Error() string {
	return fmt.Sprintf("directory: user with email %s does not exist", e.Address)
}

func (e *UnknownRecipientError) Unwrap() error {
	return ErrUnknownRecipient
}
