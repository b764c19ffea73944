package webmail

import (
	"context"
	"errors"
	"fmt"

	"github.com/rbaliyan/webmail/directory"
	"github.com/rbaliyan/webmail/store"
)

// Sentinel errors for the webmail package.
// Errors that originate in the store or directory wrap the underlying sentinel
// so that errors.Is works against either layer.
var (
	// Lifecycle errors
	ErrNotConnected      = fmt.Errorf("webmail: %w", store.ErrNotConnected)
	ErrAlreadyConnected  = fmt.Errorf("webmail: %w", store.ErrAlreadyConnected)
	ErrStoreRequired     = errors.New("webmail: store is required")
	ErrDirectoryRequired = errors.New("webmail: directory is required")
	ErrInvalidUserID     = errors.New("webmail: invalid user id")

	// Lookup errors
	ErrNotFound  = fmt.Errorf("webmail: %w", store.ErrNotFound)
	ErrInvalidID = fmt.Errorf("webmail: %w", store.ErrInvalidID)

	// Compose errors
	ErrNoRecipients = fmt.Errorf("webmail: %w", directory.ErrNoRecipients)

	// ErrUnknownRecipient is the directory sentinel itself, so that a
	// *UnknownRecipientError returned by Compose matches it directly.
	ErrUnknownRecipient = directory.ErrUnknownRecipient

	ErrTooManyRecipients = errors.New("webmail: too many recipients")
	ErrSubjectTooLong    = errors.New("webmail: subject too long")
	ErrBodyTooLarge      = errors.New("webmail: body too large")
	ErrInvalidContent    = errors.New("webmail: invalid content")
	ErrInvalidMessage    = errors.New("webmail: invalid message")

	// Folder errors
	ErrInvalidFolder = errors.New("webmail: invalid folder")

	// Export errors
	ErrExportNotConfigured = errors.New("webmail: export not configured")
)

// UnknownRecipientError names the first recipient address that does not
// belong to a registered user.
type UnknownRecipientError = directory.UnknownRecipientError

// permanentErrors lists sentinels that will not go away on retry.
var permanentErrors = []error{
	ErrNotFound,
	ErrInvalidID,
	ErrInvalidUserID,
	ErrStoreRequired,
	ErrDirectoryRequired,
	ErrAlreadyConnected,
	ErrNoRecipients,
	ErrUnknownRecipient,
	ErrTooManyRecipients,
	ErrSubjectTooLong,
	ErrBodyTooLarge,
	ErrInvalidContent,
	ErrInvalidMessage,
	ErrInvalidFolder,
	ErrExportNotConfigured,
}

// permanentStoreErrors are checked when the error came straight from a store.
var permanentStoreErrors = []error{
	store.ErrNotFound,
	store.ErrInvalidID,
	store.ErrDuplicateEntry,
	store.ErrFilterInvalid,
	store.ErrEmptyBatch,
}

// retryableErrors are transient by nature.
var retryableErrors = []error{
	ErrNotConnected,
	store.ErrNotConnected,
	store.ErrTransactionFailed,
	context.DeadlineExceeded,
}

// IsRetryableError reports whether an operation that failed with err may
// succeed if attempted again. Unknown errors are treated as retryable, since
// driver and network failures are usually transient.
func IsRetryableError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	var verr *ValidationError
	if errors.As(err, &verr) {
		return false
	}
	for _, target := range permanentErrors {
		if errors.Is(err, target) {
			return false
		}
	}
	for _, target := range permanentStoreErrors {
		if errors.Is(err, target) {
			return false
		}
	}
	for _, target := range retryableErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return true
}

// IsNotFound reports whether err means the entry does not exist for the caller.
// A malformed id counts as not found.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound) || errors.Is(err, store.ErrNotFound) ||
		errors.Is(err, ErrInvalidID) || errors.Is(err, store.ErrInvalidID)
}

// ValidationError describes invalid compose input. It matches both
// ErrInvalidMessage and the specific limit error in Err.
type ValidationError struct {
	Field   string
	Message string
	Err     error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("webmail: invalid %s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrInvalidMessage}
	}
	return []error{ErrInvalidMessage, e.Err}
}

// EventPublishError is returned when the data operation succeeded but the
// follow-up event could not be published and event errors are fatal.
type EventPublishError struct {
	Event     string
	MessageID string
	Err       error
}

func (e *EventPublishError) Error() string {
	return fmt.Sprintf("webmail: publish %s for %s: %v", e.Event, e.MessageID, e.Err)
}

func (e *EventPublishError) Unwrap() error {
	return e.Err
}

// IsEventPublishError reports whether err is an EventPublishError.
func IsEventPublishError(err error) bool {
	var e *EventPublishError
	return errors.As(err, &e)
}
