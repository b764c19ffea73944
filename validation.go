package webmail

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Limits holds compose validation limits.
type Limits struct {
	MaxSubjectLength  int
	MaxBodySize       int
	MaxRecipientCount int
}

// DefaultLimits returns the default compose limits.
func DefaultLimits() Limits {
	return Limits{
		MaxSubjectLength:  DefaultMaxSubjectLength,
		MaxBodySize:       DefaultMaxBodySize,
		MaxRecipientCount: DefaultMaxRecipientCount,
	}
}

// ValidateSubject checks length and content of a subject.
// An empty subject is allowed.
func ValidateSubject(subject string, limits Limits) error {
	if len(subject) > limits.MaxSubjectLength {
		return invalid("subject", ErrSubjectTooLong, "length %d exceeds max %d", len(subject), limits.MaxSubjectLength)
	}
	if !utf8.ValidString(subject) {
		return invalid("subject", ErrInvalidContent, "invalid UTF-8")
	}
	for _, r := range subject {
		if unicode.IsControl(r) && r != '\t' {
			return invalid("subject", ErrInvalidContent, "control character U+%04X", r)
		}
	}
	return nil
}

// ValidateBody checks size and content of a body. An empty body is allowed.
func ValidateBody(body string, limits Limits) error {
	if len(body) > limits.MaxBodySize {
		return invalid("body", ErrBodyTooLarge, "size %d exceeds max %d bytes", len(body), limits.MaxBodySize)
	}
	if !utf8.ValidString(body) {
		return invalid("body", ErrInvalidContent, "invalid UTF-8")
	}
	if strings.ContainsRune(body, '\x00') {
		return invalid("body", ErrInvalidContent, "null bytes")
	}
	return nil
}

// ValidateRecipientCount checks the resolved recipient list length,
// duplicates included.
func ValidateRecipientCount(n int, limits Limits) error {
	if n > limits.MaxRecipientCount {
		return invalid("recipients", ErrTooManyRecipients, "count %d exceeds max %d", n, limits.MaxRecipientCount)
	}
	return nil
}

// ValidateCompose validates a compose request after recipient resolution.
func ValidateCompose(recipientCount int, subject, body string, limits Limits) error {
	if err := ValidateRecipientCount(recipientCount, limits); err != nil {
		return err
	}
	if err := ValidateSubject(subject, limits); err != nil {
		return err
	}
	return ValidateBody(body, limits)
}

func invalid(field string, kind error, format string, args ...any) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...), Err: kind}
}
