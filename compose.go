package webmail

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rbaliyan/webmail/directory"
	"github.com/rbaliyan/webmail/store"
	"go.opentelemetry.io/otel/attribute"
)

// ComposeRequest is the input of Compose. Recipients is the free-text address
// field: comma separated, surrounding whitespace ignored.
type ComposeRequest struct {
	Recipients string
	Subject    string
	Body       string
}

// ComposeResult holds every entry a compose created.
type ComposeResult struct {
	// Sent is the sender's copy.
	Sent Entry
	// Delivered holds one entry per recipient occurrence, in list order.
	Delivered []Entry
}

// Entries returns the sender's copy followed by the recipient copies.
func (r *ComposeResult) Entries() []Entry {
	return append([]Entry{r.Sent}, r.Delivered...)
}

func (m *userMailbox) Compose(ctx context.Context, req ComposeRequest) (*ComposeResult, error) {
	if err := m.checkAccess(); err != nil {
		return nil, err
	}
	s := m.service

	users, err := s.directory.Resolve(ctx, req.Recipients)
	if err != nil {
		if errors.Is(err, directory.ErrNoRecipients) {
			return nil, ErrNoRecipients
		}
		return nil, err
	}
	recipients := make([]string, len(users))
	for i, u := range users {
		recipients[i] = u.Email
	}

	// Validate before taking a semaphore slot.
	if err := ValidateCompose(len(recipients), req.Subject, req.Body, s.opts.getLimits()); err != nil {
		return nil, err
	}

	ctx, endSpan := s.otel.startSpan(ctx, "webmail.compose",
		attribute.String("user_id", m.userID),
		attribute.Int("recipient_count", len(recipients)),
	)
	start := time.Now()
	var composeErr error
	defer func() {
		endSpan(composeErr)
		s.otel.recordCompose(ctx, time.Since(start), len(recipients), composeErr)
	}()

	if err := s.composeSem.Acquire(ctx, 1); err != nil {
		composeErr = err
		return nil, err
	}
	defer s.composeSem.Release(1)

	if err := s.plugins.beforeCompose(ctx, ComposeHookRequest{
		Sender:     m.userID,
		Recipients: recipients,
		Subject:    req.Subject,
		Body:       req.Body,
	}); err != nil {
		composeErr = err
		return nil, err
	}

	now := s.opts.clock().UTC()
	msgs, err := s.store.CreateMessages(ctx, buildEntries(m.userID, recipients, req.Subject, req.Body, now))
	if err != nil {
		composeErr = fmt.Errorf("store entries: %w", err)
		return nil, composeErr
	}

	result := &ComposeResult{
		Sent:      newEntry(msgs[0]),
		Delivered: newEntries(msgs[1:]),
	}
	s.logger.Debug("composed message",
		"sender", m.userID, "id", result.Sent.ID, "copies", len(msgs))

	deliveryIDs := make([]string, len(result.Delivered))
	for i, e := range result.Delivered {
		deliveryIDs[i] = e.ID
	}
	if err := publish(ctx, s, s.events.EmailSent, "EmailSent", result.Sent.ID, EmailSentEvent{
		MessageID:   result.Sent.ID,
		Sender:      m.userID,
		Recipients:  result.Sent.Recipients,
		DeliveryIDs: deliveryIDs,
		Subject:     req.Subject,
		SentAt:      now,
	}); err != nil {
		composeErr = err
		return result, err
	}

	if err := s.plugins.afterCompose(ctx, result); err != nil {
		composeErr = err
		return result, err
	}

	return result, nil
}

// buildEntries returns the sender's copy followed by one copy per recipient
// occurrence. The sender's recipient list is deduplicated; the fan-out is not.
func buildEntries(sender string, recipients []string, subject, body string, at time.Time) []store.MessageData {
	data := make([]store.MessageData, 0, len(recipients)+1)
	data = append(data, store.MessageData{
		OwnerID:      sender,
		SenderID:     sender,
		RecipientIDs: deduplicate(recipients),
		Subject:      subject,
		Body:         body,
		IsRead:       true,
		CreatedAt:    at,
	})
	for _, r := range recipients {
		data = append(data, store.MessageData{
			OwnerID:      r,
			SenderID:     sender,
			RecipientIDs: []string{r},
			Subject:      subject,
			Body:         body,
			IsRead:       false,
			CreatedAt:    at,
		})
	}
	return data
}

// deduplicate keeps the first occurrence of each value, preserving order.
func deduplicate(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
