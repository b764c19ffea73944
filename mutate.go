package webmail

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
)

// Update applies flags to an entry owned by this user in one store call.
// Empty flags still report ErrNotFound for a missing or foreign entry.
func (m *userMailbox) Update(ctx context.Context, id string, flags Flags) error {
	if err := m.checkAccess(); err != nil {
		return err
	}
	s := m.service

	ctx, endSpan := s.otel.startSpan(ctx, "webmail.update",
		attribute.String("user_id", m.userID),
		attribute.String("message_id", id),
	)
	start := time.Now()
	var updateErr error
	defer func() {
		endSpan(updateErr)
		s.otel.recordUpdate(ctx, time.Since(start), flags, updateErr)
	}()

	if err := s.store.UpdateFlags(ctx, m.userID, id, flags.toStore()); err != nil {
		updateErr = translateLookupError(id, err)
		return updateErr
	}

	now := time.Now().UTC()
	if flags.Read != nil && *flags.Read {
		if err := publish(ctx, s, s.events.EmailRead, "EmailRead", id, EmailReadEvent{
			MessageID: id,
			UserID:    m.userID,
			ReadAt:    now,
		}); err != nil {
			updateErr = err
			return err
		}
	}
	if flags.Archived != nil {
		if err := publish(ctx, s, s.events.EmailArchived, "EmailArchived", id, EmailArchivedEvent{
			MessageID: id,
			UserID:    m.userID,
			Archived:  *flags.Archived,
			At:        now,
		}); err != nil {
			updateErr = err
			return err
		}
	}
	return nil
}
