package webmail

import (
	"context"
	"fmt"
	"time"

	"github.com/rbaliyan/event/v3"
)

// Event names for webmail events.
const (
	EventNameEmailSent     = "webmail.email.sent"
	EventNameEmailRead     = "webmail.email.read"
	EventNameEmailArchived = "webmail.email.archived"
)

// EmailSentEvent is published once per compose, after every entry is stored.
type EmailSentEvent struct {
	MessageID   string    `json:"message_id"` // id of the sender's copy
	Sender      string    `json:"sender"`
	Recipients  []string  `json:"recipients"`
	DeliveryIDs []string  `json:"delivery_ids"`
	Subject     string    `json:"subject"`
	SentAt      time.Time `json:"sent_at"`
}

// EmailReadEvent is published when an owner marks an entry read.
type EmailReadEvent struct {
	MessageID string    `json:"message_id"`
	UserID    string    `json:"user_id"`
	ReadAt    time.Time `json:"read_at"`
}

// EmailArchivedEvent is published when an owner archives or unarchives an entry.
type EmailArchivedEvent struct {
	MessageID string    `json:"message_id"`
	UserID    string    `json:"user_id"`
	Archived  bool      `json:"archived"`
	At        time.Time `json:"at"`
}

// ServiceEvents provides access to per-service event instances.
//
//	svc.Events().EmailSent.Subscribe(ctx, handler)
type ServiceEvents struct {
	EmailSent     event.Event[EmailSentEvent]
	EmailRead     event.Event[EmailReadEvent]
	EmailArchived event.Event[EmailArchivedEvent]
}

func newServiceEvents(namePrefix string) *ServiceEvents {
	return &ServiceEvents{
		EmailSent:     event.New[EmailSentEvent](namePrefix + "." + EventNameEmailSent),
		EmailRead:     event.New[EmailReadEvent](namePrefix + "." + EventNameEmailRead),
		EmailArchived: event.New[EmailArchivedEvent](namePrefix + "." + EventNameEmailArchived),
	}
}

func registerServiceEvents(ctx context.Context, bus *event.Bus, events *ServiceEvents) error {
	if err := event.Register(ctx, bus, events.EmailSent); err != nil {
		return fmt.Errorf("register EmailSent: %w", err)
	}
	if err := event.Register(ctx, bus, events.EmailRead); err != nil {
		return fmt.Errorf("register EmailRead: %w", err)
	}
	if err := event.Register(ctx, bus, events.EmailArchived); err != nil {
		return fmt.Errorf("register EmailArchived: %w", err)
	}
	return nil
}

// publish sends payload on ev. With fatal event errors the failure is returned
// as an *EventPublishError; otherwise it goes to the failure handler.
func publish[T any](ctx context.Context, s *service, ev event.Event[T], name, messageID string, payload T) error {
	if err := ev.Publish(ctx, payload); err != nil {
		if s.opts.eventErrorsFatal {
			return &EventPublishError{Event: name, MessageID: messageID, Err: err}
		}
		s.opts.safeEventPublishFailure(name, err)
	}
	return nil
}
