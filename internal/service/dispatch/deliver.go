package dispatch

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/mcnijman/go-emailaddress"
	"github.com/wb-go/wbf/retry"

	"github.com/aliskhannn/notification-dispatcher/internal/model"
	"github.com/aliskhannn/notification-dispatcher/pkg/email"
)

const inAppType = "system"

// delivery is the outcome of a successful delivery of one row.
type delivery struct {
	emailsSent   int
	inAppCreated int
}

func (d delivery) recipients() int {
	return d.emailsSent + d.inAppCreated
}

func (s *Service) deliver(ctx context.Context, n model.QueuedNotification, route model.Route) (delivery, error) {
	switch {
	case route.Channel == model.ChannelEmail && route.Scope == model.ScopeBroadcast:
		return s.broadcastEmail(ctx, n)
	case route.Channel == model.ChannelEmail:
		return s.singleEmail(ctx, n, route)
	case route.Scope == model.ScopeBroadcast:
		return s.broadcastInApp(ctx, n)
	default:
		return s.singleInApp(ctx, n, route)
	}
}

func (s *Service) title(n model.QueuedNotification) string {
	if n.Title.Valid && n.Title.String != "" {
		return n.Title.String
	}

	return s.opts.DefaultTitle
}

func (s *Service) broadcastEmail(ctx context.Context, n model.QueuedNotification) (delivery, error) {
	var recipients []string
	err := retry.Do(func() error {
		var err error
		recipients, err = s.users.ListEmails(ctx)
		return err
	}, s.opts.Retry)
	if err != nil {
		return delivery{}, err
	}

	if len(recipients) == 0 {
		return delivery{}, nil
	}

	msg := email.Message{
		From:    s.opts.From,
		To:      recipients,
		Subject: s.title(n),
		HTML:    email.RenderHTML(stripBroadcastPrefix(n.Description.String)),
	}

	if _, err := s.mailer.Send(ctx, msg); err != nil {
		return delivery{}, err
	}

	return delivery{emailsSent: len(recipients)}, nil
}

func (s *Service) singleEmail(ctx context.Context, n model.QueuedNotification, route model.Route) (delivery, error) {
	if route.Recipient == "" {
		return delivery{}, ErrNoRecipient
	}

	if _, err := emailaddress.Parse(route.Recipient); err != nil {
		return delivery{}, fmt.Errorf("%w %q: %s", ErrInvalidRecipient, route.Recipient, err.Error())
	}

	body := n.Description.String
	if route.Legacy {
		body = stripRecipientPrefix(body)
	}

	msg := email.Message{
		From:    s.opts.From,
		To:      []string{route.Recipient},
		Subject: s.title(n),
		HTML:    email.RenderHTML(body),
	}

	if _, err := s.mailer.Send(ctx, msg); err != nil {
		return delivery{}, err
	}

	return delivery{emailsSent: 1}, nil
}

func (s *Service) broadcastInApp(ctx context.Context, n model.QueuedNotification) (delivery, error) {
	var ids []uuid.UUID
	err := retry.Do(func() error {
		var err error
		ids, err = s.users.ListIDs(ctx)
		return err
	}, s.opts.Retry)
	if err != nil {
		return delivery{}, err
	}

	if len(ids) == 0 {
		return delivery{}, nil
	}

	entries := make([]model.InAppNotification, 0, len(ids))
	for _, id := range ids {
		entries = append(entries, s.inAppEntry(n, id))
	}

	created, err := s.store.InsertInApp(ctx, entries)
	if err != nil {
		return delivery{}, err
	}

	return delivery{inAppCreated: created}, nil
}

func (s *Service) singleInApp(ctx context.Context, n model.QueuedNotification, route model.Route) (delivery, error) {
	if route.RecipientUserID == uuid.Nil {
		return delivery{}, ErrNotImplemented
	}

	created, err := s.store.InsertInApp(ctx, []model.InAppNotification{s.inAppEntry(n, route.RecipientUserID)})
	if err != nil {
		return delivery{}, err
	}

	return delivery{inAppCreated: created}, nil
}

func (s *Service) inAppEntry(n model.QueuedNotification, userID uuid.UUID) model.InAppNotification {
	return model.InAppNotification{
		UserID:  userID,
		Title:   s.title(n),
		Message: n.Description.String,
		Type:    inAppType,
		IsRead:  false,
	}
}
