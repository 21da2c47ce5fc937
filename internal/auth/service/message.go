package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/aussiebroadwan/rollcall/internal/auth/domain"
	"github.com/aussiebroadwan/rollcall/internal/auth/mail"
	"github.com/aussiebroadwan/rollcall/pkg/slogx"
)

// MessageService lets admins send free-form mail through the configured
// sender.
type MessageService struct {
	Mailer   mail.Sender
	Activity *ActivityService
}

type SendMessageInput struct {
	To      string
	Subject string
	Body    string
}

// Send delivers one message on behalf of actor. The recipient need not be a
// member of the organisation.
func (s *MessageService) Send(ctx context.Context, actor domain.Identity, in SendMessageInput) error {
	log := slogx.FromContext(ctx)

	msg := mail.Message{To: normalizeEmail(in.To), Subject: in.Subject, Body: in.Body}
	if err := s.Mailer.Send(ctx, msg); err != nil {
		if errors.Is(err, mail.ErrInvalidMessage) {
			return badRequest("invalid message")
		}
		log.Error("failed to send message", slog.Any("error", err))
		return internal("failed to send message", err)
	}

	s.Activity.Record(ctx, domain.ActivityMessageSent, actor.Sub, actor.OrganisationID, "Message sent to "+msg.To)
	log.Info("message sent", slog.String("to", msg.To))
	return nil
}
