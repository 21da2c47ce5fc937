package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/aussiebroadwan/rollcall/internal/auth/domain"
	"github.com/aussiebroadwan/rollcall/internal/auth/mail"
	"github.com/aussiebroadwan/rollcall/internal/auth/metrics"
	"github.com/aussiebroadwan/rollcall/internal/auth/store"
	"github.com/aussiebroadwan/rollcall/pkg/cryptox"
	"github.com/aussiebroadwan/rollcall/pkg/idx"
	"github.com/aussiebroadwan/rollcall/pkg/slogx"
)

// DefaultInviteExpiry is how long an invite token stays redeemable.
const DefaultInviteExpiry = 7 * 24 * time.Hour

const msgInviteUnavailable = "invite is invalid, expired, or already used"

type SendInviteInput struct {
	InvitedBy      string
	OrganisationID string
	Name           string
	Email          string
}

// AcceptInviteInput carries the new member's details. Name and Email
// default to the ones the invite was sent with.
type AcceptInviteInput struct {
	Token    string
	Name     string
	Email    string
	Password string
}

// InviteService issues, resends and redeems single-use invite tokens.
type InviteService struct {
	Store        store.Store
	Hasher       *cryptox.Hasher
	Mailer       mail.Sender
	Activity     *ActivityService
	Metrics      *metrics.Metrics
	FrontendURL  string
	Expiry       time.Duration
	StoreTimeout time.Duration
}

func (s *InviteService) expiry() time.Duration {
	if s.Expiry <= 0 {
		return DefaultInviteExpiry
	}
	return s.Expiry
}

// Send creates an invite and emails its redemption link. At most one
// active invite may exist per address and organisation. An email failure is
// reported but leaves the invite in place so it can be resent.
func (s *InviteService) Send(ctx context.Context, in SendInviteInput) (inv domain.Invite, err error) {
	defer func() { s.Metrics.InviteEvent("send", err) }()
	log := slogx.FromContext(ctx)

	in.Name = strings.TrimSpace(in.Name)
	in.Email = normalizeEmail(in.Email)
	if in.Name == "" || in.Email == "" {
		return domain.Invite{}, badRequest("name and email are required")
	}
	if in.OrganisationID == "" {
		return domain.Invite{}, badRequest("inviter does not belong to an organisation")
	}

	raw, hash, err := cryptox.NewSecret()
	if err != nil {
		log.Error("failed to generate invite token", slog.Any("error", err))
		return domain.Invite{}, internal("failed to create invite", err)
	}

	now := time.Now()
	inv = domain.Invite{
		ID:             idx.New().String(),
		InvitedBy:      in.InvitedBy,
		Name:           in.Name,
		Email:          in.Email,
		TokenHash:      hash,
		OrganisationID: in.OrganisationID,
		ExpiresAt:      now.Add(s.expiry()),
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	wctx, cancel := writeCtx(ctx, s.StoreTimeout)
	defer cancel()
	err = s.Store.WithTx(wctx, func(tx store.Tx) error {
		// An expired but unused invite still holds the unique slot.
		if err := tx.Invites().PurgeExpiredInvite(wctx, in.OrganisationID, in.Email, now); err != nil {
			return err
		}

		_, err := tx.Invites().GetActiveInvite(wctx, in.OrganisationID, in.Email, now)
		if err == nil {
			return badRequest("active invite already exists")
		}
		if !errors.Is(err, store.ErrNotFound) {
			return err
		}

		if err := tx.Invites().CreateInvite(wctx, inv); err != nil {
			if errors.Is(err, store.ErrAlreadyExists) {
				return badRequest("active invite already exists")
			}
			return err
		}
		return nil
	})
	if err != nil {
		if !errors.Is(err, ErrBadRequest) {
			log.Error("failed to create invite", slog.Any("error", err))
		}
		return domain.Invite{}, asServiceError("failed to create invite", err)
	}

	s.Activity.Record(ctx, domain.ActivityInviteSent, in.InvitedBy, in.OrganisationID, "Invite sent to "+in.Email)

	if err := s.deliver(ctx, inv, raw, false); err != nil {
		return domain.Invite{}, err
	}

	log.Info("invite sent",
		slog.String("invite_id", inv.ID),
		slog.String("organisation_id", inv.OrganisationID),
	)
	return inv, nil
}

// deliver emails the redemption link for raw.
func (s *InviteService) deliver(ctx context.Context, inv domain.Invite, raw string, resent bool) error {
	log := slogx.FromContext(ctx)

	rctx, cancel := storeCtx(ctx, s.StoreTimeout)
	org, err := s.Store.Organisations().GetOrganisationByID(rctx, inv.OrganisationID)
	cancel()
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return notFound("organisation not found")
		}
		return internal("failed to load organisation", err)
	}

	msg := mail.InviteMessage(inv.Email, inv.Name, org.Name, mail.InviteLink(s.FrontendURL, raw), inv.ExpiresAt, resent)
	if err := s.Mailer.Send(ctx, msg); err != nil {
		log.Error("failed to send invite email",
			slog.String("invite_id", inv.ID),
			slog.Any("error", err),
		)
		if resent {
			return internal("failed to resend invite email", err)
		}
		return internal("failed to send invite email", err)
	}
	return nil
}

// FindByToken resolves a raw invite token. It fails with NotFound for an
// unknown token, BadRequest once used and Conflict after expiry.
func (s *InviteService) FindByToken(ctx context.Context, raw string) (domain.Invite, error) {
	if raw == "" {
		return domain.Invite{}, notFound("invite not found")
	}

	rctx, cancel := storeCtx(ctx, s.StoreTimeout)
	defer cancel()

	inv, err := s.Store.Invites().GetInviteByTokenHash(rctx, cryptox.Fingerprint(raw))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.Invite{}, notFound("invite not found")
		}
		slogx.FromContext(ctx).Error("failed to look up invite", slog.Any("error", err))
		return domain.Invite{}, internal("failed to look up invite", err)
	}

	if inv.Used {
		return domain.Invite{}, badRequest("invite already used")
	}
	if inv.Expired(time.Now()) {
		return domain.Invite{}, conflict("invite expired")
	}
	return inv, nil
}

// Accept redeems an invite token and creates the member it was issued for.
// Marking the invite used and creating the user share one transaction, the
// mark running first as a compare-and-swap: of two concurrent redemptions
// exactly one passes it, and a failed insert leaves the invite redeemable.
func (s *InviteService) Accept(ctx context.Context, in AcceptInviteInput) (user domain.User, err error) {
	defer func() { s.Metrics.InviteEvent("accept", err) }()
	log := slogx.FromContext(ctx)

	inv, err := s.FindByToken(ctx, in.Token)
	if err != nil {
		return domain.User{}, err
	}

	email := normalizeEmail(in.Email)
	if email == "" {
		email = inv.Email
	}
	if email != inv.Email {
		return domain.User{}, badRequest("email does not match the invitation")
	}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		name = inv.Name
	}
	if in.Password == "" {
		return domain.User{}, badRequest("password is required")
	}

	hash, err := s.Hasher.Hash(in.Password)
	if err != nil {
		log.Error("failed to hash password", slog.Any("error", err))
		return domain.User{}, internal("failed to accept invite", err)
	}

	user = domain.User{
		ID:             idx.New().String(),
		Name:           name,
		Email:          email,
		PasswordHash:   hash,
		OrganisationID: inv.OrganisationID,
		CreatedAt:      time.Now().UTC(),
	}
	user.UpdatedAt = user.CreatedAt

	wctx, cancel := writeCtx(ctx, s.StoreTimeout)
	defer cancel()
	err = s.Store.WithTx(wctx, func(tx store.Tx) error {
		if err := tx.Invites().MarkInviteUsed(wctx, inv.ID, inv.OrganisationID, user.ID, time.Now()); err != nil {
			if errors.Is(err, store.ErrConditionFailed) {
				return badRequest(msgInviteUnavailable)
			}
			return err
		}
		if err := tx.Users().CreateUser(wctx, user); err != nil {
			if errors.Is(err, store.ErrAlreadyExists) {
				return conflict("email already exists")
			}
			return err
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrBadRequest) {
			log.Warn("invite redemption lost the race", slog.String("invite_id", inv.ID))
		} else if !errors.Is(err, ErrConflict) {
			log.Error("failed to accept invite", slog.Any("error", err))
		}
		return domain.User{}, asServiceError("failed to accept invite", err)
	}

	s.Activity.Record(ctx, domain.ActivityJoined, user.ID, user.OrganisationID, user.Name+" joined the organisation")

	log.Info("invite accepted",
		slog.String("invite_id", inv.ID),
		slog.String("user_id", user.ID),
		slog.String("organisation_id", user.OrganisationID),
	)
	return user, nil
}

// Resend rotates an unused invite's token and expiry and emails the new
// link. The previous token stops working.
func (s *InviteService) Resend(ctx context.Context, actorID, organisationID, inviteID string) (inv domain.Invite, err error) {
	defer func() { s.Metrics.InviteEvent("resend", err) }()
	log := slogx.FromContext(ctx)

	rctx, cancel := storeCtx(ctx, s.StoreTimeout)
	inv, err = s.Store.Invites().GetInviteByID(rctx, organisationID, inviteID)
	cancel()
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.Invite{}, notFound("invite not found")
		}
		return domain.Invite{}, internal("failed to look up invite", err)
	}
	if inv.Used {
		return domain.Invite{}, badRequest("invite already used")
	}

	raw, hash, err := cryptox.NewSecret()
	if err != nil {
		return domain.Invite{}, internal("failed to resend invite", err)
	}
	inv.TokenHash = hash
	inv.ExpiresAt = time.Now().Add(s.expiry())

	wctx, cancel := writeCtx(ctx, s.StoreTimeout)
	err = s.Store.Invites().RotateInviteToken(wctx, inv.ID, organisationID, hash, inv.ExpiresAt)
	cancel()
	if err != nil {
		if errors.Is(err, store.ErrConditionFailed) {
			return domain.Invite{}, badRequest("invite already used")
		}
		log.Error("failed to rotate invite token", slog.Any("error", err))
		return domain.Invite{}, internal("failed to resend invite", err)
	}

	if err := s.deliver(ctx, inv, raw, true); err != nil {
		return domain.Invite{}, err
	}

	s.Activity.Record(ctx, domain.ActivityInviteResent, actorID, organisationID, "Invite resent to "+inv.Email)

	log.Info("invite resent", slog.String("invite_id", inv.ID))
	return inv, nil
}

// Pending lists unused, unexpired invites of an organisation.
func (s *InviteService) Pending(ctx context.Context, organisationID string) ([]domain.Invite, error) {
	rctx, cancel := storeCtx(ctx, s.StoreTimeout)
	defer cancel()

	out, err := s.Store.Invites().ListPending(rctx, organisationID, time.Now())
	if err != nil {
		return nil, internal("failed to list invites", err)
	}
	return out, nil
}

// Accepted lists redeemed invites of an organisation.
func (s *InviteService) Accepted(ctx context.Context, organisationID string) ([]domain.Invite, error) {
	rctx, cancel := storeCtx(ctx, s.StoreTimeout)
	defer cancel()

	out, err := s.Store.Invites().ListAccepted(rctx, organisationID)
	if err != nil {
		return nil, internal("failed to list invites", err)
	}
	return out, nil
}
