package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/aussiebroadwan/rollcall/internal/auth/domain"
	"github.com/aussiebroadwan/rollcall/internal/auth/metrics"
	"github.com/aussiebroadwan/rollcall/internal/auth/store"
	"github.com/aussiebroadwan/rollcall/pkg/slogx"
)

// UserService manages the members of the caller's organisation.
type UserService struct {
	Store        store.Store
	Sessions     store.Sessions
	Activity     *ActivityService
	Metrics      *metrics.Metrics
	StoreTimeout time.Duration
}

// member loads userID, hiding users of other organisations.
func (s *UserService) member(ctx context.Context, organisationID, userID string) (domain.User, error) {
	rctx, cancel := storeCtx(ctx, s.StoreTimeout)
	defer cancel()

	u, err := s.Store.Users().GetUserByID(rctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.User{}, notFound("employee not found")
		}
		return domain.User{}, internal("failed to load employee", err)
	}
	if organisationID == "" || u.OrganisationID != organisationID {
		return domain.User{}, notFound("employee not found")
	}
	return u, nil
}

// Employees lists the users of an organisation.
func (s *UserService) Employees(ctx context.Context, organisationID string, page store.Page) ([]domain.User, error) {
	rctx, cancel := storeCtx(ctx, s.StoreTimeout)
	defer cancel()

	out, err := s.Store.Users().ListByOrganisation(rctx, organisationID, page)
	if err != nil {
		slogx.FromContext(ctx).Error("failed to list employees", slog.Any("error", err))
		return nil, internal("failed to list employees", err)
	}
	return out, nil
}

// TotalEmployees counts the users of an organisation.
func (s *UserService) TotalEmployees(ctx context.Context, organisationID string) (int, error) {
	rctx, cancel := storeCtx(ctx, s.StoreTimeout)
	defer cancel()

	n, err := s.Store.Users().CountByOrganisation(rctx, organisationID)
	if err != nil {
		return 0, internal("failed to count employees", err)
	}
	return n, nil
}

// DeleteEmployee removes a member of the actor's organisation and revokes
// their sessions.
func (s *UserService) DeleteEmployee(ctx context.Context, actor domain.Identity, userID string) error {
	log := slogx.FromContext(ctx)

	if userID == actor.Sub {
		return badRequest("you cannot remove yourself")
	}

	u, err := s.member(ctx, actor.OrganisationID, userID)
	if err != nil {
		return err
	}

	wctx, cancel := writeCtx(ctx, s.StoreTimeout)
	err = s.Store.Users().DeleteUser(wctx, actor.OrganisationID, userID)
	cancel()
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return notFound("employee not found")
		}
		log.Error("failed to delete employee", slog.Any("error", err))
		return internal("failed to delete employee", err)
	}

	wctx, cancel = writeCtx(ctx, s.StoreTimeout)
	n, err := s.Sessions.RevokeAll(wctx, userID)
	cancel()
	if err != nil {
		log.Warn("employee deleted but sessions were not revoked",
			slog.String("user_id", userID),
			slog.Any("error", err),
		)
	}
	s.Metrics.SessionsRevoked(n)

	s.Activity.Record(ctx, domain.ActivityUserRemoved, actor.Sub, actor.OrganisationID, u.Name+" removed from the organisation")

	log.Info("employee deleted", slog.String("user_id", userID))
	return nil
}

// UpdateRole grants or withdraws admin rights of a member of the actor's
// organisation. Any admin may promote; only super users may demote.
func (s *UserService) UpdateRole(ctx context.Context, actor domain.Identity, userID string, isAdmin bool) (domain.User, error) {
	if !isAdmin && !actor.IsSuperUser {
		return domain.User{}, forbidden("only super users can withdraw admin rights")
	}

	u, err := s.member(ctx, actor.OrganisationID, userID)
	if err != nil {
		return domain.User{}, err
	}

	wctx, cancel := writeCtx(ctx, s.StoreTimeout)
	err = s.Store.Users().SetAdmin(wctx, actor.OrganisationID, userID, isAdmin)
	cancel()
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.User{}, notFound("employee not found")
		}
		slogx.FromContext(ctx).Error("failed to update role", slog.Any("error", err))
		return domain.User{}, internal("failed to update role", err)
	}
	u.IsAdmin = isAdmin

	role := "Member"
	if isAdmin {
		role = "Admin"
	}
	s.Activity.Record(ctx, domain.ActivityRoleUpgrade, actor.Sub, actor.OrganisationID, u.Name+" role changed to "+role)

	return u, nil
}

// OrganisationService reads and edits organisations.
type OrganisationService struct {
	Store        store.Store
	Activity     *ActivityService
	StoreTimeout time.Duration
}

// Current returns the caller's organisation.
func (s *OrganisationService) Current(ctx context.Context, organisationID string) (domain.Organisation, error) {
	if organisationID == "" {
		return domain.Organisation{}, notFound("organisation not found")
	}

	rctx, cancel := storeCtx(ctx, s.StoreTimeout)
	defer cancel()

	org, err := s.Store.Organisations().GetOrganisationByID(rctx, organisationID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.Organisation{}, notFound("organisation not found")
		}
		return domain.Organisation{}, internal("failed to load organisation", err)
	}
	return org, nil
}

// UpdateOrganisationInput sets the organisation's display name and contact
// email.
type UpdateOrganisationInput struct {
	Name  string
	Email string
}

// Update renames the actor's organisation and changes its email. The email
// is normalised and must not belong to another organisation.
func (s *OrganisationService) Update(ctx context.Context, actor domain.Identity, in UpdateOrganisationInput) (domain.Organisation, error) {
	log := slogx.FromContext(ctx)

	in.Name = strings.TrimSpace(in.Name)
	in.Email = normalizeEmail(in.Email)
	if in.Name == "" || in.Email == "" {
		return domain.Organisation{}, badRequest("name and email are required")
	}
	if actor.OrganisationID == "" {
		return domain.Organisation{}, notFound("organisation not found")
	}

	wctx, cancel := writeCtx(ctx, s.StoreTimeout)
	err := s.Store.Organisations().UpdateOrganisation(wctx, actor.OrganisationID, in.Name, in.Email)
	cancel()
	if err != nil {
		switch {
		case errors.Is(err, store.ErrNotFound):
			return domain.Organisation{}, notFound("organisation not found")
		case errors.Is(err, store.ErrAlreadyExists):
			return domain.Organisation{}, conflict("organisation email already exists")
		}
		log.Error("failed to update organisation", slog.Any("error", err))
		return domain.Organisation{}, internal("failed to update organisation", err)
	}

	s.Activity.Record(ctx, domain.ActivityOrgUpdated, actor.Sub, actor.OrganisationID, "Organisation renamed to "+in.Name)
	log.Info("organisation updated", slog.String("organisation_id", actor.OrganisationID))

	return s.Current(ctx, actor.OrganisationID)
}
