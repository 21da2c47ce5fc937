package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/aussiebroadwan/rollcall/internal/auth/domain"
	"github.com/aussiebroadwan/rollcall/internal/auth/store"
	"github.com/aussiebroadwan/rollcall/pkg/idx"
	"github.com/aussiebroadwan/rollcall/pkg/slogx"
)

const (
	DefaultPageLimit = 20
	MaxPageLimit     = 100
)

// NewPage validates list paging input. A zero page or limit takes the default.
func NewPage(page, limit int) (store.Page, error) {
	if page == 0 {
		page = 1
	}
	if limit == 0 {
		limit = DefaultPageLimit
	}
	if page < 1 {
		return store.Page{}, badRequest("page must be at least 1")
	}
	if limit < 1 || limit > MaxPageLimit {
		return store.Page{}, badRequest("limit must be between 1 and 100")
	}
	return store.Page{Page: page, Limit: limit}, nil
}

// ActivityService appends to and reads an organisation's activity log.
type ActivityService struct {
	Store        store.Store
	StoreTimeout time.Duration
}

// Record appends an entry. It never fails the caller: errors are logged and
// dropped.
func (s *ActivityService) Record(
	ctx context.Context,
	kind domain.ActivityKind,
	userID, organisationID, description string,
) {
	if s == nil || organisationID == "" {
		return
	}
	log := slogx.FromContext(ctx)

	ctx, cancel := writeCtx(ctx, s.StoreTimeout)
	defer cancel()

	a := domain.Activity{
		ID:             idx.New().String(),
		Kind:           kind,
		Title:          kind.Title(),
		Description:    description,
		UserID:         userID,
		OrganisationID: organisationID,
		CreatedAt:      time.Now(),
	}
	if err := s.Store.Activities().CreateActivity(ctx, a); err != nil {
		log.Warn("failed to record activity",
			slog.String("kind", string(kind)),
			slog.String("organisation_id", organisationID),
			slog.Any("error", err),
		)
	}
}

// List returns an organisation's log, newest first.
func (s *ActivityService) List(ctx context.Context, organisationID string, page store.Page) ([]domain.Activity, error) {
	ctx, cancel := storeCtx(ctx, s.StoreTimeout)
	defer cancel()

	out, err := s.Store.Activities().ListActivities(ctx, organisationID, page)
	if err != nil {
		slogx.FromContext(ctx).Error("failed to list activities", slog.Any("error", err))
		return nil, internal("failed to list activity", err)
	}
	return out, nil
}
