package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/aussiebroadwan/rollcall/internal/auth/domain"
	"github.com/aussiebroadwan/rollcall/internal/auth/metrics"
	"github.com/aussiebroadwan/rollcall/internal/auth/store"
	"github.com/aussiebroadwan/rollcall/pkg/cryptox"
	"github.com/aussiebroadwan/rollcall/pkg/idx"
	"github.com/aussiebroadwan/rollcall/pkg/jwtx"
	"github.com/aussiebroadwan/rollcall/pkg/slogx"
)

const (
	msgInvalidLogin   = "invalid email or password"
	msgInvalidRefresh = "invalid or expired refresh token"
)

// Logout outcomes.
const (
	MsgAlreadyLoggedOut = "Already logged out"
	MsgLoggedOut        = "Logged out successfully"
)

// CreateAccountInput is the founding user and their organisation.
type CreateAccountInput struct {
	Name              string
	Email             string
	Password          string
	OrganisationName  string
	OrganisationEmail string
}

// AuthService issues, rotates and revokes credentials.
type AuthService struct {
	Store        store.Store
	Sessions     store.Sessions
	Credentials  *jwtx.CredentialSigner
	Hasher       *cryptox.Hasher
	Activity     *ActivityService
	Metrics      *metrics.Metrics
	StoreTimeout time.Duration

	dummyOnce sync.Once
	dummyHash string
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func principal(u domain.User) jwtx.Principal {
	return jwtx.Principal{
		Sub:            u.ID,
		Email:          u.Email,
		Name:           u.Name,
		IsAdmin:        u.IsAdmin,
		IsSuperUser:    u.IsSuperUser,
		OrganisationID: u.OrganisationID,
	}
}

// CreateAccount registers a founding user together with their organisation.
// The user is admin and super user of the new organisation.
func (s *AuthService) CreateAccount(ctx context.Context, in CreateAccountInput) (sess domain.Session, err error) {
	defer func() { s.Metrics.AuthEvent("create_account", err) }()
	log := slogx.FromContext(ctx)

	in.Name = strings.TrimSpace(in.Name)
	in.OrganisationName = strings.TrimSpace(in.OrganisationName)
	in.Email = normalizeEmail(in.Email)
	in.OrganisationEmail = normalizeEmail(in.OrganisationEmail)
	if in.Name == "" || in.Email == "" || in.Password == "" || in.OrganisationName == "" || in.OrganisationEmail == "" {
		return domain.Session{}, badRequest("name, email, password and organisation details are required")
	}

	rctx, cancel := storeCtx(ctx, s.StoreTimeout)
	_, err = s.Store.Users().GetUserByEmail(rctx, in.Email)
	cancel()
	if err == nil {
		return domain.Session{}, conflict("email already exists")
	}
	if !errors.Is(err, store.ErrNotFound) {
		log.Error("failed to look up email", slog.Any("error", err))
		return domain.Session{}, internal("failed to create account", err)
	}

	hash, err := s.Hasher.Hash(in.Password)
	if err != nil {
		log.Error("failed to hash password", slog.Any("error", err))
		return domain.Session{}, internal("failed to create account", err)
	}

	now := time.Now().UTC()
	user := domain.User{
		ID:           idx.New().String(),
		Name:         in.Name,
		Email:        in.Email,
		PasswordHash: hash,
		IsAdmin:      true,
		IsSuperUser:  true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	org := domain.Organisation{
		ID:        idx.New().String(),
		Name:      in.OrganisationName,
		Email:     in.OrganisationEmail,
		CreatedBy: user.ID,
		CreatedAt: now,
		UpdatedAt: now,
	}

	wctx, cancel := writeCtx(ctx, s.StoreTimeout)
	defer cancel()
	err = s.Store.WithTx(wctx, func(tx store.Tx) error {
		if err := tx.Users().CreateUser(wctx, user); err != nil {
			if errors.Is(err, store.ErrAlreadyExists) {
				return conflict("email already exists")
			}
			return err
		}
		if err := tx.Organisations().CreateOrganisation(wctx, org); err != nil {
			if errors.Is(err, store.ErrAlreadyExists) {
				return conflict("organisation email already exists")
			}
			return err
		}
		return tx.Users().SetOrganisation(wctx, user.ID, org.ID)
	})
	if err != nil {
		if !errors.Is(err, ErrConflict) {
			log.Error("failed to create account", slog.Any("error", err))
		}
		return domain.Session{}, asServiceError("failed to create account", err)
	}
	user.OrganisationID = org.ID

	pair, err := s.issue(ctx, user)
	if err != nil {
		return domain.Session{}, err
	}

	s.Activity.Record(ctx, domain.ActivityJoined, user.ID, org.ID, user.Name+" joined the organisation")

	log.Info("account created",
		slog.String("user_id", user.ID),
		slog.String("organisation_id", org.ID),
	)
	return domain.Session{TokenPair: pair, User: user}, nil
}

// Login authenticates an admin or super user by email and password. The
// failure message is the same for an unknown email and a wrong password.
func (s *AuthService) Login(ctx context.Context, email, password string) (sess domain.Session, err error) {
	defer func() { s.Metrics.AuthEvent("login", err) }()
	log := slogx.FromContext(ctx)

	rctx, cancel := storeCtx(ctx, s.StoreTimeout)
	user, err := s.Store.Users().GetUserByEmail(rctx, normalizeEmail(email))
	cancel()
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			// Spend the same hashing time as a real check.
			_ = s.Hasher.Verify(password, s.dummy())
			return domain.Session{}, unauthorized(msgInvalidLogin)
		}
		log.Error("failed to look up user", slog.Any("error", err))
		return domain.Session{}, internal("failed to log in", err)
	}

	if err := s.Hasher.Verify(password, user.PasswordHash); err != nil {
		if !errors.Is(err, cryptox.ErrPasswordMismatch) {
			log.Error("stored password hash is unreadable",
				slog.String("user_id", user.ID),
				slog.Any("error", err),
			)
		}
		return domain.Session{}, unauthorized(msgInvalidLogin)
	}

	if !user.IsAdmin && !user.IsSuperUser {
		log.Info("login refused for member without admin rights", slog.String("user_id", user.ID))
		return domain.Session{}, forbidden("you do not have sufficient permissions to log in")
	}

	pair, err := s.issue(ctx, user)
	if err != nil {
		return domain.Session{}, err
	}
	return domain.Session{TokenPair: pair, User: user}, nil
}

// Refresh rotates a refresh token. The user is re-read first so a failing
// store leaves the session intact, then the presented session is consumed
// before new tokens are minted, so replaying a token fails.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (pair domain.TokenPair, err error) {
	defer func() { s.Metrics.AuthEvent("refresh", err) }()
	log := slogx.FromContext(ctx)

	if refreshToken == "" {
		return domain.TokenPair{}, unauthorized("missing refresh token")
	}

	claims, err := s.Credentials.Verify(refreshToken)
	if err != nil {
		return domain.TokenPair{}, unauthorized(msgInvalidRefresh)
	}
	if claims.Type != jwtx.TypeRefresh || claims.ID == "" || claims.Subject == "" {
		return domain.TokenPair{}, unauthorized("invalid token type")
	}

	// Role changes and deletions take effect on rotation.
	rctx, cancel := storeCtx(ctx, s.StoreTimeout)
	user, err := s.Store.Users().GetUserByID(rctx, claims.Subject)
	cancel()
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			wctx, cancel := writeCtx(ctx, s.StoreTimeout)
			_ = s.Sessions.Revoke(wctx, claims.Subject, claims.ID)
			cancel()
			return domain.TokenPair{}, unauthorized("account no longer exists")
		}
		log.Error("failed to load user for refresh", slog.Any("error", err))
		return domain.TokenPair{}, internal("failed to refresh session", err)
	}

	wctx, cancel := writeCtx(ctx, s.StoreTimeout)
	consumed, err := s.Sessions.Consume(wctx, claims.Subject, claims.ID)
	cancel()
	if err != nil {
		log.Error("failed to consume refresh session", slog.Any("error", err))
		return domain.TokenPair{}, internal("failed to refresh session", err)
	}
	if !consumed {
		log.Warn("refresh token replayed or revoked", slog.String("user_id", claims.Subject))
		return domain.TokenPair{}, unauthorized("refresh token revoked")
	}
	s.Metrics.SessionsRevoked(1)

	return s.issue(ctx, user)
}

// Logout revokes the session of a refresh token. It never fails: a missing,
// expired or foreign token is simply reported as logged out.
func (s *AuthService) Logout(ctx context.Context, refreshToken string) string {
	if refreshToken == "" {
		return MsgAlreadyLoggedOut
	}

	claims, ok := s.Credentials.Decode(refreshToken)
	if !ok || claims.ID == "" || claims.Subject == "" {
		return MsgLoggedOut
	}

	wctx, cancel := writeCtx(ctx, s.StoreTimeout)
	defer cancel()
	if err := s.Sessions.Revoke(wctx, claims.Subject, claims.ID); err != nil {
		slogx.FromContext(ctx).Warn("failed to revoke refresh session", slog.Any("error", err))
	}
	return MsgLoggedOut
}

// LogoutAllDevices revokes every live session of userID and reports how many.
func (s *AuthService) LogoutAllDevices(ctx context.Context, userID string) (int, error) {
	wctx, cancel := writeCtx(ctx, s.StoreTimeout)
	defer cancel()

	n, err := s.Sessions.RevokeAll(wctx, userID)
	if err != nil {
		slogx.FromContext(ctx).Error("failed to revoke sessions",
			slog.String("user_id", userID),
			slog.Any("error", err),
		)
		return 0, internal("failed to log out of all devices", err)
	}
	s.Metrics.SessionsRevoked(n)
	return n, nil
}

// ValidateToken verifies an access token and returns the identity it carries.
func (s *AuthService) ValidateToken(_ context.Context, accessToken string) (domain.Identity, error) {
	if accessToken == "" {
		return domain.Identity{}, unauthorized("missing token")
	}
	claims, err := s.Credentials.Verify(accessToken)
	if err != nil {
		return domain.Identity{}, unauthorized("invalid or expired token")
	}
	if claims.Type != jwtx.TypeAccess {
		return domain.Identity{}, unauthorized("invalid token type")
	}

	p := claims.Principal()
	return domain.Identity{
		Sub:            p.Sub,
		Email:          p.Email,
		Name:           p.Name,
		IsAdmin:        p.IsAdmin,
		IsSuperUser:    p.IsSuperUser,
		OrganisationID: p.OrganisationID,
	}, nil
}

// Me returns the stored user behind an authenticated identity.
func (s *AuthService) Me(ctx context.Context, userID string) (domain.User, error) {
	rctx, cancel := storeCtx(ctx, s.StoreTimeout)
	defer cancel()

	u, err := s.Store.Users().GetUserByID(rctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.User{}, notFound("user not found")
		}
		return domain.User{}, internal("failed to load user", err)
	}
	return u, nil
}

// ChangePassword replaces a user's password after checking the current one,
// then revokes all of their sessions.
func (s *AuthService) ChangePassword(ctx context.Context, userID, current, next string) error {
	log := slogx.FromContext(ctx)

	user, err := s.Me(ctx, userID)
	if err != nil {
		return err
	}

	if err := s.Hasher.Verify(current, user.PasswordHash); err != nil {
		return badRequest("current password is incorrect")
	}
	if next == "" {
		return badRequest("new password is required")
	}
	if next == current {
		return badRequest("new password must be different from current password")
	}

	hash, err := s.Hasher.Hash(next)
	if err != nil {
		return internal("failed to change password", err)
	}

	wctx, cancel := writeCtx(ctx, s.StoreTimeout)
	err = s.Store.Users().UpdatePasswordHash(wctx, userID, hash)
	cancel()
	if err != nil {
		log.Error("failed to update password", slog.Any("error", err))
		return internal("failed to change password", err)
	}

	if _, err := s.LogoutAllDevices(ctx, userID); err != nil {
		log.Warn("password changed but sessions were not revoked", slog.String("user_id", userID))
	}

	log.Info("password changed", slog.String("user_id", userID))
	return nil
}

// issue signs an access and refresh token for u and registers the refresh
// session.
func (s *AuthService) issue(ctx context.Context, u domain.User) (domain.TokenPair, error) {
	log := slogx.FromContext(ctx)

	access, err := s.Credentials.SignAccess(principal(u))
	if err != nil {
		log.Error("failed to sign access token", slog.Any("error", err))
		return domain.TokenPair{}, internal("failed to issue tokens", err)
	}
	refresh, jti, err := s.Credentials.SignRefresh(u.ID)
	if err != nil {
		log.Error("failed to sign refresh token", slog.Any("error", err))
		return domain.TokenPair{}, internal("failed to issue tokens", err)
	}

	wctx, cancel := writeCtx(ctx, s.StoreTimeout)
	defer cancel()
	if err := s.Sessions.Create(wctx, u.ID, jti, s.Credentials.RefreshTTL()); err != nil {
		log.Error("failed to store refresh session", slog.Any("error", err))
		return domain.TokenPair{}, internal("failed to issue tokens", err)
	}

	return domain.TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

// dummy returns a valid hash to verify against when the user is unknown.
func (s *AuthService) dummy() string {
	s.dummyOnce.Do(func() {
		s.dummyHash, _ = s.Hasher.Hash(idx.New().String())
	})
	return s.dummyHash
}
