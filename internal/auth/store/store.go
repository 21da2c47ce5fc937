package store

import (
	"context"
	"errors"
	"time"

	"github.com/aussiebroadwan/rollcall/internal/auth/domain"
)

var (
	ErrNotFound      = errors.New("store: not found")
	ErrAlreadyExists = errors.New("store: already exists")

	// ErrConditionFailed is returned by conditional updates whose predicate
	// matched no row (e.g. the invite was already used or has expired).
	ErrConditionFailed = errors.New("store: condition failed")
)

// Store is the root data access interface for identities, organisations,
// invites and activity. It exposes sub-repositories so a transaction can
// hand out the same repos bound to the transaction.
type Store interface {
	Users() Users
	Organisations() Organisations
	Invites() Invites
	Activities() Activities

	ApplyMigrations() error

	// Tx starts a read/write transaction and returns a Tx-scoped Store.
	// The caller MUST call Commit() or Rollback() on the returned Tx.
	Tx(ctx context.Context) (Tx, error)

	// WithTx executes fn within a transaction. If fn returns an error the
	// transaction is rolled back, otherwise it is committed.
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	// Close releases any underlying resources.
	Close() error

	// Ping verifies the database connection is still alive.
	Ping(ctx context.Context) error
}

// Tx is a transactional store. It embeds the same repos but adds Commit/Rollback.
type Tx interface {
	Store
	Commit() error
	Rollback() error
}

// Page selects a window of a list query. Page is 1-based.
type Page struct {
	Page  int
	Limit int
}

// Offset returns the number of rows to skip.
func (p Page) Offset() int {
	if p.Page < 1 {
		return 0
	}
	return (p.Page - 1) * p.Limit
}

type Users interface {
	// GetUserByID returns a user by id.
	GetUserByID(ctx context.Context, id string) (domain.User, error)

	// GetUserByEmail looks up a user by normalised email.
	GetUserByEmail(ctx context.Context, email string) (domain.User, error)

	// CreateUser inserts a new user. Duplicate email yields ErrAlreadyExists.
	CreateUser(ctx context.Context, u domain.User) error

	// SetOrganisation links a user to an organisation.
	SetOrganisation(ctx context.Context, userID, organisationID string) error

	// UpdatePasswordHash sets the password_hash (argon2) and bumps updated_at.
	UpdatePasswordHash(ctx context.Context, userID string, newHash string) error

	// SetAdmin flips is_admin for a user inside an organisation.
	SetAdmin(ctx context.Context, organisationID, userID string, isAdmin bool) error

	// DeleteUser removes a user inside an organisation.
	DeleteUser(ctx context.Context, organisationID, userID string) error

	ListByOrganisation(ctx context.Context, organisationID string, page Page) ([]domain.User, error)
	CountByOrganisation(ctx context.Context, organisationID string) (int, error)
}

type Organisations interface {
	// CreateOrganisation inserts a new organisation. Duplicate email yields ErrAlreadyExists.
	CreateOrganisation(ctx context.Context, o domain.Organisation) error

	// GetOrganisationByID returns an organisation by id.
	GetOrganisationByID(ctx context.Context, id string) (domain.Organisation, error)

	// UpdateOrganisation sets name and email. Duplicate email yields
	// ErrAlreadyExists, an unknown id ErrNotFound.
	UpdateOrganisation(ctx context.Context, id, name, email string) error
}

type Invites interface {
	// CreateInvite writes a new invite. A second unused invite for the same
	// (email, organisation) yields ErrAlreadyExists.
	CreateInvite(ctx context.Context, inv domain.Invite) error

	// GetInviteByID returns an invite scoped to an organisation.
	GetInviteByID(ctx context.Context, organisationID, id string) (domain.Invite, error)

	// GetInviteByTokenHash returns an invite by token fingerprint regardless
	// of its used/expired state.
	GetInviteByTokenHash(ctx context.Context, hash string) (domain.Invite, error)

	// GetActiveInvite returns the unused, unexpired invite for an email.
	GetActiveInvite(ctx context.Context, organisationID, email string, now time.Time) (domain.Invite, error)

	// PurgeExpiredInvite deletes an unused but expired invite for an email so
	// a fresh one can take its slot in the unique index.
	PurgeExpiredInvite(ctx context.Context, organisationID, email string, now time.Time) error

	// MarkInviteUsed sets used=1 only when the invite is still unused,
	// belongs to organisationID and has not expired at now. Otherwise it
	// returns ErrConditionFailed.
	MarkInviteUsed(ctx context.Context, inviteID, organisationID, usedBy string, now time.Time) error

	// RotateInviteToken replaces the token hash and expiry of an unused invite.
	RotateInviteToken(ctx context.Context, inviteID, organisationID, hash string, expiresAt time.Time) error

	ListPending(ctx context.Context, organisationID string, now time.Time) ([]domain.Invite, error)
	ListAccepted(ctx context.Context, organisationID string) ([]domain.Invite, error)

	// DeleteExpiredInvites removes unused invites past expiry and reports how many.
	DeleteExpiredInvites(ctx context.Context, now time.Time) (int64, error)
}

type Activities interface {
	// CreateActivity appends an entry to an organisation's activity log.
	CreateActivity(ctx context.Context, a domain.Activity) error

	// ListActivities returns an organisation's log, newest first.
	ListActivities(ctx context.Context, organisationID string, page Page) ([]domain.Activity, error)
}

// Sessions tracks live refresh sessions. A session is identified by the
// owning user and the refresh token's jti; its existence is the sole
// authority for whether the refresh token may still be used.
type Sessions interface {
	// Create registers a session that expires after ttl.
	Create(ctx context.Context, ownerID, jti string, ttl time.Duration) error

	// Exists reports whether the session is still live.
	Exists(ctx context.Context, ownerID, jti string) (bool, error)

	// Consume deletes the session and reports whether this call removed it.
	// Exactly one concurrent caller observes true.
	Consume(ctx context.Context, ownerID, jti string) (bool, error)

	// Revoke deletes the session if present.
	Revoke(ctx context.Context, ownerID, jti string) error

	// RevokeAll deletes every session of ownerID and returns how many were live.
	RevokeAll(ctx context.Context, ownerID string) (int, error)

	// Keys lists the live jtis of ownerID.
	Keys(ctx context.Context, ownerID string) ([]string, error)

	Ping(ctx context.Context) error
	Close() error
}
