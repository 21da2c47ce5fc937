package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/aussiebroadwan/rollcall/internal/auth/domain"
	"github.com/aussiebroadwan/rollcall/internal/auth/store"
)

const inviteColumns = `id, invited_by, name, email, token_hash, organisation_id, used, used_by, expires_at, created_at, updated_at`

type invitesRepo struct {
	db dbtx
}

func scanInvite(row interface{ Scan(...any) error }) (domain.Invite, error) {
	var (
		inv                             domain.Invite
		usedBy                          sql.NullString
		expiresAt, createdAt, updatedAt int64
	)
	err := row.Scan(
		&inv.ID,
		&inv.InvitedBy,
		&inv.Name,
		&inv.Email,
		&inv.TokenHash,
		&inv.OrganisationID,
		&inv.Used,
		&usedBy,
		&expiresAt,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return domain.Invite{}, err
	}
	inv.UsedBy = mapNullString(usedBy)
	inv.ExpiresAt = fromMillis(expiresAt)
	inv.CreatedAt = fromMillis(createdAt)
	inv.UpdatedAt = fromMillis(updatedAt)
	return inv, nil
}

func (r *invitesRepo) queryInvites(ctx context.Context, query string, args ...any) ([]domain.Invite, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Invite
	for rows.Next() {
		inv, err := scanInvite(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, inv)
	}
	return out, rows.Err()
}

func (r *invitesRepo) CreateInvite(ctx context.Context, inv domain.Invite) error {
	now := toMillis(time.Now())
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO invites (`+inviteColumns+`) VALUES (?, ?, ?, ?, ?, ?, 0, NULL, ?, ?, ?)`,
		inv.ID,
		inv.InvitedBy,
		inv.Name,
		inv.Email,
		inv.TokenHash,
		inv.OrganisationID,
		toMillis(inv.ExpiresAt),
		now,
		now,
	)
	return mapConstraint(err)
}

func (r *invitesRepo) GetInviteByID(ctx context.Context, organisationID, id string) (domain.Invite, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+inviteColumns+` FROM invites WHERE id = ? AND organisation_id = ?`,
		id, organisationID,
	)
	inv, err := scanInvite(row)
	if err != nil {
		return domain.Invite{}, mapNotFound(err)
	}
	return inv, nil
}

func (r *invitesRepo) GetInviteByTokenHash(ctx context.Context, hash string) (domain.Invite, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+inviteColumns+` FROM invites WHERE token_hash = ?`, hash,
	)
	inv, err := scanInvite(row)
	if err != nil {
		return domain.Invite{}, mapNotFound(err)
	}
	return inv, nil
}

func (r *invitesRepo) GetActiveInvite(
	ctx context.Context,
	organisationID, email string,
	now time.Time,
) (domain.Invite, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+inviteColumns+` FROM invites
		 WHERE organisation_id = ? AND email = ? AND used = 0 AND expires_at > ?`,
		organisationID, email, toMillis(now),
	)
	inv, err := scanInvite(row)
	if err != nil {
		return domain.Invite{}, mapNotFound(err)
	}
	return inv, nil
}

func (r *invitesRepo) PurgeExpiredInvite(
	ctx context.Context,
	organisationID, email string,
	now time.Time,
) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM invites WHERE organisation_id = ? AND email = ? AND used = 0 AND expires_at <= ?`,
		organisationID, email, toMillis(now),
	)
	return err
}

func (r *invitesRepo) MarkInviteUsed(
	ctx context.Context,
	inviteID, organisationID, usedBy string,
	now time.Time,
) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE invites SET used = 1, used_by = ?, updated_at = ?
		 WHERE id = ? AND organisation_id = ? AND used = 0 AND expires_at > ?`,
		mapStringNull(usedBy), toMillis(now), inviteID, organisationID, toMillis(now),
	)
	if err != nil {
		return err
	}
	return requireOne(res, store.ErrConditionFailed)
}

func (r *invitesRepo) RotateInviteToken(
	ctx context.Context,
	inviteID, organisationID, hash string,
	expiresAt time.Time,
) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE invites SET token_hash = ?, expires_at = ?, updated_at = ?
		 WHERE id = ? AND organisation_id = ? AND used = 0`,
		hash, toMillis(expiresAt), toMillis(time.Now()), inviteID, organisationID,
	)
	if err != nil {
		return mapConstraint(err)
	}
	return requireOne(res, store.ErrConditionFailed)
}

func (r *invitesRepo) ListPending(ctx context.Context, organisationID string, now time.Time) ([]domain.Invite, error) {
	return r.queryInvites(ctx,
		`SELECT `+inviteColumns+` FROM invites
		 WHERE organisation_id = ? AND used = 0 AND expires_at > ? ORDER BY id DESC`,
		organisationID, toMillis(now),
	)
}

func (r *invitesRepo) ListAccepted(ctx context.Context, organisationID string) ([]domain.Invite, error) {
	return r.queryInvites(ctx,
		`SELECT `+inviteColumns+` FROM invites
		 WHERE organisation_id = ? AND used = 1 ORDER BY updated_at DESC`,
		organisationID,
	)
}

func (r *invitesRepo) DeleteExpiredInvites(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM invites WHERE used = 0 AND expires_at <= ?`, toMillis(now),
	)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
