package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/aussiebroadwan/rollcall/internal/auth/domain"
	"github.com/aussiebroadwan/rollcall/internal/auth/store"
)

const userColumns = `id, name, email, password_hash, organisation_id, is_admin, is_super_user, created_at, updated_at`

type usersRepo struct {
	db dbtx
}

func scanUser(row interface{ Scan(...any) error }) (domain.User, error) {
	var (
		u                    domain.User
		orgID                sql.NullString
		createdAt, updatedAt int64
	)
	err := row.Scan(
		&u.ID,
		&u.Name,
		&u.Email,
		&u.PasswordHash,
		&orgID,
		&u.IsAdmin,
		&u.IsSuperUser,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return domain.User{}, err
	}
	u.OrganisationID = mapNullString(orgID)
	u.CreatedAt = fromMillis(createdAt)
	u.UpdatedAt = fromMillis(updatedAt)
	return u, nil
}

func (r *usersRepo) GetUserByID(ctx context.Context, id string) (domain.User, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id)
	u, err := scanUser(row)
	if err != nil {
		return domain.User{}, mapNotFound(err)
	}
	return u, nil
}

func (r *usersRepo) GetUserByEmail(ctx context.Context, email string) (domain.User, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE email = ?`, email)
	u, err := scanUser(row)
	if err != nil {
		return domain.User{}, mapNotFound(err)
	}
	return u, nil
}

func (r *usersRepo) CreateUser(ctx context.Context, u domain.User) error {
	now := toMillis(time.Now())
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO users (`+userColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		u.ID,
		u.Name,
		u.Email,
		u.PasswordHash,
		mapStringNull(u.OrganisationID),
		u.IsAdmin,
		u.IsSuperUser,
		now,
		now,
	)
	return mapConstraint(err)
}

func (r *usersRepo) SetOrganisation(ctx context.Context, userID, organisationID string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE users SET organisation_id = ?, updated_at = ? WHERE id = ?`,
		organisationID, toMillis(time.Now()), userID,
	)
	if err != nil {
		return err
	}
	return requireOne(res, store.ErrNotFound)
}

func (r *usersRepo) UpdatePasswordHash(ctx context.Context, userID string, newHash string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE users SET password_hash = ?, updated_at = ? WHERE id = ?`,
		newHash, toMillis(time.Now()), userID,
	)
	if err != nil {
		return err
	}
	return requireOne(res, store.ErrNotFound)
}

func (r *usersRepo) SetAdmin(ctx context.Context, organisationID, userID string, isAdmin bool) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE users SET is_admin = ?, updated_at = ? WHERE id = ? AND organisation_id = ?`,
		isAdmin, toMillis(time.Now()), userID, organisationID,
	)
	if err != nil {
		return err
	}
	return requireOne(res, store.ErrNotFound)
}

func (r *usersRepo) DeleteUser(ctx context.Context, organisationID, userID string) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM users WHERE id = ? AND organisation_id = ?`,
		userID, organisationID,
	)
	if err != nil {
		return err
	}
	return requireOne(res, store.ErrNotFound)
}

func (r *usersRepo) ListByOrganisation(
	ctx context.Context,
	organisationID string,
	page store.Page,
) ([]domain.User, error) {
	page = clampLimit(page)
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE organisation_id = ? ORDER BY id LIMIT ? OFFSET ?`,
		organisationID, page.Limit, page.Offset(),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

func (r *usersRepo) CountByOrganisation(ctx context.Context, organisationID string) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM users WHERE organisation_id = ?`, organisationID,
	).Scan(&n)
	return n, err
}
