package sqlite

import (
	"context"
	"time"

	"github.com/aussiebroadwan/rollcall/internal/auth/domain"
	"github.com/aussiebroadwan/rollcall/internal/auth/store"
)

type organisationsRepo struct {
	db dbtx
}

func (r *organisationsRepo) CreateOrganisation(ctx context.Context, o domain.Organisation) error {
	now := toMillis(time.Now())
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO organisations (id, name, email, created_by, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		o.ID, o.Name, o.Email, o.CreatedBy, now, now,
	)
	return mapConstraint(err)
}

func (r *organisationsRepo) GetOrganisationByID(ctx context.Context, id string) (domain.Organisation, error) {
	var (
		o                    domain.Organisation
		createdAt, updatedAt int64
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT id, name, email, created_by, created_at, updated_at FROM organisations WHERE id = ?`, id,
	).Scan(&o.ID, &o.Name, &o.Email, &o.CreatedBy, &createdAt, &updatedAt)
	if err != nil {
		return domain.Organisation{}, mapNotFound(err)
	}
	o.CreatedAt = fromMillis(createdAt)
	o.UpdatedAt = fromMillis(updatedAt)
	return o, nil
}

func (r *organisationsRepo) UpdateOrganisation(ctx context.Context, id, name, email string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE organisations SET name = ?, email = ?, updated_at = ? WHERE id = ?`,
		name, email, toMillis(time.Now()), id,
	)
	if err != nil {
		return mapConstraint(err)
	}
	return requireOne(res, store.ErrNotFound)
}
