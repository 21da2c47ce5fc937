package sqlite

import (
	"context"

	"github.com/aussiebroadwan/rollcall/internal/auth/domain"
	"github.com/aussiebroadwan/rollcall/internal/auth/store"
)

type activitiesRepo struct {
	db dbtx
}

func (r *activitiesRepo) CreateActivity(ctx context.Context, a domain.Activity) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO activities (id, kind, title, description, user_id, organisation_id, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		a.ID, string(a.Kind), a.Title, a.Description, a.UserID, a.OrganisationID, toMillis(a.CreatedAt),
	)
	return mapConstraint(err)
}

func (r *activitiesRepo) ListActivities(
	ctx context.Context,
	organisationID string,
	page store.Page,
) ([]domain.Activity, error) {
	page = clampLimit(page)
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, kind, title, description, user_id, organisation_id, created_at
		 FROM activities WHERE organisation_id = ? ORDER BY id DESC LIMIT ? OFFSET ?`,
		organisationID, page.Limit, page.Offset(),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Activity
	for rows.Next() {
		var (
			a         domain.Activity
			kind      string
			createdAt int64
		)
		if err := rows.Scan(&a.ID, &kind, &a.Title, &a.Description, &a.UserID, &a.OrganisationID, &createdAt); err != nil {
			return nil, err
		}
		a.Kind = domain.ActivityKind(kind)
		a.CreatedAt = fromMillis(createdAt)
		out = append(out, a)
	}
	return out, rows.Err()
}
