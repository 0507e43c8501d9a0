package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/collectdesk/pkg/domain/interfaces"
	"github.com/secmon-lab/collectdesk/pkg/domain/model"
	"github.com/secmon-lab/collectdesk/pkg/domain/types"
)

type profileRepository struct {
	db *sql.DB
}

const profileColumns = `id, name, email, role, client_id, updated_at`

func scanProfile(row rowScanner) (*model.Profile, error) {
	var (
		p    model.Profile
		role string
	)
	if err := row.Scan(&p.ID, &p.Name, &p.Email, &role, &p.ClientID, &p.UpdatedAt); err != nil {
		return nil, err
	}
	p.Role = types.Role(role)
	return &p, nil
}

func (r *profileRepository) Get(ctx context.Context, id string) (*model.Profile, error) {
	p, err := scanProfile(r.db.QueryRowContext(ctx, `SELECT `+profileColumns+` FROM profiles WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, goerr.Wrap(interfaces.ErrNotFound, "profile not found", goerr.V("id", id))
	}
	if err != nil {
		return nil, goerr.Wrap(err, "failed to get profile", goerr.V("id", id))
	}
	return p, nil
}

func (r *profileRepository) query(ctx context.Context, query string, args ...any) ([]*model.Profile, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]*model.Profile, 0)
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *profileRepository) GetMany(ctx context.Context, ids []string) (map[string]*model.Profile, error) {
	result := make(map[string]*model.Profile, len(ids))
	if len(ids) == 0 {
		return result, nil
	}

	profiles, err := r.query(ctx, `SELECT `+profileColumns+` FROM profiles WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to get profiles", goerr.V("count", len(ids)))
	}
	for _, p := range profiles {
		result[p.ID] = p
	}
	return result, nil
}

func (r *profileRepository) List(ctx context.Context) ([]*model.Profile, error) {
	profiles, err := r.query(ctx, `SELECT `+profileColumns+` FROM profiles ORDER BY id`)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list profiles")
	}
	return profiles, nil
}

func (r *profileRepository) SaveMany(ctx context.Context, profiles []*model.Profile) error {
	if len(profiles) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return goerr.Wrap(err, "failed to begin profile transaction")
	}

	for _, p := range profiles {
		if p.ID == "" {
			_ = tx.Rollback()
			return goerr.New("profile ID is required")
		}
		if _, err := tx.ExecContext(ctx, `INSERT INTO profiles (`+profileColumns+`)
			VALUES ($1,$2,$3,$4,$5,$6)
			ON CONFLICT (id) DO UPDATE SET
				name = EXCLUDED.name,
				email = EXCLUDED.email,
				role = EXCLUDED.role,
				client_id = EXCLUDED.client_id,
				updated_at = EXCLUDED.updated_at`,
			p.ID, p.Name, p.Email, string(p.Role), p.ClientID, p.UpdatedAt,
		); err != nil {
			_ = tx.Rollback()
			return goerr.Wrap(err, "failed to upsert profile", goerr.V("profile_id", p.ID))
		}
	}

	if err := tx.Commit(); err != nil {
		return goerr.Wrap(err, "failed to commit profiles", goerr.V("count", len(profiles)))
	}
	return nil
}
