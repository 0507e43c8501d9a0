package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/collectdesk/pkg/domain/interfaces"
	"github.com/secmon-lab/collectdesk/pkg/domain/model"
	"github.com/secmon-lab/collectdesk/pkg/domain/types"
)

type caseRepository struct {
	db *sql.DB
}

const caseColumns = `id, reference, client_id, assigned_agent_id, created_by,
	debtor_name, debtor_email, debtor_phone, debtor_address,
	total_amount, currency_code, total_fees, total_interest, total_penalties, total_vat,
	notes, status, created_at, updated_at`

func scanCase(row rowScanner) (*model.Case, error) {
	var (
		c       model.Case
		address []byte
		status  string
	)
	if err := row.Scan(
		&c.ID, &c.Reference, &c.ClientID, &c.AssignedAgentID, &c.CreatedBy,
		&c.Debtor.Name, &c.Debtor.Email, &c.Debtor.Phone, &address,
		&c.Amount, &c.Currency, &c.Fees, &c.Interest, &c.Penalties, &c.VAT,
		&c.Notes, &status, &c.CreatedAt, &c.UpdatedAt,
	); err != nil {
		return nil, err
	}
	c.Status = types.CaseStatus(status)

	if len(address) > 0 {
		var addr model.Address
		if err := json.Unmarshal(address, &addr); err != nil {
			return nil, goerr.Wrap(err, "failed to decode debtor address", goerr.V("id", c.ID))
		}
		c.Debtor.Address = &addr
	}
	return &c, nil
}

func (r *caseRepository) Create(ctx context.Context, c *model.Case) (*model.Case, error) {
	now := time.Now().UTC()
	created := *c
	created.ID = uuid.NewString()
	created.Status = created.Status.Normalize()
	if created.CreatedAt.IsZero() {
		created.CreatedAt = now
	}
	if created.UpdatedAt.IsZero() {
		created.UpdatedAt = created.CreatedAt
	}

	var address []byte
	if created.Debtor.Address != nil {
		raw, err := json.Marshal(created.Debtor.Address)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to encode debtor address")
		}
		address = raw
	}

	_, err := r.db.ExecContext(ctx, `INSERT INTO case_intakes (`+caseColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19)`,
		created.ID, created.Reference, created.ClientID, created.AssignedAgentID, created.CreatedBy,
		created.Debtor.Name, created.Debtor.Email, created.Debtor.Phone, address,
		created.Amount, created.Currency, created.Fees, created.Interest, created.Penalties, created.VAT,
		created.Notes, string(created.Status), created.CreatedAt, created.UpdatedAt,
	)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to insert case", goerr.V("reference", created.Reference))
	}
	return &created, nil
}

func (r *caseRepository) Get(ctx context.Context, id string) (*model.Case, error) {
	c, err := scanCase(r.db.QueryRowContext(ctx, `SELECT `+caseColumns+` FROM case_intakes WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, goerr.Wrap(interfaces.ErrNotFound, "case not found", goerr.V("id", id))
	}
	if err != nil {
		return nil, goerr.Wrap(err, "failed to get case", goerr.V("id", id))
	}
	return c, nil
}

func (r *caseRepository) List(ctx context.Context, opts ...interfaces.ListCaseOption) ([]*model.Case, error) {
	cfg := interfaces.BuildListCaseConfig(opts...)

	var (
		where []string
		args  []any
	)
	add := func(column string, value any) {
		args = append(args, value)
		where = append(where, fmt.Sprintf("%s = $%d", column, len(args)))
	}
	if s := cfg.Status(); s != nil {
		add("status", string(*s))
	}
	if v := cfg.ClientID(); v != nil {
		add("client_id", *v)
	}
	if v := cfg.AssignedAgentID(); v != nil {
		add("assigned_agent_id", *v)
	}

	query := `SELECT ` + caseColumns + ` FROM case_intakes`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY created_at"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list cases")
	}
	defer rows.Close()

	cases := make([]*model.Case, 0)
	for rows.Next() {
		c, err := scanCase(rows)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to scan case")
		}
		cases = append(cases, c)
	}
	if err := rows.Err(); err != nil {
		return nil, goerr.Wrap(err, "failed to iterate cases")
	}
	return cases, nil
}

func (r *caseRepository) UpdateStatus(ctx context.Context, id string, status types.CaseStatus) (*model.Case, error) {
	c, err := scanCase(r.db.QueryRowContext(ctx,
		`UPDATE case_intakes SET status = $2, updated_at = $3 WHERE id = $1 RETURNING `+caseColumns,
		id, string(status), time.Now().UTC(),
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, goerr.Wrap(interfaces.ErrNotFound, "case not found", goerr.V("id", id))
	}
	if err != nil {
		return nil, goerr.Wrap(err, "failed to update case status", goerr.V("id", id), goerr.V("status", status))
	}
	return c, nil
}
