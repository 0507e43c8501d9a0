package postgres

import (
	"context"
	"database/sql"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/collectdesk/pkg/domain/model"
	"github.com/secmon-lab/collectdesk/pkg/domain/types"
)

type referenceRepository struct {
	db *sql.DB
}

// Table names are interpolated only after ReferenceTable.IsValid succeeds.

func (r *referenceRepository) List(ctx context.Context, table types.ReferenceTable) ([]*model.ReferenceEntry, error) {
	if !table.IsValid() {
		return nil, goerr.New("unknown reference table", goerr.V("table", table))
	}

	rows, err := r.db.QueryContext(ctx, `SELECT id, code, name, description, sort_order FROM `+
		string(table)+` ORDER BY sort_order, code`)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list reference entries", goerr.V("table", table))
	}
	defer rows.Close()

	entries := make([]*model.ReferenceEntry, 0)
	for rows.Next() {
		var e model.ReferenceEntry
		if err := rows.Scan(&e.ID, &e.Code, &e.Name, &e.Description, &e.SortOrder); err != nil {
			return nil, goerr.Wrap(err, "failed to scan reference entry", goerr.V("table", table))
		}
		entries = append(entries, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, goerr.Wrap(err, "failed to iterate reference entries", goerr.V("table", table))
	}
	return entries, nil
}

func (r *referenceRepository) Put(ctx context.Context, table types.ReferenceTable, entries []*model.ReferenceEntry) error {
	if !table.IsValid() {
		return goerr.New("unknown reference table", goerr.V("table", table))
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return goerr.Wrap(err, "failed to begin reference transaction")
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM `+string(table)); err != nil {
		_ = tx.Rollback()
		return goerr.Wrap(err, "failed to clear reference table", goerr.V("table", table))
	}

	for _, e := range entries {
		id := e.ID
		if id == "" {
			id = e.Code
		}
		if id == "" {
			_ = tx.Rollback()
			return goerr.New("reference entry needs an ID or code", goerr.V("table", table))
		}
		if _, err := tx.ExecContext(ctx, `INSERT INTO `+string(table)+
			` (id, code, name, description, sort_order) VALUES ($1,$2,$3,$4,$5)`,
			id, e.Code, e.Name, e.Description, e.SortOrder,
		); err != nil {
			_ = tx.Rollback()
			return goerr.Wrap(err, "failed to insert reference entry", goerr.V("table", table), goerr.V("id", id))
		}
	}

	if err := tx.Commit(); err != nil {
		return goerr.Wrap(err, "failed to commit reference entries", goerr.V("table", table))
	}
	return nil
}
