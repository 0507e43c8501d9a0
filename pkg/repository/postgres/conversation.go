package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/collectdesk/pkg/domain/interfaces"
	"github.com/secmon-lab/collectdesk/pkg/domain/model"
	"github.com/secmon-lab/collectdesk/pkg/domain/types"
)

type conversationRepository struct {
	db *sql.DB
}

const conversationColumns = `id, title, type, case_id, is_client_visible, created_by, created_at, updated_at`

func scanConversation(row rowScanner) (*model.Conversation, error) {
	var (
		c     model.Conversation
		ctype string
	)
	if err := row.Scan(&c.ID, &c.Title, &ctype, &c.CaseID, &c.IsClientVisible, &c.CreatedBy, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return nil, err
	}
	c.Type = types.ConversationType(ctype)
	return &c, nil
}

func (r *conversationRepository) queryMany(ctx context.Context, query string, args ...any) ([]*model.Conversation, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	convs := make([]*model.Conversation, 0)
	for rows.Next() {
		c, err := scanConversation(rows)
		if err != nil {
			return nil, err
		}
		convs = append(convs, c)
	}
	return convs, rows.Err()
}

func (r *conversationRepository) Create(ctx context.Context, conv *model.Conversation) (*model.Conversation, error) {
	now := time.Now().UTC()
	created := *conv
	created.ID = uuid.NewString()
	created.CreatedAt = now
	created.UpdatedAt = now

	_, err := r.db.ExecContext(ctx, `INSERT INTO conversations (`+conversationColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
		created.ID, created.Title, string(created.Type), created.CaseID, created.IsClientVisible,
		created.CreatedBy, created.CreatedAt, created.UpdatedAt,
	)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to insert conversation")
	}
	return &created, nil
}

func (r *conversationRepository) Get(ctx context.Context, id string) (*model.Conversation, error) {
	c, err := scanConversation(r.db.QueryRowContext(ctx,
		`SELECT `+conversationColumns+` FROM conversations WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, goerr.Wrap(interfaces.ErrNotFound, "conversation not found", goerr.V("id", id))
	}
	if err != nil {
		return nil, goerr.Wrap(err, "failed to get conversation", goerr.V("id", id))
	}
	return c, nil
}

func (r *conversationRepository) GetMany(ctx context.Context, ids []string) ([]*model.Conversation, error) {
	if len(ids) == 0 {
		return []*model.Conversation{}, nil
	}
	convs, err := r.queryMany(ctx,
		`SELECT `+conversationColumns+` FROM conversations WHERE id = ANY($1) ORDER BY updated_at DESC`, ids)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to get conversations", goerr.V("count", len(ids)))
	}
	return convs, nil
}

func (r *conversationRepository) ListByCase(ctx context.Context, caseID string) ([]*model.Conversation, error) {
	convs, err := r.queryMany(ctx,
		`SELECT `+conversationColumns+` FROM conversations
		WHERE type = $1 AND case_id = $2 ORDER BY updated_at DESC`,
		string(types.ConversationTypeCase), caseID)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list case conversations", goerr.V("case_id", caseID))
	}
	return convs, nil
}

func (r *conversationRepository) Touch(ctx context.Context, id string, at time.Time) error {
	res, err := r.db.ExecContext(ctx, `UPDATE conversations SET updated_at = $2 WHERE id = $1`, id, at.UTC())
	if err != nil {
		return goerr.Wrap(err, "failed to touch conversation", goerr.V("id", id))
	}
	n, err := res.RowsAffected()
	if err != nil {
		return goerr.Wrap(err, "failed to read affected rows", goerr.V("id", id))
	}
	if n == 0 {
		return goerr.Wrap(interfaces.ErrNotFound, "conversation not found", goerr.V("id", id))
	}
	return nil
}
