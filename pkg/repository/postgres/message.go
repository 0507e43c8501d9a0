package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/collectdesk/pkg/domain/model"
	"github.com/secmon-lab/collectdesk/pkg/domain/types"
)

type messageRepository struct {
	db *sql.DB
}

const messageColumns = `id, conversation_id, sender_id, sender_name, content, message_type,
	is_internal, attachment_url, attachment_name, created_at, updated_at`

func (r *messageRepository) Create(ctx context.Context, msg *model.Message) (*model.Message, error) {
	created := *msg
	created.ID = uuid.NewString()
	if created.CreatedAt.IsZero() {
		created.CreatedAt = time.Now().UTC()
	}
	created.UpdatedAt = created.CreatedAt

	_, err := r.db.ExecContext(ctx, `INSERT INTO messages (`+messageColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`,
		created.ID, created.ConversationID, created.SenderID, created.SenderName, created.Content,
		string(created.MessageType), created.IsInternal, created.AttachmentURL, created.AttachmentName,
		created.CreatedAt, created.UpdatedAt,
	)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to insert message", goerr.V("conversation_id", created.ConversationID))
	}
	return &created, nil
}

func (r *messageRepository) ListRecent(ctx context.Context, conversationID string, limit int) ([]*model.Message, error) {
	query := `SELECT ` + messageColumns + ` FROM messages
		WHERE conversation_id = $1 ORDER BY created_at DESC`
	args := []any{conversationID}
	if limit > 0 {
		query += " LIMIT $2"
		args = append(args, limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list messages", goerr.V("conversation_id", conversationID))
	}
	defer rows.Close()

	msgs := make([]*model.Message, 0)
	for rows.Next() {
		var (
			m     model.Message
			mtype string
		)
		if err := rows.Scan(&m.ID, &m.ConversationID, &m.SenderID, &m.SenderName, &m.Content, &mtype,
			&m.IsInternal, &m.AttachmentURL, &m.AttachmentName, &m.CreatedAt, &m.UpdatedAt); err != nil {
			return nil, goerr.Wrap(err, "failed to scan message")
		}
		m.MessageType = types.MessageType(mtype)
		msgs = append(msgs, &m)
	}
	if err := rows.Err(); err != nil {
		return nil, goerr.Wrap(err, "failed to iterate messages")
	}
	return msgs, nil
}
