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

type participantRepository struct {
	db *sql.DB
}

const participantColumns = `id, conversation_id, user_id, user_name, user_role, joined_at, last_read_at`

const insertParticipant = `INSERT INTO conversation_participants (` + participantColumns + `)
	VALUES ($1,$2,$3,$4,$5,$6,$7)`

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func insertParticipantRow(ctx context.Context, db execer, p *model.Participant, now time.Time) (*model.Participant, error) {
	created := *p
	created.ID = uuid.NewString()
	if created.JoinedAt.IsZero() {
		created.JoinedAt = now
	}
	_, err := db.ExecContext(ctx, insertParticipant,
		created.ID, created.ConversationID, created.UserID, created.UserName, string(created.UserRole),
		created.JoinedAt, created.LastReadAt,
	)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to insert participant",
			goerr.V("conversation_id", created.ConversationID),
			goerr.V("user_id", created.UserID))
	}
	return &created, nil
}

func (r *participantRepository) Insert(ctx context.Context, p *model.Participant) (*model.Participant, error) {
	return insertParticipantRow(ctx, r.db, p, time.Now().UTC())
}

// InsertMany writes all rows in one transaction
func (r *participantRepository) InsertMany(ctx context.Context, ps []*model.Participant) ([]*model.Participant, error) {
	if len(ps) == 0 {
		return []*model.Participant{}, nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to begin participant transaction")
	}

	now := time.Now().UTC()
	created := make([]*model.Participant, 0, len(ps))
	for _, p := range ps {
		row, err := insertParticipantRow(ctx, tx, p, now)
		if err != nil {
			_ = tx.Rollback()
			return nil, err
		}
		created = append(created, row)
	}

	if err := tx.Commit(); err != nil {
		return nil, goerr.Wrap(err, "failed to commit participants", goerr.V("count", len(ps)))
	}
	return created, nil
}

func (r *participantRepository) list(ctx context.Context, query string, args ...any) ([]*model.Participant, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]*model.Participant, 0)
	for rows.Next() {
		var (
			p    model.Participant
			role string
		)
		if err := rows.Scan(&p.ID, &p.ConversationID, &p.UserID, &p.UserName, &role, &p.JoinedAt, &p.LastReadAt); err != nil {
			return nil, err
		}
		p.UserRole = types.Role(role)
		out = append(out, &p)
	}
	return out, rows.Err()
}

func (r *participantRepository) ListByConversation(ctx context.Context, conversationID string) ([]*model.Participant, error) {
	out, err := r.list(ctx, `SELECT `+participantColumns+` FROM conversation_participants
		WHERE conversation_id = $1 ORDER BY joined_at`, conversationID)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list participants", goerr.V("conversation_id", conversationID))
	}
	return out, nil
}

func (r *participantRepository) ListByUser(ctx context.Context, userID string) ([]*model.Participant, error) {
	out, err := r.list(ctx, `SELECT `+participantColumns+` FROM conversation_participants
		WHERE user_id = $1`, userID)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list memberships", goerr.V("user_id", userID))
	}
	return out, nil
}

func (r *participantRepository) MarkRead(ctx context.Context, conversationID, userID string, at time.Time) (int, error) {
	res, err := r.db.ExecContext(ctx, `UPDATE conversation_participants SET last_read_at = $3
		WHERE conversation_id = $1 AND user_id = $2`, conversationID, userID, at.UTC())
	if err != nil {
		return 0, goerr.Wrap(err, "failed to mark conversation read",
			goerr.V("conversation_id", conversationID),
			goerr.V("user_id", userID))
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, goerr.Wrap(err, "failed to read affected rows")
	}
	return int(n), nil
}
