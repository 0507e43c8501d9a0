package postgres

import (
	"context"
	"database/sql"
	_ "embed"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/collectdesk/pkg/domain/interfaces"
)

//go:embed schema.sql
var schema string

// Postgres stores every collection in PostgreSQL using the same table
// layout as the hosted gateway.
type Postgres struct {
	db           *sql.DB
	caseRepo     *caseRepository
	action       *actionRepository
	conversation *conversationRepository
	participant  *participantRepository
	message      *messageRepository
	profile      *profileRepository
	reference    *referenceRepository
}

var _ interfaces.Repository = &Postgres{}

// Open connects through the pgx database/sql driver and verifies the
// connection. The caller owns the returned repository and must Close it.
func Open(ctx context.Context, databaseURL string) (*Postgres, error) {
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to open postgres")
	}
	db.SetConnMaxIdleTime(5 * time.Minute)
	db.SetConnMaxLifetime(30 * time.Minute)
	db.SetMaxIdleConns(10)
	db.SetMaxOpenConns(20)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, goerr.Wrap(err, "failed to ping postgres")
	}
	return New(db), nil
}

// New wraps an existing connection pool
func New(db *sql.DB) *Postgres {
	return &Postgres{
		db:           db,
		caseRepo:     &caseRepository{db: db},
		action:       &actionRepository{db: db},
		conversation: &conversationRepository{db: db},
		participant:  &participantRepository{db: db},
		message:      &messageRepository{db: db},
		profile:      &profileRepository{db: db},
		reference:    &referenceRepository{db: db},
	}
}

// Migrate creates missing tables and indexes. It is idempotent.
func (p *Postgres) Migrate(ctx context.Context) error {
	if _, err := p.db.ExecContext(ctx, schema); err != nil {
		return goerr.Wrap(err, "failed to apply postgres schema")
	}
	return nil
}

// Schema returns the DDL applied by Migrate
func Schema() string {
	return schema
}

func (p *Postgres) Case() interfaces.CaseRepository {
	return p.caseRepo
}

func (p *Postgres) Action() interfaces.ActionRepository {
	return p.action
}

func (p *Postgres) Conversation() interfaces.ConversationRepository {
	return p.conversation
}

func (p *Postgres) Participant() interfaces.ParticipantRepository {
	return p.participant
}

func (p *Postgres) Message() interfaces.MessageRepository {
	return p.message
}

func (p *Postgres) Profile() interfaces.ProfileRepository {
	return p.profile
}

func (p *Postgres) Reference() interfaces.ReferenceRepository {
	return p.reference
}

func (p *Postgres) Close() error {
	return p.db.Close()
}

// rowScanner is satisfied by *sql.Row and *sql.Rows
type rowScanner interface {
	Scan(dest ...any) error
}
