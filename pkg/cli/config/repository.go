package config

import (
	"context"
	"log/slog"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/collectdesk/pkg/domain/interfaces"
	"github.com/secmon-lab/collectdesk/pkg/repository/firestore"
	"github.com/secmon-lab/collectdesk/pkg/repository/memory"
	"github.com/secmon-lab/collectdesk/pkg/repository/postgres"
	"github.com/secmon-lab/collectdesk/pkg/utils/logging"
	"github.com/urfave/cli/v3"
)

// Repository backends
const (
	BackendFirestore = "firestore"
	BackendPostgres  = "postgres"
	BackendMemory    = "memory"
)

// Repository holds CLI flags for repository backend configuration
type Repository struct {
	backend     string
	projectID   string
	databaseID  string
	databaseURL string
	autoMigrate bool
}

// Flags returns CLI flags for repository configuration
func (r *Repository) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "repository-backend",
			Usage:       "Repository backend type (firestore, postgres or memory)",
			Category:    "Repository",
			Value:       BackendFirestore,
			Sources:     cli.EnvVars("COLLECTDESK_REPOSITORY_BACKEND"),
			Destination: &r.backend,
		},
		&cli.StringFlag{
			Name:        "firestore-project-id",
			Usage:       "Firestore Project ID (required when using firestore backend)",
			Category:    "Repository",
			Sources:     cli.EnvVars("COLLECTDESK_FIRESTORE_PROJECT_ID"),
			Destination: &r.projectID,
		},
		&cli.StringFlag{
			Name:        "firestore-database-id",
			Usage:       "Firestore Database ID",
			Category:    "Repository",
			Sources:     cli.EnvVars("COLLECTDESK_FIRESTORE_DATABASE_ID"),
			Destination: &r.databaseID,
		},
		&cli.StringFlag{
			Name:        "database-url",
			Usage:       "PostgreSQL connection URL (required when using postgres backend)",
			Category:    "Repository",
			Sources:     cli.EnvVars("COLLECTDESK_DATABASE_URL"),
			Destination: &r.databaseURL,
		},
		&cli.BoolFlag{
			Name:        "auto-migrate",
			Usage:       "Apply the PostgreSQL schema on startup",
			Category:    "Repository",
			Sources:     cli.EnvVars("COLLECTDESK_AUTO_MIGRATE"),
			Destination: &r.autoMigrate,
		},
	}
}

func (r Repository) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("backend", r.backend),
		slog.String("project_id", r.projectID),
		slog.String("database_id", r.databaseID),
		slog.Int("database_url.len", len(r.databaseURL)),
	)
}

// Backend returns the configured backend type
func (r *Repository) Backend() string {
	return r.backend
}

// ProjectID returns the Firestore project ID
func (r *Repository) ProjectID() string {
	return r.projectID
}

// DatabaseID returns the Firestore database ID
func (r *Repository) DatabaseID() string {
	return r.databaseID
}

// Configure initializes and returns a repository based on the configured backend.
// The caller is responsible for calling Close() on the returned repository.
func (r *Repository) Configure(ctx context.Context) (interfaces.Repository, error) {
	switch r.backend {
	case BackendFirestore:
		if r.projectID == "" {
			return nil, goerr.New("firestore-project-id is required when using firestore backend")
		}
		repo, err := firestore.New(ctx, r.projectID, r.databaseID)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to initialize firestore repository")
		}
		logging.Default().Info("Using Firestore repository",
			"project_id", r.projectID,
			"database_id", r.databaseID,
		)
		return repo, nil

	case BackendPostgres:
		repo, err := r.OpenPostgres(ctx)
		if err != nil {
			return nil, err
		}
		if r.autoMigrate {
			if err := repo.Migrate(ctx); err != nil {
				_ = repo.Close()
				return nil, goerr.Wrap(err, "failed to migrate postgres schema")
			}
		}
		logging.Default().Info("Using PostgreSQL repository", "auto_migrate", r.autoMigrate)
		return repo, nil

	case BackendMemory:
		logging.Default().Info("Using in-memory repository (development mode)")
		return memory.New(), nil

	default:
		return nil, goerr.New("invalid repository backend", goerr.V("backend", r.backend))
	}
}

// OpenPostgres connects to the configured PostgreSQL database
func (r *Repository) OpenPostgres(ctx context.Context) (*postgres.Postgres, error) {
	if r.databaseURL == "" {
		return nil, goerr.New("database-url is required when using postgres backend")
	}
	repo, err := postgres.Open(ctx, r.databaseURL)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to initialize postgres repository")
	}
	return repo, nil
}
