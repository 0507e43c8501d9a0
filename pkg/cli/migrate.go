package cli

import (
	"context"

	"github.com/m-mizutani/fireconf"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/collectdesk/pkg/cli/config"
	"github.com/secmon-lab/collectdesk/pkg/domain/interfaces"
	"github.com/secmon-lab/collectdesk/pkg/domain/model"
	"github.com/secmon-lab/collectdesk/pkg/domain/types"
	"github.com/secmon-lab/collectdesk/pkg/repository/postgres"
	"github.com/secmon-lab/collectdesk/pkg/utils/logging"
	"github.com/urfave/cli/v3"
)

func cmdMigrate() *cli.Command {
	var repoCfg config.Repository
	var appCfg config.AppConfig
	var dryRun bool

	flags := []cli.Flag{
		&cli.BoolFlag{
			Name:        "dry-run",
			Usage:       "Preview changes without applying",
			Destination: &dryRun,
		},
	}
	flags = append(flags, repoCfg.Flags()...)
	flags = append(flags, appCfg.Flags()...)

	return &cli.Command{
		Name:    "migrate",
		Aliases: []string{"m"},
		Usage:   "Create Firestore indexes or the PostgreSQL schema, and seed reference tables from --config",
		Flags:   flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			logger := logging.Default()
			logger.Info("Migrate configuration",
				"repository", repoCfg,
				"config", appCfg.Path(),
				"dryRun", dryRun)

			seedCfg, err := appCfg.Load()
			if err != nil {
				return goerr.Wrap(err, "failed to load application config")
			}

			switch repoCfg.Backend() {
			case config.BackendFirestore:
				if err := migrateFirestore(ctx, repoCfg.ProjectID(), repoCfg.DatabaseID(), dryRun); err != nil {
					return err
				}
			case config.BackendPostgres:
				if err := migratePostgres(ctx, &repoCfg, dryRun); err != nil {
					return err
				}
			default:
				return goerr.New("migrate supports the firestore and postgres backends",
					goerr.V("backend", repoCfg.Backend()))
			}

			seeds := seedCfg.ReferenceSeeds()
			if len(seeds) == 0 {
				return nil
			}
			if dryRun {
				for table, rows := range seeds {
					logger.Info("Reference seed", "table", table, "entries", len(rows))
				}
				return nil
			}

			repo, err := repoCfg.Configure(ctx)
			if err != nil {
				return goerr.Wrap(err, "failed to open repository for seeding")
			}
			defer func() {
				if err := repo.Close(); err != nil {
					logger.Error("failed to close repository", "error", err.Error())
				}
			}()
			return seedReference(ctx, repo, seeds)
		},
	}
}

func migrateFirestore(ctx context.Context, projectID, databaseID string, dryRun bool) error {
	logger := logging.Default()
	if projectID == "" {
		return goerr.New("firestore-project-id is required")
	}

	client, err := fireconf.NewClient(ctx, projectID, databaseID)
	if err != nil {
		return goerr.Wrap(err, "failed to create fireconf client")
	}
	defer func() {
		if err := client.Close(); err != nil {
			logger.Error("failed to close fireconf client", "error", err.Error())
		}
	}()

	indexConfig := getIndexConfig()

	if dryRun {
		logger.Info("Dry run mode - previewing changes")
		plan, err := client.GetMigrationPlan(ctx, indexConfig)
		if err != nil {
			return goerr.Wrap(err, "failed to create migration plan")
		}

		if len(plan.Steps) == 0 {
			logger.Info("No changes required")
			return nil
		}

		for _, step := range plan.Steps {
			logger.Info("Migration step",
				"collection", step.Collection,
				"operation", step.Operation,
				"description", step.Description,
				"destructive", step.Destructive)
		}
		return nil
	}

	logger.Info("Applying migrations")
	if err := client.Migrate(ctx, indexConfig); err != nil {
		return goerr.Wrap(err, "failed to apply migrations")
	}
	logger.Info("Migrations applied successfully")
	return nil
}

func migratePostgres(ctx context.Context, repoCfg *config.Repository, dryRun bool) error {
	logger := logging.Default()
	if dryRun {
		logger.Info("Dry run mode - schema to apply", "schema", postgres.Schema())
		return nil
	}

	repo, err := repoCfg.OpenPostgres(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if err := repo.Close(); err != nil {
			logger.Error("failed to close postgres", "error", err.Error())
		}
	}()

	if err := repo.Migrate(ctx); err != nil {
		return goerr.Wrap(err, "failed to apply postgres schema")
	}
	logger.Info("PostgreSQL schema applied successfully")
	return nil
}

func seedReference(ctx context.Context, repo interfaces.Repository, seeds map[types.ReferenceTable][]*model.ReferenceEntry) error {
	for table, rows := range seeds {
		if err := repo.Reference().Put(ctx, table, rows); err != nil {
			return goerr.Wrap(err, "failed to seed reference table", goerr.V("table", table))
		}
		logging.Default().Info("Reference table seeded", "table", table, "entries", len(rows))
	}
	return nil
}

// getIndexConfig returns the composite indexes required by the Firestore
// repository queries
func getIndexConfig() *fireconf.Config {
	return &fireconf.Config{
		Collections: []fireconf.Collection{
			{
				// ListByCase: CaseID ASC, CreatedAt DESC
				Name: string(types.CollectionActions),
				Indexes: []fireconf.Index{
					{
						Fields: []fireconf.IndexField{
							{Path: "CaseID", Order: fireconf.OrderAscending},
							{Path: "CreatedAt", Order: fireconf.OrderDescending},
						},
					},
				},
			},
			{
				// ListByCase: CaseID, Type, UpdatedAt DESC
				Name: string(types.CollectionConversations),
				Indexes: []fireconf.Index{
					{
						Fields: []fireconf.IndexField{
							{Path: "CaseID", Order: fireconf.OrderAscending},
							{Path: "Type", Order: fireconf.OrderAscending},
							{Path: "UpdatedAt", Order: fireconf.OrderDescending},
						},
					},
				},
			},
			{
				// ListByConversation: ConversationID ASC, JoinedAt ASC
				Name: string(types.CollectionParticipants),
				Indexes: []fireconf.Index{
					{
						Fields: []fireconf.IndexField{
							{Path: "ConversationID", Order: fireconf.OrderAscending},
							{Path: "JoinedAt", Order: fireconf.OrderAscending},
						},
					},
				},
			},
			{
				// ListRecent: ConversationID ASC, CreatedAt DESC
				Name: string(types.CollectionMessages),
				Indexes: []fireconf.Index{
					{
						Fields: []fireconf.IndexField{
							{Path: "ConversationID", Order: fireconf.OrderAscending},
							{Path: "CreatedAt", Order: fireconf.OrderDescending},
						},
					},
				},
			},
		},
	}
}
