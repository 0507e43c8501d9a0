package cli

import (
	"context"
	"os"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/collectdesk/pkg/cli/config"
	"github.com/secmon-lab/collectdesk/pkg/domain/model"
	"github.com/secmon-lab/collectdesk/pkg/domain/model/auth"
	"github.com/secmon-lab/collectdesk/pkg/domain/types"
	"github.com/secmon-lab/collectdesk/pkg/usecase"
	"github.com/secmon-lab/collectdesk/pkg/utils/logging"
	"github.com/secmon-lab/collectdesk/pkg/utils/safe"
	"github.com/urfave/cli/v3"
)

func cmdExport() *cli.Command {
	var repoCfg config.Repository
	var appCfg config.AppConfig
	var format, output string
	var userID, role, clientID string
	var search, status, sortKey, order string

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "format",
			Usage:       "Export format (csv or xlsx)",
			Value:       string(usecase.ExportCSV),
			Destination: &format,
		},
		&cli.StringFlag{
			Name:        "output",
			Aliases:     []string{"o"},
			Usage:       "Output file. Defaults to cases-<timestamp>.<format>",
			Destination: &output,
		},
		&cli.StringFlag{
			Name:        "as",
			Usage:       "User ID the export runs as",
			Value:       "cli",
			Category:    "Identity",
			Destination: &userID,
		},
		&cli.StringFlag{
			Name:        "role",
			Usage:       "Role the export runs as (CLIENT, AGENT, ADMIN or DPO)",
			Value:       string(types.RoleAdmin),
			Category:    "Identity",
			Destination: &role,
		},
		&cli.StringFlag{
			Name:        "client-id",
			Usage:       "Client organization of a CLIENT export",
			Category:    "Identity",
			Destination: &clientID,
		},
		&cli.StringFlag{
			Name:        "search",
			Usage:       "Free text filter on reference and debtor",
			Category:    "Query",
			Destination: &search,
		},
		&cli.StringFlag{
			Name:        "status",
			Usage:       "Status filter, or all",
			Value:       types.CaseStatusAll,
			Category:    "Query",
			Destination: &status,
		},
		&cli.StringFlag{
			Name:        "sort",
			Usage:       "Sort key (createdAt, amount or updatedAt)",
			Category:    "Query",
			Destination: &sortKey,
		},
		&cli.StringFlag{
			Name:        "order",
			Usage:       "Sort order (asc or desc)",
			Category:    "Query",
			Destination: &order,
		},
	}
	flags = append(flags, repoCfg.Flags()...)
	flags = append(flags, appCfg.Flags()...)

	return &cli.Command{
		Name:    "export",
		Aliases: []string{"e"},
		Usage:   "Export the case list to CSV or XLSX",
		Flags:   flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			exportFormat, err := usecase.ParseExportFormat(format)
			if err != nil {
				return err
			}
			key, err := types.ParseCaseSortKey(sortKey)
			if err != nil {
				return goerr.Wrap(err, "invalid --sort")
			}
			sortOrder, err := types.ParseSortOrder(order)
			if err != nil {
				return goerr.Wrap(err, "invalid --order")
			}

			identity := &auth.Identity{UserID: userID, Role: types.Role(role), ClientID: clientID}
			if !identity.Role.IsValid() {
				return goerr.New("invalid --role", goerr.V("role", role))
			}

			deskCfg, err := appCfg.Configure()
			if err != nil {
				return goerr.Wrap(err, "failed to load application config")
			}

			repo, err := repoCfg.Configure(ctx)
			if err != nil {
				return goerr.Wrap(err, "failed to initialize repository")
			}
			defer func() {
				if err := repo.Close(); err != nil {
					logging.Default().Error("failed to close repository", "error", err.Error())
				}
			}()

			if output == "" {
				output = exportFormat.FileName(time.Now())
			}
			// #nosec G304 - path comes from the operator
			f, err := os.Create(output)
			if err != nil {
				return goerr.Wrap(err, "failed to create output file", goerr.V("path", output))
			}
			defer safe.Close(ctx, f)

			uc := usecase.New(repo, usecase.WithDeskConfig(deskCfg))
			n, err := uc.Case.ExportCases(auth.ContextWithIdentity(ctx, identity), model.CaseQuery{
				Search:    search,
				Status:    status,
				SortKey:   key,
				SortOrder: sortOrder,
			}, exportFormat, f)
			if err != nil {
				return goerr.Wrap(err, "failed to export cases")
			}

			logging.Default().Info("Cases exported", "path", output, "format", exportFormat, "cases", n)
			return nil
		},
	}
}
