package cli

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/collectdesk/pkg/cli/config"
	httpctrl "github.com/secmon-lab/collectdesk/pkg/controller/http"
	"github.com/secmon-lab/collectdesk/pkg/repository/publish"
	"github.com/secmon-lab/collectdesk/pkg/service/worker"
	"github.com/secmon-lab/collectdesk/pkg/usecase"
	"github.com/secmon-lab/collectdesk/pkg/utils/logging"
	"github.com/urfave/cli/v3"
)

func cmdServe(version string) *cli.Command {
	var addr string
	var allowedOrigins []string
	var writeRateLimit int
	var maxUploadSize int64
	var appCfg config.AppConfig
	var repoCfg config.Repository
	var realtimeCfg config.Realtime
	var storageCfg config.Storage
	var slackCfg config.Slack
	var authCfg config.Auth
	var sentryCfg config.Sentry

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "addr",
			Usage:       "HTTP server address",
			Value:       ":8080",
			Sources:     cli.EnvVars("COLLECTDESK_ADDR"),
			Destination: &addr,
		},
		&cli.StringSliceFlag{
			Name:        "allowed-origin",
			Usage:       "Origin allowed by CORS (repeatable)",
			Value:       []string{"http://localhost:5173"},
			Sources:     cli.EnvVars("COLLECTDESK_ALLOWED_ORIGINS"),
			Destination: &allowedOrigins,
		},
		&cli.IntFlag{
			Name:        "write-rate-limit",
			Usage:       "Write requests per user and minute, 0 disables the limit",
			Value:       60,
			Sources:     cli.EnvVars("COLLECTDESK_WRITE_RATE_LIMIT"),
			Destination: &writeRateLimit,
		},
		&cli.Int64Flag{
			Name:        "max-upload-size",
			Usage:       "Maximum body size of a case submission in bytes",
			Value:       64 << 20,
			Sources:     cli.EnvVars("COLLECTDESK_MAX_UPLOAD_SIZE"),
			Destination: &maxUploadSize,
		},
	}

	flags = append(flags, appCfg.Flags()...)
	flags = append(flags, repoCfg.Flags()...)
	flags = append(flags, realtimeCfg.Flags()...)
	flags = append(flags, storageCfg.Flags()...)
	flags = append(flags, slackCfg.Flags()...)
	flags = append(flags, authCfg.Flags()...)
	flags = append(flags, sentryCfg.Flags()...)

	return &cli.Command{
		Name:    "serve",
		Aliases: []string{"s"},
		Usage:   "Start HTTP server",
		Flags:   flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			logging.Default().Info("Serve configuration",
				"addr", addr,
				"app", appCfg,
				"repository", repoCfg,
				"realtime", realtimeCfg,
				"storage", storageCfg,
				"slack", slackCfg,
				"auth", authCfg,
				"sentry", sentryCfg,
			)

			flush, err := sentryCfg.Configure(version)
			if err != nil {
				return err
			}
			defer flush()

			deskCfg, err := appCfg.Configure()
			if err != nil {
				return goerr.Wrap(err, "failed to load application config")
			}

			baseRepo, err := repoCfg.Configure(ctx)
			if err != nil {
				return goerr.Wrap(err, "failed to initialize repository")
			}

			feed, err := realtimeCfg.Configure(ctx)
			if err != nil {
				_ = baseRepo.Close()
				return goerr.Wrap(err, "failed to initialize change feed")
			}

			// Every write goes through the publishing decorator so that
			// subscribers see the change
			repo := publish.New(baseRepo, feed)
			defer func() {
				if err := repo.Close(); err != nil {
					logging.Default().Error("failed to close repository", "error", err.Error())
				}
				if err := feed.Close(); err != nil {
					logging.Default().Error("failed to close change feed", "error", err.Error())
				}
			}()

			store, closeStore, err := storageCfg.Configure(ctx)
			if err != nil {
				return err
			}
			defer closeStore()

			authUC, err := authCfg.Configure(ctx, repo)
			if err != nil {
				return goerr.Wrap(err, "failed to configure authentication")
			}
			if authCfg.IsNoAuthMode() {
				logging.Default().Warn("Running in no-auth mode (development only)")
			}

			slackSvc, err := slackCfg.Configure()
			if err != nil {
				return err
			}

			ucOpts := []usecase.Option{
				usecase.WithAuth(authUC),
				usecase.WithChangeFeed(feed),
				usecase.WithDocumentStorage(store),
				usecase.WithDeskConfig(deskCfg),
			}
			if slackSvc != nil && slackCfg.NotifyChannel() != "" {
				ucOpts = append(ucOpts, usecase.WithSlackNotifier(slackSvc, slackCfg.NotifyChannel()))
				logging.Default().Info("Slack action notifications enabled", "channel", slackCfg.NotifyChannel())
			}
			uc := usecase.New(repo, ucOpts...)

			var profileWorker *worker.ProfileRefreshWorker
			if slackSvc != nil {
				profileWorker = worker.NewProfileRefreshWorker(repo, slackSvc, slackCfg.RefreshInterval())
				if err := profileWorker.Start(ctx); err != nil {
					return goerr.Wrap(err, "failed to start profile refresh worker")
				}
			} else {
				logging.Default().Info("Slack Bot Token not configured, profile names are not refreshed")
			}

			server := &http.Server{
				Addr: addr,
				Handler: httpctrl.New(uc,
					httpctrl.WithAllowedOrigins(allowedOrigins),
					httpctrl.WithWriteRateLimit(writeRateLimit),
					httpctrl.WithMaxUploadSize(maxUploadSize),
				),
				ReadHeaderTimeout: 30 * time.Second,
			}

			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

			errCh := make(chan error, 1)
			go func() {
				logging.Default().Info("Starting HTTP server", "addr", addr)
				if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errCh <- goerr.Wrap(err, "failed to start server")
				}
			}()

			select {
			case err := <-errCh:
				return err
			case sig := <-sigCh:
				logging.Default().Info("Received shutdown signal", "signal", sig)

				if profileWorker != nil {
					profileWorker.Stop()
				}

				shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()

				if err := server.Shutdown(shutdownCtx); err != nil {
					return goerr.Wrap(err, "failed to shutdown server gracefully")
				}

				logging.Default().Info("Server shutdown completed")
				return nil
			}
		},
	}
}
