package config

import (
	"context"
	"log/slog"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/collectdesk/pkg/domain/interfaces"
	"github.com/secmon-lab/collectdesk/pkg/service/storage"
	"github.com/secmon-lab/collectdesk/pkg/utils/logging"
	"github.com/urfave/cli/v3"
)

// Storage holds CLI flags for case document storage
type Storage struct {
	bucket          string
	prefix          string
	credentialsFile string
}

func (x *Storage) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "storage-bucket",
			Usage:       "Cloud Storage bucket for case documents. Documents are kept in memory when empty",
			Category:    "Storage",
			Sources:     cli.EnvVars("COLLECTDESK_STORAGE_BUCKET"),
			Destination: &x.bucket,
		},
		&cli.StringFlag{
			Name:        "storage-prefix",
			Usage:       "Object name prefix inside the bucket",
			Category:    "Storage",
			Sources:     cli.EnvVars("COLLECTDESK_STORAGE_PREFIX"),
			Destination: &x.prefix,
		},
		&cli.StringFlag{
			Name:        "storage-credentials",
			Usage:       "Service account key file. Application default credentials are used when empty",
			Category:    "Storage",
			Sources:     cli.EnvVars("COLLECTDESK_STORAGE_CREDENTIALS"),
			Destination: &x.credentialsFile,
		},
	}
}

func (x Storage) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("bucket", x.bucket),
		slog.String("prefix", x.prefix),
		slog.Bool("credentials_file", x.credentialsFile != ""),
	)
}

// Configure returns the document storage and a closer for it
func (x *Storage) Configure(ctx context.Context) (interfaces.DocumentStorage, func(), error) {
	if x.bucket == "" {
		logging.Default().Warn("Storage bucket not configured, case documents are kept in memory")
		return storage.NewMemory(), func() {}, nil
	}

	var opts []storage.GCSOption
	if x.prefix != "" {
		opts = append(opts, storage.WithPrefix(x.prefix))
	}
	if x.credentialsFile != "" {
		opts = append(opts, storage.WithCredentialsFile(x.credentialsFile))
	}

	gcs, err := storage.NewGCS(ctx, x.bucket, opts...)
	if err != nil {
		return nil, nil, goerr.Wrap(err, "failed to configure cloud storage", goerr.V("bucket", x.bucket))
	}
	logging.Default().Info("Using Cloud Storage for case documents", "bucket", x.bucket, "prefix", x.prefix)

	return gcs, func() {
		if err := gcs.Close(); err != nil {
			logging.Default().Error("failed to close storage client", "error", err.Error())
		}
	}, nil
}
