package config

import (
	"context"
	"log/slog"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/collectdesk/pkg/domain/interfaces"
	"github.com/secmon-lab/collectdesk/pkg/domain/model/auth"
	"github.com/secmon-lab/collectdesk/pkg/domain/types"
	"github.com/secmon-lab/collectdesk/pkg/usecase"
	"github.com/secmon-lab/collectdesk/pkg/utils/logging"
	"github.com/urfave/cli/v3"
)

// Auth holds CLI flags for access token verification
type Auth struct {
	jwksURL  string
	audience string
	issuer   string

	noAuthUID    string
	noAuthRole   string
	noAuthClient string
}

func (x *Auth) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "auth-jwks-url",
			Usage:       "JWKS endpoint of the gateway that issues access tokens",
			Category:    "Authentication",
			Sources:     cli.EnvVars("COLLECTDESK_AUTH_JWKS_URL"),
			Destination: &x.jwksURL,
		},
		&cli.StringFlag{
			Name:        "auth-audience",
			Usage:       "Required audience of access tokens",
			Category:    "Authentication",
			Sources:     cli.EnvVars("COLLECTDESK_AUTH_AUDIENCE"),
			Destination: &x.audience,
		},
		&cli.StringFlag{
			Name:        "auth-issuer",
			Usage:       "Required issuer of access tokens",
			Category:    "Authentication",
			Sources:     cli.EnvVars("COLLECTDESK_AUTH_ISSUER"),
			Destination: &x.issuer,
		},
		&cli.StringFlag{
			Name:        "no-auth",
			Usage:       "Skip authentication and run as the specified user ID (development only). Example: --no-auth=agent-1",
			Category:    "Authentication",
			Sources:     cli.EnvVars("COLLECTDESK_NO_AUTH"),
			Destination: &x.noAuthUID,
		},
		&cli.StringFlag{
			Name:        "no-auth-role",
			Usage:       "Role of the --no-auth user (CLIENT, AGENT, ADMIN or DPO)",
			Category:    "Authentication",
			Value:       string(types.RoleAdmin),
			Sources:     cli.EnvVars("COLLECTDESK_NO_AUTH_ROLE"),
			Destination: &x.noAuthRole,
		},
		&cli.StringFlag{
			Name:        "no-auth-client-id",
			Usage:       "Client organization of the --no-auth user",
			Category:    "Authentication",
			Sources:     cli.EnvVars("COLLECTDESK_NO_AUTH_CLIENT_ID"),
			Destination: &x.noAuthClient,
		},
	}
}

func (x Auth) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("jwks_url", x.jwksURL),
		slog.String("audience", x.audience),
		slog.String("issuer", x.issuer),
		slog.String("no_auth", x.noAuthUID),
	)
}

// IsNoAuthMode returns true if no-auth mode is enabled
func (x *Auth) IsNoAuthMode() bool {
	return x.noAuthUID != ""
}

// Configure returns the token verifier. No-auth mode takes precedence over
// JWKS verification.
func (x *Auth) Configure(ctx context.Context, repo interfaces.Repository) (usecase.AuthUseCaseInterface, error) {
	if x.noAuthUID != "" {
		role := types.Role(x.noAuthRole)
		if !role.IsValid() {
			return nil, goerr.New("invalid --no-auth-role", goerr.V("role", x.noAuthRole))
		}
		if role == types.RoleClient && x.noAuthClient == "" {
			return nil, goerr.New("--no-auth-client-id is required for a CLIENT no-auth user")
		}
		if x.jwksURL != "" {
			logging.Default().Warn("--no-auth is set, ignoring --auth-jwks-url")
		}

		return usecase.NewNoAuthnUseCase(repo, auth.Identity{
			UserID:   x.noAuthUID,
			Role:     role,
			ClientID: x.noAuthClient,
		}), nil
	}

	if x.jwksURL == "" {
		return nil, goerr.New("token verification is required: set --auth-jwks-url, or use --no-auth for development")
	}

	keySet, err := usecase.FetchJWKS(ctx, x.jwksURL)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to load JWKS", goerr.V("url", x.jwksURL))
	}

	var opts []usecase.AuthOption
	if x.audience != "" {
		opts = append(opts, usecase.WithAudience(x.audience))
	}
	if x.issuer != "" {
		opts = append(opts, usecase.WithIssuer(x.issuer))
	}
	return usecase.NewAuthUseCase(repo, keySet, opts...), nil
}
