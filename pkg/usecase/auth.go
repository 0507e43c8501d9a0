package usecase

import (
	"context"
	"errors"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwk"
	"github.com/lestrrat-go/jwx/v2/jwt"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/collectdesk/pkg/domain/interfaces"
	"github.com/secmon-lab/collectdesk/pkg/domain/model/auth"
)

// AuthUseCaseInterface resolves a bearer token into the caller identity
type AuthUseCaseInterface interface {
	Authenticate(ctx context.Context, token auth.Token) (*auth.Identity, error)
	IsNoAuthn() bool
}

// AuthUseCase verifies access tokens issued by the gateway and maps the
// subject to its profile. Roles and client organizations come from the
// profile directory, never from token claims.
type AuthUseCase struct {
	repo     interfaces.Repository
	keySet   jwk.Set
	audience string
	issuer   string
	cache    *authCache
}

// AuthOption is a functional option for AuthUseCase
type AuthOption func(*AuthUseCase)

// WithAudience requires the aud claim to contain audience
func WithAudience(audience string) AuthOption {
	return func(uc *AuthUseCase) {
		uc.audience = audience
	}
}

// WithIssuer requires the iss claim to equal issuer
func WithIssuer(issuer string) AuthOption {
	return func(uc *AuthUseCase) {
		uc.issuer = issuer
	}
}

func NewAuthUseCase(repo interfaces.Repository, keySet jwk.Set, options ...AuthOption) *AuthUseCase {
	uc := &AuthUseCase{
		repo:   repo,
		keySet: keySet,
		cache:  newAuthCache(),
	}

	for _, opt := range options {
		opt(uc)
	}

	return uc
}

// FetchJWKS registers the gateway JWKS endpoint in an auto-refreshing cache
// and returns the cached key set. The first fetch happens here so a bad URL
// fails at startup.
func FetchJWKS(ctx context.Context, jwksURL string) (jwk.Set, error) {
	c := jwk.NewCache(ctx)
	if err := c.Register(jwksURL, jwk.WithMinRefreshInterval(15*time.Minute)); err != nil {
		return nil, goerr.Wrap(err, "failed to register JWKS URL", goerr.V("jwks_url", jwksURL))
	}
	if _, err := c.Refresh(ctx, jwksURL); err != nil {
		return nil, goerr.Wrap(err, "failed to fetch JWKS", goerr.V("jwks_url", jwksURL))
	}
	return jwk.NewCachedSet(c, jwksURL), nil
}

// IsNoAuthn returns false for regular AuthUseCase
func (uc *AuthUseCase) IsNoAuthn() bool {
	return false
}

// Authenticate verifies the token signature and standard claims, then
// resolves the subject through the profile directory
func (uc *AuthUseCase) Authenticate(ctx context.Context, token auth.Token) (*auth.Identity, error) {
	if token == "" {
		return nil, goerr.Wrap(ErrUnauthenticated, "missing bearer token")
	}

	if id, ok := uc.cache.get(token); ok {
		return id, nil
	}

	opts := []jwt.ParseOption{
		jwt.WithKeySet(uc.keySet),
		jwt.WithValidate(true),
		// Allow 10 seconds of clock skew between the gateway and this server
		jwt.WithAcceptableSkew(10 * time.Second),
	}
	if uc.audience != "" {
		opts = append(opts, jwt.WithAudience(uc.audience))
	}
	if uc.issuer != "" {
		opts = append(opts, jwt.WithIssuer(uc.issuer))
	}

	parsed, err := jwt.Parse([]byte(token), opts...)
	if err != nil {
		return nil, goerr.Wrap(ErrUnauthenticated, "failed to verify token", goerr.V("reason", err.Error()))
	}

	sub := parsed.Subject()
	if sub == "" {
		return nil, goerr.Wrap(ErrUnauthenticated, "sub claim not found in token")
	}

	var email string
	if v, ok := parsed.Get("email"); ok {
		email, _ = v.(string)
	}

	profile, err := uc.repo.Profile().Get(ctx, sub)
	if err != nil {
		if errors.Is(err, interfaces.ErrNotFound) {
			return nil, goerr.Wrap(ErrAccessDenied, "no profile for token subject", goerr.V(UserIDKey, sub))
		}
		return nil, goerr.Wrap(err, "failed to get profile", goerr.V(UserIDKey, sub))
	}

	if email == "" {
		email = profile.Email
	}
	id := &auth.Identity{
		UserID:   sub,
		Email:    email,
		Name:     profile.Name,
		Role:     profile.Role,
		ClientID: profile.ClientID,
	}

	uc.cache.set(token, id, parsed.Expiration())
	return id, nil
}
