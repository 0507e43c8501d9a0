package usecase

import (
	"context"

	"github.com/secmon-lab/collectdesk/pkg/domain/interfaces"
	"github.com/secmon-lab/collectdesk/pkg/domain/model/auth"
	"github.com/secmon-lab/collectdesk/pkg/utils/logging"
)

// NoAuthnUseCase authenticates every request as a fixed user (for development/testing)
type NoAuthnUseCase struct {
	repo     interfaces.Repository
	identity auth.Identity
}

// NewNoAuthnUseCase creates a new NoAuthnUseCase instance with specified user info
func NewNoAuthnUseCase(repo interfaces.Repository, identity auth.Identity) *NoAuthnUseCase {
	return &NoAuthnUseCase{
		repo:     repo,
		identity: identity,
	}
}

// Authenticate ignores the token and returns the configured user. Name and
// client organization are filled from the profile directory when the user
// has a profile and the configuration left them empty.
func (uc *NoAuthnUseCase) Authenticate(ctx context.Context, token auth.Token) (*auth.Identity, error) {
	id := uc.identity

	if uc.repo != nil {
		profile, err := uc.repo.Profile().Get(ctx, id.UserID)
		if err == nil {
			if id.Name == "" {
				id.Name = profile.Name
			}
			if id.Email == "" {
				id.Email = profile.Email
			}
			if id.ClientID == "" {
				id.ClientID = profile.ClientID
			}
		} else {
			logging.From(ctx).Debug("no profile for no-authn user", "user_id", id.UserID)
		}
	}

	return &id, nil
}

// IsNoAuthn returns true for NoAuthnUseCase
func (uc *NoAuthnUseCase) IsNoAuthn() bool {
	return true
}
