package model

import (
	"fmt"
	"time"

	"github.com/secmon-lab/collectdesk/pkg/domain/types"
)

// Profile is a directory entry for a user of the platform
type Profile struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	Email     string     `json:"email"`
	Role      types.Role `json:"role"`
	ClientID  string     `json:"client_id,omitempty"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// FallbackParticipantName is used when no profile exists for a user
func FallbackParticipantName(userID string) string {
	return fmt.Sprintf("User %s", userID)
}

// FallbackParticipantRole is used when no profile exists for a user
const FallbackParticipantRole = types.RoleAgent
