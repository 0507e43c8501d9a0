package model

import (
	"math"
	"strconv"
	"time"

	"github.com/secmon-lab/collectdesk/pkg/domain/model/auth"
	"github.com/secmon-lab/collectdesk/pkg/domain/types"
)

// Address is the structured postal address of a debtor
type Address struct {
	Street     string `json:"street,omitempty"`
	City       string `json:"city,omitempty"`
	PostalCode string `json:"postal_code,omitempty"`
	Country    string `json:"country,omitempty"`
}

// Debtor is the party owing the claimed amount
type Debtor struct {
	Name    string   `json:"name"`
	Email   string   `json:"email"`
	Phone   string   `json:"phone,omitempty"`
	Address *Address `json:"address,omitempty"`
}

// Case represents a debt collection matter tracked from intake to closure
type Case struct {
	ID              string           `json:"id"`
	Reference       string           `json:"reference"`
	ClientID        string           `json:"client_id"`
	AssignedAgentID string           `json:"assigned_agent_id,omitempty"`
	CreatedBy       string           `json:"created_by,omitempty"`
	Debtor          Debtor           `json:"debtor"`
	Amount          float64          `json:"total_amount"`
	Currency        string           `json:"currency_code"`
	Fees            *float64         `json:"total_fees,omitempty"`
	Interest        *float64         `json:"total_interest,omitempty"`
	Penalties       *float64         `json:"total_penalties,omitempty"`
	VAT             *float64         `json:"total_vat,omitempty"`
	Notes           string           `json:"notes,omitempty"`
	Status          types.CaseStatus `json:"status"`
	CreatedAt       time.Time        `json:"created_at"`
	UpdatedAt       time.Time        `json:"updated_at"`
}

// Validate checks the invariants of a case row before it is written
func (c *Case) Validate() error {
	var missing []string
	if c.Reference == "" {
		missing = append(missing, "reference")
	}
	if c.ClientID == "" {
		missing = append(missing, "client_id")
	}
	if c.Debtor.Name == "" {
		missing = append(missing, "debtor.name")
	}
	if c.Currency == "" {
		missing = append(missing, "currency_code")
	}
	if len(missing) > 0 {
		return NewValidationError(missing...)
	}

	if !c.Status.Normalize().IsValid() {
		return NewInvalidValueError("status", string(c.Status))
	}
	if !validAmount(c.Amount) {
		return NewInvalidValueError("total_amount", strconv.FormatFloat(c.Amount, 'g', -1, 64))
	}
	for name, v := range map[string]*float64{
		"total_fees":      c.Fees,
		"total_interest":  c.Interest,
		"total_penalties": c.Penalties,
		"total_vat":       c.VAT,
	} {
		if v != nil && !validAmount(*v) {
			return NewInvalidValueError(name, strconv.FormatFloat(*v, 'g', -1, 64))
		}
	}
	return nil
}

// validAmount reports whether v is a finite, non-negative money amount
func validAmount(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0) && v >= 0
}

// Progress returns the status progression percentage for display
func (c *Case) Progress() int {
	return c.Status.Progress()
}

// CanViewCase reports whether the identity may see the case. ADMIN and DPO
// see every case, a CLIENT sees the cases of its own client organization and
// an AGENT sees the cases assigned to it.
func CanViewCase(c *Case, id *auth.Identity) bool {
	if c == nil || id == nil {
		return false
	}
	switch id.Role {
	case types.RoleAdmin, types.RoleDPO:
		return true
	case types.RoleClient:
		return id.ClientID != "" && c.ClientID == id.ClientID
	case types.RoleAgent:
		return IsAssignedAgent(c, id)
	default:
		return false
	}
}

// IsAssignedAgent reports whether the identity is the agent assigned to the case
func IsAssignedAgent(c *Case, id *auth.Identity) bool {
	if c == nil || id == nil {
		return false
	}
	return id.Role == types.RoleAgent && c.AssignedAgentID != "" && c.AssignedAgentID == id.UserID
}
