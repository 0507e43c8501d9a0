package interfaces

import "github.com/secmon-lab/collectdesk/pkg/domain/types"

// ListCaseOption is a functional option for filtering cases in List. These
// filters are pushed down to the store; callers still apply role scoping on
// the returned rows.
type ListCaseOption func(*listCaseConfig)

type listCaseConfig struct {
	status          *types.CaseStatus
	clientID        *string
	assignedAgentID *string
}

// WithStatus filters cases by status
func WithStatus(status types.CaseStatus) ListCaseOption {
	return func(c *listCaseConfig) {
		c.status = &status
	}
}

// WithClientID filters cases owned by a client organization
func WithClientID(clientID string) ListCaseOption {
	return func(c *listCaseConfig) {
		c.clientID = &clientID
	}
}

// WithAssignedAgentID filters cases assigned to an agent
func WithAssignedAgentID(agentID string) ListCaseOption {
	return func(c *listCaseConfig) {
		c.assignedAgentID = &agentID
	}
}

// BuildListCaseConfig builds a listCaseConfig from options
func BuildListCaseConfig(opts ...ListCaseOption) *listCaseConfig {
	cfg := &listCaseConfig{}
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// Status returns the status filter value, or nil if not set
func (c *listCaseConfig) Status() *types.CaseStatus {
	return c.status
}

// ClientID returns the client filter value, or nil if not set
func (c *listCaseConfig) ClientID() *string {
	return c.clientID
}

// AssignedAgentID returns the agent filter value, or nil if not set
func (c *listCaseConfig) AssignedAgentID() *string {
	return c.assignedAgentID
}
