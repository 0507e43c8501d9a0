package usecase_test

import (
	"context"
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/collectdesk/pkg/domain/interfaces"
	"github.com/secmon-lab/collectdesk/pkg/domain/model"
	"github.com/secmon-lab/collectdesk/pkg/domain/model/auth"
	"github.com/secmon-lab/collectdesk/pkg/domain/types"
)

var (
	adminID  = &auth.Identity{UserID: "admin-1", Email: "admin@desk.example", Role: types.RoleAdmin}
	dpoID    = &auth.Identity{UserID: "dpo-1", Email: "dpo@desk.example", Role: types.RoleDPO}
	agentID  = &auth.Identity{UserID: "agent-1", Email: "agent1@desk.example", Role: types.RoleAgent}
	agent2ID = &auth.Identity{UserID: "agent-2", Email: "agent2@desk.example", Role: types.RoleAgent}
	clientID = &auth.Identity{UserID: "client-user-1", Email: "ap@acme.example", Role: types.RoleClient, ClientID: "acme"}
	otherID  = &auth.Identity{UserID: "client-user-2", Email: "ap@globex.example", Role: types.RoleClient, ClientID: "globex"}
)

func as(id *auth.Identity) context.Context {
	return auth.ContextWithIdentity(context.Background(), id)
}

func createCase(t *testing.T, repo interfaces.Repository, clientOrg, agent string) *model.Case {
	t.Helper()
	c, err := repo.Case().Create(context.Background(), &model.Case{
		Reference:       "REF-" + clientOrg + "-" + agent,
		ClientID:        clientOrg,
		AssignedAgentID: agent,
		Debtor:          model.Debtor{Name: "Debtor of " + clientOrg, Email: "debtor@" + clientOrg + ".example"},
		Amount:          100,
		Currency:        "EUR",
		Status:          types.CaseStatusNew,
	})
	gt.NoError(t, err).Required()
	return c
}
