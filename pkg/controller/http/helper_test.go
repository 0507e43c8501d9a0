package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/gt"
	httpctrl "github.com/secmon-lab/collectdesk/pkg/controller/http"
	"github.com/secmon-lab/collectdesk/pkg/domain/interfaces"
	"github.com/secmon-lab/collectdesk/pkg/domain/model"
	"github.com/secmon-lab/collectdesk/pkg/domain/model/auth"
	"github.com/secmon-lab/collectdesk/pkg/domain/types"
	"github.com/secmon-lab/collectdesk/pkg/repository/memory"
	"github.com/secmon-lab/collectdesk/pkg/repository/publish"
	"github.com/secmon-lab/collectdesk/pkg/service/realtime"
	"github.com/secmon-lab/collectdesk/pkg/service/storage"
	"github.com/secmon-lab/collectdesk/pkg/usecase"
)

// tokenAuth maps fixed tokens to identities
type tokenAuth map[auth.Token]*auth.Identity

func (a tokenAuth) Authenticate(ctx context.Context, token auth.Token) (*auth.Identity, error) {
	id, ok := a[token]
	if !ok {
		return nil, goerr.Wrap(usecase.ErrUnauthenticated, "unknown token")
	}
	return id, nil
}

func (a tokenAuth) IsNoAuthn() bool { return false }

const (
	adminToken  = "token-admin"
	agentToken  = "token-agent"
	agent2Token = "token-agent2"
	clientToken = "token-client"
	otherToken  = "token-other"
)

var identities = tokenAuth{
	adminToken:  {UserID: "admin-1", Email: "admin@desk.example", Role: types.RoleAdmin},
	agentToken:  {UserID: "agent-1", Email: "agent1@desk.example", Role: types.RoleAgent},
	agent2Token: {UserID: "agent-2", Email: "agent2@desk.example", Role: types.RoleAgent},
	clientToken: {UserID: "client-user-1", Email: "ap@acme.example", Role: types.RoleClient, ClientID: "acme"},
	otherToken:  {UserID: "client-user-2", Email: "ap@globex.example", Role: types.RoleClient, ClientID: "globex"},
}

type testEnv struct {
	repo    interfaces.Repository
	store   *storage.Memory
	uc      *usecase.UseCases
	handler http.Handler
}

func newTestEnv(t *testing.T, opts ...httpctrl.Options) *testEnv {
	t.Helper()
	feed := realtime.NewMemory()
	t.Cleanup(func() { _ = feed.Close() })

	repo := publish.New(memory.New(), feed)
	store := storage.NewMemory()
	uc := usecase.New(repo,
		usecase.WithChangeFeed(feed),
		usecase.WithDocumentStorage(store),
		usecase.WithAuth(identities),
	)

	return &testEnv{
		repo:    repo,
		store:   store,
		uc:      uc,
		handler: httpctrl.New(uc, opts...),
	}
}

func (e *testEnv) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		gt.NoError(t, err).Required()
		r = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, r)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	e.handler.ServeHTTP(w, req)
	return w
}

func (e *testEnv) createCase(t *testing.T, clientOrg, agent string) *model.Case {
	t.Helper()
	c, err := e.repo.Case().Create(context.Background(), &model.Case{
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

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	gt.NoError(t, json.Unmarshal(w.Body.Bytes(), &v)).Required()
	return v
}

type errorBody struct {
	Error string `json:"error"`
}
