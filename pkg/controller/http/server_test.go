package http_test

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"

	"github.com/m-mizutani/gt"
	httpctrl "github.com/secmon-lab/collectdesk/pkg/controller/http"
	"github.com/secmon-lab/collectdesk/pkg/domain/model"
	"github.com/secmon-lab/collectdesk/pkg/domain/types"
	"github.com/secmon-lab/collectdesk/pkg/usecase"
)

func TestServer_Health(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodGet, "/health", "", nil)
	gt.Value(t, w.Code).Equal(http.StatusOK)
	gt.String(t, w.Body.String()).Contains(`"ok"`)

	w = env.do(t, http.MethodGet, "/metrics", "", nil)
	gt.Value(t, w.Code).Equal(http.StatusOK)
	gt.String(t, w.Body.String()).Contains("collectdesk_requests_total")
}

func TestServer_Authentication(t *testing.T) {
	env := newTestEnv(t)

	t.Run("missing token", func(t *testing.T) {
		w := env.do(t, http.MethodGet, "/api/cases", "", nil)
		gt.Value(t, w.Code).Equal(http.StatusUnauthorized)
		gt.String(t, w.Header().Get("Content-Type")).Contains("application/json")
	})

	t.Run("unknown token", func(t *testing.T) {
		w := env.do(t, http.MethodGet, "/api/cases", "forged", nil)
		gt.Value(t, w.Code).Equal(http.StatusUnauthorized)
	})
}

func TestServer_Cases(t *testing.T) {
	env := newTestEnv(t)
	acme := env.createCase(t, "acme", "agent-1")
	env.createCase(t, "acme", "agent-2")
	globex := env.createCase(t, "globex", "agent-1")

	t.Run("list is scoped with the fixed page size", func(t *testing.T) {
		w := env.do(t, http.MethodGet, "/api/cases?page_size=1&sort=amount&order=asc", clientToken, nil)
		gt.Value(t, w.Code).Equal(http.StatusOK)

		res := decode[model.CaseQueryResult](t, w)
		gt.Value(t, res.Total).Equal(2)
		gt.Value(t, res.TotalPages).Equal(1)
		gt.Array(t, res.Cases).Length(2)
	})

	t.Run("invalid controls fall back to defaults", func(t *testing.T) {
		w := env.do(t, http.MethodGet, "/api/cases?sort=debtor&order=sideways&page=x", adminToken, nil)
		gt.Value(t, w.Code).Equal(http.StatusOK)
		res := decode[model.CaseQueryResult](t, w)
		gt.Value(t, res.Total).Equal(3)
		gt.Value(t, res.Page).Equal(1)
	})

	t.Run("get visible case", func(t *testing.T) {
		w := env.do(t, http.MethodGet, "/api/cases/"+acme.ID, clientToken, nil)
		gt.Value(t, w.Code).Equal(http.StatusOK)
		gt.Value(t, decode[model.Case](t, w).Reference).Equal(acme.Reference)
	})

	t.Run("other organization is forbidden", func(t *testing.T) {
		w := env.do(t, http.MethodGet, "/api/cases/"+globex.ID, clientToken, nil)
		gt.Value(t, w.Code).Equal(http.StatusForbidden)
	})

	t.Run("unknown case is not found", func(t *testing.T) {
		w := env.do(t, http.MethodGet, "/api/cases/a1b2c3d4-0000-0000-0000-000000000000", adminToken, nil)
		gt.Value(t, w.Code).Equal(http.StatusNotFound)
	})

	t.Run("status update", func(t *testing.T) {
		w := env.do(t, http.MethodPatch, "/api/cases/"+acme.ID+"/status", agentToken, map[string]string{"status": "in_progress"})
		gt.Value(t, w.Code).Equal(http.StatusOK)
		gt.Value(t, decode[model.Case](t, w).Status).Equal(types.CaseStatusInProgress)

		w = env.do(t, http.MethodPatch, "/api/cases/"+acme.ID+"/status", agentToken, map[string]string{"status": "paid"})
		gt.Value(t, w.Code).Equal(http.StatusBadRequest)

		w = env.do(t, http.MethodPatch, "/api/cases/"+acme.ID+"/status", agentToken, map[string]string{})
		gt.Value(t, w.Code).Equal(http.StatusBadRequest)
		gt.String(t, decode[errorBody](t, w).Error).Contains("status is required")

		w = env.do(t, http.MethodPatch, "/api/cases/"+acme.ID+"/status", clientToken, map[string]string{"status": "closed"})
		gt.Value(t, w.Code).Equal(http.StatusForbidden)
	})

	t.Run("unknown body fields are rejected", func(t *testing.T) {
		w := env.do(t, http.MethodPatch, "/api/cases/"+acme.ID+"/status", agentToken, map[string]string{"status": "new", "force": "yes"})
		gt.Value(t, w.Code).Equal(http.StatusBadRequest)
	})
}

func TestServer_Actions(t *testing.T) {
	env := newTestEnv(t)
	c := env.createCase(t, "acme", "agent-1")
	path := "/api/cases/" + c.ID + "/actions"

	w := env.do(t, http.MethodPost, path, agentToken, map[string]string{
		"action_type": "settlement_offer",
		"description": "Offered 20% discount",
		"priority":    "high",
	})
	gt.Value(t, w.Code).Equal(http.StatusCreated)

	var created struct {
		ID       string `json:"id"`
		Label    string `json:"label"`
		Category string `json:"category"`
		Priority string `json:"priority"`
		Status   string `json:"status"`
	}
	gt.NoError(t, json.Unmarshal(w.Body.Bytes(), &created)).Required()
	gt.Value(t, created.Label).Equal("Settlement Offer")
	gt.Value(t, created.Priority).Equal("high")
	gt.Value(t, created.Status).Equal("completed")

	t.Run("unassigned agent is forbidden", func(t *testing.T) {
		w := env.do(t, http.MethodPost, path, agent2Token, map[string]string{"action_type": "meeting", "description": "x"})
		gt.Value(t, w.Code).Equal(http.StatusForbidden)
	})

	t.Run("invalid priority", func(t *testing.T) {
		w := env.do(t, http.MethodPost, path, agentToken, map[string]string{"action_type": "meeting", "description": "x", "priority": "asap"})
		gt.Value(t, w.Code).Equal(http.StatusBadRequest)
		gt.String(t, decode[errorBody](t, w).Error).Contains("priority must be one of")
	})

	t.Run("client reads the audit log", func(t *testing.T) {
		w := env.do(t, http.MethodGet, path, clientToken, nil)
		gt.Value(t, w.Code).Equal(http.StatusOK)
		var list []map[string]any
		gt.NoError(t, json.Unmarshal(w.Body.Bytes(), &list)).Required()
		gt.Array(t, list).Length(1)
		gt.Value(t, list[0]["id"]).Equal(any(created.ID))
	})
}

func multipartCase(t *testing.T, caseJSON string, files map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	gt.NoError(t, mw.WriteField("case", caseJSON)).Required()

	for name, contentType := range files {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", `form-data; name="documents"; filename="`+name+`"`)
		h.Set("Content-Type", contentType)
		part, err := mw.CreatePart(h)
		gt.NoError(t, err).Required()
		_, err = part.Write([]byte("content of " + name))
		gt.NoError(t, err).Required()
	}
	gt.NoError(t, mw.Close()).Required()
	return &buf, mw.FormDataContentType()
}

func TestServer_CreateCase(t *testing.T) {
	env := newTestEnv(t)

	post := func(t *testing.T, caseJSON string, files map[string]string) *httptest.ResponseRecorder {
		body, contentType := multipartCase(t, caseJSON, files)
		req := httptest.NewRequest(http.MethodPost, "/api/cases", body)
		req.Header.Set("Content-Type", contentType)
		req.Header.Set("Authorization", "Bearer "+clientToken)
		w := httptest.NewRecorder()
		env.handler.ServeHTTP(w, req)
		return w
	}

	t.Run("case with documents", func(t *testing.T) {
		w := post(t, `{
			"debtor_name": "Northwind Traders",
			"debtor_email": "billing@northwind.example",
			"address": {"city": "Lyon", "country": "FR"},
			"amount": "980.00",
			"currency": "EUR",
			"reference": "INV-77"
		}`, map[string]string{
			"invoice.pdf": "application/pdf",
			"script.sh":   "text/x-shellscript",
		})
		gt.Value(t, w.Code).Equal(http.StatusCreated)

		res := decode[usecase.IntakeResult](t, w)
		gt.Value(t, res.Case.ClientID).Equal("acme")
		gt.Array(t, res.Documents).Length(1)
		gt.Array(t, res.Rejections).Length(1)
		gt.Value(t, res.Rejections[0].Name).Equal("script.sh")
		gt.Array(t, env.store.Paths()).Length(1)
	})

	t.Run("invalid email", func(t *testing.T) {
		w := post(t, `{
			"debtor_name": "Northwind Traders",
			"debtor_email": "not-an-email",
			"address": {"city": "Lyon", "country": "FR"},
			"amount": "980.00",
			"reference": "INV-78"
		}`, nil)
		gt.Value(t, w.Code).Equal(http.StatusBadRequest)
		gt.String(t, decode[errorBody](t, w).Error).Contains("debtor_email must be a valid email address")
	})

	t.Run("missing address fails the wizard", func(t *testing.T) {
		w := post(t, `{
			"debtor_name": "Northwind Traders",
			"debtor_email": "billing@northwind.example",
			"amount": "980.00",
			"reference": "INV-79"
		}`, nil)
		gt.Value(t, w.Code).Equal(http.StatusBadRequest)
	})

	t.Run("case field is not JSON", func(t *testing.T) {
		w := post(t, `debtor=x`, nil)
		gt.Value(t, w.Code).Equal(http.StatusBadRequest)
	})
}

func TestServer_Export(t *testing.T) {
	env := newTestEnv(t)
	env.createCase(t, "acme", "agent-1")
	env.createCase(t, "globex", "agent-1")

	w := env.do(t, http.MethodGet, "/api/cases/export?format=csv", clientToken, nil)
	gt.Value(t, w.Code).Equal(http.StatusOK)
	gt.String(t, w.Header().Get("Content-Type")).Contains("text/csv")
	gt.String(t, w.Header().Get("Content-Disposition")).Contains(".csv")

	records, err := csv.NewReader(w.Body).ReadAll()
	gt.NoError(t, err).Required()
	gt.Array(t, records).Length(2)

	w = env.do(t, http.MethodGet, "/api/cases/export?format=pdf", clientToken, nil)
	gt.Value(t, w.Code).Equal(http.StatusBadRequest)
}

func TestServer_Conversations(t *testing.T) {
	env := newTestEnv(t)
	c := env.createCase(t, "acme", "agent-1")

	w := env.do(t, http.MethodPost, "/api/conversations", agentToken, map[string]any{
		"title":             "Case chat",
		"type":              "case",
		"case_id":           c.ID,
		"is_client_visible": true,
	})
	gt.Value(t, w.Code).Equal(http.StatusCreated)
	var created struct {
		Conversation model.Conversation `json:"conversation"`
		Warning      string             `json:"warning"`
	}
	gt.NoError(t, json.Unmarshal(w.Body.Bytes(), &created)).Required()
	gt.Value(t, created.Warning).Equal("")
	convID := created.Conversation.ID

	t.Run("case conversation without case id", func(t *testing.T) {
		w := env.do(t, http.MethodPost, "/api/conversations", agentToken, map[string]any{"type": "case"})
		gt.Value(t, w.Code).Equal(http.StatusBadRequest)
	})

	t.Run("messages round trip", func(t *testing.T) {
		w := env.do(t, http.MethodPost, "/api/conversations/"+convID+"/messages", agentToken, map[string]any{"content": "hello"})
		gt.Value(t, w.Code).Equal(http.StatusCreated)

		w = env.do(t, http.MethodPost, "/api/conversations/"+convID+"/messages", agentToken, map[string]any{"content": "note", "is_internal": true})
		gt.Value(t, w.Code).Equal(http.StatusCreated)

		w = env.do(t, http.MethodGet, "/api/conversations/"+convID+"/messages", clientToken, nil)
		gt.Value(t, w.Code).Equal(http.StatusOK)
		msgs := decode[[]model.Message](t, w)
		gt.Array(t, msgs).Length(1)
		gt.Value(t, msgs[0].Content).Equal("hello")

		w = env.do(t, http.MethodGet, "/api/conversations/"+convID+"/messages?limit=1", agentToken, nil)
		gt.Value(t, w.Code).Equal(http.StatusOK)
		gt.Array(t, decode[[]model.Message](t, w)).Length(1)
	})

	t.Run("empty message", func(t *testing.T) {
		w := env.do(t, http.MethodPost, "/api/conversations/"+convID+"/messages", agentToken, map[string]any{"content": " "})
		gt.Value(t, w.Code).Equal(http.StatusBadRequest)
	})

	t.Run("participants and read state", func(t *testing.T) {
		w := env.do(t, http.MethodPost, "/api/conversations/"+convID+"/participants", agentToken, map[string]any{"user_id": "client-user-1", "user_role": "CLIENT"})
		gt.Value(t, w.Code).Equal(http.StatusCreated)

		w = env.do(t, http.MethodPost, "/api/conversations/"+convID+"/read", clientToken, nil)
		gt.Value(t, w.Code).Equal(http.StatusNoContent)

		w = env.do(t, http.MethodGet, "/api/conversations", clientToken, nil)
		gt.Value(t, w.Code).Equal(http.StatusOK)
		list := decode[[]model.ConversationSummary](t, w)
		gt.Array(t, list).Length(1)
		gt.Value(t, list[0].UnreadCount).Equal(0)
	})

	t.Run("case conversations", func(t *testing.T) {
		w := env.do(t, http.MethodGet, "/api/cases/"+c.ID+"/conversations", clientToken, nil)
		gt.Value(t, w.Code).Equal(http.StatusOK)
		gt.Array(t, decode[[]model.ConversationSummary](t, w)).Length(1)

		w = env.do(t, http.MethodGet, "/api/conversations/"+convID, otherToken, nil)
		gt.Value(t, w.Code).Equal(http.StatusForbidden)
	})
}

func TestServer_Reference(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodGet, "/api/currencies", clientToken, nil)
	gt.Value(t, w.Code).Equal(http.StatusOK)
	gt.String(t, w.Body.String()).Contains(`"CHF"`)

	w = env.do(t, http.MethodGet, "/api/action-types", clientToken, nil)
	gt.Value(t, w.Code).Equal(http.StatusOK)
	gt.String(t, w.Body.String()).Contains("phone_call")

	w = env.do(t, http.MethodGet, "/api/reference/debt_statuses", clientToken, nil)
	gt.Value(t, w.Code).Equal(http.StatusOK)

	w = env.do(t, http.MethodGet, "/api/reference/passwords", clientToken, nil)
	gt.Value(t, w.Code).Equal(http.StatusBadRequest)
}

func TestServer_WriteRateLimit(t *testing.T) {
	env := newTestEnv(t, httpctrl.WithWriteRateLimit(1))
	c := env.createCase(t, "acme", "agent-1")
	path := "/api/cases/" + c.ID + "/status"

	w := env.do(t, http.MethodPatch, path, agentToken, map[string]string{"status": "in_progress"})
	gt.Value(t, w.Code).Equal(http.StatusOK)

	w = env.do(t, http.MethodPatch, path, agentToken, map[string]string{"status": "closed"})
	gt.Value(t, w.Code).Equal(http.StatusTooManyRequests)
	gt.String(t, w.Header().Get("Retry-After")).NotEqual("")

	// reads are not limited
	w = env.do(t, http.MethodGet, "/api/cases/"+c.ID, agentToken, nil)
	gt.Value(t, w.Code).Equal(http.StatusOK)

	// the limit is per user
	w = env.do(t, http.MethodPatch, path, adminToken, map[string]string{"status": "closed"})
	gt.Value(t, w.Code).Equal(http.StatusOK)
	gt.Bool(t, strings.Contains(w.Body.String(), "closed")).True()
}
