package http

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/collectdesk/pkg/domain/model"
	"github.com/secmon-lab/collectdesk/pkg/domain/types"
	"github.com/secmon-lab/collectdesk/pkg/usecase"
	"github.com/secmon-lab/collectdesk/pkg/utils/safe"
)

// caseQueryFromRequest reads the list controls. Malformed values fall back
// to their defaults, matching the query pipeline's never-fail contract.
func caseQueryFromRequest(r *http.Request) model.CaseQuery {
	qs := r.URL.Query()

	key, err := types.ParseCaseSortKey(qs.Get("sort"))
	if err != nil {
		key = types.CaseSortCreatedAt
	}
	order, err := types.ParseSortOrder(qs.Get("order"))
	if err != nil {
		order = types.SortDesc
	}
	page, _ := strconv.Atoi(qs.Get("page"))

	return model.CaseQuery{
		Search:    qs.Get("search"),
		Status:    qs.Get("status"),
		SortKey:   key,
		SortOrder: order,
		Page:      page,
	}
}

func (s *Server) listCases(w http.ResponseWriter, r *http.Request) {
	res, err := s.uc.Case.ListCases(r.Context(), caseQueryFromRequest(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(r.Context(), w, http.StatusOK, res)
}

func (s *Server) exportCases(w http.ResponseWriter, r *http.Request) {
	format, err := usecase.ParseExportFormat(r.URL.Query().Get("format"))
	if err != nil {
		writeError(w, r, err)
		return
	}

	// Buffered so a failure can still be reported as an error response
	var buf bytes.Buffer
	if _, err := s.uc.Case.ExportCases(r.Context(), caseQueryFromRequest(r), format, &buf); err != nil {
		writeError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition", `attachment; filename="`+format.FileName(time.Now())+`"`)
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	safe.Write(r.Context(), w, buf.Bytes())
}

func (s *Server) getCase(w http.ResponseWriter, r *http.Request) {
	c, err := s.uc.Case.GetCase(r.Context(), chi.URLParam(r, "caseID"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(r.Context(), w, http.StatusOK, c)
}

type updateStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

func (s *Server) updateCaseStatus(w http.ResponseWriter, r *http.Request) {
	var req updateStatusRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	c, err := s.uc.Case.UpdateCaseStatus(r.Context(), chi.URLParam(r, "caseID"), req.Status)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(r.Context(), w, http.StatusOK, c)
}

type intakeRequest struct {
	DebtorName  string        `json:"debtor_name" validate:"required"`
	DebtorEmail string        `json:"debtor_email" validate:"required,email"`
	DebtorPhone string        `json:"debtor_phone"`
	Address     model.Address `json:"address"`
	Amount      string        `json:"amount" validate:"required,numeric"`
	Currency    string        `json:"currency" validate:"omitempty,len=3"`
	Reference   string        `json:"reference" validate:"required"`
	Notes       string        `json:"notes"`
}

func (req *intakeRequest) draft() model.IntakeDraft {
	return model.IntakeDraft{
		DebtorName:  req.DebtorName,
		DebtorEmail: req.DebtorEmail,
		DebtorPhone: req.DebtorPhone,
		Address:     req.Address,
		Amount:      req.Amount,
		Currency:    req.Currency,
		Reference:   req.Reference,
		Notes:       req.Notes,
	}
}

// createCase accepts a multipart form with the wizard values as JSON in the
// "case" field and any number of "documents" files
func (s *Server) createCase(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadSize)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		writeError(w, r, goerr.Wrap(model.ErrInvalidValue, "invalid multipart form", goerr.V("reason", err.Error())))
		return
	}
	defer func() {
		_ = r.MultipartForm.RemoveAll()
	}()

	var req intakeRequest
	if err := json.Unmarshal([]byte(r.FormValue("case")), &req); err != nil {
		writeError(w, r, goerr.Wrap(model.ErrInvalidValue, "case field is not valid JSON", goerr.V("reason", err.Error())))
		return
	}
	if err := validateStruct(&req); err != nil {
		writeError(w, r, err)
		return
	}

	files, err := readAttachments(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	result, err := s.uc.Intake.SubmitDraft(r.Context(), req.draft(), files)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(r.Context(), w, http.StatusCreated, result)
}

func readAttachments(r *http.Request) ([]*model.Attachment, error) {
	headers := r.MultipartForm.File["documents"]
	files := make([]*model.Attachment, 0, len(headers))
	for _, fh := range headers {
		f, err := fh.Open()
		if err != nil {
			return nil, goerr.Wrap(err, "failed to open uploaded file", goerr.V("name", fh.Filename))
		}
		data, err := io.ReadAll(f)
		safe.Close(r.Context(), f)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to read uploaded file", goerr.V("name", fh.Filename))
		}

		contentType := fh.Header.Get("Content-Type")
		if contentType == "" {
			contentType = http.DetectContentType(data)
		}
		files = append(files, &model.Attachment{
			Name:        fh.Filename,
			ContentType: contentType,
			Size:        fh.Size,
			Data:        data,
		})
	}
	return files, nil
}

func (s *Server) listActions(w http.ResponseWriter, r *http.Request) {
	actions, err := s.uc.Action.ListActions(r.Context(), chi.URLParam(r, "caseID"))
	if err != nil {
		writeError(w, r, err)
		return
	}

	resp := make([]actionResponse, 0, len(actions))
	for _, a := range actions {
		resp = append(resp, newActionResponse(a))
	}
	writeJSON(r.Context(), w, http.StatusOK, resp)
}

type logActionRequest struct {
	ActionType      string `json:"action_type" validate:"required"`
	Description     string `json:"description" validate:"required"`
	Priority        string `json:"priority" validate:"omitempty,oneof=low medium high urgent"`
	Outcome         string `json:"outcome"`
	NextAction      string `json:"next_action"`
	DurationMinutes string `json:"duration_minutes" validate:"omitempty,number"`
}

// actionResponse adds the derived display fields to a stored action
type actionResponse struct {
	*model.Action
	Label    string               `json:"label"`
	Icon     types.ActionIcon     `json:"icon"`
	Category types.ActionCategory `json:"category"`
	Priority types.Priority       `json:"priority"`
}

func newActionResponse(a *model.Action) actionResponse {
	d := a.Display()
	return actionResponse{
		Action:   a,
		Label:    d.Label,
		Icon:     d.Icon,
		Category: d.Category,
		Priority: a.EffectivePriority(),
	}
}

func (s *Server) logAction(w http.ResponseWriter, r *http.Request) {
	var req logActionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	action, err := s.uc.Action.LogAction(r.Context(), chi.URLParam(r, "caseID"), model.ActionInput{
		ActionType:      req.ActionType,
		Description:     req.Description,
		Priority:        req.Priority,
		Outcome:         req.Outcome,
		NextAction:      req.NextAction,
		DurationMinutes: req.DurationMinutes,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(r.Context(), w, http.StatusCreated, newActionResponse(action))
}

func (s *Server) listCaseConversations(w http.ResponseWriter, r *http.Request) {
	convs, err := s.uc.Conversation.ListCaseConversations(r.Context(), chi.URLParam(r, "caseID"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(r.Context(), w, http.StatusOK, convs)
}
