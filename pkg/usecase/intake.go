package usecase

import (
	"bytes"
	"context"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/collectdesk/pkg/domain/interfaces"
	"github.com/secmon-lab/collectdesk/pkg/domain/model"
	"github.com/secmon-lab/collectdesk/pkg/domain/model/config"
	"github.com/secmon-lab/collectdesk/pkg/utils/errutil"
	"github.com/secmon-lab/collectdesk/pkg/utils/logging"
	"github.com/secmon-lab/collectdesk/pkg/utils/metrics"
)

type IntakeUseCase struct {
	repo       interfaces.Repository
	storage    interfaces.DocumentStorage
	deskConfig *config.DeskConfig
}

func NewIntakeUseCase(repo interfaces.Repository, storage interfaces.DocumentStorage, cfg *config.DeskConfig) *IntakeUseCase {
	if cfg == nil {
		cfg = config.Default()
	}
	return &IntakeUseCase{
		repo:       repo,
		storage:    storage,
		deskConfig: cfg,
	}
}

// IntakeResult is the outcome of a wizard submission
type IntakeResult struct {
	Case       *model.Case           `json:"case"`
	Documents  []*model.Document     `json:"documents"`
	Rejections []model.FileRejection `json:"rejections,omitempty"`
}

// NewWizard starts a wizard with the configured intake policy
func (uc *IntakeUseCase) NewWizard() *model.IntakeWizard {
	return model.NewIntakeWizard(uc.deskConfig.Intake)
}

// SubmitDraft runs a complete form through the wizard and submits it.
// Rejected files are reported in the result and do not block the case.
func (uc *IntakeUseCase) SubmitDraft(ctx context.Context, draft model.IntakeDraft, files []*model.Attachment) (*IntakeResult, error) {
	w := uc.NewWizard()
	if draft.Currency == "" {
		draft.Currency = w.Draft.Currency
	}
	w.Draft = draft

	if err := w.AdvanceTo(model.StepDocuments); err != nil {
		return nil, err
	}
	rejections := w.AttachFiles(files...)
	if err := w.Next(); err != nil {
		return nil, err
	}

	result, err := uc.Submit(ctx, w)
	if err != nil {
		return nil, err
	}
	result.Rejections = rejections
	return result, nil
}

// Submit creates the case and then uploads each attachment in order. The
// case insert must succeed. Upload failures are logged and skipped.
func (uc *IntakeUseCase) Submit(ctx context.Context, w *model.IntakeWizard) (*IntakeResult, error) {
	id, err := requireIdentity(ctx)
	if err != nil {
		return nil, err
	}

	if err := w.ReadyToSubmit(); err != nil {
		return nil, goerr.Wrap(err, "wizard is not ready to submit")
	}
	if !uc.deskConfig.SupportsCurrency(w.Draft.Currency) {
		return nil, model.NewInvalidValueError("currency", w.Draft.Currency)
	}

	c, err := w.BuildCase(id)
	if err != nil {
		return nil, goerr.Wrap(ErrInvalidAmount, "amount is not a non-negative decimal",
			goerr.V("amount", w.Draft.Amount))
	}
	if err := c.Validate(); err != nil {
		return nil, goerr.Wrap(err, "invalid case")
	}

	created, err := uc.repo.Case().Create(ctx, c)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create case")
	}

	logging.From(ctx).Info("case created",
		"case_id", created.ID,
		"reference", created.Reference,
		"client_id", created.ClientID)

	return &IntakeResult{
		Case:      created,
		Documents: uc.uploadDocuments(ctx, created.ID, id.UserID, w.Attachments()),
	}, nil
}

// DocumentPath returns the object path of a case document
func DocumentPath(caseID, name string) string {
	base := path.Base(strings.ReplaceAll(name, "\\", "/"))
	if base == "." || base == "/" {
		base = "document"
	}
	return path.Join("cases", caseID, uuid.NewString()+"-"+base)
}

func (uc *IntakeUseCase) uploadDocuments(ctx context.Context, caseID, uploader string, files []*model.Attachment) []*model.Document {
	docs := make([]*model.Document, 0, len(files))
	if len(files) == 0 {
		return docs
	}
	if uc.storage == nil {
		logging.From(ctx).Warn("document storage is not configured, attachments dropped",
			"case_id", caseID, "count", len(files))
		return docs
	}

	for _, f := range files {
		p := DocumentPath(caseID, f.Name)
		if err := uc.storage.Put(ctx, p, f.ContentType, bytes.NewReader(f.Data)); err != nil {
			metrics.DocumentsUploaded.WithLabelValues("error").Inc()
			metrics.RecordSagaFailure("submit_case", "upload_document")
			errutil.Handle(ctx, goerr.Wrap(err, "failed to upload case document",
				goerr.V(CaseIDKey, caseID),
				goerr.V("name", f.Name)), "case document skipped")
			continue
		}
		metrics.DocumentsUploaded.WithLabelValues("success").Inc()

		docs = append(docs, &model.Document{
			ID:          uuid.NewString(),
			CaseID:      caseID,
			Name:        f.Name,
			ContentType: f.ContentType,
			Size:        f.Size,
			Path:        p,
			UploadedBy:  uploader,
			CreatedAt:   time.Now().UTC(),
		})
	}
	return docs
}
