package model

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/secmon-lab/collectdesk/pkg/domain/model/auth"
	"github.com/secmon-lab/collectdesk/pkg/domain/types"
)

// IntakeStep is a step of the case creation wizard
type IntakeStep int

const (
	StepDebtorDetails IntakeStep = iota + 1
	StepCaseDetails
	StepDocuments
	StepReview
)

// Title returns the heading shown for the step
func (s IntakeStep) Title() string {
	switch s {
	case StepDebtorDetails:
		return "Debtor Details"
	case StepCaseDetails:
		return "Case Details"
	case StepDocuments:
		return "Documents"
	case StepReview:
		return "Review"
	default:
		return fmt.Sprintf("Step %d", int(s))
	}
}

// Default intake policy values
const (
	DefaultMaxFileSize = 10 * 1024 * 1024
	DefaultCurrency    = "EUR"
)

// DefaultAllowedMIMETypes are the document types accepted by the wizard
var DefaultAllowedMIMETypes = []string{
	"application/pdf",
	"image/jpeg",
	"image/png",
	"application/msword",
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document",
}

// IntakePolicy constrains attachments and defaults of the wizard
type IntakePolicy struct {
	MaxFileSize      int64
	AllowedMIMETypes []string
	DefaultCurrency  string
}

// DefaultIntakePolicy returns the policy used when nothing is configured
func DefaultIntakePolicy() IntakePolicy {
	return IntakePolicy{
		MaxFileSize:      DefaultMaxFileSize,
		AllowedMIMETypes: slices.Clone(DefaultAllowedMIMETypes),
		DefaultCurrency:  DefaultCurrency,
	}
}

// IntakeDraft holds the wizard form values as typed by the user
type IntakeDraft struct {
	DebtorName  string  `json:"debtor_name"`
	DebtorEmail string  `json:"debtor_email"`
	DebtorPhone string  `json:"debtor_phone,omitempty"`
	Address     Address `json:"address"`
	Amount      string  `json:"amount"`
	Currency    string  `json:"currency"`
	Reference   string  `json:"reference"`
	Notes       string  `json:"notes,omitempty"`
}

// Attachment is a file picked in the documents step
type Attachment struct {
	Name        string
	ContentType string
	Size        int64
	Data        []byte
}

// FileRejection explains why a picked file was not attached
type FileRejection struct {
	Name   string `json:"name"`
	Reason string `json:"reason"`
}

// IntakeWizard is the 4-step case creation state machine. Moving forward is
// gated by the validation of the current step, moving back never is.
type IntakeWizard struct {
	step        IntakeStep
	Draft       IntakeDraft
	attachments []*Attachment
	policy      IntakePolicy
}

// NewIntakeWizard starts a wizard on the first step
func NewIntakeWizard(policy IntakePolicy) *IntakeWizard {
	if policy.MaxFileSize <= 0 {
		policy.MaxFileSize = DefaultMaxFileSize
	}
	if len(policy.AllowedMIMETypes) == 0 {
		policy.AllowedMIMETypes = slices.Clone(DefaultAllowedMIMETypes)
	}
	if policy.DefaultCurrency == "" {
		policy.DefaultCurrency = DefaultCurrency
	}

	return &IntakeWizard{
		step:   StepDebtorDetails,
		Draft:  IntakeDraft{Currency: policy.DefaultCurrency},
		policy: policy,
	}
}

// Step returns the current step
func (w *IntakeWizard) Step() IntakeStep {
	return w.step
}

// ValidateStep checks the required fields of a step
func (w *IntakeWizard) ValidateStep(step IntakeStep) error {
	var missing []string
	blank := func(s string) bool { return strings.TrimSpace(s) == "" }

	switch step {
	case StepDebtorDetails:
		if blank(w.Draft.DebtorName) {
			missing = append(missing, "debtor_name")
		}
		if blank(w.Draft.DebtorEmail) {
			missing = append(missing, "debtor_email")
		}
		if blank(w.Draft.Address.City) {
			missing = append(missing, "address.city")
		}
		if blank(w.Draft.Address.Country) {
			missing = append(missing, "address.country")
		}
	case StepCaseDetails:
		if blank(w.Draft.Amount) {
			missing = append(missing, "amount")
		}
		if blank(w.Draft.Currency) {
			missing = append(missing, "currency")
		}
		if blank(w.Draft.Reference) {
			missing = append(missing, "reference")
		}
	}

	if len(missing) > 0 {
		return NewValidationError(missing...)
	}
	return nil
}

// Next advances one step when the current step validates. On failure the
// step is unchanged. Next on the last step stays there.
func (w *IntakeWizard) Next() error {
	if err := w.ValidateStep(w.step); err != nil {
		return err
	}
	w.step = min(StepReview, w.step+1)
	return nil
}

// Prev goes back one step without validation
func (w *IntakeWizard) Prev() {
	w.step = max(StepDebtorDetails, w.step-1)
}

// AttachFiles accepts the valid files of a batch and reports each rejected
// one. A rejection never blocks the other files.
func (w *IntakeWizard) AttachFiles(files ...*Attachment) []FileRejection {
	var rejections []FileRejection
	for _, f := range files {
		if !slices.Contains(w.policy.AllowedMIMETypes, f.ContentType) {
			rejections = append(rejections, FileRejection{Name: f.Name, Reason: "unsupported file type"})
			continue
		}
		if f.Size > w.policy.MaxFileSize {
			rejections = append(rejections, FileRejection{
				Name:   f.Name,
				Reason: fmt.Sprintf("file exceeds %dMB limit", w.policy.MaxFileSize/(1024*1024)),
			})
			continue
		}
		w.attachments = append(w.attachments, f)
	}
	return rejections
}

// RemoveAttachment drops the attachment at index i. Out of range is ignored.
func (w *IntakeWizard) RemoveAttachment(i int) {
	if i < 0 || i >= len(w.attachments) {
		return
	}
	w.attachments = slices.Delete(w.attachments, i, i+1)
}

// Attachments returns the accepted files in the order they were picked
func (w *IntakeWizard) Attachments() []*Attachment {
	return slices.Clone(w.attachments)
}

// ReadyToSubmit reports whether the wizard reached the review step with
// valid debtor and case details.
func (w *IntakeWizard) ReadyToSubmit() error {
	if w.step != StepReview {
		return NewInvalidValueError("step", w.step.Title())
	}
	for _, s := range []IntakeStep{StepDebtorDetails, StepCaseDetails} {
		if err := w.ValidateStep(s); err != nil {
			return err
		}
	}
	return nil
}

// BuildCase converts the draft into a new case filed by the identity
func (w *IntakeWizard) BuildCase(id *auth.Identity) (*Case, error) {
	amount, err := strconv.ParseFloat(strings.TrimSpace(w.Draft.Amount), 64)
	if err != nil || !validAmount(amount) {
		return nil, NewInvalidValueError("amount", w.Draft.Amount)
	}

	var addr *Address
	if w.Draft.Address != (Address{}) {
		a := w.Draft.Address
		addr = &a
	}

	return &Case{
		Reference: strings.TrimSpace(w.Draft.Reference),
		ClientID:  id.OwnerClientID(),
		CreatedBy: id.UserID,
		Debtor: Debtor{
			Name:    strings.TrimSpace(w.Draft.DebtorName),
			Email:   strings.TrimSpace(w.Draft.DebtorEmail),
			Phone:   strings.TrimSpace(w.Draft.DebtorPhone),
			Address: addr,
		},
		Amount:   amount,
		Currency: w.Draft.Currency,
		Notes:    w.Draft.Notes,
		Status:   types.CaseStatusNew,
	}, nil
}

// AdvanceTo moves forward until target, validating every step on the way.
// It is used when a wizard is rebuilt from a complete submission.
func (w *IntakeWizard) AdvanceTo(target IntakeStep) error {
	for w.step < target {
		if err := w.Next(); err != nil {
			return err
		}
	}
	return nil
}
