package types

// ActionType is the kind of work an agent logged on a case. The known values
// form a closed taxonomy; any other value is carried as-is and classified as
// ActionCategoryOther.
type ActionType string

const (
	// Communication
	ActionTypePhoneCall  ActionType = "phone_call"
	ActionTypeEmailSent  ActionType = "email_sent"
	ActionTypeLetterSent ActionType = "letter_sent"
	ActionTypeMeeting    ActionType = "meeting"

	// Case Management
	ActionTypeDocumentReview      ActionType = "document_review"
	ActionTypeCaseAnalysis        ActionType = "case_analysis"
	ActionTypeStatusUpdate        ActionType = "status_update"
	ActionTypeClientCommunication ActionType = "client_communication"

	// Negotiation
	ActionTypeNegotiation      ActionType = "negotiation"
	ActionTypeSettlementOffer  ActionType = "settlement_offer"
	ActionTypePaymentPlan      ActionType = "payment_plan"
	ActionTypeDiscountApproved ActionType = "discount_approved"

	// Legal
	ActionTypeLegalNotice       ActionType = "legal_notice"
	ActionTypeCourtFiling       ActionType = "court_filing"
	ActionTypeLegalConsultation ActionType = "legal_consultation"
	ActionTypeEnforcementAction ActionType = "enforcement_action"
)

// ActionCategory groups action types for display
type ActionCategory string

const (
	ActionCategoryCommunication  ActionCategory = "Communication"
	ActionCategoryCaseManagement ActionCategory = "Case Management"
	ActionCategoryNegotiation    ActionCategory = "Negotiation"
	ActionCategoryLegal          ActionCategory = "Legal"
	ActionCategoryOther          ActionCategory = "Other"
)

// ActionIcon names the icon a renderer should use
type ActionIcon string

const (
	IconPhone         ActionIcon = "Phone"
	IconMail          ActionIcon = "Mail"
	IconFileText      ActionIcon = "FileText"
	IconUser          ActionIcon = "User"
	IconClock         ActionIcon = "Clock"
	IconMessageSquare ActionIcon = "MessageSquare"
	IconHandCoins     ActionIcon = "HandCoins"
	IconAlertTriangle ActionIcon = "AlertTriangle"
	IconScale         ActionIcon = "Scale"
)

// ActionDisplay is the derived presentation of an action type.
type ActionDisplay struct {
	Type     ActionType     `json:"type"`
	Label    string         `json:"label"`
	Icon     ActionIcon     `json:"icon"`
	Category ActionCategory `json:"category"`
	Known    bool           `json:"known"`
}

type actionTypeEntry struct {
	label    string
	icon     ActionIcon
	category ActionCategory
}

var actionTypeTable = map[ActionType]actionTypeEntry{
	ActionTypePhoneCall:  {"Phone Call", IconPhone, ActionCategoryCommunication},
	ActionTypeEmailSent:  {"Email Sent", IconMail, ActionCategoryCommunication},
	ActionTypeLetterSent: {"Letter Sent", IconFileText, ActionCategoryCommunication},
	ActionTypeMeeting:    {"Meeting", IconUser, ActionCategoryCommunication},

	ActionTypeDocumentReview:      {"Document Review", IconFileText, ActionCategoryCaseManagement},
	ActionTypeCaseAnalysis:        {"Case Analysis", IconClock, ActionCategoryCaseManagement},
	ActionTypeStatusUpdate:        {"Status Update", IconAlertTriangle, ActionCategoryCaseManagement},
	ActionTypeClientCommunication: {"Client Communication", IconMessageSquare, ActionCategoryCaseManagement},

	ActionTypeNegotiation:      {"Negotiation Session", IconHandCoins, ActionCategoryNegotiation},
	ActionTypeSettlementOffer:  {"Settlement Offer", IconHandCoins, ActionCategoryNegotiation},
	ActionTypePaymentPlan:      {"Payment Plan Setup", IconHandCoins, ActionCategoryNegotiation},
	ActionTypeDiscountApproved: {"Discount Approved", IconHandCoins, ActionCategoryNegotiation},

	ActionTypeLegalNotice:       {"Legal Notice Sent", IconScale, ActionCategoryLegal},
	ActionTypeCourtFiling:       {"Court Filing", IconScale, ActionCategoryLegal},
	ActionTypeLegalConsultation: {"Legal Consultation", IconScale, ActionCategoryLegal},
	ActionTypeEnforcementAction: {"Enforcement Action", IconAlertTriangle, ActionCategoryLegal},
}

// ActionTypeGroup lists the action types of one category in display order
type ActionTypeGroup struct {
	Category ActionCategory `json:"category"`
	Types    []ActionType   `json:"types"`
}

// ActionTaxonomy returns the known action types grouped by category.
func ActionTaxonomy() []ActionTypeGroup {
	return []ActionTypeGroup{
		{ActionCategoryCommunication, []ActionType{ActionTypePhoneCall, ActionTypeEmailSent, ActionTypeLetterSent, ActionTypeMeeting}},
		{ActionCategoryCaseManagement, []ActionType{ActionTypeDocumentReview, ActionTypeCaseAnalysis, ActionTypeStatusUpdate, ActionTypeClientCommunication}},
		{ActionCategoryNegotiation, []ActionType{ActionTypeNegotiation, ActionTypeSettlementOffer, ActionTypePaymentPlan, ActionTypeDiscountApproved}},
		{ActionCategoryLegal, []ActionType{ActionTypeLegalNotice, ActionTypeCourtFiling, ActionTypeLegalConsultation, ActionTypeEnforcementAction}},
	}
}

// IsKnown reports whether t is part of the fixed taxonomy.
func (t ActionType) IsKnown() bool {
	_, ok := actionTypeTable[t]
	return ok
}

// Display derives label, icon and category. Unknown types get a humanized
// label, the Clock icon and the Other category.
func (t ActionType) Display() ActionDisplay {
	if e, ok := actionTypeTable[t]; ok {
		return ActionDisplay{Type: t, Label: e.label, Icon: e.icon, Category: e.category, Known: true}
	}
	return ActionDisplay{
		Type:     t,
		Label:    Humanize(string(t)),
		Icon:     IconClock,
		Category: ActionCategoryOther,
	}
}

func (t ActionType) String() string {
	return string(t)
}
