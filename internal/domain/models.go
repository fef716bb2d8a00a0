package domain

import "encoding/json"

type DocType string

const (
	DocTypeTaxReturn     DocType = "tax_return"
	DocTypeBankStatement DocType = "bank_statement"
	DocTypeDebtSchedule  DocType = "debt_schedule"
	DocTypeUnknown       DocType = "unknown"
)

type DocumentStatus string

const (
	DocStatusReceived    DocumentStatus = "RECEIVED"
	DocStatusStored      DocumentStatus = "STORED"
	DocStatusClassified  DocumentStatus = "CLASSIFIED"
	DocStatusExtracted   DocumentStatus = "EXTRACTED"
	DocStatusNeedsReview DocumentStatus = "NEEDS_REVIEW"
	DocStatusRejected    DocumentStatus = "REJECTED"
	DocStatusCompleted   DocumentStatus = "COMPLETED"
	DocStatusFailed      DocumentStatus = "FAILED"
)

type AuditState string

const (
	AuditUploadSessionOpened AuditState = "UPLOAD_SESSION_OPENED"
	AuditDocumentStored      AuditState = "DOCUMENT_STORED"
	AuditDocumentClassified  AuditState = "DOCUMENT_CLASSIFIED"
	AuditFactsExtracted      AuditState = "FACTS_EXTRACTED"
	AuditNeedsReview         AuditState = "NEEDS_REVIEW"
	AuditPreflightRun        AuditState = "PREFLIGHT_RUN"
	AuditNarrativeGenerated  AuditState = "NARRATIVE_GENERATED"
	AuditIntakeCompleted     AuditState = "INTAKE_COMPLETED"
	AuditIntakeFailed        AuditState = "INTAKE_FAILED"
	AuditPackageSubmitted    AuditState = "PACKAGE_SUBMITTED"
)

type ReviewDecisionType string

const (
	ReviewDecisionApprove ReviewDecisionType = "approve"
	ReviewDecisionReject  ReviewDecisionType = "reject"
	ReviewDecisionCorrect ReviewDecisionType = "correct"
)

const TaxReturnJSONSchema = `{
  "type": "object",
  "additionalProperties": false,
  "required": [
    "business_name",
    "ein",
    "tax_year",
    "gross_receipts",
    "net_profit",
    "confidence"
  ],
  "properties": {
    "business_name": {"type": ["string", "null"]},
    "ein": {"type": ["string", "null"]},
    "tax_year": {"type": "integer"},
    "gross_receipts": {"type": "number"},
    "net_profit": {"type": "number"},
    "officer_compensation": {"type": "number"},
    "confidence": {"type": "number", "minimum": 0, "maximum": 1}
  }
}`

const BankStatementJSONSchema = `{
  "type": "object",
  "additionalProperties": false,
  "required": [
    "account_holder",
    "bank_name",
    "statement_start",
    "statement_end",
    "ending_balance",
    "total_deposits",
    "confidence"
  ],
  "properties": {
    "account_holder": {"type": ["string", "null"]},
    "bank_name": {"type": ["string", "null"]},
    "statement_start": {"type": ["string", "null"]},
    "statement_end": {"type": ["string", "null"]},
    "ending_balance": {"type": "number"},
    "total_deposits": {"type": "number"},
    "nsf_count": {"type": "integer"},
    "confidence": {"type": "number", "minimum": 0, "maximum": 1}
  }
}`

type TaxReturnExtraction struct {
	BusinessName        *string  `json:"business_name"`
	EIN                 *string  `json:"ein"`
	TaxYear             int      `json:"tax_year"`
	GrossReceipts       float64  `json:"gross_receipts"`
	NetProfit           float64  `json:"net_profit"`
	OfficerCompensation *float64 `json:"officer_compensation,omitempty"`
	Confidence          float64  `json:"confidence"`
}

type BankStatementExtraction struct {
	AccountHolder  *string `json:"account_holder"`
	BankName       *string `json:"bank_name"`
	StatementStart *string `json:"statement_start"`
	StatementEnd   *string `json:"statement_end"`
	EndingBalance  float64 `json:"ending_balance"`
	TotalDeposits  float64 `json:"total_deposits"`
	NSFCount       *int    `json:"nsf_count,omitempty"`
	Confidence     float64 `json:"confidence"`
}

// DealRecord mirrors the persisted deals row. LifecycleStage is the coarse
// stage underwriting consumes; IntakeState is the fine-grained pipeline state.
type DealRecord struct {
	ID              string          `json:"id"`
	BorrowerName    string          `json:"borrower_name"`
	BusinessName    string          `json:"business_name"`
	IntakeState     DealIntakeState `json:"intake_state"`
	LifecycleStage  string          `json:"lifecycle_stage"`
	ApplicationForm json.RawMessage `json:"application_form,omitempty"`
	Preflight       json.RawMessage `json:"preflight,omitempty"`
	Narrative       json.RawMessage `json:"narrative,omitempty"`
	FailureReason   *string         `json:"failure_reason,omitempty"`
}

type DocumentRecord struct {
	ID             string          `json:"id"`
	DealID         string          `json:"deal_id"`
	Filename       string          `json:"filename"`
	ObjectKey      string          `json:"object_key"`
	RawText        string          `json:"raw_text"`
	DocType        DocType         `json:"doc_type"`
	Status         DocumentStatus  `json:"status"`
	CurrentJSON    json.RawMessage `json:"current_json,omitempty"`
	FinalJSON      json.RawMessage `json:"final_json,omitempty"`
	Confidence     float64         `json:"confidence"`
	RejectedReason *string         `json:"rejected_reason,omitempty"`
}

// Requirement is one checklist entry: a borrower-supplied document title the
// deal needs before underwriting.
type Requirement struct {
	DealID      string  `json:"deal_id"`
	Title       string  `json:"title"`
	DocType     DocType `json:"doc_type"`
	Required    bool    `json:"required"`
	SatisfiedBy *string `json:"satisfied_by,omitempty"`
}

type ReviewQueueItem struct {
	DocumentID  string          `json:"document_id"`
	DealID      string          `json:"deal_id"`
	FailedRules []string        `json:"failed_rules"`
	CurrentJSON json.RawMessage `json:"current_json"`
	Status      string          `json:"status"`
}

type ReviewDecision struct {
	Decision    ReviewDecisionType `json:"decision"`
	Corrections json.RawMessage    `json:"corrections,omitempty"`
	Reviewer    string             `json:"reviewer,omitempty"`
	Reason      string             `json:"reason,omitempty"`
}

type ValidationResult struct {
	FailedRules []string `json:"failed_rules"`
	Confidence  float64  `json:"confidence"`
}

type ChatMessage struct {
	DealID  string `json:"deal_id"`
	Role    string `json:"role"`
	Content string `json:"content"`
}

// DefaultChecklist is the required-document checklist seeded onto every new
// deal. Titles are what borrowers see; doc types drive requirement matching.
func DefaultChecklist() []Requirement {
	return []Requirement{
		{Title: "Business Tax Return", DocType: DocTypeTaxReturn, Required: true},
		{Title: "Business Bank Statement", DocType: DocTypeBankStatement, Required: true},
		{Title: "Business Debt Schedule", DocType: DocTypeDebtSchedule, Required: false},
	}
}

func SchemaForDocType(docType DocType) string {
	switch docType {
	case DocTypeTaxReturn:
		return TaxReturnJSONSchema
	case DocTypeBankStatement:
		return BankStatementJSONSchema
	default:
		return BankStatementJSONSchema
	}
}

// ExtractableDocType reports whether AI fact extraction runs for the type.
// Debt schedules are checklist-only; their contents are not extracted.
func ExtractableDocType(docType DocType) bool {
	return docType == DocTypeTaxReturn || docType == DocTypeBankStatement
}
