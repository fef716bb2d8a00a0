package temporal

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"buddy-underwriter/internal/domain"
	"buddy-underwriter/internal/openai"
	"buddy-underwriter/internal/storage"
)

const (
	modelOutputPhaseBase1    = "BASE_ATTEMPT_1"
	modelOutputPhaseBase2    = "BASE_ATTEMPT_2"
	modelOutputPhaseRepair1  = "REPAIR_ATTEMPT_1"
	modelOutputPhaseCorrect1 = "CORRECT_ATTEMPT_1"
)

type ActivityStore interface {
	GetDeal(ctx context.Context, dealID string) (domain.DealRecord, error)
	TransitionDeal(ctx context.Context, dealID string, from, to domain.DealIntakeState) error
	MarkDealFailed(ctx context.Context, dealID string, from domain.DealIntakeState, reason string) error
	SavePreflight(ctx context.Context, dealID string, payload []byte) error
	SaveNarrative(ctx context.Context, dealID string, payload []byte) error
	ListDealDocuments(ctx context.Context, dealID string) ([]domain.DocumentRecord, error)
	GetDocument(ctx context.Context, documentID string) (domain.DocumentRecord, error)
	MarkDocumentStored(ctx context.Context, documentID, objectKey, rawText string) error
	UpdateDocumentClassification(ctx context.Context, documentID string, docType domain.DocType) error
	SaveModelOutput(ctx context.Context, documentID string, phase string, output string) error
	SaveCurrentExtraction(ctx context.Context, documentID string, payload []byte, confidence float64) error
	GetCurrentExtraction(ctx context.Context, documentID string) ([]byte, float64, error)
	SaveFinalResult(ctx context.Context, documentID string, payload []byte, confidence float64, status domain.DocumentStatus, rejectedReason *string) error
	SatisfyRequirement(ctx context.Context, dealID string, docType domain.DocType, documentID string) error
	MissingRequiredTitles(ctx context.Context, dealID string) ([]string, error)
	RequirementsSummary(ctx context.Context, dealID string) (domain.RequirementsSummary, error)
	QueueReview(ctx context.Context, documentID, dealID string, failedRules []string, currentJSON []byte) error
	ResolveReview(ctx context.Context, documentID string, decision string) error
	InsertAudit(ctx context.Context, dealID string, state domain.AuditState, detail any) error
}

type BlobStore interface {
	GetDocument(ctx context.Context, objectKey string) ([]byte, error)
}

type Activities struct {
	Store          ActivityStore
	Blob           BlobStore
	LLM            openai.Client
	OpenAIModel    string
	OpenAITimeout  time.Duration
	OpenAIMaxRetry int
}

type BeginIntakeInput struct {
	DealID string
}

type DocumentRef struct {
	DocumentID   string
	Filename     string
	DocumentText string
}

type BeginIntakeOutput struct {
	Documents []DocumentRef
}

type ClassifyDocumentInput struct {
	DealID       string
	DocumentID   string
	Filename     string
	DocumentText string
}

type ClassifyDocumentOutput struct {
	DocType domain.DocType
}

type ExtractFactsInput struct {
	DealID       string
	DocumentID   string
	DocType      domain.DocType
	DocumentText string
}

type ExtractFactsOutput struct {
	ExtractionJSON []byte
	Confidence     float64
}

type ValidateFactsInput struct {
	DocType        domain.DocType
	ExtractionJSON []byte
}

type ValidateFactsOutput struct {
	FailedRules []string
	Confidence  float64
}

type CorrectFactsInput struct {
	DealID       string
	DocumentID   string
	DocType      domain.DocType
	DocumentText string
	CurrentJSON  []byte
	FailedRules  []string
}

type CorrectFactsOutput struct {
	CorrectedJSON []byte
	Confidence    float64
}

type QueueReviewInput struct {
	DealID      string
	DocumentID  string
	FailedRules []string
	CurrentJSON []byte
}

type ResolveReviewInput struct {
	DocumentID string
	Decision   string
}

type ApplyReviewerCorrectionInput struct {
	DealID      string
	DocumentID  string
	DocType     domain.DocType
	Corrections []byte
}

type ApplyReviewerCorrectionOutput struct {
	CorrectedJSON []byte
	Confidence    float64
	FailedRules   []string
}

type FinalizeDocumentInput struct {
	DocumentID string
	FinalJSON  []byte
	Confidence float64
}

type RejectDocumentInput struct {
	DealID     string
	DocumentID string
	Reason     string
}

type RunPreflightInput struct {
	DealID string
}

type RunPreflightOutput struct {
	Preflight domain.PreflightResult
}

type GenerateNarrativeInput struct {
	DealID string
}

type GenerateNarrativeOutput struct {
	NarrativeJSON []byte
}

type CompleteIntakeInput struct {
	DealID string
}

type FailIntakeInput struct {
	DealID string
	Reason string
}

// BeginIntakeActivity moves the deal into INTAKE_RUNNING via the store's
// compare-and-swap and returns the documents to process. A retry after the
// swap already happened is treated as success.
func (a *Activities) BeginIntakeActivity(ctx context.Context, input BeginIntakeInput) (BeginIntakeOutput, error) {
	err := a.Store.TransitionDeal(ctx, input.DealID, domain.StateUploadComplete, domain.StateIntakeRunning)
	if err != nil {
		if !errors.Is(err, storage.ErrStateConflict) {
			return BeginIntakeOutput{}, err
		}
		deal, getErr := a.Store.GetDeal(ctx, input.DealID)
		if getErr != nil {
			return BeginIntakeOutput{}, getErr
		}
		if deal.IntakeState != domain.StateIntakeRunning {
			return BeginIntakeOutput{}, fmt.Errorf("deal %s is in %s, cannot start intake: %w", input.DealID, deal.IntakeState, err)
		}
	}

	docs, err := a.Store.ListDealDocuments(ctx, input.DealID)
	if err != nil {
		return BeginIntakeOutput{}, err
	}

	refs := make([]DocumentRef, 0, len(docs))
	for _, doc := range docs {
		text := doc.RawText
		if text == "" && doc.ObjectKey == "" {
			// Placeholder registered for a presigned URL that was never used.
			continue
		}
		if text == "" {
			// Presigned uploads land in object storage without passing
			// through the API, so the text is hydrated here.
			content, err := a.Blob.GetDocument(ctx, doc.ObjectKey)
			if err != nil {
				return BeginIntakeOutput{}, fmt.Errorf("fetch object %s: %w", doc.ObjectKey, err)
			}
			text = string(content)
			if err := a.Store.MarkDocumentStored(ctx, doc.ID, doc.ObjectKey, text); err != nil {
				return BeginIntakeOutput{}, err
			}
		}
		refs = append(refs, DocumentRef{DocumentID: doc.ID, Filename: doc.Filename, DocumentText: text})
	}

	return BeginIntakeOutput{Documents: refs}, nil
}

func (a *Activities) ClassifyDocumentActivity(ctx context.Context, input ClassifyDocumentInput) (ClassifyDocumentOutput, error) {
	existing, err := a.Store.GetDocument(ctx, input.DocumentID)
	if err == nil && existing.DocType != "" && existing.DocType != domain.DocTypeUnknown {
		return ClassifyDocumentOutput{DocType: existing.DocType}, nil
	}
	if err != nil {
		return ClassifyDocumentOutput{}, err
	}

	docType := detectDocType(input.DocumentText, input.Filename)
	if err := a.Store.UpdateDocumentClassification(ctx, input.DocumentID, docType); err != nil {
		return ClassifyDocumentOutput{}, err
	}
	if docType != domain.DocTypeUnknown {
		if err := a.Store.SatisfyRequirement(ctx, input.DealID, docType, input.DocumentID); err != nil {
			return ClassifyDocumentOutput{}, err
		}
	}
	if err := a.Store.InsertAudit(ctx, input.DealID, domain.AuditDocumentClassified, map[string]any{"document_id": input.DocumentID, "doc_type": docType}); err != nil {
		return ClassifyDocumentOutput{}, err
	}
	return ClassifyDocumentOutput{DocType: docType}, nil
}

// ExtractFactsActivity runs the base -> repair -> base extraction ladder. A
// later attempt only happens when the previous output failed strict parsing.
func (a *Activities) ExtractFactsActivity(ctx context.Context, input ExtractFactsInput) (ExtractFactsOutput, error) {
	existing, confidence, err := a.Store.GetCurrentExtraction(ctx, input.DocumentID)
	if err == nil && len(existing) > 0 {
		return ExtractFactsOutput{ExtractionJSON: existing, Confidence: confidence}, nil
	}
	if err != nil {
		return ExtractFactsOutput{}, err
	}

	schema := domain.SchemaForDocType(input.DocType)
	basePrompt := openai.BuildBaseUserPrompt(string(input.DocType), schema, input.DocumentText)

	base1, err := a.callOpenAIWithRetry(ctx, openai.BASE_SYSTEM, basePrompt)
	if err != nil {
		return ExtractFactsOutput{}, err
	}
	_ = a.Store.SaveModelOutput(ctx, input.DocumentID, modelOutputPhaseBase1, base1)

	parsed, conf, parseErr := openai.ParseAndNormalize(input.DocType, base1)
	if parseErr == nil {
		return a.saveExtraction(ctx, input, parsed, conf, "base_1")
	}

	repairPrompt := openai.BuildRepairUserPrompt(schema, base1)
	repair1, err := a.callOpenAIWithRetry(ctx, openai.REPAIR_SYSTEM, repairPrompt)
	if err != nil {
		return ExtractFactsOutput{}, err
	}
	_ = a.Store.SaveModelOutput(ctx, input.DocumentID, modelOutputPhaseRepair1, repair1)

	parsed, conf, parseErr = openai.ParseAndNormalize(input.DocType, repair1)
	if parseErr == nil {
		return a.saveExtraction(ctx, input, parsed, conf, "repair_1")
	}

	base2, err := a.callOpenAIWithRetry(ctx, openai.BASE_SYSTEM, basePrompt)
	if err != nil {
		return ExtractFactsOutput{}, err
	}
	_ = a.Store.SaveModelOutput(ctx, input.DocumentID, modelOutputPhaseBase2, base2)

	parsed, conf, parseErr = openai.ParseAndNormalize(input.DocType, base2)
	if parseErr != nil {
		return ExtractFactsOutput{}, fmt.Errorf("extraction failed after base1+repair1+base2: %w", parseErr)
	}
	return a.saveExtraction(ctx, input, parsed, conf, "base_2")
}

func (a *Activities) saveExtraction(ctx context.Context, input ExtractFactsInput, payload []byte, confidence float64, path string) (ExtractFactsOutput, error) {
	if err := a.Store.SaveCurrentExtraction(ctx, input.DocumentID, payload, confidence); err != nil {
		return ExtractFactsOutput{}, err
	}
	if err := a.Store.InsertAudit(ctx, input.DealID, domain.AuditFactsExtracted, map[string]any{"document_id": input.DocumentID, "path": path}); err != nil {
		return ExtractFactsOutput{}, err
	}
	return ExtractFactsOutput{ExtractionJSON: payload, Confidence: confidence}, nil
}

func (a *Activities) ValidateFactsActivity(ctx context.Context, input ValidateFactsInput) (ValidateFactsOutput, error) {
	_ = ctx
	result, err := openai.ValidateByRules(input.DocType, input.ExtractionJSON)
	if err != nil {
		return ValidateFactsOutput{}, err
	}
	return ValidateFactsOutput{FailedRules: result.FailedRules, Confidence: result.Confidence}, nil
}

func (a *Activities) CorrectFactsActivity(ctx context.Context, input CorrectFactsInput) (CorrectFactsOutput, error) {
	schema := domain.SchemaForDocType(input.DocType)
	prompt := openai.BuildCorrectUserPrompt(string(input.DocType), schema, input.DocumentText, string(input.CurrentJSON), input.FailedRules)

	modelOutput, err := a.callOpenAIWithRetry(ctx, openai.CORRECT_SYSTEM, prompt)
	if err != nil {
		return CorrectFactsOutput{}, err
	}
	_ = a.Store.SaveModelOutput(ctx, input.DocumentID, modelOutputPhaseCorrect1, modelOutput)

	normalized, confidence, err := openai.ParseAndNormalize(input.DocType, modelOutput)
	if err != nil {
		return CorrectFactsOutput{}, err
	}
	if err := a.Store.SaveCurrentExtraction(ctx, input.DocumentID, normalized, confidence); err != nil {
		return CorrectFactsOutput{}, err
	}
	return CorrectFactsOutput{CorrectedJSON: normalized, Confidence: confidence}, nil
}

func (a *Activities) QueueReviewActivity(ctx context.Context, input QueueReviewInput) error {
	if err := a.Store.QueueReview(ctx, input.DocumentID, input.DealID, input.FailedRules, input.CurrentJSON); err != nil {
		return err
	}
	return a.Store.InsertAudit(ctx, input.DealID, domain.AuditNeedsReview, map[string]any{"document_id": input.DocumentID, "failed_rules": input.FailedRules})
}

func (a *Activities) ResolveReviewActivity(ctx context.Context, input ResolveReviewInput) error {
	return a.Store.ResolveReview(ctx, input.DocumentID, input.Decision)
}

func (a *Activities) ApplyReviewerCorrectionActivity(ctx context.Context, input ApplyReviewerCorrectionInput) (ApplyReviewerCorrectionOutput, error) {
	normalized, confidence, err := openai.ParseAndNormalize(input.DocType, string(input.Corrections))
	if err != nil {
		return ApplyReviewerCorrectionOutput{FailedRules: []string{"reviewer.corrections_invalid_json"}}, nil
	}
	if err := a.Store.SaveCurrentExtraction(ctx, input.DocumentID, normalized, confidence); err != nil {
		return ApplyReviewerCorrectionOutput{}, err
	}
	validation, err := openai.ValidateByRules(input.DocType, normalized)
	if err != nil {
		return ApplyReviewerCorrectionOutput{}, err
	}
	return ApplyReviewerCorrectionOutput{CorrectedJSON: normalized, Confidence: confidence, FailedRules: validation.FailedRules}, nil
}

func (a *Activities) FinalizeDocumentActivity(ctx context.Context, input FinalizeDocumentInput) error {
	if err := a.Store.SaveFinalResult(ctx, input.DocumentID, input.FinalJSON, input.Confidence, domain.DocStatusCompleted, nil); err != nil {
		return err
	}
	// Updates zero rows when the document never went to review.
	return a.Store.ResolveReview(ctx, input.DocumentID, "COMPLETED")
}

func (a *Activities) RejectDocumentActivity(ctx context.Context, input RejectDocumentInput) error {
	reason := input.Reason
	if reason == "" {
		reason = "rejected by reviewer"
	}
	if err := a.Store.SaveFinalResult(ctx, input.DocumentID, nil, 0, domain.DocStatusRejected, &reason); err != nil {
		return err
	}
	if err := a.Store.ResolveReview(ctx, input.DocumentID, "REJECTED"); err != nil {
		return err
	}
	return a.Store.InsertAudit(ctx, input.DealID, domain.AuditIntakeFailed, map[string]any{"document_id": input.DocumentID, "reason": reason})
}

func (a *Activities) RunPreflightActivity(ctx context.Context, input RunPreflightInput) (RunPreflightOutput, error) {
	deal, err := a.Store.GetDeal(ctx, input.DealID)
	if err != nil {
		return RunPreflightOutput{}, err
	}

	var form domain.ApplicationForm
	if len(deal.ApplicationForm) > 0 {
		if err := json.Unmarshal(deal.ApplicationForm, &form); err != nil {
			return RunPreflightOutput{}, fmt.Errorf("decode application form: %w", err)
		}
	}

	docs, err := a.Store.ListDealDocuments(ctx, input.DealID)
	if err != nil {
		return RunPreflightOutput{}, err
	}

	pfInput := domain.PreflightInput{Form: form}
	for _, doc := range docs {
		payload := doc.FinalJSON
		if len(payload) == 0 {
			payload = doc.CurrentJSON
		}
		if len(payload) == 0 {
			continue
		}
		switch doc.DocType {
		case domain.DocTypeTaxReturn:
			if pfInput.TaxReturn == nil {
				var v domain.TaxReturnExtraction
				if err := json.Unmarshal(payload, &v); err == nil {
					pfInput.TaxReturn = &v
				}
			}
		case domain.DocTypeBankStatement:
			if pfInput.BankStatement == nil {
				var v domain.BankStatementExtraction
				if err := json.Unmarshal(payload, &v); err == nil {
					pfInput.BankStatement = &v
				}
			}
		}
	}

	summary, err := a.Store.RequirementsSummary(ctx, input.DealID)
	if err != nil {
		return RunPreflightOutput{}, err
	}
	pfInput.RequiredMissing = summary.Summary.RequiredMissing

	result := domain.RunPreflight(pfInput)
	payload, err := json.Marshal(result)
	if err != nil {
		return RunPreflightOutput{}, err
	}
	if err := a.Store.SavePreflight(ctx, input.DealID, payload); err != nil {
		return RunPreflightOutput{}, err
	}
	if err := a.Store.InsertAudit(ctx, input.DealID, domain.AuditPreflightRun, result); err != nil {
		return RunPreflightOutput{}, err
	}
	return RunPreflightOutput{Preflight: result}, nil
}

func (a *Activities) GenerateNarrativeActivity(ctx context.Context, input GenerateNarrativeInput) (GenerateNarrativeOutput, error) {
	deal, err := a.Store.GetDeal(ctx, input.DealID)
	if err != nil {
		return GenerateNarrativeOutput{}, err
	}
	if len(deal.Narrative) > 0 {
		return GenerateNarrativeOutput{NarrativeJSON: deal.Narrative}, nil
	}

	docs, err := a.Store.ListDealDocuments(ctx, input.DealID)
	if err != nil {
		return GenerateNarrativeOutput{}, err
	}

	facts := make(map[string]json.RawMessage)
	for _, doc := range docs {
		payload := doc.FinalJSON
		if len(payload) == 0 {
			payload = doc.CurrentJSON
		}
		if len(payload) > 0 {
			facts[string(doc.DocType)] = payload
		}
	}
	factsJSON, err := json.Marshal(facts)
	if err != nil {
		return GenerateNarrativeOutput{}, err
	}

	prompt := openai.BuildNarrativeUserPrompt(string(deal.ApplicationForm), string(factsJSON), string(deal.Preflight))
	modelOutput, err := a.callOpenAIWithRetry(ctx, openai.NARRATIVE_SYSTEM, prompt)
	if err != nil {
		return GenerateNarrativeOutput{}, err
	}

	var narrative map[string]json.RawMessage
	if err := json.Unmarshal([]byte(modelOutput), &narrative); err != nil {
		return GenerateNarrativeOutput{}, fmt.Errorf("narrative is not valid JSON: %w", err)
	}
	if _, ok := narrative["summary"]; !ok {
		return GenerateNarrativeOutput{}, fmt.Errorf("narrative missing summary")
	}

	payload := []byte(modelOutput)
	if err := a.Store.SaveNarrative(ctx, input.DealID, payload); err != nil {
		return GenerateNarrativeOutput{}, err
	}
	if err := a.Store.InsertAudit(ctx, input.DealID, domain.AuditNarrativeGenerated, nil); err != nil {
		return GenerateNarrativeOutput{}, err
	}
	return GenerateNarrativeOutput{NarrativeJSON: payload}, nil
}

func (a *Activities) CompleteIntakeActivity(ctx context.Context, input CompleteIntakeInput) error {
	err := a.Store.TransitionDeal(ctx, input.DealID, domain.StateIntakeRunning, domain.StateReadyForUnderwrite)
	if err != nil {
		if !errors.Is(err, storage.ErrStateConflict) {
			return err
		}
		deal, getErr := a.Store.GetDeal(ctx, input.DealID)
		if getErr != nil {
			return getErr
		}
		if deal.IntakeState != domain.StateReadyForUnderwrite {
			return fmt.Errorf("deal %s is in %s, cannot complete intake: %w", input.DealID, deal.IntakeState, err)
		}
		return nil
	}
	return a.Store.InsertAudit(ctx, input.DealID, domain.AuditIntakeCompleted, nil)
}

func (a *Activities) FailIntakeActivity(ctx context.Context, input FailIntakeInput) error {
	err := a.Store.MarkDealFailed(ctx, input.DealID, domain.StateIntakeRunning, input.Reason)
	if err != nil && !errors.Is(err, storage.ErrStateConflict) {
		return err
	}
	return a.Store.InsertAudit(ctx, input.DealID, domain.AuditIntakeFailed, map[string]any{"reason": input.Reason})
}

func (a *Activities) callOpenAIWithRetry(ctx context.Context, systemPrompt string, userPrompt string) (string, error) {
	maxRetry := a.OpenAIMaxRetry
	if maxRetry <= 0 {
		maxRetry = 3
	}

	var lastErr error
	for attempt := 1; attempt <= maxRetry; attempt++ {
		out, err := a.LLM.CompleteJSON(ctx, openai.CompletionRequest{
			Model:        a.OpenAIModel,
			SystemPrompt: systemPrompt,
			UserPrompt:   userPrompt,
			Timeout:      a.OpenAITimeout,
		})
		if err == nil {
			return out, nil
		}
		lastErr = err
		if attempt == maxRetry {
			break
		}
		delay := time.Duration(200*(1<<(attempt-1))) * time.Millisecond
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(delay):
		}
	}
	return "", fmt.Errorf("openai retry exhausted: %w", lastErr)
}

func detectDocType(documentText string, filename string) domain.DocType {
	norm := strings.ToLower(documentText + " " + filename)
	switch {
	case strings.Contains(norm, "form 1120") || strings.Contains(norm, "form 1065") ||
		strings.Contains(norm, "schedule c") || strings.Contains(norm, "tax return") ||
		strings.Contains(norm, "gross receipts"):
		return domain.DocTypeTaxReturn
	case strings.Contains(norm, "bank statement") || strings.Contains(norm, "ending balance") ||
		strings.Contains(norm, "account summary") || strings.Contains(norm, "total deposits"):
		return domain.DocTypeBankStatement
	case strings.Contains(norm, "debt schedule") || strings.Contains(norm, "creditor"):
		return domain.DocTypeDebtSchedule
	default:
		return domain.DocTypeUnknown
	}
}
