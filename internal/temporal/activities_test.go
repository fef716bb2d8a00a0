package temporal

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"buddy-underwriter/internal/domain"
	"buddy-underwriter/internal/openai"
	"buddy-underwriter/internal/storage"
)

type fakeStore struct {
	mu           sync.Mutex
	deals        map[string]domain.DealRecord
	docs         map[string]domain.DocumentRecord
	docOrder     map[string][]string
	requirements map[string][]domain.Requirement
	modelPhases  map[string][]string
	reviews      map[string]domain.ReviewQueueItem
	audit        map[string][]domain.AuditState
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		deals:        make(map[string]domain.DealRecord),
		docs:         make(map[string]domain.DocumentRecord),
		docOrder:     make(map[string][]string),
		requirements: make(map[string][]domain.Requirement),
		modelPhases:  make(map[string][]string),
		reviews:      make(map[string]domain.ReviewQueueItem),
		audit:        make(map[string][]domain.AuditState),
	}
}

func (f *fakeStore) seedDeal(rec domain.DealRecord, checklist []domain.Requirement) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deals[rec.ID] = rec
	for i := range checklist {
		checklist[i].DealID = rec.ID
	}
	f.requirements[rec.ID] = checklist
}

func (f *fakeStore) seedDocument(rec domain.DocumentRecord) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.docs[rec.ID] = rec
	f.docOrder[rec.DealID] = append(f.docOrder[rec.DealID], rec.ID)
}

func (f *fakeStore) GetDeal(_ context.Context, dealID string) (domain.DealRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec, ok := f.deals[dealID]
	if !ok {
		return domain.DealRecord{}, sql.ErrNoRows
	}
	return rec, nil
}

func (f *fakeStore) TransitionDeal(_ context.Context, dealID string, from, to domain.DealIntakeState) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec, ok := f.deals[dealID]
	if !ok || rec.IntakeState != from {
		return storage.ErrStateConflict
	}
	rec.IntakeState = to
	rec.LifecycleStage = domain.LifecycleStageFor(to)
	rec.FailureReason = nil
	f.deals[dealID] = rec
	return nil
}

func (f *fakeStore) MarkDealFailed(_ context.Context, dealID string, from domain.DealIntakeState, reason string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec, ok := f.deals[dealID]
	if !ok || rec.IntakeState != from {
		return storage.ErrStateConflict
	}
	rec.IntakeState = domain.StateFailed
	rec.LifecycleStage = domain.StageCollecting
	rec.FailureReason = &reason
	f.deals[dealID] = rec
	return nil
}

func (f *fakeStore) SavePreflight(_ context.Context, dealID string, payload []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec := f.deals[dealID]
	rec.Preflight = payload
	f.deals[dealID] = rec
	return nil
}

func (f *fakeStore) SaveNarrative(_ context.Context, dealID string, payload []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec := f.deals[dealID]
	rec.Narrative = payload
	f.deals[dealID] = rec
	return nil
}

func (f *fakeStore) ListDealDocuments(_ context.Context, dealID string) ([]domain.DocumentRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	docs := make([]domain.DocumentRecord, 0, len(f.docOrder[dealID]))
	for _, id := range f.docOrder[dealID] {
		docs = append(docs, f.docs[id])
	}
	return docs, nil
}

func (f *fakeStore) GetDocument(_ context.Context, documentID string) (domain.DocumentRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec, ok := f.docs[documentID]
	if !ok {
		return domain.DocumentRecord{}, sql.ErrNoRows
	}
	return rec, nil
}

func (f *fakeStore) MarkDocumentStored(_ context.Context, documentID, objectKey, rawText string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec := f.docs[documentID]
	rec.ObjectKey = objectKey
	rec.RawText = rawText
	rec.Status = domain.DocStatusStored
	f.docs[documentID] = rec
	return nil
}

func (f *fakeStore) UpdateDocumentClassification(_ context.Context, documentID string, docType domain.DocType) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec := f.docs[documentID]
	rec.DocType = docType
	rec.Status = domain.DocStatusClassified
	f.docs[documentID] = rec
	return nil
}

func (f *fakeStore) SaveModelOutput(_ context.Context, documentID string, phase string, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.modelPhases[documentID] = append(f.modelPhases[documentID], phase)
	return nil
}

func (f *fakeStore) SaveCurrentExtraction(_ context.Context, documentID string, payload []byte, confidence float64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec := f.docs[documentID]
	rec.ID = documentID
	rec.CurrentJSON = payload
	rec.Confidence = confidence
	rec.Status = domain.DocStatusExtracted
	f.docs[documentID] = rec
	return nil
}

func (f *fakeStore) GetCurrentExtraction(_ context.Context, documentID string) ([]byte, float64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec, ok := f.docs[documentID]
	if !ok {
		return nil, 0, sql.ErrNoRows
	}
	return rec.CurrentJSON, rec.Confidence, nil
}

func (f *fakeStore) SaveFinalResult(_ context.Context, documentID string, payload []byte, confidence float64, status domain.DocumentStatus, rejectedReason *string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec := f.docs[documentID]
	rec.ID = documentID
	if len(payload) > 0 {
		rec.FinalJSON = payload
	}
	rec.Confidence = confidence
	rec.Status = status
	rec.RejectedReason = rejectedReason
	f.docs[documentID] = rec
	return nil
}

func (f *fakeStore) SatisfyRequirement(_ context.Context, dealID string, docType domain.DocType, documentID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	reqs := f.requirements[dealID]
	for i := range reqs {
		if reqs[i].DocType == docType && reqs[i].SatisfiedBy == nil {
			id := documentID
			reqs[i].SatisfiedBy = &id
			break
		}
	}
	f.requirements[dealID] = reqs
	return nil
}

func (f *fakeStore) MissingRequiredTitles(_ context.Context, dealID string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	titles := make([]string, 0)
	for _, req := range f.requirements[dealID] {
		if req.Required && req.SatisfiedBy == nil {
			titles = append(titles, req.Title)
		}
	}
	return titles, nil
}

func (f *fakeStore) RequirementsSummary(_ context.Context, dealID string) (domain.RequirementsSummary, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var summary domain.RequirementsSummary
	for _, req := range f.requirements[dealID] {
		if !req.Required {
			continue
		}
		summary.Summary.RequiredTotal++
		if req.SatisfiedBy == nil {
			summary.Summary.RequiredMissing++
		}
	}
	return summary, nil
}

func (f *fakeStore) QueueReview(_ context.Context, documentID, dealID string, failedRules []string, currentJSON []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec := f.docs[documentID]
	rec.Status = domain.DocStatusNeedsReview
	f.docs[documentID] = rec
	f.reviews[documentID] = domain.ReviewQueueItem{
		DocumentID:  documentID,
		DealID:      dealID,
		FailedRules: failedRules,
		CurrentJSON: currentJSON,
		Status:      "PENDING",
	}
	return nil
}

func (f *fakeStore) ResolveReview(_ context.Context, documentID string, decision string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	item := f.reviews[documentID]
	item.DocumentID = documentID
	item.Status = decision
	f.reviews[documentID] = item
	return nil
}

func (f *fakeStore) InsertAudit(_ context.Context, dealID string, state domain.AuditState, _ any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.audit[dealID] = append(f.audit[dealID], state)
	return nil
}

type fakeBlob struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func newFakeBlob() *fakeBlob {
	return &fakeBlob{objects: make(map[string][]byte)}
}

func (f *fakeBlob) GetDocument(_ context.Context, objectKey string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	content, ok := f.objects[objectKey]
	if !ok {
		return nil, errors.New("object not found: " + objectKey)
	}
	return content, nil
}

type stubLLM struct {
	mu        sync.Mutex
	responses []string
	errs      []error
	calls     []openai.CompletionRequest
}

func (s *stubLLM) CompleteJSON(_ context.Context, req openai.CompletionRequest) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, req)
	idx := len(s.calls) - 1
	if idx < len(s.errs) && s.errs[idx] != nil {
		return "", s.errs[idx]
	}
	if idx < len(s.responses) {
		return s.responses[idx], nil
	}
	return "{}", nil
}

func (s *stubLLM) CompleteChat(_ context.Context, _ openai.ChatRequest) (string, error) {
	return "ok", nil
}

const validTaxReturnJSON = `{"business_name":"Blue Harbor Coffee LLC","ein":"12-3456789","tax_year":2025,"gross_receipts":820000,"net_profit":96000,"confidence":0.9}`

func newTestActivities(store *fakeStore, blob *fakeBlob, llm *stubLLM) *Activities {
	return &Activities{
		Store:          store,
		Blob:           blob,
		LLM:            llm,
		OpenAIModel:    "gpt-4o-mini",
		OpenAITimeout:  10 * time.Second,
		OpenAIMaxRetry: 1,
	}
}

func TestBeginIntakeHydratesFromObjectStorage(t *testing.T) {
	store := newFakeStore()
	store.seedDeal(domain.DealRecord{ID: "deal-1", IntakeState: domain.StateUploadComplete}, domain.DefaultChecklist())
	store.seedDocument(domain.DocumentRecord{
		ID:        "doc-1",
		DealID:    "deal-1",
		Filename:  "tax_return.txt",
		ObjectKey: "deal-1/doc-1/tax_return.txt",
	})

	blob := newFakeBlob()
	blob.objects["deal-1/doc-1/tax_return.txt"] = []byte("Form 1120S tax return")

	acts := newTestActivities(store, blob, &stubLLM{})
	out, err := acts.BeginIntakeActivity(context.Background(), BeginIntakeInput{DealID: "deal-1"})
	require.NoError(t, err)
	require.Len(t, out.Documents, 1)
	require.Equal(t, "Form 1120S tax return", out.Documents[0].DocumentText)

	deal, err := store.GetDeal(context.Background(), "deal-1")
	require.NoError(t, err)
	require.Equal(t, domain.StateIntakeRunning, deal.IntakeState)

	doc, err := store.GetDocument(context.Background(), "doc-1")
	require.NoError(t, err)
	require.Equal(t, "Form 1120S tax return", doc.RawText)
}

func TestBeginIntakeSkipsUnusedUploadPlaceholders(t *testing.T) {
	store := newFakeStore()
	store.seedDeal(domain.DealRecord{ID: "deal-1", IntakeState: domain.StateUploadComplete}, domain.DefaultChecklist())
	store.seedDocument(domain.DocumentRecord{ID: "doc-1", DealID: "deal-1", Filename: "business-tax-return.txt"})
	store.seedDocument(domain.DocumentRecord{
		ID:       "doc-2",
		DealID:   "deal-1",
		Filename: "statement.txt",
		RawText:  "Bank statement with ending balance 41200",
	})

	acts := newTestActivities(store, newFakeBlob(), &stubLLM{})
	out, err := acts.BeginIntakeActivity(context.Background(), BeginIntakeInput{DealID: "deal-1"})
	require.NoError(t, err)
	require.Len(t, out.Documents, 1)
	require.Equal(t, "doc-2", out.Documents[0].DocumentID)
}

func TestBeginIntakeTolerantOfActivityRetry(t *testing.T) {
	store := newFakeStore()
	store.seedDeal(domain.DealRecord{ID: "deal-1", IntakeState: domain.StateIntakeRunning}, nil)

	acts := newTestActivities(store, newFakeBlob(), &stubLLM{})
	_, err := acts.BeginIntakeActivity(context.Background(), BeginIntakeInput{DealID: "deal-1"})
	require.NoError(t, err)
}

func TestBeginIntakeRejectsWrongState(t *testing.T) {
	store := newFakeStore()
	store.seedDeal(domain.DealRecord{ID: "deal-1", IntakeState: domain.StateUploading}, nil)

	acts := newTestActivities(store, newFakeBlob(), &stubLLM{})
	_, err := acts.BeginIntakeActivity(context.Background(), BeginIntakeInput{DealID: "deal-1"})
	require.ErrorIs(t, err, storage.ErrStateConflict)
}

func TestClassifyDocumentSatisfiesRequirement(t *testing.T) {
	store := newFakeStore()
	store.seedDeal(domain.DealRecord{ID: "deal-1", IntakeState: domain.StateIntakeRunning}, domain.DefaultChecklist())
	store.seedDocument(domain.DocumentRecord{ID: "doc-1", DealID: "deal-1", Filename: "return.txt"})

	acts := newTestActivities(store, newFakeBlob(), &stubLLM{})
	out, err := acts.ClassifyDocumentActivity(context.Background(), ClassifyDocumentInput{
		DealID:       "deal-1",
		DocumentID:   "doc-1",
		Filename:     "return.txt",
		DocumentText: "Form 1120S with gross receipts of 820000",
	})
	require.NoError(t, err)
	require.Equal(t, domain.DocTypeTaxReturn, out.DocType)

	titles, err := store.MissingRequiredTitles(context.Background(), "deal-1")
	require.NoError(t, err)
	require.Equal(t, []string{"Business Bank Statement"}, titles)
	require.Equal(t, []domain.AuditState{domain.AuditDocumentClassified}, store.audit["deal-1"])
}

func TestClassifyDocumentUnknownLeavesChecklist(t *testing.T) {
	store := newFakeStore()
	store.seedDeal(domain.DealRecord{ID: "deal-1", IntakeState: domain.StateIntakeRunning}, domain.DefaultChecklist())
	store.seedDocument(domain.DocumentRecord{ID: "doc-1", DealID: "deal-1", Filename: "notes.txt"})

	acts := newTestActivities(store, newFakeBlob(), &stubLLM{})
	out, err := acts.ClassifyDocumentActivity(context.Background(), ClassifyDocumentInput{
		DealID:       "deal-1",
		DocumentID:   "doc-1",
		Filename:     "notes.txt",
		DocumentText: "meeting notes about nothing in particular",
	})
	require.NoError(t, err)
	require.Equal(t, domain.DocTypeUnknown, out.DocType)

	summary, err := store.RequirementsSummary(context.Background(), "deal-1")
	require.NoError(t, err)
	require.Equal(t, 2, summary.Summary.RequiredMissing)
}

func TestExtractFactsRepairPath(t *testing.T) {
	store := newFakeStore()
	store.seedDocument(domain.DocumentRecord{ID: "doc-1", DealID: "deal-1"})

	llm := &stubLLM{responses: []string{
		`{"business_name":"Blue Harbor`,
		validTaxReturnJSON,
	}}
	acts := newTestActivities(store, newFakeBlob(), llm)

	out, err := acts.ExtractFactsActivity(context.Background(), ExtractFactsInput{
		DealID:       "deal-1",
		DocumentID:   "doc-1",
		DocType:      domain.DocTypeTaxReturn,
		DocumentText: "Form 1120S gross receipts net profit",
	})
	require.NoError(t, err)
	require.Greater(t, len(out.ExtractionJSON), 0)
	require.Equal(t, 0.9, out.Confidence)
	require.Len(t, llm.calls, 2)
	require.Equal(t, []string{modelOutputPhaseBase1, modelOutputPhaseRepair1}, store.modelPhases["doc-1"])
}

func TestExtractFactsExhaustsLadder(t *testing.T) {
	store := newFakeStore()
	store.seedDocument(domain.DocumentRecord{ID: "doc-1", DealID: "deal-1"})

	llm := &stubLLM{responses: []string{`not json`, `still not json`, `nope`}}
	acts := newTestActivities(store, newFakeBlob(), llm)

	_, err := acts.ExtractFactsActivity(context.Background(), ExtractFactsInput{
		DealID:     "deal-1",
		DocumentID: "doc-1",
		DocType:    domain.DocTypeTaxReturn,
	})
	require.Error(t, err)
	require.Equal(t, []string{modelOutputPhaseBase1, modelOutputPhaseRepair1, modelOutputPhaseBase2}, store.modelPhases["doc-1"])
}

func TestExtractFactsIdempotentOnRetry(t *testing.T) {
	store := newFakeStore()
	store.seedDocument(domain.DocumentRecord{
		ID:          "doc-1",
		DealID:      "deal-1",
		CurrentJSON: []byte(validTaxReturnJSON),
		Confidence:  0.9,
	})

	llm := &stubLLM{}
	acts := newTestActivities(store, newFakeBlob(), llm)

	out, err := acts.ExtractFactsActivity(context.Background(), ExtractFactsInput{
		DealID:     "deal-1",
		DocumentID: "doc-1",
		DocType:    domain.DocTypeTaxReturn,
	})
	require.NoError(t, err)
	require.Equal(t, 0.9, out.Confidence)
	require.Empty(t, llm.calls)
}

func TestRunPreflightAllChecksPass(t *testing.T) {
	store := newFakeStore()
	form, err := json.Marshal(domain.ApplicationForm{
		BusinessName:    "Blue Harbor Coffee LLC",
		EIN:             "12-3456789",
		RequestedAmount: 250000,
		UseOfProceeds:   "equipment",
		YearsInBusiness: 6,
	})
	require.NoError(t, err)

	store.seedDeal(domain.DealRecord{
		ID:              "deal-1",
		IntakeState:     domain.StateIntakeRunning,
		ApplicationForm: form,
	}, domain.DefaultChecklist())

	store.seedDocument(domain.DocumentRecord{
		ID:        "doc-tax",
		DealID:    "deal-1",
		DocType:   domain.DocTypeTaxReturn,
		FinalJSON: []byte(validTaxReturnJSON),
	})
	store.seedDocument(domain.DocumentRecord{
		ID:        "doc-bank",
		DealID:    "deal-1",
		DocType:   domain.DocTypeBankStatement,
		FinalJSON: []byte(`{"account_holder":"Blue Harbor Coffee LLC","bank_name":"First Coastal","statement_start":"2026-05-01","statement_end":"2026-05-31","ending_balance":41200,"total_deposits":88000,"confidence":0.95}`),
	})

	require.NoError(t, store.SatisfyRequirement(context.Background(), "deal-1", domain.DocTypeTaxReturn, "doc-tax"))
	require.NoError(t, store.SatisfyRequirement(context.Background(), "deal-1", domain.DocTypeBankStatement, "doc-bank"))

	acts := newTestActivities(store, newFakeBlob(), &stubLLM{})
	out, err := acts.RunPreflightActivity(context.Background(), RunPreflightInput{DealID: "deal-1"})
	require.NoError(t, err)
	require.True(t, out.Preflight.Passed)
	require.Equal(t, 100, out.Preflight.Score)
	require.Empty(t, out.Preflight.FailedChecks)

	deal, err := store.GetDeal(context.Background(), "deal-1")
	require.NoError(t, err)
	require.Greater(t, len(deal.Preflight), 0)
}

func TestRunPreflightMissingBankStatement(t *testing.T) {
	store := newFakeStore()
	form, _ := json.Marshal(domain.ApplicationForm{
		BusinessName:    "Blue Harbor Coffee LLC",
		EIN:             "12-3456789",
		RequestedAmount: 250000,
		UseOfProceeds:   "equipment",
		YearsInBusiness: 6,
	})
	store.seedDeal(domain.DealRecord{ID: "deal-1", IntakeState: domain.StateIntakeRunning, ApplicationForm: form}, domain.DefaultChecklist())
	store.seedDocument(domain.DocumentRecord{
		ID:        "doc-tax",
		DealID:    "deal-1",
		DocType:   domain.DocTypeTaxReturn,
		FinalJSON: []byte(validTaxReturnJSON),
	})
	require.NoError(t, store.SatisfyRequirement(context.Background(), "deal-1", domain.DocTypeTaxReturn, "doc-tax"))

	acts := newTestActivities(store, newFakeBlob(), &stubLLM{})
	out, err := acts.RunPreflightActivity(context.Background(), RunPreflightInput{DealID: "deal-1"})
	require.NoError(t, err)
	require.False(t, out.Preflight.Passed)
	require.Contains(t, out.Preflight.FailedChecks, "preflight.bank_statement_extracted")
	require.Contains(t, out.Preflight.FailedChecks, "preflight.required_documents_present")
	require.Equal(t, 70, out.Preflight.Score)
}

func TestGenerateNarrativeRequiresSummaryKey(t *testing.T) {
	store := newFakeStore()
	store.seedDeal(domain.DealRecord{ID: "deal-1", IntakeState: domain.StateIntakeRunning}, nil)

	llm := &stubLLM{responses: []string{`{"observations":"no summary here"}`}}
	acts := newTestActivities(store, newFakeBlob(), llm)

	_, err := acts.GenerateNarrativeActivity(context.Background(), GenerateNarrativeInput{DealID: "deal-1"})
	require.Error(t, err)
}

func TestGenerateNarrativeIdempotent(t *testing.T) {
	store := newFakeStore()
	store.seedDeal(domain.DealRecord{
		ID:          "deal-1",
		IntakeState: domain.StateIntakeRunning,
		Narrative:   []byte(`{"summary":"already written"}`),
	}, nil)

	llm := &stubLLM{}
	acts := newTestActivities(store, newFakeBlob(), llm)

	out, err := acts.GenerateNarrativeActivity(context.Background(), GenerateNarrativeInput{DealID: "deal-1"})
	require.NoError(t, err)
	require.JSONEq(t, `{"summary":"already written"}`, string(out.NarrativeJSON))
	require.Empty(t, llm.calls)
}

func TestCompleteIntakeToleratesRetryAfterSwap(t *testing.T) {
	store := newFakeStore()
	store.seedDeal(domain.DealRecord{ID: "deal-1", IntakeState: domain.StateReadyForUnderwrite}, nil)

	acts := newTestActivities(store, newFakeBlob(), &stubLLM{})
	require.NoError(t, acts.CompleteIntakeActivity(context.Background(), CompleteIntakeInput{DealID: "deal-1"}))
}

func TestFailIntakeRecordsReason(t *testing.T) {
	store := newFakeStore()
	store.seedDeal(domain.DealRecord{ID: "deal-1", IntakeState: domain.StateIntakeRunning}, nil)

	acts := newTestActivities(store, newFakeBlob(), &stubLLM{})
	require.NoError(t, acts.FailIntakeActivity(context.Background(), FailIntakeInput{DealID: "deal-1", Reason: "extraction failed"}))

	deal, err := store.GetDeal(context.Background(), "deal-1")
	require.NoError(t, err)
	require.Equal(t, domain.StateFailed, deal.IntakeState)
	require.Equal(t, domain.StageCollecting, deal.LifecycleStage)
	require.NotNil(t, deal.FailureReason)
	require.Equal(t, "extraction failed", *deal.FailureReason)
}
