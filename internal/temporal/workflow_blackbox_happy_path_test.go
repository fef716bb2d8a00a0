package temporal

import (
	"context"
	"sync"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/converter"
	"go.temporal.io/sdk/testsuite"

	"buddy-underwriter/internal/domain"
)

type activityTrace struct {
	mu sync.Mutex

	startedOrder   []string
	completedOrder []string

	beginIn     *BeginIntakeInput
	beginOut    *BeginIntakeOutput
	classifyIn  *ClassifyDocumentInput
	classifyOut *ClassifyDocumentOutput
	extractIn   *ExtractFactsInput
	extractOut  *ExtractFactsOutput
	validateIn  *ValidateFactsInput
	validateOut *ValidateFactsOutput
	finalizeIn  *FinalizeDocumentInput
	preflightIn *RunPreflightInput

	correctCalls     int
	queueReviewCalls int
	rejectCalls      int
}

func (t *activityTrace) recordStarted(name string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.startedOrder = append(t.startedOrder, name)
}

func (t *activityTrace) recordCompleted(name string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.completedOrder = append(t.completedOrder, name)
}

var _ = Describe("DealIntakeWorkflow blackbox happy path", func() {
	It("runs a high-confidence tax return through intake and lands in READY_FOR_UNDERWRITE", func() {
		var suite testsuite.WorkflowTestSuite
		env := suite.NewTestWorkflowEnvironment()

		const highConfidenceTaxReturnJSON = `{"business_name":"Blue Harbor Coffee LLC","ein":"12-3456789","tax_year":2025,"gross_receipts":820000,"net_profit":96000,"confidence":0.93}`

		store := newFakeStore()
		store.seedDeal(domain.DealRecord{ID: "deal-blackbox-1", IntakeState: domain.StateUploadComplete}, domain.DefaultChecklist())
		store.seedDocument(domain.DocumentRecord{
			ID:       "doc-blackbox-1",
			DealID:   "deal-blackbox-1",
			Filename: "tax_return_2025.txt",
			RawText:  "Form 1120S for Blue Harbor Coffee LLC. Gross receipts 820000. Net profit 96000.",
		})

		llm := &stubLLM{responses: []string{
			highConfidenceTaxReturnJSON,
			`{"summary":"Blue Harbor Coffee LLC is a profitable specialty coffee roaster."}`,
		}}
		acts := newTestActivities(store, newFakeBlob(), llm)

		trace := &activityTrace{}

		env.SetOnActivityStartedListener(func(info *activity.Info, _ context.Context, args converter.EncodedValues) {
			trace.recordStarted(info.ActivityType.Name)

			switch info.ActivityType.Name {
			case "BeginIntakeActivity":
				var in BeginIntakeInput
				_ = args.Get(&in)
				trace.mu.Lock()
				trace.beginIn = &in
				trace.mu.Unlock()
			case "ClassifyDocumentActivity":
				var in ClassifyDocumentInput
				_ = args.Get(&in)
				trace.mu.Lock()
				trace.classifyIn = &in
				trace.mu.Unlock()
			case "ExtractFactsActivity":
				var in ExtractFactsInput
				_ = args.Get(&in)
				trace.mu.Lock()
				trace.extractIn = &in
				trace.mu.Unlock()
			case "ValidateFactsActivity":
				var in ValidateFactsInput
				_ = args.Get(&in)
				trace.mu.Lock()
				trace.validateIn = &in
				trace.mu.Unlock()
			case "FinalizeDocumentActivity":
				var in FinalizeDocumentInput
				_ = args.Get(&in)
				trace.mu.Lock()
				trace.finalizeIn = &in
				trace.mu.Unlock()
			case "RunPreflightActivity":
				var in RunPreflightInput
				_ = args.Get(&in)
				trace.mu.Lock()
				trace.preflightIn = &in
				trace.mu.Unlock()
			case "CorrectFactsActivity":
				trace.mu.Lock()
				trace.correctCalls++
				trace.mu.Unlock()
			case "QueueReviewActivity":
				trace.mu.Lock()
				trace.queueReviewCalls++
				trace.mu.Unlock()
			case "RejectDocumentActivity":
				trace.mu.Lock()
				trace.rejectCalls++
				trace.mu.Unlock()
			}
		})

		env.SetOnActivityCompletedListener(func(info *activity.Info, result converter.EncodedValue, _ error) {
			trace.recordCompleted(info.ActivityType.Name)

			switch info.ActivityType.Name {
			case "BeginIntakeActivity":
				var out BeginIntakeOutput
				_ = result.Get(&out)
				trace.mu.Lock()
				trace.beginOut = &out
				trace.mu.Unlock()
			case "ClassifyDocumentActivity":
				var out ClassifyDocumentOutput
				_ = result.Get(&out)
				trace.mu.Lock()
				trace.classifyOut = &out
				trace.mu.Unlock()
			case "ExtractFactsActivity":
				var out ExtractFactsOutput
				_ = result.Get(&out)
				trace.mu.Lock()
				trace.extractOut = &out
				trace.mu.Unlock()
			case "ValidateFactsActivity":
				var out ValidateFactsOutput
				_ = result.Get(&out)
				trace.mu.Lock()
				trace.validateOut = &out
				trace.mu.Unlock()
			}
		})

		registerAll(env, acts)

		By("triggering the workflow for a deal whose uploads are complete")
		env.ExecuteWorkflow(DealIntakeWorkflow, WorkflowInput{DealID: "deal-blackbox-1"})

		By("validating the workflow completes successfully")
		Expect(env.IsWorkflowCompleted()).To(BeTrue())
		Expect(env.GetWorkflowError()).ToNot(HaveOccurred())

		var wfResult WorkflowResult
		Expect(env.GetWorkflowResult(&wfResult)).To(Succeed())
		Expect(wfResult.DealID).To(Equal("deal-blackbox-1"))
		Expect(wfResult.State).To(Equal(domain.StateReadyForUnderwrite))

		By("validating the activity sequence for the happy path")
		expectedOrder := []string{
			"BeginIntakeActivity",
			"ClassifyDocumentActivity",
			"ExtractFactsActivity",
			"ValidateFactsActivity",
			"FinalizeDocumentActivity",
			"RunPreflightActivity",
			"GenerateNarrativeActivity",
			"CompleteIntakeActivity",
		}
		Expect(trace.startedOrder).To(Equal(expectedOrder))
		Expect(trace.completedOrder).To(Equal(expectedOrder))

		Expect(trace.beginIn).ToNot(BeNil())
		Expect(trace.beginIn.DealID).To(Equal("deal-blackbox-1"))

		Expect(trace.beginOut).ToNot(BeNil())
		Expect(trace.beginOut.Documents).To(HaveLen(1))
		Expect(trace.beginOut.Documents[0].DocumentID).To(Equal("doc-blackbox-1"))

		Expect(trace.classifyIn).ToNot(BeNil())
		Expect(trace.classifyIn.DocumentID).To(Equal("doc-blackbox-1"))

		Expect(trace.classifyOut).ToNot(BeNil())
		Expect(trace.classifyOut.DocType).To(Equal(domain.DocTypeTaxReturn))

		Expect(trace.extractIn).ToNot(BeNil())
		Expect(trace.extractIn.DocType).To(Equal(domain.DocTypeTaxReturn))

		Expect(trace.extractOut).ToNot(BeNil())
		Expect(trace.extractOut.Confidence).To(BeNumerically("~", 0.93, 0.0001))
		Expect(string(trace.extractOut.ExtractionJSON)).To(MatchJSON(highConfidenceTaxReturnJSON))

		Expect(trace.validateIn).ToNot(BeNil())
		Expect(string(trace.validateIn.ExtractionJSON)).To(MatchJSON(string(trace.extractOut.ExtractionJSON)))

		Expect(trace.validateOut).ToNot(BeNil())
		Expect(trace.validateOut.FailedRules).To(BeEmpty())
		Expect(trace.validateOut.Confidence).To(BeNumerically("~", 0.93, 0.0001))

		Expect(trace.finalizeIn).ToNot(BeNil())
		Expect(trace.finalizeIn.DocumentID).To(Equal("doc-blackbox-1"))
		Expect(string(trace.finalizeIn.FinalJSON)).To(MatchJSON(string(trace.extractOut.ExtractionJSON)))

		Expect(trace.preflightIn).ToNot(BeNil())
		Expect(trace.preflightIn.DealID).To(Equal("deal-blackbox-1"))

		Expect(trace.correctCalls).To(Equal(0))
		Expect(trace.queueReviewCalls).To(Equal(0))
		Expect(trace.rejectCalls).To(Equal(0))

		By("validating persisted side effects")
		store.mu.Lock()
		deal := store.deals["deal-blackbox-1"]
		doc := store.docs["doc-blackbox-1"]
		modelPhases := append([]string(nil), store.modelPhases["doc-blackbox-1"]...)
		auditStates := append([]domain.AuditState(nil), store.audit["deal-blackbox-1"]...)
		store.mu.Unlock()

		Expect(deal.IntakeState).To(Equal(domain.StateReadyForUnderwrite))
		Expect(deal.LifecycleStage).To(Equal(domain.StageReady))
		Expect(len(deal.Preflight)).To(BeNumerically(">", 0))
		Expect(len(deal.Narrative)).To(BeNumerically(">", 0))

		Expect(doc.Status).To(Equal(domain.DocStatusCompleted))
		Expect(string(doc.FinalJSON)).To(MatchJSON(highConfidenceTaxReturnJSON))
		Expect(modelPhases).To(Equal([]string{modelOutputPhaseBase1}))
		Expect(auditStates).To(Equal([]domain.AuditState{
			domain.AuditDocumentClassified,
			domain.AuditFactsExtracted,
			domain.AuditPreflightRun,
			domain.AuditNarrativeGenerated,
			domain.AuditIntakeCompleted,
		}))
	})
})
