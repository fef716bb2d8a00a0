//go:build system

package system_test

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.temporal.io/sdk/client"

	"buddy-underwriter/internal/domain"
)

// Exercises the deployed stack end to end: API, Postgres, MinIO, Temporal
// server, and the worker, with real model calls. Requires `docker compose up`
// plus a worker running with a valid OPENAI_API_KEY.
var _ = Describe("Deal intake happy path", Ordered, func() {
	var (
		cfg            systemTestConfig
		repoRoot       string
		db             *sql.DB
		temporalClient client.Client

		dealID     string
		workflowID string
	)

	BeforeAll(func() {
		cfg = loadSystemTestConfig()

		var err error
		repoRoot, err = findRepoRoot()
		Expect(err).NotTo(HaveOccurred())

		Expect(requireComposeServicesRunning(repoRoot, cfg.RequiredComposeServices)).To(Succeed())
		Expect(waitForPostgres(cfg.PostgresDSN, cfg.PreflightTimeout)).To(Succeed())
		Expect(waitForTemporal(cfg.TemporalAddress, cfg.TemporalNamespace, cfg.PreflightTimeout)).To(Succeed())
		Expect(waitForHTTPStatus(cfg.MinioReadyURL, 200, cfg.PreflightTimeout)).To(Succeed())
		Expect(waitForHTTPStatus(cfg.APIBaseURL+cfg.APIHealthPath, 200, cfg.PreflightTimeout)).To(Succeed())
		Expect(waitForHTTPStatus(cfg.APIBaseURL+cfg.APIReadyPath, 200, cfg.PreflightTimeout)).To(Succeed())
		Expect(waitForWorkerPoller(cfg.TemporalAddress, cfg.TemporalNamespace, cfg.TemporalTaskQueue, cfg.WorkerPollerTimeout)).To(Succeed())

		Expect(applyMigration(repoRoot, cfg.PostgresDSN)).To(Succeed())

		db, err = sql.Open("postgres", cfg.PostgresDSN)
		Expect(err).NotTo(HaveOccurred())

		temporalClient, err = client.Dial(client.Options{
			HostPort:  cfg.TemporalAddress,
			Namespace: cfg.TemporalNamespace,
		})
		Expect(err).NotTo(HaveOccurred())
	})

	AfterAll(func() {
		if db != nil {
			_ = db.Close()
		}
		if temporalClient != nil {
			temporalClient.Close()
		}
	})

	It("creates a deal in CREATED with the default checklist", func() {
		created, err := createDeal(cfg.APIBaseURL)
		Expect(err).NotTo(HaveOccurred())
		Expect(created.DealID).NotTo(BeEmpty())
		Expect(created.IntakeState).To(Equal(domain.StateCreated))
		Expect(created.LifecycleStage).To(Equal(domain.StageCollecting))
		dealID = created.DealID

		status, err := getDealStatus(cfg.APIBaseURL, dealID)
		Expect(err).NotTo(HaveOccurred())
		Expect(status.Requirements).To(HaveLen(3))
	})

	It("refuses the underwriting gate while documents are missing", func() {
		gate, err := getUnderwritingGate(cfg.APIBaseURL, dealID)
		Expect(err).NotTo(HaveOccurred())
		Expect(gate.Allowed).To(BeFalse())
		Expect(gate.Blockers).To(ContainElement("Business Tax Return"))
		Expect(gate.Blockers).To(ContainElement("Business Bank Statement"))
	})

	It("accepts the required documents through an upload session", func() {
		Expect(openUploadSession(cfg.APIBaseURL, dealID)).To(Succeed())

		taxReturn, err := uploadDealDocument(cfg.APIBaseURL, dealID, filepath.Join(repoRoot, "testdata", "tax_return.txt"))
		Expect(err).NotTo(HaveOccurred())
		Expect(taxReturn.Status).To(Equal(domain.DocStatusStored))

		bankStatement, err := uploadDealDocument(cfg.APIBaseURL, dealID, filepath.Join(repoRoot, "testdata", "bank_statement.txt"))
		Expect(err).NotTo(HaveOccurred())
		Expect(bankStatement.Status).To(Equal(domain.DocStatusStored))
	})

	It("starts the intake workflow when uploads are complete", func() {
		completed, err := completeUploads(cfg.APIBaseURL, dealID)
		Expect(err).NotTo(HaveOccurred())
		Expect(completed.WorkflowID).NotTo(BeEmpty())
		Expect(completed.IntakeState).To(Equal(domain.StateUploadComplete))
		workflowID = completed.WorkflowID
	})

	It("drives the deal to READY_FOR_UNDERWRITE", func() {
		deadline := time.Now().Add(cfg.WorkflowCompletionTimeout)
		var lastState domain.DealIntakeState
		for time.Now().Before(deadline) {
			status, err := getDealStatus(cfg.APIBaseURL, dealID)
			Expect(err).NotTo(HaveOccurred())
			lastState = status.Deal.IntakeState
			if lastState == domain.StateReadyForUnderwrite {
				break
			}
			Expect(lastState).NotTo(Equal(domain.StateFailed), "intake failed: %v", status.Deal.FailureReason)
			time.Sleep(cfg.WorkflowPollInterval)
		}
		Expect(lastState).To(Equal(domain.StateReadyForUnderwrite))

		status, err := getDealStatus(cfg.APIBaseURL, dealID)
		Expect(err).NotTo(HaveOccurred())
		Expect(status.Deal.LifecycleStage).To(Equal(domain.StageReady))
		Expect(status.Deal.Preflight).NotTo(BeEmpty())
		Expect(status.Deal.Narrative).NotTo(BeEmpty())
		// Upload-session placeholders stay RECEIVED; the two stored
		// documents must have completed extraction.
		completed := 0
		for _, doc := range status.Documents {
			if doc.Status == domain.DocStatusCompleted {
				completed++
			} else {
				Expect(doc.Status).To(Equal(domain.DocStatusReceived))
			}
		}
		Expect(completed).To(Equal(2))
	})

	It("ran the expected activity sequence", func() {
		trace, err := collectActivityTrace(context.Background(), temporalClient, workflowID)
		Expect(err).NotTo(HaveOccurred())

		counts := make(map[string]int)
		for _, name := range trace.ScheduledOrder {
			counts[name]++
		}

		// Correction and review activities only appear on degraded model
		// output, so assert the fixed spine rather than an exact sequence.
		Expect(trace.ScheduledOrder[0]).To(Equal("BeginIntakeActivity"))
		Expect(counts["ClassifyDocumentActivity"]).To(Equal(2))
		Expect(counts["ExtractFactsActivity"]).To(Equal(2))
		Expect(counts["ValidateFactsActivity"]).To(Equal(2))
		Expect(counts["RunPreflightActivity"]).To(Equal(1))
		Expect(counts["GenerateNarrativeActivity"]).To(Equal(1))
		Expect(trace.ScheduledOrder[len(trace.ScheduledOrder)-1]).To(Equal("CompleteIntakeActivity"))
		Expect(trace.CompletedOrder).To(ContainElement("CompleteIntakeActivity"))
	})

	It("opens the underwriting gate once the checklist is satisfied", func() {
		gate, err := getUnderwritingGate(cfg.APIBaseURL, dealID)
		Expect(err).NotTo(HaveOccurred())
		Expect(gate.Allowed).To(BeTrue())
		Expect(gate.Blockers).To(BeEmpty())
	})

	It("reports the deal ready for submission and accepts it", func() {
		readiness, err := getReadiness(cfg.APIBaseURL, dealID)
		Expect(err).NotTo(HaveOccurred())
		Expect(readiness.Ready).To(BeTrue())
		Expect(readiness.Blockers).To(BeEmpty())
		Expect(readiness.Score).To(Equal(100))
		Expect(readiness.ReadinessLevel).To(Equal(domain.ReadinessExcellent))

		submitted, err := doPOSTJSON[map[string]any](cfg.APIBaseURL+"/v1/deals/"+dealID+"/submit", map[string]any{})
		Expect(err).NotTo(HaveOccurred())
		Expect(submitted["lifecycle_stage"]).To(Equal(domain.StageSubmitted))

		status, err := getDealStatus(cfg.APIBaseURL, dealID)
		Expect(err).NotTo(HaveOccurred())
		Expect(status.Deal.LifecycleStage).To(Equal(domain.StageSubmitted))
	})

	It("left a full audit trail in Postgres", func() {
		states, err := fetchStringRows(db,
			"SELECT state FROM audit_log WHERE deal_id = $1 ORDER BY id", dealID)
		Expect(err).NotTo(HaveOccurred())
		Expect(states).To(ContainElements(
			string(domain.AuditUploadSessionOpened),
			string(domain.AuditDocumentStored),
			string(domain.AuditDocumentClassified),
			string(domain.AuditFactsExtracted),
			string(domain.AuditPreflightRun),
			string(domain.AuditNarrativeGenerated),
			string(domain.AuditIntakeCompleted),
			string(domain.AuditPackageSubmitted),
		))

		phases, err := fetchStringRows(db, `
			SELECT ea.phase
			FROM extraction_attempts ea
			JOIN documents d ON d.id = ea.document_id
			WHERE d.deal_id = $1
			ORDER BY ea.id`, dealID)
		Expect(err).NotTo(HaveOccurred())
		Expect(phases).To(ContainElement("BASE_ATTEMPT_1"))
	})

	It("answers a borrower question about the deal", func() {
		reply, err := doPOSTJSON[map[string]any](cfg.APIBaseURL+"/v1/deals/"+dealID+"/chat", map[string]any{
			"message": "What documents have been received for this deal?",
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(fmt.Sprint(reply["reply"])).NotTo(BeEmpty())
	})
})
