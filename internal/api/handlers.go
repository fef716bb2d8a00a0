package api

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.temporal.io/sdk/client"

	"buddy-underwriter/internal/config"
	"buddy-underwriter/internal/domain"
	"buddy-underwriter/internal/openai"
	"buddy-underwriter/internal/storage"
	appTemporal "buddy-underwriter/internal/temporal"
)

const chatHistoryLimit = 20

type Handler struct {
	cfg            config.Config
	store          *storage.PostgresStore
	blob           uploadBlobStore
	temporalClient client.Client
	llm            openai.Client
}

type uploadBlobStore interface {
	PutDocument(ctx context.Context, dealID, documentID, filename string, content []byte) (string, error)
	PresignedUploadURL(ctx context.Context, dealID, documentID, filename string, ttl time.Duration) (string, string, error)
	PresignedDownloadURL(ctx context.Context, objectKey string, ttl time.Duration) (string, error)
}

type createDealRequest struct {
	BorrowerName    string                 `json:"borrower_name"`
	BusinessName    string                 `json:"business_name"`
	ApplicationForm domain.ApplicationForm `json:"application_form"`
}

type transitionRequest struct {
	To     string `json:"to"`
	Reason string `json:"reason,omitempty"`
}

type reviewRequest struct {
	Decision    string          `json:"decision"`
	Corrections json.RawMessage `json:"corrections,omitempty"`
	Reviewer    string          `json:"reviewer,omitempty"`
	Reason      string          `json:"reason,omitempty"`
}

type chatRequest struct {
	Message string `json:"message"`
}

type presignedUpload struct {
	Title      string `json:"title"`
	DocumentID string `json:"document_id"`
	ObjectKey  string `json:"object_key"`
	UploadURL  string `json:"upload_url"`
}

type statusResponse struct {
	Deal         domain.DealRecord       `json:"deal"`
	Documents    []domain.DocumentRecord `json:"documents"`
	Requirements []domain.Requirement    `json:"requirements"`
}

func NewHandler(cfg config.Config, store *storage.PostgresStore, blob uploadBlobStore, temporalClient client.Client, llm openai.Client) *Handler {
	return &Handler{cfg: cfg, store: store, blob: blob, temporalClient: temporalClient, llm: llm}
}

func (h *Handler) CreateDeal(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	var req createDealRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid json"})
		return
	}
	if strings.TrimSpace(req.BorrowerName) == "" || strings.TrimSpace(req.BusinessName) == "" {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "borrower_name and business_name are required"})
		return
	}

	form, err := json.Marshal(req.ApplicationForm)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid application form"})
		return
	}

	rec := domain.DealRecord{
		ID:              uuid.NewString(),
		BorrowerName:    req.BorrowerName,
		BusinessName:    req.BusinessName,
		IntakeState:     domain.StateCreated,
		LifecycleStage:  domain.StageCollecting,
		ApplicationForm: form,
	}
	if err := h.store.CreateDeal(ctx, rec, domain.DefaultChecklist()); err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]any{"error": "failed to create deal"})
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"deal_id":         rec.ID,
		"intake_state":    rec.IntakeState,
		"lifecycle_stage": rec.LifecycleStage,
	})
}

// OpenUploadSession moves the deal into UPLOAD_SESSION_READY and hands back a
// presigned PUT URL per checklist entry. Reopening after FAILED goes through
// the same edge check.
func (h *Handler) OpenUploadSession(w http.ResponseWriter, r *http.Request, dealID string) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	deal, err := h.store.GetDeal(ctx, dealID)
	if err != nil {
		writeDealLookupError(w, err)
		return
	}
	if !domain.CanTransitionIntakeState(deal.IntakeState, domain.StateUploadSessionReady) {
		writeJSON(w, http.StatusConflict, map[string]any{
			"error": fmt.Sprintf("cannot open upload session from %s", deal.IntakeState),
		})
		return
	}
	if err := h.store.TransitionDeal(ctx, dealID, deal.IntakeState, domain.StateUploadSessionReady); err != nil {
		writeTransitionError(w, err)
		return
	}

	reqs, err := h.store.ListRequirements(ctx, dealID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]any{"error": "failed to list requirements"})
		return
	}

	ttl := time.Duration(h.cfg.PresignTTLSec) * time.Second
	uploads := make([]presignedUpload, 0, len(reqs))
	for _, req := range reqs {
		if req.SatisfiedBy != nil {
			continue
		}
		documentID := uuid.NewString()
		filename := suggestedFilename(req.Title)
		if err := h.store.CreateReceivedDocument(ctx, documentID, dealID, filename); err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]any{"error": "failed to register document"})
			return
		}
		objectKey, uploadURL, err := h.blob.PresignedUploadURL(ctx, dealID, documentID, filename, ttl)
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]any{"error": "failed to presign upload"})
			return
		}
		uploads = append(uploads, presignedUpload{
			Title:      req.Title,
			DocumentID: documentID,
			ObjectKey:  objectKey,
			UploadURL:  uploadURL,
		})
	}

	_ = h.store.InsertAudit(ctx, dealID, domain.AuditUploadSessionOpened, map[string]any{"uploads": len(uploads)})

	writeJSON(w, http.StatusOK, map[string]any{
		"deal_id":      dealID,
		"intake_state": domain.StateUploadSessionReady,
		"expires_in":   h.cfg.PresignTTLSec,
		"uploads":      uploads,
	})
}

func (h *Handler) UploadDocument(w http.ResponseWriter, r *http.Request, dealID string) {
	ctx, cancel := context.WithTimeout(r.Context(), 15*time.Second)
	defer cancel()

	deal, err := h.store.GetDeal(ctx, dealID)
	if err != nil {
		writeDealLookupError(w, err)
		return
	}
	switch deal.IntakeState {
	case domain.StateUploadSessionReady:
		if err := h.store.TransitionDeal(ctx, dealID, domain.StateUploadSessionReady, domain.StateUploading); err != nil && !errors.Is(err, storage.ErrStateConflict) {
			writeJSON(w, http.StatusInternalServerError, map[string]any{"error": "failed to advance deal"})
			return
		}
	case domain.StateUploading:
	default:
		writeJSON(w, http.StatusConflict, map[string]any{
			"error": fmt.Sprintf("deal in %s does not accept uploads", deal.IntakeState),
		})
		return
	}

	if err := r.ParseMultipartForm(h.cfg.AllowedUploadBytes); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid multipart payload"})
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "file form field is required"})
		return
	}
	defer file.Close()

	body, err := io.ReadAll(io.LimitReader(file, h.cfg.AllowedUploadBytes+1))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "failed to read file"})
		return
	}
	if int64(len(body)) > h.cfg.AllowedUploadBytes {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "file exceeds size limit"})
		return
	}
	if !isSupportedTextUpload(body) {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "only non-empty utf-8 text documents are supported"})
		return
	}

	documentID := uuid.NewString()
	if err := h.store.CreateReceivedDocument(ctx, documentID, dealID, header.Filename); err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]any{"error": "failed to create document"})
		return
	}

	objectKey, err := h.blob.PutDocument(ctx, dealID, documentID, header.Filename, body)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]any{"error": "failed to upload file"})
		return
	}
	if err := h.store.MarkDocumentStored(ctx, documentID, objectKey, string(body)); err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]any{"error": "failed to record upload"})
		return
	}

	_ = h.store.InsertAudit(ctx, dealID, domain.AuditDocumentStored, map[string]any{
		"document_id": documentID,
		"filename":    header.Filename,
	})

	writeJSON(w, http.StatusAccepted, map[string]any{
		"deal_id":     dealID,
		"document_id": documentID,
		"object_key":  objectKey,
		"status":      domain.DocStatusStored,
	})
}

// CompleteUploads closes the upload window and starts the intake workflow. The
// workflow itself performs the UPLOAD_COMPLETE -> INTAKE_RUNNING swap.
func (h *Handler) CompleteUploads(w http.ResponseWriter, r *http.Request, dealID string) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	if err := h.store.TransitionDeal(ctx, dealID, domain.StateUploading, domain.StateUploadComplete); err != nil {
		writeTransitionError(w, err)
		return
	}

	workflowID := h.workflowID(dealID)
	_, err := h.temporalClient.ExecuteWorkflow(ctx, client.StartWorkflowOptions{
		ID:        workflowID,
		TaskQueue: h.cfg.TemporalTaskQueue,
	}, appTemporal.DealIntakeWorkflowName, appTemporal.WorkflowInput{DealID: dealID})
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]any{"error": "failed to start intake workflow"})
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]any{
		"deal_id":      dealID,
		"workflow_id":  workflowID,
		"intake_state": domain.StateUploadComplete,
	})
}

// TransitionDeal is the explicit guarded transition endpoint, used for
// recovery (FAILED -> UPLOAD_SESSION_READY) and operational overrides. Every
// edge goes through the transition table; illegal edges and concurrent swaps
// both answer 409.
func (h *Handler) TransitionDeal(w http.ResponseWriter, r *http.Request, dealID string) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	var req transitionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid json"})
		return
	}
	to := domain.DealIntakeState(req.To)

	deal, err := h.store.GetDeal(ctx, dealID)
	if err != nil {
		writeDealLookupError(w, err)
		return
	}
	if !domain.CanTransitionIntakeState(deal.IntakeState, to) {
		writeJSON(w, http.StatusConflict, map[string]any{
			"error": fmt.Sprintf("transition %s -> %s is not allowed", deal.IntakeState, to),
		})
		return
	}

	if to == domain.StateFailed {
		err = h.store.MarkDealFailed(ctx, dealID, deal.IntakeState, req.Reason)
	} else {
		err = h.store.TransitionDeal(ctx, dealID, deal.IntakeState, to)
	}
	if err != nil {
		writeTransitionError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"deal_id":         dealID,
		"intake_state":    to,
		"lifecycle_stage": domain.LifecycleStageFor(to),
	})
}

func (h *Handler) GetStatus(w http.ResponseWriter, r *http.Request, dealID string) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	deal, err := h.store.GetDeal(ctx, dealID)
	if err != nil {
		writeDealLookupError(w, err)
		return
	}
	docs, err := h.store.ListDealDocuments(ctx, dealID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]any{"error": "failed to list documents"})
		return
	}
	reqs, err := h.store.ListRequirements(ctx, dealID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]any{"error": "failed to list requirements"})
		return
	}

	writeJSON(w, http.StatusOK, statusResponse{Deal: deal, Documents: docs, Requirements: reqs})
}

func (h *Handler) UnderwritingGate(w http.ResponseWriter, r *http.Request, dealID string) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	deal, err := h.store.GetDeal(ctx, dealID)
	if err != nil {
		writeDealLookupError(w, err)
		return
	}
	titles, err := h.store.MissingRequiredTitles(ctx, dealID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]any{"error": "failed to load checklist"})
		return
	}

	gate := domain.BuildUnderwritingGate(domain.GateInput{
		LifecycleStage:        deal.LifecycleStage,
		MissingRequiredTitles: titles,
	})
	writeJSON(w, http.StatusOK, gate)
}

func (h *Handler) Readiness(w http.ResponseWriter, r *http.Request, dealID string) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	result, err := h.computeReadiness(ctx, dealID)
	if err != nil {
		writeDealLookupError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// Submit marks the package submitted. It requires the terminal intake state
// and a clean readiness report; the lifecycle stage "submitted" is set here
// and nowhere else.
func (h *Handler) Submit(w http.ResponseWriter, r *http.Request, dealID string) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	deal, err := h.store.GetDeal(ctx, dealID)
	if err != nil {
		writeDealLookupError(w, err)
		return
	}
	if deal.IntakeState != domain.StateReadyForUnderwrite {
		writeJSON(w, http.StatusConflict, map[string]any{
			"error": fmt.Sprintf("deal in %s cannot be submitted", deal.IntakeState),
		})
		return
	}

	readiness, err := h.computeReadiness(ctx, dealID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]any{"error": "failed to compute readiness"})
		return
	}
	if !readiness.Ready {
		writeJSON(w, http.StatusConflict, map[string]any{
			"error":    "deal is not ready for submission",
			"blockers": readiness.Blockers,
		})
		return
	}

	if err := h.store.SetLifecycleStage(ctx, dealID, domain.StageSubmitted); err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]any{"error": "failed to submit deal"})
		return
	}
	_ = h.store.InsertAudit(ctx, dealID, domain.AuditPackageSubmitted, map[string]any{"score": readiness.Score})

	writeJSON(w, http.StatusOK, map[string]any{
		"deal_id":         dealID,
		"lifecycle_stage": domain.StageSubmitted,
		"score":           readiness.Score,
		"readiness_level": readiness.ReadinessLevel,
	})
}

func (h *Handler) Chat(w http.ResponseWriter, r *http.Request, dealID string) {
	ctx, cancel := context.WithTimeout(r.Context(), 45*time.Second)
	defer cancel()

	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || strings.TrimSpace(req.Message) == "" {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "message is required"})
		return
	}

	deal, err := h.store.GetDeal(ctx, dealID)
	if err != nil {
		writeDealLookupError(w, err)
		return
	}

	if err := h.store.SaveChatMessage(ctx, domain.ChatMessage{DealID: dealID, Role: "user", Content: req.Message}); err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]any{"error": "failed to save message"})
		return
	}

	history, err := h.store.ListChatMessages(ctx, dealID, chatHistoryLimit)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]any{"error": "failed to load chat history"})
		return
	}
	messages := make([]openai.Message, 0, len(history))
	for _, msg := range history {
		messages = append(messages, openai.Message{Role: msg.Role, Content: msg.Content})
	}

	dealContext, _ := json.Marshal(map[string]any{
		"business_name":   deal.BusinessName,
		"intake_state":    deal.IntakeState,
		"lifecycle_stage": deal.LifecycleStage,
		"preflight":       json.RawMessage(deal.Preflight),
		"narrative":       json.RawMessage(deal.Narrative),
	})

	reply, err := h.llm.CompleteChat(ctx, openai.ChatRequest{
		Model:        h.cfg.OpenAIModel,
		SystemPrompt: openai.BuildBuddySystemPrompt(string(dealContext)),
		Messages:     messages,
		Timeout:      time.Duration(h.cfg.OpenAITimeoutSec) * time.Second,
	})
	if err != nil {
		writeJSON(w, http.StatusBadGateway, map[string]any{"error": "assistant is unavailable"})
		return
	}

	if err := h.store.SaveChatMessage(ctx, domain.ChatMessage{DealID: dealID, Role: "assistant", Content: reply}); err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]any{"error": "failed to save reply"})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"deal_id": dealID, "reply": reply})
}

func (h *Handler) PendingReviews(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	items, err := h.store.ListPendingReviews(ctx)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]any{"error": "failed to fetch pending reviews"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

func (h *Handler) SubmitReview(w http.ResponseWriter, r *http.Request, documentID string) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	var req reviewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid json"})
		return
	}

	decision := domain.ReviewDecisionType(req.Decision)
	switch decision {
	case domain.ReviewDecisionApprove, domain.ReviewDecisionReject, domain.ReviewDecisionCorrect:
	default:
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid decision"})
		return
	}

	doc, err := h.store.GetDocument(ctx, documentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]any{"error": "document not found"})
			return
		}
		writeJSON(w, http.StatusInternalServerError, map[string]any{"error": "failed to fetch document"})
		return
	}

	signal := appTemporal.ReviewDecisionSignal{
		DocumentID:  documentID,
		Decision:    decision,
		Corrections: req.Corrections,
		Reviewer:    req.Reviewer,
		Reason:      req.Reason,
	}
	if err := h.temporalClient.SignalWorkflow(ctx, h.workflowID(doc.DealID), "", appTemporal.ReviewDecisionSignalName, signal); err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]any{"error": "failed to signal workflow"})
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]any{"document_id": documentID, "status": "review_signal_sent"})
}

// DownloadDocument hands back a short-lived GET URL for the stored object, for
// reviewers and package assembly.
func (h *Handler) DownloadDocument(w http.ResponseWriter, r *http.Request, documentID string) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	doc, err := h.store.GetDocument(ctx, documentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]any{"error": "document not found"})
			return
		}
		writeJSON(w, http.StatusInternalServerError, map[string]any{"error": "failed to fetch document"})
		return
	}
	if doc.ObjectKey == "" {
		writeJSON(w, http.StatusConflict, map[string]any{"error": "document has no stored object"})
		return
	}

	ttl := time.Duration(h.cfg.PresignTTLSec) * time.Second
	downloadURL, err := h.blob.PresignedDownloadURL(ctx, doc.ObjectKey, ttl)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]any{"error": "failed to presign download"})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"document_id":  documentID,
		"filename":     doc.Filename,
		"download_url": downloadURL,
		"expires_in":   h.cfg.PresignTTLSec,
	})
}

func (h *Handler) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) Readyz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if err := h.store.Ping(ctx); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "not_ready"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (h *Handler) computeReadiness(ctx context.Context, dealID string) (domain.ReadinessResult, error) {
	deal, err := h.store.GetDeal(ctx, dealID)
	if err != nil {
		return domain.ReadinessResult{}, err
	}

	var preflight domain.PreflightResult
	if len(deal.Preflight) > 0 {
		_ = json.Unmarshal(deal.Preflight, &preflight)
	}

	var form domain.ApplicationForm
	if len(deal.ApplicationForm) > 0 {
		_ = json.Unmarshal(deal.ApplicationForm, &form)
	}
	forms := domain.ValidateApplicationForm(form)

	var narrative map[string]any
	if len(deal.Narrative) > 0 {
		_ = json.Unmarshal(deal.Narrative, &narrative)
	}

	summary, err := h.store.RequirementsSummary(ctx, dealID)
	if err != nil {
		return domain.ReadinessResult{}, err
	}

	return domain.ComputeSubmissionReadiness(domain.ReadinessInput{
		Preflight:    preflight,
		Forms:        forms,
		Narrative:    narrative,
		Requirements: summary,
	}), nil
}

func (h *Handler) workflowID(dealID string) string {
	return fmt.Sprintf("%s-%s", h.cfg.WorkflowIDPrefix, dealID)
}

func suggestedFilename(title string) string {
	slug := strings.ToLower(strings.TrimSpace(title))
	slug = strings.ReplaceAll(slug, " ", "_")
	return slug + ".txt"
}

// isSupportedTextUpload accepts non-empty UTF-8 text. Binary formats (PDF,
// images) need an extraction front-end this service does not have.
func isSupportedTextUpload(body []byte) bool {
	if len(bytes.TrimSpace(body)) == 0 {
		return false
	}
	if !utf8.Valid(body) {
		return false
	}
	if bytes.HasPrefix(body, []byte("%PDF-")) {
		return false
	}
	return true
}

func writeDealLookupError(w http.ResponseWriter, err error) {
	if errors.Is(err, sql.ErrNoRows) {
		writeJSON(w, http.StatusNotFound, map[string]any{"error": "deal not found"})
		return
	}
	writeJSON(w, http.StatusInternalServerError, map[string]any{"error": "failed to fetch deal"})
}

func writeTransitionError(w http.ResponseWriter, err error) {
	if errors.Is(err, storage.ErrStateConflict) {
		writeJSON(w, http.StatusConflict, map[string]any{"error": "intake state changed concurrently"})
		return
	}
	writeJSON(w, http.StatusInternalServerError, map[string]any{"error": "failed to transition deal"})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
