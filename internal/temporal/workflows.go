package temporal

import (
	"go.temporal.io/sdk/workflow"

	"buddy-underwriter/internal/domain"
)

const DealIntakeWorkflowName = "DealIntakeWorkflow"

// Extractions below this confidence go to analyst review even when every
// validation rule passed.
const reviewConfidenceThreshold = 0.75

type WorkflowInput struct {
	DealID string
}

type WorkflowResult struct {
	DealID string
	State  domain.DealIntakeState
}

type documentOutcome int

const (
	documentCompleted documentOutcome = iota
	documentSkipped
	documentRejected
)

// DealIntakeWorkflow drives a deal from UPLOAD_COMPLETE to
// READY_FOR_UNDERWRITE: classify and extract every uploaded document, route
// low-confidence extractions through analyst review, then run preflight and
// generate the credit narrative. Any fatal error parks the deal in FAILED so
// the borrower can reopen the upload session.
func DealIntakeWorkflow(ctx workflow.Context, input WorkflowInput) (WorkflowResult, error) {
	logger := workflow.GetLogger(ctx)

	var begun BeginIntakeOutput
	if err := workflow.ExecuteActivity(
		mustActivityContext(ctx, ActivityPolicyBeginIntake),
		(*Activities).BeginIntakeActivity,
		BeginIntakeInput{DealID: input.DealID},
	).Get(ctx, &begun); err != nil {
		return failIntake(ctx, input.DealID, "intake could not start: "+err.Error())
	}

	for _, doc := range begun.Documents {
		outcome, err := processDocument(ctx, input.DealID, doc)
		if err != nil {
			logger.Error("document processing failed", "document_id", doc.DocumentID, "error", err)
			return failIntake(ctx, input.DealID, "document processing failed: "+err.Error())
		}
		if outcome == documentRejected {
			return failIntake(ctx, input.DealID, "document rejected in review: "+doc.Filename)
		}
	}

	var preflight RunPreflightOutput
	if err := workflow.ExecuteActivity(
		mustActivityContext(ctx, ActivityPolicyRunPreflight),
		(*Activities).RunPreflightActivity,
		RunPreflightInput{DealID: input.DealID},
	).Get(ctx, &preflight); err != nil {
		return failIntake(ctx, input.DealID, "preflight failed to run: "+err.Error())
	}

	if err := workflow.ExecuteActivity(
		mustActivityContext(ctx, ActivityPolicyGenerateNarrative),
		(*Activities).GenerateNarrativeActivity,
		GenerateNarrativeInput{DealID: input.DealID},
	).Get(ctx, nil); err != nil {
		// A deal without a narrative is still reviewable; readiness reports
		// the gap as a blocker rather than the whole intake failing.
		logger.Error("narrative generation failed", "deal_id", input.DealID, "error", err)
	}

	if err := workflow.ExecuteActivity(
		mustActivityContext(ctx, ActivityPolicyCompleteIntake),
		(*Activities).CompleteIntakeActivity,
		CompleteIntakeInput{DealID: input.DealID},
	).Get(ctx, nil); err != nil {
		return failIntake(ctx, input.DealID, "could not complete intake: "+err.Error())
	}

	return WorkflowResult{DealID: input.DealID, State: domain.StateReadyForUnderwrite}, nil
}

func processDocument(ctx workflow.Context, dealID string, doc DocumentRef) (documentOutcome, error) {
	var classified ClassifyDocumentOutput
	if err := workflow.ExecuteActivity(
		mustActivityContext(ctx, ActivityPolicyClassifyDocument),
		(*Activities).ClassifyDocumentActivity,
		ClassifyDocumentInput{
			DealID:       dealID,
			DocumentID:   doc.DocumentID,
			Filename:     doc.Filename,
			DocumentText: doc.DocumentText,
		},
	).Get(ctx, &classified); err != nil {
		return documentSkipped, err
	}

	if !domain.ExtractableDocType(classified.DocType) {
		return documentSkipped, nil
	}

	var extracted ExtractFactsOutput
	if err := workflow.ExecuteActivity(
		mustActivityContext(ctx, ActivityPolicyExtractFacts),
		(*Activities).ExtractFactsActivity,
		ExtractFactsInput{
			DealID:       dealID,
			DocumentID:   doc.DocumentID,
			DocType:      classified.DocType,
			DocumentText: doc.DocumentText,
		},
	).Get(ctx, &extracted); err != nil {
		return documentSkipped, err
	}

	var validation ValidateFactsOutput
	if err := workflow.ExecuteActivity(
		mustActivityContext(ctx, ActivityPolicyValidateFacts),
		(*Activities).ValidateFactsActivity,
		ValidateFactsInput{DocType: classified.DocType, ExtractionJSON: extracted.ExtractionJSON},
	).Get(ctx, &validation); err != nil {
		return documentSkipped, err
	}

	if len(validation.FailedRules) > 0 || validation.Confidence < reviewConfidenceThreshold {
		var corrected CorrectFactsOutput
		err := workflow.ExecuteActivity(
			mustActivityContext(ctx, ActivityPolicyCorrectFacts),
			(*Activities).CorrectFactsActivity,
			CorrectFactsInput{
				DealID:       dealID,
				DocumentID:   doc.DocumentID,
				DocType:      classified.DocType,
				DocumentText: doc.DocumentText,
				CurrentJSON:  extracted.ExtractionJSON,
				FailedRules:  validation.FailedRules,
			},
		).Get(ctx, &corrected)
		if err == nil {
			extracted.ExtractionJSON = corrected.CorrectedJSON
			extracted.Confidence = corrected.Confidence
			if err := workflow.ExecuteActivity(
				mustActivityContext(ctx, ActivityPolicyValidateFacts),
				(*Activities).ValidateFactsActivity,
				ValidateFactsInput{DocType: classified.DocType, ExtractionJSON: extracted.ExtractionJSON},
			).Get(ctx, &validation); err != nil {
				return documentSkipped, err
			}
		}
	}

	if len(validation.FailedRules) > 0 || validation.Confidence < reviewConfidenceThreshold {
		return awaitReview(ctx, dealID, doc, classified.DocType, &extracted, &validation)
	}

	return finalizeDocument(ctx, doc.DocumentID, extracted)
}

// awaitReview parks the document in the review queue and blocks on analyst
// signals. Signals carrying another DocumentID are dropped; documents are
// processed one at a time, so a decision always targets the current one.
func awaitReview(ctx workflow.Context, dealID string, doc DocumentRef, docType domain.DocType, extracted *ExtractFactsOutput, validation *ValidateFactsOutput) (documentOutcome, error) {
	if err := workflow.ExecuteActivity(
		mustActivityContext(ctx, ActivityPolicyQueueReview),
		(*Activities).QueueReviewActivity,
		QueueReviewInput{
			DealID:      dealID,
			DocumentID:  doc.DocumentID,
			FailedRules: validation.FailedRules,
			CurrentJSON: extracted.ExtractionJSON,
		},
	).Get(ctx, nil); err != nil {
		return documentSkipped, err
	}

	signalChan := workflow.GetSignalChannel(ctx, ReviewDecisionSignalName)
	for {
		var decision ReviewDecisionSignal
		signalChan.Receive(ctx, &decision)
		if decision.DocumentID != "" && decision.DocumentID != doc.DocumentID {
			continue
		}

		switch decision.Decision {
		case domain.ReviewDecisionApprove:
			_ = workflow.ExecuteActivity(
				mustActivityContext(ctx, ActivityPolicyResolveReview),
				(*Activities).ResolveReviewActivity,
				ResolveReviewInput{DocumentID: doc.DocumentID, Decision: "APPROVED"},
			).Get(ctx, nil)
			return finalizeDocument(ctx, doc.DocumentID, *extracted)

		case domain.ReviewDecisionReject:
			if err := workflow.ExecuteActivity(
				mustActivityContext(ctx, ActivityPolicyRejectDocument),
				(*Activities).RejectDocumentActivity,
				RejectDocumentInput{DealID: dealID, DocumentID: doc.DocumentID, Reason: decision.Reason},
			).Get(ctx, nil); err != nil {
				return documentSkipped, err
			}
			return documentRejected, nil

		case domain.ReviewDecisionCorrect:
			var applied ApplyReviewerCorrectionOutput
			if err := workflow.ExecuteActivity(
				mustActivityContext(ctx, ActivityPolicyApplyCorrection),
				(*Activities).ApplyReviewerCorrectionActivity,
				ApplyReviewerCorrectionInput{
					DealID:      dealID,
					DocumentID:  doc.DocumentID,
					DocType:     docType,
					Corrections: decision.Corrections,
				},
			).Get(ctx, &applied); err != nil {
				return documentSkipped, err
			}

			if len(applied.CorrectedJSON) > 0 {
				extracted.ExtractionJSON = applied.CorrectedJSON
				extracted.Confidence = applied.Confidence
				validation.Confidence = applied.Confidence
			}
			validation.FailedRules = applied.FailedRules

			if len(validation.FailedRules) == 0 && validation.Confidence >= reviewConfidenceThreshold {
				_ = workflow.ExecuteActivity(
					mustActivityContext(ctx, ActivityPolicyResolveReview),
					(*Activities).ResolveReviewActivity,
					ResolveReviewInput{DocumentID: doc.DocumentID, Decision: "CORRECTED"},
				).Get(ctx, nil)
				return finalizeDocument(ctx, doc.DocumentID, *extracted)
			}

			if err := workflow.ExecuteActivity(
				mustActivityContext(ctx, ActivityPolicyQueueReview),
				(*Activities).QueueReviewActivity,
				QueueReviewInput{
					DealID:      dealID,
					DocumentID:  doc.DocumentID,
					FailedRules: validation.FailedRules,
					CurrentJSON: extracted.ExtractionJSON,
				},
			).Get(ctx, nil); err != nil {
				return documentSkipped, err
			}

		default:
			continue
		}
	}
}

func finalizeDocument(ctx workflow.Context, documentID string, extracted ExtractFactsOutput) (documentOutcome, error) {
	if err := workflow.ExecuteActivity(
		mustActivityContext(ctx, ActivityPolicyFinalizeDocument),
		(*Activities).FinalizeDocumentActivity,
		FinalizeDocumentInput{
			DocumentID: documentID,
			FinalJSON:  extracted.ExtractionJSON,
			Confidence: extracted.Confidence,
		},
	).Get(ctx, nil); err != nil {
		return documentSkipped, err
	}
	return documentCompleted, nil
}

func failIntake(ctx workflow.Context, dealID string, reason string) (WorkflowResult, error) {
	if err := workflow.ExecuteActivity(
		mustActivityContext(ctx, ActivityPolicyFailIntake),
		(*Activities).FailIntakeActivity,
		FailIntakeInput{DealID: dealID, Reason: reason},
	).Get(ctx, nil); err != nil {
		return WorkflowResult{}, err
	}
	return WorkflowResult{DealID: dealID, State: domain.StateFailed}, nil
}
