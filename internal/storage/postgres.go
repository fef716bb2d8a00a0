package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"buddy-underwriter/internal/domain"
)

// ErrStateConflict is returned when a compare-and-swap transition matches no
// row: either the deal is gone or another caller moved it first.
var ErrStateConflict = errors.New("intake state changed concurrently")

type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(dsn string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	return &PostgresStore{db: db}, nil
}

func (s *PostgresStore) Close() error {
	return s.db.Close()
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *PostgresStore) CreateDeal(ctx context.Context, rec domain.DealRecord, checklist []domain.Requirement) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO deals (id, borrower_name, business_name, intake_state, lifecycle_stage, application_form)
		VALUES ($1, $2, $3, $4, $5, $6::jsonb)
	`, rec.ID, rec.BorrowerName, rec.BusinessName, rec.IntakeState, rec.LifecycleStage, string(rec.ApplicationForm))
	if err != nil {
		return err
	}

	for _, req := range checklist {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO requirements (deal_id, title, doc_type, required)
			VALUES ($1, $2, $3, $4)
		`, rec.ID, req.Title, req.DocType, req.Required)
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}

func (s *PostgresStore) GetDeal(ctx context.Context, dealID string) (domain.DealRecord, error) {
	var rec domain.DealRecord
	var form, preflight, narrative []byte
	var failureReason sql.NullString
	row := s.db.QueryRowContext(ctx, `
		SELECT id, borrower_name, business_name, intake_state, lifecycle_stage,
		       application_form, preflight, narrative, failure_reason
		FROM deals
		WHERE id = $1
	`, dealID)
	if err := row.Scan(
		&rec.ID,
		&rec.BorrowerName,
		&rec.BusinessName,
		&rec.IntakeState,
		&rec.LifecycleStage,
		&form,
		&preflight,
		&narrative,
		&failureReason,
	); err != nil {
		return domain.DealRecord{}, err
	}
	rec.ApplicationForm = form
	rec.Preflight = preflight
	rec.Narrative = narrative
	if failureReason.Valid {
		rec.FailureReason = &failureReason.String
	}
	return rec, nil
}

// TransitionDeal performs the compare-and-swap the pure state machine leaves
// to the persistence layer: the update only applies while the stored state
// still equals from. Legality of the edge is the caller's concern.
func (s *PostgresStore) TransitionDeal(ctx context.Context, dealID string, from, to domain.DealIntakeState) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE deals
		SET intake_state = $3,
		    lifecycle_stage = $4,
		    failure_reason = NULL,
		    updated_at = NOW()
		WHERE id = $1 AND intake_state = $2
	`, dealID, from, to, domain.LifecycleStageFor(to))
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrStateConflict
	}
	return nil
}

func (s *PostgresStore) MarkDealFailed(ctx context.Context, dealID string, from domain.DealIntakeState, reason string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE deals
		SET intake_state = $3,
		    lifecycle_stage = $4,
		    failure_reason = $5,
		    updated_at = NOW()
		WHERE id = $1 AND intake_state = $2
	`, dealID, from, domain.StateFailed, domain.StageCollecting, reason)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrStateConflict
	}
	return nil
}

func (s *PostgresStore) SetLifecycleStage(ctx context.Context, dealID string, stage string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE deals
		SET lifecycle_stage = $2, updated_at = NOW()
		WHERE id = $1
	`, dealID, stage)
	return err
}

func (s *PostgresStore) SavePreflight(ctx context.Context, dealID string, payload []byte) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE deals
		SET preflight = $2::jsonb, updated_at = NOW()
		WHERE id = $1
	`, dealID, string(payload))
	return err
}

func (s *PostgresStore) SaveNarrative(ctx context.Context, dealID string, payload []byte) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE deals
		SET narrative = $2::jsonb, updated_at = NOW()
		WHERE id = $1
	`, dealID, string(payload))
	return err
}

func (s *PostgresStore) CreateReceivedDocument(ctx context.Context, documentID, dealID, filename string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO documents (id, deal_id, filename, status, doc_type)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO NOTHING
	`, documentID, dealID, filename, domain.DocStatusReceived, domain.DocTypeUnknown)
	return err
}

func (s *PostgresStore) MarkDocumentStored(ctx context.Context, documentID, objectKey, rawText string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE documents
		SET object_key = $2, raw_text = $3, status = $4, updated_at = NOW()
		WHERE id = $1
	`, documentID, objectKey, rawText, domain.DocStatusStored)
	return err
}

func (s *PostgresStore) GetDocument(ctx context.Context, documentID string) (domain.DocumentRecord, error) {
	var rec domain.DocumentRecord
	var currentJSON, finalJSON []byte
	var rejectedReason sql.NullString
	row := s.db.QueryRowContext(ctx, `
		SELECT id, deal_id, filename, COALESCE(object_key, ''), COALESCE(raw_text, ''), doc_type, status,
		       current_json, final_json, COALESCE(confidence, 0), rejected_reason
		FROM documents
		WHERE id = $1
	`, documentID)
	if err := row.Scan(
		&rec.ID,
		&rec.DealID,
		&rec.Filename,
		&rec.ObjectKey,
		&rec.RawText,
		&rec.DocType,
		&rec.Status,
		&currentJSON,
		&finalJSON,
		&rec.Confidence,
		&rejectedReason,
	); err != nil {
		return domain.DocumentRecord{}, err
	}
	rec.CurrentJSON = currentJSON
	rec.FinalJSON = finalJSON
	if rejectedReason.Valid {
		rec.RejectedReason = &rejectedReason.String
	}
	return rec, nil
}

func (s *PostgresStore) ListDealDocuments(ctx context.Context, dealID string) ([]domain.DocumentRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, deal_id, filename, COALESCE(object_key, ''), COALESCE(raw_text, ''), doc_type, status,
		       current_json, final_json, COALESCE(confidence, 0), rejected_reason
		FROM documents
		WHERE deal_id = $1
		ORDER BY created_at ASC
	`, dealID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	docs := make([]domain.DocumentRecord, 0)
	for rows.Next() {
		var rec domain.DocumentRecord
		var currentJSON, finalJSON []byte
		var rejectedReason sql.NullString
		if err := rows.Scan(
			&rec.ID,
			&rec.DealID,
			&rec.Filename,
			&rec.ObjectKey,
			&rec.RawText,
			&rec.DocType,
			&rec.Status,
			&currentJSON,
			&finalJSON,
			&rec.Confidence,
			&rejectedReason,
		); err != nil {
			return nil, err
		}
		rec.CurrentJSON = currentJSON
		rec.FinalJSON = finalJSON
		if rejectedReason.Valid {
			rec.RejectedReason = &rejectedReason.String
		}
		docs = append(docs, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return docs, nil
}

func (s *PostgresStore) UpdateDocumentClassification(ctx context.Context, documentID string, docType domain.DocType) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE documents
		SET doc_type = $2, status = $3, updated_at = NOW()
		WHERE id = $1
	`, documentID, docType, domain.DocStatusClassified)
	return err
}

func (s *PostgresStore) SaveModelOutput(ctx context.Context, documentID string, phase string, output string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO extraction_attempts (document_id, phase, output)
		VALUES ($1, $2, $3)
	`, documentID, phase, output)
	return err
}

func (s *PostgresStore) SaveCurrentExtraction(ctx context.Context, documentID string, payload []byte, confidence float64) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE documents
		SET current_json = $2::jsonb,
		    confidence = $3,
		    status = $4,
		    updated_at = NOW()
		WHERE id = $1
	`, documentID, string(payload), confidence, domain.DocStatusExtracted)
	return err
}

func (s *PostgresStore) GetCurrentExtraction(ctx context.Context, documentID string) ([]byte, float64, error) {
	var payload []byte
	var confidence float64
	row := s.db.QueryRowContext(ctx, `
		SELECT current_json, COALESCE(confidence, 0)
		FROM documents
		WHERE id = $1
	`, documentID)
	if err := row.Scan(&payload, &confidence); err != nil {
		return nil, 0, err
	}
	return payload, confidence, nil
}

func (s *PostgresStore) SaveFinalResult(ctx context.Context, documentID string, payload []byte, confidence float64, status domain.DocumentStatus, rejectedReason *string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE documents
		SET final_json = CASE WHEN $2 = '' THEN final_json ELSE $2::jsonb END,
		    confidence = $3,
		    status = $4,
		    rejected_reason = $5,
		    updated_at = NOW()
		WHERE id = $1
	`, documentID, string(payload), confidence, status, rejectedReason)
	return err
}

// SatisfyRequirement marks the first open checklist entry of the document's
// type as satisfied. A second document of the same type leaves the checklist
// untouched.
func (s *PostgresStore) SatisfyRequirement(ctx context.Context, dealID string, docType domain.DocType, documentID string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE requirements
		SET satisfied_by = $3, updated_at = NOW()
		WHERE deal_id = $1 AND doc_type = $2 AND satisfied_by IS NULL
		  AND title = (
			SELECT title FROM requirements
			WHERE deal_id = $1 AND doc_type = $2 AND satisfied_by IS NULL
			ORDER BY title ASC
			LIMIT 1
		  )
	`, dealID, docType, documentID)
	return err
}

func (s *PostgresStore) ListRequirements(ctx context.Context, dealID string) ([]domain.Requirement, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT deal_id, title, doc_type, required, satisfied_by
		FROM requirements
		WHERE deal_id = $1
		ORDER BY title ASC
	`, dealID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	reqs := make([]domain.Requirement, 0)
	for rows.Next() {
		var req domain.Requirement
		var satisfiedBy sql.NullString
		if err := rows.Scan(&req.DealID, &req.Title, &req.DocType, &req.Required, &satisfiedBy); err != nil {
			return nil, err
		}
		if satisfiedBy.Valid {
			req.SatisfiedBy = &satisfiedBy.String
		}
		reqs = append(reqs, req)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return reqs, nil
}

func (s *PostgresStore) MissingRequiredTitles(ctx context.Context, dealID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT title
		FROM requirements
		WHERE deal_id = $1 AND required AND satisfied_by IS NULL
		ORDER BY title ASC
	`, dealID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	titles := make([]string, 0)
	for rows.Next() {
		var title string
		if err := rows.Scan(&title); err != nil {
			return nil, err
		}
		titles = append(titles, title)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return titles, nil
}

func (s *PostgresStore) RequirementsSummary(ctx context.Context, dealID string) (domain.RequirementsSummary, error) {
	var summary domain.RequirementsSummary
	row := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FILTER (WHERE required),
		       COUNT(*) FILTER (WHERE required AND satisfied_by IS NULL)
		FROM requirements
		WHERE deal_id = $1
	`, dealID)
	if err := row.Scan(&summary.Summary.RequiredTotal, &summary.Summary.RequiredMissing); err != nil {
		return domain.RequirementsSummary{}, err
	}
	return summary, nil
}

func (s *PostgresStore) QueueReview(ctx context.Context, documentID, dealID string, failedRules []string, currentJSON []byte) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO review_queue (document_id, deal_id, failed_rules, current_json, status)
		VALUES ($1, $2, $3, $4::jsonb, 'PENDING')
		ON CONFLICT (document_id) DO UPDATE SET
			failed_rules = EXCLUDED.failed_rules,
			current_json = EXCLUDED.current_json,
			status = 'PENDING',
			updated_at = NOW()
	`, documentID, dealID, pq.Array(failedRules), string(currentJSON))
	if err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE documents
		SET status = $2, updated_at = NOW()
		WHERE id = $1
	`, documentID, domain.DocStatusNeedsReview)
	if err != nil {
		return err
	}

	return tx.Commit()
}

func (s *PostgresStore) ResolveReview(ctx context.Context, documentID string, decision string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE review_queue
		SET status = $2, updated_at = NOW()
		WHERE document_id = $1
	`, documentID, decision)
	return err
}

func (s *PostgresStore) ListPendingReviews(ctx context.Context) ([]domain.ReviewQueueItem, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT document_id, deal_id, failed_rules, current_json, status
		FROM review_queue
		WHERE status = 'PENDING'
		ORDER BY created_at ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]domain.ReviewQueueItem, 0)
	for rows.Next() {
		var item domain.ReviewQueueItem
		var failedRules []string
		if err := rows.Scan(&item.DocumentID, &item.DealID, pq.Array(&failedRules), &item.CurrentJSON, &item.Status); err != nil {
			return nil, err
		}
		item.FailedRules = failedRules
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

func (s *PostgresStore) InsertAudit(ctx context.Context, dealID string, state domain.AuditState, detail any) error {
	var payload []byte
	switch v := detail.(type) {
	case nil:
		payload = []byte("{}")
	case []byte:
		payload = v
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return err
		}
		payload = b
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO audit_log (deal_id, state, detail)
		VALUES ($1, $2, $3::jsonb)
	`, dealID, state, string(payload))
	return err
}

func (s *PostgresStore) SaveChatMessage(ctx context.Context, msg domain.ChatMessage) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO chat_messages (deal_id, role, content)
		VALUES ($1, $2, $3)
	`, msg.DealID, msg.Role, msg.Content)
	return err
}

func (s *PostgresStore) ListChatMessages(ctx context.Context, dealID string, limit int) ([]domain.ChatMessage, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT deal_id, role, content
		FROM (
			SELECT deal_id, role, content, created_at
			FROM chat_messages
			WHERE deal_id = $1
			ORDER BY created_at DESC
			LIMIT $2
		) recent
		ORDER BY created_at ASC
	`, dealID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	msgs := make([]domain.ChatMessage, 0)
	for rows.Next() {
		var msg domain.ChatMessage
		if err := rows.Scan(&msg.DealID, &msg.Role, &msg.Content); err != nil {
			return nil, err
		}
		msgs = append(msgs, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return msgs, nil
}

func (s *PostgresStore) CountDeals(ctx context.Context) (int64, error) {
	row := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM deals`)
	var count int64
	if err := row.Scan(&count); err != nil {
		return 0, fmt.Errorf("count deals: %w", err)
	}
	return count, nil
}
