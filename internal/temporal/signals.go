package temporal

import (
	"encoding/json"

	"buddy-underwriter/internal/domain"
)

const ReviewDecisionSignalName = "reviewDecision"

// ReviewDecisionSignal resolves a pending analyst review. DocumentID selects
// which of the deal's documents the decision applies to; a signal for another
// document is ignored by the waiting workflow.
type ReviewDecisionSignal struct {
	DocumentID  string                    `json:"document_id"`
	Decision    domain.ReviewDecisionType `json:"decision"`
	Corrections json.RawMessage           `json:"corrections,omitempty"`
	Reviewer    string                    `json:"reviewer,omitempty"`
	Reason      string                    `json:"reason,omitempty"`
}
