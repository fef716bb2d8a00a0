package domain

import (
	"strings"
	"time"
)

// SBA 7(a) gross loan cap.
const sbaMaxLoanAmount = 5_000_000

const preflightPenaltyPerCheck = 15

type PreflightInput struct {
	Form            ApplicationForm          `json:"form"`
	TaxReturn       *TaxReturnExtraction     `json:"tax_return,omitempty"`
	BankStatement   *BankStatementExtraction `json:"bank_statement,omitempty"`
	RequiredMissing int                      `json:"required_missing"`
}

// RunPreflight evaluates the SBA preflight checks against the application form
// and the facts extracted during intake. Every failing check is recorded; the
// score starts at 100 and loses a fixed penalty per failure.
func RunPreflight(input PreflightInput) PreflightResult {
	failed := make([]string, 0)

	if input.RequiredMissing > 0 {
		failed = append(failed, "preflight.required_documents_present")
	}
	if input.Form.RequestedAmount <= 0 || input.Form.RequestedAmount > sbaMaxLoanAmount {
		failed = append(failed, "preflight.requested_amount_within_sba_cap")
	}

	if input.TaxReturn == nil {
		failed = append(failed, "preflight.tax_return_extracted")
	} else {
		if input.TaxReturn.TaxYear < time.Now().Year()-2 {
			failed = append(failed, "preflight.tax_return_recent")
		}
		if input.TaxReturn.NetProfit < 0 {
			failed = append(failed, "preflight.net_profit_non_negative")
		}
		if input.TaxReturn.BusinessName != nil && input.Form.BusinessName != "" &&
			!strings.EqualFold(strings.TrimSpace(*input.TaxReturn.BusinessName), strings.TrimSpace(input.Form.BusinessName)) {
			failed = append(failed, "preflight.business_name_consistent")
		}
	}

	if input.BankStatement == nil {
		failed = append(failed, "preflight.bank_statement_extracted")
	} else if input.BankStatement.TotalDeposits <= 0 {
		failed = append(failed, "preflight.bank_deposits_positive")
	}

	score := 100 - preflightPenaltyPerCheck*len(failed)
	if score < 0 {
		score = 0
	}

	return PreflightResult{
		Passed:       len(failed) == 0,
		Score:        score,
		FailedChecks: failed,
	}
}
