package domain

import (
	"errors"
	"time"
)

const dateLayout = "2006-01-02"

func ValidateTaxReturn(v TaxReturnExtraction) ValidationResult {
	failed := make([]string, 0)

	if v.GrossReceipts < 0 {
		failed = append(failed, "tax_return.gross_receipts_non_negative")
	}
	if v.OfficerCompensation != nil && *v.OfficerCompensation < 0 {
		failed = append(failed, "tax_return.officer_compensation_non_negative")
	}
	if v.TaxYear < 2000 || v.TaxYear > time.Now().Year() {
		failed = append(failed, "tax_return.tax_year_plausible")
	}
	if v.NetProfit > v.GrossReceipts {
		failed = append(failed, "tax_return.net_profit_lte_gross_receipts")
	}
	if v.Confidence < 0 || v.Confidence > 1 {
		failed = append(failed, "tax_return.confidence_range")
	}

	return ValidationResult{FailedRules: failed, Confidence: v.Confidence}
}

func ValidateBankStatement(v BankStatementExtraction) ValidationResult {
	failed := make([]string, 0)

	if v.TotalDeposits < 0 {
		failed = append(failed, "bank_statement.total_deposits_non_negative")
	}
	if v.NSFCount != nil && *v.NSFCount < 0 {
		failed = append(failed, "bank_statement.nsf_count_non_negative")
	}
	start, startErr := parseISODate(v.StatementStart)
	end, endErr := parseISODate(v.StatementEnd)
	if startErr != nil || endErr != nil {
		failed = append(failed, "bank_statement.statement_dates_parseable")
	} else if start.After(end) {
		failed = append(failed, "bank_statement.statement_start_lte_end")
	}
	if v.Confidence < 0 || v.Confidence > 1 {
		failed = append(failed, "bank_statement.confidence_range")
	}

	return ValidationResult{FailedRules: failed, Confidence: v.Confidence}
}

func parseISODate(v *string) (time.Time, error) {
	if v == nil {
		return time.Time{}, errors.New("date is null")
	}
	return time.Parse(dateLayout, *v)
}

func ValidationPassed(r ValidationResult) bool {
	return len(r.FailedRules) == 0
}
