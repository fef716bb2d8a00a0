package openai

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"

	"buddy-underwriter/internal/domain"
)

var taxReturnAllowedKeys = map[string]struct{}{
	"business_name":        {},
	"ein":                  {},
	"tax_year":             {},
	"gross_receipts":       {},
	"net_profit":           {},
	"officer_compensation": {},
	"confidence":           {},
}

var bankStatementAllowedKeys = map[string]struct{}{
	"account_holder":  {},
	"bank_name":       {},
	"statement_start": {},
	"statement_end":   {},
	"ending_balance":  {},
	"total_deposits":  {},
	"nsf_count":       {},
	"confidence":      {},
}

func ParseAndNormalize(docType domain.DocType, raw string) ([]byte, float64, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil, 0, fmt.Errorf("empty model output")
	}

	switch docType {
	case domain.DocTypeTaxReturn:
		if err := validateKeys(trimmed, taxReturnAllowedKeys, []string{
			"business_name", "ein", "tax_year", "gross_receipts", "net_profit", "confidence",
		}); err != nil {
			return nil, 0, err
		}
		var v domain.TaxReturnExtraction
		if err := strictDecode([]byte(trimmed), &v); err != nil {
			return nil, 0, err
		}
		out, err := json.Marshal(v)
		if err != nil {
			return nil, 0, err
		}
		return out, v.Confidence, nil
	case domain.DocTypeBankStatement:
		if err := validateKeys(trimmed, bankStatementAllowedKeys, []string{
			"account_holder", "bank_name", "statement_start", "statement_end", "ending_balance", "total_deposits", "confidence",
		}); err != nil {
			return nil, 0, err
		}
		var v domain.BankStatementExtraction
		if err := strictDecode([]byte(trimmed), &v); err != nil {
			return nil, 0, err
		}
		out, err := json.Marshal(v)
		if err != nil {
			return nil, 0, err
		}
		return out, v.Confidence, nil
	default:
		return nil, 0, fmt.Errorf("unsupported doc type %q", docType)
	}
}

func ValidateByRules(docType domain.DocType, payload []byte) (domain.ValidationResult, error) {
	switch docType {
	case domain.DocTypeTaxReturn:
		var v domain.TaxReturnExtraction
		if err := strictDecode(payload, &v); err != nil {
			return domain.ValidationResult{}, err
		}
		return domain.ValidateTaxReturn(v), nil
	case domain.DocTypeBankStatement:
		var v domain.BankStatementExtraction
		if err := strictDecode(payload, &v); err != nil {
			return domain.ValidationResult{}, err
		}
		return domain.ValidateBankStatement(v), nil
	default:
		return domain.ValidationResult{}, fmt.Errorf("unsupported doc type %q", docType)
	}
}

func strictDecode(data []byte, out any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(out); err != nil {
		return err
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		return fmt.Errorf("unexpected trailing data")
	}
	return nil
}

func validateKeys(raw string, allowed map[string]struct{}, required []string) error {
	var rawMap map[string]json.RawMessage
	if err := json.Unmarshal([]byte(raw), &rawMap); err != nil {
		return err
	}
	for k := range rawMap {
		if _, ok := allowed[k]; !ok {
			keys := sortedKeys(allowed)
			return fmt.Errorf("unknown key %q, allowed: %v", k, keys)
		}
	}
	for _, req := range required {
		if _, ok := rawMap[req]; !ok {
			return fmt.Errorf("missing required key %q", req)
		}
	}
	return nil
}

func sortedKeys(m map[string]struct{}) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
