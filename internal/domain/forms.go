package domain

// ApplicationForm is the borrower application captured at deal creation.
type ApplicationForm struct {
	BusinessName    string  `json:"business_name"`
	EIN             string  `json:"ein"`
	RequestedAmount float64 `json:"requested_amount"`
	UseOfProceeds   string  `json:"use_of_proceeds"`
	YearsInBusiness int     `json:"years_in_business"`
}

// ValidateApplicationForm checks the form for completeness. The result status
// feeds the submission readiness scorer, which only accepts READY.
func ValidateApplicationForm(form ApplicationForm) FormsResult {
	errs := make([]string, 0)

	if form.BusinessName == "" {
		errs = append(errs, "business_name is required")
	}
	if form.EIN == "" {
		errs = append(errs, "ein is required")
	}
	if form.RequestedAmount <= 0 {
		errs = append(errs, "requested_amount must be positive")
	}
	if form.UseOfProceeds == "" {
		errs = append(errs, "use_of_proceeds is required")
	}
	if form.YearsInBusiness < 0 {
		errs = append(errs, "years_in_business must not be negative")
	}

	status := FormsStatusReady
	if len(errs) > 0 {
		status = FormsStatusIncomplete
	}
	return FormsResult{Status: status, Errors: errs}
}
