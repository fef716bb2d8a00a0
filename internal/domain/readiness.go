package domain

import "fmt"

type ReadinessLevel string

const (
	ReadinessExcellent ReadinessLevel = "EXCELLENT"
	ReadinessGood      ReadinessLevel = "GOOD"
	ReadinessFair      ReadinessLevel = "FAIR"
	ReadinessPoor      ReadinessLevel = "POOR"
)

const (
	FormsStatusReady      = "READY"
	FormsStatusIncomplete = "INCOMPLETE"
	FormsStatusError      = "ERROR"
)

type PreflightResult struct {
	Passed       bool     `json:"passed"`
	Score        int      `json:"score"`
	FailedChecks []string `json:"failed_checks,omitempty"`
}

type FormsResult struct {
	Status string   `json:"status"`
	Errors []string `json:"errors,omitempty"`
}

type RequirementCounts struct {
	RequiredTotal   int `json:"required_total"`
	RequiredMissing int `json:"required_missing"`
}

type RequirementsSummary struct {
	Summary RequirementCounts `json:"summary"`
}

type ReadinessInput struct {
	Preflight    PreflightResult     `json:"preflight"`
	Forms        FormsResult         `json:"forms"`
	Narrative    map[string]any      `json:"narrative"`
	Requirements RequirementsSummary `json:"requirements"`
}

type ReadinessResult struct {
	Ready          bool           `json:"ready"`
	Blockers       []string       `json:"blockers"`
	Score          int            `json:"score"`
	ReadinessLevel ReadinessLevel `json:"readiness_level"`
}

// ComputeSubmissionReadiness aggregates every failing condition into the
// blocker list; unlike the underwriting gate it never short-circuits. The
// score is the preflight score passed through verbatim, not recomputed from
// the other signals.
func ComputeSubmissionReadiness(input ReadinessInput) ReadinessResult {
	blockers := make([]string, 0, 4)

	if !input.Preflight.Passed {
		blockers = append(blockers, "Preflight failed - resolve blocking issues")
	}
	if input.Forms.Status != FormsStatusReady {
		blockers = append(blockers, "Forms validation failed - fix form errors")
	}
	if missing := input.Requirements.Summary.RequiredMissing; missing > 0 {
		blockers = append(blockers, fmt.Sprintf("%d required documents missing", missing))
	}
	if len(input.Narrative) == 0 {
		blockers = append(blockers, "Credit narrative not generated")
	}

	return ReadinessResult{
		Ready:          len(blockers) == 0,
		Blockers:       blockers,
		Score:          input.Preflight.Score,
		ReadinessLevel: readinessLevelFor(input.Preflight.Score),
	}
}

func readinessLevelFor(score int) ReadinessLevel {
	switch {
	case score >= 90:
		return ReadinessExcellent
	case score >= 75:
		return ReadinessGood
	case score >= 50:
		return ReadinessFair
	default:
		return ReadinessPoor
	}
}
