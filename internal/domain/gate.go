package domain

// StageNotReadyBlocker is the single blocker reported when a deal's lifecycle
// stage rules out underwriting regardless of its checklist.
const StageNotReadyBlocker = "Deal intake is not ready for underwriting yet."

type GateInput struct {
	LifecycleStage        string   `json:"lifecycle_stage"`
	MissingRequiredTitles []string `json:"missing_required_titles"`
}

type GateResult struct {
	Allowed  bool     `json:"allowed"`
	Blockers []string `json:"blockers"`
}

// BuildUnderwritingGate decides whether a deal may proceed to underwriting.
// The checks are priority-ordered, not aggregated: a wrong lifecycle stage
// short-circuits before missing documents are considered, so at most one
// category of blocker is ever reported per call.
func BuildUnderwritingGate(input GateInput) GateResult {
	if input.LifecycleStage != StageCollecting && input.LifecycleStage != StageReady {
		return GateResult{Allowed: false, Blockers: []string{StageNotReadyBlocker}}
	}
	if len(input.MissingRequiredTitles) > 0 {
		blockers := make([]string, len(input.MissingRequiredTitles))
		copy(blockers, input.MissingRequiredTitles)
		return GateResult{Allowed: false, Blockers: blockers}
	}
	return GateResult{Allowed: true, Blockers: []string{}}
}
