package domain

// DealIntakeState tracks a deal through borrower intake. The forward chain is
// strictly linear; FAILED is reachable from every non-terminal state and
// recovers only by reopening the upload session.
type DealIntakeState string

const (
	StateCreated            DealIntakeState = "CREATED"
	StateUploadSessionReady DealIntakeState = "UPLOAD_SESSION_READY"
	StateUploading          DealIntakeState = "UPLOADING"
	StateUploadComplete     DealIntakeState = "UPLOAD_COMPLETE"
	StateIntakeRunning      DealIntakeState = "INTAKE_RUNNING"
	StateReadyForUnderwrite DealIntakeState = "READY_FOR_UNDERWRITE"
	StateFailed             DealIntakeState = "FAILED"
)

// Lifecycle stages are the coarse deal-level status underwriting sees. They
// are derived from intake states, except "submitted" which is set only by the
// submit operation.
const (
	StageCollecting = "collecting"
	StageReady      = "ready"
	StageSubmitted  = "submitted"
)

var intakeTransitions = map[DealIntakeState]map[DealIntakeState]bool{
	StateCreated:            {StateUploadSessionReady: true, StateFailed: true},
	StateUploadSessionReady: {StateUploading: true, StateFailed: true},
	StateUploading:          {StateUploadComplete: true, StateFailed: true},
	StateUploadComplete:     {StateIntakeRunning: true, StateFailed: true},
	StateIntakeRunning:      {StateReadyForUnderwrite: true, StateFailed: true},
	StateReadyForUnderwrite: {},
	StateFailed:             {StateUploadSessionReady: true},
}

// CanTransitionIntakeState reports whether the edge from -> to exists in the
// intake transition table. Unknown states have no outgoing edges.
func CanTransitionIntakeState(from, to DealIntakeState) bool {
	nexts, ok := intakeTransitions[from]
	if !ok {
		return false
	}
	return nexts[to]
}

func IsTerminalIntakeState(state DealIntakeState) bool {
	return len(intakeTransitions[state]) == 0
}

// IntakeStates returns the enumeration in lifecycle order.
func IntakeStates() []DealIntakeState {
	return []DealIntakeState{
		StateCreated,
		StateUploadSessionReady,
		StateUploading,
		StateUploadComplete,
		StateIntakeRunning,
		StateReadyForUnderwrite,
		StateFailed,
	}
}

// LifecycleStageFor maps an intake state onto the coarse lifecycle stage. A
// deal stays in "collecting" until intake finishes, including after a failure.
func LifecycleStageFor(state DealIntakeState) string {
	if state == StateReadyForUnderwrite {
		return StageReady
	}
	return StageCollecting
}
