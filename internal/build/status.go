package build

// Status is the state of a build request.
type Status string

const (
	StatusPending  Status = "PENDING"
	StatusBuilding Status = "BUILDING"
	StatusReady    Status = "READY"
	StatusFailed   Status = "FAILED"
)

func (s Status) rank() int {
	switch s {
	case StatusPending:
		return 0
	case StatusBuilding:
		return 1
	case StatusReady, StatusFailed:
		return 2
	default:
		return -1
	}
}

// IsTerminal reports whether no further transition can happen.
func (s Status) IsTerminal() bool {
	return s == StatusReady || s == StatusFailed
}

// CanTransition reports whether from -> to is an edge of the state machine.
// PENDING may fail directly when it is canceled before a worker claims it.
func CanTransition(from, to Status) bool {
	switch from {
	case StatusPending:
		return to == StatusBuilding || to == StatusFailed
	case StatusBuilding:
		return to == StatusReady || to == StatusFailed
	default:
		return false
	}
}

// Before reports whether s precedes other in the lifecycle.
func (s Status) Before(other Status) bool {
	return s.rank() < other.rank()
}

// Failure reasons recorded by the orchestrator itself.
const (
	ReasonCanceled    = "canceled"
	ReasonInterrupted = "interrupted by restart"
	ReasonShutdown    = "interrupted by shutdown"
)
