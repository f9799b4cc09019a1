package daemon

// State is the listener lifecycle state held by the controller.
type State int

const (
	StateStopped State = iota
	StateRunning
)

func (s State) String() string {
	switch s {
	case StateRunning:
		return "running"
	default:
		return "stopped"
	}
}

// StartState describes the outcome of a start request.
type StartState string

const (
	StartStateStarted        StartState = "started"
	StartStateAlreadyRunning StartState = "already_running"
)

// StartResult captures start orchestration state.
type StartResult struct {
	State   StartState
	Addr    string
	Message string
}

// StopResult captures stop orchestration state.
type StopResult struct {
	WasRunning bool
	Message    string
}
