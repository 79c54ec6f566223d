package pagination

// State is a node of the pagination state machine.
type State int

const (
	StateLoadingInitial State = iota
	StateScanning
	StateScrolling
	StateStalled
	StateLongPause
	StateDone
	StateFailed
	// StateCancelled is reported when the caller's context ends the run.
	StateCancelled
)

var stateNames = map[State]string{
	StateLoadingInitial: "LOADING_INITIAL",
	StateScanning:       "SCANNING",
	StateScrolling:      "SCROLLING",
	StateStalled:        "STALLED",
	StateLongPause:      "LONG_PAUSE",
	StateDone:           "DONE",
	StateFailed:         "FAILED",
	StateCancelled:      "CANCELLED",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return "UNKNOWN"
}

// Terminal reports whether no further transitions follow.
func (s State) Terminal() bool {
	return s == StateDone || s == StateFailed || s == StateCancelled
}
