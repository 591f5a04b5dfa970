package export

// State enumerates the pipeline lifecycle.
type State int32

const (
	StateIdle State = iota
	StateWaitingForSource
	StateThrottling
	StateSaving
	StateCancelled
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateWaitingForSource:
		return "waiting"
	case StateThrottling:
		return "throttling"
	case StateSaving:
		return "saving"
	case StateCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// StateListener is called on each state transition, from the pipeline goroutine.
type StateListener func(prev, next State)
