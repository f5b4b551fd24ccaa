package measure

// Phase is the progress of one measurement call.
type Phase int

const (
	PhaseArmed Phase = iota
	PhaseSampling
	PhaseComplete
	PhaseFailed
)

func (p Phase) String() string {
	switch p {
	case PhaseArmed:
		return "Armed"
	case PhaseSampling:
		return "Sampling"
	case PhaseComplete:
		return "Complete"
	case PhaseFailed:
		return "Failed"
	default:
		return "Unknown"
	}
}

// Kind names the measurement a PhaseEvent belongs to.
type Kind string

const (
	KindRate        Kind = "rate"
	KindCoincidence Kind = "coincidence"
)

// PhaseEvent describes a phase transition. Err is set for PhaseFailed.
type PhaseEvent struct {
	Kind  Kind
	Phase Phase
	Err   error
}

// PhaseHandler observes phase transitions. It runs on the measuring goroutine
// and must not block.
type PhaseHandler func(ev PhaseEvent)
