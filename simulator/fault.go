package simulator

// Fault is a one-shot misbehaviour applied to the next request.
type Fault int

const (
	// FaultNone answers normally.
	FaultNone Fault = iota
	// FaultDropReply swallows the request without answering.
	FaultDropReply
	// FaultGarbageReply answers with a line no parser accepts.
	FaultGarbageReply
	// FaultClose closes the link instead of answering, like an unplugged
	// cable.
	FaultClose
)

func (f Fault) String() string {
	switch f {
	case FaultNone:
		return "none"
	case FaultDropReply:
		return "drop-reply"
	case FaultGarbageReply:
		return "garbage-reply"
	case FaultClose:
		return "close"
	default:
		return "unknown"
	}
}

// garbageReply is the reply of FaultGarbageReply.
const garbageReply = "#?! 0x1F ~~"
