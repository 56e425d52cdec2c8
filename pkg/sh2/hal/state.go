package hal

// State is the bus state of the adapter.
type State int32

// Bus states.
const (
	StateUninitialized State = iota
	StateIdle
	StateReadingLength
	StateLengthKnown
	StateReadingPayload
	StateWriting
)

var stateNames = [...]string{
	StateUninitialized:  "Uninitialized",
	StateIdle:           "Idle",
	StateReadingLength:  "ReadingLength",
	StateLengthKnown:    "LengthKnown",
	StateReadingPayload: "ReadingPayload",
	StateWriting:        "Writing",
}

// String implements fmt.Stringer.
func (s State) String() string {
	if s >= 0 && int(s) < len(stateNames) {
		return stateNames[s]
	}
	return "Unknown"
}
