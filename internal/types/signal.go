package types

// SignalState is the desired position direction for the vectorized engine.
type SignalState float64

const (
	SignalStateShort SignalState = -1
	// SignalStateNone means flat or hold, depending on the engine's zero policy.
	SignalStateNone SignalState = 0
	SignalStateLong SignalState = 1
)

// Signals converts a slice of states into the float form the engine consumes.
func Signals(states ...SignalState) []float64 {
	out := make([]float64, len(states))
	for i, s := range states {
		out[i] = float64(s)
	}

	return out
}
