// ABOUTME: Playback notifications published by voices
// ABOUTME: Delivered on a buffered channel that never blocks the sender
package engine

// State is a voice's transport state
type State int

const (
	Stopped State = iota
	Playing
	Paused
)

func (s State) String() string {
	switch s {
	case Playing:
		return "playing"
	case Paused:
		return "paused"
	default:
		return "stopped"
	}
}

// EventKind identifies what an Event reports
type EventKind int

const (
	StateChanged EventKind = iota
	PositionChanged
	DurationChanged
)

func (k EventKind) String() string {
	switch k {
	case StateChanged:
		return "state"
	case PositionChanged:
		return "position"
	case DurationChanged:
		return "duration"
	default:
		return "unknown"
	}
}

// Event is a notification about one voice
type Event struct {
	Voice      *Voice
	Kind       EventKind
	State      State
	PositionMs int
	DurationMs int
}
