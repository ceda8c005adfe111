package app

import "fmt"

// State is the lifecycle state of a Session.
type State int

const (
	StateUninitialized State = iota
	StateReady
	StateRenderingFrame
	StateResizing
	StateTornDown
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateReady:
		return "ready"
	case StateRenderingFrame:
		return "rendering-frame"
	case StateResizing:
		return "resizing"
	case StateTornDown:
		return "torn-down"
	}
	return fmt.Sprintf("State(%d)", int(s))
}
