package selector

import (
	"errors"
	"fmt"

	"github.com/bryanchriswhite/scr2ppm/internal/geometry"
	"github.com/bryanchriswhite/scr2ppm/internal/logger"
)

// ErrGrabFailed is returned when exclusive pointer input cannot be acquired
var ErrGrabFailed = errors.New("failed to grab pointer")

// GrabMode selects which pointer events a grab routes to the selector
type GrabMode int

const (
	// GrabPick delivers button presses only
	GrabPick GrabMode = iota
	// GrabDrag delivers button presses, releases and motion while a button is held
	GrabDrag
)

func (m GrabMode) String() string {
	switch m {
	case GrabPick:
		return "pick"
	case GrabDrag:
		return "drag"
	default:
		return fmt.Sprintf("GrabMode(%d)", int(m))
	}
}

// EventKind tags a pointer Event
type EventKind int

const (
	EventOther EventKind = iota
	EventButtonPress
	EventButtonRelease
	EventMotion
)

func (k EventKind) String() string {
	switch k {
	case EventButtonPress:
		return "button-press"
	case EventButtonRelease:
		return "button-release"
	case EventMotion:
		return "motion"
	default:
		return "other"
	}
}

// Event is one pointer event delivered while a grab is held
type Event struct {
	Kind EventKind
	// Point is the pointer position in display coordinates
	Point geometry.Point
	// Child is the top-most window under the pointer, 0 if there is none
	Child uint32
}

// Overlay draws selection feedback on the display. Invert must be its own
// inverse: calling it twice with the same geometry restores the pixels
// that were there before.
type Overlay interface {
	Invert(g geometry.Geometry) error
	Close() error
}

// Surface is the display-side capability the selector drives
type Surface interface {
	// Grab routes pointer input exclusively to the caller until release is called
	Grab(mode GrabMode) (release func(), err error)

	// NextEvent blocks until the next pointer event arrives
	NextEvent() (Event, error)

	// NewOverlay prepares an invertible drawing context over the display
	NewOverlay() (Overlay, error)
}

// State of a selection
type State int

const (
	StateIdle State = iota
	StateArmed
	StateDragging
	StateDone
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateArmed:
		return "armed"
	case StateDragging:
		return "dragging"
	case StateDone:
		return "done"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// PointerSelector lets the user pick a window or drag a rectangle with the pointer
type PointerSelector struct {
	surface Surface
	state   State
}

// New creates a PointerSelector on top of surface
func New(surface Surface) *PointerSelector {
	return &PointerSelector{surface: surface}
}

// State returns the state the last selection ended in
func (s *PointerSelector) State() State {
	return s.state
}

func (s *PointerSelector) setState(state State) {
	logger.WithComponent("selector").Debug().
		Stringer("from", s.state).
		Stringer("to", state).
		Msg("Selection state changed")
	s.state = state
}

func (s *PointerSelector) grab(mode GrabMode) (func(), error) {
	release, err := s.surface.Grab(mode)
	if err != nil {
		return nil, fmt.Errorf("%w (%s): %v", ErrGrabFailed, mode, err)
	}
	return release, nil
}
