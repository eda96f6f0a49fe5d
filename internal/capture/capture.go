package capture

import (
	"errors"
	"fmt"
	"strings"

	"github.com/bryanchriswhite/scr2ppm/internal/frame"
	"github.com/bryanchriswhite/scr2ppm/internal/geometry"
	"github.com/bryanchriswhite/scr2ppm/internal/window"
)

// ErrFrameFetchFailed is returned when pixel data for a validated region
// cannot be read, e.g. because the picked window went away.
var ErrFrameFetchFailed = errors.New("failed to fetch frame")

// Capturer defines the interface for screen capture backends
type Capturer interface {
	// Start initializes the capturer and any required resources
	Start() error

	// Stop releases resources
	Stop() error

	// Name returns a human-readable name for this capturer
	Name() string

	// Bounds returns the size of the capturable surface
	Bounds() geometry.DisplayBounds

	// RootGeometry returns the geometry of the whole desktop
	RootGeometry() (geometry.Geometry, error)

	// DescribeWindow returns the geometry and identity of a window
	DescribeWindow(id uint32) (*window.Info, error)

	// CaptureRegion fetches the pixels of a region that lies inside Bounds.
	// The caller owns the returned frame and must release it.
	CaptureRegion(g geometry.Geometry) (*frame.PixelFrame, error)

	// Bell rings the display's bell
	Bell() error
}

// Mode selects how the capture region is acquired
type Mode int

const (
	// ModeScreen captures the whole desktop
	ModeScreen Mode = iota
	// ModeWindow captures a window picked with the pointer
	ModeWindow
	// ModeArea captures a rectangle dragged with the pointer
	ModeArea
)

func (m Mode) String() string {
	switch m {
	case ModeScreen:
		return "screen"
	case ModeWindow:
		return "window"
	case ModeArea:
		return "area"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// ParseMode parses a mode name as used in the config file
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "screen", "desktop", "s":
		return ModeScreen, nil
	case "window", "w":
		return ModeWindow, nil
	case "area", "a", "select":
		return ModeArea, nil
	default:
		return ModeScreen, fmt.Errorf("invalid capture mode: %q (use screen, window or area)", s)
	}
}
