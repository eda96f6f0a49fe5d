package geometry

import (
	"errors"
	"fmt"
)

// Point is a position in display coordinates
type Point struct {
	X int `json:"x" yaml:"x"`
	Y int `json:"y" yaml:"y"`
}

// Geometry is an axis-aligned rectangle in display coordinates.
// Before clamping X/Y may be negative and W/H may exceed the display.
type Geometry struct {
	X int `json:"x" yaml:"x"`
	Y int `json:"y" yaml:"y"`
	W int `json:"width" yaml:"width"`
	H int `json:"height" yaml:"height"`
}

// DisplayBounds is the size of the capturable surface
type DisplayBounds struct {
	Width  int `json:"width" yaml:"width"`
	Height int `json:"height" yaml:"height"`
}

// Geometry returns the bounds as a rectangle anchored at the origin
func (b DisplayBounds) Geometry() Geometry {
	return Geometry{W: b.Width, H: b.Height}
}

func (g Geometry) String() string {
	return fmt.Sprintf("%dx%d%+d%+d", g.W, g.H, g.X, g.Y)
}

// Contains reports whether g lies fully inside b
func (g Geometry) Contains(b DisplayBounds) bool {
	return g.X >= 0 && g.Y >= 0 && g.X+g.W <= b.Width && g.Y+g.H <= b.Height
}

// Diagnostic codes written to stderr
const (
	CodePartialX      = "POOB-X"
	CodePartialY      = "POOB-Y"
	CodePartialRight  = "POOB-RIGHT"
	CodePartialBottom = "POOB-BOTTOM"
	CodeCompleteX     = "COOB-X"
	CodeCompleteY     = "COOB-Y"
	CodeZeroWidth     = "ZERO-W"
	CodeZeroHeight    = "ZERO-H"
)

var (
	ErrCompletelyOutOfBounds = errors.New("region completely out of bounds")
	ErrDegenerateWidth       = errors.New("region width collapsed to zero")
	ErrDegenerateHeight      = errors.New("region height collapsed to zero")
)

// BoundsError is returned when a region cannot be clamped into the display
type BoundsError struct {
	Code     string
	Geometry Geometry
	Bounds   DisplayBounds
	Err      error
}

func (e *BoundsError) Error() string {
	return fmt.Sprintf("%s: %v (region %s, display %dx%d)",
		e.Code, e.Err, e.Geometry, e.Bounds.Width, e.Bounds.Height)
}

func (e *BoundsError) Unwrap() error {
	return e.Err
}

// Warning describes a clip applied to one edge of a region
type Warning struct {
	Code   string
	Amount int // pixels removed
}

func (w Warning) String() string {
	return fmt.Sprintf("%s: %d px clipped", w.Code, w.Amount)
}

// NormalizeRect turns two drag corners into a rectangle with
// non-negative extents, whatever the drag direction.
func NormalizeRect(p1, p2 Point) Geometry {
	return Geometry{
		X: min(p1.X, p2.X),
		Y: min(p1.Y, p2.Y),
		W: abs(p1.X - p2.X),
		H: abs(p1.Y - p2.Y),
	}
}

// ClampToDisplay fits raw into bounds. Edges hanging off the display are
// clipped and reported as warnings; regions that cannot be captured at
// all are rejected with a *BoundsError.
//
// The origin is clamped first, then checked against the far edges, and
// only then are the extents clipped.
func ClampToDisplay(raw Geometry, bounds DisplayBounds) (Geometry, []Warning, error) {
	g := raw
	var warnings []Warning

	if g.X < 0 {
		warnings = append(warnings, Warning{Code: CodePartialX, Amount: -g.X})
		g.W += g.X
		g.X = 0
	}
	if g.Y < 0 {
		warnings = append(warnings, Warning{Code: CodePartialY, Amount: -g.Y})
		g.H += g.Y
		g.Y = 0
	}

	if g.X > bounds.Width {
		return Geometry{}, warnings, &BoundsError{Code: CodeCompleteX, Geometry: raw, Bounds: bounds, Err: ErrCompletelyOutOfBounds}
	}
	if g.Y > bounds.Height {
		return Geometry{}, warnings, &BoundsError{Code: CodeCompleteY, Geometry: raw, Bounds: bounds, Err: ErrCompletelyOutOfBounds}
	}

	if over := g.X + g.W - bounds.Width; over > 0 {
		warnings = append(warnings, Warning{Code: CodePartialRight, Amount: over})
		g.W = bounds.Width - g.X
	}
	if over := g.Y + g.H - bounds.Height; over > 0 {
		warnings = append(warnings, Warning{Code: CodePartialBottom, Amount: over})
		g.H = bounds.Height - g.Y
	}

	if g.W < 1 {
		return Geometry{}, warnings, &BoundsError{Code: CodeZeroWidth, Geometry: raw, Bounds: bounds, Err: ErrDegenerateWidth}
	}
	if g.H < 1 {
		return Geometry{}, warnings, &BoundsError{Code: CodeZeroHeight, Geometry: raw, Bounds: bounds, Err: ErrDegenerateHeight}
	}

	return g, warnings, nil
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
