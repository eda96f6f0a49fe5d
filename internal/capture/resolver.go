package capture

import (
	"errors"
	"fmt"

	"github.com/bryanchriswhite/scr2ppm/internal/geometry"
	"github.com/bryanchriswhite/scr2ppm/internal/logger"
)

// Picker runs the interactive selections
type Picker interface {
	PickWindow() (uint32, error)
	DragArea() (geometry.Geometry, error)
}

var warningMessages = map[string]string{
	geometry.CodePartialX:      "Region starts left of the display, clipping left edge",
	geometry.CodePartialY:      "Region starts above the display, clipping top edge",
	geometry.CodePartialRight:  "Region extends past the right edge, clipping",
	geometry.CodePartialBottom: "Region extends past the bottom edge, clipping",
}

// Resolver turns a capture mode into a region that is safe to fetch
type Resolver struct {
	capturer Capturer
	picker   Picker
	bell     bool
}

// NewResolver creates a resolver. picker may be nil if only ModeScreen is used.
func NewResolver(capturer Capturer, picker Picker) *Resolver {
	return &Resolver{capturer: capturer, picker: picker}
}

// SetBell rings the display bell once an area has been selected
func (r *Resolver) SetBell(enabled bool) {
	r.bell = enabled
}

// Resolve acquires the raw region for mode and clamps it to the display.
// Clipping is logged as a warning; a region that cannot be clamped is
// returned as a *geometry.BoundsError.
func (r *Resolver) Resolve(mode Mode) (geometry.Geometry, error) {
	log := logger.WithComponent("resolver")
	bounds := r.capturer.Bounds()

	raw, err := r.raw(mode, bounds)
	if err != nil {
		return geometry.Geometry{}, err
	}

	g, warnings, err := geometry.ClampToDisplay(raw, bounds)
	for _, w := range warnings {
		log.Warn().
			Str("code", w.Code).
			Int("clipped", w.Amount).
			Stringer("region", raw).
			Msg(warningMessages[w.Code])
	}
	if err != nil {
		var be *geometry.BoundsError
		if errors.As(err, &be) {
			log.Error().
				Str("code", be.Code).
				Stringer("region", raw).
				Int("display_width", bounds.Width).
				Int("display_height", bounds.Height).
				Msg("Region cannot be captured")
		}
		return geometry.Geometry{}, err
	}

	log.Debug().
		Stringer("mode", mode).
		Stringer("raw", raw).
		Stringer("clamped", g).
		Msg("Region resolved")

	return g, nil
}

func (r *Resolver) raw(mode Mode, bounds geometry.DisplayBounds) (geometry.Geometry, error) {
	log := logger.WithComponent("resolver")

	switch mode {
	case ModeScreen:
		g, err := r.capturer.RootGeometry()
		if err != nil {
			return geometry.Geometry{}, fmt.Errorf("failed to get desktop geometry: %w", err)
		}
		return g, nil

	case ModeWindow:
		if r.picker == nil {
			return geometry.Geometry{}, fmt.Errorf("window mode requires a pointer selector")
		}
		id, err := r.picker.PickWindow()
		if err != nil {
			return geometry.Geometry{}, err
		}
		if id == 0 {
			log.Info().Msg("Clicked on the desktop background, capturing the whole desktop")
			return r.raw(ModeScreen, bounds)
		}
		info, err := r.capturer.DescribeWindow(id)
		if err != nil {
			return geometry.Geometry{}, fmt.Errorf("failed to look up window 0x%x: %w", id, err)
		}
		log.Info().
			Uint32("window_id", info.ID).
			Str("title", info.Title).
			Str("class", info.Class).
			Stringer("geometry", info.Geometry).
			Msg("Window selected")
		return info.Geometry, nil

	case ModeArea:
		if r.picker == nil {
			return geometry.Geometry{}, fmt.Errorf("area mode requires a pointer selector")
		}
		g, err := r.picker.DragArea()
		if err != nil {
			return geometry.Geometry{}, err
		}
		if r.bell {
			if err := r.capturer.Bell(); err != nil {
				log.Debug().Err(err).Msg("Failed to ring bell")
			}
		}
		log.Info().Stringer("geometry", g).Msg("Area selected")
		return g, nil

	default:
		return geometry.Geometry{}, fmt.Errorf("unknown capture mode: %s", mode)
	}
}
