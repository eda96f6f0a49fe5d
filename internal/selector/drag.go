package selector

import (
	"fmt"

	"github.com/bryanchriswhite/scr2ppm/internal/geometry"
	"github.com/bryanchriswhite/scr2ppm/internal/logger"
)

// DragSession holds the state of one rubber-band selection
type DragSession struct {
	Anchor  geometry.Point
	Current geometry.Geometry
	// Active is set once the button has been pressed
	Active bool
	// Drawn is set while Current is visible on the overlay
	Drawn bool
}

// update moves the free corner to p, erasing the previous feedback
// rectangle before drawing the new one.
func (d *DragSession) update(overlay Overlay, p geometry.Point) error {
	if err := d.erase(overlay); err != nil {
		return err
	}
	d.Current = geometry.NormalizeRect(d.Anchor, p)
	if err := overlay.Invert(d.Current); err != nil {
		return fmt.Errorf("failed to draw selection: %w", err)
	}
	d.Drawn = true
	return nil
}

func (d *DragSession) erase(overlay Overlay) error {
	if !d.Drawn {
		return nil
	}
	if err := overlay.Invert(d.Current); err != nil {
		return fmt.Errorf("failed to erase selection: %w", err)
	}
	d.Drawn = false
	return nil
}

// DragArea lets the user press, drag and release to select a rectangle.
// The returned geometry is normalized but not clamped to the display.
func (s *PointerSelector) DragArea() (geometry.Geometry, error) {
	log := logger.WithComponent("selector")
	s.setState(StateIdle)

	overlay, err := s.surface.NewOverlay()
	if err != nil {
		return geometry.Geometry{}, fmt.Errorf("failed to create selection overlay: %w", err)
	}
	defer overlay.Close()

	release, err := s.grab(GrabDrag)
	if err != nil {
		return geometry.Geometry{}, err
	}
	defer release()

	var session DragSession
	// Leave nothing drawn on the display whichever way we return.
	defer session.erase(overlay)

	s.setState(StateArmed)
	log.Info().Msg("Drag to select an area")

	for {
		ev, err := s.surface.NextEvent()
		if err != nil {
			return geometry.Geometry{}, fmt.Errorf("failed to read pointer event: %w", err)
		}

		switch ev.Kind {
		case EventButtonPress:
			if session.Active {
				continue
			}
			session.Active = true
			session.Anchor = ev.Point
			session.Current = geometry.Geometry{X: ev.Point.X, Y: ev.Point.Y}
			s.setState(StateDragging)

		case EventMotion:
			if !session.Active {
				continue
			}
			if err := session.update(overlay, ev.Point); err != nil {
				return geometry.Geometry{}, err
			}

		case EventButtonRelease:
			if !session.Active {
				continue
			}
			if err := session.erase(overlay); err != nil {
				return geometry.Geometry{}, err
			}
			session.Current = geometry.NormalizeRect(session.Anchor, ev.Point)
			s.setState(StateDone)
			log.Debug().
				Stringer("geometry", session.Current).
				Msg("Area selected")
			return session.Current, nil
		}
	}
}
