package capture

import (
	"errors"
	"fmt"

	"github.com/BurntSushi/xgb"
	"github.com/BurntSushi/xgb/xproto"
	"github.com/bryanchriswhite/scr2ppm/internal/geometry"
	"github.com/bryanchriswhite/scr2ppm/internal/logger"
	"github.com/bryanchriswhite/scr2ppm/internal/selector"
)

// Glyph index of XC_crosshair in the standard cursor font
const xcCrosshair = 34

var errConnectionClosed = errors.New("X connection closed")

// grabMask returns the pointer events a grab in mode selects
func grabMask(mode selector.GrabMode) uint16 {
	switch mode {
	case selector.GrabDrag:
		return xproto.EventMaskButtonPress | xproto.EventMaskButtonRelease | xproto.EventMaskButtonMotion
	default:
		return xproto.EventMaskButtonPress
	}
}

func grabStatusName(status byte) string {
	switch status {
	case xproto.GrabStatusSuccess:
		return "Success"
	case xproto.GrabStatusAlreadyGrabbed:
		return "AlreadyGrabbed"
	case xproto.GrabStatusInvalidTime:
		return "InvalidTime"
	case xproto.GrabStatusNotViewable:
		return "NotViewable"
	case xproto.GrabStatusFrozen:
		return "Frozen"
	default:
		return fmt.Sprintf("status %d", status)
	}
}

// Grab takes exclusive hold of the pointer over the whole root window
func (c *X11Capturer) Grab(mode selector.GrabMode) (func(), error) {
	reply, err := xproto.GrabPointer(
		c.conn,
		false,
		c.root,
		grabMask(mode),
		xproto.GrabModeAsync,
		xproto.GrabModeAsync,
		c.root,
		c.cursor,
		xproto.TimeCurrentTime,
	).Reply()
	if err != nil {
		return nil, err
	}
	if reply.Status != xproto.GrabStatusSuccess {
		return nil, errors.New(grabStatusName(reply.Status))
	}

	logger.WithComponent("x11-capturer").Debug().
		Stringer("mode", mode).
		Msg("Pointer grabbed")

	return func() {
		xproto.UngrabPointer(c.conn, xproto.TimeCurrentTime)
		c.conn.Sync()
	}, nil
}

// NextEvent blocks until the X server delivers the next event
func (c *X11Capturer) NextEvent() (selector.Event, error) {
	for {
		ev, xerr := c.conn.WaitForEvent()
		if ev == nil && xerr == nil {
			return selector.Event{}, errConnectionClosed
		}
		if xerr != nil {
			logger.WithComponent("x11-capturer").Debug().
				Str("error", xerr.Error()).
				Msg("X error while waiting for pointer events")
			continue
		}
		return eventFromX(ev), nil
	}
}

// eventFromX translates the pointer events a grab can deliver
func eventFromX(ev xgb.Event) selector.Event {
	switch e := ev.(type) {
	case xproto.ButtonPressEvent:
		return selector.Event{
			Kind:  selector.EventButtonPress,
			Point: geometry.Point{X: int(e.RootX), Y: int(e.RootY)},
			Child: uint32(e.Child),
		}
	case xproto.ButtonReleaseEvent:
		return selector.Event{
			Kind:  selector.EventButtonRelease,
			Point: geometry.Point{X: int(e.RootX), Y: int(e.RootY)},
			Child: uint32(e.Child),
		}
	case xproto.MotionNotifyEvent:
		return selector.Event{
			Kind:  selector.EventMotion,
			Point: geometry.Point{X: int(e.RootX), Y: int(e.RootY)},
			Child: uint32(e.Child),
		}
	default:
		return selector.Event{Kind: selector.EventOther}
	}
}

// xorOverlay draws rectangle outlines on the root window with GXxor, so
// drawing the same outline twice restores the original pixels.
type xorOverlay struct {
	conn     *xgb.Conn
	drawable xproto.Drawable
	gc       xproto.Gcontext
}

// NewOverlay creates an XOR graphics context on the root window that
// draws over child windows too.
func (c *X11Capturer) NewOverlay() (selector.Overlay, error) {
	gc, err := xproto.NewGcontextId(c.conn)
	if err != nil {
		return nil, fmt.Errorf("failed to create graphics context ID: %w", err)
	}

	err = xproto.CreateGCChecked(
		c.conn,
		gc,
		xproto.Drawable(c.root),
		xproto.GcFunction|xproto.GcForeground|xproto.GcBackground|xproto.GcSubwindowMode,
		[]uint32{
			xproto.GxXor,
			c.screen.WhitePixel ^ c.screen.BlackPixel,
			c.screen.BlackPixel,
			xproto.SubwindowModeIncludeInferiors,
		},
	).Check()
	if err != nil {
		return nil, fmt.Errorf("failed to create GC: %w", err)
	}

	return &xorOverlay{
		conn:     c.conn,
		drawable: xproto.Drawable(c.root),
		gc:       gc,
	}, nil
}

// Invert XORs the outline of g onto the root window
func (o *xorOverlay) Invert(g geometry.Geometry) error {
	return xproto.PolyRectangleChecked(
		o.conn,
		o.drawable,
		o.gc,
		[]xproto.Rectangle{{
			X:      int16(g.X),
			Y:      int16(g.Y),
			Width:  uint16(g.W),
			Height: uint16(g.H),
		}},
	).Check()
}

// Close frees the graphics context
func (o *xorOverlay) Close() error {
	xproto.FreeGC(o.conn, o.gc)
	o.conn.Sync()
	return nil
}

// createCursor builds a cursor from the standard X cursor font
func (c *X11Capturer) createCursor(glyph uint16) (xproto.Cursor, error) {
	font, err := xproto.NewFontId(c.conn)
	if err != nil {
		return 0, fmt.Errorf("failed to create font ID: %w", err)
	}
	const name = "cursor"
	if err := xproto.OpenFontChecked(c.conn, font, uint16(len(name)), name).Check(); err != nil {
		return 0, fmt.Errorf("failed to open cursor font: %w", err)
	}
	defer xproto.CloseFont(c.conn, font)

	cursor, err := xproto.NewCursorId(c.conn)
	if err != nil {
		return 0, fmt.Errorf("failed to create cursor ID: %w", err)
	}

	// black glyph on a white mask
	err = xproto.CreateGlyphCursorChecked(
		c.conn,
		cursor,
		font, font,
		glyph, glyph+1,
		0, 0, 0,
		0xffff, 0xffff, 0xffff,
	).Check()
	if err != nil {
		return 0, fmt.Errorf("failed to create glyph cursor: %w", err)
	}

	return cursor, nil
}
