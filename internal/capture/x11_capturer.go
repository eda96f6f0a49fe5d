package capture

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/BurntSushi/xgb"
	mshm "github.com/BurntSushi/xgb/shm"
	"github.com/BurntSushi/xgb/xproto"
	"github.com/bryanchriswhite/scr2ppm/internal/frame"
	"github.com/bryanchriswhite/scr2ppm/internal/geometry"
	"github.com/bryanchriswhite/scr2ppm/internal/logger"
	"github.com/bryanchriswhite/scr2ppm/internal/window"
	"github.com/gen2brain/shm"
)

// X11Options tunes the X11 capturer
type X11Options struct {
	// UseShm fetches pixels through a MIT-SHM segment when the server allows it
	UseShm bool
	// Crosshair shows a crosshair cursor while the pointer is grabbed
	Crosshair bool
}

// X11Capturer captures the root window of the default X11 screen
type X11Capturer struct {
	conn      *xgb.Conn
	setup     *xproto.SetupInfo
	screen    *xproto.ScreenInfo
	root      xproto.Window
	inspector *window.X11Inspector
	opts      X11Options

	shmEnabled bool
	cursor     xproto.Cursor
}

// NewX11Capturer connects to the X server named by $DISPLAY
func NewX11Capturer(opts X11Options) (*X11Capturer, error) {
	conn, err := xgb.NewConn()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to X server: %w", err)
	}

	setup := xproto.Setup(conn)
	screen := setup.DefaultScreen(conn)

	return &X11Capturer{
		conn:      conn,
		setup:     setup,
		screen:    screen,
		root:      screen.Root,
		inspector: window.NewX11Inspector(conn),
		opts:      opts,
	}, nil
}

// Start initializes extensions and the selection cursor
func (c *X11Capturer) Start() error {
	log := logger.WithComponent("x11-capturer")

	if c.opts.UseShm {
		if err := mshm.Init(c.conn); err != nil {
			log.Debug().
				Err(err).
				Msg("MIT-SHM extension not available - using core GetImage")
		} else {
			c.shmEnabled = true
			log.Debug().Msg("MIT-SHM extension initialized")
		}
	}

	if c.opts.Crosshair {
		cursor, err := c.createCursor(xcCrosshair)
		if err != nil {
			log.Warn().
				Err(err).
				Msg("Failed to create crosshair cursor - keeping the default pointer")
		} else {
			c.cursor = cursor
		}
	}

	log.Debug().
		Int("width", int(c.screen.WidthInPixels)).
		Int("height", int(c.screen.HeightInPixels)).
		Uint8("depth", c.screen.RootDepth).
		Uint32("root", uint32(c.root)).
		Msg("Connected to X server")

	return nil
}

// Stop closes the X11 connection
func (c *X11Capturer) Stop() error {
	if c.cursor != 0 {
		xproto.FreeCursor(c.conn, c.cursor)
		c.cursor = 0
	}
	c.conn.Close()
	return nil
}

// Name returns the capturer name
func (c *X11Capturer) Name() string {
	return "X11"
}

// Bounds returns the size of the default screen
func (c *X11Capturer) Bounds() geometry.DisplayBounds {
	return geometry.DisplayBounds{
		Width:  int(c.screen.WidthInPixels),
		Height: int(c.screen.HeightInPixels),
	}
}

// RootGeometry returns the geometry of the root window
func (c *X11Capturer) RootGeometry() (geometry.Geometry, error) {
	return c.inspector.Geometry(uint32(c.root))
}

// DescribeWindow returns geometry, title and class of a window
func (c *X11Capturer) DescribeWindow(id uint32) (*window.Info, error) {
	return c.inspector.Describe(id)
}

// Bell rings the bell at the base volume
func (c *X11Capturer) Bell() error {
	return xproto.BellChecked(c.conn, 0).Check()
}

// CaptureRegion fetches the pixels of g from the root window in one request
func (c *X11Capturer) CaptureRegion(g geometry.Geometry) (*frame.PixelFrame, error) {
	log := logger.WithComponent("x11-capturer")

	if !g.Contains(c.Bounds()) || g.W < 1 || g.H < 1 {
		return nil, fmt.Errorf("%w: region %s outside display", ErrFrameFetchFailed, g)
	}

	if c.shmEnabled {
		f, err := c.captureShm(g)
		if err == nil {
			return f, nil
		}
		log.Debug().
			Err(err).
			Msg("MIT-SHM capture failed, falling back to core GetImage")
		c.shmEnabled = false
	}

	f, err := c.captureCore(g)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFrameFetchFailed, err)
	}
	return f, nil
}

// captureCore reads the region with a plain GetImage request
func (c *X11Capturer) captureCore(g geometry.Geometry) (*frame.PixelFrame, error) {
	reply, err := xproto.GetImage(
		c.conn,
		xproto.ImageFormatZPixmap,
		xproto.Drawable(c.root),
		int16(g.X), int16(g.Y),
		uint16(g.W), uint16(g.H),
		0xffffffff,
	).Reply()
	if err != nil {
		return nil, fmt.Errorf("failed to get image: %w", err)
	}

	layout, err := layoutFor(c.setup, c.screen, reply.Depth, reply.Visual)
	if err != nil {
		return nil, err
	}

	logger.WithComponent("x11-capturer").Debug().
		Stringer("geometry", g).
		Int("bytes", len(reply.Data)).
		Int("bits_per_pixel", layout.BitsPerPixel).
		Msg("Fetched image")

	return frame.New(g.W, g.H, layout, reply.Data, nil)
}

// captureShm reads the region into a shared memory segment. The segment
// stays attached until the returned frame is released.
func (c *X11Capturer) captureShm(g geometry.Geometry) (f *frame.PixelFrame, err error) {
	layout, err := layoutFor(c.setup, c.screen, c.screen.RootDepth, c.screen.RootVisual)
	if err != nil {
		return nil, err
	}
	size := layout.Stride(g.W) * g.H

	var undo []func() error
	release := func() error {
		var errs []error
		for i := len(undo) - 1; i >= 0; i-- {
			errs = append(errs, undo[i]())
		}
		undo = nil
		return errors.Join(errs...)
	}
	defer func() {
		if err != nil {
			release()
		}
	}()

	shmID, err := shm.Get(shm.IPC_PRIVATE, size, shm.IPC_CREAT|0600)
	if err != nil {
		return nil, fmt.Errorf("failed to allocate shared memory: %w", err)
	}
	undo = append(undo, func() error { return shm.Rm(shmID) })

	data, err := shm.At(shmID, 0, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to attach shared memory: %w", err)
	}
	undo = append(undo, func() error { return shm.Dt(data) })

	seg, err := mshm.NewSegId(c.conn)
	if err != nil {
		return nil, fmt.Errorf("failed to allocate segment id: %w", err)
	}
	if err := mshm.AttachChecked(c.conn, seg, uint32(shmID), false).Check(); err != nil {
		return nil, fmt.Errorf("server failed to attach segment: %w", err)
	}
	undo = append(undo, func() error { return mshm.DetachChecked(c.conn, seg).Check() })

	reply, err := mshm.GetImage(
		c.conn,
		xproto.Drawable(c.root),
		int16(g.X), int16(g.Y),
		uint16(g.W), uint16(g.H),
		0xffffffff,
		xproto.ImageFormatZPixmap,
		seg,
		0,
	).Reply()
	if err != nil {
		return nil, fmt.Errorf("failed to get shm image: %w", err)
	}
	if reply.Depth != c.screen.RootDepth {
		return nil, fmt.Errorf("unexpected image depth %d", reply.Depth)
	}

	logger.WithComponent("x11-capturer").Debug().
		Stringer("geometry", g).
		Uint32("bytes", reply.Size).
		Int("bits_per_pixel", layout.BitsPerPixel).
		Msg("Fetched image via MIT-SHM")

	return frame.New(g.W, g.H, layout, data[:size], release)
}

// layoutFor derives the pixel layout of images with the given depth and visual
func layoutFor(setup *xproto.SetupInfo, screen *xproto.ScreenInfo, depth byte, visual xproto.Visualid) (frame.Layout, error) {
	layout := frame.Layout{ByteOrder: binary.LittleEndian}
	if setup.ImageByteOrder == xproto.ImageOrderMSBFirst {
		layout.ByteOrder = binary.BigEndian
	}

	for _, format := range setup.PixmapFormats {
		if format.Depth == depth {
			layout.BitsPerPixel = int(format.BitsPerPixel)
			layout.ScanlinePad = int(format.ScanlinePad)
			break
		}
	}
	if layout.BitsPerPixel == 0 {
		return layout, fmt.Errorf("no pixmap format found for depth %d", depth)
	}

	if visual == 0 {
		visual = screen.RootVisual
	}
	for _, d := range screen.AllowedDepths {
		for _, v := range d.Visuals {
			if v.VisualId == visual {
				layout.Red = v.RedMask
				layout.Green = v.GreenMask
				layout.Blue = v.BlueMask
				return layout, nil
			}
		}
	}

	return layout, fmt.Errorf("visual 0x%x not found on screen", uint32(visual))
}
