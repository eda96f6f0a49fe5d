package capture

import (
	"encoding/binary"
	"testing"

	"github.com/BurntSushi/xgb/xproto"
	"github.com/bryanchriswhite/scr2ppm/internal/geometry"
	"github.com/bryanchriswhite/scr2ppm/internal/selector"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSetup(order byte) (*xproto.SetupInfo, *xproto.ScreenInfo) {
	screen := xproto.ScreenInfo{
		Root:           0x1e5,
		RootDepth:      24,
		RootVisual:     0x21,
		WidthInPixels:  1920,
		HeightInPixels: 1080,
		AllowedDepths: []xproto.DepthInfo{
			{Depth: 24, Visuals: []xproto.VisualInfo{
				{VisualId: 0x21, RedMask: 0xff0000, GreenMask: 0x00ff00, BlueMask: 0x0000ff},
			}},
			{Depth: 16, Visuals: []xproto.VisualInfo{
				{VisualId: 0x44, RedMask: 0xf800, GreenMask: 0x07e0, BlueMask: 0x001f},
			}},
		},
	}
	setup := &xproto.SetupInfo{
		ImageByteOrder: order,
		PixmapFormats: []xproto.Format{
			{Depth: 1, BitsPerPixel: 1, ScanlinePad: 32},
			{Depth: 16, BitsPerPixel: 16, ScanlinePad: 32},
			{Depth: 24, BitsPerPixel: 32, ScanlinePad: 32},
		},
		Roots: []xproto.ScreenInfo{screen},
	}
	return setup, &setup.Roots[0]
}

func TestLayoutForRootVisual(t *testing.T) {
	setup, screen := testSetup(xproto.ImageOrderLSBFirst)

	layout, err := layoutFor(setup, screen, 24, 0x21)
	require.NoError(t, err)
	assert.Equal(t, 32, layout.BitsPerPixel)
	assert.Equal(t, 32, layout.ScanlinePad)
	assert.Equal(t, binary.ByteOrder(binary.LittleEndian), layout.ByteOrder)
	assert.Equal(t, uint32(0xff0000), layout.Red)
	assert.Equal(t, uint32(0x0000ff), layout.Blue)
}

func TestLayoutForDefaultsToRootVisual(t *testing.T) {
	setup, screen := testSetup(xproto.ImageOrderMSBFirst)

	layout, err := layoutFor(setup, screen, 24, 0)
	require.NoError(t, err)
	assert.Equal(t, binary.ByteOrder(binary.BigEndian), layout.ByteOrder)
	assert.Equal(t, uint32(0x00ff00), layout.Green)
}

func TestLayoutFor16Bit(t *testing.T) {
	setup, screen := testSetup(xproto.ImageOrderLSBFirst)

	layout, err := layoutFor(setup, screen, 16, 0x44)
	require.NoError(t, err)
	assert.Equal(t, 16, layout.BitsPerPixel)
	assert.Equal(t, uint32(0xf800), layout.Red)
}

func TestLayoutForErrors(t *testing.T) {
	setup, screen := testSetup(xproto.ImageOrderLSBFirst)

	_, err := layoutFor(setup, screen, 30, 0x21)
	require.Error(t, err)

	_, err = layoutFor(setup, screen, 24, 0x99)
	require.Error(t, err)
}

func TestEventFromX(t *testing.T) {
	ev := eventFromX(xproto.ButtonPressEvent{RootX: 12, RootY: -3, Child: 0x2a00001})
	assert.Equal(t, selector.Event{
		Kind:  selector.EventButtonPress,
		Point: geometry.Point{X: 12, Y: -3},
		Child: 0x2a00001,
	}, ev)

	ev = eventFromX(xproto.ButtonReleaseEvent{RootX: 40, RootY: 50})
	assert.Equal(t, selector.EventButtonRelease, ev.Kind)
	assert.Equal(t, geometry.Point{X: 40, Y: 50}, ev.Point)

	ev = eventFromX(xproto.MotionNotifyEvent{RootX: 7, RootY: 8})
	assert.Equal(t, selector.EventMotion, ev.Kind)

	ev = eventFromX(xproto.ExposeEvent{})
	assert.Equal(t, selector.EventOther, ev.Kind)
}

func TestGrabMask(t *testing.T) {
	assert.Equal(t, uint16(xproto.EventMaskButtonPress), grabMask(selector.GrabPick))
	assert.Equal(t,
		uint16(xproto.EventMaskButtonPress|xproto.EventMaskButtonRelease|xproto.EventMaskButtonMotion),
		grabMask(selector.GrabDrag))
	assert.Equal(t, "AlreadyGrabbed", grabStatusName(xproto.GrabStatusAlreadyGrabbed))
	assert.Equal(t, "status 9", grabStatusName(9))
}
