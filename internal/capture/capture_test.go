package capture

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"testing"
	"time"

	"github.com/bryanchriswhite/scr2ppm/internal/frame"
	"github.com/bryanchriswhite/scr2ppm/internal/geometry"
	"github.com/bryanchriswhite/scr2ppm/internal/logger"
	"github.com/bryanchriswhite/scr2ppm/internal/output"
	"github.com/bryanchriswhite/scr2ppm/internal/window"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var bgrx = frame.Layout{
	BitsPerPixel: 32,
	ScanlinePad:  32,
	ByteOrder:    binary.LittleEndian,
	Red:          0xff0000,
	Green:        0x00ff00,
	Blue:         0x0000ff,
}

// fakeCapturer serves a solid-color desktop from memory
type fakeCapturer struct {
	bounds   geometry.DisplayBounds
	windows  map[uint32]geometry.Geometry
	pixel    uint32
	fetchErr error

	fetched  []geometry.Geometry
	released int
	bells    int
}

func newFakeCapturer(width, height int) *fakeCapturer {
	return &fakeCapturer{
		bounds:  geometry.DisplayBounds{Width: width, Height: height},
		windows: map[uint32]geometry.Geometry{},
		pixel:   0x00336699,
	}
}

func (c *fakeCapturer) Start() error                   { return nil }
func (c *fakeCapturer) Stop() error                    { return nil }
func (c *fakeCapturer) Name() string                   { return "fake" }
func (c *fakeCapturer) Bounds() geometry.DisplayBounds { return c.bounds }
func (c *fakeCapturer) Bell() error                    { c.bells++; return nil }

func (c *fakeCapturer) RootGeometry() (geometry.Geometry, error) {
	return c.bounds.Geometry(), nil
}

func (c *fakeCapturer) DescribeWindow(id uint32) (*window.Info, error) {
	g, ok := c.windows[id]
	if !ok {
		return nil, errors.New("BadWindow")
	}
	return &window.Info{ID: id, Title: "test", Class: "Test", Geometry: g}, nil
}

func (c *fakeCapturer) CaptureRegion(g geometry.Geometry) (*frame.PixelFrame, error) {
	c.fetched = append(c.fetched, g)
	if c.fetchErr != nil {
		return nil, errors.Join(ErrFrameFetchFailed, c.fetchErr)
	}
	data := make([]byte, g.W*g.H*4)
	for i := 0; i < len(data); i += 4 {
		binary.LittleEndian.PutUint32(data[i:], c.pixel)
	}
	return frame.New(g.W, g.H, bgrx, data, func() error {
		c.released++
		return nil
	})
}

type fakePicker struct {
	window uint32
	area   geometry.Geometry
	err    error
	picks  int
	drags  int
}

func (p *fakePicker) PickWindow() (uint32, error) {
	p.picks++
	return p.window, p.err
}

func (p *fakePicker) DragArea() (geometry.Geometry, error) {
	p.drags++
	return p.area, p.err
}

func TestParseMode(t *testing.T) {
	tests := map[string]Mode{
		"":        ModeScreen,
		"screen":  ModeScreen,
		"Desktop": ModeScreen,
		"window":  ModeWindow,
		"w":       ModeWindow,
		"area":    ModeArea,
		" a ":     ModeArea,
	}
	for in, want := range tests {
		got, err := ParseMode(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseMode("fullscreen")
	require.Error(t, err)
}

func TestResolveScreen(t *testing.T) {
	c := newFakeCapturer(1920, 1080)

	g, err := NewResolver(c, nil).Resolve(ModeScreen)
	require.NoError(t, err)
	assert.Equal(t, geometry.Geometry{W: 1920, H: 1080}, g)
}

func TestResolveWindowPartiallyOffscreen(t *testing.T) {
	c := newFakeCapturer(100, 100)
	c.windows[42] = geometry.Geometry{X: -5, Y: 10, W: 20, H: 20}
	p := &fakePicker{window: 42}

	g, err := NewResolver(c, p).Resolve(ModeWindow)
	require.NoError(t, err)
	assert.Equal(t, geometry.Geometry{X: 0, Y: 10, W: 15, H: 20}, g)
	assert.Equal(t, 1, p.picks)
}

func TestResolveWindowBackgroundClick(t *testing.T) {
	c := newFakeCapturer(64, 48)

	g, err := NewResolver(c, &fakePicker{window: 0}).Resolve(ModeWindow)
	require.NoError(t, err)
	assert.Equal(t, geometry.Geometry{W: 64, H: 48}, g)
}

func TestResolveWindowVanished(t *testing.T) {
	c := newFakeCapturer(64, 48)

	_, err := NewResolver(c, &fakePicker{window: 7}).Resolve(ModeWindow)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "BadWindow")
}

func TestResolveAreaRingsBell(t *testing.T) {
	c := newFakeCapturer(100, 100)
	p := &fakePicker{area: geometry.Geometry{X: 90, Y: 0, W: 20, H: 10}}
	r := NewResolver(c, p)
	r.SetBell(true)

	g, err := r.Resolve(ModeArea)
	require.NoError(t, err)
	assert.Equal(t, geometry.Geometry{X: 90, Y: 0, W: 10, H: 10}, g)
	assert.Equal(t, 1, c.bells)
}

func TestResolvePickerError(t *testing.T) {
	c := newFakeCapturer(100, 100)
	grabErr := errors.New("failed to grab pointer")

	_, err := NewResolver(c, &fakePicker{err: grabErr}).Resolve(ModeArea)
	require.ErrorIs(t, err, grabErr)
	assert.Zero(t, c.bells)
}

func TestResolveWithoutPicker(t *testing.T) {
	c := newFakeCapturer(100, 100)

	_, err := NewResolver(c, nil).Resolve(ModeWindow)
	require.Error(t, err)
	_, err = NewResolver(c, nil).Resolve(ModeArea)
	require.Error(t, err)
	_, err = NewResolver(c, nil).Resolve(Mode(9))
	require.Error(t, err)
}

func TestShotWholeDesktopOnePixel(t *testing.T) {
	c := newFakeCapturer(1, 1)
	var buf bytes.Buffer
	shot := &Shot{
		Capturer: c,
		Resolver: NewResolver(c, nil),
		Output:   output.NewStreamOutput(&buf, "buffer"),
	}

	require.NoError(t, shot.Run(context.Background(), ModeScreen))

	want := append([]byte("P6\n1 1\n255\n"), 0x33, 0x66, 0x99)
	assert.Equal(t, want, buf.Bytes())
	assert.Len(t, buf.Bytes(), 14)
	assert.Equal(t, 1, c.released)
}

func TestShotOutOfBoundsNeverFetches(t *testing.T) {
	c := newFakeCapturer(100, 100)
	p := &fakePicker{area: geometry.Geometry{X: 150, Y: 0, W: 10, H: 10}}
	var buf bytes.Buffer
	shot := &Shot{
		Capturer: c,
		Resolver: NewResolver(c, p),
		Output:   output.NewStreamOutput(&buf, "buffer"),
	}

	err := shot.Run(context.Background(), ModeArea)
	require.ErrorIs(t, err, geometry.ErrCompletelyOutOfBounds)
	assert.Empty(t, c.fetched)
	assert.Zero(t, buf.Len())
}

func TestShotDegenerateAreaNeverFetches(t *testing.T) {
	c := newFakeCapturer(100, 100)
	p := &fakePicker{area: geometry.Geometry{X: 10, Y: 10, W: 0, H: 30}}
	var buf bytes.Buffer
	shot := &Shot{
		Capturer: c,
		Resolver: NewResolver(c, p),
		Output:   output.NewStreamOutput(&buf, "buffer"),
	}

	err := shot.Run(context.Background(), ModeArea)
	require.ErrorIs(t, err, geometry.ErrDegenerateWidth)
	assert.Empty(t, c.fetched)
	assert.Zero(t, buf.Len())
}

func TestShotFetchFailureWritesNothing(t *testing.T) {
	c := newFakeCapturer(10, 10)
	c.fetchErr = errors.New("BadMatch")
	var buf bytes.Buffer
	shot := &Shot{
		Capturer: c,
		Resolver: NewResolver(c, nil),
		Output:   output.NewStreamOutput(&buf, "buffer"),
	}

	err := shot.Run(context.Background(), ModeScreen)
	require.ErrorIs(t, err, ErrFrameFetchFailed)
	assert.Zero(t, buf.Len())
}

type brokenOutput struct{ stopped bool }

func (o *brokenOutput) Start() error                         { return nil }
func (o *brokenOutput) Stop() error                          { o.stopped = true; return nil }
func (o *brokenOutput) Name() string                         { return "broken" }
func (o *brokenOutput) WriteFrame(f *frame.PixelFrame) error { return errors.New("disk full") }

func TestShotReleasesFrameOnWriteError(t *testing.T) {
	c := newFakeCapturer(2, 2)
	out := &brokenOutput{}
	shot := &Shot{Capturer: c, Resolver: NewResolver(c, nil), Output: out}

	require.Error(t, shot.Run(context.Background(), ModeScreen))
	assert.Equal(t, 1, c.released)
	assert.True(t, out.stopped)
}

// stickyOutput accepts the image but fails to clean up afterwards
type stickyOutput struct {
	output.Output
}

func (o *stickyOutput) Stop() error { return errors.New("remove .shot.ppm.tmp: permission denied") }

func TestShotLogsOutputStopError(t *testing.T) {
	var logs bytes.Buffer
	logger.InitWriter(&logs, "info", false)
	t.Cleanup(func() { logger.Init("info", false) })

	c := newFakeCapturer(1, 1)
	var buf bytes.Buffer
	shot := &Shot{
		Capturer: c,
		Resolver: NewResolver(c, nil),
		Output:   &stickyOutput{Output: output.NewStreamOutput(&buf, "buffer")},
	}

	require.NoError(t, shot.Run(context.Background(), ModeScreen))
	assert.Len(t, buf.Bytes(), 14)
	assert.Contains(t, logs.String(), "Failed to stop output")
	assert.Contains(t, logs.String(), "permission denied")
}

func TestShotDelayCancelled(t *testing.T) {
	c := newFakeCapturer(2, 2)
	var buf bytes.Buffer
	shot := &Shot{
		Capturer: c,
		Resolver: NewResolver(c, nil),
		Output:   output.NewStreamOutput(&buf, "buffer"),
		Delay:    time.Hour,
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := shot.Run(ctx, ModeScreen)
	require.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, c.fetched)
}

func TestCountdownElapses(t *testing.T) {
	start := time.Now()
	require.NoError(t, Countdown(context.Background(), 20*time.Millisecond))
	assert.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond)
	require.NoError(t, Countdown(context.Background(), 0))
}
