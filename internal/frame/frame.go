// Package frame holds raw pixel data fetched from the display server
// together with the layout needed to decode it.
package frame

import (
	"encoding/binary"
	"fmt"
	"math/bits"
)

// Channel describes where one color component lives in a packed pixel
type Channel struct {
	Mask uint32
}

// Shift is the position of the lowest bit of the mask
func (c Channel) Shift() int {
	if c.Mask == 0 {
		return 0
	}
	return bits.TrailingZeros32(c.Mask)
}

// Bits is the width of the mask
func (c Channel) Bits() int {
	return bits.OnesCount32(c.Mask)
}

// Extract returns the channel's value in pixel, scaled to 8 bits
func (c Channel) Extract(pixel uint32) uint8 {
	n := c.Bits()
	if n == 0 {
		return 0
	}
	v := (pixel & c.Mask) >> c.Shift()
	switch {
	case n == 8:
		return uint8(v)
	case n > 8:
		return uint8(v >> (n - 8))
	default:
		return uint8(v * 255 / (1<<n - 1))
	}
}

// PixelFrame is an owned buffer of packed pixels covering one region.
// It must be released once it has been encoded.
type PixelFrame struct {
	Width        int
	Height       int
	Stride       int // bytes per row including scanline padding
	BitsPerPixel int
	ByteOrder    binary.ByteOrder
	Data         []byte

	Red   Channel
	Green Channel
	Blue  Channel

	release func() error
}

// Layout describes how a server packs pixels for one depth
type Layout struct {
	BitsPerPixel int
	ScanlinePad  int // bits
	ByteOrder    binary.ByteOrder
	Red          uint32
	Green        uint32
	Blue         uint32
}

// Stride returns the padded row size in bytes for width pixels
func (l Layout) Stride(width int) int {
	rowBits := width * l.BitsPerPixel
	pad := l.ScanlinePad
	if pad <= 0 {
		pad = 8
	}
	return ((rowBits + pad - 1) / pad) * pad / 8
}

// New wraps data in a PixelFrame. release, if not nil, is called exactly
// once by Release.
func New(width, height int, layout Layout, data []byte, release func() error) (*PixelFrame, error) {
	switch layout.BitsPerPixel {
	case 8, 16, 24, 32:
	default:
		return nil, fmt.Errorf("unsupported bits per pixel: %d", layout.BitsPerPixel)
	}
	if layout.ByteOrder == nil {
		layout.ByteOrder = binary.LittleEndian
	}

	stride := layout.Stride(width)
	if need := stride * height; len(data) < need {
		return nil, fmt.Errorf("short pixel data: got %d bytes, need %d for %dx%d", len(data), need, width, height)
	}

	return &PixelFrame{
		Width:        width,
		Height:       height,
		Stride:       stride,
		BitsPerPixel: layout.BitsPerPixel,
		ByteOrder:    layout.ByteOrder,
		Data:         data,
		Red:          Channel{Mask: layout.Red},
		Green:        Channel{Mask: layout.Green},
		Blue:         Channel{Mask: layout.Blue},
		release:      release,
	}, nil
}

// Pixel returns the packed pixel at x, y
func (f *PixelFrame) Pixel(x, y int) uint32 {
	bpp := f.BitsPerPixel / 8
	i := y*f.Stride + x*bpp
	p := f.Data[i : i+bpp]

	switch bpp {
	case 4:
		return f.ByteOrder.Uint32(p)
	case 3:
		if f.ByteOrder == binary.BigEndian {
			return uint32(p[0])<<16 | uint32(p[1])<<8 | uint32(p[2])
		}
		return uint32(p[2])<<16 | uint32(p[1])<<8 | uint32(p[0])
	case 2:
		return uint32(f.ByteOrder.Uint16(p))
	default:
		return uint32(p[0])
	}
}

// RGB returns the 8-bit color components of the pixel at x, y
func (f *PixelFrame) RGB(x, y int) (r, g, b uint8) {
	p := f.Pixel(x, y)
	return f.Red.Extract(p), f.Green.Extract(p), f.Blue.Extract(p)
}

// Release frees the pixel buffer. It is safe to call more than once.
func (f *PixelFrame) Release() error {
	f.Data = nil
	if f.release == nil {
		return nil
	}
	release := f.release
	f.release = nil
	return release()
}
