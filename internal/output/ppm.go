package output

import (
	"fmt"
	"io"
	"strconv"

	"github.com/bryanchriswhite/scr2ppm/internal/frame"
)

// MaxValue is the largest channel sample written to the header
const MaxValue = 255

// Header returns the P6 text header for a width x height image
func Header(width, height int) []byte {
	b := make([]byte, 0, 32)
	b = append(b, "P6\n"...)
	b = strconv.AppendInt(b, int64(width), 10)
	b = append(b, ' ')
	b = strconv.AppendInt(b, int64(height), 10)
	b = append(b, '\n')
	b = strconv.AppendInt(b, MaxValue, 10)
	b = append(b, '\n')
	return b
}

// AppendPPM appends the binary P6 encoding of f to dst
func AppendPPM(dst []byte, f *frame.PixelFrame) []byte {
	dst = append(dst, Header(f.Width, f.Height)...)
	for y := 0; y < f.Height; y++ {
		for x := 0; x < f.Width; x++ {
			r, g, b := f.RGB(x, y)
			dst = append(dst, r, g, b)
		}
	}
	return dst
}

// EncodePPM writes f to w as a binary P6 image. The image is assembled in
// memory first and handed to w in a single write.
func EncodePPM(w io.Writer, f *frame.PixelFrame) error {
	if f.Width < 1 || f.Height < 1 {
		return fmt.Errorf("cannot encode empty frame %dx%d", f.Width, f.Height)
	}
	if f.Data == nil {
		return fmt.Errorf("frame already released")
	}

	size := len(Header(f.Width, f.Height)) + f.Width*f.Height*3
	buf := AppendPPM(make([]byte, 0, size), f)

	if _, err := w.Write(buf); err != nil {
		return fmt.Errorf("failed to write image: %w", err)
	}
	return nil
}
