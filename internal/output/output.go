package output

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/bryanchriswhite/scr2ppm/internal/frame"
	"github.com/bryanchriswhite/scr2ppm/internal/logger"
)

// Output defines where an encoded capture goes.
// This allows us to swap between different destinations:
// - stdout
// - a file on disk
type Output interface {
	// Start prepares the destination
	Start() error

	// Stop releases the destination
	Stop() error

	// WriteFrame encodes a frame and delivers it
	WriteFrame(f *frame.PixelFrame) error

	// Name returns a human-readable name for this output type
	Name() string
}

// New returns a file output for path, or a stream output on stdout when
// path is empty or "-".
func New(path string) Output {
	if path == "" || path == "-" {
		return NewStreamOutput(os.Stdout, "stdout")
	}
	return NewFileOutput(path)
}

// StreamOutput writes the image to an io.Writer
type StreamOutput struct {
	w    io.Writer
	name string
}

// NewStreamOutput creates an output writing to w
func NewStreamOutput(w io.Writer, name string) *StreamOutput {
	return &StreamOutput{w: w, name: name}
}

func (s *StreamOutput) Start() error { return nil }
func (s *StreamOutput) Stop() error  { return nil }
func (s *StreamOutput) Name() string { return s.name }

// WriteFrame encodes f as P6 onto the stream
func (s *StreamOutput) WriteFrame(f *frame.PixelFrame) error {
	return EncodePPM(s.w, f)
}

// FileOutput writes the image to a temporary file next to the target
// and renames it into place once the whole image has been written.
type FileOutput struct {
	path string
	tmp  *os.File
}

// NewFileOutput creates an output writing to path
func NewFileOutput(path string) *FileOutput {
	return &FileOutput{path: path}
}

// Name returns the target path
func (o *FileOutput) Name() string {
	return o.path
}

// Start creates the temporary file
func (o *FileOutput) Start() error {
	dir := filepath.Dir(o.path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(o.path)+".*")
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	o.tmp = tmp
	return nil
}

// WriteFrame encodes f into the temporary file and moves it into place
func (o *FileOutput) WriteFrame(f *frame.PixelFrame) error {
	if o.tmp == nil {
		return fmt.Errorf("output %s not started", o.path)
	}
	if err := EncodePPM(o.tmp, f); err != nil {
		return err
	}
	if err := o.tmp.Close(); err != nil {
		return fmt.Errorf("failed to close output file: %w", err)
	}
	if err := os.Rename(o.tmp.Name(), o.path); err != nil {
		return fmt.Errorf("failed to move output into place: %w", err)
	}
	o.tmp = nil

	logger.WithComponent("output").Info().
		Str("path", o.path).
		Int("width", f.Width).
		Int("height", f.Height).
		Msg("Image written")
	return nil
}

// Stop removes the temporary file if WriteFrame never completed
func (o *FileOutput) Stop() error {
	if o.tmp == nil {
		return nil
	}
	name := o.tmp.Name()
	o.tmp.Close()
	o.tmp = nil
	if err := os.Remove(name); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove partial output: %w", err)
	}
	return nil
}
