package capture

import (
	"context"
	"time"

	"github.com/bryanchriswhite/scr2ppm/internal/logger"
	"github.com/bryanchriswhite/scr2ppm/internal/output"
)

// Shot runs one capture end to end: resolve, wait, fetch, encode
type Shot struct {
	Capturer Capturer
	Resolver *Resolver
	Output   output.Output
	Delay    time.Duration
}

// Run captures the region selected by mode and writes it to the output.
// Nothing is written unless the region resolves and its pixels are fetched.
func (s *Shot) Run(ctx context.Context, mode Mode) error {
	log := logger.WithComponent("capture")

	g, err := s.Resolver.Resolve(mode)
	if err != nil {
		return err
	}

	if err := Countdown(ctx, s.Delay); err != nil {
		return err
	}

	f, err := s.Capturer.CaptureRegion(g)
	if err != nil {
		return err
	}
	defer func() {
		if err := f.Release(); err != nil {
			log.Warn().Err(err).Msg("Failed to release frame")
		}
	}()

	if err := s.Output.Start(); err != nil {
		return err
	}
	defer func() {
		if err := s.Output.Stop(); err != nil {
			log.Warn().Err(err).Str("output", s.Output.Name()).Msg("Failed to stop output")
		}
	}()

	if err := s.Output.WriteFrame(f); err != nil {
		return err
	}

	log.Debug().
		Stringer("mode", mode).
		Stringer("geometry", g).
		Str("output", s.Output.Name()).
		Msg("Capture complete")
	return nil
}

// Countdown waits for d, logging the remaining whole seconds.
// It returns early with the context's error if ctx is cancelled.
func Countdown(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	log := logger.WithComponent("capture")
	log.Info().Dur("delay", d).Msg("Waiting before capture")

	deadline := time.NewTimer(d)
	defer deadline.Stop()
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	remaining := d
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-deadline.C:
			return nil
		case <-ticker.C:
			remaining -= time.Second
			if remaining > 0 {
				log.Info().Int("seconds", int((remaining+time.Second-1)/time.Second)).Msg("Capturing in")
			}
		}
	}
}
