package selector

import (
	"fmt"

	"github.com/bryanchriswhite/scr2ppm/internal/logger"
)

// PickWindow waits for a single click and returns the window under the
// pointer. A zero handle means the click landed on the desktop background.
// The wait is unbounded.
func (s *PointerSelector) PickWindow() (uint32, error) {
	log := logger.WithComponent("selector")
	s.setState(StateIdle)

	release, err := s.grab(GrabPick)
	if err != nil {
		return 0, err
	}
	defer release()

	s.setState(StateArmed)
	log.Info().Msg("Click a window to capture it")

	for {
		ev, err := s.surface.NextEvent()
		if err != nil {
			return 0, fmt.Errorf("failed to read pointer event: %w", err)
		}
		if ev.Kind != EventButtonPress {
			continue
		}

		s.setState(StateDone)
		log.Debug().
			Uint32("window_id", ev.Child).
			Int("x", ev.Point.X).
			Int("y", ev.Point.Y).
			Msg("Window picked")
		return ev.Child, nil
	}
}
