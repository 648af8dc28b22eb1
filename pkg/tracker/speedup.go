package tracker

import "time"

// Speedup constants: the short polling bounds applied while stock is in
// motion, and the quiet window after which the tracker relaxes back to its
// configured pace.
const (
	SpeedupMinInterval = 1 * time.Second
	SpeedupMaxInterval = 3 * time.Second
	SpeedupQuietWindow = 30 * time.Minute
)

// SpeedupController shortens a tracker's polling interval after observed
// stock churn. Any id entering or leaving the available set counts as churn;
// the absolute size of the set never does. The first observation only
// establishes the baseline.
type SpeedupController struct {
	enabled bool

	baseMin time.Duration
	baseMax time.Duration

	previous IDSet
	primed   bool

	active      bool
	activatedAt time.Time
	lastChange  time.Time

	now func() time.Time
}

func NewSpeedupController(enabled bool, baseMin, baseMax time.Duration) *SpeedupController {
	return &SpeedupController{
		enabled: enabled,
		baseMin: baseMin,
		baseMax: baseMax,
		now:     time.Now,
	}
}

// Observe feeds one cycle's availability set into the controller.
func (s *SpeedupController) Observe(available IDSet) {
	if !s.primed {
		s.previous = available
		s.primed = true
		return
	}

	changed := !s.previous.Equal(available)
	s.previous = available

	if !s.enabled {
		return
	}

	if changed {
		s.lastChange = s.now()
		if !s.active {
			s.active = true
			s.activatedAt = s.lastChange
		}
		return
	}

	if s.active && s.now().Sub(s.lastChange) > SpeedupQuietWindow {
		s.active = false
	}
}

// Bounds returns the effective polling interval bounds.
func (s *SpeedupController) Bounds() (min, max time.Duration) {
	if s.active {
		return SpeedupMinInterval, SpeedupMaxInterval
	}
	return s.baseMin, s.baseMax
}

// Active reports whether the controller is currently sped up.
func (s *SpeedupController) Active() bool { return s.active }
