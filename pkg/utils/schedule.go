package utils

import "time"

// Schedule ramps a value from Initial to Final between StartMargin and
// EndMargin of elapsed time. Initial == Final gives a flat value.
type Schedule struct {
	Initial     float64
	Final       float64
	StartMargin time.Duration
	EndMargin   time.Duration
}

// At returns the scheduled value after elapsed time.
func (s Schedule) At(elapsed time.Duration) float64 {
	return Interpolate(
		elapsed.Seconds(),
		s.Initial,
		s.Final,
		s.StartMargin.Seconds(),
		s.EndMargin.Seconds(),
	)
}

// Interpolate is the piecewise-linear ramp: initial up to start, final from
// end onwards, linear in between.
func Interpolate(t, initial, final, start, end float64) float64 {
	if t <= start {
		return initial
	}
	if t >= end {
		return final
	}
	progress := (t - start) / (end - start)
	return initial + (final-initial)*progress
}
