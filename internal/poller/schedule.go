// ABOUTME: Adaptive polling cadence and watchdog configuration
// ABOUTME: Maps elapsed loop time to the next poll interval

package poller

import "time"

// Schedule controls how often the loop polls and how long it
// tolerates silence. Windows are measured from loop start, not from
// the previous attempt.
type Schedule struct {
	// FastCadence applies while elapsed < FastWindow.
	FastCadence time.Duration
	FastWindow  time.Duration

	// MediumCadence applies while elapsed < MediumWindow.
	MediumCadence time.Duration
	MediumWindow  time.Duration

	// SlowCadence applies from MediumWindow onwards.
	SlowCadence time.Duration

	// WatchdogCeiling is the maximum silence (no in_progress seen)
	// before the session times out.
	WatchdogCeiling time.Duration
}

// DefaultSchedule returns the production schedule: 500ms polls for
// the first 2s, 1s polls until 12s, 2s polls after that, and a 30s
// watchdog ceiling.
func DefaultSchedule() Schedule {
	return Schedule{
		FastCadence:     500 * time.Millisecond,
		FastWindow:      2 * time.Second,
		MediumCadence:   time.Second,
		MediumWindow:    12 * time.Second,
		SlowCadence:     2 * time.Second,
		WatchdogCeiling: 30 * time.Second,
	}
}

// withDefaults fills every unset (or negative) field from
// DefaultSchedule, so a partially specified schedule can never make
// the loop busy-poll on a zero interval.
func (s Schedule) withDefaults() Schedule {
	d := DefaultSchedule()
	if s.FastCadence <= 0 {
		s.FastCadence = d.FastCadence
	}
	if s.FastWindow <= 0 {
		s.FastWindow = d.FastWindow
	}
	if s.MediumCadence <= 0 {
		s.MediumCadence = d.MediumCadence
	}
	if s.MediumWindow <= 0 {
		s.MediumWindow = d.MediumWindow
	}
	if s.SlowCadence <= 0 {
		s.SlowCadence = d.SlowCadence
	}
	if s.WatchdogCeiling <= 0 {
		s.WatchdogCeiling = d.WatchdogCeiling
	}
	return s
}

// CadenceAt returns the poll interval for the given elapsed time
// since loop start.
func (s Schedule) CadenceAt(elapsed time.Duration) time.Duration {
	switch {
	case elapsed < s.FastWindow:
		return s.FastCadence
	case elapsed < s.MediumWindow:
		return s.MediumCadence
	default:
		return s.SlowCadence
	}
}
