package pianola

import "time"

// Tempo is expressed as microseconds per quarter note throughout, matching the
// MIDI tempo meta event. DefaultTempo corresponds to 120 beats per minute.
const (
	DefaultTempo           = 500000
	DefaultTicksPerQuarter = 480
)

// TicksFor converts elapsed wall-clock time to sequence ticks at the given
// tempo and resolution. The computation is elapsed_micros * tpq / tempo, done
// in float64 and truncated towards zero; composing with TimeFor recovers the
// input within one tick's worth of time, not exactly.
func TicksFor(elapsed time.Duration, tempo, tpq int) uint64 {
	if elapsed < 0 || tempo <= 0 || tpq <= 0 {
		return 0
	}
	quarters := float64(elapsed.Microseconds()) / float64(tempo)
	return uint64(quarters * float64(tpq))
}

// TimeFor is the inverse of TicksFor: ticks * tempo / tpq microseconds,
// truncated.
func TimeFor(ticks uint64, tempo, tpq int) time.Duration {
	if tempo <= 0 || tpq <= 0 {
		return 0
	}
	quarters := float64(ticks) / float64(tpq)
	return time.Duration(quarters*float64(tempo)) * time.Microsecond
}

// TickDuration returns the wall-clock length of a single tick.
func TickDuration(tempo, tpq int) time.Duration {
	return TimeFor(1, tempo, tpq)
}
