package pianola_test

import (
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/mlempinen/pianola"
)

func TestTicksFor(t *testing.T) {
	tests := []struct {
		elapsed time.Duration
		tempo   int
		tpq     int
		want    uint64
	}{
		{0, pianola.DefaultTempo, pianola.DefaultTicksPerQuarter, 0},
		{500 * time.Millisecond, pianola.DefaultTempo, pianola.DefaultTicksPerQuarter, 480},
		{time.Second, pianola.DefaultTempo, pianola.DefaultTicksPerQuarter, 960},
		{250 * time.Millisecond, pianola.DefaultTempo, pianola.DefaultTicksPerQuarter, 240},
		{time.Second, 1000000, 480, 480},
		{-time.Second, pianola.DefaultTempo, pianola.DefaultTicksPerQuarter, 0},
		{time.Second, 0, 480, 0},
	}
	for _, test := range tests {
		got := pianola.TicksFor(test.elapsed, test.tempo, test.tpq)
		if got != test.want {
			t.Errorf("TicksFor(%v, %v, %v) = %v, want %v", test.elapsed, test.tempo, test.tpq, got, test.want)
		}
	}
}

func TestTimeFor(t *testing.T) {
	if got := pianola.TimeFor(480, pianola.DefaultTempo, pianola.DefaultTicksPerQuarter); got != 500*time.Millisecond {
		t.Errorf("TimeFor(480) = %v, want 500ms", got)
	}
	if got := pianola.TimeFor(0, pianola.DefaultTempo, pianola.DefaultTicksPerQuarter); got != 0 {
		t.Errorf("TimeFor(0) = %v, want 0", got)
	}
}

func TestTickDuration(t *testing.T) {
	want := 500 * time.Millisecond / 480
	got := pianola.TickDuration(pianola.DefaultTempo, pianola.DefaultTicksPerQuarter)
	if diff := got - want; diff < -time.Microsecond || diff > time.Microsecond {
		t.Errorf("TickDuration = %v, want about %v", got, want)
	}
}

func TestRoundTripConversion(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("time_for(ticks_for(elapsed)) within one tick of elapsed", prop.ForAll(
		func(elapsedMS int64, tempo int, tpq int) bool {
			elapsed := time.Duration(elapsedMS) * time.Millisecond
			ticks := pianola.TicksFor(elapsed, tempo, tpq)
			back := pianola.TimeFor(ticks, tempo, tpq)
			diff := elapsed - back
			if diff < 0 {
				diff = -diff
			}
			return diff <= pianola.TickDuration(tempo, tpq)
		},
		gen.Int64Range(0, 10*60*1000),
		gen.IntRange(100000, 2000000),
		gen.IntRange(24, 960),
	))

	properties.TestingRun(t)
}
